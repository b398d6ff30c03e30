package service

import (
	"context"
	"encoding/json"
	"fmt"
	"quiz_master_backend/internal/model"
	"quiz_master_backend/internal/util"
	"quiz_master_backend/pkg/logger"
	"quiz_master_backend/pkg/monitoring"
	"quiz_master_backend/pkg/tracing"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type QuizStore interface {
	Create(ctx context.Context, quiz *model.Quiz) error
	FindWithQuestions(ctx context.Context, id uint) (*model.Quiz, error)
	List(ctx context.Context) ([]model.Quiz, error)
	Delete(ctx context.Context, id uint) error
}

type ScoreStore interface {
	Create(ctx context.Context, record *model.ScoreRecord) error
	ListByUser(ctx context.Context, userID uint) ([]model.UserScoreItem, error)
	AttemptedQuizIDs(ctx context.Context, userID uint) ([]uint, error)
}

type SubjectStore interface {
	Create(ctx context.Context, subject *model.Subject) error
	FindChapter(ctx context.Context, subjectID, chapterID uint) (*model.Chapter, error)
	List(ctx context.Context) ([]model.Subject, error)
	Delete(ctx context.Context, id uint) error
}

// QuizService 测验管理与作答提交，提交在请求中同步完成评分
type QuizService struct {
	Quizzes  QuizStore
	Scores   ScoreStore
	Subjects SubjectStore
	Scorer   *ScoringEngine
	// 测验日期的解析时区，需与数据库连接的 loc 一致
	Location *time.Location
}

func NewQuizService(quizzes QuizStore, scores ScoreStore, subjects SubjectStore) *QuizService {
	return &QuizService{
		Quizzes:  quizzes,
		Scores:   scores,
		Subjects: subjects,
		Scorer:   NewScoringEngine(),
		Location: time.Local,
	}
}

// SubmitQuizAttempt 评分并保存得分记录
func (s *QuizService) SubmitQuizAttempt(ctx context.Context, quizID, userID uint, answers Answers) (*model.ScoreRecord, error) {
	ctx, span := tracing.Tracer.Start(ctx, "QuizService.SubmitQuizAttempt",
		trace.WithAttributes(
			attribute.Int64("quiz.id", int64(quizID)),
			attribute.Int64("user.id", int64(userID))))
	defer span.End()

	record, err := s.submit(ctx, quizID, userID, answers)
	if err != nil {
		span.RecordError(err)
		monitoring.SubmissionCounter.WithLabelValues("error").Inc()
		return nil, err
	}
	monitoring.SubmissionCounter.WithLabelValues("ok").Inc()
	return record, nil
}

func (s *QuizService) submit(ctx context.Context, quizID, userID uint, answers Answers) (*model.ScoreRecord, error) {
	quiz, err := s.Quizzes.FindWithQuestions(ctx, quizID)
	if err != nil {
		return nil, err
	}

	userScore, totalScore, err := s.Scorer.Score(quiz, answers)
	if err != nil {
		return nil, err
	}

	snapshot := make(map[string]uint, len(answers))
	for q, o := range answers {
		snapshot[strconv.FormatUint(uint64(q), 10)] = o
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return nil, err
	}

	record := &model.ScoreRecord{
		UserID:     userID,
		QuizID:     quiz.ID,
		UserScore:  userScore,
		TotalScore: totalScore,
		Answers:    datatypes.JSON(raw),
	}
	if err := s.Scores.Create(ctx, record); err != nil {
		return nil, err
	}

	logger.Log.Info("Quiz attempt scored",
		zap.Uint("quizId", quiz.ID),
		zap.Uint("userId", userID),
		zap.Int("score", userScore),
		zap.Int("total", totalScore))
	return record, nil
}

func (s *QuizService) ListUserScores(ctx context.Context, userID uint) ([]model.UserScoreItem, error) {
	items, err := s.Scores.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.UserScoreItem{}
	}
	return items, nil
}

// QuizView 作答所需的测验信息，不包含正确答案
type QuizView struct {
	ID         uint             `json:"id"`
	Name       string           `json:"name"`
	Remarks    string           `json:"remarks"`
	Subject    string           `json:"subject"`
	Chapter    string           `json:"chapter"`
	DateOfQuiz string           `json:"dateOfQuiz"`
	Hours      int              `json:"hours"`
	Minutes    int              `json:"minutes"`
	Questions  []model.Question `json:"questions"`
	// 当前用户是否已经作答过
	Done bool `json:"done"`
}

func newQuizView(q *model.Quiz, done bool) QuizView {
	v := QuizView{
		ID:         q.ID,
		Name:       q.Name,
		Remarks:    q.Remarks,
		DateOfQuiz: q.DateOfQuiz.Format(util.DateFormat),
		Hours:      q.Hours,
		Minutes:    q.Minutes,
		Questions:  q.Questions,
		Done:       done,
	}
	if q.Subject != nil {
		v.Subject = q.Subject.Name
	}
	if q.Chapter != nil {
		v.Chapter = q.Chapter.Name
	}
	if v.Questions == nil {
		v.Questions = []model.Question{}
	}
	return v
}

// ListQuizzes 所有测验，Done 标记用户是否已有得分记录
func (s *QuizService) ListQuizzes(ctx context.Context, userID uint) ([]QuizView, error) {
	quizzes, err := s.Quizzes.List(ctx)
	if err != nil {
		return nil, err
	}
	attempted, err := s.Scores.AttemptedQuizIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	done := make(map[uint]bool, len(attempted))
	for _, id := range attempted {
		done[id] = true
	}

	views := make([]QuizView, 0, len(quizzes))
	for i := range quizzes {
		views = append(views, newQuizView(&quizzes[i], done[quizzes[i].ID]))
	}
	return views, nil
}

func (s *QuizService) GetQuiz(ctx context.Context, id, userID uint) (*QuizView, error) {
	quiz, err := s.Quizzes.FindWithQuestions(ctx, id)
	if err != nil {
		return nil, err
	}
	attempted, err := s.Scores.AttemptedQuizIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	view := newQuizView(quiz, slices.Contains(attempted, id))
	return &view, nil
}

type CreateOptionReq struct {
	Statement string `json:"statement" binding:"required"`
}

type CreateQuestionReq struct {
	Statement string            `json:"statement" binding:"required"`
	Options   []CreateOptionReq `json:"options" binding:"required,min=2,dive"`
	// 正确选项在 Options 中的下标
	CorrectIndex int `json:"correctIndex"`
}

type CreateQuizReq struct {
	SubjectID  uint                `json:"subjectId" binding:"required"`
	ChapterID  uint                `json:"chapterId" binding:"required"`
	Name       string              `json:"name" binding:"required"`
	Remarks    string              `json:"remarks"`
	DateOfQuiz string              `json:"dateOfQuiz" binding:"required"`
	Hours      int                 `json:"hours"`
	Minutes    int                 `json:"minutes"`
	Questions  []CreateQuestionReq `json:"questions" binding:"dive"`
}

// CreateQuiz 校验后一次性写入测验、题目与选项
func (s *QuizService) CreateQuiz(ctx context.Context, req CreateQuizReq) (*model.Quiz, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", util.ErrInvalidQuiz)
	}
	// 驱动写入前会转换到连接时区，按 UTC 解析会在负时区落到前一天
	date, err := time.ParseInLocation(util.DateFormat, req.DateOfQuiz, s.Location)
	if err != nil {
		return nil, fmt.Errorf("%w: dateOfQuiz must be %s", util.ErrInvalidQuiz, util.DateFormat)
	}
	if req.Hours < 0 || req.Minutes < 0 || req.Minutes >= 60 {
		return nil, fmt.Errorf("%w: invalid duration %dh%dm", util.ErrInvalidQuiz, req.Hours, req.Minutes)
	}
	if _, err := s.Subjects.FindChapter(ctx, req.SubjectID, req.ChapterID); err != nil {
		return nil, err
	}

	quiz := &model.Quiz{
		SubjectID:  req.SubjectID,
		ChapterID:  req.ChapterID,
		Name:       strings.TrimSpace(req.Name),
		Remarks:    req.Remarks,
		DateOfQuiz: date,
		Hours:      req.Hours,
		Minutes:    req.Minutes,
	}
	for i, q := range req.Questions {
		if strings.TrimSpace(q.Statement) == "" {
			return nil, fmt.Errorf("%w: question %d has no statement", util.ErrInvalidQuiz, i+1)
		}
		if len(q.Options) < 2 {
			return nil, fmt.Errorf("%w: question %d needs at least two options", util.ErrInvalidQuiz, i+1)
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
			return nil, fmt.Errorf("%w: question %d correctIndex %d out of range", util.ErrInvalidQuiz, i+1, q.CorrectIndex)
		}

		question := model.Question{Statement: q.Statement, CorrectIndex: q.CorrectIndex}
		for pos, o := range q.Options {
			question.Options = append(question.Options, model.Option{Position: pos, Statement: o.Statement})
		}
		quiz.Questions = append(quiz.Questions, question)
	}

	if err := s.Quizzes.Create(ctx, quiz); err != nil {
		return nil, err
	}
	logger.Log.Info("Quiz created", zap.Uint("quizId", quiz.ID), zap.Int("questions", len(quiz.Questions)))
	return quiz, nil
}

type CreateChapterReq struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type CreateSubjectReq struct {
	Name        string             `json:"name" binding:"required"`
	Description string             `json:"description"`
	Chapters    []CreateChapterReq `json:"chapters" binding:"dive"`
}

func (s *QuizService) CreateSubject(ctx context.Context, req CreateSubjectReq) (*model.Subject, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: subject name is required", util.ErrValidation)
	}

	subject := &model.Subject{Name: strings.TrimSpace(req.Name), Description: req.Description}
	for _, ch := range req.Chapters {
		subject.Chapters = append(subject.Chapters, model.Chapter{Name: ch.Name, Description: ch.Description})
	}
	if err := s.Subjects.Create(ctx, subject); err != nil {
		return nil, err
	}
	return subject, nil
}

func (s *QuizService) ListSubjects(ctx context.Context) ([]model.Subject, error) {
	return s.Subjects.List(ctx)
}

// DeleteQuiz 题目、选项和得分记录一起删除，之后的统计不再包含这些记录
func (s *QuizService) DeleteQuiz(ctx context.Context, id uint) error {
	if err := s.Quizzes.Delete(ctx, id); err != nil {
		return err
	}
	logger.Log.Info("Quiz deleted", zap.Uint("quizId", id))
	return nil
}

// DeleteSubject 删除科目及其下所有章节、测验和得分记录
func (s *QuizService) DeleteSubject(ctx context.Context, id uint) error {
	if err := s.Subjects.Delete(ctx, id); err != nil {
		return err
	}
	logger.Log.Info("Subject deleted", zap.Uint("subjectId", id))
	return nil
}
