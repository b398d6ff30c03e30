package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"quiz_master_backend/internal/model"
	"quiz_master_backend/internal/repository"
	"quiz_master_backend/internal/util"
	"quiz_master_backend/pkg/database"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type quizEnv struct {
	db      *gorm.DB
	svc     *QuizService
	user    *model.User
	subject *model.Subject
}

func newQuizEnv(t *testing.T) quizEnv {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared&_foreign_keys=on", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	ctx := context.Background()
	user := &model.User{Name: "alice", Email: "alice@qm.xyz", Role: model.Student}
	if err := repository.NewUserRepository(db).Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	svc := NewQuizService(repository.NewQuizRepository(db), repository.NewScoreRepository(db), repository.NewSubjectRepository(db))
	subject, err := svc.CreateSubject(ctx, CreateSubjectReq{Name: "Math", Chapters: []CreateChapterReq{{Name: "Algebra"}}})
	if err != nil {
		t.Fatalf("CreateSubject: %v", err)
	}
	return quizEnv{db: db, svc: svc, user: user, subject: subject}
}

func (e quizEnv) quizReq() CreateQuizReq {
	return CreateQuizReq{
		SubjectID:  e.subject.ID,
		ChapterID:  e.subject.Chapters[0].ID,
		Name:       "Quiz 1",
		DateOfQuiz: "2024-03-15",
		Minutes:    30,
		Questions: []CreateQuestionReq{
			{Statement: "1+1", Options: []CreateOptionReq{{"1"}, {"2"}, {"3"}}, CorrectIndex: 1},
			{Statement: "2*3", Options: []CreateOptionReq{{"6"}, {"5"}}, CorrectIndex: 0},
			{Statement: "9-4", Options: []CreateOptionReq{{"4"}, {"5"}}, CorrectIndex: 1},
		},
	}
}

func TestQuizService_CreateAndSubmit(t *testing.T) {
	env := newQuizEnv(t)
	ctx := context.Background()

	quiz, err := env.svc.CreateQuiz(ctx, env.quizReq())
	if err != nil {
		t.Fatalf("CreateQuiz: %v", err)
	}

	stored, err := env.svc.Quizzes.FindWithQuestions(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("FindWithQuestions: %v", err)
	}
	answers := Answers{}
	for i, q := range stored.Questions {
		correct, ok := q.CorrectOptionID()
		if !ok {
			t.Fatalf("question %d has no answer key", i)
		}
		// 第三题故意答错
		if i == 2 {
			correct = q.Options[0].ID
		}
		answers[q.ID] = correct
	}

	record, err := env.svc.SubmitQuizAttempt(ctx, quiz.ID, env.user.ID, answers)
	if err != nil {
		t.Fatalf("SubmitQuizAttempt: %v", err)
	}
	if record.UserScore != 2 || record.TotalScore != 3 {
		t.Errorf("expected 2/3, got %d/%d", record.UserScore, record.TotalScore)
	}
	if record.UserScore > record.TotalScore || record.UserScore < 0 {
		t.Errorf("score out of bounds: %+v", record)
	}

	var snapshot map[string]uint
	if err := json.Unmarshal(record.Answers, &snapshot); err != nil || len(snapshot) != 3 {
		t.Errorf("answers snapshot not stored: %s, %v", record.Answers, err)
	}

	items, err := env.svc.ListUserScores(ctx, env.user.ID)
	if err != nil {
		t.Fatalf("ListUserScores: %v", err)
	}
	if len(items) != 1 || items[0].Correct != 2 || items[0].Total != 3 || items[0].SubjectID != env.subject.ID {
		t.Errorf("unexpected score history %+v", items)
	}
	if items[0].DateOfQuiz.Format(util.DateFormat) != "2024-03-15" {
		t.Errorf("unexpected quiz date %v", items[0].DateOfQuiz)
	}
}

func TestQuizService_DateKeepsCalendarDay(t *testing.T) {
	env := newQuizEnv(t)
	ctx := context.Background()

	for _, loc := range []*time.Location{
		time.FixedZone("UTC-5", -5*3600),
		time.UTC,
		time.FixedZone("UTC+9", 9*3600),
	} {
		env.svc.Location = loc
		req := env.quizReq()
		req.Name = "Quiz " + loc.String()
		req.DateOfQuiz = "2024-03-01"

		quiz, err := env.svc.CreateQuiz(ctx, req)
		if err != nil {
			t.Fatalf("CreateQuiz(%s): %v", loc, err)
		}
		// mysql 驱动写入 DATE 前执行 In(loc)
		if got := quiz.DateOfQuiz.In(loc); got.Month() != time.March || got.Day() != 1 {
			t.Errorf("%s: date shifted to %s", loc, got.Format(util.DateFormat))
		}
	}
}

func TestQuizService_ListQuizzesDone(t *testing.T) {
	env := newQuizEnv(t)
	ctx := context.Background()

	first, err := env.svc.CreateQuiz(ctx, env.quizReq())
	if err != nil {
		t.Fatalf("CreateQuiz: %v", err)
	}
	req := env.quizReq()
	req.Name = "Quiz 2"
	req.DateOfQuiz = "2024-04-01"
	second, err := env.svc.CreateQuiz(ctx, req)
	if err != nil {
		t.Fatalf("CreateQuiz: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := env.svc.SubmitQuizAttempt(ctx, first.ID, env.user.ID, Answers{}); err != nil {
			t.Fatalf("SubmitQuizAttempt: %v", err)
		}
	}

	views, err := env.svc.ListQuizzes(ctx, env.user.ID)
	if err != nil {
		t.Fatalf("ListQuizzes: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 quizzes, got %d", len(views))
	}
	if views[0].ID != first.ID || !views[0].Done || views[1].ID != second.ID || views[1].Done {
		t.Errorf("unexpected done flags %+v", views)
	}
	if views[0].Subject != "Math" || views[0].Chapter != "Algebra" || len(views[0].Questions) != 3 {
		t.Errorf("unexpected view %+v", views[0])
	}

	other, err := env.svc.ListQuizzes(ctx, env.user.ID+100)
	if err != nil {
		t.Fatalf("ListQuizzes: %v", err)
	}
	for _, v := range other {
		if v.Done {
			t.Errorf("quiz %d marked done for a user without attempts", v.ID)
		}
	}

	view, err := env.svc.GetQuiz(ctx, second.ID, env.user.ID)
	if err != nil || view.Done || view.DateOfQuiz != "2024-04-01" {
		t.Errorf("GetQuiz: %+v %v", view, err)
	}
	if _, err := env.svc.GetQuiz(ctx, 999, env.user.ID); !errors.Is(err, util.ErrQuizNotFound) {
		t.Errorf("expected ErrQuizNotFound, got %v", err)
	}
}

func TestQuizService_SubmitUnknownQuiz(t *testing.T) {
	env := newQuizEnv(t)

	_, err := env.svc.SubmitQuizAttempt(context.Background(), 404, env.user.ID, Answers{})
	if !errors.Is(err, util.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}

	var count int64
	env.db.Model(&model.ScoreRecord{}).Count(&count)
	if count != 0 {
		t.Errorf("no record should be written for an unknown quiz, found %d", count)
	}
}

func TestQuizService_CreateQuizValidation(t *testing.T) {
	env := newQuizEnv(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*CreateQuizReq)
		want   error
	}{
		{"bad date", func(r *CreateQuizReq) { r.DateOfQuiz = "15/03/2024" }, util.ErrInvalidQuiz},
		{"blank name", func(r *CreateQuizReq) { r.Name = "  " }, util.ErrInvalidQuiz},
		{"bad minutes", func(r *CreateQuizReq) { r.Minutes = 75 }, util.ErrInvalidQuiz},
		{"index out of range", func(r *CreateQuizReq) { r.Questions[0].CorrectIndex = 3 }, util.ErrInvalidQuiz},
		{"single option", func(r *CreateQuizReq) { r.Questions[1].Options = r.Questions[1].Options[:1] }, util.ErrInvalidQuiz},
		{"foreign chapter", func(r *CreateQuizReq) { r.ChapterID = 999 }, util.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := env.quizReq()
			tt.mutate(&req)
			if _, err := env.svc.CreateQuiz(ctx, req); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	var count int64
	env.db.Model(&model.Quiz{}).Count(&count)
	if count != 0 {
		t.Errorf("invalid quizzes must not be stored, found %d", count)
	}
}

func TestQuizService_DeleteSubjectRemovesScores(t *testing.T) {
	env := newQuizEnv(t)
	ctx := context.Background()

	quiz, err := env.svc.CreateQuiz(ctx, env.quizReq())
	if err != nil {
		t.Fatalf("CreateQuiz: %v", err)
	}
	if _, err := env.svc.SubmitQuizAttempt(ctx, quiz.ID, env.user.ID, Answers{}); err != nil {
		t.Fatalf("SubmitQuizAttempt: %v", err)
	}

	if err := env.svc.DeleteSubject(ctx, env.subject.ID); err != nil {
		t.Fatalf("DeleteSubject: %v", err)
	}
	items, _ := env.svc.ListUserScores(ctx, env.user.ID)
	if len(items) != 0 {
		t.Errorf("expected scores to be removed, got %+v", items)
	}

	if err := env.svc.DeleteSubject(ctx, env.subject.ID); !errors.Is(err, util.ErrSubjectNotFound) {
		t.Errorf("expected ErrSubjectNotFound on second delete, got %v", err)
	}
}

func TestQuizService_StatisticsEndToEnd(t *testing.T) {
	env := newQuizEnv(t)
	ctx := context.Background()

	quiz, err := env.svc.CreateQuiz(ctx, env.quizReq())
	if err != nil {
		t.Fatalf("CreateQuiz: %v", err)
	}
	if _, err := env.svc.SubmitQuizAttempt(ctx, quiz.ID, env.user.ID, Answers{}); err != nil {
		t.Fatalf("SubmitQuizAttempt: %v", err)
	}

	renderer, _ := newLocalRenderer(t)
	stats := NewStatisticsService(
		repository.NewUserRepository(env.db),
		repository.NewScoreRepository(env.db),
		newDispatcher(t, 1, 4),
		renderer,
		DefaultMonthNames,
		StatisticsOptions{Wait: WaitOptions{Timeout: 10 * time.Second}, AttemptPolicy: util.AttemptPolicyAll},
	)

	report, err := stats.GetUserStatistics(ctx, env.user.ID)
	if err != nil {
		t.Fatalf("GetUserStatistics: %v", err)
	}
	if !strings.HasSuffix(report.BySubject, util.UserSubjectReportName(env.user.Email)) {
		t.Errorf("unexpected by_subject %q", report.BySubject)
	}
	if !strings.HasSuffix(report.ByMonth, util.UserMonthReportName(env.user.Email)) {
		t.Errorf("unexpected by_month %q", report.ByMonth)
	}
}
