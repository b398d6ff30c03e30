package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"quiz_master_backend/internal/model"
	"quiz_master_backend/internal/util"
	"quiz_master_backend/pkg/database"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name)
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
	return db
}

type fixture struct {
	user    *model.User
	subject *model.Subject
	quiz    *model.Quiz
}

func seed(t *testing.T, db *gorm.DB, subjectName string, date time.Time) fixture {
	t.Helper()
	ctx := context.Background()

	user := &model.User{Name: "u", Email: subjectName + "@qm.xyz", Role: model.Student}
	if err := NewUserRepository(db).Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	subject := &model.Subject{Name: subjectName, Chapters: []model.Chapter{{Name: "ch1"}}}
	if err := NewSubjectRepository(db).Create(ctx, subject); err != nil {
		t.Fatalf("create subject: %v", err)
	}

	quiz := &model.Quiz{
		SubjectID:  subject.ID,
		ChapterID:  subject.Chapters[0].ID,
		Name:       "quiz",
		DateOfQuiz: date,
		Questions: []model.Question{
			{Statement: "1+1", CorrectIndex: 1, Options: []model.Option{
				{Position: 0, Statement: "1"}, {Position: 1, Statement: "2"},
			}},
			{Statement: "2+2", CorrectIndex: 0, Options: []model.Option{
				{Position: 0, Statement: "4"}, {Position: 1, Statement: "5"},
			}},
		},
	}
	if err := NewQuizRepository(db).Create(ctx, quiz); err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	return fixture{user: user, subject: subject, quiz: quiz}
}

func TestQuizRepository_CreateResolvesAnswerKeyInOneWrite(t *testing.T) {
	db := newTestDB(t)
	f := seed(t, db, "Math", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC))

	quiz, err := NewQuizRepository(db).FindWithQuestions(context.Background(), f.quiz.ID)
	if err != nil {
		t.Fatalf("FindWithQuestions: %v", err)
	}
	if len(quiz.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(quiz.Questions))
	}
	if quiz.Subject == nil || quiz.Subject.Name != "Math" {
		t.Errorf("expected subject to be preloaded, got %+v", quiz.Subject)
	}

	first := quiz.Questions[0]
	id, ok := first.CorrectOptionID()
	if !ok {
		t.Fatal("expected answer key to resolve")
	}
	if id != first.Options[1].ID {
		t.Errorf("expected correct option %d, got %d", first.Options[1].ID, id)
	}
}

func TestQuizRepository_FindMissing(t *testing.T) {
	db := newTestDB(t)
	_, err := NewQuizRepository(db).FindWithQuestions(context.Background(), 999)
	if !errors.Is(err, util.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}

func TestScoreRepository_StatsRecordsAreDenormalised(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	date := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	f := seed(t, db, "Physics", date)
	repo := NewScoreRepository(db)

	for _, s := range []int{1, 2} {
		rec := &model.ScoreRecord{UserID: f.user.ID, QuizID: f.quiz.ID, UserScore: s, TotalScore: 2}
		if err := repo.Create(ctx, rec); err != nil {
			t.Fatalf("create score: %v", err)
		}
	}

	records, err := repo.ListStatsRecordsByUser(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("ListStatsRecordsByUser: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	r := records[0]
	if r.Subject != "Physics" || r.QuizID != f.quiz.ID || r.TotalScore != 2 || r.UserScore != 1 {
		t.Errorf("unexpected record %+v", r)
	}
	if r.DateOfQuiz.Month() != time.March {
		t.Errorf("expected March quiz date, got %v", r.DateOfQuiz)
	}

	all, err := repo.ListAllStatsRecords(ctx)
	if err != nil || len(all) != 2 {
		t.Fatalf("expected 2 platform records, got %d (%v)", len(all), err)
	}

	items, err := repo.ListByUser(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(items) != 2 || items[1].Correct != 2 || items[1].SubjectID != f.subject.ID {
		t.Errorf("unexpected score items %+v", items)
	}
}

func TestSubjectRepository_DeleteCascades(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	f := seed(t, db, "Chemistry", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))
	other := seed(t, db, "Biology", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))

	scores := NewScoreRepository(db)
	for _, fx := range []fixture{f, other} {
		if err := scores.Create(ctx, &model.ScoreRecord{UserID: fx.user.ID, QuizID: fx.quiz.ID, UserScore: 1, TotalScore: 2}); err != nil {
			t.Fatalf("create score: %v", err)
		}
	}

	if err := NewSubjectRepository(db).Delete(ctx, f.subject.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	count := func(m interface{}, where string, args ...interface{}) int64 {
		var n int64
		db.Model(m).Where(where, args...).Count(&n)
		return n
	}
	if n := count(&model.Chapter{}, "subject_id = ?", f.subject.ID); n != 0 {
		t.Errorf("expected chapters to be deleted, %d left", n)
	}
	if n := count(&model.Quiz{}, "id = ?", f.quiz.ID); n != 0 {
		t.Errorf("expected quiz to be deleted, %d left", n)
	}
	if n := count(&model.Question{}, "quiz_id = ?", f.quiz.ID); n != 0 {
		t.Errorf("expected questions to be deleted, %d left", n)
	}
	if n := count(&model.ScoreRecord{}, "quiz_id = ?", f.quiz.ID); n != 0 {
		t.Errorf("expected score records to be deleted, %d left", n)
	}
	if n := count(&model.Option{}, "1 = 1"); n != 4 {
		t.Errorf("expected only the other subject's 4 options to remain, got %d", n)
	}
	if n := count(&model.ScoreRecord{}, "quiz_id = ?", other.quiz.ID); n != 1 {
		t.Errorf("expected unrelated score records to survive, got %d", n)
	}

	if err := NewSubjectRepository(db).Delete(ctx, f.subject.ID); !errors.Is(err, util.ErrSubjectNotFound) {
		t.Errorf("expected ErrSubjectNotFound on second delete, got %v", err)
	}
}

func TestQuizRepository_DeleteRemovesScores(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	f := seed(t, db, "Geography", time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC))

	scores := NewScoreRepository(db)
	if err := scores.Create(ctx, &model.ScoreRecord{UserID: f.user.ID, QuizID: f.quiz.ID, UserScore: 2, TotalScore: 2}); err != nil {
		t.Fatalf("create score: %v", err)
	}

	quizzes := NewQuizRepository(db)
	if err := quizzes.Delete(ctx, f.quiz.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := quizzes.FindWithQuestions(ctx, f.quiz.ID); !errors.Is(err, util.ErrQuizNotFound) {
		t.Errorf("expected quiz gone, got %v", err)
	}
	records, err := scores.ListStatsRecordsByUser(ctx, f.user.ID)
	if err != nil || len(records) != 0 {
		t.Errorf("expected no stats records after delete, got %d, %v", len(records), err)
	}
	var options int64
	db.Model(&model.Option{}).Count(&options)
	if options != 0 {
		t.Errorf("expected options deleted, %d left", options)
	}

	if err := quizzes.Delete(ctx, f.quiz.ID); !errors.Is(err, util.ErrQuizNotFound) {
		t.Errorf("expected ErrQuizNotFound on second delete, got %v", err)
	}
}

func TestUserRepository_FindMissing(t *testing.T) {
	db := newTestDB(t)
	if _, err := NewUserRepository(db).FindByID(context.Background(), 42); !errors.Is(err, util.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
