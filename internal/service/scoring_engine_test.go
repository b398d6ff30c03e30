package service

import (
	"errors"
	"math/rand"
	"testing"

	"quiz_master_backend/internal/model"
	"quiz_master_backend/internal/util"
)

// buildQuiz 题目 ID 为 1..n，第 i 题的正确选项 ID 为 correct[i]
func buildQuiz(correct ...uint) *model.Quiz {
	quiz := &model.Quiz{}
	for i, c := range correct {
		q := model.Question{
			QuizID: 1,
			Options: []model.Option{
				{ID: c, Position: 0},
				{ID: c + 1, Position: 1},
			},
			CorrectIndex: 0,
		}
		q.ID = uint(i + 1)
		quiz.Questions = append(quiz.Questions, q)
	}
	return quiz
}

func TestScore_ConcreteScenario(t *testing.T) {
	quiz := buildQuiz(10, 20, 30)
	answers := Answers{1: 10, 2: 21, 3: 30}

	user, total, err := NewScoringEngine().Score(quiz, answers)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if user != 2 || total != 3 {
		t.Errorf("expected 2/3, got %d/%d", user, total)
	}
}

func TestScore_MissingAndExtraAnswers(t *testing.T) {
	quiz := buildQuiz(10, 20, 30)
	answers := Answers{1: 10, 99: 5}

	user, total, err := NewScoringEngine().Score(quiz, answers)
	if err != nil {
		t.Fatalf("missing answers must not fail: %v", err)
	}
	if user != 1 || total != 3 {
		t.Errorf("expected 1/3, got %d/%d", user, total)
	}
}

func TestScore_NilQuiz(t *testing.T) {
	_, _, err := NewScoringEngine().Score(nil, Answers{})
	if !errors.Is(err, util.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
	if !errors.Is(err, util.ErrNotFound) {
		t.Error("expected quiz-not-found to be classified as not found")
	}
}

func TestScore_EmptyQuiz(t *testing.T) {
	user, total, err := NewScoringEngine().Score(&model.Quiz{}, Answers{1: 1})
	if err != nil || user != 0 || total != 0 {
		t.Errorf("expected 0/0 without error, got %d/%d (%v)", user, total, err)
	}
}

func TestScore_BoundsAndIdempotence(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	engine := NewScoringEngine()

	for n := 0; n < 50; n++ {
		count := rng.Intn(10)
		correct := make([]uint, count)
		for i := range correct {
			correct[i] = uint(100*(i+1) + rng.Intn(2))
		}
		quiz := buildQuiz(correct...)

		answers := Answers{}
		for i := 0; i < count+2; i++ {
			if rng.Intn(3) == 0 {
				continue
			}
			answers[uint(i+1)] = uint(100*(i+1) + rng.Intn(3))
		}

		u1, t1, _ := engine.Score(quiz, answers)
		u2, t2, _ := engine.Score(quiz, answers)
		if u1 != u2 || t1 != t2 {
			t.Fatalf("expected identical results, got %d/%d and %d/%d", u1, t1, u2, t2)
		}
		if t1 != count || u1 < 0 || u1 > t1 {
			t.Fatalf("bounds violated: user=%d total=%d questions=%d", u1, t1, count)
		}
	}
}

func TestParseAnswers(t *testing.T) {
	answers, err := ParseAnswers(map[string]uint{"1": 10, "2": 0, "3": 30})
	if err != nil {
		t.Fatalf("ParseAnswers: %v", err)
	}
	if len(answers) != 2 || answers[1] != 10 || answers[3] != 30 {
		t.Errorf("unexpected answers %v", answers)
	}
	if _, ok := answers[2]; ok {
		t.Error("option 0 should be treated as unanswered")
	}

	for _, bad := range []map[string]uint{nil, {"abc": 1}, {"0": 1}, {"-3": 1}} {
		if _, err := ParseAnswers(bad); !errors.Is(err, util.ErrValidation) {
			t.Errorf("ParseAnswers(%v): expected validation error, got %v", bad, err)
		}
	}
}
