package service

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"quiz_master_backend/internal/model"
	"quiz_master_backend/internal/util"
)

func record(id uint, subject string, month time.Month, user, total int) model.StatsRecord {
	return model.StatsRecord{
		ScoreID:    id,
		UserID:     1,
		Subject:    subject,
		DateOfQuiz: time.Date(2024, month, 15, 0, 0, 0, 0, time.UTC),
		UserScore:  user,
		TotalScore: total,
	}
}

func TestAggregateByUser_SubjectSummary(t *testing.T) {
	records := []model.StatsRecord{
		record(1, "Math", time.January, 3, 5),
		record(2, "Math", time.January, 5, 5),
	}

	agg, err := NewAggregationEngine().AggregateByUser(records)
	if err != nil {
		t.Fatalf("AggregateByUser: %v", err)
	}
	math, ok := agg.Subject("Math")
	if !ok {
		t.Fatal("expected Math summary")
	}
	if math.Total != 10 || math.Score != 8 {
		t.Errorf("expected total=10 score=8, got total=%d score=%d", math.Total, math.Score)
	}
	if math.Average != 0.8 {
		t.Errorf("expected average 0.8, got %v", math.Average)
	}
	if len(math.Scores) != 2 || math.Scores[1].ID != 2 || math.Scores[1].Correct != 5 {
		t.Errorf("unexpected snapshots %+v", math.Scores)
	}
}

func TestAggregateByUser_MonthBuckets(t *testing.T) {
	records := []model.StatsRecord{
		record(1, "Math", time.January, 1, 2),
		record(2, "Physics", time.March, 1, 2),
		record(3, "Math", time.March, 2, 2),
	}

	agg, err := NewAggregationEngine().AggregateByUser(records)
	if err != nil {
		t.Fatalf("AggregateByUser: %v", err)
	}
	if len(agg.Months) != 2 {
		t.Fatalf("expected 2 month buckets, got %+v", agg.Months)
	}
	if m, _ := agg.Month(1); m.Count != 1 {
		t.Errorf("expected 1 attempt in January, got %d", m.Count)
	}
	if m, _ := agg.Month(3); m.Count != 2 {
		t.Errorf("expected 2 attempts in March, got %d", m.Count)
	}
	if _, ok := agg.Month(2); ok {
		t.Error("expected no bucket for February")
	}
}

func TestAggregateByUser_CollapsesYears(t *testing.T) {
	a := record(1, "Math", time.May, 1, 1)
	b := record(2, "Math", time.May, 1, 1)
	b.DateOfQuiz = b.DateOfQuiz.AddDate(-1, 0, 0)

	agg, _ := NewAggregationEngine().AggregateByUser([]model.StatsRecord{a, b})
	if len(agg.Months) != 1 || agg.Months[0].Count != 2 {
		t.Errorf("expected one May bucket with 2 attempts, got %+v", agg.Months)
	}
}

func TestAggregateByUser_FirstSeenOrder(t *testing.T) {
	records := []model.StatsRecord{
		record(1, "Physics", time.June, 1, 2),
		record(2, "Math", time.February, 1, 2),
		record(3, "Physics", time.February, 1, 2),
		record(4, "Art", time.June, 1, 2),
	}

	agg, _ := NewAggregationEngine().AggregateByUser(records)
	var names []string
	for _, s := range agg.Subjects {
		names = append(names, s.Name)
	}
	if !reflect.DeepEqual(names, []string{"Physics", "Math", "Art"}) {
		t.Errorf("unexpected subject order %v", names)
	}
	if agg.Months[0].Month != 6 || agg.Months[1].Month != 2 {
		t.Errorf("unexpected month order %+v", agg.Months)
	}
}

func TestAggregateByUser_ZeroTotal(t *testing.T) {
	agg, err := NewAggregationEngine().AggregateByUser([]model.StatsRecord{record(1, "Empty", time.April, 0, 0)})
	if err != nil {
		t.Fatalf("zero totals must not fail: %v", err)
	}
	if s, _ := agg.Subject("Empty"); s.Average != 0 {
		t.Errorf("expected average 0, got %v", s.Average)
	}
}

func TestAggregateByUser_Empty(t *testing.T) {
	agg, err := NewAggregationEngine().AggregateByUser(nil)
	if err != nil {
		t.Fatalf("empty input must not fail: %v", err)
	}
	if len(agg.Subjects) != 0 || len(agg.Months) != 0 {
		t.Errorf("expected empty aggregate, got %+v", agg)
	}
}

func TestAggregateByUser_CorruptDate(t *testing.T) {
	bad := record(9, "Math", time.January, 1, 1)
	bad.DateOfQuiz = time.Time{}

	_, err := NewAggregationEngine().AggregateByUser([]model.StatsRecord{bad})
	if !errors.Is(err, util.ErrAggregationFailure) {
		t.Fatalf("expected ErrAggregationFailure, got %v", err)
	}
}

func TestAggregateByUser_TotalsInvariantAndIdempotence(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	subjects := []string{"Math", "Physics", "Art", "History"}
	engine := NewAggregationEngine()

	for n := 0; n < 30; n++ {
		var records []model.StatsRecord
		want := 0
		count := rng.Intn(40)
		for i := 0; i < count; i++ {
			total := rng.Intn(6)
			user := 0
			if total > 0 {
				user = rng.Intn(total + 1)
			}
			want += user
			records = append(records, record(uint(i+1), subjects[rng.Intn(len(subjects))], time.Month(rng.Intn(12)+1), user, total))
		}

		first, err := engine.AggregateByUser(records)
		if err != nil {
			t.Fatalf("AggregateByUser: %v", err)
		}
		got := 0
		for _, s := range first.Subjects {
			got += s.Score
			if s.Total > 0 && (s.Average < 0 || s.Average > 1) {
				t.Fatalf("average out of bounds: %+v", s)
			}
		}
		if got != want {
			t.Fatalf("expected score sum %d, got %d", want, got)
		}

		second, _ := engine.AggregateByUser(records)
		if !reflect.DeepEqual(first, second) {
			t.Fatal("expected identical aggregates for identical input")
		}
	}
}

func TestAggregateByPlatform(t *testing.T) {
	records := []model.StatsRecord{
		record(1, "Math", time.January, 2, 5),
		record(2, "Math", time.February, 9, 10),
		record(3, "Math", time.March, 9, 10),
		record(4, "Physics", time.March, 0, 0),
	}

	agg := NewAggregationEngine().AggregateByPlatform(records)
	math, ok := agg.Subject("Math")
	if !ok {
		t.Fatal("expected Math summary")
	}
	if math.MaxRatio != 0.9 || math.UserCount != 3 {
		t.Errorf("expected maxRatio=0.9 userCount=3, got %+v", math)
	}

	physics, _ := agg.Subject("Physics")
	if physics.UserCount != 1 || physics.MaxRatio != 0 {
		t.Errorf("zero-total attempt should count but not affect ratio, got %+v", physics)
	}
	if agg.Subjects[0].Name != "Math" {
		t.Errorf("expected first-seen order, got %+v", agg.Subjects)
	}

	if !reflect.DeepEqual(agg, NewAggregationEngine().AggregateByPlatform(records)) {
		t.Error("expected platform aggregation to be idempotent")
	}
}
