package service

import (
	"fmt"
	"quiz_master_backend/internal/model"
	"quiz_master_backend/internal/util"
)

// AggregationEngine 对得分记录做分组统计，纯函数，相同输入得到相同结果
type AggregationEngine struct{}

func NewAggregationEngine() *AggregationEngine {
	return &AggregationEngine{}
}

// AggregateByUser 按科目和月份分组
// 科目与月份都保持首次出现的顺序；月份只取 1-12，不区分年份
func (e *AggregationEngine) AggregateByUser(records []model.StatsRecord) (model.UserAggregate, error) {
	agg := model.UserAggregate{
		Subjects: []model.SubjectSummary{},
		Months:   []model.MonthBucket{},
	}
	subjectIdx := make(map[string]int)
	monthIdx := make(map[int]int)

	for _, r := range records {
		if r.DateOfQuiz.IsZero() {
			return model.UserAggregate{}, fmt.Errorf("%w: score %d has no quiz date", util.ErrAggregationFailure, r.ScoreID)
		}

		i, ok := subjectIdx[r.Subject]
		if !ok {
			i = len(agg.Subjects)
			subjectIdx[r.Subject] = i
			agg.Subjects = append(agg.Subjects, model.SubjectSummary{Name: r.Subject, Scores: []model.ScoreSnapshot{}})
		}
		s := &agg.Subjects[i]
		s.Scores = append(s.Scores, model.ScoreSnapshot{
			ID:         r.ScoreID,
			Total:      r.TotalScore,
			Correct:    r.UserScore,
			DateOfQuiz: r.DateOfQuiz,
		})
		s.Total += r.TotalScore
		s.Score += r.UserScore

		month := int(r.DateOfQuiz.Month())
		j, ok := monthIdx[month]
		if !ok {
			j = len(agg.Months)
			monthIdx[month] = j
			agg.Months = append(agg.Months, model.MonthBucket{Month: month})
		}
		agg.Months[j].Count++
	}

	for i := range agg.Subjects {
		s := &agg.Subjects[i]
		// 只有题目数为 0 的测验才会出现 total == 0
		if s.Total == 0 {
			s.Average = 0
			continue
		}
		s.Average = float64(s.Score) / float64(s.Total)
	}

	return agg, nil
}

// AggregateByPlatform 全平台按科目统计单次作答的最高得分率和作答次数
func (e *AggregationEngine) AggregateByPlatform(records []model.StatsRecord) model.PlatformAggregate {
	agg := model.PlatformAggregate{Subjects: []model.PlatformSubjectSummary{}}
	subjectIdx := make(map[string]int)

	for _, r := range records {
		i, ok := subjectIdx[r.Subject]
		if !ok {
			i = len(agg.Subjects)
			subjectIdx[r.Subject] = i
			agg.Subjects = append(agg.Subjects, model.PlatformSubjectSummary{Name: r.Subject})
		}
		s := &agg.Subjects[i]
		s.UserCount++

		if r.TotalScore == 0 {
			continue
		}
		if ratio := float64(r.UserScore) / float64(r.TotalScore); ratio > s.MaxRatio {
			s.MaxRatio = ratio
		}
	}

	return agg
}
