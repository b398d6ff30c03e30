package model

import "time"

// StatsRecord 统计任务的输入行：得分记录 + 所属科目名称与测验日期
// 任务在请求的数据访问上下文之外执行，因此在派发前就完成关联
type StatsRecord struct {
	ScoreID    uint      `json:"scoreId"`
	UserID     uint      `json:"userId"`
	QuizID     uint      `json:"quizId"`
	Subject    string    `json:"subject"`
	DateOfQuiz time.Time `json:"dateOfQuiz"`
	UserScore  int       `json:"userScore"`
	TotalScore int       `json:"totalScore"`
	CreatedAt  time.Time `json:"createdAt"`
}

type ScoreSnapshot struct {
	ID         uint      `json:"id"`
	Total      int       `json:"total"`
	Correct    int       `json:"correct"`
	DateOfQuiz time.Time `json:"dateOfQuiz"`
}

type SubjectSummary struct {
	Name    string          `json:"name"`
	Scores  []ScoreSnapshot `json:"scores"`
	Total   int             `json:"total"`
	Score   int             `json:"score"`
	Average float64         `json:"average"`
}

type MonthBucket struct {
	Month int `json:"month"` // 1-12
	Count int `json:"count"`
}

type PlatformSubjectSummary struct {
	Name      string  `json:"name"`
	MaxRatio  float64 `json:"maxRatio"`
	UserCount int     `json:"userCount"`
}

// UserAggregate 单个用户的统计结果，按首次出现的顺序排列
type UserAggregate struct {
	Subjects []SubjectSummary `json:"subjects"`
	Months   []MonthBucket    `json:"months"`
}

func (a *UserAggregate) Subject(name string) (SubjectSummary, bool) {
	for _, s := range a.Subjects {
		if s.Name == name {
			return s, true
		}
	}
	return SubjectSummary{}, false
}

func (a *UserAggregate) Month(month int) (MonthBucket, bool) {
	for _, m := range a.Months {
		if m.Month == month {
			return m, true
		}
	}
	return MonthBucket{}, false
}

// PlatformAggregate 全平台统计结果
type PlatformAggregate struct {
	Subjects []PlatformSubjectSummary `json:"subjects"`
}

func (a *PlatformAggregate) Subject(name string) (PlatformSubjectSummary, bool) {
	for _, s := range a.Subjects {
		if s.Name == name {
			return s, true
		}
	}
	return PlatformSubjectSummary{}, false
}

// StatisticsReport 两张统计图的访问地址
type StatisticsReport struct {
	BySubject string `json:"by_subject"`
	ByMonth   string `json:"by_month"`
}

// UserScoreItem 用户历史得分列表项
type UserScoreItem struct {
	ID         uint      `json:"id"`
	Total      int       `json:"total"`
	Correct    int       `json:"correct"`
	DateOfQuiz time.Time `json:"date_of_quiz"`
	SubjectID  uint      `json:"subject_id"`
}
