package model

import (
	"sort"
	"time"
)

// swagger:model Quiz
type Quiz struct {
	BaseModel
	SubjectID  uint       `gorm:"index;not null" json:"subjectId"`
	ChapterID  uint       `gorm:"index;not null" json:"chapterId"`
	Name       string     `gorm:"size:200;not null" json:"name"`
	Remarks    string     `gorm:"type:text" json:"remarks"`
	DateOfQuiz time.Time  `gorm:"type:date;not null" json:"dateOfQuiz"`
	Hours      int        `gorm:"default:0" json:"hours"`
	Minutes    int        `gorm:"default:0" json:"minutes"`
	Subject    *Subject   `gorm:"constraint:OnDelete:CASCADE" json:"subject,omitempty"`
	Chapter    *Chapter   `json:"chapter,omitempty"`
	Questions  []Question `gorm:"constraint:OnDelete:CASCADE" json:"questions"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// Duration 作答时长
func (q *Quiz) Duration() time.Duration {
	return time.Duration(q.Hours)*time.Hour + time.Duration(q.Minutes)*time.Minute
}

// swagger:model Question
type Question struct {
	BaseModel
	QuizID    uint   `gorm:"index;not null" json:"quizId"`
	Statement string `gorm:"type:text;not null" json:"statement"`
	// 正确选项在 Options（按 Position 排序）中的下标，从 0 开始
	CorrectIndex int      `gorm:"not null;default:0" json:"-"`
	Options      []Option `gorm:"constraint:OnDelete:CASCADE" json:"options"`
}

func (Question) TableName() string {
	return "questions"
}

// CorrectOptionID 返回正确选项的 ID，下标越界或选项未加载时返回 false
func (q *Question) CorrectOptionID() (uint, bool) {
	opts := make([]Option, len(q.Options))
	copy(opts, q.Options)
	sort.SliceStable(opts, func(i, j int) bool { return opts[i].Position < opts[j].Position })

	if q.CorrectIndex < 0 || q.CorrectIndex >= len(opts) {
		return 0, false
	}
	return opts[q.CorrectIndex].ID, true
}

// swagger:model Option
type Option struct {
	ID         uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	QuestionID uint   `gorm:"index;not null" json:"-"`
	Position   int    `gorm:"not null;default:0" json:"-"`
	Statement  string `gorm:"type:text;not null" json:"statement"`
}

func (Option) TableName() string {
	return "options"
}
