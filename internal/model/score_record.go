package model

import "gorm.io/datatypes"

// ScoreRecord 一次作答的得分记录，创建后不再修改
type ScoreRecord struct {
	RecordModel
	UserID     uint           `gorm:"index;not null" json:"userId"`
	QuizID     uint           `gorm:"index;not null" json:"quizId"`
	UserScore  int            `gorm:"not null" json:"userScore"`
	TotalScore int            `gorm:"not null" json:"totalScore"`
	Answers    datatypes.JSON `json:"answers,omitempty"` // 提交答案快照
	Quiz       *Quiz          `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (ScoreRecord) TableName() string {
	return "score_records"
}
