package model

// swagger:model Subject
type Subject struct {
	BaseModel
	Name        string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Chapters    []Chapter `gorm:"constraint:OnDelete:CASCADE" json:"chapters,omitempty"`
}

func (Subject) TableName() string {
	return "subjects"
}

// swagger:model Chapter
type Chapter struct {
	BaseModel
	SubjectID   uint   `gorm:"index;not null" json:"subjectId"`
	Name        string `gorm:"size:100;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Quizzes     []Quiz `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (Chapter) TableName() string {
	return "chapters"
}
