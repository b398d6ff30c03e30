package repository

import (
	"context"
	"quiz_master_backend/internal/model"
	"quiz_master_backend/internal/util"

	"gorm.io/gorm"
)

type SubjectRepository struct {
	DB *gorm.DB
}

func NewSubjectRepository(db *gorm.DB) *SubjectRepository {
	return &SubjectRepository{DB: db}
}

// Create 科目和章节一起写入
func (r *SubjectRepository) Create(ctx context.Context, subject *model.Subject) error {
	return r.DB.WithContext(ctx).Create(subject).Error
}

func (r *SubjectRepository) FindChapter(ctx context.Context, subjectID, chapterID uint) (*model.Chapter, error) {
	var chapter model.Chapter
	err := r.DB.WithContext(ctx).
		Where("id = ? AND subject_id = ?", chapterID, subjectID).
		First(&chapter).Error
	if err != nil {
		return nil, notFound(err, util.ErrSubjectNotFound)
	}
	return &chapter, nil
}

func (r *SubjectRepository) List(ctx context.Context) ([]model.Subject, error) {
	var subjects []model.Subject
	err := r.DB.WithContext(ctx).Preload("Chapters").Order("id asc").Find(&subjects).Error
	return subjects, err
}

// Delete 级联删除科目下的章节、测验、题目、选项和得分记录
// 不依赖数据库外键，sqlite 未开启外键时行为一致
func (r *SubjectRepository) Delete(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var quizIDs []uint
		if err := tx.Model(&model.Quiz{}).Where("subject_id = ?", id).Pluck("id", &quizIDs).Error; err != nil {
			return err
		}
		if err := deleteQuizzes(tx, quizIDs); err != nil {
			return err
		}
		if err := tx.Where("subject_id = ?", id).Delete(&model.Chapter{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Subject{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return util.ErrSubjectNotFound
		}
		return nil
	})
}
