package repository

import (
	"context"
	"quiz_master_backend/internal/model"
	"quiz_master_backend/internal/util"

	"gorm.io/gorm"
)

type QuizRepository struct {
	DB *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: db}
}

// Create 测验、题目和选项在同一个事务里写入
// 正确答案以选项下标保存，不需要在选项落库后再回写
func (r *QuizRepository) Create(ctx context.Context, quiz *model.Quiz) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(quiz).Error
	})
}

// FindWithQuestions 加载测验及其题目、选项和所属科目、章节
func (r *QuizRepository) FindWithQuestions(ctx context.Context, id uint) (*model.Quiz, error) {
	var quiz model.Quiz
	if err := r.withQuestions(ctx).First(&quiz, id).Error; err != nil {
		return nil, notFound(err, util.ErrQuizNotFound)
	}
	return &quiz, nil
}

// List 所有测验，按日期和 ID 排序
func (r *QuizRepository) List(ctx context.Context) ([]model.Quiz, error) {
	var quizzes []model.Quiz
	err := r.withQuestions(ctx).Order("date_of_quiz asc, id asc").Find(&quizzes).Error
	return quizzes, err
}

func (r *QuizRepository) withQuestions(ctx context.Context) *gorm.DB {
	return r.DB.WithContext(ctx).
		Preload("Subject").
		Preload("Chapter").
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("id asc")
		}).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("position asc")
		})
}

func (r *QuizRepository) Delete(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Quiz{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return util.ErrQuizNotFound
		}
		return deleteQuizzes(tx, []uint{id})
	})
}

// deleteQuizzes 按依赖顺序删除：选项 -> 题目 -> 得分记录 -> 测验
func deleteQuizzes(tx *gorm.DB, quizIDs []uint) error {
	if len(quizIDs) == 0 {
		return nil
	}

	var questionIDs []uint
	if err := tx.Model(&model.Question{}).Where("quiz_id IN ?", quizIDs).Pluck("id", &questionIDs).Error; err != nil {
		return err
	}
	if len(questionIDs) > 0 {
		if err := tx.Where("question_id IN ?", questionIDs).Delete(&model.Option{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id IN ?", questionIDs).Delete(&model.Question{}).Error; err != nil {
			return err
		}
	}
	if err := tx.Where("quiz_id IN ?", quizIDs).Delete(&model.ScoreRecord{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", quizIDs).Delete(&model.Quiz{}).Error
}
