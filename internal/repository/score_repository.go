package repository

import (
	"context"
	"quiz_master_backend/internal/model"

	"gorm.io/gorm"
)

// ScoreRepository 得分记录只提供创建和查询，记录写入后不可修改
type ScoreRepository struct {
	DB *gorm.DB
}

func NewScoreRepository(db *gorm.DB) *ScoreRepository {
	return &ScoreRepository{DB: db}
}

func (r *ScoreRepository) Create(ctx context.Context, record *model.ScoreRecord) error {
	return r.DB.WithContext(ctx).Create(record).Error
}

// ListByUser 用户的历史得分
func (r *ScoreRepository) ListByUser(ctx context.Context, userID uint) ([]model.UserScoreItem, error) {
	var items []model.UserScoreItem
	err := r.DB.WithContext(ctx).
		Table("score_records s").
		Select("s.id, s.total_score AS total, s.user_score AS correct, q.date_of_quiz, q.subject_id").
		Joins("JOIN quizzes q ON q.id = s.quiz_id").
		Where("s.user_id = ?", userID).
		Order("s.id asc").
		Scan(&items).Error
	return items, err
}

// AttemptedQuizIDs 用户作答过的测验
func (r *ScoreRepository) AttemptedQuizIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).
		Model(&model.ScoreRecord{}).
		Where("user_id = ?", userID).
		Distinct("quiz_id").
		Pluck("quiz_id", &ids).Error
	return ids, err
}

// ListStatsRecordsByUser 用户的得分记录，附带科目名称与测验日期
func (r *ScoreRepository) ListStatsRecordsByUser(ctx context.Context, userID uint) ([]model.StatsRecord, error) {
	var records []model.StatsRecord
	err := r.statsQuery(ctx).Where("s.user_id = ?", userID).Order("s.id asc").Scan(&records).Error
	return records, err
}

// ListAllStatsRecords 全平台得分记录
func (r *ScoreRepository) ListAllStatsRecords(ctx context.Context) ([]model.StatsRecord, error) {
	var records []model.StatsRecord
	err := r.statsQuery(ctx).Order("s.id asc").Scan(&records).Error
	return records, err
}

func (r *ScoreRepository) statsQuery(ctx context.Context) *gorm.DB {
	return r.DB.WithContext(ctx).
		Table("score_records s").
		Select("s.id AS score_id, s.user_id, s.quiz_id, sub.name AS subject, q.date_of_quiz, " +
			"s.user_score, s.total_score, s.created_at").
		Joins("JOIN quizzes q ON q.id = s.quiz_id").
		Joins("JOIN subjects sub ON sub.id = q.subject_id")
}
