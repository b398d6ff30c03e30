package service

import (
	"context"
	"quiz_master_backend/pkg/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type platformStatsRequester interface {
	RequestPlatformStatistics(ctx context.Context) (JobHandle, error)
}

// StatsScheduler 按 cron 表达式定期派发全平台统计，不等待结果
type StatsScheduler struct {
	cron  *cron.Cron
	stats platformStatsRequester
}

func NewStatsScheduler(stats platformStatsRequester) *StatsScheduler {
	return &StatsScheduler{
		cron:  cron.New(),
		stats: stats,
	}
}

// Start spec 为空时不启用
func (s *StatsScheduler) Start(spec string) error {
	if spec == "" {
		logger.Log.Info("Platform statistics schedule disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(spec, s.Trigger); err != nil {
		return err
	}
	s.cron.Start()
	logger.Log.Info("Platform statistics scheduled", zap.String("spec", spec))
	return nil
}

// Trigger 派发一次全平台统计
func (s *StatsScheduler) Trigger() {
	id, err := s.stats.RequestPlatformStatistics(context.Background())
	if err != nil {
		logger.Log.Error("Scheduled platform statistics failed", zap.Error(err))
		return
	}
	logger.Log.Info("Scheduled platform statistics submitted", zap.String("job", string(id)))
}

func (s *StatsScheduler) Stop() context.Context {
	return s.cron.Stop()
}
