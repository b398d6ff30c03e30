package service

import (
	"context"
	"errors"
	"fmt"
	"quiz_master_backend/internal/model"
	"quiz_master_backend/internal/util"
	"quiz_master_backend/pkg/logger"
	"quiz_master_backend/pkg/tracing"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	JobKindUserStatistics     = "user_statistics"
	JobKindPlatformStatistics = "platform_statistics"
)

type UserFinder interface {
	FindByID(ctx context.Context, id uint) (*model.User, error)
}

type StatsRecordSource interface {
	ListStatsRecordsByUser(ctx context.Context, userID uint) ([]model.StatsRecord, error)
	ListAllStatsRecords(ctx context.Context) ([]model.StatsRecord, error)
}

type JobDispatcher interface {
	Submit(ctx context.Context, job Job) (JobHandle, error)
	Poll(ctx context.Context, id JobHandle) (JobStatus, error)
	Wait(ctx context.Context, id JobHandle, opts WaitOptions) (*model.StatisticsReport, error)
}

// StatisticsOptions 可在配置热更新时替换
type StatisticsOptions struct {
	Wait          WaitOptions
	AttemptPolicy string
}

// StatisticsService 读取得分记录，派发聚合与绘图任务
type StatisticsService struct {
	Users      UserFinder
	Records    StatsRecordSource
	Dispatcher JobDispatcher
	Renderer   ReportRenderer
	Aggregator *AggregationEngine
	Months     MonthNames

	now  func() time.Time
	mu   sync.RWMutex
	opts StatisticsOptions
}

func NewStatisticsService(
	users UserFinder,
	records StatsRecordSource,
	dispatcher JobDispatcher,
	renderer ReportRenderer,
	months MonthNames,
	opts StatisticsOptions,
) *StatisticsService {
	return &StatisticsService{
		Users:      users,
		Records:    records,
		Dispatcher: dispatcher,
		Renderer:   renderer,
		Aggregator: NewAggregationEngine(),
		Months:     months,
		now:        time.Now,
		opts:       opts,
	}
}

func (s *StatisticsService) Options() StatisticsOptions {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opts
}

func (s *StatisticsService) UpdateOptions(opts StatisticsOptions) {
	s.mu.Lock()
	s.opts = opts
	s.mu.Unlock()
	logger.Log.Info("Statistics options updated",
		zap.String("attemptPolicy", opts.AttemptPolicy),
		zap.Duration("waitTimeout", opts.Wait.Timeout))
}

// RequestUserStatistics 在请求上下文中读取记录，派发后立即返回任务句柄
func (s *StatisticsService) RequestUserStatistics(ctx context.Context, userID uint) (JobHandle, error) {
	ctx, span := tracing.Tracer.Start(ctx, "StatisticsService.RequestUserStatistics",
		trace.WithAttributes(attribute.Int64("user.id", int64(userID))))
	defer span.End()

	user, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}

	records, err := s.Records.ListStatsRecordsByUser(ctx, user.ID)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	records = applyAttemptPolicy(records, s.Options().AttemptPolicy)

	subjectFile := util.UserSubjectReportName(user.Email)
	monthFile := util.UserMonthReportName(user.Email)

	id, err := s.Dispatcher.Submit(ctx, Job{
		Kind: JobKindUserStatistics,
		Run: func(ctx context.Context) (*model.StatisticsReport, error) {
			agg, err := s.Aggregator.AggregateByUser(records)
			if err != nil {
				return nil, err
			}
			return s.renderPair(ctx,
				userSubjectSeries(agg), subjectFile,
				userMonthSeries(agg, s.Months), monthFile)
		},
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	span.SetAttributes(attribute.String("job.id", string(id)))
	return id, nil
}

func (s *StatisticsService) RequestPlatformStatistics(ctx context.Context) (JobHandle, error) {
	ctx, span := tracing.Tracer.Start(ctx, "StatisticsService.RequestPlatformStatistics",
		trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	records, err := s.Records.ListAllStatsRecords(ctx)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	records = applyAttemptPolicy(records, s.Options().AttemptPolicy)

	id, err := s.Dispatcher.Submit(ctx, Job{
		Kind: JobKindPlatformStatistics,
		Run: func(ctx context.Context) (*model.StatisticsReport, error) {
			agg := s.Aggregator.AggregateByPlatform(records)
			return s.renderPair(ctx,
				platformSubjectSeries(agg), util.AdminSubjectReport,
				platformMonthSeries(agg, s.Months, s.now()), util.AdminMonthReport)
		},
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	span.SetAttributes(attribute.String("job.id", string(id)))
	return id, nil
}

// GetUserStatistics 派发并等待结果，等待时间有上限
func (s *StatisticsService) GetUserStatistics(ctx context.Context, userID uint) (*model.StatisticsReport, error) {
	id, err := s.RequestUserStatistics(ctx, userID)
	if err != nil {
		return nil, s.unavailable(err, "")
	}
	report, err := s.Dispatcher.Wait(ctx, id, s.Options().Wait)
	if err != nil {
		return nil, s.unavailable(err, id)
	}
	return report, nil
}

func (s *StatisticsService) GetPlatformStatistics(ctx context.Context) (*model.StatisticsReport, error) {
	id, err := s.RequestPlatformStatistics(ctx)
	if err != nil {
		return nil, s.unavailable(err, "")
	}
	report, err := s.Dispatcher.Wait(ctx, id, s.Options().Wait)
	if err != nil {
		return nil, s.unavailable(err, id)
	}
	return report, nil
}

// PollStatistics 返回给客户端的状态不包含内部错误信息
func (s *StatisticsService) PollStatistics(ctx context.Context, id JobHandle) (JobStatus, error) {
	status, err := s.Dispatcher.Poll(ctx, id)
	if err != nil {
		return JobStatus{}, err
	}
	if status.State == JobFailed {
		logger.Log.Warn("Statistics job failed",
			zap.String("job", string(id)),
			zap.String("kind", status.Kind),
			zap.String("error", status.Error))
		status.Error = util.ErrStatisticsUnavailable.Error()
	}
	return status, nil
}

// 业务错误原样返回，其余统一为 ErrStatisticsUnavailable，细节只写日志
func (s *StatisticsService) unavailable(err error, id JobHandle) error {
	if errors.Is(err, util.ErrNotFound) && !errors.Is(err, util.ErrJobNotFound) {
		return err
	}
	logger.Log.Error("Statistics unavailable",
		zap.String("job", string(id)),
		zap.Error(err))
	return util.ErrStatisticsUnavailable
}

func (s *StatisticsService) renderPair(ctx context.Context, subject ReportSeries, subjectFile string, month ReportSeries, monthFile string) (*model.StatisticsReport, error) {
	report := &model.StatisticsReport{}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		url, err := s.Renderer.Render(ctx, BarSeries, subject, subjectFile)
		report.BySubject = url
		return err
	})
	g.Go(func() error {
		url, err := s.Renderer.Render(ctx, PieSeries, month, monthFile)
		report.ByMonth = url
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("render reports: %w", err)
	}
	return report, nil
}

type attemptKey struct {
	userID uint
	quizID uint
}

// applyAttemptPolicy 同一用户对同一测验多次作答时选择参与统计的记录
// latest 取最后一次，best 取得分率最高的一次（相同取较晚的），结果保持原顺序
func applyAttemptPolicy(records []model.StatsRecord, policy string) []model.StatsRecord {
	if policy != util.AttemptPolicyLatest && policy != util.AttemptPolicyBest {
		return records
	}

	chosen := make(map[attemptKey]int, len(records))
	for i, r := range records {
		k := attemptKey{r.UserID, r.QuizID}
		j, ok := chosen[k]
		if !ok {
			chosen[k] = i
			continue
		}
		prev := records[j]
		if policy == util.AttemptPolicyBest {
			a, b := attemptRatio(r), attemptRatio(prev)
			if a > b || (a == b && !attemptBefore(r, prev)) {
				chosen[k] = i
			}
			continue
		}
		if !attemptBefore(r, prev) {
			chosen[k] = i
		}
	}

	out := make([]model.StatsRecord, 0, len(chosen))
	for i, r := range records {
		if chosen[attemptKey{r.UserID, r.QuizID}] == i {
			out = append(out, r)
		}
	}
	return out
}

func attemptRatio(r model.StatsRecord) float64 {
	if r.TotalScore == 0 {
		return 0
	}
	return float64(r.UserScore) / float64(r.TotalScore)
}

func attemptBefore(a, b model.StatsRecord) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ScoreID < b.ScoreID
}
