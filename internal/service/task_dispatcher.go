package service

import (
	"context"
	"errors"
	"fmt"
	"quiz_master_backend/internal/model"
	"quiz_master_backend/internal/util"
	"quiz_master_backend/pkg/logger"
	"quiz_master_backend/pkg/monitoring"
	"runtime/debug"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Job 一次统计任务，Run 在后台 context 中执行，派发后不可取消
type Job struct {
	Kind string
	Run  func(ctx context.Context) (*model.StatisticsReport, error)
}

type WaitOptions struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Timeout         time.Duration
}

type queuedJob struct {
	id  JobHandle
	job Job
}

// TaskDispatcher 固定数量的 worker 从缓冲队列中取任务执行
type TaskDispatcher struct {
	store JobStore
	queue chan queuedJob
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewTaskDispatcher(store JobStore, workers, queueSize int) *TaskDispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	d := &TaskDispatcher{
		store: store,
		queue: make(chan queuedJob, queueSize),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Submit 保存 pending 状态后入队，队列已满或已停止时返回 ErrDispatch
func (d *TaskDispatcher) Submit(ctx context.Context, job Job) (JobHandle, error) {
	if job.Run == nil {
		return "", fmt.Errorf("%w: job %q has no body", util.ErrDispatch, job.Kind)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return "", fmt.Errorf("%w: dispatcher stopped", util.ErrDispatch)
	}

	id := JobHandle(uuid.New().String())
	status := JobStatus{
		ID:          id,
		Kind:        job.Kind,
		State:       JobPending,
		SubmittedAt: time.Now(),
	}
	if err := d.store.Save(ctx, status); err != nil {
		return "", fmt.Errorf("%w: save job: %v", util.ErrDispatch, err)
	}

	select {
	case d.queue <- queuedJob{id: id, job: job}:
		monitoring.StatsQueueDepth.Set(float64(len(d.queue)))
		return id, nil
	default:
		d.finish(status, nil, errors.New("queue full"))
		return "", fmt.Errorf("%w: queue full", util.ErrDispatch)
	}
}

// Poll 读取任务状态，未知任务返回 ErrJobNotFound
func (d *TaskDispatcher) Poll(ctx context.Context, id JobHandle) (JobStatus, error) {
	return d.store.Get(ctx, id)
}

var errJobPending = errors.New("job pending")

// Wait 以指数退避轮询直到任务结束或超时
func (d *TaskDispatcher) Wait(ctx context.Context, id JobHandle, opts WaitOptions) (*model.StatisticsReport, error) {
	b := backoff.NewExponentialBackOff()
	if opts.InitialInterval > 0 {
		b.InitialInterval = opts.InitialInterval
	}
	if opts.MaxInterval > 0 {
		b.MaxInterval = opts.MaxInterval
	}
	b.MaxElapsedTime = opts.Timeout
	if b.MaxElapsedTime <= 0 {
		b.MaxElapsedTime = 30 * time.Second
	}

	var result *model.StatisticsReport
	err := backoff.Retry(func() error {
		status, err := d.Poll(ctx, id)
		if err != nil {
			return backoff.Permanent(err)
		}
		switch status.State {
		case JobCompleted:
			result = status.Result
			return nil
		case JobFailed:
			return backoff.Permanent(fmt.Errorf("%w: %s", util.ErrJobFailed, status.Error))
		default:
			return errJobPending
		}
	}, backoff.WithContext(b, ctx))

	switch {
	case err == nil:
		return result, nil
	case errors.Is(err, errJobPending), errors.Is(err, context.DeadlineExceeded):
		return nil, fmt.Errorf("%w: %s", util.ErrWaitTimeout, id)
	default:
		return nil, err
	}
}

// Shutdown 停止接收任务并等待队列中的任务执行完
func (d *TaskDispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *TaskDispatcher) worker() {
	defer d.wg.Done()
	for q := range d.queue {
		monitoring.StatsQueueDepth.Set(float64(len(d.queue)))
		d.run(q)
	}
}

func (d *TaskDispatcher) run(q queuedJob) {
	start := time.Now()
	result, err := d.execute(q.job)
	monitoring.StatsJobDuration.WithLabelValues(q.job.Kind).Observe(time.Since(start).Seconds())

	d.finish(JobStatus{ID: q.id, Kind: q.job.Kind}, result, err)
}

// execute 捕获任务中的 panic，转为失败结果
func (d *TaskDispatcher) execute(job Job) (result *model.StatisticsReport, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Error("Statistics job panicked",
				zap.String("kind", job.Kind),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return job.Run(context.Background())
}

func (d *TaskDispatcher) finish(status JobStatus, result *model.StatisticsReport, err error) {
	now := time.Now()
	status.FinishedAt = &now
	if err != nil {
		status.State = JobFailed
		status.Error = err.Error()
	} else {
		status.State = JobCompleted
		status.Result = result
	}
	// 保留提交时间
	if prev, getErr := d.store.Get(context.Background(), status.ID); getErr == nil {
		status.SubmittedAt = prev.SubmittedAt
	}

	monitoring.StatsJobCounter.WithLabelValues(status.Kind, string(status.State)).Inc()
	if err := d.store.Finish(context.Background(), status); err != nil {
		logger.Log.Error("Failed to store job result",
			zap.String("job", string(status.ID)),
			zap.Error(err))
	}
}
