package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"quiz_master_backend/internal/model"
	"quiz_master_backend/internal/util"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

type JobState string

const (
	JobPending   JobState = "pending"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
)

func (s JobState) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

type JobHandle string

// JobStatus 任务当前状态，完成后不再变化
type JobStatus struct {
	ID          JobHandle               `json:"id"`
	Kind        string                  `json:"kind"`
	State       JobState                `json:"state"`
	Result      *model.StatisticsReport `json:"result,omitempty"`
	Error       string                  `json:"error,omitempty"`
	SubmittedAt time.Time               `json:"submittedAt"`
	FinishedAt  *time.Time              `json:"finishedAt,omitempty"`
}

// JobStore 保存任务状态
// Finish 对已经处于终态的任务不做任何修改
type JobStore interface {
	Save(ctx context.Context, status JobStatus) error
	Finish(ctx context.Context, status JobStatus) error
	Get(ctx context.Context, id JobHandle) (JobStatus, error)
}

// MemoryJobStore 单实例部署使用的进程内存储
type MemoryJobStore struct {
	mu   sync.Mutex
	jobs map[JobHandle]JobStatus
	ttl  time.Duration
	now  func() time.Time
}

func NewMemoryJobStore(ttl time.Duration) *MemoryJobStore {
	return &MemoryJobStore{
		jobs: make(map[JobHandle]JobStatus),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (s *MemoryJobStore) Save(ctx context.Context, status JobStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep()
	s.jobs[status.ID] = status
	return nil
}

func (s *MemoryJobStore) Finish(ctx context.Context, status JobStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.jobs[status.ID]; ok && cur.State.Terminal() {
		return nil
	}
	s.jobs[status.ID] = status
	return nil
}

func (s *MemoryJobStore) Get(ctx context.Context, id JobHandle) (JobStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, ok := s.jobs[id]
	if !ok || s.expired(status) {
		return JobStatus{}, util.ErrJobNotFound
	}
	return status, nil
}

// 只清理已结束且超过 ttl 的任务
func (s *MemoryJobStore) sweep() {
	for id, status := range s.jobs {
		if s.expired(status) {
			delete(s.jobs, id)
		}
	}
}

func (s *MemoryJobStore) expired(status JobStatus) bool {
	if s.ttl <= 0 || status.FinishedAt == nil {
		return false
	}
	return s.now().Sub(*status.FinishedAt) > s.ttl
}

const jobKeyPrefix = "quiz_master:stats_job:"

// RedisJobStore 多副本部署时共享任务状态
type RedisJobStore struct {
	Redis *redis.Client
	TTL   time.Duration
}

func NewRedisJobStore(rdb *redis.Client, ttl time.Duration) *RedisJobStore {
	return &RedisJobStore{Redis: rdb, TTL: ttl}
}

// Save 未结束的任务不设置过期时间，TTL 从 Finish 开始计算
func (s *RedisJobStore) Save(ctx context.Context, status JobStatus) error {
	val, err := json.Marshal(status)
	if err != nil {
		return err
	}
	var ttl time.Duration
	if status.State.Terminal() {
		ttl = s.TTL
	}
	return s.Redis.Set(ctx, jobKeyPrefix+string(status.ID), val, ttl).Err()
}

func (s *RedisJobStore) Finish(ctx context.Context, status JobStatus) error {
	key := jobKeyPrefix + string(status.ID)
	val, err := json.Marshal(status)
	if err != nil {
		return err
	}

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil && err != redis.Nil {
			return err
		}
		if err == nil {
			var cur JobStatus
			if json.Unmarshal(raw, &cur) == nil && cur.State.Terminal() {
				return nil
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, val, s.TTL)
			return nil
		})
		return err
	}

	// 乐观锁冲突时重试
	for i := 0; i < 3; i++ {
		err = s.Redis.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("finish job %s: %w", status.ID, err)
}

func (s *RedisJobStore) Get(ctx context.Context, id JobHandle) (JobStatus, error) {
	raw, err := s.Redis.Get(ctx, jobKeyPrefix+string(id)).Bytes()
	if err == redis.Nil {
		return JobStatus{}, util.ErrJobNotFound
	} else if err != nil {
		return JobStatus{}, err
	}

	var status JobStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return JobStatus{}, err
	}
	return status, nil
}
