package store

import (
	"AIBoss/backend/go/internal/metrics"
	"AIBoss/backend/go/internal/models"
	"AIBoss/backend/go/pkg/logger"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

const taskCacheKeyPrefix = "aiboss:task:"

// CachedTaskStore 在 Redis 中缓存终态任务的读取结果。
// 终态任务不再变化，因此只缓存 completed / failed 的任务，processing 任务总是读底层存储。
// Redis 出错时记录日志并退回底层存储，缓存不影响结果。
type CachedTaskStore struct {
	TaskStore
	client *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

// NewCachedTaskStore 用 Redis 包装底层存储。
func NewCachedTaskStore(inner TaskStore, client *redis.Client, ttl time.Duration, log *logger.Logger) *CachedTaskStore {
	return &CachedTaskStore{
		TaskStore: inner,
		client:    client,
		ttl:       ttl,
		logger:    log,
	}
}

func cacheKey(id string) string {
	return taskCacheKeyPrefix + id
}

// Update 写入底层存储后刷新缓存。
func (s *CachedTaskStore) Update(ctx context.Context, task *models.Task) error {
	if err := s.TaskStore.Update(ctx, task); err != nil {
		return err
	}
	if task.Status.Terminal() {
		s.put(ctx, task)
	} else if err := s.client.Del(ctx, cacheKey(task.ID)).Err(); err != nil {
		s.warn(err, task.ID, "Failed to evict task from cache")
	}
	return nil
}

// GetByID 先查 Redis，未命中时读底层存储并缓存终态任务。
func (s *CachedTaskStore) GetByID(ctx context.Context, id string) (*models.Task, error) {
	data, err := s.client.Get(ctx, cacheKey(id)).Bytes()
	switch {
	case err == nil:
		var task models.Task
		jsonErr := json.Unmarshal(data, &task)
		if jsonErr == nil {
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			return &task, nil
		}
		s.warn(jsonErr, id, "Discarding undecodable cached task")
	case !errors.Is(err, redis.Nil):
		s.warn(err, id, "Failed to read task from cache")
	}
	metrics.CacheLookups.WithLabelValues("miss").Inc()

	task, err := s.TaskStore.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.Status.Terminal() {
		s.put(ctx, task)
	}
	return task, nil
}

func (s *CachedTaskStore) put(ctx context.Context, task *models.Task) {
	data, err := json.Marshal(task)
	if err != nil {
		s.warn(err, task.ID, "Failed to encode task for cache")
		return
	}
	if err := s.client.Set(ctx, cacheKey(task.ID), data, s.ttl).Err(); err != nil {
		s.warn(err, task.ID, "Failed to write task to cache")
	}
}

func (s *CachedTaskStore) warn(err error, taskID, msg string) {
	s.logger.WithError(models.NewErrorInfo(err, models.ErrorTypeStorage)).
		WithPayload(map[string]interface{}{"task_id": taskID}).
		Warn(msg)
}
