package store

import (
	"AIBoss/backend/go/internal/models"
	"AIBoss/backend/go/pkg/logger"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var base = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func newSQLiteStore(t *testing.T) TaskStore {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	s := NewGormTaskStore(db)
	require.NoError(t, s.AutoMigrate())
	return s
}

func newCachedStore(t *testing.T) TaskStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCachedTaskStore(NewMemoryTaskStore(), client, time.Minute, logger.Discard())
}

func processingTask(id, session string, createdAt time.Time) *models.Task {
	return &models.Task{
		ID:        id,
		AgentID:   "copywriter",
		SessionID: session,
		InputData: datatypes.JSON(`{"product_name":"茶"}`),
		Status:    models.TaskStatusProcessing,
		CreatedAt: createdAt,
	}
}

func complete(t *models.Task, ms int64) {
	at := t.CreatedAt.Add(time.Duration(ms) * time.Millisecond)
	t.Status = models.TaskStatusCompleted
	t.OutputData = datatypes.JSON(`{"copies":[]}`)
	t.CompletedAt = &at
	t.ExecutionTime = &ms
}

func fail(t *models.Task, msg string) {
	at := t.CreatedAt.Add(time.Second)
	t.Status = models.TaskStatusFailed
	t.ErrorMessage = &msg
	t.CompletedAt = &at
}

func TestTaskStores(t *testing.T) {
	stores := map[string]func(t *testing.T) TaskStore{
		"gorm":   newSQLiteStore,
		"memory": func(t *testing.T) TaskStore { return NewMemoryTaskStore() },
		"cached": newCachedStore,
	}
	for name, mk := range stores {
		t.Run(name, func(t *testing.T) {
			t.Run("lifecycle", func(t *testing.T) { testLifecycle(t, mk(t)) })
			t.Run("list", func(t *testing.T) { testList(t, mk(t)) })
			t.Run("stats", func(t *testing.T) { testStats(t, mk(t)) })
		})
	}
}

func testLifecycle(t *testing.T, s TaskStore) {
	ctx := context.Background()
	task := processingTask("t-1", "s-1", base)
	require.NoError(t, s.Create(ctx, task))

	got, err := s.GetByID(ctx, "t-1")
	require.NoError(t, err)
	require.Equal(t, models.TaskStatusProcessing, got.Status)
	require.JSONEq(t, `{"product_name":"茶"}`, string(got.InputData))
	require.Nil(t, got.CompletedAt)

	complete(task, 1500)
	require.NoError(t, s.Update(ctx, task))

	got, err = s.GetByID(ctx, "t-1")
	require.NoError(t, err)
	require.Equal(t, models.TaskStatusCompleted, got.Status)
	require.JSONEq(t, `{"copies":[]}`, string(got.OutputData))
	require.NotNil(t, got.ExecutionTime)
	require.EqualValues(t, 1500, *got.ExecutionTime)
	require.NotNil(t, got.CompletedAt)
	require.True(t, got.CompletedAt.Equal(base.Add(1500*time.Millisecond)))
	require.Nil(t, got.ErrorMessage)

	_, err = s.GetByID(ctx, "missing")
	require.ErrorIs(t, err, ErrTaskNotFound)
	require.ErrorIs(t, s.Update(ctx, processingTask("missing", "s-1", base)), ErrTaskNotFound)
}

func testList(t *testing.T, s TaskStore) {
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Create(ctx, processingTask(fmt.Sprintf("t-%d", i), "s-1", base.Add(time.Duration(i)*time.Minute))))
	}
	require.NoError(t, s.Create(ctx, processingTask("other", "s-2", base.Add(time.Hour))))

	tasks, err := s.ListBySession(ctx, "s-1", 3)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	require.Equal(t, "t-4", tasks[0].ID)
	require.Equal(t, "t-3", tasks[1].ID)
	require.Equal(t, "t-2", tasks[2].ID)

	tasks, err = s.ListBySession(ctx, "nobody", 20)
	require.NoError(t, err)
	require.Empty(t, tasks)
}

func testStats(t *testing.T, s TaskStore) {
	ctx := context.Background()

	stats, err := s.Stats(ctx, "s-1")
	require.NoError(t, err)
	require.Equal(t, models.TaskStats{}, *stats)

	a := processingTask("a", "s-1", base)
	b := processingTask("b", "s-1", base.Add(time.Minute))
	c := processingTask("c", "s-1", base.Add(2*time.Minute))
	d := processingTask("d", "s-1", base.Add(3*time.Minute))
	for _, task := range []*models.Task{a, b, c, d} {
		require.NoError(t, s.Create(ctx, task))
	}
	complete(a, 1000)
	complete(b, 3000)
	fail(c, "LLM call failed after 2 attempts: boom")
	for _, task := range []*models.Task{a, b, c} {
		require.NoError(t, s.Update(ctx, task))
	}

	stats, err = s.Stats(ctx, "s-1")
	require.NoError(t, err)
	require.EqualValues(t, 4, stats.Total)
	require.EqualValues(t, 2, stats.Completed)
	require.EqualValues(t, 1, stats.Failed)
	require.EqualValues(t, 1, stats.Pending)
	// 失败任务没有耗时，不参与平均值
	require.InDelta(t, 2000, stats.AvgExecutionTime, 0.001)
}

func TestCachedStoreServesTerminalTasksFromRedis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	inner := NewMemoryTaskStore()
	s := NewCachedTaskStore(inner, client, time.Minute, logger.Discard())

	task := processingTask("t-1", "s-1", base)
	require.NoError(t, s.Create(ctx, task))

	_, err := s.GetByID(ctx, "t-1")
	require.NoError(t, err)
	require.False(t, mr.Exists(cacheKey("t-1")), "processing tasks are not cached")

	fail(task, "LLM returned empty response")
	require.NoError(t, s.Update(ctx, task))
	require.True(t, mr.Exists(cacheKey("t-1")))
	require.Equal(t, time.Minute, mr.TTL(cacheKey("t-1")))

	// 缓存命中时不再读取底层存储
	inner.tasks["t-1"].ErrorMessage = nil
	got, err := s.GetByID(ctx, "t-1")
	require.NoError(t, err)
	require.NotNil(t, got.ErrorMessage)
	require.Equal(t, "LLM returned empty response", *got.ErrorMessage)
}

func TestCachedStoreFallsBackWhenRedisIsDown(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()

	s := NewCachedTaskStore(NewMemoryTaskStore(), client, time.Minute, logger.Discard())
	task := processingTask("t-1", "s-1", base)
	require.NoError(t, s.Create(ctx, task))
	complete(task, 10)

	mr.Close()
	require.NoError(t, s.Update(ctx, task))
	got, err := s.GetByID(ctx, "t-1")
	require.NoError(t, err)
	require.Equal(t, models.TaskStatusCompleted, got.Status)
}
