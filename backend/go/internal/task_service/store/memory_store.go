package store

import (
	"AIBoss/backend/go/internal/models"
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryTaskStore 是进程内的任务存储，storage.driver = memory 时使用。
// 存取的都是深拷贝，调用方修改返回值不会影响存储内容。
type MemoryTaskStore struct {
	tasks map[string]*models.Task
	order []string // 插入顺序，创建时间相同时后插入的排在前面
	mutex sync.RWMutex
}

// NewMemoryTaskStore creates a new MemoryTaskStore.
func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{tasks: make(map[string]*models.Task)}
}

func (m *MemoryTaskStore) Create(_ context.Context, task *models.Task) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, ok := m.tasks[task.ID]; ok {
		return fmt.Errorf("task %s already exists", task.ID)
	}
	m.tasks[task.ID] = task.Clone()
	m.order = append(m.order, task.ID)
	return nil
}

func (m *MemoryTaskStore) Update(_ context.Context, task *models.Task) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	stored, ok := m.tasks[task.ID]
	if !ok {
		return ErrTaskNotFound
	}
	next := task.Clone()
	stored.Status = next.Status
	stored.OutputData = next.OutputData
	stored.ErrorMessage = next.ErrorMessage
	stored.CompletedAt = next.CompletedAt
	stored.ExecutionTime = next.ExecutionTime
	return nil
}

func (m *MemoryTaskStore) GetByID(_ context.Context, id string) (*models.Task, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	task, ok := m.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return task.Clone(), nil
}

func (m *MemoryTaskStore) ListBySession(_ context.Context, sessionID string, limit int) ([]*models.Task, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	var tasks []*models.Task
	for i := len(m.order) - 1; i >= 0; i-- {
		if t := m.tasks[m.order[i]]; t.SessionID == sessionID {
			tasks = append(tasks, t.Clone())
		}
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	if limit > 0 && len(tasks) > limit {
		tasks = tasks[:limit]
	}
	return tasks, nil
}

func (m *MemoryTaskStore) Stats(_ context.Context, sessionID string) (*models.TaskStats, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	var total, completed, failed, timed, sum int64
	for _, t := range m.tasks {
		if t.SessionID != sessionID {
			continue
		}
		total++
		switch t.Status {
		case models.TaskStatusCompleted:
			completed++
			if t.ExecutionTime != nil {
				timed++
				sum += *t.ExecutionTime
			}
		case models.TaskStatusFailed:
			failed++
		}
	}
	var avg float64
	if timed > 0 {
		avg = float64(sum) / float64(timed)
	}
	return statsFrom(total, completed, failed, avg), nil
}
