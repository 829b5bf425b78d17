package store

import (
	"AIBoss/backend/go/internal/models"
	"context"
	"errors"
)

// ErrTaskNotFound 表示任务不存在。
var ErrTaskNotFound = errors.New("task not found")

// TaskStore defines the interface for task persistence.
type TaskStore interface {
	// Create 写入一条新任务（processing 状态）。
	Create(ctx context.Context, task *models.Task) error
	// Update 写入任务的终态字段：status、output_data、error_message、completed_at、execution_time。
	Update(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id string) (*models.Task, error)
	// ListBySession 按创建时间倒序返回会话下最多 limit 条任务。
	ListBySession(ctx context.Context, sessionID string, limit int) ([]*models.Task, error)
	Stats(ctx context.Context, sessionID string) (*models.TaskStats, error)
}

// statsFrom 根据计数和平均耗时构造统计信息，pending = total - completed - failed。
func statsFrom(total, completed, failed int64, avg float64) *models.TaskStats {
	return &models.TaskStats{
		Total:            total,
		Completed:        completed,
		Failed:           failed,
		Pending:          total - completed - failed,
		AvgExecutionTime: avg,
	}
}
