package store

import (
	"AIBoss/backend/go/internal/models"
	"context"
	"errors"

	"gorm.io/gorm"
)

// GormTaskStore 使用 GORM（MySQL，测试中为 SQLite）持久化任务。
type GormTaskStore struct {
	db *gorm.DB
}

// NewGormTaskStore creates a new GormTaskStore.
func NewGormTaskStore(db *gorm.DB) *GormTaskStore {
	return &GormTaskStore{db: db}
}

// AutoMigrate 创建或更新 tasks 表。
func (s *GormTaskStore) AutoMigrate() error {
	return s.db.AutoMigrate(&models.Task{})
}

func (s *GormTaskStore) Create(ctx context.Context, task *models.Task) error {
	return s.db.WithContext(ctx).Create(task).Error
}

func (s *GormTaskStore) Update(ctx context.Context, task *models.Task) error {
	res := s.db.WithContext(ctx).Model(&models.Task{}).
		Where("id = ?", task.ID).
		Updates(map[string]interface{}{
			"status":         task.Status,
			"output_data":    task.OutputData,
			"error_message":  task.ErrorMessage,
			"completed_at":   task.CompletedAt,
			"execution_time": task.ExecutionTime,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func (s *GormTaskStore) GetByID(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *GormTaskStore) ListBySession(ctx context.Context, sessionID string, limit int) ([]*models.Task, error) {
	var tasks []*models.Task
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(limit).
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *GormTaskStore) Stats(ctx context.Context, sessionID string) (*models.TaskStats, error) {
	var row struct {
		Total     int64
		Completed int64
		Failed    int64
		AvgTime   float64
	}
	// AVG 忽略 NULL，没有耗时的任务不参与平均值计算
	err := s.db.WithContext(ctx).Model(&models.Task{}).
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS completed,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS failed,
			COALESCE(AVG(CASE WHEN status = ? THEN execution_time END), 0) AS avg_time`,
			models.TaskStatusCompleted, models.TaskStatusFailed, models.TaskStatusCompleted).
		Where("session_id = ?", sessionID).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return statsFrom(row.Total, row.Completed, row.Failed, row.AvgTime), nil
}
