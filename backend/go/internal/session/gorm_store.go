package session

import (
	"AIBoss/backend/go/internal/models"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// GormStore 使用 GORM 持久化会话（sessions 表）。
type GormStore struct {
	db *gorm.DB
}

// NewGormStore 创建 GormStore。
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// AutoMigrate 创建或更新 sessions 表。
func (s *GormStore) AutoMigrate() error {
	return s.db.AutoMigrate(&models.Session{})
}

// GetByFingerprint 根据指纹查找会话。
func (s *GormStore) GetByFingerprint(ctx context.Context, fingerprint string) (*models.Session, error) {
	var sess models.Session
	err := s.db.WithContext(ctx).Where("fingerprint = ?", fingerprint).First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// GetByID 根据 ID 查找会话。
func (s *GormStore) GetByID(ctx context.Context, id string) (*models.Session, error) {
	var sess models.Session
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// Create 插入新会话。
func (s *GormStore) Create(ctx context.Context, sess *models.Session) error {
	return s.db.WithContext(ctx).Create(sess).Error
}

// Touch 更新最后活跃时间。
func (s *GormStore) Touch(ctx context.Context, id string, at time.Time) error {
	return s.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ?", id).
		Update("last_active_at", at).Error
}

// DeleteInactiveBefore 删除最后活跃时间早于 cutoff 的会话。
func (s *GormStore) DeleteInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("last_active_at < ?", cutoff).Delete(&models.Session{})
	return res.RowsAffected, res.Error
}
