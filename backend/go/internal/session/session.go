package session

import (
	"AIBoss/backend/go/internal/models"
	"AIBoss/backend/go/pkg/logger"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound 表示会话不存在。
var ErrSessionNotFound = errors.New("session not found")

// Store 定义了会话的持久化接口。
type Store interface {
	GetByFingerprint(ctx context.Context, fingerprint string) (*models.Session, error)
	GetByID(ctx context.Context, id string) (*models.Session, error)
	Create(ctx context.Context, s *models.Session) error
	Touch(ctx context.Context, id string, at time.Time) error
	DeleteInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Fingerprint 根据 User-Agent 和客户端地址生成会话指纹（sha256 十六进制）。
func Fingerprint(userAgent, ip string) string {
	sum := sha256.Sum256([]byte(userAgent + "|" + ip))
	return hex.EncodeToString(sum[:])
}

// Service 管理匿名会话的创建、续期和清理。
type Service struct {
	store  Store
	logger *logger.Logger
	now    func() time.Time
	newID  func() string
}

// NewService 创建会话服务。
func NewService(store Store, log *logger.Logger) *Service {
	return &Service{
		store:  store,
		logger: log,
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
}

// GetOrCreate 返回指纹对应的会话，不存在时创建，存在时更新最后活跃时间。
func (s *Service) GetOrCreate(ctx context.Context, fingerprint string) (*models.Session, error) {
	now := s.now()
	existing, err := s.store.GetByFingerprint(ctx, fingerprint)
	switch {
	case err == nil:
		if err := s.store.Touch(ctx, existing.ID, now); err != nil {
			return nil, fmt.Errorf("touch session %s: %w", existing.ID, err)
		}
		existing.LastActiveAt = now
		return existing, nil
	case !errors.Is(err, ErrSessionNotFound):
		return nil, fmt.Errorf("find session: %w", err)
	}

	sess := &models.Session{
		ID:           s.newID(),
		Fingerprint:  fingerprint,
		CreatedAt:    now,
		LastActiveAt: now,
	}
	if err := s.store.Create(ctx, sess); err != nil {
		// 并发请求可能已经用同一指纹创建了会话。
		if existing, getErr := s.store.GetByFingerprint(ctx, fingerprint); getErr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.logger.WithField("session_id", sess.ID).Info("Created new session")
	return sess, nil
}

// Get 根据 ID 返回会话。
func (s *Service) Get(ctx context.Context, id string) (*models.Session, error) {
	return s.store.GetByID(ctx, id)
}

// CleanupOldSessions 删除超过 days 天未活跃的会话，返回删除数量。
func (s *Service) CleanupOldSessions(ctx context.Context, days int) (int64, error) {
	cutoff := s.now().AddDate(0, 0, -days)
	n, err := s.store.DeleteInactiveBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup sessions: %w", err)
	}
	s.logger.WithPayload(map[string]interface{}{"deleted": n, "days": days}).Info("Cleaned up old sessions")
	return n, nil
}

// RunCleanup 每隔 interval 清理一次过期会话，直到 ctx 结束。days <= 0 时直接返回。
func (s *Service) RunCleanup(ctx context.Context, interval time.Duration, days int) {
	if days <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.CleanupOldSessions(ctx, days); err != nil {
				s.logger.WithError(models.ErrorInfo{Message: err.Error(), Type: models.ErrorTypeStorage}).
					Error("Session cleanup failed")
			}
		}
	}
}
