package session

import (
	"AIBoss/backend/go/internal/models"
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore 是进程内的会话存储，用于 storage.driver = memory 和测试。
type MemoryStore struct {
	sessions map[string]*models.Session // id -> session
	byPrint  map[string]string          // fingerprint -> id
	mutex    sync.RWMutex
}

// NewMemoryStore 创建 MemoryStore。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*models.Session),
		byPrint:  make(map[string]string),
	}
}

func (m *MemoryStore) GetByFingerprint(_ context.Context, fingerprint string) (*models.Session, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	id, ok := m.byPrint[fingerprint]
	if !ok {
		return nil, ErrSessionNotFound
	}
	s := *m.sessions[id]
	return &s, nil
}

func (m *MemoryStore) GetByID(_ context.Context, id string) (*models.Session, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	s := *sess
	return &s, nil
}

func (m *MemoryStore) Create(_ context.Context, sess *models.Session) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, ok := m.byPrint[sess.Fingerprint]; ok {
		return fmt.Errorf("duplicate fingerprint")
	}
	s := *sess
	m.sessions[s.ID] = &s
	m.byPrint[s.Fingerprint] = s.ID
	return nil
}

func (m *MemoryStore) Touch(_ context.Context, id string, at time.Time) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	sess.LastActiveAt = at
	return nil
}

func (m *MemoryStore) DeleteInactiveBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	var n int64
	for id, sess := range m.sessions {
		if sess.LastActiveAt.Before(cutoff) {
			delete(m.byPrint, sess.Fingerprint)
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}
