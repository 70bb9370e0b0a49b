// Package auth holds console sessions and route authorization for the
// ADMIN/SUPERADMIN role model with a forced password-change flow.
package auth

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"scoutadmin/internal/backend"
)

var ErrSessionNotFound = errors.New("session not found")

// Session: сессия консоли. BackendToken пробрасывается бэкенду как SESSION_TOKEN.
type Session struct {
	ID                 string       `json:"id"`
	BackendToken       string       `json:"-"`
	User               backend.User `json:"user"`
	MustChangePassword bool         `json:"mustChangePassword"`
	CreatedAt          time.Time    `json:"createdAt"`
	ExpiresAt          time.Time    `json:"expiresAt"`
}

func (s *Session) Expired(now time.Time) bool { return !now.Before(s.ExpiresAt) }

func (s *Session) Role() backend.Role { return s.User.Role }

// NewSession создаёт сессию по ответу логина.
func NewSession(resp backend.LoginResponse, ttl time.Duration, now time.Time) *Session {
	return &Session{
		ID:                 uuid.NewString(),
		BackendToken:       resp.Token,
		User:               resp.User,
		MustChangePassword: resp.MustChangePassword || resp.User.MustChangePassword,
		CreatedAt:          now,
		ExpiresAt:          now.Add(ttl),
	}
}

// SessionStore хранит сессии консоли. Get продлевает сессию (скользящий TTL).
type SessionStore interface {
	Put(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

// Sweeper: хранилище, которое само удаляет просроченные сессии.
type Sweeper interface {
	SweepExpired(ctx context.Context) ([]string, error)
}

// MemoryStore: хранилище сессий в памяти процесса.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *MemoryStore) Put(_ context.Context, s *Session) error {
	cp := *s
	m.mu.Lock()
	m.sessions[s.ID] = &cp
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	now := m.now()
	if s.Expired(now) {
		delete(m.sessions, id)
		return nil, ErrSessionNotFound
	}
	if m.ttl > 0 {
		s.ExpiresAt = now.Add(m.ttl)
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

// Sweep удаляет просроченные сессии и возвращает их id.
func (m *MemoryStore) Sweep() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	var gone []string
	for id, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, id)
			gone = append(gone, id)
		}
	}
	sort.Strings(gone)
	return gone
}

func (m *MemoryStore) SweepExpired(context.Context) ([]string, error) { return m.Sweep(), nil }

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
