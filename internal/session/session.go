// Package session associates HTTP requests with authenticated users.
// Two backends exist: a SQLite-backed one that survives restarts and
// an in-memory one for single-process deployments.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/korektor-app/korektor/internal/model"
)

// Manager creates, resolves, and revokes session tokens. Both backends
// honor the same model.SessionTTL lifetime.
type Manager interface {
	// Create issues a token for the given user.
	Create(ctx context.Context, user *model.User) (string, error)
	// Get resolves a token to its user, or nil if unknown or expired.
	Get(ctx context.Context, token string) (*model.User, error)
	// Delete revokes a token. Revoking an unknown token is not an error.
	Delete(ctx context.Context, token string) error
}

type memoryEntry struct {
	user      model.User
	expiresAt time.Time
}

// Memory is an in-process Manager. Sessions vanish on restart.
type Memory struct {
	mu       sync.Mutex
	sessions map[string]memoryEntry
	now      func() time.Time
}

// NewMemory creates an empty in-memory session manager.
func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string]memoryEntry),
		now:      time.Now,
	}
}

func (m *Memory) Create(_ context.Context, user *model.User) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.sessions[token] = memoryEntry{user: *user, expiresAt: m.now().Add(model.SessionTTL)}
	m.mu.Unlock()
	return token, nil
}

func (m *Memory) Get(_ context.Context, token string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.sessions[token]
	if !ok {
		return nil, nil
	}
	if m.now().After(entry.expiresAt) {
		delete(m.sessions, token)
		return nil, nil
	}
	user := entry.user
	return &user, nil
}

func (m *Memory) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
	return nil
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
