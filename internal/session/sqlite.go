package session

import (
	"context"

	"github.com/korektor-app/korektor/internal/model"
	"github.com/korektor-app/korektor/internal/store"
)

// SQLite is a Manager backed by the store's auth_sessions table.
// Sessions survive server restarts.
type SQLite struct {
	store *store.Store
}

// NewSQLite creates a store-backed session manager.
func NewSQLite(s *store.Store) *SQLite {
	return &SQLite{store: s}
}

func (s *SQLite) Create(ctx context.Context, user *model.User) (string, error) {
	return s.store.CreateAuthSession(ctx, user.ID)
}

func (s *SQLite) Get(ctx context.Context, token string) (*model.User, error) {
	sess, err := s.store.GetAuthSession(ctx, token)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, nil
	}
	return s.store.GetUserByID(sess.UserID)
}

func (s *SQLite) Delete(ctx context.Context, token string) error {
	return s.store.DeleteAuthSession(ctx, token)
}
