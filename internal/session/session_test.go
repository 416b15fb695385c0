package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/korektor-app/korektor/internal/model"
	"github.com/korektor-app/korektor/internal/store"
)

func TestMemoryLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	user := &model.User{ID: 7, Username: "budi", Role: model.UserRoleGuru}

	token, err := m.Create(ctx, user)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	got, err := m.Get(ctx, token)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.ID != 7 || got.Username != "budi" {
		t.Fatalf("unexpected user: %+v", got)
	}

	// Unknown tokens resolve to nil without error.
	missing, err := m.Get(ctx, "nope")
	if err != nil {
		t.Fatalf("Get unknown: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for unknown token")
	}

	if err := m.Delete(ctx, token); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, _ := m.Get(ctx, token); got != nil {
		t.Error("expected nil after delete")
	}

	// Deleting again is not an error.
	if err := m.Delete(ctx, token); err != nil {
		t.Errorf("Delete twice: %v", err)
	}
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	user := &model.User{ID: 1, Username: "budi"}

	token, err := m.Create(ctx, user)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Advance the clock past the TTL.
	m.now = func() time.Time { return time.Now().Add(model.SessionTTL + time.Minute) }

	got, err := m.Get(ctx, token)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Error("expected nil for expired session")
	}
}

func TestSQLiteLifecycle(t *testing.T) {
	ctx := context.Background()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	userID, err := s.CreateUser(model.User{
		Username:     "budi",
		PasswordHash: "hash",
		Role:         model.UserRoleGuru,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	m := NewSQLite(s)
	token, err := m.Create(ctx, &model.User{ID: userID})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := m.Get(ctx, token)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.Username != "budi" {
		t.Fatalf("unexpected user: %+v", got)
	}

	if err := m.Delete(ctx, token); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, _ := m.Get(ctx, token); got != nil {
		t.Error("expected nil after delete")
	}
}
