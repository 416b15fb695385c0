package worker

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/korektor-app/korektor/internal/model"
	"github.com/korektor-app/korektor/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestHistoryWriterPersistsAll(t *testing.T) {
	s := newTestStore(t)
	userID, err := s.CreateUser(model.User{
		Username:     "budi",
		PasswordHash: "hash",
		Role:         model.UserRoleGuru,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	w := NewHistoryWriter(s)
	w.Start()

	for i := 0; i < 10; i++ {
		w.Enqueue(HistoryEntry{
			UserID:     userID,
			Result:     json.RawMessage(`{"nama_siswa":"Andi","nilai_akhir":80}`),
			TotalScore: 80,
		})
	}
	w.Close()

	count, err := s.HistoryCount()
	if err != nil {
		t.Fatalf("HistoryCount: %v", err)
	}
	if count != 10 {
		t.Errorf("expected 10 records, got %d", count)
	}

	records, err := s.ListHistoryByUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("ListHistoryByUser: %v", err)
	}
	if len(records) != 10 || records[0].TotalScore != 80 {
		t.Errorf("unexpected records: %d", len(records))
	}
}

func TestHistoryWriterLogsInsertFailures(t *testing.T) {
	s := newTestStore(t)

	w := NewHistoryWriter(s)
	w.Start()

	// user_id 999 has no matching user; with foreign keys off in SQLite
	// the insert still succeeds, so exercise the failure path by closing
	// the store first.
	s.Close()
	w.Enqueue(HistoryEntry{UserID: 999, Result: json.RawMessage(`{}`), TotalScore: 0})

	// Close must not hang or panic even when inserts fail.
	w.Close()
}
