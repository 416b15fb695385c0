// Package worker holds background tasks decoupled from request handling.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/korektor-app/korektor/internal/model"
	"github.com/korektor-app/korektor/internal/store"
)

const (
	historyQueueSize    = 256
	historyInsertBudget = 5 * time.Second
)

// HistoryEntry is one grading result queued for persistence.
type HistoryEntry struct {
	UserID     int64
	Result     json.RawMessage
	TotalScore float64
}

// HistoryWriter persists grading results best-effort: inserts never
// block or fail the user-facing response. Failures are logged only.
type HistoryWriter struct {
	store     *store.Store
	ch        chan HistoryEntry
	done      chan struct{}
	closeOnce sync.Once
}

// NewHistoryWriter creates a writer. Call Start before enqueueing.
func NewHistoryWriter(s *store.Store) *HistoryWriter {
	return &HistoryWriter{
		store: s,
		ch:    make(chan HistoryEntry, historyQueueSize),
		done:  make(chan struct{}),
	}
}

// Start launches the consumer goroutine.
func (w *HistoryWriter) Start() {
	go w.run()
}

func (w *HistoryWriter) run() {
	defer close(w.done)
	for entry := range w.ch {
		ctx, cancel := context.WithTimeout(context.Background(), historyInsertBudget)
		_, err := w.store.InsertHistory(ctx, model.HistoryRecord{
			UserID:     entry.UserID,
			Result:     entry.Result,
			TotalScore: entry.TotalScore,
		})
		cancel()
		if err != nil {
			slog.Error("history insert failed", "user_id", entry.UserID, "error", err)
		}
	}
}

// Enqueue queues one entry without blocking. When the queue is full the
// entry is dropped with a log line; persistence here is best-effort.
func (w *HistoryWriter) Enqueue(entry HistoryEntry) {
	select {
	case w.ch <- entry:
	default:
		slog.Warn("history queue full, dropping record", "user_id", entry.UserID)
	}
}

// Close drains the queue and stops the consumer. No Enqueue may be
// called after Close. Closing twice is safe.
func (w *HistoryWriter) Close() {
	w.closeOnce.Do(func() { close(w.ch) })
	<-w.done
}
