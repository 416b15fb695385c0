package store

import (
	"context"
	"time"

	"github.com/korektor-app/korektor/internal/model"
)

// InsertHistory stores one grading result for a user.
func (s *Store) InsertHistory(ctx context.Context, rec model.HistoryRecord) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO grading_history (user_id, result, total_score, created_at)
		 VALUES (?, ?, ?, ?)`,
		rec.UserID, string(rec.Result), rec.TotalScore, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListHistoryByUser returns a user's grading history, newest first.
func (s *Store) ListHistoryByUser(ctx context.Context, userID int64) ([]model.HistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, result, total_score, created_at
		 FROM grading_history WHERE user_id = ? ORDER BY id DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []model.HistoryRecord
	for rows.Next() {
		var rec model.HistoryRecord
		var result string
		if err := rows.Scan(&rec.ID, &rec.UserID, &result, &rec.TotalScore, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Result = []byte(result)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// HistoryCount returns the number of stored history records.
func (s *Store) HistoryCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM grading_history`).Scan(&count)
	return count, err
}
