package store

import (
	"context"

	"github.com/korektor-app/korektor/internal/model"
)

// ExportAllHistory builds the full grading history grouped by user,
// for the export command. Users without history are skipped.
func (s *Store) ExportAllHistory(ctx context.Context) ([]model.UserExport, error) {
	users, err := s.ListUsers()
	if err != nil {
		return nil, err
	}

	var exports []model.UserExport
	for _, u := range users {
		records, err := s.ListHistoryByUser(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			continue
		}
		exports = append(exports, model.UserExport{
			Username: u.Username,
			Role:     u.Role,
			Records:  records,
		})
	}
	return exports, nil
}
