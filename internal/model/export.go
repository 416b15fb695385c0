package model

// HistoryExport is the top-level JSON structure for history export.
type HistoryExport struct {
	ExportedAt string       `json:"exported_at"`
	Users      []UserExport `json:"users"`
}

// UserExport holds one user's grading history for export.
type UserExport struct {
	Username string          `json:"username"`
	Role     UserRole        `json:"role"`
	Records  []HistoryRecord `json:"records"`
}
