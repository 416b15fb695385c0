package model

import (
	"encoding/json"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleGuru is a teacher account, the normal role for graders.
	UserRoleGuru UserRole = "guru"
	// UserRoleAdmin is an administrator account.
	UserRoleAdmin UserRole = "admin"
)

// User represents a registered account.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         UserRole
	CreatedAt    time.Time
}

// SessionTTL is how long any session stays valid after creation,
// whichever backend holds it.
const SessionTTL = 24 * time.Hour

// AuthSession represents a persisted authentication session.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

const (
	// PGCount is the number of multiple-choice slots on an answer sheet.
	PGCount = 20
	// EssayCount is the number of essay slots on an answer sheet.
	EssayCount = 10
	// AbsentAnswer marks an answer-key slot the teacher left blank.
	AbsentAnswer = "-"
)

// AnswerKey holds the expected answers for one grading request.
// Both maps always carry every slot; blanks hold AbsentAnswer so the
// serialized key keeps its full shape.
type AnswerKey struct {
	PG    map[int]string `json:"pg"`
	Essay map[int]string `json:"essay"`
}

// NewAnswerKey returns an answer key with every slot set to AbsentAnswer.
func NewAnswerKey() AnswerKey {
	key := AnswerKey{
		PG:    make(map[int]string, PGCount),
		Essay: make(map[int]string, EssayCount),
	}
	for i := 1; i <= PGCount; i++ {
		key.PG[i] = AbsentAnswer
	}
	for i := 1; i <= EssayCount; i++ {
		key.Essay[i] = AbsentAnswer
	}
	return key
}

// GradingResult is the per-student record returned by the grading
// model. Field names follow the JSON contract the model is told to
// produce.
type GradingResult struct {
	StudentName  string  `json:"nama_siswa"`
	PGCorrect    int     `json:"pg_benar"`
	PGWrong      int     `json:"pg_salah"`
	EssayCorrect int     `json:"essay_benar"`
	EssayWrong   int     `json:"essay_salah"`
	FinalScore   float64 `json:"nilai_akhir"`
}

// HistoryRecord is one persisted grading result, owned by a user.
// Result keeps the model's full per-student JSON object verbatim.
type HistoryRecord struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"user_id"`
	Result     json.RawMessage `json:"result"`
	TotalScore float64         `json:"total_score"`
	CreatedAt  time.Time       `json:"created_at"`
}

// SheetImage is one uploaded answer-sheet photo, held in memory for
// the grading call and stored on disk for later reference.
type SheetImage struct {
	Name        string
	ContentType string
	Data        []byte
	StoredPath  string
}

// ServerConfig holds runtime parameters set via CLI flags.
type ServerConfig struct {
	UploadsDir     string
	StaticDir      string
	SessionBackend string // "sqlite" or "memory"
	SecureCookies  bool
}
