package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/korektor-app/korektor/internal/i18n"
	"github.com/korektor-app/korektor/internal/llm"
	"github.com/korektor-app/korektor/internal/model"
	"github.com/korektor-app/korektor/internal/session"
	"github.com/korektor-app/korektor/internal/store"
	"github.com/korektor-app/korektor/internal/upload"
	"github.com/korektor-app/korektor/internal/worker"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store    *store.Store
	sessions session.Manager
	llm      *llm.Client
	uploads  *upload.Receiver
	history  *worker.HistoryWriter
	config   model.ServerConfig
}

// New creates a new Handler.
func New(s *store.Store, sm session.Manager, l *llm.Client, up *upload.Receiver, hw *worker.HistoryWriter, cfg model.ServerConfig) *Handler {
	return &Handler{store: s, sessions: sm, llm: l, uploads: up, history: hw, config: cfg}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.handleIndex)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(h.config.StaticDir))))
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/register", h.handleRegister)
	r.Post("/auth/logout", h.handleLogout)
	r.Post("/ai/proses-koreksi", h.handleProsesKoreksi)
	r.Get("/ai/riwayat", h.handleRiwayat)
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/static/login.html", http.StatusFound)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// writeError sends the single-field error envelope with a localized message.
func writeError(w http.ResponseWriter, r *http.Request, status int, msgID string) {
	writeJSON(w, status, map[string]string{"error": i18n.T(r.Context(), msgID)})
}
