package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/korektor-app/korektor/internal/i18n"
	"github.com/korektor-app/korektor/internal/model"
)

const sessionCookieName = "korektor_session"

// bcryptCost keeps hashing deliberately slow without stalling login.
const bcryptCost = 10

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// sessionUser resolves the request's session cookie to a user, or nil.
// Lookup failures are logged and treated as no session.
func (h *Handler) sessionUser(r *http.Request) *model.User {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	user, err := h.sessions.Get(r.Context(), cookie.Value)
	if err != nil {
		slog.Error("failed to resolve session", "error", err)
		return nil
	}
	return user
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.config.SecureCookies,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, r, http.StatusBadRequest, "ErrBadRequest")
		return
	}

	user, err := h.store.GetUserByUsername(creds.Username)
	if err != nil {
		slog.Error("failed to get user", "error", err)
		writeError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	if user == nil {
		writeError(w, r, http.StatusUnauthorized, "ErrUserNotFound")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		writeError(w, r, http.StatusUnauthorized, "ErrWrongPassword")
		return
	}

	token, err := h.sessions.Create(r.Context(), user)
	if err != nil {
		slog.Error("failed to create session", "error", err)
		writeError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	h.setSessionCookie(w, token)

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": i18n.Td(r.Context(), "LoginSuccess", map[string]any{"Username": user.Username}),
		"user": map[string]any{
			"username": user.Username,
			"role":     user.Role,
		},
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, r, http.StatusBadRequest, "ErrBadRequest")
		return
	}
	if creds.Username == "" || creds.Password == "" {
		writeError(w, r, http.StatusBadRequest, "ErrBadRequest")
		return
	}

	existing, err := h.store.GetUserByUsername(creds.Username)
	if err != nil {
		slog.Error("failed to check username", "error", err)
		writeError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	if existing != nil {
		writeError(w, r, http.StatusBadRequest, "ErrDuplicateUsername")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcryptCost)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		writeError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}

	if _, err := h.store.CreateUser(model.User{
		Username:     creds.Username,
		PasswordHash: string(hash),
		Role:         model.UserRoleGuru,
	}); err != nil {
		// The UNIQUE constraint catches registrations racing past the
		// existence check.
		writeError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		if err := h.sessions.Delete(r.Context(), cookie.Value); err != nil {
			slog.Error("failed to delete session", "error", err)
		}
	}
	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
