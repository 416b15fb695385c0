package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/korektor-app/korektor/internal/model"
	"github.com/korektor-app/korektor/internal/worker"
)

// handleProsesKoreksi is the grading endpoint: it receives the uploaded
// sheet photos and answer keys, makes exactly one grading call to the
// LLM, and returns the parsed per-student results. With an active
// session each result is also queued for history, best-effort.
//
// Every failure inside this flow collapses into one generic 500; the
// caller learns nothing about which step broke.
func (h *Handler) handleProsesKoreksi(w http.ResponseWriter, r *http.Request) {
	user := h.sessionUser(r)

	images, err := h.uploads.Receive(r)
	if err != nil {
		slog.Error("upload receive failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, "ErrGradingFailed")
		return
	}

	key := answerKeyFromForm(r)
	formula := r.FormValue("rumus_nilai")

	results, raws, err := h.llm.GradeSheets(r.Context(), key, formula, images)
	if err != nil {
		slog.Error("grading failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, "ErrGradingFailed")
		return
	}

	if user != nil {
		for i, res := range results {
			h.history.Enqueue(worker.HistoryEntry{
				UserID:     user.ID,
				Result:     raws[i],
				TotalScore: res.FinalScore,
			})
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    results,
	})
}

// answerKeyFromForm builds the answer key from pg_1..pg_20 and
// essay_1..essay_10 form fields. Missing fields keep the absent marker
// so the key always carries its full shape.
func answerKeyFromForm(r *http.Request) model.AnswerKey {
	key := model.NewAnswerKey()
	for i := 1; i <= model.PGCount; i++ {
		if v := r.FormValue(fmt.Sprintf("pg_%d", i)); v != "" {
			key.PG[i] = v
		}
	}
	for i := 1; i <= model.EssayCount; i++ {
		if v := r.FormValue(fmt.Sprintf("essay_%d", i)); v != "" {
			key.Essay[i] = v
		}
	}
	return key
}

// handleRiwayat lists the authenticated user's grading history.
func (h *Handler) handleRiwayat(w http.ResponseWriter, r *http.Request) {
	user := h.sessionUser(r)
	if user == nil {
		writeError(w, r, http.StatusUnauthorized, "ErrUnauthorized")
		return
	}

	records, err := h.store.ListHistoryByUser(r.Context(), user.ID)
	if err != nil {
		slog.Error("failed to list history", "error", err)
		writeError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	if records == nil {
		records = []model.HistoryRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    records,
	})
}
