package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/korektor-app/korektor/internal/i18n"
	"github.com/korektor-app/korektor/internal/llm"
	"github.com/korektor-app/korektor/internal/model"
	"github.com/korektor-app/korektor/internal/session"
	"github.com/korektor-app/korektor/internal/store"
	"github.com/korektor-app/korektor/internal/upload"
	"github.com/korektor-app/korektor/internal/worker"
)

// capturedRequest records what the grading flow sent upstream.
type capturedRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"messages"`
}

type testEnv struct {
	router   http.Handler
	store    *store.Store
	sessions session.Manager
	history  *worker.HistoryWriter
	captured *capturedRequest
}

// newTestEnv builds the whole stack against a mocked OpenAI-style
// upstream whose assistant reply is aiReply.
func newTestEnv(t *testing.T, aiReply string) *testEnv {
	t.Helper()

	if err := i18n.Init("id"); err != nil {
		t.Fatalf("i18n.Init: %v", err)
	}

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	captured := &capturedRequest{}
	ai := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(captured); err != nil {
			t.Errorf("decode upstream request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{
			"id": "chatcmpl-test",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": %q}}]
		}`, aiReply)
	}))
	t.Cleanup(ai.Close)

	uploads, err := upload.NewReceiver(t.TempDir())
	if err != nil {
		t.Fatalf("upload.NewReceiver: %v", err)
	}

	history := worker.NewHistoryWriter(s)
	history.Start()
	t.Cleanup(history.Close)

	sessions := session.NewMemory()
	h := New(
		s,
		sessions,
		llm.New(ai.URL+"/v1", "test-key", "gpt-4o", time.Minute),
		uploads,
		history,
		model.ServerConfig{StaticDir: t.TempDir(), SecureCookies: false},
	)

	r := chi.NewRouter()
	r.Use(i18n.Middleware("id"))
	h.Routes(r)

	return &testEnv{router: r, store: s, sessions: sessions, history: history, captured: captured}
}

func (env *testEnv) postJSON(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

// registerAndLogin creates an account directly and issues a session cookie.
func (env *testEnv) registerAndLogin(t *testing.T, username string) *http.Cookie {
	t.Helper()
	id, err := env.store.CreateUser(model.User{
		Username:     username,
		PasswordHash: "unused",
		Role:         model.UserRoleGuru,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	token, err := env.sessions.Create(context.Background(), &model.User{
		ID:       id,
		Username: username,
		Role:     model.UserRoleGuru,
	})
	if err != nil {
		t.Fatalf("sessions.Create: %v", err)
	}
	return &http.Cookie{Name: sessionCookieName, Value: token}
}

// newGradeRequest builds a multipart grading request with numFiles
// photos and the given form fields.
func newGradeRequest(t *testing.T, fields map[string]string, numFiles int) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for i := 0; i < numFiles; i++ {
		fw, err := mw.CreateFormFile(upload.FileField, fmt.Sprintf("sheet%d.jpg", i+1))
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := fw.Write([]byte("fake image bytes")); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest("POST", "/ai/proses-koreksi", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return m
}

func TestIndexRedirect(t *testing.T) {
	env := newTestEnv(t, "[]")

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/static/login.html" {
		t.Errorf("expected redirect to /static/login.html, got %q", loc)
	}
}
