package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/korektor-app/korektor/internal/handler"
	appI18n "github.com/korektor-app/korektor/internal/i18n"
	"github.com/korektor-app/korektor/internal/llm"
	"github.com/korektor-app/korektor/internal/model"
	"github.com/korektor-app/korektor/internal/session"
	"github.com/korektor-app/korektor/internal/store"
	"github.com/korektor-app/korektor/internal/upload"
	"github.com/korektor-app/korektor/internal/worker"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "korektor",
		Short: "AI answer-sheet grading backend",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd(), createUserCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `korektor --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP grading server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "korektor.db", "SQLite database path")
	f.String("uploads-dir", "uploads", "Directory for stored sheet photos")
	f.String("static-dir", "public", "Directory served under /static/")
	f.String("llm-url", "", "OpenAI-compatible API base URL (empty = api.openai.com)")
	f.String("llm-key", "", "API key for the LLM (or set KOREKTOR_LLM_KEY)")
	f.String("llm-model", "gpt-4o", "Vision-capable model name")
	f.Duration("llm-timeout", 2*time.Minute, "Budget for one grading call")
	f.Bool("llm-check", true, "Verify the LLM endpoint at startup")
	f.String("session-backend", "sqlite", "Session storage (sqlite, memory)")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.StringP("lang", "l", "id", "Message language (id, en)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export grading history as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "korektor.db", "SQLite database path")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func createUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a user account",
		RunE:  runCreateUser,
	}
	f := cmd.Flags()
	f.String("db", "korektor.db", "SQLite database path")
	f.StringP("username", "u", "", "Username (required)")
	f.StringP("password", "p", "", "Password (or set KOREKTOR_PASSWORD)")
	f.String("role", string(model.UserRoleGuru), "Role (guru, admin)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")

	_ = cmd.MarkFlagRequired("username")

	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("KOREKTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("korektor")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/korektor")
	v.AddConfigPath("/etc/korektor")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	apiKey := v.GetString("llm-key")
	if apiKey == "" {
		return fmt.Errorf("LLM API key is required: set --llm-key flag or KOREKTOR_LLM_KEY env var")
	}
	llmClient := llm.New(
		v.GetString("llm-url"),
		apiKey,
		v.GetString("llm-model"),
		v.GetDuration("llm-timeout"),
	)
	if v.GetBool("llm-check") {
		if err := llmClient.Ping(context.Background()); err != nil {
			slog.Warn("LLM endpoint check failed", "error", err)
		} else {
			slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))
		}
	}

	var sessions session.Manager
	switch backend := v.GetString("session-backend"); backend {
	case "memory":
		sessions = session.NewMemory()
	case "sqlite":
		if err := db.CleanupExpiredSessions(context.Background()); err != nil {
			slog.Warn("session cleanup failed", "error", err)
		}
		sessions = session.NewSQLite(db)
	default:
		return fmt.Errorf("unknown session backend %q", backend)
	}

	uploads, err := upload.NewReceiver(v.GetString("uploads-dir"))
	if err != nil {
		return fmt.Errorf("create upload receiver: %w", err)
	}

	historyWriter := worker.NewHistoryWriter(db)
	historyWriter.Start()

	cfg := model.ServerConfig{
		UploadsDir:     v.GetString("uploads-dir"),
		StaticDir:      v.GetString("static-dir"),
		SessionBackend: v.GetString("session-backend"),
		SecureCookies:  v.GetBool("secure-cookies"),
	}
	h := handler.New(db, sessions, llmClient, uploads, historyWriter, cfg)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	addr := v.GetString("addr")
	srv := &http.Server{Addr: addr, Handler: r}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			"addr", addr,
			"model", v.GetString("llm-model"),
			"llm_url", v.GetString("llm-url"),
			"session_backend", cfg.SessionBackend,
			"lang", lang,
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		historyWriter.Close()
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown", "error", err)
	}
	// Drain pending history writes before the database closes.
	historyWriter.Close()
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	users, err := db.ExportAllHistory(context.Background())
	if err != nil {
		return fmt.Errorf("export history: %w", err)
	}

	export := model.HistoryExport{
		ExportedAt: time.Now().Format(time.RFC3339),
		Users:      users,
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return nil
}

func runCreateUser(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	password := v.GetString("password")
	if password == "" {
		return fmt.Errorf("password is required: set --password flag or KOREKTOR_PASSWORD env var")
	}
	role := model.UserRole(v.GetString("role"))
	if role != model.UserRoleGuru && role != model.UserRoleAdmin {
		return fmt.Errorf("unknown role %q", role)
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	username := v.GetString("username")
	existing, err := db.GetUserByUsername(username)
	if err != nil {
		return fmt.Errorf("check username: %w", err)
	}
	if existing != nil {
		return fmt.Errorf("username %q already exists", username)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	id, err := db.CreateUser(model.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
	})
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	slog.Info("user created", "id", id, "username", username, "role", role)
	return nil
}
