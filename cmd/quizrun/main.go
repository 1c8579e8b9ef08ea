// Entry point for the quizrun HTTP service: chi router, shield middleware,
// headless Chrome renderer, OpenAI-backed solver, SQLite session store and
// optional MCP over stdio.
package main

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hazyhaar/quizrun/browser"
	"github.com/hazyhaar/quizrun/dbopen"
	"github.com/hazyhaar/quizrun/llm"
	"github.com/hazyhaar/quizrun/sessionstore"
	"github.com/hazyhaar/quizrun/shield"
	"github.com/hazyhaar/quizrun/solver"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"
)

func main() {
	fileCfg, err := loadFileConfig(os.Getenv("QUIZRUN_CONFIG"))
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	port := pick("PORT", fileCfg.Port, "8000")
	logLevel := pick("LOG_LEVEL", fileCfg.LogLevel, "info")
	secretKey := pick("SECRET_KEY", fileCfg.SecretKey, "")
	defaultEmail := pick("EMAIL", fileCfg.Email, "")
	sessionsPath := pick("SESSIONS_DB", fileCfg.SessionsDB, "db/sessions.db")
	browserRemote := pick("BROWSER_REMOTE_URL", fileCfg.Browser.Remote, "")
	apiKey := pick("OPENAI_API_KEY", fileCfg.OpenAI.APIKey, "")
	model := pick("OPENAI_MODEL", fileCfg.OpenAI.Model, "")
	baseURL := pick("OPENAI_BASE_URL", fileCfg.OpenAI.BaseURL, "")
	mcpTransport := env("MCP_TRANSPORT", "")

	// Logging.
	var lvl slog.Level
	switch logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	if secretKey == "" {
		slog.Error("SECRET_KEY is required")
		os.Exit(1)
	}
	if apiKey == "" {
		slog.Error("OPENAI_API_KEY is required")
		os.Exit(1)
	}

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Session store.
	sessionsDB, err := dbopen.Open(sessionsPath, dbopen.WithMkdirAll(), dbopen.WithSchema(sessionstore.Schema))
	if err != nil {
		slog.Error("sessions db", "error", err)
		os.Exit(1)
	}
	defer sessionsDB.Close()
	store := sessionstore.New(sessionsDB, sessionstore.WithLogger(logger))

	// Browser.
	mgr := browser.NewManager(browser.Config{RemoteURL: browserRemote, Logger: logger})
	if err := mgr.Start(ctx); err != nil {
		slog.Error("browser start", "error", err)
		os.Exit(1)
	}
	defer mgr.Close()

	// Model client.
	client := llm.New(llm.Config{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: baseURL,
		Timeout: fileCfg.OpenAI.Timeout,
		Logger:  logger,
	})

	// Chain runner.
	runner := solver.NewRunner(solver.Config{
		Render:   mgr.Render,
		Complete: client.Complete,
		Budget:   fileCfg.Budget,
		Recorder: store,
		Logger:   logger,
	})

	// Optional MCP over stdio (blocks until the client disconnects).
	if mcpTransport == "stdio" {
		mcpSrv := mcp.NewServer(&mcp.Implementation{
			Name:    "quizrun",
			Version: "1.0.0",
		}, nil)
		runner.RegisterMCP(mcpSrv)
		store.RegisterMCP(mcpSrv)
		if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
			slog.Error("mcp stdio", "error", err)
			os.Exit(1)
		}
		return
	}

	// Router.
	r := chi.NewRouter()
	for _, mw := range shield.DefaultStack() {
		r.Use(mw)
	}

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{
			"status": "OK",
			"usage":  "POST to /quiz with {email, secret, url}",
		})
	})

	r.Post("/quiz", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Email  string `json:"email"`
			Secret string `json:"secret"`
			URL    string `json:"url"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, 400, errors.New("invalid JSON body"))
			return
		}
		if subtle.ConstantTimeCompare([]byte(body.Secret), []byte(secretKey)) != 1 {
			writeError(w, 403, errors.New("invalid secret"))
			return
		}
		email := body.Email
		if email == "" {
			email = defaultEmail
		}
		if _, err := mail.ParseAddress(email); err != nil {
			writeError(w, 400, errors.New("invalid email"))
			return
		}
		if !validQuizURL(body.URL) {
			writeError(w, 400, errors.New("invalid url"))
			return
		}

		// The chain outlives the request; tie it to the process context.
		id := runner.Start(ctx, solver.Session{
			Email:    email,
			Secret:   body.Secret,
			StartURL: body.URL,
		})
		shield.GetLogger(req.Context()).Info("quiz started", "session_id", id, "url", body.URL)
		writeJSON(w, 200, map[string]any{
			"status":     "success",
			"message":    "Started quiz processing",
			"session_id": id,
			"processing": true,
		})
	})

	r.Get("/sessions", func(w http.ResponseWriter, req *http.Request) {
		if !authorized(req, secretKey) {
			writeError(w, 403, errors.New("invalid secret"))
			return
		}
		sessions, err := store.List(req.Context(), 0)
		if err != nil {
			writeError(w, 500, err)
			return
		}
		writeJSON(w, 200, map[string]any{"sessions": sessions})
	})

	r.Get("/sessions/{id}", func(w http.ResponseWriter, req *http.Request) {
		if !authorized(req, secretKey) {
			writeError(w, 403, errors.New("invalid secret"))
			return
		}
		id := chi.URLParam(req, "id")
		session, err := store.Get(req.Context(), id)
		if err != nil {
			writeError(w, 404, errors.New("session not found"))
			return
		}
		pages, err := store.Pages(req.Context(), id)
		if err != nil {
			writeError(w, 500, err)
			return
		}
		writeJSON(w, 200, map[string]any{"session": session, "pages": pages})
	})

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}

// validQuizURL accepts absolute http(s) URLs only.
func validQuizURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// authorized checks the read-endpoint guard header in constant time.
func authorized(r *http.Request, secretKey string) bool {
	got := r.Header.Get("X-Quiz-Secret")
	return subtle.ConstantTimeCompare([]byte(got), []byte(secretKey)) == 1
}

// --- Helpers ---

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
