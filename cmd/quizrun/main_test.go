package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hazyhaar/quizrun/shield"
)

func TestShield_SecurityHeaders(t *testing.T) {
	// WHAT: Responses contain security headers from shield.DefaultStack.
	// WHY: Without shield, no CSP, X-Frame-Options, X-Content-Type-Options, or X-Trace-ID.
	r := chi.NewRouter()
	for _, mw := range shield.DefaultStack() {
		r.Use(mw)
	}
	r.Get("/test", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
	})

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	checks := map[string]string{
		"X-Frame-Options":        "DENY",
		"X-Content-Type-Options": "nosniff",
	}
	for header, expected := range checks {
		got := w.Header().Get(header)
		if got != expected {
			t.Errorf("%s: got %q, want %q", header, got, expected)
		}
	}

	traceID := w.Header().Get("X-Trace-ID")
	if traceID == "" {
		t.Error("X-Trace-ID header missing")
	}
}

func TestValidQuizURL(t *testing.T) {
	// WHAT: Only absolute http(s) URLs pass validation.
	// WHY: A relative or schemeless trigger URL can never start a chain.
	cases := map[string]bool{
		"https://quiz.example.com/start": true,
		"http://quiz.example.com/start":  true,
		"ftp://quiz.example.com/start":   false,
		"quiz.example.com/start":         false,
		"/relative/path":                 false,
		"":                               false,
		"://bad":                         false,
	}
	for raw, want := range cases {
		if got := validQuizURL(raw); got != want {
			t.Errorf("validQuizURL(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestAuthorized(t *testing.T) {
	// WHAT: Read endpoints require the exact shared secret in X-Quiz-Secret.
	req := httptest.NewRequest("GET", "/sessions", nil)
	if authorized(req, "s3cret") {
		t.Error("missing header accepted")
	}
	req.Header.Set("X-Quiz-Secret", "wrong")
	if authorized(req, "s3cret") {
		t.Error("wrong secret accepted")
	}
	req.Header.Set("X-Quiz-Secret", "s3cret")
	if !authorized(req, "s3cret") {
		t.Error("correct secret rejected")
	}
}

func TestLoadFileConfig(t *testing.T) {
	// WHAT: YAML file config parses; env values override file values via pick.
	path := filepath.Join(t.TempDir(), "quizrun.yaml")
	if err := os.WriteFile(path, []byte("port: \"9000\"\nemail: file@example.com\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadFileConfig(path)
	if err != nil {
		t.Fatalf("loadFileConfig: %v", err)
	}
	if cfg.Port != "9000" || cfg.Email != "file@example.com" {
		t.Errorf("config: %+v", cfg)
	}

	if got := pick("QUIZRUN_TEST_UNSET", cfg.Port, "8000"); got != "9000" {
		t.Errorf("file value: got %q, want 9000", got)
	}
	t.Setenv("QUIZRUN_TEST_PORT", "7000")
	if got := pick("QUIZRUN_TEST_PORT", cfg.Port, "8000"); got != "7000" {
		t.Errorf("env override: got %q, want 7000", got)
	}
	if got := pick("QUIZRUN_TEST_UNSET", "", "8000"); got != "8000" {
		t.Errorf("default: got %q, want 8000", got)
	}
}

func TestLoadFileConfig_Missing(t *testing.T) {
	// WHAT: Empty path means no file; a named but absent file is an error.
	if _, err := loadFileConfig(""); err != nil {
		t.Errorf("empty path: %v", err)
	}
	if _, err := loadFileConfig("/nonexistent/quizrun.yaml"); err == nil {
		t.Error("absent file: expected error")
	}
}
