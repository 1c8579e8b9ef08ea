// Package solver walks an answer chain: render a quiz page, pull out the
// question (page HTML or an attached PDF), ask the model, submit the answer,
// and follow the returned next-question link until the scorer stops the
// chain or the wall-clock budget runs out.
//
// A chain is fire-and-forget. Every failure at a suspension point (render,
// document fetch, extraction, inference, submission) is terminal for that
// chain and is only logged; nothing is retried and no caller observes the
// outcome beyond the optional session store.
package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hazyhaar/quizrun/idgen"
	"github.com/hazyhaar/quizrun/pdftext"
)

// defaultBudget is the wall-clock allowance for one chain. Checked only at
// the top of each iteration; an in-flight step is never cancelled mid-way.
const defaultBudget = 180 * time.Second

// Session identifies one triggered quiz run. The secret is forwarded to the
// scorer with every submission and must never appear in logs.
type Session struct {
	ID       string
	Email    string
	Secret   string
	StartURL string
}

// Recorder receives best-effort session telemetry. Implementations swallow
// their own errors; a broken store must never stop a chain.
type Recorder interface {
	StartSession(ctx context.Context, id, email, startURL string)
	RecordPage(ctx context.Context, sessionID, pageURL, html, answer string, correct bool)
	FinishSession(ctx context.Context, id, status string, pagesSolved int)
}

// Config holds the capabilities a Runner drives.
type Config struct {
	// Render produces the final HTML of a quiz page. Required.
	Render func(ctx context.Context, url string) (string, error)

	// Complete asks the model for an answer. Required.
	Complete func(ctx context.Context, prompt, systemPrompt string) (string, error)

	// ExtractDoc turns document bytes into text. Default: pdftext.Extract.
	ExtractDoc func(data []byte) (string, error)

	// FetchClient downloads document bytes. Default: no explicit timeout.
	FetchClient *http.Client

	// SubmitClient posts answers to the scorer. Default: 20s timeout.
	SubmitClient *http.Client

	// Budget is the wall-clock allowance per chain. Default: 180s.
	Budget time.Duration

	// Recorder is optional session telemetry.
	Recorder Recorder

	Logger *slog.Logger
	NewID  idgen.Generator
}

// Runner drives answer chains.
type Runner struct {
	render       func(ctx context.Context, url string) (string, error)
	complete     func(ctx context.Context, prompt, systemPrompt string) (string, error)
	extractDoc   func(data []byte) (string, error)
	fetchClient  *http.Client
	submitClient *http.Client
	budget       time.Duration
	recorder     Recorder
	logger       *slog.Logger
	newID        idgen.Generator
}

// NewRunner creates a Runner with the given capabilities.
func NewRunner(cfg Config) *Runner {
	r := &Runner{
		render:       cfg.Render,
		complete:     cfg.Complete,
		extractDoc:   cfg.ExtractDoc,
		fetchClient:  cfg.FetchClient,
		submitClient: cfg.SubmitClient,
		budget:       cfg.Budget,
		recorder:     cfg.Recorder,
		logger:       cfg.Logger,
		newID:        cfg.NewID,
	}
	if r.extractDoc == nil {
		r.extractDoc = pdftext.Extract
	}
	if r.fetchClient == nil {
		r.fetchClient = &http.Client{}
	}
	if r.submitClient == nil {
		r.submitClient = &http.Client{Timeout: 20 * time.Second}
	}
	if r.budget <= 0 {
		r.budget = defaultBudget
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.newID == nil {
		r.newID = idgen.Session
	}
	return r
}

// Start launches the chain on its own goroutine and returns the session ID
// immediately. The caller gets no completion signal.
func (r *Runner) Start(ctx context.Context, s Session) string {
	if s.ID == "" {
		s.ID = r.newID()
	}
	go r.Run(ctx, s)
	return s.ID
}

// submissionResult is the scorer's verdict. The chain continues iff the
// answer was correct and a non-empty next URL is present.
type submissionResult struct {
	Correct bool   `json:"correct"`
	URL     string `json:"url"`
}

// Run executes the chain until the scorer stops it, a step fails, or the
// budget expires. Blocking; use Start for fire-and-forget.
func (r *Runner) Run(ctx context.Context, s Session) {
	if s.ID == "" {
		s.ID = r.newID()
	}
	log := r.logger.With("session_id", s.ID)

	start := time.Now()
	deadline := start.Add(r.budget)
	current := s.StartURL
	solved := 0
	status := "failed"

	if r.recorder != nil {
		r.recorder.StartSession(ctx, s.ID, s.Email, s.StartURL)
	}
	defer func() {
		if r.recorder != nil {
			r.recorder.FinishSession(ctx, s.ID, status, solved)
		}
		log.Info("solver: chain finished",
			"status", status, "pages_solved", solved, "elapsed", time.Since(start))
	}()

	for current != "" && time.Now().Before(deadline) {
		log.Info("solver: solving page", "url", current)

		html, err := r.render(ctx, current)
		if err != nil {
			log.Warn("solver: render failed", "url", current, "error", err)
			return
		}

		refs := LocateRefs(html)

		var prompt string
		if refs.DocumentURL != "" {
			data, err := r.fetchDocument(ctx, refs.DocumentURL)
			if err != nil {
				log.Warn("solver: document fetch failed", "url", refs.DocumentURL, "error", err)
				return
			}
			text, err := r.extractDoc(data)
			if err != nil {
				log.Warn("solver: document extraction failed", "url", refs.DocumentURL, "error", err)
				return
			}
			prompt = BuildPrompt(text, true)
		} else {
			prompt = BuildPrompt(html, false)
		}

		raw, err := r.complete(ctx, prompt, systemPrompt)
		if err != nil {
			log.Warn("solver: inference failed", "url", current, "error", err)
			return
		}
		answer := Normalize(raw)

		submitURL := refs.SubmitURL
		if submitURL == "" {
			submitURL = current
		}

		result, err := r.submit(ctx, submitURL, s, current, answer)
		if err != nil {
			log.Warn("solver: submission failed", "url", submitURL, "error", err)
			return
		}

		if r.recorder != nil {
			r.recorder.RecordPage(ctx, s.ID, current, html, answer.String(), result.Correct)
		}

		if result.Correct {
			solved++
		}
		if !result.Correct || result.URL == "" {
			status = "completed"
			return
		}
		current = result.URL
	}

	// Deadline expiry is not distinguished from a graceful stop.
	status = "completed"
}

// fetchDocument downloads document bytes with the fetch client. Reads are
// capped at 10MB to prevent runaway downloads.
func (r *Runner) fetchDocument(ctx context.Context, docURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, docURL, nil)
	if err != nil {
		return nil, fmt.Errorf("solver: document request: %w", err)
	}
	resp, err := r.fetchClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("solver: document fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("solver: document fetch status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("solver: document read: %w", err)
	}
	return data, nil
}

// submit posts the answer payload to the scorer and parses its verdict.
func (r *Runner) submit(ctx context.Context, submitURL string, s Session, pageURL string, answer Answer) (*submissionResult, error) {
	payload, err := json.Marshal(map[string]any{
		"email":  s.Email,
		"secret": s.Secret,
		"url":    pageURL,
		"answer": answer,
	})
	if err != nil {
		return nil, fmt.Errorf("solver: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, submitURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("solver: submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.submitClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("solver: submit: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("solver: submit status %d", resp.StatusCode)
	}

	var result submissionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("solver: parse verdict: %w", err)
	}
	return &result, nil
}
