// Package gemini asks Google's Gemini generateContent endpoint for
// scheduling suggestions.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	calendar "github.com/felixgeelhaar/tempo/internal/calendar/domain"
	"github.com/felixgeelhaar/tempo/internal/scheduling/domain"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-2.5-flash"

	maxErrorBody = 2048
)

// Config configures the engine.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration

	// Breaker settings; zero values get defaults.
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// Engine calls Gemini behind a circuit breaker. Only unavailability trips
// the breaker; blocked or malformed answers do not.
type Engine struct {
	cfg     Config
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[[]domain.Suggestion]
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a Gemini engine.
func New(cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	e := &Engine{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
		now:    time.Now,
	}
	e.breaker = gobreaker.NewCircuitBreaker[[]domain.Suggestion](gobreaker.Settings{
		Name:        "gemini",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return !errors.Is(err, domain.ErrEngineUnavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return e
}

func (e *Engine) Name() string { return "gemini" }

// Suggest asks the model for start times. The result is not ranked.
func (e *Engine) Suggest(ctx context.Context, req domain.Request) ([]domain.Suggestion, error) {
	if e.cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY is not configured", domain.ErrEngineUnavailable)
	}

	out, err := e.breaker.Execute(func() ([]domain.Suggestion, error) {
		return e.generate(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: circuit open", domain.ErrEngineUnavailable)
	}
	return out, err
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content      *content `json:"content"`
		FinishReason string   `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

func (e *Engine) generate(ctx context.Context, req domain.Request) ([]domain.Suggestion, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: Prompt(req, e.now())}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		e.cfg.BaseURL, url.PathEscape(e.cfg.Model), url.QueryEscape(e.cfg.APIKey))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEngineUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		// The URL carries the API key; keep it out of logs and errors.
		e.logger.WarnContext(ctx, "gemini request failed", "error", redact(err))
		return nil, fmt.Errorf("%w: provider unreachable", domain.ErrEngineUnavailable)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		e.logger.WarnContext(ctx, "gemini returned an error", "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: provider status %d: %s", domain.ErrEngineUnavailable, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: response envelope: %v", domain.ErrEngineMalformedOutput, err)
	}

	text, err := candidateText(decoded)
	if err != nil {
		return nil, err
	}
	return ParseSuggestions(text)
}

func candidateText(resp generateResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("%w: %s", domain.ErrEngineBlocked, resp.PromptFeedback.BlockReason)
		}
		return "", fmt.Errorf("%w: no candidates", domain.ErrEngineMalformedOutput)
	}
	first := resp.Candidates[0]
	if first.Content == nil || len(first.Content.Parts) == 0 {
		reason := first.FinishReason
		if reason == "" {
			reason = "no content"
		}
		return "", fmt.Errorf("%w: %s", domain.ErrEngineBlocked, reason)
	}
	var sb strings.Builder
	for _, p := range first.Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}

type suggestionPayload struct {
	Suggestions []struct {
		Start  string `json:"start"`
		Reason string `json:"reason"`
	} `json:"suggestions"`
}

// ParseSuggestions decodes the model's JSON answer, tolerating markdown
// code fences around it. Start times without a zone are read as UTC.
func ParseSuggestions(text string) ([]domain.Suggestion, error) {
	text = stripFences(text)

	var payload suggestionPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEngineMalformedOutput, err)
	}

	out := make([]domain.Suggestion, 0, len(payload.Suggestions))
	for _, s := range payload.Suggestions {
		start, err := calendar.NormalizeTimestamp(s.Start)
		if err != nil {
			return nil, fmt.Errorf("%w: start %q", domain.ErrEngineMalformedOutput, s.Start)
		}
		out = append(out, domain.Suggestion{Start: start, Reason: strings.TrimSpace(s.Reason)})
	}
	return out, nil
}

func stripFences(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

func redact(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err.Error()
	}
	return err.Error()
}
