package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/tempo/internal/scheduling/domain"
)

const (
	DefaultTTL = 10 * time.Minute

	// Requests within the same quarter hour share a key.
	windowBucket = 15 * time.Minute
)

// Engine wraps another engine and caches its successful answers.
// Store failures are logged and the inner engine is called directly.
type Engine struct {
	inner  domain.Engine
	store  Store
	ttl    time.Duration
	logger *slog.Logger
}

func NewEngine(inner domain.Engine, store Store, ttl time.Duration, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Engine{inner: inner, store: store, ttl: ttl, logger: logger}
}

func (e *Engine) Name() string { return e.inner.Name() }

func (e *Engine) Suggest(ctx context.Context, req domain.Request) ([]domain.Suggestion, error) {
	key := Key(e.inner.Name(), req)

	if raw, err := e.store.Get(ctx, key); err == nil {
		var cached []domain.Suggestion
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		e.logger.WarnContext(ctx, "discarding unreadable cached suggestions", "key", key)
	} else if !errors.Is(err, ErrMiss) {
		e.logger.WarnContext(ctx, "suggestion cache read failed", "error", err)
	}

	out, err := e.inner.Suggest(ctx, req)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(out)
	if err == nil {
		err = e.store.Set(ctx, key, raw, e.ttl)
	}
	if err != nil {
		e.logger.WarnContext(ctx, "suggestion cache write failed", "error", err)
	}
	return out, nil
}

type keyMaterial struct {
	Engine      string     `json:"engine"`
	TaskID      string     `json:"task_id"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	Minutes     int64      `json:"minutes"`
	Deadline    int64      `json:"deadline"`
	Busy        [][2]int64 `json:"busy"`
	WindowStart int64      `json:"window_start"`
}

// Key derives the cache key for a request.
func Key(engine string, req domain.Request) string {
	m := keyMaterial{
		Engine:      engine,
		TaskID:      req.Task.ID.String(),
		Description: req.Task.Description,
		Priority:    req.Task.Priority.String(),
		Minutes:     int64(req.Task.Duration / time.Minute),
		Busy:        make([][2]int64, 0, len(req.Busy)),
		WindowStart: req.Window.Start.UTC().Truncate(windowBucket).Unix(),
	}
	if req.Task.Deadline != nil {
		m.Deadline = req.Task.Deadline.Unix()
	}
	for _, b := range req.Busy {
		m.Busy = append(m.Busy, [2]int64{b.Start.Unix(), b.End.Unix()})
	}
	raw, _ := json.Marshal(m)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
