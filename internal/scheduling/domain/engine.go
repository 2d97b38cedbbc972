// Package domain defines the suggestion engine contract and the rules every
// engine's output is held to before it reaches a user.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	calendar "github.com/felixgeelhaar/tempo/internal/calendar/domain"
	"github.com/felixgeelhaar/tempo/internal/productivity/domain/task"
)

var (
	// ErrEngineUnavailable means the engine could not be reached or refused
	// the request.
	ErrEngineUnavailable = errors.New("suggestion engine unavailable")
	// ErrEngineBlocked means the engine withheld its answer.
	ErrEngineBlocked = errors.New("suggestion engine blocked the request")
	// ErrEngineMalformedOutput means the engine answered with something
	// that is not a suggestion list.
	ErrEngineMalformedOutput = errors.New("suggestion engine returned malformed output")
)

// Suggestion is a proposed start time with a human-readable justification.
type Suggestion struct {
	Start  time.Time
	Reason string
}

// TaskSnapshot is the part of a task an engine needs.
type TaskSnapshot struct {
	ID          uuid.UUID
	Description string
	Priority    task.Priority
	Duration    time.Duration
	Deadline    *time.Time
}

// SnapshotOf copies the engine-relevant fields out of a task.
func SnapshotOf(t *task.Task) TaskSnapshot {
	return TaskSnapshot{
		ID:          t.ID(),
		Description: t.Description(),
		Priority:    t.Priority(),
		Duration:    t.Duration(),
		Deadline:    t.Deadline(),
	}
}

// Request is the input to an engine.
type Request struct {
	Task   TaskSnapshot
	Busy   []calendar.BusyInterval
	Window calendar.Window
}

// Engine proposes start times for a task.
type Engine interface {
	Name() string
	Suggest(ctx context.Context, req Request) ([]Suggestion, error)
}
