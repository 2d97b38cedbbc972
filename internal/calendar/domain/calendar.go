// Package domain holds the calendar vocabulary shared by the Google client
// and the scheduling context.
package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	identity "github.com/felixgeelhaar/tempo/internal/identity/domain"
)

// LookaheadDuration is how far ahead availability and suggestions look.
const LookaheadDuration = 72 * time.Hour

// EventDescription is written into every event this service creates.
const EventDescription = "Scheduled via Productivity Planner"

var (
	// ErrNotConnected means no access token is stored for the user.
	ErrNotConnected = errors.New("google calendar not connected")
	// ErrAuthExpired means the provider rejected the token and refreshing
	// produced no replacement.
	ErrAuthExpired = errors.New("calendar authorization expired, please reconnect")
	// ErrMalformedResponse means the provider answered 2xx with a body that
	// could not be interpreted.
	ErrMalformedResponse = errors.New("calendar provider returned a malformed response")
)

// UpstreamError is a non-auth failure reported by the calendar provider.
// Status is 0 when the provider could not be reached at all.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("calendar provider unreachable: %s", e.Body)
	}
	return fmt.Sprintf("calendar provider returned status %d", e.Status)
}

// Window is a half-open UTC time range [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// LookaheadWindow returns [now, now+72h) in UTC.
func LookaheadWindow(now time.Time) Window {
	now = now.UTC()
	return Window{Start: now, End: now.Add(LookaheadDuration)}
}

// Contains reports whether [start, end) lies entirely inside the window.
func (w Window) Contains(start, end time.Time) bool {
	return !start.Before(w.Start) && !end.After(w.End)
}

// BusyInterval is a period the user's calendar reports as occupied.
type BusyInterval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether [start, end) intersects the interval. Touching
// edges do not overlap.
func (b BusyInterval) Overlaps(start, end time.Time) bool {
	return start.Before(b.End) && end.After(b.Start)
}

// CreatedEvent identifies an event created on the user's calendar.
type CreatedEvent struct {
	ID   string
	Link string
}

// Client is the calendar port used by the scheduling context.
type Client interface {
	GetBusy(ctx context.Context, user *identity.User, window Window) ([]BusyInterval, error)
	CreateEvent(ctx context.Context, user *identity.User, summary string, start, end time.Time) (CreatedEvent, error)
}
