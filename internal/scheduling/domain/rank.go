package domain

import (
	"sort"
	"time"

	"github.com/felixgeelhaar/tempo/internal/productivity/domain/task"
)

// MaxSuggestions caps what is returned to the user.
const MaxSuggestions = 3

// Focus hours, UTC.
const (
	FocusStartHour = 9
	FocusEndHour   = 12
)

// InFocusHours reports whether [start, start+duration) lies inside the
// morning focus block of its day.
func InFocusHours(start time.Time, duration time.Duration) bool {
	start = start.UTC()
	from := time.Date(start.Year(), start.Month(), start.Day(), FocusStartHour, 0, 0, 0, time.UTC)
	to := time.Date(start.Year(), start.Month(), start.Day(), FocusEndHour, 0, 0, 0, time.UTC)
	return !start.Before(from) && !start.Add(duration).After(to)
}

// Rank enforces the engine contract on raw output: suggestions that fall
// outside the window or collide with a busy interval are dropped, duplicate
// starts are collapsed, High-priority tasks get focus-hour starts first, and
// at most MaxSuggestions remain. Engine order is otherwise preserved.
func Rank(req Request, suggestions []Suggestion) []Suggestion {
	duration := req.Task.Duration
	if duration <= 0 {
		duration = task.DefaultDuration
	}

	seen := make(map[int64]struct{}, len(suggestions))
	kept := make([]Suggestion, 0, len(suggestions))
	for _, s := range suggestions {
		start := s.Start.UTC()
		end := start.Add(duration)
		if !req.Window.Contains(start, end) || collides(req, start, end) {
			continue
		}
		if _, dup := seen[start.Unix()]; dup {
			continue
		}
		seen[start.Unix()] = struct{}{}
		kept = append(kept, Suggestion{Start: start, Reason: s.Reason})
	}

	if req.Task.Priority == task.PriorityHigh {
		sort.SliceStable(kept, func(i, j int) bool {
			return InFocusHours(kept[i].Start, duration) && !InFocusHours(kept[j].Start, duration)
		})
	}

	if len(kept) > MaxSuggestions {
		kept = kept[:MaxSuggestions]
	}
	return kept
}

func collides(req Request, start, end time.Time) bool {
	for _, b := range req.Busy {
		if b.Overlaps(start, end) {
			return true
		}
	}
	return false
}
