// Package heuristic proposes working-hours slots locally. It is the engine
// used when no AI provider is configured.
package heuristic

import (
	"context"
	"sort"
	"time"

	calendar "github.com/felixgeelhaar/tempo/internal/calendar/domain"
	"github.com/felixgeelhaar/tempo/internal/productivity/domain/task"
	"github.com/felixgeelhaar/tempo/internal/scheduling/domain"
)

const (
	WorkdayStartHour = 9
	WorkdayEndHour   = 17
	Step             = 30 * time.Minute
)

const (
	reasonFocus     = "Morning slot for peak focus"
	reasonGap       = "Fits in the gap between your commitments"
	reasonOpen      = "Open block with no meetings around it"
	reasonDeadline  = "Leaves room before the deadline"
	shortTaskCutoff = 30 * time.Minute
)

// Engine walks working hours in fixed steps and picks free slots.
type Engine struct{}

func New() *Engine { return &Engine{} }

func (e *Engine) Name() string { return "heuristic" }

// Suggest returns up to domain.MaxSuggestions free slots, at most one per
// day on the first pass so options spread across the window.
func (e *Engine) Suggest(_ context.Context, req domain.Request) ([]domain.Suggestion, error) {
	duration := req.Task.Duration
	if duration <= 0 {
		duration = task.DefaultDuration
	}
	busy := sortedBusy(req.Busy)

	candidates := freeSlots(req.Window, busy, duration)
	if dl := req.Task.Deadline; dl != nil {
		if before := beforeDeadline(candidates, duration, *dl); len(before) > 0 {
			candidates = before
		}
	}
	if len(candidates) == 0 {
		return []domain.Suggestion{}, nil
	}

	preferFocus := req.Task.Priority == task.PriorityHigh
	picked := pick(candidates, duration, preferFocus)

	out := make([]domain.Suggestion, 0, len(picked))
	for _, start := range picked {
		out = append(out, domain.Suggestion{Start: start, Reason: reason(req.Task, start, duration, busy)})
	}
	return domain.Rank(req, out), nil
}

func sortedBusy(busy []calendar.BusyInterval) []calendar.BusyInterval {
	out := append([]calendar.BusyInterval(nil), busy...)
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// freeSlots lists every step-aligned start inside working hours where the
// task fits without touching a busy interval.
func freeSlots(window calendar.Window, busy []calendar.BusyInterval, duration time.Duration) []time.Time {
	var slots []time.Time
	first := window.Start.UTC().Truncate(Step)
	if first.Before(window.Start) {
		first = first.Add(Step)
	}
	for start := first; !start.Add(duration).After(window.End); start = start.Add(Step) {
		if !withinWorkday(start, duration) {
			continue
		}
		end := start.Add(duration)
		free := true
		for _, b := range busy {
			if b.Overlaps(start, end) {
				free = false
				break
			}
		}
		if free {
			slots = append(slots, start)
		}
	}
	return slots
}

func withinWorkday(start time.Time, duration time.Duration) bool {
	dayStart := time.Date(start.Year(), start.Month(), start.Day(), WorkdayStartHour, 0, 0, 0, time.UTC)
	dayEnd := time.Date(start.Year(), start.Month(), start.Day(), WorkdayEndHour, 0, 0, 0, time.UTC)
	return !start.Before(dayStart) && !start.Add(duration).After(dayEnd)
}

func beforeDeadline(slots []time.Time, duration time.Duration, deadline time.Time) []time.Time {
	var out []time.Time
	for _, s := range slots {
		if !s.Add(duration).After(deadline) {
			out = append(out, s)
		}
	}
	return out
}

// pick chooses one slot per day, focus hours first when preferFocus, then
// fills any remaining places with further non-overlapping slots.
func pick(candidates []time.Time, duration time.Duration, preferFocus bool) []time.Time {
	byDay := map[string][]time.Time{}
	var days []string
	for _, c := range candidates {
		key := c.Format(time.DateOnly)
		if _, ok := byDay[key]; !ok {
			days = append(days, key)
		}
		byDay[key] = append(byDay[key], c)
	}

	var picked []time.Time
	taken := func(t time.Time) bool {
		for _, p := range picked {
			if t.Before(p.Add(duration)) && p.Before(t.Add(duration)) {
				return true
			}
		}
		return false
	}

	for _, day := range days {
		if len(picked) == domain.MaxSuggestions {
			break
		}
		picked = append(picked, best(byDay[day], duration, preferFocus))
	}
	for _, c := range candidates {
		if len(picked) == domain.MaxSuggestions {
			break
		}
		if !taken(c) {
			picked = append(picked, c)
		}
	}

	sort.Slice(picked, func(i, j int) bool { return picked[i].Before(picked[j]) })
	return picked
}

func best(slots []time.Time, duration time.Duration, preferFocus bool) time.Time {
	if preferFocus {
		for _, s := range slots {
			if domain.InFocusHours(s, duration) {
				return s
			}
		}
	}
	return slots[0]
}

func reason(t domain.TaskSnapshot, start time.Time, duration time.Duration, busy []calendar.BusyInterval) string {
	end := start.Add(duration)
	switch {
	case t.Priority == task.PriorityHigh && domain.InFocusHours(start, duration):
		return reasonFocus
	case adjacent(start, end, busy) || duration < shortTaskCutoff:
		return reasonGap
	case t.Deadline != nil:
		return reasonDeadline
	default:
		return reasonOpen
	}
}

func adjacent(start, end time.Time, busy []calendar.BusyInterval) bool {
	for _, b := range busy {
		if b.End.Equal(start) || b.Start.Equal(end) {
			return true
		}
	}
	return false
}
