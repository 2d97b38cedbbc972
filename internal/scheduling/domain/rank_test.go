package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	calendar "github.com/felixgeelhaar/tempo/internal/calendar/domain"
	"github.com/felixgeelhaar/tempo/internal/productivity/domain/task"
)

var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func at(day, hour, minute int) time.Time {
	return monday.AddDate(0, 0, day).Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func reportRequest(priority task.Priority) Request {
	return Request{
		Task: TaskSnapshot{Description: "Write report", Priority: priority, Duration: 45 * time.Minute},
		Busy: []calendar.BusyInterval{{Start: at(0, 9, 0), End: at(0, 10, 0)}},
		Window: calendar.Window{
			Start: at(0, 7, 0),
			End:   at(3, 7, 0),
		},
	}
}

func TestRank_DropsBusyOverlaps(t *testing.T) {
	got := Rank(reportRequest(task.PriorityMedium), []Suggestion{
		{Start: at(0, 9, 30), Reason: "inside busy"},
		{Start: at(0, 8, 30), Reason: "runs into busy"},
		{Start: at(0, 10, 0), Reason: "right after"},
	})

	require.Len(t, got, 1)
	assert.Equal(t, at(0, 10, 0), got[0].Start)
}

func TestRank_DropsOutsideWindow(t *testing.T) {
	got := Rank(reportRequest(task.PriorityLow), []Suggestion{
		{Start: at(0, 6, 0), Reason: "before window"},
		{Start: at(3, 6, 30), Reason: "ends after window"},
		{Start: at(1, 14, 0), Reason: "ok"},
	})

	require.Len(t, got, 1)
	assert.Equal(t, "ok", got[0].Reason)
}

func TestRank_HighPriorityPrefersFocusHours(t *testing.T) {
	got := Rank(reportRequest(task.PriorityHigh), []Suggestion{
		{Start: at(0, 14, 0), Reason: "afternoon"},
		{Start: at(0, 10, 0), Reason: "after standup"},
		{Start: at(1, 15, 0), Reason: "late"},
		{Start: at(1, 9, 0), Reason: "tuesday morning"},
	})

	require.Len(t, got, MaxSuggestions)
	assert.Equal(t, "after standup", got[0].Reason)
	assert.Equal(t, "tuesday morning", got[1].Reason)
	assert.Equal(t, "afternoon", got[2].Reason)
}

func TestRank_FocusSlotMustEndByNoon(t *testing.T) {
	got := Rank(reportRequest(task.PriorityHigh), []Suggestion{
		{Start: at(0, 11, 45), Reason: "runs past noon"},
		{Start: at(1, 11, 15), Reason: "ends at noon"},
	})

	require.Len(t, got, 2)
	assert.Equal(t, "ends at noon", got[0].Reason)
	assert.Equal(t, "runs past noon", got[1].Reason)
}

func TestInFocusHours(t *testing.T) {
	tests := []struct {
		name     string
		start    time.Time
		duration time.Duration
		want     bool
	}{
		{"starts at nine", at(0, 9, 0), time.Hour, true},
		{"ends exactly at noon", at(0, 11, 15), 45 * time.Minute, true},
		{"runs past noon", at(0, 11, 45), 45 * time.Minute, false},
		{"before focus block", at(0, 8, 30), time.Hour, false},
		{"afternoon", at(0, 14, 0), 30 * time.Minute, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InFocusHours(tt.start, tt.duration))
		})
	}
}

func TestRank_NonHighKeepsEngineOrder(t *testing.T) {
	got := Rank(reportRequest(task.PriorityMedium), []Suggestion{
		{Start: at(0, 14, 0), Reason: "a"},
		{Start: at(0, 10, 0), Reason: "b"},
	})

	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Reason)
	assert.Equal(t, "b", got[1].Reason)
}

func TestRank_CollapsesDuplicatesAndNormalizes(t *testing.T) {
	cet := time.FixedZone("CET", 3600)
	got := Rank(reportRequest(task.PriorityMedium), []Suggestion{
		{Start: at(1, 13, 0), Reason: "first"},
		{Start: at(1, 13, 0).In(cet), Reason: "same instant"},
	})

	require.Len(t, got, 1)
	assert.Equal(t, time.UTC, got[0].Start.Location())
}

func TestRank_DefaultDurationWhenMissing(t *testing.T) {
	req := reportRequest(task.PriorityMedium)
	req.Task.Duration = 0

	got := Rank(req, []Suggestion{{Start: at(0, 8, 30), Reason: "fits 30m before busy"}})

	assert.Len(t, got, 1)
}

func TestRank_EmptyInput(t *testing.T) {
	got := Rank(reportRequest(task.PriorityHigh), nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
