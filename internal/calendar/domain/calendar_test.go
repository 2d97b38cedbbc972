package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTimestamp(t *testing.T) {
	want := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{"bare timestamp is UTC", "2026-03-02T10:00:00", want},
		{"zulu", "2026-03-02T10:00:00Z", want},
		{"lowercase zulu", "2026-03-02T10:00:00z", want},
		{"offset converted", "2026-03-02T12:00:00+02:00", want},
		{"negative offset", "2026-03-02T05:00:00-05:00", want},
		{"compact offset", "2026-03-02T12:00:00+0200", want},
		{"compact negative offset", "2026-03-02T05:00:00-0500", want},
		{"surrounding whitespace", "  2026-03-02T10:00:00Z ", want},
		{"fractional seconds", "2026-03-02T10:00:00.250", want.Add(250 * time.Millisecond)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeTimestamp(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestNormalizeTimestamp_Invalid(t *testing.T) {
	for _, in := range []string{"", "   ", "tomorrow", "2026-03-02", "2026-13-02T10:00:00", "2026-03-02T10:00"} {
		_, err := NormalizeTimestamp(in)
		assert.ErrorIs(t, err, ErrInvalidTimestamp, "input %q", in)
	}
}

func TestLookaheadWindow(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 30, 0, 0, time.FixedZone("CET", 3600))

	w := LookaheadWindow(now)

	assert.Equal(t, time.UTC, w.Start.Location())
	assert.True(t, w.Start.Equal(now))
	assert.Equal(t, 72*time.Hour, w.End.Sub(w.Start))
	assert.True(t, w.Contains(w.Start, w.Start.Add(time.Hour)))
	assert.False(t, w.Contains(w.End.Add(-time.Minute), w.End.Add(time.Minute)))
	assert.False(t, w.Contains(w.Start.Add(-time.Minute), w.Start.Add(time.Hour)))
}

func TestBusyInterval_Overlaps(t *testing.T) {
	nine := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	busy := BusyInterval{Start: nine, End: nine.Add(time.Hour)}

	assert.True(t, busy.Overlaps(nine.Add(30*time.Minute), nine.Add(90*time.Minute)))
	assert.True(t, busy.Overlaps(nine.Add(-30*time.Minute), nine.Add(10*time.Minute)))
	assert.True(t, busy.Overlaps(nine.Add(-time.Hour), nine.Add(2*time.Hour)))
	assert.False(t, busy.Overlaps(nine.Add(time.Hour), nine.Add(2*time.Hour)), "touching end")
	assert.False(t, busy.Overlaps(nine.Add(-time.Hour), nine), "touching start")
}

func TestUpstreamError(t *testing.T) {
	assert.Equal(t, "calendar provider returned status 500", (&UpstreamError{Status: 500, Body: "boom"}).Error())
	assert.Contains(t, (&UpstreamError{Body: "dial tcp: refused"}).Error(), "unreachable")
}
