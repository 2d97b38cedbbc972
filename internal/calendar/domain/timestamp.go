package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// ErrInvalidTimestamp is returned for empty or unparseable timestamps.
var ErrInvalidTimestamp = errors.New("timestamp must be ISO-8601, e.g. 2026-03-02T10:00:00Z")

var (
	zoneSuffix    = regexp.MustCompile(`(Z|[+-]\d{2}:\d{2})$`)
	compactOffset = regexp.MustCompile(`T[\d:.]+[+-]\d{2}(\d{2})$`)
)

// NormalizeTimestamp parses an ISO-8601 instant and returns it in UTC.
// A timestamp without a zone designator is taken to be UTC already.
func NormalizeTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidTimestamp
	}
	// +0200 becomes +02:00.
	if m := compactOffset.FindStringSubmatchIndex(s); m != nil {
		s = s[:m[2]] + ":" + s[m[2]:]
	}
	switch {
	case strings.HasSuffix(s, "z"):
		s = strings.TrimSuffix(s, "z") + "Z"
	case !zoneSuffix.MatchString(s):
		s += "Z"
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, ErrInvalidTimestamp
	}
	return t.UTC(), nil
}

// FormatTimestamp renders t as an RFC 3339 UTC string.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
