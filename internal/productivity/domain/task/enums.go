package task

import (
	"errors"
	"strings"
)

var (
	ErrInvalidPriority = errors.New("priority must be one of High, Medium, Low")
	ErrInvalidStatus   = errors.New("status must be one of Pending, Scheduled, Completed")
)

// Priority is the urgency a user assigns to a task.
type Priority int

const (
	PriorityMedium Priority = iota
	PriorityHigh
	PriorityLow
)

// DefaultPriority applies when a task is created without one.
const DefaultPriority = PriorityMedium

// ParsePriority accepts the canonical names in any letter case.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return PriorityHigh, nil
	case "medium":
		return PriorityMedium, nil
	case "low":
		return PriorityLow, nil
	default:
		return PriorityMedium, ErrInvalidPriority
	}
}

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "High"
	case PriorityMedium:
		return "Medium"
	case PriorityLow:
		return "Low"
	default:
		return "Unknown"
	}
}

// IsValid reports whether p is one of the declared priorities.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// Status is the lifecycle state of a task.
type Status int

const (
	StatusPending Status = iota
	StatusScheduled
	StatusCompleted
)

// ParseStatus accepts the canonical names in any letter case.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return StatusPending, nil
	case "scheduled":
		return StatusScheduled, nil
	case "completed":
		return StatusCompleted, nil
	default:
		return StatusPending, ErrInvalidStatus
	}
}

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusScheduled:
		return "Scheduled"
	case StatusCompleted:
		return "Completed"
	default:
		return "Unknown"
	}
}
