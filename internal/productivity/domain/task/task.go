package task

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/felixgeelhaar/tempo/internal/shared/domain"
)

var (
	ErrEmptyDescription      = errors.New("task description cannot be empty")
	ErrInvalidDuration       = errors.New("estimated duration must be a positive number of minutes")
	ErrScheduleRequiresEvent = errors.New("a task becomes Scheduled only through a calendar event")
	ErrMissingEventID        = errors.New("calendar event id is required")
	ErrInvalidScheduleWindow = errors.New("scheduled end must be after start")
)

// DefaultDuration is assumed when a task carries no estimate.
const DefaultDuration = 30 * time.Minute

// Task is a unit of work owned by one user. A remote event id is present
// exactly while the task is Scheduled.
type Task struct {
	sharedDomain.BaseAggregateRoot
	userID           uuid.UUID
	description      string
	priority         Priority
	estimatedMinutes int
	deadline         *time.Time
	status           Status
	scheduledStart   *time.Time
	scheduledEnd     *time.Time
	remoteEventID    string
}

// NewTask creates a pending task.
func NewTask(userID uuid.UUID, description string, priority Priority) (*Task, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, ErrEmptyDescription
	}
	if !priority.IsValid() {
		return nil, ErrInvalidPriority
	}

	t := &Task{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		userID:            userID,
		description:       description,
		priority:          priority,
		status:            StatusPending,
	}
	t.AddDomainEvent(NewTaskCreated(t.ID(), userID, description, priority.String()))
	return t, nil
}

// State is the persisted form of a task.
type State struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	Description      string
	Priority         Priority
	EstimatedMinutes int
	Deadline         *time.Time
	Status           Status
	ScheduledStart   *time.Time
	ScheduledEnd     *time.Time
	RemoteEventID    string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// RehydrateTask rebuilds a task from storage without raising events.
func RehydrateTask(s State) *Task {
	return &Task{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(
			sharedDomain.RehydrateBaseEntity(s.ID, s.CreatedAt, s.UpdatedAt),
		),
		userID:           s.UserID,
		description:      s.Description,
		priority:         s.Priority,
		estimatedMinutes: s.EstimatedMinutes,
		deadline:         utcPtr(s.Deadline),
		status:           s.Status,
		scheduledStart:   utcPtr(s.ScheduledStart),
		scheduledEnd:     utcPtr(s.ScheduledEnd),
		remoteEventID:    s.RemoteEventID,
	}
}

func (t *Task) UserID() uuid.UUID          { return t.userID }
func (t *Task) Description() string        { return t.description }
func (t *Task) Priority() Priority         { return t.priority }
func (t *Task) Status() Status             { return t.status }
func (t *Task) Deadline() *time.Time       { return t.deadline }
func (t *Task) ScheduledStart() *time.Time { return t.scheduledStart }
func (t *Task) ScheduledEnd() *time.Time   { return t.scheduledEnd }
func (t *Task) RemoteEventID() string      { return t.remoteEventID }

// EstimatedMinutes returns the estimate, or 0 when none was given.
func (t *Task) EstimatedMinutes() int { return t.estimatedMinutes }

// Duration is the estimate as a time.Duration, falling back to DefaultDuration.
func (t *Task) Duration() time.Duration {
	if t.estimatedMinutes <= 0 {
		return DefaultDuration
	}
	return time.Duration(t.estimatedMinutes) * time.Minute
}

// OwnedBy reports whether userID owns the task.
func (t *Task) OwnedBy(userID uuid.UUID) bool { return t.userID == userID }

func (t *Task) SetDescription(description string) error {
	description = strings.TrimSpace(description)
	if description == "" {
		return ErrEmptyDescription
	}
	t.description = description
	t.Touch()
	return nil
}

func (t *Task) SetPriority(priority Priority) error {
	if !priority.IsValid() {
		return ErrInvalidPriority
	}
	t.priority = priority
	t.Touch()
	return nil
}

func (t *Task) SetEstimatedMinutes(minutes int) error {
	if minutes <= 0 {
		return ErrInvalidDuration
	}
	t.estimatedMinutes = minutes
	t.Touch()
	return nil
}

func (t *Task) ClearEstimate() {
	t.estimatedMinutes = 0
	t.Touch()
}

// SetDeadline replaces the deadline; nil clears it.
func (t *Task) SetDeadline(deadline *time.Time) {
	t.deadline = utcPtr(deadline)
	t.Touch()
}

// SetStatus moves the task to Pending or Completed. Leaving Scheduled drops
// the remote event id; the calendar event itself is left alone.
func (t *Task) SetStatus(status Status) error {
	switch status {
	case StatusScheduled:
		if t.status == StatusScheduled {
			return nil
		}
		return ErrScheduleRequiresEvent
	case StatusPending, StatusCompleted:
	default:
		return ErrInvalidStatus
	}
	if t.status == status {
		return nil
	}

	t.status = status
	t.remoteEventID = ""
	t.Touch()

	if status == StatusCompleted {
		t.AddDomainEvent(NewTaskCompleted(t.ID(), t.userID))
	}
	return nil
}

// Schedule records a successfully created calendar event for the task.
func (t *Task) Schedule(start, end time.Time, eventID string) error {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return ErrMissingEventID
	}
	if !end.After(start) {
		return ErrInvalidScheduleWindow
	}

	start, end = start.UTC(), end.UTC()
	t.status = StatusScheduled
	t.scheduledStart = &start
	t.scheduledEnd = &end
	t.remoteEventID = eventID
	t.Touch()

	t.AddDomainEvent(NewTaskScheduled(t.ID(), t.userID, eventID, start, end))
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
