package task

import (
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/tempo/internal/shared/domain"
)

const (
	AggregateType = "Task"

	RoutingKeyCreated   = "productivity.task.created"
	RoutingKeyScheduled = "productivity.task.scheduled"
	RoutingKeyCompleted = "productivity.task.completed"
)

var (
	_ domain.DomainEvent = TaskCreated{}
	_ domain.DomainEvent = TaskScheduled{}
	_ domain.DomainEvent = TaskCompleted{}
)

// TaskCreated is emitted when a new task is created.
type TaskCreated struct {
	domain.BaseEvent
	UserID      uuid.UUID `json:"user_id"`
	Description string    `json:"description"`
	Priority    string    `json:"priority"`
}

func NewTaskCreated(taskID, userID uuid.UUID, description, priority string) TaskCreated {
	return TaskCreated{
		BaseEvent:   domain.NewBaseEvent(taskID, AggregateType, RoutingKeyCreated),
		UserID:      userID,
		Description: description,
		Priority:    priority,
	}
}

// TaskScheduled is emitted once a calendar event backs the task.
type TaskScheduled struct {
	domain.BaseEvent
	UserID          uuid.UUID `json:"user_id"`
	CalendarEventID string    `json:"google_event_id"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
}

func NewTaskScheduled(taskID, userID uuid.UUID, eventID string, start, end time.Time) TaskScheduled {
	return TaskScheduled{
		BaseEvent:       domain.NewBaseEvent(taskID, AggregateType, RoutingKeyScheduled),
		UserID:          userID,
		CalendarEventID: eventID,
		Start:           start,
		End:             end,
	}
}

// TaskCompleted is emitted when a task is marked Completed.
type TaskCompleted struct {
	domain.BaseEvent
	UserID uuid.UUID `json:"user_id"`
}

func NewTaskCompleted(taskID, userID uuid.UUID) TaskCompleted {
	return TaskCompleted{
		BaseEvent: domain.NewBaseEvent(taskID, AggregateType, RoutingKeyCompleted),
		UserID:    userID,
	}
}
