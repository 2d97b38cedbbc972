package queries

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/tempo/internal/productivity/domain/task"
)

// TaskDTO is a data transfer object for tasks.
type TaskDTO struct {
	ID               uuid.UUID
	Description      string
	Priority         string
	EstimatedMinutes *int
	Deadline         *time.Time
	Status           string
	ScheduledStart   *time.Time
	ScheduledEnd     *time.Time
	RemoteEventID    string
	CreatedAt        time.Time
}

// ToDTO flattens a task for presentation.
func ToDTO(t *task.Task) TaskDTO {
	dto := TaskDTO{
		ID:             t.ID(),
		Description:    t.Description(),
		Priority:       t.Priority().String(),
		Deadline:       t.Deadline(),
		Status:         t.Status().String(),
		ScheduledStart: t.ScheduledStart(),
		ScheduledEnd:   t.ScheduledEnd(),
		RemoteEventID:  t.RemoteEventID(),
		CreatedAt:      t.CreatedAt(),
	}
	if m := t.EstimatedMinutes(); m > 0 {
		dto.EstimatedMinutes = &m
	}
	return dto
}

// ListTasksQuery contains the parameters for listing tasks.
type ListTasksQuery struct {
	UserID uuid.UUID
	Status string // optional filter, case-insensitive
}

// ListTasksHandler handles the ListTasksQuery.
type ListTasksHandler struct {
	taskRepo task.Repository
}

// NewListTasksHandler creates a new ListTasksHandler.
func NewListTasksHandler(taskRepo task.Repository) *ListTasksHandler {
	return &ListTasksHandler{taskRepo: taskRepo}
}

// Handle executes the ListTasksQuery. Results keep creation order.
func (h *ListTasksHandler) Handle(ctx context.Context, query ListTasksQuery) ([]TaskDTO, error) {
	var (
		filter    task.Status
		filtering bool
	)
	if query.Status != "" {
		s, err := task.ParseStatus(query.Status)
		if err != nil {
			return nil, err
		}
		filter, filtering = s, true
	}

	tasks, err := h.taskRepo.FindByUserID(ctx, query.UserID)
	if err != nil {
		return nil, err
	}

	dtos := make([]TaskDTO, 0, len(tasks))
	for _, t := range tasks {
		if filtering && t.Status() != filter {
			continue
		}
		dtos = append(dtos, ToDTO(t))
	}
	return dtos, nil
}
