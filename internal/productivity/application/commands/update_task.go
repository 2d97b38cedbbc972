package commands

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/tempo/internal/productivity/domain/task"
	sharedApplication "github.com/felixgeelhaar/tempo/internal/shared/application"
	"github.com/felixgeelhaar/tempo/internal/shared/infrastructure/eventbus"
)

// UpdateTaskCommand contains the data needed to update a task. Nil fields
// are left unchanged.
type UpdateTaskCommand struct {
	TaskID           uuid.UUID
	UserID           uuid.UUID
	Description      *string
	Priority         *string
	EstimatedMinutes *int
	ClearEstimate    bool
	Deadline         *time.Time
	ClearDeadline    bool
	Status           *string
}

// UpdateTaskHandler handles the UpdateTaskCommand.
type UpdateTaskHandler struct {
	taskRepo task.Repository
	uow      sharedApplication.UnitOfWork
	events   *eventbus.Dispatcher
}

// NewUpdateTaskHandler creates a new UpdateTaskHandler.
func NewUpdateTaskHandler(taskRepo task.Repository, uow sharedApplication.UnitOfWork, events *eventbus.Dispatcher) *UpdateTaskHandler {
	if events == nil {
		events = eventbus.NewDispatcher(nil, nil)
	}
	return &UpdateTaskHandler{taskRepo: taskRepo, uow: uow, events: events}
}

// Handle executes the UpdateTaskCommand. A task owned by another user is
// reported as task.ErrTaskNotFound.
func (h *UpdateTaskHandler) Handle(ctx context.Context, cmd UpdateTaskCommand) (*task.Task, error) {
	var updated *task.Task

	err := sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		t, err := h.taskRepo.FindByID(txCtx, cmd.TaskID)
		if err != nil {
			return err
		}
		if !t.OwnedBy(cmd.UserID) {
			return task.ErrTaskNotFound
		}

		if err := apply(t, cmd); err != nil {
			return err
		}
		if err := h.taskRepo.Save(txCtx, t); err != nil {
			return err
		}
		updated = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.events.Dispatch(ctx, updated)
	return updated, nil
}

func apply(t *task.Task, cmd UpdateTaskCommand) error {
	if cmd.Description != nil {
		if err := t.SetDescription(*cmd.Description); err != nil {
			return err
		}
	}

	if cmd.Priority != nil {
		priority, err := task.ParsePriority(*cmd.Priority)
		if err != nil {
			return err
		}
		if err := t.SetPriority(priority); err != nil {
			return err
		}
	}

	switch {
	case cmd.ClearEstimate:
		t.ClearEstimate()
	case cmd.EstimatedMinutes != nil:
		if err := t.SetEstimatedMinutes(*cmd.EstimatedMinutes); err != nil {
			return err
		}
	}

	switch {
	case cmd.ClearDeadline:
		t.SetDeadline(nil)
	case cmd.Deadline != nil:
		t.SetDeadline(cmd.Deadline)
	}

	if cmd.Status != nil {
		status, err := task.ParseStatus(*cmd.Status)
		if err != nil {
			return err
		}
		if err := t.SetStatus(status); err != nil {
			return err
		}
	}
	return nil
}
