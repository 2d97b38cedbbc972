package commands

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/tempo/internal/productivity/domain/task"
	sharedApplication "github.com/felixgeelhaar/tempo/internal/shared/application"
	"github.com/felixgeelhaar/tempo/internal/shared/infrastructure/eventbus"
)

// CreateTaskCommand contains the data needed to create a task.
type CreateTaskCommand struct {
	UserID           uuid.UUID
	Description      string
	Priority         string // empty means Medium
	EstimatedMinutes *int
	Deadline         *time.Time
}

// CreateTaskHandler handles the CreateTaskCommand.
type CreateTaskHandler struct {
	taskRepo task.Repository
	uow      sharedApplication.UnitOfWork
	events   *eventbus.Dispatcher
}

// NewCreateTaskHandler creates a new CreateTaskHandler.
func NewCreateTaskHandler(taskRepo task.Repository, uow sharedApplication.UnitOfWork, events *eventbus.Dispatcher) *CreateTaskHandler {
	if events == nil {
		events = eventbus.NewDispatcher(nil, nil)
	}
	return &CreateTaskHandler{taskRepo: taskRepo, uow: uow, events: events}
}

// Handle executes the CreateTaskCommand.
func (h *CreateTaskHandler) Handle(ctx context.Context, cmd CreateTaskCommand) (*task.Task, error) {
	priority := task.DefaultPriority
	if cmd.Priority != "" {
		p, err := task.ParsePriority(cmd.Priority)
		if err != nil {
			return nil, err
		}
		priority = p
	}

	t, err := task.NewTask(cmd.UserID, cmd.Description, priority)
	if err != nil {
		return nil, err
	}
	if cmd.EstimatedMinutes != nil {
		if err := t.SetEstimatedMinutes(*cmd.EstimatedMinutes); err != nil {
			return nil, err
		}
	}
	if cmd.Deadline != nil {
		t.SetDeadline(cmd.Deadline)
	}

	err = sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		return h.taskRepo.Save(txCtx, t)
	})
	if err != nil {
		return nil, err
	}

	h.events.Dispatch(ctx, t)
	return t, nil
}
