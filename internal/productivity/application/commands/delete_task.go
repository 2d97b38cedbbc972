package commands

import (
	"context"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/tempo/internal/productivity/domain/task"
	sharedApplication "github.com/felixgeelhaar/tempo/internal/shared/application"
)

// DeleteTaskCommand removes a task at the owner's request.
type DeleteTaskCommand struct {
	TaskID uuid.UUID
	UserID uuid.UUID
}

// DeleteTaskHandler handles the DeleteTaskCommand. Any calendar event
// created for the task is left in place.
type DeleteTaskHandler struct {
	taskRepo task.Repository
	uow      sharedApplication.UnitOfWork
}

// NewDeleteTaskHandler creates a new DeleteTaskHandler.
func NewDeleteTaskHandler(taskRepo task.Repository, uow sharedApplication.UnitOfWork) *DeleteTaskHandler {
	return &DeleteTaskHandler{taskRepo: taskRepo, uow: uow}
}

// Handle executes the DeleteTaskCommand.
func (h *DeleteTaskHandler) Handle(ctx context.Context, cmd DeleteTaskCommand) error {
	return sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		t, err := h.taskRepo.FindByID(txCtx, cmd.TaskID)
		if err != nil {
			return err
		}
		if !t.OwnedBy(cmd.UserID) {
			return task.ErrTaskNotFound
		}
		return h.taskRepo.Delete(txCtx, t.ID())
	})
}
