package task

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrTaskNotFound covers both a missing task and one owned by someone else.
var ErrTaskNotFound = errors.New("task not found")

// Repository defines task persistence.
type Repository interface {
	Save(ctx context.Context, task *Task) error
	FindByID(ctx context.Context, id uuid.UUID) (*Task, error)
	// FindByUserID returns the user's tasks in creation order.
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]*Task, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
