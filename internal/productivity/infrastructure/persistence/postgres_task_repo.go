package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/tempo/internal/productivity/domain/task"
	"github.com/felixgeelhaar/tempo/internal/shared/infrastructure/database"
)

const taskColumns = `id, user_id, description, priority, estimated_duration, deadline, status,
	scheduled_start, scheduled_end, remote_event_id, created_at, updated_at`

// PostgresTaskRepository implements task.Repository using PostgreSQL.
type PostgresTaskRepository struct {
	conn database.Connection
}

// NewPostgresTaskRepository creates a new PostgreSQL task repository.
func NewPostgresTaskRepository(conn database.Connection) *PostgresTaskRepository {
	return &PostgresTaskRepository{conn: conn}
}

// Save upserts the task row.
func (r *PostgresTaskRepository) Save(ctx context.Context, t *task.Task) error {
	_, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			description = EXCLUDED.description,
			priority = EXCLUDED.priority,
			estimated_duration = EXCLUDED.estimated_duration,
			deadline = EXCLUDED.deadline,
			status = EXCLUDED.status,
			scheduled_start = EXCLUDED.scheduled_start,
			scheduled_end = EXCLUDED.scheduled_end,
			remote_event_id = EXCLUDED.remote_event_id,
			updated_at = EXCLUDED.updated_at`,
		t.ID(), t.UserID(), t.Description(), t.Priority().String(), nullableMinutes(t), t.Deadline(),
		t.Status().String(), t.ScheduledStart(), t.ScheduledEnd(), t.RemoteEventID(),
		t.CreatedAt(), t.UpdatedAt(),
	)
	return err
}

// FindByID retrieves a task by its ID.
func (r *PostgresTaskRepository) FindByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	row := database.ExecutorFromContext(ctx, r.conn).QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	t, err := r.scan(row)
	if database.IsNoRows(err) {
		return nil, task.ErrTaskNotFound
	}
	return t, err
}

// FindByUserID retrieves all tasks for a user, oldest first.
func (r *PostgresTaskRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*task.Task, error) {
	rows, err := database.ExecutorFromContext(ctx, r.conn).Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var tasks []*task.Task
	for rows.Next() {
		t, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Delete removes a task.
func (r *PostgresTaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return task.ErrTaskNotFound
	}
	return nil
}

func (r *PostgresTaskRepository) scan(row database.Row) (*task.Task, error) {
	var (
		s                    task.State
		priority, status     string
		minutes              *int64
		deadline, start, end *time.Time
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.Description, &priority, &minutes, &deadline, &status,
		&start, &end, &s.RemoteEventID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}

	var err error
	if s.Priority, s.Status, err = decodeEnums(priority, status); err != nil {
		return nil, err
	}
	if minutes != nil {
		s.EstimatedMinutes = int(*minutes)
	}
	s.Deadline, s.ScheduledStart, s.ScheduledEnd = deadline, start, end
	return task.RehydrateTask(s), nil
}
