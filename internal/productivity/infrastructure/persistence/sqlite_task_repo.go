package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/tempo/internal/productivity/domain/task"
	"github.com/felixgeelhaar/tempo/internal/shared/infrastructure/database"
)

// sqliteTimeLayout is fixed width so text comparison orders chronologically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteTaskRepository implements task.Repository using SQLite.
type SQLiteTaskRepository struct {
	conn database.Connection
}

// NewSQLiteTaskRepository creates a new SQLite task repository.
func NewSQLiteTaskRepository(conn database.Connection) *SQLiteTaskRepository {
	return &SQLiteTaskRepository{conn: conn}
}

// Save upserts the task row.
func (r *SQLiteTaskRepository) Save(ctx context.Context, t *task.Task) error {
	_, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			description = excluded.description,
			priority = excluded.priority,
			estimated_duration = excluded.estimated_duration,
			deadline = excluded.deadline,
			status = excluded.status,
			scheduled_start = excluded.scheduled_start,
			scheduled_end = excluded.scheduled_end,
			remote_event_id = excluded.remote_event_id,
			updated_at = excluded.updated_at`,
		t.ID().String(), t.UserID().String(), t.Description(), t.Priority().String(), nullableMinutes(t),
		formatNullable(t.Deadline()), t.Status().String(),
		formatNullable(t.ScheduledStart()), formatNullable(t.ScheduledEnd()), t.RemoteEventID(),
		formatTime(t.CreatedAt()), formatTime(t.UpdatedAt()),
	)
	return err
}

// FindByID retrieves a task by its ID.
func (r *SQLiteTaskRepository) FindByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	row := database.ExecutorFromContext(ctx, r.conn).QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id.String())
	t, err := r.scan(row)
	if database.IsNoRows(err) {
		return nil, task.ErrTaskNotFound
	}
	return t, err
}

// FindByUserID retrieves all tasks for a user, oldest first.
func (r *SQLiteTaskRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*task.Task, error) {
	rows, err := database.ExecutorFromContext(ctx, r.conn).Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE user_id = ? ORDER BY created_at, rowid`, userID.String())
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
func (r *SQLiteTaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, `DELETE FROM tasks WHERE id = ?`, id.String())
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

func (r *SQLiteTaskRepository) scan(row database.Row) (*task.Task, error) {
	var (
		id, userID, description   string
		priority, status, eventID string
		createdAt, updatedAt      string
		minutes                   sql.NullInt64
		deadline, start, end      sql.NullString
	)
	if err := row.Scan(&id, &userID, &description, &priority, &minutes, &deadline, &status,
		&start, &end, &eventID, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	s := task.State{Description: description, RemoteEventID: eventID}
	var err error
	if s.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("task id %q: %w", id, err)
	}
	if s.UserID, err = uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("task user id %q: %w", userID, err)
	}
	if s.Priority, s.Status, err = decodeEnums(priority, status); err != nil {
		return nil, err
	}
	if minutes.Valid {
		s.EstimatedMinutes = int(minutes.Int64)
	}
	if s.Deadline, err = parseNullable(deadline); err != nil {
		return nil, err
	}
	if s.ScheduledStart, err = parseNullable(start); err != nil {
		return nil, err
	}
	if s.ScheduledEnd, err = parseNullable(end); err != nil {
		return nil, err
	}
	if s.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if s.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return task.RehydrateTask(s), nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func formatNullable(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("stored timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func parseNullable(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
