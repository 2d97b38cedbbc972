// Package application coordinates tasks, the calendar and the suggestion
// engine.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	calendar "github.com/felixgeelhaar/tempo/internal/calendar/domain"
	identity "github.com/felixgeelhaar/tempo/internal/identity/domain"
	"github.com/felixgeelhaar/tempo/internal/productivity/domain/task"
	"github.com/felixgeelhaar/tempo/internal/scheduling/domain"
	sharedApplication "github.com/felixgeelhaar/tempo/internal/shared/application"
	"github.com/felixgeelhaar/tempo/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/tempo/pkg/observability"
)

// ErrMissingScheduleField is returned when a schedule request omits the task
// or either end of the slot.
var ErrMissingScheduleField = errors.New("task_id, start and end are required")

// ConnectionChecker reports whether a user has linked their calendar.
type ConnectionChecker interface {
	ConnectionStatus(ctx context.Context, userID uuid.UUID) (bool, error)
}

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Tasks       task.Repository
	Users       identity.UserRepository
	Calendar    calendar.Client
	Engine      domain.Engine
	Connections ConnectionChecker
	UnitOfWork  sharedApplication.UnitOfWork
	Events      *eventbus.Dispatcher
	Logger      *slog.Logger
	Metrics     observability.Metrics
}

// Orchestrator runs the suggestion and scheduling flows.
type Orchestrator struct {
	tasks       task.Repository
	users       identity.UserRepository
	calendar    calendar.Client
	engine      domain.Engine
	connections ConnectionChecker
	uow         sharedApplication.UnitOfWork
	events      *eventbus.Dispatcher
	logger      *slog.Logger
	metrics     observability.Metrics
	now         func() time.Time
}

func NewOrchestrator(d Deps) *Orchestrator {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Metrics == nil {
		d.Metrics = observability.NoopMetrics{}
	}
	if d.UnitOfWork == nil {
		d.UnitOfWork = sharedApplication.NoopUnitOfWork{}
	}
	if d.Events == nil {
		d.Events = eventbus.NewDispatcher(nil, d.Logger)
	}
	return &Orchestrator{
		tasks:       d.Tasks,
		users:       d.Users,
		calendar:    d.Calendar,
		engine:      d.Engine,
		connections: d.Connections,
		uow:         d.UnitOfWork,
		events:      d.Events,
		logger:      d.Logger,
		metrics:     d.Metrics,
		now:         time.Now,
	}
}

// RequestSuggestions proposes up to three start times for one of the user's
// tasks. A calendar that cannot be read is treated as free.
func (o *Orchestrator) RequestSuggestions(ctx context.Context, userID, taskID uuid.UUID) ([]domain.Suggestion, error) {
	t, err := o.ownedTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	user, err := o.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	window := calendar.LookaheadWindow(o.now())
	busy, err := o.calendar.GetBusy(ctx, user, window)
	if err != nil {
		o.logger.WarnContext(ctx, "calendar unavailable, suggesting against an empty calendar",
			"task_id", taskID, "error", err)
		busy = nil
	}

	req := domain.Request{Task: domain.SnapshotOf(t), Busy: busy, Window: window}
	raw, err := o.engine.Suggest(ctx, req)
	if err != nil {
		o.metrics.Counter(observability.MetricSuggestions, 1,
			observability.T("engine", o.engine.Name()), observability.T("outcome", engineOutcome(err)))
		return nil, err
	}

	out := domain.Rank(req, raw)
	o.metrics.Counter(observability.MetricSuggestions, 1,
		observability.T("engine", o.engine.Name()), observability.T("outcome", "success"))
	return out, nil
}

func engineOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrEngineUnavailable):
		return "unavailable"
	case errors.Is(err, domain.ErrEngineBlocked):
		return "blocked"
	case errors.Is(err, domain.ErrEngineMalformedOutput):
		return "malformed"
	default:
		return "error"
	}
}

// AvailabilityResult is the user's busy time over the lookahead window.
type AvailabilityResult struct {
	Window calendar.Window
	Busy   []calendar.BusyInterval
}

// Availability reads busy time without degrading on calendar failures.
func (o *Orchestrator) Availability(ctx context.Context, userID uuid.UUID) (*AvailabilityResult, error) {
	user, err := o.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	window := calendar.LookaheadWindow(o.now())
	busy, err := o.calendar.GetBusy(ctx, user, window)
	if err != nil {
		return nil, err
	}
	return &AvailabilityResult{Window: window, Busy: busy}, nil
}

// ScheduleTaskCommand books a task into the user's calendar. Start and End
// are timestamps as sent by the client; values without a zone are UTC.
type ScheduleTaskCommand struct {
	UserID uuid.UUID
	TaskID uuid.UUID
	Start  string
	End    string
}

// ScheduleResult describes the booked event and the updated task.
type ScheduleResult struct {
	EventID string
	Link    string
	Task    *task.Task
}

// ScheduleTask creates the calendar event first and only then marks the task
// scheduled. If the remote call fails the task is left as it was.
func (o *Orchestrator) ScheduleTask(ctx context.Context, cmd ScheduleTaskCommand) (*ScheduleResult, error) {
	if cmd.TaskID == uuid.Nil || strings.TrimSpace(cmd.Start) == "" || strings.TrimSpace(cmd.End) == "" {
		return nil, ErrMissingScheduleField
	}
	start, err := calendar.NormalizeTimestamp(cmd.Start)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	end, err := calendar.NormalizeTimestamp(cmd.End)
	if err != nil {
		return nil, fmt.Errorf("end: %w", err)
	}
	if !end.After(start) {
		return nil, task.ErrInvalidScheduleWindow
	}

	t, err := o.ownedTask(ctx, cmd.UserID, cmd.TaskID)
	if err != nil {
		return nil, err
	}
	user, err := o.users.FindByID(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	if !user.HasAccessToken() {
		return nil, calendar.ErrNotConnected
	}

	event, err := o.calendar.CreateEvent(ctx, user, t.Description(), start, end)
	if err != nil {
		return nil, err
	}

	var scheduled *task.Task
	err = sharedApplication.WithUnitOfWork(ctx, o.uow, func(txCtx context.Context) error {
		current, err := o.tasks.FindByID(txCtx, cmd.TaskID)
		if err != nil {
			return err
		}
		if err := current.Schedule(start, end, event.ID); err != nil {
			return err
		}
		if err := o.tasks.Save(txCtx, current); err != nil {
			return err
		}
		scheduled = current
		return nil
	})
	if err != nil {
		o.logger.ErrorContext(ctx, "calendar event created but task was not updated",
			"task_id", cmd.TaskID, "event_id", event.ID, "error", err)
		return nil, err
	}

	o.events.Dispatch(ctx, scheduled)
	o.logger.InfoContext(ctx, "task scheduled", "task_id", cmd.TaskID, "event_id", event.ID)
	return &ScheduleResult{EventID: event.ID, Link: event.Link, Task: scheduled}, nil
}

// ConnectionStatus reports whether the user's calendar is linked.
func (o *Orchestrator) ConnectionStatus(ctx context.Context, userID uuid.UUID) (bool, error) {
	return o.connections.ConnectionStatus(ctx, userID)
}

func (o *Orchestrator) ownedTask(ctx context.Context, userID, taskID uuid.UUID) (*task.Task, error) {
	t, err := o.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !t.OwnedBy(userID) {
		return nil, task.ErrTaskNotFound
	}
	return t, nil
}
