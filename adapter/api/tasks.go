package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	calendar "github.com/felixgeelhaar/tempo/internal/calendar/domain"
	"github.com/felixgeelhaar/tempo/internal/productivity/application/commands"
	"github.com/felixgeelhaar/tempo/internal/productivity/application/queries"
	"github.com/felixgeelhaar/tempo/internal/productivity/domain/task"
)

type taskResponse struct {
	ID                uuid.UUID `json:"id"`
	Description       string    `json:"description"`
	Priority          string    `json:"priority"`
	Deadline          *string   `json:"deadline"`
	EstimatedDuration *int      `json:"estimated_duration"`
	Status            string    `json:"status"`
	ScheduledStart    *string   `json:"scheduled_start"`
	ScheduledEnd      *string   `json:"scheduled_end"`
	GoogleEventID     *string   `json:"google_event_id"`
	CreatedAt         string    `json:"created_at"`
}

func newTaskResponse(dto queries.TaskDTO) taskResponse {
	resp := taskResponse{
		ID:                dto.ID,
		Description:       dto.Description,
		Priority:          dto.Priority,
		Deadline:          formatOptional(dto.Deadline),
		EstimatedDuration: dto.EstimatedMinutes,
		Status:            dto.Status,
		ScheduledStart:    formatOptional(dto.ScheduledStart),
		ScheduledEnd:      formatOptional(dto.ScheduledEnd),
		CreatedAt:         calendar.FormatTimestamp(dto.CreatedAt),
	}
	if dto.RemoteEventID != "" {
		id := dto.RemoteEventID
		resp.GoogleEventID = &id
	}
	return resp
}

func formatOptional(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := calendar.FormatTimestamp(*t)
	return &s
}

func parseOptionalTime(field string, raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	t, err := calendar.NormalizeTimestamp(*raw)
	if err != nil {
		return nil, badRequest(field + ": " + err.Error())
	}
	return &t, nil
}

func taskID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		// Malformed ids cannot name an existing task.
		return uuid.Nil, task.ErrTaskNotFound
	}
	return id, nil
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	dtos, err := s.deps.ListTasks.Handle(r.Context(), queries.ListTasksQuery{
		UserID: currentUser(r),
		Status: r.URL.Query().Get("status"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]taskResponse, 0, len(dtos))
	for _, dto := range dtos {
		out = append(out, newTaskResponse(dto))
	}
	writeJSON(w, http.StatusOK, out)
}

type createTaskRequest struct {
	Description       string  `json:"description"`
	Priority          string  `json:"priority"`
	EstimatedDuration *int    `json:"estimated_duration"`
	Deadline          *string `json:"deadline"`
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	deadline, err := parseOptionalTime("deadline", req.Deadline)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	t, err := s.deps.CreateTask.Handle(r.Context(), commands.CreateTaskCommand{
		UserID:           currentUser(r),
		Description:      req.Description,
		Priority:         req.Priority,
		EstimatedMinutes: req.EstimatedDuration,
		Deadline:         deadline,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newTaskResponse(queries.ToDTO(t)))
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	dto, err := s.deps.GetTask.Handle(r.Context(), queries.GetTaskQuery{TaskID: id, UserID: currentUser(r)})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTaskResponse(*dto))
}

// handleUpdateTask applies a partial update. Fields absent from the body are
// kept; estimated_duration and deadline may be cleared with null.
func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var fields map[string]json.RawMessage
	if err := decodeJSON(r, &fields); err != nil {
		s.writeError(w, r, err)
		return
	}

	cmd := commands.UpdateTaskCommand{TaskID: id, UserID: currentUser(r)}
	if err := bindUpdate(fields, &cmd); err != nil {
		s.writeError(w, r, err)
		return
	}

	t, err := s.deps.UpdateTask.Handle(r.Context(), cmd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTaskResponse(queries.ToDTO(t)))
}

func bindUpdate(fields map[string]json.RawMessage, cmd *commands.UpdateTaskCommand) error {
	for name, raw := range fields {
		null := bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
		switch name {
		case "description":
			if null {
				continue
			}
			var v string
			if err := json.Unmarshal(raw, &v); err != nil {
				return badRequest("description must be a string")
			}
			cmd.Description = &v
		case "priority":
			if null {
				continue
			}
			var v string
			if err := json.Unmarshal(raw, &v); err != nil {
				return badRequest("priority must be a string")
			}
			cmd.Priority = &v
		case "status":
			if null {
				continue
			}
			var v string
			if err := json.Unmarshal(raw, &v); err != nil {
				return badRequest("status must be a string")
			}
			cmd.Status = &v
		case "estimated_duration":
			if null {
				cmd.ClearEstimate = true
				continue
			}
			var v int
			if err := json.Unmarshal(raw, &v); err != nil {
				return badRequest("estimated_duration must be a whole number of minutes")
			}
			cmd.EstimatedMinutes = &v
		case "deadline":
			if null {
				cmd.ClearDeadline = true
				continue
			}
			var v string
			if err := json.Unmarshal(raw, &v); err != nil {
				return badRequest("deadline must be a timestamp string")
			}
			d, err := parseOptionalTime("deadline", &v)
			if err != nil {
				return err
			}
			if d == nil {
				cmd.ClearDeadline = true
				continue
			}
			cmd.Deadline = d
		}
	}
	return nil
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.deps.DeleteTask.Handle(r.Context(), commands.DeleteTaskCommand{TaskID: id, UserID: currentUser(r)}); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Task deleted")
}
