package api

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	calendar "github.com/felixgeelhaar/tempo/internal/calendar/domain"
	"github.com/felixgeelhaar/tempo/internal/productivity/domain/task"
	schedulingApp "github.com/felixgeelhaar/tempo/internal/scheduling/application"
)

type suggestRequest struct {
	TaskID json.RawMessage `json:"task_id"`
}

type suggestionResponse struct {
	Start  string `json:"start"`
	Reason string `json:"reason"`
}

type timeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// missingTaskID reports whether the task_id field was absent, null or "".
func missingTaskID(raw json.RawMessage) bool {
	v := bytes.TrimSpace(raw)
	return len(v) == 0 || bytes.Equal(v, []byte("null")) || bytes.Equal(v, []byte(`""`))
}

// parseTaskID accepts any JSON value. Anything that is not a UUID string
// cannot name a task and is reported as not found.
func parseTaskID(raw json.RawMessage) (uuid.UUID, error) {
	if missingTaskID(raw) {
		return uuid.Nil, badRequest("task_id is required")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return uuid.Nil, task.ErrTaskNotFound
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, task.ErrTaskNotFound
	}
	return id, nil
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := parseTaskID(req.TaskID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	suggestions, err := s.deps.Orchestrator.RequestSuggestions(r.Context(), currentUser(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]suggestionResponse, 0, len(suggestions))
	for _, sg := range suggestions {
		out = append(out, suggestionResponse{Start: calendar.FormatTimestamp(sg.Start), Reason: sg.Reason})
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": out})
}

func (s *Server) handleCalendarStatus(w http.ResponseWriter, r *http.Request) {
	connected, err := s.deps.Orchestrator.ConnectionStatus(r.Context(), currentUser(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"connected": connected})
}

// handleAuthURL returns the consent URL. The state value is not verified on
// exchange; the exchange itself is bound to the authenticated user.
func (s *Server) handleAuthURL(w http.ResponseWriter, r *http.Request) {
	url, err := s.deps.OAuth.AuthURL(uuid.NewString())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"auth_url": url})
}

func (s *Server) handleExchange(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.deps.OAuth.ExchangeCode(r.Context(), currentUser(r), req.Code); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Google Calendar connected successfully!")
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.OAuth.Disconnect(r.Context(), currentUser(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Google Calendar disconnected")
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.Orchestrator.Availability(r.Context(), currentUser(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	slots := make([]timeRange, 0, len(result.Busy))
	for _, b := range result.Busy {
		slots = append(slots, timeRange{Start: calendar.FormatTimestamp(b.Start), End: calendar.FormatTimestamp(b.End)})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"time_range": timeRange{
			Start: calendar.FormatTimestamp(result.Window.Start),
			End:   calendar.FormatTimestamp(result.Window.End),
		},
		"busy_slots": slots,
	})
}

type scheduleRequest struct {
	TaskID    json.RawMessage `json:"task_id"`
	StartTime string          `json:"start_time"`
	EndTime   string          `json:"end_time"`
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if missingTaskID(req.TaskID) {
		s.writeError(w, r, schedulingApp.ErrMissingScheduleField)
		return
	}
	id, err := parseTaskID(req.TaskID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.deps.Orchestrator.ScheduleTask(r.Context(), schedulingApp.ScheduleTaskCommand{
		UserID: currentUser(r),
		TaskID: id,
		Start:  req.StartTime,
		End:    req.EndTime,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message":         "Task scheduled successfully",
		"google_event_id": result.EventID,
		"link":            result.Link,
	})
}
