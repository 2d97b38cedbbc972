package api

import (
	"errors"
	"log/slog"
	"net/http"

	calendar "github.com/felixgeelhaar/tempo/internal/calendar/domain"
	"github.com/felixgeelhaar/tempo/internal/identity/application/auth"
	"github.com/felixgeelhaar/tempo/internal/identity/application/oauth"
	identity "github.com/felixgeelhaar/tempo/internal/identity/domain"
	"github.com/felixgeelhaar/tempo/internal/productivity/domain/task"
	schedulingApp "github.com/felixgeelhaar/tempo/internal/scheduling/application"
	scheduling "github.com/felixgeelhaar/tempo/internal/scheduling/domain"
)

// Error kinds returned in the "error" field.
const (
	KindNotFound              = "not_found"
	KindValidation            = "validation_error"
	KindUnauthorized          = "unauthorized"
	KindConflict              = "conflict"
	KindCalendarNotConnected  = "calendar_not_connected"
	KindCalendarAuthExpired   = "calendar_auth_expired"
	KindCalendarUpstream      = "calendar_upstream_error"
	KindUpstreamAuth          = "upstream_auth_error"
	KindEngineUnavailable     = "engine_unavailable"
	KindEngineBlocked         = "engine_blocked"
	KindEngineMalformedOutput = "engine_malformed_output"
	KindServiceUnavailable    = "service_unavailable"
	KindInternal              = "internal_error"
)

// APIError is the body of every failed request.
type APIError struct {
	Status  int    `json:"-"`
	Kind    string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Kind + ": " + e.Message
}

func badRequest(message string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Kind: KindValidation, Message: message}
}

var errUnauthenticated = &APIError{
	Status:  http.StatusUnauthorized,
	Kind:    KindUnauthorized,
	Message: "missing or invalid bearer token",
}

var validationErrors = []error{
	task.ErrEmptyDescription,
	task.ErrInvalidDuration,
	task.ErrInvalidPriority,
	task.ErrInvalidStatus,
	task.ErrScheduleRequiresEvent,
	task.ErrMissingEventID,
	task.ErrInvalidScheduleWindow,
	calendar.ErrInvalidTimestamp,
	schedulingApp.ErrMissingScheduleField,
	oauth.ErrMissingCode,
	identity.ErrInvalidEmail,
	auth.ErrWeakPassword,
}

// toAPIError maps a domain error to its wire form. Unknown errors become
// internal_error without their text.
func toAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return &APIError{Status: http.StatusBadRequest, Kind: KindValidation, Message: err.Error()}
		}
	}

	var upstream *calendar.UpstreamError
	var authErr *oauth.UpstreamAuthError
	switch {
	case errors.Is(err, task.ErrTaskNotFound), errors.Is(err, identity.ErrUserNotFound):
		return &APIError{Status: http.StatusNotFound, Kind: KindNotFound, Message: err.Error()}
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return &APIError{Status: http.StatusUnauthorized, Kind: KindUnauthorized, Message: err.Error()}
	case errors.Is(err, identity.ErrEmailTaken):
		return &APIError{Status: http.StatusConflict, Kind: KindConflict, Message: err.Error()}
	case errors.Is(err, calendar.ErrNotConnected):
		return &APIError{Status: http.StatusBadRequest, Kind: KindCalendarNotConnected, Message: err.Error()}
	case errors.Is(err, calendar.ErrAuthExpired):
		return &APIError{Status: http.StatusUnauthorized, Kind: KindCalendarAuthExpired, Message: err.Error()}
	case errors.As(err, &upstream):
		return &APIError{
			Status:  http.StatusBadGateway,
			Kind:    KindCalendarUpstream,
			Message: upstream.Error(),
			Details: map[string]any{"status": upstream.Status, "body": upstream.Body},
		}
	case errors.Is(err, calendar.ErrMalformedResponse):
		return &APIError{Status: http.StatusBadGateway, Kind: KindCalendarUpstream, Message: err.Error()}
	case errors.As(err, &authErr):
		return &APIError{Status: http.StatusBadRequest, Kind: KindUpstreamAuth, Message: authErr.Description}
	case errors.Is(err, scheduling.ErrEngineUnavailable):
		return &APIError{Status: http.StatusServiceUnavailable, Kind: KindEngineUnavailable, Message: err.Error()}
	case errors.Is(err, scheduling.ErrEngineBlocked):
		return &APIError{Status: http.StatusUnprocessableEntity, Kind: KindEngineBlocked, Message: err.Error()}
	case errors.Is(err, scheduling.ErrEngineMalformedOutput):
		return &APIError{Status: http.StatusBadGateway, Kind: KindEngineMalformedOutput, Message: err.Error()}
	case errors.Is(err, oauth.ErrNotConfigured):
		return &APIError{Status: http.StatusServiceUnavailable, Kind: KindServiceUnavailable, Message: err.Error()}
	default:
		return &APIError{Status: http.StatusInternalServerError, Kind: KindInternal, Message: "internal server error"}
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := toAPIError(err)
	level := slog.LevelDebug
	if apiErr.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.Log(r.Context(), level, "request failed",
		"kind", apiErr.Kind,
		"status", apiErr.Status,
		"error", err,
	)
	writeJSON(w, apiErr.Status, apiErr)
}
