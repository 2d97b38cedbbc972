package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	calendar "github.com/felixgeelhaar/tempo/internal/calendar/domain"
	"github.com/felixgeelhaar/tempo/internal/identity/application/auth"
	"github.com/felixgeelhaar/tempo/internal/identity/application/oauth"
	identity "github.com/felixgeelhaar/tempo/internal/identity/domain"
	"github.com/felixgeelhaar/tempo/internal/productivity/domain/task"
	scheduling "github.com/felixgeelhaar/tempo/internal/scheduling/domain"
)

func TestToAPIError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"task not found", task.ErrTaskNotFound, http.StatusNotFound, KindNotFound},
		{"wrapped not found", fmt.Errorf("load: %w", task.ErrTaskNotFound), http.StatusNotFound, KindNotFound},
		{"user not found", identity.ErrUserNotFound, http.StatusNotFound, KindNotFound},
		{"empty description", task.ErrEmptyDescription, http.StatusBadRequest, KindValidation},
		{"bad timestamp", fmt.Errorf("start: %w", calendar.ErrInvalidTimestamp), http.StatusBadRequest, KindValidation},
		{"weak password", auth.ErrWeakPassword, http.StatusBadRequest, KindValidation},
		{"bad credentials", auth.ErrInvalidCredentials, http.StatusUnauthorized, KindUnauthorized},
		{"email taken", identity.ErrEmailTaken, http.StatusConflict, KindConflict},
		{"not connected", calendar.ErrNotConnected, http.StatusBadRequest, KindCalendarNotConnected},
		{"auth expired", calendar.ErrAuthExpired, http.StatusUnauthorized, KindCalendarAuthExpired},
		{"malformed calendar", calendar.ErrMalformedResponse, http.StatusBadGateway, KindCalendarUpstream},
		{"engine unavailable", scheduling.ErrEngineUnavailable, http.StatusServiceUnavailable, KindEngineUnavailable},
		{"engine blocked", scheduling.ErrEngineBlocked, http.StatusUnprocessableEntity, KindEngineBlocked},
		{"engine malformed", scheduling.ErrEngineMalformedOutput, http.StatusBadGateway, KindEngineMalformedOutput},
		{"oauth not configured", oauth.ErrNotConfigured, http.StatusServiceUnavailable, KindServiceUnavailable},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toAPIError(tt.err)
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, tt.kind, got.Kind)
		})
	}
}

func TestToAPIError_UpstreamDetails(t *testing.T) {
	got := toAPIError(&calendar.UpstreamError{Status: 500, Body: "backend error"})

	assert.Equal(t, http.StatusBadGateway, got.Status)
	assert.Equal(t, KindCalendarUpstream, got.Kind)
	assert.Equal(t, map[string]any{"status": 500, "body": "backend error"}, got.Details)
}

func TestToAPIError_UpstreamAuthUsesDescription(t *testing.T) {
	got := toAPIError(&oauth.UpstreamAuthError{Code: "invalid_grant", Description: "Bad Request"})

	assert.Equal(t, http.StatusBadRequest, got.Status)
	assert.Equal(t, KindUpstreamAuth, got.Kind)
	assert.Equal(t, "Bad Request", got.Message)
}

func TestToAPIError_InternalHidesText(t *testing.T) {
	got := toAPIError(errors.New("pq: password authentication failed"))

	assert.Equal(t, "internal server error", got.Message)
}
