package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/tempo/adapter/api"
	"github.com/felixgeelhaar/tempo/internal/app"
	"github.com/felixgeelhaar/tempo/pkg/config"
)

// fakeGoogle serves the token endpoint and the two calendar calls tempo makes.
type fakeGoogle struct {
	*httptest.Server
	freeBusyStatus atomic.Int32
	inserts        atomic.Int32
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	t.Helper()
	g := &fakeGoogle{}
	g.freeBusyStatus.Store(http.StatusOK)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		if r.PostForm.Get("code") == "bad-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Bad Request"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access-1","refresh_token":"refresh-1","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("POST /calendar/v3/freeBusy", func(w http.ResponseWriter, r *http.Request) {
		status := int(g.freeBusyStatus.Load())
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"code":500,"message":"backend error"}}`))
			return
		}
		start := time.Now().UTC().Add(2 * time.Hour).Truncate(time.Hour)
		_, _ = w.Write([]byte(`{"calendars":{"primary":{"busy":[{"start":"` +
			start.Format(time.RFC3339) + `","end":"` + start.Add(time.Hour).Format(time.RFC3339) + `"}]}}}`))
	})
	mux.HandleFunc("POST /calendar/v3/calendars/primary/events", func(w http.ResponseWriter, r *http.Request) {
		g.inserts.Add(1)
		assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"evt-1","htmlLink":"https://calendar.example.com/evt-1"}`))
	})

	g.Server = httptest.NewServer(mux)
	t.Cleanup(g.Close)
	return g
}

type harness struct {
	t      *testing.T
	srv    *httptest.Server
	google *fakeGoogle
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	google := newFakeGoogle(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := &config.Config{
		AppEnv:                "test",
		SQLitePath:            filepath.Join(t.TempDir(), "tempo.db"),
		JWTSecret:             "test-secret",
		GoogleClientID:        "client-id",
		GoogleClientSecret:    "client-secret",
		GoogleRedirectURI:     "http://localhost:3000/calendar/callback",
		GoogleAuthURL:         google.URL + "/auth",
		GoogleTokenURL:        google.URL + "/token",
		GoogleCalendarBaseURL: google.URL + "/calendar/v3/",
		UpstreamTimeout:       5 * time.Second,
	}
	c, err := app.NewContainer(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(c.Close)

	server := api.NewServer(api.DefaultServerConfig(), api.Deps{
		Auth:           c.AuthService,
		OAuth:          c.OAuthManager,
		CreateTask:     c.CreateTaskHandler,
		UpdateTask:     c.UpdateTaskHandler,
		DeleteTask:     c.DeleteTaskHandler,
		ListTasks:      c.ListTasksHandler,
		GetTask:        c.GetTaskHandler,
		Orchestrator:   c.Orchestrator,
		Health:         c.Health,
		Metrics:        c.Metrics,
		MetricsHandler: c.Metrics.Handler(),
	}, logger)

	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)
	return &harness{t: t, srv: srv, google: google}
}

func (h *harness) do(method, path, token string, body any) (int, []byte) {
	h.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, ok := body.(string)
		if !ok {
			b, err := json.Marshal(body)
			require.NoError(h.t, err)
			raw = string(b)
		}
		reader = strings.NewReader(raw)
	}
	req, err := http.NewRequest(method, h.srv.URL+path, reader)
	require.NoError(h.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	return resp.StatusCode, out
}

func (h *harness) object(method, path, token string, body any) (int, map[string]any) {
	h.t.Helper()
	status, raw := h.do(method, path, token, body)
	var out map[string]any
	require.NoError(h.t, json.Unmarshal(raw, &out), string(raw))
	return status, out
}

// login registers email and returns a bearer token.
func (h *harness) login(email string) string {
	h.t.Helper()
	status, _ := h.object(http.MethodPost, "/api/auth/register", "", map[string]string{"email": email, "password": "correct horse"})
	require.Equal(h.t, http.StatusCreated, status)
	status, body := h.object(http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": "correct horse"})
	require.Equal(h.t, http.StatusOK, status)
	return body["access_token"].(string)
}

func (h *harness) createTask(token string, body map[string]any) string {
	h.t.Helper()
	status, out := h.object(http.MethodPost, "/api/tasks", token, body)
	require.Equal(h.t, http.StatusCreated, status, out)
	return out["id"].(string)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t)

	status, body := h.object(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])

	status, raw := h.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(raw), "tempo_http_requests_total")
}

func TestAuth(t *testing.T) {
	h := newHarness(t)

	status, body := h.object(http.MethodPost, "/api/auth/register", "", map[string]string{"email": "Ada@Example.com", "password": "correct horse"})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "User registered successfully", body["message"])

	status, body = h.object(http.MethodPost, "/api/auth/register", "", map[string]string{"email": "ada@example.com", "password": "correct horse"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, api.KindConflict, body["error"])

	status, body = h.object(http.MethodPost, "/api/auth/register", "", map[string]string{"email": "bob@example.com", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, api.KindValidation, body["error"])

	status, _ = h.object(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ada@example.com", "password": "wrong password"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = h.object(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ada@example.com", "password": "correct horse"})
	require.Equal(t, http.StatusOK, status)
	token := body["access_token"].(string)
	assert.NotEmpty(t, token)

	status, body = h.object(http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ada@example.com", body["email"])

	status, body = h.object(http.MethodPost, "/api/auth/logout", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Logout handled client-side", body["message"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := newHarness(t)

	for _, path := range []string{"/api/auth/me", "/api/tasks", "/api/calendar/status"} {
		status, body := h.object(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, status, path)
		assert.Equal(t, api.KindUnauthorized, body["error"], path)
	}

	status, _ := h.object(http.MethodGet, "/api/tasks", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestTaskLifecycle(t *testing.T) {
	h := newHarness(t)
	token := h.login("ada@example.com")

	id := h.createTask(token, map[string]any{
		"description":        "Write report",
		"priority":           "high",
		"estimated_duration": 90,
		"deadline":           "2026-03-02T17:00:00",
	})

	status, body := h.object(http.MethodGet, "/api/tasks/"+id, token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Write report", body["description"])
	assert.Equal(t, "High", body["priority"])
	assert.Equal(t, "Pending", body["status"])
	assert.Equal(t, float64(90), body["estimated_duration"])
	assert.Equal(t, "2026-03-02T17:00:00Z", body["deadline"])
	assert.Nil(t, body["google_event_id"])
	assert.Nil(t, body["scheduled_start"])

	status, body = h.object(http.MethodPut, "/api/tasks/"+id, token, `{"deadline":null,"status":"completed"}`)
	require.Equal(t, http.StatusOK, status, body)
	assert.Nil(t, body["deadline"])
	assert.Equal(t, "Completed", body["status"])
	assert.Equal(t, float64(90), body["estimated_duration"])

	h.createTask(token, map[string]any{"description": "Call plumber"})

	status, raw := h.do(http.MethodGet, "/api/tasks", token, nil)
	require.Equal(t, http.StatusOK, status)
	var all []map[string]any
	require.NoError(t, json.Unmarshal(raw, &all))
	require.Len(t, all, 2)
	assert.Equal(t, "Write report", all[0]["description"])
	assert.Equal(t, "Medium", all[1]["priority"])

	status, raw = h.do(http.MethodGet, "/api/tasks?status=pending", token, nil)
	require.Equal(t, http.StatusOK, status)
	var pending []map[string]any
	require.NoError(t, json.Unmarshal(raw, &pending))
	require.Len(t, pending, 1)
	assert.Equal(t, "Call plumber", pending[0]["description"])

	status, body = h.object(http.MethodDelete, "/api/tasks/"+id, token, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Task deleted", body["message"])

	status, body = h.object(http.MethodGet, "/api/tasks/"+id, token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, api.KindNotFound, body["error"])
}

func TestTaskValidation(t *testing.T) {
	h := newHarness(t)
	token := h.login("ada@example.com")

	tests := []struct {
		name string
		body any
	}{
		{"empty description", map[string]any{"description": "   "}},
		{"unknown priority", map[string]any{"description": "x", "priority": "urgent"}},
		{"zero duration", map[string]any{"description": "x", "estimated_duration": 0}},
		{"bad deadline", map[string]any{"description": "x", "deadline": "next tuesday"}},
		{"invalid json", `{"description":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := h.object(http.MethodPost, "/api/tasks", token, tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, api.KindValidation, body["error"])
		})
	}

	status, _ := h.object(http.MethodGet, "/api/tasks/not-a-uuid", token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestTasksAreScopedToOwner(t *testing.T) {
	h := newHarness(t)
	ada := h.login("ada@example.com")
	bob := h.login("bob@example.com")
	id := h.createTask(ada, map[string]any{"description": "Private"})

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		var body any
		if method == http.MethodPut {
			body = map[string]any{"description": "mine now"}
		}
		status, out := h.object(method, "/api/tasks/"+id, bob, body)
		assert.Equal(t, http.StatusNotFound, status, method)
		assert.Equal(t, api.KindNotFound, out["error"], method)
	}

	status, raw := h.do(http.MethodGet, "/api/tasks", bob, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(bytes.TrimSpace(raw)))
}

func TestCalendarFlow(t *testing.T) {
	h := newHarness(t)
	token := h.login("ada@example.com")
	id := h.createTask(token, map[string]any{"description": "Deep work", "estimated_duration": 60})

	status, body := h.object(http.MethodGet, "/api/calendar/status", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["connected"])

	status, body = h.object(http.MethodGet, "/api/calendar/availability", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, api.KindCalendarNotConnected, body["error"])

	status, body = h.object(http.MethodGet, "/api/calendar/auth/url", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body["auth_url"], "client_id=client-id")
	assert.Contains(t, body["auth_url"], "access_type=offline")

	status, body = h.object(http.MethodPost, "/api/calendar/auth/exchange", token, map[string]string{"code": "bad-code"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, api.KindUpstreamAuth, body["error"])

	status, body = h.object(http.MethodPost, "/api/calendar/auth/exchange", token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, api.KindValidation, body["error"])

	status, body = h.object(http.MethodPost, "/api/calendar/auth/exchange", token, map[string]string{"code": "good-code"})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "Google Calendar connected successfully!", body["message"])

	status, body = h.object(http.MethodGet, "/api/calendar/status", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["connected"])

	status, body = h.object(http.MethodGet, "/api/calendar/availability", token, nil)
	require.Equal(t, http.StatusOK, status, body)
	window := body["time_range"].(map[string]any)
	assert.True(t, strings.HasSuffix(window["start"].(string), "Z"))
	slots := body["busy_slots"].([]any)
	require.Len(t, slots, 1)

	status, body = h.object(http.MethodPost, "/api/ai/suggest", token, map[string]string{"task_id": id})
	require.Equal(t, http.StatusOK, status, body)
	suggestions := body["suggestions"].([]any)
	assert.NotEmpty(t, suggestions)
	assert.LessOrEqual(t, len(suggestions), 3)

	start := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Hour)
	status, body = h.object(http.MethodPost, "/api/calendar/schedule", token, map[string]string{
		"task_id":    id,
		"start_time": start.Format("2006-01-02T15:04:05"),
		"end_time":   start.Add(time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "Task scheduled successfully", body["message"])
	assert.Equal(t, "evt-1", body["google_event_id"])
	assert.Equal(t, "https://calendar.example.com/evt-1", body["link"])
	assert.Equal(t, int32(1), h.google.inserts.Load())

	status, body = h.object(http.MethodGet, "/api/tasks/"+id, token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Scheduled", body["status"])
	assert.Equal(t, "evt-1", body["google_event_id"])
	assert.Equal(t, start.Format(time.RFC3339), body["scheduled_start"])

	status, body = h.object(http.MethodDelete, "/api/calendar/connection", token, nil)
	require.Equal(t, http.StatusOK, status)

	status, body = h.object(http.MethodPost, "/api/calendar/schedule", token, map[string]string{
		"task_id":    id,
		"start_time": start.Format(time.RFC3339),
		"end_time":   start.Add(time.Hour).Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, api.KindCalendarNotConnected, body["error"])
	assert.Equal(t, int32(1), h.google.inserts.Load())
}

func TestScheduleValidation(t *testing.T) {
	h := newHarness(t)
	token := h.login("ada@example.com")
	id := h.createTask(token, map[string]any{"description": "Deep work"})

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing task", map[string]string{"start_time": "2026-03-02T09:00:00", "end_time": "2026-03-02T10:00:00"}},
		{"missing end", map[string]string{"task_id": id, "start_time": "2026-03-02T09:00:00"}},
		{"end before start", map[string]string{"task_id": id, "start_time": "2026-03-02T10:00:00", "end_time": "2026-03-02T09:00:00"}},
		{"unparseable start", map[string]string{"task_id": id, "start_time": "soon", "end_time": "2026-03-02T09:00:00"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := h.object(http.MethodPost, "/api/calendar/schedule", token, tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, api.KindValidation, body["error"])
		})
	}
	assert.Equal(t, int32(0), h.google.inserts.Load())
}

func TestAvailabilityUpstreamFailure(t *testing.T) {
	h := newHarness(t)
	token := h.login("ada@example.com")
	status, _ := h.object(http.MethodPost, "/api/calendar/auth/exchange", token, map[string]string{"code": "good-code"})
	require.Equal(t, http.StatusOK, status)

	h.google.freeBusyStatus.Store(http.StatusInternalServerError)

	status, body := h.object(http.MethodGet, "/api/calendar/availability", token, nil)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, api.KindCalendarUpstream, body["error"])
	details := body["details"].(map[string]any)
	assert.Equal(t, float64(500), details["status"])

	// Suggestions degrade to an empty calendar instead of failing.
	id := h.createTask(token, map[string]any{"description": "Deep work"})
	status, body = h.object(http.MethodPost, "/api/ai/suggest", token, map[string]string{"task_id": id})
	assert.Equal(t, http.StatusOK, status, body)
}

func TestSuggestUnknownTask(t *testing.T) {
	h := newHarness(t)
	token := h.login("ada@example.com")

	status, body := h.object(http.MethodPost, "/api/ai/suggest", token, map[string]string{"task_id": "6f1c1e9e-8a53-4f39-9d7c-2b2d5a8c0e11"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, api.KindNotFound, body["error"])

	status, body = h.object(http.MethodPost, "/api/ai/suggest", token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, api.KindValidation, body["error"])
}

func TestNonStringTaskIDIsNotFound(t *testing.T) {
	h := newHarness(t)
	token := h.login("ada@example.com")

	tests := []struct {
		name string
		path string
		body string
	}{
		{"suggest number", "/api/ai/suggest", `{"task_id":7}`},
		{"suggest object", "/api/ai/suggest", `{"task_id":{"id":"x"}}`},
		{"schedule number", "/api/calendar/schedule", `{"task_id":7,"start_time":"2026-03-02T09:00:00","end_time":"2026-03-02T10:00:00"}`},
		{"schedule bool", "/api/calendar/schedule", `{"task_id":true,"start_time":"2026-03-02T09:00:00","end_time":"2026-03-02T10:00:00"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := h.object(http.MethodPost, tt.path, token, tt.body)
			assert.Equal(t, http.StatusNotFound, status)
			assert.Equal(t, api.KindNotFound, body["error"])
		})
	}

	status, body := h.object(http.MethodPost, "/api/calendar/schedule", token, `{"task_id":null,"start_time":"2026-03-02T09:00:00","end_time":"2026-03-02T10:00:00"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, api.KindValidation, body["error"])
	assert.Equal(t, int32(0), h.google.inserts.Load())
}

func TestRequestIDEchoed(t *testing.T) {
	h := newHarness(t)

	req, err := http.NewRequest(http.MethodGet, h.srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "req-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "req-123", resp.Header.Get("X-Request-ID"))
}
