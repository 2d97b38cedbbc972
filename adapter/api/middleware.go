package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/tempo/pkg/observability"
)

type userKey struct{}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(observability.WithRequestID(r.Context(), id)))
	})
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.ErrorContext(r.Context(), "panic serving request", "panic", rec, "path", r.URL.Path)
				writeJSON(w, http.StatusInternalServerError, &APIError{Kind: KindInternal, Message: "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// observe logs one line per request and records request metrics.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.metrics.Counter(observability.MetricHTTPRequests, 1,
			observability.T("route", route), observability.T("status", strconv.Itoa(rec.status)))
		s.metrics.Timing(observability.MetricHTTPRequestDuration, elapsed, observability.T("route", route))

		s.logger.InfoContext(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", elapsed.Milliseconds(),
		)
	})
}

// authenticated requires a valid bearer token and stores the user id in the
// request context.
func (s *Server) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			s.writeError(w, r, errUnauthenticated)
			return
		}
		userID, err := s.deps.Auth.Authenticate(strings.TrimSpace(raw))
		if err != nil {
			s.writeError(w, r, errUnauthenticated)
			return
		}

		ctx := context.WithValue(r.Context(), userKey{}, userID)
		ctx = observability.WithUserID(ctx, userID.String())
		next(w, r.WithContext(ctx))
	}
}

func currentUser(r *http.Request) uuid.UUID {
	id, _ := r.Context().Value(userKey{}).(uuid.UUID)
	return id
}
