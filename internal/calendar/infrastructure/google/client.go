// Package google implements the calendar port on the Google Calendar v3 API.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	calendarDomain "github.com/felixgeelhaar/tempo/internal/calendar/domain"
	identity "github.com/felixgeelhaar/tempo/internal/identity/domain"
	"github.com/felixgeelhaar/tempo/pkg/observability"
)

const (
	DefaultBaseURL = "https://www.googleapis.com/calendar/v3/"
	primaryID      = "primary"

	opFreeBusy    = "free_busy"
	opCreateEvent = "create_event"
)

// TokenRefresher exchanges the user's refresh token for a new access token.
// It reports false instead of failing.
type TokenRefresher interface {
	Refresh(ctx context.Context, user *identity.User) (string, bool)
}

// Config configures the client.
type Config struct {
	// BaseURL overrides DefaultBaseURL; tests point it at an httptest server.
	BaseURL string
	Timeout time.Duration
	// Transport is the underlying round tripper; http.DefaultTransport when nil.
	Transport http.RoundTripper
}

// Client calls the user's primary calendar with their stored access token,
// refreshing and retrying once when the provider answers 401.
type Client struct {
	refresher TokenRefresher
	baseURL   string
	timeout   time.Duration
	transport http.RoundTripper
	logger    *slog.Logger
	metrics   observability.Metrics
}

// NewClient creates a Google Calendar client.
func NewClient(cfg Config, refresher TokenRefresher, logger *slog.Logger, metrics observability.Metrics) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Transport == nil {
		cfg.Transport = http.DefaultTransport
	}
	return &Client{
		refresher: refresher,
		baseURL:   cfg.BaseURL,
		timeout:   cfg.Timeout,
		transport: cfg.Transport,
		logger:    logger,
		metrics:   metrics,
	}
}

// GetBusy returns the busy periods of the primary calendar inside window.
func (c *Client) GetBusy(ctx context.Context, user *identity.User, window calendarDomain.Window) ([]calendarDomain.BusyInterval, error) {
	if !user.HasAccessToken() {
		return nil, calendarDomain.ErrNotConnected
	}

	req := &calendar.FreeBusyRequest{
		TimeMin:  calendarDomain.FormatTimestamp(window.Start),
		TimeMax:  calendarDomain.FormatTimestamp(window.End),
		TimeZone: "UTC",
		Items:    []*calendar.FreeBusyRequestItem{{Id: primaryID}},
	}

	var resp *calendar.FreeBusyResponse
	err := c.withRetry(ctx, user, opFreeBusy, func(svc *calendar.Service) error {
		var err error
		resp, err = svc.Freebusy.Query(req).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}
	return busyIntervals(resp)
}

// CreateEvent inserts a timed event into the primary calendar.
func (c *Client) CreateEvent(ctx context.Context, user *identity.User, summary string, start, end time.Time) (calendarDomain.CreatedEvent, error) {
	if !user.HasAccessToken() {
		return calendarDomain.CreatedEvent{}, calendarDomain.ErrNotConnected
	}

	event := &calendar.Event{
		Summary:     summary,
		Description: calendarDomain.EventDescription,
		Start:       &calendar.EventDateTime{DateTime: calendarDomain.FormatTimestamp(start)},
		End:         &calendar.EventDateTime{DateTime: calendarDomain.FormatTimestamp(end)},
	}

	var created *calendar.Event
	err := c.withRetry(ctx, user, opCreateEvent, func(svc *calendar.Service) error {
		var err error
		created, err = svc.Events.Insert(primaryID, event).Context(ctx).Do()
		return err
	})
	if err != nil {
		return calendarDomain.CreatedEvent{}, err
	}
	if created == nil || created.Id == "" {
		return calendarDomain.CreatedEvent{}, fmt.Errorf("%w: event id missing", calendarDomain.ErrMalformedResponse)
	}
	return calendarDomain.CreatedEvent{ID: created.Id, Link: created.HtmlLink}, nil
}

// withRetry runs call with the stored access token. A 401 triggers one
// refresh and exactly one more attempt; nothing else is retried.
func (c *Client) withRetry(ctx context.Context, user *identity.User, op string, call func(*calendar.Service) error) error {
	err := c.attempt(ctx, user.AccessToken(), call)
	if !isUnauthorized(err) {
		return c.finish(ctx, op, err)
	}

	c.logger.InfoContext(ctx, "calendar token rejected, refreshing", "operation", op, "user_id", user.ID())
	token, ok := c.refresher.Refresh(ctx, user)
	if !ok {
		c.metrics.Counter(observability.MetricCalendarRequests, 1,
			observability.T("operation", op), observability.T("outcome", "auth_expired"))
		return calendarDomain.ErrAuthExpired
	}

	err = c.attempt(ctx, token, call)
	return c.finish(ctx, op, err)
}

func (c *Client) attempt(ctx context.Context, accessToken string, call func(*calendar.Service) error) error {
	svc, err := calendar.NewService(ctx,
		option.WithHTTPClient(c.httpClient(accessToken)),
		option.WithEndpoint(c.baseURL),
	)
	if err != nil {
		return fmt.Errorf("build calendar service: %w", err)
	}
	return call(svc)
}

func (c *Client) httpClient(accessToken string) *http.Client {
	return &http.Client{
		Timeout: c.timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}),
			Base:   c.transport,
		},
	}
}

// finish records the outcome and translates the error into the calendar
// taxonomy.
func (c *Client) finish(ctx context.Context, op string, err error) error {
	outcome := "success"
	defer func() {
		c.metrics.Counter(observability.MetricCalendarRequests, 1,
			observability.T("operation", op), observability.T("outcome", outcome))
	}()
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	switch {
	case errors.As(err, &apiErr):
		outcome = "upstream_error"
		c.logger.WarnContext(ctx, "calendar provider error", "operation", op, "status", apiErr.Code)
		return &calendarDomain.UpstreamError{Status: apiErr.Code, Body: apiErr.Body}
	case isTransportError(err):
		outcome = "unreachable"
		c.logger.WarnContext(ctx, "calendar provider unreachable", "operation", op, "error", err)
		return &calendarDomain.UpstreamError{Status: 0, Body: err.Error()}
	default:
		outcome = "malformed"
		return fmt.Errorf("%w: %v", calendarDomain.ErrMalformedResponse, err)
	}
}

func isUnauthorized(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusUnauthorized
}

func isTransportError(err error) bool {
	var urlErr *url.Error
	return errors.As(err, &urlErr) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}

func busyIntervals(resp *calendar.FreeBusyResponse) ([]calendarDomain.BusyInterval, error) {
	if resp == nil {
		return nil, calendarDomain.ErrMalformedResponse
	}
	intervals := []calendarDomain.BusyInterval{}
	for _, cal := range resp.Calendars {
		for _, period := range cal.Busy {
			if period == nil {
				continue
			}
			start, err := time.Parse(time.RFC3339, period.Start)
			if err != nil {
				return nil, fmt.Errorf("%w: busy start %q", calendarDomain.ErrMalformedResponse, period.Start)
			}
			end, err := time.Parse(time.RFC3339, period.End)
			if err != nil {
				return nil, fmt.Errorf("%w: busy end %q", calendarDomain.ErrMalformedResponse, period.End)
			}
			intervals = append(intervals, calendarDomain.BusyInterval{Start: start.UTC(), End: end.UTC()})
		}
	}
	return intervals, nil
}
