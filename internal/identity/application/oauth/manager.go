// Package oauth owns the delegated Google Calendar credentials of each user:
// consent URL, code exchange, and silent refresh.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/felixgeelhaar/tempo/internal/identity/domain"
	"github.com/felixgeelhaar/tempo/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/tempo/pkg/observability"
)

// Calendar scopes requested on every consent.
const (
	ScopeCalendarReadOnly = "https://www.googleapis.com/auth/calendar.readonly"
	ScopeCalendarEvents   = "https://www.googleapis.com/auth/calendar.events"
)

var (
	ErrMissingCode   = errors.New("authorization code is required")
	ErrNotConfigured = errors.New("google oauth client is not configured")
)

// UpstreamAuthError is a rejected or failed code exchange.
type UpstreamAuthError struct {
	Code        string
	Description string
}

func (e *UpstreamAuthError) Error() string {
	if e.Code == "" {
		return "authorization code exchange failed: " + e.Description
	}
	return fmt.Sprintf("authorization code exchange failed (%s): %s", e.Code, e.Description)
}

// Config holds the Google OAuth client settings.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	// Timeout bounds every call to the token endpoint. Zero means 15s.
	Timeout time.Duration
}

// Manager implements the token lifecycle on top of golang.org/x/oauth2.
type Manager struct {
	oauthConfig *oauth2.Config
	httpClient  *http.Client
	users       domain.UserRepository
	events      *eventbus.Dispatcher
	logger      *slog.Logger
	metrics     observability.Metrics
}

// NewManager creates a Manager. Missing client credentials are not an error
// here; AuthURL and ExchangeCode report ErrNotConfigured instead so the rest
// of the API keeps working.
func NewManager(cfg Config, users domain.UserRepository, events *eventbus.Dispatcher, logger *slog.Logger, metrics observability.Metrics) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if events == nil {
		events = eventbus.NewDispatcher(nil, logger)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	return &Manager{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{ScopeCalendarReadOnly, ScopeCalendarEvents},
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: &http.Client{Timeout: cfg.Timeout},
		users:      users,
		events:     events,
		logger:     logger,
		metrics:    metrics,
	}
}

func (m *Manager) configured() bool {
	c := m.oauthConfig
	return c.ClientID != "" && c.ClientSecret != "" && c.RedirectURL != ""
}

// AuthURL builds the consent URL. prompt=consent makes Google issue a
// refresh token on every grant.
func (m *Manager) AuthURL(state string) (string, error) {
	if !m.configured() {
		return "", ErrNotConfigured
	}
	return m.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

// ExchangeCode trades an authorization code for tokens and stores them on
// the user. Stored tokens are untouched when the exchange fails.
func (m *Manager) ExchangeCode(ctx context.Context, userID uuid.UUID, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return ErrMissingCode
	}
	if !m.configured() {
		return ErrNotConfigured
	}

	user, err := m.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	token, err := m.oauthConfig.Exchange(m.clientContext(ctx), code)
	if err != nil {
		m.logger.WarnContext(ctx, "authorization code exchange failed", "user_id", userID, "error", err)
		return toUpstreamAuthError(err)
	}

	user.StoreCalendarTokens(token.AccessToken, token.RefreshToken)
	if err := m.users.Save(ctx, user); err != nil {
		return fmt.Errorf("store calendar tokens: %w", err)
	}
	m.events.Dispatch(ctx, user)

	m.logger.InfoContext(ctx, "calendar tokens stored",
		"user_id", userID,
		"refresh_token_issued", token.RefreshToken != "",
	)
	return nil
}

// Refresh mints a new access token from the stored refresh token and
// persists it on user. It never fails loudly: ("", false) means the user
// has to go through consent again.
func (m *Manager) Refresh(ctx context.Context, user *domain.User) (string, bool) {
	if !user.CalendarConnected() {
		m.metrics.Counter(observability.MetricOAuthRefresh, 1, observability.T("outcome", "no_refresh_token"))
		return "", false
	}

	source := m.oauthConfig.TokenSource(m.clientContext(ctx), &oauth2.Token{RefreshToken: user.RefreshToken()})
	token, err := source.Token()
	if err != nil {
		m.logger.WarnContext(ctx, "access token refresh failed", "user_id", user.ID(), "error", err)
		m.metrics.Counter(observability.MetricOAuthRefresh, 1, observability.T("outcome", "failure"))
		return "", false
	}

	user.RotateAccessToken(token.AccessToken)
	user.RotateRefreshToken(token.RefreshToken)
	if err := m.users.Save(ctx, user); err != nil {
		// The fresh token is still usable for this request.
		m.logger.WarnContext(ctx, "refreshed access token not persisted", "user_id", user.ID(), "error", err)
	}

	m.metrics.Counter(observability.MetricOAuthRefresh, 1, observability.T("outcome", "success"))
	return token.AccessToken, true
}

// ConnectionStatus reports whether userID holds a refresh token.
func (m *Manager) ConnectionStatus(ctx context.Context, userID uuid.UUID) (bool, error) {
	user, err := m.users.FindByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.CalendarConnected(), nil
}

// Disconnect discards the stored tokens of userID.
func (m *Manager) Disconnect(ctx context.Context, userID uuid.UUID) error {
	user, err := m.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	user.DisconnectCalendar()
	if err := m.users.Save(ctx, user); err != nil {
		return err
	}
	m.events.Dispatch(ctx, user)
	return nil
}

func (m *Manager) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
}

func toUpstreamAuthError(err error) *UpstreamAuthError {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		desc := re.ErrorDescription
		if desc == "" {
			desc = re.ErrorCode
		}
		if desc == "" && re.Response != nil {
			desc = fmt.Sprintf("token endpoint returned %s", re.Response.Status)
		}
		return &UpstreamAuthError{Code: re.ErrorCode, Description: desc}
	}
	return &UpstreamAuthError{Description: "token endpoint unreachable"}
}
