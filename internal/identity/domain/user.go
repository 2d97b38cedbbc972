package domain

import (
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/felixgeelhaar/tempo/internal/shared/domain"
)

// User is an account plus the delegated calendar credentials issued for it.
// An empty token string means "none stored".
type User struct {
	sharedDomain.BaseAggregateRoot
	email        Email
	passwordHash string
	accessToken  string
	refreshToken string
}

// NewUser registers a new account.
func NewUser(email Email, passwordHash string) *User {
	u := &User{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		email:             email,
		passwordHash:      passwordHash,
	}
	u.AddDomainEvent(NewUserRegistered(u.ID(), email.String()))
	return u
}

// RehydrateUser rebuilds a user from storage without raising events.
func RehydrateUser(id uuid.UUID, email Email, passwordHash, accessToken, refreshToken string, createdAt, updatedAt time.Time) *User {
	return &User{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(
			sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt),
		),
		email:        email,
		passwordHash: passwordHash,
		accessToken:  accessToken,
		refreshToken: refreshToken,
	}
}

func (u *User) Email() Email         { return u.email }
func (u *User) PasswordHash() string { return u.passwordHash }
func (u *User) AccessToken() string  { return u.accessToken }
func (u *User) RefreshToken() string { return u.refreshToken }

// HasAccessToken reports whether calendar calls can be attempted.
func (u *User) HasAccessToken() bool { return u.accessToken != "" }

// CalendarConnected reports whether a refresh token is stored.
func (u *User) CalendarConnected() bool { return u.refreshToken != "" }

// StoreCalendarTokens records the result of an authorization code exchange.
// The access token is always replaced; the refresh token only when the
// provider returned one, so a re-consent without a refresh token keeps the
// existing one.
func (u *User) StoreCalendarTokens(accessToken, refreshToken string) {
	wasConnected := u.CalendarConnected()

	u.accessToken = accessToken
	if refreshToken != "" {
		u.refreshToken = refreshToken
	}
	u.Touch()

	if !wasConnected && u.CalendarConnected() {
		u.AddDomainEvent(NewCalendarConnected(u.ID()))
	}
}

// RotateAccessToken replaces the access token after a refresh.
func (u *User) RotateAccessToken(accessToken string) {
	u.accessToken = accessToken
	u.Touch()
}

// RotateRefreshToken replaces the refresh token when the provider issued a
// new one. Empty values are ignored.
func (u *User) RotateRefreshToken(refreshToken string) {
	if refreshToken == "" || refreshToken == u.refreshToken {
		return
	}
	u.refreshToken = refreshToken
	u.Touch()
}

// DisconnectCalendar forgets both tokens.
func (u *User) DisconnectCalendar() {
	if u.accessToken == "" && u.refreshToken == "" {
		return
	}
	u.accessToken = ""
	u.refreshToken = ""
	u.Touch()
	u.AddDomainEvent(NewCalendarDisconnected(u.ID()))
}
