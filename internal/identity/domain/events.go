package domain

import (
	"github.com/google/uuid"

	sharedDomain "github.com/felixgeelhaar/tempo/internal/shared/domain"
)

const (
	AggregateType = "User"

	RoutingKeyUserRegistered       = "identity.user.registered"
	RoutingKeyCalendarConnected    = "identity.calendar.connected"
	RoutingKeyCalendarDisconnected = "identity.calendar.disconnected"
)

// UserRegistered is emitted when an account is created.
type UserRegistered struct {
	sharedDomain.BaseEvent
	Email string `json:"email"`
}

func NewUserRegistered(userID uuid.UUID, email string) UserRegistered {
	return UserRegistered{
		BaseEvent: sharedDomain.NewBaseEvent(userID, AggregateType, RoutingKeyUserRegistered),
		Email:     email,
	}
}

// CalendarConnected is emitted when the user first holds a refresh token.
type CalendarConnected struct {
	sharedDomain.BaseEvent
}

func NewCalendarConnected(userID uuid.UUID) CalendarConnected {
	return CalendarConnected{
		BaseEvent: sharedDomain.NewBaseEvent(userID, AggregateType, RoutingKeyCalendarConnected),
	}
}

// CalendarDisconnected is emitted when stored tokens are discarded.
type CalendarDisconnected struct {
	sharedDomain.BaseEvent
}

func NewCalendarDisconnected(userID uuid.UUID) CalendarDisconnected {
	return CalendarDisconnected{
		BaseEvent: sharedDomain.NewBaseEvent(userID, AggregateType, RoutingKeyCalendarDisconnected),
	}
}
