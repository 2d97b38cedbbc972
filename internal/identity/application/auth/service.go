// Package auth registers accounts and issues the bearer tokens the API
// expects on every protected route.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/felixgeelhaar/tempo/internal/identity/domain"
	"github.com/felixgeelhaar/tempo/internal/shared/infrastructure/eventbus"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
)

// Session is the result of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// Service implements register, login and profile lookup.
type Service struct {
	users  domain.UserRepository
	tokens *TokenIssuer
	events *eventbus.Dispatcher
	logger *slog.Logger
	cost   int
}

// NewService creates an auth service.
func NewService(users domain.UserRepository, tokens *TokenIssuer, events *eventbus.Dispatcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if events == nil {
		events = eventbus.NewDispatcher(nil, logger)
	}
	return &Service{users: users, tokens: tokens, events: events, logger: logger, cost: bcrypt.DefaultCost}
}

// Register creates an account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, rawEmail, password string) (*domain.User, error) {
	email, err := domain.NewEmail(rawEmail)
	if err != nil {
		return nil, err
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, domain.ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := domain.NewUser(email, string(hash))
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	s.events.Dispatch(ctx, user)

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID())
	return user, nil
}

// Login checks credentials and issues a bearer token. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, rawEmail, password string) (*Session, error) {
	email, err := domain.NewEmail(rawEmail)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash()), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	token, expires, err := s.tokens.Issue(user.ID())
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expires, User: user}, nil
}

// Me loads the account behind an authenticated request.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return s.users.FindByID(ctx, userID)
}

// Authenticate verifies a bearer token and returns its user id.
func (s *Service) Authenticate(raw string) (uuid.UUID, error) {
	return s.tokens.Verify(raw)
}
