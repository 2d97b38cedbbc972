package domain

import (
	"errors"
	"regexp"
	"strings"
)

var ErrInvalidEmail = errors.New("invalid email address")

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Email is a trimmed, lower-cased, syntactically valid address.
type Email struct {
	value string
}

// NewEmail validates and normalizes value.
func NewEmail(value string) (Email, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if !emailRegex.MatchString(value) {
		return Email{}, ErrInvalidEmail
	}
	return Email{value: value}, nil
}

func (e Email) String() string { return e.value }
