package validation

import (
	"errors"
	"regexp"
	"strings"
)

const MinPasswordLen = 6

var (
	ErrEmailRequired    = errors.New("email is required")
	ErrInvalidEmail     = errors.New("please provide a valid email address")
	ErrPasswordRequired = errors.New("password is required")
	ErrPasswordTooShort = errors.New("password must be at least 6 characters long")
)

// emailRe matches local@domain.tld without whitespace. Deliberately
// loose; real deliverability is not checked here.
var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Email normalizes an address (trim + lowercase) and validates its syntax.
// The normalized form is returned so one record exists per email.
func Email(s string) (string, error) {
	e := strings.ToLower(strings.TrimSpace(s))
	if e == "" {
		return "", ErrEmailRequired
	}
	if !emailRe.MatchString(e) {
		return "", ErrInvalidEmail
	}
	return e, nil
}

// Password enforces the minimum length rule. No trimming: whitespace is
// part of the secret.
func Password(s string) error {
	if s == "" {
		return ErrPasswordRequired
	}
	if len(s) < MinPasswordLen {
		return ErrPasswordTooShort
	}
	return nil
}
