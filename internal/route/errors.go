package route

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDomain is returned when the username has no @domain suffix.
	ErrNoDomain = errors.New("username has no domain part")
	// ErrNoHost is returned when the domain is unknown or has no host.
	ErrNoHost = errors.New("no host configured for domain")
)

// Localization keys for the login errors.
const (
	KeyNoDomain = "nodomain"
	KeyNoHost   = "nohost"
	// KeyFailed covers every other authentication failure.
	KeyFailed   = "loginfailed"
)

// LoginError is a user-facing login failure. It aborts authentication but is
// never fatal to the process.
type LoginError struct {
	Username string
	Domain   string
	Err      error
}

func (e *LoginError) Error() string {
	if e.Domain != "" {
		return fmt.Sprintf("login %q: domain %q: %v", e.Username, e.Domain, e.Err)
	}
	return fmt.Sprintf("login %q: %v", e.Username, e.Err)
}

func (e *LoginError) Unwrap() error {
	return e.Err
}

// MessageKey returns the localization key for a login error, or "" if err is
// not a login error.
func MessageKey(err error) string {
	switch {
	case errors.Is(err, ErrNoDomain):
		return KeyNoDomain
	case errors.Is(err, ErrNoHost):
		return KeyNoHost
	default:
		return ""
	}
}
