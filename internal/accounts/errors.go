package accounts

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAccountDisabled is returned for deactivated accounts.
	ErrAccountDisabled = errors.New("account deactivated")
	// ErrPasswordlessAccount is returned for accounts created through an
	// external login provider.
	ErrPasswordlessAccount = errors.New("account has no password")
	// ErrRateLimited is returned while the login budget is exhausted.
	ErrRateLimited = errors.New("too many login attempts")
	// ErrEmailTaken is returned by Register for an already registered email.
	ErrEmailTaken = errors.New("email already registered")
)

// Issue is one failed validation rule.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every rule an input broke, in field order.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		msgs = append(msgs, issue.Field+": "+issue.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// First returns the message of the first issue.
func (e *ValidationError) First() string {
	if len(e.Issues) == 0 {
		return ""
	}
	return e.Issues[0].Message
}

func (e *ValidationError) add(field, message string) {
	e.Issues = append(e.Issues, Issue{Field: field, Message: message})
}

func (e *ValidationError) orNil() error {
	if len(e.Issues) == 0 {
		return nil
	}
	return e
}
