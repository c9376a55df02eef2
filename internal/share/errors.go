package share

import (
	"errors"
	"fmt"
)

// Denials and other domain failures. Callers match them with errors.Is;
// the errx kind wrapped around them decides the HTTP status.
var (
	ErrLinkNotFound      = errors.New("link not found")
	ErrLinkDisabled      = errors.New("link has been disabled")
	ErrLinkExpired       = errors.New("link has expired")
	ErrViewLimitExceeded = errors.New("view limit exceeded")
	ErrPasswordRequired  = errors.New("password required")
	ErrPasswordIncorrect = errors.New("incorrect password")
	ErrTooManyAttempts   = errors.New("too many password attempts")
	ErrNotOwner          = errors.New("link belongs to another owner")
	ErrTokenTaken        = errors.New("token already in use")
	ErrQuotaBelowViews   = errors.New("max_views cannot be lower than current views")
)

// Reason names why the gate denied a read.
type Reason string

const (
	ReasonNotFound          Reason = "not_found"
	ReasonDisabled          Reason = "disabled"
	ReasonExpired           Reason = "expired"
	ReasonViewLimitExceeded Reason = "view_limit_exceeded"
	ReasonPasswordRequired  Reason = "password_required"
	ReasonPasswordIncorrect Reason = "password_incorrect"
	ReasonTooManyAttempts   Reason = "too_many_attempts"
)

var denialReasons = []struct {
	err    error
	reason Reason
}{
	{ErrLinkNotFound, ReasonNotFound},
	{ErrLinkDisabled, ReasonDisabled},
	{ErrLinkExpired, ReasonExpired},
	{ErrViewLimitExceeded, ReasonViewLimitExceeded},
	{ErrPasswordRequired, ReasonPasswordRequired},
	{ErrPasswordIncorrect, ReasonPasswordIncorrect},
	{ErrTooManyAttempts, ReasonTooManyAttempts},
}

// ReasonOf returns the denial reason carried by err, if any.
func ReasonOf(err error) (Reason, bool) {
	for _, d := range denialReasons {
		if errors.Is(err, d.err) {
			return d.reason, true
		}
	}
	return "", false
}

// FieldError is a caller-fixable problem with one input field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func fieldErr(field, message string) error {
	return &FieldError{Field: field, Message: message}
}
