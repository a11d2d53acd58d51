package service

import (
	"errors"
	"fmt"

	"github.com/Kerhoff/ResidentHub/internal/repository"
)

var (
	ErrUnauthenticated   = errors.New("authentication required")
	ErrForbidden         = errors.New("you are not allowed to perform this action")
	ErrNotFound          = errors.New("not found")
	ErrDeadlinePassed    = errors.New("the deadline for this event has passed")
	ErrConflict          = errors.New("a conflicting record already exists")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ValidationError reports input that breaks a business rule. Its message is shown to the caller.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalidf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// translate maps repository sentinels onto service errors
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrDuplicate), errors.Is(err, repository.ErrInUse):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case errors.Is(err, repository.ErrStale):
		return ErrInvalidTransition
	}
	return err
}

// detailedError is a sentinel with a caller-facing explanation
type detailedError struct {
	sentinel error
	msg      string
}

func (e *detailedError) Error() string { return e.msg }
func (e *detailedError) Unwrap() error { return e.sentinel }

func withDetail(sentinel error, format string, args ...any) error {
	return &detailedError{sentinel: sentinel, msg: fmt.Sprintf(format, args...)}
}

// Describe returns the text of err that is safe to show to the caller
func Describe(err error) string {
	var v *ValidationError
	if errors.As(err, &v) {
		return v.Message
	}
	var d *detailedError
	if errors.As(err, &d) {
		return d.msg
	}
	for _, sentinel := range []error{
		ErrUnauthenticated, ErrForbidden, ErrNotFound, ErrDeadlinePassed, ErrConflict, ErrInvalidTransition,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "internal server error"
}
