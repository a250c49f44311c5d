package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/codewandler/evcorr/core/event"
)

var (
	// ErrDisposed is returned by operations on a closed dispatcher and used to
	// reject everything still pending when it shuts down.
	ErrDisposed = errors.New("dispatcher disposed")

	// ErrCancelled marks an await abandoned because the caller's context
	// ended. It is joined with the context cause, so errors.Is also matches
	// context.Canceled or context.DeadlineExceeded.
	ErrCancelled = errors.New("await cancelled")
)

// TriggerError reports that the effect for Key could not be issued. The
// waiter registered for it has been withdrawn.
type TriggerError struct {
	Key   event.Key
	Cause error
}

func (e *TriggerError) Error() string {
	return fmt.Sprintf("trigger %s: %v", e.Key, e.Cause)
}

func (e *TriggerError) Unwrap() error { return e.Cause }

// ExternalError carries the cause of an ErrorEvent delivered by the producer.
type ExternalError struct {
	Key   event.Key
	Cause error
}

func (e *ExternalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Key, e.Cause)
}

func (e *ExternalError) Unwrap() error { return e.Cause }

// TypeMismatchError reports that the event resolving Key is not of the type
// the caller awaited.
type TypeMismatchError struct {
	Key      event.Key
	Expected string
	Actual   string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%s: expected event %s, got %s", e.Key, e.Expected, e.Actual)
}

func cancelled(ctx context.Context) error {
	return fmt.Errorf("%w: %w", ErrCancelled, context.Cause(ctx))
}

// outcomeOf maps an await result to a metric label.
func outcomeOf(err error) string {
	var (
		trig *TriggerError
		ext  *ExternalError
		tm   *TypeMismatchError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrCancelled):
		return "cancelled"
	case errors.Is(err, ErrDisposed):
		return "disposed"
	case errors.As(err, &trig):
		return "trigger"
	case errors.As(err, &ext):
		return "external"
	case errors.As(err, &tm):
		return "type_mismatch"
	}
	return "other"
}
