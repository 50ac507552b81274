// Package failure classifies reconciliation errors into the kinds the
// workspace lifecycle acts on.
//
// Validation and Permanent failures end in phase Failed, Retryable failures
// keep the workspace in Provisioning and schedule another attempt, and any
// error without a kind is Unexpected.
package failure

import (
	"errors"
	"fmt"
)

// Kind is the classification of a reconciliation error.
type Kind int

const (
	// Unexpected is any error that was not classified.
	Unexpected Kind = iota
	// Validation covers a missing template reference, a missing template or an
	// invalid effective configuration. No objects are touched.
	Validation
	// Retryable asks the scheduler to reconcile again later.
	Retryable
	// Permanent means the workload reached a state that will not self-correct.
	Permanent
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "Validation"
	case Retryable:
		return "Retryable"
	case Permanent:
		return "Permanent"
	default:
		return "Unexpected"
	}
}

// Error attaches a Kind to an underlying error.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// NewValidation returns a Validation error with a formatted message.
func NewValidation(format string, args ...any) error {
	return wrap(Validation, fmt.Errorf(format, args...))
}

// NewRetryable returns a Retryable error with a formatted message.
func NewRetryable(format string, args ...any) error {
	return wrap(Retryable, fmt.Errorf(format, args...))
}

// NewPermanent returns a Permanent error with a formatted message.
func NewPermanent(format string, args ...any) error {
	return wrap(Permanent, fmt.Errorf(format, args...))
}

// AsRetryable marks err as Retryable. Nil stays nil.
func AsRetryable(err error) error {
	return wrap(Retryable, err)
}

// AsPermanent marks err as Permanent. Nil stays nil.
func AsPermanent(err error) error {
	return wrap(Permanent, err)
}

// KindOf returns the kind of the outermost classified error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unexpected
}

// IsRetryable reports whether err is classified Retryable.
func IsRetryable(err error) bool {
	return err != nil && KindOf(err) == Retryable
}
