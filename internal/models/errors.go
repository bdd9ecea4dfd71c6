package models

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnavailable   = errors.New("retrieval/storage unavailable")
	ErrTimeout       = errors.New("operation timed out")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// OpError ties an underlying failure to the operation that hit it and its kind.
type OpError struct {
	Op   string
	Kind error
	Err  error
}

func (e *OpError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewOpError wraps err under the given kind.
func NewOpError(op string, kind, err error) *OpError {
	return &OpError{Op: op, Kind: kind, Err: err}
}

// Unavailable classifies a collaborator failure. Deadline expiry becomes ErrTimeout,
// everything else ErrUnavailable.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	var opErr *OpError
	if errors.As(err, &opErr) && (errors.Is(err, ErrUnavailable) || errors.Is(err, ErrTimeout)) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewOpError(op, ErrTimeout, err)
	}
	return NewOpError(op, ErrUnavailable, err)
}

// InvalidInput reports a client fault.
func InvalidInput(op, msg string) error {
	return NewOpError(op, ErrInvalidInput, errors.New(msg))
}
