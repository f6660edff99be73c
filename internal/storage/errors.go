package storage

import (
	"errors"
	"fmt"
)

// ErrorKind is the coarse classification callers branch on.
type ErrorKind int

const (
	KindOther ErrorKind = iota
	KindConnection
	KindConstraint
)

func (k ErrorKind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindConstraint:
		return "constraint"
	default:
		return "other"
	}
}

var (
	// ErrConnection matches any error classified as KindConnection.
	ErrConnection = errors.New("database connection error")
	// ErrConstraintViolation matches any error classified as KindConstraint.
	ErrConstraintViolation = errors.New("database constraint violation")
	// ErrSyntaxOrOther matches any error classified as KindOther.
	ErrSyntaxOrOther = errors.New("database error")
	// ErrPoolExhausted reports that no pooled connection became free in time.
	ErrPoolExhausted = errors.New("connection pool exhausted")
	// ErrNoRows is returned by helpers expecting exactly one row.
	ErrNoRows = errors.New("no rows in result set")
)

// Error wraps a driver failure with its classification.
type Error struct {
	Kind      ErrorKind
	Op        string
	Retriable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the kind sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrConnection:
		return e.Kind == KindConnection
	case ErrConstraintViolation:
		return e.Kind == KindConstraint
	case ErrSyntaxOrOther:
		return e.Kind == KindOther
	}
	return false
}

// Classify wraps err with the given kind. A nil err stays nil and an error
// that is already classified is returned unchanged.
func Classify(op string, kind ErrorKind, retriable bool, err error) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return err
	}
	return &Error{Kind: kind, Op: op, Retriable: retriable, Err: err}
}

// KindOf reports the classification of err, KindOther when unclassified.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindOther
}

// IsRetriable reports whether the caller may safely retry the statement.
func IsRetriable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retriable
	}
	return false
}
