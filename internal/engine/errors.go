package engine

import (
	"errors"
	"fmt"

	"agencydesk/internal/repo"
)

// ValidationError reports missing or malformed input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// NotFoundError reports a referenced entity that does not exist.
type NotFoundError struct {
	Kind string
	ID   int64
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

func (e NotFoundError) Unwrap() error { return repo.ErrNotFound }

// StoreError wraps a failed persistence call.
type StoreError struct {
	Op  string
	Err error
}

func (e StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e StoreError) Unwrap() error { return e.Err }

// ConflictError reports an operation rejected by an enabled invariant.
type ConflictError struct {
	Reason string
}

func (e ConflictError) Error() string {
	return e.Reason
}

func invalid(field, reason string) error {
	return ValidationError{Field: field, Reason: reason}
}

// lookupErr maps repo.ErrNotFound to NotFoundError and anything else to StoreError.
func lookupErr(kind string, id int64, err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return NotFoundError{Kind: kind, ID: id}
	}
	return storeErr("get "+kind, err)
}

// writeErr is lookupErr for updates and deletes: a missing row is NotFoundError, any
// other failure is a StoreError labelled with op.
func writeErr(op, kind string, id int64, err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return NotFoundError{Kind: kind, ID: id}
	}
	return storeErr(op, err)
}

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se StoreError
	if errors.As(err, &se) {
		return err
	}
	return StoreError{Op: op, Err: err}
}
