package chain

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind tags the four error kinds the core observes (spec.md §7).
type ErrorKind int

const (
	BlockAlreadyExists ErrorKind = iota
	BlockDoesNotExist
	StorageFailure
	ValidationFailure
)

func (k ErrorKind) String() string {
	switch k {
	case BlockAlreadyExists:
		return "block_already_exists"
	case BlockDoesNotExist:
		return "block_does_not_exist"
	case StorageFailure:
		return "storage_failure"
	case ValidationFailure:
		return "validation_failure"
	default:
		return "unknown"
	}
}

// Error is the typed error every public orchestrator operation returns,
// carrying the failing rule name for ValidationFailure and the underlying
// cause for StorageFailure.
type Error struct {
	Kind  ErrorKind
	Rule  string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("chain: %s: %v", e.Kind, e.Cause)
	}
	if e.Rule != "" {
		return fmt.Sprintf("chain: %s: %s", e.Kind, e.Rule)
	}
	return fmt.Sprintf("chain: %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Cause }

func newValidationFailure(rule string) *Error {
	return &Error{Kind: ValidationFailure, Rule: rule}
}

// newStorageFailure wraps cause with a stack trace at the point the
// persistence call failed, since these errors are only ever logged
// (spec.md §7), never propagated to a caller that could add its own frame.
func newStorageFailure(cause error) *Error {
	return &Error{Kind: StorageFailure, Cause: errors.WithStack(cause)}
}
