package stratum

import (
	"errors"
	"fmt"
)

// ErrTxDone is returned when a committed or rolled-back transaction is
// used again. Terminal transaction states are final.
var ErrTxDone = errors.New("stratum: transaction has already been committed or rolled back")

// DatabaseError wraps a connection or SQL execution failure with the
// entity and operation it happened in. The original cause is attached and
// the engine never retries automatically; retry policy belongs to the
// caller.
type DatabaseError struct {
	Entity string // table or entity label
	Op     string // operation, e.g. "find", "insert", "batch"
	Err    error
}

// Error returns the error string.
func (e *DatabaseError) Error() string {
	if e.Entity != "" {
		return fmt.Sprintf("stratum: %s %s: %v", e.Op, e.Entity, e.Err)
	}
	return fmt.Sprintf("stratum: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *DatabaseError) Unwrap() error {
	return e.Err
}

// NewDatabaseError returns a new DatabaseError.
func NewDatabaseError(entity, op string, err error) *DatabaseError {
	return &DatabaseError{Entity: entity, Op: op, Err: err}
}

// IsDatabase returns true if the error is a DatabaseError.
func IsDatabase(err error) bool {
	if err == nil {
		return false
	}
	var e *DatabaseError
	return errors.As(err, &e)
}

// RollbackError wraps a rollback failure together with the error that
// triggered the rollback, so the secondary failure is never silently
// dropped.
type RollbackError struct {
	Err error // original error that triggered the rollback
}

// Error returns the error string.
func (e *RollbackError) Error() string {
	return fmt.Sprintf("stratum: rollback failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *RollbackError) Unwrap() error {
	return e.Err
}

// BatchError reports a failed batch execution. The partial counts
// accumulated before the failing chunk stay visible in Result.
type BatchError struct {
	Result BatchResult
	Err    error
}

// Error returns the error string.
func (e *BatchError) Error() string {
	return fmt.Sprintf("stratum: batch aborted after %d inserts, %d updates, %d deletes: %v",
		e.Result.Inserted, e.Result.Updated, e.Result.Deleted, e.Err)
}

// Unwrap returns the underlying error.
func (e *BatchError) Unwrap() error {
	return e.Err
}

// IsBatch returns true if the error is a BatchError.
func IsBatch(err error) bool {
	if err == nil {
		return false
	}
	var e *BatchError
	return errors.As(err, &e)
}
