package pgutils

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes
// See: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	// Class 23: Integrity Constraint Violation
	CodeUniqueViolation     = "23505"
	CodeForeignKeyViolation = "23503"
	CodeNotNullViolation    = "23502"
	CodeCheckViolation      = "23514"

	// Class 40: Transaction Rollback
	CodeSerializationFailure = "40001"
	CodeDeadlockDetected     = "40P01"

	// Class 55 / 57: lock and cancellation
	CodeLockNotAvailable = "55P03"
	CodeQueryCanceled    = "57014"
)

var retryableCodes = []string{
	CodeSerializationFailure,
	CodeDeadlockDetected,
	CodeLockNotAvailable,
	CodeQueryCanceled,
}

// IsUniqueViolation checks if the error is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	if hasCode(err, CodeUniqueViolation) {
		return true
	}
	return containsAny(err, "UNIQUE constraint failed")
}

// IsForeignKeyViolation checks if the error is a foreign key violation.
func IsForeignKeyViolation(err error) bool {
	if hasCode(err, CodeForeignKeyViolation) {
		return true
	}
	return containsAny(err, "FOREIGN KEY constraint failed")
}

// IsNotNullViolation checks if the error is a not-null constraint violation (23502).
func IsNotNullViolation(err error) bool {
	if hasCode(err, CodeNotNullViolation) {
		return true
	}
	return containsAny(err, "NOT NULL constraint failed")
}

// IsCheckViolation checks if the error is a check constraint violation (23514).
func IsCheckViolation(err error) bool {
	if hasCode(err, CodeCheckViolation) {
		return true
	}
	return containsAny(err, "CHECK constraint failed")
}

// IsRetryable reports whether the error interrupted a transaction in a way the
// caller can safely retry: serialization failures, deadlocks, lock timeouts,
// statement cancellation, context deadlines and SQLite busy/locked errors.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	for _, code := range retryableCodes {
		if hasCode(err, code) {
			return true
		}
	}
	return containsAny(err, "database is locked", "SQLITE_BUSY", "database table is locked")
}

// hasCode checks the SQLSTATE of a pgconn.PgError, falling back to the error text
// for drivers that only expose it in the message.
func hasCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	errStr := err.Error()
	return strings.Contains(errStr, "SQLSTATE "+code) || strings.Contains(errStr, "#"+code)
}

func containsAny(err error, needles ...string) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	for _, n := range needles {
		if strings.Contains(errStr, n) {
			return true
		}
	}
	return false
}
