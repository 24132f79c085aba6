package pgutils

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"pg error", &pgconn.PgError{Code: CodeUniqueViolation}, true},
		{"wrapped pg error", fmt.Errorf("insert edge: %w", &pgconn.PgError{Code: CodeUniqueViolation}), true},
		{"other pg code", &pgconn.PgError{Code: CodeForeignKeyViolation}, false},
		{"pgdriver text", errors.New("ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)"), true},
		{"sqlite", errors.New("constraint failed: UNIQUE constraint failed: roles.name (2067)"), true},
		{"unrelated", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUniqueViolation(tt.err))
		})
	}
}

func TestIsForeignKeyViolation(t *testing.T) {
	assert.True(t, IsForeignKeyViolation(&pgconn.PgError{Code: CodeForeignKeyViolation}))
	assert.True(t, IsForeignKeyViolation(errors.New("constraint failed: FOREIGN KEY constraint failed (787)")))
	assert.False(t, IsForeignKeyViolation(&pgconn.PgError{Code: CodeUniqueViolation}))
	assert.False(t, IsForeignKeyViolation(nil))
}

func TestIsNotNullAndCheckViolation(t *testing.T) {
	assert.True(t, IsNotNullViolation(&pgconn.PgError{Code: CodeNotNullViolation}))
	assert.False(t, IsNotNullViolation(&pgconn.PgError{Code: CodeCheckViolation}))
	assert.True(t, IsCheckViolation(&pgconn.PgError{Code: CodeCheckViolation}))
	assert.False(t, IsCheckViolation(errors.New("boom")))

	assert.True(t, IsNotNullViolation(errors.New("constraint failed: NOT NULL constraint failed: nodes.graph_id (1299)")))
	assert.True(t, IsCheckViolation(errors.New("constraint failed: CHECK constraint failed: edges_no_self_loop (275)")))
	assert.False(t, IsCheckViolation(errors.New("constraint failed: boom (1811)")))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"serialization failure", &pgconn.PgError{Code: CodeSerializationFailure}, true},
		{"deadlock", fmt.Errorf("commit: %w", &pgconn.PgError{Code: CodeDeadlockDetected}), true},
		{"lock timeout", &pgconn.PgError{Code: CodeLockNotAvailable}, true},
		{"statement timeout", &pgconn.PgError{Code: CodeQueryCanceled}, true},
		{"context deadline", fmt.Errorf("save: %w", context.DeadlineExceeded), true},
		{"sqlite busy", errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{"unique violation", &pgconn.PgError{Code: CodeUniqueViolation}, false},
		{"plain error", errors.New("syntax error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
