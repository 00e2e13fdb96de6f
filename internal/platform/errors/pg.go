package errors

// Postgres-specific helpers for mapping pgx errors onto the project ErrorCode set

import (
	"context"
	stderrs "errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the whisper repo cares about
const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
	pgErrNotNullViolation    = "23502"
	pgErrCheckViolation      = "23514"

	pgErrSerializationFailure = "40001"
	pgErrDeadlockDetected     = "40P01"
	pgErrCannotConnectNow     = "57P03" // startup in progress
)

// ExtractPgError returns (*pgconn.PgError, true) if the root cause is a PgError
func ExtractPgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if stderrs.As(Root(err), &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// IsSQLState reports whether the error is a Postgres error with the given SQLSTATE code
func IsSQLState(err error, code string) bool {
	pgErr, ok := ExtractPgError(err)
	return ok && pgErr.Code == code
}

// IsDuplicateKey reports whether the error is a unique constraint violation
func IsDuplicateKey(err error) bool { return IsSQLState(err, pgErrUniqueViolation) }

// IsForeignKeyViolation reports whether the error is a foreign key constraint violation
func IsForeignKeyViolation(err error) bool { return IsSQLState(err, pgErrForeignKeyViolation) }

// Retryable reports whether a retry of the same operation may succeed
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if stderrs.Is(err, context.DeadlineExceeded) {
		return true
	}
	switch {
	case IsSQLState(err, pgErrSerializationFailure),
		IsSQLState(err, pgErrDeadlockDetected),
		IsSQLState(err, pgErrCannotConnectNow):
		return true
	}
	return IsCode(err, ErrorCodeUnavailable)
}

// FromPg maps a Postgres failure onto the project taxonomy
// Non-PG errors come back wrapped as Unavailable since the remote store is the
// only thing on the other side of a Queryer
func FromPg(err error, op string) error {
	if err == nil {
		return nil
	}
	pgErr, ok := ExtractPgError(err)
	if !ok {
		return WithOp(Wrap(err, ErrorCodeUnavailable, "remote store call failed"), op)
	}
	switch pgErr.Code {
	case pgErrUniqueViolation:
		return WithOp(Wrap(err, ErrorCodeConflict, "duplicate key"), op)
	case pgErrForeignKeyViolation, pgErrNotNullViolation, pgErrCheckViolation:
		return WithOp(Wrap(err, ErrorCodeInvalidArgument, "constraint violation"), op)
	default:
		return WithOp(Wrap(err, ErrorCodeUnavailable, "remote store error"), op)
	}
}
