package repository

import (
	stderrors "errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/Bako-Labs/bako-safe-api/engine"
)

// PostgreSQL error codes the repository classifies explicitly.
const (
	// Class 23 — Integrity Constraint Violation
	PgErrForeignKeyViolation = "23503" // foreign_key_violation
	PgErrUniqueViolation     = "23505" // unique_violation
	PgErrCheckViolation      = "23514" // check_violation
	PgErrNotNullViolation    = "23502" // not_null_violation

	// Class 08 — Connection Exception
	PgErrConnectionException = "08000" // connection_exception
	PgErrConnectionFailure   = "08006" // connection_failure
)

// dbError translates a driver error into a classified engine error. Integrity
// violations come back as invalid state since they mean the caller tried to
// write something the schema forbids, like a duplicate witness slot.
func dbError(err error, title string) error {
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		switch pgErr.Code {
		case PgErrUniqueViolation, PgErrForeignKeyViolation, PgErrCheckViolation, PgErrNotNullViolation:
			return engine.InvalidStatef(title, "pg %s: %s %s", pgErr.Code, pgErr.Message, pgErr.Detail)
		default:
			return engine.Internalf(title, "pg %s: %s %s", pgErr.Code, pgErr.Message, pgErr.Detail)
		}
	}
	return engine.Internalf(title, "%v", err)
}

// lookupError maps a read failure, turning gorm's missing-record sentinel into
// a not-found classification for the named entity.
func lookupError(err error, entity, id string) error {
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return engine.NotFoundf(entity+" not found", "%s with id %s does not exist", entity, id)
	}
	return dbError(err, "Database error")
}
