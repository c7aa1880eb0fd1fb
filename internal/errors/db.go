package errors

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// "Key (object_key)=(...) already exists."
	reKeyField = regexp.MustCompile(`Key \(([^)]+)\)=`)
	// "... is not present in table "ingestion_jobs"."
	reNotPresent = regexp.MustCompile(`is not present in table "?([^"]+)"?`)
)

var tableNames = map[string]string{
	"ingestion_jobs":     "ingestion job",
	"evidence_documents": "evidence document",
	"connector_configs":  "connector config",
}

// MapDBError maps database errors to AppError instances.
// Unrecognized errors are returned unchanged.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &AppError{Code: ErrCodeTimeout, Message: "Request timed out. Please try again.", Cause: err}
	case errors.Is(err, context.Canceled):
		return &AppError{Code: ErrCodeCanceled, Message: "Request was canceled.", Cause: err}
	case errors.Is(err, sql.ErrNoRows):
		return &AppError{Code: ErrCodeNotFound, Message: "Resource not found", Cause: err}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return mapPgError(pgErr)
	}
	return err
}

func mapPgError(pgErr *pgconn.PgError) error {
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		field := pgErr.ColumnName
		if field == "" {
			if m := reKeyField.FindStringSubmatch(pgErr.Detail); len(m) == 2 {
				field = m[1]
			}
		}
		return &AppError{Code: ErrCodeConflict, Message: "This value already exists.", Field: field, Cause: pgErr}
	case pgerrcode.ForeignKeyViolation:
		msg := "Cannot complete operation because a referenced record does not exist."
		if m := reNotPresent.FindStringSubmatch(pgErr.Detail); len(m) == 2 {
			msg = "Cannot complete operation because the referenced " + domainName(m[1]) + " does not exist."
		}
		return &AppError{Code: ErrCodeForeignKey, Message: msg, Cause: pgErr}
	case pgerrcode.CheckViolation:
		return &AppError{Code: ErrCodeValidation, Message: "Invalid data. Please check your input.", Field: pgErr.ColumnName, Cause: pgErr}
	case pgerrcode.NotNullViolation:
		return &AppError{Code: ErrCodeValidation, Message: "Required field is missing.", Field: pgErr.ColumnName, Cause: pgErr}
	default:
		return &AppError{Code: ErrCodeInternal, Message: "A database error occurred. Please try again.", Cause: pgErr}
	}
}

func domainName(table string) string {
	table = strings.ToLower(strings.TrimSpace(table))
	if name, ok := tableNames[table]; ok {
		return name
	}
	return strings.ReplaceAll(table, "_", " ")
}
