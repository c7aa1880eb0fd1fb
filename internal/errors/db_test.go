package errors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestMapDBError_NilError(t *testing.T) {
	if err := MapDBError(nil); err != nil {
		t.Errorf("MapDBError(nil) = %v, want nil", err)
	}
}

func TestMapDBError_Sentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode ErrorCode
	}{
		{"deadline exceeded", context.DeadlineExceeded, ErrCodeTimeout},
		{"canceled", context.Canceled, ErrCodeCanceled},
		{"no rows", sql.ErrNoRows, ErrCodeNotFound},
		{"wrapped no rows", fmt.Errorf("get job: %w", sql.ErrNoRows), ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapDBError(tt.err)
			if GetCode(err) != tt.wantCode {
				t.Errorf("MapDBError() code = %v, want %v", GetCode(err), tt.wantCode)
			}
			if !errors.Is(err, tt.err) {
				t.Error("mapped error should wrap the original")
			}
		})
	}
}

func TestMapDBError_UniqueViolation(t *testing.T) {
	tests := []struct {
		name      string
		pgErr     *pgconn.PgError
		wantField string
	}{
		{
			name:      "column name set",
			pgErr:     &pgconn.PgError{Code: pgerrcode.UniqueViolation, ColumnName: "source_type"},
			wantField: "source_type",
		},
		{
			name: "field parsed from detail",
			pgErr: &pgconn.PgError{
				Code:   pgerrcode.UniqueViolation,
				Detail: `Key (object_key)=(evidence/news_api/x.json) already exists.`,
			},
			wantField: "object_key",
		},
		{
			name:      "no field information",
			pgErr:     &pgconn.PgError{Code: pgerrcode.UniqueViolation},
			wantField: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapDBError(tt.pgErr)
			if !IsConflict(err) {
				t.Fatalf("MapDBError() code = %v, want conflict", GetCode(err))
			}
			if GetField(err) != tt.wantField {
				t.Errorf("field = %q, want %q", GetField(err), tt.wantField)
			}
		})
	}
}

func TestMapDBError_ForeignKeyViolation(t *testing.T) {
	err := MapDBError(&pgconn.PgError{
		Code:   pgerrcode.ForeignKeyViolation,
		Detail: `Key (job_id)=(abc) is not present in table "ingestion_jobs".`,
	})
	if !IsForeignKey(err) {
		t.Fatalf("code = %v, want foreign_key", GetCode(err))
	}
	var appErr *AppError
	if !errors.As(err, &appErr) || !strings.Contains(appErr.Message, "ingestion job") {
		t.Errorf("message should name the ingestion job, got %q", appErr.Message)
	}

	err = MapDBError(&pgconn.PgError{
		Code:   pgerrcode.ForeignKeyViolation,
		Detail: `Key (x)=(1) is not present in table "other_things".`,
	})
	if !errors.As(err, &appErr) || !strings.Contains(appErr.Message, "other things") {
		t.Errorf("unknown tables fall back to a readable name, got %q", appErr.Message)
	}
}

func TestMapDBError_Validation(t *testing.T) {
	for _, code := range []string{pgerrcode.CheckViolation, pgerrcode.NotNullViolation} {
		err := MapDBError(&pgconn.PgError{Code: code, ColumnName: "status"})
		if !IsValidation(err) {
			t.Errorf("code %s: got %v, want validation", code, GetCode(err))
		}
		if GetField(err) != "status" {
			t.Errorf("code %s: field = %q", code, GetField(err))
		}
	}
}

func TestMapDBError_OtherPgErrorIsInternal(t *testing.T) {
	err := MapDBError(&pgconn.PgError{Code: pgerrcode.SerializationFailure})
	if GetCode(err) != ErrCodeInternal {
		t.Errorf("code = %v, want internal", GetCode(err))
	}
}

func TestMapDBError_UnknownPassthrough(t *testing.T) {
	orig := errors.New("network unreachable")
	if err := MapDBError(orig); err != orig {
		t.Errorf("MapDBError() = %v, want original error", err)
	}
}
