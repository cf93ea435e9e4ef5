package aggregates

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/skintwin-backend/internal/domain/aggregates"
)

func TestMapErrorCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want domainagg.ErrorCode
	}{
		{"validation", ValidationError("bad input"), domainagg.CodeValidation},
		{"conflict", ConflictError("stale"), domainagg.CodeConflict},
		{"retryable", RetryableError("lock"), domainagg.CodeRetryable},
		{"not found", gorm.ErrRecordNotFound, domainagg.CodeNotFound},
		{"gorm duplicated key", fmt.Errorf("insert snapshot: %w", gorm.ErrDuplicatedKey), domainagg.CodeConflict},
		{"gorm foreign key", gorm.ErrForeignKeyViolated, domainagg.CodeInvariantViolation},
		{"deadline", context.DeadlineExceeded, domainagg.CodeRetryable},
		{"pg unique", &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}, domainagg.CodeConflict},
		{"pg fk", &pgconn.PgError{Code: "23503"}, domainagg.CodeInvariantViolation},
		{"pg serialization", &pgconn.PgError{Code: "40001", Message: "could not serialize access"}, domainagg.CodeRetryable},
		{"sqlite unique", errors.New("UNIQUE constraint failed: skin_snapshot.scan_id"), domainagg.CodeConflict},
		{"sqlite fk", errors.New("FOREIGN KEY constraint failed"), domainagg.CodeInvariantViolation},
		{"sqlite locked", errors.New("database is locked"), domainagg.CodeRetryable},
		{"temporary network failure", errors.New("connection reset: temporary failure"), domainagg.CodeRetryable},
		{"already exists", errors.New("snapshot for scan already exists"), domainagg.CodeConflict},
		{"unknown", errors.New("no such table: skin_snapshot"), domainagg.CodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := MapError("snapshot.create", tc.err)
			if got := domainagg.CodeOf(err); got != tc.want {
				t.Fatalf("code: want=%s got=%s (%v)", tc.want, got, err)
			}
			if !errors.Is(err, tc.err) {
				t.Fatalf("mapped error should wrap the cause")
			}
		})
	}
}

func TestMapErrorPassthrough(t *testing.T) {
	if MapError("op", nil) != nil {
		t.Fatalf("nil should stay nil")
	}
	in := domainagg.NewError(domainagg.CodeRetryable, "op", "retry", errors.New("boom"))
	if out := MapError("other", fmt.Errorf("wrapped: %w", in)); !domainagg.IsCode(out, domainagg.CodeRetryable) {
		t.Fatalf("expected the existing code to survive, got %v", out)
	}
}
