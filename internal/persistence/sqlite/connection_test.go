package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/airbussard/jvc/internal/persistence"
)

func fastRetry() *RetryHelper {
	return NewRetryHelper(RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, BackoffFactor: 2})
}

func TestRetryHelper(t *testing.T) {
	t.Run("retries while the database is locked", func(t *testing.T) {
		calls := 0
		err := fastRetry().WithRetry(context.Background(), func() error {
			calls++
			if calls < 3 {
				return errors.New("database is locked (5) (SQLITE_BUSY)")
			}
			return nil
		})
		if err != nil || calls != 3 {
			t.Fatalf("expected success on third call, got %d calls, %v", calls, err)
		}
	})

	t.Run("gives up after the configured retries", func(t *testing.T) {
		calls := 0
		err := fastRetry().WithRetry(context.Background(), func() error {
			calls++
			return errors.New("database is locked")
		})
		if err == nil || calls != 3 {
			t.Fatalf("expected failure after 3 calls, got %d calls, %v", calls, err)
		}
	})

	t.Run("maps other errors without retrying", func(t *testing.T) {
		calls := 0
		err := fastRetry().WithRetry(context.Background(), func() error {
			calls++
			return fmt.Errorf("constraint failed: UNIQUE constraint failed: unavailable_days.member_id")
		})
		if !errors.Is(err, persistence.ErrDuplicate) || calls != 1 {
			t.Fatalf("expected single mapped duplicate, got %d calls, %v", calls, err)
		}
	})
}

func TestErrorMapper(t *testing.T) {
	mapper := NewErrorMapper()
	cases := []struct {
		err  error
		want error
	}{
		{sql.ErrNoRows, persistence.ErrNotFound},
		{errors.New("FOREIGN KEY constraint failed"), persistence.ErrForeignKeyViolation},
		{errors.New("CHECK constraint failed: status"), persistence.ErrConstraintViolation},
		{errors.New("NOT NULL constraint failed: events.title"), persistence.ErrConstraintViolation},
	}
	for _, tc := range cases {
		if got := mapper.MapError(tc.err); !errors.Is(got, tc.want) {
			t.Fatalf("MapError(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
	if mapper.MapError(nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}

func TestWithTransactionRollsBack(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	now := formatTimestamp(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC))
	boom := errors.New("boom")
	err = db.pool.WithTransaction(context.Background(), func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO organization_units (id, name, created_at, updated_at) VALUES ('u-1', 'Stadtwerke', ?, ?)", now, now); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	units, err := db.OrganizationUnits.ListOrganizationUnits(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(units) != 0 {
		t.Fatalf("expected rollback, got %#v", units)
	}
}
