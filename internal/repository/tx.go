package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Querier is satisfied by both *sql.DB and *sql.Tx so that repository
// methods can run standalone or inside a caller's transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// RetryPolicy bounds how often a transient storage failure is retried.
// Backoff doubles after every failed attempt.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// NoRetry runs an operation exactly once.
var NoRetry = RetryPolicy{Attempts: 1}

// MySQL error numbers that mean "try the whole transaction again".
const (
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
)

// IsTransient reports whether err is a storage failure that is expected
// to succeed on retry: a deadlock victim, a lock wait timeout or a
// broken pooled connection.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlErrDeadlock, mysqlErrLockWaitTimeout:
			return true
		}
	}
	return false
}

// Retry calls fn until it succeeds, fails with a non-transient error, or
// the policy's attempts are exhausted.
func Retry(ctx context.Context, p RetryPolicy, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := p.Backoff
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil || !IsTransient(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		if backoff > 0 {
			t := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
			backoff *= 2
		}
	}
	return err
}

// RunInTx runs fn inside a transaction and commits when fn returns nil.
// Any error from fn rolls the transaction back.  Transient failures
// retry the whole transaction according to p, so fn must not keep state
// between attempts other than what it recomputes.
func RunInTx(ctx context.Context, db *sql.DB, p RetryPolicy, fn func(tx *sql.Tx) error) error {
	return Retry(ctx, p, func() error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		committed := false
		defer func() {
			if !committed {
				_ = tx.Rollback()
			}
		}()
		if err := fn(tx); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		committed = true
		return nil
	})
}
