package tx

import (
	"context"
	"database/sql"
	"errors"
	"time"

	dErrors "cpcaisse/pkg/domain-errors"
)

// DefaultTimeout bounds a unit of work when the caller set no deadline.
const DefaultTimeout = 5 * time.Second

// Runner executes fn as one unit of work: everything fn writes through
// ctx-aware stores commits together or not at all.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// SQLRunner runs units of work in a database transaction.
type SQLRunner struct {
	db      *sql.DB
	timeout time.Duration
}

func NewSQLRunner(db *sql.DB, timeout time.Duration) *SQLRunner {
	return &SQLRunner{db: db, timeout: timeout}
}

func (t *SQLRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel, err := bound(ctx, t.timeout)
	if err != nil {
		return err
	}
	defer cancel()

	sqlTx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence(ctx, err, "failed to begin transaction")
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := fn(WithTx(ctx, sqlTx)); err != nil {
		if ctx.Err() != nil {
			return persistence(ctx, err, "transaction timed out")
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return persistence(ctx, err, "failed to commit transaction")
	}
	return nil
}

// ScopeRunner runs units of work against in-memory stores through a Scope.
type ScopeRunner struct {
	timeout time.Duration
}

func NewScopeRunner(timeout time.Duration) *ScopeRunner {
	return &ScopeRunner{timeout: timeout}
}

func (t *ScopeRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel, err := bound(ctx, t.timeout)
	if err != nil {
		return err
	}
	defer cancel()

	scope := NewScope()
	defer scope.Release()

	if err := fn(WithScope(ctx, scope)); err != nil {
		return err
	}
	// A unit of work that outlived its deadline must not commit.
	if ctx.Err() != nil {
		return persistence(ctx, ctx.Err(), "transaction timed out")
	}
	scope.Commit()
	return nil
}

// bound rejects a cancelled context and applies the default timeout when the
// caller set no deadline.
func bound(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc, error) {
	if err := ctx.Err(); err != nil {
		return ctx, func() {}, dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, cancel, nil
}

// persistence marks a transaction failure as retryable. A deadline hit is
// reported the same way: the work rolled back and may simply be retried.
func persistence(ctx context.Context, err error, msg string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		msg = "transaction timed out"
	}
	return &dErrors.Error{Code: dErrors.CodePersistence, Message: msg, Err: err}
}
