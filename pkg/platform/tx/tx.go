// Package tx carries an ambient unit of work through a context so that
// stores participating in one transaction share it. SQL stores join the
// *sql.Tx; in-memory stores join a Scope that buffers their writes until
// commit.
package tx

import (
	"context"
	"database/sql"
	"sync"
)

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

// commits is held exclusively while a Scope applies its writes and shared by
// in-memory readers, so a reader sees all of a unit of work or none of it,
// across stores.
var commits sync.RWMutex

// ReadCommitted blocks in-memory commits until the returned func is called.
// Commit hooks must not call it.
func ReadCommitted() (done func()) {
	commits.RLock()
	return commits.RUnlock
}

// Scope is an in-memory unit of work. Writes registered with OnCommit run in
// order on Commit and are discarded otherwise; OnRelease hooks (lock
// releases) always run, in reverse order, on Release.
type Scope struct {
	mu       sync.Mutex
	commits  []func()
	releases []func()
	done     bool
}

func NewScope() *Scope {
	return &Scope{}
}

// OnCommit defers a write until the scope commits.
func (s *Scope) OnCommit(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commits = append(s.commits, fn)
}

// OnRelease registers a hook that runs when the scope ends, committed or not.
func (s *Scope) OnRelease(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releases = append(s.releases, fn)
}

// Commit applies buffered writes. Calling it twice is a no-op.
func (s *Scope) Commit() {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.done = true
	hooks := s.commits
	s.commits = nil
	s.mu.Unlock()

	commits.Lock()
	defer commits.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

// Release drops uncommitted writes and runs release hooks.
func (s *Scope) Release() {
	s.mu.Lock()
	s.done = true
	s.commits = nil
	releases := s.releases
	s.releases = nil
	s.mu.Unlock()

	for i := len(releases) - 1; i >= 0; i-- {
		releases[i]()
	}
}

type scopeKey struct{}

// WithScope attaches an in-memory unit of work to ctx.
func WithScope(ctx context.Context, s *Scope) context.Context {
	if s == nil {
		return ctx
	}
	return context.WithValue(ctx, scopeKey{}, s)
}

// ScopeFrom extracts the in-memory unit of work from ctx if present.
func ScopeFrom(ctx context.Context) (*Scope, bool) {
	s, ok := ctx.Value(scopeKey{}).(*Scope)
	return s, ok
}

// Active reports whether ctx carries any unit of work, SQL or in-memory.
func Active(ctx context.Context) bool {
	if _, ok := From(ctx); ok {
		return true
	}
	_, ok := ScopeFrom(ctx)
	return ok
}
