package tx

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestActive(t *testing.T) {
	t.Run("bare context has no unit of work", func(t *testing.T) {
		assert.False(t, Active(context.Background()))
	})

	t.Run("scope marks an in-memory unit of work", func(t *testing.T) {
		ctx := WithScope(context.Background(), NewScope())
		assert.True(t, Active(ctx))
		_, ok := From(ctx)
		assert.False(t, ok, "scope must not pretend to carry a sql.Tx")
	})

	t.Run("nil tx is ignored", func(t *testing.T) {
		ctx := WithTx(context.Background(), (*sql.Tx)(nil))
		assert.False(t, Active(ctx))
	})
}

func TestScope(t *testing.T) {
	t.Run("commit applies writes in order then release runs hooks in reverse", func(t *testing.T) {
		var trace []string
		s := NewScope()
		s.OnRelease(func() { trace = append(trace, "unlock-a") })
		s.OnRelease(func() { trace = append(trace, "unlock-b") })
		s.OnCommit(func() { trace = append(trace, "write-1") })
		s.OnCommit(func() { trace = append(trace, "write-2") })

		s.Commit()
		s.Release()

		assert.Equal(t, []string{"write-1", "write-2", "unlock-b", "unlock-a"}, trace)
	})

	t.Run("release without commit discards writes", func(t *testing.T) {
		written := false
		released := false
		s := NewScope()
		s.OnCommit(func() { written = true })
		s.OnRelease(func() { released = true })

		s.Release()
		s.Commit()

		assert.False(t, written)
		assert.True(t, released)
	})

	t.Run("readers never observe half a commit", func(t *testing.T) {
		entered := make(chan struct{})
		proceed := make(chan struct{})
		var status, event bool
		s := NewScope()
		s.OnCommit(func() {
			status = true
			close(entered)
			<-proceed
		})
		s.OnCommit(func() { event = true })

		committed := make(chan struct{})
		go func() {
			s.Commit()
			close(committed)
		}()
		<-entered

		seen := make(chan [2]bool, 1)
		go func() {
			defer ReadCommitted()()
			seen <- [2]bool{status, event}
		}()
		select {
		case <-seen:
			t.Fatal("reader ran while a commit was applying")
		case <-time.After(20 * time.Millisecond):
		}

		close(proceed)
		assert.Equal(t, [2]bool{true, true}, <-seen)
		<-committed
	})
}
