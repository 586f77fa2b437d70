package testutil

import (
	"sync"
	"sync/atomic"

	dErrors "cpcaisse/pkg/domain-errors"
)

// ConcurrentResult tracks outcomes of concurrent test operations.
type ConcurrentResult struct {
	Successes int32
	Refusals  int32
	NotFounds int32
	Errors    int32
}

// Total returns the total number of operations executed.
func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Refusals + r.NotFounds + r.Errors
}

// RunConcurrent executes fn in parallel goroutines and buckets the outcomes.
// Illegal-transition and conflict errors count as refusals.
func RunConcurrent(goroutines int, fn func(idx int) error) *ConcurrentResult {
	var wg sync.WaitGroup
	var successes, refusals, notFounds, errs atomic.Int32

	for i := range goroutines {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			err := fn(idx)
			switch {
			case err == nil:
				successes.Add(1)
			case dErrors.HasCode(err, dErrors.CodeIllegalTransition), dErrors.HasCode(err, dErrors.CodeConflict):
				refusals.Add(1)
			case dErrors.HasCode(err, dErrors.CodeNotFound):
				notFounds.Add(1)
			default:
				errs.Add(1)
			}
		}(i)
	}

	wg.Wait()

	return &ConcurrentResult{
		Successes: successes.Load(),
		Refusals:  refusals.Load(),
		NotFounds: notFounds.Load(),
		Errors:    errs.Load(),
	}
}
