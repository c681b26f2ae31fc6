package services

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// OperationGate is the single busy flag shared by list, upload, delete and
// rename. At most one of them runs at a time.
type OperationGate struct {
	sem *semaphore.Weighted
}

func NewOperationGate() *OperationGate {
	return &OperationGate{sem: semaphore.NewWeighted(1)}
}

// TryEnter claims the gate without waiting. It fails with ErrBusy while
// another operation holds it.
func (g *OperationGate) TryEnter() (release func(), err error) {
	if !g.sem.TryAcquire(1) {
		return nil, ErrBusy
	}
	return g.releaser(), nil
}

// Enter waits for the gate until ctx is done.
func (g *OperationGate) Enter(ctx context.Context) (release func(), err error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return g.releaser(), nil
}

func (g *OperationGate) releaser() func() {
	released := false
	return func() {
		if released {
			return
		}
		released = true
		g.sem.Release(1)
	}
}
