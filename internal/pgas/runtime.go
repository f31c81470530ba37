package pgas

import (
	"context"
	"errors"
	"fmt"
)

// ErrClosed is returned by operations attempted after Close.
var ErrClosed = errors.New("pgas: runtime closed")

// Handler is a named procedure registered on every rank. It executes on
// the target rank's progress thread, serialized with every other
// invocation of any handler on that same rank — never concurrently with
// itself or with another handler on the same rank.
type Handler func(ctx context.Context, from int, arg any) (any, error)

// Future represents the result of a dispatched RPC. It is fulfilled by
// the runtime once the target rank's handler returns.
type Future struct {
	done  chan struct{}
	reply any
	err   error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) fulfill(reply any, err error) {
	f.reply, f.err = reply, err
	close(f.done)
}

// Wait blocks until the future is fulfilled or ctx is canceled. Calling
// Wait is a progress point: it is the only way (besides Barrier) that a
// caller observes completion of dispatched work.
func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.reply, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Runtime is the PGAS substrate contract: rank identity, a collective
// barrier, named RPC dispatch with futures, and distributed handle
// publication.
type Runtime interface {
	// RankMe returns this process's rank in [0, RankN()).
	RankMe() int
	// RankN returns the team size.
	RankN() int

	// Barrier is collective: every rank must call it exactly once per
	// logical phase boundary. It returns once every rank has arrived,
	// establishing a happens-before edge between everything any rank
	// did before its call and everything any rank does after.
	Barrier(ctx context.Context) error

	// Register installs a named handler that remote ranks' RPC/Go
	// calls may target on this rank. Must be called identically (same
	// names) on every rank before the first Barrier, since any rank
	// may become the target of an RPC to any registered name.
	Register(proc string, h Handler)

	// Go dispatches proc on target with arg, non-blocking: it does not
	// wait for the target to execute it. The returned Future may be
	// discarded (fire-and-forget, as the batch insert path does) or
	// awaited later at a progress point.
	Go(ctx context.Context, target int, proc string, arg any) *Future

	// RPC is the blocking convenience form: Go followed by Wait.
	RPC(ctx context.Context, target int, proc string, arg any) (any, error)

	// PublishHandle makes value readable by any rank under name,
	// scoped to this rank (the "owner" of the handle). Must be called
	// before any peer calls FetchHandle(ctx, name, RankMe()).
	PublishHandle(name string, value any)

	// FetchHandle retrieves the value rank owner published under name.
	// It is collective in spirit: the owner must have published before
	// this returns.
	FetchHandle(ctx context.Context, name string, owner int) (any, error)

	// Close releases runtime resources (listeners, goroutines).
	Close() error
}

// Handle is a typed convenience wrapper over Runtime's untyped
// publish/fetch.
type Handle[T any] struct {
	rt   Runtime
	name string
}

// NewHandle returns a Handle bound to name on rt. Publish must be
// called once on the owning rank before any peer calls Fetch against
// it.
func NewHandle[T any](rt Runtime, name string) Handle[T] {
	return Handle[T]{rt: rt, name: name}
}

// Publish makes value visible to Fetch calls naming this rank as owner.
func (h Handle[T]) Publish(value T) {
	h.rt.PublishHandle(h.name, value)
}

// Fetch retrieves the value published by rank owner.
func (h Handle[T]) Fetch(ctx context.Context, owner int) (T, error) {
	var zero T
	v, err := h.rt.FetchHandle(ctx, h.name, owner)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("pgas: handle %q: unexpected type %T", h.name, v)
	}
	return typed, nil
}
