package pgas

import (
	"context"
	"fmt"
	"sync"
)

// cyclicBarrier is a reusable N-party rendezvous. Each generation is a
// fresh channel; the last arrival closes it, releasing everyone blocked
// on it, then resets for the next generation. Plain stdlib sync +
// channels suffice here — see DESIGN.md for why no third-party barrier
// primitive from the example pack was a better fit.
type cyclicBarrier struct {
	mu    sync.Mutex
	ch    chan struct{}
	n     int
	count int
}

func newCyclicBarrier(n int) *cyclicBarrier {
	return &cyclicBarrier{n: n, ch: make(chan struct{})}
}

func (b *cyclicBarrier) wait(ctx context.Context) error {
	b.mu.Lock()
	ch := b.ch
	b.count++
	if b.count == b.n {
		b.count = 0
		b.ch = make(chan struct{})
		close(ch)
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// localHub holds the state shared by every rank in an in-process
// cluster: per-rank handler tables, per-rank progress mutexes (the
// local stand-in for "that rank's progress thread"), per-rank
// published handle values, and the barrier.
type localHub struct {
	n        int
	barrier  *cyclicBarrier
	progress []sync.Mutex
	handlers []map[string]Handler
	handleMu []sync.RWMutex
	handles  []map[string]any
	closed   bool
	closedMu sync.Mutex
}

func newLocalHub(n int) *localHub {
	h := &localHub{
		n:        n,
		barrier:  newCyclicBarrier(n),
		progress: make([]sync.Mutex, n),
		handlers: make([]map[string]Handler, n),
		handleMu: make([]sync.RWMutex, n),
		handles:  make([]map[string]any, n),
	}
	for r := 0; r < n; r++ {
		h.handlers[r] = make(map[string]Handler)
		h.handles[r] = make(map[string]any)
	}
	return h
}

func (h *localHub) isClosed() bool {
	h.closedMu.Lock()
	defer h.closedMu.Unlock()
	return h.closed
}

// localRuntime is a Runtime backed by a shared localHub. Every rank in
// an in-process cluster holds one of these, all pointing at the same
// hub.
type localRuntime struct {
	hub  *localHub
	rank int
}

// NewLocal builds n Runtime instances sharing one in-memory PGAS
// substrate, for single-process simulation of an N-rank SPMD run (used
// by cmd/localrun and by the test suite, none of which need real
// process boundaries).
func NewLocal(n int) []Runtime {
	if n <= 0 {
		panic("pgas: NewLocal requires n > 0")
	}
	hub := newLocalHub(n)
	rts := make([]Runtime, n)
	for r := 0; r < n; r++ {
		rts[r] = &localRuntime{hub: hub, rank: r}
	}
	return rts
}

func (l *localRuntime) RankMe() int { return l.rank }
func (l *localRuntime) RankN() int  { return l.hub.n }

func (l *localRuntime) Barrier(ctx context.Context) error {
	if l.hub.isClosed() {
		return ErrClosed
	}
	return l.hub.barrier.wait(ctx)
}

func (l *localRuntime) Register(proc string, h Handler) {
	hub := l.hub
	hub.handleMu[l.rank].Lock()
	defer hub.handleMu[l.rank].Unlock()
	hub.handlers[l.rank][proc] = h
}

func (l *localRuntime) Go(ctx context.Context, target int, proc string, arg any) *Future {
	f := newFuture()
	if l.hub.isClosed() {
		f.fulfill(nil, ErrClosed)
		return f
	}
	from := l.rank
	hub := l.hub
	go func() {
		hub.progress[target].Lock()
		defer hub.progress[target].Unlock()

		hub.handleMu[target].RLock()
		h, ok := hub.handlers[target][proc]
		hub.handleMu[target].RUnlock()
		if !ok {
			f.fulfill(nil, fmt.Errorf("pgas: rank %d has no handler %q", target, proc))
			return
		}
		reply, err := h(ctx, from, arg)
		f.fulfill(reply, err)
	}()
	return f
}

func (l *localRuntime) RPC(ctx context.Context, target int, proc string, arg any) (any, error) {
	return l.Go(ctx, target, proc, arg).Wait(ctx)
}

func (l *localRuntime) PublishHandle(name string, value any) {
	hub := l.hub
	hub.handleMu[l.rank].Lock()
	defer hub.handleMu[l.rank].Unlock()
	hub.handles[l.rank][name] = value
}

func (l *localRuntime) FetchHandle(_ context.Context, name string, owner int) (any, error) {
	hub := l.hub
	hub.handleMu[owner].RLock()
	defer hub.handleMu[owner].RUnlock()
	v, ok := hub.handles[owner][name]
	if !ok {
		return nil, fmt.Errorf("pgas: rank %d has no published handle %q", owner, name)
	}
	return v, nil
}

// Close tears down the entire in-process cluster (there is no per-rank
// network connection to release individually): after any rank calls
// Close, every rank's RPC/Go/Barrier calls fail with ErrClosed.
func (l *localRuntime) Close() error {
	l.hub.closedMu.Lock()
	l.hub.closed = true
	l.hub.closedMu.Unlock()
	return nil
}
