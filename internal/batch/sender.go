package batch

import (
	"context"
	"sync"

	"github.com/dreamware/dbgasm/internal/kmer"
	"github.com/dreamware/dbgasm/internal/pgas"
)

// DefaultBatchSize is the number of k-mers a per-destination buffer
// accumulates before it is flushed.
const DefaultBatchSize = 40

func init() {
	pgas.RegisterGobType([]kmer.Pair(nil))
}

// Sender batches outgoing k-mer inserts per destination rank and
// flushes each buffer as a single RPC once it fills, or on an explicit
// Flush. proc names the handler registered on every rank (via
// table.Table) that accepts a flushed batch.
type Sender struct {
	rt        pgas.Runtime
	proc      string
	batchSize int

	mu      sync.Mutex
	buffers [][]kmer.Pair
	futures []*pgas.Future
}

// NewSender builds a Sender with one buffer per rank in rt's team.
func NewSender(rt pgas.Runtime, proc string, batchSize int) *Sender {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Sender{
		rt:        rt,
		proc:      proc,
		batchSize: batchSize,
		buffers:   make([][]kmer.Pair, rt.RankN()),
	}
}

// Add appends p to dest's buffer, then flushes the buffer if it has
// reached batchSize. Flushing is fire-and-forget: Add never blocks on the
// remote rank applying the batch.
func (s *Sender) Add(ctx context.Context, dest int, p kmer.Pair) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buffers[dest] = append(s.buffers[dest], p)
	if len(s.buffers[dest]) >= s.batchSize {
		s.flushLocked(ctx, dest)
	}
}

func (s *Sender) flushLocked(ctx context.Context, dest int) {
	buf := s.buffers[dest]
	if len(buf) == 0 {
		return
	}
	s.buffers[dest] = nil

	f := s.rt.Go(ctx, dest, s.proc, buf)
	s.futures = append(s.futures, f)
}

// Flush dispatches every non-empty buffer regardless of size, the
// "send remaining k-mers" step that always runs once before the next
// barrier (the Buffering -> Flushed transition).
func (s *Sender) Flush(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for dest := range s.buffers {
		s.flushLocked(ctx, dest)
	}
}

// Drain waits for every dispatched batch's RPC to complete and reports
// the first error encountered, if any. Callers should Flush before
// Drain so nothing partially-filled is left unsent. After Drain
// returns, the Sender holds no outstanding futures.
func (s *Sender) Drain(ctx context.Context) error {
	s.mu.Lock()
	futures := s.futures
	s.futures = nil
	s.mu.Unlock()

	var firstErr error
	for _, f := range futures {
		if _, err := f.Wait(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Pending returns the number of batches dispatched but not yet
// Drain-ed, useful for diagnostics and tests.
func (s *Sender) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.futures)
}
