package batch

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/dbgasm/internal/kmer"
	"github.com/dreamware/dbgasm/internal/pgas"
)

func mustPair(t *testing.T, seq string) kmer.Pair {
	t.Helper()
	p, err := kmer.New(seq, kmer.Terminus, kmer.Terminus)
	require.NoError(t, err)
	return p
}

func TestSenderFlushesAtBatchSize(t *testing.T) {
	rts := pgas.NewLocal(2)

	var mu sync.Mutex
	var received [][]kmer.Pair
	rts[1].Register("apply", func(_ context.Context, _ int, arg any) (any, error) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, arg.([]kmer.Pair))
		return nil, nil
	})

	s := NewSender(rts[0], "apply", 3)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		s.Add(ctx, 1, mustPair(t, string(rune('A'+i))+"CGT"))
	}

	require.NoError(t, s.Drain(ctx))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Len(t, received[0], 3)
}

func TestSenderFlushSendsPartialBuffer(t *testing.T) {
	rts := pgas.NewLocal(2)

	var mu sync.Mutex
	var received [][]kmer.Pair
	rts[1].Register("apply", func(_ context.Context, _ int, arg any) (any, error) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, arg.([]kmer.Pair))
		return nil, nil
	})

	s := NewSender(rts[0], "apply", 40)
	ctx := context.Background()
	s.Add(ctx, 1, mustPair(t, "AACG"))
	s.Add(ctx, 1, mustPair(t, "CCGA"))

	s.Flush(ctx)
	require.NoError(t, s.Drain(ctx))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Len(t, received[0], 2)
}

func TestSenderDrainSurfacesHandlerError(t *testing.T) {
	rts := pgas.NewLocal(2)
	rts[1].Register("apply", func(_ context.Context, _ int, _ any) (any, error) {
		return nil, assert.AnError
	})

	s := NewSender(rts[0], "apply", 1)
	ctx := context.Background()
	s.Add(ctx, 1, mustPair(t, "AACG"))

	err := s.Drain(ctx)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestSenderRoutesIndependentlyPerDestination(t *testing.T) {
	rts := pgas.NewLocal(3)
	counts := make([]int, 3)
	var mu sync.Mutex
	for r := 1; r < 3; r++ {
		r := r
		rts[r].Register("apply", func(_ context.Context, _ int, arg any) (any, error) {
			mu.Lock()
			defer mu.Unlock()
			counts[r] += len(arg.([]kmer.Pair))
			return nil, nil
		})
	}

	s := NewSender(rts[0], "apply", 2)
	ctx := context.Background()
	s.Add(ctx, 1, mustPair(t, "AAAA"))
	s.Add(ctx, 1, mustPair(t, "CCCC"))
	s.Add(ctx, 2, mustPair(t, "GGGG"))
	s.Flush(ctx)
	require.NoError(t, s.Drain(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, counts[1])
	assert.Equal(t, 1, counts[2])
}
