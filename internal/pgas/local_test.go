package pgas

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalRankIdentity(t *testing.T) {
	rts := NewLocal(4)
	require.Len(t, rts, 4)
	for i, rt := range rts {
		assert.Equal(t, i, rt.RankMe())
		assert.Equal(t, 4, rt.RankN())
	}
}

func TestLocalRPCRoundTrip(t *testing.T) {
	rts := NewLocal(2)
	var got int32
	rts[1].Register("double", func(_ context.Context, from int, arg any) (any, error) {
		atomic.AddInt32(&got, 1)
		n := arg.(int)
		return n * 2, nil
	})

	ctx := context.Background()
	reply, err := rts[0].RPC(ctx, 1, "double", 21)
	require.NoError(t, err)
	assert.Equal(t, 42, reply)
	assert.Equal(t, int32(1), atomic.LoadInt32(&got))
}

func TestLocalGoIsFireAndForgetButEventuallyCompletes(t *testing.T) {
	rts := NewLocal(2)
	done := make(chan struct{})
	rts[1].Register("work", func(_ context.Context, _ int, arg any) (any, error) {
		close(done)
		return nil, nil
	})

	ctx := context.Background()
	f := rts[0].Go(ctx, 1, "work", nil)
	_ = f // not awaited in the hot path, per spec

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("fire-and-forget RPC never executed")
	}
}

func TestLocalHandlersSerializedPerTargetRank(t *testing.T) {
	rts := NewLocal(2)
	var active int32
	var maxActive int32
	var mu sync.Mutex

	rts[1].Register("slow", func(_ context.Context, _ int, _ any) (any, error) {
		n := atomic.AddInt32(&active, 1)
		mu.Lock()
		if n > maxActive {
			maxActive = n
		}
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return nil, nil
	})

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = rts[0].RPC(ctx, 1, "slow", nil)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxActive, "handlers on one rank must never run concurrently")
}

func TestLocalBarrierReleasesAllRanks(t *testing.T) {
	n := 4
	rts := NewLocal(n)
	var arrived int32
	var wg sync.WaitGroup
	ctx := context.Background()

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(rt Runtime) {
			defer wg.Done()
			atomic.AddInt32(&arrived, 1)
			require.NoError(t, rt.Barrier(ctx))
			// After the barrier, every rank must have arrived.
			assert.Equal(t, int32(n), atomic.LoadInt32(&arrived))
		}(rts[i])
	}
	wg.Wait()
}

func TestLocalHandlePublishFetch(t *testing.T) {
	rts := NewLocal(2)
	h := NewHandle[string](rts[0], "greeting")
	h.Publish("hello from rank 0")

	fromPeer := NewHandle[string](rts[1], "greeting")
	got, err := fromPeer.Fetch(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "hello from rank 0", got)
}

func TestLocalFetchUnpublishedHandleErrors(t *testing.T) {
	rts := NewLocal(2)
	h := NewHandle[int](rts[1], "missing")
	_, err := h.Fetch(context.Background(), 0)
	assert.Error(t, err)
}

func TestLocalCloseRejectsFurtherWork(t *testing.T) {
	rts := NewLocal(2)
	require.NoError(t, rts[0].Close())

	_, err := rts[0].RPC(context.Background(), 1, "anything", nil)
	assert.ErrorIs(t, err, ErrClosed)
}
