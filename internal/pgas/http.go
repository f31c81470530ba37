package pgas

import (
	"context"
	"encoding/gob"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
)

// httpRuntime is the networked PGAS implementation: one rank per OS
// process, addressed by a static list of peer addresses. Its HTTP
// server setup (ServeMux, ReadHeaderTimeout, graceful Shutdown) is
// lifted directly from torua's cmd/node/main.go; what changes is what
// rides over HTTP — named RPC dispatch and a barrier instead of
// shard storage operations.
type httpRuntime struct {
	rank  int
	addrs []string // addrs[r] is rank r's base URL, e.g. "http://127.0.0.1:9001"

	server *http.Server

	handlersMu sync.RWMutex
	handlers   map[string]Handler
	progress   sync.Mutex // serializes inbound handler execution, like the local progress mutex

	handlesMu sync.RWMutex
	handles   map[string]any

	// barrierSeq is non-nil only on rank 0, which acts as the barrier
	// sequencer: every rank's Barrier() call, including rank 0's own,
	// funnels into this single cyclicBarrier.
	barrierSeq *cyclicBarrier

	closed sync.Once
}

// NewHTTP starts a rank's HTTP server on listen and returns a Runtime
// addressed by addrs (addrs[rank] must be this rank's own reachable
// address). It blocks until every peer's /health endpoint responds, so
// that the first Barrier() call never races a peer that hasn't started
// listening yet — startup itself is collective over the whole team.
func NewHTTP(ctx context.Context, rank int, listen string, addrs []string) (Runtime, error) {
	if rank < 0 || rank >= len(addrs) {
		return nil, fmt.Errorf("pgas: rank %d out of range for %d addrs", rank, len(addrs))
	}

	h := &httpRuntime{
		rank:     rank,
		addrs:    addrs,
		handlers: make(map[string]Handler),
		handles:  make(map[string]any),
	}
	if rank == 0 {
		h.barrierSeq = newCyclicBarrier(len(addrs))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/rpc/", h.handleRPC)
	mux.HandleFunc("/handle/", h.handleFetchHandle)
	mux.HandleFunc("/barrier", h.handleBarrierArrive)

	h.server = &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("pgas: rank %d: listen: %v", rank, err)
		}
	}()

	log.Printf("pgas: rank %d listening on %s (public %s)", rank, listen, addrs[rank])

	for r, addr := range addrs {
		if r == rank {
			continue
		}
		if err := pollHealth(ctx, addr); err != nil {
			return nil, fmt.Errorf("pgas: rank %d: peer %d never came up: %w", rank, r, err)
		}
	}

	return h, nil
}

func (h *httpRuntime) RankMe() int { return h.rank }
func (h *httpRuntime) RankN() int  { return len(h.addrs) }

func (h *httpRuntime) Register(proc string, fn Handler) {
	h.handlersMu.Lock()
	defer h.handlersMu.Unlock()
	h.handlers[proc] = fn
}

func (h *httpRuntime) Go(ctx context.Context, target int, proc string, arg any) *Future {
	f := newFuture()
	go func() {
		reply, err := h.dispatch(ctx, target, proc, arg)
		f.fulfill(reply, err)
	}()
	return f
}

func (h *httpRuntime) RPC(ctx context.Context, target int, proc string, arg any) (any, error) {
	return h.dispatch(ctx, target, proc, arg)
}

func (h *httpRuntime) dispatch(ctx context.Context, target int, proc string, arg any) (any, error) {
	if target == h.rank {
		return h.invokeLocal(ctx, proc, arg)
	}

	env := rpcEnvelope{From: h.rank, Payload: arg}
	var reply rpcEnvelope
	url := h.addrs[target] + "/rpc/" + proc
	if err := postGob(ctx, url, env, &reply); err != nil {
		return nil, fmt.Errorf("pgas: rpc %s -> rank %d: %w", proc, target, err)
	}
	return reply.Payload, nil
}

// invokeLocal runs a handler registered on this rank directly, without
// a network hop — equivalent in effect to a loopback HTTP call, but
// avoids the round trip for the common "target is myself" case (e.g. a
// self-routed insert batch, or a find whose owner is the caller).
func (h *httpRuntime) invokeLocal(ctx context.Context, proc string, arg any) (any, error) {
	h.handlersMu.RLock()
	fn, ok := h.handlers[proc]
	h.handlersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("pgas: rank %d has no handler %q", h.rank, proc)
	}

	h.progress.Lock()
	defer h.progress.Unlock()
	return fn(ctx, h.rank, arg)
}

func (h *httpRuntime) handleRPC(w http.ResponseWriter, r *http.Request) {
	proc := strings.TrimPrefix(r.URL.Path, "/rpc/")
	if proc == "" {
		http.Error(w, "missing proc name", http.StatusBadRequest)
		return
	}

	var env rpcEnvelope
	if err := gob.NewDecoder(r.Body).Decode(&env); err != nil {
		http.Error(w, "bad gob body", http.StatusBadRequest)
		return
	}

	reply, err := h.invokeLocal(r.Context(), proc, env.Payload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/gob")
	_ = gob.NewEncoder(w).Encode(rpcEnvelope{From: h.rank, Payload: reply})
}

func (h *httpRuntime) PublishHandle(name string, value any) {
	h.handlesMu.Lock()
	defer h.handlesMu.Unlock()
	h.handles[name] = value
}

func (h *httpRuntime) FetchHandle(ctx context.Context, name string, owner int) (any, error) {
	if owner == h.rank {
		h.handlesMu.RLock()
		defer h.handlesMu.RUnlock()
		v, ok := h.handles[name]
		if !ok {
			return nil, fmt.Errorf("pgas: rank %d has no published handle %q", owner, name)
		}
		return v, nil
	}

	var reply rpcEnvelope
	url := h.addrs[owner] + "/handle/" + name
	if err := getGob(ctx, url, &reply); err != nil {
		return nil, fmt.Errorf("pgas: fetch handle %q from rank %d: %w", name, owner, err)
	}
	return reply.Payload, nil
}

func (h *httpRuntime) handleFetchHandle(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/handle/")
	h.handlesMu.RLock()
	v, ok := h.handles[name]
	h.handlesMu.RUnlock()
	if !ok {
		http.Error(w, "no such handle", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/gob")
	_ = gob.NewEncoder(w).Encode(rpcEnvelope{From: h.rank, Payload: v})
}

// Barrier funnels through rank 0's cyclicBarrier: rank 0 waits on it
// directly, every other rank blocks on a POST /barrier request that
// rank 0's handler resolves only once all ranks have arrived. Rank 0 is
// not a coordinator in the cluster-topology sense — it is solely how
// this single collective primitive is realized over point-to-point
// HTTP while still establishing a global happens-before edge.
func (h *httpRuntime) Barrier(ctx context.Context) error {
	if h.rank == 0 {
		return h.barrierSeq.wait(ctx)
	}

	req, err := newRequest(ctx, http.MethodPost, h.addrs[0]+"/barrier")
	if err != nil {
		return err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pgas: barrier: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pgas: barrier: status %d", resp.StatusCode)
	}
	return nil
}

func (h *httpRuntime) handleBarrierArrive(w http.ResponseWriter, r *http.Request) {
	if err := h.barrierSeq.wait(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusGatewayTimeout)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *httpRuntime) Close() error {
	var err error
	h.closed.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = h.server.Shutdown(ctx)
	})
	return err
}

func newRequest(ctx context.Context, method, url string) (*http.Request, error) {
	return http.NewRequestWithContext(ctx, method, url, http.NoBody)
}
