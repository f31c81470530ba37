package table

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dreamware/dbgasm/internal/batch"
	"github.com/dreamware/dbgasm/internal/kmer"
	"github.com/dreamware/dbgasm/internal/pgas"
	"github.com/dreamware/dbgasm/internal/store"
)

const applyProc = "table.apply"
const findProc = "table.find"

// findReply is the RPC reply shape for a remote find: gob requires it
// to be registered since it rides inside a pgas rpcEnvelope's Payload
// interface field.
type findReply struct {
	Found bool
	Kmer  kmer.Pair
}

func init() {
	pgas.RegisterGobType(findReply{})
	pgas.RegisterGobType("")
}

// State is a stage in the table's lifecycle. Transitions are one-way
// within a single build/query cycle; concurrent insert and lookup are
// disallowed, so State also doubles as the guard that prevents it.
type State int

const (
	// Reading: the table accepts inserts, each batched for its owning
	// rank.
	Reading State = iota
	// Buffering: at least one insert has been buffered; behaviorally
	// identical to Reading for callers, but distinguished so Info()
	// can report it.
	Buffering
	// Flushed: every buffered batch has been dispatched; some may
	// still be in flight.
	Flushed
	// Applied: every rank has confirmed its own sends landed, and a
	// barrier has established that no insert is still in flight
	// anywhere in the cluster.
	Applied
	// Finding: at least one Find has been served.
	Finding
	// Done: the table is retired; no further operations are expected
	// (informational only, Table does not enforce this one).
	Done
)

func (s State) String() string {
	switch s {
	case Reading:
		return "reading"
	case Buffering:
		return "buffering"
	case Flushed:
		return "flushed"
	case Applied:
		return "applied"
	case Finding:
		return "finding"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// ErrNotApplied is returned by Find when called before the table has
// completed its Flush/Barrier/Applied transition.
var ErrNotApplied = errors.New("table: find called before table is applied")

// Info is a snapshot of a table's routing parameters and segment
// statistics, the table-level analogue of torua's ShardInfo.
type Info struct {
	Rank   int
	State  State
	SegLen int
	Stats  store.Stats
}

// Table is the per-rank view of the distributed hash table: one local
// Segment plus a batch.Sender for everything that routes elsewhere.
type Table struct {
	rt     pgas.Runtime
	k      int
	segLen int
	seg    *store.Segment
	sender *batch.Sender

	mu    sync.Mutex
	state State
}

// New builds a Table over rt with K-mer length k and a local segment
// of segLen slots. Every rank in rt's team must call New with the same
// k and segLen, and must Register its handlers (done inside New)
// before the first Barrier.
func New(rt pgas.Runtime, k, segLen int) *Table {
	t := &Table{
		rt:     rt,
		k:      k,
		segLen: segLen,
		seg:    store.NewSegment(segLen),
		state:  Reading,
	}
	t.sender = batch.NewSender(rt, applyProc, batch.DefaultBatchSize)

	rt.Register(applyProc, func(_ context.Context, _ int, arg any) (any, error) {
		batchArg, ok := arg.([]kmer.Pair)
		if !ok {
			return nil, fmt.Errorf("table: apply: unexpected payload %T", arg)
		}
		for _, p := range batchArg {
			if _, _, err := t.seg.Insert(p.Hash(), p); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})

	rt.Register(findProc, func(_ context.Context, _ int, arg any) (any, error) {
		seq, ok := arg.(string)
		if !ok {
			return nil, fmt.Errorf("table: find: unexpected payload %T", arg)
		}
		hash := kmer.Pair{Sequence: seq}.Hash()
		p, found := t.seg.Find(hash, seq)
		return findReply{Found: found, Kmer: p}, nil
	})

	return t
}

func (t *Table) owner(hash uint64) int {
	g := uint64(t.segLen) * uint64(t.rt.RankN())
	return int((hash % g) / uint64(t.segLen))
}

func (t *Table) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// State returns the table's current lifecycle stage.
func (t *Table) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Insert routes p to its owning rank by hash and hands it to the batch
// sender, which ships it to that rank's apply handler. A k-mer owned by
// this rank takes the same path to this rank's own handler, so the
// apply handler is the only place a segment receives inserts. It is
// safe to call repeatedly from a single goroutine during the
// Reading/Buffering stages; it never blocks on delivery, and a full
// segment surfaces as an error from Flush.
func (t *Table) Insert(ctx context.Context, p kmer.Pair) error {
	t.sender.Add(ctx, t.owner(p.Hash()), p)
	t.setState(Buffering)
	return nil
}

// Flush sends every remaining buffered batch, waits for this rank's
// own sends to be acknowledged, then calls a collective Barrier so
// that every rank has done the same before returning. After Flush
// returns, the table is in the Applied state on every rank.
func (t *Table) Flush(ctx context.Context) error {
	t.sender.Flush(ctx)
	if err := t.sender.Drain(ctx); err != nil {
		return fmt.Errorf("table: drain: %w", err)
	}
	t.setState(Flushed)

	if err := t.rt.Barrier(ctx); err != nil {
		return fmt.Errorf("table: barrier: %w", err)
	}
	t.setState(Applied)
	return nil
}

// Find looks up seq, dispatching to the local segment or a remote rank
// by the same routing rule Insert used. It requires the table to have
// reached the Applied state: concurrent insert and lookup are
// disallowed, so Flush must have completed cluster-wide first.
func (t *Table) Find(ctx context.Context, seq string) (kmer.Pair, bool, error) {
	if st := t.State(); st != Applied && st != Finding {
		return kmer.Pair{}, false, ErrNotApplied
	}
	t.setState(Finding)

	hash := kmer.Pair{Sequence: seq}.Hash()
	owner := t.owner(hash)
	if owner == t.rt.RankMe() {
		p, found := t.seg.Find(hash, seq)
		return p, found, nil
	}

	reply, err := t.rt.RPC(ctx, owner, findProc, seq)
	if err != nil {
		return kmer.Pair{}, false, fmt.Errorf("table: find rpc: %w", err)
	}
	fr, ok := reply.(findReply)
	if !ok {
		return kmer.Pair{}, false, fmt.Errorf("table: find: unexpected reply %T", reply)
	}
	return fr.Kmer, fr.Found, nil
}

// MarkDone transitions the table to Done, purely informational.
func (t *Table) MarkDone() { t.setState(Done) }

// Info snapshots the table's routing parameters and segment
// statistics, for diagnostics and verbose run summaries.
func (t *Table) Info() Info {
	return Info{
		Rank:   t.rt.RankMe(),
		State:  t.State(),
		SegLen: t.segLen,
		Stats:  t.seg.Stats.Snapshot(),
	}
}
