package store

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/dreamware/dbgasm/internal/kmer"
)

// ErrFull is returned when an insert probes every slot in a segment
// without finding a free slot. Segments never
// resize (spec Non-goal), so this is terminal for that table.
var ErrFull = errors.New("store: segment full")

// Stats tracks per-segment operation counters, updated atomically so
// readers never block an insert in flight. Modeled on torua's
// shard.OperationStats: the value of counting cheaply outweighs exact
// consistency between a stats snapshot and the slots it describes.
type Stats struct {
	Inserts int64 // probe-inserts that found a free slot
	Finds   int64 // find() calls served by this segment
	Probes  int64 // total slot comparisons across all operations
}

func (s *Stats) addInsert()        { atomic.AddInt64(&s.Inserts, 1) }
func (s *Stats) addFind()          { atomic.AddInt64(&s.Finds, 1) }
func (s *Stats) addProbes(n int64) { atomic.AddInt64(&s.Probes, n) }

// Snapshot returns a point-in-time copy of the counters.
func (s *Stats) Snapshot() Stats {
	return Stats{
		Inserts: atomic.LoadInt64(&s.Inserts),
		Finds:   atomic.LoadInt64(&s.Finds),
		Probes:  atomic.LoadInt64(&s.Probes),
	}
}

type slot struct {
	used bool
	pair kmer.Pair
}

// Segment is a fixed-size, linearly-probed run of slots: the local
// portion of the distributed hash table owned by one rank. Its size
// never changes after NewSegment (spec Non-goal: no dynamic resizing),
// and every probe it performs stays within [0, Len()) — it has no
// notion of any other rank's segment and never reads or writes outside
// its own bounds.
type Segment struct {
	mu    sync.RWMutex
	slots []slot
	Stats *Stats
}

// NewSegment allocates a segment with size slots, all initially empty.
func NewSegment(size int) *Segment {
	if size <= 0 {
		panic("store: segment size must be positive")
	}
	return &Segment{
		slots: make([]slot, size),
		Stats: &Stats{},
	}
}

// Len returns the number of slots in the segment.
func (s *Segment) Len() int { return len(s.slots) }

// RequestSlot returns the first slot index a probe for hash should
// examine, local to this segment.
func (s *Segment) RequestSlot(hash uint64) int {
	return int(hash % uint64(len(s.slots)))
}

// SlotUsed reports whether slot i currently holds a k-mer.
func (s *Segment) SlotUsed(i int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slots[i].used
}

// ReadSlot returns the k-mer stored at slot i, if any.
func (s *Segment) ReadSlot(i int) (kmer.Pair, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sl := s.slots[i]
	return sl.pair, sl.used
}

// WriteSlot stores p at slot i, marking it used. Callers must already
// hold the guarantee (via Insert, or external serialization) that this
// is safe: WriteSlot itself does not check for a prior occupant.
func (s *Segment) WriteSlot(i int, p kmer.Pair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[i] = slot{used: true, pair: p}
}

// Insert probes linearly from RequestSlot(hash) for up to Len() slots,
// wrapping within the segment only, and writes p into the first free
// slot it finds. Duplicate sequences are not deduplicated: inserting
// the same k-mer twice occupies two distinct slots, since a duplicate
// probe never finds its own earlier record "matching" and stopping
// early — it simply keeps walking past occupied slots, same as any
// other collision, until it reaches a free one. If every slot is
// occupied, it returns ErrFull.
func (s *Segment) Insert(hash uint64, p kmer.Pair) (idx int, inserted bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.slots)
	start := int(hash % uint64(n))
	var probes int64
	for i := 0; i < n; i++ {
		probes++
		at := (start + i) % n
		if !s.slots[at].used {
			s.slots[at] = slot{used: true, pair: p}
			s.Stats.addProbes(probes)
			s.Stats.addInsert()
			return at, true, nil
		}
	}
	s.Stats.addProbes(probes)
	return -1, false, ErrFull
}

// Find probes linearly from RequestSlot(hash) for the k-mer whose
// sequence equals seq, stopping at the first free slot (open
// addressing's standard termination: a free slot proves no later
// match could have displaced this one during insertion, since inserts
// never delete or relocate).
func (s *Segment) Find(hash uint64, seq string) (kmer.Pair, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	s.Stats.addFind()
	n := len(s.slots)
	start := int(hash % uint64(n))
	var probes int64
	for i := 0; i < n; i++ {
		probes++
		at := (start + i) % n
		sl := s.slots[at]
		if !sl.used {
			break
		}
		if sl.pair.EqualSequence(seq) {
			s.Stats.addProbes(probes)
			return sl.pair, true
		}
	}
	s.Stats.addProbes(probes)
	return kmer.Pair{}, false
}
