// Package store implements the per-rank slot storage underneath the
// distributed hash table: a fixed-size, linearly-probed segment of
// k-mer slots, plus the local atomic operation counters every segment
// tracks for diagnostics.
//
// A Segment never grows and never wraps past its own bounds — the
// table above it (internal/table) is responsible for routing a key to
// the rank and segment that owns it; a Segment only ever probes inside
// the range it was given.
package store
