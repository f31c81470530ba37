// Package table wires internal/store, internal/batch and internal/pgas
// together into a distributed hash table: each rank owns one Segment
// of a larger, conceptually flat slot space, keys route to their
// owning rank by hash, and inserts travel there batched while finds
// travel there by direct RPC.
//
// A Table enforces a state machine (Reading -> Buffering ->
// Flushed -> Applied -> Finding -> Done) so that a caller cannot, say,
// Find before every rank has finished applying its received batches.
package table
