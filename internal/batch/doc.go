// Package batch implements the insert batcher: per-destination send
// buffers that accumulate k-mers and flush as a single fire-and-forget
// RPC once a buffer reaches its batch size, amortizing the network
// round trip that dominates the cost of a naive one-RPC-per-insert
// design.
//
// A Sender never blocks the caller on delivery. Flushing dispatches a
// batch via pgas.Runtime.Go and keeps the resulting Future; Drain is
// the only place those futures are ever awaited, matching the
// READING/BUFFERING -> FLUSHED state transition: a caller knows every
// batch has actually landed only after Drain returns.
package batch
