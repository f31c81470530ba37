// Package pgas provides the partitioned global address space substrate
// that the rest of this module is built on: rank identity, a
// collective barrier, named remote procedure calls with futures, and
// distributed handle publication.
//
// # Overview
//
// Real UPC++/MPI-style PGAS programs ship closures to a remote rank and
// run them there. Go cannot serialize a closure across a process
// boundary, so this package generalizes an HTTP-handler dispatch idiom
// (a mux of named endpoints) one level: every rank registers named
// procedures ahead of time (Runtime.Register), and RPC/Go target a
// rank and a procedure name with a gob-encodable argument, rather than
// a literal closure. The effect at the call site is the same as a
// classic rpc(target, closure, args...) primitive: a future-returning
// dispatch to another rank's progress thread.
//
// # Implementations
//
// Local (local.go) runs N ranks as goroutines sharing in-memory state;
// it is used by every test outside this package's own HTTP tests and
// by cmd/localrun, and needs no
// network or serialization. HTTP (http.go) runs one rank per OS
// process, addressed by a static hostfile (internal/config), and is
// what cmd/rank uses for a real multi-process deployment. Both satisfy
// the same Runtime interface, so internal/table and internal/assembly
// never know which one they're driving.
//
// # Ordering
//
// RPCs to the same target from the same source are not guaranteed to
// execute in dispatch order. Register's handlers run
// serialized per target rank (never concurrently with each other on
// that rank), matching "naturally serialized by that rank's progress
// engine." Barrier is the only operation that establishes a
// happens-before edge across ranks.
package pgas
