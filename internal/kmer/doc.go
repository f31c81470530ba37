// Package kmer defines the fixed-size k-mer record shared by every rank
// in the cluster: a DNA subsequence paired with its forward and backward
// extension bytes.
//
// # Overview
//
// A Pair is the atomic unit stored in the partitioned hash table (see
// internal/table). It is intentionally thin: this package owns
// extension validation, hashing, equality and the chain-walking
// helpers (NextKmer, IsStart, IsEnd), nothing else. The file format that produces Pairs lives
// in internal/kmerfile; the table that stores them lives in
// internal/table.
//
// # Extensions
//
// Forward and Backward are single bytes drawn from {A,C,G,T,F}. 'F' is
// the sentinel meaning "no further base" — it marks a contig terminus
// in that direction. A k-mer whose Backward extension is 'F' is a
// contig start node; a k-mer whose Forward extension is 'F' is a contig
// end node.
//
// # Hashing
//
// Hash uses farm hash (github.com/dgryski/go-farm) over the sequence
// bytes. The hash must be deterministic across ranks and across
// processes within a run — farm hash has no seeding from process state,
// so this holds.
package kmer
