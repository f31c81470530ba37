// Package assembly is the per-rank assembly driver: read this rank's
// partition of the k-mer file, insert every k-mer into the table,
// bring the cluster to a quiescent Applied state, then walk a contig
// from every start node (a k-mer whose backward extension is the
// terminus) by repeated Find calls, and write the results.
//
// Everything here is orchestration over internal/table and
// internal/kmerfile; the hard distributed-systems work already lives
// in internal/table and internal/pgas.
package assembly
