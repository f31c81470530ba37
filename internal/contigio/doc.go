// Package contigio serializes a walked chain of k-mers into a contig
// string and writes per-rank contig files in the project's "test mode"
// format: one line per contig, named "<prefix>_<rank>.dat".
//
// The chain-to-string rule: the first base of every k-mer in the
// chain but the last, followed by the final k-mer's full sequence.
// Any chain walked this way round-trips back to the original
// sequence it was chopped from.
package contigio
