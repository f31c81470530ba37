package kmer

import (
	"fmt"

	farm "github.com/dgryski/go-farm"
)

// Terminus is the sentinel extension byte denoting a contig endpoint.
const Terminus = 'F'

// validBases are the only legal extension bytes other than Terminus.
const validBases = "ACGT"

// Pair is a fixed-length DNA sequence annotated with a single-character
// forward and backward extension. It is treated as an opaque, hashable,
// equality-comparable value by every package in this module — nothing
// outside this package inspects Sequence's bytes directly.
//
// Pair is immutable after construction and is safe to copy by value.
type Pair struct {
	Sequence string // K-base DNA subsequence
	Forward  byte   // extension base following Sequence, or Terminus
	Backward byte   // extension base preceding Sequence, or Terminus
}

// New builds a Pair, validating that forward and backward are legal
// extension bytes. It does not validate the sequence itself (that is
// kmerfile's job, since it alone knows the configured K).
func New(sequence string, forward, backward byte) (Pair, error) {
	if !isValidExt(forward) {
		return Pair{}, fmt.Errorf("kmer: invalid forward extension %q", forward)
	}
	if !isValidExt(backward) {
		return Pair{}, fmt.Errorf("kmer: invalid backward extension %q", backward)
	}
	return Pair{Sequence: sequence, Forward: forward, Backward: backward}, nil
}

func isValidExt(b byte) bool {
	if b == Terminus {
		return true
	}
	for i := 0; i < len(validBases); i++ {
		if validBases[i] == b {
			return true
		}
	}
	return false
}

// Hash returns a 64-bit hash of the sequence, used to route the k-mer to
// its owning rank and slot. Equal sequences always hash equal;
// Forward/Backward do not participate in the hash (two k-mers with the
// same sequence but different extensions — which should not occur in a
// well-formed input — would collide, which is fine since find() matches
// on sequence only).
func (p Pair) Hash() uint64 {
	return farm.Hash64WithSeed([]byte(p.Sequence), 0)
}

// Equal reports whether two k-mers have the same sequence. Per spec,
// equality is defined over the sequence only.
func (p Pair) Equal(other Pair) bool {
	return p.Sequence == other.Sequence
}

// EqualSequence reports whether this k-mer's sequence matches seq.
func (p Pair) EqualSequence(seq string) bool {
	return p.Sequence == seq
}

// IsStart reports whether this k-mer begins a contig (no predecessor).
func (p Pair) IsStart() bool {
	return p.Backward == Terminus
}

// IsEnd reports whether this k-mer ends a contig (no successor).
func (p Pair) IsEnd() bool {
	return p.Forward == Terminus
}

// NextKmer returns the sequence of the k-mer that follows this one in
// the assembly chain: this sequence shifted left by one base, with the
// forward extension appended. It is undefined (and should not be
// called) when IsEnd() is true.
func (p Pair) NextKmer() string {
	if len(p.Sequence) == 0 {
		return string(p.Forward)
	}
	return p.Sequence[1:] + string(p.Forward)
}

// String renders the k-mer in the input file's own format, useful for
// diagnostics.
func (p Pair) String() string {
	return fmt.Sprintf("%s%c%c", p.Sequence, p.Forward, p.Backward)
}
