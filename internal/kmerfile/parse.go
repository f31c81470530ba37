package kmerfile

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/dreamware/dbgasm/internal/kmer"
)

// ErrKMismatch is returned when a line's sequence length does not match
// the configured K for this run.
var ErrKMismatch = fmt.Errorf("kmerfile: line length does not match configured K")

// CountLines reports the total number of k-mer records in fname,
// without parsing them. Used to size the partitioned table (spec's
// G = ceil(n_kmers / load_factor)) before any rank reads its partition.
func CountLines(fname string) (int, error) {
	f, err := os.Open(fname)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		n++
	}
	if err := sc.Err(); err != nil {
		return 0, err
	}
	return n, nil
}

// Partition computes the half-open line range [start, end) that rank r
// of n should read, per spec's floor-division partitioning with the
// last rank taking the remainder.
func Partition(total, n, r int) (start, end int) {
	start = r * total / n
	end = (r + 1) * total / n
	if r == n-1 {
		end = total
	}
	return start, end
}

// ReadPartition reads lines [start, end) of fname, decoding each into a
// kmer.Pair and validating its sequence length against k. It returns
// ErrKMismatch (wrapped with the offending line) on the first
// length mismatch — fatal at startup per spec's error model.
func ReadPartition(fname string, k, start, end int) ([]kmer.Pair, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []kmer.Pair
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		if line >= end {
			break
		}
		if line >= start {
			p, err := decodeLine(sc.Text(), k)
			if err != nil {
				return nil, fmt.Errorf("kmerfile: %s:%d: %w", fname, line+1, err)
			}
			out = append(out, p)
		}
		line++
	}
	if err := sc.Err(); err != nil && err != io.EOF {
		return nil, err
	}
	return out, nil
}

// decodeLine splits a single line into its sequence and two extension
// bytes, validating the sequence length against k.
func decodeLine(text string, k int) (kmer.Pair, error) {
	if len(text) != k+2 {
		return kmer.Pair{}, fmt.Errorf("%w: got %d-mer (line length %d), want %d-mer",
			ErrKMismatch, len(text)-2, len(text), k)
	}
	seq := text[:k]
	forward := text[k]
	backward := text[k+1]
	return kmer.New(seq, forward, backward)
}

// KmerLen inspects the first non-empty line of fname and returns the
// k-mer length it implies (line length minus the two extension bytes).
// Used at startup to validate the file against the configured K before
// any rank begins reading its partition, per spec's "parser ... rejects
// files whose K mismatches the compiled K."
func KmerLen(fname string) (int, error) {
	f, err := os.Open(fname)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		return len(sc.Bytes()) - 2, sc.Err()
	}
	return 0, fmt.Errorf("kmerfile: %s is empty", fname)
}
