// Package integration runs the assembly pipeline end-to-end against
// a handful of worked contig scenarios, using the in-process pgas.Local runtime
// so the tests exercise the same table/batch/pgas machinery a real
// cluster would without needing separate processes.
package integration

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/dbgasm/internal/assembly"
	"github.com/dreamware/dbgasm/internal/kmerfile"
	"github.com/dreamware/dbgasm/internal/pgas"
	"github.com/dreamware/dbgasm/internal/table"
)

// linearChainLines renders seq as k-mer file lines for the single
// linear contig it encodes: one line per k-mer, forward/backward
// extensions chosen so the chain starts and ends at seq's boundaries.
func linearChainLines(k int, seq string) []string {
	nKmers := len(seq) - k + 1
	lines := make([]string, nKmers)
	for i := 0; i < nKmers; i++ {
		kmerSeq := seq[i : i+k]
		fwd := byte('F')
		if i < nKmers-1 {
			fwd = seq[i+k]
		}
		bwd := byte('F')
		if i > 0 {
			bwd = seq[i-1]
		}
		lines[i] = kmerSeq + string(fwd) + string(bwd)
	}
	return lines
}

func writeLines(t *testing.T, lines []string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "kmers.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

// chdirToTemp switches the process into a fresh temp directory for the
// duration of the test, since the driver writes its output relative to
// the current working directory.
func chdirToTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	outDir := t.TempDir()
	require.NoError(t, os.Chdir(outDir))
	t.Cleanup(func() { os.Chdir(wd) })
}

// runCluster drives n ranks of the assembly pipeline over pgas.Local
// against kmerFile, returning the sorted union of all contigs written
// under prefix in the current working directory.
func runCluster(t *testing.T, n, k int, kmerFile, prefix string) []string {
	t.Helper()

	total, err := kmerfile.CountLines(kmerFile)
	require.NoError(t, err)

	rts := pgas.NewLocal(n)
	defer func() {
		for _, rt := range rts {
			_ = rt.Close()
		}
	}()

	const loadFactor = 0.5
	g := int(float64(total)/loadFactor) + 1
	segLen := (g + n - 1) / n
	if segLen < 1 {
		segLen = 1
	}

	drivers := make([]*assembly.Driver, n)
	for i, rt := range rts {
		tb := table.New(rt, k, segLen)
		drivers[i] = assembly.New(rt, tb, k, false)
	}

	errs := make(chan error, n)
	for i := range rts {
		i := i
		go func() {
			_, err := drivers[i].Run(context.Background(), kmerFile, prefix, total, time.Now())
			errs <- err
		}()
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-errs)
	}

	var contigs []string
	for rank := 0; rank < n; rank++ {
		data, err := os.ReadFile(prefix + "_" + strconv.Itoa(rank) + ".dat")
		require.NoError(t, err)
		for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
			if line != "" {
				contigs = append(contigs, line)
			}
		}
	}
	sort.Strings(contigs)
	return contigs
}

func TestScenarioSingleRankLinearContig(t *testing.T) {
	chdirToTemp(t)

	path := writeLines(t, linearChainLines(3, "AAACC")) // AAA -> AAC -> ACC
	contigs := runCluster(t, 1, 3, path, "scenario1")
	assert.Equal(t, []string{"AAACC"}, contigs)
}

func TestScenarioTwoRanksSameContigRegardlessOfPartition(t *testing.T) {
	chdirToTemp(t)

	path := writeLines(t, linearChainLines(3, "AAACC"))
	contigs := runCluster(t, 2, 3, path, "scenario2")
	assert.Equal(t, []string{"AAACC"}, contigs)
}

// TestScenarioFourRanksManyDistinctContigsRoundTrip reproduces the
// shape of a many-contig workload (independent contigs scattered
// across ranks by hash, not by input order): four hand-picked contigs,
// each internally non-repeating and sharing no k-mer with any other,
// so the test can assert exact round-trip reconstruction.
func TestScenarioFourRanksManyDistinctContigsRoundTrip(t *testing.T) {
	chdirToTemp(t)

	const k = 3
	expected := []string{
		"AAACC",
		"GGGTT",
		"CCCAA",
		"TTTGG",
	}

	var lines []string
	for _, seq := range expected {
		lines = append(lines, linearChainLines(k, seq)...)
	}
	path := writeLines(t, lines)

	sort.Strings(expected)
	contigs := runCluster(t, 4, k, path, "scenario6")
	assert.Equal(t, expected, contigs)

	var sumKmers, sumLengths int
	for _, c := range expected {
		sumKmers += len(c) - k + 1
	}
	for _, c := range contigs {
		sumLengths += len(c)
	}
	assert.Equal(t, sumKmers+len(expected)*(k-1), sumLengths)
}
