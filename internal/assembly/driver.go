package assembly

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"github.com/dreamware/dbgasm/internal/contigio"
	"github.com/dreamware/dbgasm/internal/kmer"
	"github.com/dreamware/dbgasm/internal/kmerfile"
	"github.com/dreamware/dbgasm/internal/pgas"
	"github.com/dreamware/dbgasm/internal/table"
)

// maxConcurrentWalks bounds how many start-node chains a single rank
// walks at once. Each walk issues one blocking Find per step, so
// unbounded concurrency would flood the table with simultaneous RPCs;
// this is the Go-idiomatic stand-in for the original's single-threaded
// walk loop, parallelized since nothing here shares mutable state.
const maxConcurrentWalks = 16

// Driver runs one rank's share of the assembly: read its k-mer
// partition, insert, bring the table to Applied, then walk and emit
// contigs.
type Driver struct {
	rt      pgas.Runtime
	table   *table.Table
	k       int
	verbose bool
}

// New builds a Driver over an already-constructed table.Table (so the
// caller controls table sizing, which depends on the total k-mer
// count every rank must agree on before any table exists).
func New(rt pgas.Runtime, tb *table.Table, k int, verbose bool) *Driver {
	return &Driver{rt: rt, table: tb, k: k, verbose: verbose}
}

// Result is the outcome of one rank's Run.
type Result struct {
	KmersInserted int
	ContigsEmitted int
	Elapsed       time.Duration
}

// Run reads this rank's partition of kmerFile, inserts every record,
// flushes the table, walks every local start node, writes
// "<prefix>_<rank>.dat", and waits at a final Barrier for every rank
// to finish walking. Elapsed timing and a one-line summary are
// logged when verbose is set, mirroring the original driver's
// diagnostic output.
func (d *Driver) Run(ctx context.Context, kmerFile, prefix string, totalLines int, started time.Time) (Result, error) {
	rank := d.rt.RankMe()
	start, end := kmerfile.Partition(totalLines, d.rt.RankN(), rank)

	pairs, err := kmerfile.ReadPartition(kmerFile, d.k, start, end)
	if err != nil {
		return Result{}, fmt.Errorf("assembly: rank %d: read partition: %w", rank, err)
	}

	var startNodes []kmer.Pair
	for _, p := range pairs {
		if err := d.table.Insert(ctx, p); err != nil {
			return Result{}, fmt.Errorf("assembly: rank %d: insert: %w", rank, err)
		}
		if p.IsStart() {
			startNodes = append(startNodes, p)
		}
	}
	if d.verbose {
		log.Printf("rank %d: read %d k-mers (lines [%d,%d)), %d start nodes, %s since launch",
			rank, len(pairs), start, end, len(startNodes), time.Since(started))
	}

	if err := d.table.Flush(ctx); err != nil {
		return Result{}, fmt.Errorf("assembly: rank %d: flush: %w", rank, err)
	}
	if d.verbose {
		log.Printf("rank %d: table applied, %s since launch", rank, time.Since(started))
	}

	contigs, err := d.walkAll(ctx, startNodes)
	if err != nil {
		return Result{}, err
	}

	// Sort for a deterministic, diffable file across runs; walk order
	// depends on goroutine scheduling, the emitted file must not.
	slices.Sort(contigs)

	if err := contigio.WritePrefixed(prefix, rank, contigs); err != nil {
		return Result{}, fmt.Errorf("assembly: rank %d: write contigs: %w", rank, err)
	}

	// Peers may still be walking chains through this rank's segment;
	// no rank retires its table until every rank has finished walking.
	if err := d.rt.Barrier(ctx); err != nil {
		return Result{}, fmt.Errorf("assembly: rank %d: final barrier: %w", rank, err)
	}
	d.table.MarkDone()
	elapsed := time.Since(started)
	if d.verbose {
		log.Printf("rank %d: done, %d contigs, %s total", rank, len(contigs), elapsed)
	}

	return Result{
		KmersInserted:  len(pairs),
		ContigsEmitted: len(contigs),
		Elapsed:        elapsed,
	}, nil
}

func (d *Driver) walkAll(ctx context.Context, startNodes []kmer.Pair) ([]string, error) {
	contigs := make([]string, len(startNodes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentWalks)

	for i, start := range startNodes {
		i, start := i, start
		g.Go(func() error {
			chain, err := d.walkChain(gctx, start)
			if err != nil {
				return err
			}
			contigs[i] = contigio.Serialize(chain)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("assembly: walk: %w", err)
	}
	return contigs, nil
}

// walkChain follows the forward-extension chain from start until it
// reaches a k-mer whose forward extension is the terminus.
func (d *Driver) walkChain(ctx context.Context, start kmer.Pair) ([]kmer.Pair, error) {
	chain := []kmer.Pair{start}
	current := start
	for !current.IsEnd() {
		next := current.NextKmer()
		nextPair, ok, err := d.table.Find(ctx, next)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("assembly: chain broken: k-mer %q not found following %q", next, current.Sequence)
		}
		chain = append(chain, nextPair)
		current = nextPair
	}
	return chain, nil
}
