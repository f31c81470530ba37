// Command localrun assembles contigs from a k-mer file using an
// in-process simulation of N ranks (pgas.Local): every rank is a
// goroutine sharing one in-memory PGAS substrate instead of a separate
// OS process. It exists for development and for reproducing the
// end-to-end scenarios without standing up a real cluster.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dreamware/dbgasm/internal/assembly"
	"github.com/dreamware/dbgasm/internal/config"
	"github.com/dreamware/dbgasm/internal/kmerfile"
	"github.com/dreamware/dbgasm/internal/pgas"
	"github.com/dreamware/dbgasm/internal/table"
)

func main() {
	ranks := flag.Int("ranks", 1, "number of simulated ranks")
	k := flag.Int("k", 0, "k-mer length; 0 infers it from the input file")
	kmerFile := flag.String("kmers", "", "path to the k-mer file (required)")
	prefix := flag.String("prefix", "contigs", "output contig file prefix")
	loadFactor := flag.Float64("load-factor", config.DefaultLoadFactor, "target table load factor")
	verbose := flag.Bool("verbose", false, "log per-stage timing")
	flag.Parse()

	if *kmerFile == "" {
		log.Fatal("localrun: -kmers is required")
	}
	if *ranks <= 0 {
		log.Fatal("localrun: -ranks must be positive")
	}

	started := time.Now()

	kLen := *k
	if kLen == 0 {
		inferred, err := kmerfile.KmerLen(*kmerFile)
		if err != nil {
			log.Fatalf("localrun: %v", err)
		}
		kLen = inferred
	}

	total, err := kmerfile.CountLines(*kmerFile)
	if err != nil {
		log.Fatalf("localrun: %v", err)
	}

	hf := config.Hostfile{Tunables: config.Tunables{K: kLen, LoadFactor: *loadFactor}}
	for i := 0; i < *ranks; i++ {
		hf.Ranks = append(hf.Ranks, config.RankAddr{ID: i})
	}
	segLen := hf.SegmentLen(total)

	runtimes := pgas.NewLocal(*ranks)
	defer func() {
		for _, rt := range runtimes {
			_ = rt.Close()
		}
	}()

	drivers := make([]*assembly.Driver, *ranks)
	for i, rt := range runtimes {
		tb := table.New(rt, kLen, segLen)
		drivers[i] = assembly.New(rt, tb, kLen, *verbose)
	}

	// The initial barrier is implicit here: every rank's handlers are
	// registered by table.New above, synchronously, before any
	// goroutine below can dispatch an RPC against them.

	g, ctx := errgroup.WithContext(context.Background())
	results := make([]assembly.Result, *ranks)
	for i := range runtimes {
		i := i
		g.Go(func() error {
			res, err := drivers[i].Run(ctx, *kmerFile, *prefix, total, started)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("localrun: %v", err)
	}

	var totalKmers, totalContigs int
	for _, r := range results {
		totalKmers += r.KmersInserted
		totalContigs += r.ContigsEmitted
	}
	log.Printf("localrun: %d ranks, %d k-mers, %d contigs, %s total",
		*ranks, totalKmers, totalContigs, time.Since(started))
}
