// Command rank runs one process of a distributed de Bruijn graph
// contig assembly: one rank among N peers listed in a YAML hostfile,
// communicating over HTTP.
//
// Configuration:
//   - RANK_ID: this process's rank (required, must match an id in the hostfile)
//   - RANK_HOSTFILE: path to the YAML hostfile (required)
//   - RANK_LISTEN: listen address override (default: the hostfile's own addr)
//   - RANK_KMER_FILE: path to this run's k-mer file (required)
//   - RANK_OUTPUT_PREFIX: contig output prefix (default: "contigs")
//   - RANK_VERBOSE: any non-empty value (e.g. "1") enables per-stage timing logs (default: off)
//
// Example usage:
//
//	RANK_ID=0 RANK_HOSTFILE=hosts.yaml RANK_KMER_FILE=kmers.txt ./rank
package main

import (
	"context"
	"log"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dreamware/dbgasm/internal/assembly"
	"github.com/dreamware/dbgasm/internal/config"
	"github.com/dreamware/dbgasm/internal/kmerfile"
	"github.com/dreamware/dbgasm/internal/pgas"
	"github.com/dreamware/dbgasm/internal/table"
)

// logFatal is a variable so tests can intercept a fatal configuration
// error without killing the test binary.
var logFatal = log.Fatalf

func main() {
	started := time.Now()

	hostfilePath, err := config.MustGetenv("RANK_HOSTFILE")
	if err != nil {
		logFatal("%v", err)
	}
	rankID, err := config.MustGetenvInt("RANK_ID")
	if err != nil {
		logFatal("%v", err)
	}
	kmerFile, err := config.MustGetenv("RANK_KMER_FILE")
	if err != nil {
		logFatal("%v", err)
	}
	prefix := config.Getenv("RANK_OUTPUT_PREFIX", "contigs")
	verbose := config.Getenv("RANK_VERBOSE", "") != ""

	hf, err := config.LoadHostfile(hostfilePath)
	if err != nil {
		logFatal("%v", err)
	}
	if rankID < 0 || rankID >= len(hf.Ranks) {
		logFatal("RANK_ID %d out of range for hostfile with %d ranks", rankID, len(hf.Ranks))
	}

	fileK, err := kmerfile.KmerLen(kmerFile)
	if err != nil {
		logFatal("%v", err)
	}
	if fileK != hf.Tunables.K {
		logFatal("k-mer file %s has K=%d, hostfile configures K=%d", kmerFile, fileK, hf.Tunables.K)
	}

	listen := config.Getenv("RANK_LISTEN", listenAddrFor(hf.Ranks[rankID].Addr))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, err := pgas.NewHTTP(ctx, rankID, listen, hf.Addrs())
	if err != nil {
		logFatal("rank %d: %v", rankID, err)
	}
	defer rt.Close()

	total, err := kmerfile.CountLines(kmerFile)
	if err != nil {
		logFatal("rank %d: %v", rankID, err)
	}
	segLen := hf.SegmentLen(total)

	tb := table.New(rt, hf.Tunables.K, segLen)
	driver := assembly.New(rt, tb, hf.Tunables.K, verbose)

	// Every rank registered its table handlers above; Barrier here
	// ensures no rank starts inserting before every peer is ready to
	// receive a batch.
	if err := rt.Barrier(ctx); err != nil {
		logFatal("rank %d: initial barrier: %v", rankID, err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	runDone := make(chan error, 1)
	go func() {
		_, err := driver.Run(ctx, kmerFile, prefix, total, started)
		runDone <- err
	}()

	select {
	case err := <-runDone:
		if err != nil {
			logFatal("rank %d: %v", rankID, err)
		}
		log.Printf("rank %d: assembly complete, %s total", rankID, time.Since(started))
	case sig := <-stop:
		log.Printf("rank %d: received %v, shutting down", rankID, sig)
		cancel()
	}
}

// listenAddrFor strips the scheme from a published rank URL to get a
// bindable host:port, so a rank's own hostfile entry doubles as its
// default listen address.
func listenAddrFor(addr string) string {
	u, err := url.Parse(addr)
	if err != nil || u.Host == "" {
		return addr
	}
	return u.Host
}
