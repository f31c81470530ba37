package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// RankAddr is one entry in the hostfile: a rank's id and its reachable
// address.
type RankAddr struct {
	ID   int    `yaml:"id"`
	Addr string `yaml:"addr"`
}

// Tunables holds the assembly parameters every rank must agree on.
// They are part of the hostfile rather than per-rank flags because
// every rank must build the table with identical K and load factor.
// BatchSize is parsed and defaulted but not passed to the table:
// table.New always batches with batch.DefaultBatchSize.
type Tunables struct {
	K          int     `yaml:"k"`
	BatchSize  int     `yaml:"batch_size"`
	LoadFactor float64 `yaml:"load_factor"`
}

// Hostfile is the static cluster topology: the full peer list plus
// shared tunables, the same on every rank.
type Hostfile struct {
	Ranks    []RankAddr `yaml:"ranks"`
	Tunables Tunables   `yaml:"tunables"`
}

// DefaultBatchSize mirrors batch.DefaultBatchSize; duplicated here
// (rather than imported) so config has no dependency on the batch
// package, keeping the dependency graph flowing one way.
const DefaultBatchSize = 40

// DefaultLoadFactor is the occupancy target used to derive the global
// table size G from the k-mer count.
const DefaultLoadFactor = 0.5

// LoadHostfile reads and validates a YAML hostfile.
func LoadHostfile(path string) (Hostfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Hostfile{}, fmt.Errorf("config: read hostfile %s: %w", path, err)
	}

	var hf Hostfile
	if err := yaml.Unmarshal(data, &hf); err != nil {
		return Hostfile{}, fmt.Errorf("config: parse hostfile %s: %w", path, err)
	}

	if len(hf.Ranks) == 0 {
		return Hostfile{}, fmt.Errorf("config: hostfile %s lists no ranks", path)
	}
	for i, r := range hf.Ranks {
		if r.ID != i {
			return Hostfile{}, fmt.Errorf("config: hostfile %s: rank entries must be listed in id order starting at 0, got id %d at position %d", path, r.ID, i)
		}
		if r.Addr == "" {
			return Hostfile{}, fmt.Errorf("config: hostfile %s: rank %d has empty addr", path, r.ID)
		}
	}
	if hf.Tunables.K <= 0 {
		return Hostfile{}, fmt.Errorf("config: hostfile %s: tunables.k must be positive", path)
	}
	if hf.Tunables.BatchSize <= 0 {
		hf.Tunables.BatchSize = DefaultBatchSize
	}
	if hf.Tunables.LoadFactor <= 0 {
		hf.Tunables.LoadFactor = DefaultLoadFactor
	}

	return hf, nil
}

// Addrs returns the rank addresses in id order, suitable for
// pgas.NewHTTP.
func (h Hostfile) Addrs() []string {
	addrs := make([]string, len(h.Ranks))
	for _, r := range h.Ranks {
		addrs[r.ID] = r.Addr
	}
	return addrs
}

// SegmentLen computes L = ceil(G / n) where G = ceil(nKmers /
// LoadFactor), the per-rank segment size for a table sized to hold
// nKmers entries at the configured load factor.
func (h Hostfile) SegmentLen(nKmers int) int {
	g := int(float64(nKmers)/h.Tunables.LoadFactor + 0.999999)
	if g < 1 {
		g = 1
	}
	n := len(h.Ranks)
	return (g + n - 1) / n
}

// Getenv returns the environment variable k, or def if unset.
func Getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

// MustGetenv returns the environment variable k, or an error if it is
// unset or empty. It does not terminate the process: cmd/rank passes
// the error to its own logFatal var; MustGetenvInt is its
// integer-parsing counterpart.
func MustGetenv(k string) (string, error) {
	v, ok := os.LookupEnv(k)
	if !ok || v == "" {
		return "", fmt.Errorf("config: required environment variable %s is not set", k)
	}
	return v, nil
}

// MustGetenvInt parses the environment variable k as an integer.
func MustGetenvInt(k string) (int, error) {
	v, err := MustGetenv(k)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: environment variable %s is not an integer: %w", k, err)
	}
	return n, nil
}
