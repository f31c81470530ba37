package contigio

import (
	"bufio"
	"fmt"
	"os"

	"github.com/dreamware/dbgasm/internal/kmer"
)

// Serialize renders a walked chain of k-mers (start node first, final
// node last) as a single contig string: the first base of every k-mer
// but the last, followed by the last k-mer's full sequence. For a
// chain of length m with k-mer length K, the result has length
// m + K - 1.
func Serialize(chain []kmer.Pair) string {
	if len(chain) == 0 {
		return ""
	}
	buf := make([]byte, 0, len(chain)-1+len(chain[len(chain)-1].Sequence))
	for _, p := range chain[:len(chain)-1] {
		if len(p.Sequence) == 0 {
			continue
		}
		buf = append(buf, p.Sequence[0])
	}
	buf = append(buf, chain[len(chain)-1].Sequence...)
	return string(buf)
}

// WritePrefixed writes one contig per line to "<prefix>_<rank>.dat",
// the test-mode output format: each rank writes only the contigs it
// produced, and the caller concatenates across ranks to recover the
// full assembly.
func WritePrefixed(prefix string, rank int, contigs []string) error {
	name := fmt.Sprintf("%s_%d.dat", prefix, rank)
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("contigio: create %s: %w", name, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, c := range contigs {
		if _, err := fmt.Fprintln(w, c); err != nil {
			return fmt.Errorf("contigio: write %s: %w", name, err)
		}
	}
	return w.Flush()
}
