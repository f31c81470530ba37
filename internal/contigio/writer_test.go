package contigio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/dbgasm/internal/kmer"
)

func mustPair(t *testing.T, seq string, fwd, bwd byte) kmer.Pair {
	t.Helper()
	p, err := kmer.New(seq, fwd, bwd)
	require.NoError(t, err)
	return p
}

func TestSerializeToyChain(t *testing.T) {
	chain := []kmer.Pair{
		mustPair(t, "AAA", 'C', kmer.Terminus),
		mustPair(t, "AAC", 'C', 'A'),
		mustPair(t, "ACC", kmer.Terminus, 'A'),
	}
	assert.Equal(t, "AAACC", Serialize(chain))
}

func TestSerializeSingleKmerChain(t *testing.T) {
	chain := []kmer.Pair{mustPair(t, "GGGG", kmer.Terminus, kmer.Terminus)}
	assert.Equal(t, "GGGG", Serialize(chain))
}

func TestSerializeEmptyChain(t *testing.T) {
	assert.Equal(t, "", Serialize(nil))
}

func TestWritePrefixedWritesOneLinePerContig(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	require.NoError(t, WritePrefixed("P", 2, []string{"AAACC", "TTTGG"}))

	data, err := os.ReadFile(filepath.Join(dir, "P_2.dat"))
	require.NoError(t, err)
	assert.Equal(t, "AAACC\nTTTGG\n", string(data))
}
