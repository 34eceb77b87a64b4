package seqindex

import (
	"strings"
	"testing"

	"github.com/grailbio/ecc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func revComp(s string) string {
	comp := map[byte]byte{'A': 'T', 'C': 'G', 'G': 'C', 'T': 'A', 'N': 'N'}
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		out[i] = comp[s[len(s)-1-i]]
	}
	return string(out)
}

// bruteCount counts overlapping occurrences of pat over both strands of
// seqs, the reference the suffix array must agree with.
func bruteCount(pat string, seqs ...string) int64 {
	var n int64
	for _, s := range seqs {
		for _, strand := range []string{strings.ToUpper(s), revComp(strings.ToUpper(s))} {
			for i := 0; i+len(pat) <= len(strand); i++ {
				if strand[i:i+len(pat)] == pat {
					n++
				}
			}
		}
	}
	return n
}

func toBytes(seqs ...string) [][]byte {
	out := make([][]byte, len(seqs))
	for i, s := range seqs {
		out[i] = []byte(s)
	}
	return out
}

// walk follows pat through backward extensions and returns the final
// interval.
func walk(t *testing.T, ix *Index, pat string) ecc.Interval {
	iv := ix.Root()
	for i := len(pat) - 1; i >= 0; i-- {
		children := ix.Extend(iv, ecc.Back)
		// Backward child c prepends base c-1.
		c := strings.IndexByte("ACGT", pat[i]) + 1
		require.True(t, c > 0, "pattern %s", pat)
		iv = children[c]
	}
	return iv
}

func TestIndexCounts(t *testing.T) {
	seqs := []string{"GGTACGTAA", "GGTACGTAA", "ACACACAC", "TTTTT"}
	ix := New(toBytes(seqs...))
	for _, pat := range []string{"A", "AC", "GGTAC", "ACGTA", "CACA", "TTTT", "GGGG"} {
		got := walk(t, ix, pat).Count()
		assert.Equal(t, bruteCount(pat, seqs...), got, "pattern %s", pat)
	}
}

func TestIndexStrandSymmetry(t *testing.T) {
	seqs := []string{"GGTACGTAACCA", "TTGACCAGTA"}
	ix := New(toBytes(seqs...))
	for _, pat := range []string{"GGTAC", "ACGTA", "CCA", "TG"} {
		assert.Equal(t, walk(t, ix, pat).Count(), walk(t, ix, revComp(pat)).Count(), "pattern %s", pat)
	}
}

func TestIndexExtendSymbolOrder(t *testing.T) {
	// Single record CAT (plus its reverse complement ATG).
	ix := New(toBytes("CAT"))
	iv := walk(t, ix, "AT")

	// Backward child c prepends base c-1: only C precedes AT.
	back := ix.Extend(iv, ecc.Back)
	assert.Equal(t, int64(1), back[2].Count()) // C
	assert.Equal(t, int64(0), back[1].Count()) // A
	assert.Equal(t, int64(0), back[4].Count()) // T

	// Forward child c appends base 4-c: G follows AT only in the
	// reverse-complement strand; nothing else does.
	fwd := ix.Extend(walk(t, ix, "AT"), ecc.Fwd)
	assert.Equal(t, int64(1), fwd[2].Count()) // slot 2 appends G
	assert.Equal(t, int64(0), fwd[1].Count()) // slot 1 appends T
	assert.Equal(t, int64(0), fwd[4].Count()) // slot 4 appends A

	// AT occurs once per strand; one occurrence ends the record.
	assert.Equal(t, int64(2), iv.Count())
	assert.Equal(t, int64(1), fwd[0].Count()) // record boundary
}

func TestIndexEndToEnd(t *testing.T) {
	// Collect through the suffix-array oracle, then correct a clean read
	// drawn from the collection: it must come back untouched.
	opts := ecc.DefaultOpts
	opts.K = 5
	opts.SufLen = 1
	opts.MinOcc = 2
	seqs := []string{"GGTACGTAACT", "GGTACGTAACT", "CCATTGACGTT", "CCATTGACGTT"}
	table := ecc.Collect(&opts, New(toBytes(seqs...)))

	var total int
	for _, shard := range table {
		total += len(shard)
	}
	assert.True(t, total > 0)

	// Correct the clean read through the store built from the table.
	st := ecc.NewStore(&opts, table)
	out, _ := ecc.CorrectRead(&opts, st, "r", []byte("GGTACGTAACT"), nil, nil)
	assert.Equal(t, "GGTACGTAACT", strings.ToUpper(string(out)))
}
