package ecc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBetaBinomialSumsToOne(t *testing.T) {
	for _, ab := range [][2]float64{{0.05, 4.95}, {10, 10}, {10, 20}} {
		for _, n := range []int{1, 10, 120} {
			sum := 0.0
			for k := 0; k <= n; k++ {
				p := betaBinomial(n, k, ab[0], ab[1])
				assert.True(t, p >= 0 && p <= 1, "n=%d k=%d p=%v", n, k, p)
				sum += p
			}
			assert.InDelta(t, 1.0, sum, 1e-9, "a=%v b=%v n=%d", ab[0], ab[1], n)
		}
	}
}

func TestPrecalQtab(t *testing.T) {
	opts := DefaultOpts
	opts.Err = 0.01
	qtab := newQtabs(&opts)
	for _, tab := range qtab {
		assert.Equal(t, qtabSize*qtabSize, len(tab))
	}
	sym := qtab[0]
	// A unanimous deep pileup is high confidence; an even split is not.
	assert.True(t, sym[50<<8|0] >= 30, "q(50,0)=%d", sym[50<<8|0])
	assert.True(t, sym[50<<8|25] <= 3, "q(50,25)=%d", sym[50<<8|25])
	assert.True(t, sym[50<<8|0] >= sym[50<<8|25])
}
