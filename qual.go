package ecc

import "math"

// The consensus confidence of a tip is derived from a two-component
// beta-binomial mixture: component 1 models sequencing error around the
// dominant base (mean error e), component 2 models a true second allele
// (mean 0.5 for the primary table, 1/3 for the secondary). The phred
// score of "the minority count k out of n is just noise" is tabulated
// once per run for all (n, k) pairs.

const qtabSize = 256

// betaBinomial returns P(X=k) for X ~ BetaBinomial(n, a, b), computed in
// log space to survive large n.
func betaBinomial(n, k int, a, b float64) float64 {
	nf, kf := float64(n), float64(k)
	x, _ := math.Lgamma(nf + 1)
	x1, _ := math.Lgamma(kf + 1)
	x2, _ := math.Lgamma(nf - kf + 1)
	y, _ := math.Lgamma(kf + a)
	y1, _ := math.Lgamma(nf - kf + b)
	y2, _ := math.Lgamma(nf + a + b)
	z, _ := math.Lgamma(a + b)
	z1, _ := math.Lgamma(a)
	z2, _ := math.Lgamma(b)
	return math.Exp((x - x1 - x2) + (y + y1 - y2) + (z - z1 - z2))
}

// precalQtab precomputes the posterior phred table. Entry [n<<8|k] is the
// phred-scaled probability that a site with total count n and minority
// count k follows the error component rather than the allele component
// with mean e2. Values are clamped to 255.
func precalQtab(e1, e2, a1, a2, prior1 float64) []uint8 {
	b1 := a1 * (1 - e1) / e1
	b2 := a2 * (1 - e2) / e2
	qtab := make([]uint8, qtabSize*qtabSize)
	for n := 1; n < qtabSize; n++ {
		qn := qtab[n*qtabSize:]
		for k := 0; k < n; k++ {
			p1 := betaBinomial(n, k, a1, b1)
			p2 := betaBinomial(n, k, a2, b2)
			q := math.Round(-10 * math.Log10(1-p1*prior1/(p1*prior1+p2*(1-prior1))))
			if q > 255 {
				q = 255
			}
			qn[k] = uint8(q)
		}
	}
	return qtab
}

// newQtabs builds the symmetric (e2=1/2) and asymmetric (e2=1/3) tables
// used for the first and second consensus base.
func newQtabs(opts *Opts) [2][]uint8 {
	return [2][]uint8{
		precalQtab(opts.Err, 0.5, opts.A1, opts.A2, opts.Prior),
		precalQtab(opts.Err, 1.0/3, opts.A1, opts.A2, opts.Prior),
	}
}
