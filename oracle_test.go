package ecc

import "strings"

// testOracle implements Oracle by naive overlapping-substring counting
// over a handful of sequences. It mirrors the symbol order of a
// bidirectional DNA index: both strands of every sequence are indexed
// with '$' record separators.
type testOracle struct {
	text string
}

type testInterval struct {
	n   int64
	pat string
}

func (iv *testInterval) Count() int64 { return iv.n }

func revCompStr(s string) string {
	comp := map[byte]byte{'A': 'T', 'C': 'G', 'G': 'C', 'T': 'A', 'N': 'N'}
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		out[i] = comp[s[len(s)-1-i]]
	}
	return string(out)
}

func newTestOracle(seqs ...string) *testOracle {
	var b strings.Builder
	b.WriteByte('$')
	for _, s := range seqs {
		s = strings.ToUpper(s)
		b.WriteString(s)
		b.WriteByte('$')
		b.WriteString(revCompStr(s))
		b.WriteByte('$')
	}
	return &testOracle{text: b.String()}
}

// countOverlap counts occurrences of pat, overlapping ones included.
func (o *testOracle) countOverlap(pat string) int64 {
	if pat == "" {
		return int64(len(o.text))
	}
	var n int64
	for i := 0; ; {
		j := strings.Index(o.text[i:], pat)
		if j < 0 {
			return n
		}
		n++
		i += j + 1
	}
}

func (o *testOracle) Root() Interval    { return &testInterval{n: int64(len(o.text))} }
func (o *testOracle) TotalCount() int64 { return int64(len(o.text)) }

var (
	testBackChars = [6]byte{'$', 'A', 'C', 'G', 'T', 'N'}
	testFwdChars  = [6]byte{'$', 'T', 'G', 'C', 'A', 'N'}
)

func (o *testOracle) Extend(iv Interval, dir Dir) [6]Interval {
	p := iv.(*testInterval)
	var out [6]Interval
	for c := 0; c < 6; c++ {
		var pat string
		if dir == Back {
			pat = string(testBackChars[c]) + p.pat
		} else {
			pat = p.pat + string(testFwdChars[c])
		}
		out[c] = &testInterval{n: o.countOverlap(pat), pat: pat}
	}
	return out
}

// kmerPairOf builds the two-word encoding of s; len(s) is the k.
func kmerPairOf(s string) kmerPair {
	var km kmerPair
	for i := 0; i < len(s); i++ {
		km.appendBase(len(s), asciiToBase[s[i]])
	}
	return km
}

// testOpts returns the small-k options the scenario tests run with.
func testOpts() Opts {
	opts := DefaultOpts
	opts.K = 5
	opts.SufLen = 1
	opts.MinOcc = 2
	opts.Err = 0.01
	return opts
}
