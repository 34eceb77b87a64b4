// Package seqindex provides an in-memory substring occurrence oracle
// over a read collection, standing in for an external full-text index.
// Every sequence is indexed together with its reverse complement, so
// occurrence counts are strand-symmetric the way the consensus
// tabulation expects.
package seqindex

import (
	"index/suffixarray"

	"github.com/grailbio/base/log"
	"github.com/grailbio/ecc"
)

// sep bounds every indexed record so patterns cannot match across
// record boundaries. It doubles as the terminator symbol (child 0) of
// an extension.
const sep = '$'

var normBase [256]byte

func init() {
	for i := range normBase {
		normBase[i] = 'N'
	}
	normBase['A'], normBase['a'] = 'A', 'A'
	normBase['C'], normBase['c'] = 'C', 'C'
	normBase['G'], normBase['g'] = 'G', 'G'
	normBase['T'], normBase['t'] = 'T', 'T'
}

var compBase = map[byte]byte{'A': 'T', 'C': 'G', 'G': 'C', 'T': 'A', 'N': 'N'}

// Index is a suffix-array-backed occurrence oracle.
type Index struct {
	text []byte
	sa   *suffixarray.Index
}

// interval is the occurrence set of pat; it implements ecc.Interval.
type interval struct {
	n   int64
	pat []byte
}

func (iv *interval) Count() int64 { return iv.n }

// New indexes seqs and their reverse complements. Characters other than
// ACGT (case-insensitive) are indexed as N and never match a base
// extension.
func New(seqs [][]byte) *Index {
	text := []byte{sep}
	for _, s := range seqs {
		u := make([]byte, len(s))
		for i, ch := range s {
			u[i] = normBase[ch]
		}
		text = append(text, u...)
		text = append(text, sep)
		rc := make([]byte, len(u))
		for i := range u {
			rc[i] = compBase[u[len(u)-1-i]]
		}
		text = append(text, rc...)
		text = append(text, sep)
	}
	return &Index{text: text, sa: suffixarray.New(text)}
}

// Root returns the interval of the empty pattern.
func (x *Index) Root() ecc.Interval {
	return &interval{n: int64(len(x.text))}
}

// TotalCount returns the number of indexed symbols.
func (x *Index) TotalCount() int64 {
	return int64(len(x.text))
}

func (x *Index) count(pat []byte) int64 {
	if len(pat) == 0 {
		return int64(len(x.text))
	}
	return int64(len(x.sa.Lookup(pat, -1)))
}

// Extension symbol order, matching a bidirectional DNA index: backward
// child c prepends base c-1; forward child c appends its complement.
var (
	backChars = [6]byte{sep, 'A', 'C', 'G', 'T', 'N'}
	fwdChars  = [6]byte{sep, 'T', 'G', 'C', 'A', 'N'}
)

// Extend derives the six child intervals of iv on the given side.
func (x *Index) Extend(iv ecc.Interval, dir ecc.Dir) [6]ecc.Interval {
	p, ok := iv.(*interval)
	if !ok {
		log.Panicf("seqindex: foreign interval %T", iv)
	}
	var out [6]ecc.Interval
	for c := 0; c < 6; c++ {
		pat := make([]byte, len(p.pat)+1)
		if dir == ecc.Back {
			pat[0] = backChars[c]
			copy(pat[1:], p.pat)
		} else {
			copy(pat, p.pat)
			pat[len(pat)-1] = fwdChars[c]
		}
		out[c] = &interval{n: x.count(pat), pat: pat}
	}
	return out
}
