package ecc

import (
	"math/rand"

	farm "github.com/dgryski/go-farm"
)

// heapEnt is one frontier state of the best-first search. i is the next
// input position to consume; kmer holds the last k chosen bases.
type heapEnt struct {
	kmer    kmerPair
	penalty int
	stk     int // index into Aux.stack; -1 for the virtual root
	i       int
	state   State
}

// stackEnt records one committed branch. Parent links point only at
// ancestors, so the stack forms a tree rooted at the virtual start node.
type stackEnt struct {
	parent  int
	i       int
	penalty int
	ipen    int
	base    uint8
	qual    uint8
	state   State
}

// Aux is one worker's scratch state. Buffers are cleared, not freed,
// between reads.
type Aux struct {
	ori, seq Seq
	tmp      [2]Seq
	heap     []heapEnt
	stack    []stackEnt
	cache    cache
	rng      *rand.Rand
}

// NewAux returns an empty scratch area. One Aux serves one worker; it
// must not be shared between concurrent reads.
func NewAux() *Aux {
	return &Aux{cache: make(cache), rng: rand.New(rand.NewSource(1))}
}

func (a *Aux) clearCache() {
	for k := range a.cache {
		delete(a.cache, k)
	}
}

func (a *Aux) heapUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if a.heap[p].penalty <= a.heap[i].penalty {
			break
		}
		a.heap[p], a.heap[i] = a.heap[i], a.heap[p]
		i = p
	}
}

func (a *Aux) heapDown(i int) {
	n := len(a.heap)
	for {
		small := i
		if l := 2*i + 1; l < n && a.heap[l].penalty < a.heap[small].penalty {
			small = l
		}
		if r := 2*i + 2; r < n && a.heap[r].penalty < a.heap[small].penalty {
			small = r
		}
		if small == i {
			return
		}
		a.heap[i], a.heap[small] = a.heap[small], a.heap[i]
		i = small
	}
}

// push commits one branch from p: a stack record for backtracking and a
// heap entry for the frontier. A deletion does not advance the k-mer; an
// insertion does not advance the input.
func (a *Aux) push(k int, p *heapEnt, b uint8, state State, penalty, qual int) {
	if qual > 255 {
		qual = 255
	}
	a.stack = append(a.stack, stackEnt{
		parent:  p.stk,
		i:       p.i,
		penalty: p.penalty + penalty,
		ipen:    penalty,
		base:    b,
		qual:    uint8(qual),
		state:   state,
	})
	r := heapEnt{
		kmer:    p.kmer,
		penalty: p.penalty + penalty,
		stk:     len(a.stack) - 1,
		i:       p.i + 1,
		state:   state,
	}
	if state == StateI {
		r.i = p.i
	}
	if state != StateD {
		r.kmer.appendBase(k, b)
	}
	a.heap = append(a.heap, r)
	a.heapUp(len(a.heap) - 1)
}

func max0(x int) int {
	if x > 0 {
		return x
	}
	return 0
}

// search runs one best-first pass over a.seq and rewrites it in place
// when a full-length path is found. The frontier is a min-heap on
// accumulated penalty; the search records the best and the second-best
// full-length paths and stops once a popped state is more than
// opts.MaxPenaltyDiff worse than the best.
func (a *Aux) search(opts *Opts, st *Store) {
	var (
		z       heapEnt
		pathEnd = [2]int{-1, -1}
		maxI    int
	)
	a.clearCache()
	a.heap = a.heap[:0]
	a.stack = a.stack[:0]

	// Seed with the first run of k consecutive non-N bases.
	l := 0
	for z.i = 0; z.i < len(a.seq) && l < opts.K; z.i++ {
		if b := a.seq[z.i].B; b > 3 {
			l, z.kmer = 0, kmerPair{}
		} else {
			l++
			z.kmer.appendBase(opts.K, b)
		}
	}
	if z.i == len(a.seq) {
		return
	}
	z.stk = -1
	z.state = StateM
	a.heap = append(a.heap, z)

	excessMul := 2
	if opts.GapPenalty > 0 {
		excessMul = 5
	}
	for len(a.heap) > 0 {
		z = a.heap[0]
		last := len(a.heap) - 1
		a.heap[0] = a.heap[last]
		a.heap = a.heap[:last]
		a.heapDown(0)
		if pathEnd[0] >= 0 && z.penalty > a.stack[pathEnd[0]].penalty+opts.MaxPenaltyDiff {
			break
		}
		if z.i == len(a.seq) {
			if pathEnd[0] >= 0 {
				pathEnd[1] = z.stk
				break
			}
			pathEnd[0] = z.stk
			continue
		}
		c := &a.seq[z.i]
		if z.i > maxI {
			maxI = z.i
		}
		isExcessive := len(a.heap) >= maxI*excessMul
		tip, ok := st.lookup(&z.kmer, a.cache)
		if !ok {
			b := c.B
			if b > 3 {
				b = uint8(a.rng.Intn(4))
			}
			a.push(opts.K, &z, b, StateN, NoHitPen, int(c.Q))
			continue
		}
		b1 := tip.b1()
		b2 := uint8(4)
		if tip.hasB2() {
			b2 = tip.b2()
		}
		q1, q2 := tip.q1(), tip.q2()
		cq := int(c.Q)
		switch {
		case b1 == c.B:
			// Read agrees with the consensus.
			a.push(opts.K, &z, b1, StateM, 0, cq+q1)
		case c.B > 3:
			// N in the read: impute the consensus base.
			a.push(opts.K, &z, b1, StateM, 3, q1)
			if b2 < 4 && !isExcessive {
				a.push(opts.K, &z, b2, StateM, q1, 0)
			}
		case b2 >= 4 || b2 == c.B:
			// Two-way: trust the read or trust the consensus. The side
			// taken against the evidence carries the disagreement, the
			// other side the excess.
			diff := cq - q1
			if !isExcessive || q1 <= cq {
				a.push(opts.K, &z, c.B, StateM, q1, max0(diff))
			}
			if !isExcessive || q1 >= cq {
				a.push(opts.K, &z, b1, StateM, cq, max0(-diff))
			}
			if opts.GapPenalty > 0 && z.i < len(a.seq)-1 && !isExcessive {
				if z.state != StateD {
					a.push(opts.K, &z, b1, StateI, opts.GapPenalty, max0(-diff))
				}
				if z.state != StateI {
					a.push(opts.K, &z, b1, StateD, opts.GapPenalty, max0(-diff))
				}
			}
		default:
			// Three-way: the read base disagrees with both consensus
			// picks. The b1 branch's quality is capped by q1 even when
			// that leaves zero confidence.
			diff := cq - (q1 + q2)
			capped := max0(-diff)
			if capped > q1 {
				capped = q1
			}
			if !isExcessive || q1+q2 <= cq {
				a.push(opts.K, &z, c.B, StateM, q1+q2, max0(diff))
			}
			if !isExcessive || q1+q2 >= cq {
				a.push(opts.K, &z, b1, StateM, cq, capped)
			}
			if !isExcessive {
				pen := cq
				if q1 > pen {
					pen = q1
				}
				a.push(opts.K, &z, b2, StateM, pen, 0)
			}
			if opts.GapPenalty > 0 && z.i < len(a.seq)-1 && !isExcessive {
				if z.state != StateD {
					a.push(opts.K, &z, b1, StateI, opts.GapPenalty, capped)
				}
				if z.state != StateI {
					a.push(opts.K, &z, b1, StateD, opts.GapPenalty, capped)
				}
			}
		}
	}

	if pathEnd[0] < 0 {
		return
	}
	a.backtrack(pathEnd[0], &a.tmp[0])
	if pathEnd[1] >= 0 {
		a.backtrack(pathEnd[1], &a.tmp[1])
		diff := a.stack[pathEnd[1]].penalty - a.stack[pathEnd[0]].penalty
		adjustQual(diff, a.tmp[0], a.tmp[1])
	}
	a.seq = append(a.seq[:0], a.tmp[0]...)
}

// backtrack walks the stack from leaf to the root, emitting one base per
// non-deletion step, then prepends the input prefix the search never
// touched. The walk produces the read tail-first, so the result is
// reversed before returning.
func (a *Aux) backtrack(leaf int, out *Seq) {
	*out = (*out)[:0]
	last := 0
	for i := leaf; i >= 0; {
		p := &a.stack[i]
		if p.state != StateD {
			q := p.qual
			if q > QMax {
				q = QMax
			}
			*out = append(*out, Base{B: p.base, Q: q, State: p.state, Pos: a.seq[p.i].Pos})
		}
		last = p.i
		i = p.parent
	}
	for i := last - 1; i >= 0; i-- {
		*out = append(*out, a.seq[i])
	}
	s := *out
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// adjustQual walks the best path s1 and the runner-up s2 in lockstep and
// caps the confidence of every base unique to s1 at diff, the penalty
// gap between the two paths. Trailing s1 bases with no s2 counterpart
// are clamped to diff as well.
func adjustQual(diff int, s1, s2 Seq) {
	i1, i2 := 0, 0
	for i1 < len(s1) && i2 < len(s2) {
		b1, b2 := &s1[i1], &s2[i2]
		if b1.B != b2.B || b1.Pos != b2.Pos {
			q := 0
			if b1.Q > b2.Q {
				q = int(b1.Q) - int(b2.Q)
			}
			if q > diff {
				q = diff
			}
			b1.Q = uint8(q)
		}
		switch {
		case b1.State == StateI && b2.State != StateI:
			i1++
		case b2.State == StateI && b1.State != StateI:
			i2++
		default:
			i1++
			i2++
		}
	}
	for ; i1 < len(s1); i1++ {
		if int(s1[i1].Q) > diff {
			s1[i1].Q = uint8(diff)
		}
	}
}

// CorrectRead rewrites one read to agree with the consensus store and
// returns the corrected base letters and phred+33 qualities. The search
// runs once in each orientation so errors near either end can be
// recovered. Bases that differ from the input are lowercased;
// passthrough positions whose input base was unresolvable come out as
// 'N' with quality 0. A read comes back unchanged when, in both
// orientations, it has no run of k consecutive non-N bases or its first
// such run ends at the read's last base.
//
// The N tie-break RNG is reseeded from the read name, so a given read
// corrects identically across runs and thread schedules. aux may be nil
// for one-off use.
func CorrectRead(opts *Opts, st *Store, name string, seq, qual []byte, aux *Aux) ([]byte, []byte) {
	a := aux
	if a == nil {
		a = NewAux()
	}
	a.rng.Seed(int64(farm.Hash64([]byte(name))))
	a.ori = convertSeq(a.ori, seq, qual, opts.DefQ)
	a.seq = append(a.seq[:0], a.ori...)
	a.search(opts, st)
	a.seq.revComp()
	a.search(opts, st)
	a.seq.revComp()

	outS := make([]byte, len(a.seq))
	outQ := make([]byte, len(a.seq))
	for i := range a.seq {
		b := &a.seq[i]
		o := &a.ori[b.Pos]
		if b.State == StateN && o.B > 3 {
			outS[i] = 'N'
			outQ[i] = 33
			continue
		}
		if b.B == o.B {
			outS[i] = baseToChar[b.B]
		} else {
			outS[i] = baseToLower[b.B]
		}
		q := b.Q
		if q > QMax {
			q = QMax
		}
		outQ[i] = q + 33
	}
	return outS, outQ
}
