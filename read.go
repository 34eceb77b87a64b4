package ecc

// State tags how an output base aligns to the input read.
type State uint8

const (
	// StateN marks a passthrough base for which no consensus was found.
	StateN State = iota
	// StateM is a match or substitution: consumes one input and one
	// output base.
	StateM
	// StateI is an insertion: consumes output only.
	StateI
	// StateD is a deletion: consumes input only.
	StateD
)

// Base is one position of a working read.
type Base struct {
	B     uint8 // 2-bit base code, 4 for N
	Q     uint8
	State State
	// Pos is the position in the original read this base came from; for
	// an insertion, the position of the next consumed input base.
	Pos int32
}

// Seq is a working read.
type Seq []Base

// convertSeq decodes seq/qual into dst. qual may be nil, in which case
// every base gets defQ. Qualities are clamped to [0, QMax].
func convertSeq(dst Seq, seq, qual []byte, defQ int) Seq {
	dst = dst[:0]
	for i, ch := range seq {
		q := defQ
		if qual != nil {
			q = int(qual[i]) - 33
		}
		if q < 0 {
			q = 0
		}
		if q > QMax {
			q = QMax
		}
		dst = append(dst, Base{
			B:     asciiToBase[ch&0x7f],
			Q:     uint8(q),
			State: StateM,
			Pos:   int32(i),
		})
	}
	return dst
}

// revComp reverses s and complements each base in place. Qualities,
// states and origin positions travel with their base; positions keep
// referencing the pre-reverse orientation.
func (s Seq) revComp() {
	i, j := 0, len(s)-1
	for i < j {
		bi, bj := s[i], s[j]
		bi.B = complementBase(bi.B)
		bj.B = complementBase(bj.B)
		s[i], s[j] = bj, bi
		i++
		j--
	}
	if i == j {
		s[i].B = complementBase(s[i].B)
	}
}
