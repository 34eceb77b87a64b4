package ecc

// Dir selects the side on which an interval is extended.
type Dir int

const (
	// Back extends toward the start of the text (prepends a symbol).
	Back Dir = iota
	// Fwd extends toward the end of the text (appends a symbol).
	Fwd
)

// An Interval identifies the occurrence set of some substring of the
// indexed text.
type Interval interface {
	// Count returns the number of occurrences, summed over both strands.
	Count() int64
}

// An Oracle is the substring index the consensus is tabulated from. The
// index holds both strands of every input sequence, so counts are
// strand-symmetric.
//
// Extend derives the six child intervals of iv, all non-nil. The symbol
// order is that of a bidirectional DNA index: backward child c in [1,4]
// prepends base c-1, forward child c appends base 4-c. Child 0 is the
// record boundary, child 5 an ambiguity code.
type Oracle interface {
	// Root returns the interval spanning the whole index.
	Root() Interval
	Extend(iv Interval, dir Dir) [6]Interval
	// TotalCount returns the number of indexed symbols.
	TotalCount() int64
}
