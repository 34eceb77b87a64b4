package ecc

// Opts configures both the consensus tabulation and the per-read
// correction search. The first ten integer fields plus the float fields
// are part of the on-disk k-mer table header (see kmerio.go); Verbose is
// process-local and never serialized.
type Opts struct {
	// K is the k-mer length. It must be odd; the canonical orientation of
	// a k-mer is decided by its middle base.
	K int
	// SufLen is the length of the k-mer suffix used to select a shard.
	// 4^SufLen shards exist in total. SufLen is K-18 for K>18 so that the
	// in-shard key fits in 36 bits.
	SufLen int
	// MinOcc is the minimum index occurrence for a k-mer to enter the
	// consensus table.
	MinOcc int
	// NThreads bounds worker parallelism for collection and correction.
	NThreads int
	// DefQ is the base quality assumed when the input has no quality line.
	DefQ int
	// GapPenalty is the search penalty for opening an insertion or
	// deletion. Zero disables gap states entirely.
	GapPenalty int
	// MaxHeapSize and MaxPenalty are tuning knobs carried in the table
	// header for compatibility; the search bounds itself with
	// MaxPenaltyDiff only.
	MaxHeapSize int
	MaxPenalty  int
	// MaxPenaltyDiff stops the search once a popped path is this much
	// worse than the best full-length path found so far.
	MaxPenaltyDiff int
	// BatchSize caps the number of sequence bytes read per batch.
	BatchSize int64

	// Beta-binomial mixture parameters of the quality model.
	A1, A2, Err, Prior float64

	// Verbose controls progress chatter. >=5 logs each read name as it is
	// corrected.
	Verbose int
}

// DefaultOpts mirrors the defaults of the original corrector.
var DefaultOpts = Opts{
	K:              17,
	SufLen:         1,
	MinOcc:         3,
	NThreads:       1,
	DefQ:           20,
	GapPenalty:     40,
	MaxHeapSize:    256,
	MaxPenalty:     120,
	MaxPenaltyDiff: 60,
	BatchSize:      (1 << 30) - (1 << 20),
	A1:             0.05,
	A2:             10,
	Err:            0.005,
	Prior:          0.99,
	Verbose:        3,
}

// SufLenForK returns the shard suffix length implied by k.
func SufLenForK(k int) int {
	if k > 18 {
		return k - 18
	}
	return 1
}
