package ecc

// Bases are encoded as A=0, C=1, G=2, T=3; 4 is any ambiguity code.
const (
	baseA = 0
	baseC = 1
	baseG = 2
	baseT = 3
	baseN = 4
)

var (
	// asciiToBase maps sequence characters to 2-bit base codes, case
	// insensitively; everything that is not ACGT maps to 4.
	asciiToBase [128]uint8
	baseToChar  = [5]byte{'A', 'C', 'G', 'T', 'N'}
	// baseToLower marks bases rewritten by the corrector.
	baseToLower = [5]byte{'a', 'c', 'g', 't', 'n'}
)

func init() {
	for i := range asciiToBase {
		asciiToBase[i] = baseN
	}
	asciiToBase['A'], asciiToBase['a'] = baseA, baseA
	asciiToBase['C'], asciiToBase['c'] = baseC, baseC
	asciiToBase['G'], asciiToBase['g'] = baseG, baseG
	asciiToBase['T'], asciiToBase['t'] = baseT, baseT
}

// complementBase returns the Watson-Crick complement; N stays N.
func complementBase(b uint8) uint8 {
	if b < 4 {
		return 3 - b
	}
	return baseN
}
