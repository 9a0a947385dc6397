// Package kmer packs short nucleotide windows into integers, two bits per base.
//
// The earliest base of a window occupies the most significant bits of the
// low 2k bits; bits above 2k are always zero.
package kmer

import (
	"errors"
	"fmt"
)

// Kmer is a packed nucleotide window of up to MaxK bases.
type Kmer uint64

// MaxK is the longest window a Kmer can hold.
const MaxK = 32

var (
	// ErrInvalidSymbol is returned when a base is outside the ACGT alphabet.
	// Ambiguity codes such as N are rejected rather than mapped.
	ErrInvalidSymbol = errors.New("invalid nucleotide symbol")

	// ErrInvalidLength is returned for a window length outside 1..MaxK or a
	// sequence shorter than the window.
	ErrInvalidLength = errors.New("invalid kmer length")
)

var baseCode = [256]int8{}

var codeBase = [4]byte{'A', 'C', 'G', 'T'}

func init() {
	for i := range baseCode {
		baseCode[i] = -1
	}
	for code, b := range codeBase {
		baseCode[b] = int8(code)
		baseCode[b+'a'-'A'] = int8(code)
	}
}

// EncodeBase returns the 2-bit code of a base.
func EncodeBase(b byte) (uint64, bool) {
	c := baseCode[b]
	if c < 0 {
		return 0, false
	}
	return uint64(c), true
}

// Encode packs the first k bases of seq.
func Encode(seq []byte, k int) (Kmer, error) {
	if k < 1 || k > MaxK {
		return 0, fmt.Errorf("%w: k=%d (must be 1..%d)", ErrInvalidLength, k, MaxK)
	}
	if len(seq) < k {
		return 0, fmt.Errorf("%w: sequence of %d bases is shorter than k=%d", ErrInvalidLength, len(seq), k)
	}

	var state Kmer
	for i := 0; i < k; i++ {
		code, ok := EncodeBase(seq[i])
		if !ok {
			return 0, fmt.Errorf("%w: %q at offset %d", ErrInvalidSymbol, seq[i], i)
		}
		state = state<<2 | Kmer(code)
	}
	return state, nil
}

// Decode unpacks exactly k bases. A non-positive k decodes to nothing.
func Decode(kmer Kmer, k int) []byte {
	if k <= 0 {
		return []byte{}
	}
	out := make([]byte, k)
	state := kmer
	for i := k - 1; i >= 0; i-- {
		out[i] = codeBase[state&3]
		state >>= 2
	}
	return out
}

// DecodePartial unpacks as many bases as the value still represents,
// stopping once the remainder reaches zero. Leading A bases are therefore
// dropped; use it for display only.
func DecodePartial(kmer Kmer) []byte {
	var out []byte
	for state := kmer; state > 0; state >>= 2 {
		out = append(out, codeBase[state&3])
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Mask returns the bit mask covering k bases.
func Mask(k int) Kmer {
	if k >= MaxK {
		return ^Kmer(0)
	}
	return Kmer(1)<<(2*uint(k)) - 1
}

// Next shifts base onto the end of prev, dropping its first base.
func Next(prev Kmer, k int, base byte) (Kmer, error) {
	code, ok := EncodeBase(base)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSymbol, base)
	}
	return (prev<<2 | Kmer(code)) & Mask(k), nil
}

// Prefix returns the first k-1 bases of a k-length window.
func Prefix(kmer Kmer, k int) Kmer {
	return kmer >> 2
}

// Suffix returns the last k-1 bases of a k-length window.
func Suffix(kmer Kmer, k int) Kmer {
	return kmer & Mask(k-1)
}

// Adjacent reports whether b is a shifted by one base: a's last k-1 bases
// equal b's first k-1 bases.
func Adjacent(a, b Kmer, k int) bool {
	return Suffix(a, k) == Prefix(b, k)
}

// Predecessors returns the four windows that can precede kmer.
func Predecessors(kmer Kmer, k int) [4]Kmer {
	var out [4]Kmer
	shift := 2 * uint(k-1)
	for c := range out {
		out[c] = Kmer(c)<<shift | Prefix(kmer, k)
	}
	return out
}

// Successors returns the four windows that can follow kmer.
func Successors(kmer Kmer, k int) [4]Kmer {
	var out [4]Kmer
	for c := range out {
		out[c] = (Suffix(kmer, k) << 2) | Kmer(c)
	}
	return out
}

// LastBase returns the final base of the window.
func LastBase(kmer Kmer) byte {
	return codeBase[kmer&3]
}
