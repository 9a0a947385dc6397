package kmer

// WeightedKmer is a packed window together with its evidence weight.
type WeightedKmer struct {
	Kmer   Kmer
	Weight int
}

// String displays as much of the window as the packed value allows.
func (w WeightedKmer) String() string {
	return string(DecodePartial(w.Kmer))
}

// Format displays the full k-length window.
func (w WeightedKmer) Format(k int) string {
	return string(Decode(w.Kmer, k))
}

var complement = [256]byte{}

func init() {
	for i := range complement {
		complement[i] = 'N'
	}
	pairs := []struct{ a, b byte }{
		{'A', 'T'}, {'C', 'G'}, {'G', 'C'}, {'T', 'A'},
		{'a', 't'}, {'c', 'g'}, {'g', 'c'}, {'t', 'a'},
	}
	for _, p := range pairs {
		complement[p.a] = p.b
	}
}

// ReverseComplement returns the reverse complement of seq. Symbols outside
// ACGT become N.
func ReverseComplement(seq []byte) []byte {
	out := make([]byte, len(seq))
	for i, b := range seq {
		out[len(seq)-1-i] = complement[b]
	}
	return out
}
