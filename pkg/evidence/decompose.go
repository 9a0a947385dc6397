package evidence

import (
	"fmt"
	"iter"

	"github.com/scttfrdmn/breakasm-go/pkg/breakend"
	"github.com/scttfrdmn/breakasm-go/pkg/kmer"
)

// missingQuality is the biogo/hts marker for an absent quality string.
const missingQuality = 0xff

// KmerNode is one k-mer window of one piece of evidence, anchored at the
// genomic position of its first base.
type KmerNode struct {
	kmer.WeightedKmer
	Start          int
	ReferenceIndex int
	Direction      breakend.Direction
	EvidenceID     int
	// Offset is the index of the window within the evidence span.
	Offset int
}

// KmerCount returns the number of k-mer windows the evidence yields.
func (e *Evidence) KmerCount(k int) int {
	if e.length < k {
		return 0
	}
	return e.length - k + 1
}

// Kmers decomposes the evidence into one node per k-length window of its
// relevant span. The span is validated up front: any base outside ACGT
// rejects the whole record with kmer.ErrInvalidSymbol. The returned sequence
// is lazy and can be iterated more than once.
//
// A node's weight is the sum of the phred base qualities in its window.
// Missing qualities contribute zero.
func (e *Evidence) Kmers(k int) (iter.Seq[KmerNode], error) {
	if k < 1 || k > kmer.MaxK {
		return nil, fmt.Errorf("%w: k=%d", kmer.ErrInvalidLength, k)
	}
	bases := e.Bases()
	for i, b := range bases {
		if _, ok := kmer.EncodeBase(b); !ok {
			return nil, fmt.Errorf("evidence %s: %w: %q at span offset %d", e, kmer.ErrInvalidSymbol, b, i)
		}
	}
	quals := e.qualities()
	count := e.KmerCount(k)

	return func(yield func(KmerNode) bool) {
		if count == 0 {
			return
		}
		state, _ := kmer.Encode(bases, k)
		weight := 0
		for _, q := range quals[:k] {
			weight += q
		}
		for i := 0; i < count; i++ {
			if i > 0 {
				state, _ = kmer.Next(state, k, bases[i+k-1])
				weight += quals[i+k-1] - quals[i-1]
			}
			node := KmerNode{
				WeightedKmer:   kmer.WeightedKmer{Kmer: state, Weight: weight},
				Start:          e.spanStart + i,
				ReferenceIndex: e.ReferenceIndex(),
				Direction:      e.Direction(),
				EvidenceID:     e.ID,
				Offset:         i,
			}
			if !yield(node) {
				return
			}
		}
	}, nil
}

// qualities returns the span's base qualities as non-negative ints.
func (e *Evidence) qualities() []int {
	out := make([]int, e.length)
	qual := e.Record.Qual
	for i := range out {
		j := e.offset + i
		if j >= len(qual) || qual[j] == missingQuality {
			continue
		}
		out[i] = int(qual[j])
	}
	return out
}

// Quality returns the summed base quality of the relevant span.
func (e *Evidence) Quality() int {
	total := 0
	for _, q := range e.qualities() {
		total += q
	}
	return total
}
