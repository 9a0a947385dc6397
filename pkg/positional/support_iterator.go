// Package positional merges position-anchored k-mer support into a
// de Bruijn style graph and extracts assembled contigs from it in a single
// streaming pass over sorted evidence.
package positional

import (
	"container/heap"
	"errors"
	"fmt"
	"iter"

	"github.com/grailbio/base/log"
	"github.com/scttfrdmn/breakasm-go/pkg/evidence"
)

// ErrUnsortedEvidence is reported when the evidence source goes backwards
// in (reference, start) order.
var ErrUnsortedEvidence = errors.New("evidence is not sorted by start position")

// nodeHeap implements heap.Interface over support nodes ordered by
// reference, start, kmer, evidence and window offset.
type nodeHeap []evidence.KmerNode

func (h nodeHeap) Len() int { return len(h) }

func (h nodeHeap) Less(i, j int) bool {
	a, b := &h[i], &h[j]
	if a.ReferenceIndex != b.ReferenceIndex {
		return a.ReferenceIndex < b.ReferenceIndex
	}
	if a.Start != b.Start {
		return a.Start < b.Start
	}
	if a.Kmer != b.Kmer {
		return a.Kmer < b.Kmer
	}
	if a.EvidenceID != b.EvidenceID {
		return a.EvidenceID < b.EvidenceID
	}
	return a.Offset < b.Offset
}

func (h nodeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *nodeHeap) Push(x interface{}) {
	*h = append(*h, x.(evidence.KmerNode))
}

func (h *nodeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[0 : n-1]
	return item
}

// SupportNodeIterator turns evidence sorted by ByStartEnd into one stream of
// k-mer support nodes that is non-decreasing in start position.
//
// Evidence is decomposed as soon as it is pulled and its nodes are held in a
// heap. The minimum node is released once the next undecomposed evidence
// starts at least maxSupportSpan bases after it, so the buffer only ever
// holds nodes starting within maxSupportSpan of the evidence frontier.
type SupportNodeIterator struct {
	k              int
	maxSupportSpan int

	pull    func() (*evidence.Evidence, bool)
	stop    func()
	current *evidence.Evidence
	eof     bool
	err     error

	buffer nodeHeap

	evidenceCount int
	nodeCount     int
	rejected      int
	peak          int
}

// NewSupportNodeIterator creates an iterator over the k-mers of source.
func NewSupportNodeIterator(k int, source iter.Seq[*evidence.Evidence], maxSupportSpan int) *SupportNodeIterator {
	pull, stop := iter.Pull(source)
	it := &SupportNodeIterator{
		k:              k,
		maxSupportSpan: max(0, maxSupportSpan),
		pull:           pull,
		stop:           stop,
	}

	// Prime the iterator by loading the first evidence
	it.advance()

	return it
}

// advance pulls the next evidence from the source
func (it *SupportNodeIterator) advance() {
	if it.eof {
		return
	}
	prev := it.current
	e, ok := it.pull()
	if !ok {
		it.eof = true
		it.current = nil
		return
	}
	if prev != nil && (e.ReferenceIndex() < prev.ReferenceIndex() ||
		(e.ReferenceIndex() == prev.ReferenceIndex() && e.Start() < prev.Start())) {
		it.err = fmt.Errorf("%w: %v after %v", ErrUnsortedEvidence, e, prev)
		it.Close()
		return
	}
	it.current = e
}

// ready reports whether the buffer minimum can no longer be undercut by
// evidence still to come.
func (it *SupportNodeIterator) ready() bool {
	if len(it.buffer) == 0 {
		return false
	}
	if it.eof {
		return true
	}
	head := it.buffer[0]
	next := it.current
	if head.ReferenceIndex != next.ReferenceIndex() {
		return head.ReferenceIndex < next.ReferenceIndex()
	}
	return head.Start+it.maxSupportSpan <= next.Start()
}

// Next returns the next support node in position order.
func (it *SupportNodeIterator) Next() (evidence.KmerNode, bool) {
	for {
		if it.ready() {
			return heap.Pop(&it.buffer).(evidence.KmerNode), true
		}
		if it.eof {
			return evidence.KmerNode{}, false
		}
		e := it.current
		it.advance()
		if it.err != nil {
			return evidence.KmerNode{}, false
		}
		it.decompose(e)
	}
}

func (it *SupportNodeIterator) decompose(e *evidence.Evidence) {
	nodes, err := e.Kmers(it.k)
	if err != nil {
		it.rejected++
		log.Debug.Printf("skipping evidence %v: %v", e, err)
		return
	}
	it.evidenceCount++
	for node := range nodes {
		heap.Push(&it.buffer, node)
		it.nodeCount++
	}
	if len(it.buffer) > it.peak {
		it.peak = len(it.buffer)
	}
}

// All returns the remaining nodes as a sequence. Breaking out of the loop
// closes the iterator.
func (it *SupportNodeIterator) All() iter.Seq[evidence.KmerNode] {
	return func(yield func(evidence.KmerNode) bool) {
		for {
			node, ok := it.Next()
			if !ok {
				return
			}
			if !yield(node) {
				it.Close()
				return
			}
		}
	}
}

// Close stops pulling evidence and releases the buffer. Next returns false
// afterwards.
func (it *SupportNodeIterator) Close() {
	if it.stop != nil {
		it.stop()
		it.stop = nil
	}
	it.eof = true
	it.current = nil
	it.buffer = nil
}

// Err returns the first ordering violation seen in the source, if any.
func (it *SupportNodeIterator) Err() error {
	return it.err
}

// Rejected returns the number of evidence records skipped because their
// sequence could not be decomposed.
func (it *SupportNodeIterator) Rejected() int {
	return it.rejected
}

// EvidenceCount returns the number of evidence records decomposed so far.
func (it *SupportNodeIterator) EvidenceCount() int {
	return it.evidenceCount
}

// NodeCount returns the number of nodes produced by decomposition so far.
func (it *SupportNodeIterator) NodeCount() int {
	return it.nodeCount
}

// PeakBuffered returns the largest number of nodes held at once.
func (it *SupportNodeIterator) PeakBuffered() int {
	return it.peak
}
