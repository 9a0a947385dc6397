package positional

import (
	"iter"
	"slices"

	"github.com/scttfrdmn/breakasm-go/pkg/breakend"
	"github.com/scttfrdmn/breakasm-go/pkg/kmer"
)

// Contig is an assembled path through the graph.
type Contig struct {
	ReferenceIndex int
	Direction      breakend.Direction
	// Start is the first start position of the first node on the path.
	Start int
	// End is the last genomic position covered by the final k-mer.
	End      int
	Sequence []byte
	Weight   int
	// Evidence holds the distinct contributing evidence IDs, ascending.
	Evidence []int
	Nodes    int
}

// better reports whether a is preferred over b as a path node: heavier
// first, then earlier, then the smaller k-mer.
func better(a, b *Node) bool {
	if a.Weight != b.Weight {
		return a.Weight > b.Weight
	}
	if a.FirstStart != b.FirstStart {
		return a.FirstStart < b.FirstStart
	}
	if a.Kmer != b.Kmer {
		return a.Kmer < b.Kmer
	}
	return a.id < b.id
}

// ExtractContigs greedily decomposes one completed component into contigs.
// Each walk starts at the best node without an eligible predecessor and
// follows the heaviest eligible successor. Nodes lighter than minWeight are
// never used. The result is deterministic for a given component.
func ExtractContigs(nodes []*Node, k, minWeight int) []*Contig {
	visited := make(map[*Node]bool, len(nodes))
	eligible := func(n *Node) bool {
		return !visited[n] && n.Weight >= minWeight
	}

	var contigs []*Contig
	for {
		var source, fallback *Node
		for _, n := range nodes {
			if !eligible(n) {
				continue
			}
			if fallback == nil || better(n, fallback) {
				fallback = n
			}
			if slices.ContainsFunc(n.prev, func(p *Node) bool { return p != n && eligible(p) }) {
				continue
			}
			if source == nil || better(n, source) {
				source = n
			}
		}
		if source == nil {
			// only cycles remain
			source = fallback
		}
		if source == nil {
			return contigs
		}

		path := []*Node{source}
		visited[source] = true
		for cur := source; ; {
			var best *Node
			for _, n := range cur.next {
				if eligible(n) && (best == nil || better(n, best)) {
					best = n
				}
			}
			if best == nil {
				break
			}
			visited[best] = true
			path = append(path, best)
			cur = best
		}
		contigs = append(contigs, newContig(path, k))
	}
}

func newContig(path []*Node, k int) *Contig {
	first, last := path[0], path[len(path)-1]
	c := &Contig{
		ReferenceIndex: first.ReferenceIndex,
		Direction:      first.Direction,
		Start:          first.FirstStart,
		End:            last.LastStart + k - 1,
		Sequence:       kmer.Decode(first.Kmer, k),
		Nodes:          len(path),
	}
	for i, n := range path {
		if i > 0 {
			c.Sequence = append(c.Sequence, kmer.LastBase(n.Kmer))
		}
		c.Weight += n.Weight
		c.Evidence = append(c.Evidence, n.Evidence...)
	}
	slices.Sort(c.Evidence)
	c.Evidence = slices.Compact(c.Evidence)
	return c
}

// Assembler runs a support node stream through a Graph and yields contigs
// as their components complete.
type Assembler struct {
	nodes     *SupportNodeIterator
	graph     *Graph
	k         int
	minWeight int

	pending []*Contig
	done    bool
}

// NewAssembler creates an assembler. window is the retirement distance
// passed to NewGraph.
func NewAssembler(nodes *SupportNodeIterator, k, window, minWeight int) *Assembler {
	return &Assembler{
		nodes:     nodes,
		graph:     NewGraph(k, window),
		k:         k,
		minWeight: minWeight,
	}
}

// Next returns the next contig.
func (a *Assembler) Next() (*Contig, bool) {
	for len(a.pending) == 0 {
		if a.done {
			return nil, false
		}
		if sn, ok := a.nodes.Next(); ok {
			a.graph.Add(sn)
		} else {
			a.graph.Flush()
			a.done = true
		}
		for _, comp := range a.graph.TakeCompleted() {
			a.pending = append(a.pending, ExtractContigs(comp, a.k, a.minWeight)...)
		}
	}
	c := a.pending[0]
	a.pending = a.pending[1:]
	return c, true
}

// All returns the remaining contigs as a sequence.
func (a *Assembler) All() iter.Seq[*Contig] {
	return func(yield func(*Contig) bool) {
		for {
			c, ok := a.Next()
			if !ok {
				return
			}
			if !yield(c) {
				a.nodes.Close()
				return
			}
		}
	}
}

// Err returns the error of the underlying support stream.
func (a *Assembler) Err() error {
	return a.nodes.Err()
}

// Graph returns the underlying graph, for statistics.
func (a *Assembler) Graph() *Graph {
	return a.graph
}
