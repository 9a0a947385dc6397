package positional

import (
	"container/heap"
	"slices"

	"github.com/scttfrdmn/breakasm-go/pkg/breakend"
	"github.com/scttfrdmn/breakasm-go/pkg/evidence"
	"github.com/scttfrdmn/breakasm-go/pkg/kmer"
)

// Node is one graph vertex: a k-mer observed at one or more nearby
// positions by one or more pieces of evidence.
type Node struct {
	Kmer           kmer.Kmer
	ReferenceIndex int
	Direction      breakend.Direction
	// FirstStart and LastStart bound the start positions merged into the node.
	FirstStart int
	LastStart  int
	Weight     int
	// Evidence lists the contributing evidence IDs in ascending order.
	Evidence []int

	id      int
	next    []*Node
	prev    []*Node
	retired bool
	comp    *component
}

// Next returns the successor nodes.
func (n *Node) Next() []*Node { return n.next }

// Prev returns the predecessor nodes.
func (n *Node) Prev() []*Node { return n.prev }

func (n *Node) addEvidence(id int) {
	i, found := slices.BinarySearch(n.Evidence, id)
	if !found {
		n.Evidence = slices.Insert(n.Evidence, i, id)
	}
}

// component is a weakly connected set of nodes. It is complete once every
// member has retired.
type component struct {
	nodes []*Node
	open  int
}

type nodeKey struct {
	kmer kmer.Kmer
	dir  breakend.Direction
}

// retireItem is a lazy entry in the retirement heap; it is stale when the
// node has since been extended past lastStart.
type retireItem struct {
	lastStart int
	node      *Node
}

type retireHeap []retireItem

func (h retireHeap) Len() int { return len(h) }

func (h retireHeap) Less(i, j int) bool {
	if h[i].lastStart != h[j].lastStart {
		return h[i].lastStart < h[j].lastStart
	}
	return h[i].node.id < h[j].node.id
}

func (h retireHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *retireHeap) Push(x interface{}) {
	*h = append(*h, x.(retireItem))
}

func (h *retireHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[0 : n-1]
	return item
}

// Graph is the working set of the positional assembly. Support nodes must be
// added in non-decreasing start order; the start of the latest node is the
// frontier.
//
// Nodes of different direction never merge or link, so forward and backward
// breakend assemblies stay apart.
type Graph struct {
	k      int
	window int

	active   map[nodeKey][]*Node
	retiring retireHeap
	ref      int
	frontier int
	started  bool
	nextID   int

	completed [][]*Node

	activeNodes int
	nodes       int
	edges       int
	peak        int
}

// NewGraph creates a graph for k-mers of length k. A node retires once the
// frontier is more than window bases past its last start; window is raised
// to k+1 if smaller so that no mergeable or linkable node retires early.
func NewGraph(k, window int) *Graph {
	return &Graph{
		k:      k,
		window: max(window, k+1),
		active: make(map[nodeKey][]*Node),
	}
}

// Add merges one support node into the graph.
func (g *Graph) Add(sn evidence.KmerNode) {
	if g.started && sn.ReferenceIndex != g.ref {
		g.retireAll()
		g.frontier = sn.Start
	}
	g.started = true
	g.ref = sn.ReferenceIndex
	g.frontier = max(g.frontier, sn.Start)
	g.retireBefore(g.frontier - g.window)

	key := nodeKey{kmer: sn.Kmer, dir: sn.Direction}
	var node *Node
	if candidates := g.active[key]; len(candidates) > 0 {
		last := candidates[len(candidates)-1]
		if sn.Start <= last.LastStart+g.k {
			node = last
		}
	}
	if node != nil {
		node.LastStart = max(node.LastStart, sn.Start)
		node.Weight += sn.Weight
		node.addEvidence(sn.EvidenceID)
		heap.Push(&g.retiring, retireItem{lastStart: node.LastStart, node: node})
	} else {
		node = &Node{
			Kmer:           sn.Kmer,
			ReferenceIndex: sn.ReferenceIndex,
			Direction:      sn.Direction,
			FirstStart:     sn.Start,
			LastStart:      sn.Start,
			Weight:         sn.Weight,
			Evidence:       []int{sn.EvidenceID},
			id:             g.nextID,
		}
		g.nextID++
		node.comp = &component{nodes: []*Node{node}, open: 1}
		g.active[key] = append(g.active[key], node)
		heap.Push(&g.retiring, retireItem{lastStart: node.LastStart, node: node})
		g.nodes++
		g.activeNodes++
		g.peak = max(g.peak, g.activeNodes)
	}
	g.link(node)
}

// link adds every positionally plausible edge into and out of node.
func (g *Graph) link(node *Node) {
	for _, p := range kmer.Predecessors(node.Kmer, g.k) {
		for _, a := range g.active[nodeKey{kmer: p, dir: node.Direction}] {
			if shifted(a, node) {
				g.addEdge(a, node)
			}
		}
	}
	for _, s := range kmer.Successors(node.Kmer, g.k) {
		for _, b := range g.active[nodeKey{kmer: s, dir: node.Direction}] {
			if shifted(node, b) {
				g.addEdge(node, b)
			}
		}
	}
}

// shifted reports whether b can sit exactly one base after a.
func shifted(a, b *Node) bool {
	return b.FirstStart <= a.LastStart+1 && a.FirstStart+1 <= b.LastStart
}

func (g *Graph) addEdge(a, b *Node) {
	if slices.Contains(a.next, b) {
		return
	}
	a.next = append(a.next, b)
	b.prev = append(b.prev, a)
	g.edges++
	g.union(a.comp, b.comp)
}

func (g *Graph) union(a, b *component) {
	if a == b {
		return
	}
	if len(a.nodes) < len(b.nodes) {
		a, b = b, a
	}
	for _, n := range b.nodes {
		n.comp = a
	}
	a.nodes = append(a.nodes, b.nodes...)
	a.open += b.open
}

// retireBefore retires every active node whose last start is below limit.
func (g *Graph) retireBefore(limit int) {
	for len(g.retiring) > 0 && g.retiring[0].lastStart < limit {
		item := heap.Pop(&g.retiring).(retireItem)
		if item.node.retired || item.node.LastStart != item.lastStart {
			continue
		}
		g.retire(item.node)
	}
}

func (g *Graph) retire(n *Node) {
	n.retired = true
	g.activeNodes--
	key := nodeKey{kmer: n.Kmer, dir: n.Direction}
	list := g.active[key]
	if i := slices.Index(list, n); i >= 0 {
		list = slices.Delete(list, i, i+1)
	}
	if len(list) == 0 {
		delete(g.active, key)
	} else {
		g.active[key] = list
	}
	c := n.comp
	c.open--
	if c.open == 0 {
		g.completed = append(g.completed, c.nodes)
	}
}

func (g *Graph) retireAll() {
	for len(g.retiring) > 0 {
		item := heap.Pop(&g.retiring).(retireItem)
		if item.node.retired || item.node.LastStart != item.lastStart {
			continue
		}
		g.retire(item.node)
	}
	g.retiring = g.retiring[:0]
}

// Flush retires every remaining node. It is called once the support stream
// is exhausted.
func (g *Graph) Flush() {
	g.retireAll()
}

// TakeCompleted returns the components whose nodes have all retired, in the
// order they completed, and forgets them.
func (g *Graph) TakeCompleted() [][]*Node {
	out := g.completed
	g.completed = nil
	return out
}

// NodeCount returns the number of graph nodes created.
func (g *Graph) NodeCount() int { return g.nodes }

// EdgeCount returns the number of edges created.
func (g *Graph) EdgeCount() int { return g.edges }

// PeakActive returns the largest working set size observed.
func (g *Graph) PeakActive() int { return g.peak }
