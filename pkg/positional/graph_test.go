package positional

import (
	"bytes"
	"slices"
	"testing"

	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/grailbio/testutil/h"
	"github.com/scttfrdmn/breakasm-go/pkg/breakend"
	"github.com/scttfrdmn/breakasm-go/pkg/evidence"
	"github.com/scttfrdmn/breakasm-go/pkg/evidence/evidencetest"
	"github.com/scttfrdmn/breakasm-go/pkg/kmer"
)

func supportNode(t *testing.T, seq string, start, weight, evidenceID int) evidence.KmerNode {
	t.Helper()
	km, err := kmer.Encode([]byte(seq), len(seq))
	assert.NoError(t, err)
	return evidence.KmerNode{
		WeightedKmer: kmer.WeightedKmer{Kmer: km, Weight: weight},
		Start:        start,
		Direction:    breakend.Forward,
		EvidenceID:   evidenceID,
	}
}

func completedNodes(g *Graph) []*Node {
	var out []*Node
	for _, comp := range g.TakeCompleted() {
		out = append(out, comp...)
	}
	slices.SortFunc(out, func(a, b *Node) int { return a.id - b.id })
	return out
}

func TestGraphMergeRule(t *testing.T) {
	g := NewGraph(4, 10)
	g.Add(supportNode(t, "ACGT", 10, 5, 1))
	g.Add(supportNode(t, "ACGT", 12, 7, 2))
	g.Add(supportNode(t, "ACGT", 14, 1, 2))
	// more than k past the last merged start
	g.Add(supportNode(t, "ACGT", 19, 3, 3))
	g.Flush()

	nodes := completedNodes(g)
	assert.EQ(t, len(nodes), 2)
	expect.EQ(t, nodes[0].FirstStart, 10)
	expect.EQ(t, nodes[0].LastStart, 14)
	expect.EQ(t, nodes[0].Weight, 13)
	expect.That(t, nodes[0].Evidence, h.ElementsAre(1, 2))
	expect.EQ(t, nodes[1].FirstStart, 19)
	expect.EQ(t, g.NodeCount(), 2)
}

func TestGraphDirectionsDoNotMerge(t *testing.T) {
	g := NewGraph(4, 10)
	fwd := supportNode(t, "ACGT", 10, 5, 1)
	bwd := fwd
	bwd.Direction = breakend.Backward
	g.Add(fwd)
	g.Add(bwd)
	expect.EQ(t, g.NodeCount(), 2)
}

func TestGraphEdgeRule(t *testing.T) {
	for _, tc := range []struct {
		name      string
		a, b      string
		aPos, bPos int
		edge      bool
	}{
		{"shift by one", "ACGT", "CGTT", 10, 11, true},
		{"same position", "ACGT", "CGTT", 10, 10, false},
		{"shift by two", "ACGT", "CGTT", 10, 12, false},
		{"not overlapping", "ACGT", "GTTA", 10, 11, false},
	} {
		g := NewGraph(4, 10)
		g.Add(supportNode(t, tc.a, tc.aPos, 1, 1))
		g.Add(supportNode(t, tc.b, tc.bPos, 1, 2))
		expect.EQ(t, g.EdgeCount() == 1, tc.edge, tc.name)
	}
}

func TestGraphEdgeAfterMergeWidensInterval(t *testing.T) {
	g := NewGraph(4, 10)
	g.Add(supportNode(t, "ACGT", 10, 1, 1))
	g.Add(supportNode(t, "CGTT", 13, 1, 2))
	expect.EQ(t, g.EdgeCount(), 0)
	// widens ACGT to [10,13] so CGTT at 13 is one of its shifted starts
	g.Add(supportNode(t, "ACGT", 13, 1, 3))
	expect.EQ(t, g.EdgeCount(), 1)
	g.Add(supportNode(t, "ACGT", 14, 1, 4))
	expect.EQ(t, g.EdgeCount(), 1)
}

func TestGraphRetiresBehindFrontier(t *testing.T) {
	g := NewGraph(4, 6)
	g.Add(supportNode(t, "ACGT", 10, 1, 1))
	g.Add(supportNode(t, "CGTT", 11, 1, 1))
	// frontier 17: ACGT retires (10+6 < 17) but its component is still open
	g.Add(supportNode(t, "TTTT", 17, 1, 2))
	expect.EQ(t, len(g.TakeCompleted()), 0)
	g.Add(supportNode(t, "GGGG", 18, 1, 3))
	done := g.TakeCompleted()
	assert.EQ(t, len(done), 1)
	expect.EQ(t, len(done[0]), 2)
	expect.EQ(t, g.PeakActive(), 2)
}

func TestGraphContigChangeResetsFrontier(t *testing.T) {
	g := NewGraph(4, 10)
	g.Add(supportNode(t, "GGGG", 100000, 1, 1))

	onRef := func(sn evidence.KmerNode) evidence.KmerNode {
		sn.ReferenceIndex = 1
		return sn
	}
	g.Add(onRef(supportNode(t, "ACGT", 10, 1, 2)))
	g.Add(onRef(supportNode(t, "ACGT", 10, 1, 3)))
	g.Add(onRef(supportNode(t, "CGTT", 11, 1, 3)))
	expect.EQ(t, g.NodeCount(), 3)
	expect.EQ(t, g.EdgeCount(), 1)

	// the first contig completed on the switch
	done := g.TakeCompleted()
	assert.EQ(t, len(done), 1)
	expect.EQ(t, done[0][0].ReferenceIndex, 0)

	g.Flush()
	nodes := completedNodes(g)
	assert.EQ(t, len(nodes), 2)
	expect.EQ(t, nodes[0].Weight, 2)
	expect.That(t, nodes[0].Evidence, h.ElementsAre(2, 3))
	assert.EQ(t, len(nodes[0].Next()), 1)
	expect.True(t, nodes[0].Next()[0] == nodes[1])
}

func TestGraphWindowAtLeastKPlusOne(t *testing.T) {
	g := NewGraph(4, 0)
	expect.EQ(t, g.window, 5)
}

const (
	mainSeq = "ACGTTAGCCATGAGTC"
	altSeq  = "ACGTTAGCTTCAGGAC"
)

func branchingEvidence(t *testing.T) []*evidence.Evidence {
	t.Helper()
	hdr := evidencetest.Header(1000)
	qual := bytes.Repeat([]byte{30}, len(mainSeq))
	var all []*evidence.Evidence
	for id, seq := range []string{mainSeq, mainSeq, mainSeq, altSeq} {
		e, err := evidence.NewSoftClip(id, evidencetest.Read(hdr, 0, 100, "4M12S", seq, qual), breakend.Forward)
		assert.NoError(t, err)
		all = append(all, e)
	}
	slices.SortFunc(all, evidence.ByStartEnd)
	return all
}

func TestAssemblerPrefersHeaviestPath(t *testing.T) {
	all := branchingEvidence(t)
	asm := NewAssembler(NewSupportNodeIterator(4, slices.Values(all), 20), 4, 20, 0)
	var contigs []*Contig
	for c := range asm.All() {
		contigs = append(contigs, c)
	}
	expect.NoError(t, asm.Err())
	assert.EQ(t, len(contigs), 2)

	main := contigs[0]
	expect.EQ(t, string(main.Sequence), mainSeq)
	expect.EQ(t, main.Start, 100)
	expect.EQ(t, main.End, 115)
	expect.EQ(t, main.Nodes, 13)
	expect.EQ(t, main.Weight, 5*4*120+8*3*120)
	expect.That(t, main.Evidence, h.ElementsAre(0, 1, 2, 3))
	expect.EQ(t, main.Direction, breakend.Forward)

	alt := contigs[1]
	expect.EQ(t, string(alt.Sequence), altSeq[5:])
	expect.EQ(t, alt.Start, 105)
	expect.That(t, alt.Evidence, h.ElementsAre(3))
}

func TestAssemblerMinWeightDropsLightBranch(t *testing.T) {
	all := branchingEvidence(t)
	asm := NewAssembler(NewSupportNodeIterator(4, slices.Values(all), 20), 4, 20, 200)
	var contigs []*Contig
	for c := range asm.All() {
		contigs = append(contigs, c)
	}
	assert.EQ(t, len(contigs), 1)
	expect.EQ(t, string(contigs[0].Sequence), mainSeq)
}

func TestAssemblerIsDeterministic(t *testing.T) {
	run := func() []string {
		all := sortedScenario(t, 50)
		asm := NewAssembler(NewSupportNodeIterator(4, slices.Values(all), 30), 4, 30, 0)
		var out []string
		for c := range asm.All() {
			out = append(out, string(c.Sequence))
		}
		return out
	}
	first := run()
	expect.True(t, len(first) > 0)
	expect.EQ(t, run(), first)
}

func TestAssemblerCoversAllEvidence(t *testing.T) {
	all := sortedScenario(t, 30)
	asm := NewAssembler(NewSupportNodeIterator(4, slices.Values(all), 30), 4, 30, 0)
	seen := make(map[int]bool)
	for c := range asm.All() {
		for _, id := range c.Evidence {
			seen[id] = true
		}
	}
	expect.EQ(t, len(seen), len(all))
}

func TestExtractContigsHandlesCycles(t *testing.T) {
	g := NewGraph(4, 10)
	// AAAA repeated at consecutive positions links to itself
	g.Add(supportNode(t, "AAAA", 10, 2, 1))
	g.Add(supportNode(t, "AAAA", 11, 2, 1))
	g.Flush()
	comps := g.TakeCompleted()
	assert.EQ(t, len(comps), 1)
	contigs := ExtractContigs(comps[0], 4, 0)
	assert.EQ(t, len(contigs), 1)
	expect.EQ(t, string(contigs[0].Sequence), "AAAA")
	expect.EQ(t, contigs[0].Weight, 4)
}
