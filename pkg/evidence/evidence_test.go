package evidence_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/scttfrdmn/breakasm-go/pkg/breakend"
	"github.com/scttfrdmn/breakasm-go/pkg/evidence"
	"github.com/scttfrdmn/breakasm-go/pkg/evidence/evidencetest"
	"github.com/scttfrdmn/breakasm-go/pkg/kmer"
)

const testSeq = "ACGTTATACCG"

func collect(t *testing.T, e *evidence.Evidence, k int) []evidence.KmerNode {
	t.Helper()
	seq, err := e.Kmers(k)
	assert.NoError(t, err)
	return slices.Collect(seq)
}

func TestForwardSoftClipSpan(t *testing.T) {
	h := evidencetest.Header(1000)
	rec := evidencetest.Read(h, 0, 10, "1S4M6S", testSeq, evidencetest.Quals(len(testSeq)))
	e, err := evidence.NewSoftClip(1, rec, breakend.Forward)
	assert.NoError(t, err)

	expect.EQ(t, e.Breakend(), breakend.New(0, breakend.Forward, 13, 13))
	expect.EQ(t, e.Start(), 10)
	expect.EQ(t, e.End(), 19)
	expect.EQ(t, string(e.Bases()), "CGTTATACCG")
	expect.EQ(t, e.KmerCount(4), 7)

	nodes := collect(t, e, 4)
	expect.EQ(t, len(nodes), 7)
	for i, n := range nodes {
		expect.EQ(t, n.Start, 10+i)
		expect.EQ(t, n.Offset, i)
		expect.EQ(t, n.EvidenceID, 1)
		expect.EQ(t, n.Direction, breakend.Forward)
	}
	expect.EQ(t, string(kmer.Decode(nodes[0].Kmer, 4)), "CGTT")
	// qualities 1+2+3+4
	expect.EQ(t, nodes[0].Weight, 10)
	expect.EQ(t, string(kmer.Decode(nodes[6].Kmer, 4)), "ACCG")
	expect.EQ(t, nodes[6].Weight, 7+8+9+10)
	expect.EQ(t, e.Quality(), 55)
}

func TestBackwardSoftClipSpan(t *testing.T) {
	h := evidencetest.Header(1000)
	rec := evidencetest.Read(h, 0, 10, "1S4M6S", testSeq, evidencetest.Quals(len(testSeq)))
	e, err := evidence.NewSoftClip(2, rec, breakend.Backward)
	assert.NoError(t, err)

	expect.EQ(t, e.Breakend(), breakend.New(0, breakend.Backward, 10, 10))
	expect.EQ(t, e.Start(), 9)
	expect.EQ(t, string(e.Bases()), "ACGTT")

	nodes := collect(t, e, 4)
	expect.EQ(t, len(nodes), 2)
	expect.EQ(t, nodes[0].Start, 9)
	expect.EQ(t, nodes[1].Start, 10)
	expect.EQ(t, string(kmer.Decode(nodes[0].Kmer, 4)), "ACGT")
	expect.EQ(t, nodes[0].Weight, 0+1+2+3)
	expect.EQ(t, nodes[1].Weight, 1+2+3+4)
}

func TestSoftClipRequiresClipOnBreakendSide(t *testing.T) {
	h := evidencetest.Header(1000)
	rec := evidencetest.Read(h, 0, 10, "11M", testSeq, nil)
	_, err := evidence.NewSoftClip(1, rec, breakend.Forward)
	expect.NotNil(t, err)
	_, err = evidence.NewSoftClip(1, rec, breakend.Backward)
	expect.NotNil(t, err)
}

func TestDiscordantPairBreakend(t *testing.T) {
	h := evidencetest.Header(1000, 1000)
	rec := evidencetest.Pair(h, evidencetest.Read(h, 0, 10, "1S9M1S", testSeq, nil), false, 1, 50, false, true)
	e, err := evidence.NewDiscordantPair(3, rec, 300, nil)
	assert.NoError(t, err)
	expect.EQ(t, e.Kind, evidence.DiscordantPair)
	expect.EQ(t, e.Breakend(), breakend.New(0, breakend.Forward, 18, 309))
	expect.EQ(t, e.Start(), 9)
	expect.EQ(t, e.SpanLength(), 11)
	expect.EQ(t, e.KmerCount(4), 8)
	_, ok := e.Remote()
	expect.False(t, ok)

	rec = evidencetest.Pair(h, evidencetest.Read(h, 0, 10, "1S9M1S", testSeq, nil), true, 1, 50, false, false)
	e, err = evidence.NewDiscordantPair(4, rec, 300, nil)
	assert.NoError(t, err)
	expect.EQ(t, e.Breakend(), breakend.New(0, breakend.Backward, 1, 10))
}

func TestSplitReadBreakpoint(t *testing.T) {
	h := evidencetest.Header(1000, 1000)
	rec := evidencetest.Read(h, 0, 10, "1S4M6S", testSeq, nil)
	remote := breakend.New(1, breakend.Backward, 500, 500)
	e, err := evidence.NewSplitRead(5, rec, breakend.Forward, remote)
	assert.NoError(t, err)
	expect.EQ(t, e.Kind, evidence.SplitRead)
	bp, ok := e.Breakpoint()
	expect.True(t, ok)
	expect.EQ(t, bp.Local, breakend.New(0, breakend.Forward, 13, 13))
	expect.EQ(t, bp.Remote, remote)
}

func TestInvalidSymbolRejectsRecord(t *testing.T) {
	h := evidencetest.Header(1000)
	e, err := evidence.NewSoftClip(1, evidencetest.Read(h, 0, 10, "1S4M6S", "ACGTNATACCG", nil), breakend.Forward)
	assert.NoError(t, err)
	_, err = e.Kmers(4)
	expect.True(t, errors.Is(err, kmer.ErrInvalidSymbol))

	// ambiguity outside the relevant span is ignored
	e, err = evidence.NewSoftClip(2, evidencetest.Read(h, 0, 10, "1S4M6S", "NCGTTATACCG", nil), breakend.Forward)
	assert.NoError(t, err)
	expect.EQ(t, len(collect(t, e, 4)), 7)
}

func TestKmersRejectsBadK(t *testing.T) {
	h := evidencetest.Header(1000)
	e, err := evidence.NewSoftClip(1, evidencetest.Read(h, 0, 10, "1S4M6S", testSeq, nil), breakend.Forward)
	assert.NoError(t, err)
	for _, k := range []int{0, kmer.MaxK + 1} {
		_, err := e.Kmers(k)
		expect.True(t, errors.Is(err, kmer.ErrInvalidLength), "k=%d", k)
	}
	// span shorter than k yields nothing
	expect.EQ(t, e.KmerCount(11), 0)
	expect.EQ(t, len(collect(t, e, 11)), 0)
}

func TestMissingQualitiesWeighZero(t *testing.T) {
	h := evidencetest.Header(1000)
	e, err := evidence.NewSoftClip(1, evidencetest.Read(h, 0, 10, "1S4M6S", testSeq, nil), breakend.Forward)
	assert.NoError(t, err)
	for _, n := range collect(t, e, 4) {
		expect.EQ(t, n.Weight, 0)
	}
	expect.EQ(t, e.Quality(), 0)
}

func TestKmersIsRestartable(t *testing.T) {
	h := evidencetest.Header(1000)
	e, err := evidence.NewSoftClip(1, evidencetest.Read(h, 0, 10, "1S4M6S", testSeq, nil), breakend.Forward)
	assert.NoError(t, err)
	seq, err := e.Kmers(4)
	assert.NoError(t, err)
	first := slices.Collect(seq)
	expect.EQ(t, slices.Collect(seq), first)

	n := 0
	for range seq {
		n++
		if n == 3 {
			break
		}
	}
	expect.EQ(t, n, 3)
}

func TestScenarioNodeCount(t *testing.T) {
	h := evidencetest.Header(1000, 1000)
	all := evidencetest.Scenario(h, testSeq, 100, 300)
	expect.EQ(t, len(all), 400)
	total := 0
	for _, e := range all {
		total += e.KmerCount(4)
	}
	expect.EQ(t, total, 100*((10-3)+(5-3)+(11-3)+(11-3)))
}

func TestByStartEnd(t *testing.T) {
	h := evidencetest.Header(1000)
	mk := func(id, pos int, dir breakend.Direction) *evidence.Evidence {
		e, err := evidence.NewSoftClip(id, evidencetest.Read(h, 0, pos, "1S4M6S", testSeq, nil), dir)
		assert.NoError(t, err)
		return e
	}
	list := []*evidence.Evidence{
		mk(0, 20, breakend.Forward),
		mk(1, 21, breakend.Backward), // starts at 20, ends at 24
		mk(2, 5, breakend.Forward),
		mk(3, 20, breakend.Forward),
	}
	slices.SortFunc(list, evidence.ByStartEnd)
	var ids []int
	for _, e := range list {
		ids = append(ids, e.ID)
	}
	expect.EQ(t, ids, []int{2, 1, 0, 3})
}
