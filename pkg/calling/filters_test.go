package calling

import (
	"testing"

	"github.com/grailbio/testutil/expect"
	"github.com/grailbio/testutil/h"
	"github.com/scttfrdmn/breakasm-go/pkg/breakend"
	"github.com/scttfrdmn/breakasm-go/pkg/evidence/evidencetest"
)

func breakpointCall(gap int, score float64, count int) Call {
	fwd := breakend.New(0, breakend.Forward, 1000, 1000)
	bwd := breakend.New(0, breakend.Backward, 1000+gap+1, 1000+gap+1)
	bp := breakend.NewBreakpoint(fwd, bwd)
	return Call{
		ID:            "call1",
		Breakend:      bp.Local,
		Breakpoint:    &bp,
		Score:         score,
		EvidenceCount: count,
	}
}

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	expect.EQ(t, p.MinScore, 25.0)
	expect.EQ(t, p.SomaticPValueThreshold, 0.001)
	expect.False(t, p.CallOnlyAssemblies)
	expect.EQ(t, p.MinIndelSize, 100)
	expect.EQ(t, p.BreakendMargin, 3)
	expect.NoError(t, p.Validate())
}

func TestParamsValidate(t *testing.T) {
	p := DefaultParams()
	p.MinIndelSize = 0
	expect.NotNil(t, p.Validate())
	p = DefaultParams()
	p.SomaticPValueThreshold = 2
	expect.NotNil(t, p.Validate())
}

func TestSmallIndelBoundary(t *testing.T) {
	p := DefaultParams()
	for _, tc := range []struct {
		gap    int
		tagged bool
	}{
		{1, true},
		{p.MinIndelSize - 1, true},
		{p.MinIndelSize, false},
		{p.MinIndelSize + 50, false},
	} {
		call := p.ApplyFilters(breakpointCall(tc.gap, 100, 10))
		expect.EQ(t, call.HasFilter(SmallIndel), tc.tagged, "gap %d", tc.gap)
	}
}

func TestSmallIndelIgnoresBreakends(t *testing.T) {
	p := DefaultParams()
	call := Call{Breakend: breakend.New(0, breakend.Forward, 10, 10), Score: 100, EvidenceCount: 3}
	expect.False(t, p.ApplyFilters(call).IsFiltered())
}

func TestZeroSupportAlwaysRejected(t *testing.T) {
	p := DefaultParams()
	p.MinSupport = 0
	for _, score := range []float64{0, 25, 1e6} {
		call := p.ApplyFilters(breakpointCall(500, score, 0))
		expect.True(t, call.HasFilter(LowBreakpointSupport), "score %v", score)
	}
}

func TestFiltersAreAdditive(t *testing.T) {
	p := DefaultParams()
	call := p.ApplyFilters(breakpointCall(10, 1, 0))
	expect.That(t, call.Filters, h.ElementsAre(LowBreakpointSupport, LowQual, SmallIndel))
}

func TestApplyFiltersIsIdempotent(t *testing.T) {
	p := DefaultParams()
	for _, call := range []Call{
		breakpointCall(10, 1, 0),
		breakpointCall(500, 100, 5),
		breakpointCall(500, 10, 5),
		{Breakend: breakend.New(0, breakend.Forward, 10, 10), Filters: []Filter{LowQual}},
	} {
		once := p.ApplyFilters(call)
		twice := p.ApplyFilters(once)
		expect.EQ(t, twice.Filters, once.Filters)
	}
}

func TestApplyFiltersDoesNotMutateInput(t *testing.T) {
	p := DefaultParams()
	call := breakpointCall(10, 1, 5)
	filtered := p.ApplyFilters(call)
	expect.EQ(t, len(call.Filters), 0)
	expect.True(t, filtered.IsFiltered())

	passing := breakpointCall(500, 100, 5)
	expect.EQ(t, p.ApplyFilters(passing), passing)
}

func TestMarginHelpers(t *testing.T) {
	p := DefaultParams()
	s := breakend.New(0, breakend.Forward, 100, 100)
	wide := p.WithMargin(s, nil)
	expect.EQ(t, wide, breakend.New(0, breakend.Forward, 97, 103))
	expect.EQ(t, p.WithoutMargin(wide, nil), s)

	dict := breakend.HeaderDictionary{Header: evidencetest.Header(200)}
	for _, edge := range []breakend.Summary{
		breakend.New(0, breakend.Forward, 2, 2),
		breakend.New(0, breakend.Backward, 199, 200),
	} {
		expect.True(t, p.WithoutMargin(p.WithMargin(edge, dict), dict).Contains(edge))
	}
}

func TestAnnotateSomatic(t *testing.T) {
	p := DefaultParams()
	pv := 0.0005
	call := breakpointCall(500, 100, 5)
	call.SomaticPValue = &pv
	expect.True(t, p.Annotate(call).Somatic)
	pv2 := 0.01
	call.SomaticPValue = &pv2
	expect.False(t, p.Annotate(call).Somatic)
}

func TestKeep(t *testing.T) {
	p := DefaultParams()
	bad := p.ApplyFilters(breakpointCall(10, 1, 0))
	expect.True(t, p.Keep(bad))
	p.WriteFilteredCalls = false
	expect.False(t, p.Keep(bad))
	expect.True(t, p.Keep(breakpointCall(500, 100, 5)))
}
