package calling

import (
	"testing"

	"github.com/grailbio/testutil/expect"
	"github.com/scttfrdmn/breakasm-go/pkg/breakend"
)

func breakendCall(id string, pos int, score float64) Call {
	return Call{
		ID:            id,
		Breakend:      breakend.New(0, breakend.Forward, pos, pos),
		Score:         score,
		EvidenceCount: 1,
	}
}

func ids(calls []Call) []string {
	var out []string
	for _, c := range calls {
		out = append(out, c.ID)
	}
	return out
}

func TestDeduplicateWithinMargin(t *testing.T) {
	p := DefaultParams()
	calls := []Call{
		breakendCall("a", 1000, 10),
		breakendCall("b", 1006, 50),
		// widened to [1010,1016], clear of [1003,1009]
		breakendCall("c", 1013, 5),
	}
	got := p.Deduplicate(calls, nil)
	expect.EQ(t, ids(got), []string{"b", "c"})
	// input untouched
	expect.EQ(t, ids(calls), []string{"a", "b", "c"})
}

func TestDeduplicateKeepsOtherDirections(t *testing.T) {
	p := DefaultParams()
	a := breakendCall("a", 1000, 10)
	b := breakendCall("b", 1000, 20)
	b.Breakend.Direction = breakend.Backward
	expect.EQ(t, ids(p.Deduplicate([]Call{a, b}, nil)), []string{"a", "b"})
}

func TestDeduplicatePrefersBreakpointOnTie(t *testing.T) {
	p := DefaultParams()
	bp := breakpointCall(500, 30, 2)
	bp.ID = "bp"
	be := breakendCall("be", 1001, 30)
	got := p.Deduplicate([]Call{be, bp}, nil)
	expect.EQ(t, ids(got), []string{"bp"})
}

func TestDeduplicateDistinctPartners(t *testing.T) {
	p := DefaultParams()
	a := breakpointCall(500, 30, 2)
	a.ID = "a"
	b := breakpointCall(5000, 20, 2)
	b.ID = "b"
	expect.EQ(t, ids(p.Deduplicate([]Call{a, b}, nil)), []string{"a", "b"})
}

func TestDeduplicateWideBreakends(t *testing.T) {
	p := DefaultParams()
	wide := Call{ID: "wide", Breakend: breakend.New(0, breakend.Forward, 100, 900), Score: 40}
	inside := breakendCall("inside", 850, 10)
	outside := breakendCall("outside", 950, 10)
	got := p.Deduplicate([]Call{inside, outside, wide}, nil)
	expect.EQ(t, ids(got), []string{"wide", "outside"})
}
