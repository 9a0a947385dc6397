package calling

import (
	"cmp"
	"slices"
	"sort"

	"github.com/scttfrdmn/breakasm-go/pkg/breakend"
)

// rank orders calls best first: higher score, then breakpoints before
// breakends, then assembled before unassembled, then position.
func rank(a, b Call) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	if a.IsBreakpoint() != b.IsBreakpoint() {
		if a.IsBreakpoint() {
			return -1
		}
		return 1
	}
	if (a.Assembly != "") != (b.Assembly != "") {
		if a.Assembly != "" {
			return -1
		}
		return 1
	}
	return Compare(a, b)
}

// duplicates reports whether b repeats a: the breakends overlap once both
// are widened by the margin and, when both calls have a partner side, the
// widened breakpoints overlap too.
func (p Params) duplicates(a, b Call, dict breakend.Dictionary) bool {
	if !p.WithMargin(a.Breakend, dict).Overlaps(p.WithMargin(b.Breakend, dict)) {
		return false
	}
	if a.Breakpoint == nil || b.Breakpoint == nil {
		return true
	}
	return a.Breakpoint.ExpandBounds(p.BreakendMargin, dict).
		Overlaps(b.Breakpoint.ExpandBounds(p.BreakendMargin, dict))
}

type dedupKey struct {
	ref int
	dir breakend.Direction
}

// keptCalls holds the surviving calls of one contig and direction sorted by
// breakend start.
type keptCalls struct {
	calls    []Call
	maxWidth int
}

func (k *keptCalls) add(c Call) {
	i := sort.Search(len(k.calls), func(i int) bool { return k.calls[i].Breakend.Start > c.Breakend.Start })
	k.calls = slices.Insert(k.calls, i, c)
	k.maxWidth = max(k.maxWidth, c.Breakend.Width())
}

// near returns the kept calls that could overlap c after widening by margin.
func (k *keptCalls) near(c Call, margin int) []Call {
	lo := c.Breakend.Start - k.maxWidth - 2*margin
	hi := c.Breakend.End + 2*margin
	i := sort.Search(len(k.calls), func(i int) bool { return k.calls[i].Breakend.Start >= lo })
	j := sort.Search(len(k.calls), func(i int) bool { return k.calls[i].Breakend.Start > hi })
	return k.calls[i:j]
}

// Deduplicate keeps the best of each group of calls describing the same
// event and returns the survivors in Compare order. Calls are never
// modified.
func (p Params) Deduplicate(calls []Call, dict breakend.Dictionary) []Call {
	ranked := slices.Clone(calls)
	slices.SortStableFunc(ranked, rank)

	groups := make(map[dedupKey]*keptCalls)
	out := make([]Call, 0, len(ranked))
	for _, c := range ranked {
		key := dedupKey{ref: c.Breakend.ReferenceIndex, dir: c.Breakend.Direction}
		group := groups[key]
		if group == nil {
			group = &keptCalls{}
			groups[key] = group
		}
		if slices.ContainsFunc(group.near(c, p.BreakendMargin), func(k Call) bool { return p.duplicates(k, c, dict) }) {
			continue
		}
		group.add(c)
		out = append(out, c)
	}
	slices.SortFunc(out, Compare)
	return out
}
