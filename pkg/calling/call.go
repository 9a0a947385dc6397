package calling

import (
	"fmt"
	"slices"
	"strings"

	"github.com/scttfrdmn/breakasm-go/pkg/breakend"
)

// Filter is a tag attached to a call that failed a check.
type Filter string

const (
	// SmallIndel marks a breakpoint that could be a small indel picked up by
	// an unrelated assembly.
	SmallIndel Filter = "SMALL_INDEL"
	// LowQual marks a call scoring below the minimum score.
	LowQual Filter = "LOW_QUAL"
	// LowBreakpointSupport marks a call with too little evidence.
	LowBreakpointSupport Filter = "LOW_BREAKPOINT_SUPPORT"
)

// Call is a breakend or breakpoint call. Calls are values: filtering returns
// a new Call and never modifies one already handed out.
type Call struct {
	ID       string           `json:"id"`
	Breakend breakend.Summary `json:"breakend"`
	// Breakpoint is set when the partner breakend is known.
	Breakpoint    *breakend.Breakpoint `json:"breakpoint,omitempty"`
	Score         float64              `json:"score"`
	EvidenceCount int                  `json:"evidence_count"`
	Filters       []Filter             `json:"filters,omitempty"`
	// Assembly is the contig sequence, empty for unassembled calls.
	Assembly      string   `json:"assembly,omitempty"`
	SomaticPValue *float64 `json:"somatic_pvalue,omitempty"`
	Somatic       bool     `json:"somatic,omitempty"`
}

// IsBreakpoint reports whether both sides of the call are known.
func (c Call) IsBreakpoint() bool {
	return c.Breakpoint != nil
}

// IsFiltered reports whether the call carries any filter tag.
func (c Call) IsFiltered() bool {
	return len(c.Filters) > 0
}

// HasFilter reports whether the call carries f.
func (c Call) HasFilter(f Filter) bool {
	return slices.Contains(c.Filters, f)
}

// Less orders calls by breakend position, then ID.
func (c Call) Less(o Call) bool {
	if c.Breakend != o.Breakend {
		return c.Breakend.Less(o.Breakend)
	}
	return c.ID < o.ID
}

// Compare is Less as a three-way comparison for slices.SortFunc.
func Compare(a, b Call) int {
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	}
	return 0
}

func (c Call) String() string {
	var sb strings.Builder
	if c.Breakpoint != nil {
		sb.WriteString(c.Breakpoint.String())
	} else {
		sb.WriteString(c.Breakend.String())
	}
	fmt.Fprintf(&sb, " score=%.1f evidence=%d", c.Score, c.EvidenceCount)
	if len(c.Filters) > 0 {
		filters := make([]string, len(c.Filters))
		for i, f := range c.Filters {
			filters[i] = string(f)
		}
		fmt.Fprintf(&sb, " filters=%s", strings.Join(filters, ";"))
	}
	return sb.String()
}
