package calling

import "slices"

// BreakpointFilters returns the tags that apply to call, checked in order:
// small indel (breakpoints only), minimum score, minimum support. Every
// applicable tag is returned; no check short-circuits another.
func (p Params) BreakpointFilters(call Call) []Filter {
	var filters []Filter
	if call.Breakpoint != nil && call.Breakpoint.CouldBeIndelUpTo(p.MinIndelSize-1) {
		filters = append(filters, SmallIndel)
	}
	if call.Score < p.MinScore {
		filters = append(filters, LowQual)
	}
	if call.EvidenceCount < max(1, p.MinSupport) {
		filters = append(filters, LowBreakpointSupport)
	}
	return filters
}

// ApplyFilters returns call with the applicable filter tags added to the
// ones it already has. If nothing new applies the call is returned as is.
// Applying the filters twice gives the same tags as applying them once.
func (p Params) ApplyFilters(call Call) Call {
	filters := p.BreakpointFilters(call)
	if len(filters) == 0 {
		return call
	}
	merged := append(slices.Clone(call.Filters), filters...)
	slices.Sort(merged)
	merged = slices.Compact(merged)
	if slices.Equal(merged, call.Filters) {
		return call
	}
	call.Filters = merged
	return call
}

// Annotate applies the filters and sets the somatic flag from the call's
// p-value, if it has one.
func (p Params) Annotate(call Call) Call {
	call = p.ApplyFilters(call)
	if call.SomaticPValue != nil {
		call.Somatic = p.IsSomatic(*call.SomaticPValue)
	}
	return call
}

// Keep reports whether call belongs in the output.
func (p Params) Keep(call Call) bool {
	return p.WriteFilteredCalls || !call.IsFiltered()
}
