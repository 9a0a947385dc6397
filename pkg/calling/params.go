// Package calling scores, tags and filters structural variant calls.
package calling

import (
	"fmt"

	"github.com/scttfrdmn/breakasm-go/pkg/breakend"
)

// Params holds the variant calling options. A Params value is built once
// per run and only read afterwards.
type Params struct {
	// MinScore is the minimum score for a call to pass.
	MinScore float64
	// SomaticPValueThreshold is the largest p-value flagged as somatic.
	SomaticPValueThreshold float64
	// CallOnlyAssemblies restricts calls to assembled contigs.
	CallOnlyAssemblies bool
	// MinIndelSize is the smallest same-contig event reported as a
	// breakpoint rather than tagged as a small indel.
	MinIndelSize int
	// BreakendMargin absorbs alignment error around breakend coordinates.
	BreakendMargin int
	// WriteFilteredCalls keeps tagged calls in the output.
	WriteFilteredCalls bool
	// MinSupport is the minimum number of supporting evidence records.
	MinSupport int
}

// DefaultParams returns the default calling options.
func DefaultParams() Params {
	return Params{
		MinScore:               25,
		SomaticPValueThreshold: 0.001,
		CallOnlyAssemblies:     false,
		MinIndelSize:           100,
		BreakendMargin:         3,
		WriteFilteredCalls:     true,
		MinSupport:             1,
	}
}

// Validate checks option ranges.
func (p Params) Validate() error {
	if p.MinScore < 0 {
		return fmt.Errorf("min score must be >= 0, got %v", p.MinScore)
	}
	if p.SomaticPValueThreshold < 0 || p.SomaticPValueThreshold > 1 {
		return fmt.Errorf("somatic p-value threshold must be within [0,1], got %v", p.SomaticPValueThreshold)
	}
	if p.MinIndelSize < 1 {
		return fmt.Errorf("min indel size must be >= 1, got %d", p.MinIndelSize)
	}
	if p.BreakendMargin < 0 {
		return fmt.Errorf("breakend margin must be >= 0, got %d", p.BreakendMargin)
	}
	if p.MinSupport < 0 {
		return fmt.Errorf("min support must be >= 0, got %d", p.MinSupport)
	}
	return nil
}

// WithMargin widens a breakend by the breakend margin.
func (p Params) WithMargin(s breakend.Summary, dict breakend.Dictionary) breakend.Summary {
	return s.ExpandBounds(p.BreakendMargin, dict)
}

// WithoutMargin removes the breakend margin added by WithMargin.
func (p Params) WithoutMargin(s breakend.Summary, dict breakend.Dictionary) breakend.Summary {
	return s.CompressBounds(p.BreakendMargin, dict)
}

// IsSomatic reports whether a supplied somatic p-value passes the threshold.
func (p Params) IsSomatic(pvalue float64) bool {
	return pvalue <= p.SomaticPValueThreshold
}
