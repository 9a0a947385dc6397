package breakend

import "fmt"

// Breakpoint is a novel adjacency between two breakends.
type Breakpoint struct {
	Local  Summary `json:"local"`
	Remote Summary `json:"remote"`
}

// NewBreakpoint returns the canonical breakpoint joining a and b.
func NewBreakpoint(a, b Summary) Breakpoint {
	return Breakpoint{Local: a, Remote: b}.Canonical()
}

// IsCanonical reports whether the local breakend sorts before the remote.
func (bp Breakpoint) IsCanonical() bool {
	return !bp.Remote.Less(bp.Local)
}

// Canonical swaps the sides if needed so that Local <= Remote. Each side
// keeps its own direction.
func (bp Breakpoint) Canonical() Breakpoint {
	if bp.IsCanonical() {
		return bp
	}
	return bp.Flip()
}

// Flip exchanges local and remote.
func (bp Breakpoint) Flip() Breakpoint {
	return Breakpoint{Local: bp.Remote, Remote: bp.Local}
}

// Validate checks both sides.
func (bp Breakpoint) Validate() error {
	if err := bp.Local.Validate(); err != nil {
		return err
	}
	return bp.Remote.Validate()
}

// ExpandBounds applies ExpandBounds to both sides.
func (bp Breakpoint) ExpandBounds(margin int, dict Dictionary) Breakpoint {
	return Breakpoint{
		Local:  bp.Local.ExpandBounds(margin, dict),
		Remote: bp.Remote.ExpandBounds(margin, dict),
	}
}

// Overlaps reports whether both sides overlap in either orientation.
func (bp Breakpoint) Overlaps(o Breakpoint) bool {
	return (bp.Local.Overlaps(o.Local) && bp.Remote.Overlaps(o.Remote)) ||
		(bp.Local.Overlaps(o.Remote) && bp.Remote.Overlaps(o.Local))
}

// IndelSizeRange returns the range of deletion sizes consistent with a
// same-contig breakpoint with one forward and one backward side. ok is false
// for any other configuration.
func (bp Breakpoint) IndelSizeRange() (minSize, maxSize int, ok bool) {
	if bp.Local.ReferenceIndex != bp.Remote.ReferenceIndex || bp.Local.Direction == bp.Remote.Direction {
		return 0, 0, false
	}
	fwd, bwd := bp.Local, bp.Remote
	if fwd.Direction != Forward {
		fwd, bwd = bwd, fwd
	}
	return bwd.Start - fwd.End - 1, bwd.End - fwd.Start - 1, true
}

// CouldBeIndelUpTo reports whether the breakpoint is consistent with an
// indel of 1 to maxSize bases. Such calls are usually an assembly that
// picked up reads from a nearby real small indel.
func (bp Breakpoint) CouldBeIndelUpTo(maxSize int) bool {
	minSize, maxSizeRange, ok := bp.IndelSizeRange()
	if !ok {
		return false
	}
	return intervalsOverlap(minSize, maxSizeRange, 1, maxSize)
}

func (bp Breakpoint) String() string {
	return fmt.Sprintf("%s<->%s", bp.Local, bp.Remote)
}
