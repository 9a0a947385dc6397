// Package breakend models one side of a genomic rearrangement: a contig,
// the side of the position that is retained, and an inclusive interval of
// positional uncertainty.
package breakend

import (
	"errors"
	"fmt"

	"github.com/biogo/hts/sam"
)

// ErrIntervalInvariant signals a breakend whose start exceeds its end. It is
// a construction bug, never a property of the input.
var ErrIntervalInvariant = errors.New("breakend interval start exceeds end")

// Direction is the orientation of a breakend.
type Direction int8

const (
	// Forward breakends retain the bases before the position; the novel
	// sequence continues to the right.
	Forward Direction = iota
	// Backward breakends retain the bases after the position.
	Backward
)

func (d Direction) String() string {
	if d == Forward {
		return "f"
	}
	return "b"
}

// Opposite returns the other direction.
func (d Direction) Opposite() Direction {
	if d == Forward {
		return Backward
	}
	return Forward
}

// Dictionary resolves contig lengths for margin clipping.
type Dictionary interface {
	ReferenceLength(referenceIndex int) (int, bool)
}

// HeaderDictionary adapts a SAM header to a Dictionary.
type HeaderDictionary struct {
	Header *sam.Header
}

// ReferenceLength returns the length of the contig with the given index.
func (d HeaderDictionary) ReferenceLength(referenceIndex int) (int, bool) {
	if d.Header == nil {
		return 0, false
	}
	refs := d.Header.Refs()
	if referenceIndex < 0 || referenceIndex >= len(refs) {
		return 0, false
	}
	return refs[referenceIndex].Len(), true
}

// Summary is a breakend: ReferenceIndex and Direction plus the inclusive,
// 1-based interval [Start, End] in which the breakend lies.
type Summary struct {
	ReferenceIndex int       `json:"reference_index"`
	Direction      Direction `json:"direction"`
	Start          int       `json:"start"`
	End            int       `json:"end"`
}

// New creates a breakend, panicking if start > end.
func New(referenceIndex int, direction Direction, start, end int) Summary {
	s := Summary{
		ReferenceIndex: referenceIndex,
		Direction:      direction,
		Start:          start,
		End:            end,
	}
	if err := s.Validate(); err != nil {
		panic(err)
	}
	return s
}

// Validate checks the interval invariant.
func (s Summary) Validate() error {
	if s.Start > s.End {
		return fmt.Errorf("%w: %s", ErrIntervalInvariant, s)
	}
	return nil
}

// ExpandBounds widens the interval by margin on both sides, clipped to the
// contig. Clipping makes the operation lossy at contig edges, where
// CompressBounds returns a superset of the original interval.
func (s Summary) ExpandBounds(margin int, dict Dictionary) Summary {
	start := s.Start - margin
	end := s.End + margin
	if start < 1 {
		start = 1
	}
	if dict != nil {
		if length, ok := dict.ReferenceLength(s.ReferenceIndex); ok && end > length {
			end = length
		}
	}
	if end < start {
		end = start
	}
	return New(s.ReferenceIndex, s.Direction, start, end)
}

// CompressBounds narrows the interval by margin on both sides. A bound
// sitting on a contig edge stays put, since ExpandBounds may have clipped
// it there. An interval too narrow to shrink collapses onto its centre.
func (s Summary) CompressBounds(margin int, dict Dictionary) Summary {
	start := s.Start + margin
	end := s.End - margin
	if s.Start <= 1 {
		start = s.Start
	}
	if dict != nil {
		if length, ok := dict.ReferenceLength(s.ReferenceIndex); ok && s.End >= length {
			end = s.End
		}
	}
	if start > end {
		c := s.Centre()
		start, end = c, c
	}
	return New(s.ReferenceIndex, s.Direction, start, end)
}

// Centre returns the middle position, rounding down.
func (s Summary) Centre() int {
	return s.Start + (s.End-s.Start)/2
}

// Width returns the number of positions in the interval.
func (s Summary) Width() int {
	return s.End - s.Start + 1
}

// Overlaps reports whether two breakends share contig, direction and at
// least one position.
func (s Summary) Overlaps(o Summary) bool {
	return s.ReferenceIndex == o.ReferenceIndex &&
		s.Direction == o.Direction &&
		intervalsOverlap(s.Start, s.End, o.Start, o.End)
}

// Contains reports whether o lies entirely within s.
func (s Summary) Contains(o Summary) bool {
	return s.ReferenceIndex == o.ReferenceIndex &&
		s.Direction == o.Direction &&
		s.Start <= o.Start && o.End <= s.End
}

// Union returns the smallest breakend covering both. Callers must only
// combine breakends on the same contig and direction.
func (s Summary) Union(o Summary) Summary {
	return New(s.ReferenceIndex, s.Direction, min(s.Start, o.Start), max(s.End, o.End))
}

// Less orders breakends by contig, start, end then direction.
func (s Summary) Less(o Summary) bool {
	if s.ReferenceIndex != o.ReferenceIndex {
		return s.ReferenceIndex < o.ReferenceIndex
	}
	if s.Start != o.Start {
		return s.Start < o.Start
	}
	if s.End != o.End {
		return s.End < o.End
	}
	return s.Direction < o.Direction
}

func (s Summary) String() string {
	return fmt.Sprintf("%d:%d-%d%s", s.ReferenceIndex, s.Start, s.End, s.Direction)
}

// intervalsOverlap reports whether two end-inclusive intervals overlap.
func intervalsOverlap(start1, end1, start2, end2 int) bool {
	return start1 <= end2 && start2 <= end1
}
