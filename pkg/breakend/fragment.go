package breakend

import "github.com/scttfrdmn/breakasm-go/pkg/kmer"

// Fragment is a simulated sequence segment used to derive the breakends a
// correct caller should report. It is test support only.
type Fragment struct {
	ReferenceIndex int
	Start          int
	End            int
	Negative       bool
	seq            []byte
}

// NewFragment creates a fragment whose reference bases start at start.
func NewFragment(referenceIndex, start int, seq []byte, negative bool) Fragment {
	return Fragment{
		ReferenceIndex: referenceIndex,
		Start:          start,
		End:            start + len(seq),
		Negative:       negative,
		seq:            append([]byte(nil), seq...),
	}
}

// Sequence returns the fragment bases in read orientation.
func (f Fragment) Sequence() []byte {
	if f.Negative {
		return kmer.ReverseComplement(f.seq)
	}
	return append([]byte(nil), f.seq...)
}

// StartBreakend is the breakend at the beginning of the fragment sequence.
func (f Fragment) StartBreakend() Summary {
	return f.breakend(f.Negative)
}

// EndBreakend is the breakend at the end of the fragment sequence.
func (f Fragment) EndBreakend() Summary {
	return f.breakend(!f.Negative)
}

func (f Fragment) breakend(high bool) Summary {
	if high {
		return New(f.ReferenceIndex, Forward, f.End, f.End)
	}
	return New(f.ReferenceIndex, Backward, f.Start, f.Start)
}
