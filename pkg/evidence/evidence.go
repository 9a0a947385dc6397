// Package evidence turns alignment records that support a structural
// variant into position-anchored k-mer nodes for assembly.
//
// Evidence comes in a closed set of kinds. Each kind only decides which span
// of the read is relevant and where that span sits on the genome; the k-mer
// emission itself is shared.
package evidence

import (
	"cmp"
	"fmt"

	"github.com/biogo/hts/sam"
	"github.com/scttfrdmn/breakasm-go/pkg/breakend"
)

// Kind identifies the type of structural variant evidence.
type Kind uint8

const (
	// SoftClip is a read with an unaligned soft clip on the breakend side.
	SoftClip Kind = iota
	// SplitRead is a soft clip whose clipped bases align elsewhere (SA tag).
	SplitRead
	// DiscordantPair is a read whose mate is unmapped or placed inconsistently
	// with the expected fragment size and orientation.
	DiscordantPair
)

func (k Kind) String() string {
	switch k {
	case SoftClip:
		return "SC"
	case SplitRead:
		return "SR"
	case DiscordantPair:
		return "DP"
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Evidence is a single alignment record interpreted as support for a
// breakend. It is immutable once constructed.
type Evidence struct {
	ID     int
	Kind   Kind
	Record *sam.Record

	breakend breakend.Summary
	remote   *breakend.Summary

	// relevant read span: read offset, length and the genomic position of
	// its first base
	offset    int
	length    int
	spanStart int
}

// Breakend returns the local breakend this evidence supports.
func (e *Evidence) Breakend() breakend.Summary {
	return e.breakend
}

// Remote returns the partner breakend, if the evidence knows where the other
// side of the rearrangement lies.
func (e *Evidence) Remote() (breakend.Summary, bool) {
	if e.remote == nil {
		return breakend.Summary{}, false
	}
	return *e.remote, true
}

// Breakpoint returns the canonical breakpoint when a remote side is known.
func (e *Evidence) Breakpoint() (breakend.Breakpoint, bool) {
	remote, ok := e.Remote()
	if !ok {
		return breakend.Breakpoint{}, false
	}
	return breakend.NewBreakpoint(e.breakend, remote), true
}

// Direction returns the local breakend direction.
func (e *Evidence) Direction() breakend.Direction {
	return e.breakend.Direction
}

// ReferenceIndex returns the contig the evidence is anchored on.
func (e *Evidence) ReferenceIndex() int {
	return e.breakend.ReferenceIndex
}

// Start is the genomic position of the first base of the relevant span. No
// k-mer node of this evidence starts before it.
func (e *Evidence) Start() int {
	return e.spanStart
}

// End is the genomic position of the last base of the relevant span.
func (e *Evidence) End() int {
	return e.spanStart + e.length - 1
}

// SpanLength is the number of read bases decomposed into k-mers.
func (e *Evidence) SpanLength() int {
	return e.length
}

// Bases returns the relevant span of the read.
func (e *Evidence) Bases() []byte {
	return e.Record.Seq.Expand()[e.offset : e.offset+e.length]
}

func (e *Evidence) String() string {
	return fmt.Sprintf("%s#%d(%s %d-%d)", e.Kind, e.ID, e.Record.Name, e.Start(), e.End())
}

// ByStartEnd orders evidence by span start, span end, then ID. It is a
// total order suitable for slices.SortFunc.
func ByStartEnd(a, b *Evidence) int {
	if c := cmp.Compare(a.Start(), b.Start()); c != 0 {
		return c
	}
	if c := cmp.Compare(a.End(), b.End()); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// NewSoftClip creates soft clip evidence for the clip on the dir side of
// the read. The relevant span is the aligned bases plus that clip.
func NewSoftClip(id int, rec *sam.Record, dir breakend.Direction) (*Evidence, error) {
	return newClipped(id, SoftClip, rec, dir, nil)
}

// NewSplitRead creates soft clip evidence whose clipped bases are known to
// align at remote.
func NewSplitRead(id int, rec *sam.Record, dir breakend.Direction, remote breakend.Summary) (*Evidence, error) {
	if err := remote.Validate(); err != nil {
		return nil, err
	}
	return newClipped(id, SplitRead, rec, dir, &remote)
}

func newClipped(id int, kind Kind, rec *sam.Record, dir breakend.Direction, remote *breakend.Summary) (*Evidence, error) {
	if err := checkMapped(rec); err != nil {
		return nil, err
	}
	leading, trailing := SoftClipLengths(rec)
	readLen := rec.Seq.Length
	alignStart := rec.Pos + 1

	e := &Evidence{
		ID:     id,
		Kind:   kind,
		Record: rec,
		remote: remote,
	}
	switch dir {
	case breakend.Forward:
		if trailing == 0 {
			return nil, fmt.Errorf("read %s has no trailing soft clip", rec.Name)
		}
		end := rec.End()
		e.breakend = breakend.New(rec.Ref.ID(), breakend.Forward, end, end)
		e.offset = leading
		e.length = readLen - leading
		e.spanStart = alignStart
	case breakend.Backward:
		if leading == 0 {
			return nil, fmt.Errorf("read %s has no leading soft clip", rec.Name)
		}
		e.breakend = breakend.New(rec.Ref.ID(), breakend.Backward, alignStart, alignStart)
		e.offset = 0
		e.length = readLen - trailing
		e.spanStart = alignStart - leading
	}
	return e, nil
}

// NewDiscordantPair creates read pair evidence. The breakend lies somewhere
// between the end of the read and the furthest position a concordant mate
// could have reached; remote is the corresponding mate side when known.
func NewDiscordantPair(id int, rec *sam.Record, maxFragmentSize int, remote *breakend.Summary) (*Evidence, error) {
	if err := checkMapped(rec); err != nil {
		return nil, err
	}
	if remote != nil {
		if err := remote.Validate(); err != nil {
			return nil, err
		}
	}
	leading, _ := SoftClipLengths(rec)
	e := &Evidence{
		ID:        id,
		Kind:      DiscordantPair,
		Record:    rec,
		remote:    remote,
		breakend:  PairBreakend(rec.Ref.ID(), rec.Pos+1, rec.End(), rec.Flags&sam.Reverse != 0, maxFragmentSize),
		offset:    0,
		length:    rec.Seq.Length,
		spanStart: rec.Pos + 1 - leading,
	}
	return e, nil
}

// PairBreakend returns the breakend implied by a read aligned at the
// 1-based interval [start, end] whose mate should lie within
// maxFragmentSize of it.
func PairBreakend(referenceIndex, start, end int, reverse bool, maxFragmentSize int) breakend.Summary {
	if !reverse {
		return breakend.New(referenceIndex, breakend.Forward, end, max(end, start+maxFragmentSize-1))
	}
	return breakend.New(referenceIndex, breakend.Backward, max(1, min(start, end-maxFragmentSize+1)), start)
}

// SoftClipLengths returns the soft clip lengths at either end of the read.
// Hard clips are skipped over since they carry no bases.
func SoftClipLengths(rec *sam.Record) (leading, trailing int) {
	cigar := rec.Cigar
	for _, op := range cigar {
		if op.Type() == sam.CigarHardClipped {
			continue
		}
		if op.Type() == sam.CigarSoftClipped {
			leading = op.Len()
		}
		break
	}
	for i := len(cigar) - 1; i >= 0; i-- {
		op := cigar[i]
		if op.Type() == sam.CigarHardClipped {
			continue
		}
		if op.Type() == sam.CigarSoftClipped {
			trailing = op.Len()
		}
		break
	}
	if leading+trailing > rec.Seq.Length {
		// whole read clipped; count it once
		trailing = 0
	}
	return leading, trailing
}

func checkMapped(rec *sam.Record) error {
	if rec.Ref == nil || rec.Flags&sam.Unmapped != 0 || rec.Pos < 0 {
		return fmt.Errorf("read %s is not mapped", rec.Name)
	}
	return nil
}
