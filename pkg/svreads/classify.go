package svreads

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/biogo/hts/sam"
	"github.com/grailbio/base/log"
	"github.com/scttfrdmn/breakasm-go/pkg/breakend"
	"github.com/scttfrdmn/breakasm-go/pkg/evidence"
)

var saTag = sam.NewTag("SA")

// SupplementaryAlignment is one entry of an SA tag.
type SupplementaryAlignment struct {
	Ref     string
	Pos     int // 1-based
	Reverse bool
	Cigar   sam.Cigar
	MapQ    int
	NM      int
}

// End returns the 1-based position of the last aligned reference base.
func (sa SupplementaryAlignment) End() int {
	ref, _ := sa.Cigar.Lengths()
	return sa.Pos + max(ref, 1) - 1
}

// ParseSA parses an SA tag value: rname,pos,strand,CIGAR,mapQ,NM; ...
func ParseSA(value string) ([]SupplementaryAlignment, error) {
	var out []SupplementaryAlignment
	for _, entry := range strings.Split(value, ";") {
		if entry == "" {
			continue
		}
		f := strings.Split(entry, ",")
		if len(f) != 6 {
			return nil, fmt.Errorf("malformed SA entry %q", entry)
		}
		pos, err := strconv.Atoi(f[1])
		if err != nil {
			return nil, fmt.Errorf("bad SA position %q: %w", f[1], err)
		}
		if f[2] != "+" && f[2] != "-" {
			return nil, fmt.Errorf("bad SA strand %q", f[2])
		}
		cigar, err := sam.ParseCigar([]byte(f[3]))
		if err != nil {
			return nil, fmt.Errorf("bad SA cigar %q: %w", f[3], err)
		}
		mapq, err := strconv.Atoi(f[4])
		if err != nil {
			return nil, fmt.Errorf("bad SA mapq %q: %w", f[4], err)
		}
		nm, err := strconv.Atoi(f[5])
		if err != nil {
			return nil, fmt.Errorf("bad SA NM %q: %w", f[5], err)
		}
		out = append(out, SupplementaryAlignment{
			Ref:     f[0],
			Pos:     pos,
			Reverse: f[2] == "-",
			Cigar:   cigar,
			MapQ:    mapq,
			NM:      nm,
		})
	}
	return out, nil
}

// SupplementaryAlignments returns the parsed SA tag of rec, if any.
func SupplementaryAlignments(rec *sam.Record) ([]SupplementaryAlignment, error) {
	aux := rec.AuxFields.Get(saTag)
	if aux == nil {
		return nil, nil
	}
	value, ok := aux.Value().(string)
	if !ok {
		return nil, fmt.Errorf("SA tag of %s is not a string", rec.Name)
	}
	return ParseSA(value)
}

// SplitRemote returns the breakend at which the bases clipped on the dir
// side of a read aligned on the reverse strand (or not) continue.
func SplitRemote(referenceIndex int, sa SupplementaryAlignment, dir breakend.Direction, reverse bool) breakend.Summary {
	remoteDir := dir.Opposite()
	if sa.Reverse != reverse {
		remoteDir = dir
	}
	pos := sa.Pos
	if remoteDir == breakend.Forward {
		pos = sa.End()
	}
	return breakend.New(referenceIndex, remoteDir, pos, pos)
}

// Counts summarises what a Classifier has seen.
type Counts struct {
	Records        int
	Skipped        int
	Blacklisted    int
	SoftClip       int
	SplitRead      int
	DiscordantPair int
}

// Evidence returns the total evidence produced.
func (c Counts) Evidence() int {
	return c.SoftClip + c.SplitRead + c.DiscordantPair
}

// Add accumulates o into c.
func (c *Counts) Add(o Counts) {
	c.Records += o.Records
	c.Skipped += o.Skipped
	c.Blacklisted += o.Blacklisted
	c.SoftClip += o.SoftClip
	c.SplitRead += o.SplitRead
	c.DiscordantPair += o.DiscordantPair
}

// Classifier turns records into evidence. It numbers evidence from zero and
// is used by one region worker at a time.
type Classifier struct {
	res    *Resources
	refs   map[string]int
	nextID int
	counts Counts
}

// NewClassifier creates a classifier over shared resources.
func NewClassifier(res *Resources) *Classifier {
	refs := make(map[string]int)
	if res.Header != nil {
		for _, ref := range res.Header.Refs() {
			refs[ref.Name()] = ref.ID()
		}
	}
	return &Classifier{res: res, refs: refs}
}

// Counts returns the running totals.
func (c *Classifier) Counts() Counts {
	return c.counts
}

func skipped(rec *sam.Record) bool {
	return rec.Ref == nil ||
		rec.Flags&(sam.Unmapped|sam.Secondary|sam.Supplementary|sam.Duplicate|sam.QCFail) != 0
}

// Evidence classifies one record. A record can support several breakends,
// one per clipped side plus one for its pairing.
func (c *Classifier) Evidence(rec *sam.Record) []*evidence.Evidence {
	c.counts.Records++
	if skipped(rec) {
		c.counts.Skipped++
		return nil
	}
	if c.res.InvolvesBlacklistedRegion([]*sam.Record{rec}) {
		c.counts.Blacklisted++
		return nil
	}
	cfg := c.res.Config
	var out []*evidence.Evidence
	add := func(e *evidence.Evidence, err error) {
		if err != nil {
			log.Debug.Printf("record %s: %v", rec.Name, err)
			return
		}
		c.nextID++
		switch e.Kind {
		case evidence.SoftClip:
			c.counts.SoftClip++
		case evidence.SplitRead:
			c.counts.SplitRead++
		case evidence.DiscordantPair:
			c.counts.DiscordantPair++
		}
		out = append(out, e)
	}

	leading, trailing := evidence.SoftClipLengths(rec)
	splitSide := breakend.Direction(-1)
	if cfg.Split && max(leading, trailing) >= cfg.MinClipLength {
		if remote, side, ok := c.splitRemote(rec, leading, trailing); ok {
			splitSide = side
			add(evidence.NewSplitRead(c.nextID, rec, side, remote))
		}
	}
	if cfg.Clipped {
		if trailing >= cfg.MinClipLength && splitSide != breakend.Forward {
			add(evidence.NewSoftClip(c.nextID, rec, breakend.Forward))
		}
		if leading >= cfg.MinClipLength && splitSide != breakend.Backward {
			add(evidence.NewSoftClip(c.nextID, rec, breakend.Backward))
		}
	}

	if rec.Flags&sam.Paired != 0 {
		maxFragment := c.res.Concordance.MaxConcordantFragmentSize()
		switch {
		case rec.Flags&sam.MateUnmapped != 0 || rec.MateRef == nil:
			if cfg.SingleMappedPaired {
				add(evidence.NewDiscordantPair(c.nextID, rec, maxFragment, nil))
			}
		case cfg.DiscordantReadPairs && !c.res.Concordance.IsConcordant(rec):
			mateStart := rec.MatePos + 1
			mate := evidence.PairBreakend(rec.MateRef.ID(), mateStart, mateStart+rec.Seq.Length-1,
				rec.Flags&sam.MateReverse != 0, maxFragment)
			add(evidence.NewDiscordantPair(c.nextID, rec, maxFragment, &mate))
		}
	}
	return out
}

// splitRemote picks the SA entry for the longer clip of rec.
func (c *Classifier) splitRemote(rec *sam.Record, leading, trailing int) (breakend.Summary, breakend.Direction, bool) {
	alignments, err := SupplementaryAlignments(rec)
	if err != nil {
		log.Debug.Printf("record %s: %v", rec.Name, err)
		return breakend.Summary{}, 0, false
	}
	side := breakend.Forward
	if leading > trailing {
		side = breakend.Backward
	}
	for _, sa := range alignments {
		ref, ok := c.refs[sa.Ref]
		if !ok {
			continue
		}
		return SplitRemote(ref, sa, side, rec.Flags&sam.Reverse != 0), side, true
	}
	return breakend.Summary{}, 0, false
}

// IsSVRead reports whether rec should be extracted as potential structural
// variant support under the configured read categories.
func (r *Resources) IsSVRead(rec *sam.Record) bool {
	cfg := r.Config
	unmapped := rec.Flags&sam.Unmapped != 0 || rec.Ref == nil
	paired := rec.Flags&sam.Paired != 0
	mateUnmapped := rec.Flags&sam.MateUnmapped != 0

	if unmapped {
		return cfg.UnmappedReads || (cfg.SingleMappedPaired && paired && !mateUnmapped)
	}
	if cfg.SingleMappedPaired && paired && mateUnmapped {
		return true
	}
	if cfg.DiscordantReadPairs && paired && !mateUnmapped && !r.Concordance.IsConcordant(rec) {
		return true
	}
	if cfg.Split && rec.AuxFields.Get(saTag) != nil {
		return true
	}
	if cfg.Clipped {
		start, end := UnclippedBounds(rec)
		if max(rec.Pos+1-start, end-rec.End()) >= cfg.MinClipLength {
			return true
		}
	}
	if cfg.Indels {
		for _, op := range rec.Cigar {
			t := op.Type()
			if (t == sam.CigarInsertion || t == sam.CigarDeletion) && op.Len() >= cfg.MinIndelSize {
				return true
			}
		}
	}
	return false
}
