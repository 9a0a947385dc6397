package svreads

import (
	"fmt"

	"github.com/biogo/hts/sam"
)

// DefaultMaxFragmentSize bounds the breakend interval of a discordant pair
// when the SAM flag method has no insert size distribution to go by.
const DefaultMaxFragmentSize = 1000

// Concordance decides whether a read pair aligned as expected.
type Concordance interface {
	// IsConcordant reports whether rec and its mate are a concordant pair.
	// Unpaired reads and pairs with an unmapped side are never concordant.
	IsConcordant(rec *sam.Record) bool
	// MaxConcordantFragmentSize is the largest fragment size still
	// considered concordant.
	MaxConcordantFragmentSize() int
	Method() ConcordanceMethod
}

// NewConcordance builds the calculator selected by cfg. metrics may be nil
// unless the method is Percentage.
func NewConcordance(cfg Config, metrics *InsertSizeMetrics) (Concordance, error) {
	switch cfg.ConcordanceMethod {
	case SAMFlag:
		maxSize := DefaultMaxFragmentSize
		if metrics != nil {
			maxSize = metrics.InverseCumulative((1 + cfg.ConcordantPercent) / 2)
		}
		return samFlagConcordance{maxFragmentSize: maxSize}, nil
	case Fixed:
		return FixedConcordance{
			MinFragmentSize: cfg.FixedMinFragmentSize,
			MaxFragmentSize: cfg.FixedMaxFragmentSize,
		}, nil
	case Percentage:
		if metrics == nil {
			return nil, fmt.Errorf("%w: percentage based read pair concordance requires insert size metrics", ErrConfiguration)
		}
		tail := (1 - cfg.ConcordantPercent) / 2
		return percentageConcordance{
			FixedConcordance: FixedConcordance{
				MinFragmentSize: metrics.InverseCumulative(tail),
				MaxFragmentSize: metrics.InverseCumulative(1 - tail),
			},
		}, nil
	}
	return nil, fmt.Errorf("%w: unknown read pair concordance method %v", ErrConfiguration, cfg.ConcordanceMethod)
}

func bothMapped(rec *sam.Record) bool {
	return rec.Flags&sam.Paired != 0 &&
		rec.Flags&(sam.Unmapped|sam.MateUnmapped) == 0 &&
		rec.Ref != nil && rec.MateRef != nil
}

type samFlagConcordance struct {
	maxFragmentSize int
}

func (c samFlagConcordance) IsConcordant(rec *sam.Record) bool {
	return bothMapped(rec) && rec.Flags&sam.ProperPair != 0
}

func (c samFlagConcordance) MaxConcordantFragmentSize() int { return c.maxFragmentSize }

func (c samFlagConcordance) Method() ConcordanceMethod { return SAMFlag }

// FixedConcordance treats forward-reverse pairs on one contig with a
// fragment size within [MinFragmentSize, MaxFragmentSize] as concordant.
type FixedConcordance struct {
	MinFragmentSize int
	MaxFragmentSize int
}

func (c FixedConcordance) IsConcordant(rec *sam.Record) bool {
	if !bothMapped(rec) || rec.Ref.ID() != rec.MateRef.ID() {
		return false
	}
	if !c.IsConcordantSize(FragmentSize(rec)) {
		return false
	}
	return pointsInward(rec)
}

// IsConcordantSize reports whether size lies in the concordant range.
func (c FixedConcordance) IsConcordantSize(size int) bool {
	return c.MinFragmentSize <= size && size <= c.MaxFragmentSize
}

func (c FixedConcordance) MaxConcordantFragmentSize() int { return c.MaxFragmentSize }

func (c FixedConcordance) Method() ConcordanceMethod { return Fixed }

type percentageConcordance struct {
	FixedConcordance
}

func (c percentageConcordance) Method() ConcordanceMethod { return Percentage }

// FragmentSize returns the absolute template length, falling back to the
// span from the leftmost read start to the rightmost possible mate end when
// the aligner left it unset.
func FragmentSize(rec *sam.Record) int {
	if rec.TempLen != 0 {
		if rec.TempLen < 0 {
			return -rec.TempLen
		}
		return rec.TempLen
	}
	lo := min(rec.Pos, rec.MatePos)
	hi := max(rec.End(), rec.MatePos+rec.Seq.Length)
	return hi - lo
}

// pointsInward reports whether the pair has forward-reverse orientation:
// the leftmost read on the forward strand and its mate on the reverse.
func pointsInward(rec *sam.Record) bool {
	reverse := rec.Flags&sam.Reverse != 0
	mateReverse := rec.Flags&sam.MateReverse != 0
	if reverse == mateReverse {
		return false
	}
	if rec.Pos == rec.MatePos {
		return true
	}
	if rec.Pos < rec.MatePos {
		return !reverse
	}
	return reverse
}
