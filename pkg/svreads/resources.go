package svreads

import (
	"fmt"
	"os"

	"github.com/biogo/hts/sam"
	"github.com/grailbio/base/log"
	"github.com/scttfrdmn/breakasm-go/pkg/breakend"
)

// Resources are the read-only collaborators shared by every region worker.
// They are built once, up front, by NewResources.
type Resources struct {
	Config      Config
	Header      *sam.Header
	Dictionary  breakend.Dictionary
	Concordance Concordance
	Blacklist   *Blacklist
	Metrics     *InsertSizeMetrics
}

// NewResources validates cfg and loads the insert size metrics and
// blacklists it names. A missing metrics file is only fatal when the
// concordance method needs it.
func NewResources(cfg Config, header *sam.Header) (*Resources, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var metrics *InsertSizeMetrics
	if cfg.InsertSizeMetrics != "" {
		if _, err := os.Stat(cfg.InsertSizeMetrics); err != nil {
			log.Error.Printf("missing %s", cfg.InsertSizeMetrics)
		} else {
			metrics, err = ReadInsertSizeMetricsFile(cfg.InsertSizeMetrics)
			if err != nil {
				return nil, err
			}
		}
	}

	concordance, err := NewConcordance(cfg, metrics)
	if err != nil {
		return nil, err
	}

	blacklist, err := LoadBlacklist(header, cfg.Blacklist...)
	if err != nil {
		return nil, fmt.Errorf("failed to load blacklist: %w", err)
	}

	return &Resources{
		Config:      cfg,
		Header:      header,
		Dictionary:  breakend.HeaderDictionary{Header: header},
		Concordance: concordance,
		Blacklist:   blacklist,
		Metrics:     metrics,
	}, nil
}

// InvolvesBlacklistedRegion reports whether any alignment of a fragment, or
// any breakend position its pairing could imply, overlaps the blacklist.
// records must all come from the same fragment.
func (r *Resources) InvolvesBlacklistedRegion(records []*sam.Record) bool {
	if len(records) == 0 || r.Blacklist.Len() == 0 {
		return false
	}
	maxFragment := r.Concordance.MaxConcordantFragmentSize()
	for _, rec := range records {
		if rec.Flags&sam.Unmapped != 0 || rec.Ref == nil {
			continue
		}
		readLength := rec.Seq.Length
		uStart, uEnd := UnclippedBounds(rec)
		start := min(uStart, uEnd-readLength+1)
		end := max(uEnd, uStart+readLength-1)
		if rec.Flags&sam.Paired != 0 {
			first := rec.Flags&sam.Read1 != 0
			second := rec.Flags&sam.Read2 != 0
			reverse := rec.Flags&sam.Reverse != 0
			// extend toward where the mate should be
			if (first && !reverse) || (second && reverse) {
				end += maxFragment - readLength
			}
			if (first && reverse) || (second && !reverse) {
				start -= maxFragment - readLength
			}
		}
		if r.Blacklist.Overlaps(rec.Ref.ID(), start, end) {
			return true
		}
	}
	return false
}

// UnclippedBounds returns the 1-based alignment start and end extended by
// any soft or hard clipping.
func UnclippedBounds(rec *sam.Record) (start, end int) {
	start = rec.Pos + 1
	end = rec.End()
	for _, op := range rec.Cigar {
		t := op.Type()
		if t != sam.CigarSoftClipped && t != sam.CigarHardClipped {
			break
		}
		start -= op.Len()
	}
	for i := len(rec.Cigar) - 1; i >= 0; i-- {
		t := rec.Cigar[i].Type()
		if t != sam.CigarSoftClipped && t != sam.CigarHardClipped {
			break
		}
		end += rec.Cigar[i].Len()
	}
	return start, end
}
