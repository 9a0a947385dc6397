package svreads

import (
	"fmt"
	"os"

	"github.com/biogo/hts/sam"
	"github.com/grailbio/base/log"
	"github.com/vertgenlab/gonomics/bed"
	"github.com/vertgenlab/gonomics/interval"
)

// Blacklist answers overlap queries against a set of excluded regions held
// in a per-contig interval tree. It is immutable after construction and
// safe to share.
type Blacklist struct {
	tree    map[string]*interval.IntervalNode
	names   []string // contig name by reference index
	regions int
}

// NewBlacklist builds a blacklist from BED records. BED coordinates are
// 0-based half-open; contigs missing from header and empty records are
// skipped.
func NewBlacklist(header *sam.Header, regions []bed.Bed) *Blacklist {
	bl := &Blacklist{}
	known := make(map[string]bool)
	if header != nil {
		for _, ref := range header.Refs() {
			bl.names = append(bl.names, ref.Name())
			known[ref.Name()] = true
		}
	}
	var kept []interval.Interval
	unknown := make(map[string]bool)
	for i := range regions {
		b := regions[i]
		if !known[b.Chrom] {
			if !unknown[b.Chrom] {
				log.Printf("blacklist contig %s not in sequence dictionary, ignoring", b.Chrom)
				unknown[b.Chrom] = true
			}
			continue
		}
		if b.ChromEnd <= b.ChromStart {
			continue
		}
		kept = append(kept, &b)
	}
	bl.regions = len(kept)
	if len(kept) > 0 {
		bl.tree = interval.BuildTree(kept)
	}
	return bl
}

// LoadBlacklist reads BED files into one blacklist. Files that do not exist are
// logged and skipped, leaving an empty blacklist if none remain.
func LoadBlacklist(header *sam.Header, paths ...string) (*Blacklist, error) {
	var regions []bed.Bed
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			log.Error.Printf("missing blacklist %s: %v", path, err)
			continue
		}
		records, err := readBed(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read blacklist %s: %w", path, err)
		}
		regions = append(regions, records...)
	}
	return NewBlacklist(header, regions), nil
}

// readBed converts the panics of the gonomics reader into an error.
func readBed(path string) (records []bed.Bed, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return bed.Read(path), nil
}

// Overlaps reports whether [start, end] (1-based, inclusive) on the given
// contig touches any blacklisted region.
func (bl *Blacklist) Overlaps(referenceIndex, start, end int) bool {
	if bl == nil || bl.tree == nil || referenceIndex < 0 || referenceIndex >= len(bl.names) {
		return false
	}
	chrom := bl.names[referenceIndex]
	if bl.tree[chrom] == nil {
		return false
	}
	q := &bed.Bed{Chrom: chrom, ChromStart: start - 1, ChromEnd: end}
	return len(interval.Query(bl.tree, q, "any")) > 0
}

// Len returns the number of blacklisted regions.
func (bl *Blacklist) Len() int {
	if bl == nil {
		return 0
	}
	return bl.regions
}
