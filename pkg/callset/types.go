// Package callset stores structural variant calls as a dataset of per-contig
// call files with a JSON metadata document and contig index, on the local
// filesystem or S3.
//
// Layout:
//
//	_metadata.json
//	_index/contigs.json
//	calls/<contig>.calls
package callset

import (
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/scttfrdmn/breakasm-go/pkg/calling"
)

const (
	// FormatName identifies call set datasets.
	FormatName = "breakasm-calls"
	// FormatVersion is the layout version written by this package.
	FormatVersion = "0.1.0"

	metadataPath = "_metadata.json"
	indexPath    = "_index/contigs.json"
	callsDir     = "calls"
)

// Metadata describes a call set.
type Metadata struct {
	Format      string            `json:"format"`
	Version     string            `json:"version"`
	Created     time.Time         `json:"created"`
	CreatedBy   string            `json:"created_by"`
	Source      Source            `json:"source"`
	Assembly    AssemblyConfig    `json:"assembly"`
	Calling     calling.Params    `json:"calling"`
	Statistics  Statistics        `json:"statistics"`
	Contigs     []ContigInfo      `json:"contigs"`
	Compression CompressionConfig `json:"compression"`
}

// Source describes the alignments the calls were made from.
type Source struct {
	File   string `json:"file"`
	Format string `json:"format"`
}

// AssemblyConfig records the assembly options of the run.
type AssemblyConfig struct {
	K               int `json:"k"`
	MaxSupportSpan  int `json:"max_support_span"`
	Window          int `json:"window"`
	MinContigWeight int `json:"min_contig_weight"`
}

// Statistics summarises the calls in the dataset.
type Statistics struct {
	TotalCalls    int            `json:"total_calls"`
	PassingCalls  int            `json:"passing_calls"`
	FilteredCalls int            `json:"filtered_calls"`
	Breakpoints   int            `json:"breakpoints"`
	Assembled     int            `json:"assembled"`
	Somatic       int            `json:"somatic"`
	Filters       map[string]int `json:"filters,omitempty"`
}

// Add counts call.
func (s *Statistics) Add(call calling.Call) {
	s.TotalCalls++
	if call.IsFiltered() {
		s.FilteredCalls++
	} else {
		s.PassingCalls++
	}
	if call.IsBreakpoint() {
		s.Breakpoints++
	}
	if call.Assembly != "" {
		s.Assembled++
	}
	if call.Somatic {
		s.Somatic++
	}
	for _, f := range call.Filters {
		if s.Filters == nil {
			s.Filters = make(map[string]int)
		}
		s.Filters[string(f)]++
	}
}

// ContigInfo describes the call file of one contig.
type ContigInfo struct {
	Path           string    `json:"path"`
	Reference      string    `json:"reference"`
	ReferenceIndex int       `json:"reference_index"`
	Length         int       `json:"length"`
	Calls          int       `json:"calls"`
	Start          int       `json:"start"` // first call breakend start
	End            int       `json:"end"`   // last call breakend end
	SizeBytes      int64     `json:"size_bytes"`
	Compression    string    `json:"compression"`
	Checksum       string    `json:"checksum"`
	Created        time.Time `json:"created"`
}

// CompressionConfig describes compression settings.
type CompressionConfig struct {
	Algorithm string `json:"algorithm"`
	Level     int    `json:"level,omitempty"`
}

// Index maps contig names to their call files.
type Index struct {
	References map[string]ContigInfo `json:"references"`
}

// Region is a 1-based inclusive genomic interval query.
type Region struct {
	Reference string
	Start     int
	End       int
}

// ParseRegion parses "chr", "chr:start" or "chr:start-end".
func ParseRegion(s string) (Region, error) {
	name, span, found := strings.Cut(s, ":")
	if name == "" {
		return Region{}, fmt.Errorf("invalid region %q: missing contig", s)
	}
	region := Region{Reference: name, Start: 1, End: int(^uint(0) >> 1)}
	if !found {
		return region, nil
	}
	from, to, ranged := strings.Cut(strings.ReplaceAll(span, ",", ""), "-")
	start, err := strconv.Atoi(from)
	if err != nil {
		return Region{}, fmt.Errorf("invalid start position in %q: %w", s, err)
	}
	region.Start = start
	if ranged {
		end, err := strconv.Atoi(to)
		if err != nil {
			return Region{}, fmt.Errorf("invalid end position in %q: %w", s, err)
		}
		region.End = end
	}
	if region.Start < 1 || region.End < region.Start {
		return Region{}, fmt.Errorf("invalid region %q: empty interval", s)
	}
	return region, nil
}

// Contains reports whether call's breakend touches the region.
func (r Region) Contains(call calling.Call) bool {
	return call.Breakend.Start <= r.End && r.Start <= call.Breakend.End
}

// contigPath returns the call file of a contig. Path separators in contig
// names are replaced so every contig maps to one file.
func contigPath(name string) string {
	return path.Join(callsDir, strings.ReplaceAll(name, "/", "_")+".calls")
}
