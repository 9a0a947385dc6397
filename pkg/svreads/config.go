// Package svreads decides which alignment records carry structural variant
// evidence: read pair concordance, blacklisted regions and split read
// parsing.
package svreads

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConfiguration is returned for option combinations that cannot work.
var ErrConfiguration = errors.New("invalid configuration")

// ConcordanceMethod selects how read pair concordance is decided.
type ConcordanceMethod int

const (
	// SAMFlag trusts the aligner's proper pair flag.
	SAMFlag ConcordanceMethod = iota
	// Percentage derives the concordant fragment size range from an insert
	// size distribution.
	Percentage
	// Fixed uses an explicit fragment size range.
	Fixed
)

func (m ConcordanceMethod) String() string {
	switch m {
	case SAMFlag:
		return "SAM_FLAG"
	case Percentage:
		return "PERCENTAGE"
	case Fixed:
		return "FIXED"
	}
	return fmt.Sprintf("ConcordanceMethod(%d)", int(m))
}

// ParseConcordanceMethod parses SAM_FLAG, PERCENTAGE or FIXED, ignoring case.
func ParseConcordanceMethod(s string) (ConcordanceMethod, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SAM_FLAG", "SAMFLAG":
		return SAMFlag, nil
	case "PERCENTAGE":
		return Percentage, nil
	case "FIXED":
		return Fixed, nil
	}
	return 0, fmt.Errorf("%w: unknown read pair concordance method %q", ErrConfiguration, s)
}

// Config holds the read extraction options.
type Config struct {
	// MinIndelSize is the smallest CIGAR insertion or deletion that makes a
	// read worth extracting.
	MinIndelSize int
	// MinClipLength is the minimum number of clipped bases.
	MinClipLength int

	Clipped            bool
	Indels             bool
	Split              bool
	SingleMappedPaired bool
	// DiscordantReadPairs includes pairs that do not align in the expected
	// orientation within the expected fragment size range.
	DiscordantReadPairs bool
	UnmappedReads       bool

	ConcordanceMethod    ConcordanceMethod
	FixedMinFragmentSize int
	FixedMaxFragmentSize int
	// ConcordantPercent is the fraction (0,1] of pairs treated as concordant
	// under the Percentage method.
	ConcordantPercent float64
	// InsertSizeMetrics is a Picard CollectInsertSizeMetrics output file.
	// Required by the Percentage method.
	InsertSizeMetrics string

	// Blacklist lists BED files of regions excluded from extraction.
	Blacklist []string
}

// DefaultConfig returns the default extraction options.
func DefaultConfig() Config {
	return Config{
		MinIndelSize:        1,
		MinClipLength:       1,
		Clipped:             true,
		Indels:              true,
		Split:               true,
		SingleMappedPaired:  true,
		DiscordantReadPairs: true,
		UnmappedReads:       true,
		ConcordanceMethod:   SAMFlag,
		ConcordantPercent:   0.995,
	}
}

// Validate fails fast on unusable options, before any input is read.
func (c Config) Validate() error {
	if c.MinIndelSize < 1 {
		return fmt.Errorf("%w: min indel size must be >= 1", ErrConfiguration)
	}
	if c.MinClipLength < 1 {
		return fmt.Errorf("%w: min clip length must be >= 1", ErrConfiguration)
	}
	switch c.ConcordanceMethod {
	case SAMFlag:
	case Percentage:
		if c.InsertSizeMetrics == "" {
			return fmt.Errorf("%w: insert size metrics are required when using percentage based read pair concordance", ErrConfiguration)
		}
		if c.ConcordantPercent <= 0 || c.ConcordantPercent > 1 {
			return fmt.Errorf("%w: concordant percent must be within (0,1], got %v", ErrConfiguration, c.ConcordantPercent)
		}
	case Fixed:
		if c.FixedMinFragmentSize < 0 || c.FixedMaxFragmentSize < c.FixedMinFragmentSize || c.FixedMaxFragmentSize == 0 {
			return fmt.Errorf("%w: fixed fragment size range [%d,%d] is empty",
				ErrConfiguration, c.FixedMinFragmentSize, c.FixedMaxFragmentSize)
		}
	default:
		return fmt.Errorf("%w: unknown read pair concordance method %v", ErrConfiguration, c.ConcordanceMethod)
	}
	return nil
}
