// Package caller runs the per-region structural variant pipeline: classify
// reads into evidence, assemble the positional k-mer graph, turn contigs into
// calls and filter them. Regions are independent and run on a worker pool.
package caller

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/scttfrdmn/breakasm-go/pkg/calling"
	"github.com/scttfrdmn/breakasm-go/pkg/kmer"
	"github.com/scttfrdmn/breakasm-go/pkg/svreads"
)

// Config holds the full set of options for a calling run.
type Config struct {
	// Resource allocation
	Workers int // Number of region workers (default: performance cores)

	// Assembly
	K int // k-mer length, 1..32 (default: 25)
	// MaxSupportSpan is the merge stream lookahead in bases. Larger values
	// buffer more nodes; ordering holds for any non-negative value.
	MaxSupportSpan int
	// Window is how far behind the frontier a graph node may last have been
	// extended before it is retired. Raised to K+1 if smaller.
	Window int
	// MinContigWeight is the minimum node weight usable in a contig.
	MinContigWeight int

	Reads   svreads.Config
	Calling calling.Params

	// Progress reporting
	ShowProgress     bool          // Print a progress line (default: true)
	ProgressInterval time.Duration // Progress update interval (default: 1s)

	availableMemory int64
}

// NewConfig creates a Config with smart defaults.
func NewConfig() *Config {
	memStats := getSystemMemory()
	return &Config{
		Workers:          detectOptimalWorkers(),
		K:                25,
		MaxSupportSpan:   1000,
		Window:           1000,
		MinContigWeight:  1,
		Reads:            svreads.DefaultConfig(),
		Calling:          calling.DefaultParams(),
		ShowProgress:     true,
		ProgressInterval: 1 * time.Second,
		availableMemory:  memStats.Available,
	}
}

// Validate checks configuration and warns about potential issues.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1")
	}
	if c.Workers > 64 {
		fmt.Fprintf(os.Stderr, "Warning: Workers > 64 may cause diminishing returns\n")
	}
	if need, ok := c.fitsMemory(); !ok {
		fmt.Fprintf(os.Stderr, "Warning: %d workers may need %s but only %s is available\n",
			c.Workers, humanize.IBytes(uint64(need)), humanize.IBytes(uint64(c.availableMemory)))
	}
	if c.K < 1 || c.K > kmer.MaxK {
		return fmt.Errorf("k must be between 1 and %d, got %d", kmer.MaxK, c.K)
	}
	if c.MaxSupportSpan < 0 {
		return fmt.Errorf("max support span must be >= 0")
	}
	if c.Window < 0 {
		return fmt.Errorf("window must be >= 0")
	}
	if c.Window < c.K+1 {
		fmt.Fprintf(os.Stderr, "Warning: window %d raised to k+1 = %d\n", c.Window, c.K+1)
	}
	if c.MinContigWeight < 0 {
		return fmt.Errorf("min contig weight must be >= 0")
	}
	if err := c.Reads.Validate(); err != nil {
		return err
	}
	if err := c.Calling.Validate(); err != nil {
		return fmt.Errorf("invalid calling parameters: %w", err)
	}
	if c.ProgressInterval <= 0 {
		c.ProgressInterval = 1 * time.Second
	}
	return nil
}

// fitsMemory estimates the memory the workers need and reports whether the
// memory available at startup covers it. Unknown availability always fits.
func (c *Config) fitsMemory() (int64, bool) {
	need := int64(c.Workers) * workerMemory
	return need, c.availableMemory <= 0 || need <= c.availableMemory
}

// ShowConfig prints the effective configuration.
func (c *Config) ShowConfig() {
	memStats := getSystemMemory()

	fmt.Fprintf(os.Stderr, "System Information:\n")
	fmt.Fprintf(os.Stderr, "  Total RAM: %s\n", humanize.IBytes(uint64(memStats.Total)))
	fmt.Fprintf(os.Stderr, "  Available RAM: %s (%s in use)\n",
		humanize.IBytes(uint64(memStats.Available)), humanize.IBytes(uint64(memStats.Used)))
	totalCores := runtime.NumCPU()
	optimalWorkers := detectOptimalWorkers()
	if optimalWorkers < totalCores {
		fmt.Fprintf(os.Stderr, "  CPU cores: %d total (%d performance, %d efficiency)\n",
			totalCores, optimalWorkers, totalCores-optimalWorkers)
	} else {
		fmt.Fprintf(os.Stderr, "  CPU cores: %d\n", totalCores)
	}
	fmt.Fprintf(os.Stderr, "\n")

	fmt.Fprintf(os.Stderr, "Configuration:\n")
	fmt.Fprintf(os.Stderr, "  Workers: %d\n", c.Workers)
	fmt.Fprintf(os.Stderr, "  k: %d, lookahead: %d bp, window: %d bp\n", c.K, c.MaxSupportSpan, max(c.Window, c.K+1))
	fmt.Fprintf(os.Stderr, "  Min contig weight: %d\n", c.MinContigWeight)
	fmt.Fprintf(os.Stderr, "  Concordance: %s\n", c.Reads.ConcordanceMethod)
	if len(c.Reads.Blacklist) > 0 {
		fmt.Fprintf(os.Stderr, "  Blacklist: %v\n", c.Reads.Blacklist)
	}
	fmt.Fprintf(os.Stderr, "  Min score: %g, min support: %d, min indel: %d bp, margin: %d bp\n",
		c.Calling.MinScore, c.Calling.MinSupport, c.Calling.MinIndelSize, c.Calling.BreakendMargin)
	if c.Calling.CallOnlyAssemblies {
		fmt.Fprintf(os.Stderr, "  Calls: assemblies only\n")
	}
	if !c.Calling.WriteFilteredCalls {
		fmt.Fprintf(os.Stderr, "  Filtered calls: dropped\n")
	}
	fmt.Fprintf(os.Stderr, "\n")
}

// Constants
const (
	KB = 1024
	MB = 1024 * KB
	GB = 1024 * MB

	// workerMemory is a rough working set per region worker: the graph,
	// the merge buffer and the evidence of one contig.
	workerMemory = 512 * MB
)

// SystemMemory holds system memory information
type SystemMemory struct {
	Total     int64
	Available int64
	Used      int64
}

// getSystemMemory returns system memory stats, falling back to 16GB/12GB
// when detection fails.
func getSystemMemory() SystemMemory {
	total, available := detectSystemMemory()
	if total == 0 {
		total = 16 * GB
		available = 12 * GB
	}
	return SystemMemory{
		Total:     total,
		Available: available,
		Used:      total - available,
	}
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
