package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/scttfrdmn/breakasm-go/pkg/bam"
	"github.com/scttfrdmn/breakasm-go/pkg/caller"
	"github.com/scttfrdmn/breakasm-go/pkg/callset"
	"github.com/scttfrdmn/breakasm-go/pkg/svreads"
	"github.com/spf13/cobra"
)

var (
	callCfg = caller.NewConfig()

	concordance string
	contigs     []string
	compression string
	level       int
	showConfig  bool
	s3Region    string
	partSizeStr string
	s3Uploaders int
	bgzfReaders int
)

var callCmd = &cobra.Command{
	Use:   "call <input.bam> <output>",
	Short: "Assemble breakends and call structural variants",
	Long: `Assemble structural variant breakends from an alignment file and write
the calls to a call set dataset.

Every contig is an independent region. Regions are classified into
evidence, assembled and called on a pool of workers; the per-region calls
are merged into one sorted call set.

Output:
  A local directory or an s3:// URI. Call files are written per contig
  and described by _metadata.json and _index/contigs.json.

Smart Defaults:
  Workers: Auto-detected performance cores
  All settings can be overridden with flags

Examples:
  # Call with defaults
  breakasm call sample.bam sample.calls

  # Only chromosomes 1 and 2, assemblies only, no filtered calls
  breakasm call sample.bam sample.calls --contig chr1 --contig chr2 \
    --assemblies-only --write-filtered=false

  # Percentage based concordance and a blacklist, written to S3
  breakasm call sample.bam s3://bucket/sample.calls \
    --concordance percentage --insert-size-metrics sample.insert_size_metrics \
    --blacklist encode.blacklist.bed

  # Show effective configuration
  breakasm call --show-config sample.bam sample.calls`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		input, output := args[0], args[1]

		method, err := svreads.ParseConcordanceMethod(concordance)
		if err != nil {
			return err
		}
		callCfg.Reads.ConcordanceMethod = method
		if err := callCfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		if showConfig {
			callCfg.ShowConfig()
			return nil
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		storage, err := outputStorage(cmd, output)
		if err != nil {
			return err
		}
		writer, err := callset.NewStorageWriter(storage, compression, level)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "Loading %s...\n", input)
		header, regions, err := bam.LoadRegions(input, bgzfReaders, contigs...)
		if err != nil {
			return err
		}
		res, err := svreads.NewResources(callCfg.Reads, header)
		if err != nil {
			return err
		}

		pc := caller.NewParallelCaller(ctx, callCfg, res)
		pc.Start()
		for i, region := range regions {
			if err := pc.Submit(region, i); err != nil {
				// Finalize reports the same failure; it is called to stop the workers
				_, _ = pc.Finalize()
				return err
			}
		}
		run, err := pc.Finalize()
		if err != nil {
			return err
		}

		writer.SetHeader(header)
		writer.SetSource(callset.Source{File: input, Format: sourceFormat(input)})
		writer.SetAssembly(callset.AssemblyConfig{
			K:               callCfg.K,
			MaxSupportSpan:  callCfg.MaxSupportSpan,
			Window:          max(callCfg.Window, callCfg.K+1),
			MinContigWeight: callCfg.MinContigWeight,
		})
		writer.SetCalling(callCfg.Calling)
		refs := header.Refs()
		if err := writer.WriteCalls(run.Calls, func(ref int) string { return refs[ref].Name() }); err != nil {
			return err
		}
		if err := writer.Finalize(); err != nil {
			return err
		}

		run.PrintSummary()
		stats := writer.Statistics()
		fmt.Fprintf(os.Stderr, "  Passing calls: %d, breakpoints: %d, assembled: %d\n",
			stats.PassingCalls, stats.Breakpoints, stats.Assembled)
		fmt.Fprintf(os.Stderr, "  Output: %s\n", writer.Path())
		if s3, ok := storage.(*callset.S3Storage); ok {
			fmt.Fprintf(os.Stderr, "  Uploaded: %s\n", humanize.IBytes(uint64(s3.Uploaded())))
		}
		return nil
	},
}

// outputStorage opens the dataset backend, applying the S3 flags to s3://
// outputs.
func outputStorage(cmd *cobra.Command, output string) (callset.Storage, error) {
	if !callset.IsS3URI(output) {
		return callset.NewLocalStorage(output), nil
	}
	opts := callset.S3Options{Region: s3Region, Concurrency: s3Uploaders}
	if partSizeStr != "" {
		size, err := humanize.ParseBytes(partSizeStr)
		if err != nil {
			return nil, fmt.Errorf("invalid part size: %w", err)
		}
		opts.PartSize = int64(size)
	}
	storage, err := callset.NewS3Storage(cmd.Context(), output, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage backend: %w", err)
	}
	return storage, nil
}

func sourceFormat(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".sam") {
		return "SAM"
	}
	return "BAM"
}

func init() {
	f := callCmd.Flags()

	// Resources
	f.IntVar(&callCfg.Workers, "workers", callCfg.Workers,
		"Number of region workers (default: auto-detected performance cores)")
	f.IntVar(&bgzfReaders, "bgzf-readers", 0,
		"BGZF decompression goroutines (0 = auto)")
	f.BoolVar(&showConfig, "show-config", false,
		"Show effective configuration and exit")
	f.BoolVar(&callCfg.ShowProgress, "progress", true,
		"Show a progress line on stderr")

	// Assembly
	f.IntVarP(&callCfg.K, "kmer", "k", callCfg.K,
		"k-mer length (1-32)")
	f.IntVar(&callCfg.MaxSupportSpan, "max-support-span", callCfg.MaxSupportSpan,
		"Evidence lookahead in bases when merging k-mer nodes")
	f.IntVar(&callCfg.Window, "window", callCfg.Window,
		"Retire graph nodes this far behind the current position (min k+1)")
	f.IntVar(&callCfg.MinContigWeight, "min-contig-weight", callCfg.MinContigWeight,
		"Minimum node weight used in a contig")
	f.StringSliceVar(&contigs, "contig", nil,
		"Only call these contigs (repeatable)")

	// Read extraction
	f.IntVar(&callCfg.Reads.MinClipLength, "min-clip-length", callCfg.Reads.MinClipLength,
		"Minimum soft clip length for clipped read evidence")
	f.IntVar(&callCfg.Reads.MinIndelSize, "min-read-indel", callCfg.Reads.MinIndelSize,
		"Minimum CIGAR indel length for indel reads")
	f.BoolVar(&callCfg.Reads.Clipped, "clipped", callCfg.Reads.Clipped,
		"Use soft clipped reads")
	f.BoolVar(&callCfg.Reads.Indels, "indels", callCfg.Reads.Indels,
		"Use reads containing indels")
	f.BoolVar(&callCfg.Reads.Split, "split", callCfg.Reads.Split,
		"Use split reads (SA tag)")
	f.BoolVar(&callCfg.Reads.SingleMappedPaired, "single-mapped", callCfg.Reads.SingleMappedPaired,
		"Use pairs with one unmapped read")
	f.BoolVar(&callCfg.Reads.DiscordantReadPairs, "discordant", callCfg.Reads.DiscordantReadPairs,
		"Use discordant read pairs")
	f.BoolVar(&callCfg.Reads.UnmappedReads, "unmapped", callCfg.Reads.UnmappedReads,
		"Extract unmapped reads")
	f.StringVar(&concordance, "concordance", "sam_flag",
		"Read pair concordance: sam_flag, fixed, percentage")
	f.IntVar(&callCfg.Reads.FixedMinFragmentSize, "min-fragment-size", 0,
		"Minimum concordant fragment size (fixed concordance)")
	f.IntVar(&callCfg.Reads.FixedMaxFragmentSize, "max-fragment-size", 0,
		"Maximum concordant fragment size (fixed concordance)")
	f.Float64Var(&callCfg.Reads.ConcordantPercent, "concordant-percent", callCfg.Reads.ConcordantPercent,
		"Fraction of pairs considered concordant (percentage concordance)")
	f.StringVar(&callCfg.Reads.InsertSizeMetrics, "insert-size-metrics", "",
		"Picard CollectInsertSizeMetrics output")
	f.StringSliceVar(&callCfg.Reads.Blacklist, "blacklist", nil,
		"BED file of regions to ignore (repeatable)")

	// Calling
	f.Float64Var(&callCfg.Calling.MinScore, "min-score", callCfg.Calling.MinScore,
		"Minimum call score")
	f.IntVar(&callCfg.Calling.MinSupport, "min-support", callCfg.Calling.MinSupport,
		"Minimum supporting evidence per call")
	f.IntVar(&callCfg.Calling.MinIndelSize, "min-sv-size", callCfg.Calling.MinIndelSize,
		"Breakpoints that could be indels smaller than this are tagged SMALL_INDEL")
	f.IntVar(&callCfg.Calling.BreakendMargin, "margin", callCfg.Calling.BreakendMargin,
		"Breakend margin in bases")
	f.BoolVar(&callCfg.Calling.CallOnlyAssemblies, "assemblies-only", callCfg.Calling.CallOnlyAssemblies,
		"Only call assembled contigs")
	f.BoolVar(&callCfg.Calling.WriteFilteredCalls, "write-filtered", callCfg.Calling.WriteFilteredCalls,
		"Write calls that failed a filter")
	f.Float64Var(&callCfg.Calling.SomaticPValueThreshold, "somatic-pvalue", callCfg.Calling.SomaticPValueThreshold,
		"Largest p-value flagged as somatic")

	// Output
	f.StringVar(&compression, "compression", callset.CompressionZstd,
		"Call file compression: none, zstd")
	f.IntVar(&level, "level", 3,
		"zstd compression level")
	f.StringVar(&s3Region, "s3-region", "",
		"AWS region for s3:// outputs (default: from the environment)")
	f.StringVar(&partSizeStr, "part-size", "",
		"S3 multipart part size, e.g. 16MiB (default: 10MiB)")
	f.IntVar(&s3Uploaders, "s3-concurrency", 0,
		"Parts uploaded at once (default: 3)")
}
