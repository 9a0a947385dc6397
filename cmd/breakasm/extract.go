package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/scttfrdmn/breakasm-go/pkg/bam"
	"github.com/scttfrdmn/breakasm-go/pkg/svreads"
	"github.com/spf13/cobra"
)

var (
	extractCfg         = svreads.DefaultConfig()
	extractConcordance string
)

var extractCmd = &cobra.Command{
	Use:   "extract <input.bam> <output.bam>",
	Short: "Extract reads that may support a structural variant",
	Long: `Write the fragments that may support a structural variant to a new BAM.

A fragment is kept whole when any of its reads is soft clipped, split,
contains an indel, is unmapped or has an unmapped or discordant mate.
Fragments touching a blacklisted region are dropped. Use "-" as the output
to write to stdout.

Examples:
  breakasm extract sample.bam sample.sv.bam
  breakasm extract sample.bam - --blacklist encode.blacklist.bed | samtools view`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		method, err := svreads.ParseConcordanceMethod(extractConcordance)
		if err != nil {
			return err
		}
		extractCfg.ConcordanceMethod = method

		stats, err := bam.Extract(args[0], args[1], extractCfg)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Extraction complete!\n")
		fmt.Fprintf(os.Stderr, "  Records: %s in %s fragments\n",
			humanize.Comma(int64(stats.Records)), humanize.Comma(int64(stats.Fragments)))
		fmt.Fprintf(os.Stderr, "  Kept: %s records in %s fragments\n",
			humanize.Comma(int64(stats.KeptRecords)), humanize.Comma(int64(stats.KeptFragments)))
		if stats.BlacklistedFragment > 0 {
			fmt.Fprintf(os.Stderr, "  Blacklisted fragments: %s\n", humanize.Comma(int64(stats.BlacklistedFragment)))
		}
		return nil
	},
}

func init() {
	f := extractCmd.Flags()
	f.IntVar(&extractCfg.MinClipLength, "min-clip-length", extractCfg.MinClipLength,
		"Minimum soft clip length")
	f.IntVar(&extractCfg.MinIndelSize, "min-indel-size", extractCfg.MinIndelSize,
		"Minimum CIGAR indel length")
	f.BoolVar(&extractCfg.Clipped, "clipped", extractCfg.Clipped, "Extract soft clipped reads")
	f.BoolVar(&extractCfg.Indels, "indels", extractCfg.Indels, "Extract reads containing indels")
	f.BoolVar(&extractCfg.Split, "split", extractCfg.Split, "Extract split reads (SA tag)")
	f.BoolVar(&extractCfg.SingleMappedPaired, "single-mapped", extractCfg.SingleMappedPaired,
		"Extract pairs with one unmapped read")
	f.BoolVar(&extractCfg.DiscordantReadPairs, "discordant", extractCfg.DiscordantReadPairs,
		"Extract discordant read pairs")
	f.BoolVar(&extractCfg.UnmappedReads, "unmapped", extractCfg.UnmappedReads, "Extract unmapped reads")
	f.StringVar(&extractConcordance, "concordance", "sam_flag",
		"Read pair concordance: sam_flag, fixed, percentage")
	f.IntVar(&extractCfg.FixedMinFragmentSize, "min-fragment-size", 0,
		"Minimum concordant fragment size (fixed concordance)")
	f.IntVar(&extractCfg.FixedMaxFragmentSize, "max-fragment-size", 0,
		"Maximum concordant fragment size (fixed concordance)")
	f.Float64Var(&extractCfg.ConcordantPercent, "concordant-percent", extractCfg.ConcordantPercent,
		"Fraction of pairs considered concordant (percentage concordance)")
	f.StringVar(&extractCfg.InsertSizeMetrics, "insert-size-metrics", "",
		"Picard CollectInsertSizeMetrics output")
	f.StringSliceVar(&extractCfg.Blacklist, "blacklist", nil,
		"BED file of regions to ignore (repeatable)")
}
