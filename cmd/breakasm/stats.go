package main

import (
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/scttfrdmn/breakasm-go/pkg/callset"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats <dataset>",
	Short: "Show statistics for a call set",
	Long: `Display statistics for a call set dataset.

Statistics are read from the metadata file without loading any calls.

Example:
  breakasm stats sample.calls`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reader, err := callset.Open(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to open dataset: %w", err)
		}
		defer reader.Close()

		md := reader.Metadata()
		stats := md.Statistics

		fmt.Println("===========================================")
		fmt.Println("Call Set Statistics")
		fmt.Println("===========================================")
		fmt.Println()
		fmt.Printf("Format: %s v%s\n", md.Format, md.Version)
		fmt.Printf("Created: %s\n", md.Created.Format("2006-01-02 15:04:05"))
		fmt.Printf("Created by: %s\n", md.CreatedBy)
		if md.Source.File != "" {
			fmt.Printf("Source: %s (%s)\n", md.Source.File, md.Source.Format)
		}
		fmt.Println()

		fmt.Println("Assembly:")
		fmt.Printf("  k: %d, lookahead: %d bp, window: %d bp, min contig weight: %d\n",
			md.Assembly.K, md.Assembly.MaxSupportSpan, md.Assembly.Window, md.Assembly.MinContigWeight)
		fmt.Printf("  Min score: %g, min support: %d, min SV size: %d bp, margin: %d bp\n",
			md.Calling.MinScore, md.Calling.MinSupport, md.Calling.MinIndelSize, md.Calling.BreakendMargin)
		fmt.Println()

		fmt.Println("Statistics:")
		fmt.Printf("  Total calls: %s\n", humanize.Comma(int64(stats.TotalCalls)))
		if stats.TotalCalls > 0 {
			fmt.Printf("  Passing: %d (%.2f%%)\n", stats.PassingCalls,
				float64(stats.PassingCalls)/float64(stats.TotalCalls)*100)
		}
		fmt.Printf("  Filtered: %d\n", stats.FilteredCalls)
		filters := make([]string, 0, len(stats.Filters))
		for f := range stats.Filters {
			filters = append(filters, f)
		}
		sort.Strings(filters)
		for _, f := range filters {
			fmt.Printf("    %s: %d\n", f, stats.Filters[f])
		}
		fmt.Printf("  Breakpoints: %d\n", stats.Breakpoints)
		fmt.Printf("  Assembled: %d\n", stats.Assembled)
		if stats.Somatic > 0 {
			fmt.Printf("  Somatic: %d\n", stats.Somatic)
		}
		fmt.Println()

		fmt.Println("Structure:")
		fmt.Printf("  Contig files: %d\n", len(md.Contigs))
		fmt.Printf("  Compression: %s\n", md.Compression.Algorithm)
		fmt.Println()

		fmt.Println("Contigs:")
		for _, c := range md.Contigs {
			fmt.Printf("  %s: %d calls, %s-%s of %s bp (%s)\n", c.Reference, c.Calls,
				humanize.Comma(int64(c.Start)), humanize.Comma(int64(c.End)),
				humanize.Comma(int64(c.Length)), humanize.IBytes(uint64(c.SizeBytes)))
		}
		return nil
	},
}
