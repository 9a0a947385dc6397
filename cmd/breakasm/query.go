package main

import (
	"fmt"

	"github.com/scttfrdmn/breakasm-go/pkg/calling"
	"github.com/scttfrdmn/breakasm-go/pkg/callset"
	"github.com/spf13/cobra"
)

var (
	countOnly   bool
	showCalls   int
	passingOnly bool
)

var queryCmd = &cobra.Command{
	Use:   "query <dataset> <region>",
	Short: "Query calls from a call set",
	Long: `Query the calls whose breakend touches a genomic region.

The region format is: chr, chr:pos or chr:start-end (e.g., chr1:1000000-2000000)

Only the call file of the queried contig is loaded.

Examples:
  breakasm query sample.calls chr1:1000000-2000000
  breakasm query sample.calls chr1 --count
  breakasm query s3://bucket/sample.calls chr2 --pass --show 0`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		region, err := callset.ParseRegion(args[1])
		if err != nil {
			return fmt.Errorf("invalid region: %w", err)
		}

		reader, err := callset.Open(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to open dataset: %w", err)
		}
		defer reader.Close()

		found, err := reader.Query(region)
		if err != nil {
			return fmt.Errorf("query failed: %w", err)
		}
		var calls []calling.Call
		for _, call := range found {
			if passingOnly && call.IsFiltered() {
				continue
			}
			calls = append(calls, call)
		}

		fmt.Printf("Found %d calls in region\n", len(calls))
		if countOnly {
			return nil
		}

		n := showCalls
		if n == 0 || n > len(calls) {
			n = len(calls)
		}
		if n > 0 {
			fmt.Println()
			fmt.Printf("%-16s %-40s %10s %8s %s\n", "ID", "Breakend", "Score", "Support", "Filters")
			fmt.Println("--------------------------------------------------------------------------------------")
			for _, call := range calls[:n] {
				where := call.Breakend.String()
				if call.Breakpoint != nil {
					where = call.Breakpoint.String()
				}
				filters := "PASS"
				if call.IsFiltered() {
					filters = fmt.Sprint(call.Filters)
				}
				fmt.Printf("%-16s %-40s %10.1f %8d %s\n", call.ID, where, call.Score, call.EvidenceCount, filters)
			}
		}
		return nil
	},
}

func init() {
	queryCmd.Flags().BoolVar(&countOnly, "count", false,
		"Only show the call count")
	queryCmd.Flags().IntVar(&showCalls, "show", 10,
		"Number of calls to display (0 for all)")
	queryCmd.Flags().BoolVar(&passingOnly, "pass", false,
		"Only show calls without filters")
}
