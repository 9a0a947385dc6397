package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "breakasm",
	Short: "breakasm - Structural variant breakend assembly",
	Long: `breakasm assembles structural variant breakends from soft clipped,
split and discordantly paired reads.

Reads are decomposed into position-anchored k-mers and assembled per contig
in a positional de Bruijn graph. Contigs become breakend and breakpoint
calls, which are tagged with quality filters and written to a call set
dataset on local disk or S3.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(kmerCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("breakasm-go version %s\n", version)
		fmt.Println("Positional k-mer assembly of structural variant breakends")
	},
}
