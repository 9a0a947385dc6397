package main

import (
	"fmt"
	"strconv"

	"github.com/scttfrdmn/breakasm-go/pkg/kmer"
	"github.com/spf13/cobra"
)

var (
	kmerK      int
	kmerDecode bool
)

var kmerCmd = &cobra.Command{
	Use:   "kmer <sequence|value>...",
	Short: "Encode and decode packed k-mers",
	Long: `Show the packed integer form of each k-length window of a sequence, or
decode packed values back into bases with --decode.

Examples:
  breakasm kmer -k 4 ACGTTAGC
  breakasm kmer -k 4 --decode 27 108`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if kmerK < 1 || kmerK > kmer.MaxK {
			return fmt.Errorf("k must be between 1 and %d, got %d", kmer.MaxK, kmerK)
		}
		for _, arg := range args {
			if kmerDecode {
				v, err := strconv.ParseUint(arg, 0, 64)
				if err != nil {
					return fmt.Errorf("invalid k-mer value %q: %w", arg, err)
				}
				fmt.Printf("%d\t%s\n", v, kmer.Decode(kmer.Kmer(v), kmerK))
				continue
			}
			seq := []byte(arg)
			if len(seq) < kmerK {
				return fmt.Errorf("%q is shorter than k=%d", arg, kmerK)
			}
			for i := 0; i+kmerK <= len(seq); i++ {
				km, err := kmer.Encode(seq[i:i+kmerK], kmerK)
				if err != nil {
					return fmt.Errorf("window %d of %q: %w", i, arg, err)
				}
				fmt.Printf("%d\t%s\t%d\n", i, seq[i:i+kmerK], km)
			}
		}
		return nil
	},
}

func init() {
	kmerCmd.Flags().IntVarP(&kmerK, "kmer", "k", 25, "k-mer length (1-32)")
	kmerCmd.Flags().BoolVar(&kmerDecode, "decode", false, "Decode packed values instead of encoding")
}
