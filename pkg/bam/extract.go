package bam

import (
	"fmt"
	"io"
	"os"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/scttfrdmn/breakasm-go/pkg/svreads"
)

// ExtractStats counts what an extraction kept.
type ExtractStats struct {
	Records             int
	Fragments           int
	KeptRecords         int
	KeptFragments       int
	BlacklistedFragment int
}

// ExtractSVReads copies the fragments that may support a structural variant
// from r to a BAM on w. A fragment is every record sharing a read name; it
// is kept whole when any of its records is an SV read and none of them
// touches the blacklist. Records are written in input order.
func ExtractSVReads(r *Reader, w io.Writer, cfg svreads.Config, writers int) (ExtractStats, error) {
	var stats ExtractStats
	res, err := svreads.NewResources(cfg, r.Header())
	if err != nil {
		return stats, err
	}

	var records []*sam.Record
	fragments := make(map[string][]*sam.Record)
	var names []string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("failed to read alignment record: %w", err)
		}
		records = append(records, rec)
		if _, ok := fragments[rec.Name]; !ok {
			names = append(names, rec.Name)
		}
		fragments[rec.Name] = append(fragments[rec.Name], rec)
	}
	stats.Records = len(records)
	stats.Fragments = len(names)

	keep := make(map[string]bool)
	for _, name := range names {
		fragment := fragments[name]
		sv := false
		for _, rec := range fragment {
			if res.IsSVRead(rec) {
				sv = true
				break
			}
		}
		if !sv {
			continue
		}
		if res.InvolvesBlacklistedRegion(fragment) {
			stats.BlacklistedFragment++
			continue
		}
		keep[name] = true
		stats.KeptFragments++
	}

	bw, err := bam.NewWriter(w, r.Header(), writers)
	if err != nil {
		return stats, fmt.Errorf("failed to create BAM writer: %w", err)
	}
	for _, rec := range records {
		if !keep[rec.Name] {
			continue
		}
		if err := bw.Write(rec); err != nil {
			bw.Close()
			return stats, fmt.Errorf("failed to write read %s: %w", rec.Name, err)
		}
		stats.KeptRecords++
	}
	if err := bw.Close(); err != nil {
		return stats, fmt.Errorf("failed to close BAM writer: %w", err)
	}
	return stats, nil
}

// Extract runs ExtractSVReads from inPath to outPath. An outPath of "-"
// writes to stdout.
func Extract(inPath, outPath string, cfg svreads.Config) (ExtractStats, error) {
	r, err := Open(inPath, 0)
	if err != nil {
		return ExtractStats{}, err
	}
	defer r.Close()

	var out io.Writer = os.Stdout
	if outPath != "-" {
		f, err := os.Create(outPath)
		if err != nil {
			return ExtractStats{}, fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}
	return ExtractSVReads(r, out, cfg, 0)
}
