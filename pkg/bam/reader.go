// Package bam loads alignments into per-contig calling regions and extracts
// structural variant supporting reads to a smaller BAM.
package bam

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/grailbio/base/log"
	"github.com/scttfrdmn/breakasm-go/pkg/caller"
)

type recordReader interface {
	Read() (*sam.Record, error)
}

// Reader reads alignment records from BAM, or SAM text when opened from a
// .sam path.
type Reader struct {
	file    *os.File
	records recordReader
	bam     *bam.Reader
	header  *sam.Header
}

// Open opens a BAM or SAM file. readers is the BGZF decompression
// concurrency; zero lets biogo pick.
func Open(path string, readers int) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open alignment file: %w", err)
	}
	if strings.HasSuffix(strings.ToLower(path), ".sam") {
		sr, err := sam.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create SAM reader: %w", err)
		}
		return &Reader{file: f, records: sr, header: sr.Header()}, nil
	}
	r, err := NewReader(f, readers)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.file = f
	return r, nil
}

// NewReader reads BAM from r.
func NewReader(r io.Reader, readers int) (*Reader, error) {
	br, err := bam.NewReader(r, readers)
	if err != nil {
		return nil, fmt.Errorf("failed to create BAM reader: %w", err)
	}
	return &Reader{records: br, bam: br, header: br.Header()}, nil
}

// Header returns the alignment header.
func (r *Reader) Header() *sam.Header {
	return r.header
}

// Read returns the next record, or io.EOF.
func (r *Reader) Read() (*sam.Record, error) {
	return r.records.Read()
}

// Close closes the reader and the underlying file, if it opened one.
func (r *Reader) Close() error {
	var err error
	if r.bam != nil {
		err = r.bam.Close()
	}
	if r.file != nil {
		if cerr := r.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// ReadRegions groups every placed record into one region per contig, in
// reference order. Records without a contig are dropped. When contigs is
// non-empty only the named contigs are kept.
func ReadRegions(r *Reader, contigs ...string) ([]caller.Region, error) {
	wanted := make(map[string]bool, len(contigs))
	for _, name := range contigs {
		wanted[name] = true
	}
	refs := r.Header().Refs()
	for name := range wanted {
		if !hasReference(refs, name) {
			return nil, fmt.Errorf("contig %s is not in the alignment header", name)
		}
	}

	byRef := make([][]*sam.Record, len(refs))
	unplaced := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read alignment record: %w", err)
		}
		if rec.Ref == nil {
			unplaced++
			continue
		}
		if len(wanted) > 0 && !wanted[rec.Ref.Name()] {
			continue
		}
		byRef[rec.Ref.ID()] = append(byRef[rec.Ref.ID()], rec)
	}
	if unplaced > 0 {
		log.Debug.Printf("dropped %d records without a contig", unplaced)
	}

	var regions []caller.Region
	for i, records := range byRef {
		if len(records) == 0 {
			continue
		}
		regions = append(regions, caller.Region{
			ReferenceIndex: i,
			Name:           refs[i].Name(),
			Records:        records,
		})
	}
	return regions, nil
}

func hasReference(refs []*sam.Reference, name string) bool {
	for _, ref := range refs {
		if ref.Name() == name {
			return true
		}
	}
	return false
}

// LoadRegions opens path and reads its regions. See ReadRegions.
func LoadRegions(path string, readers int, contigs ...string) (*sam.Header, []caller.Region, error) {
	r, err := Open(path, readers)
	if err != nil {
		return nil, nil, err
	}
	defer r.Close()

	regions, err := ReadRegions(r, contigs...)
	if err != nil {
		return nil, nil, err
	}
	return r.Header(), regions, nil
}
