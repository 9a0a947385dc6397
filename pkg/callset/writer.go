package callset

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/biogo/hts/sam"
	"github.com/scttfrdmn/breakasm-go/pkg/calling"
)

// Writer writes a call set one contig at a time. It is not safe for
// concurrent use.
type Writer struct {
	storage     Storage
	compression string
	compressor  *Compressor
	metadata    Metadata
	lengths     map[string]int
	written     map[string]bool
	contigs     []ContigInfo
}

// NewWriter creates a writer for a local or s3:// dataset path.
func NewWriter(ctx context.Context, path, compression string, level int) (*Writer, error) {
	storage, err := NewStorage(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage backend: %w", err)
	}
	return NewStorageWriter(storage, compression, level)
}

// NewStorageWriter creates a writer on an existing storage backend.
func NewStorageWriter(storage Storage, compression string, level int) (*Writer, error) {
	if compression == "" {
		compression = CompressionNone
	}
	w := &Writer{
		storage:     storage,
		compression: compression,
		lengths:     make(map[string]int),
		written:     make(map[string]bool),
		metadata: Metadata{
			Format:    FormatName,
			Version:   FormatVersion,
			Created:   time.Now(),
			CreatedBy: "breakasm-go",
			Compression: CompressionConfig{
				Algorithm: compression,
			},
		},
	}
	switch compression {
	case CompressionNone:
	case CompressionZstd:
		compressor, err := NewCompressor(level)
		if err != nil {
			return nil, fmt.Errorf("failed to create compressor: %w", err)
		}
		w.compressor = compressor
		w.metadata.Compression.Level = level
	default:
		return nil, fmt.Errorf("unsupported compression %q (use %s or %s)", compression, CompressionNone, CompressionZstd)
	}
	return w, nil
}

// SetSource sets the source information.
func (w *Writer) SetSource(source Source) {
	w.metadata.Source = source
}

// SetAssembly records the assembly options.
func (w *Writer) SetAssembly(cfg AssemblyConfig) {
	w.metadata.Assembly = cfg
}

// SetCalling records the calling options.
func (w *Writer) SetCalling(params calling.Params) {
	w.metadata.Calling = params
}

// SetHeader records contig lengths from the alignment header.
func (w *Writer) SetHeader(header *sam.Header) {
	for _, ref := range header.Refs() {
		w.lengths[ref.Name()] = ref.Len()
	}
}

// WriteContig writes the calls of one contig. Calls are stored in
// calling.Compare order.
func (w *Writer) WriteContig(name string, referenceIndex int, calls []calling.Call) error {
	if w.written[name] {
		return fmt.Errorf("contig %s already written", name)
	}
	if !slices.IsSortedFunc(calls, calling.Compare) {
		calls = slices.Clone(calls)
		slices.SortFunc(calls, calling.Compare)
	}

	data, err := json.Marshal(calls)
	if err != nil {
		return fmt.Errorf("failed to encode calls for %s: %w", name, err)
	}
	if w.compressor != nil {
		data = w.compressor.Compress(data)
	}
	p := contigPath(name)
	if err := w.storage.WriteFile(p, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", p, err)
	}

	info := ContigInfo{
		Path:           p,
		Reference:      name,
		ReferenceIndex: referenceIndex,
		Length:         w.lengths[name],
		Calls:          len(calls),
		SizeBytes:      int64(len(data)),
		Compression:    w.compression,
		Checksum:       fmt.Sprintf("%x", sha256.Sum256(data)),
		Created:        time.Now(),
	}
	for _, call := range calls {
		if info.Start == 0 || call.Breakend.Start < info.Start {
			info.Start = call.Breakend.Start
		}
		info.End = max(info.End, call.Breakend.End)
		w.metadata.Statistics.Add(call)
	}
	w.written[name] = true
	w.contigs = append(w.contigs, info)
	return nil
}

// WriteCalls splits calls by contig and writes each contig in turn. name
// maps a reference index to its contig name.
func (w *Writer) WriteCalls(calls []calling.Call, name func(referenceIndex int) string) error {
	byRef := make(map[int][]calling.Call)
	var refs []int
	for _, call := range calls {
		ref := call.Breakend.ReferenceIndex
		if _, ok := byRef[ref]; !ok {
			refs = append(refs, ref)
		}
		byRef[ref] = append(byRef[ref], call)
	}
	slices.Sort(refs)
	for _, ref := range refs {
		if err := w.WriteContig(name(ref), ref, byRef[ref]); err != nil {
			return err
		}
	}
	return nil
}

// Statistics returns the statistics of the calls written so far.
func (w *Writer) Statistics() Statistics {
	return w.metadata.Statistics
}

// Finalize writes the metadata and contig index. The writer must not be
// used afterwards.
func (w *Writer) Finalize() error {
	slices.SortFunc(w.contigs, func(a, b ContigInfo) int {
		return a.ReferenceIndex - b.ReferenceIndex
	})
	w.metadata.Contigs = w.contigs

	index := Index{References: make(map[string]ContigInfo, len(w.contigs))}
	for _, info := range w.contigs {
		index.References[info.Reference] = info
	}

	if err := w.writeJSON(indexPath, index); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	if err := w.writeJSON(metadataPath, w.metadata); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	if w.compressor != nil {
		return w.compressor.Close()
	}
	return nil
}

func (w *Writer) writeJSON(p string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return w.storage.WriteFile(p, data)
}

// Path returns where the dataset is written.
func (w *Writer) Path() string {
	return w.storage.BasePath()
}
