package callset

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/scttfrdmn/breakasm-go/pkg/calling"
)

// Reader reads call set datasets.
type Reader struct {
	storage    Storage
	metadata   Metadata
	index      Index
	compressor *Compressor
}

// Open opens a local or s3:// call set.
func Open(ctx context.Context, path string) (*Reader, error) {
	storage, err := NewStorage(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage backend: %w", err)
	}
	return OpenStorage(storage)
}

// OpenStorage opens a call set on an existing storage backend.
func OpenStorage(storage Storage) (*Reader, error) {
	r := &Reader{storage: storage}
	if err := r.loadJSON(metadataPath, &r.metadata); err != nil {
		return nil, fmt.Errorf("failed to load metadata: %w", err)
	}
	if r.metadata.Format != FormatName {
		return nil, fmt.Errorf("%s is a %q dataset, not %s", storage.BasePath(), r.metadata.Format, FormatName)
	}
	if err := r.loadJSON(indexPath, &r.index); err != nil {
		return nil, fmt.Errorf("failed to load index: %w", err)
	}
	return r, nil
}

func (r *Reader) loadJSON(p string, v interface{}) error {
	data, err := r.storage.ReadFile(p)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// Metadata returns the dataset metadata.
func (r *Reader) Metadata() Metadata {
	return r.metadata
}

// Contigs returns the contig files in reference order.
func (r *Reader) Contigs() []ContigInfo {
	return r.metadata.Contigs
}

// ContigCalls loads the calls of one contig. A contig without calls yields
// an empty list.
func (r *Reader) ContigCalls(name string) ([]calling.Call, error) {
	info, ok := r.index.References[name]
	if !ok {
		return nil, nil
	}
	data, err := r.storage.ReadFile(info.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", info.Path, err)
	}
	if info.Checksum != "" {
		if sum := fmt.Sprintf("%x", sha256.Sum256(data)); sum != info.Checksum {
			return nil, fmt.Errorf("checksum mismatch for %s", info.Path)
		}
	}
	if info.Compression == CompressionZstd {
		if r.compressor == nil {
			if r.compressor, err = NewCompressor(0); err != nil {
				return nil, err
			}
		}
		if data, err = r.compressor.Decompress(data); err != nil {
			return nil, fmt.Errorf("failed to decompress %s: %w", info.Path, err)
		}
	}
	var calls []calling.Call
	if err := json.Unmarshal(data, &calls); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", info.Path, err)
	}
	for _, call := range calls {
		if err := validateCall(call); err != nil {
			return nil, fmt.Errorf("invalid call %s in %s: %w", call.ID, info.Path, err)
		}
	}
	return calls, nil
}

func validateCall(call calling.Call) error {
	if err := call.Breakend.Validate(); err != nil {
		return err
	}
	if call.Breakpoint != nil {
		return call.Breakpoint.Validate()
	}
	return nil
}

// Query returns the calls whose breakend touches region.
func (r *Reader) Query(region Region) ([]calling.Call, error) {
	calls, err := r.ContigCalls(region.Reference)
	if err != nil {
		return nil, err
	}
	var out []calling.Call
	for _, call := range calls {
		if call.Breakend.Start > region.End {
			break
		}
		if region.Contains(call) {
			out = append(out, call)
		}
	}
	return out, nil
}

// AllCalls loads every contig and merges them into one sorted list.
func (r *Reader) AllCalls() ([]calling.Call, error) {
	lists := make([][]calling.Call, 0, len(r.metadata.Contigs))
	for _, info := range r.metadata.Contigs {
		calls, err := r.ContigCalls(info.Reference)
		if err != nil {
			return nil, err
		}
		lists = append(lists, calls)
	}
	return MergeCalls(lists...), nil
}

// Close releases the decompressor.
func (r *Reader) Close() error {
	if r.compressor != nil {
		return r.compressor.Close()
	}
	return nil
}
