package callset

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Compression algorithms understood by the writer and reader.
const (
	CompressionNone = "none"
	CompressionZstd = "zstd"
)

// Compressor encodes and decodes zstd chunks. It is safe for concurrent
// use.
type Compressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewCompressor creates a compressor. Levels 1-3 map to fastest, default
// and better compression; anything else selects the default.
func NewCompressor(level int) (*Compressor, error) {
	encoderLevel := zstd.SpeedDefault
	switch level {
	case 1:
		encoderLevel = zstd.SpeedFastest
	case 3:
		encoderLevel = zstd.SpeedBetterCompression
	}
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(encoderLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &Compressor{encoder: encoder, decoder: decoder}, nil
}

// Compress compresses data using zstd.
func (c *Compressor) Compress(data []byte) []byte {
	return c.encoder.EncodeAll(data, make([]byte, 0, len(data)))
}

// Decompress decompresses zstd data.
func (c *Compressor) Decompress(data []byte) ([]byte, error) {
	return c.decoder.DecodeAll(data, nil)
}

// Close releases the encoder and decoder.
func (c *Compressor) Close() error {
	c.decoder.Close()
	return c.encoder.Close()
}
