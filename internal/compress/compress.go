// Package compress implements the page-payload compressors used by the
// Parquet-shape column chunk codec.
package compress

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

// Codec tags, stable integers shared with the on-disk column chunk header
// (spec.md §6). Only Uncompressed/Snappy/Gzip/Zstd are implementable;
// LZO/Brotli/LZ4 are recognized tags with no compressor.
const (
	Uncompressed uint32 = 0
	Snappy       uint32 = 1
	Gzip         uint32 = 2
	LZO          uint32 = 3
	Brotli       uint32 = 4
	LZ4          uint32 = 5
	Zstd         uint32 = 6
)

// ErrNotSupported is returned by New for a recognized but unimplemented
// codec tag.
var ErrNotSupported = fmt.Errorf("compress: codec not supported")

// Compressor compresses/decompresses page payload bytes. Decompress is
// told the expected uncompressed length and must reject a mismatch, so
// corrupt column chunks fail loudly instead of returning truncated data.
// Close releases any native resources the codec holds (the zstd codec's
// encoder/decoder goroutines); callers must call it once they are done
// with a Compressor obtained from New. Codecs with nothing to release
// return a nil-returning no-op.
type Compressor interface {
	Tag() uint32
	Compress(src []byte) ([]byte, error)
	Decompress(src []byte, uncompressedLen int) ([]byte, error)
	Close() error
}

// New is the codec-tag -> Compressor factory used by the Parquet-shape
// writer and reader.
func New(tag uint32) (Compressor, error) {
	switch tag {
	case Uncompressed:
		return uncompressedCodec{}, nil
	case Snappy:
		return snappyCodec{}, nil
	case Gzip:
		return gzipCodec{}, nil
	case Zstd:
		return newZstdCodec()
	case LZO, Brotli, LZ4:
		return nil, fmt.Errorf("%w: tag %d", ErrNotSupported, tag)
	default:
		return nil, fmt.Errorf("%w: unknown tag %d", ErrNotSupported, tag)
	}
}

type uncompressedCodec struct{}

func (uncompressedCodec) Tag() uint32 { return Uncompressed }
func (uncompressedCodec) Compress(src []byte) ([]byte, error) {
	return append([]byte(nil), src...), nil
}
func (uncompressedCodec) Decompress(src []byte, uncompressedLen int) ([]byte, error) {
	if len(src) != uncompressedLen {
		return nil, fmt.Errorf("compress: uncompressed size mismatch: got %d want %d", len(src), uncompressedLen)
	}
	return append([]byte(nil), src...), nil
}
func (uncompressedCodec) Close() error { return nil }

type snappyCodec struct{}

func (snappyCodec) Tag() uint32 { return Snappy }
func (snappyCodec) Compress(src []byte) ([]byte, error) {
	return snappy.Encode(nil, src), nil
}
func (snappyCodec) Decompress(src []byte, uncompressedLen int) ([]byte, error) {
	out, err := snappy.Decode(nil, src)
	if err != nil {
		return nil, fmt.Errorf("compress: snappy decode: %w", err)
	}
	if len(out) != uncompressedLen {
		return nil, fmt.Errorf("compress: uncompressed size mismatch: got %d want %d", len(out), uncompressedLen)
	}
	return out, nil
}
func (snappyCodec) Close() error { return nil }

type gzipCodec struct{}

func (gzipCodec) Tag() uint32 { return Gzip }
func (gzipCodec) Compress(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(src); err != nil {
		w.Close()
		return nil, fmt.Errorf("compress: gzip write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compress: gzip close: %w", err)
	}
	return buf.Bytes(), nil
}
func (gzipCodec) Decompress(src []byte, uncompressedLen int) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("compress: gzip reader: %w", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("compress: gzip read: %w", err)
	}
	if len(out) != uncompressedLen {
		return nil, fmt.Errorf("compress: uncompressed size mismatch: got %d want %d", len(out), uncompressedLen)
	}
	return out, nil
}
func (gzipCodec) Close() error { return nil }

// zstdCodec wraps klauspost/compress encoder/decoder instances, which hold
// native resources (worker goroutines/buffers) that must be released.
type zstdCodec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func newZstdCodec() (*zstdCodec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("compress: zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("compress: zstd decoder: %w", err)
	}
	return &zstdCodec{enc: enc, dec: dec}, nil
}

func (z *zstdCodec) Tag() uint32 { return Zstd }
func (z *zstdCodec) Compress(src []byte) ([]byte, error) {
	return z.enc.EncodeAll(src, nil), nil
}
func (z *zstdCodec) Decompress(src []byte, uncompressedLen int) ([]byte, error) {
	out, err := z.dec.DecodeAll(src, make([]byte, 0, uncompressedLen))
	if err != nil {
		return nil, fmt.Errorf("compress: zstd decode: %w", err)
	}
	if len(out) != uncompressedLen {
		return nil, fmt.Errorf("compress: uncompressed size mismatch: got %d want %d", len(out), uncompressedLen)
	}
	return out, nil
}

// Close releases the zstd encoder/decoder's native resources (their
// background worker goroutines). klauspost/compress documents both
// Close methods as safe to call multiple times.
func (z *zstdCodec) Close() error {
	err := z.enc.Close()
	z.dec.Close()
	return err
}
