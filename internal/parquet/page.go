package parquet

import (
	"bytes"
	"fmt"

	"github.com/tuannm99/jparque/internal/bx"
	"github.com/tuannm99/jparque/internal/compress"
)

// pageTypeData is the only page type tag this codec emits; the field is
// reserved for future page kinds (dictionary, index) the spec does not
// describe.
const pageTypeData = 1

// encoding tags for the value/definition-level/repetition-level encoding
// header fields. This codec only ever implements "plain" encoding; the
// fields exist so the header layout matches spec.md §4.6 byte-for-byte.
const encodingPlain = 0

func writeStatistics(buf *bytes.Buffer, s Statistics) {
	writeU32Prefixed(buf, s.MinValue)
	writeU32Prefixed(buf, s.MaxValue)
	writeU64(buf, s.NullCount)
	writeU64(buf, s.DistinctCount)
}

func readStatistics(r *reader) (Statistics, error) {
	min, err := r.readU32Prefixed()
	if err != nil {
		return Statistics{}, err
	}
	max, err := r.readU32Prefixed()
	if err != nil {
		return Statistics{}, err
	}
	nullCount, err := r.readU64()
	if err != nil {
		return Statistics{}, err
	}
	distinctCount, err := r.readU64()
	if err != nil {
		return Statistics{}, err
	}
	return Statistics{MinValue: min, MaxValue: max, NullCount: nullCount, DistinctCount: distinctCount}, nil
}

// writeDataPage emits one data page: header then compressed payload.
func writeDataPage(buf *bytes.Buffer, codec compress.Compressor, raw []byte, valueCount int, stats Statistics) error {
	compressed, err := codec.Compress(raw)
	if err != nil {
		return fmt.Errorf("parquet: compress page: %w", err)
	}
	buf.WriteByte(pageTypeData)
	writeU32(buf, uint32(len(raw)))
	writeU32(buf, uint32(len(compressed)))
	writeU32(buf, uint32(valueCount))
	writeU32(buf, encodingPlain)
	writeU32(buf, encodingPlain)
	writeU32(buf, encodingPlain)
	writeStatistics(buf, stats)
	buf.Write(compressed)
	return nil
}

// readDataPage reads one data page, decompressing its payload with codec.
func readDataPage(r *reader, codec compress.Compressor) (raw []byte, valueCount int, stats Statistics, err error) {
	pageType, err := r.readByte()
	if err != nil {
		return nil, 0, Statistics{}, err
	}
	if pageType != pageTypeData {
		return nil, 0, Statistics{}, fmt.Errorf("parquet: unknown page type %d", pageType)
	}
	uncompressedSize, err := r.readU32()
	if err != nil {
		return nil, 0, Statistics{}, err
	}
	compressedSize, err := r.readU32()
	if err != nil {
		return nil, 0, Statistics{}, err
	}
	vc, err := r.readU32()
	if err != nil {
		return nil, 0, Statistics{}, err
	}
	if _, err := r.readU32(); err != nil { // value encoding, unused
		return nil, 0, Statistics{}, err
	}
	if _, err := r.readU32(); err != nil { // def-level encoding, unused
		return nil, 0, Statistics{}, err
	}
	if _, err := r.readU32(); err != nil { // rep-level encoding, unused
		return nil, 0, Statistics{}, err
	}
	stats, err = readStatistics(r)
	if err != nil {
		return nil, 0, Statistics{}, err
	}
	compressed, err := r.readN(int(compressedSize))
	if err != nil {
		return nil, 0, Statistics{}, err
	}
	raw, err = codec.Decompress(compressed, int(uncompressedSize))
	if err != nil {
		return nil, 0, Statistics{}, fmt.Errorf("%w: %v", ErrSizeMismatch, err)
	}
	return raw, int(vc), stats, nil
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var tmp [4]byte
	bx.PutU32(tmp[:], v)
	buf.Write(tmp[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var tmp [8]byte
	bx.PutU64(tmp[:], v)
	buf.Write(tmp[:])
}

func writeU32Prefixed(buf *bytes.Buffer, b []byte) {
	writeU32(buf, uint32(len(b)))
	buf.Write(b)
}

func writeStringPrefixed(buf *bytes.Buffer, s string) { writeU32Prefixed(buf, []byte(s)) }
