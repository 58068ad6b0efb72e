// Package parquet implements the Parquet-shape columnar file codec:
// magic-framed files holding one row group of column chunks, each chunk a
// single compressed data page plus descriptive statistics.
package parquet

import (
	"bytes"
	"fmt"
	"os"

	"github.com/tuannm99/jparque/internal/bx"
	"github.com/tuannm99/jparque/internal/compress"
	"github.com/tuannm99/jparque/internal/schema"
)

var magic = [4]byte{'P', 'A', 'R', '1'}

// WriteFile serializes records against msg, validating each field's
// presence/shape/type, and writes the Parquet-shape file to path. All
// records are written as a single row group compressed with codecTag.
func WriteFile(path string, msg *schema.MessageType, records []map[string]any, codecTag uint32) error {
	var body bytes.Buffer
	body.Write(magic[:])

	writeU64(&body, 1) // row-group count: this writer always emits exactly one
	writeU64(&body, uint64(len(records)))

	rowGroupStart := int64(4 + 8 + 8) // after magic + rowGroupCount + recordCount
	var totalBytes int64

	for _, f := range msg.Fields {
		raw, stats, err := encodeFieldValues(f, records)
		if err != nil {
			return err
		}
		codec, err := compress.New(codecTag)
		if err != nil {
			return err
		}

		var page bytes.Buffer
		err = writeDataPage(&page, codec, raw, len(records), stats)
		if closeErr := codec.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("parquet: close codec: %w", closeErr)
		}
		if err != nil {
			return err
		}

		writeU32(&body, f.Type)
		writeU32(&body, codecTag)
		writeU64(&body, uint64(len(records)))
		writeU64(&body, uint64(page.Len()))
		body.Write(page.Bytes())
		totalBytes += int64(4+4+8+8) + int64(page.Len())
	}

	metadataOffset := uint64(body.Len())
	writeMetadata(&body, msg, codecTag, []rowGroupSummary{{
		RecordCount: uint64(len(records)),
		ByteSize:    uint64(totalBytes),
		StartOffset: uint64(rowGroupStart),
	}})

	var tmp [8]byte
	bx.PutU64(tmp[:], metadataOffset)
	body.Write(tmp[:])
	body.Write(magic[:])

	if err := os.WriteFile(path, body.Bytes(), 0o644); err != nil {
		return fmt.Errorf("parquet: write %s: %w", path, err)
	}
	return nil
}

// ReadFile parses a Parquet-shape file written by WriteFile, returning the
// schema it was written with and its decoded records.
func ReadFile(path string) (*schema.MessageType, []map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("parquet: read %s: %w", path, err)
	}
	if len(data) < len(magic)*2+8 {
		return nil, nil, ErrBadMagic
	}
	if !bytes.Equal(data[:4], magic[:]) {
		return nil, nil, ErrBadMagic
	}
	if !bytes.Equal(data[len(data)-4:], magic[:]) {
		return nil, nil, ErrBadMagic
	}

	offsetBuf := data[len(data)-12 : len(data)-4]
	metadataOffset := bx.U64(offsetBuf)
	if int(metadataOffset) > len(data) {
		return nil, nil, fmt.Errorf("parquet: metadata offset %d beyond file length %d", metadataOffset, len(data))
	}

	mr := newReader(data[metadataOffset:])
	msg, codecTag, rowGroups, err := readMetadata(mr)
	if err != nil {
		return nil, nil, err
	}

	body := newReader(data[4:metadataOffset])
	rowGroupCount, err := body.readU64()
	if err != nil {
		return nil, nil, err
	}
	_ = rowGroupCount // this writer always emits one; a forward-compatible reader would loop here

	recordCount, err := body.readU64()
	if err != nil {
		return nil, nil, err
	}
	n := int(recordCount)

	records := make([]map[string]any, n)
	for i := range records {
		records[i] = make(map[string]any)
	}

	for _, f := range msg.Fields {
		if _, err := body.readU32(); err != nil { // type tag, already known from schema
			return nil, nil, err
		}
		chunkCodecTag, err := body.readU32()
		if err != nil {
			return nil, nil, err
		}
		if _, err := body.readU64(); err != nil { // value count, redundant with recordCount
			return nil, nil, err
		}
		totalSize, err := body.readU64()
		if err != nil {
			return nil, nil, err
		}
		pageBytes, err := body.readN(int(totalSize))
		if err != nil {
			return nil, nil, err
		}

		codec, err := compress.New(chunkCodecTag)
		if err != nil {
			return nil, nil, err
		}
		pr := newReader(pageBytes)
		raw, valueCount, _, err := readDataPage(pr, codec)
		if closeErr := codec.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("parquet: close codec: %w", closeErr)
		}
		if err != nil {
			return nil, nil, err
		}
		if valueCount != n {
			return nil, nil, fmt.Errorf("parquet: field %q value count %d does not match record count %d", f.Name, valueCount, n)
		}
		if err := decodeFieldValues(f, raw, n, records); err != nil {
			return nil, nil, err
		}
	}

	_ = codecTag
	_ = rowGroups
	return msg, records, nil
}

type rowGroupSummary struct {
	RecordCount uint64
	ByteSize    uint64
	StartOffset uint64
}

// writeMetadata emits the file metadata block: schema, creator, and
// per-row-group summary, per spec.md §4.6.
func writeMetadata(buf *bytes.Buffer, msg *schema.MessageType, codecTag uint32, groups []rowGroupSummary) {
	const version = 1
	writeU32(buf, version)
	writeU32(buf, codecTag)

	writeStringPrefixed(buf, msg.Name)
	writeU32(buf, uint32(msg.Version))

	writeU32(buf, uint32(len(msg.Fields)))
	for _, f := range msg.Fields {
		writeU32(buf, f.Type)
		writeU32(buf, f.Repetition)
		ann := schema.AnnotationNone
		if f.HasAnnotation {
			ann = f.Annotation
		}
		writeU32(buf, ann)
		writeStringPrefixed(buf, f.Name)
	}

	writeStringPrefixed(buf, "jparque")

	writeU64(buf, uint64(len(groups)))
	for _, g := range groups {
		writeU64(buf, g.RecordCount)
		writeU64(buf, g.ByteSize)
		writeU64(buf, g.StartOffset)
	}
}

func readMetadata(r *reader) (*schema.MessageType, uint32, []rowGroupSummary, error) {
	if _, err := r.readU32(); err != nil { // version, unused by this reader
		return nil, 0, nil, err
	}
	codecTag, err := r.readU32()
	if err != nil {
		return nil, 0, nil, err
	}

	msgName, err := r.readString()
	if err != nil {
		return nil, 0, nil, err
	}
	msgVersion, err := r.readU32()
	if err != nil {
		return nil, 0, nil, err
	}

	fieldCount, err := r.readU32()
	if err != nil {
		return nil, 0, nil, err
	}
	fields := make([]schema.Field, fieldCount)
	for i := range fields {
		typeTag, err := r.readU32()
		if err != nil {
			return nil, 0, nil, err
		}
		repetition, err := r.readU32()
		if err != nil {
			return nil, 0, nil, err
		}
		ann, err := r.readU32()
		if err != nil {
			return nil, 0, nil, err
		}
		name, err := r.readString()
		if err != nil {
			return nil, 0, nil, err
		}
		fields[i] = schema.Field{
			ID:            int32(i),
			Name:          name,
			Type:          typeTag,
			Repetition:    repetition,
			HasAnnotation: ann != schema.AnnotationNone,
			Annotation:    ann,
		}
	}

	_, err = r.readString() // creator string, informational
	if err != nil {
		return nil, 0, nil, err
	}

	groupCount, err := r.readU64()
	if err != nil {
		return nil, 0, nil, err
	}
	groups := make([]rowGroupSummary, groupCount)
	for i := range groups {
		rc, err := r.readU64()
		if err != nil {
			return nil, 0, nil, err
		}
		bs, err := r.readU64()
		if err != nil {
			return nil, 0, nil, err
		}
		so, err := r.readU64()
		if err != nil {
			return nil, 0, nil, err
		}
		groups[i] = rowGroupSummary{RecordCount: rc, ByteSize: bs, StartOffset: so}
	}

	return &schema.MessageType{Name: msgName, Version: int(msgVersion), Fields: fields}, codecTag, groups, nil
}
