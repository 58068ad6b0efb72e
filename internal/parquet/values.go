package parquet

import (
	"bytes"
	"fmt"
	"math"

	"github.com/tuannm99/jparque/internal/bx"
	"github.com/tuannm99/jparque/internal/schema"
)

// Statistics mirrors the data page statistics block from spec.md §4.6.
// Min/Max are the raw encoded bytes of the smallest/largest single value
// seen, compared value-wise per the field's primitive type where a
// meaningful order exists, and lexicographically otherwise.
type Statistics struct {
	MinValue      []byte
	MaxValue      []byte
	NullCount     uint64
	DistinctCount uint64
}

// encodeFieldValues encodes one field's values across all records into a
// single contiguous column buffer, validating each value against the
// field's repetition and type per spec.md §4.6. It also accumulates
// statistics over the single-value encodings it produces.
func encodeFieldValues(f schema.Field, records []map[string]any) ([]byte, Statistics, error) {
	var buf bytes.Buffer
	stats := Statistics{}
	seen := make(map[string]struct{})

	track := func(enc []byte) {
		if stats.MinValue == nil || compareEncoded(f.Type, enc, stats.MinValue) < 0 {
			stats.MinValue = append([]byte(nil), enc...)
		}
		if stats.MaxValue == nil || compareEncoded(f.Type, enc, stats.MaxValue) > 0 {
			stats.MaxValue = append([]byte(nil), enc...)
		}
		if _, ok := seen[string(enc)]; !ok {
			seen[string(enc)] = struct{}{}
			stats.DistinctCount++
		}
	}

	for _, rec := range records {
		v, present := rec[f.Name]
		if v == nil {
			present = false
		}

		switch f.Repetition {
		case schema.Required:
			if !present {
				return nil, Statistics{}, fmt.Errorf("%w: %q", ErrMissingRequiredField, f.Name)
			}
			enc, err := encodeSingle(f, v)
			if err != nil {
				return nil, Statistics{}, err
			}
			buf.Write(enc)
			track(enc)

		case schema.Optional:
			if !present {
				buf.WriteByte(0)
				stats.NullCount++
				continue
			}
			buf.WriteByte(1)
			enc, err := encodeSingle(f, v)
			if err != nil {
				return nil, Statistics{}, err
			}
			buf.Write(enc)
			track(enc)

		case schema.Repeated:
			elems, err := toSlice(v)
			if err != nil {
				return nil, Statistics{}, fmt.Errorf("%w: field %q: %v", ErrRepeatedShape, f.Name, err)
			}
			var tmp [4]byte
			bx.PutU32(tmp[:], uint32(len(elems)))
			buf.Write(tmp[:])
			for _, e := range elems {
				enc, err := encodeSingle(f, e)
				if err != nil {
					return nil, Statistics{}, err
				}
				buf.Write(enc)
				track(enc)
			}

		default:
			return nil, Statistics{}, fmt.Errorf("parquet: field %q has unknown repetition %d", f.Name, f.Repetition)
		}
	}

	return buf.Bytes(), stats, nil
}

// decodeFieldValues is the inverse of encodeFieldValues: it fills in
// rec[f.Name] for recordCount records by consuming raw in order.
func decodeFieldValues(f schema.Field, raw []byte, recordCount int, recs []map[string]any) error {
	off := 0
	readSingle := func() (any, error) {
		v, n, err := decodeSingle(f, raw[off:])
		off += n
		return v, err
	}

	for i := 0; i < recordCount; i++ {
		switch f.Repetition {
		case schema.Required:
			v, err := readSingle()
			if err != nil {
				return err
			}
			recs[i][f.Name] = v

		case schema.Optional:
			if off >= len(raw) {
				return fmt.Errorf("parquet: truncated optional presence flag for %q", f.Name)
			}
			present := raw[off] != 0
			off++
			if !present {
				continue
			}
			v, err := readSingle()
			if err != nil {
				return err
			}
			recs[i][f.Name] = v

		case schema.Repeated:
			if off+4 > len(raw) {
				return fmt.Errorf("parquet: truncated repeated count for %q", f.Name)
			}
			count := int(bx.U32At(raw, off))
			off += 4
			elems := make([]any, 0, count)
			for j := 0; j < count; j++ {
				v, err := readSingle()
				if err != nil {
					return err
				}
				elems = append(elems, v)
			}
			recs[i][f.Name] = elems
		}
	}
	return nil
}

func toSlice(v any) ([]any, error) {
	switch x := v.(type) {
	case []any:
		return x, nil
	case []int32:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = e
		}
		return out, nil
	case []int64:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = e
		}
		return out, nil
	case []string:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = e
		}
		return out, nil
	case []float32:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = e
		}
		return out, nil
	case []float64:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = e
		}
		return out, nil
	default:
		return nil, fmt.Errorf("value of type %T is not list-shaped", v)
	}
}

// encodeSingle encodes one scalar value per spec.md §4.6's per-type wire
// format.
func encodeSingle(f schema.Field, v any) ([]byte, error) {
	switch f.Type {
	case schema.TypeBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: field %q wants bool, got %T", ErrTypeMismatch, f.Name, v)
		}
		if b {
			return []byte{1}, nil
		}
		return []byte{0}, nil

	case schema.TypeInt32:
		i32, ok := asInt32(v)
		if !ok {
			return nil, fmt.Errorf("%w: field %q wants int32, got %T", ErrTypeMismatch, f.Name, v)
		}
		out := make([]byte, 4)
		bx.PutU32(out, uint32(i32))
		return out, nil

	case schema.TypeInt64:
		i64, ok := asInt64(v)
		if !ok {
			return nil, fmt.Errorf("%w: field %q wants int64, got %T", ErrTypeMismatch, f.Name, v)
		}
		out := make([]byte, 8)
		bx.PutU64(out, uint64(i64))
		return out, nil

	case schema.TypeFloat:
		f32, ok := asFloat32(v)
		if !ok {
			return nil, fmt.Errorf("%w: field %q wants float32, got %T", ErrTypeMismatch, f.Name, v)
		}
		out := make([]byte, 4)
		bx.PutU32(out, math.Float32bits(f32))
		return out, nil

	case schema.TypeDouble:
		f64, ok := asFloat64(v)
		if !ok {
			return nil, fmt.Errorf("%w: field %q wants float64, got %T", ErrTypeMismatch, f.Name, v)
		}
		out := make([]byte, 8)
		bx.PutU64(out, math.Float64bits(f64))
		return out, nil

	case schema.TypeBinary:
		raw, ok := asBytes(v)
		if !ok {
			return nil, fmt.Errorf("%w: field %q wants binary/string, got %T", ErrTypeMismatch, f.Name, v)
		}
		out := make([]byte, 4+len(raw))
		bx.PutU32(out, uint32(len(raw)))
		copy(out[4:], raw)
		return out, nil

	case schema.TypeInt96:
		raw, ok := asBytes(v)
		if !ok || len(raw) > 12 {
			return nil, fmt.Errorf("%w: field %q wants up to 12 raw bytes, got %T", ErrTypeMismatch, f.Name, v)
		}
		out := make([]byte, 12)
		copy(out, raw)
		return out, nil

	case schema.TypeFixedLenByteArray:
		raw, ok := asBytes(v)
		if !ok {
			return nil, fmt.Errorf("%w: field %q wants raw bytes, got %T", ErrTypeMismatch, f.Name, v)
		}
		out := make([]byte, 4+len(raw))
		bx.PutU32(out, uint32(len(raw)))
		copy(out[4:], raw)
		return out, nil

	default:
		return nil, fmt.Errorf("parquet: field %q has unknown type tag %d", f.Name, f.Type)
	}
}

func decodeSingle(f schema.Field, b []byte) (any, int, error) {
	switch f.Type {
	case schema.TypeBoolean:
		if len(b) < 1 {
			return nil, 0, fmt.Errorf("parquet: truncated bool for %q", f.Name)
		}
		return b[0] != 0, 1, nil

	case schema.TypeInt32:
		if len(b) < 4 {
			return nil, 0, fmt.Errorf("parquet: truncated int32 for %q", f.Name)
		}
		return int32(bx.U32At(b, 0)), 4, nil

	case schema.TypeInt64:
		if len(b) < 8 {
			return nil, 0, fmt.Errorf("parquet: truncated int64 for %q", f.Name)
		}
		return int64(bx.U64At(b, 0)), 8, nil

	case schema.TypeFloat:
		if len(b) < 4 {
			return nil, 0, fmt.Errorf("parquet: truncated float for %q", f.Name)
		}
		return math.Float32frombits(bx.U32At(b, 0)), 4, nil

	case schema.TypeDouble:
		if len(b) < 8 {
			return nil, 0, fmt.Errorf("parquet: truncated double for %q", f.Name)
		}
		return math.Float64frombits(bx.U64At(b, 0)), 8, nil

	case schema.TypeBinary, schema.TypeFixedLenByteArray:
		if len(b) < 4 {
			return nil, 0, fmt.Errorf("parquet: truncated binary length for %q", f.Name)
		}
		n := int(bx.U32At(b, 0))
		if len(b) < 4+n {
			return nil, 0, fmt.Errorf("parquet: truncated binary payload for %q", f.Name)
		}
		raw := append([]byte(nil), b[4:4+n]...)
		if f.HasAnnotation && f.Annotation == schema.AnnotationUTF8 {
			return string(raw), 4 + n, nil
		}
		return raw, 4 + n, nil

	case schema.TypeInt96:
		if len(b) < 12 {
			return nil, 0, fmt.Errorf("parquet: truncated int96 for %q", f.Name)
		}
		return append([]byte(nil), b[:12]...), 12, nil

	default:
		return nil, 0, fmt.Errorf("parquet: field %q has unknown type tag %d", f.Name, f.Type)
	}
}

func asInt32(v any) (int32, bool) {
	switch x := v.(type) {
	case int32:
		return x, true
	case int:
		return int32(x), true
	case int64:
		return int32(x), true
	default:
		return 0, false
	}
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	default:
		return 0, false
	}
}

func asFloat32(v any) (float32, bool) {
	switch x := v.(type) {
	case float32:
		return x, true
	case float64:
		return float32(x), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	default:
		return 0, false
	}
}

func asBytes(v any) ([]byte, bool) {
	switch x := v.(type) {
	case []byte:
		return x, true
	case string:
		return []byte(x), true
	default:
		return nil, false
	}
}

// compareEncoded orders two single-value encodings for statistics min/max
// tracking. Fixed-width numeric types compare as signed big-endian
// integers or IEEE-754 floats; everything else (booleans, fixed 12-byte
// int96 values, and binary/string/fixed byte arrays, whose encodings carry
// a length prefix) falls back to unsigned byte-lexicographic order, which is adequate for descriptive
// statistics that are never used for predicate pushdown.
func compareEncoded(typeTag uint32, a, b []byte) int {
	switch typeTag {
	case schema.TypeInt32:
		return int(int32(bx.U32At(a, 0))) - int(int32(bx.U32At(b, 0)))
	case schema.TypeInt64:
		ai, bi := int64(bx.U64At(a, 0)), int64(bx.U64At(b, 0))
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		default:
			return 0
		}
	case schema.TypeFloat:
		af, bf := math.Float32frombits(bx.U32At(a, 0)), math.Float32frombits(bx.U32At(b, 0))
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	case schema.TypeDouble:
		af, bf := math.Float64frombits(bx.U64At(a, 0)), math.Float64frombits(bx.U64At(b, 0))
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	default:
		return bytes.Compare(a, b)
	}
}
