package storage

import (
	"fmt"
	"math"
	"sort"

	"github.com/tuannm99/jparque/internal/bx"
)

// Value tags for the leaf-inline field map wire format (spec.md §4.3).
const (
	TagNull    uint8 = 0
	TagInt32   uint8 = 1
	TagInt64   uint8 = 2
	TagFloat32 uint8 = 3
	TagFloat64 uint8 = 4
	TagBool    uint8 = 5
	TagString  uint8 = 6
)

// FieldValue is the tagged sum type stored per field name in a record's
// value map. Exactly one of the typed fields is meaningful, selected by
// Tag; TagNull carries no payload.
type FieldValue struct {
	Tag    uint8
	Int32  int32
	Int64  int64
	Float32 float32
	Float64 float64
	Bool   bool
	Str    string
}

func NullValue() FieldValue             { return FieldValue{Tag: TagNull} }
func Int32Value(v int32) FieldValue     { return FieldValue{Tag: TagInt32, Int32: v} }
func Int64Value(v int64) FieldValue     { return FieldValue{Tag: TagInt64, Int64: v} }
func Float32Value(v float32) FieldValue { return FieldValue{Tag: TagFloat32, Float32: v} }
func Float64Value(v float64) FieldValue { return FieldValue{Tag: TagFloat64, Float64: v} }
func BoolValue(v bool) FieldValue       { return FieldValue{Tag: TagBool, Bool: v} }
func StringValue(v string) FieldValue   { return FieldValue{Tag: TagString, Str: v} }

// AsGo converts back to a plain Go value for the caller-facing Record API.
func (v FieldValue) AsGo() any {
	switch v.Tag {
	case TagNull:
		return nil
	case TagInt32:
		return v.Int32
	case TagInt64:
		return v.Int64
	case TagFloat32:
		return v.Float32
	case TagFloat64:
		return v.Float64
	case TagBool:
		return v.Bool
	case TagString:
		return v.Str
	default:
		return nil
	}
}

// FieldValueOf coerces an arbitrary Go value into a FieldValue. Unsupported
// types are coerced to their string form under TagString, as spec.md §4.3
// requires.
func FieldValueOf(v any) FieldValue {
	switch x := v.(type) {
	case nil:
		return NullValue()
	case FieldValue:
		return x
	case int32:
		return Int32Value(x)
	case int:
		return Int64Value(int64(x))
	case int64:
		return Int64Value(x)
	case float32:
		return Float32Value(x)
	case float64:
		return Float64Value(x)
	case bool:
		return BoolValue(x)
	case string:
		return StringValue(x)
	case []byte:
		return StringValue(string(x))
	default:
		return StringValue(fmt.Sprintf("%v", x))
	}
}

// EncodeValues serializes a field map to the tagged byte stream described
// in spec.md §4.3:
//
//	[u32 count] { [u32 keyLen][keyBytes][u8 tag][payload] }
//
// Entries whose key is empty are skipped (the resulting count reflects
// skipped entries). Map iteration order is not stable across calls, so
// callers that need deterministic bytes should sort keys before encoding;
// the B+Tree engine does so via EncodeValuesOrdered.
func EncodeValues(fields map[string]FieldValue) []byte {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == "" {
			continue
		}
		keys = append(keys, k)
	}
	return EncodeValuesOrdered(keys, fields)
}

// EncodeValuesOrdered encodes only the given keys, in the given order.
func EncodeValuesOrdered(keys []string, fields map[string]FieldValue) []byte {
	out := make([]byte, 4)
	count := 0
	for _, k := range keys {
		if k == "" {
			continue
		}
		v, ok := fields[k]
		if !ok {
			continue
		}
		out = appendU32(out, uint32(len(k)))
		out = append(out, k...)
		out = append(out, v.Tag)
		switch v.Tag {
		case TagNull:
		case TagInt32:
			out = appendU32(out, uint32(v.Int32))
		case TagInt64:
			out = appendU64(out, uint64(v.Int64))
		case TagFloat32:
			out = appendU32(out, math.Float32bits(v.Float32))
		case TagFloat64:
			out = appendU64(out, math.Float64bits(v.Float64))
		case TagBool:
			if v.Bool {
				out = append(out, 1)
			} else {
				out = append(out, 0)
			}
		case TagString:
			out = appendU32(out, uint32(len(v.Str)))
			out = append(out, v.Str...)
		}
		count++
	}
	bx.PutU32At(out, 0, uint32(count))
	return out
}

// EncodeRecordFields is the record-facing entry point: it accepts plain Go
// values (coerced via FieldValueOf) and encodes them in sorted key order,
// so that two calls with the same fields always produce identical bytes.
func EncodeRecordFields(fields map[string]any) []byte {
	keys := make([]string, 0, len(fields))
	fv := make(map[string]FieldValue, len(fields))
	for k, v := range fields {
		if k == "" {
			continue
		}
		keys = append(keys, k)
		fv[k] = FieldValueOf(v)
	}
	sort.Strings(keys)
	return EncodeValuesOrdered(keys, fv)
}

// DecodeRecordFields is the inverse of EncodeRecordFields, returning plain
// Go values rather than tagged FieldValues.
func DecodeRecordFields(b []byte) map[string]any {
	fv := DecodeValues(b)
	out := make(map[string]any, len(fv))
	for k, v := range fv {
		out[k] = v.AsGo()
	}
	return out
}

func appendU32(b []byte, v uint32) []byte {
	var tmp [4]byte
	bx.PutU32(tmp[:], v)
	return append(b, tmp[:]...)
}

func appendU64(b []byte, v uint64) []byte {
	var tmp [8]byte
	bx.PutU64(tmp[:], v)
	return append(b, tmp[:]...)
}

// DecodeValues parses the wire format produced by EncodeValues. It is
// intentionally lenient: malformed input (truncated lengths, bad tags)
// yields whatever was decoded successfully up to that point instead of an
// error, per spec.md §7 ("the store prefers availability over strictness
// for this particular boundary").
func DecodeValues(b []byte) map[string]FieldValue {
	out := make(map[string]FieldValue)
	if len(b) < 4 {
		return out
	}
	count := int(bx.U32At(b, 0))
	off := 4
	for i := 0; i < count; i++ {
		if off+4 > len(b) {
			return out
		}
		keyLen := int(bx.U32At(b, off))
		off += 4
		if keyLen < 0 || off+keyLen > len(b) {
			return out
		}
		key := string(b[off : off+keyLen])
		off += keyLen

		if off+1 > len(b) {
			return out
		}
		tag := b[off]
		off++

		switch tag {
		case TagNull:
			out[key] = NullValue()
		case TagInt32:
			if off+4 > len(b) {
				return out
			}
			out[key] = Int32Value(int32(bx.U32At(b, off)))
			off += 4
		case TagInt64:
			if off+8 > len(b) {
				return out
			}
			out[key] = Int64Value(int64(bx.U64At(b, off)))
			off += 8
		case TagFloat32:
			if off+4 > len(b) {
				return out
			}
			out[key] = Float32Value(math.Float32frombits(bx.U32At(b, off)))
			off += 4
		case TagFloat64:
			if off+8 > len(b) {
				return out
			}
			out[key] = Float64Value(math.Float64frombits(bx.U64At(b, off)))
			off += 8
		case TagBool:
			if off+1 > len(b) {
				return out
			}
			out[key] = BoolValue(b[off] != 0)
			off++
		case TagString:
			if off+4 > len(b) {
				return out
			}
			strLen := int(bx.U32At(b, off))
			off += 4
			if strLen < 0 || off+strLen > len(b) {
				return out
			}
			out[key] = StringValue(string(b[off : off+strLen]))
			off += strLen
		default:
			return out
		}
	}
	return out
}
