package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeValuesRoundTrip(t *testing.T) {
	t.Parallel()
	fields := map[string]FieldValue{
		"a": Int32Value(7),
		"b": Int64Value(-99),
		"c": Float32Value(1.5),
		"d": Float64Value(2.25),
		"e": BoolValue(true),
		"f": StringValue("hello"),
		"g": NullValue(),
	}
	encoded := EncodeValues(fields)
	decoded := DecodeValues(encoded)
	require.Equal(t, len(fields), len(decoded))
	for k, v := range fields {
		require.Equal(t, v, decoded[k])
	}
}

func TestDecodeValuesTruncatedInputIsLenient(t *testing.T) {
	t.Parallel()
	encoded := EncodeValues(map[string]FieldValue{"a": Int32Value(1), "b": Int64Value(2)})
	truncated := encoded[:len(encoded)-3]
	decoded := DecodeValues(truncated)
	require.LessOrEqual(t, len(decoded), 2)
}

func TestFieldValueOfCoercesUnsupportedToString(t *testing.T) {
	t.Parallel()
	type custom struct{ N int }
	v := FieldValueOf(custom{N: 3})
	require.Equal(t, TagString, v.Tag)
	require.Equal(t, "{3}", v.Str)
}

func TestEncodeRecordFieldsIsDeterministic(t *testing.T) {
	t.Parallel()
	fields := map[string]any{"z": int32(1), "a": "two", "m": int64(3)}
	a := EncodeRecordFields(fields)
	b := EncodeRecordFields(fields)
	require.Equal(t, a, b)

	decoded := DecodeRecordFields(a)
	require.Equal(t, int32(1), decoded["z"])
	require.Equal(t, "two", decoded["a"])
	require.Equal(t, int64(3), decoded["m"])
}
