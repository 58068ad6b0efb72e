package parquet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/jparque/internal/compress"
	"github.com/tuannm99/jparque/internal/schema"
)

func testSchema() *schema.MessageType {
	return &schema.MessageType{
		Name:    "person",
		Version: 1,
		Fields: []schema.Field{
			{ID: 0, Name: "name", Type: schema.TypeBinary, Repetition: schema.Required, HasAnnotation: true, Annotation: schema.AnnotationUTF8},
			{ID: 1, Name: "age", Type: schema.TypeInt32, Repetition: schema.Required},
			{ID: 2, Name: "nickname", Type: schema.TypeBinary, Repetition: schema.Optional, HasAnnotation: true, Annotation: schema.AnnotationUTF8},
			{ID: 3, Name: "scores", Type: schema.TypeInt32, Repetition: schema.Repeated},
		},
	}
}

func TestWriteReadRoundTripAllCodecs(t *testing.T) {
	t.Parallel()
	records := []map[string]any{
		{"name": "Ada", "age": int32(36), "nickname": "Countess", "scores": []any{int32(1), int32(2), int32(3)}},
		{"name": "Grace", "age": int32(85), "scores": []any{}},
	}

	for _, tag := range []uint32{compress.Uncompressed, compress.Snappy, compress.Gzip, compress.Zstd} {
		tag := tag
		t.Run("", func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "data.par1")
			require.NoError(t, WriteFile(path, testSchema(), records, tag))

			msg, got, err := ReadFile(path)
			require.NoError(t, err)
			require.Equal(t, "person", msg.Name)
			require.Equal(t, 1, msg.Version)
			require.Len(t, msg.Fields, 4)
			require.Len(t, got, 2)

			require.Equal(t, "Ada", got[0]["name"])
			require.Equal(t, int32(36), got[0]["age"])
			require.Equal(t, "Countess", got[0]["nickname"])
			require.Equal(t, []any{int32(1), int32(2), int32(3)}, got[0]["scores"])

			require.Equal(t, "Grace", got[1]["name"])
			_, hasNickname := got[1]["nickname"]
			require.False(t, hasNickname)
		})
	}
}

func TestWriteRejectsMissingRequiredField(t *testing.T) {
	t.Parallel()
	records := []map[string]any{{"age": int32(1)}} // missing required "name"
	path := filepath.Join(t.TempDir(), "data.par1")
	err := WriteFile(path, testSchema(), records, compress.Snappy)
	require.ErrorIs(t, err, ErrMissingRequiredField)
}

func TestWriteRejectsWrongScalarType(t *testing.T) {
	t.Parallel()
	records := []map[string]any{{"name": "Ada", "age": "not a number"}}
	path := filepath.Join(t.TempDir(), "data.par1")
	err := WriteFile(path, testSchema(), records, compress.Snappy)
	require.ErrorIs(t, err, ErrTypeMismatch)
}

func TestReadRejectsBadMagic(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "bad.par1")
	require.NoError(t, os.WriteFile(path, []byte("not a parquet file at all"), 0o644))
	_, _, err := ReadFile(path)
	require.ErrorIs(t, err, ErrBadMagic)
}
