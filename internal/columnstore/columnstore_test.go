package columnstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/jparque/internal/compress"
	"github.com/tuannm99/jparque/internal/record"
	"github.com/tuannm99/jparque/internal/schema"
)

func testSchema() *schema.MessageType {
	return &schema.MessageType{
		Name: "event",
		Fields: []schema.Field{
			{Name: "kind", Type: schema.TypeBinary, Repetition: schema.Required, HasAnnotation: true, Annotation: schema.AnnotationUTF8},
			{Name: "value", Type: schema.TypeInt64, Repetition: schema.Required},
		},
	}
}

func TestWriteReadDelete(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "events.par1")
	s := Open(path, testSchema(), compress.Snappy)
	defer s.Close()

	require.NoError(t, s.Write([]byte("k1"), map[string]any{"kind": "click", "value": int64(1)}))
	got, ok, err := s.Read([]byte("k1"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "click", got["kind"])
	_, hasKey := got[keyField]
	require.False(t, hasKey)

	require.NoError(t, s.Delete([]byte("k1")))
	_, ok, err = s.Read([]byte("k1"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestWriteBatchAppliesAllRecords(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "events.par1")
	s := Open(path, testSchema(), compress.Snappy)
	defer s.Close()

	records := []record.Record{
		{Key: []byte("a"), Fields: map[string]any{"kind": "x", "value": int64(1)}},
		{Key: []byte("b"), Fields: map[string]any{"kind": "y", "value": int64(2)}},
	}
	require.NoError(t, s.WriteBatch(records))

	scanned, err := s.Scan([]byte("a"), nil, nil)
	require.NoError(t, err)
	require.Len(t, scanned, 2)
}

func TestScanRangeExclusiveEndAndProjection(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "events.par1")
	s := Open(path, testSchema(), compress.Snappy)
	defer s.Close()

	for i, k := range []string{"a", "b", "c"} {
		require.NoError(t, s.Write([]byte(k), map[string]any{"kind": k, "value": int64(i)}))
	}

	got, err := s.Scan([]byte("a"), []byte("c"), []string{"kind"})
	require.NoError(t, err)
	require.Len(t, got, 2) // [a, c) excludes c
	require.Equal(t, "a", got[0].Fields["kind"])
	require.Equal(t, "b", got[1].Fields["kind"])
	_, hasValue := got[0].Fields["value"]
	require.False(t, hasValue)
}

func TestPersistsAcrossReopen(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "events.par1")
	s := Open(path, testSchema(), compress.Snappy)
	require.NoError(t, s.Write([]byte("k"), map[string]any{"kind": "x", "value": int64(1)}))
	require.NoError(t, s.Close())

	s2 := Open(path, testSchema(), compress.Snappy)
	defer s2.Close()
	got, ok, err := s2.Read([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "x", got["kind"])
}
