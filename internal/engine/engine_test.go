package engine

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/jparque/internal/btree"
	"github.com/tuannm99/jparque/internal/columnstore"
	"github.com/tuannm99/jparque/internal/compress"
	"github.com/tuannm99/jparque/internal/schema"
	"github.com/tuannm99/jparque/internal/storage"
)

// Both engines must satisfy StorageEngine; this is exercised (not just
// compiled) by driving each through the interface type directly.
func TestBTreeEngineSatisfiesStorageEngine(t *testing.T) {
	t.Parallel()
	pm, err := storage.Open(filepath.Join(t.TempDir(), "db"), storage.DefaultPageSize)
	require.NoError(t, err)
	t.Cleanup(func() { pm.Close() })

	bt, err := btree.Open(pm)
	require.NoError(t, err)

	var eng StorageEngine = bt
	require.NoError(t, eng.Write([]byte("k"), map[string]any{"v": int32(1)}))
	got, ok, err := eng.Read([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int32(1), got["v"])
	require.NoError(t, eng.Close())
}

func TestColumnStoreSatisfiesStorageEngine(t *testing.T) {
	t.Parallel()
	msg := &schema.MessageType{Fields: []schema.Field{{Name: "v", Type: schema.TypeInt64, Repetition: schema.Required}}}
	path := filepath.Join(t.TempDir(), "data.par1")

	var eng StorageEngine = columnstore.Open(path, msg, compress.Snappy)
	require.NoError(t, eng.Write([]byte("k"), map[string]any{"v": int64(1)}))
	got, ok, err := eng.Read([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1), got["v"])
	require.NoError(t, eng.Close())
}
