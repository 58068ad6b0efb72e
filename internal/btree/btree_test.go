package btree

import (
	"bytes"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/jparque/internal/storage"
)

func openTestEngine(t *testing.T) *Engine {
	t.Helper()
	pm, err := storage.Open(filepath.Join(t.TempDir(), "db"), storage.DefaultPageSize)
	require.NoError(t, err)
	t.Cleanup(func() { pm.Close() })
	e, err := Open(pm)
	require.NoError(t, err)
	return e
}

func TestWriteReadRoundTrip(t *testing.T) {
	t.Parallel()
	e := openTestEngine(t)
	require.NoError(t, e.Write([]byte("alice"), map[string]any{"age": int32(30)}))

	got, ok, err := e.Read([]byte("alice"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int32(30), got["age"])
}

func TestReadMissingKey(t *testing.T) {
	t.Parallel()
	e := openTestEngine(t)
	_, ok, err := e.Read([]byte("nobody"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestScanRangeWithProjection(t *testing.T) {
	t.Parallel()
	e := openTestEngine(t)
	for _, k := range []string{"a", "b", "c", "d"} {
		require.NoError(t, e.Write([]byte(k), map[string]any{"v": k, "extra": int32(1)}))
	}

	recs, err := e.Scan([]byte("b"), []byte("c"), []string{"v"})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, "b", recs[0].Fields["v"])
	require.Equal(t, "c", recs[1].Fields["v"])
	_, hasExtra := recs[0].Fields["extra"]
	require.False(t, hasExtra)
}

func TestSplitsUnderLoad(t *testing.T) {
	t.Parallel()
	e := openTestEngine(t)
	for i := 0; i < 1000; i++ {
		key := []byte(fmt.Sprintf("key-%05d", i))
		require.NoError(t, e.Write(key, map[string]any{"i": int64(i)}))
	}

	stats, err := e.Stats()
	require.NoError(t, err)
	require.Greater(t, stats.Height, 1, "expected tree to grow past a single leaf under load")
	require.Greater(t, stats.PageCount, uint64(1))

	for i := 0; i < 1000; i += 97 {
		key := []byte(fmt.Sprintf("key-%05d", i))
		got, ok, err := e.Read(key)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, int64(i), got["i"])
	}
}

func TestOverflowValueRoundTripOverwriteDelete(t *testing.T) {
	t.Parallel()
	e := openTestEngine(t)
	big := bytes.Repeat([]byte("y"), 1_200_000)
	require.NoError(t, e.Write([]byte("blob"), map[string]any{"data": string(big)}))

	got, ok, err := e.Read([]byte("blob"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, string(big), got["data"])

	smaller := []byte("small")
	require.NoError(t, e.Write([]byte("blob"), map[string]any{"data": string(smaller)}))
	got, ok, err = e.Read([]byte("blob"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "small", got["data"])

	require.NoError(t, e.Delete([]byte("blob")))
	_, ok, err = e.Read([]byte("blob"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDeleteIsNoopForMissingKey(t *testing.T) {
	t.Parallel()
	e := openTestEngine(t)
	require.NoError(t, e.Delete([]byte("missing")))
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Parallel()
	e := openTestEngine(t)
	require.NoError(t, e.Write([]byte("k"), map[string]any{"v": int32(1)}))
	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
}
