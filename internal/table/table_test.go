package table

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/jparque/internal/compress"
	"github.com/tuannm99/jparque/internal/config"
	"github.com/tuannm99/jparque/internal/schema"
	"github.com/tuannm99/jparque/internal/storage"
)

func testConfig() config.Config {
	return config.Config{
		PageSize:      storage.DefaultPageSize,
		PageCacheSize: storage.DefaultPageCacheSize,
		DefaultCodec:  "zstd",
	}
}

func TestOpenRoundTripsThroughStorageEngineInterface(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "db")

	eng, err := Open(path, testConfig())
	require.NoError(t, err)
	defer eng.Close()

	require.NoError(t, eng.Write([]byte("k"), map[string]any{"v": int32(1)}))
	got, ok, err := eng.Read([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int32(1), got["v"])
}

func TestOpenRejectsBadPageSize(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "db")
	cfg := testConfig()
	cfg.PageSize = 20 // below storage.HeaderSize+storage.SlotSize, must be rejected
	_, err := Open(path, cfg)
	require.Error(t, err)
}

func TestOpenColumnStoreUsesConfiguredCodec(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "data.par1")
	msg := &schema.MessageType{Fields: []schema.Field{{Name: "v", Type: schema.TypeInt64, Repetition: schema.Required}}}

	eng := OpenColumnStore(path, msg, testConfig())
	defer eng.Close()

	require.NoError(t, eng.Write([]byte("k"), map[string]any{"v": int64(1)}))
	got, ok, err := eng.Read([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1), got["v"])
	require.Equal(t, uint32(compress.Zstd), testConfig().CodecTag())
}
