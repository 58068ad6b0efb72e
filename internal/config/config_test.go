package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/jparque/internal/compress"
)

func TestLoadDefaultsOnly(t *testing.T) {
	t.Parallel()
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "./data", cfg.DataDir)
	require.Equal(t, uint32(compress.Snappy), cfg.CodecTag())
}

func TestLoadFromYAMLOverridesDefaults(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "jparque.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /var/lib/jparque
page_size: 8192
page_cache_size: 500
default_codec: zstd
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/var/lib/jparque", cfg.DataDir)
	require.Equal(t, 8192, cfg.PageSize)
	require.Equal(t, 500, cfg.PageCacheSize)
	require.Equal(t, uint32(compress.Zstd), cfg.CodecTag())
}

func TestCodecTagResolution(t *testing.T) {
	t.Parallel()
	cases := map[string]uint32{
		"uncompressed": compress.Uncompressed,
		"gzip":         compress.Gzip,
		"zstd":         compress.Zstd,
		"snappy":       compress.Snappy,
		"unknown-name": compress.Snappy,
	}
	for name, want := range cases {
		cfg := Config{DefaultCodec: name}
		require.Equal(t, want, cfg.CodecTag(), name)
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	t.Parallel()
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.Error(t, err)
}
