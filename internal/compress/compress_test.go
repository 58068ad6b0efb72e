package compress

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompressorRoundTrip(t *testing.T) {
	t.Parallel()
	data := []byte("the quick brown fox jumps over the lazy dog, repeated for compressibility. " +
		"the quick brown fox jumps over the lazy dog, repeated for compressibility.")

	for _, tag := range []uint32{Uncompressed, Snappy, Gzip, Zstd} {
		tag := tag
		t.Run("", func(t *testing.T) {
			t.Parallel()
			c, err := New(tag)
			require.NoError(t, err)
			defer c.Close()
			require.Equal(t, tag, c.Tag())

			compressed, err := c.Compress(data)
			require.NoError(t, err)

			out, err := c.Decompress(compressed, len(data))
			require.NoError(t, err)
			require.Equal(t, data, out)
		})
	}
}

func TestUnsupportedCodecsReturnDistinctError(t *testing.T) {
	t.Parallel()
	for _, tag := range []uint32{LZO, Brotli, LZ4} {
		_, err := New(tag)
		require.ErrorIs(t, err, ErrNotSupported)
	}
}

func TestDecompressSizeMismatchRejected(t *testing.T) {
	t.Parallel()
	c, err := New(Uncompressed)
	require.NoError(t, err)
	defer c.Close()
	_, err = c.Decompress([]byte("abc"), 10)
	require.Error(t, err)
}
