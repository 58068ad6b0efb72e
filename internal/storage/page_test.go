package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPagePutFindDelete(t *testing.T) {
	t.Parallel()
	buf := make([]byte, DefaultPageSize)
	p := InitPage(buf, 1, FlagLeaf)

	require.NoError(t, p.PutElement([]byte("b"), []byte("2"), false))
	require.NoError(t, p.PutElement([]byte("a"), []byte("1"), false))
	require.NoError(t, p.PutElement([]byte("c"), []byte("3"), false))
	require.Equal(t, 3, p.Count())

	e0, ok := p.Element(0)
	require.True(t, ok)
	require.Equal(t, "a", string(e0.Key))
	e1, _ := p.Element(1)
	require.Equal(t, "b", string(e1.Key))
	e2, _ := p.Element(2)
	require.Equal(t, "c", string(e2.Key))

	found, ok := p.Find([]byte("b"))
	require.True(t, ok)
	require.Equal(t, "2", string(found.Value))

	_, ok = p.Find([]byte("missing"))
	require.False(t, ok)

	removed, ok := p.DeleteElement([]byte("b"))
	require.True(t, ok)
	require.Equal(t, "2", string(removed.Value))
	require.Equal(t, 2, p.Count())
	_, ok = p.Find([]byte("b"))
	require.False(t, ok)
}

func TestPagePutElementUpdateEqualLength(t *testing.T) {
	t.Parallel()
	buf := make([]byte, DefaultPageSize)
	p := InitPage(buf, 1, FlagLeaf)
	require.NoError(t, p.PutElement([]byte("k"), []byte("aaa"), false))
	require.NoError(t, p.PutElement([]byte("k"), []byte("bbb"), false))
	e, ok := p.Find([]byte("k"))
	require.True(t, ok)
	require.Equal(t, "bbb", string(e.Value))
	require.Equal(t, 1, p.Count())
}

func TestPagePutElementDifferentLengthRejected(t *testing.T) {
	t.Parallel()
	buf := make([]byte, DefaultPageSize)
	p := InitPage(buf, 1, FlagLeaf)
	require.NoError(t, p.PutElement([]byte("k"), []byte("aaa"), false))
	err := p.PutElement([]byte("k"), []byte("bbbb"), false)
	require.ErrorIs(t, err, ErrKeyLenMismatch)
}

func TestPagePutElementFullReturnsErrPageFull(t *testing.T) {
	t.Parallel()
	buf := make([]byte, HeaderSize+SlotSize+32)
	p := InitPage(buf, 1, FlagLeaf)
	require.NoError(t, p.PutElement([]byte("k1"), make([]byte, 4), false))
	err := p.PutElement([]byte("k2"), make([]byte, 4), false)
	require.ErrorIs(t, err, ErrPageFull)
}

func TestPageRebuild(t *testing.T) {
	t.Parallel()
	buf := make([]byte, DefaultPageSize)
	p := InitPage(buf, 1, FlagLeaf)
	require.NoError(t, p.PutElement([]byte("a"), []byte("1"), false))
	require.NoError(t, p.PutElement([]byte("b"), []byte("2"), false))
	_, ok := p.DeleteElement([]byte("a"))
	require.True(t, ok)

	entries := []Element{{Key: []byte("x"), Value: []byte("99")}}
	require.NoError(t, p.Rebuild(1, FlagLeaf, entries))
	require.Equal(t, 1, p.Count())
	e, ok := p.Find([]byte("x"))
	require.True(t, ok)
	require.Equal(t, "99", string(e.Value))
}

func TestLeftmostChildRoundTrip(t *testing.T) {
	t.Parallel()
	buf := make([]byte, DefaultPageSize)
	p := InitPage(buf, 1, FlagBranch)
	p.SetLeftmostChild(42)
	require.Equal(t, uint64(42), p.LeftmostChild())
}
