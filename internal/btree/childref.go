package btree

import "github.com/tuannm99/jparque/internal/bx"

// Branch directory entries store an 8-byte big-endian child page id as
// their value; these two helpers are the only place that encoding is
// spelled out.
func encodeChildID(id uint64) []byte {
	b := make([]byte, 8)
	bx.PutU64(b, id)
	return b
}

func decodeChildID(b []byte) uint64 { return bx.U64(b) }
