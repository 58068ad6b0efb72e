package parquet

import (
	"fmt"

	"github.com/tuannm99/jparque/internal/bx"
)

// reader is a small sequential cursor over an in-memory byte slice, used
// to parse the page/chunk/metadata structures without scattering bounds
// checks across every call site.
type reader struct {
	buf []byte
	off int
}

func newReader(buf []byte) *reader { return &reader{buf: buf} }

func (r *reader) readByte() (byte, error) {
	if r.off+1 > len(r.buf) {
		return 0, fmt.Errorf("parquet: truncated read (byte) at offset %d", r.off)
	}
	b := r.buf[r.off]
	r.off++
	return b, nil
}

func (r *reader) readU32() (uint32, error) {
	if r.off+4 > len(r.buf) {
		return 0, fmt.Errorf("parquet: truncated read (u32) at offset %d", r.off)
	}
	v := bx.U32At(r.buf, r.off)
	r.off += 4
	return v, nil
}

func (r *reader) readU64() (uint64, error) {
	if r.off+8 > len(r.buf) {
		return 0, fmt.Errorf("parquet: truncated read (u64) at offset %d", r.off)
	}
	v := bx.U64At(r.buf, r.off)
	r.off += 8
	return v, nil
}

func (r *reader) readN(n int) ([]byte, error) {
	if n < 0 || r.off+n > len(r.buf) {
		return nil, fmt.Errorf("parquet: truncated read (%d bytes) at offset %d", n, r.off)
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) readU32Prefixed() ([]byte, error) {
	n, err := r.readU32()
	if err != nil {
		return nil, err
	}
	return r.readN(int(n))
}

func (r *reader) readString() (string, error) {
	b, err := r.readU32Prefixed()
	if err != nil {
		return "", err
	}
	return string(b), nil
}
