package storage

import (
	"fmt"

	"github.com/tuannm99/jparque/internal/bx"
)

// Page is a view over a fixed-size byte region laid out as a slotted
// container:
//
//	+------------------+ 0
//	| id(8) flags(2)   |
//	| count(2) ovf(4)  |  <- 16-byte header
//	+------------------+
//	| slot directory   |  <- grows forward, 16 bytes/slot
//	|   ...            |
//	+------------------+ <- lowest used payload byte
//	| value | key      |  <- payloads grow backward
//	|   ...            |
//	+------------------+ len(buf)
//
// A Page never owns its backing storage; it is a borrowed slice produced
// by a PageManager for the duration of one operation. Holding a *Page past
// the call that produced it is a bug: the manager may reuse or evict the
// underlying buffer.
type Page struct {
	buf []byte
}

// Element is a read-only handle over one directory entry.
type Element struct {
	Key         []byte
	Value       []byte
	Position    uint32
	ElementFlag uint32
	HasOverflow bool
}

// NewPageView wraps an existing buffer without touching its contents.
func NewPageView(buf []byte) *Page {
	return &Page{buf: buf}
}

// InitPage zeroes buf and writes a fresh header for the given id/flags.
func InitPage(buf []byte, id uint64, flags Flags) *Page {
	for i := range buf {
		buf[i] = 0
	}
	p := &Page{buf: buf}
	p.SetID(id)
	p.SetFlags(flags)
	p.SetCount(0)
	p.SetOverflowSucc(0)
	return p
}

func (p *Page) Size() int { return len(p.buf) }

func (p *Page) ID() uint64        { return bx.U64At(p.buf, 0) }
func (p *Page) SetID(id uint64)   { bx.PutU64At(p.buf, 0, id) }
func (p *Page) Flags() Flags      { return Flags(bx.U16At(p.buf, 8)) }
func (p *Page) SetFlags(f Flags)  { bx.PutU16At(p.buf, 8, uint16(f)) }
func (p *Page) Count() int        { return int(bx.U16At(p.buf, 10)) }
func (p *Page) setCount(n int)    { bx.PutU16At(p.buf, 10, uint16(n)) }
func (p *Page) OverflowSucc() uint32 {
	return bx.U32At(p.buf, 12)
}
func (p *Page) SetOverflowSucc(id uint32) { bx.PutU32At(p.buf, 12, id) }

// Overflow pages repurpose the element-count and successor header fields
// to carry this chunk's payload length and the next chain link.
func (p *Page) OverflowPayloadLen() int         { return p.Count() }
func (p *Page) SetOverflowPayloadLen(n int)     { p.setCount(n) }
func (p *Page) OverflowNext() uint32            { return p.OverflowSucc() }
func (p *Page) SetOverflowNext(id uint32)       { p.SetOverflowSucc(id) }
func (p *Page) OverflowPayload() []byte         { return p.buf[HeaderSize:] }

func (p *Page) IsLeaf() bool     { return p.Flags()&FlagLeaf != 0 }
func (p *Page) IsBranch() bool   { return p.Flags()&FlagBranch != 0 }
func (p *Page) IsMeta() bool     { return p.Flags()&FlagMeta != 0 }
func (p *Page) IsFreelist() bool { return p.Flags()&FlagFreelist != 0 }
func (p *Page) IsOverflow() bool { return p.Flags()&FlagOverflow != 0 }

func (p *Page) slotOffset(i int) int { return HeaderSize + i*SlotSize }

func (p *Page) readSlot(i int) (position, elemFlags, keySize, valueSize uint32) {
	o := p.slotOffset(i)
	return bx.U32At(p.buf, o),
		bx.U32At(p.buf, o+4),
		bx.U32At(p.buf, o+8),
		bx.U32At(p.buf, o+12)
}

func (p *Page) writeSlot(i int, position, elemFlags, keySize, valueSize uint32) {
	o := p.slotOffset(i)
	bx.PutU32At(p.buf, o, position)
	bx.PutU32At(p.buf, o+4, elemFlags)
	bx.PutU32At(p.buf, o+8, keySize)
	bx.PutU32At(p.buf, o+12, valueSize)
}

// Element returns the i-th directory entry in insertion-sorted-by-key
// order, or false if i is out of range.
func (p *Page) Element(i int) (Element, bool) {
	if i < 0 || i >= p.Count() {
		return Element{}, false
	}
	position, elemFlags, keySize, valueSize := p.readSlot(i)
	key := p.buf[position : position+keySize]
	value := p.buf[position-valueSize : position]
	return Element{
		Key:         key,
		Value:       value,
		Position:    position,
		ElementFlag: elemFlags,
		HasOverflow: elemFlags&ElemFlagOverflow != 0,
	}, true
}

// lowestUsed returns the lowest byte offset currently occupied by a
// payload, or len(buf) if the page holds no elements yet.
func (p *Page) lowestUsed() int {
	lowest := len(p.buf)
	for i := 0; i < p.Count(); i++ {
		position, _, _, valueSize := p.readSlot(i)
		start := int(position) - int(valueSize)
		if start < lowest {
			lowest = start
		}
	}
	return lowest
}

// FreeSpace returns the number of unused bytes between the end of the
// directory and the lowest payload byte.
func (p *Page) FreeSpace() int {
	dirEnd := p.slotOffset(p.Count())
	return p.lowestUsed() - dirEnd
}

// findKey returns the index of key if present, and the insertion index
// that keeps the directory sorted ascending by key otherwise.
func (p *Page) findKey(key []byte) (idx int, found bool) {
	n := p.Count()
	lo, hi := 0, n
	for lo < hi {
		mid := (lo + hi) / 2
		elem, _ := p.Element(mid)
		c := bx.CompareBytes(elem.Key, key)
		switch {
		case c == 0:
			return mid, true
		case c < 0:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return lo, false
}

// Find looks up key via binary search and returns its element if present.
func (p *Page) Find(key []byte) (Element, bool) {
	idx, found := p.findKey(key)
	if !found {
		return Element{}, false
	}
	return p.Element(idx)
}

// PutElement inserts or updates (key, value). When the key already exists
// its stored value must have the same length as value (ErrKeyLenMismatch
// otherwise); callers that need a different-length update must delete and
// re-insert. When the key is new, ordering is preserved by inserting at
// the binary-search position. Returns ErrPageFull if there isn't room.
func (p *Page) PutElement(key, value []byte, hasOverflow bool) error {
	idx, found := p.findKey(key)

	elemFlags := uint32(0)
	if hasOverflow {
		elemFlags = ElemFlagOverflow
	}

	if found {
		position, _, keySize, valueSize := p.readSlot(idx)
		if int(valueSize) != len(value) {
			return ErrKeyLenMismatch
		}
		copy(p.buf[position-valueSize:position], value)
		_ = keySize
		p.writeSlot(idx, position, elemFlags, uint32(len(key)), uint32(len(value)))
		return nil
	}

	need := SlotSize + len(key) + len(value)
	lowest := p.lowestUsed()
	freeSpace := lowest - p.slotOffset(p.Count())
	if freeSpace < need+safetyMargin {
		return ErrPageFull
	}

	// Shift directory entries at idx and beyond right by one slot.
	n := p.Count()
	for i := n; i > idx; i-- {
		position, ef, ks, vs := p.readSlot(i - 1)
		p.writeSlot(i, position, ef, ks, vs)
	}

	newPos := lowest - len(key)
	copy(p.buf[newPos:newPos+len(key)], key)
	copy(p.buf[newPos-len(value):newPos], value)
	p.writeSlot(idx, uint32(newPos), elemFlags, uint32(len(key)), uint32(len(value)))
	p.setCount(n + 1)
	return nil
}

// DeleteElement removes the entry at key, if present, compacting the
// directory. It does not reclaim the payload bytes it leaves behind; the
// caller is expected to rebuild the page (see btree delete) when that
// matters.
func (p *Page) DeleteElement(key []byte) (Element, bool) {
	idx, found := p.findKey(key)
	if !found {
		return Element{}, false
	}
	removed, _ := p.Element(idx)
	// Copy out removed payload bytes before they're shifted over.
	keyCopy := append([]byte(nil), removed.Key...)
	valCopy := append([]byte(nil), removed.Value...)

	n := p.Count()
	for i := idx; i < n-1; i++ {
		position, ef, ks, vs := p.readSlot(i + 1)
		p.writeSlot(i, position, ef, ks, vs)
	}
	p.setCount(n - 1)
	return Element{Key: keyCopy, Value: valCopy, HasOverflow: removed.HasOverflow}, true
}

// Rebuild clears the page and reinserts entries in the given order,
// compacting payload fragmentation left behind by updates and deletes.
// Used by the B+Tree's leaf split/delete paths.
func (p *Page) Rebuild(id uint64, flags Flags, entries []Element) error {
	InitPage(p.buf, id, flags)
	for _, e := range entries {
		if err := p.PutElement(e.Key, e.Value, e.HasOverflow); err != nil {
			return fmt.Errorf("storage: rebuild page %d: %w", id, err)
		}
	}
	return nil
}

// ResetAs reinitializes the page in place as a fresh, empty page of the
// given id/flags, discarding all prior content. Used when a *Page obtained
// from a manager is repurposed (e.g. turning a freshly allocated page into
// a new B+Tree root).
func (p *Page) ResetAs(id uint64, flags Flags) { InitPage(p.buf, id, flags) }

// LeftmostChild and SetLeftmostChild repurpose the overflow-successor
// header field on BRANCH pages to hold the id of the child covering keys
// smaller than every separator in the directory. This mirrors how OVERFLOW
// pages reuse the same field for their chain link; it does cap a branch's
// leftmost child id to 32 bits, which is immaterial at the page counts this
// store targets.
func (p *Page) LeftmostChild() uint64        { return uint64(p.OverflowSucc()) }
func (p *Page) SetLeftmostChild(id uint64)   { p.SetOverflowSucc(uint32(id)) }

// FitsInline reports whether a value of valueLen bytes stored under key
// would fit in this page without spilling to an overflow chain, leaving
// the same safety margin PutElement itself enforces.
func (p *Page) FitsInline(key []byte, valueLen int) bool {
	need := SlotSize + len(key) + valueLen
	return p.FreeSpace() >= need+safetyMargin
}

func (p *Page) DebugString() string {
	s := fmt.Sprintf("Page{id=%d flags=%x count=%d free=%d}", p.ID(), p.Flags(), p.Count(), p.FreeSpace())
	return s
}
