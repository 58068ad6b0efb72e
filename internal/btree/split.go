package btree

import (
	"errors"
	"sort"

	"github.com/tuannm99/jparque/internal/bx"
	"github.com/tuannm99/jparque/internal/storage"
)

// splitUp is returned up the recursion when a page split happened and the
// caller's parent needs a new directory entry (sepKey -> childID).
type splitUp struct {
	sepKey  []byte
	childID uint64
}

// insertAt recursively descends to the leaf holding key, inserts/updates
// it, and propagates any resulting split back up the call stack. A nil
// *splitUp means no structural change reached this level.
func (t *Engine) insertAt(pageID uint64, key, valueBytes []byte) (*splitUp, error) {
	page, err := t.pm.ReadPage(pageID)
	if err != nil {
		return nil, err
	}

	if page.IsLeaf() {
		return t.insertLeaf(page, key, valueBytes)
	}
	if !page.IsBranch() {
		return nil, storage.ErrCorrupted
	}

	childID := descendBranch(page, key)
	up, err := t.insertAt(childID, key, valueBytes)
	if err != nil || up == nil {
		return nil, err
	}

	// Re-read: the recursive call may have evicted/refreshed page in cache.
	page, err = t.pm.ReadPage(pageID)
	if err != nil {
		return nil, err
	}
	return t.insertBranch(page, up.sepKey, up.childID)
}

// insertLeaf implements spec.md §4.4's leaf insert algorithm: free any
// existing overflow chain for key, remove the old directory entry (so a
// length-changing update never hits Page.PutElement's equal-length
// restriction), decide inline vs. overflow for the new value, and put it.
// A full page triggers a split.
func (t *Engine) insertLeaf(page *storage.Page, key, valueBytes []byte) (*splitUp, error) {
	if existing, ok := page.Find(key); ok {
		if existing.HasOverflow {
			if err := storage.FreeOverflowChain(t.pm, decodeChildID(existing.Value)); err != nil {
				return nil, err
			}
		}
		page.DeleteElement(key)
	}

	toStore := valueBytes
	hasOverflow := false
	if !page.FitsInline(key, len(valueBytes)) {
		head, err := storage.WriteOverflowChain(t.pm, valueBytes)
		if err != nil {
			return nil, err
		}
		toStore = encodeChildID(head)
		hasOverflow = true
	}

	if err := page.PutElement(key, toStore, hasOverflow); err == nil {
		return nil, t.pm.WritePage(page)
	} else if !errors.Is(err, storage.ErrPageFull) {
		return nil, err
	}

	return t.splitLeaf(page, key, toStore, hasOverflow)
}

// splitLeaf partitions this leaf's entries plus the new one across this
// page and a freshly allocated sibling, promoting the right sibling's
// first key as the separator (spec.md's branch-split resolution: the
// promoted separator is always the first key of the right sibling, not a
// copy removed from the parent).
func (t *Engine) splitLeaf(page *storage.Page, newKey, newValue []byte, newHasOverflow bool) (*splitUp, error) {
	n := page.Count()
	entries := make([]storage.Element, 0, n+1)
	for i := 0; i < n; i++ {
		e, _ := page.Element(i)
		entries = append(entries, storage.Element{
			Key: append([]byte(nil), e.Key...), Value: append([]byte(nil), e.Value...), HasOverflow: e.HasOverflow,
		})
	}
	entries = append(entries, storage.Element{Key: newKey, Value: newValue, HasOverflow: newHasOverflow})
	sort.Slice(entries, func(i, j int) bool { return bx.CompareBytes(entries[i].Key, entries[j].Key) < 0 })

	if len(entries) < 2 {
		return nil, ErrCapacityExceeded
	}

	mid := len(entries) / 2
	left, right := entries[:mid], entries[mid:]

	pageID := page.ID()
	if err := page.Rebuild(pageID, storage.FlagLeaf, left); err != nil {
		return nil, err
	}
	if err := t.pm.WritePage(page); err != nil {
		return nil, err
	}

	rightID, err := t.pm.AllocatePage()
	if err != nil {
		return nil, err
	}
	rightPage, err := t.pm.ReadPage(rightID)
	if err != nil {
		return nil, err
	}
	if err := rightPage.Rebuild(rightID, storage.FlagLeaf, right); err != nil {
		return nil, err
	}
	if err := t.pm.WritePage(rightPage); err != nil {
		return nil, err
	}

	return &splitUp{sepKey: append([]byte(nil), right[0].Key...), childID: rightID}, nil
}

// insertBranch adds a new (separator, child) entry to a branch page,
// splitting it if full.
func (t *Engine) insertBranch(page *storage.Page, sepKey []byte, childID uint64) (*splitUp, error) {
	if err := page.PutElement(sepKey, encodeChildID(childID), false); err == nil {
		return nil, t.pm.WritePage(page)
	} else if !errors.Is(err, storage.ErrPageFull) {
		return nil, err
	}
	return t.splitBranch(page, sepKey, childID)
}

// branchChild is an in-memory (separator, child) pair; the leftmost child
// of a branch has no separator of its own (hasKey == false).
type branchChild struct {
	key    []byte
	hasKey bool
	child  uint64
}

// splitBranch partitions a branch's children (leftmost child plus every
// directory entry) across this page and a new sibling. Unlike a leaf
// split, the middle entry's key is consumed: it is promoted to the parent
// as the new separator and does not remain in either resulting branch; its
// child becomes the right sibling's leftmost child.
func (t *Engine) splitBranch(page *storage.Page, newSepKey []byte, newChildID uint64) (*splitUp, error) {
	n := page.Count()
	virtual := make([]branchChild, 0, n+2)
	virtual = append(virtual, branchChild{child: page.LeftmostChild()})
	for i := 0; i < n; i++ {
		e, _ := page.Element(i)
		virtual = append(virtual, branchChild{key: append([]byte(nil), e.Key...), hasKey: true, child: decodeChildID(e.Value)})
	}

	tail := append(virtual[1:], branchChild{key: newSepKey, hasKey: true, child: newChildID})
	sort.Slice(tail, func(i, j int) bool { return bx.CompareBytes(tail[i].key, tail[j].key) < 0 })
	virtual = append(virtual[:1], tail...)

	total := len(virtual)
	if total < 3 {
		return nil, ErrCapacityExceeded
	}
	mid := total / 2

	left, promoted, right := virtual[:mid], virtual[mid], virtual[mid+1:]

	pageID := page.ID()
	leftEntries := make([]storage.Element, 0, len(left)-1)
	for _, c := range left[1:] {
		leftEntries = append(leftEntries, storage.Element{Key: c.key, Value: encodeChildID(c.child)})
	}
	if err := page.Rebuild(pageID, storage.FlagBranch, leftEntries); err != nil {
		return nil, err
	}
	page.SetLeftmostChild(left[0].child)
	if err := t.pm.WritePage(page); err != nil {
		return nil, err
	}

	rightID, err := t.pm.AllocatePage()
	if err != nil {
		return nil, err
	}
	rightPage, err := t.pm.ReadPage(rightID)
	if err != nil {
		return nil, err
	}
	rightEntries := make([]storage.Element, 0, len(right))
	for _, c := range right {
		rightEntries = append(rightEntries, storage.Element{Key: c.key, Value: encodeChildID(c.child)})
	}
	if err := rightPage.Rebuild(rightID, storage.FlagBranch, rightEntries); err != nil {
		return nil, err
	}
	rightPage.SetLeftmostChild(promoted.child)
	if err := t.pm.WritePage(rightPage); err != nil {
		return nil, err
	}

	return &splitUp{sepKey: promoted.key, childID: rightID}, nil
}
