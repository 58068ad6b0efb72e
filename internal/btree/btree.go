// Package btree implements the paged B+Tree key-value engine: a
// BoltDB-style single file of fixed-size pages, a binary-searched slotted
// directory per page (internal/storage.Page), and overflow chains for
// values too large to store inline.
package btree

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/tuannm99/jparque/internal/bx"
	"github.com/tuannm99/jparque/internal/record"
	"github.com/tuannm99/jparque/internal/storage"
)

// Engine is the B+Tree-backed StorageEngine. The zero value is not usable;
// construct with Open.
type Engine struct {
	pm *storage.PageManager

	// rootMu guards root: Write can replace it when a split grows a new
	// root, while Read/Scan/Stats only need a consistent snapshot to
	// descend from.
	rootMu sync.RWMutex
	root   uint64

	// writeMu serializes structural mutations (Write/Delete) so that two
	// concurrent inserts never both try to grow a new root from the same
	// stale root snapshot.
	writeMu sync.Mutex

	closed atomic.Bool
}

func (t *Engine) getRoot() uint64 {
	t.rootMu.RLock()
	defer t.rootMu.RUnlock()
	return t.root
}

func (t *Engine) setRoot(id uint64) {
	t.rootMu.Lock()
	defer t.rootMu.Unlock()
	t.root = id
}

// Stats reports coarse tree shape, useful for tests asserting that load
// actually forced splits (spec.md §8's "splits under load" scenario).
type Stats struct {
	Height    int
	PageCount uint64
}

// Open wires a B+Tree on top of an already-open PageManager. If the file
// has no root yet (brand new, or a prior root was found corrupt), a fresh
// leaf is allocated and recorded as the root.
func Open(pm *storage.PageManager) (*Engine, error) {
	rootID, err := pm.ReadRootID()
	if err != nil {
		return nil, err
	}

	if rootID != 0 {
		page, err := pm.ReadPage(rootID)
		if err != nil {
			return nil, err
		}
		if !page.IsLeaf() && !page.IsBranch() {
			slog.Warn("btree: root page is not a leaf or branch, reinitializing", "root", rootID)
			rootID = 0
		}
	}

	if rootID == 0 {
		id, err := pm.AllocatePage()
		if err != nil {
			return nil, err
		}
		page, err := pm.ReadPage(id)
		if err != nil {
			return nil, err
		}
		page.ResetAs(id, storage.FlagLeaf)
		if err := pm.WritePage(page); err != nil {
			return nil, err
		}
		if err := pm.WriteRootID(id); err != nil {
			return nil, err
		}
		rootID = id
		slog.Debug("btree.Open allocated new root", "root", rootID)
	}

	return &Engine{pm: pm, root: rootID}, nil
}

// descendBranch returns the child to follow for key: the last child whose
// separator is <= key, or the leftmost child if key is smaller than every
// separator.
func descendBranch(page *storage.Page, key []byte) uint64 {
	n := page.Count()
	idx := sort.Search(n, func(i int) bool {
		e, _ := page.Element(i)
		return bx.CompareBytes(e.Key, key) > 0
	})
	if idx == 0 {
		return page.LeftmostChild()
	}
	e, _ := page.Element(idx - 1)
	return decodeChildID(e.Value)
}

// findLeaf descends from the root to the leaf that would hold key.
func (t *Engine) findLeaf(key []byte) (uint64, error) {
	id := t.getRoot()
	for {
		page, err := t.pm.ReadPage(id)
		if err != nil {
			return 0, err
		}
		if page.IsLeaf() {
			return id, nil
		}
		if !page.IsBranch() {
			return 0, storage.ErrCorrupted
		}
		id = descendBranch(page, key)
	}
}

func (t *Engine) materialize(e storage.Element) ([]byte, error) {
	if !e.HasOverflow {
		return e.Value, nil
	}
	return storage.ReadOverflowChain(t.pm, decodeChildID(e.Value))
}

// Write encodes fields and inserts (key, fields), splitting pages and
// growing a new root as needed.
func (t *Engine) Write(key []byte, fields map[string]any) error {
	if t.closed.Load() {
		return storage.ErrClosed
	}
	if len(key) == 0 {
		return fmt.Errorf("btree: key must not be empty")
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	oldRoot := t.getRoot()
	encoded := storage.EncodeRecordFields(fields)
	up, err := t.insertAt(oldRoot, key, encoded)
	if err != nil {
		return err
	}
	if up == nil {
		return nil
	}

	newRootID, err := t.pm.AllocatePage()
	if err != nil {
		return err
	}
	rootPage, err := t.pm.ReadPage(newRootID)
	if err != nil {
		return err
	}
	rootPage.ResetAs(newRootID, storage.FlagBranch)
	rootPage.SetLeftmostChild(oldRoot)
	if err := rootPage.PutElement(up.sepKey, encodeChildID(up.childID), false); err != nil {
		return fmt.Errorf("btree: write new root: %w", err)
	}
	if err := t.pm.WritePage(rootPage); err != nil {
		return err
	}
	if err := t.pm.WriteRootID(newRootID); err != nil {
		return err
	}
	slog.Debug("btree.Write grew a new root", "oldRoot", oldRoot, "newRoot", newRootID)
	t.setRoot(newRootID)
	return nil
}

// WriteBatch applies writes sequentially; there is no multi-key atomicity.
func (t *Engine) WriteBatch(records []record.Record) error {
	for _, r := range records {
		if err := t.Write(r.Key, r.Fields); err != nil {
			return err
		}
	}
	return nil
}

// Read returns the decoded field map for key, or found=false if absent.
func (t *Engine) Read(key []byte) (map[string]any, bool, error) {
	if t.closed.Load() {
		return nil, false, storage.ErrClosed
	}
	leafID, err := t.findLeaf(key)
	if err != nil {
		return nil, false, err
	}
	page, err := t.pm.ReadPage(leafID)
	if err != nil {
		return nil, false, err
	}
	elem, ok := page.Find(key)
	if !ok {
		return nil, false, nil
	}
	raw, err := t.materialize(elem)
	if err != nil {
		return nil, false, err
	}
	return storage.DecodeRecordFields(raw), true, nil
}

// Delete removes key if present, freeing its overflow chain and rebuilding
// the leaf to reclaim fragmentation. No rebalancing across leaves is
// performed: an under-full leaf is simply left as-is.
func (t *Engine) Delete(key []byte) error {
	if t.closed.Load() {
		return storage.ErrClosed
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	leafID, err := t.findLeaf(key)
	if err != nil {
		return err
	}
	page, err := t.pm.ReadPage(leafID)
	if err != nil {
		return err
	}
	target, ok := page.Find(key)
	if !ok {
		return nil
	}
	if target.HasOverflow {
		if err := storage.FreeOverflowChain(t.pm, decodeChildID(target.Value)); err != nil {
			return err
		}
	}

	n := page.Count()
	remaining := make([]storage.Element, 0, n-1)
	for i := 0; i < n; i++ {
		e, _ := page.Element(i)
		if bx.CompareBytes(e.Key, key) == 0 {
			continue
		}
		remaining = append(remaining, storage.Element{
			Key: append([]byte(nil), e.Key...), Value: append([]byte(nil), e.Value...), HasOverflow: e.HasOverflow,
		})
	}
	if err := page.Rebuild(leafID, storage.FlagLeaf, remaining); err != nil {
		return err
	}
	return t.pm.WritePage(page)
}

// Scan walks one leaf's directory in key order for [start, end], inclusive
// on both ends (spec.md leaves this an open question; SPEC_FULL.md §
// "OPEN QUESTION RESOLUTIONS" fixes it as inclusive for the B+Tree engine).
// Results spanning more than a single leaf page are not returned; this
// mirrors the documented single-leaf scan limitation.
func (t *Engine) Scan(start, end []byte, columns []string) ([]record.Record, error) {
	if t.closed.Load() {
		return nil, storage.ErrClosed
	}
	leafID, err := t.findLeaf(start)
	if err != nil {
		return nil, err
	}
	page, err := t.pm.ReadPage(leafID)
	if err != nil {
		return nil, err
	}

	var out []record.Record
	n := page.Count()
	for i := 0; i < n; i++ {
		e, _ := page.Element(i)
		if bx.CompareBytes(e.Key, start) < 0 {
			continue
		}
		if end != nil && bx.CompareBytes(e.Key, end) > 0 {
			break
		}
		raw, err := t.materialize(e)
		if err != nil {
			return nil, err
		}
		fields := storage.DecodeRecordFields(raw)
		if len(columns) > 0 {
			fields = projectFields(fields, columns)
		}
		out = append(out, record.Record{Key: append([]byte(nil), e.Key...), Fields: fields})
	}
	return out, nil
}

func projectFields(fields map[string]any, columns []string) map[string]any {
	out := make(map[string]any, len(columns))
	for _, c := range columns {
		if v, ok := fields[c]; ok {
			out[c] = v
		}
	}
	return out
}

// Stats descends the leftmost spine to report tree height and reads the
// page manager's allocation counter for a page count.
func (t *Engine) Stats() (Stats, error) {
	height := 1
	id := t.getRoot()
	for {
		page, err := t.pm.ReadPage(id)
		if err != nil {
			return Stats{}, err
		}
		if page.IsLeaf() {
			break
		}
		height++
		id = page.LeftmostChild()
	}
	return Stats{Height: height, PageCount: t.pm.NextPageID() - 1}, nil
}

// Close syncs and closes the underlying page manager. Idempotent.
func (t *Engine) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := t.pm.Sync(); err != nil {
		return err
	}
	return t.pm.Close()
}
