package storage

import (
	"container/list"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/tuannm99/jparque/internal/bx"
)

// PageManager is the only component that performs file I/O for pages and
// the only authority on page identifiers. Page 0 is reserved: its first 8
// bytes hold the next-id counter, persisted on every allocation.
type PageManager struct {
	mu       sync.Mutex
	file     *os.File
	pageSize int

	nextID uint64

	cacheCap int
	cache    map[uint64]*list.Element // pageID -> LRU node
	lru      *list.List               // front = most recently used

	hits, misses, evictions uint64

	closed bool
}

type cacheEntry struct {
	id  uint64
	buf []byte
}

// Open opens or creates the database file at path. A brand-new file gets
// page 0 written with next-id counter = 1; an existing file has its
// counter read back from page 0.
func Open(path string, pageSize int) (*PageManager, error) {
	return OpenWithCache(path, pageSize, DefaultPageCacheSize)
}

func OpenWithCache(path string, pageSize, cacheCap int) (*PageManager, error) {
	if pageSize <= HeaderSize+SlotSize {
		return nil, fmt.Errorf("storage: page size %d too small", pageSize)
	}
	if cacheCap <= 0 {
		cacheCap = DefaultPageCacheSize
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("storage: stat %s: %w", path, err)
	}

	pm := &PageManager{
		file:     f,
		pageSize: pageSize,
		cacheCap: cacheCap,
		cache:    make(map[uint64]*list.Element),
		lru:      list.New(),
	}

	if info.Size() == 0 {
		buf := make([]byte, pageSize)
		bx.PutU64At(buf, 0, 1)
		if _, err := f.WriteAt(buf, 0); err != nil {
			f.Close()
			return nil, fmt.Errorf("storage: write meta page: %w", err)
		}
		pm.nextID = 1
		slog.Debug("storage.Open created new file", "path", path, "pageSize", pageSize)
		return pm, nil
	}

	buf := make([]byte, pageSize)
	if _, err := f.ReadAt(buf, 0); err != nil && err != io.EOF {
		f.Close()
		return nil, fmt.Errorf("storage: read meta page: %w", err)
	}
	pm.nextID = bx.U64At(buf, 0)
	if pm.nextID == 0 {
		pm.nextID = 1
	}
	slog.Debug("storage.Open opened existing file", "path", path, "nextID", pm.nextID)
	return pm, nil
}

func (pm *PageManager) PageSize() int { return pm.pageSize }

// NextPageID reports the id that the next AllocatePage call would hand
// out: one more than the number of pages allocated so far (ids start at 1;
// page 0 is the meta page).
func (pm *PageManager) NextPageID() uint64 {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.nextID
}

// ReadRootID and WriteRootID persist the B+Tree's root page id in the
// second 8 bytes of the meta page (the first 8 bytes belong to the
// next-id counter). A return of 0 means no root has been created yet.
func (pm *PageManager) ReadRootID() (uint64, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.closed {
		return 0, ErrClosed
	}
	buf := make([]byte, 8)
	if _, err := pm.file.ReadAt(buf, 8); err != nil && err != io.EOF {
		return 0, fmt.Errorf("storage: read root id: %w", err)
	}
	return bx.U64At(buf, 0), nil
}

func (pm *PageManager) WriteRootID(id uint64) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.closed {
		return ErrClosed
	}
	buf := make([]byte, 8)
	bx.PutU64At(buf, 0, id)
	if _, err := pm.file.WriteAt(buf, 8); err != nil {
		return fmt.Errorf("storage: write root id: %w", err)
	}
	return nil
}

func (pm *PageManager) persistNextID() error {
	buf := make([]byte, 8)
	bx.PutU64At(buf, 0, pm.nextID)
	_, err := pm.file.WriteAt(buf, 0)
	return err
}

// AllocatePage returns the current counter, increments and persists it,
// and writes a zeroed page at the corresponding offset.
func (pm *PageManager) AllocatePage() (uint64, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.closed {
		return 0, ErrClosed
	}

	id := pm.nextID
	pm.nextID++
	if err := pm.persistNextID(); err != nil {
		pm.nextID--
		return 0, fmt.Errorf("storage: persist next-id: %w", err)
	}

	buf := make([]byte, pm.pageSize)
	if err := pm.writeAtLocked(id, buf); err != nil {
		return 0, err
	}
	pm.admitLocked(id, buf)
	slog.Debug("storage.AllocatePage", "id", id)
	return id, nil
}

func (pm *PageManager) offsetOf(id uint64) int64 { return int64(id) * int64(pm.pageSize) }

func (pm *PageManager) writeAtLocked(id uint64, buf []byte) error {
	if _, err := pm.file.WriteAt(buf, pm.offsetOf(id)); err != nil {
		return fmt.Errorf("storage: write page %d: %w", id, err)
	}
	return nil
}

// ReadPage returns a page view backed by the bytes at id's offset,
// consulting the bounded cache first.
func (pm *PageManager) ReadPage(id uint64) (*Page, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.closed {
		return nil, ErrClosed
	}

	if el, ok := pm.cache[id]; ok {
		pm.lru.MoveToFront(el)
		pm.hits++
		buf := el.Value.(*cacheEntry).buf
		return NewPageView(buf), nil
	}

	pm.misses++
	buf := make([]byte, pm.pageSize)
	if _, err := pm.file.ReadAt(buf, pm.offsetOf(id)); err != nil && err != io.EOF {
		return nil, fmt.Errorf("storage: read page %d: %w", id, err)
	}
	pm.admitLocked(id, buf)
	return NewPageView(buf), nil
}

// WritePage writes pm.pageSize bytes at id's offset and refreshes the
// cache entry.
func (pm *PageManager) WritePage(p *Page) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.closed {
		return ErrClosed
	}
	id := p.ID()
	if err := pm.writeAtLocked(id, p.buf); err != nil {
		return err
	}
	pm.admitLocked(id, p.buf)
	return nil
}

// admitLocked inserts/refreshes a cache entry, evicting the least recently
// used entry when the cache is at capacity. Caller holds pm.mu.
func (pm *PageManager) admitLocked(id uint64, buf []byte) {
	if el, ok := pm.cache[id]; ok {
		el.Value.(*cacheEntry).buf = buf
		pm.lru.MoveToFront(el)
		return
	}
	if pm.lru.Len() >= pm.cacheCap {
		back := pm.lru.Back()
		if back != nil {
			victim := back.Value.(*cacheEntry)
			delete(pm.cache, victim.id)
			pm.lru.Remove(back)
			pm.evictions++
			slog.Debug("storage.pageCache evict", "id", victim.id)
		}
	}
	el := pm.lru.PushFront(&cacheEntry{id: id, buf: buf})
	pm.cache[id] = el
}

// CacheStats reports page-cache hit/miss/eviction counters, useful for
// asserting the cache actually bounds memory under load (spec.md §8
// "splits under load").
type CacheStats struct {
	Hits, Misses, Evictions uint64
}

func (pm *PageManager) CacheStats() CacheStats {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return CacheStats{Hits: pm.hits, Misses: pm.misses, Evictions: pm.evictions}
}

// Sync flushes OS buffers.
func (pm *PageManager) Sync() error {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.closed {
		return ErrClosed
	}
	return pm.file.Sync()
}

// Close flushes and releases the file handle. Idempotent.
func (pm *PageManager) Close() error {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.closed {
		return nil
	}
	err := pm.file.Sync()
	if cerr := pm.file.Close(); err == nil {
		err = cerr
	}
	pm.closed = true
	return err
}
