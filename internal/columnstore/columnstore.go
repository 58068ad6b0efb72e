// Package columnstore presents a keyed StorageEngine over the Parquet-shape
// columnar file codec: a read-through record cache backed by a single
// file that is rewritten in full on every mutation (spec.md §4.7).
package columnstore

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/tuannm99/jparque/internal/bx"
	"github.com/tuannm99/jparque/internal/parquet"
	"github.com/tuannm99/jparque/internal/record"
	"github.com/tuannm99/jparque/internal/schema"
)

// keyField is the synthetic column this store adds to the caller's schema
// so the binary key travels alongside each record inside the Parquet file.
const keyField = "_key"

// Store is the columnar StorageEngine.
type Store struct {
	mu sync.Mutex

	path     string
	msg      *schema.MessageType // caller schema plus the synthetic _key field
	codecTag uint32

	loaded    bool
	cache     []map[string]any // each entry includes keyField
	index     map[string]int   // tombstoneKey(key) -> index into cache, kept in sync with cache
	tombstone map[string]struct{}
	dirty     bool
	closed    bool
}

// Open wires a Store to path using userSchema for the caller-visible
// fields; codecTag selects the compression codec used for every column
// chunk written by this store.
func Open(path string, userSchema *schema.MessageType, codecTag uint32) *Store {
	fields := make([]schema.Field, 0, len(userSchema.Fields)+1)
	fields = append(fields, userSchema.Fields...)
	fields = append(fields, schema.Field{
		ID: int32(len(userSchema.Fields)), Name: keyField,
		Type: schema.TypeBinary, Repetition: schema.Required,
	})

	return &Store{
		path:      path,
		msg:       &schema.MessageType{Name: userSchema.Name, Version: userSchema.Version, Fields: fields},
		codecTag:  codecTag,
		tombstone: make(map[string]struct{}),
	}
}

func tombstoneKey(key []byte) string { return base64.StdEncoding.EncodeToString(key) }

// ensureLoaded lazily loads the cache from disk on first access, per
// spec.md §4.7. Caller holds s.mu.
func (s *Store) ensureLoaded() error {
	if s.loaded {
		return nil
	}
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		s.cache = nil
		s.loaded = true
		s.rebuildIndex()
		return nil
	}

	_, records, err := parquet.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("columnstore: load %s: %w", s.path, err)
	}
	s.cache = records
	s.loaded = true
	s.rebuildIndex()
	slog.Debug("columnstore.ensureLoaded", "path", s.path, "records", len(records))
	return nil
}

// rebuildIndex recomputes the key -> cache-index map from scratch. Called
// after ensureLoaded and after any mutation that reorders or removes cache
// entries (Delete); Write and WriteBatch instead maintain it incrementally.
func (s *Store) rebuildIndex() {
	s.index = make(map[string]int, len(s.cache))
	for i, r := range s.cache {
		if b, ok := r[keyField].([]byte); ok {
			s.index[tombstoneKey(b)] = i
		}
	}
}

// indexOf returns the cache slot holding key, or -1 if absent. O(1) via
// s.index rather than scanning the cache.
func (s *Store) indexOf(key []byte) int {
	if idx, ok := s.index[tombstoneKey(key)]; ok {
		return idx
	}
	return -1
}

// Write appends or replaces (by key equality) the record in the cache and
// rewrites the file.
func (s *Store) Write(key []byte, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("columnstore: store is closed")
	}
	if err := s.ensureLoaded(); err != nil {
		return err
	}

	rec := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		rec[k] = v
	}
	rec[keyField] = append([]byte(nil), key...)

	delete(s.tombstone, tombstoneKey(key))
	if idx := s.indexOf(key); idx >= 0 {
		s.cache[idx] = rec
	} else {
		s.index[tombstoneKey(key)] = len(s.cache)
		s.cache = append(s.cache, rec)
	}
	s.dirty = true
	return s.flushLocked()
}

// WriteBatch applies every record to the cache and performs exactly one
// file rewrite.
func (s *Store) WriteBatch(records []record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("columnstore: store is closed")
	}
	if err := s.ensureLoaded(); err != nil {
		return err
	}

	for _, r := range records {
		rec := make(map[string]any, len(r.Fields)+1)
		for k, v := range r.Fields {
			rec[k] = v
		}
		rec[keyField] = append([]byte(nil), r.Key...)

		delete(s.tombstone, tombstoneKey(r.Key))
		if idx := s.indexOf(r.Key); idx >= 0 {
			s.cache[idx] = rec
		} else {
			s.index[tombstoneKey(r.Key)] = len(s.cache)
			s.cache = append(s.cache, rec)
		}
	}
	s.dirty = true
	return s.flushLocked()
}

// Read consults tombstones, then the cache, for the first record matching
// key. _key is stripped from the returned map.
func (s *Store) Read(key []byte) (map[string]any, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false, fmt.Errorf("columnstore: store is closed")
	}
	if _, tomb := s.tombstone[tombstoneKey(key)]; tomb {
		return nil, false, nil
	}
	if err := s.ensureLoaded(); err != nil {
		return nil, false, err
	}
	idx := s.indexOf(key)
	if idx < 0 {
		return nil, false, nil
	}
	return withoutKeyField(s.cache[idx]), true, nil
}

func withoutKeyField(rec map[string]any) map[string]any {
	out := make(map[string]any, len(rec)-1)
	for k, v := range rec {
		if k == keyField {
			continue
		}
		out[k] = v
	}
	return out
}

// Scan iterates the cache in unsigned byte-key order, filtering to
// [start, end) and skipping tombstoned keys. A nil end means unbounded.
func (s *Store) Scan(start, end []byte, columns []string) ([]record.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("columnstore: store is closed")
	}
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}

	type kv struct {
		key    []byte
		fields map[string]any
	}
	var matched []kv
	for _, rec := range s.cache {
		key, _ := rec[keyField].([]byte)
		if _, tomb := s.tombstone[tombstoneKey(key)]; tomb {
			continue
		}
		if bx.CompareBytes(key, start) < 0 {
			continue
		}
		if end != nil && bx.CompareBytes(key, end) >= 0 {
			continue
		}
		matched = append(matched, kv{key: key, fields: withoutKeyField(rec)})
	}

	sort.Slice(matched, func(i, j int) bool { return bx.CompareBytes(matched[i].key, matched[j].key) < 0 })

	out := make([]record.Record, len(matched))
	for i, m := range matched {
		fields := m.fields
		if len(columns) > 0 {
			fields = projectFields(fields, columns)
		}
		out[i] = record.Record{Key: m.key, Fields: fields}
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

// Delete tombstones key, removes it from the cache if present, and
// rewrites the file if anything actually changed.
func (s *Store) Delete(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("columnstore: store is closed")
	}
	if err := s.ensureLoaded(); err != nil {
		return err
	}

	s.tombstone[tombstoneKey(key)] = struct{}{}
	idx := s.indexOf(key)
	if idx < 0 {
		return nil
	}
	s.cache = append(s.cache[:idx], s.cache[idx+1:]...)
	s.rebuildIndex() // every entry after idx shifted down by one
	s.dirty = true
	return s.flushLocked()
}

// flushLocked rewrites the file if dirty. Caller holds s.mu.
func (s *Store) flushLocked() error {
	if !s.dirty {
		return nil
	}
	if err := parquet.WriteFile(s.path, s.msg, s.cache, s.codecTag); err != nil {
		return fmt.Errorf("columnstore: flush %s: %w", s.path, err)
	}
	s.dirty = false
	return nil
}

// Close flushes any pending mutation. Idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	err := s.flushLocked()
	s.closed = true
	return err
}
