// Package table is a thin row-oriented facade binding a named storage file
// to the StorageEngine contract. spec.md treats a full table/catalog layer
// as out of scope; this is intentionally a one-method-deep adapter rather
// than a schema-aware table manager.
package table

import (
	"fmt"

	"github.com/tuannm99/jparque/internal/btree"
	"github.com/tuannm99/jparque/internal/columnstore"
	"github.com/tuannm99/jparque/internal/config"
	"github.com/tuannm99/jparque/internal/engine"
	"github.com/tuannm99/jparque/internal/schema"
	"github.com/tuannm99/jparque/internal/storage"
)

// Open opens path as a single B+Tree-backed table and returns it behind the
// generic StorageEngine interface. cfg.PageCacheSize sizes the page
// manager's LRU cache (internal/storage.OpenWithCache), rather than always
// falling back to storage.DefaultPageCacheSize.
func Open(path string, cfg config.Config) (engine.StorageEngine, error) {
	pm, err := storage.OpenWithCache(path, cfg.PageSize, cfg.PageCacheSize)
	if err != nil {
		return nil, fmt.Errorf("table: open %s: %w", path, err)
	}
	t, err := btree.Open(pm)
	if err != nil {
		pm.Close()
		return nil, fmt.Errorf("table: open %s: %w", path, err)
	}
	return t, nil
}

// OpenColumnStore opens path as a columnar table over userSchema, compressed
// with cfg.CodecTag(), and returns it behind the generic StorageEngine
// interface.
func OpenColumnStore(path string, userSchema *schema.MessageType, cfg config.Config) engine.StorageEngine {
	return columnstore.Open(path, userSchema, cfg.CodecTag())
}
