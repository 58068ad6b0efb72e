// Package engine defines the StorageEngine contract implemented by both
// the B+Tree key-value store (internal/btree) and the columnar analytic
// store (internal/columnstore).
package engine

import "github.com/tuannm99/jparque/internal/record"

// StorageEngine is the shared surface spec.md §6 asks both engines to
// expose, letting callers swap the row-oriented B+Tree for the columnar
// store without touching call sites.
type StorageEngine interface {
	Write(key []byte, fields map[string]any) error
	WriteBatch(records []record.Record) error
	Read(key []byte) (map[string]any, bool, error)
	Scan(start, end []byte, columns []string) ([]record.Record, error)
	Delete(key []byte) error
	Close() error
}
