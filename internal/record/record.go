// Package record defines the caller-facing row shape shared by both
// storage engines: a byte-string key plus a map of named, loosely-typed
// field values.
package record

// Record is one key/value pair as seen by a StorageEngine caller. Fields
// holds plain Go values (int32, int64, float32, float64, bool, string, or
// nil); coercion into the on-disk tagged representation happens inside the
// storage package at encode time.
type Record struct {
	Key    []byte
	Fields map[string]any
}
