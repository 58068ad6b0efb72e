package btree

import "errors"

// ErrCapacityExceeded surfaces when a leaf or branch still cannot hold a
// new entry after being split empty (e.g. a single key+value pair too
// large for an otherwise-empty page). spec.md §7 treats this as the "root
// cannot grow" fatal case and expects callers to surface it rather than
// loop forever.
var ErrCapacityExceeded = errors.New("btree: entry cannot fit even after split")
