// Package lsm is a placeholder for a log-structured-merge storage engine.
// spec.md treats LSM-tree behavior as absent: no memtable, compaction, or
// SSTable format is specified, so this package intentionally implements
// nothing beyond documenting where such an engine would plug into
// internal/engine.StorageEngine.
package lsm
