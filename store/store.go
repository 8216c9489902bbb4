// Package store provides the persistence layer for preference trees. Flat
// snapshots hold path-qualified entries, and Store implementations merge
// the operation batches trees buffer between flushes into a lock-protected
// file or an in-memory bag.
package store

import "context"

// Snapshot is the complete flat entry set known to a store at one instant.
// Keys are flat paths produced by JoinKey, values are plain strings.
type Snapshot map[string]string

// Clone returns an independent copy of the snapshot, never nil.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Store owns one durable snapshot. A store is shared by every tree opened
// against the same backing resource; implementations serialize commits on
// the same instance.
type Store interface {
	// Load returns the latest durable snapshot. A missing backing file is
	// an empty store, not an error.
	Load(ctx context.Context) (Snapshot, error)
	// Commit re-reads the durable snapshot under exclusive access, applies
	// ops in order, persists the merged result and returns it. All conflict
	// resolution between writers happens here.
	Commit(ctx context.Context, ops []Op) (Snapshot, error)
	// String identifies the backing resource.
	String() string
}
