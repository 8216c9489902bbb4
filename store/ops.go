package store

import "strings"

// OpKind discriminates the operations a tree buffers between flushes.
type OpKind int

const (
	// OpPut sets one key on one node.
	OpPut OpKind = iota
	// OpRemove deletes one key from one node.
	OpRemove
	// OpRemoveNode deletes a node together with every entry below it.
	OpRemoveNode
)

// Op is one buffered mutation. Path addresses the node, empty for the root;
// Key and Value apply to OpPut, Key alone to OpRemove.
type Op struct {
	Kind  OpKind
	Path  []string
	Key   string
	Value string
}

// Apply replays ops onto snap in order and returns the merged result,
// leaving snap untouched. Later operations win on the same key; a node
// removal erases everything under its path, and operations recorded after
// it reinstate their entries. Apply performs no I/O.
func Apply(snap Snapshot, ops []Op) Snapshot {
	merged := snap.Clone()
	for _, op := range ops {
		switch op.Kind {
		case OpPut:
			merged[JoinKey(op.Path, op.Key)] = op.Value
		case OpRemove:
			delete(merged, JoinKey(op.Path, op.Key))
		case OpRemoveNode:
			prefix := pathPrefix(op.Path)
			for flat := range merged {
				if strings.HasPrefix(flat, prefix) {
					delete(merged, flat)
				}
			}
		}
	}
	return merged
}
