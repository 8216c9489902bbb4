// Package prefs implements a hierarchical preference store in the spirit
// of classic preferences APIs, backed by human-editable flat files or by
// transient in-memory data. Nodes form a filesystem-like hierarchy, each
// holding string key-value pairs. Mutations are buffered per tree and reach
// the backing store only on Flush; Sync rebases a tree onto the latest
// stored state without publishing anything. Concurrent access to one file
// by several processes is coordinated through advisory file locks.
package prefs

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/confstore/prefstore/store"
)

// Node is a handle on one point of a preference hierarchy. A handle is a
// cheap path reference into shared tree state: any number of handles may
// address the same node, and a handle stays usable across Sync and Flush.
// All methods are safe for concurrent use.
type Node struct {
	t    *tree
	path []string
}

// Name returns the node's own path segment; the root's name is empty.
func (n *Node) Name() string {
	if len(n.path) == 0 {
		return ""
	}
	return n.path[len(n.path)-1]
}

// Path returns the node's absolute path, "/" for the root.
func (n *Node) Path() string {
	return "/" + strings.Join(n.path, "/")
}

// Store identifies the backing store of the node's tree.
func (n *Node) Store() string {
	return n.t.st.String()
}

// Get returns the value stored under key on this node, or def when the
// node or the key is absent. Get reads the in-memory state and never
// performs I/O.
func (n *Node) Get(key, def string) string {
	n.t.mu.RLock()
	defer n.t.mu.RUnlock()

	target := n.t.lookup(n.path)
	if target == nil {
		return def
	}
	value, exists := target.values[key]
	if !exists {
		return def
	}
	return value
}

// Put records key=value on this node. The value is visible to this tree
// immediately and reaches other observers of the store on the next Flush.
// Keys containing the path separator are rejected.
func (n *Node) Put(key, value string) error {
	if strings.ContainsRune(key, '/') {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	n.t.mu.Lock()
	defer n.t.mu.Unlock()

	n.t.materialize(n.path).values[key] = value
	n.t.pending = append(n.t.pending, store.Op{
		Kind:  store.OpPut,
		Path:  n.path,
		Key:   key,
		Value: value,
	})
	return nil
}

// Remove deletes key from this node. The removal is recorded even when the
// key is absent locally, so a value written by another process is deleted
// by the next Flush.
func (n *Node) Remove(key string) {
	n.t.mu.Lock()
	defer n.t.mu.Unlock()

	if target := n.t.lookup(n.path); target != nil {
		delete(target.values, key)
	}
	n.t.pending = append(n.t.pending, store.Op{
		Kind: store.OpRemove,
		Path: n.path,
		Key:  key,
	})
}

// Keys returns the node's key names in sorted order.
func (n *Node) Keys() []string {
	n.t.mu.RLock()
	defer n.t.mu.RUnlock()

	target := n.t.lookup(n.path)
	if target == nil {
		return nil
	}

	keys := make([]string, 0, len(target.values))
	for key := range target.values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// ChildrenNames returns the names of the node's materialized children in
// sorted order. Children appear on first navigation or when a snapshot
// holds entries below them; childless empty nodes vanish once Sync or
// Flush rebuilds the tree.
func (n *Node) ChildrenNames() []string {
	n.t.mu.RLock()
	defer n.t.mu.RUnlock()

	target := n.t.lookup(n.path)
	if target == nil {
		return nil
	}

	names := make([]string, 0, len(target.children))
	for name := range target.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Data returns the node's subtree as a flat bag: every key at or below the
// node, qualified by its path relative to the node. The bag is detached
// from the tree; handing it to FromData reproduces the subtree as its own
// transient store.
func (n *Node) Data() map[string]string {
	n.t.mu.RLock()
	defer n.t.mu.RUnlock()

	target := n.t.lookup(n.path)
	if target == nil {
		return map[string]string{}
	}
	return flatten(target)
}

// Node returns a handle on the node at path relative to n, materializing
// the chain of in-memory nodes on the way. A leading '/' resolves path from
// the root; the empty path addresses n's own node. Paths with empty
// segments are rejected. Navigation is purely in-memory: nothing becomes
// visible to other observers until a key below the node is flushed.
func (n *Node) Node(path string) (*Node, error) {
	base := n.path
	rest := path
	if strings.HasPrefix(path, "/") {
		base = nil
		rest = path[1:]
	}

	var segments []string
	if rest != "" {
		segments = strings.Split(rest, "/")
		for _, seg := range segments {
			if seg == "" {
				return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
			}
		}
	}

	full := make([]string, 0, len(base)+len(segments))
	full = append(full, base...)
	full = append(full, segments...)

	n.t.mu.Lock()
	n.t.materialize(full)
	n.t.mu.Unlock()

	return &Node{t: n.t, path: full}, nil
}

// RemoveNode removes this node and its whole subtree and records the
// removal for the next Flush. The root cannot be removed. Handles under a
// removed path stay valid; writing or navigating through them re-creates
// the path.
func (n *Node) RemoveNode() error {
	if len(n.path) == 0 {
		return ErrRemoveRoot
	}

	n.t.mu.Lock()
	defer n.t.mu.Unlock()

	if parent := n.t.lookup(n.path[:len(n.path)-1]); parent != nil {
		delete(parent.children, n.path[len(n.path)-1])
	}
	n.t.pending = append(n.t.pending, store.Op{
		Kind: store.OpRemoveNode,
		Path: n.path,
	})
	return nil
}

// Sync replaces the in-memory tree with the latest stored snapshot plus
// the still-pending local operations. The pending buffer survives any
// number of syncs; only a successful Flush clears it.
func (n *Node) Sync(ctx context.Context) error {
	return n.t.sync(ctx)
}

// Flush commits the pending operations to the backing store and replaces
// the in-memory tree with the merged result. After a successful Flush the
// stored and in-memory state agree and the buffer is empty.
func (n *Node) Flush(ctx context.Context) error {
	return n.t.flush(ctx)
}
