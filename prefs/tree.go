package prefs

import (
	"context"
	"sync"

	"github.com/confstore/prefstore/store"
)

// tree is the state shared by every Node handle obtained from one root.
// It couples the backing store with the materialized node graph and the
// operations buffered since the last flush.
type tree struct {
	st store.Store

	root    *node
	pending []store.Op
	mu      sync.RWMutex
}

// node is one point in the hierarchy. Nodes materialize in memory on first
// navigation; they reach the store only once a key below them is flushed.
type node struct {
	values   map[string]string
	children map[string]*node
}

func newNode() *node {
	return &node{
		values:   make(map[string]string),
		children: make(map[string]*node),
	}
}

// child returns the named child, creating it when absent.
func (n *node) child(name string) *node {
	c, exists := n.children[name]
	if !exists {
		c = newNode()
		n.children[name] = c
	}
	return c
}

func newTree(ctx context.Context, st store.Store) (*tree, error) {
	snap, err := st.Load(ctx)
	if err != nil {
		return nil, err
	}
	return &tree{st: st, root: decode(snap)}, nil
}

// lookup walks path from the root, returning nil when any segment is not
// materialized.
func (t *tree) lookup(path []string) *node {
	n := t.root
	for _, seg := range path {
		n = n.children[seg]
		if n == nil {
			return nil
		}
	}
	return n
}

// materialize walks path from the root, creating nodes as needed.
func (t *tree) materialize(path []string) *node {
	n := t.root
	for _, seg := range path {
		n = n.child(seg)
	}
	return n
}

// sync rebuilds the node graph from the latest durable snapshot with the
// pending operations replayed on top. The buffer is kept; nothing is
// published.
func (t *tree) sync(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap, err := t.st.Load(ctx)
	if err != nil {
		return err
	}
	t.root = decode(store.Apply(snap, t.pending))
	return nil
}

// flush commits the pending operations and rebuilds the node graph from
// the merged result, clearing the buffer. On failure the buffer is kept so
// a later flush can retry.
func (t *tree) flush(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	merged, err := t.st.Commit(ctx, t.pending)
	if err != nil {
		return err
	}
	t.root = decode(merged)
	t.pending = nil
	return nil
}
