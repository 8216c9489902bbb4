package prefs

import "github.com/confstore/prefstore/store"

// decode materializes the node graph a flat snapshot determines. Flat keys
// that do not split into a valid path are skipped, leaving the rest of the
// snapshot intact. An empty snapshot yields a bare root.
func decode(snap store.Snapshot) *node {
	root := newNode()
	for flat, value := range snap {
		path, key, err := store.SplitKey(flat)
		if err != nil {
			continue
		}
		n := root
		for _, seg := range path {
			n = n.child(seg)
		}
		n.values[key] = value
	}
	return root
}

// flatten is decode's inverse: every key of every node, qualified by the
// node's absolute path. Nodes with no key anywhere below them leave no
// trace in the snapshot.
func flatten(root *node) store.Snapshot {
	snap := store.Snapshot{}
	var walk func(n *node, path []string)
	walk = func(n *node, path []string) {
		for key, value := range n.values {
			snap[store.JoinKey(path, key)] = value
		}
		for name, c := range n.children {
			walk(c, append(path, name))
		}
	}
	walk(root, nil)
	return snap
}
