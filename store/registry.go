package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
)

// registry is the process-wide cache of file stores keyed by canonical
// path, so every tree opened against one file shares a single lock and
// I/O path. Entries live for the process lifetime; transient stores are
// never registered.
var (
	registry = map[string]Store{}
	mutex    sync.Mutex
)

// Open returns the shared Store for the file at path, creating and
// registering it on first use. Store identity is the absolute path, so
// relative spellings of the same file resolve to one instance.
func Open(path string) (Store, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve store path %q: %w", path, err)
	}

	mutex.Lock()
	defer mutex.Unlock()

	if st, exists := registry[abs]; exists {
		return st, nil
	}
	st := NewFileStore(abs)
	registry[abs] = st
	return st, nil
}

// FlushAll commits an empty operation list on every registered file store,
// forcing each one through a reload-and-rewrite cycle. Failures do not stop
// the sweep; all errors are joined into the returned error.
func FlushAll(ctx context.Context) error {
	mutex.Lock()
	paths := make([]string, 0, len(registry))
	for path := range registry {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	all := make([]Store, 0, len(paths))
	for _, path := range paths {
		all = append(all, registry[path])
	}
	mutex.Unlock()

	var errs []error
	for _, st := range all {
		if _, err := st.Commit(ctx, nil); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
