package prefs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/confstore/prefstore/store"
)

// EnvStoreHome selects the directory holding the default preference store
// files. A relative value resolves under the user's home directory; an
// absolute value is used as given. When unset, UserRoot and SystemRoot
// fall back to transient in-memory stores.
const EnvStoreHome = "PREFSTORE_HOME"

const userStoreName = "user.conf"

var transientWarning sync.Once

// OpenFile returns the root node of the preference tree stored in the file
// at path. Trees opened against the same file share one store and with it
// one lock and I/O path; each call still produces an independent tree with
// its own pending buffer. The snapshot is loaded eagerly; a missing file
// is an empty store.
func OpenFile(ctx context.Context, path string) (*Node, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	t, err := newTree(ctx, st)
	if err != nil {
		return nil, err
	}
	return &Node{t: t}, nil
}

// FromData returns the root node of a transient preference tree over data;
// a nil bag starts empty. The bag is shared by reference: Flush merges back
// into it and another tree over the same bag sees the result on its next
// Sync. Transient trees never touch the filesystem.
func FromData(data map[string]string) *Node {
	st := store.NewMemStore(data)
	snap, _ := st.Load(context.Background())
	return &Node{t: &tree{st: st, root: decode(snap)}}
}

// UserRoot returns the root node of the default per-user preference store,
// the file user.conf under the store home directory. When EnvStoreHome is
// unset the tree is transient and a warning is logged once per process.
func UserRoot(ctx context.Context) (*Node, error) {
	return defaultRoot(ctx, userStoreName)
}

// SystemRoot returns the root node of the default machine-wide preference
// store, the file system.<hostname>.conf under the store home directory.
// The fallback behavior matches UserRoot.
func SystemRoot(ctx context.Context) (*Node, error) {
	return defaultRoot(ctx, systemStoreName())
}

func defaultRoot(ctx context.Context, name string) (*Node, error) {
	path, err := storeHomeFile(name)
	switch {
	case errors.Is(err, ErrStoreHomeNotSet):
		transientWarning.Do(func() {
			slog.Warn("preference store home not set, using transient store",
				slog.String("env", EnvStoreHome))
		})
		return FromData(nil), nil
	case err != nil:
		return nil, err
	}
	return OpenFile(ctx, path)
}

// UserRootFile returns the path of the file backing UserRoot, or
// ErrStoreHomeNotSet when EnvStoreHome is unset.
func UserRootFile() (string, error) {
	return storeHomeFile(userStoreName)
}

// SystemRootFile returns the path of the file backing SystemRoot, or
// ErrStoreHomeNotSet when EnvStoreHome is unset.
func SystemRootFile() (string, error) {
	return storeHomeFile(systemStoreName())
}

// FlushAll runs a commit cycle on every file-backed store opened by this
// process, bringing each file to its canonical on-disk form. Pending tree
// edits are not pushed; publishing those stays with the tree that buffered
// them. Transient stores are not touched.
func FlushAll(ctx context.Context) error {
	return store.FlushAll(ctx)
}

func storeHomeFile(name string) (string, error) {
	home := os.Getenv(EnvStoreHome)
	if home == "" {
		return "", fmt.Errorf("%w: %s", ErrStoreHomeNotSet, EnvStoreHome)
	}
	if !filepath.IsAbs(home) {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve store home: %w", err)
		}
		home = filepath.Join(userHome, home)
	}
	return filepath.Join(home, name), nil
}

// systemStoreName derives the machine-wide store file name from the local
// hostname, cut at the first domain dot; localhost when the hostname is
// unavailable.
func systemStoreName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	if dot := strings.IndexByte(host, '.'); dot > 0 {
		host = host[:dot]
	}
	return "system." + host + ".conf"
}
