package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/confstore/prefstore/propfile"
)

type fileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a Store over the file at path without registering
// it. Open is the usual entry point; it hands every caller of the same
// path one shared instance.
//
// Cross-process safety comes from advisory whole-file locks: shared around
// Load, exclusive around the read-merge-write cycle in Commit. Lock
// acquisition is a single attempt; a held lock fails the operation with
// ErrLockUnavailable instead of blocking.
func NewFileStore(path string) Store {
	return &fileStore{path: path}
}

func (s *fileStore) Load(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, nil
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrLoadFailed, s.path, err)
	}
	defer f.Close()

	lock := flock.New(s.path)
	locked, err := lock.TryRLock()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoadFailed, s.path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLockUnavailable, s.path)
	}
	defer lock.Unlock()

	entries, err := propfile.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoadFailed, s.path, err)
	}
	return Snapshot(entries), nil
}

func (s *fileStore) Commit(ctx context.Context, ops []Op) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCommitFailed, s.path, err)
	}

	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCommitFailed, s.path, err)
	}
	defer f.Close()

	lock := flock.New(s.path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCommitFailed, s.path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLockUnavailable, s.path)
	}
	defer lock.Unlock()

	current, err := propfile.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCommitFailed, s.path, err)
	}

	// The merged snapshot is computed in full before the file is touched.
	merged := Apply(Snapshot(current), ops)

	if err := f.Truncate(0); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCommitFailed, s.path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCommitFailed, s.path, err)
	}
	if err := propfile.Write(f, merged); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCommitFailed, s.path, err)
	}

	return merged, nil
}

func (s *fileStore) String() string {
	return s.path
}
