package store_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"

	"github.com/confstore/prefstore/store"
)

func TestFileStore_Load_MissingFile(t *testing.T) {
	st := store.NewFileStore(filepath.Join(t.TempDir(), "absent.conf"))

	snap, err := st.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(snap) != 0 {
		t.Errorf("Load() returned %d entries, want 0", len(snap))
	}
}

func TestFileStore_CommitThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.conf")
	st := store.NewFileStore(path)

	ops := []store.Op{
		{Kind: store.OpPut, Path: []string{"ui"}, Key: "color", Value: "green"},
		{Kind: store.OpPut, Key: "version", Value: "2"},
	}
	merged, err := st.Commit(context.Background(), ops)
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	want := store.Snapshot{"ui/color": "green", "version": "2"}
	assertSnapshot(t, merged, want)

	snap, err := st.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	assertSnapshot(t, snap, want)
}

func TestFileStore_Commit_MergesExternalChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.conf")
	st := store.NewFileStore(path)

	if _, err := st.Commit(context.Background(), []store.Op{
		{Kind: store.OpPut, Key: "a", Value: "1"},
	}); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	// Another process rewrites the file behind this store's back.
	if err := os.WriteFile(path, []byte("a=9\nc=4\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	merged, err := st.Commit(context.Background(), []store.Op{
		{Kind: store.OpPut, Key: "a", Value: "2"},
		{Kind: store.OpPut, Key: "b", Value: "3"},
	})
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	assertSnapshot(t, merged, store.Snapshot{"a": "2", "b": "3", "c": "4"})
}

func TestFileStore_TwoStoresOnePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.conf")
	first := store.NewFileStore(path)
	second := store.NewFileStore(path)

	if _, err := first.Commit(context.Background(), []store.Op{
		{Kind: store.OpPut, Key: "a", Value: "1"},
	}); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if _, err := second.Commit(context.Background(), []store.Op{
		{Kind: store.OpPut, Key: "b", Value: "2"},
	}); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	snap, err := first.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	assertSnapshot(t, snap, store.Snapshot{"a": "1", "b": "2"})
}

func TestFileStore_Commit_CreatesParentDirs(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "nested", "deep", "prefs.conf")
	st := store.NewFileStore(path)

	if _, err := st.Commit(context.Background(), []store.Op{
		{Kind: store.OpPut, Key: "a", Value: "1"},
	}); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file permissions = %o, want 600", perm)
	}

	dirInfo, err := os.Stat(filepath.Join(base, "nested"))
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := dirInfo.Mode().Perm(); perm != 0o700 {
		t.Errorf("directory permissions = %o, want 700", perm)
	}
}

func TestFileStore_LockUnavailable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.conf")
	if err := os.WriteFile(path, []byte("a=1\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	holder := flock.New(path)
	locked, err := holder.TryLock()
	if err != nil || !locked {
		t.Fatalf("TryLock() = %v, %v; want lock held", locked, err)
	}
	defer holder.Unlock()

	st := store.NewFileStore(path)

	if _, err := st.Load(context.Background()); !errors.Is(err, store.ErrLockUnavailable) {
		t.Errorf("Load() error = %v, want %v", err, store.ErrLockUnavailable)
	}
	if _, err := st.Commit(context.Background(), nil); !errors.Is(err, store.ErrLockUnavailable) {
		t.Errorf("Commit() error = %v, want %v", err, store.ErrLockUnavailable)
	}
}

func TestFileStore_SharedLockAllowsLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.conf")
	if err := os.WriteFile(path, []byte("a=1\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	holder := flock.New(path)
	locked, err := holder.TryRLock()
	if err != nil || !locked {
		t.Fatalf("TryRLock() = %v, %v; want lock held", locked, err)
	}
	defer holder.Unlock()

	st := store.NewFileStore(path)

	snap, err := st.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	assertSnapshot(t, snap, store.Snapshot{"a": "1"})

	if _, err := st.Commit(context.Background(), nil); !errors.Is(err, store.ErrLockUnavailable) {
		t.Errorf("Commit() error = %v, want %v", err, store.ErrLockUnavailable)
	}
}

func TestFileStore_FailedCommitLeavesFileIntact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.conf")
	content := []byte("a=1\nb=2\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	holder := flock.New(path)
	locked, err := holder.TryLock()
	if err != nil || !locked {
		t.Fatalf("TryLock() = %v, %v; want lock held", locked, err)
	}
	defer holder.Unlock()

	st := store.NewFileStore(path)
	if _, err := st.Commit(context.Background(), []store.Op{
		{Kind: store.OpPut, Key: "a", Value: "changed"},
	}); err == nil {
		t.Fatal("Commit() succeeded, want lock failure")
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("file content = %q, want %q untouched", got, content)
	}
}

func TestFileStore_ContextCanceled(t *testing.T) {
	st := store.NewFileStore(filepath.Join(t.TempDir(), "prefs.conf"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := st.Load(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want %v", err, context.Canceled)
	}
	if _, err := st.Commit(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Commit() error = %v, want %v", err, context.Canceled)
	}
}

func TestFileStore_String(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.conf")
	st := store.NewFileStore(path)

	if st.String() != path {
		t.Errorf("String() = %q, want %q", st.String(), path)
	}
}
