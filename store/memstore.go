package store

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type memStore struct {
	id   string
	data Snapshot
	mu   sync.Mutex
}

// NewMemStore creates a transient Store over an in-memory bag of flat
// entries; a nil bag starts empty. The bag is held by reference, so every
// tree built over the same bag observes the same content. The store never
// touches the filesystem and is assigned a unique UUIDv7 identity.
func NewMemStore(data map[string]string) Store {
	if data == nil {
		data = make(map[string]string)
	}
	return &memStore{
		id:   uuid.Must(uuid.NewV7()).String(),
		data: Snapshot(data),
	}
}

func (s *memStore) Load(_ context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Clone(), nil
}

func (s *memStore) Commit(_ context.Context, ops []Op) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := Apply(s.data, ops)

	// Write the result back into the caller's bag rather than replacing it.
	clear(s.data)
	for k, v := range merged {
		s.data[k] = v
	}
	return merged, nil
}

func (s *memStore) String() string {
	return "transient:" + s.id
}
