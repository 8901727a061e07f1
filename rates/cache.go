package rates

import (
	"context"
	"sync"
)

// Cache keeps the last successfully fetched snapshot.
type Cache interface {
	Load(ctx context.Context) (Snapshot, bool, error)
	Store(ctx context.Context, snap Snapshot) error
}

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	mu   sync.Mutex
	snap *Snapshot
}

func (m *MemoryCache) Load(context.Context) (Snapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		return Snapshot{}, false, nil
	}
	return *m.snap, true, nil
}

func (m *MemoryCache) Store(_ context.Context, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = &snap
	return nil
}
