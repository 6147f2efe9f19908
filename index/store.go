package index

import (
	"sync"
	"time"

	"github.com/git-pkgs/hexpm/registry"
)

// Entry is a cached package record from the registry index.
type Entry struct {
	Name      string
	Releases  []registry.Release
	FetchedAt time.Time
}

// Store caches index entries. Implementations must be safe for
// concurrent use.
type Store interface {
	Get(name string) (*Entry, bool)
	Put(name string, e *Entry)
	Delete(name string)
	Clear()
}

// MemoryStore is an in-process Store backed by a map.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*Entry)}
}

func (m *MemoryStore) Get(name string) (*Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[name]
	return e, ok
}

func (m *MemoryStore) Put(name string, e *Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[name] = e
}

func (m *MemoryStore) Delete(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, name)
}

func (m *MemoryStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*Entry)
}
