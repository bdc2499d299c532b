package cart

import (
	"context"
	"sync"
)

// MemoryPersistence keeps the payload in process. Used by tests and by the
// storefront when no database is configured.
type MemoryPersistence struct {
	mu      sync.RWMutex
	payload []byte
	saves   int
}

func NewMemoryPersistence(initial []byte) *MemoryPersistence {
	return &MemoryPersistence{payload: initial}
}

func (m *MemoryPersistence) Load(context.Context) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.payload, nil
}

func (m *MemoryPersistence) Save(_ context.Context, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payload = append([]byte(nil), payload...)
	m.saves++
	return nil
}

func (m *MemoryPersistence) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

// MemoryBackend hands out one MemoryPersistence per session.
type MemoryBackend struct {
	mu       sync.Mutex
	sessions map[string]*MemoryPersistence
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{sessions: make(map[string]*MemoryPersistence)}
}

func (b *MemoryBackend) ForSession(sessionID string) Persistence {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.sessions[sessionID]
	if !ok {
		p = NewMemoryPersistence(nil)
		b.sessions[sessionID] = p
	}
	return p
}

func (b *MemoryBackend) Clear(_ context.Context, sessionID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sessions, sessionID)
	return nil
}
