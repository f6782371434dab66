package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	values    map[string][]byte
	touchedAt time.Time
}

// MemoryBackend keeps sessions in process memory. Sessions idle for longer
// than the TTL are treated as absent and are dropped by the next write that
// comes at least one TTL after the previous sweep.
type MemoryBackend struct {
	mu        sync.RWMutex
	sessions  map[string]*memoryEntry
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewMemoryBackend creates an in-memory backend. A zero ttl disables expiry.
func NewMemoryBackend(ttl time.Duration) *MemoryBackend {
	return &MemoryBackend{
		sessions: make(map[string]*memoryEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *MemoryBackend) expired(e *memoryEntry) bool {
	return m.ttl > 0 && m.now().Sub(e.touchedAt) > m.ttl
}

// Get returns a copy of the stored value.
func (m *MemoryBackend) Get(_ context.Context, sessionID, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.sessions[sessionID]
	if !ok || m.expired(entry) {
		return nil, ErrKeyNotFound
	}
	value, ok := entry.values[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return append([]byte(nil), value...), nil
}

// Set stores a copy of value and refreshes the session's idle timer.
func (m *MemoryBackend) Set(_ context.Context, sessionID, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweep()

	entry, ok := m.sessions[sessionID]
	if !ok || m.expired(entry) {
		entry = &memoryEntry{values: make(map[string][]byte)}
		m.sessions[sessionID] = entry
	}
	entry.values[key] = append([]byte(nil), value...)
	entry.touchedAt = m.now()
	return nil
}

// sweep removes expired sessions, at most once per TTL. Callers hold mu.
func (m *MemoryBackend) sweep() {
	if m.ttl <= 0 {
		return
	}
	now := m.now()
	if now.Sub(m.lastSweep) < m.ttl {
		return
	}
	m.lastSweep = now
	for id, entry := range m.sessions {
		if m.expired(entry) {
			delete(m.sessions, id)
		}
	}
}

// Delete drops the session.
func (m *MemoryBackend) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	return nil
}
