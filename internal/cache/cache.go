// Package cache provides the staleness-window cache behind the console's
// list and stats fetchers. Entries are opaque byte payloads keyed by the
// full query tuple, so a response can only ever refresh its own key.
package cache

import (
	"context"
	"sync"
	"time"
)

// Store is a TTL cache for upstream responses.
type Store interface {
	// Get returns the cached payload for key when a fresh entry exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores payload under key for ttl.
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
}

type memoryEntry struct {
	payload []byte
	expires time.Time
}

// Memory is an in-process Store. Suitable for a single console replica.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemory creates an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry)}
}

// Get returns the payload stored under key unless it has expired.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok || time.Now().After(entry.expires) {
		return nil, false, nil
	}
	return entry.payload, true, nil
}

// Set stores payload under key for ttl.
func (m *Memory) Set(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	m.mu.Lock()
	m.entries[key] = memoryEntry{payload: payload, expires: time.Now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

// StartCleanup launches a background sweep that drops expired entries every
// interval, until ctx is done. Expired entries are already invisible to Get;
// the sweep only bounds memory growth.
func (m *Memory) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				now := time.Now()
				m.mu.Lock()
				for key, entry := range m.entries {
					if now.After(entry.expires) {
						delete(m.entries, key)
					}
				}
				m.mu.Unlock()
			case <-ctx.Done():
				return
			}
		}
	}()
}
