package directory

import (
	"context"
	"strings"
	"sync"
)

// Memory is an in-memory [Directory] for tests and development.
type Memory struct {
	mu    sync.RWMutex
	users map[string]Record
}

// NewMemory creates a directory preloaded with the given records.
func NewMemory(records ...Record) *Memory {
	m := &Memory{users: make(map[string]Record, len(records))}
	for _, rec := range records {
		m.users[strings.ToLower(rec.Username)] = rec
	}
	return m
}

// Put adds or replaces a record.
func (m *Memory) Put(rec Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[strings.ToLower(rec.Username)] = rec
}

func (m *Memory) GetByUsername(_ context.Context, username string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.users[strings.ToLower(username)]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}
