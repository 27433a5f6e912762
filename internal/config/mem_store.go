package config

import "sync"

// MemStore is an in-memory Store for tests that never writes to disk.
type MemStore struct {
	mu   sync.Mutex
	plan *Plan
}

// NewMemStore returns a new in-memory store with nil plan (defaults to DefaultPlan on Load).
func NewMemStore() *MemStore {
	return &MemStore{}
}

// Load returns a copy of the stored plan, or DefaultPlan if none has been saved yet.
func (m *MemStore) Load() (*Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.plan == nil {
		def := DefaultPlan()
		return &def, nil
	}
	cp := m.plan.DeepCopy()
	return &cp, nil
}

// Save stores a deep copy of the given plan in memory.
func (m *MemStore) Save(plan *Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := plan.DeepCopy()
	m.plan = &cp
	return nil
}

// Path returns ":memory:" to indicate this is an in-memory store.
func (m *MemStore) Path() string { return ":memory:" }

// Flush is a no-op for in-memory stores.
func (m *MemStore) Flush() error { return nil }

var _ Store = (*MemStore)(nil)
