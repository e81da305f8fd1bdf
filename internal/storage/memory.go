package storage

import (
	"context"
	"sort"
	"sync"
)

// Memory is a process-local store for development and tests. Records are
// kept by value, so readers never share memory with an in-flight write.
type Memory struct {
	mu      sync.RWMutex
	records map[string]StakingRecord
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]StakingRecord)}
}

// Upsert creates or refreshes a record under the write lock.
func (m *Memory) Upsert(_ context.Context, record StakingRecord) (StakingRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var current *StakingRecord
	if existing, ok := m.records[record.TokenAddress]; ok {
		current = &existing
	}
	stored := merge(current, record)
	m.records[record.TokenAddress] = stored
	return clone(stored), current == nil, nil
}

// GetAll lists every record ordered by token address.
func (m *Memory) GetAll(_ context.Context) ([]StakingRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]StakingRecord, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, clone(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TokenAddress < out[j].TokenAddress })
	return out, nil
}

// GetByKey fetches one record by token address.
func (m *Memory) GetByKey(_ context.Context, tokenAddress string) (StakingRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[tokenAddress]
	if !ok {
		return StakingRecord{}, ErrNotFound
	}
	return clone(rec), nil
}

func (m *Memory) Ping(context.Context) error    { return nil }
func (m *Memory) Migrate(context.Context) error { return nil }
func (m *Memory) Close()                        {}

func clone(rec StakingRecord) StakingRecord {
	rec.Categories = append([]string(nil), rec.Categories...)
	return rec
}

var _ Store = (*Memory)(nil)
