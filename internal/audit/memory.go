package audit

import (
	"context"
	"sync"

	"github.com/xela07ax/directive-gate/internal/domain"
)

// MemoryStorage журнал в памяти: записи только добавляются в конец.
type MemoryStorage struct {
	mu      sync.RWMutex
	records []domain.ViolationRecord
	batches int
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (m *MemoryStorage) WriteBatch(_ context.Context, records []domain.ViolationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, records...)
	m.batches++
	return nil
}

func (m *MemoryStorage) ScanViolations(_ context.Context, filter domain.ViolationFilter) ([]domain.ViolationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.ViolationRecord, 0)
	for _, r := range m.records {
		if !filter.Match(r) {
			continue
		}
		out = append(out, r)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// Len количество записей.
func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Batches сколько раз вызывался WriteBatch.
func (m *MemoryStorage) Batches() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.batches
}
