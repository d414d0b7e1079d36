package ledger

import (
	"context"
	"sync"

	"github.com/xela07ax/directive-gate/internal/domain"
)

type ackKey struct {
	actor     string
	directive int64
}

// MemoryLog журнал-арена: записи только дописываются в срез и адресуются индексом.
// Индексы по участнику хранят позиции, а не копии, поэтому запись существует в одном месте.
type MemoryLog struct {
	mu      sync.RWMutex
	entries []domain.Acknowledgment
	byActor map[string][]int
	byKey   map[ackKey]int
	latest  map[string]int // индекс записи с наибольшим DirectiveID
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{
		byActor: make(map[string][]int),
		byKey:   make(map[ackKey]int),
		latest:  make(map[string]int),
	}
}

func (m *MemoryLog) Append(ctx context.Context, ack domain.Acknowledgment) (domain.Acknowledgment, error) {
	if err := ctx.Err(); err != nil {
		return domain.Acknowledgment{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := ackKey{actor: ack.ActorID, directive: ack.DirectiveID}
	if idx, ok := m.byKey[key]; ok {
		return m.entries[idx], nil
	}

	idx := len(m.entries)
	ack.Seq = int64(idx + 1)
	m.entries = append(m.entries, ack)
	m.byKey[key] = idx
	m.byActor[ack.ActorID] = append(m.byActor[ack.ActorID], idx)

	if cur, ok := m.latest[ack.ActorID]; !ok || m.entries[cur].DirectiveID < ack.DirectiveID {
		m.latest[ack.ActorID] = idx
	}
	return ack, nil
}

func (m *MemoryLog) Latest(ctx context.Context, actorID string) (*domain.Acknowledgment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx, ok := m.latest[actorID]
	if !ok {
		return nil, nil
	}
	ack := m.entries[idx]
	return &ack, nil
}

func (m *MemoryLog) History(ctx context.Context, actorID string) ([]domain.Acknowledgment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Acknowledgment, 0, len(m.byActor[actorID]))
	for _, idx := range m.byActor[actorID] {
		out = append(out, m.entries[idx])
	}
	return out, nil
}

func (m *MemoryLog) CountForDirective(ctx context.Context, directiveID int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for key := range m.byKey {
		if key.directive == directiveID {
			n++
		}
	}
	return n, nil
}

// Len количество записей (для тестов и метрик).
func (m *MemoryLog) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
