package directive

import (
	"context"
	"sync"
	"time"

	"github.com/xela07ax/directive-gate/internal/domain"
)

// MemoryRepository in-process хранилище версий (тесты, локальный запуск).
type MemoryRepository struct {
	mu    sync.RWMutex
	items []domain.Directive
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) List(ctx context.Context) ([]domain.Directive, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Directive, len(r.items))
	copy(out, r.items)
	return out, nil
}

func (r *MemoryRepository) Latest(ctx context.Context, asOf time.Time) (domain.Directive, error) {
	if err := ctx.Err(); err != nil {
		return domain.Directive{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := domain.SelectCurrent(r.items, asOf)
	if !ok {
		return domain.Directive{}, domain.ErrNotInitialized
	}
	return d, nil
}

// Insert принимает только следующий по порядку слот, как уникальный ключ в БД.
func (r *MemoryRepository) Insert(ctx context.Context, d domain.Directive) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var last int64
	if n := len(r.items); n > 0 {
		last = r.items[n-1].ID
	}
	if d.ID != last+1 {
		return domain.ErrConflict
	}
	r.items = append(r.items, d)
	return nil
}
