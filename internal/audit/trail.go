package audit

/*
Trail журнал нарушений (ViolationRecord) с асинхронной пакетной записью.

- Hot Path шлюза не ждет БД: Log кладет запись в буферизованный канал.
- Batching: воркер копит записи и пишет пачкой по таймеру или по лимиту.
- Drain: Stop закрывает вход, воркер вычитывает остаток и делает финальный flush.
- Журнал аудита не теряет записи: при переполнении буфера или после Stop
  запись уходит в хранилище синхронно, в обход очереди.
*/

import (
	"context"
	"sync"
	"time"

	"github.com/xela07ax/directive-gate/internal/domain"
	"go.uber.org/zap"
)

// Storage куда физически сохраняются записи.
type Storage interface {
	// WriteBatch сохраняет пачку записей за один раз
	WriteBatch(ctx context.Context, records []domain.ViolationRecord) error
}

// Scanner упорядоченное чтение журнала (по времени добавления).
type Scanner interface {
	ScanViolations(ctx context.Context, filter domain.ViolationFilter) ([]domain.ViolationRecord, error)
}

type Auditor interface {
	Log(record domain.ViolationRecord)
}

type Options struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
	WriteTimeout  time.Duration
}

type Trail struct {
	ch     chan domain.ViolationRecord
	repo   Storage
	logger *zap.Logger
	opts   Options
	wg     sync.WaitGroup

	mu     sync.RWMutex // защищает closed и закрытие ch
	closed bool
}

func NewTrail(repo Storage, logger *zap.Logger, opts Options) *Trail {
	if opts.BufferSize <= 0 {
		opts.BufferSize = 10000
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = 500 * time.Millisecond
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	return &Trail{
		ch:     make(chan domain.ViolationRecord, opts.BufferSize),
		repo:   repo,
		logger: logger.With(zap.String("mod", "audit-trail")),
		opts:   opts,
	}
}

func (t *Trail) Start() {
	t.wg.Add(1)
	go t.worker()
}

// Stop запирает вход и ждет, пока воркер все допишет.
func (t *Trail) Stop() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.logger.Info("stopping audit trail: closing channel and flushing buffer...")
	close(t.ch)
	t.mu.Unlock()

	t.wg.Wait()
	t.logger.Info("audit trail stopped gracefully")
}

// Depth текущая глубина очереди (для метрик).
func (t *Trail) Depth() int {
	return len(t.ch)
}

func (t *Trail) Log(record domain.ViolationRecord) {
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	t.mu.RLock()
	if !t.closed {
		select {
		case t.ch <- record:
			t.mu.RUnlock()
			return
		default:
		}
	}
	closed := t.closed
	t.mu.RUnlock()

	// Очередь переполнена или уже закрыта: пишем напрямую
	t.logger.Warn("audit buffer bypass, writing synchronously",
		zap.Bool("stopped", closed),
		zap.String("actor_id", record.ActorID),
		zap.String("trace_id", record.TraceID))
	t.write([]domain.ViolationRecord{record})
}

func (t *Trail) write(batch []domain.ViolationRecord) {
	// Background: контекст запроса к этому моменту может быть уже отменен
	ctx, cancel := context.WithTimeout(context.Background(), t.opts.WriteTimeout)
	defer cancel()
	if err := t.repo.WriteBatch(ctx, batch); err != nil {
		// Последний рубеж: запись остается хотя бы в логе процесса
		for _, r := range batch {
			t.logger.Error("audit write failed",
				zap.Error(err),
				zap.String("violation_id", r.ID),
				zap.String("trace_id", r.TraceID),
				zap.String("actor_id", r.ActorID),
				zap.String("operation", r.OperationKind),
				zap.String("reason", string(r.Decision.Reason)),
				zap.Time("ts", r.Timestamp))
		}
	}
}

func (t *Trail) worker() {
	defer t.wg.Done()

	batch := make([]domain.ViolationRecord, 0, t.opts.BatchSize)
	ticker := time.NewTicker(t.opts.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) > 0 {
			t.write(batch)
			batch = make([]domain.ViolationRecord, 0, t.opts.BatchSize)
		}
	}

	for {
		select {
		case record, ok := <-t.ch:
			if !ok {
				// Канал закрыт в Stop: остаток уже вычитан
				flush()
				t.logger.Info("audit worker finished")
				return
			}
			batch = append(batch, record)
			if len(batch) >= t.opts.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
