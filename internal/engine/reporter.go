package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xela07ax/directive-gate/internal/audit"
	"github.com/xela07ax/directive-gate/internal/domain"
	"github.com/xela07ax/directive-gate/internal/notify"
	"go.uber.org/zap"
)

// ViolationReporter фиксирует заблокированные попытки: запись в журнал аудита
// и уведомление. Уведомление уходит в фоне и не влияет на уже принятое решение.
type ViolationReporter struct {
	auditor audit.Auditor
	sink    notify.Sink
	timeout time.Duration
	metrics *Metrics
	logger  *zap.Logger
	now     func() time.Time

	inflight sync.WaitGroup
}

func NewViolationReporter(auditor audit.Auditor, sink notify.Sink, timeout time.Duration, metrics *Metrics, logger *zap.Logger) *ViolationReporter {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &ViolationReporter{
		auditor: auditor,
		sink:    sink,
		timeout: timeout,
		metrics: metrics,
		logger:  logger.With(zap.String("mod", "violation-reporter")),
		now:     time.Now,
	}
}

// Report no-op для ALLOW.
func (r *ViolationReporter) Report(ctx context.Context, decision domain.ComplianceDecision, operationKind, actorID string) {
	if decision.Allowed {
		return
	}

	record := domain.ViolationRecord{
		ID:            uuid.New().String(),
		TraceID:       orNewTraceID(TraceIDFrom(ctx)),
		ActorID:       actorID,
		OperationKind: operationKind,
		Decision:      decision,
		Timestamp:     r.now().UTC(),
	}
	r.auditor.Log(record)

	if r.sink == nil {
		return
	}

	// Вызывающий мог уже уйти: уведомление живет своим таймаутом
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		defer cancel()
		if err := r.sink.Notify(notifyCtx, record); err != nil {
			r.metrics.ErrorTotal.WithLabelValues("notify").Inc()
			r.logger.Warn("violation notification failed",
				zap.String("violation_id", record.ID),
				zap.String("trace_id", record.TraceID),
				zap.Error(err))
		}
	}()
}

// Wait дожидается фоновых уведомлений (graceful shutdown).
func (r *ViolationReporter) Wait() {
	r.inflight.Wait()
}
