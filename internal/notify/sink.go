package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xela07ax/directive-gate/internal/domain"
	"go.uber.org/zap"
)

// Sink получатель событий о заблокированных операциях.
// Семантика доставки (повторы, порядок) целиком на стороне реализации.
type Sink interface {
	Notify(ctx context.Context, record domain.ViolationRecord) error
}

// ThrottleError получатель попросил подождать (429/503 + Retry-After).
type ThrottleError struct {
	RetryAfter time.Duration
	Cause      error
}

func (e *ThrottleError) Error() string {
	return fmt.Sprintf("throttled: retry after %v (cause: %v)", e.RetryAfter, e.Cause)
}

func (e *ThrottleError) Unwrap() error { return e.Cause }

// Fanout рассылает событие во все синки. Сбой одного не мешает остальным.
type Fanout []Sink

func (f Fanout) Notify(ctx context.Context, record domain.ViolationRecord) error {
	var errs []error
	for _, s := range f {
		if err := s.Notify(ctx, record); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink пишет событие в лог. Используется, когда внешние получатели не настроены.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger.Named("violations")}
}

func (s *LogSink) Notify(_ context.Context, r domain.ViolationRecord) error {
	s.logger.Warn("operation blocked",
		zap.String("violation_id", r.ID),
		zap.String("trace_id", r.TraceID),
		zap.String("actor_id", r.ActorID),
		zap.String("operation", r.OperationKind),
		zap.String("reason", string(r.Decision.Reason)),
		zap.Int64("directive_id", r.Decision.DirectiveID))
	return nil
}
