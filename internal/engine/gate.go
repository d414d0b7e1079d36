package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xela07ax/directive-gate/internal/domain"
	"go.uber.org/zap"
)

// Evaluator принимает решение ALLOW/BLOCK (compliance.Evaluator).
type Evaluator interface {
	Evaluate(ctx context.Context, actorID, operationKind string) (domain.ComplianceDecision, error)
}

// Gate единственная точка входа для хуков и пайплайнов (HTTP, gRPC, CLI).
type Gate struct {
	evaluator Evaluator
	reporter  *ViolationReporter
	metrics   *Metrics
	logger    *zap.Logger
}

func NewGate(evaluator Evaluator, reporter *ViolationReporter, metrics *Metrics, logger *zap.Logger) *Gate {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Gate{
		evaluator: evaluator,
		reporter:  reporter,
		metrics:   metrics,
		logger:    logger.Named("gate"),
	}
}

// CheckOperation оценивает операцию и фиксирует нарушение при BLOCK.
// Решение возвращается без изменений; при NOT_INITIALIZED вместе с ним идет ошибка.
func (g *Gate) CheckOperation(ctx context.Context, actorID, operationKind string) (domain.ComplianceDecision, error) {
	actorID = strings.TrimSpace(actorID)
	operationKind = strings.TrimSpace(operationKind)
	if actorID == "" || operationKind == "" {
		g.metrics.ErrorTotal.WithLabelValues("invalid_argument").Inc()
		return domain.ComplianceDecision{}, fmt.Errorf("%w: actor and operation are required", domain.ErrInvalidArgument)
	}

	start := time.Now()
	decision, err := g.evaluator.Evaluate(ctx, actorID, operationKind)

	g.metrics.CheckDuration.WithLabelValues(string(decision.Reason)).Observe(time.Since(start).Seconds())
	g.metrics.DecisionsTotal.WithLabelValues(strconv.FormatBool(decision.Allowed), string(decision.Reason)).Inc()
	if errors.Is(err, domain.ErrNotInitialized) {
		g.metrics.ErrorTotal.WithLabelValues("not_initialized").Inc()
	}

	if !decision.Allowed {
		g.reporter.Report(ctx, decision, operationKind, actorID)
		g.logger.Info("operation blocked",
			zap.String("trace_id", TraceIDFrom(ctx)),
			zap.String("actor_id", actorID),
			zap.String("operation", operationKind),
			zap.String("reason", string(decision.Reason)))
	}

	return decision, err
}
