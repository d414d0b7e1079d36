package compliance

import (
	"context"
	"errors"
	"fmt"

	"github.com/xela07ax/directive-gate/internal/credentials"
	"github.com/xela07ax/directive-gate/internal/domain"
	"go.uber.org/zap"
)

// DirectiveSource действующая версия директивы.
type DirectiveSource interface {
	Current(ctx context.Context) (domain.Directive, error)
}

// AckSource последнее подтверждение участника.
type AckSource interface {
	LatestFor(ctx context.Context, actorID string) (*domain.Acknowledgment, error)
}

// Evaluator решает ALLOW/BLOCK для участника. Чистый путь чтения, без повторов.
// Недоступность хранилища дает BLOCK(STORE_UNAVAILABLE): при аварии не проходит никто.
type Evaluator struct {
	directives DirectiveSource
	acks       AckSource
	verifier   credentials.Verifier
	guard      *StoreGuard
	logger     *zap.Logger
}

func NewEvaluator(directives DirectiveSource, acks AckSource, verifier credentials.Verifier, guard *StoreGuard, logger *zap.Logger) *Evaluator {
	if guard == nil {
		guard = NewStoreGuard("compliance-store", GuardSettings{})
	}
	return &Evaluator{
		directives: directives,
		acks:       acks,
		verifier:   verifier,
		guard:      guard,
		logger:     logger.Named("evaluator"),
	}
}

// Evaluate возвращает решение для (actor, operation). Ошибка возвращается только
// вместе с BLOCK(NOT_INITIALIZED): это состояние нужно показать вызывающему,
// а не маскировать под сбой инфраструктуры.
func (e *Evaluator) Evaluate(ctx context.Context, actorID, operationKind string) (domain.ComplianceDecision, error) {
	current, err := Call(ctx, e.guard, e.directives.Current)
	if err != nil {
		if errors.Is(err, domain.ErrNotInitialized) {
			return domain.Block(actorID, 0, domain.ReasonNotInitialized), err
		}
		return e.failClosed(actorID, 0, operationKind, "current directive", err), nil
	}

	ack, err := Call(ctx, e.guard, func(ctx context.Context) (*domain.Acknowledgment, error) {
		return e.acks.LatestFor(ctx, actorID)
	})
	if err != nil {
		return e.failClosed(actorID, current.ID, operationKind, "latest acknowledgment", err), nil
	}

	switch {
	case ack == nil:
		return domain.Block(actorID, current.ID, domain.ReasonNoAck), nil
	case ack.DirectiveID != current.ID:
		// Подтвердил старую версию: обязан подтвердить заново
		return domain.Block(actorID, current.ID, domain.ReasonStaleAck), nil
	}

	// Ключ участника мог быть отозван или ротирован после подписи
	valid, err := Call(ctx, e.guard, func(ctx context.Context) (bool, error) {
		return e.verifier.Verify(ctx, actorID, ack.Signature, domain.AckPayload(actorID, current))
	})
	if err != nil {
		return e.failClosed(actorID, current.ID, operationKind, "signature verification", err), nil
	}
	if !valid {
		e.logger.Warn("acknowledgment signature no longer verifies",
			zap.String("actor_id", actorID),
			zap.Int64("directive_id", current.ID))
		return domain.Block(actorID, current.ID, domain.ReasonInvalidSignature), nil
	}

	return domain.Allow(actorID, current.ID), nil
}

func (e *Evaluator) failClosed(actorID string, directiveID int64, op, stage string, err error) domain.ComplianceDecision {
	e.logger.Error("compliance store failure, blocking operation",
		zap.String("actor_id", actorID),
		zap.String("operation", op),
		zap.String("stage", stage),
		zap.Error(fmt.Errorf("%s: %w", stage, err)))
	return domain.Block(actorID, directiveID, domain.ReasonStoreUnavailable)
}
