package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xela07ax/directive-gate/internal/credentials"
	"github.com/xela07ax/directive-gate/internal/domain"
	"go.uber.org/zap"
)

// Log append-only журнал подтверждений. Записи не изменяются и не удаляются.
type Log interface {
	// Append атомарно добавляет запись и назначает Seq. Если пара (actor, directive)
	// уже подтверждена, возвращает существующую запись без новой вставки.
	Append(ctx context.Context, ack domain.Acknowledgment) (domain.Acknowledgment, error)
	// Latest запись участника с наибольшим DirectiveID или nil.
	Latest(ctx context.Context, actorID string) (*domain.Acknowledgment, error)
	// History все записи участника в порядке добавления.
	History(ctx context.Context, actorID string) ([]domain.Acknowledgment, error)
	// CountForDirective сколько участников подтвердили версию.
	CountForDirective(ctx context.Context, directiveID int64) (int64, error)
}

// DirectiveLookup нужен, чтобы проверить существование версии и собрать payload подписи.
type DirectiveLookup interface {
	Get(ctx context.Context, id int64) (domain.Directive, error)
}

type Ledger struct {
	log        Log
	directives DirectiveLookup
	verifier   credentials.Verifier
	logger     *zap.Logger
	now        func() time.Time
}

func New(log Log, directives DirectiveLookup, verifier credentials.Verifier, logger *zap.Logger) *Ledger {
	return &Ledger{
		log:        log,
		directives: directives,
		verifier:   verifier,
		logger:     logger.Named("ack-ledger"),
		now:        time.Now,
	}
}

// Record проверяет подпись участника и добавляет подтверждение в журнал.
// Неверная подпись никогда не создает запись.
func (l *Ledger) Record(ctx context.Context, actorID string, directiveID int64, signature string) (domain.Acknowledgment, error) {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" || signature == "" || directiveID <= 0 {
		return domain.Acknowledgment{}, fmt.Errorf("%w: actor, directive and signature are required", domain.ErrInvalidArgument)
	}

	d, err := l.directives.Get(ctx, directiveID)
	if err != nil {
		return domain.Acknowledgment{}, domain.WrapStoreError(err)
	}

	ok, err := l.verifier.Verify(ctx, actorID, signature, domain.AckPayload(actorID, d))
	if err != nil {
		return domain.Acknowledgment{}, fmt.Errorf("verify signature: %w", domain.WrapStoreError(err))
	}
	if !ok {
		l.logger.Warn("acknowledgment rejected: invalid signature",
			zap.String("actor_id", actorID),
			zap.Int64("directive_id", directiveID))
		return domain.Acknowledgment{}, domain.ErrInvalidSignature
	}

	ack, err := l.log.Append(ctx, domain.Acknowledgment{
		ActorID:     actorID,
		DirectiveID: directiveID,
		Signature:   strings.ToLower(strings.TrimSpace(signature)),
		Timestamp:   l.now().UTC(),
	})
	if err != nil {
		return domain.Acknowledgment{}, fmt.Errorf("append acknowledgment: %w", domain.WrapStoreError(err))
	}

	l.logger.Info("acknowledgment recorded",
		zap.String("actor_id", ack.ActorID),
		zap.Int64("directive_id", ack.DirectiveID),
		zap.Int64("seq", ack.Seq))
	return ack, nil
}

// LatestFor подтверждение участника с наибольшим DirectiveID или nil.
func (l *Ledger) LatestFor(ctx context.Context, actorID string) (*domain.Acknowledgment, error) {
	ack, err := l.log.Latest(ctx, actorID)
	if err != nil {
		return nil, domain.WrapStoreError(err)
	}
	return ack, nil
}

// History упорядоченная история подтверждений участника.
func (l *Ledger) History(ctx context.Context, actorID string) ([]domain.Acknowledgment, error) {
	items, err := l.log.History(ctx, actorID)
	if err != nil {
		return nil, domain.WrapStoreError(err)
	}
	return items, nil
}

func (l *Ledger) CountForDirective(ctx context.Context, directiveID int64) (int64, error) {
	n, err := l.log.CountForDirective(ctx, directiveID)
	if err != nil {
		return 0, domain.WrapStoreError(err)
	}
	return n, nil
}
