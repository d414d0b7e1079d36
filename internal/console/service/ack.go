package service

import (
	"context"

	"github.com/xela07ax/directive-gate/internal/domain"
)

type AckLedger interface {
	Record(ctx context.Context, actorID string, directiveID int64, signature string) (domain.Acknowledgment, error)
	LatestFor(ctx context.Context, actorID string) (*domain.Acknowledgment, error)
	History(ctx context.Context, actorID string) ([]domain.Acknowledgment, error)
}

type AckService struct {
	ledger AckLedger
}

func NewAckService(ledger AckLedger) *AckService {
	return &AckService{ledger: ledger}
}

func (s *AckService) Record(ctx context.Context, req domain.AckRequest) (domain.Acknowledgment, error) {
	return s.ledger.Record(ctx, req.ActorID, req.DirectiveID, req.Signature)
}

func (s *AckService) History(ctx context.Context, actorID string) ([]domain.Acknowledgment, error) {
	return s.ledger.History(ctx, actorID)
}
