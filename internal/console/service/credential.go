package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xela07ax/directive-gate/internal/credentials"
	"github.com/xela07ax/directive-gate/internal/domain"
	"go.uber.org/zap"
)

type CredentialStore interface {
	Put(ctx context.Context, c domain.ActorCredential) error
	Revoke(ctx context.Context, actorID string) error
}

// CredentialService регистрация и отзыв публичных ключей участников.
// Ротация ключа делает все прежние подписи участника недействительными.
type CredentialService struct {
	store  CredentialStore
	logger *zap.Logger
	now    func() time.Time
}

func NewCredentialService(store CredentialStore, logger *zap.Logger) *CredentialService {
	return &CredentialService{store: store, logger: logger.Named("credentials"), now: time.Now}
}

func (s *CredentialService) Register(ctx context.Context, actorID, publicKeyHex string) (domain.ActorCredential, error) {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return domain.ActorCredential{}, fmt.Errorf("%w: actor id is required", domain.ErrInvalidArgument)
	}
	if _, err := credentials.ParsePublicKey(publicKeyHex); err != nil {
		return domain.ActorCredential{}, fmt.Errorf("%w: %w", domain.ErrInvalidArgument, err)
	}

	c := domain.ActorCredential{
		ActorID:   actorID,
		PublicKey: strings.ToLower(strings.TrimSpace(publicKeyHex)),
		UpdatedAt: s.now().UTC(),
	}
	if err := s.store.Put(ctx, c); err != nil {
		return domain.ActorCredential{}, domain.WrapStoreError(err)
	}
	s.logger.Info("actor credential registered", zap.String("actor_id", actorID))
	return c, nil
}

func (s *CredentialService) Revoke(ctx context.Context, actorID string) error {
	if err := s.store.Revoke(ctx, actorID); err != nil {
		return err
	}
	s.logger.Warn("actor credential revoked", zap.String("actor_id", actorID))
	return nil
}
