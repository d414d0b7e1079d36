package credentials

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ErrNoCredential у участника нет зарегистрированного ключа.
var ErrNoCredential = errors.New("actor has no registered credential")

// Verifier проверка подписи подтверждения. Криптографию ядро делегирует сюда.
type Verifier interface {
	// Verify возвращает false для неверной подписи или неизвестного участника;
	// error только при сбое источника ключей.
	Verify(ctx context.Context, actorID, signature string, payload []byte) (bool, error)
}

// KeySource откуда берутся публичные ключи участников (БД, конфиг, память).
type KeySource interface {
	// PublicKey возвращает hex ed25519 ключ или ErrNoCredential.
	PublicKey(ctx context.Context, actorID string) (string, error)
}

// Keyring Ed25519-верификатор поверх произвольного KeySource.
type Keyring struct {
	keys   KeySource
	logger *zap.Logger
}

func NewKeyring(keys KeySource, logger *zap.Logger) *Keyring {
	return &Keyring{keys: keys, logger: logger.Named("keyring")}
}

func (k *Keyring) Verify(ctx context.Context, actorID, signature string, payload []byte) (bool, error) {
	keyHex, err := k.keys.PublicKey(ctx, actorID)
	if err != nil {
		if errors.Is(err, ErrNoCredential) {
			k.logger.Debug("no credential for actor", zap.String("actor_id", actorID))
			return false, nil
		}
		return false, fmt.Errorf("credential lookup for %s: %w", actorID, err)
	}

	pub, err := ParsePublicKey(keyHex)
	if err != nil {
		// Битый ключ в хранилище: подписи этого участника не принимаем
		k.logger.Error("stored credential is malformed", zap.String("actor_id", actorID), zap.Error(err))
		return false, nil
	}

	sig, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false, nil
	}

	return ed25519.Verify(pub, payload, sig), nil
}

// ParsePublicKey разбирает hex ed25519 публичный ключ.
func ParsePublicKey(keyHex string) (ed25519.PublicKey, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(keyHex))
	if err != nil {
		return nil, fmt.Errorf("invalid public key hex: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid public key size: %d", len(raw))
	}
	return ed25519.PublicKey(raw), nil
}
