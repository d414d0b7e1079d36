package credentials

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// KeyPair ключи участника в hex (формат gatectl keygen).
type KeyPair struct {
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
}

func GenerateKeyPair() (KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, fmt.Errorf("key generation failed: %w", err)
	}
	return KeyPair{
		PublicKey:  hex.EncodeToString(pub),
		PrivateKey: hex.EncodeToString(priv),
	}, nil
}

// Sign подписывает payload приватным ключом (hex) и возвращает hex подписи.
func Sign(privateKeyHex string, payload []byte) (string, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(privateKeyHex))
	if err != nil {
		return "", fmt.Errorf("invalid private key hex: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return "", fmt.Errorf("invalid private key size: %d", len(raw))
	}
	return hex.EncodeToString(ed25519.Sign(ed25519.PrivateKey(raw), payload)), nil
}
