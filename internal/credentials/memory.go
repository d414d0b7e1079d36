package credentials

import (
	"context"
	"sync"
)

// MemoryKeys KeySource в памяти (тесты, статический список из конфига).
type MemoryKeys struct {
	mu   sync.RWMutex
	keys map[string]string
}

func NewMemoryKeys(keys map[string]string) *MemoryKeys {
	m := &MemoryKeys{keys: make(map[string]string, len(keys))}
	for actor, k := range keys {
		m.keys[actor] = k
	}
	return m
}

func (m *MemoryKeys) PublicKey(_ context.Context, actorID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	k, ok := m.keys[actorID]
	if !ok {
		return "", ErrNoCredential
	}
	return k, nil
}

// Put регистрирует или ротирует ключ участника.
func (m *MemoryKeys) Put(actorID, publicKeyHex string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[actorID] = publicKeyHex
}

// Revoke удаляет ключ: все подписи участника перестают проходить проверку.
func (m *MemoryKeys) Revoke(actorID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, actorID)
}
