package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/xela07ax/directive-gate/internal/credentials"
	"github.com/xela07ax/directive-gate/internal/domain"
)

// MemoryUsers UserStore в памяти (dev-режим без Postgres, тесты).
type MemoryUsers struct {
	mu    sync.RWMutex
	users map[string]*domain.User
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{users: make(map[string]*domain.User)}
}

func (m *MemoryUsers) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[username]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryUsers) CreateUser(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Username]; ok {
		return fmt.Errorf("%w: username %q is taken", domain.ErrConflict, u.Username)
	}
	cp := *u
	m.users[u.Username] = &cp
	return nil
}

// MemoryCredentials CredentialStore поверх credentials.MemoryKeys.
type MemoryCredentials struct {
	Keys *credentials.MemoryKeys
}

func (m MemoryCredentials) Put(_ context.Context, c domain.ActorCredential) error {
	m.Keys.Put(c.ActorID, c.PublicKey)
	return nil
}

func (m MemoryCredentials) Revoke(ctx context.Context, actorID string) error {
	if _, err := m.Keys.PublicKey(ctx, actorID); err != nil {
		return err
	}
	m.Keys.Revoke(actorID)
	return nil
}
