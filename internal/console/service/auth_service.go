package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xela07ax/directive-gate/internal/domain"
	"github.com/xela07ax/directive-gate/internal/infra/auth"
	"golang.org/x/crypto/bcrypt"
)

type UserStore interface {
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	CreateUser(ctx context.Context, u *domain.User) error
}

// AuthService выпускает RS256 токены операторам консоли и хукам (scope gate.check).
// Проверка токенов встроена через BaseValidator.
type AuthService struct {
	*auth.BaseValidator
	repo   UserStore
	issuer *auth.Issuer
}

func NewAuthService(repo UserStore, validator *auth.BaseValidator, issuer *auth.Issuer) *AuthService {
	return &AuthService{BaseValidator: validator, repo: repo, issuer: issuer}
}

func (s *AuthService) GenerateToken(ctx context.Context, username, password string) (*domain.TokenResponse, error) {
	// Источник правды - хранилище пользователей
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, domain.WrapStoreError(err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issuer.Issue(user)
}

// CreateUser заводит оператора (bootstrap admin, gatectl).
func (s *AuthService) CreateUser(ctx context.Context, username, password string, scopes []string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(password) < 8 {
		return nil, fmt.Errorf("%w: username and password of at least 8 chars are required", domain.ErrInvalidArgument)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		Scopes:       make(map[string]bool, len(scopes)),
		CreatedAt:    time.Now().UTC(),
	}
	for _, sc := range scopes {
		u.Scopes[sc] = true
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
