package domain

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Scopes, которые выдаются в токенах консоли и шлюза.
const (
	ScopeAdmin            = "admin"
	ScopeDirectivePublish = "directive.publish"
	ScopeAckWrite         = "ack.write"
	ScopeAuditRead        = "audit.read"
	ScopeGateCheck        = "gate.check"
)

type CustomClaims struct {
	UserID string          `json:"user_id"`
	Scopes map[string]bool `json:"scopes"` // "admin": true или "gate.check": true
	jwt.RegisteredClaims
}

// HasScope admin покрывает любой scope.
func (c *CustomClaims) HasScope(scope string) bool {
	if c == nil {
		return false
	}
	return c.Scopes[ScopeAdmin] || c.Scopes[scope]
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"` // Всегда "Bearer"
	ExpiresIn   int64  `json:"expires_in"`
}

// User оператор консоли (публикует директивы, читает аудит).
type User struct {
	ID           string          `json:"id"`
	Username     string          `json:"username"`
	PasswordHash string          `json:"-"` // Никогда не отправляем наружу
	Scopes       map[string]bool `json:"scopes"`
	CreatedAt    time.Time       `json:"created_at"`
}
