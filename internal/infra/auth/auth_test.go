package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/directive-gate/internal/domain"
	"go.uber.org/zap"
)

func newKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func TestIssueAndVerify(t *testing.T) {
	key := newKey(t)
	issuer := NewIssuer(key, "directive-gate-console", time.Hour)
	user := &domain.User{ID: "u1", Username: "ops", Scopes: map[string]bool{domain.ScopeGateCheck: true}}

	tok, err := issuer.Issue(user)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", tok.TokenType)
	assert.Equal(t, int64(3600), tok.ExpiresIn)

	v := NewBaseValidator(&key.PublicKey, "directive-gate-console")
	claims, err := v.VerifyToken("Bearer " + tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.True(t, claims.HasScope(domain.ScopeGateCheck))
	assert.False(t, claims.HasScope(domain.ScopeDirectivePublish))
}

func TestVerifyRejects(t *testing.T) {
	key := newKey(t)
	user := &domain.User{ID: "u1", Username: "ops"}

	t.Run("foreign key", func(t *testing.T) {
		tok, err := NewIssuer(newKey(t), "x", time.Hour).Issue(user)
		require.NoError(t, err)
		_, err = NewBaseValidator(&key.PublicKey, "").VerifyToken(tok.AccessToken)
		assert.Error(t, err)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		tok, err := NewIssuer(key, "someone-else", time.Hour).Issue(user)
		require.NoError(t, err)
		_, err = NewBaseValidator(&key.PublicKey, "directive-gate-console").VerifyToken(tok.AccessToken)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		iss := NewIssuer(key, "x", time.Minute)
		iss.now = func() time.Time { return time.Now().Add(-time.Hour) }
		tok, err := iss.Issue(user)
		require.NoError(t, err)
		_, err = NewBaseValidator(&key.PublicKey, "").VerifyToken(tok.AccessToken)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := NewBaseValidator(&key.PublicKey, "").VerifyToken("Bearer not.a.jwt")
		assert.Error(t, err)
	})
}

func TestMiddlewareAndRequireScope(t *testing.T) {
	key := newKey(t)
	v := NewBaseValidator(&key.PublicKey, "")
	iss := NewIssuer(key, "", time.Hour)

	var seen *domain.CustomClaims
	h := NewMiddleware(v, zap.NewNop())(RequireScope(domain.ScopeAuditRead)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = ClaimsFromContext(r.Context())
			w.WriteHeader(http.StatusNoContent)
		})))

	do := func(header string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, do(""))
	assert.Equal(t, http.StatusUnauthorized, do("Bearer junk"))

	reader, err := iss.Issue(&domain.User{ID: "r", Scopes: map[string]bool{domain.ScopeAuditRead: true}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, do("Bearer "+reader.AccessToken))
	require.NotNil(t, seen)
	assert.Equal(t, "r", seen.UserID)

	checker, err := iss.Issue(&domain.User{ID: "c", Scopes: map[string]bool{domain.ScopeGateCheck: true}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, do("Bearer "+checker.AccessToken))

	admin, err := iss.Issue(&domain.User{ID: "a", Scopes: map[string]bool{domain.ScopeAdmin: true}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, do("Bearer "+admin.AccessToken))
}
