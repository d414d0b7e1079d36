package server

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/directive-gate/internal/audit"
	"github.com/xela07ax/directive-gate/internal/console/handler"
	"github.com/xela07ax/directive-gate/internal/console/service"
	"github.com/xela07ax/directive-gate/internal/credentials"
	"github.com/xela07ax/directive-gate/internal/directive"
	"github.com/xela07ax/directive-gate/internal/domain"
	"github.com/xela07ax/directive-gate/internal/infra/auth"
	"github.com/xela07ax/directive-gate/internal/ledger"
	"go.uber.org/zap"
)

type console struct {
	srv        *ConsoleServer
	violations *audit.MemoryStorage
	authSvc    *service.AuthService
}

func newConsole(t *testing.T) *console {
	t.Helper()
	logger := zap.NewNop()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	store := directive.NewStore(directive.NewMemoryRepository(), logger, directive.Options{})
	keys := credentials.NewMemoryKeys(nil)
	led := ledger.New(ledger.NewMemoryLog(), store, credentials.NewKeyring(keys, logger), logger)
	violations := audit.NewMemoryStorage()

	authSvc := service.NewAuthService(service.NewMemoryUsers(),
		auth.NewBaseValidator(&key.PublicKey, "test"), auth.NewIssuer(key, "test", time.Hour))

	srv := NewConsoleServer(logger, authSvc, Handlers{
		Auth:       handler.NewAuthHandler(authSvc, logger),
		Directive:  handler.NewDirectiveHandler(service.NewDirectiveService(store), logger),
		Ack:        handler.NewAckHandler(service.NewAckService(led), logger),
		Credential: handler.NewCredentialHandler(service.NewCredentialService(service.MemoryCredentials{Keys: keys}, logger), logger),
		Audit: handler.NewAuditHandler(service.NewAuditService(
			violations, service.MemoryReasonCounter{Scanner: violations}, store, led), logger),
	})
	return &console{srv: srv, violations: violations, authSvc: authSvc}
}

func (c *console) login(t *testing.T, username string, scopes ...string) string {
	t.Helper()
	_, err := c.authSvc.CreateUser(context.Background(), username, "correct-horse", scopes)
	require.NoError(t, err)

	rec := c.do(t, http.MethodPost, "/auth/token", "", map[string]string{"username": username, "password": "correct-horse"})
	require.Equal(t, http.StatusOK, rec.Code)
	var tok domain.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tok))
	return tok.AccessToken
}

func (c *console) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c.srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestConsole_LoginRejectsWrongPassword(t *testing.T) {
	c := newConsole(t)
	_, err := c.authSvc.CreateUser(context.Background(), "ops", "correct-horse", nil)
	require.NoError(t, err)

	rec := c.do(t, http.MethodPost, "/auth/token", "", map[string]string{"username": "ops", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = c.do(t, http.MethodPost, "/auth/token", "", map[string]string{"username": "ghost", "password": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestConsole_AcknowledgmentFlow(t *testing.T) {
	c := newConsole(t)
	admin := c.login(t, "admin", domain.ScopeAdmin)

	rec := c.do(t, http.MethodGet, "/v1/directives/current", admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = c.do(t, http.MethodPost, "/v1/directives", admin, map[string]string{"text": "Read before you push"})
	require.Equal(t, http.StatusCreated, rec.Code)
	v1 := decode[domain.Directive](t, rec)
	assert.Equal(t, int64(1), v1.ID)

	rec = c.do(t, http.MethodPost, "/v1/directives", admin, map[string]string{"text": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	kp, err := credentials.GenerateKeyPair()
	require.NoError(t, err)
	rec = c.do(t, http.MethodPut, "/v1/actors/alice/credential", admin, map[string]string{"public_key": kp.PublicKey})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = c.do(t, http.MethodPut, "/v1/actors/bob/credential", admin, map[string]string{"public_key": "zz"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Подпись не тем ключом
	other, err := credentials.GenerateKeyPair()
	require.NoError(t, err)
	badSig, err := credentials.Sign(other.PrivateKey, domain.AckPayload("alice", v1))
	require.NoError(t, err)
	rec = c.do(t, http.MethodPost, "/v1/acknowledgments", admin, domain.AckRequest{ActorID: "alice", DirectiveID: v1.ID, Signature: badSig})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = c.do(t, http.MethodPost, "/v1/acknowledgments", admin, domain.AckRequest{ActorID: "alice", DirectiveID: 99, Signature: badSig})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	sig, err := credentials.Sign(kp.PrivateKey, domain.AckPayload("alice", v1))
	require.NoError(t, err)
	rec = c.do(t, http.MethodPost, "/v1/acknowledgments", admin, domain.AckRequest{ActorID: "alice", DirectiveID: v1.ID, Signature: sig})
	require.Equal(t, http.StatusCreated, rec.Code)
	ack := decode[domain.Acknowledgment](t, rec)
	assert.Equal(t, v1.ID, ack.DirectiveID)

	rec = c.do(t, http.MethodGet, "/v1/actors/alice/acknowledgments", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Acknowledgment](t, rec), 1)

	rec = c.do(t, http.MethodGet, "/v1/stats", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[domain.ComplianceStats](t, rec)
	assert.Equal(t, v1.ID, stats.CurrentDirectiveID)
	assert.Equal(t, int64(1), stats.AcknowledgedActors)

	rec = c.do(t, http.MethodDelete, "/v1/actors/alice/credential", admin, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = c.do(t, http.MethodDelete, "/v1/actors/alice/credential", admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConsole_ViolationsAndStats(t *testing.T) {
	c := newConsole(t)
	reader := c.login(t, "auditor", domain.ScopeAuditRead)

	ctx := context.Background()
	for i, reason := range []domain.Reason{domain.ReasonNoAck, domain.ReasonStaleAck, domain.ReasonNoAck} {
		actor := fmt.Sprintf("actor-%d", i%2)
		require.NoError(t, c.violations.WriteBatch(ctx, []domain.ViolationRecord{{
			ID: fmt.Sprintf("v%d", i), ActorID: actor, OperationKind: "push",
			Decision: domain.Block(actor, 1, reason), Timestamp: time.Now().UTC(),
		}}))
	}

	rec := c.do(t, http.MethodGet, "/v1/violations?actor=actor-0", reader, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.ViolationRecord](t, rec), 2)

	rec = c.do(t, http.MethodGet, "/v1/violations?reason=STALE_ACK&limit=5", reader, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.ViolationRecord](t, rec), 1)

	rec = c.do(t, http.MethodGet, "/v1/violations?limit=abc", reader, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.do(t, http.MethodGet, "/v1/stats", reader, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[domain.ComplianceStats](t, rec)
	assert.Equal(t, int64(3), stats.TotalViolations)
	assert.Equal(t, int64(2), stats.ViolationsByReason[domain.ReasonNoAck])
	assert.Equal(t, int64(0), stats.CurrentDirectiveID)
}

func TestConsole_ScopesAreEnforced(t *testing.T) {
	c := newConsole(t)
	reader := c.login(t, "auditor", domain.ScopeAuditRead)

	rec := c.do(t, http.MethodGet, "/v1/directives", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = c.do(t, http.MethodPost, "/v1/directives", reader, map[string]string{"text": "x"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = c.do(t, http.MethodPut, "/v1/actors/alice/credential", reader, map[string]string{"public_key": "00"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = c.do(t, http.MethodGet, "/v1/directives", reader, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = c.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
