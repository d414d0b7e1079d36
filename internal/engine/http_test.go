package engine

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/directive-gate/internal/domain"
	"github.com/xela07ax/directive-gate/internal/infra/auth"
)

func postCheck(t *testing.T, h http.Handler, body, token string) (*httptest.ResponseRecorder, checkResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/check", strings.NewReader(body))
	req.Header.Set("X-Trace-ID", "t-1")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp checkResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

func TestHTTP_StatusMapping(t *testing.T) {
	h := newHarness(t, "alice")
	router := h.gate.Router(nil, h.reg)

	rec, resp := postCheck(t, router, `{"actor_id":"alice","operation":"push"}`, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, domain.ReasonNotInitialized, resp.Decision.Reason)

	v1 := h.publish(t, "v1")
	rec, resp = postCheck(t, router, `{"actor_id":"alice","operation":"push"}`, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, domain.ReasonNoAck, resp.Decision.Reason)
	assert.Equal(t, "t-1", resp.TraceID)
	assert.Equal(t, "t-1", rec.Header().Get("X-Trace-ID"))

	h.ack(t, "alice", v1)
	rec, resp = postCheck(t, router, `{"actor_id":"alice","operation":"push"}`, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Decision.Allowed)
	assert.Equal(t, v1.ID, resp.Decision.DirectiveID)

	rec, _ = postCheck(t, router, `{"actor_id":"","operation":"push"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = postCheck(t, router, `not json`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHTTP_HealthAndMetrics(t *testing.T) {
	h := newHarness(t)
	router := h.gate.Router(nil, h.reg)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	h.publish(t, "v1")
	_, _ = postCheck(t, router, `{"actor_id":"x","operation":"push"}`, "")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `gate_decisions_total{allowed="false",reason="NO_ACK"} 1`)
}

func TestHTTP_RequiresGateCheckScope(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	issuer := auth.NewIssuer(key, "", time.Hour)

	h := newHarness(t)
	h.publish(t, "v1")
	router := h.gate.Router(auth.NewBaseValidator(&key.PublicKey, ""), nil)

	rec, _ := postCheck(t, router, `{"actor_id":"a","operation":"push"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	reader, err := issuer.Issue(&domain.User{ID: "u", Scopes: map[string]bool{domain.ScopeAuditRead: true}})
	require.NoError(t, err)
	rec, _ = postCheck(t, router, `{"actor_id":"a","operation":"push"}`, reader.AccessToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	hook, err := issuer.Issue(&domain.User{ID: "hook", Scopes: map[string]bool{domain.ScopeGateCheck: true}})
	require.NoError(t, err)
	rec, resp := postCheck(t, router, `{"actor_id":"a","operation":"push"}`, hook.AccessToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, domain.ReasonNoAck, resp.Decision.Reason)
}
