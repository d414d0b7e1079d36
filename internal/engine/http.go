package engine

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xela07ax/directive-gate/internal/domain"
	"github.com/xela07ax/directive-gate/internal/infra/auth"
	"go.uber.org/zap"
)

type CheckRequest struct {
	ActorID   string `json:"actor_id"`
	Operation string `json:"operation"`
}

type checkResponse struct {
	Decision domain.ComplianceDecision `json:"decision"`
	TraceID  string                    `json:"trace_id"`
	Error    string                    `json:"error,omitempty"`
}

// HandleCheck POST /v1/check: 200 ALLOW, 403 BLOCK, 503 NOT_INITIALIZED, 400 мусор на входе.
func (g *Gate) HandleCheck(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}

	traceID := TraceIDFrom(r.Context())
	decision, err := g.CheckOperation(r.Context(), req.ActorID, req.Operation)
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrNotInitialized):
		writeJSON(w, http.StatusServiceUnavailable, checkResponse{Decision: decision, TraceID: traceID, Error: err.Error()})
	case err != nil:
		g.logger.Error("check failed", zap.String("trace_id", traceID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	case decision.Allowed:
		writeJSON(w, http.StatusOK, checkResponse{Decision: decision, TraceID: traceID})
	default:
		writeJSON(w, http.StatusForbidden, checkResponse{Decision: decision, TraceID: traceID})
	}
}

// Router собирает HTTP API шлюза. validator nil отключает аутентификацию (dev-режим).
// Порядок middleware: Trace -> Auth -> Scope -> handler.
func (g *Gate) Router(validator auth.TokenValidator, reg prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if reg != nil {
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(TracingMiddleware)
		if validator != nil {
			r.Use(auth.NewMiddleware(validator, g.logger))
			r.Use(auth.RequireScope(domain.ScopeGateCheck))
		}
		r.Post("/v1/check", g.HandleCheck)
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
