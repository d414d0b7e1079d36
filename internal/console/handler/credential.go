package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xela07ax/directive-gate/internal/console/service"
	"go.uber.org/zap"
)

type CredentialHandler struct {
	service *service.CredentialService
	logger  *zap.Logger
}

func NewCredentialHandler(s *service.CredentialService, logger *zap.Logger) *CredentialHandler {
	return &CredentialHandler{service: s, logger: logger}
}

type credentialRequest struct {
	PublicKey string `json:"public_key"`
}

// Put PUT /v1/actors/{actor}/credential
func (h *CredentialHandler) Put(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{"invalid request body"})
		return
	}
	c, err := h.service.Register(r.Context(), chi.URLParam(r, "actor"), req.PublicKey)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Revoke DELETE /v1/actors/{actor}/credential
func (h *CredentialHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Revoke(r.Context(), chi.URLParam(r, "actor")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
