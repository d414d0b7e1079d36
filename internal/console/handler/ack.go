package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xela07ax/directive-gate/internal/console/service"
	"github.com/xela07ax/directive-gate/internal/domain"
	"go.uber.org/zap"
)

type AckHandler struct {
	service *service.AckService
	logger  *zap.Logger
}

func NewAckHandler(s *service.AckService, logger *zap.Logger) *AckHandler {
	return &AckHandler{service: s, logger: logger}
}

// Record POST /v1/acknowledgments
func (h *AckHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req domain.AckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{"invalid request body"})
		return
	}
	ack, err := h.service.Record(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, ack)
}

// History GET /v1/actors/{actor}/acknowledgments
func (h *AckHandler) History(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.History(r.Context(), chi.URLParam(r, "actor"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}
