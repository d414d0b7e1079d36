package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/xela07ax/directive-gate/internal/console/service"
	"go.uber.org/zap"
)

type DirectiveHandler struct {
	service *service.DirectiveService
	logger  *zap.Logger
}

func NewDirectiveHandler(s *service.DirectiveService, logger *zap.Logger) *DirectiveHandler {
	return &DirectiveHandler{service: s, logger: logger}
}

type publishRequest struct {
	Text string `json:"text"`
}

// Publish POST /v1/directives
func (h *DirectiveHandler) Publish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{"invalid request body"})
		return
	}
	d, err := h.service.Publish(r.Context(), req.Text)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// List GET /v1/directives
func (h *DirectiveHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// Current GET /v1/directives/current
func (h *DirectiveHandler) Current(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Current(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Get GET /v1/directives/{id}
func (h *DirectiveHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{"directive id must be a positive integer"})
		return
	}
	d, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
