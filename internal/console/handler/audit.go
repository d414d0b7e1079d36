package handler

import (
	"net/http"
	"strconv"

	"github.com/xela07ax/directive-gate/internal/console/service"
	"github.com/xela07ax/directive-gate/internal/domain"
	"go.uber.org/zap"
)

type AuditHandler struct {
	service *service.AuditService
	logger  *zap.Logger
}

func NewAuditHandler(s *service.AuditService, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{service: s, logger: logger}
}

// Violations GET /v1/violations?actor=&operation=&reason=&limit=
func (h *AuditHandler) Violations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := domain.ViolationFilter{
		ActorID:       q.Get("actor"),
		OperationKind: q.Get("operation"),
		Reason:        domain.Reason(q.Get("reason")),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{"limit must be a non-negative integer"})
			return
		}
		f.Limit = n
	}

	items, err := h.service.Violations(r.Context(), f)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// Stats GET /v1/stats
func (h *AuditHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
