package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xela07ax/directive-gate/internal/credentials"
	"github.com/xela07ax/directive-gate/internal/domain"
	"go.uber.org/zap"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError переводит доменную ошибку в HTTP статус. Детали инфраструктуры наружу не отдаем.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		writeJSON(w, http.StatusBadRequest, errorBody{err.Error()})
	case errors.Is(err, domain.ErrUnknownDirective),
		errors.Is(err, domain.ErrNotInitialized),
		errors.Is(err, credentials.ErrNoCredential):
		writeJSON(w, http.StatusNotFound, errorBody{err.Error()})
	case errors.Is(err, domain.ErrInvalidSignature):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{err.Error()})
	case errors.Is(err, domain.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody{err.Error()})
	case domain.IsStoreFailure(err):
		logger.Error("store failure", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, errorBody{"compliance store unavailable"})
	default:
		logger.Error("unexpected error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{"internal error"})
	}
}
