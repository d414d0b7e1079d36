package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xela07ax/directive-gate/internal/console/service"
	"github.com/xela07ax/directive-gate/internal/domain"
	"go.uber.org/zap"
)

type AuthHandler struct {
	service *service.AuthService
	logger  *zap.Logger
}

func NewAuthHandler(s *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{service: s, logger: logger}
}

// Login POST /auth/token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{"bad request"})
		return
	}

	resp, err := h.service.GenerateToken(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			// не уточняем, что именно неверно (логин или пароль) для защиты от перебора
			writeJSON(w, http.StatusUnauthorized, errorBody{"unauthorized"})
			return
		}
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
