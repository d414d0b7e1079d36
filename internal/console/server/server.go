package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/xela07ax/directive-gate/internal/console/handler"
	"github.com/xela07ax/directive-gate/internal/domain"
	"github.com/xela07ax/directive-gate/internal/infra/auth"
	"go.uber.org/zap"
)

type Handlers struct {
	Auth       *handler.AuthHandler       // /auth/token
	Directive  *handler.DirectiveHandler  // /v1/directives
	Ack        *handler.AckHandler        // /v1/acknowledgments
	Credential *handler.CredentialHandler // /v1/actors/{actor}/credential
	Audit      *handler.AuditHandler      // /v1/violations, /v1/stats
}

type ConsoleServer struct {
	router *chi.Mux
	logger *zap.Logger

	// Проверка токенов (RS256). Реализуется через embedding BaseValidator в AuthService
	authValidator auth.TokenValidator
	h             Handlers
}

// NewConsoleServer инициализирует сервер админки со всеми зависимостями
func NewConsoleServer(logger *zap.Logger, validator auth.TokenValidator, h Handlers) *ConsoleServer {
	s := &ConsoleServer{
		router:        chi.NewRouter(),
		logger:        logger.Named("console-api"),
		authValidator: validator,
		h:             h,
	}
	s.routes()
	return s
}

func (s *ConsoleServer) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// --- 2. ПУБЛИЧНЫЕ РОУТЫ ---
	r.Group(func(r chi.Router) {
		r.Post("/auth/token", s.h.Auth.Login)
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})

	// --- 3. ЗАЩИЩЕННЫЙ ПЕРИМЕТР (RS256 токен + scope) ---
	r.Group(func(r chi.Router) {
		r.Use(auth.NewMiddleware(s.authValidator, s.logger))

		r.Route("/v1/directives", func(r chi.Router) {
			r.With(auth.RequireScope(domain.ScopeAuditRead)).Get("/", s.h.Directive.List)
			r.With(auth.RequireScope(domain.ScopeAuditRead)).Get("/current", s.h.Directive.Current)
			r.With(auth.RequireScope(domain.ScopeAuditRead)).Get("/{id}", s.h.Directive.Get)
			r.With(auth.RequireScope(domain.ScopeDirectivePublish)).Post("/", s.h.Directive.Publish)
		})

		r.With(auth.RequireScope(domain.ScopeAckWrite)).Post("/v1/acknowledgments", s.h.Ack.Record)

		r.Route("/v1/actors/{actor}", func(r chi.Router) {
			r.With(auth.RequireScope(domain.ScopeAuditRead)).Get("/acknowledgments", s.h.Ack.History)
			r.With(auth.RequireScope(domain.ScopeAdmin)).Put("/credential", s.h.Credential.Put)
			r.With(auth.RequireScope(domain.ScopeAdmin)).Delete("/credential", s.h.Credential.Revoke)
		})

		r.With(auth.RequireScope(domain.ScopeAuditRead)).Get("/v1/violations", s.h.Audit.Violations)
		r.With(auth.RequireScope(domain.ScopeAuditRead)).Get("/v1/stats", s.h.Audit.Stats)
	})
}

// ServeHTTP позволяет использовать ConsoleServer как стандартный http.Handler
func (s *ConsoleServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
