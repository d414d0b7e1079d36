package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/directive-gate/internal/app"
	"github.com/xela07ax/directive-gate/internal/console/handler"
	"github.com/xela07ax/directive-gate/internal/console/server"
	"github.com/xela07ax/directive-gate/internal/console/service"
	"github.com/xela07ax/directive-gate/internal/credentials"
	"github.com/xela07ax/directive-gate/internal/directive"
	"github.com/xela07ax/directive-gate/internal/domain"
	"github.com/xela07ax/directive-gate/internal/infra"
	"github.com/xela07ax/directive-gate/internal/infra/auth"
	"github.com/xela07ax/directive-gate/internal/ledger"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("console stopped with error", zap.Error(err))
	}
}

func run(cfg *infra.Config, logger *zap.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// 1. Инициализация ресурсов
	initCtx, initCancel := context.WithTimeout(ctx, 10*time.Second)
	backend, err := app.OpenBackend(initCtx, cfg.Database, logger)
	initCancel()
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer backend.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	priv, err := loadSigningKey(cfg.Auth, logger)
	if err != nil {
		return err
	}

	// 2. Инициализация слоев (Dependency Injection)
	store := directive.NewStore(backend.Directives, logger, directive.Options{
		PublishAttempts: cfg.Gate.PublishAttempts,
		PublishDelay:    cfg.Gate.PublishDelay,
	})
	// Шлюзы перечитывают директивы по этому сигналу
	store.OnPublish(directive.RedisPublishHook(rdb, logger))

	keyring := credentials.NewKeyring(backend.Keys, logger)
	acks := ledger.New(backend.Acks, store, keyring, logger)

	authSvc := service.NewAuthService(
		backend.Users,
		auth.NewBaseValidator(&priv.PublicKey, cfg.Auth.Issuer),
		auth.NewIssuer(priv, cfg.Auth.Issuer, cfg.Auth.TokenTTL),
	)
	if err := bootstrapAdmin(ctx, authSvc, logger); err != nil {
		return err
	}

	h := server.Handlers{
		Auth:       handler.NewAuthHandler(authSvc, logger),
		Directive:  handler.NewDirectiveHandler(service.NewDirectiveService(store), logger),
		Ack:        handler.NewAckHandler(service.NewAckService(acks), logger),
		Credential: handler.NewCredentialHandler(service.NewCredentialService(backend.Credentials, logger), logger),
		Audit: handler.NewAuditHandler(
			service.NewAuditService(backend.Violations, backend.Violations, store, acks), logger),
	}

	// 3. Запуск сервера
	srv := &http.Server{
		Addr:         cfg.Console.Addr(),
		Handler:      server.NewConsoleServer(logger, authSvc, h),
		ReadTimeout:  cfg.Console.ReadTimeout,
		WriteTimeout: cfg.Console.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("console api started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("serve http: %w", err)
	}

	logger.Info("console api stopping")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

// loadSigningKey без приватного ключа выпускаем эфемерный: токены не переживут рестарт
// и не будут приняты шлюзом, годится только для локального запуска.
func loadSigningKey(cfg infra.AuthConfig, logger *zap.Logger) (*rsa.PrivateKey, error) {
	if len(cfg.PrivateKey) == 0 {
		logger.Warn("auth private key is not configured, using ephemeral key")
		return rsa.GenerateKey(rand.Reader, 2048)
	}
	priv, err := auth.ParseRSAPrivateKey(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("auth private key: %w", err)
	}
	return priv, nil
}

// bootstrapAdmin создает первого администратора из CONSOLE_ADMIN_USER/CONSOLE_ADMIN_PASSWORD.
func bootstrapAdmin(ctx context.Context, svc *service.AuthService, logger *zap.Logger) error {
	username, password := os.Getenv("CONSOLE_ADMIN_USER"), os.Getenv("CONSOLE_ADMIN_PASSWORD")
	if username == "" {
		return nil
	}
	_, err := svc.CreateUser(ctx, username, password, []string{domain.ScopeAdmin})
	switch {
	case errors.Is(err, domain.ErrConflict):
		logger.Info("bootstrap admin already exists", zap.String("username", username))
		return nil
	case err != nil:
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	logger.Info("bootstrap admin created", zap.String("username", username))
	return nil
}
