package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/xela07ax/directive-gate/internal/app"
	"github.com/xela07ax/directive-gate/internal/audit"
	"github.com/xela07ax/directive-gate/internal/compliance"
	"github.com/xela07ax/directive-gate/internal/credentials"
	"github.com/xela07ax/directive-gate/internal/directive"
	"github.com/xela07ax/directive-gate/internal/engine"
	"github.com/xela07ax/directive-gate/internal/infra"
	"github.com/xela07ax/directive-gate/internal/infra/auth"
	"github.com/xela07ax/directive-gate/internal/ledger"
	"github.com/xela07ax/directive-gate/internal/notify"
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
		logger.Fatal("gate stopped with error", zap.Error(err))
	}
}

func run(cfg *infra.Config, logger *zap.Logger) error {
	// Контекст фоновых горутин (слушатель публикаций, семплер буфера).
	// SIGTERM отменяет его, слушатели выходят сами.
	appCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// 1. Инфраструктура и ресурсы
	initCtx, initCancel := context.WithTimeout(appCtx, 10*time.Second)
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

	// Метрики
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := engine.NewMetrics(reg)

	// 2. Control Plane: директивы и подтверждения
	store := directive.NewStore(backend.Directives, logger, directive.Options{
		PublishAttempts: cfg.Gate.PublishAttempts,
		PublishDelay:    cfg.Gate.PublishDelay,
	})
	store.OnPublish(directive.RedisPublishHook(rdb, logger))
	if err := store.Refresh(appCtx); err != nil {
		// Не фатально: шлюз стартует и отвечает BLOCK до восстановления хранилища
		logger.Warn("initial directive load failed", zap.Error(err))
	}
	go store.StartListener(appCtx, rdb, cfg.Gate.RefreshInterval)

	keyring := credentials.NewKeyring(backend.Keys, logger)
	acks := ledger.New(backend.Acks, store, keyring, logger)

	// 3. Core: оценка с fail-closed ограждением хранилища
	guard := compliance.NewStoreGuard("directive-store", compliance.GuardSettings{
		Timeout:       cfg.Gate.StoreTimeout,
		MaxRequests:   cfg.Gate.CBMaxRequests,
		Interval:      cfg.Gate.CBInterval,
		OpenTimeout:   cfg.Gate.CBTimeout,
		Failures:      cfg.Gate.CBFailures,
		OnStateChange: metrics.ObserveBreaker,
	})
	evaluator := compliance.NewEvaluator(store, acks, keyring, guard, logger)

	// 4. Аудит и уведомления
	trail := audit.NewTrail(backend.Violations, logger, audit.Options{
		BufferSize:    cfg.Audit.BufferSize,
		BatchSize:     cfg.Audit.BatchSize,
		FlushInterval: cfg.Audit.FlushInterval,
	})
	trail.Start()
	go sampleAuditDepth(appCtx, trail, metrics)

	reporter := engine.NewViolationReporter(trail, buildSink(cfg.Notify, rdb, logger), cfg.Notify.Timeout, metrics, logger)
	gate := engine.NewGate(evaluator, reporter, metrics, logger)

	// 5. Транспорт: HTTP + gRPC
	validator, err := buildValidator(cfg.Auth, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      gate.Router(validator, nil),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	metricsSrv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}

	interceptors := []grpc.UnaryServerInterceptor{engine.UnaryTraceInterceptor()}
	if validator != nil {
		interceptors = append(interceptors, engine.UnaryAuthInterceptor(validator, logger))
	}
	grpcSrv := grpc.NewServer(grpc.ChainUnaryInterceptor(interceptors...))
	engine.RegisterGateServiceServer(grpcSrv, engine.NewGRPCGateServer(gate))

	lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.GRPC.Port))
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	errCh := make(chan error, 3)
	go func() {
		logger.Info("gate grpc server started", zap.String("addr", lis.Addr().String()))
		if err := grpcSrv.Serve(lis); err != nil {
			errCh <- fmt.Errorf("serve grpc: %w", err)
		}
	}()
	go func() {
		logger.Info("gate http server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("serve http: %w", err)
		}
	}()
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("serve metrics: %w", err)
		}
	}()

	// 6. Graceful Shutdown
	var runErr error
	select {
	case <-appCtx.Done():
		logger.Info("gate stopping")
	case runErr = <-errCh:
		logger.Error("server failed, stopping", zap.Error(runErr))
		cancel()
	}

	// Даем 5 секунд на завершение запросов
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", zap.Error(err))
	}
	_ = metricsSrv.Shutdown(shutdownCtx)
	grpcSrv.GracefulStop()

	// Порядок важен: сначала дождаться уведомлений, затем слить журнал
	reporter.Wait()
	trail.Stop()

	logger.Info("gate exited properly")
	return runErr
}

// buildValidator nil, если публичный ключ не задан (dev-режим без аутентификации).
func buildValidator(cfg infra.AuthConfig, logger *zap.Logger) (auth.TokenValidator, error) {
	if len(cfg.PublicKey) == 0 {
		logger.Warn("auth public key is not configured, gate API is unauthenticated")
		return nil, nil
	}
	pub, err := auth.ParseRSAPublicKey(cfg.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("auth public key: %w", err)
	}
	return auth.NewBaseValidator(pub, cfg.Issuer), nil
}

func buildSink(cfg infra.NotifyConfig, rdb *redis.Client, logger *zap.Logger) notify.Sink {
	sinks := notify.Fanout{notify.NewLogSink(logger)}
	if cfg.Redis {
		sinks = append(sinks, notify.NewRedisSink(rdb))
	}
	if cfg.WebhookURL != "" {
		sinks = append(sinks, notify.NewWebhookSink(cfg.WebhookURL, nil, logger, notify.WebhookOptions{
			Timeout:   cfg.Timeout,
			RateLimit: cfg.RateLimit,
			RateBurst: cfg.RateBurst,
			Attempts:  cfg.Attempts,
		}))
	}
	return sinks
}

func sampleAuditDepth(ctx context.Context, trail *audit.Trail, m *engine.Metrics) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.AuditBufferFill.Set(float64(trail.Depth()))
		}
	}
}
