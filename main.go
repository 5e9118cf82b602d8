package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	appcart "github.com/ryzenix/pharmacart/internal/application/cart"
	apporder "github.com/ryzenix/pharmacart/internal/application/order"
	"github.com/ryzenix/pharmacart/internal/domain/catalog"
	domainorder "github.com/ryzenix/pharmacart/internal/domain/order"
	"github.com/ryzenix/pharmacart/internal/infrastructure/id"
	"github.com/ryzenix/pharmacart/internal/infrastructure/memory"
	"github.com/ryzenix/pharmacart/internal/infrastructure/observability/oteltrace"
	"github.com/ryzenix/pharmacart/internal/infrastructure/observability/prometrics"
	"github.com/ryzenix/pharmacart/internal/infrastructure/postgres"
	"github.com/ryzenix/pharmacart/internal/observability"
	"github.com/ryzenix/pharmacart/internal/pkg/logging"
	httppresentation "github.com/ryzenix/pharmacart/internal/presentation/http"
)

func main() {
	serviceName := getenvDefault("SERVICE_NAME", "pharmacart")
	env := getenvDefault("ENV", "dev")

	baseLogger := logging.MustNewLogger(serviceName, env)
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	registry := prometrics.New("pharmacart", "")
	counters := map[string]observability.Counter{
		observability.MetricUsecaseRequests: registry.Counter(
			observability.MetricUsecaseRequests,
			"Total number of use case invocations.",
			"use_case", "outcome",
		),
		observability.MetricHTTPRequests: registry.Counter(
			observability.MetricHTTPRequests,
			"Total number of HTTP requests.",
			"method", "status",
		),
	}
	histograms := map[string]observability.Histogram{
		observability.MetricUsecaseDuration: registry.Histogram(
			observability.MetricUsecaseDuration,
			"Duration of use case execution in seconds.",
			nil,
			"use_case",
		),
		observability.MetricHTTPRequestDuration: registry.Histogram(
			observability.MetricHTTPRequestDuration,
			"Duration of HTTP requests in seconds.",
			nil,
			"method", "status",
		),
	}
	tel := observability.NewTelemetry(oteltrace.New(serviceName), counters, histograms)

	// Shared services are constructed once here and injected; nothing in the
	// engine reaches for process-wide accessors.
	catalogRepo, orderRepo, sessions := buildStores(baseLogger)

	cartService := appcart.NewService(catalogRepo, sessions)
	orderService := apporder.NewService(orderRepo, id.NewUUIDGenerator(), tel)

	handler := httppresentation.NewHandler(cartService, orderService, baseLogger, tel)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:              ":" + getenvDefault("PORT", "8080"),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("http_server_start", zap.String("addr", server.Addr))
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Error("http_server_error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("http_server_shutdown_error", zap.Error(err))
	} else {
		baseLogger.Info("http_server_stopped")
	}
}

// buildStores connects to postgres when DB_HOST is set and falls back to the
// in-memory implementations otherwise, so the service stays runnable in local
// development without a database.
func buildStores(log *zap.Logger) (catalog.Repository, domainorder.Repository, appcart.SessionStore) {
	sessions := memory.NewSessionStore()

	if host := os.Getenv("DB_HOST"); host != "" {
		cfg := postgres.Config{
			Host:     host,
			Port:     getenvDefault("DB_PORT", "5432"),
			User:     getenvDefault("DB_USER", "postgres"),
			Password: getenvDefault("DB_PASSWORD", "postgres"),
			Name:     getenvDefault("DB_NAME", "pharmacart"),
			SSLMode:  getenvDefault("DB_SSLMODE", "disable"),
		}
		db, err := postgres.Open(cfg)
		if err != nil {
			log.Fatal("postgres_connect_failed", zap.Error(err))
		}
		log.Info("postgres_connected", zap.String("host", cfg.Host), zap.String("db", cfg.Name))
		return postgres.NewProductRepository(db), postgres.NewOrderRepository(db), sessions
	}

	log.Warn("db_not_configured_using_memory_stores")
	products := memory.NewProductRepository()
	return products, memory.NewOrderRepository(products), sessions
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
