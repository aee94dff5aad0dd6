package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/errgroup"

	coordinatorserver "github.com/Apurer/order-inventory-coordinator/go"
	ordersobs "github.com/Apurer/order-inventory-coordinator/internal/domains/orders/adapters/observability"
	ordersworkflows "github.com/Apurer/order-inventory-coordinator/internal/domains/orders/adapters/workflows"
	ordersports "github.com/Apurer/order-inventory-coordinator/internal/domains/orders/ports"
	"github.com/Apurer/order-inventory-coordinator/internal/platform/config"
	"github.com/Apurer/order-inventory-coordinator/internal/platform/httpmetrics"
	platformobservability "github.com/Apurer/order-inventory-coordinator/internal/platform/observability"
)

const serviceName = "orders-api"

// Run boots the orders HTTP API with observability, storage, inventory transport and workflows wired.
// It returns when ctx is cancelled or the server fails.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName, platformobservability.WithLogFile(cfg.LogFile))
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	coordinator, cleanup, err := BuildCoordinator(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	service := ordersobs.New(
		coordinator,
		ordersobs.WithLogger(logger),
		ordersobs.WithTracer(instruments.Tracer("internal.orders.application")),
		ordersobs.WithMeter(instruments.Meter("internal.orders.application")),
	)
	var workflows ordersports.WorkflowOrchestrator = ordersworkflows.NewInlineOrderWorkflows(service)
	if temporalClient, err := ConnectTemporal(cfg, instruments); err != nil {
		logger.Warn("Temporal workflows unavailable, creating orders inline", slog.String("error", err.Error()))
	} else {
		defer temporalClient.Close()
		workflows = ordersworkflows.NewTemporalOrderWorkflows(temporalClient, coordinator, coordinator)
		logger.Info("Temporal workflows enabled", slog.String("namespace", cfg.TemporalNamespace))
	}

	metrics := httpmetrics.New(serviceName, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	router := coordinatorserver.NewOrdersRouter(
		coordinatorserver.NewOrderAPI(service, workflows),
		metrics,
		otelgin.Middleware(serviceName),
	)
	return Serve(ctx, logger, ":"+cfg.Port, router)
}

// Serve runs an HTTP server until ctx ends, then shuts it down gracefully.
func Serve(ctx context.Context, logger *slog.Logger, addr string, handler http.Handler) error {
	server := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error("HTTP server exited", slog.String("addr", addr), slog.String("error", err.Error()))
		return err
	}
	return nil
}
