package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/order-inventory-coordinator/internal/app/api"
	"github.com/Apurer/order-inventory-coordinator/internal/platform/config"
	platformobservability "github.com/Apurer/order-inventory-coordinator/internal/platform/observability"
	orderactivities "github.com/Apurer/order-inventory-coordinator/internal/platform/temporal/activities/orders"
	orderworkflows "github.com/Apurer/order-inventory-coordinator/internal/platform/temporal/workflows/orders"
)

func main() {
	ctx := context.Background()
	const serviceName = "orders-worker"
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName, platformobservability.WithLogFile(cfg.LogFile))
	if err != nil {
		log.Fatalf("failed to initialize observability: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	coordinator, cleanup, err := api.BuildCoordinator(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build order coordinator", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer cleanup()
	orderActivities := orderactivities.NewActivities(coordinator)

	temporalClient, err := api.ConnectTemporal(cfg, instruments)
	if err != nil {
		logger.Error("failed to create Temporal client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer temporalClient.Close()

	w := worker.New(temporalClient, orderworkflows.OrderCreationTaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(orderworkflows.OrderCreationWorkflow, workflow.RegisterOptions{Name: orderworkflows.OrderCreationWorkflowName})
	w.RegisterActivityWithOptions(orderActivities.CheckInventory, activity.RegisterOptions{Name: orderactivities.CheckInventoryActivityName})
	w.RegisterActivityWithOptions(orderActivities.ReserveInventory, activity.RegisterOptions{Name: orderactivities.ReserveInventoryActivityName})
	w.RegisterActivityWithOptions(orderActivities.RecordOrder, activity.RegisterOptions{Name: orderactivities.RecordOrderActivityName})
	w.RegisterActivityWithOptions(orderActivities.NotifyOrderCreated, activity.RegisterOptions{Name: orderactivities.NotifyOrderCreatedActivityName})

	logger.Info("worker listening", slog.String("taskQueue", orderworkflows.OrderCreationTaskQueue), slog.String("namespace", cfg.TemporalNamespace))
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Error("Temporal worker exited with error", slog.String("error", err.Error()))
		return
	}
	logger.Info("Temporal worker stopped")
}
