package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	inventorypostgres "github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/adapters/persistence/postgres"
	"github.com/Apurer/order-inventory-coordinator/internal/platform/config"
	platformpostgres "github.com/Apurer/order-inventory-coordinator/internal/platform/postgres"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	db, cleanup := platformpostgres.ConnectOptional(ctx, cfg.PostgresDSN, "reservations", logger)
	defer cleanup()
	if db == nil {
		log.Fatal("POSTGRES_DSN not set or connection failed; cannot purge reservations")
	}

	purged, err := inventorypostgres.NewReservationStore(db).PurgeExpired(ctx)
	if err != nil {
		log.Fatalf("failed to purge reservations: %v", err)
	}
	logger.Info("reservation purge completed", slog.Int64("purged", purged))
}
