package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	coordinatorserver "github.com/Apurer/order-inventory-coordinator/go"
	"github.com/Apurer/order-inventory-coordinator/internal/app/api"
	inventorycache "github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/adapters/cache"
	inventorymemory "github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/adapters/memory"
	inventorymessaging "github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/adapters/messaging"
	inventoryobs "github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/adapters/observability"
	inventorypostgres "github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/adapters/persistence/postgres"
	inventoryapp "github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/application"
	inventoryports "github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/ports"
	"github.com/Apurer/order-inventory-coordinator/internal/platform/config"
	"github.com/Apurer/order-inventory-coordinator/internal/platform/httpmetrics"
	platformkafka "github.com/Apurer/order-inventory-coordinator/internal/platform/kafka"
	"github.com/Apurer/order-inventory-coordinator/internal/platform/migrations"
	platformobservability "github.com/Apurer/order-inventory-coordinator/internal/platform/observability"
	platformpostgres "github.com/Apurer/order-inventory-coordinator/internal/platform/postgres"
	platformrabbitmq "github.com/Apurer/order-inventory-coordinator/internal/platform/rabbitmq"
)

const serviceName = "inventory-service"

// Run boots the inventory HTTP API and the message gateway side by side.
// The first of them to fail stops the other.
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

	db, closeDB := platformpostgres.ConnectOptional(ctx, cfg.PostgresDSN, "inventory", logger)
	defer closeDB()
	if db != nil {
		if err := migrations.Run(db); err != nil {
			return fmt.Errorf("migrate inventory schema: %w", err)
		}
	}

	repo := buildRepository(db, logger)
	reservations, closeReservations := buildReservationStore(ctx, cfg, db, logger)
	defer closeReservations()

	ledger := inventoryapp.NewLedger(repo, inventoryapp.WithReservationStore(reservations, cfg.ReservationTTL))
	service := inventoryobs.New(
		ledger,
		inventoryobs.WithLogger(logger),
		inventoryobs.WithTracer(instruments.Tracer("internal.inventory.application")),
		inventoryobs.WithMeter(instruments.Meter("internal.inventory.application")),
	)
	gateway := inventorymessaging.NewGateway(service, inventorymessaging.WithLogger(logger))

	metrics := httpmetrics.New(serviceName, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	router := coordinatorserver.NewInventoryRouter(
		coordinatorserver.NewInventoryAPI(service),
		metrics,
		otelgin.Middleware(serviceName),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return api.Serve(gctx, logger, ":"+cfg.InventoryPort, router)
	})
	if cfg.RabbitMQURL != "" {
		g.Go(func() error {
			return serveRabbitMQ(gctx, cfg, gateway, logger)
		})
	} else {
		logger.Warn("RABBITMQ_URL not set, inventory gateway not consuming requests")
	}
	if cfg.EventsBackend == config.EventsBackendKafka && len(cfg.Brokers()) > 0 {
		g.Go(func() error {
			return consumeKafka(gctx, cfg, gateway, logger)
		})
	}
	return g.Wait()
}

func buildRepository(db *gorm.DB, logger *slog.Logger) inventoryports.Repository {
	if db == nil {
		logger.Warn("inventory repository running in memory")
		return inventorymemory.NewRepository()
	}
	logger.Info("inventory repository configured with postgres")
	return inventorypostgres.NewRepository(db)
}

// buildReservationStore prefers Redis, then PostgreSQL, then memory.
func buildReservationStore(ctx context.Context, cfg config.Config, db *gorm.DB, logger *slog.Logger) (inventoryports.ReservationStore, func()) {
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			logger.Info("reservation tokens stored in redis", slog.String("addr", cfg.RedisAddr))
			return inventorycache.NewReservationStore(rdb), func() { _ = rdb.Close() }
		}
		_ = rdb.Close()
		logger.Warn("redis unavailable for reservation tokens", slog.String("error", err.Error()))
	}
	if db != nil {
		logger.Info("reservation tokens stored in postgres")
		return inventorypostgres.NewReservationStore(db), func() {}
	}
	logger.Warn("reservation tokens kept in memory")
	return inventorymemory.NewReservationStore(), func() {}
}

func serveRabbitMQ(ctx context.Context, cfg config.Config, gateway *inventorymessaging.Gateway, logger *slog.Logger) error {
	conn, err := platformrabbitmq.Dial(ctx, cfg.RabbitMQURL, platformrabbitmq.WithDialLogger(logger))
	if err != nil {
		return err
	}
	defer conn.Close()
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open gateway channel: %w", err)
	}
	defer ch.Close()

	if err := platformrabbitmq.DeclareRPCQueues(ch, gateway.Patterns()); err != nil {
		return err
	}
	router := platformrabbitmq.NewRouter(ch,
		platformrabbitmq.WithTimeout(cfg.RequestTimeout),
		platformrabbitmq.WithRouterLogger(logger),
	)
	router.Serve(gateway.Patterns(), gateway)
	if cfg.EventsBackend == config.EventsBackendRabbitMQ {
		if err := platformrabbitmq.BindEvents(ch, platformrabbitmq.InventoryEventsQueue, gateway.Events()); err != nil {
			return err
		}
		router.Subscribe(platformrabbitmq.InventoryEventsQueue, gateway)
	}
	logger.Info("inventory gateway consuming", slog.Any("patterns", gateway.Patterns()))
	return router.Run(ctx)
}

func consumeKafka(ctx context.Context, cfg config.Config, gateway *inventorymessaging.Gateway, logger *slog.Logger) error {
	consumer, err := platformkafka.NewConsumer(cfg.Brokers(), cfg.KafkaTopic, cfg.KafkaGroupID, logger)
	if err != nil {
		return err
	}
	defer consumer.Close()
	logger.Info("inventory consuming order events from kafka", slog.String("topic", cfg.KafkaTopic))
	return consumer.Run(ctx, gateway)
}
