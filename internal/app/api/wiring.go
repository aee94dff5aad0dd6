package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	workerlog "go.temporal.io/sdk/log"

	inventorymemory "github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/adapters/memory"
	inventorymessaging "github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/adapters/messaging"
	inventoryapp "github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/application"
	ordersmemory "github.com/Apurer/order-inventory-coordinator/internal/domains/orders/adapters/memory"
	ordersmessaging "github.com/Apurer/order-inventory-coordinator/internal/domains/orders/adapters/messaging"
	orderspostgres "github.com/Apurer/order-inventory-coordinator/internal/domains/orders/adapters/persistence/postgres"
	ordersapp "github.com/Apurer/order-inventory-coordinator/internal/domains/orders/application"
	ordersports "github.com/Apurer/order-inventory-coordinator/internal/domains/orders/ports"
	"github.com/Apurer/order-inventory-coordinator/internal/platform/config"
	platformkafka "github.com/Apurer/order-inventory-coordinator/internal/platform/kafka"
	"github.com/Apurer/order-inventory-coordinator/internal/platform/migrations"
	platformobservability "github.com/Apurer/order-inventory-coordinator/internal/platform/observability"
	platformpostgres "github.com/Apurer/order-inventory-coordinator/internal/platform/postgres"
	platformrabbitmq "github.com/Apurer/order-inventory-coordinator/internal/platform/rabbitmq"
)

// BuildCoordinator wires the order coordinator to storage, the inventory transport and the events backend.
// Every missing dependency falls back to its in-process counterpart. The cleanup releases whatever was opened.
func BuildCoordinator(ctx context.Context, cfg config.Config, logger *slog.Logger) (*ordersapp.Coordinator, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	repo, closeRepo, err := buildOrderRepository(ctx, cfg, logger)
	if err != nil {
		return nil, func() {}, err
	}
	cleanups = append(cleanups, closeRepo)

	var conn *amqp.Connection
	if cfg.RabbitMQURL != "" {
		conn, err = platformrabbitmq.Dial(ctx, cfg.RabbitMQURL, platformrabbitmq.WithDialLogger(logger))
		if err != nil {
			logger.Warn("rabbitmq unavailable, using in-process inventory", slog.String("error", err.Error()))
		} else {
			cleanups = append(cleanups, func() { _ = conn.Close() })
		}
	}

	inventory, err := buildInventoryClient(conn, logger)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}

	events, closeEvents, err := buildEventPublisher(cfg, conn, logger)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	cleanups = append(cleanups, closeEvents)

	coordinator := ordersapp.NewCoordinator(
		repo,
		inventory,
		ordersapp.WithEvents(events),
		ordersapp.WithLogger(logger),
		ordersapp.WithRetryPolicy(ordersapp.RetryPolicy{CheckAttempts: cfg.CheckAttempts, Timeout: cfg.RequestTimeout}),
		ordersapp.WithEventTimeout(cfg.EventTimeout),
	)
	cleanups = append(cleanups, coordinator.Drain)
	return coordinator, cleanup, nil
}

func buildOrderRepository(ctx context.Context, cfg config.Config, logger *slog.Logger) (ordersports.Repository, func(), error) {
	db, closeDB := platformpostgres.ConnectOptional(ctx, cfg.PostgresDSN, "orders", logger)
	if db == nil {
		logger.Warn("order repository running in memory")
		return ordersmemory.NewRepository(), func() {}, nil
	}
	if err := migrations.Run(db); err != nil {
		closeDB()
		return nil, func() {}, fmt.Errorf("migrate orders schema: %w", err)
	}
	logger.Info("order repository configured with postgres")
	return orderspostgres.NewRepository(db), closeDB, nil
}

func buildInventoryClient(conn *amqp.Connection, logger *slog.Logger) (ordersports.InventoryClient, error) {
	if conn == nil {
		logger.Warn("inventory requests served by an in-process ledger; stock is not shared with the inventory service")
		ledger := inventoryapp.NewLedger(inventorymemory.NewRepository(),
			inventoryapp.WithReservationStore(inventorymemory.NewReservationStore(), 0))
		gateway := inventorymessaging.NewGateway(ledger, inventorymessaging.WithLogger(logger))
		return ordersmessaging.NewInventoryClient(ordersmessaging.NewInProcessRequester(gateway)), nil
	}
	rpc, err := platformrabbitmq.NewRPCClient(conn, platformrabbitmq.WithRPCLogger(logger))
	if err != nil {
		return nil, err
	}
	logger.Info("inventory requests routed over rabbitmq")
	return ordersmessaging.NewInventoryClient(rpc), nil
}

func buildEventPublisher(cfg config.Config, conn *amqp.Connection, logger *slog.Logger) (ordersports.EventPublisher, func(), error) {
	switch cfg.EventsBackend {
	case config.EventsBackendKafka:
		producer, err := platformkafka.NewProducer(cfg.Brokers(), cfg.KafkaTopic)
		if err != nil {
			logger.Warn("kafka unavailable, logging order events", slog.String("error", err.Error()))
			break
		}
		logger.Info("order events published to kafka", slog.String("topic", cfg.KafkaTopic))
		return ordersmessaging.NewBrokerPublisher(producer), func() { _ = producer.Close() }, nil
	case config.EventsBackendRabbitMQ:
		if conn == nil {
			logger.Warn("rabbitmq unavailable, logging order events")
			break
		}
		publisher, err := platformrabbitmq.NewPublisher(conn)
		if err != nil {
			return nil, func() {}, err
		}
		logger.Info("order events published to rabbitmq", slog.String("exchange", platformrabbitmq.EventsExchange))
		return ordersmessaging.NewBrokerPublisher(publisher), func() { _ = publisher.Close() }, nil
	}
	return ordersmessaging.NewLogPublisher(logger), func() {}, nil
}

// ConnectTemporal dials Temporal with tracing and structured logging.
func ConnectTemporal(cfg config.Config, instruments *platformobservability.Instruments) (client.Client, error) {
	if cfg.TemporalDisabled {
		return nil, errors.New("temporal disabled via TEMPORAL_DISABLED")
	}
	tracerOptions := temporalotel.TracerOptions{}
	if instruments != nil {
		tracerOptions.Tracer = instruments.Tracer("temporal-client")
	}
	tracingInterceptor, err := temporalotel.NewTracingInterceptor(tracerOptions)
	if err != nil {
		return nil, err
	}
	options := client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    workerlog.NewStructuredLogger(effectiveLogger(instruments)),
	}
	options.Interceptors = append(options.Interceptors, tracingInterceptor)
	return client.Dial(options)
}

func effectiveLogger(instruments *platformobservability.Instruments) *slog.Logger {
	if instruments != nil && instruments.Logger != nil {
		return instruments.Logger
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
