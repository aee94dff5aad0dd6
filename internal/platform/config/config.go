package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"go.temporal.io/sdk/client"
)

// Supported notification backends.
const (
	EventsBackendRabbitMQ = "rabbitmq"
	EventsBackendKafka    = "kafka"
	EventsBackendLog      = "log"
)

// Config carries the settings shared by the order and inventory processes.
// Keys match the environment variable names lowercased, so PORT and a YAML "port" key are the same setting.
type Config struct {
	Port          string `koanf:"port"`
	InventoryPort string `koanf:"inventory_port"`
	PostgresDSN   string `koanf:"postgres_dsn"`
	LogFile       string `koanf:"log_file"`

	RabbitMQURL   string `koanf:"rabbitmq_url"`
	KafkaBrokers  string `koanf:"kafka_brokers"`
	KafkaTopic    string `koanf:"kafka_topic"`
	KafkaGroupID  string `koanf:"kafka_group_id"`
	EventsBackend string `koanf:"events_backend"`

	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`

	TemporalAddress   string `koanf:"temporal_address"`
	TemporalNamespace string `koanf:"temporal_namespace"`
	TemporalDisabled  bool   `koanf:"temporal_disabled"`

	CheckAttempts  int           `koanf:"check_attempts"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	EventTimeout   time.Duration `koanf:"event_timeout"`
	ReservationTTL time.Duration `koanf:"reservation_ttl"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	return Config{
		Port:              "8080",
		InventoryPort:     "3001",
		KafkaTopic:        "order.events",
		KafkaGroupID:      "inventory-service",
		EventsBackend:     EventsBackendRabbitMQ,
		TemporalAddress:   client.DefaultHostPort,
		TemporalNamespace: client.DefaultNamespace,
		CheckAttempts:     3,
		RequestTimeout:    5 * time.Second,
		EventTimeout:      5 * time.Second,
		ReservationTTL:    24 * time.Hour,
	}
}

// Load layers an optional YAML file named by CONFIG_FILE and then the environment over the defaults.
func Load() (Config, error) {
	return LoadFile(strings.TrimSpace(os.Getenv("CONFIG_FILE")))
}

// LoadFile is Load with an explicit YAML path. An empty path skips the file layer.
func LoadFile(path string) (Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider("", ".", strings.ToLower), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	cfg := Defaults()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	cfg.EventsBackend = strings.ToLower(strings.TrimSpace(cfg.EventsBackend))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the processes cannot run with.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Port) == "" {
		errs = append(errs, errors.New("port required"))
	}
	if strings.TrimSpace(c.InventoryPort) == "" {
		errs = append(errs, errors.New("inventory_port required"))
	}
	if c.CheckAttempts <= 0 {
		errs = append(errs, errors.New("check_attempts must be positive"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request_timeout must be positive"))
	}
	if c.EventTimeout <= 0 {
		errs = append(errs, errors.New("event_timeout must be positive"))
	}
	if c.ReservationTTL <= 0 {
		errs = append(errs, errors.New("reservation_ttl must be positive"))
	}
	switch c.EventsBackend {
	case EventsBackendRabbitMQ, EventsBackendKafka, EventsBackendLog:
	default:
		errs = append(errs, fmt.Errorf("events_backend %q is not one of rabbitmq, kafka, log", c.EventsBackend))
	}
	return errors.Join(errs...)
}

// Brokers splits KafkaBrokers on commas.
func (c Config) Brokers() []string {
	var brokers []string
	for _, broker := range strings.Split(c.KafkaBrokers, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return brokers
}
