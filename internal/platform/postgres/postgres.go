package postgres

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	pingTimeout     = 5 * time.Second
	maxOpenConns    = 20
	maxIdleConns    = 5
	connMaxLifetime = 30 * time.Minute
)

// Connect opens the ledger database and pings it. Unique violations come back as gorm.ErrDuplicatedKey,
// which the order and reservation stores rely on to detect replays.
func Connect(ctx context.Context, dsn string) (*gorm.DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("postgres dsn is empty")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	pool, err := db.DB()
	if err != nil {
		return nil, err
	}
	pool.SetMaxOpenConns(maxOpenConns)
	pool.SetMaxIdleConns(maxIdleConns)
	pool.SetConnMaxLifetime(connMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.PingContext(pingCtx); err != nil {
		_ = pool.Close()
		return nil, err
	}
	return db, nil
}

// ConnectOptional backs the named store with PostgreSQL when a dsn is configured and reachable.
// Otherwise it returns a nil DB so the caller keeps its in-memory store. The returned func closes the pool.
func ConnectOptional(ctx context.Context, dsn, store string, logger *slog.Logger) (*gorm.DB, func()) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With(slog.String("store", store))
	if strings.TrimSpace(dsn) == "" {
		logger.Warn("no postgres dsn configured, store stays in memory")
		return nil, func() {}
	}
	db, err := Connect(ctx, dsn)
	if err != nil {
		logger.Warn("postgres unreachable, store stays in memory", slog.String("error", err.Error()))
		return nil, func() {}
	}
	pool, err := db.DB()
	if err != nil {
		logger.Warn("postgres pool unavailable, store stays in memory", slog.String("error", err.Error()))
		return nil, func() {}
	}
	logger.Info("store backed by postgres", slog.Int("max_open_conns", maxOpenConns))
	return db, func() { _ = pool.Close() }
}
