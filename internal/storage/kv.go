package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/user/etiquette-quest/config"
	"go.uber.org/zap"
)

// ErrNotFound is returned by Get for a key that was never set
var ErrNotFound = errors.New("key not found")

// KeyValue is a durable store of opaque blobs
type KeyValue interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// Open creates the backend selected by configuration
func Open(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (KeyValue, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Driver {
	case DriverFile, "":
		logger.Info("Using file storage", zap.String("dir", cfg.Dir))
		return NewFileStore(cfg.Dir)
	case DriverSQLite:
		logger.Info("Using sqlite storage", zap.String("dsn", cfg.DSN))
		return NewSQLiteStore(ctx, cfg.DSN)
	case DriverRedis:
		logger.Info("Using redis storage", zap.String("addr", cfg.RedisAddr), zap.Int("db", cfg.RedisDB))
		return NewRedisStore(ctx, RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.KeyPrefix,
		}, logger)
	case DriverMemory:
		logger.Warn("Using in-memory storage, progress will not survive restarts")
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}
