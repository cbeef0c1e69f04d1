package walletstore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/custodia-labs/solana-wallet-middleware/pkg/config"
	"github.com/custodia-labs/solana-wallet-middleware/pkg/pgutil"
)

// NewFromConfig builds the registry store for the configured backend.
// The returned close function releases the backing connection, if any.
func NewFromConfig(cfg *config.Config, logger *zap.Logger) (Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Storage.Backend {
	case "memory":
		logger.Warn("Using in-memory registry; issued codes do not survive a restart")
		return NewMemoryStore(), noop, nil

	case "postgres":
		db, err := pgutil.ConnectDB(&cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Connected to registry database",
			zap.String("host", cfg.Database.Host),
			zap.String("database", cfg.Database.Database))
		return NewPGStore(db), db.Close, nil

	case "redis":
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid redis url: %w", err)
		}
		if cfg.Redis.PoolSize > 0 {
			opts.PoolSize = cfg.Redis.PoolSize
		}
		if cfg.Redis.MinIdleConns > 0 {
			opts.MinIdleConns = cfg.Redis.MinIdleConns
		}
		if cfg.Redis.DialTimeout > 0 {
			opts.DialTimeout = cfg.Redis.DialTimeout
		}
		if cfg.Redis.ReadTimeout > 0 {
			opts.ReadTimeout = cfg.Redis.ReadTimeout
		}
		if cfg.Redis.WriteTimeout > 0 {
			opts.WriteTimeout = cfg.Redis.WriteTimeout
		}

		client := redis.NewClient(opts)
		if err := client.Ping(context.Background()).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		logger.Info("Connected to registry redis", zap.String("addr", opts.Addr))
		return NewRedisStore(client), client.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
