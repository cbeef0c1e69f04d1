// Package pgutil provides Postgres connection helpers shared by the registry
// store and its tests.
package pgutil

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/custodia-labs/solana-wallet-middleware/pkg/config"
)

// ConnectDB creates a connection to the configured database.
func ConnectDB(cfg *config.DatabaseConfig) (*bun.DB, error) {
	// Functional options escape special characters in credentials.
	connector := pgdriver.NewConnector(
		pgdriver.WithNetwork("tcp"),
		pgdriver.WithAddr(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)),
		pgdriver.WithUser(cfg.User),
		pgdriver.WithPassword(cfg.Password),
		pgdriver.WithDatabase(cfg.Database),
		pgdriver.WithInsecure(cfg.SSLMode == "disable"),
	)

	db := bun.NewDB(sql.OpenDB(connector), pgdialect.New())

	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database %s: %w", cfg.Database, err)
	}
	return db, nil
}
