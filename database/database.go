package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rkotari/smartdrive"
	"github.com/rkotari/smartdrive/database/postgres"
	"github.com/rkotari/smartdrive/database/sqlite"

	_ "modernc.org/sqlite" // SQLite driver
)

// Config holds the configuration for connecting to a SQL metadata backend.
type Config struct {
	// Type specifies the backend. Connect handles "sqlite" and "postgres";
	// "dynamo" and "memory" are wired directly by the server command.
	Type string `mapstructure:"type" validate:"required,oneof=memory sqlite postgres dynamo"`
	// DSN is the data source name (connection string)
	DSN string `mapstructure:"dsn"`
	// Tables names the accounts and files tables
	Tables smartdrive.Tables `mapstructure:"tables"`
}

// Stores bundles the two table stores a backend provides.
type Stores struct {
	Accounts smartdrive.AccountDirectory
	Catalog  smartdrive.FileCatalog
}

// Connect establishes a connection to the configured backend, runs migrations,
// and returns the stores. The returned cleanup function closes the connection.
func Connect(ctx context.Context, cfg Config) (Stores, func(), error) {
	if err := cfg.Tables.Validate(); err != nil {
		return Stores{}, nil, fmt.Errorf("connect database: %w", err)
	}

	switch cfg.Type {
	case "sqlite":
		return connectSQLite(ctx, cfg.DSN, cfg.Tables)
	case "postgres":
		return connectPostgres(ctx, cfg.DSN, cfg.Tables)
	default:
		return Stores{}, nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}

func connectSQLite(ctx context.Context, dsn string, tables smartdrive.Tables) (Stores, func(), error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return Stores{}, nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return Stores{}, nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if err = sqlite.Migrate(ctx, db, tables); err != nil {
		_ = db.Close()
		return Stores{}, nil, fmt.Errorf("migrate sqlite: %w", err)
	}

	stores := Stores{
		Accounts: sqlite.NewAccountRepo(db, tables.Accounts),
		Catalog:  sqlite.NewFileRepo(db, tables.Files),
	}
	cleanup := func() { _ = db.Close() }

	return stores, cleanup, nil
}

func connectPostgres(ctx context.Context, dsn string, tables smartdrive.Tables) (Stores, func(), error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return Stores{}, nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return Stores{}, nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err = postgres.Migrate(ctx, pool, tables); err != nil {
		pool.Close()
		return Stores{}, nil, fmt.Errorf("migrate postgres: %w", err)
	}

	stores := Stores{
		Accounts: postgres.NewAccountRepo(pool, tables.Accounts),
		Catalog:  postgres.NewFileRepo(pool, tables.Files),
	}

	return stores, pool.Close, nil
}
