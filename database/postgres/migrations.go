package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rkotari/smartdrive"
)

// quoteIdentifier safely quotes a PostgreSQL identifier
func quoteIdentifier(name string) string {
	return `"` + name + `"`
}

func Migrate(ctx context.Context, pool *pgxpool.Pool, tables smartdrive.Tables) error {
	if err := createAccountsTable(ctx, pool, tables.Accounts); err != nil {
		return fmt.Errorf("migrate %s: %w", tables.Accounts, err)
	}
	if err := createFilesTable(ctx, pool, tables.Files); err != nil {
		return fmt.Errorf("migrate %s: %w", tables.Files, err)
	}
	return nil
}

func DropTables(ctx context.Context, pool *pgxpool.Pool, tables smartdrive.Tables) error {
	for _, table := range []string{tables.Files, tables.Accounts} {
		dropSQL := fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdentifier(table))
		if _, err := pool.Exec(ctx, dropSQL); err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
	}
	return nil
}

func createAccountsTable(ctx context.Context, pool *pgxpool.Pool, tableName string) error {
	createTableSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			email TEXT NOT NULL PRIMARY KEY,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`, quoteIdentifier(tableName))

	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

func createFilesTable(ctx context.Context, pool *pgxpool.Pool, tableName string) error {
	quotedTable := quoteIdentifier(tableName)
	indexOwner := quoteIdentifier(fmt.Sprintf("idx_%s_owner", tableName))

	createTableSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			file_id UUID NOT NULL PRIMARY KEY,
			owner_email TEXT NOT NULL,
			storage_key TEXT NOT NULL,
			file_name TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`, quotedTable)

	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	indexSQL := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s ON %s (owner_email, created_at)
	`, indexOwner, quotedTable)

	if _, err := pool.Exec(ctx, indexSQL); err != nil {
		return fmt.Errorf("create index owner: %w", err)
	}

	return nil
}
