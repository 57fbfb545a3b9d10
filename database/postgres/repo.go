// Package postgres implements the smartdrive table stores on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rkotari/smartdrive"
)

// AccountRepo implements smartdrive.AccountDirectory on a PostgreSQL table.
type AccountRepo struct {
	pool      *pgxpool.Pool
	tableName string
}

// NewAccountRepo creates an AccountRepo for the given table.
// The table name must be validated before construction.
func NewAccountRepo(pool *pgxpool.Pool, tableName string) *AccountRepo {
	return &AccountRepo{pool: pool, tableName: tableName}
}

func (r *AccountRepo) Get(ctx context.Context, email string) (smartdrive.Account, error) {
	query := fmt.Sprintf(`
		SELECT email, password_hash, created_at
		FROM %s
		WHERE email = $1
	`, r.tableName)

	var account smartdrive.Account
	err := r.pool.QueryRow(ctx, query, email).Scan(
		&account.Email, &account.PasswordHash, &account.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return smartdrive.Account{}, smartdrive.ErrNotFound
		}
		return smartdrive.Account{}, fmt.Errorf("get account: %w", err)
	}

	return account, nil
}

func (r *AccountRepo) Create(ctx context.Context, account smartdrive.Account) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (email, password_hash, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO NOTHING
	`, r.tableName)

	result, err := r.pool.Exec(ctx, query, account.Email, account.PasswordHash, account.CreatedAt)
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}

	if result.RowsAffected() == 0 {
		return smartdrive.ErrAlreadyExists
	}

	return nil
}

// FileRepo implements smartdrive.FileCatalog on a PostgreSQL table.
type FileRepo struct {
	pool      *pgxpool.Pool
	tableName string
}

// NewFileRepo creates a FileRepo for the given table.
func NewFileRepo(pool *pgxpool.Pool, tableName string) *FileRepo {
	return &FileRepo{pool: pool, tableName: tableName}
}

func (r *FileRepo) Get(ctx context.Context, fileID string) (smartdrive.FileRecord, error) {
	query := fmt.Sprintf(`
		SELECT file_id, owner_email, storage_key, file_name, created_at
		FROM %s
		WHERE file_id = $1
	`, r.tableName)

	var record smartdrive.FileRecord
	err := r.pool.QueryRow(ctx, query, fileID).Scan(
		&record.FileID, &record.OwnerEmail, &record.StorageKey, &record.FileName, &record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return smartdrive.FileRecord{}, smartdrive.ErrNotFound
		}
		return smartdrive.FileRecord{}, fmt.Errorf("get file record: %w", err)
	}

	return record, nil
}

func (r *FileRepo) Put(ctx context.Context, record smartdrive.FileRecord) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (file_id, owner_email, storage_key, file_name, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, r.tableName)

	_, err := r.pool.Exec(ctx, query,
		record.FileID, record.OwnerEmail, record.StorageKey, record.FileName, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("put file record: %w", err)
	}
	return nil
}

func (r *FileRepo) Delete(ctx context.Context, fileID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE file_id = $1`, r.tableName)

	result, err := r.pool.Exec(ctx, query, fileID)
	if err != nil {
		return fmt.Errorf("delete file record: %w", err)
	}

	if result.RowsAffected() == 0 {
		return smartdrive.ErrNotFound
	}

	return nil
}

func (r *FileRepo) ListByOwner(ctx context.Context, owner string) ([]smartdrive.FileRecord, error) {
	query := fmt.Sprintf(`
		SELECT file_id, owner_email, storage_key, file_name, created_at
		FROM %s
		WHERE owner_email = $1
		ORDER BY created_at, file_id
	`, r.tableName)

	rows, err := r.pool.Query(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("list file records: %w", err)
	}
	defer rows.Close()

	records := make([]smartdrive.FileRecord, 0)
	for rows.Next() {
		var record smartdrive.FileRecord
		if err := rows.Scan(&record.FileID, &record.OwnerEmail, &record.StorageKey,
			&record.FileName, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("list file records: scan: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list file records: rows: %w", err)
	}

	return records, nil
}
