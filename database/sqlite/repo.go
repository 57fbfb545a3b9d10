// Package sqlite implements the smartdrive table stores on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rkotari/smartdrive"
)

// AccountRepo implements smartdrive.AccountDirectory on a SQLite table.
type AccountRepo struct {
	db        *sql.DB
	tableName string
}

// NewAccountRepo creates an AccountRepo for the given table.
// The table name must be validated before construction.
func NewAccountRepo(db *sql.DB, tableName string) *AccountRepo {
	return &AccountRepo{db: db, tableName: tableName}
}

func (r *AccountRepo) Get(ctx context.Context, email string) (smartdrive.Account, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT email, password_hash, created_at FROM %s WHERE email = ?`, r.tableName)

	var account smartdrive.Account
	var createdAt string

	err := r.db.QueryRowContext(ctx, query, email).Scan(&account.Email, &account.PasswordHash, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return smartdrive.Account{}, smartdrive.ErrNotFound
		}
		return smartdrive.Account{}, fmt.Errorf("get account: %w", err)
	}

	account.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return smartdrive.Account{}, fmt.Errorf("get account: parse created_at: %w", err)
	}

	return account, nil
}

func (r *AccountRepo) Create(ctx context.Context, account smartdrive.Account) error {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (email, password_hash, created_at) VALUES (?, ?, ?)
		ON CONFLICT (email) DO NOTHING`, r.tableName)

	result, err := r.db.ExecContext(ctx, query,
		account.Email, account.PasswordHash, account.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("create account: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return smartdrive.ErrAlreadyExists
	}

	return nil
}

// FileRepo implements smartdrive.FileCatalog on a SQLite table.
type FileRepo struct {
	db        *sql.DB
	tableName string
}

// NewFileRepo creates a FileRepo for the given table.
func NewFileRepo(db *sql.DB, tableName string) *FileRepo {
	return &FileRepo{db: db, tableName: tableName}
}

func (r *FileRepo) Get(ctx context.Context, fileID string) (smartdrive.FileRecord, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT file_id, owner_email, storage_key, file_name, created_at
		FROM %s WHERE file_id = ?`, r.tableName)

	record, err := scanRecord(r.db.QueryRowContext(ctx, query, fileID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return smartdrive.FileRecord{}, smartdrive.ErrNotFound
		}
		return smartdrive.FileRecord{}, fmt.Errorf("get file record: %w", err)
	}

	return record, nil
}

func (r *FileRepo) Put(ctx context.Context, record smartdrive.FileRecord) error {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (file_id, owner_email, storage_key, file_name, created_at)
		VALUES (?, ?, ?, ?, ?)`, r.tableName)

	_, err := r.db.ExecContext(ctx, query,
		record.FileID, record.OwnerEmail, record.StorageKey, record.FileName,
		record.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("put file record: %w", err)
	}
	return nil
}

func (r *FileRepo) Delete(ctx context.Context, fileID string) error {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`DELETE FROM %s WHERE file_id = ?`, r.tableName)

	result, err := r.db.ExecContext(ctx, query, fileID)
	if err != nil {
		return fmt.Errorf("delete file record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete file record: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return smartdrive.ErrNotFound
	}

	return nil
}

func (r *FileRepo) ListByOwner(ctx context.Context, owner string) ([]smartdrive.FileRecord, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT file_id, owner_email, storage_key, file_name, created_at
		FROM %s WHERE owner_email = ?
		ORDER BY created_at, file_id`, r.tableName)

	rows, err := r.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("list file records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]smartdrive.FileRecord, 0)
	for rows.Next() {
		record, scanErr := scanRecord(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("list file records: %w", scanErr)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list file records: rows: %w", err)
	}

	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (smartdrive.FileRecord, error) {
	var record smartdrive.FileRecord
	var createdAt string

	if err := row.Scan(&record.FileID, &record.OwnerEmail, &record.StorageKey,
		&record.FileName, &createdAt); err != nil {
		return smartdrive.FileRecord{}, err
	}

	var err error
	record.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return smartdrive.FileRecord{}, fmt.Errorf("parse created_at: %w", err)
	}

	return record, nil
}
