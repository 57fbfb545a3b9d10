package sqlite_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/rkotari/smartdrive"
	"github.com/rkotari/smartdrive/database/sqlite"
)

var testTables = smartdrive.Tables{Accounts: "users", Files: "files"}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, sqlite.Migrate(context.Background(), db, testTables))
	return db
}

func TestAccountRepo(t *testing.T) {
	ctx := context.Background()

	t.Run("create then get", func(t *testing.T) {
		repo := sqlite.NewAccountRepo(openTestDB(t), testTables.Accounts)

		created := time.Now().UTC().Truncate(time.Millisecond)
		account := smartdrive.Account{
			Email:        "alice@example.com",
			PasswordHash: "bcrypt-hash",
			CreatedAt:    created,
		}
		require.NoError(t, repo.Create(ctx, account))

		got, err := repo.Get(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, account.Email, got.Email)
		assert.Equal(t, account.PasswordHash, got.PasswordHash)
		assert.True(t, created.Equal(got.CreatedAt), "created_at should round-trip")
	})

	t.Run("get unknown email", func(t *testing.T) {
		repo := sqlite.NewAccountRepo(openTestDB(t), testTables.Accounts)

		_, err := repo.Get(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, smartdrive.ErrNotFound)
	})

	t.Run("duplicate create preserves original", func(t *testing.T) {
		repo := sqlite.NewAccountRepo(openTestDB(t), testTables.Accounts)

		first := smartdrive.Account{Email: "alice@example.com", PasswordHash: "original", CreatedAt: time.Now().UTC()}
		require.NoError(t, repo.Create(ctx, first))

		second := smartdrive.Account{Email: "alice@example.com", PasswordHash: "overwrite", CreatedAt: time.Now().UTC()}
		assert.ErrorIs(t, repo.Create(ctx, second), smartdrive.ErrAlreadyExists)

		got, err := repo.Get(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, "original", got.PasswordHash)
	})
}

func TestFileRepo(t *testing.T) {
	ctx := context.Background()

	record := func(id, owner string, createdAt time.Time) smartdrive.FileRecord {
		return smartdrive.FileRecord{
			FileID:     id,
			OwnerEmail: owner,
			StorageKey: id + "_f.txt",
			FileName:   "f.txt",
			CreatedAt:  createdAt,
		}
	}

	t.Run("put then get", func(t *testing.T) {
		repo := sqlite.NewFileRepo(openTestDB(t), testTables.Files)

		created := time.Now().UTC().Truncate(time.Millisecond)
		r := record("id-1", "alice@example.com", created)
		require.NoError(t, repo.Put(ctx, r))

		got, err := repo.Get(ctx, "id-1")
		require.NoError(t, err)
		assert.Equal(t, r.FileID, got.FileID)
		assert.Equal(t, r.OwnerEmail, got.OwnerEmail)
		assert.Equal(t, r.StorageKey, got.StorageKey)
		assert.Equal(t, r.FileName, got.FileName)
		assert.True(t, created.Equal(got.CreatedAt))
	})

	t.Run("get unknown id", func(t *testing.T) {
		repo := sqlite.NewFileRepo(openTestDB(t), testTables.Files)

		_, err := repo.Get(ctx, "missing")
		assert.ErrorIs(t, err, smartdrive.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		repo := sqlite.NewFileRepo(openTestDB(t), testTables.Files)

		require.NoError(t, repo.Put(ctx, record("id-1", "alice@example.com", time.Now().UTC())))
		require.NoError(t, repo.Delete(ctx, "id-1"))

		_, err := repo.Get(ctx, "id-1")
		assert.ErrorIs(t, err, smartdrive.ErrNotFound)

		assert.ErrorIs(t, repo.Delete(ctx, "id-1"), smartdrive.ErrNotFound)
	})

	t.Run("list by owner is ordered and scoped", func(t *testing.T) {
		repo := sqlite.NewFileRepo(openTestDB(t), testTables.Files)
		base := time.Now().UTC().Truncate(time.Millisecond)

		require.NoError(t, repo.Put(ctx, record("id-2", "alice@example.com", base.Add(time.Minute))))
		require.NoError(t, repo.Put(ctx, record("id-1", "alice@example.com", base)))
		require.NoError(t, repo.Put(ctx, record("id-3", "bob@example.com", base)))

		got, err := repo.ListByOwner(ctx, "alice@example.com")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "id-1", got[0].FileID)
		assert.Equal(t, "id-2", got[1].FileID)
	})

	t.Run("list for unknown owner is empty", func(t *testing.T) {
		repo := sqlite.NewFileRepo(openTestDB(t), testTables.Files)

		got, err := repo.ListByOwner(ctx, "nobody@example.com")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)
	assert.NoError(t, sqlite.Migrate(context.Background(), db, testTables))
}

func TestDropTables(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	require.NoError(t, sqlite.DropTables(ctx, db, testTables))

	repo := sqlite.NewFileRepo(db, testTables.Files)
	_, err := repo.ListByOwner(ctx, "alice@example.com")
	assert.Error(t, err)
}
