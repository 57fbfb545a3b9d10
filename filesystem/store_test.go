package filesystem_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rkotari/smartdrive"
	"github.com/rkotari/smartdrive/filesystem"
)

const testBaseURL = "http://localhost:5000"

func newTestStore(t *testing.T) (*filesystem.Store, string) {
	t.Helper()

	dir := t.TempDir()
	root, err := os.OpenRoot(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = root.Close() })

	store := filesystem.NewStore(root, []byte("0123456789abcdef0123456789abcdef"), testBaseURL)
	return store, dir
}

// downloadPath turns a presigned URL into the request URI a client would hit,
// keeping the path escaped exactly as issued.
func downloadPath(t *testing.T, presigned string) string {
	t.Helper()
	u, err := url.Parse(presigned)
	require.NoError(t, err)
	return u.RequestURI()
}

func serveDownload(store *filesystem.Store, target string) *httptest.ResponseRecorder {
	handler := http.StripPrefix("/download/", store)
	req := httptest.NewRequest("GET", target, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestStore_Put(t *testing.T) {
	ctx := context.Background()

	t.Run("writes content", func(t *testing.T) {
		store, dir := newTestStore(t)

		err := store.Put(ctx, "id-1_a.txt", strings.NewReader("hello"))
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(dir, "id-1_a.txt"))
		require.NoError(t, err)
		assert.Equal(t, "hello", string(data))
	})

	t.Run("overwrites existing content", func(t *testing.T) {
		store, dir := newTestStore(t)

		require.NoError(t, store.Put(ctx, "id-1_a.txt", strings.NewReader("first")))
		require.NoError(t, store.Put(ctx, "id-1_a.txt", strings.NewReader("second")))

		data, err := os.ReadFile(filepath.Join(dir, "id-1_a.txt"))
		require.NoError(t, err)
		assert.Equal(t, "second", string(data))
	})

	t.Run("leaves no temp files behind", func(t *testing.T) {
		store, dir := newTestStore(t)

		require.NoError(t, store.Put(ctx, "id-1_a.txt", strings.NewReader("hello")))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "id-1_a.txt", entries[0].Name())
	})

	t.Run("rejects traversal keys", func(t *testing.T) {
		store, _ := newTestStore(t)

		for _, key := range []string{"", ".", "../escape.txt", "/abs.txt", ".hidden", "a/../../b"} {
			err := store.Put(ctx, key, strings.NewReader("x"))
			assert.ErrorIs(t, err, smartdrive.ErrInvalidInput, "key %q", key)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		store, _ := newTestStore(t)
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		err := store.Put(cancelled, "id-1_a.txt", strings.NewReader("x"))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes the blob", func(t *testing.T) {
		store, dir := newTestStore(t)

		require.NoError(t, store.Put(ctx, "id-1_a.txt", strings.NewReader("hello")))
		require.NoError(t, store.Delete(ctx, "id-1_a.txt"))

		_, err := os.Stat(filepath.Join(dir, "id-1_a.txt"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("unknown key", func(t *testing.T) {
		store, _ := newTestStore(t)
		assert.ErrorIs(t, store.Delete(ctx, "missing.txt"), smartdrive.ErrNotFound)
	})
}

func TestStore_PresignGet(t *testing.T) {
	ctx := context.Background()

	store, _ := newTestStore(t)
	require.NoError(t, store.Put(ctx, "id-1_a.txt", strings.NewReader("hello")))

	presigned, err := store.PresignGet(ctx, "id-1_a.txt", time.Hour)
	require.NoError(t, err)

	u, err := url.Parse(presigned)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(presigned, testBaseURL+"/download/"))
	assert.NotEmpty(t, u.Query().Get("expires"))
	assert.NotEmpty(t, u.Query().Get("signature"))
}

func TestStore_ServeHTTP(t *testing.T) {
	ctx := context.Background()

	t.Run("serves a presigned url", func(t *testing.T) {
		store, _ := newTestStore(t)
		require.NoError(t, store.Put(ctx, "id-1_a.txt", strings.NewReader("hello")))

		presigned, err := store.PresignGet(ctx, "id-1_a.txt", time.Hour)
		require.NoError(t, err)

		rec := serveDownload(store, downloadPath(t, presigned))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "hello", rec.Body.String())
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	})

	t.Run("serves a key with url-significant characters", func(t *testing.T) {
		store, _ := newTestStore(t)
		key := "id-1_100%.txt"
		require.NoError(t, store.Put(ctx, key, strings.NewReader("all of it")))

		presigned, err := store.PresignGet(ctx, key, time.Hour)
		require.NoError(t, err)
		assert.Contains(t, presigned, "100%25.txt")

		rec := serveDownload(store, downloadPath(t, presigned))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "all of it", rec.Body.String())
	})

	t.Run("tampered signature", func(t *testing.T) {
		store, _ := newTestStore(t)
		require.NoError(t, store.Put(ctx, "id-1_a.txt", strings.NewReader("hello")))

		presigned, err := store.PresignGet(ctx, "id-1_a.txt", time.Hour)
		require.NoError(t, err)

		u, err := url.Parse(presigned)
		require.NoError(t, err)
		q := u.Query()
		q.Set("signature", "deadbeef")
		u.RawQuery = q.Encode()

		rec := serveDownload(store, u.RequestURI())
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid signature")
	})

	t.Run("expired url", func(t *testing.T) {
		store, _ := newTestStore(t)
		require.NoError(t, store.Put(ctx, "id-1_a.txt", strings.NewReader("hello")))

		presigned, err := store.PresignGet(ctx, "id-1_a.txt", -time.Hour)
		require.NoError(t, err)

		rec := serveDownload(store, downloadPath(t, presigned))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "url expired")
	})

	t.Run("extended expiry invalidates the signature", func(t *testing.T) {
		store, _ := newTestStore(t)
		require.NoError(t, store.Put(ctx, "id-1_a.txt", strings.NewReader("hello")))

		presigned, err := store.PresignGet(ctx, "id-1_a.txt", -time.Hour)
		require.NoError(t, err)

		u, err := url.Parse(presigned)
		require.NoError(t, err)
		q := u.Query()
		q.Set("expires", fmt.Sprintf("%d", time.Now().Add(time.Hour).Unix()))
		u.RawQuery = q.Encode()

		rec := serveDownload(store, u.RequestURI())
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid signature")
	})

	t.Run("missing query parameters", func(t *testing.T) {
		store, _ := newTestStore(t)
		require.NoError(t, store.Put(ctx, "id-1_a.txt", strings.NewReader("hello")))

		rec := serveDownload(store, "/download/id-1_a.txt")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("signed url for a deleted blob", func(t *testing.T) {
		store, _ := newTestStore(t)
		require.NoError(t, store.Put(ctx, "id-1_a.txt", strings.NewReader("hello")))

		presigned, err := store.PresignGet(ctx, "id-1_a.txt", time.Hour)
		require.NoError(t, err)
		require.NoError(t, store.Delete(ctx, "id-1_a.txt"))

		rec := serveDownload(store, downloadPath(t, presigned))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
