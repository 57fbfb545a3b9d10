// Package filesystem provides a local-disk ObjectStore for smartdrive.
// Writes are atomic (temp file then rename) and retrieval URLs are HMAC-signed
// download links served by the store itself.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/rkotari/smartdrive"
)

// Store provides file system storage operations with signed download URLs.
type Store struct {
	root    *os.Root
	signer  *URLSigner
	baseURL string
}

// NewStore creates a Store rooted at root. baseURL is the externally reachable
// server address (e.g. "http://localhost:5000"); presigned URLs are built as
// baseURL + "/download/<key>?...". The root provides sandboxed file operations
// preventing path traversal.
func NewStore(root *os.Root, secret []byte, baseURL string) *Store {
	return &Store{
		root:    root,
		signer:  NewURLSigner(secret),
		baseURL: baseURL,
	}
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// Put atomically writes content under key using a temp file and rename.
// The operation respects context cancellation.
func (s *Store) Put(ctx context.Context, key string, content io.Reader) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if !validKey(key) {
		return fmt.Errorf("put %q: %w", key, smartdrive.ErrInvalidInput)
	}

	tmpFile := tmpFileName()
	t, createErr := s.root.Create(tmpFile)
	if createErr != nil {
		return fmt.Errorf("could not open temp file: %w", createErr)
	}

	success := false
	defer func() {
		if closeErr := t.Close(); closeErr != nil {
			slog.Warn("failed to close tmp file", "err", closeErr)
		}
		if !success {
			if rmErr := s.root.Remove(t.Name()); rmErr != nil {
				slog.Warn("failed to remove tmp file", "err", rmErr)
			}
		}
	}()

	if _, err := io.Copy(t, &ctxReader{ctx: ctx, r: content}); err != nil {
		return fmt.Errorf("could not copy file contents: %w", err)
	}

	if err := t.Sync(); err != nil {
		return fmt.Errorf("could not sync written file: %w", err)
	}

	if renameErr := s.root.Rename(tmpFile, key); renameErr != nil {
		return fmt.Errorf("failed to rename file: %w", renameErr)
	}

	success = true
	return nil
}

// Delete removes the blob under key. Returns smartdrive.ErrNotFound if it does
// not exist.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.root.Remove(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return smartdrive.ErrNotFound
		}
		return fmt.Errorf("could not delete file: %w", err)
	}
	return nil
}

// PresignGet returns a time-limited signed download URL for key.
func (s *Store) PresignGet(ctx context.Context, key string, expires time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	expiresAt := time.Now().Add(expires).Unix()
	signature := s.signer.Sign(key, expiresAt)

	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expiresAt, 10))
	q.Set("signature", signature)

	return fmt.Sprintf("%s/download/%s?%s", s.baseURL, url.PathEscape(key), q.Encode()), nil
}

// ServeHTTP serves a blob for a presigned URL. The router strips the
// "/download/" prefix, so the remaining path is the storage key, already
// decoded by net/http. Requests with a missing, tampered, or expired
// signature are rejected.
func (s *Store) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Path
	if !validKey(key) {
		http.Error(w, "invalid key", http.StatusBadRequest)
		return
	}

	expires, err := strconv.ParseInt(r.URL.Query().Get("expires"), 10, 64)
	if err != nil {
		http.Error(w, "missing or invalid expiry", http.StatusUnauthorized)
		return
	}

	if err := s.signer.Verify(key, expires, r.URL.Query().Get("signature")); err != nil {
		if errors.Is(err, ErrURLExpired) {
			http.Error(w, "url expired", http.StatusUnauthorized)
			return
		}
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	f, err := s.root.Open(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		slog.Error("open blob", "key", key, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		slog.Error("stat blob", "key", key, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", detectContentType(key))
	http.ServeContent(w, r, key, info.ModTime(), f)
}

// validKey rejects keys that would escape the root or collide with temp files.
func validKey(key string) bool {
	if key == "" || key == "." || key[0] == '/' || key[0] == '.' {
		return false
	}
	return filepath.Clean(key) == key && !filepath.IsAbs(key)
}

func detectContentType(key string) string {
	contentType := mime.TypeByExtension(filepath.Ext(key))
	if contentType == "" {
		return "application/octet-stream"
	}
	return contentType
}

func tmpFileName() string {
	return fmt.Sprintf(".t%s", uuid.New().String())
}
