// Package memory provides in-memory implementations of the smartdrive store
// interfaces. They back tests and the dev server mode; nothing survives a
// process restart.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/rkotari/smartdrive"
)

// AccountDirectory is a map-backed smartdrive.AccountDirectory.
type AccountDirectory struct {
	mu       sync.RWMutex
	accounts map[string]smartdrive.Account
}

// NewAccountDirectory creates an empty in-memory account directory.
func NewAccountDirectory() *AccountDirectory {
	return &AccountDirectory{accounts: make(map[string]smartdrive.Account)}
}

func (d *AccountDirectory) Get(ctx context.Context, email string) (smartdrive.Account, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	account, ok := d.accounts[email]
	if !ok {
		return smartdrive.Account{}, smartdrive.ErrNotFound
	}
	return account, nil
}

func (d *AccountDirectory) Create(ctx context.Context, account smartdrive.Account) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.accounts[account.Email]; ok {
		return smartdrive.ErrAlreadyExists
	}
	d.accounts[account.Email] = account
	return nil
}

// FileCatalog is a map-backed smartdrive.FileCatalog.
type FileCatalog struct {
	mu      sync.RWMutex
	records map[string]smartdrive.FileRecord
}

// NewFileCatalog creates an empty in-memory file catalog.
func NewFileCatalog() *FileCatalog {
	return &FileCatalog{records: make(map[string]smartdrive.FileRecord)}
}

func (c *FileCatalog) Get(ctx context.Context, fileID string) (smartdrive.FileRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	record, ok := c.records[fileID]
	if !ok {
		return smartdrive.FileRecord{}, smartdrive.ErrNotFound
	}
	return record, nil
}

func (c *FileCatalog) Put(ctx context.Context, record smartdrive.FileRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.records[record.FileID] = record
	return nil
}

func (c *FileCatalog) Delete(ctx context.Context, fileID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.records[fileID]; !ok {
		return smartdrive.ErrNotFound
	}
	delete(c.records, fileID)
	return nil
}

func (c *FileCatalog) ListByOwner(ctx context.Context, owner string) ([]smartdrive.FileRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	records := make([]smartdrive.FileRecord, 0)
	for _, record := range c.records {
		if record.OwnerEmail == owner {
			records = append(records, record)
		}
	}

	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].FileID < records[j].FileID
	})

	return records, nil
}

// ObjectStore is a map-backed smartdrive.ObjectStore. Retrieval URLs use a
// non-routable scheme and only identify the blob; they are not served anywhere.
type ObjectStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewObjectStore creates an empty in-memory object store.
func NewObjectStore() *ObjectStore {
	return &ObjectStore{blobs: make(map[string][]byte)}
}

func (s *ObjectStore) Put(ctx context.Context, key string, content io.Reader) error {
	data, err := io.ReadAll(content)
	if err != nil {
		return fmt.Errorf("read content: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = data
	return nil
}

func (s *ObjectStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blobs[key]; !ok {
		return smartdrive.ErrNotFound
	}
	delete(s.blobs, key)
	return nil
}

func (s *ObjectStore) PresignGet(ctx context.Context, key string, expires time.Duration) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.blobs[key]; !ok {
		return "", smartdrive.ErrNotFound
	}
	return fmt.Sprintf("memory:///%s?expires=%d", url.PathEscape(key), time.Now().Add(expires).Unix()), nil
}

// Open returns the stored blob content, for test assertions.
func (s *ObjectStore) Open(key string) (io.Reader, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.blobs[key]
	if !ok {
		return nil, false
	}
	return bytes.NewReader(data), true
}
