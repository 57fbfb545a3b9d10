package smartdrive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// AccountDirectory maps an email to a stored credential record.
// Implementations must handle concurrent access safely.
type AccountDirectory interface {
	// Get retrieves the account for an email.
	// Returns ErrNotFound if the email is not registered.
	Get(ctx context.Context, email string) (Account, error)

	// Create stores a new account. It must fail with ErrAlreadyExists if the
	// email is already present, without overwriting the existing record.
	Create(ctx context.Context, account Account) error
}

// FileCatalog maps a file identifier to its metadata record.
type FileCatalog interface {
	// Get retrieves the record for a file id.
	// Returns ErrNotFound if the id is unknown.
	Get(ctx context.Context, fileID string) (FileRecord, error)

	// Put stores a new file record.
	Put(ctx context.Context, record FileRecord) error

	// Delete removes the record for a file id.
	// Returns ErrNotFound if the id is unknown.
	Delete(ctx context.Context, fileID string) error

	// ListByOwner returns all records whose OwnerEmail equals owner, ordered by
	// creation time. Implementations may filter server-side or scan-then-filter;
	// either way a caller must never observe another owner's record.
	ListByOwner(ctx context.Context, owner string) ([]FileRecord, error)
}

// ObjectStore is durable blob storage with time-limited retrieval-URL issuance.
type ObjectStore interface {
	// Put stores the content under key, overwriting any existing blob.
	Put(ctx context.Context, key string, content io.Reader) error

	// Delete removes the blob stored under key.
	// Returns ErrNotFound if no such blob exists.
	Delete(ctx context.Context, key string) error

	// PresignGet returns a URL granting direct read access to the blob under key
	// for the given duration, without further authentication.
	PresignGet(ctx context.Context, key string, expires time.Duration) (string, error)
}

// Service orchestrates the signup/login and upload/list/delete flows over the
// three external collaborators. It holds no state of its own; all state lives
// in the injected stores, each responsible for its own concurrency control.
type Service struct {
	accounts       AccountDirectory
	catalog        FileCatalog
	blobs          ObjectStore
	tokens         *TokenService
	urlTTL         time.Duration
	cleanupTimeout time.Duration
}

// ServiceConfig holds tunables for Service.
type ServiceConfig struct {
	URLTTL         time.Duration // validity of retrieval URLs (default: 1h)
	CleanupTimeout time.Duration // timeout for orphaned-blob cleanup (default: 30s)
}

// NewService creates a Service with the given collaborators.
func NewService(accounts AccountDirectory, catalog FileCatalog, blobs ObjectStore, tokens *TokenService, cfg ServiceConfig) *Service {
	urlTTL := cfg.URLTTL
	if urlTTL <= 0 {
		urlTTL = time.Hour
	}
	cleanupTimeout := cfg.CleanupTimeout
	if cleanupTimeout <= 0 {
		cleanupTimeout = 30 * time.Second
	}
	return &Service{
		accounts:       accounts,
		catalog:        catalog,
		blobs:          blobs,
		tokens:         tokens,
		urlTTL:         urlTTL,
		cleanupTimeout: cleanupTimeout,
	}
}

// VerifyToken verifies a bearer token and returns its subject.
func (s *Service) VerifyToken(token string) (string, error) {
	return s.tokens.Verify(token)
}

// SignUp registers a new account and logs it in. Fails with ErrAlreadyExists
// if the email is taken and ErrInvalidInput if either field is empty.
// Passwords are stored as bcrypt hashes, never in a comparable form.
func (s *Service) SignUp(ctx context.Context, email, password string) (Session, error) {
	if email == "" || password == "" {
		return Session{}, fmt.Errorf("signup: %w: email and password are required", ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Session{}, fmt.Errorf("signup: hash password: %w", err)
	}

	account := Account{
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return Session{}, fmt.Errorf("signup %s: %w", email, ErrAlreadyExists)
		}
		return Session{}, fmt.Errorf("signup %s: %w: %w", email, ErrUpstream, err)
	}

	return s.newSession(email)
}

// LogIn verifies the email/password pair and returns a fresh session.
// An unknown email and a wrong password both fail with ErrInvalidCredentials,
// so login does not leak account existence.
func (s *Service) LogIn(ctx context.Context, email, password string) (Session, error) {
	if email == "" || password == "" {
		return Session{}, fmt.Errorf("login: %w: email and password are required", ErrInvalidInput)
	}

	account, err := s.accounts.Get(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("login %s: %w: %w", email, ErrUpstream, err)
	}

	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return Session{}, ErrInvalidCredentials
	}

	return s.newSession(email)
}

func (s *Service) newSession(email string) (Session, error) {
	token, err := s.tokens.Issue(email)
	if err != nil {
		return Session{}, fmt.Errorf("issue session token: %w", err)
	}
	return Session{Token: token, Email: email}, nil
}

// Upload stores the content as a new file owned by owner and returns its view
// with a fresh retrieval URL. Each upload produces its own unique file id, so
// concurrent uploads by the same owner need no coordination. If the catalog
// write fails after the blob was stored, the blob is deleted again to avoid
// orphans; cleanup runs on a background context so it completes even when the
// request context is already cancelled.
func (s *Service) Upload(ctx context.Context, owner, fileName string, content io.Reader) (FileView, error) {
	if err := ctx.Err(); err != nil {
		return FileView{}, fmt.Errorf("upload: %w", err)
	}
	if owner == "" {
		return FileView{}, fmt.Errorf("upload: %w: owner cannot be empty", ErrInvalidInput)
	}
	// Browsers may send a full path; only the base name is kept.
	fileName = filepath.Base(fileName)
	if fileName == "" || fileName == "." || fileName == string(filepath.Separator) {
		fileName = "Unnamed file"
	}

	record := FileRecord{
		FileID:     uuid.NewString(),
		OwnerEmail: owner,
		FileName:   fileName,
		CreatedAt:  time.Now().UTC(),
	}
	record.StorageKey = record.FileID + "_" + fileName

	if err := s.blobs.Put(ctx, record.StorageKey, content); err != nil {
		return FileView{}, fmt.Errorf("upload %s: %w: %w", record.StorageKey, ErrUpstream, err)
	}

	if err := s.catalog.Put(ctx, record); err != nil {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), s.cleanupTimeout)
		defer cancel()

		if delErr := s.blobs.Delete(cleanupCtx, record.StorageKey); delErr != nil {
			return FileView{}, fmt.Errorf("upload %s: %w: catalog put failed (%w) and blob cleanup failed: %w", record.StorageKey, ErrUpstream, err, delErr)
		}
		return FileView{}, fmt.Errorf("upload %s: %w: %w", record.StorageKey, ErrUpstream, err)
	}

	return s.view(ctx, record)
}

// List returns the files owned by owner, each with a fresh retrieval URL.
// No record owned by anyone else is ever included.
func (s *Service) List(ctx context.Context, owner string) ([]FileView, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	records, err := s.catalog.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list files for %s: %w: %w", owner, ErrUpstream, err)
	}

	views := make([]FileView, 0, len(records))
	for _, record := range records {
		// The catalog contract already filters by owner; records violating it
		// are dropped rather than leaked.
		if record.OwnerEmail != owner {
			continue
		}
		v, viewErr := s.view(ctx, record)
		if viewErr != nil {
			return nil, viewErr
		}
		views = append(views, v)
	}

	return views, nil
}

// Delete removes the file with the given id, blob first, then catalog record.
// Returns ErrNotFound for an unknown id and ErrForbidden when subject is not
// the owner; the two are distinct kinds, so a delete on someone else's file id
// confirms its existence but nothing else.
//
// The two-step delete is not atomic: a failure between the steps leaves the
// catalog and the object store inconsistent. That window is a known limitation
// and is surfaced as an error rather than masked.
func (s *Service) Delete(ctx context.Context, subject, fileID string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	if fileID == "" {
		return fmt.Errorf("delete file: %w: file id cannot be empty", ErrInvalidInput)
	}

	record, err := s.catalog.Get(ctx, fileID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("delete file %s: %w", fileID, ErrNotFound)
		}
		return fmt.Errorf("delete file %s: %w: %w", fileID, ErrUpstream, err)
	}

	if record.OwnerEmail != subject {
		return fmt.Errorf("delete file %s: %w", fileID, ErrForbidden)
	}

	if err := s.blobs.Delete(ctx, record.StorageKey); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete blob %s: %w: %w", record.StorageKey, ErrUpstream, err)
	}

	if err := s.catalog.Delete(ctx, fileID); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete record %s: %w: %w", fileID, ErrUpstream, err)
	}

	return nil
}

func (s *Service) view(ctx context.Context, record FileRecord) (FileView, error) {
	url, err := s.blobs.PresignGet(ctx, record.StorageKey, s.urlTTL)
	if err != nil {
		// A store ErrNotFound here means the blob vanished under a live
		// catalog record. That is an upstream inconsistency, not a
		// client-facing not-found, so the cause is not rewrapped.
		return FileView{}, fmt.Errorf("presign %s: %w: %v", record.StorageKey, ErrUpstream, err)
	}
	return FileView{
		FileID:    record.FileID,
		FileName:  record.FileName,
		CreatedAt: record.CreatedAt,
		URL:       url,
	}, nil
}
