package smartdrive

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// Account is a stored credential record. The password hash never leaves the server.
type Account struct {
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// FileRecord is the catalog entry for a stored blob. OwnerEmail is set at
// creation and never changes.
type FileRecord struct {
	FileID     string    `json:"file_id"`
	OwnerEmail string    `json:"-"`
	StorageKey string    `json:"-"`
	FileName   string    `json:"file_name"`
	CreatedAt  time.Time `json:"created_at"`
}

// FileView is a FileRecord shaped for a client response, with a freshly
// generated time-limited retrieval URL. URLs are never persisted.
type FileView struct {
	FileID    string    `json:"file_id"`
	FileName  string    `json:"file_name"`
	CreatedAt time.Time `json:"created_at"`
	URL       string    `json:"url"`
}

// Session is the result of a successful signup or login.
type Session struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

// Tables holds configurable table names for the two metadata stores.
// This allows multi-tenant deployments to use different table names.
type Tables struct {
	Accounts string `mapstructure:"accounts"`
	Files    string `mapstructure:"files"`
}

var validTableNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9._-]*$`)

// IsValidTableName checks if a table name is valid for both the SQL and
// DynamoDB backends (letter or underscore first, max 255 chars).
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 255
}

// Validate checks that all required table names are set and valid.
func (t Tables) Validate() error {
	if t.Accounts == "" {
		return errors.New("validate tables: accounts table name cannot be empty")
	}
	if t.Files == "" {
		return errors.New("validate tables: files table name cannot be empty")
	}

	for _, name := range []string{t.Accounts, t.Files} {
		if !IsValidTableName(name) {
			return fmt.Errorf("validate tables: invalid table name: %s", name)
		}
	}

	return nil
}
