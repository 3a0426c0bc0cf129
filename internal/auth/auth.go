package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

var (
	// ErrNotLoggedIn is returned when no credentials file exists.
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrEmptyToken is returned when saving credentials without a token.
	ErrEmptyToken = errors.New("empty access token")
)

// Credentials is the bearer credential issued by the backend's login
// endpoint, persisted between invocations.
type Credentials struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	Username    string    `json:"username"`
	SavedAt     time.Time `json:"saved_at"`
}

// Store persists Credentials to a single JSON file with an exclusive file
// lock and atomic replace. It satisfies the API client's TokenSource.
type Store struct {
	path     string
	lockPath string
}

// NewStore creates a store for the given credentials file path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("credentials path is required")
	}
	return &Store{
		path:     path,
		lockPath: path + ".lock",
	}, nil
}

// Path returns the credentials file location.
func (s *Store) Path() string {
	return s.path
}

// Save writes credentials, stamping SavedAt. The write goes to a temp file
// in the same directory followed by a rename, so a crash never leaves a
// half-written credentials file.
func (s *Store) Save(creds Credentials) error {
	if creds.AccessToken == "" {
		return ErrEmptyToken
	}
	if creds.TokenType == "" {
		creds.TokenType = "bearer"
	}
	creds.SavedAt = time.Now().UTC()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("creating credentials directory: %w", err)
	}

	lock := flock.New(s.lockPath)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("locking credentials file: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing credentials file: %w", err)
	}
	return nil
}

// Load reads the saved credentials. Returns ErrNotLoggedIn when the file
// does not exist.
func (s *Store) Load() (*Credentials, error) {
	lock := flock.New(s.lockPath)
	if err := lock.RLock(); err != nil {
		return nil, fmt.Errorf("locking credentials file: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotLoggedIn
		}
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("decoding credentials: %w", err)
	}
	if creds.AccessToken == "" {
		return nil, ErrNotLoggedIn
	}
	return &creds, nil
}

// Clear removes the credentials file. Idempotent: clearing when logged out
// is not an error.
func (s *Store) Clear() error {
	lock := flock.New(s.lockPath)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("locking credentials file: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing credentials: %w", err)
	}
	return nil
}

// Token returns the saved bearer token, or "" when not logged in so that
// unauthenticated requests (login, health) proceed without a header.
func (s *Store) Token() (string, error) {
	creds, err := s.Load()
	if err != nil {
		if errors.Is(err, ErrNotLoggedIn) {
			return "", nil
		}
		return "", err
	}
	return creds.AccessToken, nil
}
