package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"consult-client/internal/models"
)

var ErrNoCredentials = errors.New("auth: no stored credentials")

// credentials is the on-disk shape: the opaque bearer token and the user
// profile, persisted together and cleared together.
type credentials struct {
	Token string              `json:"token"`
	User  *models.UserProfile `json:"user,omitempty"`
}

// Store is the file-backed credential store: one JSON file holding the
// bearer token and the serialized profile. Both are written together on
// login and removed together on logout or when the server rejects the
// session. Safe for concurrent use.
type Store struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewStore builds a store persisting to path. The parent directory is
// created on first save.
func NewStore(path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{path: path, logger: logger}
}

// DefaultPath places the credential file under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("auth: resolve config dir: %w", err)
	}
	return filepath.Join(dir, "consult-client", "credentials.json"), nil
}

// Save persists the token/profile pair atomically (write-then-rename).
func (s *Store) Save(token string, user models.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(credentials{Token: token, User: &user})
	if err != nil {
		return fmt.Errorf("auth: encode credentials: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("auth: create store dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("auth: write credentials: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("auth: commit credentials: %w", err)
	}
	s.logger.Debug("credentials saved", zap.String("user", user.Email))
	return nil
}

// Token returns the stored bearer token, or "" when none is stored. It
// never fails on a missing file so it can be polled on every request.
func (s *Store) Token() (string, error) {
	creds, err := s.load()
	if err != nil {
		if errors.Is(err, ErrNoCredentials) {
			return "", nil
		}
		return "", err
	}
	return creds.Token, nil
}

// Profile returns the stored user profile. ErrNoCredentials when logged
// out.
func (s *Store) Profile() (*models.UserProfile, error) {
	creds, err := s.load()
	if err != nil {
		return nil, err
	}
	if creds.User == nil {
		return nil, ErrNoCredentials
	}
	return creds.User, nil
}

// Clear removes token and profile together. Clearing an empty store is a
// no-op. This is the logout path and the 401 hook.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("auth: clear credentials: %w", err)
	}
	s.logger.Debug("credentials cleared")
	return nil
}

func (s *Store) load() (*credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoCredentials
		}
		return nil, fmt.Errorf("auth: read credentials: %w", err)
	}
	var creds credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("auth: decode credentials: %w", err)
	}
	return &creds, nil
}
