package tokenstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// EnvFileStore keeps the token hash in a KEY=VALUE env-style file under the
// API_TOKEN_HASH key. Unrelated keys in the file are preserved on save.
// This is the default store and suits single-instance deployments.
type EnvFileStore struct {
	path        string
	log         *slog.Logger
	locationURI string
}

// NewEnvFileStore creates an env-file store at path. Parent directories are
// created if needed; the file itself is created on first save.
func NewEnvFileStore(path string, log *slog.Logger) (*EnvFileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("empty path for env file store")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create env file directory: %w", err)
		}
	}

	return &EnvFileStore{
		path:        path,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", path),
	}, nil
}

// LoadHash reads the stored digest. A missing file or missing key is not an
// error; both mean no token has been configured.
func (s *EnvFileStore) LoadHash(ctx context.Context) (string, error) {
	env, err := godotenv.Read(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read env file %s: %w", s.path, err)
	}
	return env[HashKey], nil
}

// SaveHash writes the digest, overwriting any previous value while keeping
// other keys in the file intact. The file is restricted to owner access.
func (s *EnvFileStore) SaveHash(ctx context.Context, digest string) error {
	env, err := godotenv.Read(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to read env file %s: %w", s.path, err)
		}
		env = map[string]string{}
	}

	env[HashKey] = digest
	if err := godotenv.Write(env, s.path); err != nil {
		return fmt.Errorf("failed to write env file %s: %w", s.path, err)
	}

	if err := os.Chmod(s.path, 0600); err != nil {
		return fmt.Errorf("failed to restrict env file permissions: %w", err)
	}

	s.log.Debug("Stored token hash in env file", slog.String("path", s.path))
	return nil
}

// LocationURI returns the URI that identifies this store.
func (s *EnvFileStore) LocationURI() string {
	return s.locationURI
}
