package tokenstore

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// TokenBytes is the number of random bytes drawn for a new token before
// encoding.
const TokenBytes = 32

// HashKey is the key under which the token digest is stored in env-file
// backends.
const HashKey = "API_TOKEN_HASH"

// ErrNoTokenConfigured is returned by Verify when no token hash is stored.
// It marks a server misconfiguration rather than a client failure and must
// stay distinguishable from a plain mismatch.
var ErrNoTokenConfigured = errors.New("no stored token hash found for verification")

// Store persists the single token hash. Implementations hold at most one
// digest and overwrite it on save.
type Store interface {
	// LoadHash returns the stored digest, or "" with a nil error when no
	// token has been configured yet.
	LoadHash(ctx context.Context) (string, error)

	// SaveHash writes the digest, replacing any previous value. The
	// backing store is created if it does not exist.
	SaveHash(ctx context.Context, digest string) error

	// LocationURI returns the URI that identifies this store.
	LocationURI() string
}

// Generate produces a cryptographically secure, URL-safe random token.
func Generate() (string, error) {
	buf := make([]byte, TokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Hash returns the lowercase hex SHA-256 digest of token. The digest is
// deliberately unsalted: there is exactly one global secret per server and
// the comparison requires a deterministic digest.
func Hash(token string) string {
	digest := sha256.Sum256([]byte(token))
	return hex.EncodeToString(digest[:])
}

// Verify recomputes the digest of token and compares it to storedHash.
// An empty storedHash yields ErrNoTokenConfigured, never a plain false:
// callers route that condition to different observability channels than a
// wrong token.
func Verify(token, storedHash string) (bool, error) {
	if storedHash == "" {
		return false, ErrNoTokenConfigured
	}
	return subtle.ConstantTimeCompare([]byte(Hash(token)), []byte(storedHash)) == 1, nil
}

// GenerateAndSave generates a fresh token, persists its hash in store, and
// prints the plaintext to out. The plaintext is written only to out so it
// never reaches a log sink; operators see it exactly once.
func GenerateAndSave(ctx context.Context, store Store, out io.Writer, log *slog.Logger) error {
	token, err := Generate()
	if err != nil {
		return err
	}

	if err := store.SaveHash(ctx, Hash(token)); err != nil {
		return fmt.Errorf("failed to save token hash: %w", err)
	}

	log.Info("New API token generated and saved", slog.String("store", store.LocationURI()))
	fmt.Fprintf(out, "Token: %s\n", token)
	return nil
}
