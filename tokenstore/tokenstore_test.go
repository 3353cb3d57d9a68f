package tokenstore

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGenerate_Properties(t *testing.T) {
	token, err := Generate()
	require.NoError(t, err)

	// 32 random bytes in unpadded URL-safe base64.
	assert.Len(t, token, 43)
	assert.Regexp(t, regexp.MustCompile(`^[A-Za-z0-9_-]+$`), token)

	other, err := Generate()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestHash_Properties(t *testing.T) {
	token, err := Generate()
	require.NoError(t, err)

	digest := Hash(token)
	assert.Len(t, digest, 64)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}$`), digest)
	assert.NotEqual(t, token, digest)

	// Deterministic, and distinct inputs yield distinct digests.
	assert.Equal(t, digest, Hash(token))
	assert.NotEqual(t, digest, Hash(token+"x"))
}

func TestVerify_RoundTrip(t *testing.T) {
	token, err := Generate()
	require.NoError(t, err)

	ok, err := Verify(token, Hash(token))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Verify("wrong-token", Hash(token))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerify_EmptyHashIsError(t *testing.T) {
	ok, err := Verify("anything", "")
	require.ErrorIs(t, err, ErrNoTokenConfigured)
	assert.False(t, ok)
}

func TestGenerateAndSave(t *testing.T) {
	store, err := NewEnvFileStore(t.TempDir()+"/.env", testLogger())
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, GenerateAndSave(context.Background(), store, &out, testLogger()))

	// The plaintext goes to out, exactly once, and verifies against the
	// persisted hash.
	line := strings.TrimSpace(out.String())
	require.True(t, strings.HasPrefix(line, "Token: "), "unexpected output %q", line)
	token := strings.TrimPrefix(line, "Token: ")

	digest, err := store.LoadHash(context.Background())
	require.NoError(t, err)
	ok, err := Verify(token, digest)
	require.NoError(t, err)
	assert.True(t, ok)
}
