package certificate

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/api-server-template/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCertConfig(dir string) config.CertificateConfig {
	return config.CertificateConfig{
		Directory:   dir,
		SSLKeyfile:  "key.pem",
		SSLCertfile: "cert.pem",
		DaysValid:   365,
	}
}

func parseCertificate(t *testing.T, certPEM []byte) *x509.Certificate {
	t.Helper()
	block, _ := pem.Decode(certPEM)
	require.NotNil(t, block)
	require.Equal(t, "CERTIFICATE", block.Type)
	cert, err := x509.ParseCertificate(block.Bytes)
	require.NoError(t, err)
	return cert
}

// Fresh bootstrap: no files exist, both get generated with the expected
// PEM block types, identity and key parameters.
func TestEnsureExists_FreshBootstrap(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "certs")
	h := NewHandler(testCertConfig(dir), testLogger())

	require.False(t, h.Exists())
	require.NoError(t, h.EnsureExists())
	require.True(t, h.Exists())

	keyPEM, err := os.ReadFile(h.KeyFile())
	require.NoError(t, err)
	keyBlock, _ := pem.Decode(keyPEM)
	require.NotNil(t, keyBlock)
	assert.Equal(t, "RSA PRIVATE KEY", keyBlock.Type)

	privateKey, err := x509.ParsePKCS1PrivateKey(keyBlock.Bytes)
	require.NoError(t, err)
	assert.Equal(t, 4096, privateKey.N.BitLen())
	assert.Equal(t, 65537, privateKey.E)

	certPEM, err := os.ReadFile(h.CertFile())
	require.NoError(t, err)
	cert := parseCertificate(t, certPEM)

	assert.Equal(t, "localhost", cert.Subject.CommonName)
	assert.Equal(t, cert.Subject.String(), cert.Issuer.String())
	assert.Equal(t, []string{"UK"}, cert.Subject.Country)
	assert.Equal(t, []string{"Development"}, cert.Subject.Organization)
	assert.ElementsMatch(t, []string{"localhost", "127.0.0.1"}, cert.DNSNames)
	require.Len(t, cert.IPAddresses, 1)
	assert.Equal(t, "127.0.0.1", cert.IPAddresses[0].String())

	certKey, ok := cert.PublicKey.(*rsa.PublicKey)
	require.True(t, ok)
	assert.Equal(t, 4096, certKey.N.BitLen())
	assert.Equal(t, 365*24*time.Hour, cert.NotAfter.Sub(cert.NotBefore))

	keyInfo, err := os.Stat(h.KeyFile())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), keyInfo.Mode().Perm())

	require.NoError(t, h.Verify())
}

// Both files present: a second call writes nothing.
func TestEnsureExists_Idempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "certs")
	h := NewHandler(testCertConfig(dir), testLogger())
	require.NoError(t, h.EnsureExists())

	keyBefore, err := os.ReadFile(h.KeyFile())
	require.NoError(t, err)
	certBefore, err := os.ReadFile(h.CertFile())
	require.NoError(t, err)

	require.NoError(t, h.EnsureExists())

	keyAfter, err := os.ReadFile(h.KeyFile())
	require.NoError(t, err)
	certAfter, err := os.ReadFile(h.CertFile())
	require.NoError(t, err)

	assert.Equal(t, keyBefore, keyAfter)
	assert.Equal(t, certBefore, certAfter)
}

// A lone leftover file is never reused: deleting just the certificate
// regenerates the pair, key included.
func TestEnsureExists_RegeneratesLonePair(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "certs")
	h := NewHandler(testCertConfig(dir), testLogger())
	require.NoError(t, h.EnsureExists())

	keyBefore, err := os.ReadFile(h.KeyFile())
	require.NoError(t, err)
	require.NoError(t, os.Remove(h.CertFile()))

	require.NoError(t, h.EnsureExists())
	require.True(t, h.Exists())

	keyAfter, err := os.ReadFile(h.KeyFile())
	require.NoError(t, err)
	assert.NotEqual(t, keyBefore, keyAfter)
	require.NoError(t, h.Verify())
}

func TestGenerate_DirectoryCreationFailure(t *testing.T) {
	// A regular file where the directory should go makes MkdirAll fail for
	// any user, root included.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	h := NewHandler(testCertConfig(filepath.Join(blocker, "certs")), testLogger())
	err := h.Generate()
	require.ErrorIs(t, err, ErrCreateDirectory)
}

func TestVerifyCertificate_Mismatches(t *testing.T) {
	dirA := filepath.Join(t.TempDir(), "a")
	dirB := filepath.Join(t.TempDir(), "b")

	hA := NewHandler(testCertConfig(dirA), testLogger())
	require.NoError(t, hA.Generate())
	hB := NewHandler(testCertConfig(dirB), testLogger())
	require.NoError(t, hB.Generate())

	keyA, err := os.ReadFile(hA.KeyFile())
	require.NoError(t, err)
	certA, err := os.ReadFile(hA.CertFile())
	require.NoError(t, err)
	certB, err := os.ReadFile(hB.CertFile())
	require.NoError(t, err)

	require.NoError(t, VerifyCertificate(keyA, certA, "localhost"))

	err = VerifyCertificate(keyA, certB, "localhost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "doesn't match")

	err = VerifyCertificate(keyA, certA, "example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CommonName")
}
