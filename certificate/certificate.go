package certificate

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net"
	"os"
	"time"

	"github.com/ruteri/api-server-template/config"
)

// Key parameters for generated certificates. RSA-4096 keeps the material
// acceptable to strict development tooling; generation runs only at startup
// or from the gencert tool, never on a request path.
const (
	rsaKeySize = 4096
	serialBits = 128
)

// commonName is the subject CN of generated certificates and the name
// Verify checks for.
const commonName = "localhost"

// ErrCreateDirectory marks a failure to create the certificate directory.
// A server cannot run without a writable certificate directory, so callers
// treat this as fatal.
var ErrCreateDirectory = errors.New("failed to create certificate directory")

// Handler provisions and verifies the self-signed TLS material configured
// for the server.
type Handler struct {
	certDir   string
	keyFile   string
	certFile  string
	daysValid int
	log       *slog.Logger
}

// NewHandler creates a certificate handler from the certificate section of
// the server configuration.
func NewHandler(cfg config.CertificateConfig, log *slog.Logger) *Handler {
	return &Handler{
		certDir:   cfg.Directory,
		keyFile:   cfg.KeyPath(),
		certFile:  cfg.CertPath(),
		daysValid: cfg.DaysValid,
		log:       log,
	}
}

// KeyFile returns the path of the private key file.
func (h *Handler) KeyFile() string { return h.keyFile }

// CertFile returns the path of the certificate file.
func (h *Handler) CertFile() string { return h.certFile }

// Exists reports whether both the key and the certificate file are present.
func (h *Handler) Exists() bool {
	return fileExists(h.keyFile) && fileExists(h.certFile)
}

// EnsureExists generates the key and certificate unless both files already
// exist. A lone leftover file is never reused: if either file is missing,
// both are regenerated so the pair always matches.
func (h *Handler) EnsureExists() error {
	if h.Exists() {
		h.log.Debug("Certificate material already present",
			slog.String("keyFile", h.keyFile),
			slog.String("certFile", h.certFile))
		return nil
	}

	h.log.Warn("SSL certificate or key file not found, generating self-signed certificate")
	return h.Generate()
}

// Generate creates a fresh RSA-4096 private key and a self-signed
// certificate valid for the configured number of days, and writes both as
// PEM files. Directory creation failure, key write failure, and certificate
// write failure are reported as distinct errors so operators can tell them
// apart.
func (h *Handler) Generate() error {
	if err := os.MkdirAll(h.certDir, 0755); err != nil {
		h.log.Error("Failed to create certificate directory",
			slog.String("directory", h.certDir),
			"err", err)
		return fmt.Errorf("%w: %v", ErrCreateDirectory, err)
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, rsaKeySize)
	if err != nil {
		return fmt.Errorf("failed to generate RSA key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), serialBits))
	if err != nil {
		return fmt.Errorf("failed to generate serial number: %w", err)
	}

	now := time.Now().UTC()
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject:      certificateSubject(),
		NotBefore:    now,
		NotAfter:     now.AddDate(0, 0, h.daysValid),
		DNSNames:     []string{"localhost", "127.0.0.1"},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
	}

	// Self-signed: the template acts as its own parent, so issuer equals
	// subject.
	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &privateKey.PublicKey, privateKey)
	if err != nil {
		return fmt.Errorf("failed to create certificate: %w", err)
	}

	keyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	})
	if err := os.WriteFile(h.keyFile, keyPEM, 0600); err != nil {
		h.log.Error("Failed to write private key file",
			slog.String("path", h.keyFile),
			"err", err)
		return fmt.Errorf("failed to write key file %s: %w", h.keyFile, err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "CERTIFICATE",
		Bytes: certDER,
	})
	if err := os.WriteFile(h.certFile, certPEM, 0644); err != nil {
		h.log.Error("Failed to write certificate file",
			slog.String("path", h.certFile),
			"err", err)
		return fmt.Errorf("failed to write certificate file %s: %w", h.certFile, err)
	}

	h.log.Info("Certificate generated successfully",
		slog.String("directory", h.certDir),
		slog.Int("daysValid", h.daysValid))

	return nil
}

// Verify reads the generated pair back and validates that the certificate
// matches the private key and carries the expected common name.
func (h *Handler) Verify() error {
	keyPEM, err := os.ReadFile(h.keyFile)
	if err != nil {
		return fmt.Errorf("failed to read key file: %w", err)
	}
	certPEM, err := os.ReadFile(h.certFile)
	if err != nil {
		return fmt.Errorf("failed to read certificate file: %w", err)
	}
	return VerifyCertificate(keyPEM, certPEM, commonName)
}

// VerifyCertificate validates that a certificate matches a given private key
// and has the expected common name. It performs the following checks:
//   - Both PEM blocks can be decoded and parsed
//   - The common name matches the expected value
//   - The public key in the certificate corresponds to the private key
func VerifyCertificate(keyPEM, certPEM []byte, expectedCN string) error {
	keyBlock, _ := pem.Decode(keyPEM)
	if keyBlock == nil || keyBlock.Type != "RSA PRIVATE KEY" {
		return errors.New("failed to decode private key PEM block")
	}

	privateKey, err := x509.ParsePKCS1PrivateKey(keyBlock.Bytes)
	if err != nil {
		return fmt.Errorf("failed to parse private key: %w", err)
	}

	certBlock, _ := pem.Decode(certPEM)
	if certBlock == nil || certBlock.Type != "CERTIFICATE" {
		return errors.New("failed to decode certificate PEM block")
	}

	cert, err := x509.ParseCertificate(certBlock.Bytes)
	if err != nil {
		return fmt.Errorf("failed to parse certificate: %w", err)
	}

	if cert.Subject.CommonName != expectedCN {
		return fmt.Errorf("CommonName is %s, expected %s", cert.Subject.CommonName, expectedCN)
	}

	certKey, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return errors.New("certificate does not carry an RSA public key")
	}

	if certKey.N.Cmp(privateKey.N) != 0 || certKey.E != privateKey.E {
		return errors.New("private key doesn't match certificate")
	}

	return nil
}

// certificateSubject returns the fixed development-only identity used as
// both subject and issuer of generated certificates.
func certificateSubject() pkix.Name {
	return pkix.Name{
		Country:      []string{"UK"},
		Province:     []string{"Local"},
		Locality:     []string{"Local"},
		Organization: []string{"Development"},
		CommonName:   commonName,
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
