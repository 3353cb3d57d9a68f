package tokenstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hashicorp/vault/api"
)

// vaultHashField is the field name holding the digest inside the secret.
const vaultHashField = "api_token_hash"

// VaultStore keeps the token hash in a HashiCorp Vault KV v2 secret. The
// client authenticates with the standard Vault environment (VAULT_TOKEN and
// friends), which keeps Vault credentials out of the configuration file.
type VaultStore struct {
	client      *api.Client
	mountPath   string
	secretPath  string
	log         *slog.Logger
	locationURI string
}

// NewVaultStore creates a Vault-backed store.
//
// Parameters:
//   - address: Vault server address (e.g. https://vault.example.com:8200)
//   - mountPath: KV v2 mount path (e.g. "secret")
//   - secretPath: path of the secret within the mount (e.g. "api-server/token")
//   - log: structured logger for operational insights
func NewVaultStore(address, mountPath, secretPath string, log *slog.Logger) (*VaultStore, error) {
	config := api.DefaultConfig()
	config.Address = address

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}

	mountPath = strings.Trim(mountPath, "/")
	secretPath = strings.Trim(secretPath, "/")

	return &VaultStore{
		client:      client,
		mountPath:   mountPath,
		secretPath:  secretPath,
		log:         log,
		locationURI: fmt.Sprintf("vault://%s/%s/%s", client.Address(), mountPath, secretPath),
	}, nil
}

// dataPath returns the KV v2 data path for the secret.
func (s *VaultStore) dataPath() string {
	return fmt.Sprintf("%s/data/%s", s.mountPath, s.secretPath)
}

// LoadHash reads the stored digest. A missing secret or missing field means
// no token has been configured and is not an error.
func (s *VaultStore) LoadHash(ctx context.Context) (string, error) {
	secret, err := s.client.Logical().ReadWithContext(ctx, s.dataPath())
	if err != nil {
		s.log.Error("Failed to read token hash from Vault",
			slog.String("path", s.dataPath()),
			"err", err)
		return "", fmt.Errorf("failed to read from Vault: %w", err)
	}

	if secret == nil || secret.Data == nil {
		return "", nil
	}

	// KV v2 wraps the fields in a "data" map.
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("invalid data format in Vault response")
	}

	digest, ok := data[vaultHashField].(string)
	if !ok {
		return "", nil
	}

	s.log.Debug("Loaded token hash from Vault", slog.String("path", s.dataPath()))
	return digest, nil
}

// SaveHash writes the digest, replacing any previous secret version.
func (s *VaultStore) SaveHash(ctx context.Context, digest string) error {
	secretData := map[string]interface{}{
		"data": map[string]interface{}{
			vaultHashField: digest,
		},
	}

	if _, err := s.client.Logical().WriteWithContext(ctx, s.dataPath(), secretData); err != nil {
		s.log.Error("Failed to write token hash to Vault",
			slog.String("path", s.dataPath()),
			"err", err)
		return fmt.Errorf("failed to write to Vault: %w", err)
	}

	s.log.Debug("Stored token hash in Vault", slog.String("path", s.dataPath()))
	return nil
}

// LocationURI returns the URI that identifies this store.
func (s *VaultStore) LocationURI() string {
	return s.locationURI
}
