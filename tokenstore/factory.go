package tokenstore

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// Factory creates token hash stores from URI strings.
type Factory struct {
	log *slog.Logger
}

// NewFactory creates a new factory instance.
func NewFactory(log *slog.Logger) *Factory {
	return &Factory{log: log}
}

// StoreFor creates a token hash store from a location URI.
//
// Supported schemes:
//   - file://<path> - env-style file on the local filesystem
//   - vault://<host:port>/<mount>/<secret-path>[?scheme=http] - Vault KV v2
//   - s3://<bucket>/<key>[?region=..&endpoint=..] - S3 or compatible object store
//
// Returns an error if the URI is invalid or the scheme is unsupported.
func (f *Factory) StoreFor(locationURI string) (Store, error) {
	u, err := url.Parse(locationURI)
	if err != nil {
		return nil, fmt.Errorf("invalid token store URI %q: %w", locationURI, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "file":
		return f.createEnvFileStore(u)
	case "vault":
		return f.createVaultStore(u)
	case "s3":
		return f.createS3Store(u)
	default:
		return nil, fmt.Errorf("unsupported token store scheme: %s", u.Scheme)
	}
}

// createEnvFileStore creates an env-file store.
// URI format: file://.env or file:///absolute/path/.env
func (f *Factory) createEnvFileStore(u *url.URL) (Store, error) {
	f.log.Debug("Creating env file token store", slog.String("uri", u.String()))

	// file://.env parses the filename into the host part, file:///abs/path
	// into the path part.
	path := u.Host + u.Path
	if path == "" {
		return nil, fmt.Errorf("empty path in file URI: %s", u.String())
	}

	return NewEnvFileStore(path, f.log)
}

// createVaultStore creates a Vault KV v2 store.
// URI format: vault://vault.example.com:8200/secret/api-server/token
// The first path segment is the mount, the rest is the secret path. The
// Vault API address defaults to https; pass ?scheme=http for plain HTTP.
func (f *Factory) createVaultStore(u *url.URL) (Store, error) {
	f.log.Debug("Creating Vault token store", slog.String("uri", u.String()))

	if u.Host == "" {
		return nil, fmt.Errorf("missing Vault address in URI: %s", u.String())
	}

	parts := strings.SplitN(strings.Trim(u.Path, "/"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("invalid Vault URI format, expected vault://host:port/mount/secret-path")
	}

	scheme := u.Query().Get("scheme")
	if scheme == "" {
		scheme = "https"
	}
	address := fmt.Sprintf("%s://%s", scheme, u.Host)

	return NewVaultStore(address, parts[0], parts[1], f.log)
}

// createS3Store creates an S3 store.
// URI format: s3://[ACCESS_KEY:SECRET_KEY@]bucket/key?region=us-west-2&endpoint=custom.s3.com
func (f *Factory) createS3Store(u *url.URL) (Store, error) {
	f.log.Debug("Creating S3 token store", slog.String("uri", u.String()))

	bucket := u.Host
	key := strings.TrimPrefix(u.Path, "/")

	query := u.Query()
	region := query.Get("region")
	if region == "" {
		region = "us-east-1"
	}
	endpoint := query.Get("endpoint")

	var accessKey, secretKey string
	if u.User != nil {
		accessKey = u.User.Username()
		secretKey, _ = u.User.Password()
	}

	return NewS3Store(bucket, key, region, endpoint, accessKey, secretKey, f.log)
}
