// Package tokenstore implements generation, hashing, verification, and
// persistence of the single shared API token that protects the server's
// authenticated routes.
//
// The token model is deliberately minimal: one secret per server instance,
// no expiry, no rotation window, no multi-token support. Regeneration
// replaces the stored hash entirely and requires a server restart to take
// effect, because the hash is loaded once at startup.
//
// # Token Lifecycle
//
//  1. Generate draws 32 bytes from the CSPRNG and encodes them URL-safe.
//  2. Hash produces the lowercase hex SHA-256 digest of the plaintext.
//  3. A Store persists the digest; the plaintext is printed to the operator
//     exactly once and never written to durable storage or a log sink.
//  4. At startup the server loads the digest; an empty result means
//     "authentication not configured", which is reported through the health
//     endpoint rather than treated as a transient failure.
//  5. Verify recomputes the digest of a presented token and compares it in
//     constant time. Verification against an empty stored hash fails with
//     ErrNoTokenConfigured so callers can tell operator misconfiguration
//     apart from a wrong token.
//
// # Store Backends
//
// Stores are specified by URI and created through the Factory:
//
//   - file://.env - env-style KEY=VALUE file, key API_TOKEN_HASH (default)
//   - vault://host:port/mount/secret-path - HashiCorp Vault KV v2
//   - s3://bucket/key?region=us-west-2 - S3 or compatible object storage
//
// The env-file backend preserves unrelated keys in the file and only ever
// rewrites the API_TOKEN_HASH entry.
package tokenstore
