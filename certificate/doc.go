// Package certificate provisions the self-signed TLS material the HTTPS
// server serves with.
//
// A Handler is built from the certificate section of the server
// configuration and knows the key file, certificate file, and validity
// period. EnsureExists is idempotent: it generates a fresh RSA-4096 key and
// self-signed certificate only when either file is missing, so repeated
// startups reuse the existing pair.
//
// Generated certificates carry a fixed development identity (CN=localhost)
// with subject alternative names for localhost, and are only suitable for
// local development and testing. Production deployments should provision
// real certificates and point ssl_keyfile and ssl_certfile at them.
package certificate
