// Package main (cmd/gentoken) generates the API token for a server
// deployment.
//
// The tool draws a fresh random token, stores its SHA-256 hash in the
// configured token store, and prints the plaintext once to standard output.
// The plaintext is never written to the store or to any log sink; if it is
// lost, run the tool again to replace the token. The running server picks
// up a new hash on its next restart.
//
// Example usage:
//
//	gentoken --token-store=file://.env
//	gentoken --token-store=vault://vault.internal:8200/secret/api-server
//	gentoken --token-store=s3://my-bucket/api-server/token-hash?region=eu-west-1
package main
