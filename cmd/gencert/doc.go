// Package main (cmd/gencert) regenerates the self-signed TLS material.
//
// The server bootstraps missing certificates on its own; this tool exists
// for forcing a replacement, for example after the pair expires or the key
// leaks. It reads the certificate section of the configuration file,
// generates a fresh RSA-4096 key and self-signed certificate, and verifies
// the written pair before exiting.
//
// Example usage:
//
//	gencert --config=configuration/config.json
package main
