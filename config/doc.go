// Package config defines the JSON configuration model for the template
// server: network settings, security header policy, CORS, rate limiting,
// certificate material locations, JSON rendering options, and static asset
// serving.
//
// The model is the single source of truth for settings; no other component
// reads the raw configuration file. Every field has a safe default, so an
// empty document is a valid configuration. Parse or validation failures are
// returned as errors and are treated as fatal by the binaries: a broken
// configuration is never silently defaulted or partially applied.
//
// # Configuration File Format
//
//	{
//	  "server":       {"host": "localhost", "port": 8000},
//	  "security":     {"hsts_max_age": 31536000,
//	                   "content_security_policy": "default-src 'self'"},
//	  "cors":         {"enabled": false, "allow_origins": [], ...},
//	  "rate_limit":   {"enabled": true, "rate_limit": "100/minute",
//	                   "storage_uri": ""},
//	  "certificate":  {"directory": "certs", "ssl_keyfile": "key.pem",
//	                   "ssl_certfile": "cert.pem", "days_valid": 365},
//	  "json_response": {"ensure_ascii": true, "allow_nan": false,
//	                    "indent": 0, "media_type": "application/json"},
//	  "static":       {"directory": "static"}
//	}
//
// Unknown fields are ignored so configurations written for newer versions
// remain loadable.
//
// Deployments add their own acceptance rules through the Validator
// interface, which runs after the structural validation pass.
package config
