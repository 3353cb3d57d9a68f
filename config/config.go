package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ServerConfig holds the network settings for the HTTPS listener.
type ServerConfig struct {
	// Host is the hostname or IP address the server binds to.
	Host string `json:"host"`

	// Port is the TCP port the server binds to. Must be in [1, 65535].
	Port int `json:"port"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// URL returns the external HTTPS URL of the server.
func (s ServerConfig) URL() string {
	return fmt.Sprintf("https://%s", s.Addr())
}

// SecurityConfig holds the security response header policy.
type SecurityConfig struct {
	// HSTSMaxAge is the max-age in seconds for the Strict-Transport-Security
	// header. Defaults to one year.
	HSTSMaxAge int `json:"hsts_max_age"`

	// ContentSecurityPolicy is the Content-Security-Policy header value.
	ContentSecurityPolicy string `json:"content_security_policy"`
}

// CORSConfig holds the cross-origin resource sharing policy. When Enabled is
// false no CORS middleware is mounted at all.
type CORSConfig struct {
	Enabled          bool     `json:"enabled"`
	AllowOrigins     []string `json:"allow_origins"`
	AllowCredentials bool     `json:"allow_credentials"`
	AllowMethods     []string `json:"allow_methods"`
	AllowHeaders     []string `json:"allow_headers"`
	ExposeHeaders    []string `json:"expose_headers"`

	// MaxAge is how long in seconds a preflight response may be cached.
	MaxAge int `json:"max_age"`
}

// RateLimitConfig holds the request rate limiting policy.
type RateLimitConfig struct {
	// Enabled mounts the rate limiting middleware when true.
	Enabled bool `json:"enabled"`

	// RateLimit is the limit expression in "<count>/<period>" form, for
	// example "100/minute". Periods: second, minute, hour, day.
	RateLimit string `json:"rate_limit"`

	// StorageURI selects the rate counter storage. Empty means in-memory.
	StorageURI string `json:"storage_uri"`
}

// CertificateConfig holds the locations and validity of the TLS material.
type CertificateConfig struct {
	// Directory is where the key and certificate files are stored.
	Directory string `json:"directory"`

	// SSLKeyfile is the private key filename inside Directory.
	SSLKeyfile string `json:"ssl_keyfile"`

	// SSLCertfile is the certificate filename inside Directory.
	SSLCertfile string `json:"ssl_certfile"`

	// DaysValid is the validity window of a generated certificate in days.
	// Must be >= 1.
	DaysValid int `json:"days_valid"`
}

// KeyPath returns the full path to the private key file.
func (c CertificateConfig) KeyPath() string {
	return filepath.Join(c.Directory, c.SSLKeyfile)
}

// CertPath returns the full path to the certificate file.
func (c CertificateConfig) CertPath() string {
	return filepath.Join(c.Directory, c.SSLCertfile)
}

// JSONResponseConfig holds the JSON rendering policy applied to every
// response body produced by the server.
type JSONResponseConfig struct {
	// EnsureASCII escapes non-ASCII runes as \uXXXX sequences when true.
	EnsureASCII bool `json:"ensure_ascii"`

	// AllowNaN is carried for schema compatibility. The encoder rejects
	// NaN and infinities regardless of this setting.
	AllowNaN bool `json:"allow_nan"`

	// Indent is the number of spaces used to indent response bodies.
	// Zero produces compact output.
	Indent int `json:"indent"`

	// MediaType is the Content-Type value set on JSON responses.
	MediaType string `json:"media_type"`
}

// StaticConfig holds the static asset settings. Static serving is skipped
// entirely when the directory does not exist.
type StaticConfig struct {
	// Directory is the filesystem path served at the site root. A 404.html
	// file inside it, when present, is served for unmatched paths.
	Directory string `json:"directory"`
}

// Config is the validated settings tree consulted by every component. It is
// loaded once at process start and treated as immutable afterwards; the only
// sanctioned mutation is persisting a command-line port override back to disk
// before the server starts.
type Config struct {
	Server       ServerConfig       `json:"server"`
	Security     SecurityConfig     `json:"security"`
	CORS         CORSConfig         `json:"cors"`
	RateLimit    RateLimitConfig    `json:"rate_limit"`
	Certificate  CertificateConfig  `json:"certificate"`
	JSONResponse JSONResponseConfig `json:"json_response"`
	Static       StaticConfig       `json:"static"`
}

// Default returns a configuration with every field set to its documented
// safe default.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8000,
		},
		Security: SecurityConfig{
			HSTSMaxAge:            31536000,
			ContentSecurityPolicy: "default-src 'self'",
		},
		CORS: CORSConfig{
			Enabled:          false,
			AllowOrigins:     []string{},
			AllowCredentials: false,
			AllowMethods:     []string{"GET"},
			AllowHeaders:     []string{},
			ExposeHeaders:    []string{},
			MaxAge:           600,
		},
		RateLimit: RateLimitConfig{
			Enabled:    true,
			RateLimit:  "100/minute",
			StorageURI: "",
		},
		Certificate: CertificateConfig{
			Directory:   "certs",
			SSLKeyfile:  "key.pem",
			SSLCertfile: "cert.pem",
			DaysValid:   365,
		},
		JSONResponse: JSONResponseConfig{
			EnsureASCII: true,
			AllowNaN:    false,
			Indent:      0,
			MediaType:   "application/json",
		},
		Static: StaticConfig{
			Directory: "static",
		},
	}
}

// Load reads and validates the JSON configuration file at path. Fields
// absent from the file keep their defaults; unknown fields are ignored.
// Callers treat any returned error as fatal.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read configuration file %s: %w", path, err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}

	return cfg, nil
}

// Validate enforces field-level constraints. It checks structure only;
// deployment-specific rules belong in a Validator.
func (c *Config) Validate() error {
	if c.Server.Host == "" {
		return fmt.Errorf("server.host must not be empty")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port)
	}
	if c.Security.HSTSMaxAge < 0 {
		return fmt.Errorf("security.hsts_max_age must be >= 0, got %d", c.Security.HSTSMaxAge)
	}
	if c.CORS.MaxAge < 0 {
		return fmt.Errorf("cors.max_age must be >= 0, got %d", c.CORS.MaxAge)
	}
	if _, _, err := ParseRate(c.RateLimit.RateLimit); err != nil {
		return fmt.Errorf("rate_limit.rate_limit: %w", err)
	}
	if c.Certificate.Directory == "" {
		return fmt.Errorf("certificate.directory must not be empty")
	}
	if c.Certificate.SSLKeyfile == "" || c.Certificate.SSLCertfile == "" {
		return fmt.Errorf("certificate.ssl_keyfile and certificate.ssl_certfile must not be empty")
	}
	if c.Certificate.DaysValid < 1 {
		return fmt.Errorf("certificate.days_valid must be >= 1, got %d", c.Certificate.DaysValid)
	}
	if c.JSONResponse.Indent < 0 {
		return fmt.Errorf("json_response.indent must be >= 0, got %d", c.JSONResponse.Indent)
	}
	if c.JSONResponse.MediaType == "" {
		return fmt.Errorf("json_response.media_type must not be empty")
	}
	return nil
}

// SaveToFile writes the configuration back to disk as indented JSON.
func (c *Config) SaveToFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write configuration file %s: %w", path, err)
	}
	return nil
}

// ParseRate parses a limit expression of the form "<count>/<period>" where
// period is one of second, minute, hour or day (plural accepted). It returns
// the request count and the window the count applies to.
func ParseRate(expr string) (int, time.Duration, error) {
	parts := strings.SplitN(expr, "/", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid rate expression %q, expected <count>/<period>", expr)
	}

	count, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || count < 1 {
		return 0, 0, fmt.Errorf("invalid count in rate expression %q", expr)
	}

	period := strings.TrimSpace(strings.ToLower(parts[1]))
	period = strings.TrimSuffix(period, "s")
	var window time.Duration
	switch period {
	case "second":
		window = time.Second
	case "minute":
		window = time.Minute
	case "hour":
		window = time.Hour
	case "day":
		window = 24 * time.Hour
	default:
		return 0, 0, fmt.Errorf("invalid period in rate expression %q", expr)
	}

	return count, window, nil
}

// Validator is the deployment-supplied configuration check run after the
// structural Validate pass. Implementations reject configurations that are
// well-formed but unacceptable for a particular deployment.
type Validator interface {
	ValidateConfig(*Config) error
}

// ValidatorFunc adapts a plain function to the Validator interface.
type ValidatorFunc func(*Config) error

// ValidateConfig calls f(cfg).
func (f ValidatorFunc) ValidateConfig(cfg *Config) error {
	return f(cfg)
}
