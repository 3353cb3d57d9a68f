package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/ruteri/api-server-template/config"
)

// ServerHealthStatus is the health state reported by the health endpoint.
// Degraded exists for forward compatibility; the built-in health check only
// produces healthy and unhealthy.
type ServerHealthStatus string

const (
	StatusHealthy   ServerHealthStatus = "healthy"
	StatusDegraded  ServerHealthStatus = "degraded"
	StatusUnhealthy ServerHealthStatus = "unhealthy"
)

// BaseResponse is the envelope shared by the server's JSON endpoints.
type BaseResponse struct {
	// Code mirrors the HTTP status code in the body.
	Code int `json:"code"`

	// Message is a human-readable description of the result.
	Message string `json:"message"`

	// Timestamp is the response time in RFC 3339 UTC form.
	Timestamp string `json:"timestamp"`
}

// HealthResponse is the body of the health endpoint.
type HealthResponse struct {
	BaseResponse
	Status ServerHealthStatus `json:"status"`
}

// CurrentTimestamp returns the current time formatted for response bodies.
func CurrentTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// JSONWriter renders every JSON response body according to the configured
// rendering policy: indentation, ASCII escaping and the Content-Type value.
// One writer is shared by all handlers so the policy is applied uniformly.
type JSONWriter struct {
	ensureASCII bool
	indent      string
	mediaType   string
}

// NewJSONWriter builds a writer from the json_response configuration
// section.
func NewJSONWriter(cfg config.JSONResponseConfig) *JSONWriter {
	return &JSONWriter{
		ensureASCII: cfg.EnsureASCII,
		indent:      strings.Repeat(" ", cfg.Indent),
		mediaType:   cfg.MediaType,
	}
}

// Write marshals v under the rendering policy and writes it with the given
// status code.
func (jw *JSONWriter) Write(w http.ResponseWriter, status int, v any) {
	body, err := jw.marshal(v)
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", jw.mediaType)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// WriteDetail writes the single-field error body used by authentication and
// rate-limit rejections.
func (jw *JSONWriter) WriteDetail(w http.ResponseWriter, status int, detail string) {
	jw.Write(w, status, map[string]string{"detail": detail})
}

func (jw *JSONWriter) marshal(v any) ([]byte, error) {
	var (
		body []byte
		err  error
	)
	if jw.indent != "" {
		body, err = json.MarshalIndent(v, "", jw.indent)
	} else {
		body, err = json.Marshal(v)
	}
	if err != nil {
		return nil, err
	}

	if jw.ensureASCII {
		body = escapeNonASCII(body)
	}
	return body, nil
}

// escapeNonASCII rewrites all non-ASCII runes as \uXXXX escapes. Marshaled
// JSON carries non-ASCII bytes only inside string literals, so escaping them
// in place keeps the document valid. Runes outside the BMP become surrogate
// pairs.
func escapeNonASCII(body []byte) []byte {
	ascii := true
	for _, b := range body {
		if b >= utf8.RuneSelf {
			ascii = false
			break
		}
	}
	if ascii {
		return body
	}

	var buf bytes.Buffer
	buf.Grow(len(body))
	for _, r := range string(body) {
		switch {
		case r < utf8.RuneSelf:
			buf.WriteByte(byte(r))
		case r > 0xFFFF:
			r1, r2 := utf16.EncodeRune(r)
			fmt.Fprintf(&buf, `\u%04x\u%04x`, r1, r2)
		default:
			fmt.Fprintf(&buf, `\u%04x`, r)
		}
	}
	return buf.Bytes()
}
