// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.
// API endpoints accept either JSON or form-encoded bodies, so handlers read
// fields through RequestBodyParser instead of decoding a fixed struct.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"budget/internal/core"
)

// maxBodyBytes bounds request bodies, imports included.
const maxBodyBytes = 10 << 20

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}

	p.body, p.err = io.ReadAll(r.Body)
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := strings.TrimSpace(string(p.body))
	if trimmed == "" {
		p.formData = url.Values{}
		return nil
	}

	// Try JSON first if content looks like JSON
	if trimmed[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.jsonData = nil
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(trimmed)
	return p.err
}

// Lookup returns a sanitized string value and whether the key was sent at all.
// A JSON null is reported as present with an empty value.
func (p *RequestBodyParser) Lookup(key string) (string, bool) {
	v, ok := p.rawLookup(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(sanitizeInput(v)), true
}

// GetText returns free text exactly as sent, surrounding whitespace and line
// breaks included.
func (p *RequestBodyParser) GetText(key string) string {
	v, _ := p.rawLookup(key)
	return v
}

func (p *RequestBodyParser) rawLookup(key string) (string, bool) {
	if p.jsonData != nil {
		val, ok := p.jsonData[key]
		if !ok {
			return "", false
		}
		return stringValue(val), true
	}
	if p.formData != nil {
		vals, ok := p.formData[key]
		if !ok || len(vals) == 0 {
			return "", false
		}
		return vals[0], true
	}
	return "", false
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	v, _ := p.Lookup(key)
	return v
}

// Has reports whether the key was sent.
func (p *RequestBodyParser) Has(key string) bool {
	_, ok := p.Lookup(key)
	return ok
}

// GetOptional returns a pointer to the value, or nil when the key is absent.
func (p *RequestBodyParser) GetOptional(key string) *string {
	v, ok := p.Lookup(key)
	if !ok {
		return nil
	}
	return &v
}

// GetInt parses an integer value. Fractions are truncated and the result is
// bounded to the int32 range.
func (p *RequestBodyParser) GetInt(key string) (int, error) {
	v, ok := p.Lookup(key)
	if !ok || v == "" {
		return 0, fmt.Errorf("missing %s", key)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) || math.IsNaN(f) {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	// Out-of-range values saturate so callers can still clamp them.
	f = math.Max(math.MinInt32, math.Min(math.MaxInt32, math.Trunc(f)))
	return int(f), nil
}

// GetBool parses a checkbox or JSON boolean. Absent keys are false.
func (p *RequestBodyParser) GetBool(key string) bool {
	switch strings.ToLower(p.Get(key)) {
	case "true", "1", "on", "yes":
		return true
	default:
		return false
	}
}

// GetRaw returns the raw body bytes.
func (p *RequestBodyParser) GetRaw() []byte {
	return p.body
}

// ContentType returns the Content-Type header value.
func (p *RequestBodyParser) ContentType() string {
	return p.contentType
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts an interface{} to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// parseBody reads and parses the request body, answering 400 on failure.
// It returns nil when a response has already been written.
func parseBody(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request body").Write(w)
		return nil
	}
	return p
}

// monthParam reads the {month} route parameter, answering 400 when it is not
// a valid month key.
func monthParam(w http.ResponseWriter, r *http.Request) (core.MonthKey, bool) {
	key, err := core.ParseMonthKey(chi.URLParam(r, "month"))
	if err != nil {
		BadRequestError("Invalid month").Write(w)
		return "", false
	}
	return key, true
}
