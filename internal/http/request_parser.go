package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"akunting/internal/core"

	"github.com/google/uuid"
)

// maxBodyBytes bounds form and JSON bodies; ledger forms are a few hundred
// bytes.
const maxBodyBytes = 64 << 10

var (
	errMissingField = errors.New("missing field")
	errInvalidID    = errors.New("invalid id")
	errInvalidBool  = errors.New("invalid boolean")
)

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
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
	if r.Body != nil {
		p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	}
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

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Has reports whether the field was sent at all, even if empty.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	if p.formData != nil {
		_, ok := p.formData[key]
		return ok
	}
	return false
}

// Get returns a trimmed, sanitized string value from the parsed data.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// UUID reads a required record id.
func (p *RequestBodyParser) UUID(key string) (uuid.UUID, error) {
	return parseID(p.Get(key))
}

// ClassRef reads an optional class reference. Empty and "-" mean no class.
func (p *RequestBodyParser) ClassRef(key string) (uuid.NullUUID, error) {
	v := p.Get(key)
	if v == "" || v == "-" {
		return uuid.NullUUID{}, nil
	}
	id, err := parseID(v)
	if err != nil {
		return uuid.NullUUID{}, err
	}
	return uuid.NullUUID{UUID: id, Valid: true}, nil
}

// Amount reads a Rupiah amount. An absent or blank field is zero when
// optional is set.
func (p *RequestBodyParser) Amount(key string, optional bool) (core.Money, error) {
	v := p.Get(key)
	if v == "" && optional {
		return 0, nil
	}
	return core.ParseAmount(v)
}

// Date reads a YYYY-MM-DD date, using fallback when the field is blank.
func (p *RequestBodyParser) Date(key string, fallback core.Date) (core.Date, error) {
	v := p.Get(key)
	if v == "" {
		return fallback, nil
	}
	return core.ParseDate(v)
}

// Bool reads a yes/no field as sent by checkboxes, selects or JSON.
func (p *RequestBodyParser) Bool(key string) (bool, error) {
	switch strings.ToLower(p.Get(key)) {
	case "1", "true", "on", "ya", "yes":
		return true, nil
	case "", "0", "false", "off", "tidak", "no":
		return false, nil
	default:
		return false, fmt.Errorf("%w: %s", errInvalidBool, key)
	}
}

func parseID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, errMissingField
	}
	id, err := uuid.Parse(s)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, errInvalidID
	}
	return id, nil
}

// stringValue converts a decoded JSON value to string.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response builder if the method doesn't match.
func RequireMethod(r *http.Request, methods ...string) *HTMXResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequirePOST is a convenience function for POST-only handlers.
func RequirePOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}

// ParseBodyOrFail reads and parses the request body, returning an error
// response on failure.
func ParseBodyOrFail(r *http.Request) (*RequestBodyParser, *HTMXResponseBuilder) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return nil, BadRequestError("Format permintaan tidak valid")
	}
	return p, nil
}
