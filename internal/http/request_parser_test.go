package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"akunting/internal/core"

	"github.com/google/uuid"
)

func parserFor(t *testing.T, body, contentType string) *RequestBodyParser {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	p := NewRequestBodyParser(req)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return p
}

func TestRequestBodyParser_JSON(t *testing.T) {
	p := parserFor(t, `{"name": " Ahmad ", "fee": 200000, "active": true}`, "application/json")

	if !p.IsJSON() {
		t.Error("Expected IsJSON() to be true")
	}
	if got := p.Get("name"); got != "Ahmad" {
		t.Errorf("Get('name') = %q, want 'Ahmad'", got)
	}
	if got := p.Get("fee"); got != "200000" {
		t.Errorf("Get('fee') = %q, want '200000'", got)
	}
	if !p.Has("active") || p.Has("mukafaah") {
		t.Error("Has() did not reflect the sent fields")
	}
}

func TestRequestBodyParser_FormData(t *testing.T) {
	p := parserFor(t, "name=Kelas+A&note=&amount=Rp+150.000", "application/x-www-form-urlencoded")

	if p.IsJSON() {
		t.Error("Expected IsJSON() to be false for form data")
	}
	if got := p.Get("name"); got != "Kelas A" {
		t.Errorf("Get('name') = %q, want 'Kelas A'", got)
	}
	if !p.Has("note") {
		t.Error("Has('note') should be true for an empty field")
	}
	amount, err := p.Amount("amount", false)
	if err != nil || amount != 150000 {
		t.Errorf("Amount() = %d, %v; want 150000", amount, err)
	}
}

func TestRequestBodyParser_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"name":`))
	if err := NewRequestBodyParser(req).Parse(); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	p := parserFor(t, "", "")
	if val := p.Get("nonexistent"); val != "" {
		t.Errorf("Get('nonexistent') = %q, want empty string", val)
	}
}

func TestRequestBodyParser_TypedFields(t *testing.T) {
	id := uuid.New()
	fallback := core.NewDate(2024, 1, 10)

	tests := []struct {
		name  string
		body  string
		check func(t *testing.T, p *RequestBodyParser)
	}{
		{"uuid", "id=" + id.String(), func(t *testing.T, p *RequestBodyParser) {
			got, err := p.UUID("id")
			if err != nil || got != id {
				t.Errorf("UUID() = %v, %v", got, err)
			}
		}},
		{"missing uuid", "", func(t *testing.T, p *RequestBodyParser) {
			if _, err := p.UUID("id"); !errors.Is(err, errMissingField) {
				t.Errorf("UUID() error = %v, want errMissingField", err)
			}
		}},
		{"bad uuid", "id=abc", func(t *testing.T, p *RequestBodyParser) {
			if _, err := p.UUID("id"); !errors.Is(err, errInvalidID) {
				t.Errorf("UUID() error = %v, want errInvalidID", err)
			}
		}},
		{"no class", "class_id=-", func(t *testing.T, p *RequestBodyParser) {
			got, err := p.ClassRef("class_id")
			if err != nil || got.Valid {
				t.Errorf("ClassRef() = %+v, %v", got, err)
			}
		}},
		{"class", "class_id=" + id.String(), func(t *testing.T, p *RequestBodyParser) {
			got, err := p.ClassRef("class_id")
			if err != nil || !got.Valid || got.UUID != id {
				t.Errorf("ClassRef() = %+v, %v", got, err)
			}
		}},
		{"optional amount", "fee=", func(t *testing.T, p *RequestBodyParser) {
			got, err := p.Amount("fee", true)
			if err != nil || got != 0 {
				t.Errorf("Amount() = %d, %v", got, err)
			}
		}},
		{"required amount", "amount=", func(t *testing.T, p *RequestBodyParser) {
			if _, err := p.Amount("amount", false); !errors.Is(err, core.ErrInvalidAmount) {
				t.Errorf("Amount() error = %v", err)
			}
		}},
		{"date fallback", "date=", func(t *testing.T, p *RequestBodyParser) {
			got, err := p.Date("date", fallback)
			if err != nil || got != fallback {
				t.Errorf("Date() = %v, %v", got, err)
			}
		}},
		{"bad date", "date=10/01/2024", func(t *testing.T, p *RequestBodyParser) {
			if _, err := p.Date("date", fallback); !errors.Is(err, core.ErrInvalidDate) {
				t.Errorf("Date() error = %v", err)
			}
		}},
		{"bool", "a=on&b=0&c=maybe", func(t *testing.T, p *RequestBodyParser) {
			if v, err := p.Bool("a"); err != nil || !v {
				t.Errorf("Bool(a) = %v, %v", v, err)
			}
			if v, err := p.Bool("b"); err != nil || v {
				t.Errorf("Bool(b) = %v, %v", v, err)
			}
			if _, err := p.Bool("c"); !errors.Is(err, errInvalidBool) {
				t.Errorf("Bool(c) error = %v", err)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, parserFor(t, tt.body, "application/x-www-form-urlencoded"))
		})
	}
}

func TestRequireMethod(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		allowed []string
		wantErr bool
	}{
		{"POST allowed", http.MethodPost, []string{http.MethodPost}, false},
		{"GET allowed with multiple", http.MethodGet, []string{http.MethodGet, http.MethodHead}, false},
		{"GET not allowed", http.MethodGet, []string{http.MethodPost}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/test", nil)
			result := RequireMethod(req, tt.allowed...)

			if tt.wantErr && result == nil {
				t.Error("Expected error response but got nil")
			}
			if !tt.wantErr && result != nil {
				t.Error("Expected nil but got error response")
			}
		})
	}
}

func TestRequirePOST(t *testing.T) {
	postReq := httptest.NewRequest(http.MethodPost, "/test", nil)
	if result := RequirePOST(postReq); result != nil {
		t.Error("RequirePOST should allow POST requests")
	}

	getReq := httptest.NewRequest(http.MethodGet, "/test", nil)
	if result := RequirePOST(getReq); result == nil {
		t.Error("RequirePOST should reject GET requests")
	}
}

func TestParseBodyOrFail(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader("field=value"))
	p, fail := ParseBodyOrFail(req)
	if fail != nil {
		t.Fatal("Expected nil for valid form, got error response")
	}
	if p.Get("field") != "value" {
		t.Error("Form was not parsed correctly")
	}

	req = httptest.NewRequest(http.MethodPost, "/test", strings.NewReader("a=%zz"))
	if _, fail := ParseBodyOrFail(req); fail == nil {
		t.Error("Expected error response for malformed form")
	}
}
