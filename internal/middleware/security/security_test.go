package security

import (
	"bytes"
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"akunting/internal/log"
)

func quietLogger(w io.Writer) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Output = w
	cfg.Component = log.ComponentSecurity
	return log.New(cfg)
}

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if got := rr.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
	if csp := rr.Header().Get("Content-Security-Policy"); !strings.Contains(csp, "https://unpkg.com") {
		t.Errorf("CSP = %q, want unpkg allowed", csp)
	}
	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must not be sent over plain HTTP")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.TLS = &tls.ConnectionState{}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Errorf("HSTS = %q", got)
	}
}

func TestHeadersMiddleware_SkipsEmptyValues(t *testing.T) {
	cfg := DefaultHeadersConfig()
	cfg.PermissionsPolicy = ""
	h := NewHeadersMiddleware(cfg).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if _, ok := rr.Header()["Permissions-Policy"]; ok {
		t.Error("empty header value should not be sent")
	}
}

func TestStaticAssetAndNoStore(t *testing.T) {
	noop := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	rr := httptest.NewRecorder()
	StaticAssetMiddleware(3600)(noop).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/static/app.css", nil))
	if got := rr.Header().Get("Cache-Control"); got != "public, max-age=3600" {
		t.Errorf("static Cache-Control = %q", got)
	}

	rr = httptest.NewRecorder()
	NoStore(noop).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/invoice", nil))
	if got := rr.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("NoStore Cache-Control = %q", got)
	}
}

func TestDetectSuspiciousRequest(t *testing.T) {
	var buf bytes.Buffer
	d := NewDetector(quietLogger(&buf))

	tests := []struct {
		name   string
		method string
		target string
		agent  string
		want   bool
	}{
		{"dashboard", http.MethodGet, "/?date=2024-01-10", "Mozilla/5.0", false},
		{"invoice", http.MethodGet, "/invoice?student=abc&date=2024-01-10", "Mozilla/5.0", false},
		{"path traversal", http.MethodGet, "/static/../../etc/passwd", "", true},
		{"dotenv", http.MethodGet, "/.env", "", true},
		{"script in query", http.MethodGet, "/?date=javascript:alert(1)", "", true},
		{"scanner agent", http.MethodGet, "/", "sqlmap/1.7", true},
		{"trace method", "TRACE", "/", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			if tt.agent != "" {
				req.Header.Set("User-Agent", tt.agent)
			}
			if got := d.DetectSuspiciousRequest(req); got != tt.want {
				t.Errorf("DetectSuspiciousRequest() = %v, want %v", got, tt.want)
			}
		})
	}

	if got := d.GetMetrics().SuspiciousRequests; got != 5 {
		t.Errorf("SuspiciousRequests = %d, want 5", got)
	}
	if !strings.Contains(buf.String(), "Suspicious request") {
		t.Errorf("expected warning logged, got %q", buf.String())
	}
}

func TestExtractClientIP(t *testing.T) {
	d := NewDetector(quietLogger(io.Discard))

	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		want       string
	}{
		{"direct", "203.0.113.7:5000", "", "", "203.0.113.7"},
		{"untrusted peer ignores xff", "203.0.113.7:5000", "198.51.100.1", "", "203.0.113.7"},
		{"trusted proxy xff", "10.0.0.2:5000", "198.51.100.1, 10.0.0.2", "", "198.51.100.1"},
		{"trusted proxy real ip", "192.168.1.1:5000", "", "198.51.100.9", "198.51.100.9"},
		{"trusted proxy bad xff", "127.0.0.1:5000", "not-an-ip", "", "127.0.0.1"},
		{"no port", "203.0.113.7", "", "", "203.0.113.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			if got := d.ExtractClientIP(req); got != tt.want {
				t.Errorf("ExtractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
	if d.GetMetrics().InvalidIPAttempts != 1 {
		t.Errorf("InvalidIPAttempts = %d, want 1", d.GetMetrics().InvalidIPAttempts)
	}
}

func TestAddTrustedProxy(t *testing.T) {
	d := NewDetector(quietLogger(io.Discard))
	if err := d.AddTrustedProxy("nonsense"); err == nil {
		t.Fatal("expected error for invalid CIDR")
	}
	if err := d.AddTrustedProxy("203.0.113.0/24"); err != nil {
		t.Fatalf("AddTrustedProxy: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:443"
	req.Header.Set("X-Forwarded-For", "198.51.100.1")
	if got := d.ExtractClientIP(req); got != "198.51.100.1" {
		t.Errorf("ExtractClientIP() = %q, want forwarded address", got)
	}
}
