package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"akunting/internal/log"
)

func newTestMiddleware(buf *bytes.Buffer) *Middleware {
	cfg := log.DefaultConfig()
	cfg.Output = buf
	cfg.Component = log.ComponentTrace
	return NewMiddleware(func(*http.Request) string { return "10.0.0.1" }, log.New(cfg))
}

func TestMiddleware_AssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	m := newTestMiddleware(&buf)

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		if got := log.FromContext(r.Context()); got.Component() != log.ComponentTrace {
			t.Errorf("context logger component = %q", got.Component())
		}
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/?date=2024-01-10", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("request id = %q, want req_ prefix", seen)
	}
	if rr.Header().Get(HeaderRequestID) != seen {
		t.Errorf("response header = %q, want %q", rr.Header().Get(HeaderRequestID), seen)
	}
	out := buf.String()
	if !strings.Contains(out, "HTTP request completed") || !strings.Contains(out, "status_code=418") {
		t.Errorf("completion log missing: %s", out)
	}
	if !strings.Contains(out, "client_ip=10.0.0.1") {
		t.Errorf("client ip missing: %s", out)
	}
}

func TestMiddleware_KeepsIncomingRequestID(t *testing.T) {
	var buf bytes.Buffer
	m := newTestMiddleware(&buf)

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	tests := []struct {
		incoming string
		keep     bool
	}{
		{"proxy-abc_123", true},
		{"bad id with spaces", false},
		{strings.Repeat("a", 65), false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderRequestID, tt.incoming)
		h.ServeHTTP(httptest.NewRecorder(), req)
		if (seen == tt.incoming) != tt.keep {
			t.Errorf("incoming %q: got %q, keep=%v", tt.incoming, seen, tt.keep)
		}
	}
}

func TestMiddleware_Metrics(t *testing.T) {
	var buf bytes.Buffer
	m := newTestMiddleware(&buf)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for i := 0; i < 3; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}
	if got := m.GetMetrics().TotalRequests; got != 3 {
		t.Errorf("TotalRequests = %d, want 3", got)
	}
}

func TestResponseWriter_FirstStatusWins(t *testing.T) {
	rr := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rr, statusCode: http.StatusOK}
	_, _ = rw.Write([]byte("ok"))
	rw.WriteHeader(http.StatusInternalServerError)
	if rw.statusCode != http.StatusOK {
		t.Errorf("statusCode = %d, want 200 after body write", rw.statusCode)
	}
}

func TestGetRequestID_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if id := GetRequestID(req.Context()); id != "" {
		t.Errorf("GetRequestID() = %q, want empty", id)
	}
}
