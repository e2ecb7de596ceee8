// Package http serves the ledger dashboard, its write forms, the printable
// invoice and receipt, and a JSON summary.
package http

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"akunting/internal/backend"
	"akunting/internal/log"
	"akunting/internal/middleware/ratelimit"
	"akunting/internal/middleware/security"
	"akunting/internal/middleware/trace"
	"akunting/internal/services"
	"akunting/internal/view"
	appweb "akunting/web"
)

// Server wraps http.Server with the ledger read model and write service.
type Server struct {
	http.Server

	view      *view.View
	ledger    *services.LedgerService
	templates *template.Template
	checks    map[string]backend.HealthCheck
	logger    *log.Logger
	requests  *log.StructuredLogger

	securityDetector *security.Detector
	rateLimiter      *ratelimit.Limiter
	traceMiddleware  *trace.Middleware

	appMetrics   *appMetrics
	shutdownOnce sync.Once
}

// appMetrics counts ledger activity for /metrics.
type appMetrics struct {
	writes       int64
	writeErrors  int64
	renderErrors int64
	uptime       time.Time
}

// Options tune the server; zero values use defaults.
type Options struct {
	RateLimitPerMinute int
	Logger             *log.Logger
	// Checks are probed by /readyz in addition to the view.
	Checks map[string]backend.HealthCheck
}

// NewServer configures routes, middleware and templates. The view must be
// kept current by the caller (view.Run); handlers also refresh it after
// their own writes.
func NewServer(addr string, v *view.View, ledger *services.LedgerService, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default(log.ComponentHTTP)
	}

	t, err := template.New("").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	staticFS, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}

	s := &Server{
		view:             v,
		ledger:           ledger,
		templates:        t,
		checks:           opts.Checks,
		logger:           logger,
		requests:         log.NewStructuredLogger(logger),
		securityDetector: security.NewDetector(logger.WithComponent(log.ComponentSecurity)),
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(s.securityDetector.ExtractClientIP, logger.WithComponent(log.ComponentTrace))

	mux := http.NewServeMux()

	static := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
	mux.Handle("/static/", security.StaticAssetMiddleware(3600)(static))

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)

	mux.Handle("/", security.NoStore(http.HandlerFunc(s.handleDashboard)))
	mux.Handle("/invoice", security.NoStore(http.HandlerFunc(s.handleInvoice)))
	mux.Handle("/receipt", security.NoStore(http.HandlerFunc(s.handleReceipt)))
	mux.Handle("/api/summary", security.NoStore(http.HandlerFunc(s.handleSummaryAPI)))

	mux.HandleFunc("/classes", s.handleCreateClass)
	mux.HandleFunc("/classes/rename", s.handleRenameClass)
	mux.HandleFunc("/classes/delete", s.handleDeleteClass)
	mux.HandleFunc("/students", s.handleCreateStudent)
	mux.HandleFunc("/students/update", s.handleUpdateStudent)
	mux.HandleFunc("/students/delete", s.handleDeleteStudent)
	mux.HandleFunc("/payments", s.handleCreatePayment)
	mux.HandleFunc("/payments/delete", s.handleDeletePayment)
	mux.HandleFunc("/expenses", s.handleCreateExpense)
	mux.HandleFunc("/expenses/delete", s.handleDeleteExpense)

	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.onRateLimit)(handler)
	handler = s.securityDetector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}
	return s, nil
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Terlalu banyak permintaan. Coba lagi nanti.").Write(w)
}

// Shutdown stops the rate limiter and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// render executes a page template into a buffer first so a template error
// never leaves a half-written page behind.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		atomic.AddInt64(&s.appMetrics.renderErrors, 1)
		s.requests.LogError(r.Context(), "Template execution failed", err, log.OpRender, log.LogFields{"template": name})
		InternalServerError("Gagal menampilkan halaman").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
