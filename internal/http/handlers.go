package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"akunting/internal/core"
	"akunting/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).Round(time.Second).String(),
	})
}

// handleReady reports ready once the first snapshot has been loaded and
// every backend dependency answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]string{"templates": "ok", "view": "ok"}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			checks[name] = "failed: " + err.Error()
			status, httpStatus = "not_ready", http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	}
	if !s.view.Ready() {
		checks["view"] = "loading"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	traceMetrics := s.traceMiddleware.GetMetrics()
	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	snap := s.view.Snapshot()

	metric := func(name, help, kind string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}

	metric("http_requests_total", "Total number of HTTP requests", "counter", traceMetrics.TotalRequests)
	metric("http_response_time_microseconds_avg", "Average response time", "gauge", traceMetrics.AverageResponseTime)
	metric("ledger_writes_total", "Successful ledger writes", "counter", atomic.LoadInt64(&s.appMetrics.writes))
	metric("ledger_write_errors_total", "Rejected or failed ledger writes", "counter", atomic.LoadInt64(&s.appMetrics.writeErrors))
	metric("template_errors_total", "Failed page renders", "counter", atomic.LoadInt64(&s.appMetrics.renderErrors))

	fmt.Fprintf(w, "# HELP ledger_records Records in the local view\n# TYPE ledger_records gauge\n")
	fmt.Fprintf(w, "ledger_records{kind=\"classes\"} %d\n", len(snap.Classes))
	fmt.Fprintf(w, "ledger_records{kind=\"students\"} %d\n", len(snap.Students))
	fmt.Fprintf(w, "ledger_records{kind=\"payments\"} %d\n", len(snap.Payments))
	fmt.Fprintf(w, "ledger_records{kind=\"expenses\"} %d\n\n", len(snap.Expenses))

	metric("rate_limit_hits_total", "Total rate limit hits", "counter", rateLimitMetrics.TotalHits)
	metric("active_rate_limit_clients", "Currently tracked rate limit clients", "gauge", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "Total suspicious requests detected", "counter", securityMetrics.SuspiciousRequests)
	metric("uptime_seconds", "Application uptime in seconds", "gauge", int64(time.Since(s.appMetrics.uptime).Seconds()))
}

type summaryResponse struct {
	WeekKey  string        `json:"week_key"`
	Label    string        `json:"label"`
	Start    string        `json:"start"`
	End      string        `json:"end"`
	Expected int64         `json:"expected"`
	Payments int64         `json:"payments"`
	Expenses int64         `json:"expenses"`
	Net      int64         `json:"net"`
	Students []billPayload `json:"students"`
}

type billPayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Class       string `json:"class,omitempty"`
	Active      bool   `json:"active"`
	Due         int64  `json:"due"`
	Paid        int64  `json:"paid"`
	Outstanding int64  `json:"outstanding"`
}

func newSummaryResponse(sum core.WeeklySummary) summaryResponse {
	resp := summaryResponse{
		WeekKey:  sum.Period.Key,
		Label:    sum.Period.Label,
		Start:    sum.Period.StartDate().String(),
		End:      sum.Period.EndDate().String(),
		Expected: int64(sum.Expected),
		Payments: int64(sum.Payments),
		Expenses: int64(sum.Expenses),
		Net:      int64(sum.Net),
		Students: make([]billPayload, 0, len(sum.Bills)),
	}
	for _, b := range sum.Bills {
		resp.Students = append(resp.Students, billPayload{
			ID:          b.Student.ID.String(),
			Name:        b.Student.Name,
			Class:       b.ClassName,
			Active:      b.Student.Active,
			Due:         int64(b.Due),
			Paid:        int64(b.Paid),
			Outstanding: int64(b.Outstanding),
		})
	}
	return resp
}

// handleSummaryAPI returns the week's figures as JSON. Amounts are whole
// Rupiah.
func (s *Server) handleSummaryAPI(w http.ResponseWriter, r *http.Request) {
	if fail := RequireMethod(r, http.MethodGet, http.MethodHead); fail != nil {
		fail.Write(w)
		return
	}
	if !s.view.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "ledger not loaded"})
		return
	}

	period := s.view.Week(r.URL.Query().Get("date"))
	writeJSON(w, http.StatusOK, newSummaryResponse(s.view.Summary(period)))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Default(log.ComponentHTTP).Error("Failed to encode JSON response", log.FieldError, err)
	}
}
