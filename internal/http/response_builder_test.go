package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"akunting/internal/feed"
)

func TestHTMXResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Status(http.StatusOK).
		BodyString("test").
		Write(w)

	if w.Code != http.StatusOK {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Body.String() != "test" {
		t.Errorf("Body = %q, want %q", w.Body.String(), "test")
	}
	if w.Header().Get("HX-Trigger") != "" {
		t.Error("HX-Trigger should not be set without triggers")
	}
}

func TestHTMXResponseBuilder_Triggers(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		TriggerLedgerChanged(feed.KindPayments, feed.OpInsert, "2024-01-08_2024-01-14").
		TriggerFormReset().
		TriggerSuccessNotification("Pembayaran tersimpan").
		Write(w)

	trigger := w.Header().Get("HX-Trigger")
	if trigger == "" {
		t.Fatal("HX-Trigger header not set")
	}

	expectedParts := []string{
		`"ledger:changed"`,
		`"kind":"payments"`,
		`"op":"insert"`,
		`"week":"2024-01-08_2024-01-14"`,
		`"form:reset"`,
		`"show-notification"`,
		`"type":"success"`,
	}
	for _, part := range expectedParts {
		if !strings.Contains(trigger, part) {
			t.Errorf("HX-Trigger missing %q: %s", part, trigger)
		}
	}
}

func TestSuccessResponse(t *testing.T) {
	w := httptest.NewRecorder()

	SuccessResponse(feed.KindClasses, feed.OpDelete, "2024-01-08_2024-01-14", "Kelas <A> dihapus").Write(w)

	if w.Code != http.StatusOK {
		t.Errorf("Status code = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Kelas &lt;A&gt; dihapus") {
		t.Errorf("Body not escaped: %q", w.Body.String())
	}
	if got := w.Header().Get("Content-Type"); got != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
	if !strings.Contains(w.Header().Get("HX-Trigger"), `"ledger:changed"`) {
		t.Errorf("missing ledger:changed trigger: %s", w.Header().Get("HX-Trigger"))
	}
}

func TestHTMXResponseBuilder_CustomHeader(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Header("X-Custom", "value").
		Status(http.StatusCreated).
		Write(w)

	if w.Header().Get("X-Custom") != "value" {
		t.Errorf("Custom header not set")
	}
	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		builder    *HTMXResponseBuilder
		wantStatus int
		wantBody   string
	}{
		{
			name:       "bad request",
			builder:    BadRequestError("Permintaan tidak valid"),
			wantStatus: http.StatusBadRequest,
			wantBody:   `<div class="error">Permintaan tidak valid</div>`,
		},
		{
			name:       "unprocessable entity",
			builder:    UnprocessableEntityError("Jumlah tidak valid"),
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   `<div class="error">Jumlah tidak valid</div>`,
		},
		{
			name:       "internal server error",
			builder:    InternalServerError("Gagal menyimpan data"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `<div class="error">Gagal menyimpan data</div>`,
		},
		{
			name:       "not found",
			builder:    NotFoundError("Data tidak ditemukan"),
			wantStatus: http.StatusNotFound,
			wantBody:   `<div class="error">Data tidak ditemukan</div>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)

			if w.Code != tt.wantStatus {
				t.Errorf("Status code = %d, want %d", w.Code, tt.wantStatus)
			}
			if w.Body.String() != tt.wantBody {
				t.Errorf("Body = %q, want %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestErrorResponse_EscapesHTML(t *testing.T) {
	w := httptest.NewRecorder()

	BadRequestError("<script>alert('xss')</script>").Write(w)

	body := w.Body.String()
	if strings.Contains(body, "<script>") {
		t.Error("Error response did not escape HTML")
	}
	if !strings.Contains(body, "&lt;script&gt;") {
		t.Error("Error response did not properly escape HTML entities")
	}
}

func TestMethodNotAllowedError(t *testing.T) {
	w := httptest.NewRecorder()

	MethodNotAllowedError("POST").Write(w)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusMethodNotAllowed)
	}
	if w.Header().Get("Allow") != "POST" {
		t.Errorf("Allow header = %q, want %q", w.Header().Get("Allow"), "POST")
	}
}

func TestNotificationTypes(t *testing.T) {
	tests := []struct {
		notifType NotificationType
		want      string
	}{
		{NotificationSuccess, "success"},
		{NotificationError, "error"},
		{NotificationWarning, "warning"},
		{NotificationInfo, "info"},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		NewHTMXResponse().
			TriggerNotification(tt.notifType, "test", 1000).
			Write(w)

		trigger := w.Header().Get("HX-Trigger")
		if !strings.Contains(trigger, `"type":"`+tt.want+`"`) {
			t.Errorf("Notification type %q not found in trigger: %s", tt.want, trigger)
		}
	}
}
