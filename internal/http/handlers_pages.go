package http

import (
	"net/http"

	"akunting/internal/core"
)

type dashboardData struct {
	Period   core.WeekPeriod
	Date     string
	Today    string
	PrevDate string
	NextDate string
	Summary  core.WeeklySummary

	Groups     []core.ClassGroup
	Unassigned []core.Student
	Classes    []core.Class
	Students   []core.Student
}

// handleDashboard renders the week containing ?date= (today by default).
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		NotFoundError("Halaman tidak ditemukan").Write(w)
		return
	}
	if fail := RequireMethod(r, http.MethodGet, http.MethodHead); fail != nil {
		fail.Write(w)
		return
	}
	if !s.view.Ready() {
		ErrorResponse(http.StatusServiceUnavailable, "Memuat data… coba lagi sebentar").
			Header("Retry-After", "5").
			Write(w)
		return
	}

	ref := r.URL.Query().Get("date")
	period := s.view.Week(ref)
	today := s.view.Today()

	date := today
	if d, err := core.ParseDate(ref); err == nil {
		date = d
	}
	if !core.InPeriod(date, period) {
		date = period.StartDate()
	}

	snap := s.view.Snapshot()
	groups, unassigned := snap.GroupByClass()

	s.render(w, r, "dashboard.html", dashboardData{
		Period:     period,
		Date:       date.String(),
		Today:      today.String(),
		PrevDate:   period.Prev().StartDate().String(),
		NextDate:   period.Next().StartDate().String(),
		Summary:    s.view.Summary(period),
		Groups:     groups,
		Unassigned: unassigned,
		Classes:    snap.Classes,
		Students:   snap.Students,
	})
}

type invoiceData struct {
	Period   core.WeekPeriod
	Bill     core.StudentBill
	IssuedOn core.Date
}

// handleInvoice renders one student's bill for the week of ?date=.
func (s *Server) handleInvoice(w http.ResponseWriter, r *http.Request) {
	if fail := RequireMethod(r, http.MethodGet, http.MethodHead); fail != nil {
		fail.Write(w)
		return
	}

	id, err := parseID(sanitizeInput(r.URL.Query().Get("student")))
	if err != nil {
		BadRequestError("Siswa tidak valid").Write(w)
		return
	}

	period := s.view.Week(r.URL.Query().Get("date"))
	bill, ok := s.view.Summary(period).Bill(id)
	if !ok {
		NotFoundError("Siswa tidak ditemukan").Write(w)
		return
	}

	s.render(w, r, "invoice.html", invoiceData{
		Period:   period,
		Bill:     bill,
		IssuedOn: s.view.Today(),
	})
}

type receiptData struct {
	Payment     core.Payment
	StudentName string
}

// handleReceipt renders the receipt of a single payment. A payment whose
// student is gone still prints, with the placeholder name.
func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request) {
	if fail := RequireMethod(r, http.MethodGet, http.MethodHead); fail != nil {
		fail.Write(w)
		return
	}

	id, err := parseID(sanitizeInput(r.URL.Query().Get("payment")))
	if err != nil {
		BadRequestError("Pembayaran tidak valid").Write(w)
		return
	}

	snap := s.view.Snapshot()
	payment, ok := snap.FindPayment(id)
	if !ok {
		NotFoundError("Pembayaran tidak ditemukan").Write(w)
		return
	}

	s.render(w, r, "receipt.html", receiptData{
		Payment:     payment,
		StudentName: snap.StudentName(payment.StudentID),
	})
}
