package http

import (
	"net/http"
	"sync/atomic"
	"time"

	"akunting/internal/core"
	"akunting/internal/feed"
	"akunting/internal/log"
	"akunting/internal/services"

	"github.com/google/uuid"
)

// beginWrite checks the method and parses the body of a write request.
func beginWrite(r *http.Request) (*RequestBodyParser, *HTMXResponseBuilder) {
	if fail := RequirePOST(r); fail != nil {
		return nil, fail
	}
	return ParseBodyOrFail(r)
}

// written refreshes the local view for the change and confirms it. Plain
// form posts are redirected back to the week they came from.
func (s *Server) written(w http.ResponseWriter, r *http.Request, p *RequestBodyParser, kind feed.Kind, op feed.Op, id uuid.UUID, message string) {
	ctx := r.Context()
	atomic.AddInt64(&s.appMetrics.writes, 1)
	s.requests.LogRecordChanged(ctx, string(op), string(kind), id.String())

	// The change feed delivers the same event later; refreshing here makes
	// the writer's next page load reflect the write.
	_ = s.view.Apply(ctx, feed.Event{Kind: kind, Op: op, ID: id, At: time.Now().UTC()})

	if !isHTMX(r) && !p.IsJSON() {
		http.Redirect(w, r, returnURL(p), http.StatusSeeOther)
		return
	}
	SuccessResponse(kind, op, s.view.Week(p.Get("week")).Key, message).Write(w)
}

// writeFailed reports a rejected or failed write. Storage errors are logged
// with detail and shown opaquely.
func (s *Server) writeFailed(w http.ResponseWriter, r *http.Request, err error, op string, kind feed.Kind) {
	atomic.AddInt64(&s.appMetrics.writeErrors, 1)
	status, message := userMessage(err)
	if status >= http.StatusInternalServerError {
		s.requests.LogError(r.Context(), "Ledger write failed", err, op, log.LogFields{log.FieldKind: string(kind)})
	} else {
		s.logger.WarnContext(r.Context(), "Ledger write rejected",
			log.FieldOperation, op,
			log.FieldKind, kind,
			log.FieldError, err,
			log.FieldStatusCode, status)
	}
	ErrorResponse(status, message).Write(w)
}

func (s *Server) handleCreateClass(w http.ResponseWriter, r *http.Request) {
	p, fail := beginWrite(r)
	if fail != nil {
		fail.Write(w)
		return
	}

	c, err := s.ledger.AddClass(r.Context(), p.Get("name"), p.Get("note"))
	if err != nil {
		s.writeFailed(w, r, err, log.OpCreate, feed.KindClasses)
		return
	}
	s.written(w, r, p, feed.KindClasses, feed.OpInsert, c.ID, "Kelas "+c.Name+" ditambahkan")
}

func (s *Server) handleRenameClass(w http.ResponseWriter, r *http.Request) {
	p, fail := beginWrite(r)
	if fail != nil {
		fail.Write(w)
		return
	}

	id, err := p.UUID("id")
	if err != nil {
		s.writeFailed(w, r, err, log.OpUpdate, feed.KindClasses)
		return
	}
	c, err := s.ledger.RenameClass(r.Context(), id, p.Get("name"))
	if err != nil {
		s.writeFailed(w, r, err, log.OpUpdate, feed.KindClasses)
		return
	}
	s.written(w, r, p, feed.KindClasses, feed.OpUpdate, c.ID, "Kelas diubah menjadi "+c.Name)
}

// handleDeleteClass removes a class; its students stay, without a class.
func (s *Server) handleDeleteClass(w http.ResponseWriter, r *http.Request) {
	p, fail := beginWrite(r)
	if fail != nil {
		fail.Write(w)
		return
	}

	id, err := p.UUID("id")
	if err == nil {
		err = s.ledger.DeleteClass(r.Context(), id)
	}
	if err != nil {
		s.writeFailed(w, r, err, log.OpDelete, feed.KindClasses)
		return
	}
	s.written(w, r, p, feed.KindClasses, feed.OpDelete, id, "Kelas dihapus")
}

func (s *Server) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	p, fail := beginWrite(r)
	if fail != nil {
		fail.Write(w)
		return
	}

	in, err := studentInput(p)
	if err != nil {
		s.writeFailed(w, r, err, log.OpCreate, feed.KindStudents)
		return
	}
	st, err := s.ledger.AddStudent(r.Context(), in)
	if err != nil {
		s.writeFailed(w, r, err, log.OpCreate, feed.KindStudents)
		return
	}
	s.written(w, r, p, feed.KindStudents, feed.OpInsert, st.ID, "Siswa "+st.Name+" ditambahkan")
}

// studentInput reads a new student. Fee and mukafaah default to zero and
// a student is active unless the form says otherwise.
func studentInput(p *RequestBodyParser) (services.StudentInput, error) {
	in := services.StudentInput{Name: p.Get("name"), Active: true}
	var err error
	if in.ClassID, err = p.ClassRef("class_id"); err != nil {
		return in, err
	}
	if in.FeePerWeek, err = p.Amount("fee", true); err != nil {
		return in, err
	}
	if in.MukafaahPerWeek, err = p.Amount("mukafaah", true); err != nil {
		return in, err
	}
	if p.Has("active") {
		if in.Active, err = p.Bool("active"); err != nil {
			return in, err
		}
	}
	return in, nil
}

// handleUpdateStudent changes only the fields present in the request.
func (s *Server) handleUpdateStudent(w http.ResponseWriter, r *http.Request) {
	p, fail := beginWrite(r)
	if fail != nil {
		fail.Write(w)
		return
	}

	id, err := p.UUID("id")
	if err != nil {
		s.writeFailed(w, r, err, log.OpUpdate, feed.KindStudents)
		return
	}
	patch, err := studentPatch(p)
	if err != nil {
		s.writeFailed(w, r, err, log.OpUpdate, feed.KindStudents)
		return
	}
	if patch.Empty() {
		UnprocessableEntityError("Tidak ada perubahan").Write(w)
		return
	}

	st, err := s.ledger.UpdateStudent(r.Context(), id, patch)
	if err != nil {
		s.writeFailed(w, r, err, log.OpUpdate, feed.KindStudents)
		return
	}
	s.written(w, r, p, feed.KindStudents, feed.OpUpdate, st.ID, "Data "+st.Name+" disimpan")
}

func studentPatch(p *RequestBodyParser) (services.StudentPatch, error) {
	var patch services.StudentPatch
	if p.Has("name") {
		name := p.Get("name")
		patch.Name = &name
	}
	if p.Has("class_id") {
		class, err := p.ClassRef("class_id")
		if err != nil {
			return patch, err
		}
		patch.ClassID = &class
	}
	if p.Has("fee") {
		fee, err := p.Amount("fee", false)
		if err != nil {
			return patch, err
		}
		patch.FeePerWeek = &fee
	}
	if p.Has("mukafaah") {
		mukafaah, err := p.Amount("mukafaah", false)
		if err != nil {
			return patch, err
		}
		patch.MukafaahPerWeek = &mukafaah
	}
	if p.Has("active") {
		active, err := p.Bool("active")
		if err != nil {
			return patch, err
		}
		patch.Active = &active
	}
	return patch, nil
}

// handleDeleteStudent removes a student together with their payments.
func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	p, fail := beginWrite(r)
	if fail != nil {
		fail.Write(w)
		return
	}

	id, err := p.UUID("id")
	if err == nil {
		err = s.ledger.DeleteStudent(r.Context(), id)
	}
	if err != nil {
		s.writeFailed(w, r, err, log.OpDelete, feed.KindStudents)
		return
	}
	s.written(w, r, p, feed.KindStudents, feed.OpDelete, id, "Siswa dihapus")
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	p, fail := beginWrite(r)
	if fail != nil {
		fail.Write(w)
		return
	}

	in := services.PaymentInput{Note: p.Get("note")}
	var err error
	if in.StudentID, err = p.UUID("student_id"); err != nil {
		err = core.ErrMissingStudent
	} else if in.Date, err = p.Date("date", s.view.Today()); err == nil {
		in.Amount, err = p.Amount("amount", false)
	}
	if err != nil {
		s.writeFailed(w, r, err, log.OpCreate, feed.KindPayments)
		return
	}

	pay, err := s.ledger.AddPayment(r.Context(), in)
	if err != nil {
		s.writeFailed(w, r, err, log.OpCreate, feed.KindPayments)
		return
	}
	s.written(w, r, p, feed.KindPayments, feed.OpInsert, pay.ID, "Pembayaran "+core.FormatIDR(pay.Amount)+" tersimpan")
}

func (s *Server) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	p, fail := beginWrite(r)
	if fail != nil {
		fail.Write(w)
		return
	}

	id, err := p.UUID("id")
	if err == nil {
		err = s.ledger.DeletePayment(r.Context(), id)
	}
	if err != nil {
		s.writeFailed(w, r, err, log.OpDelete, feed.KindPayments)
		return
	}
	s.written(w, r, p, feed.KindPayments, feed.OpDelete, id, "Pembayaran dihapus")
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	p, fail := beginWrite(r)
	if fail != nil {
		fail.Write(w)
		return
	}

	in := services.ExpenseInput{Category: p.Get("category"), Note: p.Get("note")}
	var err error
	if in.Date, err = p.Date("date", s.view.Today()); err == nil {
		in.Amount, err = p.Amount("amount", false)
	}
	if err != nil {
		s.writeFailed(w, r, err, log.OpCreate, feed.KindExpenses)
		return
	}

	e, err := s.ledger.AddExpense(r.Context(), in)
	if err != nil {
		s.writeFailed(w, r, err, log.OpCreate, feed.KindExpenses)
		return
	}
	s.written(w, r, p, feed.KindExpenses, feed.OpInsert, e.ID, "Pengeluaran "+core.FormatIDR(e.Amount)+" tersimpan")
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	p, fail := beginWrite(r)
	if fail != nil {
		fail.Write(w)
		return
	}

	id, err := p.UUID("id")
	if err == nil {
		err = s.ledger.DeleteExpense(r.Context(), id)
	}
	if err != nil {
		s.writeFailed(w, r, err, log.OpDelete, feed.KindExpenses)
		return
	}
	s.written(w, r, p, feed.KindExpenses, feed.OpDelete, id, "Pengeluaran dihapus")
}
