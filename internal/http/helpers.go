package http

import (
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"akunting/internal/core"
	"akunting/internal/ports"

	"github.com/google/uuid"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// templateFuncs are available to every page template.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"idr":       core.FormatIDR,
		"shortDate": core.ShortDate,
		"plain": func(m core.Money) string {
			return strconv.FormatInt(int64(m), 10)
		},
		"inClass": func(s core.Student, classID uuid.UUID) bool {
			return s.ClassID.Valid && s.ClassID.UUID == classID
		},
	}
}

// isHTMX reports whether the request was sent by htmx rather than a plain
// form submission.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// returnURL is the dashboard for the week the form was posted from.
func returnURL(p *RequestBodyParser) string {
	if d, err := core.ParseDate(p.Get("week")); err == nil {
		return "/?date=" + d.String()
	}
	return "/"
}

// userMessage maps a write error to what the user is shown. Anything not
// caused by the input is reported opaquely.
func userMessage(err error) (status int, message string) {
	var verr *core.ValidationError
	switch {
	case errors.Is(err, core.ErrMissingStudent):
		return http.StatusUnprocessableEntity, "Siswa tidak ditemukan"
	case errors.Is(err, core.ErrInvalidDate):
		return http.StatusUnprocessableEntity, "Tanggal tidak valid"
	case errors.Is(err, core.ErrInvalidAmount):
		return http.StatusUnprocessableEntity, "Jumlah tidak valid"
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, "Data tidak valid: " + verr.Error()
	case errors.Is(err, core.ErrValidation):
		return http.StatusUnprocessableEntity, "Data tidak valid"
	case errors.Is(err, ports.ErrNotFound):
		return http.StatusNotFound, "Data tidak ditemukan"
	case errors.Is(err, errMissingField), errors.Is(err, errInvalidID), errors.Is(err, errInvalidBool):
		return http.StatusBadRequest, "Permintaan tidak valid"
	default:
		return http.StatusInternalServerError, "Gagal menyimpan data"
	}
}
