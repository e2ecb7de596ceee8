package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// UnknownStudent is shown wherever a payment references a student that is
// no longer part of the snapshot.
const UnknownStudent = "Siswa tidak dikenal"

type (
	// Date is a calendar date without a meaningful time of day.
	Date struct {
		time.Time
	}

	Class struct {
		ID        uuid.UUID
		Name      string `validate:"required,max=120"`
		Note      string `validate:"max=500"`
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	Student struct {
		ID              uuid.UUID
		Name            string `validate:"required,max=120"`
		ClassID         uuid.NullUUID // Valid=false means "no class"
		FeePerWeek      Money  `validate:"gte=0"`
		MukafaahPerWeek Money  `validate:"gte=0"`
		Active          bool
		CreatedAt       time.Time
		UpdatedAt       time.Time
	}

	Payment struct {
		ID        uuid.UUID
		StudentID uuid.UUID
		Date      Date
		Amount    Money  `validate:"gt=0"`
		Note      string `validate:"max=500"`
		CreatedAt time.Time
	}

	Expense struct {
		ID        uuid.UUID
		Date      Date
		Category  string `validate:"max=120"`
		Amount    Money  `validate:"gt=0"`
		Note      string `validate:"max=500"`
		CreatedAt time.Time
	}
)

var (
	ErrValidation     = errors.New("validation failed")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrInvalidDate    = errors.New("invalid date")
	ErrMissingStudent = errors.New("missing student")
)

// ValidationError describes the first field that failed validation.
type ValidationError struct {
	Field string
	Rule  string
	Param string
}

func (e *ValidationError) Error() string {
	field := strings.ToLower(e.Field)
	switch e.Rule {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, e.Param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, e.Param)
	case "gte":
		return fmt.Sprintf("%s must not be negative", field)
	default:
		return fmt.Sprintf("%s failed %s", field, e.Rule)
	}
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ValidationError{Field: fe.Field(), Rule: fe.Tag(), Param: fe.Param()}
	}
	return err
}

// NewDate creates a new Date from year, month, day
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// String returns the ISO form YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(time.DateOnly)
}

// In returns the instant at which the date starts in loc.
func (d Date) In(loc *time.Location) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, loc)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (c Class) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return &ValidationError{Field: "Name", Rule: "required"}
	}
	return validateStruct(c)
}

func (s Student) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return &ValidationError{Field: "Name", Rule: "required"}
	}
	return validateStruct(s)
}

func (p Payment) Validate() error {
	if p.StudentID == uuid.Nil {
		return fmt.Errorf("%w: %w", ErrValidation, ErrMissingStudent)
	}
	if err := p.Date.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return validateStruct(p)
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return validateStruct(e)
}
