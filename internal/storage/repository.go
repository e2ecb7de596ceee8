package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"akunting/internal/core"
	"akunting/internal/ports"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrNotFound aliases the port error so callers can match either.
var ErrNotFound = ports.ErrNotFound

// timeLayout is fixed width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var _ ports.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

// dsn enables foreign keys on every pooled connection; ON DELETE actions
// depend on it.
func dsn(dbPath string) string {
	return dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) ListClasses(ctx context.Context) ([]core.Class, error) {
	rows, err := r.queries.ListClasses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	classes := make([]core.Class, 0, len(rows))
	for _, row := range rows {
		c, err := classFromRow(row)
		if err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}
	return classes, nil
}

func (r *SQLiteRepository) InsertClass(ctx context.Context, c core.Class) error {
	err := r.queries.CreateClass(ctx, CreateClassParams{
		ID:        c.ID.String(),
		Name:      c.Name,
		Note:      c.Note,
		CreatedAt: formatTime(c.CreatedAt),
		UpdatedAt: formatTime(c.UpdatedAt),
	})
	if err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	slog.DebugContext(ctx, "Class saved to SQLite", "id", c.ID, "name", c.Name)
	return nil
}

func (r *SQLiteRepository) UpdateClass(ctx context.Context, c core.Class) error {
	n, err := r.queries.UpdateClass(ctx, UpdateClassParams{
		Name:      c.Name,
		Note:      c.Note,
		UpdatedAt: formatTime(c.UpdatedAt),
		ID:        c.ID.String(),
	})
	return affected("update class", n, err)
}

func (r *SQLiteRepository) DeleteClass(ctx context.Context, id uuid.UUID) error {
	n, err := r.queries.DeleteClass(ctx, id.String())
	return affected("delete class", n, err)
}

func (r *SQLiteRepository) ListStudents(ctx context.Context) ([]core.Student, error) {
	rows, err := r.queries.ListStudents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	students := make([]core.Student, 0, len(rows))
	for _, row := range rows {
		s, err := studentFromRow(row)
		if err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, nil
}

func (r *SQLiteRepository) InsertStudent(ctx context.Context, s core.Student) error {
	err := r.queries.CreateStudent(ctx, CreateStudentParams{
		ID:              s.ID.String(),
		Name:            s.Name,
		ClassID:         nullString(s.ClassID),
		FeePerWeek:      int64(s.FeePerWeek),
		MukafaahPerWeek: int64(s.MukafaahPerWeek),
		Active:          s.Active,
		CreatedAt:       formatTime(s.CreatedAt),
		UpdatedAt:       formatTime(s.UpdatedAt),
	})
	if err != nil {
		return wrapWrite("create student", err)
	}
	slog.DebugContext(ctx, "Student saved to SQLite", "id", s.ID, "name", s.Name)
	return nil
}

func (r *SQLiteRepository) UpdateStudent(ctx context.Context, s core.Student) error {
	n, err := r.queries.UpdateStudent(ctx, UpdateStudentParams{
		Name:            s.Name,
		ClassID:         nullString(s.ClassID),
		FeePerWeek:      int64(s.FeePerWeek),
		MukafaahPerWeek: int64(s.MukafaahPerWeek),
		Active:          s.Active,
		UpdatedAt:       formatTime(s.UpdatedAt),
		ID:              s.ID.String(),
	})
	return affected("update student", n, err)
}

func (r *SQLiteRepository) DeleteStudent(ctx context.Context, id uuid.UUID) error {
	n, err := r.queries.DeleteStudent(ctx, id.String())
	return affected("delete student", n, err)
}

func (r *SQLiteRepository) ListPayments(ctx context.Context) ([]core.Payment, error) {
	rows, err := r.queries.ListPayments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	payments := make([]core.Payment, 0, len(rows))
	for _, row := range rows {
		p, err := paymentFromRow(row)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, nil
}

func (r *SQLiteRepository) InsertPayment(ctx context.Context, p core.Payment) error {
	err := r.queries.CreatePayment(ctx, CreatePaymentParams{
		ID:        p.ID.String(),
		StudentID: p.StudentID.String(),
		Date:      p.Date.String(),
		Amount:    int64(p.Amount),
		Note:      p.Note,
		CreatedAt: formatTime(p.CreatedAt),
	})
	if err != nil {
		return wrapWrite("create payment", err)
	}
	slog.DebugContext(ctx, "Payment saved to SQLite", "id", p.ID, "student_id", p.StudentID, "amount", int64(p.Amount))
	return nil
}

func (r *SQLiteRepository) DeletePayment(ctx context.Context, id uuid.UUID) error {
	n, err := r.queries.DeletePayment(ctx, id.String())
	return affected("delete payment", n, err)
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.queries.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	expenses := make([]core.Expense, 0, len(rows))
	for _, row := range rows {
		e, err := expenseFromRow(row)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, nil
}

func (r *SQLiteRepository) InsertExpense(ctx context.Context, e core.Expense) error {
	err := r.queries.CreateExpense(ctx, CreateExpenseParams{
		ID:        e.ID.String(),
		Date:      e.Date.String(),
		Category:  e.Category,
		Amount:    int64(e.Amount),
		Note:      e.Note,
		CreatedAt: formatTime(e.CreatedAt),
	})
	if err != nil {
		return fmt.Errorf("create expense: %w", err)
	}
	slog.DebugContext(ctx, "Expense saved to SQLite", "id", e.ID, "amount", int64(e.Amount), "date", e.Date.String())
	return nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id uuid.UUID) error {
	n, err := r.queries.DeleteExpense(ctx, id.String())
	return affected("delete expense", n, err)
}

func affected(op string, n int64, err error) error {
	if err != nil {
		return wrapWrite(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// wrapWrite maps foreign key violations to ErrNotFound: the referenced class
// or student does not exist.
func wrapWrite(op string, err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT &&
		strings.Contains(se.Error(), "FOREIGN KEY") {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullString(id uuid.NullUUID) sql.NullString {
	if !id.Valid {
		return sql.NullString{}
	}
	return sql.NullString{String: id.UUID.String(), Valid: true}
}

func classFromRow(row Class) (core.Class, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return core.Class{}, fmt.Errorf("class id %q: %w", row.ID, err)
	}
	created, err := parseTime(row.CreatedAt)
	if err != nil {
		return core.Class{}, err
	}
	updated, err := parseTime(row.UpdatedAt)
	if err != nil {
		return core.Class{}, err
	}
	return core.Class{ID: id, Name: row.Name, Note: row.Note, CreatedAt: created, UpdatedAt: updated}, nil
}

func studentFromRow(row Student) (core.Student, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return core.Student{}, fmt.Errorf("student id %q: %w", row.ID, err)
	}
	var classID uuid.NullUUID
	if row.ClassID.Valid {
		if classID.UUID, err = uuid.Parse(row.ClassID.String); err != nil {
			return core.Student{}, fmt.Errorf("student %s class id: %w", row.ID, err)
		}
		classID.Valid = true
	}
	created, err := parseTime(row.CreatedAt)
	if err != nil {
		return core.Student{}, err
	}
	updated, err := parseTime(row.UpdatedAt)
	if err != nil {
		return core.Student{}, err
	}
	return core.Student{
		ID:              id,
		Name:            row.Name,
		ClassID:         classID,
		FeePerWeek:      core.Money(row.FeePerWeek),
		MukafaahPerWeek: core.Money(row.MukafaahPerWeek),
		Active:          row.Active,
		CreatedAt:       created,
		UpdatedAt:       updated,
	}, nil
}

func paymentFromRow(row Payment) (core.Payment, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return core.Payment{}, fmt.Errorf("payment id %q: %w", row.ID, err)
	}
	studentID, err := uuid.Parse(row.StudentID)
	if err != nil {
		return core.Payment{}, fmt.Errorf("payment %s student id: %w", row.ID, err)
	}
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Payment{}, err
	}
	created, err := parseTime(row.CreatedAt)
	if err != nil {
		return core.Payment{}, err
	}
	return core.Payment{
		ID:        id,
		StudentID: studentID,
		Date:      date,
		Amount:    core.Money(row.Amount),
		Note:      row.Note,
		CreatedAt: created,
	}, nil
}

func expenseFromRow(row Expense) (core.Expense, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense id %q: %w", row.ID, err)
	}
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Expense{}, err
	}
	created, err := parseTime(row.CreatedAt)
	if err != nil {
		return core.Expense{}, err
	}
	return core.Expense{
		ID:        id,
		Date:      date,
		Category:  row.Category,
		Amount:    core.Money(row.Amount),
		Note:      row.Note,
		CreatedAt: created,
	}, nil
}
