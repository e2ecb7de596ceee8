package memory

import (
	"bufio"
	"context"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"akunting/internal/core"
	"akunting/internal/ports"

	"github.com/google/uuid"
)

// Store keeps the four collections in memory, in insertion order. It applies
// the same referential rules as the SQLite schema.
type Store struct {
	mu       sync.Mutex
	classes  []core.Class
	students []core.Student
	payments []core.Payment
	expenses []core.Expense
}

var _ ports.Store = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// NewFromFile returns a store seeded with one class per non-empty line of
// path. Lines starting with # are ignored. A missing file yields an empty
// store.
func NewFromFile(path string) *Store {
	s := New()
	now := time.Now().UTC()
	for _, name := range ReadClassNames(path) {
		s.classes = append(s.classes, core.Class{ID: uuid.New(), Name: name, CreatedAt: now, UpdatedAt: now})
	}
	return s
}

func (s *Store) Close() error { return nil }

func (s *Store) ListClasses(_ context.Context) ([]core.Class, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.classes), nil
}

func (s *Store) InsertClass(_ context.Context, c core.Class) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.classes = append(s.classes, c)
	return nil
}

func (s *Store) UpdateClass(_ context.Context, c core.Class) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.classes, func(x core.Class) bool { return x.ID == c.ID })
	if i < 0 {
		return ports.ErrNotFound
	}
	c.CreatedAt = s.classes[i].CreatedAt
	s.classes[i] = c
	return nil
}

// DeleteClass removes the class and clears it from its students.
func (s *Store) DeleteClass(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.classes, func(x core.Class) bool { return x.ID == id })
	if i < 0 {
		return ports.ErrNotFound
	}
	s.classes = slices.Delete(slices.Clone(s.classes), i, i+1)

	students := slices.Clone(s.students)
	for j := range students {
		if students[j].ClassID.Valid && students[j].ClassID.UUID == id {
			students[j].ClassID = uuid.NullUUID{}
		}
	}
	s.students = students
	return nil
}

func (s *Store) ListStudents(_ context.Context) ([]core.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.students), nil
}

func (s *Store) InsertStudent(_ context.Context, st core.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasClass(st.ClassID) {
		return ports.ErrNotFound
	}
	s.students = append(s.students, st)
	return nil
}

func (s *Store) UpdateStudent(_ context.Context, st core.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.students, func(x core.Student) bool { return x.ID == st.ID })
	if i < 0 {
		return ports.ErrNotFound
	}
	if !s.hasClass(st.ClassID) {
		return ports.ErrNotFound
	}
	st.CreatedAt = s.students[i].CreatedAt
	students := slices.Clone(s.students)
	students[i] = st
	s.students = students
	return nil
}

// DeleteStudent removes the student together with its payments.
func (s *Store) DeleteStudent(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.students, func(x core.Student) bool { return x.ID == id })
	if i < 0 {
		return ports.ErrNotFound
	}
	s.students = slices.Delete(slices.Clone(s.students), i, i+1)
	s.payments = slices.DeleteFunc(slices.Clone(s.payments), func(p core.Payment) bool { return p.StudentID == id })
	return nil
}

func (s *Store) ListPayments(_ context.Context) ([]core.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.payments), nil
}

func (s *Store) InsertPayment(_ context.Context, p core.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.ContainsFunc(s.students, func(x core.Student) bool { return x.ID == p.StudentID }) {
		return ports.ErrNotFound
	}
	s.payments = append(s.payments, p)
	return nil
}

func (s *Store) DeletePayment(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.payments, func(x core.Payment) bool { return x.ID == id })
	if i < 0 {
		return ports.ErrNotFound
	}
	s.payments = slices.Delete(slices.Clone(s.payments), i, i+1)
	return nil
}

func (s *Store) ListExpenses(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.expenses), nil
}

func (s *Store) InsertExpense(_ context.Context, e core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses = append(s.expenses, e)
	return nil
}

func (s *Store) DeleteExpense(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.expenses, func(x core.Expense) bool { return x.ID == id })
	if i < 0 {
		return ports.ErrNotFound
	}
	s.expenses = slices.Delete(slices.Clone(s.expenses), i, i+1)
	return nil
}

// hasClass reports whether a class reference is satisfiable. No class
// always is. Callers hold s.mu.
func (s *Store) hasClass(id uuid.NullUUID) bool {
	if !id.Valid {
		return true
	}
	return slices.ContainsFunc(s.classes, func(c core.Class) bool { return c.ID == id.UUID })
}

// ReadClassNames reads a seed file of class names, one per line. Blank
// lines, # comments and repeated names are skipped. A missing file yields nil.
func ReadClassNames(path string) []string {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	seen := map[string]struct{}{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
