package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"akunting/internal/core"
	"akunting/internal/feed"
	"akunting/internal/ports"

	"github.com/google/uuid"
)

type (
	StudentInput struct {
		Name            string
		ClassID         uuid.NullUUID
		FeePerWeek      core.Money
		MukafaahPerWeek core.Money
		Active          bool
	}

	// StudentPatch changes only the fields that are set.
	StudentPatch struct {
		Name            *string
		ClassID         *uuid.NullUUID
		FeePerWeek      *core.Money
		MukafaahPerWeek *core.Money
		Active          *bool
	}

	PaymentInput struct {
		StudentID uuid.UUID
		Date      core.Date
		Amount    core.Money
		Note      string
	}

	ExpenseInput struct {
		Date     core.Date
		Category string
		Amount   core.Money
		Note     string
	}
)

// Empty reports whether the patch changes nothing.
func (p StudentPatch) Empty() bool {
	return p.Name == nil && p.ClassID == nil && p.FeePerWeek == nil && p.MukafaahPerWeek == nil && p.Active == nil
}

// LedgerService validates writes, applies them to the store and announces
// them on the change feed.
type LedgerService struct {
	store     ports.Store
	publisher feed.Publisher
	now       func() time.Time
}

// NewLedgerService returns a service writing to store. A nil publisher
// disables change notifications.
func NewLedgerService(store ports.Store, publisher feed.Publisher) *LedgerService {
	if publisher == nil {
		publisher = feed.Nop{}
	}
	return &LedgerService{
		store:     store,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *LedgerService) AddClass(ctx context.Context, name, note string) (core.Class, error) {
	now := s.now()
	c := core.Class{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(name),
		Note:      strings.TrimSpace(note),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.Validate(); err != nil {
		return core.Class{}, err
	}
	if err := s.store.InsertClass(ctx, c); err != nil {
		return core.Class{}, fmt.Errorf("save class: %w", err)
	}
	s.publish(ctx, feed.KindClasses, feed.OpInsert, c.ID)
	return c, nil
}

func (s *LedgerService) RenameClass(ctx context.Context, id uuid.UUID, name string) (core.Class, error) {
	classes, err := s.store.ListClasses(ctx)
	if err != nil {
		return core.Class{}, fmt.Errorf("load classes: %w", err)
	}
	var c core.Class
	found := false
	for _, x := range classes {
		if x.ID == id {
			c, found = x, true
			break
		}
	}
	if !found {
		return core.Class{}, fmt.Errorf("rename class: %w", ports.ErrNotFound)
	}

	c.Name = strings.TrimSpace(name)
	c.UpdatedAt = s.now()
	if err := c.Validate(); err != nil {
		return core.Class{}, err
	}
	if err := s.store.UpdateClass(ctx, c); err != nil {
		return core.Class{}, fmt.Errorf("update class: %w", err)
	}
	s.publish(ctx, feed.KindClasses, feed.OpUpdate, c.ID)
	return c, nil
}

// DeleteClass removes a class. Its students stay, without a class.
func (s *LedgerService) DeleteClass(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteClass(ctx, id); err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	s.publish(ctx, feed.KindClasses, feed.OpDelete, id)
	return nil
}

func (s *LedgerService) AddStudent(ctx context.Context, in StudentInput) (core.Student, error) {
	now := s.now()
	st := core.Student{
		ID:              uuid.New(),
		Name:            strings.TrimSpace(in.Name),
		ClassID:         in.ClassID,
		FeePerWeek:      in.FeePerWeek,
		MukafaahPerWeek: in.MukafaahPerWeek,
		Active:          in.Active,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := st.Validate(); err != nil {
		return core.Student{}, err
	}
	if err := s.store.InsertStudent(ctx, st); err != nil {
		return core.Student{}, fmt.Errorf("save student: %w", err)
	}
	s.publish(ctx, feed.KindStudents, feed.OpInsert, st.ID)
	return st, nil
}

// UpdateStudent applies patch to the stored student.
func (s *LedgerService) UpdateStudent(ctx context.Context, id uuid.UUID, patch StudentPatch) (core.Student, error) {
	students, err := s.store.ListStudents(ctx)
	if err != nil {
		return core.Student{}, fmt.Errorf("load students: %w", err)
	}
	snap := core.Snapshot{Students: students}
	st, ok := snap.FindStudent(id)
	if !ok {
		return core.Student{}, fmt.Errorf("update student: %w", ports.ErrNotFound)
	}
	if patch.Empty() {
		return st, nil
	}

	if patch.Name != nil {
		st.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.ClassID != nil {
		st.ClassID = *patch.ClassID
	}
	if patch.FeePerWeek != nil {
		st.FeePerWeek = *patch.FeePerWeek
	}
	if patch.MukafaahPerWeek != nil {
		st.MukafaahPerWeek = *patch.MukafaahPerWeek
	}
	if patch.Active != nil {
		st.Active = *patch.Active
	}
	st.UpdatedAt = s.now()

	if err := st.Validate(); err != nil {
		return core.Student{}, err
	}
	if err := s.store.UpdateStudent(ctx, st); err != nil {
		return core.Student{}, fmt.Errorf("update student: %w", err)
	}
	s.publish(ctx, feed.KindStudents, feed.OpUpdate, st.ID)
	return st, nil
}

// DeleteStudent removes a student and, with it, the student's payments.
func (s *LedgerService) DeleteStudent(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteStudent(ctx, id); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	s.publish(ctx, feed.KindStudents, feed.OpDelete, id)
	return nil
}

func (s *LedgerService) AddPayment(ctx context.Context, in PaymentInput) (core.Payment, error) {
	p := core.Payment{
		ID:        uuid.New(),
		StudentID: in.StudentID,
		Date:      in.Date,
		Amount:    in.Amount,
		Note:      strings.TrimSpace(in.Note),
		CreatedAt: s.now(),
	}
	if err := p.Validate(); err != nil {
		return core.Payment{}, err
	}
	if err := s.store.InsertPayment(ctx, p); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return core.Payment{}, fmt.Errorf("save payment: %w", core.ErrMissingStudent)
		}
		return core.Payment{}, fmt.Errorf("save payment: %w", err)
	}
	s.publish(ctx, feed.KindPayments, feed.OpInsert, p.ID)
	return p, nil
}

func (s *LedgerService) DeletePayment(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeletePayment(ctx, id); err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	s.publish(ctx, feed.KindPayments, feed.OpDelete, id)
	return nil
}

func (s *LedgerService) AddExpense(ctx context.Context, in ExpenseInput) (core.Expense, error) {
	e := core.Expense{
		ID:        uuid.New(),
		Date:      in.Date,
		Category:  strings.TrimSpace(in.Category),
		Amount:    in.Amount,
		Note:      strings.TrimSpace(in.Note),
		CreatedAt: s.now(),
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	if err := s.store.InsertExpense(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	s.publish(ctx, feed.KindExpenses, feed.OpInsert, e.ID)
	return e, nil
}

func (s *LedgerService) DeleteExpense(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	s.publish(ctx, feed.KindExpenses, feed.OpDelete, id)
	return nil
}

// publish announces a completed write. The write already succeeded, so a
// failed publish is only logged.
func (s *LedgerService) publish(ctx context.Context, kind feed.Kind, op feed.Op, id uuid.UUID) {
	e := feed.Event{Kind: kind, Op: op, ID: id, At: s.now()}
	if err := s.publisher.Publish(ctx, e); err != nil {
		slog.ErrorContext(ctx, "Failed to publish change event",
			"kind", kind, "op", op, "id", id, "error", err)
		return
	}
	slog.InfoContext(ctx, "Ledger record changed", "kind", kind, "op", op, "id", id)
}
