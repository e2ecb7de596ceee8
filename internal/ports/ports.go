package ports

import (
	"context"
	"errors"

	"akunting/internal/core"

	"github.com/google/uuid"
)

// ErrNotFound is returned by stores when an update or delete targets an id
// that does not exist.
var ErrNotFound = errors.New("record not found")

// Ports for outbound adapters. Lists return full collections in creation
// order; callers replace their copy wholesale.
type (
	ClassStore interface {
		ListClasses(ctx context.Context) ([]core.Class, error)
		InsertClass(ctx context.Context, c core.Class) error
		UpdateClass(ctx context.Context, c core.Class) error
		DeleteClass(ctx context.Context, id uuid.UUID) error
	}

	StudentStore interface {
		ListStudents(ctx context.Context) ([]core.Student, error)
		InsertStudent(ctx context.Context, s core.Student) error
		UpdateStudent(ctx context.Context, s core.Student) error
		// DeleteStudent also deletes the student's payments.
		DeleteStudent(ctx context.Context, id uuid.UUID) error
	}

	PaymentStore interface {
		ListPayments(ctx context.Context) ([]core.Payment, error)
		InsertPayment(ctx context.Context, p core.Payment) error
		DeletePayment(ctx context.Context, id uuid.UUID) error
	}

	ExpenseStore interface {
		ListExpenses(ctx context.Context) ([]core.Expense, error)
		InsertExpense(ctx context.Context, e core.Expense) error
		DeleteExpense(ctx context.Context, id uuid.UUID) error
	}

	// SnapshotReader is the read half of a store.
	SnapshotReader interface {
		ListClasses(ctx context.Context) ([]core.Class, error)
		ListStudents(ctx context.Context) ([]core.Student, error)
		ListPayments(ctx context.Context) ([]core.Payment, error)
		ListExpenses(ctx context.Context) ([]core.Expense, error)
	}

	Store interface {
		ClassStore
		StudentStore
		PaymentStore
		ExpenseStore
		Close() error
	}

	// SummaryWriter exports a computed week somewhere outside the app.
	SummaryWriter interface {
		WriteSummary(ctx context.Context, s core.WeeklySummary) error
	}
)

// ReadSnapshot fetches all four collections in sequence.
func ReadSnapshot(ctx context.Context, r SnapshotReader) (core.Snapshot, error) {
	var (
		snap core.Snapshot
		err  error
	)
	if snap.Classes, err = r.ListClasses(ctx); err != nil {
		return core.Snapshot{}, err
	}
	if snap.Students, err = r.ListStudents(ctx); err != nil {
		return core.Snapshot{}, err
	}
	if snap.Payments, err = r.ListPayments(ctx); err != nil {
		return core.Snapshot{}, err
	}
	if snap.Expenses, err = r.ListExpenses(ctx); err != nil {
		return core.Snapshot{}, err
	}
	return snap, nil
}
