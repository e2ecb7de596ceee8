package storage

import (
	"context"
	"database/sql"
)

const listClasses = `-- name: ListClasses :many
SELECT id, name, note, created_at, updated_at
FROM classes
ORDER BY created_at, rowid
`

func (q *Queries) ListClasses(ctx context.Context) ([]Class, error) {
	rows, err := q.db.QueryContext(ctx, listClasses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Class
	for rows.Next() {
		var i Class
		if err := rows.Scan(&i.ID, &i.Name, &i.Note, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createClass = `-- name: CreateClass :exec
INSERT INTO classes (id, name, note, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
`

type CreateClassParams struct {
	ID        string
	Name      string
	Note      string
	CreatedAt string
	UpdatedAt string
}

func (q *Queries) CreateClass(ctx context.Context, arg CreateClassParams) error {
	_, err := q.db.ExecContext(ctx, createClass, arg.ID, arg.Name, arg.Note, arg.CreatedAt, arg.UpdatedAt)
	return err
}

const updateClass = `-- name: UpdateClass :execrows
UPDATE classes
SET name = ?, note = ?, updated_at = ?
WHERE id = ?
`

type UpdateClassParams struct {
	Name      string
	Note      string
	UpdatedAt string
	ID        string
}

func (q *Queries) UpdateClass(ctx context.Context, arg UpdateClassParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateClass, arg.Name, arg.Note, arg.UpdatedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteClass = `-- name: DeleteClass :execrows
DELETE FROM classes WHERE id = ?
`

func (q *Queries) DeleteClass(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteClass, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listStudents = `-- name: ListStudents :many
SELECT id, name, class_id, fee_per_week, mukafaah_per_week, active, created_at, updated_at
FROM students
ORDER BY created_at, rowid
`

func (q *Queries) ListStudents(ctx context.Context) ([]Student, error) {
	rows, err := q.db.QueryContext(ctx, listStudents)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Student
	for rows.Next() {
		var i Student
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.ClassID,
			&i.FeePerWeek,
			&i.MukafaahPerWeek,
			&i.Active,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createStudent = `-- name: CreateStudent :exec
INSERT INTO students (id, name, class_id, fee_per_week, mukafaah_per_week, active, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateStudentParams struct {
	ID              string
	Name            string
	ClassID         sql.NullString
	FeePerWeek      int64
	MukafaahPerWeek int64
	Active          bool
	CreatedAt       string
	UpdatedAt       string
}

func (q *Queries) CreateStudent(ctx context.Context, arg CreateStudentParams) error {
	_, err := q.db.ExecContext(ctx, createStudent,
		arg.ID,
		arg.Name,
		arg.ClassID,
		arg.FeePerWeek,
		arg.MukafaahPerWeek,
		arg.Active,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

const updateStudent = `-- name: UpdateStudent :execrows
UPDATE students
SET name = ?, class_id = ?, fee_per_week = ?, mukafaah_per_week = ?, active = ?, updated_at = ?
WHERE id = ?
`

type UpdateStudentParams struct {
	Name            string
	ClassID         sql.NullString
	FeePerWeek      int64
	MukafaahPerWeek int64
	Active          bool
	UpdatedAt       string
	ID              string
}

func (q *Queries) UpdateStudent(ctx context.Context, arg UpdateStudentParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateStudent,
		arg.Name,
		arg.ClassID,
		arg.FeePerWeek,
		arg.MukafaahPerWeek,
		arg.Active,
		arg.UpdatedAt,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteStudent = `-- name: DeleteStudent :execrows
DELETE FROM students WHERE id = ?
`

func (q *Queries) DeleteStudent(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteStudent, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listPayments = `-- name: ListPayments :many
SELECT id, student_id, date, amount, note, created_at
FROM payments
ORDER BY created_at, rowid
`

func (q *Queries) ListPayments(ctx context.Context) ([]Payment, error) {
	rows, err := q.db.QueryContext(ctx, listPayments)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Payment
	for rows.Next() {
		var i Payment
		if err := rows.Scan(&i.ID, &i.StudentID, &i.Date, &i.Amount, &i.Note, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createPayment = `-- name: CreatePayment :exec
INSERT INTO payments (id, student_id, date, amount, note, created_at)
VALUES (?, ?, ?, ?, ?, ?)
`

type CreatePaymentParams struct {
	ID        string
	StudentID string
	Date      string
	Amount    int64
	Note      string
	CreatedAt string
}

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) error {
	_, err := q.db.ExecContext(ctx, createPayment, arg.ID, arg.StudentID, arg.Date, arg.Amount, arg.Note, arg.CreatedAt)
	return err
}

const deletePayment = `-- name: DeletePayment :execrows
DELETE FROM payments WHERE id = ?
`

func (q *Queries) DeletePayment(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deletePayment, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listExpenses = `-- name: ListExpenses :many
SELECT id, date, category, amount, note, created_at
FROM expenses
ORDER BY created_at, rowid
`

func (q *Queries) ListExpenses(ctx context.Context) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, listExpenses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Expense
	for rows.Next() {
		var i Expense
		if err := rows.Scan(&i.ID, &i.Date, &i.Category, &i.Amount, &i.Note, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createExpense = `-- name: CreateExpense :exec
INSERT INTO expenses (id, date, category, amount, note, created_at)
VALUES (?, ?, ?, ?, ?, ?)
`

type CreateExpenseParams struct {
	ID        string
	Date      string
	Category  string
	Amount    int64
	Note      string
	CreatedAt string
}

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) error {
	_, err := q.db.ExecContext(ctx, createExpense, arg.ID, arg.Date, arg.Category, arg.Amount, arg.Note, arg.CreatedAt)
	return err
}

const deleteExpense = `-- name: DeleteExpense :execrows
DELETE FROM expenses WHERE id = ?
`

func (q *Queries) DeleteExpense(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteExpense, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
