package core

import "github.com/google/uuid"

// Snapshot is the last fetched copy of the four collections, each in
// creation order.
type Snapshot struct {
	Classes  []Class
	Students []Student
	Payments []Payment
	Expenses []Expense
}

// StudentBill is one student's position for a week.
type StudentBill struct {
	Student     Student
	ClassName   string // empty when the student has no class
	Due         Money
	Paid        Money
	Outstanding Money
}

// PaymentLine is an in-period payment with its student resolved for display.
type PaymentLine struct {
	Payment     Payment
	StudentName string
	Known       bool
}

// WeeklySummary holds every figure derived for one week.
type WeeklySummary struct {
	Period   WeekPeriod
	Expected Money
	Payments Money
	Expenses Money
	Net      Money

	Bills        []StudentBill
	WeekPayments []PaymentLine
	WeekExpenses []Expense
}

// Due is what a student owes per week: fee minus mukafaah, never negative.
func Due(s Student) Money {
	return (s.FeePerWeek - s.MukafaahPerWeek).NonNegative()
}

// PaidBy sums the student's payments dated within the period.
func PaidBy(payments []Payment, studentID uuid.UUID, p WeekPeriod) Money {
	var total Money
	for _, pay := range payments {
		if pay.StudentID == studentID && InPeriod(pay.Date, p) {
			total += pay.Amount
		}
	}
	return total
}

// Outstanding is the unpaid part of the week's due. Overpayment is not
// carried as credit.
func Outstanding(s Student, paid Money) Money {
	return (Due(s) - paid).NonNegative()
}

// Expected sums the due of active students only.
func Expected(students []Student) Money {
	var total Money
	for _, s := range students {
		if s.Active {
			total += Due(s)
		}
	}
	return total
}

// TotalPayments sums every in-period payment, whichever student it belongs
// to, including inactive or no longer known students.
func TotalPayments(payments []Payment, p WeekPeriod) Money {
	var total Money
	for _, pay := range payments {
		if InPeriod(pay.Date, p) {
			total += pay.Amount
		}
	}
	return total
}

// TotalExpenses sums every in-period expense.
func TotalExpenses(expenses []Expense, p WeekPeriod) Money {
	var total Money
	for _, e := range expenses {
		if InPeriod(e.Date, p) {
			total += e.Amount
		}
	}
	return total
}

// Compute derives the weekly summary from a snapshot. It has no side
// effects; the same inputs always give the same result.
func Compute(s Snapshot, p WeekPeriod) WeeklySummary {
	sum := WeeklySummary{Period: p}

	classNames := make(map[uuid.UUID]string, len(s.Classes))
	for _, c := range s.Classes {
		classNames[c.ID] = c.Name
	}
	studentNames := make(map[uuid.UUID]string, len(s.Students))
	for _, st := range s.Students {
		studentNames[st.ID] = st.Name
	}

	paid := make(map[uuid.UUID]Money)
	for _, pay := range s.Payments {
		if !InPeriod(pay.Date, p) {
			continue
		}
		paid[pay.StudentID] += pay.Amount
		sum.Payments += pay.Amount

		name, ok := studentNames[pay.StudentID]
		if !ok {
			name = UnknownStudent
		}
		sum.WeekPayments = append(sum.WeekPayments, PaymentLine{Payment: pay, StudentName: name, Known: ok})
	}

	for _, e := range s.Expenses {
		if InPeriod(e.Date, p) {
			sum.Expenses += e.Amount
			sum.WeekExpenses = append(sum.WeekExpenses, e)
		}
	}

	sum.Bills = make([]StudentBill, 0, len(s.Students))
	for _, st := range s.Students {
		bill := StudentBill{
			Student:     st,
			Due:         Due(st),
			Paid:        paid[st.ID],
			Outstanding: Outstanding(st, paid[st.ID]),
		}
		if st.ClassID.Valid {
			bill.ClassName = classNames[st.ClassID.UUID]
		}
		sum.Bills = append(sum.Bills, bill)
	}

	sum.Expected = Expected(s.Students)
	sum.Net = sum.Payments - sum.Expenses
	return sum
}

// Bill returns the bill of the given student, if the student is known.
func (w WeeklySummary) Bill(studentID uuid.UUID) (StudentBill, bool) {
	for _, b := range w.Bills {
		if b.Student.ID == studentID {
			return b, true
		}
	}
	return StudentBill{}, false
}

// FindStudent looks a student up by id.
func (s Snapshot) FindStudent(id uuid.UUID) (Student, bool) {
	for _, st := range s.Students {
		if st.ID == id {
			return st, true
		}
	}
	return Student{}, false
}

// FindPayment looks a payment up by id.
func (s Snapshot) FindPayment(id uuid.UUID) (Payment, bool) {
	for _, p := range s.Payments {
		if p.ID == id {
			return p, true
		}
	}
	return Payment{}, false
}

// StudentName resolves a student's display name, falling back to
// UnknownStudent.
func (s Snapshot) StudentName(id uuid.UUID) string {
	if st, ok := s.FindStudent(id); ok {
		return st.Name
	}
	return UnknownStudent
}

// ClassGroup is a class together with its students.
type ClassGroup struct {
	Class    Class
	Students []Student
}

// GroupByClass lists every class with its students, in snapshot order.
// Students without a class, or whose class is gone, are returned separately.
func (s Snapshot) GroupByClass() (groups []ClassGroup, unassigned []Student) {
	index := make(map[uuid.UUID]int, len(s.Classes))
	groups = make([]ClassGroup, len(s.Classes))
	for i, c := range s.Classes {
		groups[i].Class = c
		index[c.ID] = i
	}
	for _, st := range s.Students {
		if st.ClassID.Valid {
			if i, ok := index[st.ClassID.UUID]; ok {
				groups[i].Students = append(groups[i].Students, st)
				continue
			}
		}
		unassigned = append(unassigned, st)
	}
	return groups, unassigned
}
