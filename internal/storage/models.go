package storage

import "database/sql"

type Class struct {
	ID        string
	Name      string
	Note      string
	CreatedAt string
	UpdatedAt string
}

type Student struct {
	ID              string
	Name            string
	ClassID         sql.NullString
	FeePerWeek      int64
	MukafaahPerWeek int64
	Active          bool
	CreatedAt       string
	UpdatedAt       string
}

type Payment struct {
	ID        string
	StudentID string
	Date      string
	Amount    int64
	Note      string
	CreatedAt string
}

type Expense struct {
	ID        string
	Date      string
	Category  string
	Amount    int64
	Note      string
	CreatedAt string
}
