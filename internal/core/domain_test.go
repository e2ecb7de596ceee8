package core

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateValidate(t *testing.T) {
	assert.NoError(t, NewDate(2024, time.February, 29).Validate())
	assert.ErrorIs(t, Date{}.Validate(), ErrInvalidDate)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2024-01-10 ")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-10", d.String())

	_, err = ParseDate("10/01/2024")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestDateIn(t *testing.T) {
	wib := time.FixedZone("WIB", 7*60*60)
	got := NewDate(2024, time.January, 14).In(wib)
	assert.Equal(t, time.Date(2024, time.January, 14, 0, 0, 0, 0, wib), got)
	assert.Equal(t, NewDate(2024, time.January, 14), DateOf(got))
}

func TestClassValidate(t *testing.T) {
	assert.NoError(t, Class{Name: "Kelas A"}.Validate())

	err := Class{Name: "   "}.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "name is required", err.Error())

	long := make([]byte, 121)
	for i := range long {
		long[i] = 'x'
	}
	err = Class{Name: string(long)}.Validate()
	assert.ErrorIs(t, err, ErrValidation)
}

func TestStudentValidate(t *testing.T) {
	tests := []struct {
		name    string
		student Student
		wantErr bool
	}{
		{"valid", Student{Name: "Ahmad", FeePerWeek: 200000, MukafaahPerWeek: 50000}, false},
		{"mukafaah above fee is allowed", Student{Name: "Budi", FeePerWeek: 100000, MukafaahPerWeek: 150000}, false},
		{"blank name", Student{Name: " ", FeePerWeek: 1}, true},
		{"negative fee", Student{Name: "Citra", FeePerWeek: -1}, true},
		{"negative mukafaah", Student{Name: "Citra", MukafaahPerWeek: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.student.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestPaymentValidate(t *testing.T) {
	good := Payment{StudentID: uuid.New(), Date: NewDate(2024, 1, 9), Amount: 100000}
	require.NoError(t, good.Validate())

	noStudent := good
	noStudent.StudentID = uuid.Nil
	err := noStudent.Validate()
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, ErrMissingStudent)

	noDate := good
	noDate.Date = Date{}
	assert.ErrorIs(t, noDate.Validate(), ErrInvalidDate)

	zero := good
	zero.Amount = 0
	err = zero.Validate()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Amount", verr.Field)
	assert.Equal(t, "gt", verr.Rule)
}

func TestExpenseValidate(t *testing.T) {
	assert.NoError(t, Expense{Date: NewDate(2024, 1, 8), Amount: 20000}.Validate())
	assert.ErrorIs(t, Expense{Date: NewDate(2024, 1, 8)}.Validate(), ErrValidation)
	assert.ErrorIs(t, Expense{Amount: 1}.Validate(), ErrInvalidDate)
}
