package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/patient-import/internal/inference"
	"github.com/ginjaninja78/patient-import/internal/types"
)

func TestValidateHeaders_MissingIDAndName(t *testing.T) {
	report := ValidateHeaders([]string{"Age", "Email"})

	assert.False(t, report.Valid)
	assert.Contains(t, report.Missing, CategoryID)
	assert.Contains(t, report.Missing, CategoryName)
	assert.True(t, report.HasAge())

	err := report.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidationFailure))
	assert.Contains(t, err.Error(), "id")
	assert.Contains(t, err.Error(), "name")

	var fe *FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, []string{CategoryID, CategoryName}, fe.Missing)
}

func TestValidateHeaders_AgeIsInformational(t *testing.T) {
	report := ValidateHeaders([]string{"Patient Code", "Full Name"})

	assert.True(t, report.Valid)
	assert.Equal(t, []string{CategoryAge}, report.Missing)
	assert.False(t, report.HasAge())
	assert.NoError(t, report.Err())
}

func TestValidateHeaders_FirstLastPair(t *testing.T) {
	assert.True(t, ValidateHeaders([]string{"ID", "Given", "Family", "Date of Birth"}).Valid)
	assert.True(t, ValidateHeaders([]string{"ID", "First", "Surname"}).Valid)

	onlyFirst := ValidateHeaders([]string{"ID", "First"})
	assert.False(t, onlyFirst.Valid)
	assert.Equal(t, []string{CategoryName, CategoryAge}, onlyFirst.Missing)
}

func TestValidateRecord(t *testing.T) {
	good := types.PatientRecord{
		Code:         "PX-JD-0000001",
		FirstName:    "John",
		Sex:          types.SexMale,
		Email:        "j@example.com",
		Transactions: []string{"TX25-04-00001"},
	}
	assert.Empty(t, ValidateRecord(good, 0, 2))

	bad := good.Clone()
	bad.Code = "PX3"
	bad.FirstName = ""
	bad.Age = -1
	bad.Sex = "Other"
	bad.Email = "nope"
	bad.Transactions = []string{"TX25-04-00001", "TX25-04-00001", "T1"}

	errs := ValidateRecord(bad, 4, 6)
	result := Summarize(errs)

	assert.False(t, result.IsValid)
	assert.Equal(t, 4, result.ErrorCount)
	assert.Equal(t, 3, result.WarningCount)
	for _, e := range errs {
		assert.Equal(t, 4, e.Index)
		assert.Equal(t, 6, e.RowNumber)
	}
	assert.Len(t, ForIndex(errs, 4), len(errs))
	assert.Empty(t, ForIndex(errs, 0))
}

func TestValidationError_Error(t *testing.T) {
	e := Warning(RuleFallback, "age", "abc", "age is not a number")
	e.RowNumber = 3

	assert.True(t, e.IsWarning())
	assert.Equal(t, "[WARNING] Row 3, Field 'age': age is not a number (value: 'abc')", e.Error())
}

func TestValidateRowNames(t *testing.T) {
	headers := []string{"Patient ID", "Full Name", "Age"}
	rows := []types.RawRow{
		types.NewRawRow(headers, []string{"PX-AB12", "Ann Bell", "30"}, 2),
		types.NewRawRow(headers, []string{"PX-CD3", "  ", "40"}, 3),
		types.NewRawRow(headers, []string{"PX-EF4", "Eve Ford", "50"}, 4),
	}

	err := ValidateRowNames(rows, inference.DefaultAliasTable())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidationFailure)

	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, []int{3}, fe.Rows)
	assert.Equal(t, "missing required column categories: name; no name could be inferred on line(s) 3", err.Error())

	assert.NoError(t, ValidateRowNames(rows[:1], inference.DefaultAliasTable()))
}

func TestValidateRowNames_FirstOrLastIsEnough(t *testing.T) {
	headers := []string{"ID", "First Name", "Last Name"}
	rows := []types.RawRow{
		types.NewRawRow(headers, []string{"1", "Cher", ""}, 2),
		types.NewRawRow(headers, []string{"2", "", "Dunn"}, 3),
	}
	assert.NoError(t, ValidateRowNames(rows, inference.DefaultAliasTable()))
}
