package leave

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateColor(t *testing.T) {
	for _, ok := range []string{"#fff", "#FFFFFF", "#1e88E5", "#0a0"} {
		assert.NoError(t, ValidateColor(ok), ok)
	}
	for _, bad := range []string{"", "fff", "#ffff", "#GGG", "#1234567", "#12345"} {
		assert.ErrorIs(t, ValidateColor(bad), ErrInvalidColor, bad)
	}
}

func TestEligibleFrom(t *testing.T) {
	hire := day("2024-01-31")
	cases := []struct {
		unit PeriodUnit
		n    int
		want string
	}{
		{UnitDays, 10, "2024-02-10"},
		{UnitWeeks, 2, "2024-02-14"},
		{UnitMonths, 1, "2024-03-02"},
		{UnitYears, 1, "2025-01-31"},
	}
	for _, tc := range cases {
		got, ok := EligibleFrom(Policy{MinEmploymentPeriod: tc.n, MinEmploymentPeriodUnit: tc.unit}, &hire)
		require.True(t, ok)
		assert.Equal(t, day(tc.want), got, string(tc.unit))
	}

	_, ok := EligibleFrom(Policy{MinEmploymentPeriod: 1, MinEmploymentPeriodUnit: UnitMonths}, nil)
	assert.False(t, ok)
	_, ok = EligibleFrom(Policy{MinEmploymentPeriod: 5, MinEmploymentPeriodUnit: UnitImmediately}, nil)
	assert.True(t, ok)
}

func TestBalanceMath(t *testing.T) {
	ledger := Ledger{MaxDaysAllowed: 10}
	taken := []Taken{
		{StartDate: day("2024-03-04"), EndDate: day("2024-03-08")},
		{StartDate: day("2024-03-11"), EndDate: day("2024-03-13")},
	}
	assert.Equal(t, 8, DaysTaken(taken))
	assert.Equal(t, 2, Remaining(ledger, taken))
	assert.True(t, CanConsume(ledger, taken, 2))
	assert.False(t, CanConsume(ledger, taken, 3))
	assert.ErrorIs(t, checkBalance(ledger, taken, 3), ErrBalanceExceeded)
}

func TestCreateRuleOrder(t *testing.T) {
	// A weekend range in the wrong year reports the zero-day rule first.
	c := requestCheck{
		Ledger: Ledger{ID: "l1", Year: 2024, MaxDaysAllowed: 10},
		Range:  DateRange{Start: day("2025-01-04"), End: day("2025-01-05")},
		Year:   2024,
	}
	assert.ErrorIs(t, runRules(createRules, c), ErrZeroDayRequest)

	// Duplicate pending outranks balance and overlap.
	c.Range = DateRange{Start: day("2024-03-04"), End: day("2024-03-29")}
	c.Pending = []Request{{ID: "r1", LedgerID: "l1", Status: StatusPending, StartDate: day("2024-03-05"), EndDate: day("2024-03-05")}}
	assert.ErrorIs(t, runRules(createRules, c), ErrDuplicatePendingRequest)

	// Balance outranks overlap.
	c.Pending[0].LedgerID = "l2"
	assert.ErrorIs(t, runRules(createRules, c), ErrBalanceExceeded)

	// Pending overlap is reported before taken overlap.
	c.Range = DateRange{Start: day("2024-03-04"), End: day("2024-03-06")}
	c.EmployeeTaken = []Taken{{StartDate: day("2024-03-06"), EndDate: day("2024-03-06")}}
	assert.ErrorIs(t, runRules(createRules, c), ErrOverlapsExistingRequest)

	c.Pending = nil
	assert.ErrorIs(t, runRules(createRules, c), ErrOverlapsTakenPeriod)
}

func TestApproveRulesExcludeSelf(t *testing.T) {
	self := Request{ID: "r1", LedgerID: "l1", Status: StatusPending, StartDate: day("2024-03-04"), EndDate: day("2024-03-08")}
	c := requestCheck{
		RequestID: self.ID,
		Ledger:    Ledger{ID: "l1", Year: 2024, MaxDaysAllowed: 5},
		Range:     self.Range(),
		Year:      2024,
		Pending:   []Request{self},
	}
	assert.NoError(t, runRules(approveRules, c))
}

func TestDaysElapsed(t *testing.T) {
	tk := Taken{StartDate: day("2024-03-04"), EndDate: day("2024-03-15")}
	assert.Equal(t, 0, daysElapsed(tk, day("2024-03-01")))
	assert.Equal(t, 3, daysElapsed(tk, day("2024-03-06")))
	assert.Equal(t, 5, daysElapsed(tk, day("2024-03-10")))
	assert.Equal(t, 10, daysElapsed(tk, day("2024-04-01")))
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	assert.Equal(t, []int{3, 4}, paginate(items, 2, 2))
	assert.Equal(t, []int{5}, paginate(items, 2, 4))
	assert.Equal(t, []int{}, paginate(items, 2, 9))
	assert.Equal(t, items, paginate(items, 0, 0))
}
