package leave

import (
	"context"
	"fmt"
)

// DaysTaken sums the working days of the taken periods.
func DaysTaken(taken []Taken) int {
	total := 0
	for _, t := range taken {
		total += WorkingDays(t.StartDate, t.EndDate)
	}
	return total
}

func CanConsume(ledger Ledger, taken []Taken, days int) bool {
	return DaysTaken(taken)+days <= ledger.MaxDaysAllowed
}

func Remaining(ledger Ledger, taken []Taken) int {
	return ledger.MaxDaysAllowed - DaysTaken(taken)
}

func checkBalance(ledger Ledger, taken []Taken, days int) error {
	if CanConsume(ledger, taken, days) {
		return nil
	}
	return ruleError(CodeBalanceExceeded,
		"requested %d working days but only %d of %d remain", days, Remaining(ledger, taken), ledger.MaxDaysAllowed)
}

// Balance reports days taken and remaining for one ledger of the organisation.
func (s *Service) Balance(ctx context.Context, orgID, ledgerID string) (LedgerBalance, error) {
	ledger, err := s.Store.GetLedger(ctx, orgID, ledgerID)
	if err != nil {
		return LedgerBalance{}, err
	}
	taken, err := s.Store.TakenForLedgers(ctx, []string{ledger.ID})
	if err != nil {
		return LedgerBalance{}, fmt.Errorf("load taken periods: %w", err)
	}
	policy, err := s.Store.GetPolicy(ctx, orgID, ledger.PolicyID)
	if err != nil {
		return LedgerBalance{}, err
	}
	return balanceOf(ledger, policy, taken), nil
}

func balanceOf(ledger Ledger, policy Policy, taken []Taken) LedgerBalance {
	used := DaysTaken(taken)
	return LedgerBalance{
		LedgerID:       ledger.ID,
		EmployeeID:     ledger.EmployeeID,
		PolicyID:       policy.ID,
		PolicyTitle:    policy.Title,
		Paid:           policy.Paid,
		ColorTag:       policy.ColorTag,
		Year:           ledger.Year,
		InitialDays:    ledger.InitialDays,
		MaxDaysAllowed: ledger.MaxDaysAllowed,
		DaysTaken:      used,
		DaysRemaining:  ledger.MaxDaysAllowed - used,
	}
}
