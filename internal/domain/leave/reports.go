package leave

import (
	"context"
	"fmt"
	"sort"
	"time"

	"leaveledger/internal/domain/core"
)

func (s *Service) policyIndex(ctx context.Context, orgID string) (map[string]Policy, error) {
	policies, err := s.Store.ListPolicies(ctx, orgID, PolicyFilter{})
	if err != nil {
		return nil, fmt.Errorf("list policies: %w", err)
	}
	index := make(map[string]Policy, len(policies))
	for _, p := range policies {
		index[p.ID] = p
	}
	return index, nil
}

func (s *Service) balances(ctx context.Context, orgID string, filter LedgerFilter) ([]LedgerBalance, error) {
	ledgers, err := s.Store.ListLedgers(ctx, orgID, filter)
	if err != nil {
		return nil, fmt.Errorf("list ledgers: %w", err)
	}
	if len(ledgers) == 0 {
		return []LedgerBalance{}, nil
	}
	policies, err := s.policyIndex(ctx, orgID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(ledgers))
	for _, l := range ledgers {
		ids = append(ids, l.ID)
	}
	taken, err := s.Store.TakenForLedgers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load taken periods: %w", err)
	}
	byLedger := map[string][]Taken{}
	for _, t := range taken {
		byLedger[t.LedgerID] = append(byLedger[t.LedgerID], t)
	}
	out := make([]LedgerBalance, 0, len(ledgers))
	for _, l := range ledgers {
		out = append(out, balanceOf(l, policies[l.PolicyID], byLedger[l.ID]))
	}
	return out, nil
}

// ListLedgers is the employee balance report for one year (the current year
// when year is zero), ordered by policy title.
func (s *Service) ListLedgers(ctx context.Context, orgID, employeeID string, year int) ([]LedgerBalance, error) {
	if year == 0 {
		year = s.CurrentYear()
	}
	out, err := s.balances(ctx, orgID, LedgerFilter{EmployeeID: employeeID, Year: year})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PolicyTitle < out[j].PolicyTitle })
	return out, nil
}

// BalanceReport lists every ledger of the organisation for the year with the
// employee's name, ordered by employee then policy.
func (s *Service) BalanceReport(ctx context.Context, orgID string, year int) ([]LedgerBalance, error) {
	if year == 0 {
		year = s.CurrentYear()
	}
	out, err := s.balances(ctx, orgID, LedgerFilter{Year: year})
	if err != nil {
		return nil, err
	}
	employees, err := s.Directory.EmployeesOf(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	names := make(map[string]string, len(employees))
	for _, emp := range employees {
		names[emp.ID] = emp.FullName()
	}
	for i := range out {
		out[i].EmployeeName = names[out[i].EmployeeID]
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].EmployeeName != out[j].EmployeeName {
			return out[i].EmployeeName < out[j].EmployeeName
		}
		return out[i].PolicyTitle < out[j].PolicyTitle
	})
	return out, nil
}

// ListTaken lists the employee's taken periods, newest first, with the
// working days requested and the working days elapsed so far.
func (s *Service) ListTaken(ctx context.Context, orgID, employeeID string) ([]TakenPeriod, error) {
	taken, err := s.Store.TakenForEmployee(ctx, orgID, employeeID)
	if err != nil {
		return nil, fmt.Errorf("load taken periods: %w", err)
	}
	ledgers, err := s.Store.ListLedgers(ctx, orgID, LedgerFilter{EmployeeID: employeeID})
	if err != nil {
		return nil, fmt.Errorf("list ledgers: %w", err)
	}
	policies, err := s.policyIndex(ctx, orgID)
	if err != nil {
		return nil, err
	}
	titles := make(map[string]string, len(ledgers))
	for _, l := range ledgers {
		titles[l.ID] = policies[l.PolicyID].Title
	}
	today := s.today()
	out := make([]TakenPeriod, 0, len(taken))
	for _, t := range taken {
		out = append(out, TakenPeriod{
			Taken:         t,
			PolicyTitle:   titles[t.LedgerID],
			DaysRequested: WorkingDays(t.StartDate, t.EndDate),
			DaysElapsed:   daysElapsed(t, today),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return out, nil
}

func daysElapsed(t Taken, today time.Time) int {
	if DateOf(t.StartDate).After(today) {
		return 0
	}
	end := DateOf(t.EndDate)
	if end.After(today) {
		end = today
	}
	return WorkingDays(t.StartDate, end)
}

// WhoIsOut lists the taken periods of active employees that cover asOf,
// ordered by end date then creation time.
func (s *Service) WhoIsOut(ctx context.Context, orgID string, asOf time.Time, limit, offset int) ([]OutEntry, int, error) {
	if asOf.IsZero() {
		asOf = s.today()
	}
	taken, err := s.Store.ActiveTaken(ctx, orgID, DateOf(asOf))
	if err != nil {
		return nil, 0, fmt.Errorf("load active periods: %w", err)
	}
	if len(taken) == 0 {
		return []OutEntry{}, 0, nil
	}

	var ids []string
	seen := map[string]bool{}
	for _, t := range taken {
		if !seen[t.EmployeeID] {
			seen[t.EmployeeID] = true
			ids = append(ids, t.EmployeeID)
		}
	}
	employees, err := s.Directory.EmployeesByID(ctx, orgID, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("list employees: %w", err)
	}
	active := make(map[string]core.Employee, len(employees))
	for _, emp := range employees {
		if emp.IsActive {
			active[emp.ID] = emp
		}
	}
	policies, err := s.policyIndex(ctx, orgID)
	if err != nil {
		return nil, 0, err
	}

	ledgers := map[string]Ledger{}
	var out []OutEntry
	for _, t := range taken {
		emp, ok := active[t.EmployeeID]
		if !ok {
			continue
		}
		l, ok := ledgers[t.LedgerID]
		if !ok {
			l, err = s.Store.GetLedger(ctx, orgID, t.LedgerID)
			if err != nil {
				return nil, 0, fmt.Errorf("load ledger %s: %w", t.LedgerID, err)
			}
			ledgers[t.LedgerID] = l
		}
		p := policies[l.PolicyID]
		out = append(out, OutEntry{
			EmployeeID:   emp.ID,
			EmployeeName: emp.FullName(),
			PolicyTitle:  p.Title,
			ColorTag:     p.ColorTag,
			StartDate:    t.StartDate,
			EndDate:      t.EndDate,
			CreatedAt:    t.CreatedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].EndDate.Equal(out[j].EndDate) {
			return out[i].EndDate.Before(out[j].EndDate)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	total := len(out)
	return paginate(out, limit, offset), total, nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
