package leave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"leaveledger/internal/domain/core"
)

// EligibleFrom is the day the minimum employment period completes, or false
// when it cannot be determined because the hire date is unknown. The employee
// qualifies on the days strictly after it.
func EligibleFrom(p Policy, hireDate *time.Time) (time.Time, bool) {
	if p.MinEmploymentPeriodUnit == UnitImmediately || p.MinEmploymentPeriod == 0 {
		return time.Time{}, true
	}
	if hireDate == nil {
		return time.Time{}, false
	}
	hire := DateOf(*hireDate)
	n := p.MinEmploymentPeriod
	switch p.MinEmploymentPeriodUnit {
	case UnitDays:
		return hire.AddDate(0, 0, n), true
	case UnitWeeks:
		return hire.AddDate(0, 0, 7*n), true
	case UnitMonths:
		return hire.AddDate(0, n, 0), true
	case UnitYears:
		return hire.AddDate(n, 0, 0), true
	}
	return time.Time{}, false
}

// Eligible applies the policy's gender and minimum employment rules to an
// active employee as of today.
func Eligible(p Policy, emp core.Employee, today time.Time) bool {
	if !emp.IsActive {
		return false
	}
	if p.GenderRestriction != GenderAll && !strings.EqualFold(emp.Gender, string(p.GenderRestriction)) {
		return false
	}
	from, ok := EligibleFrom(p, emp.HireDate)
	return ok && from.Before(DateOf(today))
}

func newLedger(p Policy, employeeID string, year int) Ledger {
	return Ledger{
		OrgID:          p.OrgID,
		EmployeeID:     employeeID,
		PolicyID:       p.ID,
		Year:           year,
		InitialDays:    p.MaxDaysAllowed,
		MaxDaysAllowed: p.MaxDaysAllowed,
	}
}

// AssignDefaults allocates every default policy of the organisation to the
// listed employees (all employees when ids is empty) for the current year.
// Existing (employee, policy, year) ledgers are left alone, so repeating the
// call allocates nothing new.
func (s *Service) AssignDefaults(ctx context.Context, orgID string, employeeIDs []string) ([]Ledger, error) {
	policies, err := s.ListDefaultPolicies(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("list default policies: %w", err)
	}
	employees, err := s.employeesFor(ctx, orgID, employeeIDs)
	if err != nil {
		return nil, err
	}
	year, today := s.CurrentYear(), s.today()
	var candidates []Ledger
	for _, p := range policies {
		for _, emp := range employees {
			if Eligible(p, emp, today) {
				candidates = append(candidates, newLedger(p, emp.ID, year))
			}
		}
	}
	return s.Store.InsertLedgers(ctx, candidates)
}

// AssignToEligible allocates one policy for the current year to every
// eligible employee who does not hold it yet.
func (s *Service) AssignToEligible(ctx context.Context, orgID, policyID string) ([]Ledger, error) {
	p, err := s.Store.GetPolicy(ctx, orgID, policyID)
	if err != nil {
		return nil, err
	}
	employees, err := s.Directory.EmployeesOf(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	year, today := s.CurrentYear(), s.today()
	var candidates []Ledger
	for _, emp := range employees {
		if Eligible(p, emp, today) {
			candidates = append(candidates, newLedger(p, emp.ID, year))
		}
	}
	return s.Store.InsertLedgers(ctx, candidates)
}

// RollYear creates year ledgers from the organisation's year-1 ledgers,
// re-seeded from each policy's current allowance. Unused days are not carried
// over and the prior ledgers are left untouched. Inactive employees are
// skipped. Safe to re-run after a partial failure.
func (s *Service) RollYear(ctx context.Context, orgID string, year int) ([]Ledger, error) {
	prior, err := s.Store.ListLedgers(ctx, orgID, LedgerFilter{Year: year - 1})
	if err != nil {
		return nil, fmt.Errorf("list %d ledgers: %w", year-1, err)
	}
	if len(prior) == 0 {
		return nil, nil
	}
	employees, err := s.Directory.EmployeesOf(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	active := make(map[string]bool, len(employees))
	for _, emp := range employees {
		active[emp.ID] = emp.IsActive
	}
	policies := map[string]Policy{}
	var candidates []Ledger
	for _, l := range prior {
		if !active[l.EmployeeID] {
			continue
		}
		p, ok := policies[l.PolicyID]
		if !ok {
			p, err = s.Store.GetPolicy(ctx, orgID, l.PolicyID)
			if err != nil {
				return nil, fmt.Errorf("load policy %s: %w", l.PolicyID, err)
			}
			policies[l.PolicyID] = p
		}
		candidates = append(candidates, newLedger(p, l.EmployeeID, year))
	}
	return s.Store.InsertLedgers(ctx, candidates)
}

// RollYearAll rolls every organisation holding year-1 ledgers. One
// organisation failing does not stop the others.
func (s *Service) RollYearAll(ctx context.Context, year int) (int, error) {
	orgs, err := s.Store.OrgsWithLedgers(ctx, year-1)
	if err != nil {
		return 0, fmt.Errorf("list organisations: %w", err)
	}
	created := 0
	var errs []error
	for _, orgID := range orgs {
		ledgers, err := s.RollYear(ctx, orgID, year)
		if err != nil {
			slog.Warn("leave year rollover failed", "orgId", orgID, "year", year, "err", err)
			errs = append(errs, fmt.Errorf("org %s: %w", orgID, err))
			continue
		}
		created += len(ledgers)
	}
	return created, errors.Join(errs...)
}

func (s *Service) employeesFor(ctx context.Context, orgID string, ids []string) ([]core.Employee, error) {
	var (
		employees []core.Employee
		err       error
	)
	if len(ids) == 0 {
		employees, err = s.Directory.EmployeesOf(ctx, orgID)
	} else {
		employees, err = s.Directory.EmployeesByID(ctx, orgID, ids)
	}
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	return employees, nil
}
