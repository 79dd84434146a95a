package leave

import (
	"context"
	"fmt"
	"time"
)

// findOverlap checks the candidate against the employee's pending requests
// first and then against taken periods. excludeRequestID lets a pending
// request be re-validated without colliding with itself.
func findOverlap(candidate DateRange, pending []Request, taken []Taken, excludeRequestID string) error {
	for _, r := range pending {
		if r.ID == excludeRequestID || r.Status != StatusPending {
			continue
		}
		if candidate.Overlaps(r.Range()) {
			return ruleError(CodeOverlapsExistingRequest,
				"period overlaps pending request %s (%s to %s)", r.ID, fmtDate(r.StartDate), fmtDate(r.EndDate))
		}
	}
	for _, t := range taken {
		if candidate.Overlaps(t.Range()) {
			return ruleError(CodeOverlapsTakenPeriod,
				"period overlaps leave taken from %s to %s", fmtDate(t.StartDate), fmtDate(t.EndDate))
		}
	}
	return nil
}

func checkOverlap(ctx context.Context, tx Tx, orgID, employeeID string, candidate DateRange, excludeRequestID string) error {
	pending, err := tx.PendingRequests(ctx, orgID, employeeID)
	if err != nil {
		return fmt.Errorf("load pending requests: %w", err)
	}
	taken, err := tx.TakenForEmployee(ctx, orgID, employeeID)
	if err != nil {
		return fmt.Errorf("load taken periods: %w", err)
	}
	return findOverlap(candidate, pending, taken, excludeRequestID)
}

// Overlaps reports whether the candidate range intersects any pending
// request or taken period of the employee, across all of their ledgers.
func (s *Service) Overlaps(ctx context.Context, orgID, employeeID string, candidate DateRange, excludeRequestID string) (bool, error) {
	overlaps := false
	err := s.Store.WithinEmployeeTx(ctx, orgID, employeeID, func(tx Tx) error {
		err := checkOverlap(ctx, tx, orgID, employeeID, candidate, excludeRequestID)
		if RuleCode(err) != "" {
			overlaps = true
			return nil
		}
		return err
	})
	return overlaps, err
}

func fmtDate(t time.Time) string {
	return t.Format("2006-01-02")
}
