package leave

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// requestCheck is the snapshot a request is validated against. It is loaded
// inside the employee unit of work so the checks and the write that follows
// see the same data.
type requestCheck struct {
	RequestID     string
	Ledger        Ledger
	Range         DateRange
	Year          int
	Pending       []Request
	LedgerTaken   []Taken
	EmployeeTaken []Taken
}

type rule func(c requestCheck) error

// Creation rules, evaluated in order; the first violation wins.
var createRules = []rule{
	checkZeroDay,
	checkFiscalYear,
	checkStartAfterEnd,
	checkDuplicatePending,
	checkCreateBalance,
	checkCreateOverlap,
}

// Approval re-runs the rules that depend on data that may have changed since
// the request was created.
var approveRules = []rule{
	checkCreateBalance,
	checkCreateOverlap,
}

func runRules(rules []rule, c requestCheck) error {
	for _, r := range rules {
		if err := r(c); err != nil {
			return err
		}
	}
	return nil
}

func checkZeroDay(c requestCheck) error {
	if c.Range.Start.After(c.Range.End) {
		return nil
	}
	if WorkingDays(c.Range.Start, c.Range.End) == 0 {
		return ruleError(CodeZeroDayRequest, "%s to %s contains no working days", fmtDate(c.Range.Start), fmtDate(c.Range.End))
	}
	return nil
}

func checkFiscalYear(c requestCheck) error {
	if c.Ledger.Year != c.Year || c.Range.Start.Year() != c.Year || c.Range.End.Year() != c.Year {
		return ruleError(CodeWrongFiscalYear, "leave can only be requested against %d ledgers for dates in %d", c.Year, c.Year)
	}
	return nil
}

func checkStartAfterEnd(c requestCheck) error {
	if c.Range.Start.After(c.Range.End) {
		return ruleError(CodeStartAfterEnd, "start date %s is after end date %s", fmtDate(c.Range.Start), fmtDate(c.Range.End))
	}
	return nil
}

func checkDuplicatePending(c requestCheck) error {
	for _, r := range c.Pending {
		if r.ID != c.RequestID && r.Status == StatusPending && r.LedgerID == c.Ledger.ID {
			return ruleError(CodeDuplicatePendingRequest, "request %s for this leave is still pending", r.ID)
		}
	}
	return nil
}

func checkCreateBalance(c requestCheck) error {
	return checkBalance(c.Ledger, c.LedgerTaken, WorkingDays(c.Range.Start, c.Range.End))
}

func checkCreateOverlap(c requestCheck) error {
	return findOverlap(c.Range, c.Pending, c.EmployeeTaken, c.RequestID)
}

func (s *Service) loadCheck(ctx context.Context, tx Tx, orgID, employeeID, ledgerID string) (requestCheck, error) {
	ledger, err := tx.GetLedger(ctx, orgID, ledgerID)
	if err != nil {
		return requestCheck{}, err
	}
	if ledger.EmployeeID != employeeID {
		return requestCheck{}, fmt.Errorf("ledger %s: %w", ledgerID, ErrNotFound)
	}
	pending, err := tx.PendingRequests(ctx, orgID, employeeID)
	if err != nil {
		return requestCheck{}, fmt.Errorf("load pending requests: %w", err)
	}
	employeeTaken, err := tx.TakenForEmployee(ctx, orgID, employeeID)
	if err != nil {
		return requestCheck{}, fmt.Errorf("load taken periods: %w", err)
	}
	var ledgerTaken []Taken
	for _, t := range employeeTaken {
		if t.LedgerID == ledger.ID {
			ledgerTaken = append(ledgerTaken, t)
		}
	}
	return requestCheck{
		Ledger:        ledger,
		Year:          s.CurrentYear(),
		Pending:       pending,
		LedgerTaken:   ledgerTaken,
		EmployeeTaken: employeeTaken,
	}, nil
}

func validateNewRequest(in NewRequest) error {
	switch {
	case strings.TrimSpace(in.LedgerID) == "":
		return &ValidationError{Field: "ledgerId", Reason: "is required"}
	case in.StartDate.IsZero():
		return &ValidationError{Field: "startDate", Reason: "is required"}
	case in.EndDate.IsZero():
		return &ValidationError{Field: "endDate", Reason: "is required"}
	}
	return nil
}

// checkReliefOfficer requires the relief officer, when named, to be another
// employee of the same organisation.
func (s *Service) checkReliefOfficer(ctx context.Context, orgID, employeeID, reliefID string) error {
	if reliefID == "" {
		return nil
	}
	if reliefID == employeeID {
		return &ValidationError{Field: "reliefOfficer", Reason: "cannot be the requesting employee"}
	}
	if _, err := s.employee(ctx, orgID, reliefID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return &ValidationError{Field: "reliefOfficer", Reason: "is not an employee of this organisation"}
		}
		return fmt.Errorf("load relief officer: %w", err)
	}
	return nil
}

// CreateRequest validates a leave request for the employee and stores it as
// PENDING. The checks and the insert run in one employee unit of work.
func (s *Service) CreateRequest(ctx context.Context, orgID, employeeID string, in NewRequest) (Request, error) {
	if err := validateNewRequest(in); err != nil {
		return Request{}, err
	}
	in.ReliefOfficer = strings.TrimSpace(in.ReliefOfficer)
	if err := s.checkReliefOfficer(ctx, orgID, employeeID, in.ReliefOfficer); err != nil {
		return Request{}, err
	}
	candidate := DateRange{Start: DateOf(in.StartDate), End: DateOf(in.EndDate)}

	var created Request
	err := s.Store.WithinEmployeeTx(ctx, orgID, employeeID, func(tx Tx) error {
		check, err := s.loadCheck(ctx, tx, orgID, employeeID, in.LedgerID)
		if err != nil {
			return err
		}
		check.Range = candidate
		if err := runRules(createRules, check); err != nil {
			return err
		}
		created, err = tx.InsertRequest(ctx, Request{
			OrgID:         orgID,
			EmployeeID:    employeeID,
			LedgerID:      check.Ledger.ID,
			StartDate:     candidate.Start,
			EndDate:       candidate.End,
			Note:          strings.TrimSpace(in.Note),
			ReliefOfficer: in.ReliefOfficer,
			Status:        StatusPending,
		})
		return err
	})
	if err != nil {
		s.recordRejection(err)
		return Request{}, err
	}
	s.record("created")
	s.notify(ctx, EventRequested, created)
	return created, nil
}

// ApproveRequest moves a PENDING request to APPROVED and records the taken
// period under the request's ledger, both or neither.
func (s *Service) ApproveRequest(ctx context.Context, orgID, requestID, actorID string) (Taken, error) {
	current, err := s.Store.GetRequest(ctx, orgID, requestID)
	if err != nil {
		return Taken{}, err
	}

	var (
		taken    Taken
		approved Request
	)
	err = s.Store.WithinEmployeeTx(ctx, orgID, current.EmployeeID, func(tx Tx) error {
		req, err := tx.GetRequest(ctx, orgID, requestID)
		if err != nil {
			return err
		}
		if req.Status != StatusPending {
			return &TransitionError{From: req.Status, To: StatusApproved}
		}
		if req.LedgerID == "" {
			return fmt.Errorf("ledger of request %s: %w", req.ID, ErrNotFound)
		}
		check, err := s.loadCheck(ctx, tx, orgID, req.EmployeeID, req.LedgerID)
		if err != nil {
			return err
		}
		check.RequestID = req.ID
		check.Range = req.Range()
		if err := runRules(approveRules, check); err != nil {
			return err
		}

		now := s.Clock.Now()
		if err := tx.SetRequestStatus(ctx, req.ID, StatusApproved, actorID, now); err != nil {
			return err
		}
		taken, err = tx.InsertTaken(ctx, Taken{
			LedgerID:   req.LedgerID,
			EmployeeID: req.EmployeeID,
			RequestID:  req.ID,
			StartDate:  req.StartDate,
			EndDate:    req.EndDate,
			Note:       req.Note,
		})
		if err != nil {
			return err
		}
		approved = req
		approved.Status = StatusApproved
		approved.DecidedBy = actorID
		approved.DecidedAt = &now
		return nil
	})
	if err != nil {
		s.recordRejection(err)
		return Taken{}, err
	}
	s.record("approved")
	s.notify(ctx, EventApproved, approved)
	return taken, nil
}

// DeclineRequest moves a PENDING request to DECLINED. Ledgers are untouched.
func (s *Service) DeclineRequest(ctx context.Context, orgID, requestID, actorID string) (Request, error) {
	current, err := s.Store.GetRequest(ctx, orgID, requestID)
	if err != nil {
		return Request{}, err
	}

	var declined Request
	err = s.Store.WithinEmployeeTx(ctx, orgID, current.EmployeeID, func(tx Tx) error {
		req, err := tx.GetRequest(ctx, orgID, requestID)
		if err != nil {
			return err
		}
		if req.Status != StatusPending {
			return &TransitionError{From: req.Status, To: StatusDeclined}
		}
		now := s.Clock.Now()
		if err := tx.SetRequestStatus(ctx, req.ID, StatusDeclined, actorID, now); err != nil {
			return err
		}
		declined = req
		declined.Status = StatusDeclined
		declined.DecidedBy = actorID
		declined.DecidedAt = &now
		return nil
	})
	if err != nil {
		s.recordRejection(err)
		return Request{}, err
	}
	s.record("declined")
	s.notify(ctx, EventDeclined, declined)
	return declined, nil
}

func (s *Service) recordRejection(err error) {
	switch KindOf(err) {
	case KindRule:
		s.record("rejected_" + RuleCode(err))
	case KindState:
		s.record("rejected_invalid_transition")
	}
}

func (s *Service) GetRequest(ctx context.Context, orgID, id string) (Request, error) {
	return s.Store.GetRequest(ctx, orgID, id)
}

func (s *Service) ListRequests(ctx context.Context, orgID string, filter RequestFilter) (RequestListResult, error) {
	if filter.Status != "" && filter.Status != StatusPending && filter.Status != StatusApproved && filter.Status != StatusDeclined {
		return RequestListResult{}, &ValidationError{Field: "status", Reason: "must be one of PENDING, APPROVED, DECLINED"}
	}
	return s.Store.ListRequests(ctx, orgID, filter)
}
