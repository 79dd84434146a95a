package leave_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"leaveledger/internal/domain/core"
	"leaveledger/internal/domain/leave"
	"leaveledger/internal/domain/leave/leavetest"
	"leaveledger/internal/platform/clock"
)

const (
	orgID    = "org-1"
	otherOrg = "org-2"
	hrUser   = "user-hr"
)

type harness struct {
	svc      *leave.Service
	store    *leavetest.Store
	dir      *leavetest.Directory
	notifier *leavetest.Notifier
	recorder *leavetest.Recorder
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func hired(s string) *time.Time {
	t := date(s)
	return &t
}

func employee(id, gender string) core.Employee {
	return core.Employee{
		ID:        id,
		OrgID:     orgID,
		UserID:    "user-" + id,
		FirstName: "Emp",
		LastName:  id,
		HireDate:  hired("2020-01-15"),
		Gender:    gender,
		IsActive:  true,
	}
}

func newHarness(t *testing.T, today string, employees ...core.Employee) *harness {
	t.Helper()
	h := &harness{
		store:    leavetest.NewStore(),
		dir:      leavetest.NewDirectory(employees...),
		notifier: &leavetest.Notifier{},
		recorder: &leavetest.Recorder{},
	}
	h.svc = leave.NewService(h.store, h.dir, clock.Fixed{At: date(today).Add(9 * time.Hour)})
	h.svc.Notify = h.notifier
	h.svc.Metrics = h.recorder
	return h
}

func (h *harness) setToday(today string) {
	h.svc.Clock = clock.Fixed{At: date(today).Add(9 * time.Hour)}
}

func intp(v int) *int       { return &v }
func strp(v string) *string { return &v }
func boolp(v bool) *bool    { return &v }

func (h *harness) policy(t *testing.T, title string, maxDays int, isDefault bool) leave.Policy {
	t.Helper()
	p, _, err := h.svc.CreatePolicy(context.Background(), orgID, hrUser, leave.PolicyFields{
		Title:          strp(title),
		MaxDaysAllowed: intp(maxDays),
		IsDefault:      boolp(isDefault),
	})
	require.NoError(t, err)
	return p
}

// ledger returns the current-year ledger of the employee for the policy.
func (h *harness) ledger(t *testing.T, employeeID, policyID string) leave.Ledger {
	t.Helper()
	ledgers, err := h.store.ListLedgers(context.Background(), orgID, leave.LedgerFilter{
		EmployeeID: employeeID, PolicyID: policyID, Year: h.svc.CurrentYear(),
	})
	require.NoError(t, err)
	require.Len(t, ledgers, 1)
	return ledgers[0]
}

func (h *harness) request(employeeID, ledgerID, start, end string) (leave.Request, error) {
	return h.svc.CreateRequest(context.Background(), orgID, employeeID, leave.NewRequest{
		LedgerID:  ledgerID,
		StartDate: date(start),
		EndDate:   date(end),
		Note:      "holiday",
	})
}

func (h *harness) taken(t *testing.T, employeeID, ledgerID, start, end string) {
	t.Helper()
	req, err := h.request(employeeID, ledgerID, start, end)
	require.NoError(t, err)
	_, err = h.svc.ApproveRequest(context.Background(), orgID, req.ID, hrUser)
	require.NoError(t, err)
}

// inject writes a taken period directly, bypassing the workflow.
func (h *harness) inject(t *testing.T, employeeID, ledgerID, start, end string) {
	t.Helper()
	err := h.store.WithinEmployeeTx(context.Background(), orgID, employeeID, func(tx leave.Tx) error {
		_, err := tx.InsertTaken(context.Background(), leave.Taken{
			LedgerID: ledgerID, EmployeeID: employeeID, StartDate: date(start), EndDate: date(end),
		})
		return err
	})
	require.NoError(t, err)
}
