package leave_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leaveledger/internal/domain/core"
	"leaveledger/internal/domain/leave"
	"leaveledger/internal/platform/clock"
	"leaveledger/internal/platform/config"
	"leaveledger/internal/platform/db"
	"leaveledger/migrations"
)

type pgHarness struct {
	pool  *pgxpool.Pool
	svc   *leave.Service
	orgID string
}

// newPGHarness migrates the database behind TEST_DATABASE_URL and scopes the
// test to a fresh organisation so runs never see each other's rows.
func newPGHarness(t *testing.T, today string) *pgHarness {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := db.Connect(ctx, config.Config{DatabaseURL: dbURL})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, db.Migrate(ctx, pool, migrations.FS))

	svc := leave.NewService(leave.NewStore(pool), core.NewStore(pool), clock.Fixed{At: date(today).Add(9 * time.Hour)})
	return &pgHarness{pool: pool, svc: svc, orgID: "org-" + uuid.NewString()}
}

func (h *pgHarness) employee(t *testing.T, name string) string {
	t.Helper()
	var id string
	err := h.pool.QueryRow(context.Background(), `
    INSERT INTO employees (tenant_id, first_name, last_name, hire_date, gender)
    VALUES ($1, $2, 'Test', '2020-01-06', 'FEMALE')
    RETURNING id
  `, h.orgID, name).Scan(&id)
	require.NoError(t, err)
	return id
}

func (h *pgHarness) count(t *testing.T, sql string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, h.pool.QueryRow(context.Background(), sql, args...).Scan(&n))
	return n
}

// pendingRequest inserts a PENDING row directly, bypassing the creation rules,
// to set up states only concurrent callers could otherwise reach.
func (h *pgHarness) pendingRequest(t *testing.T, employeeID, ledgerID, start, end string) string {
	t.Helper()
	var id string
	err := h.pool.QueryRow(context.Background(), `
    INSERT INTO leave_requests (tenant_id, employee_id, ledger_id, start_date, end_date)
    VALUES ($1, $2, $3, $4, $5)
    RETURNING id
  `, h.orgID, employeeID, ledgerID, date(start), date(end)).Scan(&id)
	require.NoError(t, err)
	return id
}

func (h *pgHarness) ledgerOf(t *testing.T, employeeID, policyID string) leave.Ledger {
	t.Helper()
	ledgers, err := h.svc.Store.ListLedgers(context.Background(), h.orgID, leave.LedgerFilter{EmployeeID: employeeID, Year: h.svc.CurrentYear()})
	require.NoError(t, err)
	for _, l := range ledgers {
		if l.PolicyID == policyID {
			return l
		}
	}
	t.Fatalf("no ledger for employee %s and policy %s", employeeID, policyID)
	return leave.Ledger{}
}

func TestPGAllocationIsIdempotent(t *testing.T) {
	h := newPGHarness(t, "2026-03-02")
	ctx := context.Background()
	ada, bob := h.employee(t, "Ada"), h.employee(t, "Bob")

	annual, created, err := h.svc.CreatePolicy(ctx, h.orgID, hrUser, leave.PolicyFields{
		Title: strp("Annual"), MaxDaysAllowed: intp(20), IsDefault: boolp(true),
	})
	require.NoError(t, err)
	require.Len(t, created, 2)

	for i := 0; i < 2; i++ {
		again, err := h.svc.AssignDefaults(ctx, h.orgID, []string{ada, bob})
		require.NoError(t, err)
		assert.Empty(t, again)
	}
	assert.Equal(t, 2, h.count(t, `SELECT count(*) FROM leave_ledgers WHERE tenant_id = $1 AND year = 2026`, h.orgID))

	h.svc.Clock = clock.Fixed{At: date("2027-01-04").Add(9 * time.Hour)}
	rolled, err := h.svc.RollYear(ctx, h.orgID, 2027)
	require.NoError(t, err)
	assert.Len(t, rolled, 2)
	rolled, err = h.svc.RollYear(ctx, h.orgID, 2027)
	require.NoError(t, err)
	assert.Empty(t, rolled)
	assert.Equal(t, 2, h.count(t, `
    SELECT count(*) FROM leave_ledgers WHERE tenant_id = $1 AND policy_id = $2 AND year = 2027
  `, h.orgID, annual.ID))
}

func TestPGPolicyConstraints(t *testing.T) {
	h := newPGHarness(t, "2026-03-02")
	ctx := context.Background()
	h.employee(t, "Ada")

	annual, _, err := h.svc.CreatePolicy(ctx, h.orgID, hrUser, leave.PolicyFields{
		Title: strp("Annual"), MaxDaysAllowed: intp(20),
	})
	require.NoError(t, err)

	_, _, err = h.svc.CreatePolicy(ctx, h.orgID, hrUser, leave.PolicyFields{
		Title: strp("Annual"), MaxDaysAllowed: intp(5),
	})
	assert.ErrorIs(t, err, leave.ErrDuplicateTitle)

	err = h.svc.DeletePolicy(ctx, h.orgID, annual.ID)
	assert.ErrorIs(t, err, leave.ErrPolicyInUse)
	assert.Equal(t, 1, h.count(t, `SELECT count(*) FROM leave_policies WHERE id = $1`, annual.ID))

	// the same title is free in another organisation
	other := *h
	other.orgID = "org-" + uuid.NewString()
	_, _, err = other.svc.CreatePolicy(ctx, other.orgID, hrUser, leave.PolicyFields{
		Title: strp("Annual"), MaxDaysAllowed: intp(5),
	})
	assert.NoError(t, err)
}

func TestPGConcurrentCreateKeepsOnePending(t *testing.T) {
	h := newPGHarness(t, "2026-03-02")
	ctx := context.Background()
	ada := h.employee(t, "Ada")
	annual, _, err := h.svc.CreatePolicy(ctx, h.orgID, hrUser, leave.PolicyFields{
		Title: strp("Annual"), MaxDaysAllowed: intp(20),
	})
	require.NoError(t, err)
	ledger := h.ledgerOf(t, ada, annual.ID)

	ranges := [][2]string{{"2026-03-09", "2026-03-10"}, {"2026-04-06", "2026-04-07"}}
	errs := make([]error, len(ranges))
	var wg sync.WaitGroup
	for i, r := range ranges {
		wg.Add(1)
		go func(i int, start, end string) {
			defer wg.Done()
			_, errs[i] = h.svc.CreateRequest(ctx, h.orgID, ada, leave.NewRequest{
				LedgerID: ledger.ID, StartDate: date(start), EndDate: date(end),
			})
		}(i, r[0], r[1])
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, leave.ErrDuplicatePendingRequest)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, h.count(t, `
    SELECT count(*) FROM leave_requests WHERE tenant_id = $1 AND employee_id = $2 AND status = 'PENDING'
  `, h.orgID, ada))
}

func TestPGConcurrentApprovalsRespectBalance(t *testing.T) {
	h := newPGHarness(t, "2026-03-02")
	ctx := context.Background()
	ada := h.employee(t, "Ada")
	annual, _, err := h.svc.CreatePolicy(ctx, h.orgID, hrUser, leave.PolicyFields{
		Title: strp("Annual"), MaxDaysAllowed: intp(8),
	})
	require.NoError(t, err)
	ledger := h.ledgerOf(t, ada, annual.ID)

	// five working days each against an eight day allowance
	ids := []string{
		h.pendingRequest(t, ada, ledger.ID, "2026-03-09", "2026-03-13"),
		h.pendingRequest(t, ada, ledger.ID, "2026-03-23", "2026-03-27"),
	}
	errs := make([]error, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = h.svc.ApproveRequest(ctx, h.orgID, id, hrUser)
		}(i, id)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, leave.ErrBalanceExceeded)
	}
	assert.Equal(t, 1, succeeded)

	bal, err := h.svc.Balance(ctx, h.orgID, ledger.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, bal.DaysTaken)
	assert.Equal(t, 3, bal.DaysRemaining)
	assert.Equal(t, 1, h.count(t, `SELECT count(*) FROM leave_taken WHERE ledger_id = $1`, ledger.ID))
}

func TestPGApproveTwiceRecordsOneTaken(t *testing.T) {
	h := newPGHarness(t, "2026-03-02")
	ctx := context.Background()
	ada := h.employee(t, "Ada")
	annual, _, err := h.svc.CreatePolicy(ctx, h.orgID, hrUser, leave.PolicyFields{
		Title: strp("Annual"), MaxDaysAllowed: intp(20),
	})
	require.NoError(t, err)
	req, err := h.svc.CreateRequest(ctx, h.orgID, ada, leave.NewRequest{
		LedgerID: h.ledgerOf(t, ada, annual.ID).ID, StartDate: date("2026-03-09"), EndDate: date("2026-03-11"),
	})
	require.NoError(t, err)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.svc.ApproveRequest(ctx, h.orgID, req.ID, hrUser)
		}(i)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			failures++
			assert.ErrorIs(t, err, leave.ErrInvalidTransition)
		}
	}
	assert.Equal(t, 1, failures)
	assert.Equal(t, 1, h.count(t, `SELECT count(*) FROM leave_taken WHERE request_id = $1`, req.ID))

	stored, err := h.svc.GetRequest(ctx, h.orgID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, stored.Status)
	assert.Equal(t, hrUser, stored.DecidedBy)
}

func TestPGReliefOfficerMustBeColleague(t *testing.T) {
	h := newPGHarness(t, "2026-03-02")
	ctx := context.Background()
	ada, bob := h.employee(t, "Ada"), h.employee(t, "Bob")
	annual, _, err := h.svc.CreatePolicy(ctx, h.orgID, hrUser, leave.PolicyFields{
		Title: strp("Annual"), MaxDaysAllowed: intp(20),
	})
	require.NoError(t, err)
	ledger := h.ledgerOf(t, ada, annual.ID)

	_, err = h.svc.CreateRequest(ctx, h.orgID, ada, leave.NewRequest{
		LedgerID: ledger.ID, StartDate: date("2026-03-09"), EndDate: date("2026-03-10"), ReliefOfficer: uuid.NewString(),
	})
	assert.ErrorIs(t, err, leave.ErrValidation)

	req, err := h.svc.CreateRequest(ctx, h.orgID, ada, leave.NewRequest{
		LedgerID: ledger.ID, StartDate: date("2026-03-09"), EndDate: date("2026-03-10"), ReliefOfficer: bob,
	})
	require.NoError(t, err)
	assert.Equal(t, bob, req.ReliefOfficer)
}
