package leave_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leaveledger/internal/domain/leave"
)

func TestWorkflowHappyPath(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "2024-03-01", employee("e1", "FEMALE"))
	h.dir.AddHRUser(orgID, hrUser)
	p := h.policy(t, "Annual", 10, false)
	l := h.ledger(t, "e1", p.ID)

	req, err := h.request("e1", l.ID, "2024-03-11", "2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusPending, req.Status)
	assert.Equal(t, l.ID, req.LedgerID)

	taken, err := h.svc.ApproveRequest(ctx, orgID, req.ID, hrUser)
	require.NoError(t, err)
	assert.Equal(t, req.ID, taken.RequestID)
	assert.Equal(t, l.ID, taken.LedgerID)
	assert.Equal(t, date("2024-03-11"), taken.StartDate)

	bal, err := h.svc.Balance(ctx, orgID, l.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, bal.DaysTaken)
	assert.Equal(t, 5, bal.DaysRemaining)

	stored, err := h.svc.GetRequest(ctx, orgID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, stored.Status)
	assert.Equal(t, hrUser, stored.DecidedBy)
	require.NotNil(t, stored.DecidedAt)

	events := h.notifier.Seen()
	require.Len(t, events, 2)
	assert.Equal(t, leave.EventRequested, events[0].Event)
	assert.Equal(t, leave.EventApproved, events[1].Event)
	assert.Equal(t, leave.StatusApproved, events[1].Request.Status)
	assert.Equal(t, 1, h.recorder.Count("created"))
	assert.Equal(t, 1, h.recorder.Count("approved"))
}

func TestCreateRequestRules(t *testing.T) {
	cases := []struct {
		name       string
		setup      func(t *testing.T, h *harness, ledgerID, otherLedgerID string)
		start, end string
		want       error
	}{
		{
			name:  "weekend only",
			start: "2024-03-09", end: "2024-03-10",
			want: leave.ErrZeroDayRequest,
		},
		{
			name:  "next year",
			start: "2025-01-06", end: "2025-01-07",
			want: leave.ErrWrongFiscalYear,
		},
		{
			name:  "spans new year",
			start: "2024-12-30", end: "2025-01-02",
			want: leave.ErrWrongFiscalYear,
		},
		{
			name:  "reversed",
			start: "2024-03-08", end: "2024-03-04",
			want: leave.ErrStartAfterEnd,
		},
		{
			name: "pending on same ledger",
			setup: func(t *testing.T, h *harness, ledgerID, _ string) {
				_, err := h.request("e1", ledgerID, "2024-03-04", "2024-03-05")
				require.NoError(t, err)
			},
			start: "2024-03-18", end: "2024-03-19",
			want: leave.ErrDuplicatePendingRequest,
		},
		{
			name: "balance exceeded",
			setup: func(t *testing.T, h *harness, ledgerID, _ string) {
				h.taken(t, "e1", ledgerID, "2024-03-04", "2024-03-13")
			},
			start: "2024-04-01", end: "2024-04-05",
			want: leave.ErrBalanceExceeded,
		},
		{
			name: "overlaps taken",
			setup: func(t *testing.T, h *harness, ledgerID, _ string) {
				h.taken(t, "e1", ledgerID, "2024-03-04", "2024-03-08")
			},
			start: "2024-03-06", end: "2024-03-10",
			want: leave.ErrOverlapsTakenPeriod,
		},
		{
			name: "overlaps taken on another ledger",
			setup: func(t *testing.T, h *harness, _, otherLedgerID string) {
				h.taken(t, "e1", otherLedgerID, "2024-03-04", "2024-03-08")
			},
			start: "2024-03-08", end: "2024-03-12",
			want: leave.ErrOverlapsTakenPeriod,
		},
		{
			name: "overlaps pending on another ledger",
			setup: func(t *testing.T, h *harness, _, otherLedgerID string) {
				_, err := h.request("e1", otherLedgerID, "2024-03-04", "2024-03-08")
				require.NoError(t, err)
			},
			start: "2024-03-08", end: "2024-03-12",
			want: leave.ErrOverlapsExistingRequest,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, "2024-03-01", employee("e1", "MALE"))
			annual := h.ledger(t, "e1", h.policy(t, "Annual", 10, false).ID)
			sick := h.ledger(t, "e1", h.policy(t, "Sick", 10, false).ID)
			if tc.setup != nil {
				tc.setup(t, h, annual.ID, sick.ID)
			}
			before, err := h.svc.ListRequests(context.Background(), orgID, leave.RequestFilter{})
			require.NoError(t, err)

			_, err = h.request("e1", annual.ID, tc.start, tc.end)
			require.ErrorIs(t, err, tc.want)
			assert.Equal(t, leave.KindRule, leave.KindOf(err))

			after, err := h.svc.ListRequests(context.Background(), orgID, leave.RequestFilter{})
			require.NoError(t, err)
			assert.Equal(t, before.Total, after.Total, "rejected request must not be stored")
		})
	}
}

func TestCreateRequestAgainstStaleLedger(t *testing.T) {
	h := newHarness(t, "2023-06-01", employee("e1", "MALE"))
	p := h.policy(t, "Annual", 10, false)
	stale := h.ledger(t, "e1", p.ID)

	h.setToday("2024-03-01")
	_, err := h.request("e1", stale.ID, "2024-03-04", "2024-03-05")
	require.ErrorIs(t, err, leave.ErrWrongFiscalYear)
}

func TestCreateRequestValidation(t *testing.T) {
	h := newHarness(t, "2024-03-01", employee("e1", "MALE"))
	_, err := h.svc.CreateRequest(context.Background(), orgID, "e1", leave.NewRequest{LedgerID: "x"})
	require.ErrorIs(t, err, leave.ErrValidation)

	var verr *leave.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "startDate", verr.Field)
}

func TestCreateRequestForeignLedgerIsNotFound(t *testing.T) {
	h := newHarness(t, "2024-03-01", employee("e1", "MALE"), employee("e2", "MALE"))
	p := h.policy(t, "Annual", 10, false)
	theirs := h.ledger(t, "e2", p.ID)

	_, err := h.request("e1", theirs.ID, "2024-03-04", "2024-03-05")
	require.ErrorIs(t, err, leave.ErrNotFound)

	_, err = h.svc.CreateRequest(context.Background(), otherOrg, "e2", leave.NewRequest{
		LedgerID: theirs.ID, StartDate: date("2024-03-04"), EndDate: date("2024-03-05"),
	})
	require.ErrorIs(t, err, leave.ErrNotFound)
}

func TestApproveRechecksOverlap(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "2024-03-01", employee("e1", "MALE"))
	annual := h.ledger(t, "e1", h.policy(t, "Annual", 10, false).ID)
	sick := h.ledger(t, "e1", h.policy(t, "Sick", 10, false).ID)

	req, err := h.request("e1", annual.ID, "2024-03-04", "2024-03-08")
	require.NoError(t, err)
	h.inject(t, "e1", sick.ID, "2024-03-07", "2024-03-07")

	_, err = h.svc.ApproveRequest(ctx, orgID, req.ID, hrUser)
	require.ErrorIs(t, err, leave.ErrOverlapsTakenPeriod)

	stored, err := h.svc.GetRequest(ctx, orgID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusPending, stored.Status)
	assert.Equal(t, 1, h.recorder.Count("rejected_"+leave.CodeOverlapsTakenPeriod))
}

func TestApproveRechecksBalance(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "2024-03-01", employee("e1", "MALE"))
	annual := h.ledger(t, "e1", h.policy(t, "Annual", 10, false).ID)

	req, err := h.request("e1", annual.ID, "2024-04-01", "2024-04-05")
	require.NoError(t, err)
	h.inject(t, "e1", annual.ID, "2024-03-04", "2024-03-13")

	_, err = h.svc.ApproveRequest(ctx, orgID, req.ID, hrUser)
	require.ErrorIs(t, err, leave.ErrBalanceExceeded)

	taken, err := h.store.TakenForEmployee(ctx, orgID, "e1")
	require.NoError(t, err)
	assert.Len(t, taken, 1)
}

func TestTerminalStates(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "2024-03-01", employee("e1", "MALE"))
	annual := h.ledger(t, "e1", h.policy(t, "Annual", 10, false).ID)

	req, err := h.request("e1", annual.ID, "2024-03-04", "2024-03-08")
	require.NoError(t, err)
	declined, err := h.svc.DeclineRequest(ctx, orgID, req.ID, hrUser)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusDeclined, declined.Status)

	_, err = h.svc.ApproveRequest(ctx, orgID, req.ID, hrUser)
	require.ErrorIs(t, err, leave.ErrInvalidTransition)
	assert.Equal(t, leave.KindState, leave.KindOf(err))
	_, err = h.svc.DeclineRequest(ctx, orgID, req.ID, hrUser)
	require.ErrorIs(t, err, leave.ErrInvalidTransition)

	taken, err := h.store.TakenForEmployee(ctx, orgID, "e1")
	require.NoError(t, err)
	assert.Empty(t, taken)
	bal, err := h.svc.Balance(ctx, orgID, annual.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, bal.DaysRemaining)

	// a declined request frees its slot
	_, err = h.request("e1", annual.ID, "2024-03-04", "2024-03-08")
	require.NoError(t, err)
}

func TestApprovedRequestCannotBeDeclined(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "2024-03-01", employee("e1", "MALE"))
	annual := h.ledger(t, "e1", h.policy(t, "Annual", 10, false).ID)
	req, err := h.request("e1", annual.ID, "2024-03-04", "2024-03-08")
	require.NoError(t, err)
	_, err = h.svc.ApproveRequest(ctx, orgID, req.ID, hrUser)
	require.NoError(t, err)

	_, err = h.svc.DeclineRequest(ctx, orgID, req.ID, hrUser)
	var terr *leave.TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, leave.StatusApproved, terr.From)
}

func TestDecisionOnUnknownOrForeignRequest(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "2024-03-01", employee("e1", "MALE"))
	annual := h.ledger(t, "e1", h.policy(t, "Annual", 10, false).ID)
	req, err := h.request("e1", annual.ID, "2024-03-04", "2024-03-08")
	require.NoError(t, err)

	_, err = h.svc.ApproveRequest(ctx, otherOrg, req.ID, hrUser)
	require.ErrorIs(t, err, leave.ErrNotFound)
	_, err = h.svc.DeclineRequest(ctx, orgID, "missing", hrUser)
	require.ErrorIs(t, err, leave.ErrNotFound)
}

func TestConcurrentApprovalsTakeOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "2024-03-01", employee("e1", "MALE"))
	annual := h.ledger(t, "e1", h.policy(t, "Annual", 10, false).ID)
	req, err := h.request("e1", annual.ID, "2024-03-04", "2024-03-08")
	require.NoError(t, err)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.svc.ApproveRequest(ctx, orgID, req.ID, hrUser)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, leave.ErrInvalidTransition)
	}
	assert.Equal(t, 1, succeeded)
	taken, err := h.store.TakenForEmployee(ctx, orgID, "e1")
	require.NoError(t, err)
	assert.Len(t, taken, 1)
}

func TestConcurrentCreatesNeverOverlap(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "2024-03-01", employee("e1", "MALE"))
	var ledgers []leave.Ledger
	for _, title := range []string{"Annual", "Sick", "Study", "Compassionate"} {
		ledgers = append(ledgers, h.ledger(t, "e1", h.policy(t, title, 20, false).ID))
	}

	var wg sync.WaitGroup
	for _, l := range ledgers {
		wg.Add(1)
		go func(ledgerID string) {
			defer wg.Done()
			_, _ = h.request("e1", ledgerID, "2024-03-04", "2024-03-08")
		}(l.ID)
	}
	wg.Wait()

	list, err := h.svc.ListRequests(ctx, orgID, leave.RequestFilter{EmployeeID: "e1", Status: leave.StatusPending})
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total)
}

func TestNotificationFailureKeepsRequest(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "2024-03-01", employee("e1", "MALE"))
	h.notifier.Err = errors.New("smtp down")
	annual := h.ledger(t, "e1", h.policy(t, "Annual", 10, false).ID)

	req, err := h.request("e1", annual.ID, "2024-03-04", "2024-03-08")
	require.NoError(t, err)
	stored, err := h.svc.GetRequest(ctx, orgID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusPending, stored.Status)
}

func TestOverlaps(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "2024-03-01", employee("e1", "MALE"))
	annual := h.ledger(t, "e1", h.policy(t, "Annual", 10, false).ID)
	req, err := h.request("e1", annual.ID, "2024-03-04", "2024-03-08")
	require.NoError(t, err)

	hit, err := h.svc.Overlaps(ctx, orgID, "e1", leave.DateRange{Start: date("2024-03-08"), End: date("2024-03-11")}, "")
	require.NoError(t, err)
	assert.True(t, hit)

	hit, err = h.svc.Overlaps(ctx, orgID, "e1", leave.DateRange{Start: date("2024-03-04"), End: date("2024-03-08")}, req.ID)
	require.NoError(t, err)
	assert.False(t, hit)

	hit, err = h.svc.Overlaps(ctx, orgID, "e1", leave.DateRange{Start: date("2024-03-11"), End: date("2024-03-12")}, "")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestListRequestsRejectsUnknownStatus(t *testing.T) {
	h := newHarness(t, "2024-03-01")
	_, err := h.svc.ListRequests(context.Background(), orgID, leave.RequestFilter{Status: "CANCELLED"})
	require.ErrorIs(t, err, leave.ErrValidation)
}

func TestCreateRequestReliefOfficer(t *testing.T) {
	outsider := employee("x9", "MALE")
	outsider.OrgID = otherOrg
	h := newHarness(t, "2024-03-01", employee("e1", "FEMALE"), employee("e2", "MALE"), outsider)
	p := h.policy(t, "Annual", 10, false)
	l := h.ledger(t, "e1", p.ID)

	for _, relief := range []string{"x9", "does-not-exist", "e1"} {
		t.Run(relief, func(t *testing.T) {
			_, err := h.svc.CreateRequest(context.Background(), orgID, "e1", leave.NewRequest{
				LedgerID:      l.ID,
				StartDate:     date("2024-03-11"),
				EndDate:       date("2024-03-12"),
				ReliefOfficer: relief,
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, leave.ErrValidation)
			var verr *leave.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, "reliefOfficer", verr.Field)
		})
	}

	res, err := h.store.ListRequests(context.Background(), orgID, leave.RequestFilter{EmployeeID: "e1"})
	require.NoError(t, err)
	assert.Empty(t, res.Items)

	req, err := h.svc.CreateRequest(context.Background(), orgID, "e1", leave.NewRequest{
		LedgerID:      l.ID,
		StartDate:     date("2024-03-11"),
		EndDate:       date("2024-03-12"),
		ReliefOfficer: " e2 ",
	})
	require.NoError(t, err)
	assert.Equal(t, "e2", req.ReliefOfficer)
}
