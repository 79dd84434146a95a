package leavetest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"leaveledger/internal/domain/leave"
)

type memTx struct {
	store    *Store
	requests []leave.Request
	statuses map[string]leave.Request
	taken    []leave.Taken
}

func (t *memTx) GetLedger(ctx context.Context, orgID, id string) (leave.Ledger, error) {
	return t.store.GetLedger(ctx, orgID, id)
}

func (t *memTx) GetRequest(ctx context.Context, orgID, id string) (leave.Request, error) {
	if r, ok := t.statuses[id]; ok {
		return r, nil
	}
	for _, r := range t.requests {
		if r.ID == id && r.OrgID == orgID {
			return r, nil
		}
	}
	return t.store.GetRequest(ctx, orgID, id)
}

func (t *memTx) TakenForEmployee(ctx context.Context, orgID, employeeID string) ([]leave.Taken, error) {
	out, err := t.store.TakenForEmployee(ctx, orgID, employeeID)
	if err != nil {
		return nil, err
	}
	for _, tk := range t.taken {
		if tk.EmployeeID == employeeID {
			out = append(out, tk)
		}
	}
	return out, nil
}

func (t *memTx) PendingRequests(_ context.Context, orgID, employeeID string) ([]leave.Request, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	var out []leave.Request
	for id, r := range t.store.requests {
		if updated, ok := t.statuses[id]; ok {
			r = updated
		}
		if r.OrgID == orgID && r.EmployeeID == employeeID && r.Status == leave.StatusPending {
			out = append(out, r)
		}
	}
	for _, r := range t.requests {
		if r.OrgID == orgID && r.EmployeeID == employeeID && r.Status == leave.StatusPending {
			out = append(out, r)
		}
	}
	return out, nil
}

func (t *memTx) InsertRequest(_ context.Context, r leave.Request) (leave.Request, error) {
	r.ID = uuid.NewString()
	r.CreatedAt = time.Now().UTC()
	t.requests = append(t.requests, r)
	return r, nil
}

func (t *memTx) SetRequestStatus(ctx context.Context, id string, status leave.Status, decidedBy string, decidedAt time.Time) error {
	t.store.mu.RLock()
	r, ok := t.store.requests[id]
	t.store.mu.RUnlock()
	if !ok {
		return notFound("request", id)
	}
	if current, ok := t.statuses[id]; ok {
		r = current
	}
	if r.Status != leave.StatusPending {
		return fmt.Errorf("request %s is no longer pending: %w", id, leave.ErrInvalidTransition)
	}
	r.Status = status
	r.DecidedBy = decidedBy
	at := decidedAt
	r.DecidedAt = &at
	t.statuses[id] = r
	return nil
}

func (t *memTx) InsertTaken(ctx context.Context, tk leave.Taken) (leave.Taken, error) {
	t.store.mu.RLock()
	_, ok := t.store.ledgers[tk.LedgerID]
	t.store.mu.RUnlock()
	if !ok {
		return leave.Taken{}, notFound("ledger", tk.LedgerID)
	}
	tk.ID = uuid.NewString()
	tk.CreatedAt = time.Now().UTC()
	t.taken = append(t.taken, tk)
	return tk, nil
}
