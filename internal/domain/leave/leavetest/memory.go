// Package leavetest provides in-memory collaborators for exercising the
// leave service without Postgres.
package leavetest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"leaveledger/internal/domain/leave"
)

// Store is an in-memory leave.StoreAPI with the same uniqueness rules and
// per-employee exclusion as the Postgres store.
type Store struct {
	mu         sync.RWMutex
	policies   map[string]leave.Policy
	ledgers    map[string]leave.Ledger
	ledgerKeys map[leave.LedgerKey]string
	requests   map[string]leave.Request
	taken      map[string]leave.Taken
	lastStamp  time.Time

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

func NewStore() *Store {
	return &Store{
		policies:   map[string]leave.Policy{},
		ledgers:    map[string]leave.Ledger{},
		ledgerKeys: map[leave.LedgerKey]string{},
		requests:   map[string]leave.Request{},
		taken:      map[string]leave.Taken{},
		locks:      map[string]*sync.Mutex{},
	}
}

var _ leave.StoreAPI = (*Store)(nil)

// stamp hands out strictly increasing creation times. Callers hold mu.
func (s *Store) stamp() time.Time {
	now := time.Now().UTC()
	if !now.After(s.lastStamp) {
		now = s.lastStamp.Add(time.Microsecond)
	}
	s.lastStamp = now
	return now
}

func notFound(what, id string) error {
	return fmt.Errorf("%s %s: %w", what, id, leave.ErrNotFound)
}

func (s *Store) CreatePolicy(_ context.Context, p leave.Policy) (leave.Policy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.titleTaken(p.OrgID, p.Title, "") {
		return leave.Policy{}, &leave.RuleError{Code: leave.CodeDuplicateTitle, Reason: fmt.Sprintf("a policy titled %q already exists", p.Title)}
	}
	p.ID = uuid.NewString()
	p.CreatedAt = s.stamp()
	p.UpdatedAt = p.CreatedAt
	s.policies[p.ID] = p
	return p, nil
}

func (s *Store) titleTaken(orgID, title, exceptID string) bool {
	for _, existing := range s.policies {
		if existing.OrgID == orgID && existing.Title == title && existing.ID != exceptID {
			return true
		}
	}
	return false
}

func (s *Store) UpdatePolicy(_ context.Context, p leave.Policy) (leave.Policy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.policies[p.ID]
	if !ok || existing.OrgID != p.OrgID {
		return leave.Policy{}, notFound("policy", p.ID)
	}
	if s.titleTaken(p.OrgID, p.Title, p.ID) {
		return leave.Policy{}, &leave.RuleError{Code: leave.CodeDuplicateTitle, Reason: fmt.Sprintf("a policy titled %q already exists", p.Title)}
	}
	p.CreatedAt = existing.CreatedAt
	p.CreatedBy = existing.CreatedBy
	p.UpdatedAt = s.stamp()
	s.policies[p.ID] = p
	return p, nil
}

func (s *Store) GetPolicy(_ context.Context, orgID, id string) (leave.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.policies[id]
	if !ok || p.OrgID != orgID {
		return leave.Policy{}, notFound("policy", id)
	}
	return p, nil
}

func (s *Store) ListPolicies(_ context.Context, orgID string, filter leave.PolicyFilter) ([]leave.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	search := strings.ToLower(filter.Search)
	var out []leave.Policy
	for _, p := range s.policies {
		if p.OrgID != orgID || (filter.DefaultsOnly && !p.IsDefault) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Title), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		switch filter.Ordering {
		case "-title":
			return out[i].Title > out[j].Title
		case "created_at":
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		case "-created_at":
			return out[i].CreatedAt.After(out[j].CreatedAt)
		default:
			return out[i].Title < out[j].Title
		}
	})
	return out, nil
}

func (s *Store) DeletePolicy(_ context.Context, orgID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.policies[id]
	if !ok || p.OrgID != orgID {
		return notFound("policy", id)
	}
	for _, l := range s.ledgers {
		if l.PolicyID == id {
			return &leave.RuleError{Code: leave.CodePolicyInUse, Reason: fmt.Sprintf("policy %s is allocated to employees and cannot be deleted", id)}
		}
	}
	delete(s.policies, id)
	return nil
}

func (s *Store) InsertLedgers(_ context.Context, ledgers []leave.Ledger) ([]leave.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var created []leave.Ledger
	for _, l := range ledgers {
		if _, exists := s.ledgerKeys[l.Key()]; exists {
			continue
		}
		l.ID = uuid.NewString()
		l.CreatedAt = s.stamp()
		s.ledgers[l.ID] = l
		s.ledgerKeys[l.Key()] = l.ID
		created = append(created, l)
	}
	return created, nil
}

func (s *Store) GetLedger(_ context.Context, orgID, id string) (leave.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger(orgID, id)
}

func (s *Store) ledger(orgID, id string) (leave.Ledger, error) {
	l, ok := s.ledgers[id]
	if !ok || l.OrgID != orgID {
		return leave.Ledger{}, notFound("ledger", id)
	}
	return l, nil
}

func (s *Store) ListLedgers(_ context.Context, orgID string, filter leave.LedgerFilter) ([]leave.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []leave.Ledger
	for _, l := range s.ledgers {
		if l.OrgID != orgID ||
			(filter.EmployeeID != "" && l.EmployeeID != filter.EmployeeID) ||
			(filter.PolicyID != "" && l.PolicyID != filter.PolicyID) ||
			(filter.Year != 0 && l.Year != filter.Year) {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) OrgsWithLedgers(_ context.Context, year int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[string]bool{}
	var out []string
	for _, l := range s.ledgers {
		if l.Year == year && !seen[l.OrgID] {
			seen[l.OrgID] = true
			out = append(out, l.OrgID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) TakenForLedgers(_ context.Context, ledgerIDs []string) ([]leave.Taken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := map[string]bool{}
	for _, id := range ledgerIDs {
		want[id] = true
	}
	return s.filterTaken(func(t leave.Taken) bool { return want[t.LedgerID] }), nil
}

func (s *Store) TakenForEmployee(_ context.Context, orgID, employeeID string) ([]leave.Taken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.employeeTaken(orgID, employeeID), nil
}

func (s *Store) employeeTaken(orgID, employeeID string) []leave.Taken {
	return s.filterTaken(func(t leave.Taken) bool {
		return t.EmployeeID == employeeID && s.ledgers[t.LedgerID].OrgID == orgID
	})
}

func (s *Store) ActiveTaken(_ context.Context, orgID string, asOf time.Time) ([]leave.Taken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.filterTaken(func(t leave.Taken) bool {
		return s.ledgers[t.LedgerID].OrgID == orgID && t.Range().Contains(asOf)
	})
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].EndDate.Equal(out[j].EndDate) {
			return out[i].EndDate.Before(out[j].EndDate)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) filterTaken(keep func(leave.Taken) bool) []leave.Taken {
	var out []leave.Taken
	for _, t := range s.taken {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out
}

func (s *Store) GetRequest(_ context.Context, orgID, id string) (leave.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[id]
	if !ok || r.OrgID != orgID {
		return leave.Request{}, notFound("request", id)
	}
	return r, nil
}

func (s *Store) ListRequests(_ context.Context, orgID string, filter leave.RequestFilter) (leave.RequestListResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []leave.Request
	for _, r := range s.requests {
		if r.OrgID != orgID ||
			(filter.EmployeeID != "" && r.EmployeeID != filter.EmployeeID) ||
			(filter.Status != "" && r.Status != filter.Status) {
			continue
		}
		items = append(items, r)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	total := len(items)
	if filter.Offset >= len(items) {
		items = nil
	} else {
		items = items[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(items) {
		items = items[:filter.Limit]
	}
	return leave.RequestListResult{Items: items, Total: total}, nil
}

func (s *Store) employeeLock(orgID, employeeID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	key := orgID + ":" + employeeID
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// WithinEmployeeTx buffers fn's writes and applies them only when fn
// succeeds.
func (s *Store) WithinEmployeeTx(ctx context.Context, orgID, employeeID string, fn func(tx leave.Tx) error) error {
	lock := s.employeeLock(orgID, employeeID)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memTx{store: s, statuses: map[string]leave.Request{}}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range tx.requests {
		r.CreatedAt = s.stamp()
		s.requests[r.ID] = r
	}
	for id, r := range tx.statuses {
		s.requests[id] = r
	}
	for _, t := range tx.taken {
		t.CreatedAt = s.stamp()
		s.taken[t.ID] = t
	}
	return nil
}
