package leavetest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"leaveledger/internal/domain/core"
	"leaveledger/internal/domain/leave"
)

// Directory is an in-memory employee directory.
type Directory struct {
	mu        sync.RWMutex
	employees map[string]core.Employee
	hrUsers   map[string][]string
}

func NewDirectory(employees ...core.Employee) *Directory {
	d := &Directory{employees: map[string]core.Employee{}, hrUsers: map[string][]string{}}
	for _, emp := range employees {
		d.Put(emp)
	}
	return d
}

func (d *Directory) Put(emp core.Employee) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.employees[emp.ID] = emp
}

func (d *Directory) AddHRUser(orgID, userID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hrUsers[orgID] = append(d.hrUsers[orgID], userID)
}

func (d *Directory) Employee(_ context.Context, orgID, employeeID string) (core.Employee, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	emp, ok := d.employees[employeeID]
	if !ok || emp.OrgID != orgID {
		return core.Employee{}, fmt.Errorf("employee %s: %w", employeeID, core.ErrNotFound)
	}
	return emp, nil
}

func (d *Directory) EmployeesOf(_ context.Context, orgID string) ([]core.Employee, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []core.Employee
	for _, emp := range d.employees {
		if emp.OrgID == orgID {
			out = append(out, emp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (d *Directory) EmployeesByID(ctx context.Context, orgID string, ids []string) ([]core.Employee, error) {
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	all, err := d.EmployeesOf(ctx, orgID)
	if err != nil {
		return nil, err
	}
	var out []core.Employee
	for _, emp := range all {
		if want[emp.ID] {
			out = append(out, emp)
		}
	}
	return out, nil
}

func (d *Directory) HRUserIDs(_ context.Context, orgID string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string(nil), d.hrUsers[orgID]...), nil
}

// Notification is one event seen by a Notifier.
type Notification struct {
	Event   leave.Event
	Request leave.Request
}

// Notifier records events and can be told to fail.
type Notifier struct {
	mu     sync.Mutex
	Events []Notification
	Err    error
}

func (n *Notifier) Notify(_ context.Context, event leave.Event, req leave.Request) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Events = append(n.Events, Notification{Event: event, Request: req})
	return n.Err
}

func (n *Notifier) Seen() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.Events...)
}

// Recorder counts workflow outcomes.
type Recorder struct {
	mu     sync.Mutex
	Counts map[string]int
}

func (r *Recorder) RecordLeaveOutcome(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Counts == nil {
		r.Counts = map[string]int{}
	}
	r.Counts[outcome]++
}

func (r *Recorder) Count(outcome string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Counts[outcome]
}
