package leave

import (
	"context"
	"time"

	"leaveledger/internal/domain/core"
)

// StoreAPI persists policies, ledgers, requests and taken periods. Reads
// are scoped by organisation and report foreign rows as ErrNotFound.
type StoreAPI interface {
	CreatePolicy(ctx context.Context, p Policy) (Policy, error)
	UpdatePolicy(ctx context.Context, p Policy) (Policy, error)
	GetPolicy(ctx context.Context, orgID, id string) (Policy, error)
	ListPolicies(ctx context.Context, orgID string, filter PolicyFilter) ([]Policy, error)
	DeletePolicy(ctx context.Context, orgID, id string) error

	// InsertLedgers writes the ledgers whose (employee, policy, year) is
	// not yet taken and returns only the rows it created.
	InsertLedgers(ctx context.Context, ledgers []Ledger) ([]Ledger, error)
	GetLedger(ctx context.Context, orgID, id string) (Ledger, error)
	ListLedgers(ctx context.Context, orgID string, filter LedgerFilter) ([]Ledger, error)
	OrgsWithLedgers(ctx context.Context, year int) ([]string, error)
	TakenForLedgers(ctx context.Context, ledgerIDs []string) ([]Taken, error)
	TakenForEmployee(ctx context.Context, orgID, employeeID string) ([]Taken, error)
	ActiveTaken(ctx context.Context, orgID string, asOf time.Time) ([]Taken, error)

	GetRequest(ctx context.Context, orgID, id string) (Request, error)
	ListRequests(ctx context.Context, orgID string, filter RequestFilter) (RequestListResult, error)

	// WithinEmployeeTx runs fn in one unit of work that excludes every other
	// unit of work for the same employee. fn's writes are discarded when it
	// returns an error.
	WithinEmployeeTx(ctx context.Context, orgID, employeeID string, fn func(tx Tx) error) error
}

// Tx is the view of the store inside an employee unit of work.
type Tx interface {
	GetLedger(ctx context.Context, orgID, id string) (Ledger, error)
	GetRequest(ctx context.Context, orgID, id string) (Request, error)
	TakenForEmployee(ctx context.Context, orgID, employeeID string) ([]Taken, error)
	PendingRequests(ctx context.Context, orgID, employeeID string) ([]Request, error)
	InsertRequest(ctx context.Context, r Request) (Request, error)
	SetRequestStatus(ctx context.Context, id string, status Status, decidedBy string, decidedAt time.Time) error
	InsertTaken(ctx context.Context, t Taken) (Taken, error)
}

type LedgerFilter struct {
	EmployeeID string
	PolicyID   string
	Year       int
}

// Directory is the employee-management collaborator.
type Directory interface {
	Employee(ctx context.Context, orgID, employeeID string) (core.Employee, error)
	EmployeesOf(ctx context.Context, orgID string) ([]core.Employee, error)
	EmployeesByID(ctx context.Context, orgID string, ids []string) ([]core.Employee, error)
}
