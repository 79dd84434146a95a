package leave

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"leaveledger/internal/platform/querier"
)

const policyColumns = `
    id, tenant_id, title, description, max_days_allowed, gender, paid, is_default, color_tag,
    min_employment_period, min_employment_period_unit,
    COALESCE(created_by::text, ''), COALESCE(updated_by::text, ''), created_at, updated_at`

func scanPolicy(row pgx.Row) (Policy, error) {
	var p Policy
	err := row.Scan(&p.ID, &p.OrgID, &p.Title, &p.Description, &p.MaxDaysAllowed, &p.GenderRestriction,
		&p.Paid, &p.IsDefault, &p.ColorTag, &p.MinEmploymentPeriod, &p.MinEmploymentPeriodUnit,
		&p.CreatedBy, &p.UpdatedBy, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (s *Store) CreatePolicy(ctx context.Context, p Policy) (Policy, error) {
	created, err := scanPolicy(s.DB.QueryRow(ctx, `
    INSERT INTO leave_policies (tenant_id, title, description, max_days_allowed, gender, paid, is_default, color_tag,
                                min_employment_period, min_employment_period_unit, created_by, updated_by)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$11)
    RETURNING`+policyColumns,
		p.OrgID, p.Title, p.Description, p.MaxDaysAllowed, p.GenderRestriction, p.Paid, p.IsDefault, p.ColorTag,
		p.MinEmploymentPeriod, p.MinEmploymentPeriodUnit, nullIfEmpty(p.CreatedBy)))
	if pgCode(err) == "23505" {
		return Policy{}, ruleError(CodeDuplicateTitle, "a policy titled %q already exists", p.Title)
	}
	if err != nil {
		return Policy{}, fmt.Errorf("insert policy: %w", err)
	}
	return created, nil
}

func (s *Store) UpdatePolicy(ctx context.Context, p Policy) (Policy, error) {
	updated, err := scanPolicy(s.DB.QueryRow(ctx, `
    UPDATE leave_policies
    SET title = $3, description = $4, max_days_allowed = $5, gender = $6, paid = $7, is_default = $8,
        color_tag = $9, min_employment_period = $10, min_employment_period_unit = $11,
        updated_by = $12, updated_at = now()
    WHERE tenant_id = $1 AND id = $2
    RETURNING`+policyColumns,
		p.OrgID, p.ID, p.Title, p.Description, p.MaxDaysAllowed, p.GenderRestriction, p.Paid, p.IsDefault,
		p.ColorTag, p.MinEmploymentPeriod, p.MinEmploymentPeriodUnit, nullIfEmpty(p.UpdatedBy)))
	if pgCode(err) == "23505" {
		return Policy{}, ruleError(CodeDuplicateTitle, "a policy titled %q already exists", p.Title)
	}
	if err != nil {
		return Policy{}, notFound(err, "policy "+p.ID)
	}
	return updated, nil
}

func (s *Store) GetPolicy(ctx context.Context, orgID, id string) (Policy, error) {
	p, err := scanPolicy(s.DB.QueryRow(ctx, `
    SELECT`+policyColumns+`
    FROM leave_policies
    WHERE tenant_id = $1 AND id::text = $2
  `, orgID, id))
	if err != nil {
		return Policy{}, notFound(err, "policy "+id)
	}
	return p, nil
}

var policyOrderSQL = map[string]string{
	"":            "title",
	"title":       "title",
	"-title":      "title DESC",
	"created_at":  "created_at",
	"-created_at": "created_at DESC",
}

func (s *Store) ListPolicies(ctx context.Context, orgID string, filter PolicyFilter) ([]Policy, error) {
	order, ok := policyOrderSQL[filter.Ordering]
	if !ok {
		order = "title"
	}
	query := `
    SELECT` + policyColumns + `
    FROM leave_policies
    WHERE tenant_id = $1
      AND ($2 = '' OR title ILIKE '%' || $2 || '%' OR description ILIKE '%' || $2 || '%')
      AND (NOT $3 OR is_default)
    ORDER BY ` + order
	rows, err := s.DB.Query(ctx, query, orgID, filter.Search, filter.DefaultsOnly)
	if err != nil {
		return nil, fmt.Errorf("list policies: %w", err)
	}
	defer rows.Close()

	var out []Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) DeletePolicy(ctx context.Context, orgID, id string) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM leave_policies WHERE tenant_id = $1 AND id::text = $2", orgID, id)
	if pgCode(err) == "23503" {
		return ruleError(CodePolicyInUse, "policy %s is allocated to employees and cannot be deleted", id)
	}
	if err != nil {
		return fmt.Errorf("delete policy: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("policy %s: %w", id, ErrNotFound)
	}
	return nil
}

const ledgerColumns = `id, tenant_id, employee_id, policy_id, year, initial_days, max_days_allowed, created_at`

func scanLedger(row pgx.Row) (Ledger, error) {
	var l Ledger
	err := row.Scan(&l.ID, &l.OrgID, &l.EmployeeID, &l.PolicyID, &l.Year, &l.InitialDays, &l.MaxDaysAllowed, &l.CreatedAt)
	return l, err
}

// InsertLedgers relies on the (employee_id, policy_id, year) unique index:
// conflicting rows are skipped, not duplicated.
func (s *Store) InsertLedgers(ctx context.Context, ledgers []Ledger) ([]Ledger, error) {
	var created []Ledger
	for _, l := range ledgers {
		row, err := scanLedger(s.DB.QueryRow(ctx, `
      INSERT INTO leave_ledgers (tenant_id, employee_id, policy_id, year, initial_days, max_days_allowed)
      VALUES ($1,$2,$3,$4,$5,$6)
      ON CONFLICT (employee_id, policy_id, year) DO NOTHING
      RETURNING `+ledgerColumns,
			l.OrgID, l.EmployeeID, l.PolicyID, l.Year, l.InitialDays, l.MaxDaysAllowed))
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return created, fmt.Errorf("insert ledger: %w", err)
		}
		created = append(created, row)
	}
	return created, nil
}

func getLedger(ctx context.Context, q querier.Querier, orgID, id string) (Ledger, error) {
	l, err := scanLedger(q.QueryRow(ctx, `
    SELECT `+ledgerColumns+`
    FROM leave_ledgers
    WHERE tenant_id = $1 AND id::text = $2
  `, orgID, id))
	if err != nil {
		return Ledger{}, notFound(err, "ledger "+id)
	}
	return l, nil
}

func (s *Store) GetLedger(ctx context.Context, orgID, id string) (Ledger, error) {
	return getLedger(ctx, s.DB, orgID, id)
}

func (s *Store) ListLedgers(ctx context.Context, orgID string, filter LedgerFilter) ([]Ledger, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+ledgerColumns+`
    FROM leave_ledgers
    WHERE tenant_id = $1
      AND ($2 = '' OR employee_id::text = $2)
      AND ($3 = '' OR policy_id::text = $3)
      AND ($4 = 0 OR year = $4)
    ORDER BY year, created_at
  `, orgID, filter.EmployeeID, filter.PolicyID, filter.Year)
	if err != nil {
		return nil, fmt.Errorf("list ledgers: %w", err)
	}
	defer rows.Close()

	var out []Ledger
	for rows.Next() {
		l, err := scanLedger(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) OrgsWithLedgers(ctx context.Context, year int) ([]string, error) {
	rows, err := s.DB.Query(ctx, "SELECT DISTINCT tenant_id::text FROM leave_ledgers WHERE year = $1", year)
	if err != nil {
		return nil, fmt.Errorf("list ledger organisations: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

const takenColumns = `id, ledger_id, employee_id, COALESCE(request_id::text, ''), start_date, end_date, note, created_at`

func scanTakenRows(rows pgx.Rows) ([]Taken, error) {
	defer rows.Close()
	var out []Taken
	for rows.Next() {
		var t Taken
		if err := rows.Scan(&t.ID, &t.LedgerID, &t.EmployeeID, &t.RequestID, &t.StartDate, &t.EndDate, &t.Note, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func takenForLedgers(ctx context.Context, q querier.Querier, ledgerIDs []string) ([]Taken, error) {
	if len(ledgerIDs) == 0 {
		return nil, nil
	}
	rows, err := q.Query(ctx, `
    SELECT `+takenColumns+`
    FROM leave_taken
    WHERE ledger_id::text = ANY($1)
    ORDER BY start_date
  `, ledgerIDs)
	if err != nil {
		return nil, err
	}
	return scanTakenRows(rows)
}

func (s *Store) TakenForLedgers(ctx context.Context, ledgerIDs []string) ([]Taken, error) {
	return takenForLedgers(ctx, s.DB, ledgerIDs)
}

func takenForEmployee(ctx context.Context, q querier.Querier, orgID, employeeID string) ([]Taken, error) {
	rows, err := q.Query(ctx, `
    SELECT `+takenColumns+`
    FROM leave_taken
    WHERE tenant_id = $1 AND employee_id::text = $2
    ORDER BY start_date
  `, orgID, employeeID)
	if err != nil {
		return nil, err
	}
	return scanTakenRows(rows)
}

func (s *Store) TakenForEmployee(ctx context.Context, orgID, employeeID string) ([]Taken, error) {
	return takenForEmployee(ctx, s.DB, orgID, employeeID)
}

func (s *Store) ActiveTaken(ctx context.Context, orgID string, asOf time.Time) ([]Taken, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+takenColumns+`
    FROM leave_taken
    WHERE tenant_id = $1 AND start_date <= $2 AND end_date >= $2
    ORDER BY end_date, created_at
  `, orgID, asOf)
	if err != nil {
		return nil, err
	}
	return scanTakenRows(rows)
}

func insertTaken(ctx context.Context, q querier.Querier, t Taken) (Taken, error) {
	err := q.QueryRow(ctx, `
    INSERT INTO leave_taken (tenant_id, ledger_id, employee_id, request_id, start_date, end_date, note)
    SELECT l.tenant_id, l.id, $2, $3, $4, $5, $6
    FROM leave_ledgers l
    WHERE l.id = $1
    RETURNING id, created_at
  `, t.LedgerID, t.EmployeeID, nullIfEmpty(t.RequestID), t.StartDate, t.EndDate, t.Note).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return Taken{}, notFound(err, "ledger "+t.LedgerID)
	}
	return t, nil
}

const requestColumns = `
    id, tenant_id, employee_id, COALESCE(ledger_id::text, ''), start_date, end_date, note,
    COALESCE(relief_officer::text, ''), status, COALESCE(decided_by::text, ''), decided_at, created_at`

func scanRequest(row pgx.Row) (Request, error) {
	var r Request
	err := row.Scan(&r.ID, &r.OrgID, &r.EmployeeID, &r.LedgerID, &r.StartDate, &r.EndDate, &r.Note,
		&r.ReliefOfficer, &r.Status, &r.DecidedBy, &r.DecidedAt, &r.CreatedAt)
	return r, err
}

func getRequest(ctx context.Context, q querier.Querier, orgID, id string, forUpdate bool) (Request, error) {
	query := `
    SELECT` + requestColumns + `
    FROM leave_requests
    WHERE tenant_id = $1 AND id::text = $2`
	if forUpdate {
		query += " FOR UPDATE"
	}
	r, err := scanRequest(q.QueryRow(ctx, query, orgID, id))
	if err != nil {
		return Request{}, notFound(err, "request "+id)
	}
	return r, nil
}

func (s *Store) GetRequest(ctx context.Context, orgID, id string) (Request, error) {
	return getRequest(ctx, s.DB, orgID, id, false)
}

func (s *Store) ListRequests(ctx context.Context, orgID string, filter RequestFilter) (RequestListResult, error) {
	var total int
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM leave_requests
    WHERE tenant_id = $1 AND ($2 = '' OR employee_id::text = $2) AND ($3 = '' OR status = $3)
  `, orgID, filter.EmployeeID, string(filter.Status)).Scan(&total); err != nil {
		return RequestListResult{}, fmt.Errorf("count requests: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.Query(ctx, `
    SELECT`+requestColumns+`
    FROM leave_requests
    WHERE tenant_id = $1 AND ($2 = '' OR employee_id::text = $2) AND ($3 = '' OR status = $3)
    ORDER BY created_at DESC
    LIMIT $4 OFFSET $5
  `, orgID, filter.EmployeeID, string(filter.Status), limit, filter.Offset)
	if err != nil {
		return RequestListResult{}, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	out := RequestListResult{Total: total}
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return RequestListResult{}, err
		}
		out.Items = append(out.Items, r)
	}
	return out, rows.Err()
}

func pendingRequests(ctx context.Context, q querier.Querier, orgID, employeeID string) ([]Request, error) {
	rows, err := q.Query(ctx, `
    SELECT`+requestColumns+`
    FROM leave_requests
    WHERE tenant_id = $1 AND employee_id::text = $2 AND status = $3
    ORDER BY created_at
  `, orgID, employeeID, string(StatusPending))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func insertRequest(ctx context.Context, q querier.Querier, r Request) (Request, error) {
	err := q.QueryRow(ctx, `
    INSERT INTO leave_requests (tenant_id, employee_id, ledger_id, start_date, end_date, note, relief_officer, status)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    RETURNING id, created_at
  `, r.OrgID, r.EmployeeID, r.LedgerID, r.StartDate, r.EndDate, r.Note, nullIfEmpty(strings.TrimSpace(r.ReliefOfficer)), string(r.Status)).
		Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		return Request{}, fmt.Errorf("insert request: %w", err)
	}
	return r, nil
}

func setRequestStatus(ctx context.Context, q querier.Querier, id string, status Status, decidedBy string, decidedAt time.Time) error {
	tag, err := q.Exec(ctx, `
    UPDATE leave_requests
    SET status = $2, decided_by = $3, decided_at = $4
    WHERE id = $1 AND status = $5
  `, id, string(status), nullIfEmpty(decidedBy), decidedAt, string(StatusPending))
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("request %s is no longer pending: %w", id, ErrInvalidTransition)
	}
	return nil
}
