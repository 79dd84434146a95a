package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"leaveledger/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

const employeeColumns = `
    id, tenant_id, COALESCE(user_id::text, ''), first_name, last_name, COALESCE(email, ''),
    hire_date, COALESCE(gender, ''), is_active`

func scanEmployee(row pgx.Row) (Employee, error) {
	var emp Employee
	err := row.Scan(&emp.ID, &emp.OrgID, &emp.UserID, &emp.FirstName, &emp.LastName, &emp.Email,
		&emp.HireDate, &emp.Gender, &emp.IsActive)
	return emp, err
}

// Employee returns one employee of the organisation. Employees of other
// organisations are reported as ErrNotFound.
func (s *Store) Employee(ctx context.Context, orgID, employeeID string) (Employee, error) {
	emp, err := scanEmployee(s.DB.QueryRow(ctx, `
    SELECT`+employeeColumns+`
    FROM employees
    WHERE tenant_id = $1 AND id = $2
  `, orgID, employeeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, ErrNotFound
	}
	if err != nil {
		return Employee{}, fmt.Errorf("load employee: %w", err)
	}
	return emp, nil
}

func (s *Store) EmployeesOf(ctx context.Context, orgID string) ([]Employee, error) {
	return s.listEmployees(ctx, `
    SELECT`+employeeColumns+`
    FROM employees
    WHERE tenant_id = $1
    ORDER BY last_name, first_name
  `, orgID)
}

// EmployeesByID loads the listed employees, silently skipping ids that do
// not belong to the organisation.
func (s *Store) EmployeesByID(ctx context.Context, orgID string, ids []string) ([]Employee, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.listEmployees(ctx, `
    SELECT`+employeeColumns+`
    FROM employees
    WHERE tenant_id = $1 AND id::text = ANY($2)
    ORDER BY last_name, first_name
  `, orgID, ids)
}

func (s *Store) listEmployees(ctx context.Context, sql string, args ...any) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

// HRUserIDs returns the users holding the HR administrator role.
func (s *Store) HRUserIDs(ctx context.Context, orgID string) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id
    FROM users
    WHERE tenant_id = $1 AND role = 'hr_admin' AND is_active
  `, orgID)
	if err != nil {
		return nil, fmt.Errorf("list hr users: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) UserEmail(ctx context.Context, orgID, userID string) (string, error) {
	var email string
	err := s.DB.QueryRow(ctx, `
    SELECT email FROM users WHERE tenant_id = $1 AND id = $2
  `, orgID, userID).Scan(&email)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return email, err
}
