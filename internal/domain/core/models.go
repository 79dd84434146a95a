package core

import (
	"errors"
	"strings"
	"time"
)

var ErrNotFound = errors.New("employee not found")

// Employee is the employee-management record as the leave engine sees it.
type Employee struct {
	ID        string     `json:"id"`
	OrgID     string     `json:"orgId"`
	UserID    string     `json:"userId"`
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	Email     string     `json:"email"`
	HireDate  *time.Time `json:"hireDate,omitempty"`
	Gender    string     `json:"gender"`
	IsActive  bool       `json:"isActive"`
}

func (e Employee) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}
