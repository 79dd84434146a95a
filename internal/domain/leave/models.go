package leave

import "time"

type Gender string

const (
	GenderAll    Gender = "ALL"
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
)

type PeriodUnit string

const (
	UnitImmediately PeriodUnit = "IMMEDIATELY"
	UnitDays        PeriodUnit = "DAYS"
	UnitWeeks       PeriodUnit = "WEEKS"
	UnitMonths      PeriodUnit = "MONTHS"
	UnitYears       PeriodUnit = "YEARS"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusDeclined Status = "DECLINED"
)

type Policy struct {
	ID                      string     `json:"id"`
	OrgID                   string     `json:"orgId"`
	Title                   string     `json:"title"`
	Description             string     `json:"description"`
	MaxDaysAllowed          int        `json:"maxDaysAllowed"`
	GenderRestriction       Gender     `json:"gender"`
	Paid                    bool       `json:"paid"`
	IsDefault               bool       `json:"isDefault"`
	ColorTag                string     `json:"colorTag"`
	MinEmploymentPeriod     int        `json:"minEmploymentPeriod"`
	MinEmploymentPeriodUnit PeriodUnit `json:"minEmploymentPeriodUnit"`
	CreatedBy               string     `json:"createdBy,omitempty"`
	UpdatedBy               string     `json:"updatedBy,omitempty"`
	CreatedAt               time.Time  `json:"createdAt"`
	UpdatedAt               time.Time  `json:"updatedAt"`
}

// PolicyFields is the writable surface of a policy. Nil pointers leave the
// stored value untouched on update.
type PolicyFields struct {
	Title                   *string     `json:"title"`
	Description             *string     `json:"description"`
	MaxDaysAllowed          *int        `json:"maxDaysAllowed"`
	GenderRestriction       *Gender     `json:"gender"`
	Paid                    *bool       `json:"paid"`
	IsDefault               *bool       `json:"isDefault"`
	ColorTag                *string     `json:"colorTag"`
	MinEmploymentPeriod     *int        `json:"minEmploymentPeriod"`
	MinEmploymentPeriodUnit *PeriodUnit `json:"minEmploymentPeriodUnit"`
}

type PolicyFilter struct {
	Search       string
	Ordering     string
	DefaultsOnly bool
}

// Ledger is one employee's allowance of one policy for one year. The day
// counts are snapshots taken when the ledger is allocated.
type Ledger struct {
	ID             string    `json:"id"`
	OrgID          string    `json:"orgId"`
	EmployeeID     string    `json:"employeeId"`
	PolicyID       string    `json:"policyId"`
	Year           int       `json:"year"`
	InitialDays    int       `json:"initialDays"`
	MaxDaysAllowed int       `json:"maxDaysAllowed"`
	CreatedAt      time.Time `json:"createdAt"`
}

type LedgerKey struct {
	EmployeeID string
	PolicyID   string
	Year       int
}

func (l Ledger) Key() LedgerKey {
	return LedgerKey{EmployeeID: l.EmployeeID, PolicyID: l.PolicyID, Year: l.Year}
}

type Request struct {
	ID            string     `json:"id"`
	OrgID         string     `json:"orgId"`
	EmployeeID    string     `json:"employeeId"`
	LedgerID      string     `json:"ledgerId,omitempty"`
	StartDate     time.Time  `json:"startDate"`
	EndDate       time.Time  `json:"endDate"`
	Note          string     `json:"note"`
	ReliefOfficer string     `json:"reliefOfficer,omitempty"`
	Status        Status     `json:"status"`
	DecidedBy     string     `json:"decidedBy,omitempty"`
	DecidedAt     *time.Time `json:"decidedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func (r Request) Range() DateRange {
	return DateRange{Start: r.StartDate, End: r.EndDate}
}

type Taken struct {
	ID         string    `json:"id"`
	LedgerID   string    `json:"ledgerId"`
	EmployeeID string    `json:"employeeId"`
	RequestID  string    `json:"requestId,omitempty"`
	StartDate  time.Time `json:"startDate"`
	EndDate    time.Time `json:"endDate"`
	Note       string    `json:"note"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (t Taken) Range() DateRange {
	return DateRange{Start: t.StartDate, End: t.EndDate}
}

type NewRequest struct {
	LedgerID      string
	StartDate     time.Time
	EndDate       time.Time
	Note          string
	ReliefOfficer string
}

// LedgerBalance is one row of the balance report.
type LedgerBalance struct {
	LedgerID       string `json:"ledgerId"`
	EmployeeID     string `json:"employeeId"`
	EmployeeName   string `json:"employeeName,omitempty"`
	PolicyID       string `json:"policyId"`
	PolicyTitle    string `json:"policyTitle"`
	Paid           bool   `json:"paid"`
	ColorTag       string `json:"colorTag"`
	Year           int    `json:"year"`
	InitialDays    int    `json:"initialDays"`
	MaxDaysAllowed int    `json:"maxDaysAllowed"`
	DaysTaken      int    `json:"daysTaken"`
	DaysRemaining  int    `json:"daysRemaining"`
}

type TakenPeriod struct {
	Taken
	PolicyTitle   string `json:"policyTitle"`
	DaysRequested int    `json:"daysRequested"`
	DaysElapsed   int    `json:"daysElapsed"`
}

type OutEntry struct {
	EmployeeID   string    `json:"employeeId"`
	EmployeeName string    `json:"employeeName"`
	PolicyTitle  string    `json:"policyTitle"`
	ColorTag     string    `json:"colorTag"`
	StartDate    time.Time `json:"startDate"`
	EndDate      time.Time `json:"endDate"`
	CreatedAt    time.Time `json:"-"`
}

type RequestFilter struct {
	EmployeeID string
	Status     Status
	Limit      int
	Offset     int
}

type RequestListResult struct {
	Items []Request
	Total int
}
