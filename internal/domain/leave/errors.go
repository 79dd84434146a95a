package leave

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")

	ErrInvalidColor = errors.New("invalid color tag")

	ErrZeroDayRequest          = errors.New("request covers no working days")
	ErrWrongFiscalYear         = errors.New("request is outside the current leave year")
	ErrStartAfterEnd           = errors.New("start date is after end date")
	ErrDuplicatePendingRequest = errors.New("a pending request already exists for this leave")
	ErrBalanceExceeded         = errors.New("leave balance exceeded")
	ErrOverlapsExistingRequest = errors.New("period overlaps a pending request")
	ErrOverlapsTakenPeriod     = errors.New("period overlaps leave already taken")
	ErrDuplicateTitle          = errors.New("a policy with this title already exists")
	ErrPolicyInUse             = errors.New("policy has ledgers and cannot be deleted")
	ErrAlreadyAllocated        = errors.New("ledger already allocated")

	ErrInvalidTransition = errors.New("invalid status transition")
)

// Rule codes reported to clients for business rule violations.
const (
	CodeZeroDayRequest          = "zero_day_request"
	CodeWrongFiscalYear         = "wrong_fiscal_year"
	CodeStartAfterEnd           = "start_after_end"
	CodeDuplicatePendingRequest = "duplicate_pending_request"
	CodeBalanceExceeded         = "balance_exceeded"
	CodeOverlapsExistingRequest = "overlaps_existing_request"
	CodeOverlapsTakenPeriod     = "overlaps_taken_period"
	CodeDuplicateTitle          = "duplicate_title"
	CodePolicyInUse             = "policy_in_use"
	CodeAlreadyAllocated        = "already_allocated"
)

var ruleSentinels = map[string]error{
	CodeZeroDayRequest:          ErrZeroDayRequest,
	CodeWrongFiscalYear:         ErrWrongFiscalYear,
	CodeStartAfterEnd:           ErrStartAfterEnd,
	CodeDuplicatePendingRequest: ErrDuplicatePendingRequest,
	CodeBalanceExceeded:         ErrBalanceExceeded,
	CodeOverlapsExistingRequest: ErrOverlapsExistingRequest,
	CodeOverlapsTakenPeriod:     ErrOverlapsTakenPeriod,
	CodeDuplicateTitle:          ErrDuplicateTitle,
	CodePolicyInUse:             ErrPolicyInUse,
	CodeAlreadyAllocated:        ErrAlreadyAllocated,
}

// ValidationError rejects malformed input before any state is touched.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrValidation, e.Err}
	}
	return []error{ErrValidation}
}

// RuleError is a business rule violation carrying a stable code.
type RuleError struct {
	Code   string
	Reason string
}

func (e *RuleError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	if sentinel, ok := ruleSentinels[e.Code]; ok {
		return sentinel.Error()
	}
	return e.Code
}

func (e *RuleError) Unwrap() error {
	return ruleSentinels[e.Code]
}

func ruleError(code string, format string, args ...any) error {
	return &RuleError{Code: code, Reason: fmt.Sprintf(format, args...)}
}

// TransitionError reports an attempt to leave a terminal status.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move request from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindRule
	KindState
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindRule:
		return "rule"
	case KindState:
		return "state"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// KindOf classifies err into the taxonomy the transport layer maps to
// status codes.
func KindOf(err error) Kind {
	var rule *RuleError
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.As(err, &rule):
		return KindRule
	case errors.Is(err, ErrInvalidTransition):
		return KindState
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}

// RuleCode returns the code of the rule err violates, or "".
func RuleCode(err error) string {
	var rule *RuleError
	if errors.As(err, &rule) {
		return rule.Code
	}
	return ""
}
