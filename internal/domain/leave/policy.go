package leave

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

const (
	DefaultColorTag = "#FFFFFF"
	maxPolicyTitle  = 200
)

var colorPattern = regexp.MustCompile(`^#([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$`)

var policyOrderings = map[string]bool{
	"": true, "title": true, "-title": true, "created_at": true, "-created_at": true,
}

func ValidateColor(tag string) error {
	if !colorPattern.MatchString(tag) {
		return &ValidationError{Field: "colorTag", Reason: "must be a hex color like #RGB or #RRGGBB", Err: ErrInvalidColor}
	}
	return nil
}

func validGender(g Gender) bool {
	return g == GenderAll || g == GenderMale || g == GenderFemale
}

func validUnit(u PeriodUnit) bool {
	switch u {
	case UnitImmediately, UnitDays, UnitWeeks, UnitMonths, UnitYears:
		return true
	}
	return false
}

func applyPolicyFields(p *Policy, f PolicyFields) {
	if f.Title != nil {
		p.Title = strings.TrimSpace(*f.Title)
	}
	if f.Description != nil {
		p.Description = *f.Description
	}
	if f.MaxDaysAllowed != nil {
		p.MaxDaysAllowed = *f.MaxDaysAllowed
	}
	if f.GenderRestriction != nil {
		p.GenderRestriction = Gender(strings.ToUpper(string(*f.GenderRestriction)))
	}
	if f.Paid != nil {
		p.Paid = *f.Paid
	}
	if f.IsDefault != nil {
		p.IsDefault = *f.IsDefault
	}
	if f.ColorTag != nil {
		p.ColorTag = strings.TrimSpace(*f.ColorTag)
	}
	if f.MinEmploymentPeriod != nil {
		p.MinEmploymentPeriod = *f.MinEmploymentPeriod
	}
	if f.MinEmploymentPeriodUnit != nil {
		p.MinEmploymentPeriodUnit = PeriodUnit(strings.ToUpper(string(*f.MinEmploymentPeriodUnit)))
	}
}

func validatePolicy(p Policy) error {
	switch {
	case p.Title == "":
		return &ValidationError{Field: "title", Reason: "is required"}
	case len(p.Title) > maxPolicyTitle:
		return &ValidationError{Field: "title", Reason: fmt.Sprintf("must be at most %d characters", maxPolicyTitle)}
	case p.MaxDaysAllowed <= 0:
		return &ValidationError{Field: "maxDaysAllowed", Reason: "must be a positive number of days"}
	case !validGender(p.GenderRestriction):
		return &ValidationError{Field: "gender", Reason: "must be one of ALL, MALE, FEMALE"}
	case p.MinEmploymentPeriod < 0:
		return &ValidationError{Field: "minEmploymentPeriod", Reason: "must not be negative"}
	case !validUnit(p.MinEmploymentPeriodUnit):
		return &ValidationError{Field: "minEmploymentPeriodUnit", Reason: "must be one of IMMEDIATELY, DAYS, WEEKS, MONTHS, YEARS"}
	}
	return ValidateColor(p.ColorTag)
}

// CreatePolicy stores a new policy and allocates it to every eligible
// employee for the current year. Allocation failures are logged; the
// allocation can be repeated with AssignToEligible.
func (s *Service) CreatePolicy(ctx context.Context, orgID, actorID string, fields PolicyFields) (Policy, []Ledger, error) {
	if fields.MaxDaysAllowed == nil {
		return Policy{}, nil, &ValidationError{Field: "maxDaysAllowed", Reason: "is required"}
	}
	p := Policy{
		OrgID:                   orgID,
		GenderRestriction:       GenderAll,
		Paid:                    true,
		ColorTag:                DefaultColorTag,
		MinEmploymentPeriodUnit: UnitImmediately,
		CreatedBy:               actorID,
		UpdatedBy:               actorID,
	}
	applyPolicyFields(&p, fields)
	if err := validatePolicy(p); err != nil {
		return Policy{}, nil, err
	}
	created, err := s.Store.CreatePolicy(ctx, p)
	if err != nil {
		return Policy{}, nil, err
	}
	ledgers, err := s.AssignToEligible(ctx, orgID, created.ID)
	if err != nil {
		slog.Warn("leave policy allocation failed", "policyId", created.ID, "err", err)
	}
	return created, ledgers, nil
}

// UpdatePolicy applies a partial update. Ledgers already allocated keep
// their snapshot of the allowance.
func (s *Service) UpdatePolicy(ctx context.Context, orgID, id, actorID string, fields PolicyFields) (Policy, error) {
	p, err := s.Store.GetPolicy(ctx, orgID, id)
	if err != nil {
		return Policy{}, err
	}
	applyPolicyFields(&p, fields)
	p.UpdatedBy = actorID
	if err := validatePolicy(p); err != nil {
		return Policy{}, err
	}
	return s.Store.UpdatePolicy(ctx, p)
}

func (s *Service) GetPolicy(ctx context.Context, orgID, id string) (Policy, error) {
	return s.Store.GetPolicy(ctx, orgID, id)
}

func (s *Service) ListPolicies(ctx context.Context, orgID string, filter PolicyFilter) ([]Policy, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	if !policyOrderings[filter.Ordering] {
		return nil, &ValidationError{Field: "ordering", Reason: "must be one of title, -title, created_at, -created_at"}
	}
	return s.Store.ListPolicies(ctx, orgID, filter)
}

func (s *Service) ListDefaultPolicies(ctx context.Context, orgID string) ([]Policy, error) {
	return s.Store.ListPolicies(ctx, orgID, PolicyFilter{DefaultsOnly: true})
}

// DeletePolicy removes a policy that no ledger references.
func (s *Service) DeletePolicy(ctx context.Context, orgID, id string) error {
	if _, err := s.Store.GetPolicy(ctx, orgID, id); err != nil {
		return err
	}
	return s.Store.DeletePolicy(ctx, orgID, id)
}
