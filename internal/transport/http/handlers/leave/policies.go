package leavehandler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"leaveledger/internal/domain/audit"
	"leaveledger/internal/domain/leave"
	"leaveledger/internal/transport/http/api"
	"leaveledger/internal/transport/http/shared"
)

var (
	genders = []string{string(leave.GenderAll), string(leave.GenderMale), string(leave.GenderFemale)}
	units   = []string{
		string(leave.UnitImmediately), string(leave.UnitDays), string(leave.UnitWeeks),
		string(leave.UnitMonths), string(leave.UnitYears),
	}
)

func validatePolicyPayload(v *shared.Validator, p leave.PolicyFields, creating bool) {
	if creating {
		if p.Title == nil {
			v.Add("title", "is required")
		}
		if p.MaxDaysAllowed == nil {
			v.Add("maxDaysAllowed", "is required")
		}
	}
	if p.Title != nil {
		v.Required("title", *p.Title, "must not be blank")
	}
	v.PositiveInt("maxDaysAllowed", p.MaxDaysAllowed)
	v.NonNegativeInt("minEmploymentPeriod", p.MinEmploymentPeriod)
	if p.GenderRestriction != nil {
		v.Enum("gender", string(*p.GenderRestriction), genders, "must be one of ALL, MALE, FEMALE")
	}
	if p.MinEmploymentPeriodUnit != nil {
		v.Enum("minEmploymentPeriodUnit", string(*p.MinEmploymentPeriodUnit), units, "must be one of IMMEDIATELY, DAYS, WEEKS, MONTHS, YEARS")
	}
}

func normalizePolicyPayload(p *leave.PolicyFields) {
	if p.GenderRestriction != nil {
		g := leave.Gender(strings.ToUpper(strings.TrimSpace(string(*p.GenderRestriction))))
		p.GenderRestriction = &g
	}
	if p.MinEmploymentPeriodUnit != nil {
		u := leave.PeriodUnit(strings.ToUpper(strings.TrimSpace(string(*p.MinEmploymentPeriodUnit))))
		p.MinEmploymentPeriodUnit = &u
	}
}

func (h *Handler) handleListPolicies(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	q := r.URL.Query()
	out, err := h.Service.ListPolicies(r.Context(), user.TenantID, leave.PolicyFilter{
		Search:       q.Get("search"),
		Ordering:     q.Get("ordering"),
		DefaultsOnly: q.Get("defaultsOnly") == "true",
	})
	if err != nil {
		respondError(w, r, err, "list leave policies")
		return
	}
	api.Success(w, out, requestID(r))
}

func (h *Handler) handleCreatePolicy(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	var payload leave.PolicyFields
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID(r))
		return
	}
	v := shared.NewValidator()
	validatePolicyPayload(v, payload, true)
	if v.Reject(w, requestID(r)) {
		return
	}
	normalizePolicyPayload(&payload)

	policy, ledgers, err := h.Service.CreatePolicy(r.Context(), user.TenantID, user.UserID, payload)
	if err != nil {
		respondError(w, r, err, "create leave policy")
		return
	}
	h.record(r, audit.ActionPolicyCreate, "leave_policy", policy.ID, nil, policy)
	if len(ledgers) > 0 {
		h.record(r, audit.ActionLedgerAssign, "leave_policy", policy.ID, nil, map[string]any{"ledgersCreated": len(ledgers)})
	}
	api.Created(w, map[string]any{"policy": policy, "ledgersCreated": len(ledgers)}, requestID(r))
}

func (h *Handler) handleGetPolicy(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	policy, err := h.Service.GetPolicy(r.Context(), user.TenantID, chi.URLParam(r, "policyID"))
	if err != nil {
		respondError(w, r, err, "get leave policy")
		return
	}
	api.Success(w, policy, requestID(r))
}

func (h *Handler) handleUpdatePolicy(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	policyID := chi.URLParam(r, "policyID")

	var payload leave.PolicyFields
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID(r))
		return
	}
	v := shared.NewValidator()
	validatePolicyPayload(v, payload, false)
	if v.Reject(w, requestID(r)) {
		return
	}
	normalizePolicyPayload(&payload)

	before, err := h.Service.GetPolicy(r.Context(), user.TenantID, policyID)
	if err != nil {
		respondError(w, r, err, "get leave policy")
		return
	}
	updated, err := h.Service.UpdatePolicy(r.Context(), user.TenantID, policyID, user.UserID, payload)
	if err != nil {
		respondError(w, r, err, "update leave policy")
		return
	}
	h.record(r, audit.ActionPolicyUpdate, "leave_policy", policyID, before, updated)
	api.Success(w, updated, requestID(r))
}

func (h *Handler) handleDeletePolicy(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	policyID := chi.URLParam(r, "policyID")

	if err := h.Service.DeletePolicy(r.Context(), user.TenantID, policyID); err != nil {
		respondError(w, r, err, "delete leave policy")
		return
	}
	h.record(r, audit.ActionPolicyDelete, "leave_policy", policyID, nil, nil)
	api.Success(w, map[string]string{"status": "deleted"}, requestID(r))
}

func (h *Handler) handleAssignPolicy(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	policyID := chi.URLParam(r, "policyID")

	ledgers, err := h.Service.AssignToEligible(r.Context(), user.TenantID, policyID)
	if err != nil {
		respondError(w, r, err, "assign leave policy")
		return
	}
	h.record(r, audit.ActionLedgerAssign, "leave_policy", policyID, nil, map[string]any{"ledgersCreated": len(ledgers)})
	api.Success(w, map[string]any{"ledgers": nonNil(ledgers)}, requestID(r))
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
