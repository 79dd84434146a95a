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

type createRequestPayload struct {
	LedgerID      string `json:"ledgerId"`
	StartDate     string `json:"startDate"`
	EndDate       string `json:"endDate"`
	Note          string `json:"note"`
	ReliefOfficer string `json:"reliefOfficer"`
}

func (h *Handler) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if user.EmployeeID == "" {
		api.Fail(w, http.StatusForbidden, "no_employee_profile", "caller has no employee record", requestID(r))
		return
	}

	var payload createRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID(r))
		return
	}
	v := shared.NewValidator()
	v.Required("ledgerId", payload.LedgerID, "is required")
	start, _ := v.Date("startDate", payload.StartDate)
	end, _ := v.Date("endDate", payload.EndDate)
	if len(payload.Note) > 2000 {
		v.Add("note", "must be at most 2000 characters")
	}
	if v.Reject(w, requestID(r)) {
		return
	}

	created, err := h.Service.CreateRequest(r.Context(), user.TenantID, user.EmployeeID, leave.NewRequest{
		LedgerID:      strings.TrimSpace(payload.LedgerID),
		StartDate:     start,
		EndDate:       end,
		Note:          payload.Note,
		ReliefOfficer: strings.TrimSpace(payload.ReliefOfficer),
	})
	if err != nil {
		respondError(w, r, err, "create leave request")
		return
	}
	h.record(r, audit.ActionRequestCreate, "leave_request", created.ID, nil, created)
	api.Created(w, created, requestID(r))
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	employeeID, ok := subjectEmployee(w, r, user, true)
	if !ok {
		return
	}
	v := shared.NewValidator()
	page := v.Pagination(r, shared.ListPage)
	if v.Reject(w, requestID(r)) {
		return
	}

	result, err := h.Service.ListRequests(r.Context(), user.TenantID, leave.RequestFilter{
		EmployeeID: employeeID,
		Status:     leave.Status(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status")))),
		Limit:      page.Limit,
		Offset:     page.Offset,
	})
	if err != nil {
		respondError(w, r, err, "list leave requests")
		return
	}
	api.Page(w, nonNil(result.Items), api.Meta{Total: result.Total, Limit: page.Limit, Offset: page.Offset}, requestID(r))
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	req, err := h.Service.GetRequest(r.Context(), user.TenantID, chi.URLParam(r, "requestID"))
	if err != nil {
		respondError(w, r, err, "get leave request")
		return
	}
	if !user.IsHR() && req.EmployeeID != user.EmployeeID {
		api.Fail(w, http.StatusNotFound, "not_found", "resource not found", requestID(r))
		return
	}
	api.Success(w, req, requestID(r))
}

func (h *Handler) handleApproveRequest(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id := chi.URLParam(r, "requestID")

	taken, err := h.Service.ApproveRequest(r.Context(), user.TenantID, id, user.UserID)
	if err != nil {
		respondError(w, r, err, "approve leave request")
		return
	}
	h.record(r, audit.ActionRequestApprove, "leave_request", id,
		map[string]any{"status": leave.StatusPending},
		map[string]any{"status": leave.StatusApproved, "takenId": taken.ID})
	api.Success(w, map[string]any{"status": leave.StatusApproved, "taken": taken}, requestID(r))
}

func (h *Handler) handleDeclineRequest(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id := chi.URLParam(r, "requestID")

	declined, err := h.Service.DeclineRequest(r.Context(), user.TenantID, id, user.UserID)
	if err != nil {
		respondError(w, r, err, "decline leave request")
		return
	}
	h.record(r, audit.ActionRequestDecline, "leave_request", id,
		map[string]any{"status": leave.StatusPending},
		map[string]any{"status": leave.StatusDeclined})
	api.Success(w, declined, requestID(r))
}
