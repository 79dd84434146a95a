package leavehandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"leaveledger/internal/domain/audit"
	"leaveledger/internal/domain/auth"
	"leaveledger/internal/domain/leave"
	"leaveledger/internal/transport/http/api"
	"leaveledger/internal/transport/http/middleware"
	"leaveledger/internal/transport/http/shared"
)

type Auditor interface {
	Record(ctx context.Context, e audit.Entry) error
}

// JobRunner records synchronous admin-triggered runs.
type JobRunner interface {
	RunNow(ctx context.Context, jobType, tenantID string, run func(context.Context) (any, error)) (any, error)
}

type Handler struct {
	Service *leave.Service
	Perms   middleware.PermissionStore
	Audit   Auditor
	Jobs    JobRunner
}

func NewHandler(service *leave.Service, perms middleware.PermissionStore, auditor Auditor, jobs JobRunner) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditor, Jobs: jobs}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermLeaveRead, h.Perms)
	request := middleware.RequirePermission(auth.PermLeaveRequest, h.Perms)
	approve := middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)
	admin := middleware.RequirePermission(auth.PermLeaveAdmin, h.Perms)

	r.Route("/leave", func(r chi.Router) {
		r.With(read).Get("/policies", h.handleListPolicies)
		r.With(admin).Post("/policies", h.handleCreatePolicy)
		r.With(read).Get("/policies/{policyID}", h.handleGetPolicy)
		r.With(admin).Patch("/policies/{policyID}", h.handleUpdatePolicy)
		r.With(admin).Delete("/policies/{policyID}", h.handleDeletePolicy)
		r.With(admin).Post("/policies/{policyID}/assign", h.handleAssignPolicy)

		r.With(admin).Post("/ledgers/assign-defaults", h.handleAssignDefaults)
		r.With(admin).Post("/ledgers/rollover", h.handleRollover)
		r.With(read).Get("/ledgers", h.handleListLedgers)
		r.With(admin).Get("/ledgers/export", h.handleExportLedgers)

		r.With(read).Get("/requests", h.handleListRequests)
		r.With(request).Post("/requests", h.handleCreateRequest)
		r.With(read).Get("/requests/{requestID}", h.handleGetRequest)
		r.With(approve).Post("/requests/{requestID}/approve", h.handleApproveRequest)
		r.With(approve).Post("/requests/{requestID}/decline", h.handleDeclineRequest)

		r.With(read).Get("/taken", h.handleListTaken)
		r.With(read).Get("/whos-out", h.handleWhosOut)
	})
}

func requestID(r *http.Request) string {
	return middleware.GetRequestID(r.Context())
}

// respondError maps the leave error taxonomy onto HTTP statuses.
func respondError(w http.ResponseWriter, r *http.Request, err error, action string) {
	rid := requestID(r)
	switch leave.KindOf(err) {
	case leave.KindValidation:
		var verr *leave.ValidationError
		if errors.As(err, &verr) {
			shared.FailValidation(w, rid, []shared.ValidationIssue{{Field: verr.Field, Reason: verr.Reason}})
			return
		}
		shared.FailValidation(w, rid, []shared.ValidationIssue{{Reason: err.Error()}})
	case leave.KindRule:
		api.Fail(w, http.StatusUnprocessableEntity, leave.RuleCode(err), err.Error(), rid)
	case leave.KindState:
		api.Fail(w, http.StatusConflict, "invalid_transition", err.Error(), rid)
	case leave.KindNotFound:
		api.Fail(w, http.StatusNotFound, "not_found", "resource not found", rid)
	default:
		slog.Error(action+" failed", "requestId", rid, "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", action+" failed", rid)
	}
}

// currentUser is guaranteed by RequirePermission on every route.
func currentUser(r *http.Request) auth.UserContext {
	user, _ := middleware.GetUser(r.Context())
	return user
}

// subjectEmployee resolves whose data a request concerns: HR may name any
// employee through employeeId, everyone else only themselves.
func subjectEmployee(w http.ResponseWriter, r *http.Request, user auth.UserContext, allowAll bool) (string, bool) {
	asked := r.URL.Query().Get("employeeId")
	if user.IsHR() {
		if asked != "" || allowAll {
			return asked, true
		}
	}
	if user.EmployeeID == "" {
		api.Fail(w, http.StatusForbidden, "no_employee_profile", "caller has no employee record", requestID(r))
		return "", false
	}
	if asked != "" && asked != user.EmployeeID {
		api.Fail(w, http.StatusForbidden, "forbidden", "cannot access another employee's leave", requestID(r))
		return "", false
	}
	return user.EmployeeID, true
}

func (h *Handler) record(r *http.Request, action, entityType, entityID string, before, after any) {
	if h.Audit == nil {
		return
	}
	user := currentUser(r)
	if err := h.Audit.Record(r.Context(), audit.Entry{
		OrgID:      user.TenantID,
		ActorID:    user.UserID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		RequestID:  requestID(r),
		IP:         shared.ClientIP(r),
		Before:     before,
		After:      after,
	}); err != nil {
		slog.Warn("audit "+action+" failed", "err", err)
	}
}
