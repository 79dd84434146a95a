package audithandler

import (
	"context"
	"encoding/csv"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"leaveledger/internal/domain/audit"
	"leaveledger/internal/domain/auth"
	"leaveledger/internal/transport/http/api"
	"leaveledger/internal/transport/http/middleware"
	"leaveledger/internal/transport/http/shared"
)

type Trail interface {
	Count(ctx context.Context, orgID string, filter audit.Filter) (int, error)
	List(ctx context.Context, orgID string, filter audit.Filter, limit, offset int) ([]audit.Event, error)
}

type Handler struct {
	Service Trail
	Perms   middleware.PermissionStore
}

func NewHandler(service Trail, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/audit", func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermAuditRead, h.Perms))
		r.Get("/events", h.handleListEvents)
		r.Get("/events/export", h.handleExportEvents)
	})
}

func filterFrom(r *http.Request) audit.Filter {
	q := r.URL.Query()
	return audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entityType"),
		EntityID:   q.Get("entityId"),
		ActorUser:  q.Get("actorUserId"),
	}
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	v := shared.NewValidator()
	page := v.Pagination(r, shared.AuditPage)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	filter := filterFrom(r)

	total, err := h.Service.Count(r.Context(), user.TenantID, filter)
	if err != nil {
		slog.Warn("audit count failed", "err", err)
	}
	events, err := h.Service.List(r.Context(), user.TenantID, filter, page.Limit, page.Offset)
	if err != nil {
		slog.Error("audit list failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "audit_list_failed", "failed to list audit events", middleware.GetRequestID(r.Context()))
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	api.Page(w, events, api.Meta{Total: total, Limit: page.Limit, Offset: page.Offset}, middleware.GetRequestID(r.Context()))
}

const exportLimit = 10000

func (h *Handler) handleExportEvents(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	events, err := h.Service.List(r.Context(), user.TenantID, filterFrom(r), exportLimit, 0)
	if err != nil {
		slog.Error("audit export failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "audit_export_failed", "failed to export audit events", middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=audit-events.csv")
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"id", "actor_user_id", "action", "entity_type", "entity_id", "request_id", "ip", "created_at"}); err != nil {
		slog.Warn("audit export header failed", "err", err)
	}
	for _, evt := range events {
		if err := writer.Write([]string{evt.ID, evt.ActorID, evt.Action, evt.EntityType, evt.EntityID, evt.RequestID, evt.IP, evt.CreatedAt.UTC().Format(time.RFC3339)}); err != nil {
			slog.Warn("audit export row failed", "err", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		slog.Warn("audit export flush failed", "err", err)
	}
}
