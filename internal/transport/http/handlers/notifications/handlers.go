package notificationshandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"leaveledger/internal/domain/notifications"
	"leaveledger/internal/transport/http/api"
	"leaveledger/internal/transport/http/middleware"
	"leaveledger/internal/transport/http/shared"
)

type Inbox interface {
	List(ctx context.Context, orgID, userID string, limit, offset int) ([]notifications.Notification, int, error)
	MarkRead(ctx context.Context, orgID, userID, notificationID string) error
}

type Handler struct {
	Service Inbox
}

func NewHandler(service Inbox) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/notifications", func(r chi.Router) {
		r.Use(middleware.RequireUser)
		r.Get("/", h.handleList)
		r.Post("/{notificationID}/read", h.handleMarkRead)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	v := shared.NewValidator()
	page := v.Pagination(r, shared.ListPage)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	items, total, err := h.Service.List(r.Context(), user.TenantID, user.UserID, page.Limit, page.Offset)
	if err != nil {
		slog.Error("notification list failed", "userId", user.UserID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "notification_list_failed", "failed to list notifications", middleware.GetRequestID(r.Context()))
		return
	}
	if items == nil {
		items = []notifications.Notification{}
	}
	api.Page(w, items, api.Meta{Total: total, Limit: page.Limit, Offset: page.Offset}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	notificationID := chi.URLParam(r, "notificationID")
	if err := h.Service.MarkRead(r.Context(), user.TenantID, user.UserID, notificationID); err != nil {
		if errors.Is(err, notifications.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "notification not found", middleware.GetRequestID(r.Context()))
			return
		}
		slog.Error("notification update failed", "notificationId", notificationID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "notification_update_failed", "failed to update notification", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]string{"status": "read"}, middleware.GetRequestID(r.Context()))
}
