package notificationshandler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leaveledger/internal/domain/auth"
	"leaveledger/internal/domain/notifications"
	"leaveledger/internal/transport/http/middleware"
)

type fakeInbox struct {
	items []notifications.Notification
	read  []string
}

func (f *fakeInbox) List(_ context.Context, orgID, userID string, limit, offset int) ([]notifications.Notification, int, error) {
	var out []notifications.Notification
	for _, n := range f.items {
		if n.OrgID == orgID && n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, len(out), nil
}

func (f *fakeInbox) MarkRead(_ context.Context, orgID, userID, id string) error {
	for _, n := range f.items {
		if n.ID == id && n.OrgID == orgID && n.UserID == userID {
			f.read = append(f.read, id)
			return nil
		}
	}
	return fmt.Errorf("notification %s: %w", id, notifications.ErrNotFound)
}

func serve(h *Handler, method, path string, user *auth.UserContext) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user != nil {
				r = r.WithContext(middleware.WithUser(r.Context(), *user))
			}
			next.ServeHTTP(w, r)
		})
	})
	h.RegisterRoutes(router)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestNotificationInbox(t *testing.T) {
	inbox := &fakeInbox{items: []notifications.Notification{
		{ID: "n1", OrgID: "org-1", UserID: "u1", Type: notifications.TypeLeaveApproved, Title: "Leave approved"},
		{ID: "n2", OrgID: "org-1", UserID: "u2", Type: notifications.TypeLeaveRequested, Title: "Leave requested"},
	}}
	h := NewHandler(inbox)
	ada := &auth.UserContext{UserID: "u1", TenantID: "org-1", RoleName: auth.RoleEmployee}

	rec := serve(h, http.MethodGet, "/notifications/", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(h, http.MethodGet, "/notifications/", ada)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data []notifications.Notification `json:"data"`
		Meta struct {
			Total int `json:"total"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "n1", body.Data[0].ID)
	assert.Equal(t, 1, body.Meta.Total)

	rec = serve(h, http.MethodPost, "/notifications/n1/read", ada)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"n1"}, inbox.read)

	rec = serve(h, http.MethodPost, "/notifications/n2/read", ada)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
