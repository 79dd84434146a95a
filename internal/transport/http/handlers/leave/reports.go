package leavehandler

import (
	"net/http"
	"strings"
	"time"

	"leaveledger/internal/transport/http/api"
	"leaveledger/internal/transport/http/shared"
)

func (h *Handler) handleListTaken(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	employeeID, ok := subjectEmployee(w, r, user, false)
	if !ok {
		return
	}

	out, err := h.Service.ListTaken(r.Context(), user.TenantID, employeeID)
	if err != nil {
		respondError(w, r, err, "list taken leave")
		return
	}
	api.Success(w, nonNil(out), requestID(r))
}

func (h *Handler) handleWhosOut(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	v := shared.NewValidator()
	page := v.Pagination(r, shared.ListPage)

	var asOf time.Time
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		asOf, _ = v.Date("date", raw)
	}
	if v.Reject(w, requestID(r)) {
		return
	}

	out, total, err := h.Service.WhoIsOut(r.Context(), user.TenantID, asOf, page.Limit, page.Offset)
	if err != nil {
		respondError(w, r, err, "list who is out")
		return
	}
	api.Page(w, nonNil(out), api.Meta{Total: total, Limit: page.Limit, Offset: page.Offset}, requestID(r))
}
