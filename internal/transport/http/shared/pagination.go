package shared

import (
	"net/http"
	"strconv"
	"strings"
)

// PageLimits bounds the limit a list endpoint accepts.
type PageLimits struct {
	Default int
	Max     int
}

var (
	ListPage  = PageLimits{Default: 50, Max: 200}
	AuditPage = PageLimits{Default: 100, Max: 500}
)

type Pagination struct {
	Limit  int
	Offset int
}

// Pagination reads limit and offset from the query. Malformed values are
// reported as issues; a limit above the maximum is clamped.
func (v *Validator) Pagination(r *http.Request, limits PageLimits) Pagination {
	page := Pagination{Limit: limits.Default}
	q := r.URL.Query()
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			v.Add("limit", "must be a positive integer")
		} else {
			page.Limit = n
		}
	}
	if raw := strings.TrimSpace(q.Get("offset")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			v.Add("offset", "must be zero or greater")
		} else {
			page.Offset = n
		}
	}
	if limits.Max > 0 && page.Limit > limits.Max {
		page.Limit = limits.Max
	}
	return page
}
