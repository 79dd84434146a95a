package leavehandler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"leaveledger/internal/domain/audit"
	"leaveledger/internal/domain/leave"
	"leaveledger/internal/platform/jobs"
	"leaveledger/internal/transport/http/api"
	"leaveledger/internal/transport/http/shared"
)

type assignDefaultsPayload struct {
	EmployeeIDs []string `json:"employeeIds"`
}

func (h *Handler) handleAssignDefaults(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	var payload assignDefaultsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID(r))
		return
	}

	ledgers, err := h.Service.AssignDefaults(r.Context(), user.TenantID, payload.EmployeeIDs)
	if err != nil {
		respondError(w, r, err, "assign default leave")
		return
	}
	h.record(r, audit.ActionLedgerAssign, "leave_ledger", "", nil, map[string]any{
		"employeeIds":    payload.EmployeeIDs,
		"ledgersCreated": len(ledgers),
	})
	api.Success(w, map[string]any{"ledgers": nonNil(ledgers)}, requestID(r))
}

type rolloverPayload struct {
	Year int `json:"year"`
}

func (h *Handler) handleRollover(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	var payload rolloverPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID(r))
		return
	}
	year := payload.Year
	if year == 0 {
		year = h.Service.CurrentYear()
	}
	if year < 1901 || year > 9999 {
		shared.FailValidation(w, requestID(r), []shared.ValidationIssue{{Field: "year", Reason: "must be a valid year"}})
		return
	}

	var ledgers []leave.Ledger
	run := func(ctx context.Context) (any, error) {
		var err error
		ledgers, err = h.Service.RollYear(ctx, user.TenantID, year)
		return map[string]any{"year": year, "ledgersCreated": len(ledgers)}, err
	}
	var err error
	if h.Jobs != nil {
		_, err = h.Jobs.RunNow(r.Context(), jobs.JobYearRollover, user.TenantID, run)
	} else {
		_, err = run(r.Context())
	}
	if err != nil {
		respondError(w, r, err, "roll leave year")
		return
	}
	h.record(r, audit.ActionLedgerRollover, "leave_ledger", strconv.Itoa(year), nil, map[string]any{"year": year, "ledgersCreated": len(ledgers)})
	api.Success(w, map[string]any{"year": year, "ledgers": nonNil(ledgers)}, requestID(r))
}

func parseYear(w http.ResponseWriter, r *http.Request) (int, bool) {
	year, ok := shared.ParseYear(r.URL.Query().Get("year"))
	if !ok {
		shared.FailValidation(w, requestID(r), []shared.ValidationIssue{{Field: "year", Reason: "must be a valid year"}})
		return 0, false
	}
	return year, true
}

func (h *Handler) handleListLedgers(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	employeeID, ok := subjectEmployee(w, r, user, false)
	if !ok {
		return
	}
	year, ok := parseYear(w, r)
	if !ok {
		return
	}

	out, err := h.Service.ListLedgers(r.Context(), user.TenantID, employeeID, year)
	if err != nil {
		respondError(w, r, err, "list leave ledgers")
		return
	}
	api.Success(w, nonNil(out), requestID(r))
}

type exportFormat struct {
	contentType string
	extension   string
	write       func(w io.Writer, year int, rows []leave.LedgerBalance) error
}

var exportFormats = map[string]exportFormat{
	"csv": {"text/csv", "csv", func(w io.Writer, _ int, rows []leave.LedgerBalance) error {
		return leave.WriteBalancesCSV(w, rows)
	}},
	"pdf": {"application/pdf", "pdf", leave.WriteBalancesPDF},
	"xlsx": {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "xlsx", func(w io.Writer, _ int, rows []leave.LedgerBalance) error {
		return leave.WriteBalancesXLSX(w, rows)
	}},
}

func (h *Handler) handleExportLedgers(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = "csv"
	}
	exporter, ok := exportFormats[format]
	if !ok {
		shared.FailValidation(w, requestID(r), []shared.ValidationIssue{{Field: "format", Reason: "must be one of csv, pdf, xlsx"}})
		return
	}
	year, ok := parseYear(w, r)
	if !ok {
		return
	}
	if year == 0 {
		year = h.Service.CurrentYear()
	}

	rows, err := h.Service.BalanceReport(r.Context(), user.TenantID, year)
	if err != nil {
		respondError(w, r, err, "build balance report")
		return
	}

	var buf bytes.Buffer
	if err := exporter.write(&buf, year, rows); err != nil {
		respondError(w, r, fmt.Errorf("render %s: %w", format, err), "export balance report")
		return
	}
	w.Header().Set("Content-Type", exporter.contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=leave-balances-%d.%s", year, exporter.extension))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("balance export write failed", "format", format, "err", err)
	}
}
