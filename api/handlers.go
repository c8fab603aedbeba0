/*
handlers.go - HTTP API handlers for the leave ledger

PURPOSE:
  Exposes the leave workflow via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to leave.Service.

ENDPOINTS:
  Employees:
    GET    /api/employees                               List all employees
    POST   /api/employees                               Register employee
    GET    /api/employees/{id}                          Get employee details
    GET    /api/employees/{id}/balance                  Balance (all or ?leave_type=)
    POST   /api/employees/{id}/balance/adjustments      Administrative adjustment
    GET    /api/employees/{id}/history                  History (?leave_type=&status=&year=)

  Leave entries:
    POST   /api/employees/{id}/leaves                   Apply for leave
    POST   /api/employees/{id}/leaves/{date}/approve    Approve pending entry
    POST   /api/employees/{id}/leaves/{date}/reject     Reject pending entry
    POST   /api/employees/{id}/leaves/{date}/cancel     Cancel approved entry
    GET    /api/leaves/upcoming                         Approved leave in window

  Reports:
    GET    /api/reports/usage                           Per-category utilization
    GET    /api/audit                                   Audit trail

  Tools:
    GET    /api/tools                                   List tool names
    POST   /api/tools/{tool}                            Field-keyed tool call

ERROR HANDLING:
  Errors are returned as JSON ErrorResponse with a stable code:
  - 400: INVALID_REQUEST, INVALID_CATEGORY, INVALID_DATE, DATE_ORDER
  - 404: EMPLOYEE_NOT_FOUND, NOT_FOUND
  - 409: ALREADY_EXISTS
  - 422: INSUFFICIENT_BALANCE
  - 500: INTERNAL_ERROR

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go:    Response data structures
  - tools.go:  Tool envelope
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/leave-ledger/leave"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *leave.Service
	Logger  *zap.Logger

	tools map[string]toolFunc
}

// NewHandler creates a handler around svc.
func NewHandler(svc *leave.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{Service: svc, Logger: logger}
	h.tools = h.toolRegistry()
	return h
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
// GET /api/employees
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Service.ListEmployees(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
// GET /api/employees/{id}
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Service.GetEmployee(r.Context(), leave.EmployeeID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

// RegisterEmployee creates an employee with the default balance.
// POST /api/employees
func (h *Handler) RegisterEmployee(w http.ResponseWriter, r *http.Request) {
	var req leave.RegisterRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	emp, err := h.Service.RegisterEmployee(r.Context(), req)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRegisterResponse(emp))
}

// GetBalance returns all balances, or one category with ?leave_type=.
// GET /api/employees/{id}/balance
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	req := leave.BalanceQuery{
		EmployeeID: chi.URLParam(r, "id"),
		Category:   r.URL.Query().Get("leave_type"),
	}

	res, err := h.Service.QueryBalance(r.Context(), req)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceResponse(res))
}

// AdjustBalance applies a signed delta to one category.
// POST /api/employees/{id}/balance/adjustments
func (h *Handler) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	var req leave.AdjustRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	req.EmployeeID = chi.URLParam(r, "id")

	res, err := h.Service.AdjustBalance(r.Context(), req)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAdjustResponse(res))
}

// GetHistory returns the employee's entries with optional filters.
// GET /api/employees/{id}/history
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := leave.HistoryQuery{
		EmployeeID: chi.URLParam(r, "id"),
		Category:   q.Get("leave_type"),
		Status:     q.Get("status"),
		Year:       q.Get("year"),
	}

	res, err := h.Service.ListHistory(r.Context(), req)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toHistoryResponse(res))
}

// =============================================================================
// LEAVE ENTRY HANDLERS
// =============================================================================

// ApplyLeave creates a pending entry and debits the balance.
// POST /api/employees/{id}/leaves
func (h *Handler) ApplyLeave(w http.ResponseWriter, r *http.Request) {
	var req leave.ApplyRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	req.EmployeeID = chi.URLParam(r, "id")

	res, err := h.Service.Apply(r.Context(), req)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toApplyResponse(res))
}

// ApproveLeave moves a pending entry to approved.
// POST /api/employees/{id}/leaves/{date}/approve
func (h *Handler) ApproveLeave(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.Approve)
}

// RejectLeave moves a pending entry to rejected and restores its days.
// POST /api/employees/{id}/leaves/{date}/reject
func (h *Handler) RejectLeave(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.Reject)
}

// CancelLeave moves an approved entry to cancelled and restores its days.
// POST /api/employees/{id}/leaves/{date}/cancel
func (h *Handler) CancelLeave(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.Cancel)
}

type transitionFunc func(ctx context.Context, req leave.TransitionRequest) (*leave.TransitionResult, error)

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn transitionFunc) {
	var req leave.TransitionRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	req.EmployeeID = chi.URLParam(r, "id")
	req.LeaveDate = chi.URLParam(r, "date")

	res, err := fn(r.Context(), req)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransitionResponse(res))
}

// ListUpcoming returns approved leave starting within the window.
// GET /api/leaves/upcoming?department=&leave_type=&days_ahead=
func (h *Handler) ListUpcoming(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := leave.UpcomingQuery{
		Department: q.Get("department"),
		Category:   q.Get("leave_type"),
	}
	if raw := q.Get("days_ahead"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.writeDomainError(w, &leave.RequestError{Field: "days_ahead", Reason: "must be an integer"})
			return
		}
		req.DaysAhead = &n
	}

	res, err := h.Service.ListUpcoming(r.Context(), req)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUpcomingResponse(res))
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// UsageReport returns per-category consumption and utilization.
// GET /api/reports/usage?department=
func (h *Handler) UsageReport(w http.ResponseWriter, r *http.Request) {
	usage, err := h.Service.UsageReport(r.Context(), leave.UsageQuery{
		Department: r.URL.Query().Get("department"),
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUsageDTOs(usage))
}

// AuditTrail returns audit entries, newest last.
// GET /api/audit?employee_id=&action=a,b&limit=
func (h *Handler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter leave.AuditFilter
	if id := q.Get("employee_id"); id != "" {
		eid := leave.EmployeeID(id)
		filter.EmployeeID = &eid
	}
	if actions := q.Get("action"); actions != "" {
		for _, a := range strings.Split(actions, ",") {
			if a = strings.TrimSpace(a); a != "" {
				filter.Actions = append(filter.Actions, leave.AuditAction(a))
			}
		}
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.writeDomainError(w, &leave.RequestError{Field: "limit", Reason: "must be a non-negative integer"})
			return
		}
		filter.Limit = n
	}

	entries, err := h.Service.AuditTrail(r.Context(), filter)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuditEntryDTOs(entries))
}

// =============================================================================
// HELPERS
// =============================================================================

// decodeBody reads an optional JSON body into dst. An empty body leaves dst
// untouched; a malformed one writes a 400 and returns false.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil {
		return true
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	writeError(w, http.StatusBadRequest, codeInvalidRequest, "Invalid request body", err)
	return false
}

// writeDomainError maps err to its status and code. Server errors are logged
// and their details withheld.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error("request failed", zap.Error(err))
		writeError(w, status, code, "Internal server error", nil)
		return
	}
	writeError(w, status, code, err.Error(), nil)
}

const (
	codeEmployeeNotFound    = "EMPLOYEE_NOT_FOUND"
	codeAlreadyExists       = "ALREADY_EXISTS"
	codeInvalidCategory     = "INVALID_CATEGORY"
	codeInvalidDate         = "INVALID_DATE"
	codeDateOrder           = "DATE_ORDER"
	codeInsufficientBalance = "INSUFFICIENT_BALANCE"
	codeNotFound            = "NOT_FOUND"
	codeInvalidRequest      = "INVALID_REQUEST"
	codeInternal            = "INTERNAL_ERROR"
)

// errorStatus returns the HTTP status and stable code for a ledger error.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, leave.ErrEmployeeNotFound):
		return http.StatusNotFound, codeEmployeeNotFound
	case errors.Is(err, leave.ErrNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, leave.ErrAlreadyExists):
		return http.StatusConflict, codeAlreadyExists
	case errors.Is(err, leave.ErrInvalidCategory):
		return http.StatusBadRequest, codeInvalidCategory
	case errors.Is(err, leave.ErrInvalidDate):
		return http.StatusBadRequest, codeInvalidDate
	case errors.Is(err, leave.ErrDateOrder):
		return http.StatusBadRequest, codeDateOrder
	case errors.Is(err, leave.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity, codeInsufficientBalance
	case errors.Is(err, leave.ErrInvalidRequest):
		return http.StatusBadRequest, codeInvalidRequest
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string, err error) {
	resp := ErrorResponse{Error: message, Code: code}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
