/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON shapes returned to clients, decoupled from the leave
  package types. Every response carries a human-readable "message" in the
  same wording the tool interface has always used.

NAMING CONVENTION:
  - *DTO:      nested response items
  - *Response: top-level response bodies
  - request bodies reuse the typed leave.*Request structs directly

SEE ALSO:
  - handlers.go: REST handlers
  - tools.go:    field-keyed tool envelope
*/
package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-ledger/leave"
)

// =============================================================================
// RESPONSE TYPES
// =============================================================================

type EmployeeDTO struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Department string         `json:"department"`
	Balance    map[string]int `json:"balance"`
	Entries    int            `json:"history_entries"`
}

type EntryDTO struct {
	ID           string `json:"id"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	LeaveType    string `json:"leave_type"`
	Status       string `json:"status"`
	Days         int    `json:"days"`
	Reason       string `json:"reason,omitempty"`
	AppliedOn    string `json:"applied_on,omitempty"`
	RejectReason string `json:"reject_reason,omitempty"`
}

type BalanceResponse struct {
	EmployeeID string         `json:"employee_id"`
	Name       string         `json:"name"`
	LeaveType  string         `json:"leave_type,omitempty"`
	Days       *int           `json:"days,omitempty"`
	Balances   map[string]int `json:"balances,omitempty"`
	Message    string         `json:"message"`
}

type ApplyResponse struct {
	EmployeeID string   `json:"employee_id"`
	Name       string   `json:"name"`
	Entry      EntryDTO `json:"entry"`
	NewBalance int      `json:"new_balance"`
	Message    string   `json:"message"`
}

type TransitionResponse struct {
	EmployeeID string   `json:"employee_id"`
	Name       string   `json:"name"`
	Entry      EntryDTO `json:"entry"`
	Restored   int      `json:"restored_days"`
	NewBalance int      `json:"new_balance"`
	Message    string   `json:"message"`
}

type HistoryResponse struct {
	EmployeeID string     `json:"employee_id"`
	Name       string     `json:"name"`
	Entries    []EntryDTO `json:"entries"`
	Empty      bool       `json:"empty"`
	Message    string     `json:"message"`
}

type UpcomingGroupDTO struct {
	EmployeeID string     `json:"employee_id"`
	Name       string     `json:"name"`
	Department string     `json:"department"`
	Entries    []EntryDTO `json:"entries"`
}

type UpcomingResponse struct {
	From      string             `json:"from"`
	To        string             `json:"to"`
	DaysAhead int                `json:"days_ahead"`
	Employees []UpcomingGroupDTO `json:"employees"`
	Empty     bool               `json:"empty"`
	Message   string             `json:"message"`
}

type RegisterResponse struct {
	Employee EmployeeDTO `json:"employee"`
	Message  string      `json:"message"`
}

type AdjustResponse struct {
	EmployeeID string `json:"employee_id"`
	Name       string `json:"name"`
	LeaveType  string `json:"leave_type"`
	Delta      int    `json:"delta"`
	NewBalance int    `json:"new_balance"`
	Message    string `json:"message"`
}

type CategoryUsageDTO struct {
	LeaveType   string          `json:"leave_type,omitempty"`
	Consumed    int             `json:"consumed"`
	Remaining   int             `json:"remaining"`
	Utilization decimal.Decimal `json:"utilization_percent"`
}

type UsageDTO struct {
	EmployeeID string             `json:"employee_id"`
	Name       string             `json:"name"`
	Department string             `json:"department"`
	Categories []CategoryUsageDTO `json:"categories"`
	Total      CategoryUsageDTO   `json:"total"`
}

type AuditEntryDTO struct {
	ID         string         `json:"id"`
	Timestamp  string         `json:"timestamp"`
	Action     string         `json:"action"`
	EmployeeID string         `json:"employee_id"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toBalanceMap(b leave.Balance) map[string]int {
	out := make(map[string]int, len(b))
	for c, d := range b {
		out[string(c)] = d
	}
	return out
}

func toEmployeeDTO(e *leave.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:         string(e.ID),
		Name:       e.Name,
		Department: e.Department,
		Balance:    toBalanceMap(e.Balance),
		Entries:    len(e.History),
	}
}

func toEntryDTO(e leave.Entry) EntryDTO {
	return EntryDTO{
		ID:           string(e.ID),
		StartDate:    e.StartDate.String(),
		EndDate:      e.EndDate.String(),
		LeaveType:    string(e.Category),
		Status:       string(e.Status),
		Days:         e.Days,
		Reason:       e.Reason,
		AppliedOn:    e.AppliedOn.String(),
		RejectReason: e.RejectReason,
	}
}

func toEntryDTOs(entries []leave.Entry) []EntryDTO {
	dtos := make([]EntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toEntryDTO(e)
	}
	return dtos
}

func toBalanceResponse(r *leave.BalanceResult) BalanceResponse {
	resp := BalanceResponse{EmployeeID: string(r.EmployeeID), Name: r.Name}
	if r.Category != "" {
		days := r.Days
		resp.LeaveType = string(r.Category)
		resp.Days = &days
		resp.Message = fmt.Sprintf("%s (%s) has %d %s leave days remaining", r.EmployeeID, r.Name, days, r.Category)
		return resp
	}

	resp.Balances = toBalanceMap(r.Balance)
	lines := make([]string, 0, len(r.Balance))
	for _, c := range r.Balance.Categories() {
		lines = append(lines, fmt.Sprintf("%s: %d", c, r.Balance[c]))
	}
	resp.Message = fmt.Sprintf("%s (%s) leave balances:\n%s", r.EmployeeID, r.Name, strings.Join(lines, "\n"))
	return resp
}

func toApplyResponse(r *leave.ApplyResult) ApplyResponse {
	e := r.Entry
	return ApplyResponse{
		EmployeeID: string(r.EmployeeID),
		Name:       r.Name,
		Entry:      toEntryDTO(e),
		NewBalance: r.Remaining,
		Message: fmt.Sprintf("Leave application submitted for %s (%s):\nType: %s\nDates: %s to %s\nDays: %d\nNew balance: %d",
			r.EmployeeID, r.Name, e.Category, e.StartDate, e.EndDate, e.Days, r.Remaining),
	}
}

func toTransitionResponse(r *leave.TransitionResult) TransitionResponse {
	e := r.Entry
	date := e.StartDate.String()

	var msg string
	switch e.Status {
	case leave.StatusApproved:
		msg = fmt.Sprintf("Leave on %s for %s has been approved", date, r.EmployeeID)
	case leave.StatusRejected:
		msg = fmt.Sprintf("Leave on %s for %s has been rejected.\nReason: %s\nRestored %d %s leave days",
			date, r.EmployeeID, e.RejectReason, r.Restored, e.Category)
	case leave.StatusCancelled:
		msg = fmt.Sprintf("Leave on %s for %s has been cancelled.\nRestored %d %s leave days",
			date, r.EmployeeID, r.Restored, e.Category)
	}

	return TransitionResponse{
		EmployeeID: string(r.EmployeeID),
		Name:       r.Name,
		Entry:      toEntryDTO(e),
		Restored:   r.Restored,
		NewBalance: r.Remaining,
		Message:    msg,
	}
}

func toHistoryResponse(r *leave.HistoryResult) HistoryResponse {
	resp := HistoryResponse{
		EmployeeID: string(r.EmployeeID),
		Name:       r.Name,
		Entries:    toEntryDTOs(r.Entries),
		Empty:      r.Empty(),
	}
	switch {
	case r.NoHistory:
		resp.Message = fmt.Sprintf("No leave history found for %s", r.EmployeeID)
	case r.Empty():
		resp.Message = "No matching leave records found"
	default:
		resp.Message = fmt.Sprintf("Leave history for %s: %d record(s)", r.EmployeeID, len(r.Entries))
	}
	return resp
}

func toUpcomingResponse(r *leave.UpcomingResult) UpcomingResponse {
	resp := UpcomingResponse{
		From:      r.From.String(),
		To:        r.To.String(),
		DaysAhead: r.DaysAhead,
		Employees: make([]UpcomingGroupDTO, len(r.Groups)),
		Empty:     r.Empty(),
	}
	count := 0
	for i, g := range r.Groups {
		resp.Employees[i] = UpcomingGroupDTO{
			EmployeeID: string(g.EmployeeID),
			Name:       g.Name,
			Department: g.Department,
			Entries:    toEntryDTOs(g.Entries),
		}
		count += len(g.Entries)
	}
	if r.Empty() {
		resp.Message = "No upcoming leaves found"
	} else {
		resp.Message = fmt.Sprintf("Upcoming leaves (next %d days): %d", r.DaysAhead, count)
	}
	return resp
}

func toRegisterResponse(e *leave.Employee) RegisterResponse {
	return RegisterResponse{
		Employee: toEmployeeDTO(e),
		Message:  fmt.Sprintf("Employee %s (%s) added to %s department", e.ID, e.Name, e.Department),
	}
}

func toAdjustResponse(r *leave.AdjustResult) AdjustResponse {
	return AdjustResponse{
		EmployeeID: string(r.EmployeeID),
		Name:       r.Name,
		LeaveType:  string(r.Category),
		Delta:      r.Delta,
		NewBalance: r.Balance,
		Message: fmt.Sprintf("Updated %s's %s leave balance by %d days.\nNew balance: %d",
			r.EmployeeID, r.Category, r.Delta, r.Balance),
	}
}

func toCategoryUsageDTO(u leave.CategoryUsage) CategoryUsageDTO {
	return CategoryUsageDTO{
		LeaveType:   string(u.Category),
		Consumed:    u.Consumed,
		Remaining:   u.Remaining,
		Utilization: u.Utilization,
	}
}

func toUsageDTOs(usage []leave.EmployeeUsage) []UsageDTO {
	dtos := make([]UsageDTO, len(usage))
	for i, u := range usage {
		cats := make([]CategoryUsageDTO, len(u.Categories))
		for j, c := range u.Categories {
			cats[j] = toCategoryUsageDTO(c)
		}
		dtos[i] = UsageDTO{
			EmployeeID: string(u.EmployeeID),
			Name:       u.Name,
			Department: u.Department,
			Categories: cats,
			Total:      toCategoryUsageDTO(u.Total),
		}
	}
	return dtos
}

func toAuditEntryDTOs(entries []leave.AuditEntry) []AuditEntryDTO {
	dtos := make([]AuditEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = AuditEntryDTO{
			ID:         e.ID,
			Timestamp:  e.Timestamp.Format(time.RFC3339),
			Action:     string(e.Action),
			EmployeeID: string(e.EmployeeID),
			Payload:    e.Payload,
		}
	}
	return dtos
}
