/*
handlers_test.go - HTTP tests for the REST endpoints

Tests for:
- Employee listing, registration, balance and history endpoints
- Apply / approve / reject / cancel round trips over HTTP
- Error code mapping (404, 409, 400, 422)
- Metrics endpoint and health probe
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-ledger/leave"
	"github.com/warp/leave-ledger/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type testEnv struct {
	router  http.Handler
	svc     *leave.Service
	metrics *Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.New()
	_, err := leave.Seed(context.Background(), store)
	require.NoError(t, err)

	metrics := NewMetrics()
	svc := leave.NewService(store, nil)
	svc.AuditLog = memory.NewAuditLog()
	svc.Metrics = metrics
	svc.Now = func() time.Time { return time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC) }

	h := NewHandler(svc, nil)
	router := NewRouter(h, RouterOptions{Metrics: metrics})
	return &testEnv{router: router, svc: svc, metrics: metrics}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// =============================================================================
// EMPLOYEE ENDPOINTS
// =============================================================================

func TestListEmployees_SeedOrder(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/employees", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	emps := decode[[]EmployeeDTO](t, rec)
	require.Len(t, emps, 10)
	assert.Equal(t, "E001", emps[0].ID)
	assert.Equal(t, "John Smith", emps[0].Name)
	assert.Equal(t, 2, emps[0].Entries)
}

func TestGetEmployee_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/employees/E999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, codeEmployeeNotFound, decode[ErrorResponse](t, rec).Code)
}

func TestRegisterEmployee(t *testing.T) {
	env := newTestEnv(t)
	body := leave.RegisterRequest{EmployeeID: "E011", Name: "Ada Lovelace", Department: "Engineering"}

	rec := env.do(t, http.MethodPost, "/api/employees", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decode[RegisterResponse](t, rec)
	assert.Equal(t, 12, resp.Employee.Balance["casual"])
	assert.Equal(t, "Employee E011 (Ada Lovelace) added to Engineering department", resp.Message)

	rec = env.do(t, http.MethodPost, "/api/employees", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, codeAlreadyExists, decode[ErrorResponse](t, rec).Code)

	rec = env.do(t, http.MethodPost, "/api/employees", map[string]string{"employee_id": "E012"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, codeInvalidRequest, decode[ErrorResponse](t, rec).Code)
}

func TestRegisterEmployee_BlankAndPaddedIDs(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/employees", map[string]string{
		"employee_id": "   ", "name": "Ghost", "department": "Ops",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, codeInvalidRequest, decode[ErrorResponse](t, rec).Code)

	rec = env.do(t, http.MethodPost, "/api/employees", map[string]string{
		"employee_id": " E011 ", "name": "Ada Lovelace", "department": "Engineering",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "E011", decode[RegisterResponse](t, rec).Employee.ID)

	rec = env.do(t, http.MethodGet, "/api/employees/E011/balance", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetBalance(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/employees/E001/balance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	all := decode[BalanceResponse](t, rec)
	assert.Nil(t, all.Days)
	assert.Equal(t, 5, all.Balances["paternity"])
	assert.True(t, strings.HasPrefix(all.Message, "E001 (John Smith) leave balances:\ncasual: 12"))

	rec = env.do(t, http.MethodGet, "/api/employees/E001/balance?leave_type=sick", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	one := decode[BalanceResponse](t, rec)
	require.NotNil(t, one.Days)
	assert.Equal(t, 10, *one.Days)

	rec = env.do(t, http.MethodGet, "/api/employees/E001/balance?leave_type=vacation", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, codeInvalidCategory, decode[ErrorResponse](t, rec).Code)
}

func TestAdjustBalance(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/employees/E004/balance/adjustments",
		map[string]any{"leave_type": "casual", "days": -20})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[AdjustResponse](t, rec)
	assert.Equal(t, -2, resp.NewBalance)

	rec = env.do(t, http.MethodPost, "/api/employees/E004/balance/adjustments",
		map[string]any{"leave_type": "casual"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// LEAVE LIFECYCLE
// =============================================================================

func TestLeaveLifecycle_OverHTTP(t *testing.T) {
	env := newTestEnv(t)

	// Apply Mon-Tue
	rec := env.do(t, http.MethodPost, "/api/employees/E004/leaves",
		map[string]string{"start_date": "2025-06-02", "end_date": "2025-06-03", "reason": "Trip"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	applied := decode[ApplyResponse](t, rec)
	assert.Equal(t, 2, applied.Entry.Days)
	assert.Equal(t, 16, applied.NewBalance)
	assert.Equal(t, "pending", applied.Entry.Status)

	// Approve
	rec = env.do(t, http.MethodPost, "/api/employees/E004/leaves/2025-06-02/approve", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	approved := decode[TransitionResponse](t, rec)
	assert.Equal(t, "Leave on 2025-06-02 for E004 has been approved", approved.Message)
	assert.Equal(t, 16, approved.NewBalance)

	// Upcoming shows it
	rec = env.do(t, http.MethodGet, "/api/leaves/upcoming?department=HR", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	upcoming := decode[UpcomingResponse](t, rec)
	require.Len(t, upcoming.Employees, 1)
	assert.Equal(t, "E004", upcoming.Employees[0].EmployeeID)

	// Cancel restores
	rec = env.do(t, http.MethodPost, "/api/employees/E004/leaves/2025-06-02/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cancelled := decode[TransitionResponse](t, rec)
	assert.Equal(t, 2, cancelled.Restored)
	assert.Equal(t, 18, cancelled.NewBalance)

	// Second cancel finds nothing
	rec = env.do(t, http.MethodPost, "/api/employees/E004/leaves/2025-06-02/cancel", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, codeNotFound, decode[ErrorResponse](t, rec).Code)

	// History with status filter
	rec = env.do(t, http.MethodGet, "/api/employees/E004/history?status=cancelled", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	hist := decode[HistoryResponse](t, rec)
	require.Len(t, hist.Entries, 1)
	assert.Equal(t, "Trip", hist.Entries[0].Reason)
}

func TestRejectLeave_ReasonFromBody(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/employees/E010/leaves/2025-05-15/reject",
		map[string]string{"reason": "Peak season"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[TransitionResponse](t, rec)
	assert.Equal(t, "Peak season", resp.Entry.RejectReason)
	assert.Equal(t, 3, resp.Restored)
	assert.Contains(t, resp.Message, "Reason: Peak season")
}

func TestApplyLeave_ErrorCodes(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		path   string
		body   map[string]string
		status int
		code   string
	}{
		{"bad date", "/api/employees/E001/leaves", map[string]string{"start_date": "2025/06/02"}, http.StatusBadRequest, codeInvalidDate},
		{"reversed", "/api/employees/E001/leaves", map[string]string{"start_date": "2025-06-05", "end_date": "2025-06-02"}, http.StatusBadRequest, codeDateOrder},
		{"too long", "/api/employees/E001/leaves", map[string]string{"start_date": "2025-06-02", "end_date": "2025-06-30"}, http.StatusUnprocessableEntity, codeInsufficientBalance},
		{"missing start", "/api/employees/E001/leaves", map[string]string{}, http.StatusBadRequest, codeInvalidRequest},
		{"unknown employee", "/api/employees/E999/leaves", map[string]string{"start_date": "2025-06-02"}, http.StatusNotFound, codeEmployeeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decode[ErrorResponse](t, rec).Code)
		})
	}
}

func TestApplyLeave_MalformedBody(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/employees/E001/leaves", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decode[ErrorResponse](t, rec).Details)
}

func TestListUpcoming_BadDaysAhead(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/leaves/upcoming?days_ahead=soon", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/leaves/upcoming?days_ahead=-3", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/leaves/upcoming?days_ahead=9223372036854775807", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Error, "days_ahead")

	rec = env.do(t, http.MethodGet, "/api/leaves/upcoming", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[UpcomingResponse](t, rec)
	assert.True(t, resp.Empty, "seed data has no approved leave after 2025-06-01")
	assert.Equal(t, "No upcoming leaves found", resp.Message)
}

// =============================================================================
// REPORTS & AUDIT
// =============================================================================

func TestUsageReport(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/reports/usage?department=Sales", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	usage := decode[[]UsageDTO](t, rec)
	require.Len(t, usage, 2)
	assert.Equal(t, "E003", usage[0].EmployeeID)
	assert.Equal(t, 7, usage[0].Total.Consumed)
}

func TestAuditTrail(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodPost, "/api/employees/E001/leaves", map[string]string{"start_date": "2025-06-02"})
	env.do(t, http.MethodPost, "/api/employees/E002/leaves", map[string]string{"start_date": "2025-06-02"})
	env.do(t, http.MethodPost, "/api/employees/E002/leaves/2025-06-02/approve", nil)

	rec := env.do(t, http.MethodGet, "/api/audit?employee_id=E002", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decode[[]AuditEntryDTO](t, rec)
	require.Len(t, entries, 2)
	assert.Equal(t, "leave_applied", entries[0].Action)
	assert.Equal(t, "leave_approved", entries[1].Action)

	rec = env.do(t, http.MethodGet, "/api/audit?action=leave_applied&limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries = decode[[]AuditEntryDTO](t, rec)
	require.Len(t, entries, 1)
	assert.Equal(t, "E001", entries[0].EmployeeID)

	rec = env.do(t, http.MethodGet, "/api/audit?limit=x", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// INFRASTRUCTURE
// =============================================================================

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	env.do(t, http.MethodGet, "/api/employees/E999", nil)

	rec = env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "http_requests_total")
	assert.Contains(t, body, `path="/api/employees/{id}`, "labels use the route pattern, not the raw path")
	assert.NotContains(t, body, "E999")
}

func TestCORS_CredentialsOnlyForExplicitOrigins(t *testing.T) {
	svc := leave.NewService(memory.New(), nil)
	h := NewHandler(svc, nil)

	get := func(router http.Handler, origin string) http.Header {
		req := httptest.NewRequest(http.MethodGet, "/api/employees", nil)
		req.Header.Set("Origin", origin)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		return rec.Header()
	}

	// GIVEN: no configured origins
	open := NewRouter(h, RouterOptions{})
	hdr := get(open, "https://evil.test")
	// THEN: any origin may read, but never with credentials
	assert.Equal(t, "*", hdr.Get("Access-Control-Allow-Origin"))
	assert.Empty(t, hdr.Get("Access-Control-Allow-Credentials"))

	// GIVEN: an explicit origin list
	closed := NewRouter(h, RouterOptions{AllowedOrigins: []string{"https://hr.test"}})
	hdr = get(closed, "https://hr.test")
	assert.Equal(t, "https://hr.test", hdr.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", hdr.Get("Access-Control-Allow-Credentials"))

	hdr = get(closed, "https://evil.test")
	assert.Empty(t, hdr.Get("Access-Control-Allow-Origin"))
	assert.Empty(t, hdr.Get("Access-Control-Allow-Credentials"))
}

func TestMetrics_OperationOutcomes(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodPost, "/api/employees/E001/leaves", map[string]string{"start_date": "2025-06-02"})
	env.do(t, http.MethodPost, "/api/employees/E001/leaves", map[string]string{"start_date": "bad"})

	families, err := env.metrics.Registry().Gather()
	require.NoError(t, err)

	outcomes := map[string]float64{}
	for _, f := range families {
		if f.GetName() != "leave_operations_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["operation"] == "apply" {
				outcomes[labels["outcome"]] = m.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, 1.0, outcomes["ok"])
	assert.Equal(t, 1.0, outcomes[codeInvalidDate])
}

func TestErrorStatus_UnknownIsInternal(t *testing.T) {
	status, code := errorStatus(assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, codeInternal, code)
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
