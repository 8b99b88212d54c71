package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbus-hr/leave-engine/api"
	"github.com/nimbus-hr/leave-engine/leave"
	memstore "github.com/nimbus-hr/leave-engine/leave/store"
)

var testNow = time.Date(2025, time.June, 10, 10, 0, 0, 0, time.UTC)

type testAPI struct {
	Store  *memstore.Memory
	Router http.Handler
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store := memstore.NewMemory()
	ledger := leave.NewBalanceLedger(store)
	resolver := leave.NewHierarchyResolver(store)
	lifecycle := &leave.Lifecycle{
		Directory: store,
		Leaves:    store,
		Holidays:  store,
		Ledger:    ledger,
		Resolver:  resolver,
		Notifier:  store,
		Audit:     store,
		Now:       func() time.Time { return testNow },
	}
	h := &api.Handler{
		Directory: store,
		Leaves:    store,
		Holidays:  store,
		Notifier:  store,
		Audit:     store,
		Lifecycle: lifecycle,
		Ledger:    ledger,
		Resolver:  resolver,
	}
	return &testAPI{Store: store, Router: api.NewRouter(h)}
}

func (a *testAPI) seedEmployees(t *testing.T) {
	t.Helper()
	mgrID := leave.UserID("mgr")
	for _, emp := range []leave.Employee{
		{ID: "mgr", Name: "Morgan Manager", Email: "morgan@example.com", Role: leave.RoleManager},
		{ID: "emp", Name: "Evan Employee", Email: "evan@example.com", Role: leave.RoleEmployee, ReportsTo: &mgrID},
	} {
		emp.Employment = leave.EmploymentRegular
		emp.Balance = leave.DefaultBalanceSheet()
		emp.CreatedAt = testNow
		require.NoError(t, a.Store.SaveEmployee(context.Background(), emp))
	}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), "body: %s", rec.Body.String())
	return v
}

func (a *testAPI) applyLeave(t *testing.T) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/leaves", map[string]any{
		"employee_id": "emp",
		"leave_type":  "planned",
		"start_date":  "2025-06-20",
		"end_date":    "2025-06-22",
		"reason":      "family trip",
	})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
	dto := decodeBody[map[string]any](t, rec)
	return dto["id"].(string)
}

// =============================================================================
// HEALTH AND EMPLOYEES
// =============================================================================

func TestHealthEndpoint(t *testing.T) {
	a := newTestAPI(t)
	rec := a.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateAndGetEmployee(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/api/employees", map[string]any{
		"id":              "e1",
		"name":            "Evan Employee",
		"email":           "evan@example.com",
		"date_of_joining": "2024-03-10",
	})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())

	rec = a.do(t, http.MethodGet, "/api/employees/e1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dto := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "Evan Employee", dto["name"])
	assert.Equal(t, "2024-03-10", dto["date_of_joining"])

	balance, ok := dto["leave_balance"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "12", fmt.Sprint(balance["planned"]))
}

func TestCreateEmployeeRequiresNameAndEmail(t *testing.T) {
	a := newTestAPI(t)
	rec := a.do(t, http.MethodPost, "/api/employees", map[string]any{"name": "No Email"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetEmployeeNotFound(t *testing.T) {
	a := newTestAPI(t)
	rec := a.do(t, http.MethodGet, "/api/employees/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetHierarchy(t *testing.T) {
	a := newTestAPI(t)
	a.seedEmployees(t)

	rec := a.do(t, http.MethodGet, "/api/employees/emp/hierarchy", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	chain := decodeBody[[]map[string]any](t, rec)
	require.Len(t, chain, 1)
	assert.Equal(t, "mgr", chain[0]["id"])
	assert.Equal(t, "Manager", chain[0]["role"])
}

// =============================================================================
// LEAVES
// =============================================================================

func TestApplyLeaveEndpoint(t *testing.T) {
	a := newTestAPI(t)
	a.seedEmployees(t)

	id := a.applyLeave(t)

	rec := a.do(t, http.MethodGet, "/api/leaves/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dto := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "Pending", dto["status"])
	assert.Equal(t, "2025-06-20", dto["start_date"])
	assert.Equal(t, "3", fmt.Sprint(dto["days"]))
}

func TestApplyLeaveValidationFailures(t *testing.T) {
	a := newTestAPI(t)
	a.seedEmployees(t)

	// Missing dates.
	rec := a.do(t, http.MethodPost, "/api/leaves", map[string]any{
		"employee_id": "emp", "leave_type": "planned",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Bad leave type.
	rec = a.do(t, http.MethodPost, "/api/leaves", map[string]any{
		"employee_id": "emp", "leave_type": "sabbatical",
		"start_date": "2025-06-20", "end_date": "2025-06-22",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown employee.
	rec = a.do(t, http.MethodPost, "/api/leaves", map[string]any{
		"employee_id": "ghost", "leave_type": "planned",
		"start_date": "2025-06-20", "end_date": "2025-06-22",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestApproveLeaveEndpoint(t *testing.T) {
	a := newTestAPI(t)
	a.seedEmployees(t)
	id := a.applyLeave(t)

	rec := a.do(t, http.MethodPost, "/api/leaves/"+id+"/status", map[string]any{
		"status": "Approved", "approved_by": "Morgan Manager",
	})
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	dto := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "Approved", dto["status"])

	// 3 planned days deducted.
	rec = a.do(t, http.MethodGet, "/api/employees/emp/balance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	balance := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "9", fmt.Sprint(balance["planned"]))
}

func TestDecideTwiceIsConflict(t *testing.T) {
	a := newTestAPI(t)
	a.seedEmployees(t)
	id := a.applyLeave(t)

	rec := a.do(t, http.MethodPost, "/api/leaves/"+id+"/status", map[string]any{
		"status": "Approved", "approved_by": "Morgan Manager",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/leaves/"+id+"/status", map[string]any{
		"status": "Rejected", "rejection_reason": "too late",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPartialApprovalEndpoint(t *testing.T) {
	a := newTestAPI(t)
	a.seedEmployees(t)
	id := a.applyLeave(t)

	rec := a.do(t, http.MethodPost, "/api/leaves/"+id+"/status", map[string]any{
		"status":              "Approved",
		"approved_by":         "Morgan Manager",
		"approved_start_date": "2025-06-20",
		"approved_end_date":   "2025-06-21",
	})
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	dto := decodeBody[map[string]any](t, rec)
	assert.Equal(t, true, dto["is_partial_approval"])
	assert.Equal(t, "2", fmt.Sprint(dto["approved_days"]))
	assert.Equal(t, "2025-06-22", dto["original_end_date"])
}

func TestCancelLeaveEndpoint(t *testing.T) {
	a := newTestAPI(t)
	a.seedEmployees(t)
	id := a.applyLeave(t)

	rec := a.do(t, http.MethodPost, "/api/leaves/"+id+"/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/leaves/"+id+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPendingQueueFilter(t *testing.T) {
	a := newTestAPI(t)
	a.seedEmployees(t)
	a.applyLeave(t)

	rec := a.do(t, http.MethodGet, "/api/leaves/pending?approver_id=mgr", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	queue := decodeBody[[]map[string]any](t, rec)
	assert.Len(t, queue, 1)

	rec = a.do(t, http.MethodGet, "/api/leaves/pending?approver_id=nobody", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	queue = decodeBody[[]map[string]any](t, rec)
	assert.Empty(t, queue)
}

func TestLeaveLogsEndpoint(t *testing.T) {
	a := newTestAPI(t)
	a.seedEmployees(t)
	id := a.applyLeave(t)

	rec := a.do(t, http.MethodGet, "/api/leaves/"+id+"/logs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	logs := decodeBody[[]map[string]any](t, rec)
	require.Len(t, logs, 1)
	assert.Equal(t, "Submitted", logs[0]["action"])
	assert.Equal(t, "evan@example.com", logs[0]["performed_by"])

	snap, ok := logs[0]["new_data"].(map[string]any)
	require.True(t, ok, "new_data = %v", logs[0]["new_data"])
	assert.Equal(t, "planned", snap["leave_type"])
	assert.Equal(t, "2025-06-20", snap["start_date"])
	assert.Equal(t, "Pending", snap["status"])
}

// =============================================================================
// HOLIDAYS AND NOTIFICATIONS
// =============================================================================

func TestHolidayLifecycle(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/api/holidays", map[string]any{
		"name": "Founders Day", "date": "2025-08-15", "type": "optional",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[map[string]any](t, rec)
	id := created["id"].(string)

	rec = a.do(t, http.MethodGet, "/api/holidays", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[[]map[string]any](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "optional", list[0]["type"])

	rec = a.do(t, http.MethodDelete, "/api/holidays/"+id, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodDelete, "/api/holidays/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNotificationsRequireUserID(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodGet, "/api/notifications", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/notifications/unread-count", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotificationFeed(t *testing.T) {
	a := newTestAPI(t)
	a.seedEmployees(t)
	a.applyLeave(t)

	rec := a.do(t, http.MethodGet, "/api/notifications?user_id=mgr", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	feed := decodeBody[[]map[string]any](t, rec)
	require.Len(t, feed, 1)
	assert.Equal(t, "leave_request", feed[0]["type"])

	rec = a.do(t, http.MethodGet, "/api/notifications/unread-count?user_id=mgr", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	count := decodeBody[map[string]int](t, rec)
	assert.Equal(t, 1, count["unread_count"])

	id := feed[0]["id"].(string)
	rec = a.do(t, http.MethodPost, "/api/notifications/"+id+"/read", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/notifications/unread-count?user_id=mgr", nil)
	count = decodeBody[map[string]int](t, rec)
	assert.Equal(t, 0, count["unread_count"])
}

// =============================================================================
// ADMIN JOBS
// =============================================================================

func TestAdminJobTriggers(t *testing.T) {
	a := newTestAPI(t)
	a.seedEmployees(t)

	rec := a.do(t, http.MethodPost, "/api/admin/jobs/escalation", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decodeBody[map[string]int](t, rec)
	assert.Equal(t, 0, summary["escalated_count"])

	rec = a.do(t, http.MethodPost, "/api/admin/jobs/reset", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/admin/jobs/accrual", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
