/*
handlers.go - HTTP API handlers for the leave engine

PURPOSE:
  Exposes the leave engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Employees:
    GET    /api/employees                 List all employees
    POST   /api/employees                 Create employee
    GET    /api/employees/{id}            Get employee details
    GET    /api/employees/{id}/balance    Get leave balance
    GET    /api/employees/{id}/hierarchy  Resolved manager chain
    GET    /api/employees/{id}/leaves     Leave history

  Leaves:
    POST   /api/leaves                    Apply for leave
    GET    /api/leaves                    All requests (admin view)
    GET    /api/leaves/pending            Pending for an approver
    GET    /api/leaves/escalated          Escalated to admins
    GET    /api/leaves/{id}               Single request
    PUT    /api/leaves/{id}               Edit while pending
    POST   /api/leaves/{id}/cancel        Withdraw
    POST   /api/leaves/{id}/status        Approve / reject
    GET    /api/leaves/{id}/logs          Action log for one request

  Holidays:
    GET    /api/holidays                  List
    POST   /api/holidays                  Create
    DELETE /api/holidays/{id}             Delete

  Notifications:
    GET    /api/notifications             For a user (?user_id=)
    GET    /api/notifications/unread-count
    POST   /api/notifications/{id}/read   Mark read

  Admin jobs:
    POST   /api/admin/jobs/accrual        Run monthly accrual now
    POST   /api/admin/jobs/reset          Run yearly reset now
    POST   /api/admin/jobs/escalation     Run escalation sweep now
    POST   /api/admin/jobs/recalculate    Recompute balances from joining dates

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found (including missing manager)
  - 409: Conflict (request already decided or cancelled)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.
  Identity comes from request payloads and query parameters.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nimbus-hr/leave-engine/leave"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Directory leave.UserDirectory
	Leaves    leave.LeaveStore
	Holidays  leave.HolidayCalendar
	Notifier  leave.NotificationSink
	Audit     leave.AuditLog

	Lifecycle *leave.Lifecycle
	Ledger    *leave.BalanceLedger
	Resolver  *leave.HierarchyResolver
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Directory.ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i := range employees {
		dtos[i] = toEmployeeDTO(&employees[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id := leave.UserID(chi.URLParam(r, "id"))

	emp, err := h.Directory.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get employee", err)
		return
	}
	if emp == nil {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

// CreateEmployee creates a new employee with the default balance sheet.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "name and email are required", nil)
		return
	}

	emp := leave.Employee{
		ID:           leave.UserID(req.ID),
		EmployeeCode: req.EmployeeCode,
		Name:         req.Name,
		Email:        req.Email,
		Role:         leave.RoleEmployee,
		Employment:   leave.EmploymentRegular,
		Level:        req.Level,
		Designation:  req.Designation,
		Department:   req.Department,
		Balance:      leave.DefaultBalanceSheet(),
		CreatedAt:    time.Now().UTC(),
	}
	if emp.ID == "" {
		emp.ID = leave.UserID(uuid.NewString())
	}
	if req.Role != "" {
		emp.Role = leave.Role(req.Role)
	}
	if req.Employment != "" {
		emp.Employment = leave.EmploymentType(req.Employment)
	}
	if req.ReportsTo != "" {
		managerID := leave.UserID(req.ReportsTo)
		emp.ReportsTo = &managerID
	}
	if req.DateOfBirth != "" {
		dob, err := leave.ParseDate(req.DateOfBirth)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date_of_birth format (use YYYY-MM-DD)", err)
			return
		}
		emp.DateOfBirth = &dob
	}
	if req.DateOfJoin != "" {
		doj, err := leave.ParseDate(req.DateOfJoin)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date_of_joining format (use YYYY-MM-DD)", err)
			return
		}
		emp.DateOfJoining = &doj
	}

	if err := h.Directory.SaveEmployee(r.Context(), emp); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(&emp))
}

// GetBalance returns the balance sheet for an employee.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id := leave.UserID(chi.URLParam(r, "id"))

	emp, err := h.Directory.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get employee", err)
		return
	}
	if emp == nil {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(emp.Balance))
}

// GetHierarchy returns the resolved manager chain, nearest first.
func (h *Handler) GetHierarchy(w http.ResponseWriter, r *http.Request) {
	id := leave.UserID(chi.URLParam(r, "id"))

	chain, err := h.Resolver.ManagerChain(r.Context(), id)
	if err != nil {
		h.mapError(w, err, "Failed to resolve hierarchy")
		return
	}
	writeJSON(w, http.StatusOK, toApproverDTOs(chain))
}

// GetEmployeeLeaves returns the leave history for an employee.
func (h *Handler) GetEmployeeLeaves(w http.ResponseWriter, r *http.Request) {
	id := leave.UserID(chi.URLParam(r, "id"))

	leaves, err := h.Leaves.ListByEmployee(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list leaves", err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTOs(leaves))
}

// =============================================================================
// LEAVE HANDLERS
// =============================================================================

// ApplyLeave submits a new leave request.
func (h *Handler) ApplyLeave(w http.ResponseWriter, r *http.Request) {
	var req ApplyLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	start, end, ok := parseDates(w, req.StartDate, req.EndDate)
	if !ok {
		return
	}

	created, err := h.Lifecycle.Apply(r.Context(), leave.ApplyInput{
		EmployeeID:    leave.UserID(req.EmployeeID),
		Type:          leave.LeaveType(req.LeaveType),
		StartDate:     start,
		EndDate:       end,
		Reason:        req.Reason,
		IsHalfDay:     req.IsHalfDay,
		HalfDayPeriod: leave.HalfDayPeriod(req.HalfDayPeriod),
		LogoutTime:    req.LogoutTime,
	})
	if err != nil {
		h.mapError(w, err, "Failed to apply for leave")
		return
	}
	writeJSON(w, http.StatusCreated, toLeaveDTO(created))
}

// ListLeaves returns every leave request (admin view).
func (h *Handler) ListLeaves(w http.ResponseWriter, r *http.Request) {
	leaves, err := h.Leaves.ListAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list leaves", err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTOs(leaves))
}

// ListPendingLeaves returns requests waiting on an approver.
// With ?approver_id= it filters to that approver's queue; without it,
// all pending requests are returned.
func (h *Handler) ListPendingLeaves(w http.ResponseWriter, r *http.Request) {
	var (
		leaves []leave.LeaveRequest
		err    error
	)
	if approver := r.URL.Query().Get("approver_id"); approver != "" {
		leaves, err = h.Leaves.ListPendingForApprover(r.Context(), leave.UserID(approver))
	} else {
		leaves, err = h.Leaves.ListPending(r.Context())
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list pending leaves", err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTOs(leaves))
}

// ListEscalatedLeaves returns requests that escalated up to admins.
func (h *Handler) ListEscalatedLeaves(w http.ResponseWriter, r *http.Request) {
	admins, err := h.Directory.FindAdmins(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to find admins", err)
		return
	}
	adminIDs := make([]leave.UserID, len(admins))
	for i, a := range admins {
		adminIDs[i] = a.ID
	}

	leaves, err := h.Leaves.ListEscalated(r.Context(), adminIDs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list escalated leaves", err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTOs(leaves))
}

// GetLeave returns a single leave request.
func (h *Handler) GetLeave(w http.ResponseWriter, r *http.Request) {
	id := leave.LeaveID(chi.URLParam(r, "id"))

	req, err := h.Leaves.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get leave", err)
		return
	}
	if req == nil {
		writeError(w, http.StatusNotFound, "Leave not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTO(req))
}

// UpdateLeave edits a pending request.
func (h *Handler) UpdateLeave(w http.ResponseWriter, r *http.Request) {
	id := leave.LeaveID(chi.URLParam(r, "id"))

	var req UpdateLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	start, end, ok := parseDates(w, req.StartDate, req.EndDate)
	if !ok {
		return
	}

	updated, err := h.Lifecycle.Update(r.Context(), id, leave.UpdateInput{
		Type:          leave.LeaveType(req.LeaveType),
		StartDate:     start,
		EndDate:       end,
		Reason:        req.Reason,
		IsHalfDay:     req.IsHalfDay,
		HalfDayPeriod: leave.HalfDayPeriod(req.HalfDayPeriod),
		LogoutTime:    req.LogoutTime,
	})
	if err != nil {
		h.mapError(w, err, "Failed to update leave")
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTO(updated))
}

// CancelLeave withdraws a pending request.
func (h *Handler) CancelLeave(w http.ResponseWriter, r *http.Request) {
	id := leave.LeaveID(chi.URLParam(r, "id"))

	if err := h.Lifecycle.Cancel(r.Context(), id); err != nil {
		h.mapError(w, err, "Failed to cancel leave")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Leave cancelled successfully"})
}

// UpdateLeaveStatus approves or rejects a pending request. Approval
// may carry a sub-range for partial approval.
func (h *Handler) UpdateLeaveStatus(w http.ResponseWriter, r *http.Request) {
	id := leave.LeaveID(chi.URLParam(r, "id"))

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	decision := leave.Decision{
		Status:          leave.LeaveStatus(req.Status),
		ApprovedBy:      req.ApprovedBy,
		RejectionReason: req.RejectionReason,
	}
	if req.ApprovedStartDate != "" && req.ApprovedEndDate != "" {
		start, end, ok := parseDates(w, req.ApprovedStartDate, req.ApprovedEndDate)
		if !ok {
			return
		}
		decision.Partial = &leave.DateRange{Start: start, End: end}
	}

	updated, err := h.Lifecycle.Decide(r.Context(), id, decision)
	if err != nil {
		h.mapError(w, err, "Failed to update leave status")
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTO(updated))
}

// GetLeaveLogs returns the action log for one request.
func (h *Handler) GetLeaveLogs(w http.ResponseWriter, r *http.Request) {
	id := leave.LeaveID(chi.URLParam(r, "id"))

	entries, err := h.Audit.ByLeave(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get leave logs", err)
		return
	}
	dtos := make([]AuditEntryDTO, len(entries))
	for i := range entries {
		dtos[i] = toAuditDTO(&entries[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployeeLogs returns the action log entries for an employee.
func (h *Handler) GetEmployeeLogs(w http.ResponseWriter, r *http.Request) {
	id := leave.UserID(chi.URLParam(r, "id"))

	entries, err := h.Audit.ByEmployee(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get logs", err)
		return
	}
	dtos := make([]AuditEntryDTO, len(entries))
	for i := range entries {
		dtos[i] = toAuditDTO(&entries[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HOLIDAY HANDLERS
// =============================================================================

// ListHolidays returns all holidays ordered by date.
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	holidays, err := h.Holidays.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list holidays", err)
		return
	}
	dtos := make([]HolidayDTO, len(holidays))
	for i := range holidays {
		dtos[i] = toHolidayDTO(&holidays[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateHoliday adds a holiday to the calendar.
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req CreateHolidayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" || req.Date == "" {
		writeError(w, http.StatusBadRequest, "name and date are required", nil)
		return
	}

	date, err := leave.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	typ := leave.HolidayType(req.Type)
	if typ == "" {
		typ = leave.HolidayCompany
	}

	holiday := leave.Holiday{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Date:        date,
		Type:        typ,
		Region:      req.Region,
		Description: req.Description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.Holidays.Save(r.Context(), holiday); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create holiday", err)
		return
	}
	writeJSON(w, http.StatusCreated, toHolidayDTO(&holiday))
}

// DeleteHoliday removes a holiday.
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.Holidays.Delete(r.Context(), id); err != nil {
		h.mapError(w, err, "Failed to delete holiday")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Holiday deleted"})
}

// =============================================================================
// NOTIFICATION HANDLERS
// =============================================================================

// ListNotifications returns all notifications for a user, newest
// first.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id query parameter is required", nil)
		return
	}

	notifications, err := h.Notifier.ListForUser(r.Context(), leave.UserID(userID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list notifications", err)
		return
	}
	dtos := make([]NotificationDTO, len(notifications))
	for i := range notifications {
		dtos[i] = toNotificationDTO(&notifications[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// UnreadCount returns the number of unread notifications.
func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id query parameter is required", nil)
		return
	}

	count, err := h.Notifier.UnreadCount(r.Context(), leave.UserID(userID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count notifications", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread_count": count})
}

// MarkNotificationRead flags one notification as read.
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.Notifier.MarkRead(r.Context(), id); err != nil {
		h.mapError(w, err, "Failed to mark notification read")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Notification marked read"})
}

// =============================================================================
// ADMIN JOB HANDLERS - manual triggers for the scheduled jobs
// =============================================================================

// TriggerAccrual runs the monthly accrual immediately.
func (h *Handler) TriggerAccrual(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Ledger.AccrueMonthly(r.Context(), time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Accrual run failed", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// TriggerReset runs the yearly reset immediately.
func (h *Handler) TriggerReset(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Ledger.ResetYearly(r.Context(), time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Reset run failed", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// TriggerEscalation runs the escalation sweep immediately.
func (h *Handler) TriggerEscalation(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Lifecycle.RunEscalationSweep(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Escalation sweep failed", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// TriggerRecalculate recomputes balances from joining dates. With
// ?employee_id= it recalculates one employee, otherwise everyone.
func (h *Handler) TriggerRecalculate(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	if employeeID := r.URL.Query().Get("employee_id"); employeeID != "" {
		b, err := h.Ledger.Recalculate(r.Context(), leave.UserID(employeeID), now)
		if err != nil {
			h.mapError(w, err, "Recalculation failed")
			return
		}
		writeJSON(w, http.StatusOK, toBalanceDTO(*b))
		return
	}

	summary, err := h.Ledger.RecalculateAll(r.Context(), now)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Recalculation failed", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// =============================================================================
// ERROR MAPPING AND RESPONSE HELPERS
// =============================================================================

// mapError translates domain errors to HTTP status codes.
func (h *Handler) mapError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case leave.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, leave.ErrStateConflict):
		writeError(w, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, leave.ErrHierarchyCycle):
		writeError(w, http.StatusConflict, err.Error(), nil)
	case leave.IsClientError(err):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, fallback, err)
	}
}

func parseDates(w http.ResponseWriter, startStr, endStr string) (start, end leave.Date, ok bool) {
	if startStr == "" || endStr == "" {
		writeError(w, http.StatusBadRequest, "start_date and end_date are required", nil)
		return start, end, false
	}
	start, err := leave.ParseDate(startStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date format (use YYYY-MM-DD)", err)
		return start, end, false
	}
	end, err = leave.ParseDate(endStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date format (use YYYY-MM-DD)", err)
		return start, end, false
	}
	return start, end, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
