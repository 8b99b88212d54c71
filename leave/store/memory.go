/*
memory.go - In-memory persistence (for testing/dev)

PURPOSE:
  Map-backed implementations of every leave storage interface behind
  a single mutex. Returned records are copies; callers never see
  internal state.

  The conditional update on leave requests compares the stored status
  under the lock, which gives the same last-writer-loses guarantee the
  SQLite store gets from a guarded UPDATE.

SEE ALSO:
  - store/sqlite: the production implementation
*/
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/nimbus-hr/leave-engine/leave"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

// Memory implements leave.UserDirectory, leave.LeaveStore,
// leave.HolidayCalendar, leave.NotificationSink and leave.AuditLog.
type Memory struct {
	mu            sync.RWMutex
	employees     map[leave.UserID]leave.Employee
	leaves        map[leave.LeaveID]leave.LeaveRequest
	holidays      map[string]leave.Holiday
	notifications map[string]leave.Notification
	audit         []leave.AuditEntry
}

func NewMemory() *Memory {
	return &Memory{
		employees:     make(map[leave.UserID]leave.Employee),
		leaves:        make(map[leave.LeaveID]leave.LeaveRequest),
		holidays:      make(map[string]leave.Holiday),
		notifications: make(map[string]leave.Notification),
	}
}

// =============================================================================
// USER DIRECTORY
// =============================================================================

func (m *Memory) GetByID(_ context.Context, id leave.UserID) (*leave.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	emp, ok := m.employees[id]
	if !ok {
		return nil, nil
	}
	cp := emp
	return &cp, nil
}

func (m *Memory) GetByEmail(_ context.Context, email string) (*leave.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, emp := range m.employees {
		if emp.Email == email {
			cp := emp
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *Memory) FindAdmins(_ context.Context) ([]leave.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []leave.Employee
	for _, emp := range m.employees {
		if emp.Role == leave.RoleAdmin {
			out = append(out, emp)
		}
	}
	sortEmployees(out)
	return out, nil
}

func (m *Memory) FindDirectReports(_ context.Context, managerID leave.UserID) ([]leave.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []leave.Employee
	for _, emp := range m.employees {
		if emp.ReportsTo != nil && *emp.ReportsTo == managerID {
			out = append(out, emp)
		}
	}
	sortEmployees(out)
	return out, nil
}

func (m *Memory) ListEmployees(_ context.Context) ([]leave.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]leave.Employee, 0, len(m.employees))
	for _, emp := range m.employees {
		out = append(out, emp)
	}
	sortEmployees(out)
	return out, nil
}

func (m *Memory) SaveEmployee(_ context.Context, emp leave.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[emp.ID] = emp
	return nil
}

func (m *Memory) UpdateBalance(_ context.Context, id leave.UserID, b leave.BalanceSheet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	emp, ok := m.employees[id]
	if !ok {
		return &leave.NotFoundError{Kind: "employee", ID: string(id)}
	}
	emp.Balance = b
	m.employees[id] = emp
	return nil
}

// Deterministic ordering keeps admin fallback stable.
func sortEmployees(emps []leave.Employee) {
	sort.Slice(emps, func(i, j int) bool { return emps[i].CreatedAt.Before(emps[j].CreatedAt) })
}

// =============================================================================
// LEAVE STORE
// =============================================================================

func (m *Memory) Insert(_ context.Context, req leave.LeaveRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaves[req.ID] = cloneLeave(req)
	return nil
}

func (m *Memory) Get(_ context.Context, id leave.LeaveID) (*leave.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	req, ok := m.leaves[id]
	if !ok {
		return nil, nil
	}
	cp := cloneLeave(req)
	return &cp, nil
}

func (m *Memory) Update(_ context.Context, req leave.LeaveRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.leaves[req.ID]; !ok {
		return &leave.NotFoundError{Kind: "leave", ID: string(req.ID)}
	}
	m.leaves[req.ID] = cloneLeave(req)
	return nil
}

// UpdateIfPending replaces the stored record only while its status is
// still Pending. Checked and written under one lock.
func (m *Memory) UpdateIfPending(_ context.Context, req leave.LeaveRequest) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.leaves[req.ID]
	if !ok {
		return false, &leave.NotFoundError{Kind: "leave", ID: string(req.ID)}
	}
	if current.Status != leave.StatusPending {
		return false, nil
	}
	m.leaves[req.ID] = cloneLeave(req)
	return true, nil
}

func (m *Memory) ListByEmployee(_ context.Context, employeeID leave.UserID) ([]leave.LeaveRequest, error) {
	return m.listLeaves(func(r *leave.LeaveRequest) bool { return r.EmployeeID == employeeID }), nil
}

func (m *Memory) ListPending(_ context.Context) ([]leave.LeaveRequest, error) {
	return m.listLeaves(func(r *leave.LeaveRequest) bool { return r.Status == leave.StatusPending }), nil
}

func (m *Memory) ListPendingForApprover(_ context.Context, approverID leave.UserID) ([]leave.LeaveRequest, error) {
	return m.listLeaves(func(r *leave.LeaveRequest) bool {
		return r.Status == leave.StatusPending &&
			r.CurrentApproverID != nil && *r.CurrentApproverID == approverID
	}), nil
}

func (m *Memory) ListEscalated(_ context.Context, adminIDs []leave.UserID) ([]leave.LeaveRequest, error) {
	admins := make(map[leave.UserID]bool, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = true
	}
	return m.listLeaves(func(r *leave.LeaveRequest) bool {
		if r.Status != leave.StatusPending || r.EscalationLevel == 0 {
			return false
		}
		return r.CurrentApproverID != nil && admins[*r.CurrentApproverID]
	}), nil
}

func (m *Memory) ListAll(_ context.Context) ([]leave.LeaveRequest, error) {
	return m.listLeaves(func(*leave.LeaveRequest) bool { return true }), nil
}

func (m *Memory) listLeaves(keep func(*leave.LeaveRequest) bool) []leave.LeaveRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []leave.LeaveRequest
	for _, req := range m.leaves {
		if keep(&req) {
			out = append(out, cloneLeave(req))
		}
	}
	// Newest first, matching the SQLite ORDER BY.
	sort.Slice(out, func(i, j int) bool { return out[i].AppliedOn.After(out[j].AppliedOn) })
	return out
}

func cloneLeave(req leave.LeaveRequest) leave.LeaveRequest {
	cp := req
	cp.EscalationHistory = append([]leave.EscalationEntry(nil), req.EscalationHistory...)
	return cp
}

// =============================================================================
// HOLIDAY CALENDAR
// =============================================================================

func (m *Memory) Find(_ context.Context, date leave.Date, typ leave.HolidayType) (*leave.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, h := range m.holidays {
		if h.Date.Equal(date) && h.Type == typ {
			cp := h
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *Memory) List(_ context.Context) ([]leave.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]leave.Holiday, 0, len(m.holidays))
	for _, h := range m.holidays {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *Memory) Save(_ context.Context, h leave.Holiday) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holidays[h.ID] = h
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.holidays[id]; !ok {
		return &leave.NotFoundError{Kind: "holiday", ID: id}
	}
	delete(m.holidays, id)
	return nil
}

// =============================================================================
// NOTIFICATION SINK
// =============================================================================

func (m *Memory) Create(_ context.Context, n leave.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications[n.ID] = n
	return nil
}

func (m *Memory) ListForUser(_ context.Context, userID leave.UserID) ([]leave.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []leave.Notification
	for _, n := range m.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) MarkRead(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok {
		return &leave.NotFoundError{Kind: "notification", ID: id}
	}
	n.Read = true
	m.notifications[id] = n
	return nil
}

func (m *Memory) UnreadCount(_ context.Context, userID leave.UserID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, n := range m.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

// =============================================================================
// AUDIT LOG
// =============================================================================

func (m *Memory) Record(_ context.Context, entry leave.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, entry)
	return nil
}

func (m *Memory) ByLeave(_ context.Context, leaveID leave.LeaveID) ([]leave.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []leave.AuditEntry
	for _, e := range m.audit {
		if e.LeaveID == leaveID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *Memory) ByEmployee(_ context.Context, employeeID leave.UserID) ([]leave.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []leave.AuditEntry
	for _, e := range m.audit {
		if e.EmployeeID == employeeID {
			out = append(out, e)
		}
	}
	return out, nil
}
