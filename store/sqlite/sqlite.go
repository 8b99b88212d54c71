/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements all persistence interfaces (UserDirectory, LeaveStore,
  HolidayCalendar, NotificationSink, AuditLog) using SQLite. In
  production, the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  employees:      Directory records with the embedded balance sheet
  leaves:         Leave requests, including escalation state
  holidays:       Company holiday calendar
  notifications:  In-app notification feed
  leave_logs:     Immutable action log with before/after snapshots

DECIMAL COLUMNS:
  Balances and day counts are stored as TEXT and parsed with
  shopspring/decimal. REAL columns would reintroduce the float drift
  the decimal type exists to avoid.

CONDITIONAL UPDATE:
  UpdateIfPending issues a single UPDATE guarded by status='Pending'
  and inspects RowsAffected. Two racing decisions on the same request
  resolve to exactly one winner inside SQLite.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - leave/store.go: Interface definitions
  - leave/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/nimbus-hr/leave-engine/leave"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection sidesteps SQLITE_BUSY on concurrent writers.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Employees (directory + embedded balance sheet)
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		employee_code TEXT,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL,
		employment TEXT NOT NULL,
		level INTEGER DEFAULT 0,
		designation TEXT,
		department TEXT,
		reports_to TEXT,
		date_of_birth TEXT,
		date_of_joining TEXT,
		bal_sick TEXT NOT NULL,
		bal_sick_total TEXT NOT NULL,
		bal_planned TEXT NOT NULL,
		bal_planned_total TEXT NOT NULL,
		bal_optional TEXT NOT NULL,
		bal_optional_total TEXT NOT NULL,
		bal_lwp TEXT NOT NULL,
		last_accrual_date TEXT,
		last_reset_date TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_employees_reports_to
		ON employees(reports_to) WHERE reports_to IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_employees_role
		ON employees(role);

	-- Leave requests
	CREATE TABLE IF NOT EXISTS leaves (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		employee_name TEXT NOT NULL,
		employee_email TEXT,
		employee_designation TEXT,
		employee_department TEXT,
		leave_type TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		days TEXT NOT NULL,
		is_half_day BOOLEAN DEFAULT FALSE,
		half_day_period TEXT,
		logout_time TEXT,
		reason TEXT,
		status TEXT NOT NULL DEFAULT 'Pending',
		applied_on TEXT NOT NULL,
		escalation_level INTEGER DEFAULT 0,
		current_approver_id TEXT,
		previous_approver_id TEXT,
		escalated_on TEXT,
		escalation_history TEXT,
		approved_by TEXT,
		approved_on TEXT,
		approved_days TEXT,
		is_partial_approval BOOLEAN DEFAULT FALSE,
		approved_start_date TEXT,
		approved_end_date TEXT,
		original_start_date TEXT,
		original_end_date TEXT,
		original_days TEXT,
		rejection_reason TEXT,
		rejected_on TEXT,
		cancelled_on TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_leaves_employee
		ON leaves(employee_id);
	CREATE INDEX IF NOT EXISTS idx_leaves_status
		ON leaves(status);

	-- Hot path for the escalation sweep and approver dashboards
	CREATE INDEX IF NOT EXISTS idx_leaves_status_approver
		ON leaves(status, current_approver_id);

	-- Holidays
	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		date TEXT NOT NULL,
		holiday_type TEXT NOT NULL,
		region TEXT,
		description TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_holidays_date_type
		ON holidays(date, holiday_type);

	-- Notifications
	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		notification_type TEXT NOT NULL,
		message TEXT NOT NULL,
		related_leave_id TEXT,
		read BOOLEAN DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_notifications_user
		ON notifications(user_id, read);

	-- Action log (append-only)
	CREATE TABLE IF NOT EXISTS leave_logs (
		id TEXT PRIMARY KEY,
		leave_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		employee_code TEXT,
		employee_name TEXT,
		action TEXT NOT NULL,
		performed_by TEXT NOT NULL,
		old_data TEXT,
		new_data TEXT,
		remarks TEXT,
		timestamp TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leave_logs_leave
		ON leave_logs(leave_id);
	CREATE INDEX IF NOT EXISTS idx_leave_logs_employee
		ON leave_logs(employee_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// USER DIRECTORY (leave.UserDirectory interface)
// =============================================================================

const employeeColumns = `id, employee_code, name, email, role, employment, level,
	designation, department, reports_to, date_of_birth, date_of_joining,
	bal_sick, bal_sick_total, bal_planned, bal_planned_total,
	bal_optional, bal_optional_total, bal_lwp,
	last_accrual_date, last_reset_date, created_at`

func (s *Store) GetByID(ctx context.Context, id leave.UserID) (*leave.Employee, error) {
	return s.getEmployee(ctx, "id = ?", string(id))
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*leave.Employee, error) {
	return s.getEmployee(ctx, "email = ?", email)
}

func (s *Store) getEmployee(ctx context.Context, where string, arg any) (*leave.Employee, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+employeeColumns+" FROM employees WHERE "+where, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query employee: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	emp, err := scanEmployee(rows)
	if err != nil {
		return nil, err
	}
	return &emp, nil
}

func (s *Store) FindAdmins(ctx context.Context) ([]leave.Employee, error) {
	return s.queryEmployees(ctx,
		"SELECT "+employeeColumns+" FROM employees WHERE role = ? ORDER BY created_at ASC",
		string(leave.RoleAdmin))
}

func (s *Store) FindDirectReports(ctx context.Context, managerID leave.UserID) ([]leave.Employee, error) {
	return s.queryEmployees(ctx,
		"SELECT "+employeeColumns+" FROM employees WHERE reports_to = ? ORDER BY created_at ASC",
		string(managerID))
}

func (s *Store) ListEmployees(ctx context.Context) ([]leave.Employee, error) {
	return s.queryEmployees(ctx,
		"SELECT "+employeeColumns+" FROM employees ORDER BY created_at ASC")
}

func (s *Store) SaveEmployee(ctx context.Context, emp leave.Employee) error {
	query := `
		INSERT INTO employees
		(` + employeeColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			employee_code = excluded.employee_code,
			name = excluded.name,
			email = excluded.email,
			role = excluded.role,
			employment = excluded.employment,
			level = excluded.level,
			designation = excluded.designation,
			department = excluded.department,
			reports_to = excluded.reports_to,
			date_of_birth = excluded.date_of_birth,
			date_of_joining = excluded.date_of_joining,
			bal_sick = excluded.bal_sick,
			bal_sick_total = excluded.bal_sick_total,
			bal_planned = excluded.bal_planned,
			bal_planned_total = excluded.bal_planned_total,
			bal_optional = excluded.bal_optional,
			bal_optional_total = excluded.bal_optional_total,
			bal_lwp = excluded.bal_lwp,
			last_accrual_date = excluded.last_accrual_date,
			last_reset_date = excluded.last_reset_date
	`

	b := emp.Balance
	_, err := s.db.ExecContext(ctx, query,
		string(emp.ID),
		emp.EmployeeCode,
		emp.Name,
		emp.Email,
		string(emp.Role),
		string(emp.Employment),
		emp.Level,
		emp.Designation,
		emp.Department,
		nullUserID(emp.ReportsTo),
		nullDate(emp.DateOfBirth),
		nullDate(emp.DateOfJoining),
		b.Sick.String(),
		b.SickTotal.String(),
		b.Planned.String(),
		b.PlannedTotal.String(),
		b.Optional.String(),
		b.OptionalTotal.String(),
		b.LWP.String(),
		nullDate(b.LastAccrualDate),
		nullTime(b.LastResetDate),
		emp.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

func (s *Store) UpdateBalance(ctx context.Context, id leave.UserID, b leave.BalanceSheet) error {
	query := `
		UPDATE employees SET
			bal_sick = ?, bal_sick_total = ?,
			bal_planned = ?, bal_planned_total = ?,
			bal_optional = ?, bal_optional_total = ?,
			bal_lwp = ?,
			last_accrual_date = ?, last_reset_date = ?
		WHERE id = ?
	`

	res, err := s.db.ExecContext(ctx, query,
		b.Sick.String(), b.SickTotal.String(),
		b.Planned.String(), b.PlannedTotal.String(),
		b.Optional.String(), b.OptionalTotal.String(),
		b.LWP.String(),
		nullDate(b.LastAccrualDate), nullTime(b.LastResetDate),
		string(id),
	)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &leave.NotFoundError{Kind: "employee", ID: string(id)}
	}
	return nil
}

func (s *Store) queryEmployees(ctx context.Context, query string, args ...any) ([]leave.Employee, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var employees []leave.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

func scanEmployee(rows *sql.Rows) (leave.Employee, error) {
	var (
		emp           leave.Employee
		id            string
		role          string
		employment    string
		employeeCode  sql.NullString
		designation   sql.NullString
		department    sql.NullString
		reportsTo     sql.NullString
		dob           sql.NullString
		doj           sql.NullString
		sick          string
		sickTotal     string
		planned       string
		plannedTotal  string
		optional      string
		optionalTotal string
		lwp           string
		lastAccrual   sql.NullString
		lastReset     sql.NullString
		createdAt     string
	)

	err := rows.Scan(
		&id, &employeeCode, &emp.Name, &emp.Email, &role, &employment, &emp.Level,
		&designation, &department, &reportsTo, &dob, &doj,
		&sick, &sickTotal, &planned, &plannedTotal,
		&optional, &optionalTotal, &lwp,
		&lastAccrual, &lastReset, &createdAt,
	)
	if err != nil {
		return emp, fmt.Errorf("failed to scan employee: %w", err)
	}

	emp.ID = leave.UserID(id)
	emp.EmployeeCode = employeeCode.String
	emp.Role = leave.Role(role)
	emp.Employment = leave.EmploymentType(employment)
	emp.Designation = designation.String
	emp.Department = department.String
	if reportsTo.Valid {
		managerID := leave.UserID(reportsTo.String)
		emp.ReportsTo = &managerID
	}
	emp.DateOfBirth = parseDatePtr(dob)
	emp.DateOfJoining = parseDatePtr(doj)

	emp.Balance = leave.BalanceSheet{
		Sick:            mustDecimal(sick),
		SickTotal:       mustDecimal(sickTotal),
		Planned:         mustDecimal(planned),
		PlannedTotal:    mustDecimal(plannedTotal),
		Optional:        mustDecimal(optional),
		OptionalTotal:   mustDecimal(optionalTotal),
		LWP:             mustDecimal(lwp),
		LastAccrualDate: parseDatePtr(lastAccrual),
		LastResetDate:   parseTimePtr(lastReset),
	}
	emp.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	return emp, nil
}

// =============================================================================
// LEAVE STORE (leave.LeaveStore interface)
// =============================================================================

const leaveColumns = `id, employee_id, employee_name, employee_email,
	employee_designation, employee_department, leave_type, start_date, end_date,
	days, is_half_day, half_day_period, logout_time, reason, status, applied_on,
	escalation_level, current_approver_id, previous_approver_id, escalated_on,
	escalation_history, approved_by, approved_on, approved_days,
	is_partial_approval, approved_start_date, approved_end_date,
	original_start_date, original_end_date, original_days,
	rejection_reason, rejected_on, cancelled_on`

func (s *Store) Insert(ctx context.Context, req leave.LeaveRequest) error {
	query := `
		INSERT INTO leaves
		(` + leaveColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query, insertLeaveArgs(&req)...)
	if err != nil {
		return fmt.Errorf("failed to insert leave: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id leave.LeaveID) (*leave.LeaveRequest, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+leaveColumns+" FROM leaves WHERE id = ?", string(id))
	if err != nil {
		return nil, fmt.Errorf("failed to query leave: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	req, err := scanLeave(rows)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (s *Store) Update(ctx context.Context, req leave.LeaveRequest) error {
	res, err := s.db.ExecContext(ctx, updateLeaveQuery(""), updateLeaveArgs(&req)...)
	if err != nil {
		return fmt.Errorf("failed to update leave: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &leave.NotFoundError{Kind: "leave", ID: string(req.ID)}
	}
	return nil
}

// UpdateIfPending updates the row only while its status is still
// Pending. The guard and the write are one statement; RowsAffected
// tells the caller whether it won.
func (s *Store) UpdateIfPending(ctx context.Context, req leave.LeaveRequest) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		updateLeaveQuery(" AND status = 'Pending'"), updateLeaveArgs(&req)...)
	if err != nil {
		return false, fmt.Errorf("failed to update leave: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func updateLeaveQuery(guard string) string {
	return `
		UPDATE leaves SET
			leave_type = ?, start_date = ?, end_date = ?, days = ?,
			is_half_day = ?, half_day_period = ?, logout_time = ?, reason = ?,
			status = ?, escalation_level = ?, current_approver_id = ?,
			previous_approver_id = ?, escalated_on = ?, escalation_history = ?,
			approved_by = ?, approved_on = ?, approved_days = ?,
			is_partial_approval = ?, approved_start_date = ?, approved_end_date = ?,
			original_start_date = ?, original_end_date = ?, original_days = ?,
			rejection_reason = ?, rejected_on = ?, cancelled_on = ?
		WHERE id = ?` + guard
}

func updateLeaveArgs(req *leave.LeaveRequest) []any {
	history, _ := json.Marshal(req.EscalationHistory)
	return []any{
		string(req.Type),
		req.StartDate.String(),
		req.EndDate.String(),
		req.Days.String(),
		req.IsHalfDay,
		nullString(string(req.HalfDayPeriod)),
		nullString(req.LogoutTime),
		nullString(req.Reason),
		string(req.Status),
		req.EscalationLevel,
		nullUserID(req.CurrentApproverID),
		nullUserID(req.PreviousApproverID),
		nullTime(req.EscalatedOn),
		string(history),
		nullString(req.ApprovedBy),
		nullTime(req.ApprovedOn),
		nullString(decimalString(req.ApprovedDays)),
		req.IsPartialApproval,
		nullDate(req.ApprovedStartDate),
		nullDate(req.ApprovedEndDate),
		nullDate(req.OriginalStartDate),
		nullDate(req.OriginalEndDate),
		nullString(decimalString(req.OriginalDays)),
		nullString(req.RejectionReason),
		nullTime(req.RejectedOn),
		nullTime(req.CancelledOn),
		string(req.ID),
	}
}

func insertLeaveArgs(req *leave.LeaveRequest) []any {
	history, _ := json.Marshal(req.EscalationHistory)
	return []any{
		string(req.ID),
		string(req.EmployeeID),
		req.EmployeeName,
		nullString(req.EmployeeEmail),
		nullString(req.EmployeeDesignation),
		nullString(req.EmployeeDepartment),
		string(req.Type),
		req.StartDate.String(),
		req.EndDate.String(),
		req.Days.String(),
		req.IsHalfDay,
		nullString(string(req.HalfDayPeriod)),
		nullString(req.LogoutTime),
		nullString(req.Reason),
		string(req.Status),
		req.AppliedOn.UTC().Format(time.RFC3339),
		req.EscalationLevel,
		nullUserID(req.CurrentApproverID),
		nullUserID(req.PreviousApproverID),
		nullTime(req.EscalatedOn),
		string(history),
		nullString(req.ApprovedBy),
		nullTime(req.ApprovedOn),
		nullString(decimalString(req.ApprovedDays)),
		req.IsPartialApproval,
		nullDate(req.ApprovedStartDate),
		nullDate(req.ApprovedEndDate),
		nullDate(req.OriginalStartDate),
		nullDate(req.OriginalEndDate),
		nullString(decimalString(req.OriginalDays)),
		nullString(req.RejectionReason),
		nullTime(req.RejectedOn),
		nullTime(req.CancelledOn),
	}
}

func (s *Store) ListByEmployee(ctx context.Context, employeeID leave.UserID) ([]leave.LeaveRequest, error) {
	return s.queryLeaves(ctx,
		"SELECT "+leaveColumns+" FROM leaves WHERE employee_id = ? ORDER BY applied_on DESC",
		string(employeeID))
}

func (s *Store) ListPending(ctx context.Context) ([]leave.LeaveRequest, error) {
	return s.queryLeaves(ctx,
		"SELECT "+leaveColumns+" FROM leaves WHERE status = 'Pending' ORDER BY applied_on DESC")
}

func (s *Store) ListPendingForApprover(ctx context.Context, approverID leave.UserID) ([]leave.LeaveRequest, error) {
	return s.queryLeaves(ctx,
		"SELECT "+leaveColumns+" FROM leaves WHERE status = 'Pending' AND current_approver_id = ? ORDER BY applied_on DESC",
		string(approverID))
}

func (s *Store) ListEscalated(ctx context.Context, adminIDs []leave.UserID) ([]leave.LeaveRequest, error) {
	if len(adminIDs) == 0 {
		return nil, nil
	}
	query := "SELECT " + leaveColumns + ` FROM leaves
		WHERE status = 'Pending' AND escalation_level > 0 AND current_approver_id IN (`
	args := make([]any, 0, len(adminIDs))
	for i, id := range adminIDs {
		if i > 0 {
			query += ", "
		}
		query += "?"
		args = append(args, string(id))
	}
	query += ") ORDER BY applied_on DESC"
	return s.queryLeaves(ctx, query, args...)
}

func (s *Store) ListAll(ctx context.Context) ([]leave.LeaveRequest, error) {
	return s.queryLeaves(ctx,
		"SELECT "+leaveColumns+" FROM leaves ORDER BY applied_on DESC")
}

func (s *Store) queryLeaves(ctx context.Context, query string, args ...any) ([]leave.LeaveRequest, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaves: %w", err)
	}
	defer rows.Close()

	var leaves []leave.LeaveRequest
	for rows.Next() {
		req, err := scanLeave(rows)
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, req)
	}
	return leaves, rows.Err()
}

func scanLeave(rows *sql.Rows) (leave.LeaveRequest, error) {
	var (
		req             leave.LeaveRequest
		id              string
		employeeID      string
		email           sql.NullString
		designation     sql.NullString
		department      sql.NullString
		leaveType       string
		startDate       string
		endDate         string
		days            string
		halfDayPeriod   sql.NullString
		logoutTime      sql.NullString
		reason          sql.NullString
		status          string
		appliedOn       string
		currentApprover sql.NullString
		prevApprover    sql.NullString
		escalatedOn     sql.NullString
		historyJSON     sql.NullString
		approvedBy      sql.NullString
		approvedOn      sql.NullString
		approvedDays    sql.NullString
		approvedStart   sql.NullString
		approvedEnd     sql.NullString
		originalStart   sql.NullString
		originalEnd     sql.NullString
		originalDays    sql.NullString
		rejectionReason sql.NullString
		rejectedOn      sql.NullString
		cancelledOn     sql.NullString
	)

	err := rows.Scan(
		&id, &employeeID, &req.EmployeeName, &email, &designation, &department,
		&leaveType, &startDate, &endDate, &days, &req.IsHalfDay, &halfDayPeriod,
		&logoutTime, &reason, &status, &appliedOn,
		&req.EscalationLevel, &currentApprover, &prevApprover, &escalatedOn,
		&historyJSON, &approvedBy, &approvedOn, &approvedDays,
		&req.IsPartialApproval, &approvedStart, &approvedEnd,
		&originalStart, &originalEnd, &originalDays,
		&rejectionReason, &rejectedOn, &cancelledOn,
	)
	if err != nil {
		return req, fmt.Errorf("failed to scan leave: %w", err)
	}

	req.ID = leave.LeaveID(id)
	req.EmployeeID = leave.UserID(employeeID)
	req.EmployeeEmail = email.String
	req.EmployeeDesignation = designation.String
	req.EmployeeDepartment = department.String
	req.Type = leave.LeaveType(leaveType)
	req.StartDate, _ = leave.ParseDate(startDate)
	req.EndDate, _ = leave.ParseDate(endDate)
	req.Days = mustDecimal(days)
	req.HalfDayPeriod = leave.HalfDayPeriod(halfDayPeriod.String)
	req.LogoutTime = logoutTime.String
	req.Reason = reason.String
	req.Status = leave.LeaveStatus(status)
	req.AppliedOn, _ = time.Parse(time.RFC3339, appliedOn)
	req.CurrentApproverID = parseUserIDPtr(currentApprover)
	req.PreviousApproverID = parseUserIDPtr(prevApprover)
	req.EscalatedOn = parseTimePtr(escalatedOn)
	if historyJSON.Valid && historyJSON.String != "" && historyJSON.String != "null" {
		_ = json.Unmarshal([]byte(historyJSON.String), &req.EscalationHistory)
	}
	req.ApprovedBy = approvedBy.String
	req.ApprovedOn = parseTimePtr(approvedOn)
	if approvedDays.Valid {
		req.ApprovedDays = mustDecimal(approvedDays.String)
	}
	req.ApprovedStartDate = parseDatePtr(approvedStart)
	req.ApprovedEndDate = parseDatePtr(approvedEnd)
	req.OriginalStartDate = parseDatePtr(originalStart)
	req.OriginalEndDate = parseDatePtr(originalEnd)
	if originalDays.Valid {
		req.OriginalDays = mustDecimal(originalDays.String)
	}
	req.RejectionReason = rejectionReason.String
	req.RejectedOn = parseTimePtr(rejectedOn)
	req.CancelledOn = parseTimePtr(cancelledOn)

	return req, nil
}

// =============================================================================
// HOLIDAY CALENDAR (leave.HolidayCalendar interface)
// =============================================================================

func (s *Store) Find(ctx context.Context, date leave.Date, typ leave.HolidayType) (*leave.Holiday, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, date, holiday_type, region, description, created_at
		FROM holidays WHERE date = ? AND holiday_type = ?`,
		date.String(), string(typ))
	if err != nil {
		return nil, fmt.Errorf("failed to query holiday: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	h, err := scanHoliday(rows)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (s *Store) List(ctx context.Context) ([]leave.Holiday, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, date, holiday_type, region, description, created_at
		FROM holidays ORDER BY date ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	var holidays []leave.Holiday
	for rows.Next() {
		h, err := scanHoliday(rows)
		if err != nil {
			return nil, err
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

func (s *Store) Save(ctx context.Context, h leave.Holiday) error {
	query := `
		INSERT INTO holidays (id, name, date, holiday_type, region, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			date = excluded.date,
			holiday_type = excluded.holiday_type,
			region = excluded.region,
			description = excluded.description
	`
	_, err := s.db.ExecContext(ctx, query,
		h.ID, h.Name, h.Date.String(), string(h.Type),
		nullString(h.Region), nullString(h.Description),
		h.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save holiday: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM holidays WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete holiday: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &leave.NotFoundError{Kind: "holiday", ID: id}
	}
	return nil
}

func scanHoliday(rows *sql.Rows) (leave.Holiday, error) {
	var (
		h           leave.Holiday
		date        string
		typ         string
		region      sql.NullString
		description sql.NullString
		createdAt   string
	)
	err := rows.Scan(&h.ID, &h.Name, &date, &typ, &region, &description, &createdAt)
	if err != nil {
		return h, fmt.Errorf("failed to scan holiday: %w", err)
	}
	h.Date, _ = leave.ParseDate(date)
	h.Type = leave.HolidayType(typ)
	h.Region = region.String
	h.Description = description.String
	h.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return h, nil
}

// =============================================================================
// NOTIFICATION SINK (leave.NotificationSink interface)
// =============================================================================

func (s *Store) Create(ctx context.Context, n leave.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, notification_type, message, related_leave_id, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	var relatedID any
	if n.RelatedLeaveID != nil {
		relatedID = string(*n.RelatedLeaveID)
	}
	_, err := s.db.ExecContext(ctx, query,
		n.ID, string(n.UserID), string(n.Type), n.Message,
		relatedID, n.Read, n.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (s *Store) ListForUser(ctx context.Context, userID leave.UserID) ([]leave.Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, notification_type, message, related_leave_id, read, created_at
		FROM notifications WHERE user_id = ? ORDER BY created_at DESC`,
		string(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []leave.Notification
	for rows.Next() {
		var (
			n         leave.Notification
			uid       string
			typ       string
			relatedID sql.NullString
			createdAt string
		)
		if err := rows.Scan(&n.ID, &uid, &typ, &n.Message, &relatedID, &n.Read, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.UserID = leave.UserID(uid)
		n.Type = leave.NotificationType(typ)
		if relatedID.Valid {
			leaveID := leave.LeaveID(relatedID.String)
			n.RelatedLeaveID = &leaveID
		}
		n.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (s *Store) MarkRead(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE notifications SET read = TRUE WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &leave.NotFoundError{Kind: "notification", ID: id}
	}
	return nil
}

func (s *Store) UnreadCount(ctx context.Context, userID leave.UserID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM notifications WHERE user_id = ? AND read = FALSE",
		string(userID),
	).Scan(&count)
	return count, err
}

// =============================================================================
// AUDIT LOG (leave.AuditLog interface)
// =============================================================================

func (s *Store) Record(ctx context.Context, entry leave.AuditEntry) error {
	oldData, _ := json.Marshal(entry.OldData)
	newData, _ := json.Marshal(entry.NewData)

	query := `
		INSERT INTO leave_logs
		(id, leave_id, employee_id, employee_code, employee_name, action, performed_by, old_data, new_data, remarks, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		entry.ID, string(entry.LeaveID), string(entry.EmployeeID),
		nullString(entry.EmployeeCode), nullString(entry.EmployeeName),
		string(entry.Action), entry.PerformedBy,
		string(oldData), string(newData), nullString(entry.Remarks),
		entry.Timestamp.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

func (s *Store) ByLeave(ctx context.Context, leaveID leave.LeaveID) ([]leave.AuditEntry, error) {
	return s.queryAudit(ctx, "leave_id = ?", string(leaveID))
}

func (s *Store) ByEmployee(ctx context.Context, employeeID leave.UserID) ([]leave.AuditEntry, error) {
	return s.queryAudit(ctx, "employee_id = ?", string(employeeID))
}

func (s *Store) queryAudit(ctx context.Context, where string, arg any) ([]leave.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, leave_id, employee_id, employee_code, employee_name, action, performed_by, old_data, new_data, remarks, timestamp
		FROM leave_logs WHERE `+where+` ORDER BY timestamp ASC`, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []leave.AuditEntry
	for rows.Next() {
		var (
			e            leave.AuditEntry
			leaveID      string
			employeeID   string
			employeeCode sql.NullString
			employeeName sql.NullString
			action       string
			oldData      sql.NullString
			newData      sql.NullString
			remarks      sql.NullString
			timestamp    string
		)
		err := rows.Scan(&e.ID, &leaveID, &employeeID, &employeeCode, &employeeName,
			&action, &e.PerformedBy, &oldData, &newData, &remarks, &timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.LeaveID = leave.LeaveID(leaveID)
		e.EmployeeID = leave.UserID(employeeID)
		e.EmployeeCode = employeeCode.String
		e.EmployeeName = employeeName.String
		e.Action = leave.AuditAction(action)
		e.OldData = unmarshalSnapshot(oldData)
		e.NewData = unmarshalSnapshot(newData)
		e.Remarks = remarks.String
		e.Timestamp, _ = time.Parse(time.RFC3339, timestamp)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func unmarshalSnapshot(data sql.NullString) *leave.LeaveSnapshot {
	if !data.Valid || data.String == "" || data.String == "null" {
		return nil
	}
	var snap leave.LeaveSnapshot
	if err := json.Unmarshal([]byte(data.String), &snap); err != nil {
		return nil
	}
	return &snap
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullUserID(id *leave.UserID) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*id), Valid: true}
}

func nullDate(d *leave.Date) sql.NullString {
	if d == nil || d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

// decimalString renders a decimal for a nullable column: zero stays
// NULL so unset approved/original day counts round-trip as zero.
func decimalString(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseDatePtr(s sql.NullString) *leave.Date {
	if !s.Valid || s.String == "" {
		return nil
	}
	d, err := leave.ParseDate(s.String)
	if err != nil {
		return nil
	}
	return &d
}

func parseTimePtr(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func parseUserIDPtr(s sql.NullString) *leave.UserID {
	if !s.Valid || s.String == "" {
		return nil
	}
	id := leave.UserID(s.String)
	return &id
}
