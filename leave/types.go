/*
Package leave implements the leave/attendance core: balance accrual,
request lifecycle, and the approval escalation state machine.

PURPOSE:
  This package contains the domain types and algorithms for managing
  employee leave. Employees submit requests, managers approve or reject
  them, and stale requests escalate up the reporting chain until an
  admin picks them up. Balances accrue monthly and reset yearly.

KEY CONCEPTS IN THIS FILE (types.go):
  - Employee / BalanceSheet: the employee record and its embedded
    per-category leave balances
  - LeaveRequest: a request with status and escalation tracking
  - EscalationEntry: immutable audit record of one escalation hop
  - Approver: one element of the resolved reporting chain

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal for all balances (0.5-day increments
     must round-trip exactly, no binary-float drift)
  2. Type safety: enumerated leave types, statuses and roles; unknown
     values are rejected at the boundary
  3. One canonical id type (UserID/LeaveID strings) at the core
     boundary; adapters deal with whatever the wire uses
  4. Auditability: every state change produces an AuditEntry

SEE ALSO:
  - ledger.go: balance accrual, reset, deduction
  - lifecycle.go: apply/approve/reject/cancel/escalate
  - hierarchy.go: reporting-chain resolution
*/
package leave

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type LeaveID string

// =============================================================================
// EMPLOYEE
// =============================================================================

type Role string

const (
	RoleEmployee Role = "Employee"
	RoleManager  Role = "Manager"
	RoleAdmin    Role = "Admin"
)

type EmploymentType string

const (
	EmploymentRegular EmploymentType = "Employee"
	EmploymentIntern  EmploymentType = "Intern"
)

// Employee is the directory record the core operates on.
// ReportsTo is a weak reference: it names exactly one manager, or is
// nil for the root of the hierarchy.
type Employee struct {
	ID           UserID
	EmployeeCode string // human-readable id, e.g. "EMP-0042"
	Name         string
	Email        string
	Role         Role
	Employment   EmploymentType
	Level        int
	Designation  string
	Department   string

	ReportsTo     *UserID
	DateOfBirth   *Date
	DateOfJoining *Date

	Balance   BalanceSheet
	CreatedAt time.Time
}

// =============================================================================
// BALANCE SHEET - embedded per-employee balances
// =============================================================================

// BalanceSheet holds the current and cumulative balance per category.
// LWP is a pure accumulator: it only ever grows, and absorbs approved
// days that a category could not cover.
type BalanceSheet struct {
	Sick          decimal.Decimal
	SickTotal     decimal.Decimal
	Planned       decimal.Decimal
	PlannedTotal  decimal.Decimal
	Optional      decimal.Decimal
	OptionalTotal decimal.Decimal
	LWP           decimal.Decimal

	// LastAccrualDate is the first-of-month marker that makes the
	// monthly accrual idempotent within a calendar month.
	LastAccrualDate *Date
	LastResetDate   *time.Time
}

// DefaultBalanceSheet is the sheet assigned at onboarding.
func DefaultBalanceSheet() BalanceSheet {
	return BalanceSheet{
		Sick:          decimal.NewFromInt(6),
		SickTotal:     decimal.NewFromInt(6),
		Planned:       decimal.NewFromInt(12),
		PlannedTotal:  decimal.NewFromInt(12),
		Optional:      decimal.NewFromInt(2),
		OptionalTotal: decimal.NewFromInt(2),
		LWP:           decimal.Zero,
	}
}

// Available returns the current balance for a deductible category.
// Non-deductible types (lwp, early logout, birthday) report zero.
func (b BalanceSheet) Available(t LeaveType) decimal.Decimal {
	switch t {
	case TypeSick:
		return b.Sick
	case TypePlanned:
		return b.Planned
	case TypeOptional:
		return b.Optional
	default:
		return decimal.Zero
	}
}

// =============================================================================
// LEAVE TYPES AND STATUS
// =============================================================================

type LeaveType string

const (
	TypeSick        LeaveType = "sick"
	TypePlanned     LeaveType = "planned"
	TypeOptional    LeaveType = "optional"
	TypeLWP         LeaveType = "lwp"
	TypeEarlyLogout LeaveType = "early logout"
	TypeBirthday    LeaveType = "birthday"
)

func normalizeType(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// ParseLeaveType maps free-form input to the enumerated type.
// Unknown values are a validation error, not an open map key.
func ParseLeaveType(s string) (LeaveType, bool) {
	switch LeaveType(normalizeType(s)) {
	case TypeSick:
		return TypeSick, true
	case TypePlanned:
		return TypePlanned, true
	case TypeOptional:
		return TypeOptional, true
	case TypeLWP:
		return TypeLWP, true
	case TypeEarlyLogout:
		return TypeEarlyLogout, true
	case TypeBirthday:
		return TypeBirthday, true
	}
	return "", false
}

// Deductible reports whether approving this type consumes a category
// balance (or, for lwp, grows the accumulator).
func (t LeaveType) Deductible() bool {
	switch t {
	case TypeSick, TypePlanned, TypeOptional, TypeLWP:
		return true
	}
	return false
}

type LeaveStatus string

const (
	StatusPending   LeaveStatus = "Pending"
	StatusApproved  LeaveStatus = "Approved"
	StatusRejected  LeaveStatus = "Rejected"
	StatusCancelled LeaveStatus = "Cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s LeaveStatus) Terminal() bool { return s != StatusPending }

type HalfDayPeriod string

const (
	HalfDayMorning   HalfDayPeriod = "morning"
	HalfDayAfternoon HalfDayPeriod = "afternoon"
)

// =============================================================================
// LEAVE REQUEST
// =============================================================================

// LeaveRequest is the mutable shared entity of the lifecycle.
// Employee identity fields are denormalized snapshots taken at
// submission time; they do not track later directory edits.
type LeaveRequest struct {
	ID         LeaveID
	EmployeeID UserID

	// Snapshot of the requester at submission time.
	EmployeeName        string
	EmployeeEmail       string
	EmployeeDesignation string
	EmployeeDepartment  string

	Type          LeaveType
	StartDate     Date
	EndDate       Date
	Days          decimal.Decimal
	IsHalfDay     bool
	HalfDayPeriod HalfDayPeriod
	LogoutTime    string // required for early logout
	Reason        string

	Status    LeaveStatus
	AppliedOn time.Time

	// Escalation tracking. EscalationLevel only ever increases while
	// the request stays Pending.
	EscalationLevel    int
	CurrentApproverID  *UserID
	PreviousApproverID *UserID
	EscalatedOn        *time.Time
	EscalationHistory  []EscalationEntry

	// Approval outcome.
	ApprovedBy   string
	ApprovedOn   *time.Time
	ApprovedDays decimal.Decimal

	// Partial approval: the approved sub-range, with the original
	// request preserved.
	IsPartialApproval bool
	ApprovedStartDate *Date
	ApprovedEndDate   *Date
	OriginalStartDate *Date
	OriginalEndDate   *Date
	OriginalDays      decimal.Decimal

	RejectionReason string
	RejectedOn      *time.Time
	CancelledOn     *time.Time
}

// DeductedDays is the day count the ledger uses on approval.
func (l *LeaveRequest) DeductedDays() decimal.Decimal {
	if !l.ApprovedDays.IsZero() {
		return l.ApprovedDays
	}
	return l.Days
}

// EscalationEntry is one hop of the escalation audit trail.
// Entries are append-only: never edited, never removed.
type EscalationEntry struct {
	FromLevel      int
	ToLevel        int
	At             time.Time
	FromApprover   *UserID
	ToApprover     UserID
	ToApproverName string
	Reason         string
}

// Approver is one element of the resolved reporting chain,
// nearest manager first.
type Approver struct {
	ID    UserID
	Name  string
	Email string
	Role  Role
}

// =============================================================================
// COLLABORATOR RECORDS
// =============================================================================

type HolidayType string

const (
	HolidayNational HolidayType = "national"
	HolidayRegional HolidayType = "regional"
	HolidayCompany  HolidayType = "company"
	HolidayOptional HolidayType = "optional"
)

type Holiday struct {
	ID          string
	Name        string
	Date        Date
	Type        HolidayType
	Region      string
	Description string
	CreatedAt   time.Time
}

type NotificationType string

const (
	NotifyLeaveRequest   NotificationType = "leave_request"
	NotifyLeaveApproved  NotificationType = "leave_approved"
	NotifyLeaveRejected  NotificationType = "leave_rejected"
	NotifyLeaveCancelled NotificationType = "leave_cancelled"
	NotifyLeaveEscalated NotificationType = "leave_escalated"
)

type Notification struct {
	ID             string
	UserID         UserID
	Type           NotificationType
	Message        string
	RelatedLeaveID *LeaveID
	Read           bool
	CreatedAt      time.Time
}

// AuditAction names what happened to a leave request.
type AuditAction string

const (
	AuditSubmitted AuditAction = "Submitted"
	AuditEdited    AuditAction = "Edited"
	AuditApproved  AuditAction = "Approved"
	AuditRejected  AuditAction = "Rejected"
	AuditCancelled AuditAction = "Cancelled"
	AuditEscalated AuditAction = "Escalated"
)

// AuditEntry is the immutable action log record.
type AuditEntry struct {
	ID           string
	LeaveID      LeaveID
	EmployeeID   UserID
	EmployeeCode string
	EmployeeName string
	Action       AuditAction
	PerformedBy  string
	OldData      *LeaveSnapshot
	NewData      *LeaveSnapshot
	Remarks      string
	Timestamp    time.Time
}

// LeaveSnapshot is the trimmed before/after view stored with audit
// entries. Deliberately smaller than LeaveRequest.
type LeaveSnapshot struct {
	ID          LeaveID
	Type        LeaveType
	StartDate   Date
	EndDate     Date
	Days        decimal.Decimal
	Reason      string
	Status      LeaveStatus
	AppliedOn   time.Time
	ApprovedOn  *time.Time
	RejectedOn  *time.Time
	CancelledOn *time.Time
}

// Snapshot trims a request down to the audit view.
func (l *LeaveRequest) Snapshot() *LeaveSnapshot {
	if l == nil {
		return nil
	}
	return &LeaveSnapshot{
		ID:          l.ID,
		Type:        l.Type,
		StartDate:   l.StartDate,
		EndDate:     l.EndDate,
		Days:        l.Days,
		Reason:      l.Reason,
		Status:      l.Status,
		AppliedOn:   l.AppliedOn,
		ApprovedOn:  l.ApprovedOn,
		RejectedOn:  l.RejectedOn,
		CancelledOn: l.CancelledOn,
	}
}
