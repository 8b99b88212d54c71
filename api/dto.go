/*
dto.go - Request/response data structures for the HTTP API

PURPOSE:
  Defines the JSON shapes exchanged with clients, separate from the
  domain types. Dates travel as "YYYY-MM-DD" strings, timestamps as
  RFC3339, and day counts as decimal strings.

SEE ALSO:
  - handlers.go: Handler implementations using these DTOs
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nimbus-hr/leave-engine/leave"
)

// =============================================================================
// EMPLOYEE DTOs
// =============================================================================

type EmployeeDTO struct {
	ID           string     `json:"id"`
	EmployeeCode string     `json:"employee_code,omitempty"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Role         string     `json:"role"`
	Employment   string     `json:"employment_type"`
	Level        int        `json:"level"`
	Designation  string     `json:"designation,omitempty"`
	Department   string     `json:"department,omitempty"`
	ReportsTo    *string    `json:"reports_to,omitempty"`
	DateOfBirth  string     `json:"date_of_birth,omitempty"`
	DateOfJoin   string     `json:"date_of_joining,omitempty"`
	Balance      BalanceDTO `json:"leave_balance"`
	CreatedAt    string     `json:"created_at,omitempty"`
}

type BalanceDTO struct {
	Sick          decimal.Decimal `json:"sick"`
	SickTotal     decimal.Decimal `json:"sick_total"`
	Planned       decimal.Decimal `json:"planned"`
	PlannedTotal  decimal.Decimal `json:"planned_total"`
	Optional      decimal.Decimal `json:"optional"`
	OptionalTotal decimal.Decimal `json:"optional_total"`
	LWP           decimal.Decimal `json:"lwp"`
}

type ApproverDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type CreateEmployeeRequest struct {
	ID           string `json:"id"`
	EmployeeCode string `json:"employee_code"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	Employment   string `json:"employment_type"`
	Level        int    `json:"level"`
	Designation  string `json:"designation"`
	Department   string `json:"department"`
	ReportsTo    string `json:"reports_to"`
	DateOfBirth  string `json:"date_of_birth"`
	DateOfJoin   string `json:"date_of_joining"`
}

// =============================================================================
// LEAVE DTOs
// =============================================================================

type ApplyLeaveRequest struct {
	EmployeeID    string `json:"employee_id"`
	LeaveType     string `json:"leave_type"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	Reason        string `json:"reason"`
	IsHalfDay     bool   `json:"is_half_day"`
	HalfDayPeriod string `json:"half_day_period"`
	LogoutTime    string `json:"logout_time"`
}

type UpdateLeaveRequest struct {
	LeaveType     string `json:"leave_type"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	Reason        string `json:"reason"`
	IsHalfDay     bool   `json:"is_half_day"`
	HalfDayPeriod string `json:"half_day_period"`
	LogoutTime    string `json:"logout_time"`
}

type UpdateStatusRequest struct {
	Status            string `json:"status"`
	ApprovedBy        string `json:"approved_by"`
	RejectionReason   string `json:"rejection_reason"`
	ApprovedStartDate string `json:"approved_start_date"`
	ApprovedEndDate   string `json:"approved_end_date"`
}

type LeaveDTO struct {
	ID                  string          `json:"id"`
	EmployeeID          string          `json:"employee_id"`
	EmployeeName        string          `json:"employee_name"`
	EmployeeEmail       string          `json:"employee_email,omitempty"`
	EmployeeDesignation string          `json:"employee_designation,omitempty"`
	EmployeeDepartment  string          `json:"employee_department,omitempty"`
	LeaveType           string          `json:"leave_type"`
	StartDate           string          `json:"start_date"`
	EndDate             string          `json:"end_date"`
	Days                decimal.Decimal `json:"days"`
	IsHalfDay           bool            `json:"is_half_day,omitempty"`
	HalfDayPeriod       string          `json:"half_day_period,omitempty"`
	LogoutTime          string          `json:"logout_time,omitempty"`
	Reason              string          `json:"reason,omitempty"`
	Status              string          `json:"status"`
	AppliedOn           string          `json:"applied_on"`

	EscalationLevel    int                 `json:"escalation_level"`
	CurrentApproverID  *string             `json:"current_approver_id,omitempty"`
	PreviousApproverID *string             `json:"previous_approver_id,omitempty"`
	EscalatedOn        *string             `json:"escalated_on,omitempty"`
	EscalationHistory  []EscalationStepDTO `json:"escalation_history,omitempty"`

	ApprovedBy   string           `json:"approved_by,omitempty"`
	ApprovedOn   *string          `json:"approved_on,omitempty"`
	ApprovedDays *decimal.Decimal `json:"approved_days,omitempty"`

	IsPartialApproval bool             `json:"is_partial_approval,omitempty"`
	ApprovedStartDate string           `json:"approved_start_date,omitempty"`
	ApprovedEndDate   string           `json:"approved_end_date,omitempty"`
	OriginalStartDate string           `json:"original_start_date,omitempty"`
	OriginalEndDate   string           `json:"original_end_date,omitempty"`
	OriginalDays      *decimal.Decimal `json:"original_days,omitempty"`

	RejectionReason string  `json:"rejection_reason,omitempty"`
	RejectedOn      *string `json:"rejected_on,omitempty"`
	CancelledOn     *string `json:"cancelled_on,omitempty"`
}

type EscalationStepDTO struct {
	FromLevel      int    `json:"from_level"`
	ToLevel        int    `json:"to_level"`
	At             string `json:"escalated_at"`
	FromApprover   string `json:"from_approver,omitempty"`
	ToApprover     string `json:"to_approver"`
	ToApproverName string `json:"to_approver_name,omitempty"`
	Reason         string `json:"reason"`
}

// =============================================================================
// HOLIDAY / NOTIFICATION / AUDIT DTOs
// =============================================================================

type HolidayDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Date        string `json:"date"`
	Type        string `json:"type"`
	Region      string `json:"region,omitempty"`
	Description string `json:"description,omitempty"`
}

type CreateHolidayRequest struct {
	Name        string `json:"name"`
	Date        string `json:"date"`
	Type        string `json:"type"`
	Region      string `json:"region"`
	Description string `json:"description"`
}

type NotificationDTO struct {
	ID             string `json:"id"`
	UserID         string `json:"user_id"`
	Type           string `json:"type"`
	Message        string `json:"message"`
	RelatedLeaveID string `json:"related_leave_id,omitempty"`
	Read           bool   `json:"read"`
	CreatedAt      string `json:"created_at"`
}

type AuditEntryDTO struct {
	ID           string            `json:"id"`
	LeaveID      string            `json:"leave_id"`
	EmployeeID   string            `json:"employee_id"`
	EmployeeCode string            `json:"employee_code,omitempty"`
	EmployeeName string            `json:"employee_name,omitempty"`
	Action       string            `json:"action"`
	PerformedBy  string            `json:"performed_by"`
	OldData      *LeaveSnapshotDTO `json:"old_data,omitempty"`
	NewData      *LeaveSnapshotDTO `json:"new_data,omitempty"`
	Remarks      string            `json:"remarks,omitempty"`
	Timestamp    string            `json:"timestamp"`
}

// LeaveSnapshotDTO is the trimmed before/after view carried by audit
// entries.
type LeaveSnapshotDTO struct {
	ID          string          `json:"id"`
	LeaveType   string          `json:"leave_type"`
	StartDate   string          `json:"start_date"`
	EndDate     string          `json:"end_date"`
	Days        decimal.Decimal `json:"days"`
	Reason      string          `json:"reason,omitempty"`
	Status      string          `json:"status"`
	AppliedOn   string          `json:"applied_on"`
	ApprovedOn  *string         `json:"approved_on,omitempty"`
	RejectedOn  *string         `json:"rejected_on,omitempty"`
	CancelledOn *string         `json:"cancelled_on,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// DTO CONVERSIONS
// =============================================================================

func toEmployeeDTO(e *leave.Employee) EmployeeDTO {
	dto := EmployeeDTO{
		ID:           string(e.ID),
		EmployeeCode: e.EmployeeCode,
		Name:         e.Name,
		Email:        e.Email,
		Role:         string(e.Role),
		Employment:   string(e.Employment),
		Level:        e.Level,
		Designation:  e.Designation,
		Department:   e.Department,
		Balance:      toBalanceDTO(e.Balance),
		CreatedAt:    e.CreatedAt.Format(time.RFC3339),
	}
	if e.ReportsTo != nil {
		s := string(*e.ReportsTo)
		dto.ReportsTo = &s
	}
	if e.DateOfBirth != nil {
		dto.DateOfBirth = e.DateOfBirth.String()
	}
	if e.DateOfJoining != nil {
		dto.DateOfJoin = e.DateOfJoining.String()
	}
	return dto
}

func toBalanceDTO(b leave.BalanceSheet) BalanceDTO {
	return BalanceDTO{
		Sick:          b.Sick,
		SickTotal:     b.SickTotal,
		Planned:       b.Planned,
		PlannedTotal:  b.PlannedTotal,
		Optional:      b.Optional,
		OptionalTotal: b.OptionalTotal,
		LWP:           b.LWP,
	}
}

func toLeaveDTO(l *leave.LeaveRequest) LeaveDTO {
	dto := LeaveDTO{
		ID:                  string(l.ID),
		EmployeeID:          string(l.EmployeeID),
		EmployeeName:        l.EmployeeName,
		EmployeeEmail:       l.EmployeeEmail,
		EmployeeDesignation: l.EmployeeDesignation,
		EmployeeDepartment:  l.EmployeeDepartment,
		LeaveType:           string(l.Type),
		StartDate:           l.StartDate.String(),
		EndDate:             l.EndDate.String(),
		Days:                l.Days,
		IsHalfDay:           l.IsHalfDay,
		HalfDayPeriod:       string(l.HalfDayPeriod),
		LogoutTime:          l.LogoutTime,
		Reason:              l.Reason,
		Status:              string(l.Status),
		AppliedOn:           l.AppliedOn.Format(time.RFC3339),
		EscalationLevel:     l.EscalationLevel,
		ApprovedBy:          l.ApprovedBy,
		IsPartialApproval:   l.IsPartialApproval,
		RejectionReason:     l.RejectionReason,
	}
	dto.CurrentApproverID = userIDString(l.CurrentApproverID)
	dto.PreviousApproverID = userIDString(l.PreviousApproverID)
	dto.EscalatedOn = timeString(l.EscalatedOn)
	dto.ApprovedOn = timeString(l.ApprovedOn)
	dto.RejectedOn = timeString(l.RejectedOn)
	dto.CancelledOn = timeString(l.CancelledOn)
	if !l.ApprovedDays.IsZero() {
		d := l.ApprovedDays
		dto.ApprovedDays = &d
	}
	if !l.OriginalDays.IsZero() {
		d := l.OriginalDays
		dto.OriginalDays = &d
	}
	dto.ApprovedStartDate = dateString(l.ApprovedStartDate)
	dto.ApprovedEndDate = dateString(l.ApprovedEndDate)
	dto.OriginalStartDate = dateString(l.OriginalStartDate)
	dto.OriginalEndDate = dateString(l.OriginalEndDate)

	for _, step := range l.EscalationHistory {
		s := EscalationStepDTO{
			FromLevel:      step.FromLevel,
			ToLevel:        step.ToLevel,
			At:             step.At.Format(time.RFC3339),
			ToApprover:     string(step.ToApprover),
			ToApproverName: step.ToApproverName,
			Reason:         step.Reason,
		}
		if step.FromApprover != nil {
			s.FromApprover = string(*step.FromApprover)
		}
		dto.EscalationHistory = append(dto.EscalationHistory, s)
	}
	return dto
}

func toLeaveDTOs(ls []leave.LeaveRequest) []LeaveDTO {
	dtos := make([]LeaveDTO, len(ls))
	for i := range ls {
		dtos[i] = toLeaveDTO(&ls[i])
	}
	return dtos
}

func toHolidayDTO(h *leave.Holiday) HolidayDTO {
	return HolidayDTO{
		ID:          h.ID,
		Name:        h.Name,
		Date:        h.Date.String(),
		Type:        string(h.Type),
		Region:      h.Region,
		Description: h.Description,
	}
}

func toNotificationDTO(n *leave.Notification) NotificationDTO {
	dto := NotificationDTO{
		ID:        n.ID,
		UserID:    string(n.UserID),
		Type:      string(n.Type),
		Message:   n.Message,
		Read:      n.Read,
		CreatedAt: n.CreatedAt.Format(time.RFC3339),
	}
	if n.RelatedLeaveID != nil {
		dto.RelatedLeaveID = string(*n.RelatedLeaveID)
	}
	return dto
}

func toAuditDTO(e *leave.AuditEntry) AuditEntryDTO {
	return AuditEntryDTO{
		ID:           e.ID,
		LeaveID:      string(e.LeaveID),
		EmployeeID:   string(e.EmployeeID),
		EmployeeCode: e.EmployeeCode,
		EmployeeName: e.EmployeeName,
		Action:       string(e.Action),
		PerformedBy:  e.PerformedBy,
		OldData:      toSnapshotDTO(e.OldData),
		NewData:      toSnapshotDTO(e.NewData),
		Remarks:      e.Remarks,
		Timestamp:    e.Timestamp.Format(time.RFC3339),
	}
}

func toSnapshotDTO(s *leave.LeaveSnapshot) *LeaveSnapshotDTO {
	if s == nil {
		return nil
	}
	return &LeaveSnapshotDTO{
		ID:          string(s.ID),
		LeaveType:   string(s.Type),
		StartDate:   s.StartDate.String(),
		EndDate:     s.EndDate.String(),
		Days:        s.Days,
		Reason:      s.Reason,
		Status:      string(s.Status),
		AppliedOn:   s.AppliedOn.Format(time.RFC3339),
		ApprovedOn:  timeString(s.ApprovedOn),
		RejectedOn:  timeString(s.RejectedOn),
		CancelledOn: timeString(s.CancelledOn),
	}
}

func toApproverDTOs(chain []leave.Approver) []ApproverDTO {
	dtos := make([]ApproverDTO, len(chain))
	for i, a := range chain {
		dtos[i] = ApproverDTO{
			ID:    string(a.ID),
			Name:  a.Name,
			Email: a.Email,
			Role:  string(a.Role),
		}
	}
	return dtos
}

func userIDString(id *leave.UserID) *string {
	if id == nil {
		return nil
	}
	s := string(*id)
	return &s
}

func timeString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func dateString(d *leave.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}
