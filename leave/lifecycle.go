/*
lifecycle.go - Leave request lifecycle

PURPOSE:
  Handles the full lifecycle of a leave request:
  1. Apply:   validate and persist a Pending request, routed to the
              immediate manager
  2. Update:  edit a Pending request (date rules re-validated)
  3. Cancel:  withdraw a Pending request
  4. Decide:  approve (optionally a partial sub-range) or reject

REQUEST FLOW:

  Apply ──▶ Pending ──▶ Approved   (deducts balance, may overflow LWP)
               │   └──▶ Rejected   (requires a reason)
               └──────▶ Cancelled  (employee withdraws)

  Pending additionally carries an escalation level that only climbs;
  see escalate.go for the sweep that advances it.

TWO BALANCE ENFORCEMENT POINTS:
  Apply refuses a request the category cannot cover (hard validation
  error). Approval never refuses: a shortfall at that point silently
  routes the approved days into LWP. Both checks are deliberate and
  distinct.

CONCURRENCY:
  Every Pending -> terminal transition goes through the store's
  conditional update. Whoever wins the condition applies the side
  effects; the loser gets a state-conflict error and changes nothing.
  Notifications and emails fire only after the state is committed and
  never block on failure.

SEE ALSO:
  - ledger.go: balance deduction on approval
  - escalate.go: timeout-driven reassignment of approval authority
*/
package leave

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// LIFECYCLE SERVICE
// =============================================================================

// Lifecycle orchestrates leave requests. All fields except Mail are
// required; a nil Mail disables email side effects.
type Lifecycle struct {
	Directory UserDirectory
	Leaves    LeaveStore
	Holidays  HolidayCalendar
	Ledger    *BalanceLedger
	Resolver  *HierarchyResolver
	Notifier  NotificationSink
	Audit     AuditLog
	Mail      EmailGateway

	// Now overrides the clock in tests. Nil means time.Now.
	Now func() time.Time

	// EmailTimeout bounds each outgoing mail. Zero means 15s.
	EmailTimeout time.Duration
}

func (lc *Lifecycle) now() time.Time {
	if lc.Now != nil {
		return lc.Now()
	}
	return time.Now()
}

var halfDay = decimal.RequireFromString("0.5")

// =============================================================================
// APPLY
// =============================================================================

type ApplyInput struct {
	EmployeeID    UserID
	Type          LeaveType
	StartDate     Date
	EndDate       Date
	Reason        string
	IsHalfDay     bool
	HalfDayPeriod HalfDayPeriod
	LogoutTime    string
}

// Apply validates and persists a new leave request. On success the
// request is Pending at escalation level 0, assigned to the immediate
// manager, who is notified and emailed best-effort.
func (lc *Lifecycle) Apply(ctx context.Context, in ApplyInput) (*LeaveRequest, error) {
	if in.EmployeeID == "" || in.Type == "" || in.StartDate.IsZero() || in.EndDate.IsZero() {
		return nil, validationf("Missing required fields")
	}
	if _, ok := ParseLeaveType(string(in.Type)); !ok {
		return nil, validationf("Unknown leave type: %s", in.Type)
	}

	emp, err := lc.Directory.GetByID(ctx, in.EmployeeID)
	if err != nil {
		return nil, internalf(err, "load employee %s", in.EmployeeID)
	}
	if emp == nil {
		return nil, &NotFoundError{Kind: "employee", ID: string(in.EmployeeID)}
	}

	// Interns may only take sick leave or leave without pay.
	if emp.Employment == EmploymentIntern && in.Type != TypeSick && in.Type != TypeLWP {
		return nil, validationf("Interns can only apply for Sick Leave or Leave Without Pay. %s is not allowed.", in.Type)
	}

	days, err := requestedDays(in.StartDate, in.EndDate, in.IsHalfDay, in.HalfDayPeriod)
	if err != nil {
		return nil, err
	}

	today := DateOf(lc.now())
	if err := lc.validateDates(ctx, emp, in.Type, in.StartDate, in.EndDate, days, in.IsHalfDay, in.LogoutTime, today); err != nil {
		return nil, err
	}

	// Apply-time balance check: insufficiency here is a hard error.
	if in.Type == TypeSick || in.Type == TypePlanned || in.Type == TypeOptional {
		available := emp.Balance.Available(in.Type)
		if days.GreaterThan(available) {
			return nil, &InsufficientBalanceError{Category: in.Type, Available: available, Requested: days}
		}
	}

	if emp.ReportsTo == nil {
		return nil, &NoManagerError{EmployeeID: emp.ID}
	}
	managerID := *emp.ReportsTo

	req := LeaveRequest{
		ID:                  LeaveID(uuid.NewString()),
		EmployeeID:          emp.ID,
		EmployeeName:        emp.Name,
		EmployeeEmail:       emp.Email,
		EmployeeDesignation: emp.Designation,
		EmployeeDepartment:  emp.Department,
		Type:                in.Type,
		StartDate:           in.StartDate,
		EndDate:             in.EndDate,
		Days:                days,
		IsHalfDay:           in.IsHalfDay,
		LogoutTime:          in.LogoutTime,
		Reason:              in.Reason,
		Status:              StatusPending,
		AppliedOn:           lc.now(),
		EscalationLevel:     0,
		CurrentApproverID:   &managerID,
	}
	if in.IsHalfDay {
		req.HalfDayPeriod = in.HalfDayPeriod
	}

	if err := lc.Leaves.Insert(ctx, req); err != nil {
		return nil, internalf(err, "insert leave request")
	}

	lc.recordAudit(ctx, AuditEntry{
		LeaveID:     req.ID,
		EmployeeID:  emp.ID,
		Action:      AuditSubmitted,
		PerformedBy: emp.Email,
		NewData:     req.Snapshot(),
	}, emp)

	lc.notifyManagerOfApplication(ctx, &req, managerID)

	return &req, nil
}

func requestedDays(start, end Date, isHalf bool, period HalfDayPeriod) (decimal.Decimal, error) {
	if isHalf {
		if !start.Equal(end) {
			return decimal.Zero, validationf("Half-day leave can only be applied for a single day")
		}
		if period != HalfDayMorning && period != HalfDayAfternoon {
			return decimal.Zero, validationf("Please select half-day period (morning or afternoon)")
		}
		return halfDay, nil
	}
	if end.Before(start) {
		return decimal.Zero, validationf("End date cannot be before start date")
	}
	return decimal.NewFromInt(int64(InclusiveDays(start, end))), nil
}

// validateDates enforces the type-specific date-window rules. Shared
// by Apply and Update; balance and employment-type checks are not
// re-run on edits.
func (lc *Lifecycle) validateDates(ctx context.Context, emp *Employee, t LeaveType, start, end Date, days decimal.Decimal, isHalf bool, logoutTime string, today Date) error {
	switch t {
	case TypeSick:
		tomorrow := today.AddDays(1)
		if start.Before(today) {
			return validationf("Sick leave cannot be applied for past dates.")
		}
		if start.After(tomorrow) {
			return validationf("Sick leave can only be applied for today or tomorrow.")
		}
		if end.After(tomorrow) {
			return validationf("Sick leave end date cannot be beyond tomorrow.")
		}

	case TypePlanned:
		if DaysBetween(today, start) < 7 {
			return validationf("Planned leave must be applied at least 7 days in advance.")
		}

	case TypeEarlyLogout:
		if start.Before(today) {
			return validationf("Early logout cannot be applied for past dates (%s).", start)
		}
		if !days.Equal(decimal.NewFromInt(1)) {
			return validationf("Early logout can only be applied for a single day.")
		}
		if logoutTime == "" {
			return validationf("Logout time is mandatory for early logout.")
		}

	case TypeOptional:
		if isHalf {
			return validationf("Half-day leave is not allowed for optional holidays")
		}
		if !days.Equal(decimal.NewFromInt(1)) {
			return validationf("Optional leave can only be taken for a single optional holiday date.")
		}
		if start.Before(today) {
			return validationf("Leave cannot be applied for past dates (%s).", start)
		}
		// Birthday rule: month+day match auto-allows; otherwise an
		// optional Holiday record must exist on that date.
		if emp.DateOfBirth == nil || !emp.DateOfBirth.SameMonthDay(start) {
			holiday, err := lc.Holidays.Find(ctx, start, HolidayOptional)
			if err != nil {
				return internalf(err, "holiday lookup for %s", start)
			}
			if holiday == nil {
				return validationf("No optional holiday on %s. Cannot apply optional leave.", start)
			}
		}

	default:
		if start.Before(today) {
			return validationf("Leave cannot be applied for past dates (%s).", start)
		}
		if end.Before(today) {
			return validationf("End date cannot be in the past (%s).", end)
		}
	}
	return nil
}

// =============================================================================
// UPDATE (edit while pending)
// =============================================================================

type UpdateInput struct {
	Type          LeaveType
	StartDate     Date
	EndDate       Date
	Reason        string
	IsHalfDay     bool
	HalfDayPeriod HalfDayPeriod
	LogoutTime    string
}

// Update edits a Pending request in place. Escalation state is left
// untouched; date-window rules are re-validated. The write is
// conditional on the stored status still being Pending, so an edit
// racing a decision loses cleanly.
func (lc *Lifecycle) Update(ctx context.Context, id LeaveID, in UpdateInput) (*LeaveRequest, error) {
	req, err := lc.Leaves.Get(ctx, id)
	if err != nil {
		return nil, internalf(err, "load leave %s", id)
	}
	if req == nil {
		return nil, &NotFoundError{Kind: "leave", ID: string(id)}
	}
	if req.Status.Terminal() {
		return nil, &StateConflictError{LeaveID: id, Status: req.Status, Action: "edit"}
	}
	if _, ok := ParseLeaveType(string(in.Type)); !ok {
		return nil, validationf("Unknown leave type: %s", in.Type)
	}

	emp, err := lc.Directory.GetByID(ctx, req.EmployeeID)
	if err != nil {
		return nil, internalf(err, "load employee %s", req.EmployeeID)
	}
	if emp == nil {
		return nil, &NotFoundError{Kind: "employee", ID: string(req.EmployeeID)}
	}

	days, err := requestedDays(in.StartDate, in.EndDate, in.IsHalfDay, in.HalfDayPeriod)
	if err != nil {
		return nil, err
	}

	today := DateOf(lc.now())
	if err := lc.validateDates(ctx, emp, in.Type, in.StartDate, in.EndDate, days, in.IsHalfDay, in.LogoutTime, today); err != nil {
		return nil, err
	}

	oldSnap := req.Snapshot()

	updated := *req
	updated.Type = in.Type
	updated.StartDate = in.StartDate
	updated.EndDate = in.EndDate
	updated.Reason = in.Reason
	updated.LogoutTime = in.LogoutTime
	updated.IsHalfDay = in.IsHalfDay
	updated.HalfDayPeriod = ""
	if in.IsHalfDay {
		updated.HalfDayPeriod = in.HalfDayPeriod
	}
	updated.Days = days

	ok, err := lc.Leaves.UpdateIfPending(ctx, updated)
	if err != nil {
		return nil, internalf(err, "update leave %s", id)
	}
	if !ok {
		return nil, lc.conflict(ctx, id, "edit")
	}

	lc.recordAudit(ctx, AuditEntry{
		LeaveID:     id,
		EmployeeID:  req.EmployeeID,
		Action:      AuditEdited,
		PerformedBy: req.EmployeeEmail,
		OldData:     oldSnap,
		NewData:     updated.Snapshot(),
	}, emp)

	return &updated, nil
}

// =============================================================================
// CANCEL
// =============================================================================

// Cancel withdraws a Pending request. Nothing was deducted before
// approval, so balances are untouched. The current approver is told.
func (lc *Lifecycle) Cancel(ctx context.Context, id LeaveID) error {
	req, err := lc.Leaves.Get(ctx, id)
	if err != nil {
		return internalf(err, "load leave %s", id)
	}
	if req == nil {
		return &NotFoundError{Kind: "leave", ID: string(id)}
	}
	if req.Status.Terminal() {
		return &StateConflictError{LeaveID: id, Status: req.Status, Action: "cancel"}
	}

	cancelledOn := lc.now()
	updated := *req
	updated.Status = StatusCancelled
	updated.CancelledOn = &cancelledOn

	ok, err := lc.Leaves.UpdateIfPending(ctx, updated)
	if err != nil {
		return internalf(err, "cancel leave %s", id)
	}
	if !ok {
		return lc.conflict(ctx, id, "cancel")
	}

	lc.recordAudit(ctx, AuditEntry{
		LeaveID:     id,
		EmployeeID:  req.EmployeeID,
		Action:      AuditCancelled,
		PerformedBy: req.EmployeeEmail,
		OldData:     req.Snapshot(),
		NewData:     updated.Snapshot(),
	}, nil)

	if req.CurrentApproverID != nil {
		lc.notify(ctx, *req.CurrentApproverID, NotifyLeaveCancelled,
			fmt.Sprintf("%s cancelled their %s request (%s to %s)",
				req.EmployeeName, req.Type, req.StartDate, req.EndDate),
			&id)
	}
	return nil
}

// =============================================================================
// DECIDE (approve / reject)
// =============================================================================

// DateRange is an inclusive calendar-day range.
type DateRange struct {
	Start Date
	End   Date
}

type Decision struct {
	Status          LeaveStatus // StatusApproved or StatusRejected
	ApprovedBy      string
	RejectionReason string

	// Partial restricts the approval to a sub-range of the request.
	// Only meaningful with StatusApproved.
	Partial *DateRange
}

// Decide finalizes a Pending request. Approval is valid at any
// escalation level. Only an approval touches the balance sheet, and
// only after the conditional status update has been won.
func (lc *Lifecycle) Decide(ctx context.Context, id LeaveID, d Decision) (*LeaveRequest, error) {
	switch d.Status {
	case StatusApproved:
		if d.ApprovedBy == "" {
			return nil, validationf("Approver name is mandatory")
		}
	case StatusRejected:
		if d.RejectionReason == "" {
			return nil, validationf("Rejection reason is mandatory")
		}
	default:
		return nil, validationf("Invalid status")
	}

	req, err := lc.Leaves.Get(ctx, id)
	if err != nil {
		return nil, internalf(err, "load leave %s", id)
	}
	if req == nil {
		return nil, &NotFoundError{Kind: "leave", ID: string(id)}
	}
	if req.Status.Terminal() {
		return nil, &StateConflictError{LeaveID: id, Status: req.Status, Action: "decide"}
	}

	now := lc.now()
	oldSnap := req.Snapshot()
	updated := *req
	remarks := ""

	if d.Status == StatusRejected {
		updated.Status = StatusRejected
		updated.RejectionReason = d.RejectionReason
		updated.RejectedOn = &now
		remarks = d.RejectionReason
	} else {
		updated.Status = StatusApproved
		updated.ApprovedBy = d.ApprovedBy
		updated.ApprovedOn = &now
		remarks = "Leave approved"

		if d.Partial != nil {
			if d.Partial.Start.Before(req.StartDate) || d.Partial.End.After(req.EndDate) ||
				d.Partial.End.Before(d.Partial.Start) {
				return nil, validationf("Approved range must fall within the requested range")
			}
			start, end := d.Partial.Start, d.Partial.End
			origStart, origEnd := req.StartDate, req.EndDate

			updated.IsPartialApproval = true
			updated.ApprovedStartDate = &start
			updated.ApprovedEndDate = &end
			updated.OriginalStartDate = &origStart
			updated.OriginalEndDate = &origEnd
			updated.OriginalDays = req.Days
			updated.ApprovedDays = decimal.NewFromInt(int64(InclusiveDays(start, end)))
			remarks = fmt.Sprintf("Partially approved: %s to %s", start, end)
		} else {
			updated.ApprovedDays = req.Days
		}
	}

	ok, err := lc.Leaves.UpdateIfPending(ctx, updated)
	if err != nil {
		return nil, internalf(err, "update leave %s status", id)
	}
	if !ok {
		return nil, lc.conflict(ctx, id, "decide")
	}

	// The conditional update was won: the deduction runs exactly once.
	if d.Status == StatusApproved {
		if err := lc.Ledger.Deduct(ctx, req.EmployeeID, req.Type, updated.DeductedDays()); err != nil {
			return nil, err
		}
	}

	lc.recordAudit(ctx, AuditEntry{
		LeaveID:     id,
		EmployeeID:  req.EmployeeID,
		Action:      AuditAction(d.Status),
		PerformedBy: decidedBy(d),
		OldData:     oldSnap,
		NewData:     updated.Snapshot(),
		Remarks:     remarks,
	}, nil)

	lc.notifyEmployeeOfDecision(ctx, &updated, d)

	return &updated, nil
}

func decidedBy(d Decision) string {
	if d.ApprovedBy != "" {
		return d.ApprovedBy
	}
	return "Manager"
}

// conflict reports a lost conditional update with the status that won.
func (lc *Lifecycle) conflict(ctx context.Context, id LeaveID, action string) error {
	status := LeaveStatus("unknown")
	if current, err := lc.Leaves.Get(ctx, id); err == nil && current != nil {
		status = current.Status
	}
	return &StateConflictError{LeaveID: id, Status: status, Action: action}
}

// =============================================================================
// SIDE EFFECTS - committed state first, then best-effort fan-out
// =============================================================================

func (lc *Lifecycle) notify(ctx context.Context, userID UserID, typ NotificationType, message string, leaveID *LeaveID) {
	n := Notification{
		ID:             uuid.NewString(),
		UserID:         userID,
		Type:           typ,
		Message:        message,
		RelatedLeaveID: leaveID,
		CreatedAt:      lc.now(),
	}
	if err := lc.Notifier.Create(ctx, n); err != nil {
		log.Printf("[Lifecycle] notification %s to %s failed: %v", typ, userID, err)
	}
}

// recordAudit appends to the action log, enriching with directory
// fields when the employee record is at hand. Audit failures are
// logged, never surfaced: the state change already committed.
func (lc *Lifecycle) recordAudit(ctx context.Context, entry AuditEntry, emp *Employee) {
	entry.ID = uuid.NewString()
	entry.Timestamp = lc.now()
	if emp == nil {
		if loaded, err := lc.Directory.GetByID(ctx, entry.EmployeeID); err == nil && loaded != nil {
			emp = loaded
		}
	}
	if emp != nil {
		entry.EmployeeCode = emp.EmployeeCode
		entry.EmployeeName = emp.Name
	}
	if err := lc.Audit.Record(ctx, entry); err != nil {
		log.Printf("[Lifecycle] audit %s for leave %s failed: %v", entry.Action, entry.LeaveID, err)
	}
}

// sendEmail fires the mail on its own goroutine with a bounded
// timeout. Failures are logged only; nothing upstream waits.
func (lc *Lifecycle) sendEmail(to, cc, subject, body string) {
	if lc.Mail == nil || to == "" {
		return
	}
	timeout := lc.EmailTimeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := lc.Mail.Send(ctx, to, cc, subject, body); err != nil {
			log.Printf("[Lifecycle] email to %s failed: %v", to, err)
		}
	}()
}

func (lc *Lifecycle) notifyManagerOfApplication(ctx context.Context, req *LeaveRequest, managerID UserID) {
	desc := string(req.Type)
	if req.IsHalfDay {
		desc = fmt.Sprintf("%s (Half-day - %s)", req.Type, req.HalfDayPeriod)
	}
	lc.notify(ctx, managerID, NotifyLeaveRequest,
		fmt.Sprintf("%s has requested %s from %s to %s (%s day(s))",
			req.EmployeeName, desc, req.StartDate, req.EndDate, req.Days),
		&req.ID)

	manager, err := lc.Directory.GetByID(ctx, managerID)
	if err != nil || manager == nil || manager.Email == "" {
		return
	}
	subject, body := requestEmail(manager.Name, req, desc)
	lc.sendEmail(manager.Email, "", subject, body)
}

func (lc *Lifecycle) notifyEmployeeOfDecision(ctx context.Context, req *LeaveRequest, d Decision) {
	if d.Status == StatusApproved {
		lc.notify(ctx, req.EmployeeID, NotifyLeaveApproved,
			fmt.Sprintf("Your %s request (%s to %s) has been approved by %s",
				req.Type, req.StartDate, req.EndDate, req.ApprovedBy),
			&req.ID)
	} else {
		lc.notify(ctx, req.EmployeeID, NotifyLeaveRejected,
			fmt.Sprintf("Your %s request (%s to %s) has been rejected. Reason: %s",
				req.Type, req.StartDate, req.EndDate, req.RejectionReason),
			&req.ID)
	}

	subject, body := decisionEmail(req)
	lc.sendEmail(req.EmployeeEmail, "", subject, body)
}
