package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbus-hr/leave-engine/leave"
	"github.com/nimbus-hr/leave-engine/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func userID(s string) *leave.UserID {
	id := leave.UserID(s)
	return &id
}

// Timestamps persist as RFC3339, so fixtures stay at second precision.
var storedAt = time.Date(2025, time.June, 10, 9, 30, 0, 0, time.UTC)

func sampleEmployee() leave.Employee {
	dob := leave.NewDate(1991, time.April, 12)
	doj := leave.NewDate(2023, time.February, 20)
	accrual := leave.NewDate(2025, time.June, 1)
	return leave.Employee{
		ID:            "e1",
		EmployeeCode:  "EMP-0042",
		Name:          "Evan Employee",
		Email:         "evan@example.com",
		Role:          leave.RoleEmployee,
		Employment:    leave.EmploymentRegular,
		Level:         3,
		Designation:   "Engineer",
		Department:    "Platform",
		ReportsTo:     userID("m1"),
		DateOfBirth:   &dob,
		DateOfJoining: &doj,
		Balance: leave.BalanceSheet{
			Sick: dec("4.5"), SickTotal: dec("6"),
			Planned: dec("9"), PlannedTotal: dec("12"),
			Optional: dec("2"), OptionalTotal: dec("2"),
			LWP:             dec("1.5"),
			LastAccrualDate: &accrual,
		},
		CreatedAt: storedAt,
	}
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func TestEmployeeRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	want := sampleEmployee()

	require.NoError(t, s.SaveEmployee(ctx, want))

	got, err := s.GetByID(ctx, "e1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.Role, got.Role)
	assert.Equal(t, want.Level, got.Level)
	require.NotNil(t, got.ReportsTo)
	assert.Equal(t, leave.UserID("m1"), *got.ReportsTo)
	require.NotNil(t, got.DateOfJoining)
	assert.True(t, got.DateOfJoining.Equal(*want.DateOfJoining))
	assert.True(t, got.Balance.Sick.Equal(dec("4.5")), "sick = %s", got.Balance.Sick)
	assert.True(t, got.Balance.LWP.Equal(dec("1.5")))
	require.NotNil(t, got.Balance.LastAccrualDate)
	assert.True(t, got.Balance.LastAccrualDate.Equal(*want.Balance.LastAccrualDate))

	byEmail, err := s.GetByEmail(ctx, "evan@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, leave.UserID("e1"), byEmail.ID)
}

func TestEmployeeMissingIsNilNil(t *testing.T) {
	s := newTestStore(t)

	got, err := s.GetByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSaveEmployeeUpserts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	emp := sampleEmployee()
	require.NoError(t, s.SaveEmployee(ctx, emp))

	emp.Designation = "Senior Engineer"
	emp.Balance.Sick = dec("3")
	require.NoError(t, s.SaveEmployee(ctx, emp))

	got, err := s.GetByID(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "Senior Engineer", got.Designation)
	assert.True(t, got.Balance.Sick.Equal(dec("3")))
}

func TestUpdateBalance(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	emp := sampleEmployee()
	require.NoError(t, s.SaveEmployee(ctx, emp))

	b := emp.Balance
	b.Planned = dec("6")
	b.LWP = dec("4.5")
	require.NoError(t, s.UpdateBalance(ctx, "e1", b))

	got, err := s.GetByID(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, got.Balance.Planned.Equal(dec("6")))
	assert.True(t, got.Balance.LWP.Equal(dec("4.5")))

	err = s.UpdateBalance(ctx, "ghost", b)
	assert.True(t, leave.IsNotFound(err))
}

func TestFindAdminsAndReports(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mgr := sampleEmployee()
	mgr.ID, mgr.Email, mgr.Role, mgr.ReportsTo = "m1", "m1@example.com", leave.RoleManager, nil
	require.NoError(t, s.SaveEmployee(ctx, mgr))

	admin := sampleEmployee()
	admin.ID, admin.Email, admin.Role, admin.ReportsTo = "a1", "a1@example.com", leave.RoleAdmin, nil
	require.NoError(t, s.SaveEmployee(ctx, admin))

	require.NoError(t, s.SaveEmployee(ctx, sampleEmployee())) // e1 reports to m1

	admins, err := s.FindAdmins(ctx)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, leave.UserID("a1"), admins[0].ID)

	reports, err := s.FindDirectReports(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, leave.UserID("e1"), reports[0].ID)
}

// =============================================================================
// LEAVES
// =============================================================================

func sampleLeave(id leave.LeaveID, status leave.LeaveStatus) leave.LeaveRequest {
	return leave.LeaveRequest{
		ID:                id,
		EmployeeID:        "e1",
		EmployeeName:      "Evan Employee",
		EmployeeEmail:     "evan@example.com",
		Type:              leave.TypePlanned,
		StartDate:         leave.NewDate(2025, time.June, 20),
		EndDate:           leave.NewDate(2025, time.June, 22),
		Days:              dec("3"),
		Reason:            "family trip",
		Status:            status,
		AppliedOn:         storedAt,
		CurrentApproverID: userID("m1"),
	}
}

func TestLeaveRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	escalatedAt := storedAt.Add(48 * time.Hour)
	req := sampleLeave("l1", leave.StatusPending)
	req.EscalationLevel = 1
	req.EscalatedOn = &escalatedAt
	req.PreviousApproverID = userID("m0")
	req.EscalationHistory = []leave.EscalationEntry{{
		FromLevel: 0, ToLevel: 1, At: escalatedAt,
		FromApprover: userID("m0"), ToApprover: "m1",
		ToApproverName: "Morgan Manager",
		Reason:         "Approval timeout - 2 day(s) elapsed",
	}}

	require.NoError(t, s.Insert(ctx, req))

	got, err := s.Get(ctx, "l1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, leave.StatusPending, got.Status)
	assert.True(t, got.Days.Equal(dec("3")))
	assert.True(t, got.StartDate.Equal(req.StartDate))
	assert.Equal(t, 1, got.EscalationLevel)
	require.NotNil(t, got.EscalatedOn)
	assert.True(t, got.EscalatedOn.Equal(escalatedAt))
	require.Len(t, got.EscalationHistory, 1)
	assert.Equal(t, "Morgan Manager", got.EscalationHistory[0].ToApproverName)
	assert.Equal(t, leave.UserID("m1"), got.EscalationHistory[0].ToApprover)

	// Unset day counts come back as zero, not as a parse failure.
	assert.True(t, got.ApprovedDays.IsZero())
	assert.True(t, got.OriginalDays.IsZero())
}

func TestHalfDayRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	req := sampleLeave("l1", leave.StatusPending)
	req.Type = leave.TypeSick
	req.IsHalfDay = true
	req.HalfDayPeriod = leave.HalfDayMorning
	req.Days = dec("0.5")
	require.NoError(t, s.Insert(ctx, req))

	got, err := s.Get(ctx, "l1")
	require.NoError(t, err)
	assert.True(t, got.IsHalfDay)
	assert.Equal(t, leave.HalfDayMorning, got.HalfDayPeriod)
	assert.True(t, got.Days.Equal(dec("0.5")), "days = %s", got.Days)
}

func TestPartialApprovalRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	approvedAt := storedAt.Add(time.Hour)
	req := sampleLeave("l1", leave.StatusApproved)
	aStart := leave.NewDate(2025, time.June, 20)
	aEnd := leave.NewDate(2025, time.June, 21)
	oStart, oEnd := req.StartDate, req.EndDate
	req.ApprovedBy = "Morgan Manager"
	req.ApprovedOn = &approvedAt
	req.IsPartialApproval = true
	req.ApprovedStartDate = &aStart
	req.ApprovedEndDate = &aEnd
	req.OriginalStartDate = &oStart
	req.OriginalEndDate = &oEnd
	req.OriginalDays = dec("3")
	req.ApprovedDays = dec("2")
	require.NoError(t, s.Insert(ctx, req))

	got, err := s.Get(ctx, "l1")
	require.NoError(t, err)
	assert.True(t, got.IsPartialApproval)
	require.NotNil(t, got.ApprovedEndDate)
	assert.True(t, got.ApprovedEndDate.Equal(aEnd))
	require.NotNil(t, got.OriginalStartDate)
	assert.True(t, got.OriginalStartDate.Equal(oStart))
	assert.True(t, got.ApprovedDays.Equal(dec("2")))
	assert.True(t, got.OriginalDays.Equal(dec("3")))
	assert.True(t, got.DeductedDays().Equal(dec("2")))
}

func TestUpdateIfPendingIsConditional(t *testing.T) {
	// GIVEN: A pending request
	// WHEN: Two terminal transitions race
	// THEN: Only the first one lands

	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, sampleLeave("l1", leave.StatusPending)))

	approved := sampleLeave("l1", leave.StatusApproved)
	approved.ApprovedBy = "Morgan Manager"
	ok, err := s.UpdateIfPending(ctx, approved)
	require.NoError(t, err)
	assert.True(t, ok)

	cancelled := sampleLeave("l1", leave.StatusCancelled)
	ok, err = s.UpdateIfPending(ctx, cancelled)
	require.NoError(t, err)
	assert.False(t, ok, "second transition must lose")

	got, err := s.Get(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, got.Status)
}

func TestLeaveListFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p1 := sampleLeave("l1", leave.StatusPending)
	require.NoError(t, s.Insert(ctx, p1))

	p2 := sampleLeave("l2", leave.StatusPending)
	p2.CurrentApproverID = userID("a1")
	p2.EscalationLevel = 2
	require.NoError(t, s.Insert(ctx, p2))

	done := sampleLeave("l3", leave.StatusApproved)
	require.NoError(t, s.Insert(ctx, done))

	pending, err := s.ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	forM1, err := s.ListPendingForApprover(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, forM1, 1)
	assert.Equal(t, leave.LeaveID("l1"), forM1[0].ID)

	escalated, err := s.ListEscalated(ctx, []leave.UserID{"a1"})
	require.NoError(t, err)
	require.Len(t, escalated, 1)
	assert.Equal(t, leave.LeaveID("l2"), escalated[0].ID)

	byEmp, err := s.ListByEmployee(ctx, "e1")
	require.NoError(t, err)
	assert.Len(t, byEmp, 3)

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func TestHolidayFindByDateAndType(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	day := leave.NewDate(2025, time.August, 15)

	require.NoError(t, s.Save(ctx, leave.Holiday{
		ID: "h1", Name: "Regional Festival", Date: day, Type: leave.HolidayOptional,
	}))

	got, err := s.Find(ctx, day, leave.HolidayOptional)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Regional Festival", got.Name)

	// Same day, different type: no match.
	got, err = s.Find(ctx, day, leave.HolidayCompany)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.Delete(ctx, "h1"))
	err = s.Delete(ctx, "h1")
	assert.True(t, leave.IsNotFound(err))
}

// =============================================================================
// NOTIFICATIONS AND AUDIT
// =============================================================================

func TestNotificationFlow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	leaveID := leave.LeaveID("l1")

	for i, id := range []string{"n1", "n2"} {
		require.NoError(t, s.Create(ctx, leave.Notification{
			ID: id, UserID: "m1", Type: leave.NotifyLeaveRequest,
			Message:        "request pending",
			RelatedLeaveID: &leaveID,
			CreatedAt:      storedAt.Add(time.Duration(i) * time.Minute),
		}))
	}

	count, err := s.UnreadCount(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	ns, err := s.ListForUser(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, ns, 2)
	// Newest first.
	assert.Equal(t, "n2", ns[0].ID)
	require.NotNil(t, ns[0].RelatedLeaveID)
	assert.Equal(t, leaveID, *ns[0].RelatedLeaveID)

	require.NoError(t, s.MarkRead(ctx, "n1"))
	count, err = s.UnreadCount(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	err = s.MarkRead(ctx, "ghost")
	assert.True(t, leave.IsNotFound(err))
}

func TestAuditRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	req := sampleLeave("l1", leave.StatusPending)
	require.NoError(t, s.Record(ctx, leave.AuditEntry{
		ID: "log1", LeaveID: "l1", EmployeeID: "e1",
		EmployeeCode: "EMP-0042", EmployeeName: "Evan Employee",
		Action: leave.AuditSubmitted, PerformedBy: "evan@example.com",
		NewData:   req.Snapshot(),
		Timestamp: storedAt,
	}))

	byLeave, err := s.ByLeave(ctx, "l1")
	require.NoError(t, err)
	require.Len(t, byLeave, 1)
	assert.Equal(t, leave.AuditSubmitted, byLeave[0].Action)
	assert.Nil(t, byLeave[0].OldData)
	require.NotNil(t, byLeave[0].NewData)
	assert.True(t, byLeave[0].NewData.Days.Equal(dec("3")))
	assert.True(t, byLeave[0].NewData.StartDate.Equal(req.StartDate))

	byEmp, err := s.ByEmployee(ctx, "e1")
	require.NoError(t, err)
	assert.Len(t, byEmp, 1)
}
