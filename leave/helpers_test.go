package leave_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/nimbus-hr/leave-engine/leave"
	memstore "github.com/nimbus-hr/leave-engine/leave/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// fixedNow is a Tuesday mid-month, away from month and year boundaries.
var fixedNow = time.Date(2025, time.June, 10, 10, 0, 0, 0, time.UTC)

type fixture struct {
	Store     *memstore.Memory
	Ledger    *leave.BalanceLedger
	Resolver  *leave.HierarchyResolver
	Lifecycle *leave.Lifecycle
}

// newFixture wires the lifecycle against the in-memory store with a
// fixed clock. Tests mutate fx.Lifecycle.Now to move time.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.NewMemory()
	ledger := leave.NewBalanceLedger(store)
	resolver := leave.NewHierarchyResolver(store)
	lc := &leave.Lifecycle{
		Directory: store,
		Leaves:    store,
		Holidays:  store,
		Ledger:    ledger,
		Resolver:  resolver,
		Notifier:  store,
		Audit:     store,
		Now:       func() time.Time { return fixedNow },
	}
	return &fixture{Store: store, Ledger: ledger, Resolver: resolver, Lifecycle: lc}
}

func (fx *fixture) addEmployee(t *testing.T, emp leave.Employee) leave.Employee {
	t.Helper()
	if emp.Role == "" {
		emp.Role = leave.RoleEmployee
	}
	if emp.Employment == "" {
		emp.Employment = leave.EmploymentRegular
	}
	if emp.Balance.SickTotal.IsZero() && emp.Balance.Sick.IsZero() {
		emp.Balance = leave.DefaultBalanceSheet()
	}
	if emp.CreatedAt.IsZero() {
		emp.CreatedAt = fixedNow.Add(-time.Duration(len(emp.ID)) * time.Minute)
	}
	require.NoError(t, fx.Store.SaveEmployee(context.Background(), emp))
	return emp
}

// seedChain creates emp -> mgr -> dir with dir reporting to nobody,
// plus a standalone admin. Returns the four records.
func (fx *fixture) seedChain(t *testing.T) (emp, mgr, dir, admin leave.Employee) {
	t.Helper()
	dir = fx.addEmployee(t, leave.Employee{
		ID: "dir", Name: "Dana Director", Email: "dana@example.com", Role: leave.RoleManager,
	})
	mgr = fx.addEmployee(t, leave.Employee{
		ID: "mgr", Name: "Morgan Manager", Email: "morgan@example.com",
		Role: leave.RoleManager, ReportsTo: userID("dir"),
	})
	emp = fx.addEmployee(t, leave.Employee{
		ID: "emp", Name: "Evan Employee", Email: "evan@example.com",
		ReportsTo: userID("mgr"),
	})
	admin = fx.addEmployee(t, leave.Employee{
		ID: "admin", Name: "Avery Admin", Email: "avery@example.com", Role: leave.RoleAdmin,
	})
	return emp, mgr, dir, admin
}

func userID(s string) *leave.UserID {
	id := leave.UserID(s)
	return &id
}

func datePtr(d leave.Date) *leave.Date { return &d }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func date(y int, m time.Month, d int) leave.Date { return leave.NewDate(y, m, d) }

// applyPlanned submits a 3-day planned request 10 days out, which
// passes every validation for a default balance sheet.
func (fx *fixture) applyPlanned(t *testing.T, employeeID leave.UserID) *leave.LeaveRequest {
	t.Helper()
	start := leave.DateOf(fixedNow).AddDays(10)
	req, err := fx.Lifecycle.Apply(context.Background(), leave.ApplyInput{
		EmployeeID: employeeID,
		Type:       leave.TypePlanned,
		StartDate:  start,
		EndDate:    start.AddDays(2),
		Reason:     "family trip",
	})
	require.NoError(t, err)
	return req
}
