/*
ledger.go - Leave balance accrual, reset, and deduction

PURPOSE:
  The BalanceLedger owns every write to an employee's BalanceSheet.
  Nothing else mutates balances: the lifecycle asks the ledger to
  deduct on approval, and the scheduler asks it to accrue and reset.

ACCRUAL MODEL:
  The monthly run (1st of month) credits the month just served:
  1.0 planned + 0.5 sick per employee, planned hard-capped at 12
  (the *Total counters are never capped). Level-14 employees accrue
  1.0 sick only. lastAccrualDate makes the run idempotent within a
  calendar month, so re-running it is always safe.

FORTNIGHT RULE:
  An employee joining on or before the 15th earns the joining month;
  joining after the 15th, the joining month does not count and the
  first credit lands one run later. Both the incremental run and the
  from-scratch recalculation apply the same rule, so recalculation
  reproduces the incremental history exactly.

NUMERIC SEMANTICS:
  All balance math is decimal. 0.5-day steps accumulate exactly over
  any number of months; there is no binary-float drift to repair.

SEE ALSO:
  - lifecycle.go: calls Deduct on approval
  - api/scheduler.go: drives AccrueMonthly / ResetYearly
*/
package leave

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ACCRUAL CONSTANTS
// =============================================================================

const (
	// LevelSickOnly is the employee level that accrues sick leave only.
	LevelSickOnly = 14

	// FortnightDay is the last joining day-of-month that still earns
	// the joining month's accrual.
	FortnightDay = 15
)

var (
	plannedCap        = decimal.NewFromInt(12)
	plannedPerMonth   = decimal.NewFromInt(1)
	sickPerMonth      = decimal.RequireFromString("0.5")
	sickOnlyPerMonth  = decimal.NewFromInt(1)
	defaultResetQuota = decimal.NewFromInt(2)
)

// =============================================================================
// BALANCE LEDGER
// =============================================================================

type BalanceLedger struct {
	Directory UserDirectory
}

func NewBalanceLedger(dir UserDirectory) *BalanceLedger {
	return &BalanceLedger{Directory: dir}
}

type AccrualSummary struct {
	Updated int `json:"updated"`
}

type ResetSummary struct {
	Reset int `json:"reset"`
}

type RecalcSummary struct {
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// accrualStart returns the first month an employee earns credit for:
// the joining month when the join day is on or before the 15th, the
// following month otherwise.
func accrualStart(join Date) Date {
	start := join.FirstOfMonth()
	if join.Day() > FortnightDay {
		start = start.AddMonths(1)
	}
	return start
}

func monthsBetween(from, to Date) int {
	return (to.Year()-from.Year())*12 + int(to.Month()-from.Month())
}

// AccrueMonthly credits one month of leave to every eligible employee.
// Idempotent per calendar month via lastAccrualDate; safe to re-run.
func (bl *BalanceLedger) AccrueMonthly(ctx context.Context, now time.Time) (AccrualSummary, error) {
	today := DateOf(now)
	firstOfMonth := today.FirstOfMonth()

	employees, err := bl.Directory.ListEmployees(ctx)
	if err != nil {
		return AccrualSummary{}, internalf(err, "list employees for accrual")
	}

	summary := AccrualSummary{}
	for _, emp := range employees {
		b := emp.Balance

		// Already credited this month.
		if b.LastAccrualDate != nil && b.LastAccrualDate.SameMonth(today) {
			continue
		}

		if emp.DateOfJoining == nil {
			log.Printf("[Ledger] skipping %s: no date of joining", emp.Name)
			continue
		}

		// Fortnight rule: the run on the 1st credits the month just
		// served, so the employee's accrual start must precede it.
		if !accrualStart(*emp.DateOfJoining).Before(firstOfMonth) {
			continue
		}

		if emp.Level == LevelSickOnly {
			b.Sick = b.Sick.Add(sickOnlyPerMonth)
			b.SickTotal = b.SickTotal.Add(sickOnlyPerMonth)
		} else {
			planned := b.Planned.Add(plannedPerMonth)
			if planned.GreaterThan(plannedCap) {
				log.Printf("[Ledger] %s planned leave capped at %s (would have been %s)",
					emp.Name, plannedCap, planned)
				planned = plannedCap
			}
			b.Planned = planned
			b.PlannedTotal = b.PlannedTotal.Add(plannedPerMonth)
			b.Sick = b.Sick.Add(sickPerMonth)
			b.SickTotal = b.SickTotal.Add(sickPerMonth)
		}

		marker := firstOfMonth
		b.LastAccrualDate = &marker

		if err := bl.Directory.UpdateBalance(ctx, emp.ID, b); err != nil {
			return summary, internalf(err, "accrue balance for %s", emp.ID)
		}
		summary.Updated++
	}

	log.Printf("[Ledger] monthly accrual credited %d employees", summary.Updated)
	return summary, nil
}

// ResetYearly restores sick and optional to their cumulative totals
// and enforces the planned ceiling. Planned carries forward: this is
// ceiling enforcement, not a reset.
func (bl *BalanceLedger) ResetYearly(ctx context.Context, now time.Time) (ResetSummary, error) {
	employees, err := bl.Directory.ListEmployees(ctx)
	if err != nil {
		return ResetSummary{}, internalf(err, "list employees for reset")
	}

	summary := ResetSummary{}
	for _, emp := range employees {
		b := emp.Balance

		sickTotal := b.SickTotal
		if sickTotal.IsZero() {
			sickTotal = defaultResetQuota
		}
		optionalTotal := b.OptionalTotal
		if optionalTotal.IsZero() {
			optionalTotal = defaultResetQuota
		}

		b.Sick = sickTotal
		b.Optional = optionalTotal
		if b.Planned.GreaterThan(plannedCap) {
			b.Planned = plannedCap
		}
		resetAt := now
		b.LastResetDate = &resetAt

		if err := bl.Directory.UpdateBalance(ctx, emp.ID, b); err != nil {
			return summary, internalf(err, "reset balance for %s", emp.ID)
		}
		summary.Reset++
	}

	log.Printf("[Ledger] year-end reset applied to %d employees", summary.Reset)
	return summary, nil
}

// Deduct applies an approved request's days to the employee's sheet.
// A category short of balance is left untouched and the days land in
// LWP instead; no category ever goes negative. LWP-type requests
// always accumulate.
func (bl *BalanceLedger) Deduct(ctx context.Context, employeeID UserID, t LeaveType, days decimal.Decimal) error {
	if !t.Deductible() {
		return nil
	}

	emp, err := bl.Directory.GetByID(ctx, employeeID)
	if err != nil {
		return internalf(err, "load employee %s for deduction", employeeID)
	}
	if emp == nil {
		return &NotFoundError{Kind: "employee", ID: string(employeeID)}
	}

	b := emp.Balance
	switch t {
	case TypeSick:
		b.Sick, b.LWP = deductOrOverflow(b.Sick, b.LWP, days)
	case TypePlanned:
		b.Planned, b.LWP = deductOrOverflow(b.Planned, b.LWP, days)
	case TypeOptional:
		b.Optional, b.LWP = deductOrOverflow(b.Optional, b.LWP, days)
	case TypeLWP:
		b.LWP = b.LWP.Add(days)
	}

	if err := bl.Directory.UpdateBalance(ctx, employeeID, b); err != nil {
		return internalf(err, "update balance for %s", employeeID)
	}
	return nil
}

// deductOrOverflow subtracts days from a category when it can cover
// them, otherwise routes the full amount to LWP.
func deductOrOverflow(category, lwp, days decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	if category.GreaterThanOrEqual(days) {
		return category.Sub(days), lwp
	}
	return category, lwp.Add(days)
}

// Recalculate rebuilds an employee's sick/planned balances from the
// joining date, applying the same fortnight and capping rules as the
// incremental run. Optional resets to its quota and LWP is preserved.
// Idempotent; used to repair drift.
func (bl *BalanceLedger) Recalculate(ctx context.Context, employeeID UserID, now time.Time) (*BalanceSheet, error) {
	emp, err := bl.Directory.GetByID(ctx, employeeID)
	if err != nil {
		return nil, internalf(err, "load employee %s for recalculation", employeeID)
	}
	if emp == nil {
		return nil, &NotFoundError{Kind: "employee", ID: string(employeeID)}
	}
	if emp.DateOfJoining == nil {
		return nil, validationf("employee %s has no date of joining", emp.Name)
	}

	b := recalculated(*emp, DateOf(now))
	if err := bl.Directory.UpdateBalance(ctx, emp.ID, b); err != nil {
		return nil, internalf(err, "update balance for %s", emp.ID)
	}
	return &b, nil
}

// RecalculateAll runs Recalculate over the whole directory, skipping
// employees without a joining date.
func (bl *BalanceLedger) RecalculateAll(ctx context.Context, now time.Time) (RecalcSummary, error) {
	employees, err := bl.Directory.ListEmployees(ctx)
	if err != nil {
		return RecalcSummary{}, internalf(err, "list employees for recalculation")
	}

	summary := RecalcSummary{}
	today := DateOf(now)
	for _, emp := range employees {
		if emp.DateOfJoining == nil {
			log.Printf("[Ledger] skipping %s: no date of joining", emp.Name)
			summary.Skipped++
			continue
		}
		b := recalculated(emp, today)
		if err := bl.Directory.UpdateBalance(ctx, emp.ID, b); err != nil {
			return summary, internalf(err, "update balance for %s", emp.ID)
		}
		summary.Updated++
	}

	log.Printf("[Ledger] recalculated balances for %d employees (%d skipped)",
		summary.Updated, summary.Skipped)
	return summary, nil
}

func recalculated(emp Employee, today Date) BalanceSheet {
	months := monthsBetween(accrualStart(*emp.DateOfJoining), today.FirstOfMonth())
	if months < 0 {
		months = 0
	}
	m := decimal.NewFromInt(int64(months))

	var b BalanceSheet
	if emp.Level == LevelSickOnly {
		b.Sick = m.Mul(sickOnlyPerMonth)
		b.SickTotal = b.Sick
		b.Planned = decimal.Zero
		b.PlannedTotal = decimal.Zero
	} else {
		b.Sick = m.Mul(sickPerMonth)
		b.SickTotal = b.Sick
		b.PlannedTotal = m.Mul(plannedPerMonth)
		b.Planned = b.PlannedTotal
		if b.Planned.GreaterThan(plannedCap) {
			b.Planned = plannedCap
		}
	}
	b.Optional = defaultResetQuota
	b.OptionalTotal = defaultResetQuota
	b.LWP = emp.Balance.LWP // preserve accumulated LWP

	marker := today.FirstOfMonth()
	b.LastAccrualDate = &marker
	return b
}
