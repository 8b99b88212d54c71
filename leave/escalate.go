/*
escalate.go - Timeout-driven escalation of pending approvals

PURPOSE:
  Walks every Pending request and reassigns approval authority up the
  reporting chain when the current approver has sat on it too long:

    level 0:      2 full days since the request was applied
    level 1..n:   1 full day since the previous escalation

  The reference timestamp is the last escalation when one exists,
  otherwise the application time, so each hop gets its own window.

ADMIN FALLBACK:
  When the chain is exhausted the request lands on the first admin on
  record and every admin is notified. The level keeps climbing past
  the chain length so the 1-day window keeps applying.

RACE SAFETY:
  The reassignment goes through the store's conditional update. An
  approval or cancellation that lands mid-sweep wins; the sweep simply
  skips that request.

SEE ALSO:
  - hierarchy.go: the chain walk (cycle and depth guarded)
  - api/scheduler.go: the daily trigger
*/
package leave

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// Escalation windows, in full elapsed days.
const (
	initialWaitDays   = 2
	escalatedWaitDays = 1
)

type EscalationSummary struct {
	Escalated    int `json:"escalated_count"`
	TotalPending int `json:"total_pending"`
}

// RunEscalationSweep advances every overdue Pending request by one
// escalation level. A failure on one request is logged and does not
// stop the sweep.
func (lc *Lifecycle) RunEscalationSweep(ctx context.Context) (EscalationSummary, error) {
	pending, err := lc.Leaves.ListPending(ctx)
	if err != nil {
		return EscalationSummary{}, internalf(err, "list pending leaves")
	}

	now := lc.now()
	summary := EscalationSummary{TotalPending: len(pending)}

	for i := range pending {
		req := pending[i]
		if !escalationDue(&req, now) {
			continue
		}
		escalated, err := lc.escalate(ctx, &req, now)
		if err != nil {
			log.Printf("[Escalation] leave %s: %v", req.ID, err)
			continue
		}
		if escalated {
			summary.Escalated++
		}
	}

	log.Printf("[Escalation] sweep complete: %d/%d escalated", summary.Escalated, summary.TotalPending)
	return summary, nil
}

// escalationDue reports whether the current approver's window has
// elapsed, measured from the last escalation or the application time.
func escalationDue(req *LeaveRequest, now time.Time) bool {
	ref := req.AppliedOn
	if req.EscalatedOn != nil {
		ref = *req.EscalatedOn
	}
	waited := int(now.Sub(ref).Hours() / 24)
	if req.EscalationLevel == 0 {
		return waited >= initialWaitDays
	}
	return waited >= escalatedWaitDays
}

// escalate reassigns one request to the next approver. Returns false
// without error when nothing could be done (no admins on record, or a
// concurrent decision won the conditional update).
func (lc *Lifecycle) escalate(ctx context.Context, req *LeaveRequest, now time.Time) (bool, error) {
	chain, err := lc.Resolver.ManagerChain(ctx, req.EmployeeID)
	if err != nil {
		if errors.Is(err, ErrHierarchyCycle) {
			log.Printf("[Escalation] leave %s: skipping, %v", req.ID, err)
			return false, nil
		}
		return false, err
	}

	newLevel := req.EscalationLevel + 1

	var next Approver
	adminFallback := false
	if newLevel <= len(chain) {
		next = chain[newLevel-1]
	} else {
		admins, err := lc.Directory.FindAdmins(ctx)
		if err != nil {
			return false, internalf(err, "find admins")
		}
		if len(admins) == 0 {
			log.Printf("[Escalation] leave %s: chain exhausted and no admins on record", req.ID)
			return false, nil
		}
		first := admins[0]
		next = Approver{ID: first.ID, Name: first.Name, Email: first.Email, Role: first.Role}
		adminFallback = true
	}

	waitDays := escalatedWaitDays
	if req.EscalationLevel == 0 {
		waitDays = initialWaitDays
	}
	reason := fmt.Sprintf("Approval timeout - %d day(s) elapsed", waitDays)

	updated := *req
	updated.EscalationLevel = newLevel
	updated.PreviousApproverID = req.CurrentApproverID
	updated.CurrentApproverID = &next.ID
	updated.EscalatedOn = &now
	updated.EscalationHistory = append(append([]EscalationEntry(nil), req.EscalationHistory...), EscalationEntry{
		FromLevel:      req.EscalationLevel,
		ToLevel:        newLevel,
		At:             now,
		FromApprover:   req.CurrentApproverID,
		ToApprover:     next.ID,
		ToApproverName: next.Name,
		Reason:         reason,
	})

	ok, err := lc.Leaves.UpdateIfPending(ctx, updated)
	if err != nil {
		return false, internalf(err, "escalate leave %s", req.ID)
	}
	if !ok {
		// Decided or cancelled since the sweep listed it.
		return false, nil
	}

	message := fmt.Sprintf("ESCALATED: %s's %s request (%s to %s, %s day(s)) requires your approval (escalated after timeout)",
		req.EmployeeName, req.Type, req.StartDate, req.EndDate, req.Days)
	lc.notify(ctx, next.ID, NotifyLeaveEscalated, message, &req.ID)

	if adminFallback {
		admins, err := lc.Directory.FindAdmins(ctx)
		if err == nil {
			for _, a := range admins {
				if a.ID == next.ID {
					continue
				}
				lc.notify(ctx, a.ID, NotifyLeaveEscalated, message, &req.ID)
			}
		}
	}

	lc.recordAudit(ctx, AuditEntry{
		LeaveID:     req.ID,
		EmployeeID:  req.EmployeeID,
		Action:      AuditEscalated,
		PerformedBy: "System",
		OldData:     req.Snapshot(),
		NewData:     updated.Snapshot(),
		Remarks:     fmt.Sprintf("Auto-escalated to %s (Level %d) after timeout", next.Name, newLevel),
	}, nil)

	if next.Email != "" {
		subject, body := escalationEmail(next.Name, &updated)
		lc.sendEmail(next.Email, "", subject, body)
	}

	log.Printf("[Escalation] leave %s -> level %d (%s)", req.ID, newLevel, next.Name)
	return true, nil
}
