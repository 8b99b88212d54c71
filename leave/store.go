/*
store.go - Persistence and collaborator interfaces

PURPOSE:
  Defines the contracts between the core and everything it does not
  own: the user directory, leave persistence, holiday lookup, the
  notification sink, the audit log and the mail gateway. Different
  implementations can use SQLite, PostgreSQL, or in-memory storage.

CONDITIONAL UPDATES:
  LeaveStore.UpdateIfPending is the serialization point for the
  Pending -> terminal transition and for escalation. The update applies
  only if the stored status is still Pending at that moment; a false
  return means a concurrent actor won the race and the caller must not
  apply side effects. This is what prevents a manager's approval and
  the escalation sweep from double-processing one request.

SIDE-EFFECT POLICY:
  NotificationSink and EmailGateway are fire-and-forget: failures are
  logged, never surfaced, and neither may be called while holding a
  lock on a request or a balance sheet. AuditLog is append-only.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite store (all interfaces)
  - leave/store:  in-memory store for tests and dev
  - mailer:       SMTP EmailGateway
*/
package leave

import "context"

// =============================================================================
// USER DIRECTORY
// =============================================================================

// UserDirectory is the employee lookup the core consumes. Lookups
// return (nil, nil) when the record does not exist.
type UserDirectory interface {
	GetByID(ctx context.Context, id UserID) (*Employee, error)
	GetByEmail(ctx context.Context, email string) (*Employee, error)
	FindAdmins(ctx context.Context) ([]Employee, error)
	FindDirectReports(ctx context.Context, managerID UserID) ([]Employee, error)
	ListEmployees(ctx context.Context) ([]Employee, error)

	SaveEmployee(ctx context.Context, emp Employee) error

	// UpdateBalance replaces the employee's balance sheet. The sheet
	// is owned by the ledger; nothing else writes it.
	UpdateBalance(ctx context.Context, id UserID, b BalanceSheet) error
}

// =============================================================================
// LEAVE STORE
// =============================================================================

// LeaveStore persists leave requests. Get returns (nil, nil) for an
// unknown id.
type LeaveStore interface {
	Insert(ctx context.Context, req LeaveRequest) error
	Get(ctx context.Context, id LeaveID) (*LeaveRequest, error)

	// Update rewrites a request unconditionally. Lifecycle code must
	// go through UpdateIfPending instead; this exists for
	// administrative repair.
	Update(ctx context.Context, req LeaveRequest) error

	// UpdateIfPending rewrites the request only if its stored status
	// is still Pending. Returns false (and no error) when the guard
	// fails.
	UpdateIfPending(ctx context.Context, req LeaveRequest) (bool, error)

	ListByEmployee(ctx context.Context, employeeID UserID) ([]LeaveRequest, error)
	ListPending(ctx context.Context) ([]LeaveRequest, error)
	ListPendingForApprover(ctx context.Context, approverID UserID) ([]LeaveRequest, error)

	// ListEscalated returns pending requests that have escalated and
	// now sit with one of the given admins.
	ListEscalated(ctx context.Context, adminIDs []UserID) ([]LeaveRequest, error)

	ListAll(ctx context.Context) ([]LeaveRequest, error)
}

// =============================================================================
// HOLIDAY CALENDAR
// =============================================================================

// HolidayCalendar answers "is there a holiday of this type on this
// date". Find returns (nil, nil) when there is none.
type HolidayCalendar interface {
	Find(ctx context.Context, date Date, typ HolidayType) (*Holiday, error)
	List(ctx context.Context) ([]Holiday, error)
	Save(ctx context.Context, h Holiday) error
	Delete(ctx context.Context, id string) error
}

// =============================================================================
// NOTIFICATION SINK - user-visible notices
// =============================================================================

type NotificationSink interface {
	Create(ctx context.Context, n Notification) error
	ListForUser(ctx context.Context, userID UserID) ([]Notification, error)
	MarkRead(ctx context.Context, id string) error
	UnreadCount(ctx context.Context, userID UserID) (int, error)
}

// =============================================================================
// AUDIT LOG - append-only action trail
// =============================================================================

type AuditLog interface {
	Record(ctx context.Context, entry AuditEntry) error
	ByLeave(ctx context.Context, leaveID LeaveID) ([]AuditEntry, error)
	ByEmployee(ctx context.Context, employeeID UserID) ([]AuditEntry, error)
}

// =============================================================================
// EMAIL GATEWAY - best effort, never blocks the lifecycle
// =============================================================================

type EmailGateway interface {
	// Send delivers an HTML mail. cc may be empty or a comma-separated
	// list. Callers bound the context; failures are logged, not raised.
	Send(ctx context.Context, to, cc, subject, htmlBody string) error
}
