/*
emails.go - Outgoing email content

Subjects and HTML bodies for the three mail-bearing lifecycle events.
Transport lives in the mailer package; this file only renders.
*/
package leave

import (
	"fmt"
	"strings"
)

func emailShell(title, rows, footer string) string {
	var b strings.Builder
	b.WriteString(`<div style="font-family:Arial,sans-serif;max-width:600px;margin:0 auto">`)
	b.WriteString(fmt.Sprintf(`<h2 style="color:#2c3e50;border-bottom:2px solid #3498db;padding-bottom:8px">%s</h2>`, title))
	b.WriteString(`<table style="width:100%;border-collapse:collapse">`)
	b.WriteString(rows)
	b.WriteString(`</table>`)
	if footer != "" {
		b.WriteString(fmt.Sprintf(`<p style="color:#7f8c8d;margin-top:16px">%s</p>`, footer))
	}
	b.WriteString(`</div>`)
	return b.String()
}

func emailRow(label, value string) string {
	return fmt.Sprintf(`<tr><td style="padding:6px 12px;font-weight:bold;color:#555">%s</td><td style="padding:6px 12px">%s</td></tr>`, label, value)
}

func requestEmail(managerName string, req *LeaveRequest, typeDesc string) (subject, body string) {
	subject = fmt.Sprintf("Leave Request from %s", req.EmployeeName)
	rows := emailRow("Employee", req.EmployeeName) +
		emailRow("Type", typeDesc) +
		emailRow("From", req.StartDate.String()) +
		emailRow("To", req.EndDate.String()) +
		emailRow("Days", req.Days.String())
	if req.Reason != "" {
		rows += emailRow("Reason", req.Reason)
	}
	body = emailShell(fmt.Sprintf("Hi %s, a leave request needs your review", managerName), rows,
		"Please approve or reject this request from your dashboard.")
	return subject, body
}

func decisionEmail(req *LeaveRequest) (subject, body string) {
	if req.Status == StatusApproved {
		subject = fmt.Sprintf("Leave Approved: %s to %s", req.StartDate, req.EndDate)
		rows := emailRow("Type", string(req.Type)) +
			emailRow("From", req.StartDate.String()) +
			emailRow("To", req.EndDate.String()) +
			emailRow("Approved By", req.ApprovedBy)
		if req.IsPartialApproval && req.ApprovedStartDate != nil && req.ApprovedEndDate != nil {
			rows += emailRow("Approved Range", fmt.Sprintf("%s to %s", req.ApprovedStartDate, req.ApprovedEndDate))
		}
		body = emailShell(fmt.Sprintf("Hi %s, your leave request has been approved", req.EmployeeName), rows, "")
		return subject, body
	}

	subject = fmt.Sprintf("Leave Rejected: %s to %s", req.StartDate, req.EndDate)
	rows := emailRow("Type", string(req.Type)) +
		emailRow("From", req.StartDate.String()) +
		emailRow("To", req.EndDate.String()) +
		emailRow("Reason", req.RejectionReason)
	body = emailShell(fmt.Sprintf("Hi %s, your leave request has been rejected", req.EmployeeName), rows,
		"Contact your manager if you have questions about this decision.")
	return subject, body
}

func escalationEmail(approverName string, req *LeaveRequest) (subject, body string) {
	subject = fmt.Sprintf("[Escalated] Leave Request from %s awaits your approval", req.EmployeeName)
	rows := emailRow("Employee", req.EmployeeName) +
		emailRow("Type", string(req.Type)) +
		emailRow("From", req.StartDate.String()) +
		emailRow("To", req.EndDate.String()) +
		emailRow("Days", req.Days.String()) +
		emailRow("Escalation Level", fmt.Sprintf("%d", req.EscalationLevel))
	body = emailShell(fmt.Sprintf("Hi %s, this request was escalated to you after an approval timeout", approverName), rows,
		"The previous approver did not act within the allowed window.")
	return subject, body
}
