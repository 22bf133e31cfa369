package approval

// EventKind names a notification request emitted by the engine. Delivery is
// someone else's problem; the engine only says who should hear about what.
type EventKind string

const (
	EventReportSubmitted       EventKind = "report_submitted"
	EventFinanceApprovalNeeded EventKind = "finance_approval_needed"
	EventReportApproved        EventKind = "report_approved"
	EventRevisionRequested     EventKind = "revision_requested"
	EventApprovalReminder      EventKind = "approval_reminder"
)

// Cadence values attached to report_approved events so message wording can
// distinguish weekly check-ins from monthly reports
const (
	CadenceWeekly  = "weekly"
	CadenceMonthly = "monthly"
)

// Notification is a fire-and-forget request to tell RecipientID about an
// event on a report. An empty RecipientID on a finance event means "the
// finance team" rather than a single person.
type Notification struct {
	Event       EventKind `json:"event"`
	ReportID    string    `json:"report_id"`
	EmployeeID  string    `json:"employee_id"`
	ActorID     string    `json:"actor_id,omitempty"`
	ActorName   string    `json:"actor_name,omitempty"`
	RecipientID string    `json:"recipient_id,omitempty"`
	Cadence     string    `json:"cadence,omitempty"`
}
