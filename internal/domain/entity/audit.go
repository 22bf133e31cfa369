package entity

import "time"

// ApprovalLogEntry is one immutable record in the approval audit trail.
// Exactly one entry is appended per engine decision; entries are never
// updated or deleted.
type ApprovalLogEntry struct {
	ID         string    `json:"id"`
	ReportID   string    `json:"report_id"`
	EmployeeID string    `json:"employee_id"`
	ActorID    string    `json:"actor_id"`
	ActorName  string    `json:"actor_name"`
	Action     string    `json:"action"`
	Comments   string    `json:"comments,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Audit log action names beyond the Act actions themselves
const (
	LogActionSubmitted   = "submitted"
	LogActionAutoApprove = "auto_approved"
	LogActionSelfHeal    = "workflow_regenerated"
)
