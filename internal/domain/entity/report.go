package entity

import "time"

// ReportStatus represents the approval lifecycle state of an expense report
type ReportStatus string

const (
	StatusDraft             ReportStatus = "draft"
	StatusSubmitted         ReportStatus = "submitted"
	StatusPendingSupervisor ReportStatus = "pending_supervisor"
	StatusPendingFinance    ReportStatus = "pending_finance"
	StatusNeedsRevision     ReportStatus = "needs_revision"
	StatusApproved          ReportStatus = "approved"
	StatusRejected          ReportStatus = "rejected"
)

var validStatuses = map[ReportStatus]bool{
	StatusDraft:             true,
	StatusSubmitted:         true,
	StatusPendingSupervisor: true,
	StatusPendingFinance:    true,
	StatusNeedsRevision:     true,
	StatusApproved:          true,
	StatusRejected:          true,
}

// Approved is the only hard-terminal status. Rejected and needs_revision are
// re-enterable through resubmission.
var terminalStatuses = map[ReportStatus]bool{
	StatusApproved: true,
}

// IsValid returns true if the status is a known report status
func (s ReportStatus) IsValid() bool {
	return validStatuses[s]
}

// IsTerminal returns true if no further approval actions apply
func (s ReportStatus) IsTerminal() bool {
	return terminalStatuses[s]
}

// IsActiveApproval returns true while the report sits with an approver and
// the single-pending-step invariant must hold
func (s ReportStatus) IsActiveApproval() bool {
	return s == StatusPendingSupervisor || s == StatusPendingFinance
}

// String returns the string representation of the status
func (s ReportStatus) String() string {
	return string(s)
}

// Stage names which part of the pipeline currently holds the report
type Stage string

const (
	StageSupervisor    Stage = "supervisor"
	StageFinance       Stage = "finance"
	StageNeedsRevision Stage = "needs_revision"
	StageCompleted     Stage = "completed"
	StageNone          Stage = ""
)

// String returns the string representation of the stage
func (s Stage) String() string {
	return string(s)
}

// Report is an expense report row. The engine owns the approval columns and
// the embedded workflow; ReportData is an opaque payload owned by the report
// editor, of which the engine reads the weekly check-in marker and writes the
// certification acknowledgment flag.
type Report struct {
	ID                   string       `json:"id"`
	EmployeeID           string       `json:"employee_id"`
	Month                int          `json:"month"`
	Year                 int          `json:"year"`
	Status               ReportStatus `json:"status"`
	SubmittedAt          *time.Time   `json:"submitted_at,omitempty"`
	ApprovedAt           *time.Time   `json:"approved_at,omitempty"`
	ApprovedBy           string       `json:"approved_by,omitempty"`
	CurrentApprovalStage Stage        `json:"current_approval_stage"`
	CurrentApprovalStep  int          `json:"current_approval_step"`
	CurrentApproverID    string       `json:"current_approver_id,omitempty"`
	CurrentApproverName  string       `json:"current_approver_name,omitempty"`
	EscalationDueAt      *time.Time   `json:"escalation_due_at,omitempty"`
	ApprovalWorkflow     []*Step      `json:"approval_workflow"`
	ReportData           ReportData   `json:"report_data,omitempty"`
	CreatedAt            time.Time    `json:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at"`
}

// StepByRole returns the first workflow step with the given role, or nil
func (r *Report) StepByRole(role StepRole) *Step {
	for _, s := range r.ApprovalWorkflow {
		if s.Role == role {
			return s
		}
	}
	return nil
}

// PendingStep returns the first pending workflow step, or nil
func (r *Report) PendingStep() *Step {
	for _, s := range r.ApprovalWorkflow {
		if s.Status == StepPending {
			return s
		}
	}
	return nil
}

// ReportData is the opaque report payload stored alongside the approval
// columns. Keys other than the ones below pass through untouched.
type ReportData map[string]any

const (
	dataKeyWeeklyCheckIn = "weeklyCheckIn"
	dataKeyCertAck       = "certAcknowledged"
	dataKeyReceipts      = "receipts"
)

// WeeklyCheckIn reports whether the payload marks this report as a weekly
// check-in submission. Weekly reports stop at supervisor approval.
func (d ReportData) WeeklyCheckIn() bool {
	v, ok := d[dataKeyWeeklyCheckIn].(bool)
	return ok && v
}

// SetCertAcknowledged records the submitter's certification acknowledgment
func (d ReportData) SetCertAcknowledged(ack bool) {
	d[dataKeyCertAck] = ack
}

// TagReceiptsNeedingRevision flags the payload receipts whose id is in the
// given set. Receipts are expected as a list of objects carrying an "id"
// field; anything else is left alone.
func (d ReportData) TagReceiptsNeedingRevision(receiptIDs []string) {
	if len(receiptIDs) == 0 {
		return
	}
	wanted := make(map[string]bool, len(receiptIDs))
	for _, id := range receiptIDs {
		wanted[id] = true
	}
	receipts, ok := d[dataKeyReceipts].([]any)
	if !ok {
		return
	}
	for _, raw := range receipts {
		receipt, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if id, ok := receipt["id"].(string); ok && wanted[id] {
			receipt["needsRevision"] = true
		}
	}
}
