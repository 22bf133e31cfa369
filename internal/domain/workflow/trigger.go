package workflow

// Trigger represents an event that can cause a report state transition
type Trigger string

const (
	TriggerSubmit                      Trigger = "submit"
	TriggerAutoApprove                 Trigger = "auto_approve"
	TriggerApprove                     Trigger = "approve"
	TriggerReject                      Trigger = "reject"
	TriggerDelegate                    Trigger = "delegate"
	TriggerRemind                      Trigger = "remind"
	TriggerComment                     Trigger = "comment"
	TriggerRequestRevisionToSupervisor Trigger = "request_revision_to_supervisor"
	TriggerRequestRevisionToEmployee   Trigger = "request_revision_to_employee"
	TriggerResubmitToFinance           Trigger = "resubmit_to_finance"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
