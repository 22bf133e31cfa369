package approval

import (
	"context"

	"github.com/expensetrack/approval-engine/internal/domain/entity"
	"github.com/expensetrack/approval-engine/internal/domain/workflow"
)

// BuildReportMachine creates the report-level state machine for one report.
// Guards close over the report, so the machine must be rebuilt after the
// report is reloaded.
func BuildReportMachine(report *entity.Report, hasSupervisor bool) *workflow.Machine {
	weekly := func(ctx context.Context) bool {
		return report.ReportData.WeeklyCheckIn()
	}
	withSupervisor := func(ctx context.Context) bool {
		return hasSupervisor
	}

	b := workflow.NewBuilder()

	// Submission can start from draft or re-enter from a soft-terminal state.
	for _, from := range []workflow.State{
		entity.StatusDraft,
		entity.StatusSubmitted,
		entity.StatusRejected,
		entity.StatusNeedsRevision,
	} {
		b.Configure(from).
			PermitIf(workflow.TriggerSubmit, entity.StatusPendingSupervisor, withSupervisor).
			Permit(workflow.TriggerSubmit, entity.StatusPendingFinance).
			Permit(workflow.TriggerAutoApprove, entity.StatusApproved)
	}

	// Weekly check-ins terminate at supervisor approval; monthly reports
	// advance to finance.
	b.Configure(entity.StatusPendingSupervisor).
		PermitIf(workflow.TriggerApprove, entity.StatusApproved, weekly).
		Permit(workflow.TriggerApprove, entity.StatusPendingFinance).
		Permit(workflow.TriggerReject, entity.StatusRejected).
		Permit(workflow.TriggerRequestRevisionToEmployee, entity.StatusNeedsRevision).
		PermitReentry(workflow.TriggerDelegate).
		PermitReentry(workflow.TriggerRemind).
		PermitReentry(workflow.TriggerComment)

	b.Configure(entity.StatusPendingFinance).
		Permit(workflow.TriggerApprove, entity.StatusApproved).
		Permit(workflow.TriggerReject, entity.StatusNeedsRevision).
		Permit(workflow.TriggerRequestRevisionToSupervisor, entity.StatusNeedsRevision).
		PermitReentry(workflow.TriggerDelegate).
		PermitReentry(workflow.TriggerRemind).
		PermitReentry(workflow.TriggerComment)

	// needs_revision already permits submit/auto_approve above; the
	// supervisor's route back to finance and step-neutral actions join it.
	b.Configure(entity.StatusNeedsRevision).
		Permit(workflow.TriggerResubmitToFinance, entity.StatusPendingFinance).
		PermitReentry(workflow.TriggerDelegate).
		PermitReentry(workflow.TriggerRemind).
		PermitReentry(workflow.TriggerComment)

	// approved is terminal; rejected re-enters only via submit (configured
	// above).

	initial := report.Status
	if !initial.IsValid() {
		initial = entity.StatusDraft
	}
	return b.Build(initial)
}
