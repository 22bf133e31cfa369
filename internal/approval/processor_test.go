package approval

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/expensetrack/approval-engine/internal/domain/entity"
	"github.com/expensetrack/approval-engine/internal/domain/workflow"
)

func newTestProcessor(dir Directory) *Processor {
	return NewProcessor(dir, DefaultConfig(), zap.NewNop(), WithProcessorClock(testClock))
}

// standardDirectory is the recurring cast: employee Eva reporting to
// supervisor Sam, with Fran and Fred on the finance team.
func standardDirectory() *mockDirectory {
	return directoryWith(
		&entity.Employee{ID: "emp-1", Name: "Eva", SupervisorID: "sup-1"},
		&entity.Employee{ID: "sup-1", Name: "Sam"},
		&entity.Employee{ID: "fin-1", Name: "Fran", Role: "finance"},
		&entity.Employee{ID: "fin-2", Name: "Fred", Role: "finance"},
		&entity.Employee{ID: "del-1", Name: "Dana"},
	)
}

// twoStepReport is a freshly submitted monthly report sitting with the
// supervisor
func twoStepReport() *entity.Report {
	due := testClock().Add(48 * time.Hour)
	return &entity.Report{
		ID:         "r1",
		EmployeeID: "emp-1",
		Status:     entity.StatusPendingSupervisor,
		ApprovalWorkflow: []*entity.Step{
			{Step: 0, Role: entity.RoleSupervisor, ApproverID: "sup-1", ApproverName: "Sam", Status: entity.StepPending, DueAt: &due},
			{Step: 1, Role: entity.RoleFinance, ApproverName: FinanceTeamName, Status: entity.StepWaiting},
		},
		CurrentApprovalStage: entity.StageSupervisor,
		CurrentApprovalStep:  0,
		CurrentApproverID:    "sup-1",
		CurrentApproverName:  "Sam",
		EscalationDueAt:      &due,
		ReportData:           entity.ReportData{},
	}
}

// financePendingReport is a monthly report already past supervisor approval
func financePendingReport() *entity.Report {
	report := twoStepReport()
	acted := testClock()
	due := testClock().Add(72 * time.Hour)
	report.Status = entity.StatusPendingFinance
	report.ApprovalWorkflow[0].Status = entity.StepApproved
	report.ApprovalWorkflow[0].ActedAt = &acted
	report.ApprovalWorkflow[1].Status = entity.StepPending
	report.ApprovalWorkflow[1].DueAt = &due
	report.CurrentApprovalStage = entity.StageFinance
	report.CurrentApprovalStep = 1
	report.CurrentApproverID = ""
	report.CurrentApproverName = FinanceTeamName
	report.EscalationDueAt = &due
	return report
}

func TestParseAction(t *testing.T) {
	if _, err := ParseAction("approve"); err != nil {
		t.Errorf("ParseAction(approve) error: %v", err)
	}
	if _, err := ParseAction("submit"); err == nil {
		t.Error("submit must not be accepted as an act action")
	}
	if _, err := ParseAction("explode"); err == nil {
		t.Error("unknown action should fail")
	}
}

func TestProcessor_SupervisorApproveAdvances(t *testing.T) {
	p := newTestProcessor(standardDirectory())
	report := twoStepReport()

	outcome, err := p.Process(context.Background(), report, workflow.TriggerApprove,
		Actor{ID: "sup-1", Name: "Sam"}, Payload{Comments: "looks good"})
	if err != nil {
		t.Fatalf("Process(approve) error: %v", err)
	}

	if report.Status != entity.StatusPendingFinance {
		t.Errorf("status = %s, want pending_finance", report.Status)
	}
	sup := report.ApprovalWorkflow[0]
	if sup.Status != entity.StepApproved || sup.ActedAt == nil {
		t.Errorf("supervisor step = %+v", sup)
	}
	if sup.Comments != "looks good" {
		t.Errorf("supervisor comments = %q", sup.Comments)
	}

	fin := report.ApprovalWorkflow[1]
	wantDue := testClock().Add(72 * time.Hour)
	if fin.Status != entity.StepPending || fin.DueAt == nil || !fin.DueAt.Equal(wantDue) {
		t.Errorf("finance step = %+v", fin)
	}
	if report.CurrentApprovalStage != entity.StageFinance || report.CurrentApprovalStep != 1 {
		t.Errorf("head = %s step %d", report.CurrentApprovalStage, report.CurrentApprovalStep)
	}
	if report.EscalationDueAt == nil || !report.EscalationDueAt.Equal(wantDue) {
		t.Errorf("escalation due = %v", report.EscalationDueAt)
	}

	if len(outcome.Notifications) != 1 || outcome.Notifications[0].Event != EventFinanceApprovalNeeded {
		t.Errorf("notifications = %+v", outcome.Notifications)
	}
	if outcome.LogEntry == nil || outcome.LogEntry.Action != "approve" || outcome.LogEntry.ActorID != "sup-1" {
		t.Errorf("log entry = %+v", outcome.LogEntry)
	}
}

func TestProcessor_WeeklyApproveTerminates(t *testing.T) {
	p := newTestProcessor(standardDirectory())
	report := twoStepReport()
	report.ReportData = entity.ReportData{"weeklyCheckIn": true}

	outcome, err := p.Process(context.Background(), report, workflow.TriggerApprove,
		Actor{ID: "sup-1", Name: "Sam"}, Payload{})
	if err != nil {
		t.Fatalf("Process(approve) error: %v", err)
	}

	if report.Status != entity.StatusApproved {
		t.Errorf("status = %s, want approved", report.Status)
	}
	if report.ApprovedAt == nil || report.ApprovedBy != "sup-1" {
		t.Errorf("approved fields = %v / %s", report.ApprovedAt, report.ApprovedBy)
	}
	if report.CurrentApprovalStage != entity.StageCompleted {
		t.Errorf("stage = %s, want completed", report.CurrentApprovalStage)
	}
	if report.CurrentApproverID != "" || report.EscalationDueAt != nil {
		t.Error("terminal report should clear approver and escalation")
	}
	// The untouched finance step stays waiting.
	if report.ApprovalWorkflow[1].Status != entity.StepWaiting {
		t.Errorf("finance step = %+v", report.ApprovalWorkflow[1])
	}

	if len(outcome.Notifications) != 1 {
		t.Fatalf("notifications = %+v", outcome.Notifications)
	}
	n := outcome.Notifications[0]
	if n.Event != EventReportApproved || n.Cadence != CadenceWeekly || n.RecipientID != "emp-1" {
		t.Errorf("notification = %+v", n)
	}
}

func TestProcessor_FinanceFallbackBackfillsStep(t *testing.T) {
	p := newTestProcessor(standardDirectory())
	report := financePendingReport()

	// Fred is not bound to the step but is finance-capable.
	_, err := p.Process(context.Background(), report, workflow.TriggerApprove,
		Actor{ID: "fin-2", Name: "Fred"}, Payload{})
	if err != nil {
		t.Fatalf("Process(approve) error: %v", err)
	}

	fin := report.ApprovalWorkflow[1]
	if fin.ApproverID != "fin-2" || fin.ApproverName != "Fred" {
		t.Errorf("fallback should backfill the binding, got %q/%q", fin.ApproverID, fin.ApproverName)
	}
	if report.Status != entity.StatusApproved || report.ApprovedBy != "fin-2" {
		t.Errorf("report = %s by %s", report.Status, report.ApprovedBy)
	}
}

func TestProcessor_FinanceStepRejectsOutsiders(t *testing.T) {
	p := newTestProcessor(standardDirectory())
	report := financePendingReport()

	_, err := p.Process(context.Background(), report, workflow.TriggerApprove,
		Actor{ID: "emp-1", Name: "Eva"}, Payload{})
	var authErr *AuthorizationError
	if !errors.As(err, &authErr) {
		t.Fatalf("Process() error = %v, want AuthorizationError", err)
	}
}

func TestProcessor_SupervisorStepRejectsOutsiders(t *testing.T) {
	p := newTestProcessor(standardDirectory())
	report := twoStepReport()

	_, err := p.Process(context.Background(), report, workflow.TriggerApprove,
		Actor{ID: "fin-1", Name: "Fran"}, Payload{})
	var authErr *AuthorizationError
	if !errors.As(err, &authErr) {
		t.Fatalf("finance capability must not extend to supervisor steps, got %v", err)
	}
}

func TestProcessor_RejectRequiresComments(t *testing.T) {
	p := newTestProcessor(standardDirectory())
	report := twoStepReport()

	_, err := p.Process(context.Background(), report, workflow.TriggerReject,
		Actor{ID: "sup-1", Name: "Sam"}, Payload{})
	var valErr *ValidationError
	if !errors.As(err, &valErr) || valErr.Field != "comments" {
		t.Fatalf("Process(reject) error = %v, want comments validation", err)
	}
}

func TestProcessor_SupervisorRejectReturnsToEmployee(t *testing.T) {
	p := newTestProcessor(standardDirectory())
	report := twoStepReport()

	outcome, err := p.Process(context.Background(), report, workflow.TriggerReject,
		Actor{ID: "sup-1", Name: "Sam"}, Payload{Comments: "missing receipts"})
	if err != nil {
		t.Fatalf("Process(reject) error: %v", err)
	}

	if report.Status != entity.StatusRejected {
		t.Errorf("status = %s, want rejected", report.Status)
	}
	if report.CurrentApprovalStage != entity.StageNeedsRevision {
		t.Errorf("stage = %s, want needs_revision", report.CurrentApprovalStage)
	}
	if report.CurrentApproverID != "emp-1" {
		t.Errorf("ball should be with the employee, got %s", report.CurrentApproverID)
	}
	if report.EscalationDueAt != nil {
		t.Error("rejection should clear the escalation deadline")
	}
	if len(outcome.Notifications) != 1 || outcome.Notifications[0].RecipientID != "emp-1" {
		t.Errorf("notifications = %+v", outcome.Notifications)
	}
}

func TestProcessor_FinanceRejectReturnsToSupervisor(t *testing.T) {
	p := newTestProcessor(standardDirectory())
	report := financePendingReport()

	outcome, err := p.Process(context.Background(), report, workflow.TriggerReject,
		Actor{ID: "fin-1", Name: "Fran"}, Payload{Comments: "policy violation"})
	if err != nil {
		t.Fatalf("Process(reject) error: %v", err)
	}

	if report.Status != entity.StatusNeedsRevision {
		t.Errorf("status = %s, want needs_revision", report.Status)
	}
	if report.CurrentApproverID != "sup-1" {
		t.Errorf("finance rejection should go to the supervisor, got %s", report.CurrentApproverID)
	}
	if len(outcome.Notifications) != 1 || outcome.Notifications[0].Event != EventRevisionRequested {
		t.Errorf("notifications = %+v", outcome.Notifications)
	}
}

func TestProcessor_Delegate(t *testing.T) {
	p := newTestProcessor(standardDirectory())

	t.Run("requires delegate id", func(t *testing.T) {
		report := twoStepReport()
		_, err := p.Process(context.Background(), report, workflow.TriggerDelegate,
			Actor{ID: "sup-1"}, Payload{})
		var valErr *ValidationError
		if !errors.As(err, &valErr) {
			t.Fatalf("error = %v, want ValidationError", err)
		}
	})

	t.Run("unknown delegate", func(t *testing.T) {
		report := twoStepReport()
		_, err := p.Process(context.Background(), report, workflow.TriggerDelegate,
			Actor{ID: "sup-1"}, Payload{DelegateID: "ghost"})
		var nfErr *NotFoundError
		if !errors.As(err, &nfErr) {
			t.Fatalf("error = %v, want NotFoundError", err)
		}
	})

	t.Run("only the assignee may delegate", func(t *testing.T) {
		report := twoStepReport()
		_, err := p.Process(context.Background(), report, workflow.TriggerDelegate,
			Actor{ID: "emp-1"}, Payload{DelegateID: "del-1"})
		var authErr *AuthorizationError
		if !errors.As(err, &authErr) {
			t.Fatalf("error = %v, want AuthorizationError", err)
		}
	})

	t.Run("delegation moves the ball and resets the clock", func(t *testing.T) {
		report := twoStepReport()
		_, err := p.Process(context.Background(), report, workflow.TriggerDelegate,
			Actor{ID: "sup-1", Name: "Sam"}, Payload{DelegateID: "del-1", Comments: "out this week"})
		if err != nil {
			t.Fatalf("Process(delegate) error: %v", err)
		}

		step := report.ApprovalWorkflow[0]
		if step.DelegatedToID != "del-1" || step.DelegatedToName != "Dana" {
			t.Errorf("delegation = %q/%q", step.DelegatedToID, step.DelegatedToName)
		}
		if step.Status != entity.StepPending {
			t.Errorf("delegation must not change step status, got %s", step.Status)
		}
		if report.Status != entity.StatusPendingSupervisor {
			t.Errorf("delegation must not change report status, got %s", report.Status)
		}
		wantDue := testClock().Add(48 * time.Hour)
		if report.EscalationDueAt == nil || !report.EscalationDueAt.Equal(wantDue) {
			t.Errorf("escalation due = %v, want %v", report.EscalationDueAt, wantDue)
		}
		if report.CurrentApproverID != "del-1" {
			t.Errorf("head approver = %s, want delegate", report.CurrentApproverID)
		}

		// The delegate can now approve.
		if _, err := p.Process(context.Background(), report, workflow.TriggerApprove,
			Actor{ID: "del-1", Name: "Dana"}, Payload{}); err != nil {
			t.Fatalf("delegate approve error: %v", err)
		}
		if report.Status != entity.StatusPendingFinance {
			t.Errorf("status after delegate approval = %s", report.Status)
		}
	})

	t.Run("original approver can still act after delegating", func(t *testing.T) {
		report := twoStepReport()
		if _, err := p.Process(context.Background(), report, workflow.TriggerDelegate,
			Actor{ID: "sup-1", Name: "Sam"}, Payload{DelegateID: "del-1"}); err != nil {
			t.Fatalf("Process(delegate) error: %v", err)
		}

		if _, err := p.Process(context.Background(), report, workflow.TriggerApprove,
			Actor{ID: "sup-1", Name: "Sam"}, Payload{}); err != nil {
			t.Fatalf("original approver approve error: %v", err)
		}
		if report.Status != entity.StatusPendingFinance {
			t.Errorf("status after original approver approval = %s", report.Status)
		}
	})

	t.Run("delegation grants nothing to third parties", func(t *testing.T) {
		report := twoStepReport()
		if _, err := p.Process(context.Background(), report, workflow.TriggerDelegate,
			Actor{ID: "sup-1", Name: "Sam"}, Payload{DelegateID: "del-1"}); err != nil {
			t.Fatalf("Process(delegate) error: %v", err)
		}

		_, err := p.Process(context.Background(), report, workflow.TriggerApprove,
			Actor{ID: "emp-1", Name: "Eva"}, Payload{})
		var authErr *AuthorizationError
		if !errors.As(err, &authErr) {
			t.Fatalf("third-party approve error = %v, want AuthorizationError", err)
		}
		if report.ApprovalWorkflow[0].Status != entity.StepPending {
			t.Errorf("step status = %s, want still pending", report.ApprovalWorkflow[0].Status)
		}
	})
}

func TestProcessor_RemindIsOpenAndSnoozes(t *testing.T) {
	p := newTestProcessor(standardDirectory())
	report := twoStepReport()
	report.ApprovalWorkflow[0].DelegatedToID = "del-1"

	// Anyone may remind, including the scanner's system actor.
	outcome, err := p.Process(context.Background(), report, workflow.TriggerRemind,
		Actor{ID: "system", Name: "System"}, Payload{})
	if err != nil {
		t.Fatalf("Process(remind) error: %v", err)
	}

	step := report.ApprovalWorkflow[0]
	if len(step.Reminders) != 1 || step.Reminders[0].SentBy != "system" {
		t.Errorf("reminders = %+v", step.Reminders)
	}
	wantDue := testClock().Add(48 * time.Hour)
	if step.DueAt == nil || !step.DueAt.Equal(wantDue) {
		t.Errorf("step due = %v, want snoozed to %v", step.DueAt, wantDue)
	}
	if len(outcome.Notifications) != 1 {
		t.Fatalf("notifications = %+v", outcome.Notifications)
	}
	if outcome.Notifications[0].RecipientID != "del-1" {
		t.Errorf("reminder should target the delegate, got %s", outcome.Notifications[0].RecipientID)
	}
}

func TestProcessor_Comment(t *testing.T) {
	p := newTestProcessor(standardDirectory())

	report := twoStepReport()
	_, err := p.Process(context.Background(), report, workflow.TriggerComment,
		Actor{ID: "sup-1"}, Payload{})
	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("empty comment error = %v, want ValidationError", err)
	}

	if _, err := p.Process(context.Background(), report, workflow.TriggerComment,
		Actor{ID: "sup-1"}, Payload{Comments: "checking the mileage log"}); err != nil {
		t.Fatalf("Process(comment) error: %v", err)
	}
	if report.ApprovalWorkflow[0].Comments != "checking the mileage log" {
		t.Errorf("comments = %q", report.ApprovalWorkflow[0].Comments)
	}
	if report.Status != entity.StatusPendingSupervisor {
		t.Errorf("comment must not move the report, got %s", report.Status)
	}
}

func TestProcessor_RequestRevisionToEmployee(t *testing.T) {
	p := newTestProcessor(standardDirectory())
	report := twoStepReport()
	report.ReportData = entity.ReportData{
		"receipts": []any{
			map[string]any{"id": "rc-1"},
			map[string]any{"id": "rc-2"},
		},
	}

	outcome, err := p.Process(context.Background(), report, workflow.TriggerRequestRevisionToEmployee,
		Actor{ID: "sup-1", Name: "Sam"}, Payload{
			Comments: "fix mileage and the second receipt",
			SelectedItems: &ItemSelection{
				Mileage:  []string{"m-3"},
				Receipts: []string{"rc-2"},
			},
		})
	if err != nil {
		t.Fatalf("Process(request_revision_to_employee) error: %v", err)
	}

	if report.Status != entity.StatusNeedsRevision {
		t.Errorf("status = %s, want needs_revision", report.Status)
	}
	if report.ApprovalWorkflow[0].Status != entity.StepRevisionRequested {
		t.Errorf("supervisor step = %s", report.ApprovalWorkflow[0].Status)
	}
	if report.CurrentApproverID != "emp-1" || report.EscalationDueAt != nil {
		t.Errorf("head = %s due %v", report.CurrentApproverID, report.EscalationDueAt)
	}

	if len(outcome.RevisionNotes) != 2 {
		t.Fatalf("revision notes = %+v", outcome.RevisionNotes)
	}
	byCategory := map[entity.RevisionCategory]*entity.RevisionNote{}
	for _, n := range outcome.RevisionNotes {
		byCategory[n.Category] = n
	}
	if n := byCategory[entity.RevisionMileage]; n == nil || n.ItemID != "m-3" || n.ItemType != "mileage_day" {
		t.Errorf("mileage note = %+v", n)
	}
	if n := byCategory[entity.RevisionReceipt]; n == nil || n.ItemID != "rc-2" || n.ItemType != "receipt" {
		t.Errorf("receipt note = %+v", n)
	}

	receipts := report.ReportData["receipts"].([]any)
	second := receipts[1].(map[string]any)
	if v, _ := second["needsRevision"].(bool); !v {
		t.Error("selected receipt should be tagged in the payload")
	}
}

func TestProcessor_RequestRevisionToEmployee_WrongStep(t *testing.T) {
	p := newTestProcessor(standardDirectory())
	report := financePendingReport()

	_, err := p.Process(context.Background(), report, workflow.TriggerRequestRevisionToEmployee,
		Actor{ID: "fin-1"}, Payload{})
	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
}

func TestProcessor_RequestRevisionToSupervisor(t *testing.T) {
	p := newTestProcessor(standardDirectory())
	report := financePendingReport()

	outcome, err := p.Process(context.Background(), report, workflow.TriggerRequestRevisionToSupervisor,
		Actor{ID: "fin-1", Name: "Fran"}, Payload{Comments: "verify the vendor"})
	if err != nil {
		t.Fatalf("Process(request_revision_to_supervisor) error: %v", err)
	}

	if report.Status != entity.StatusNeedsRevision {
		t.Errorf("status = %s, want needs_revision", report.Status)
	}
	if report.ApprovalWorkflow[1].Status != entity.StepRevisionRequested {
		t.Errorf("finance step = %s", report.ApprovalWorkflow[1].Status)
	}

	sup := report.ApprovalWorkflow[0]
	if sup.Status != entity.StepPending {
		t.Errorf("supervisor step should be reopened, got %s", sup.Status)
	}
	wantDue := testClock().Add(48 * time.Hour)
	if sup.DueAt == nil || !sup.DueAt.Equal(wantDue) {
		t.Errorf("supervisor due = %v, want %v", sup.DueAt, wantDue)
	}
	if report.CurrentApprovalStage != entity.StageSupervisor || report.CurrentApproverID != "sup-1" {
		t.Errorf("head = %s/%s", report.CurrentApprovalStage, report.CurrentApproverID)
	}
	if len(outcome.Notifications) != 1 || outcome.Notifications[0].RecipientID != "sup-1" {
		t.Errorf("notifications = %+v", outcome.Notifications)
	}
}

func TestProcessor_ResubmitToFinance(t *testing.T) {
	p := newTestProcessor(standardDirectory())

	// Finance returned the report to the supervisor.
	report := financePendingReport()
	if _, err := p.Process(context.Background(), report, workflow.TriggerRequestRevisionToSupervisor,
		Actor{ID: "fin-1", Name: "Fran"}, Payload{Comments: "verify the vendor"}); err != nil {
		t.Fatalf("setup error: %v", err)
	}

	t.Run("only the supervisor may resubmit", func(t *testing.T) {
		_, err := p.Process(context.Background(), report, workflow.TriggerResubmitToFinance,
			Actor{ID: "emp-1"}, Payload{})
		var authErr *AuthorizationError
		if !errors.As(err, &authErr) {
			t.Fatalf("error = %v, want AuthorizationError", err)
		}
	})

	t.Run("resubmission reopens the finance step", func(t *testing.T) {
		outcome, err := p.Process(context.Background(), report, workflow.TriggerResubmitToFinance,
			Actor{ID: "sup-1", Name: "Sam"}, Payload{Comments: "vendor verified"})
		if err != nil {
			t.Fatalf("Process(resubmit_to_finance) error: %v", err)
		}

		if report.Status != entity.StatusPendingFinance {
			t.Errorf("status = %s, want pending_finance", report.Status)
		}
		if report.ApprovalWorkflow[0].Status != entity.StepApproved {
			t.Errorf("supervisor step = %s, want approved", report.ApprovalWorkflow[0].Status)
		}
		fin := report.ApprovalWorkflow[1]
		wantDue := testClock().Add(72 * time.Hour)
		if fin.Status != entity.StepPending || fin.DueAt == nil || !fin.DueAt.Equal(wantDue) {
			t.Errorf("finance step = %+v", fin)
		}
		if report.CurrentApprovalStage != entity.StageFinance {
			t.Errorf("stage = %s", report.CurrentApprovalStage)
		}
		if report.CurrentApproverName != FinanceTeamName {
			t.Errorf("approver name = %q, want finance team fallback", report.CurrentApproverName)
		}
		if len(outcome.Notifications) != 1 || outcome.Notifications[0].Event != EventFinanceApprovalNeeded {
			t.Errorf("notifications = %+v", outcome.Notifications)
		}
	})
}

func TestProcessor_ActionNotAllowedInStatus(t *testing.T) {
	p := newTestProcessor(standardDirectory())
	report := twoStepReport()
	report.Status = entity.StatusApproved

	_, err := p.Process(context.Background(), report, workflow.TriggerApprove,
		Actor{ID: "sup-1"}, Payload{})
	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
}

func TestProcessor_NoActiveStep(t *testing.T) {
	p := newTestProcessor(standardDirectory())
	report := twoStepReport()
	report.ApprovalWorkflow[0].Status = entity.StepApproved
	report.ApprovalWorkflow[1].Status = entity.StepApproved

	_, err := p.Process(context.Background(), report, workflow.TriggerApprove,
		Actor{ID: "sup-1"}, Payload{})
	if !errors.Is(err, ErrNoActiveStep) {
		t.Fatalf("error = %v, want ErrNoActiveStep", err)
	}
}

func TestProcessor_CertAckRecorded(t *testing.T) {
	p := newTestProcessor(standardDirectory())
	report := twoStepReport()
	report.ReportData = nil

	_, err := p.Process(context.Background(), report, workflow.TriggerApprove,
		Actor{ID: "sup-1", Name: "Sam"}, Payload{CertAck: true})
	if err != nil {
		t.Fatalf("Process(approve) error: %v", err)
	}
	if v, _ := report.ReportData["certAcknowledged"].(bool); !v {
		t.Error("cert acknowledgment should be written into the payload")
	}
}

func TestProcessor_StaleStepIndexRecovers(t *testing.T) {
	p := newTestProcessor(standardDirectory())
	report := twoStepReport()
	report.CurrentApprovalStep = 7 // corrupt index

	_, err := p.Process(context.Background(), report, workflow.TriggerApprove,
		Actor{ID: "sup-1", Name: "Sam"}, Payload{})
	if err != nil {
		t.Fatalf("Process(approve) with stale index error: %v", err)
	}
	if report.Status != entity.StatusPendingFinance {
		t.Errorf("status = %s, want pending_finance", report.Status)
	}
}
