package approval

import (
	"context"
	"testing"

	"github.com/expensetrack/approval-engine/internal/domain/entity"
	"github.com/expensetrack/approval-engine/internal/domain/workflow"
)

func TestBuildReportMachine_SubmitRouting(t *testing.T) {
	tests := []struct {
		name          string
		hasSupervisor bool
		want          workflow.State
	}{
		{"with supervisor", true, entity.StatusPendingSupervisor},
		{"without supervisor", false, entity.StatusPendingFinance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := &entity.Report{Status: entity.StatusDraft}
			m := BuildReportMachine(report, tt.hasSupervisor)
			state, err := m.Fire(context.Background(), workflow.TriggerSubmit)
			if err != nil {
				t.Fatalf("Fire(submit) error: %v", err)
			}
			if state != tt.want {
				t.Errorf("submit from draft = %s, want %s", state, tt.want)
			}
		})
	}
}

func TestBuildReportMachine_WeeklyBypassesFinance(t *testing.T) {
	report := &entity.Report{
		Status:     entity.StatusPendingSupervisor,
		ReportData: entity.ReportData{"weeklyCheckIn": true},
	}
	m := BuildReportMachine(report, true)
	state, err := m.Fire(context.Background(), workflow.TriggerApprove)
	if err != nil {
		t.Fatalf("Fire(approve) error: %v", err)
	}
	if state != entity.StatusApproved {
		t.Errorf("weekly supervisor approval = %s, want approved", state)
	}
}

func TestBuildReportMachine_MonthlyAdvancesToFinance(t *testing.T) {
	report := &entity.Report{Status: entity.StatusPendingSupervisor}
	m := BuildReportMachine(report, true)
	state, err := m.Fire(context.Background(), workflow.TriggerApprove)
	if err != nil {
		t.Fatalf("Fire(approve) error: %v", err)
	}
	if state != entity.StatusPendingFinance {
		t.Errorf("monthly supervisor approval = %s, want pending_finance", state)
	}
}

func TestBuildReportMachine_RejectSemantics(t *testing.T) {
	// Supervisor rejection terminates; finance rejection sends the report
	// back for revision so it can be resubmitted.
	sup := BuildReportMachine(&entity.Report{Status: entity.StatusPendingSupervisor}, true)
	if state, _ := sup.Fire(context.Background(), workflow.TriggerReject); state != entity.StatusRejected {
		t.Errorf("supervisor reject = %s, want rejected", state)
	}

	fin := BuildReportMachine(&entity.Report{Status: entity.StatusPendingFinance}, true)
	if state, _ := fin.Fire(context.Background(), workflow.TriggerReject); state != entity.StatusNeedsRevision {
		t.Errorf("finance reject = %s, want needs_revision", state)
	}
}

func TestBuildReportMachine_NeedsRevisionRoundTrip(t *testing.T) {
	report := &entity.Report{Status: entity.StatusNeedsRevision}
	m := BuildReportMachine(report, true)

	if !m.CanFire(workflow.TriggerResubmitToFinance) {
		t.Error("needs_revision should allow resubmit_to_finance")
	}
	if !m.CanFire(workflow.TriggerSubmit) {
		t.Error("needs_revision should allow submit")
	}

	state, err := m.Fire(context.Background(), workflow.TriggerResubmitToFinance)
	if err != nil {
		t.Fatalf("Fire(resubmit_to_finance) error: %v", err)
	}
	if state != entity.StatusPendingFinance {
		t.Errorf("resubmit = %s, want pending_finance", state)
	}
}

func TestBuildReportMachine_ApprovedIsTerminal(t *testing.T) {
	report := &entity.Report{Status: entity.StatusApproved}
	m := BuildReportMachine(report, true)
	for _, trigger := range []workflow.Trigger{
		workflow.TriggerSubmit,
		workflow.TriggerApprove,
		workflow.TriggerReject,
		workflow.TriggerRemind,
	} {
		if m.CanFire(trigger) {
			t.Errorf("approved should not permit %s", trigger)
		}
	}
}

func TestBuildReportMachine_StepNeutralActions(t *testing.T) {
	for _, status := range []entity.ReportStatus{
		entity.StatusPendingSupervisor,
		entity.StatusPendingFinance,
		entity.StatusNeedsRevision,
	} {
		m := BuildReportMachine(&entity.Report{Status: status}, true)
		for _, trigger := range []workflow.Trigger{
			workflow.TriggerDelegate,
			workflow.TriggerRemind,
			workflow.TriggerComment,
		} {
			state, err := m.Fire(context.Background(), trigger)
			if err != nil {
				t.Errorf("%s from %s: unexpected error %v", trigger, status, err)
			}
			if state != workflow.State(status) {
				t.Errorf("%s from %s moved to %s, want reentry", trigger, status, state)
			}
		}
	}
}

func TestBuildReportMachine_InvalidStatusFallsBackToDraft(t *testing.T) {
	report := &entity.Report{Status: entity.ReportStatus("garbage")}
	m := BuildReportMachine(report, false)
	if m.State() != entity.StatusDraft {
		t.Errorf("initial state = %s, want draft fallback", m.State())
	}
}
