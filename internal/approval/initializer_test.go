package approval

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/expensetrack/approval-engine/internal/domain/entity"
)

// Mock directory
type mockDirectory struct {
	getByIDFunc             func(ctx context.Context, id string) (*entity.Employee, error)
	getFinanceApproversFunc func(ctx context.Context) ([]*entity.Employee, error)
}

func (m *mockDirectory) GetByID(ctx context.Context, id string) (*entity.Employee, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockDirectory) GetFinanceApprovers(ctx context.Context) ([]*entity.Employee, error) {
	if m.getFinanceApproversFunc != nil {
		return m.getFinanceApproversFunc(ctx)
	}
	return nil, nil
}

// directoryWith serves a fixed set of employees by id
func directoryWith(employees ...*entity.Employee) *mockDirectory {
	byID := make(map[string]*entity.Employee, len(employees))
	var finance []*entity.Employee
	for _, emp := range employees {
		byID[emp.ID] = emp
		if emp.Role == "finance" {
			finance = append(finance, emp)
		}
	}
	return &mockDirectory{
		getByIDFunc: func(ctx context.Context, id string) (*entity.Employee, error) {
			return byID[id], nil
		},
		getFinanceApproversFunc: func(ctx context.Context) ([]*entity.Employee, error) {
			return finance, nil
		},
	}
}

var testClock = func() time.Time {
	return time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
}

func newTestInitializer(dir Directory) *Initializer {
	return NewInitializer(dir, DefaultConfig(), zap.NewNop(), WithInitializerClock(testClock))
}

func TestInitializer_TwoStepWorkflow(t *testing.T) {
	dir := directoryWith(
		&entity.Employee{ID: "emp-1", Name: "Eva", SupervisorID: "sup-1"},
		&entity.Employee{ID: "sup-1", Name: "Sam"},
		&entity.Employee{ID: "fin-1", Name: "Fran", Role: "finance"},
		&entity.Employee{ID: "fin-2", Name: "Fred", Role: "finance"},
	)
	init := newTestInitializer(dir)
	report := &entity.Report{ID: "r1", EmployeeID: "emp-1"}

	if err := init.Initialize(context.Background(), report); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}

	if len(report.ApprovalWorkflow) != 2 {
		t.Fatalf("workflow length = %d, want 2", len(report.ApprovalWorkflow))
	}
	sup := report.ApprovalWorkflow[0]
	if sup.Role != entity.RoleSupervisor || sup.Status != entity.StepPending || sup.ApproverID != "sup-1" {
		t.Errorf("supervisor step = %+v", sup)
	}
	wantDue := testClock().Add(48 * time.Hour)
	if sup.DueAt == nil || !sup.DueAt.Equal(wantDue) {
		t.Errorf("supervisor due = %v, want %v", sup.DueAt, wantDue)
	}

	fin := report.ApprovalWorkflow[1]
	if fin.Role != entity.RoleFinance || fin.Status != entity.StepWaiting {
		t.Errorf("finance step = %+v", fin)
	}
	// Two finance approvers means the step stays unbound behind a team name.
	if fin.ApproverID != "" || fin.ApproverName != FinanceTeamName {
		t.Errorf("finance binding = %q/%q", fin.ApproverID, fin.ApproverName)
	}

	if report.Status != entity.StatusPendingSupervisor {
		t.Errorf("status = %s, want pending_supervisor", report.Status)
	}
	if report.CurrentApprovalStage != entity.StageSupervisor {
		t.Errorf("stage = %s, want supervisor", report.CurrentApprovalStage)
	}
	if report.CurrentApproverID != "sup-1" || report.CurrentApprovalStep != 0 {
		t.Errorf("head = %s step %d", report.CurrentApproverID, report.CurrentApprovalStep)
	}
	if report.EscalationDueAt == nil || !report.EscalationDueAt.Equal(wantDue) {
		t.Errorf("escalation due = %v, want %v", report.EscalationDueAt, wantDue)
	}
}

func TestInitializer_FinanceOnlyWorkflow(t *testing.T) {
	dir := directoryWith(
		&entity.Employee{ID: "emp-1", Name: "Eva"},
		&entity.Employee{ID: "fin-1", Name: "Fran", Role: "finance"},
	)
	init := newTestInitializer(dir)
	report := &entity.Report{ID: "r1", EmployeeID: "emp-1"}

	if err := init.Initialize(context.Background(), report); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}

	if len(report.ApprovalWorkflow) != 1 {
		t.Fatalf("workflow length = %d, want 1", len(report.ApprovalWorkflow))
	}
	fin := report.ApprovalWorkflow[0]
	if fin.Role != entity.RoleFinance || fin.Status != entity.StepPending {
		t.Errorf("finance step = %+v", fin)
	}
	// A single finance approver binds the step up front.
	if fin.ApproverID != "fin-1" || fin.ApproverName != "Fran" {
		t.Errorf("finance binding = %q/%q", fin.ApproverID, fin.ApproverName)
	}
	wantDue := testClock().Add(72 * time.Hour)
	if fin.DueAt == nil || !fin.DueAt.Equal(wantDue) {
		t.Errorf("finance due = %v, want %v", fin.DueAt, wantDue)
	}
	if report.Status != entity.StatusPendingFinance {
		t.Errorf("status = %s, want pending_finance", report.Status)
	}
	if report.CurrentApprovalStage != entity.StageFinance {
		t.Errorf("stage = %s, want finance", report.CurrentApprovalStage)
	}
}

func TestInitializer_DanglingSupervisorDegrades(t *testing.T) {
	dir := directoryWith(
		&entity.Employee{ID: "emp-1", Name: "Eva", SupervisorID: "gone"},
		&entity.Employee{ID: "fin-1", Name: "Fran", Role: "finance"},
	)
	init := newTestInitializer(dir)
	report := &entity.Report{ID: "r1", EmployeeID: "emp-1"}

	if err := init.Initialize(context.Background(), report); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}
	if len(report.ApprovalWorkflow) != 1 || report.ApprovalWorkflow[0].Role != entity.RoleFinance {
		t.Errorf("dangling supervisor should degrade to finance-only, got %+v", report.ApprovalWorkflow)
	}
}

func TestInitializer_UnknownEmployee(t *testing.T) {
	init := newTestInitializer(directoryWith())
	report := &entity.Report{ID: "r1", EmployeeID: "ghost"}

	err := init.Initialize(context.Background(), report)
	if _, ok := err.(*NotFoundError); !ok {
		t.Fatalf("Initialize() error = %v, want NotFoundError", err)
	}
}

func TestInitializer_Resolve(t *testing.T) {
	dir := directoryWith(
		&entity.Employee{ID: "emp-1", Name: "Eva", SupervisorID: "sup-1"},
		&entity.Employee{ID: "sup-1", Name: "Sam"},
	)
	init := newTestInitializer(dir)

	tests := []struct {
		name           string
		workflow       []*entity.Step
		wantRegenerate bool
	}{
		{
			name:           "empty workflow regenerates",
			workflow:       nil,
			wantRegenerate: true,
		},
		{
			name: "invalid role regenerates",
			workflow: []*entity.Step{
				{Role: entity.StepRole("manager"), Status: entity.StepPending},
			},
			wantRegenerate: true,
		},
		{
			name: "invalid status regenerates",
			workflow: []*entity.Step{
				{Role: entity.RoleSupervisor, Status: entity.StepStatus("stuck")},
			},
			wantRegenerate: true,
		},
		{
			name: "usable workflow untouched",
			workflow: []*entity.Step{
				{Role: entity.RoleSupervisor, Status: entity.StepPending, ApproverID: "someone-else"},
				{Role: entity.RoleFinance, Status: entity.StepWaiting},
			},
			wantRegenerate: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := &entity.Report{
				ID:               "r1",
				EmployeeID:       "emp-1",
				Status:           entity.StatusPendingSupervisor,
				ApprovalWorkflow: tt.workflow,
			}
			regenerated, err := init.Resolve(context.Background(), report)
			if err != nil {
				t.Fatalf("Resolve() error: %v", err)
			}
			if regenerated != tt.wantRegenerate {
				t.Errorf("Resolve() = %v, want %v", regenerated, tt.wantRegenerate)
			}
			if tt.wantRegenerate {
				if len(report.ApprovalWorkflow) == 0 || report.ApprovalWorkflow[0].ApproverID != "sup-1" {
					t.Errorf("regenerated workflow = %+v", report.ApprovalWorkflow)
				}
			} else if report.ApprovalWorkflow[0].ApproverID != "someone-else" {
				t.Error("usable workflow was rewritten")
			}
		})
	}
}

func TestInitializer_ResolveLeavesApprovedReports(t *testing.T) {
	dir := directoryWith(
		&entity.Employee{ID: "emp-1", Name: "Eva", SupervisorID: "sup-1"},
		&entity.Employee{ID: "sup-1", Name: "Sam"},
	)
	init := newTestInitializer(dir)

	// An executive bypass leaves an approved report with no workflow at all.
	// That must not count as malformed: regenerating would reopen it.
	approvedAt := testClock()
	report := &entity.Report{
		ID:               "r1",
		EmployeeID:       "emp-1",
		Status:           entity.StatusApproved,
		ApprovedAt:       &approvedAt,
		ApprovedBy:       "emp-1",
		ApprovalWorkflow: nil,
	}

	regenerated, err := init.Resolve(context.Background(), report)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if regenerated {
		t.Fatal("Resolve() regenerated a workflow for an approved report")
	}
	if report.Status != entity.StatusApproved {
		t.Errorf("status = %s, want approved", report.Status)
	}
	if len(report.ApprovalWorkflow) != 0 {
		t.Errorf("workflow = %+v, want none", report.ApprovalWorkflow)
	}
}
