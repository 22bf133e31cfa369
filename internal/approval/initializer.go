package approval

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/expensetrack/approval-engine/internal/domain/entity"
)

// Initializer builds the ordered approval workflow for a report at
// submission time and regenerates it when the stored one is missing or
// malformed.
type Initializer struct {
	directory Directory
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
}

// InitializerOption configures the initializer
type InitializerOption func(*Initializer)

// WithInitializerClock overrides the time source, for tests
func WithInitializerClock(now func() time.Time) InitializerOption {
	return func(i *Initializer) {
		i.now = now
	}
}

// NewInitializer creates a workflow initializer
func NewInitializer(directory Directory, cfg Config, logger *zap.Logger, opts ...InitializerOption) *Initializer {
	i := &Initializer{
		directory: directory,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Initialize builds the workflow from current directory data and writes the
// head state onto the report: workflow, stage, step index, approver and
// escalation deadline. Given unchanged directory data the produced workflow
// has the same roles and order every time; only due dates move with the
// clock.
func (i *Initializer) Initialize(ctx context.Context, report *entity.Report) error {
	emp, err := i.directory.GetByID(ctx, report.EmployeeID)
	if err != nil {
		return err
	}
	if emp == nil {
		return &NotFoundError{Resource: "employee", ID: report.EmployeeID}
	}

	now := i.now()
	var steps []*entity.Step

	if emp.HasSupervisor() {
		sup, err := i.directory.GetByID(ctx, emp.SupervisorID)
		if err != nil {
			return err
		}
		if sup == nil {
			// A dangling supervisor id degrades to a finance-only workflow.
			i.logger.Warn("Supervisor not found in directory, skipping supervisor step",
				zap.String("report_id", report.ID),
				zap.String("supervisor_id", emp.SupervisorID))
		} else {
			due := i.cfg.DueFor(entity.RoleSupervisor, now)
			steps = append(steps, &entity.Step{
				Step:         0,
				Role:         entity.RoleSupervisor,
				ApproverID:   sup.ID,
				ApproverName: sup.DisplayName(),
				Status:       entity.StepPending,
				DueAt:        &due,
			})
		}
	}

	financeStep := &entity.Step{
		Step:         len(steps),
		Role:         entity.RoleFinance,
		Status:       entity.StepWaiting,
		ApproverName: FinanceTeamName,
	}
	approvers, err := i.directory.GetFinanceApprovers(ctx)
	if err != nil {
		return err
	}
	// Exactly one finance approver binds the step up front; otherwise any
	// finance-capable employee may act on it.
	if len(approvers) == 1 {
		financeStep.ApproverID = approvers[0].ID
		financeStep.ApproverName = approvers[0].DisplayName()
	}
	if len(steps) == 0 {
		due := i.cfg.DueFor(entity.RoleFinance, now)
		financeStep.Status = entity.StepPending
		financeStep.DueAt = &due
	}
	steps = append(steps, financeStep)

	head := steps[0]
	report.ApprovalWorkflow = steps
	report.CurrentApprovalStep = 0
	report.CurrentApproverID = head.ApproverID
	report.CurrentApproverName = head.ApproverName
	report.EscalationDueAt = head.DueAt
	if head.Role == entity.RoleSupervisor {
		report.CurrentApprovalStage = entity.StageSupervisor
		report.Status = entity.StatusPendingSupervisor
	} else {
		report.CurrentApprovalStage = entity.StageFinance
		report.Status = entity.StatusPendingFinance
	}
	return nil
}

// Resolve is the self-healing entry point executed before any action is
// applied: when the stored workflow is empty or malformed it is regenerated
// from current directory data. The returned flag tells the caller to persist
// the regenerated workflow before processing the action.
func (i *Initializer) Resolve(ctx context.Context, report *entity.Report) (bool, error) {
	// A terminal report is never regenerated: its workflow, empty or not, is
	// historical record, and regenerating would reopen a decided report.
	// Actions against it are rejected downstream.
	if report.Status.IsTerminal() {
		return false, nil
	}
	if workflowUsable(report.ApprovalWorkflow) {
		return false, nil
	}
	i.logger.Info("Stored workflow missing or malformed, regenerating",
		zap.String("report_id", report.ID),
		zap.Int("stored_steps", len(report.ApprovalWorkflow)))
	if err := i.Initialize(ctx, report); err != nil {
		return false, err
	}
	return true, nil
}

// workflowUsable reports whether the stored steps can be processed as-is
func workflowUsable(steps []*entity.Step) bool {
	if len(steps) == 0 {
		return false
	}
	for _, s := range steps {
		if s == nil || !s.Role.IsValid() || !s.Status.IsValid() {
			return false
		}
	}
	return true
}
