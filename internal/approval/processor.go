package approval

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/expensetrack/approval-engine/internal/domain/entity"
	"github.com/expensetrack/approval-engine/internal/domain/workflow"
)

// Actor identifies the already-authenticated caller of an action
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ItemSelection lists report items a supervisor wants revised
type ItemSelection struct {
	Mileage      []string `json:"mileage,omitempty"`
	Receipts     []string `json:"receipts,omitempty"`
	TimeTracking []string `json:"time_tracking,omitempty"`
}

// Empty returns true when no items are selected
func (s *ItemSelection) Empty() bool {
	return s == nil || len(s.Mileage)+len(s.Receipts)+len(s.TimeTracking) == 0
}

// Payload carries the optional inputs of an action
type Payload struct {
	Comments      string         `json:"comments,omitempty"`
	DelegateID    string         `json:"delegate_id,omitempty"`
	SelectedItems *ItemSelection `json:"selected_items,omitempty"`
	CertAck       bool           `json:"cert_ack,omitempty"`
}

// actActions is the set of triggers accepted through Act. Submission and
// auto-approval run on the submit path, not here.
var actActions = map[workflow.Trigger]bool{
	workflow.TriggerApprove:                     true,
	workflow.TriggerReject:                      true,
	workflow.TriggerDelegate:                    true,
	workflow.TriggerRemind:                      true,
	workflow.TriggerComment:                     true,
	workflow.TriggerRequestRevisionToSupervisor: true,
	workflow.TriggerRequestRevisionToEmployee:   true,
	workflow.TriggerResubmitToFinance:           true,
}

// ParseAction validates a wire action name
func ParseAction(s string) (workflow.Trigger, error) {
	t := workflow.Trigger(s)
	if !actActions[t] {
		return "", newValidationError("action", fmt.Sprintf("unknown action %q", s))
	}
	return t, nil
}

// Outcome collects everything a successful action produced besides the
// mutated report itself. The caller persists the report, the log entry and
// the revision notes in one transaction, then dispatches the notifications
// fire-and-forget.
type Outcome struct {
	LogEntry      *entity.ApprovalLogEntry
	RevisionNotes []*entity.RevisionNote
	Notifications []Notification
}

// Processor applies one approval action to a report. It mutates the report
// in memory only; persistence and locking are the caller's concern.
type Processor struct {
	directory Directory
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
}

// ProcessorOption configures the processor
type ProcessorOption func(*Processor)

// WithProcessorClock overrides the time source, for tests
func WithProcessorClock(now func() time.Time) ProcessorOption {
	return func(p *Processor) {
		p.now = now
	}
}

// NewProcessor creates an action processor
func NewProcessor(directory Directory, cfg Config, logger *zap.Logger, opts ...ProcessorOption) *Processor {
	p := &Processor{
		directory: directory,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process applies the action to the report. The workflow must already be
// resolved (see Initializer.Resolve). On error the report may be partially
// mutated and must be discarded, not persisted.
func (p *Processor) Process(ctx context.Context, report *entity.Report, action workflow.Trigger, actor Actor, payload Payload) (*Outcome, error) {
	if !actActions[action] {
		return nil, newValidationError("action", fmt.Sprintf("unknown action %q", action))
	}
	if actor.ID == "" {
		return nil, newValidationError("actor", "actor id is required")
	}

	machine := BuildReportMachine(report, report.StepByRole(entity.RoleSupervisor) != nil)
	if !machine.CanFire(action) {
		return nil, newValidationError("action",
			fmt.Sprintf("action %s is not allowed while the report is %s", action, report.Status))
	}

	if payload.CertAck {
		if report.ReportData == nil {
			report.ReportData = entity.ReportData{}
		}
		report.ReportData.SetCertAcknowledged(true)
	}

	outcome := &Outcome{}
	var err error
	switch action {
	case workflow.TriggerApprove:
		err = p.approve(ctx, machine, report, actor, payload, outcome)
	case workflow.TriggerReject:
		err = p.reject(ctx, machine, report, actor, payload, outcome)
	case workflow.TriggerDelegate:
		err = p.delegate(ctx, machine, report, actor, payload, outcome)
	case workflow.TriggerRemind:
		err = p.remind(ctx, machine, report, actor, outcome)
	case workflow.TriggerComment:
		err = p.comment(ctx, machine, report, actor, payload)
	case workflow.TriggerRequestRevisionToSupervisor:
		err = p.requestRevisionToSupervisor(ctx, machine, report, actor, payload, outcome)
	case workflow.TriggerRequestRevisionToEmployee:
		err = p.requestRevisionToEmployee(ctx, machine, report, actor, payload, outcome)
	case workflow.TriggerResubmitToFinance:
		err = p.resubmitToFinance(ctx, machine, report, actor, payload, outcome)
	}
	if err != nil {
		return nil, err
	}

	outcome.LogEntry = &entity.ApprovalLogEntry{
		ReportID:   report.ID,
		EmployeeID: report.EmployeeID,
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		Action:     action.String(),
		Comments:   payload.Comments,
		Timestamp:  p.now(),
	}
	return outcome, nil
}

// currentStep resolves the active step defensively: the stored index first,
// then a pending step matching the stage string, then the first pending step.
func (p *Processor) currentStep(report *entity.Report) (int, *entity.Step, error) {
	steps := report.ApprovalWorkflow
	if idx := report.CurrentApprovalStep; idx >= 0 && idx < len(steps) && steps[idx].Status == entity.StepPending {
		return idx, steps[idx], nil
	}
	for i, s := range steps {
		if s.Status == entity.StepPending && s.Role.String() == report.CurrentApprovalStage.String() {
			return i, s, nil
		}
	}
	for i, s := range steps {
		if s.Status == entity.StepPending {
			return i, s, nil
		}
	}
	return 0, nil, ErrNoActiveStep
}

// authorize checks the actor against the step's approver and delegate. For
// finance steps any finance-capable employee qualifies; the returned flag
// marks that fallback so approve can backfill the binding.
func (p *Processor) authorize(ctx context.Context, step *entity.Step, actor Actor) (financeFallback bool, err error) {
	if step.IsAssignedTo(actor.ID) {
		return false, nil
	}
	if step.Role == entity.RoleFinance {
		emp, err := p.directory.GetByID(ctx, actor.ID)
		if err != nil {
			return false, err
		}
		if emp != nil && p.cfg.IsFinanceCapable(emp) {
			return true, nil
		}
		return false, &AuthorizationError{
			ActorID: actor.ID,
			Hint:    "finance steps accept any employee with finance capability",
		}
	}
	return false, &AuthorizationError{ActorID: actor.ID}
}

func (p *Processor) fire(ctx context.Context, machine *workflow.Machine, report *entity.Report, trigger workflow.Trigger) error {
	state, err := machine.Fire(ctx, trigger)
	if err != nil {
		return err
	}
	report.Status = state
	return nil
}

func (p *Processor) approve(ctx context.Context, machine *workflow.Machine, report *entity.Report, actor Actor, payload Payload, outcome *Outcome) error {
	idx, step, err := p.currentStep(report)
	if err != nil {
		return err
	}
	fallback, err := p.authorize(ctx, step, actor)
	if err != nil {
		return err
	}

	now := p.now()
	step.Status = entity.StepApproved
	step.ActedAt = &now
	step.AddComment(payload.Comments)
	if fallback {
		step.ApproverID = actor.ID
		step.ApproverName = actor.Name
	}

	wasSupervisor := step.Role == entity.RoleSupervisor
	if err := p.fire(ctx, machine, report, workflow.TriggerApprove); err != nil {
		return err
	}
	report.CurrentApprovalStep = idx

	nextIdx := idx + 1
	if report.Status != entity.StatusApproved && nextIdx >= len(report.ApprovalWorkflow) {
		// Self-healed or truncated workflow with no next step: terminal.
		report.Status = entity.StatusApproved
	}

	if report.Status == entity.StatusApproved {
		report.ApprovedAt = &now
		report.ApprovedBy = actor.ID
		report.CurrentApprovalStage = entity.StageCompleted
		report.CurrentApproverID = ""
		report.CurrentApproverName = ""
		report.EscalationDueAt = nil

		cadence := CadenceMonthly
		if report.ReportData.WeeklyCheckIn() {
			cadence = CadenceWeekly
		}
		outcome.Notifications = append(outcome.Notifications, Notification{
			Event:       EventReportApproved,
			ReportID:    report.ID,
			EmployeeID:  report.EmployeeID,
			ActorID:     actor.ID,
			ActorName:   actor.Name,
			RecipientID: report.EmployeeID,
			Cadence:     cadence,
		})
		return nil
	}

	next := report.ApprovalWorkflow[nextIdx]
	due := p.cfg.DueFor(next.Role, now)
	next.Status = entity.StepPending
	next.DueAt = &due

	report.CurrentApprovalStep = nextIdx
	report.CurrentApprovalStage = entity.StageFinance
	report.CurrentApproverID = next.ApproverID
	report.CurrentApproverName = next.ApproverName
	report.EscalationDueAt = &due

	if wasSupervisor && next.Role == entity.RoleFinance {
		outcome.Notifications = append(outcome.Notifications, Notification{
			Event:       EventFinanceApprovalNeeded,
			ReportID:    report.ID,
			EmployeeID:  report.EmployeeID,
			ActorID:     actor.ID,
			ActorName:   actor.Name,
			RecipientID: next.ApproverID,
		})
	}
	return nil
}

func (p *Processor) reject(ctx context.Context, machine *workflow.Machine, report *entity.Report, actor Actor, payload Payload, outcome *Outcome) error {
	if payload.Comments == "" {
		return newValidationError("comments", "comments are required when rejecting")
	}
	idx, step, err := p.currentStep(report)
	if err != nil {
		return err
	}
	if _, err := p.authorize(ctx, step, actor); err != nil {
		return err
	}

	now := p.now()
	step.Status = entity.StepRejected
	step.ActedAt = &now
	step.AddComment(payload.Comments)

	if err := p.fire(ctx, machine, report, workflow.TriggerReject); err != nil {
		return err
	}

	emp, err := p.directory.GetByID(ctx, report.EmployeeID)
	if err != nil {
		return err
	}
	if emp == nil {
		return &NotFoundError{Resource: "employee", ID: report.EmployeeID}
	}

	// Finance sends the report back to the supervisor; the supervisor sends
	// it back to the employee.
	recipientID, recipientName := emp.ID, emp.DisplayName()
	if step.Role == entity.RoleFinance && emp.HasSupervisor() {
		sup, err := p.directory.GetByID(ctx, emp.SupervisorID)
		if err != nil {
			return err
		}
		if sup != nil {
			recipientID, recipientName = sup.ID, sup.DisplayName()
		}
	}

	report.CurrentApprovalStep = idx
	report.CurrentApprovalStage = entity.StageNeedsRevision
	report.CurrentApproverID = recipientID
	report.CurrentApproverName = recipientName
	report.EscalationDueAt = nil

	outcome.Notifications = append(outcome.Notifications, Notification{
		Event:       EventRevisionRequested,
		ReportID:    report.ID,
		EmployeeID:  report.EmployeeID,
		ActorID:     actor.ID,
		ActorName:   actor.Name,
		RecipientID: recipientID,
	})
	return nil
}

func (p *Processor) delegate(ctx context.Context, machine *workflow.Machine, report *entity.Report, actor Actor, payload Payload, outcome *Outcome) error {
	if payload.DelegateID == "" {
		return newValidationError("delegate_id", "a delegate is required")
	}
	_, step, err := p.currentStep(report)
	if err != nil {
		return err
	}
	if _, err := p.authorize(ctx, step, actor); err != nil {
		return err
	}
	delegate, err := p.directory.GetByID(ctx, payload.DelegateID)
	if err != nil {
		return err
	}
	if delegate == nil {
		return &NotFoundError{Resource: "employee", ID: payload.DelegateID}
	}

	now := p.now()
	due := p.cfg.DueFor(step.Role, now)
	step.DelegatedToID = delegate.ID
	step.DelegatedToName = delegate.DisplayName()
	step.DueAt = &due
	step.AddComment(payload.Comments)

	if err := p.fire(ctx, machine, report, workflow.TriggerDelegate); err != nil {
		return err
	}
	report.CurrentApproverID = delegate.ID
	report.CurrentApproverName = delegate.DisplayName()
	report.EscalationDueAt = &due
	return nil
}

// remind is open to any actor, including the escalation scanner acting as
// "system". It snoozes the deadline rather than merely logging the nudge.
func (p *Processor) remind(ctx context.Context, machine *workflow.Machine, report *entity.Report, actor Actor, outcome *Outcome) error {
	_, step, err := p.currentStep(report)
	if err != nil {
		return err
	}

	now := p.now()
	due := p.cfg.DueFor(step.Role, now)
	step.AddReminder(now, actor.ID)
	step.DueAt = &due

	if err := p.fire(ctx, machine, report, workflow.TriggerRemind); err != nil {
		return err
	}
	report.EscalationDueAt = &due

	recipient := step.ApproverID
	if step.DelegatedToID != "" {
		recipient = step.DelegatedToID
	}
	outcome.Notifications = append(outcome.Notifications, Notification{
		Event:       EventApprovalReminder,
		ReportID:    report.ID,
		EmployeeID:  report.EmployeeID,
		ActorID:     actor.ID,
		ActorName:   actor.Name,
		RecipientID: recipient,
	})
	return nil
}

func (p *Processor) comment(ctx context.Context, machine *workflow.Machine, report *entity.Report, actor Actor, payload Payload) error {
	if payload.Comments == "" {
		return newValidationError("comments", "comment text is required")
	}
	_, step, err := p.currentStep(report)
	if err != nil {
		return err
	}
	if _, err := p.authorize(ctx, step, actor); err != nil {
		return err
	}
	step.AddComment(payload.Comments)
	return p.fire(ctx, machine, report, workflow.TriggerComment)
}

func (p *Processor) requestRevisionToSupervisor(ctx context.Context, machine *workflow.Machine, report *entity.Report, actor Actor, payload Payload, outcome *Outcome) error {
	_, step, err := p.currentStep(report)
	if err != nil {
		return err
	}
	if step.Role != entity.RoleFinance {
		return newValidationError("action", "request_revision_to_supervisor is only valid on the finance step")
	}
	if _, err := p.authorize(ctx, step, actor); err != nil {
		return err
	}

	supIdx, supStep := stepIndexByRole(report, entity.RoleSupervisor)
	if supStep == nil {
		return fmt.Errorf("%w: report has no supervisor step to return to", ErrNoActiveStep)
	}

	now := p.now()
	step.Status = entity.StepRevisionRequested
	step.ActedAt = &now
	step.AddComment(payload.Comments)

	due := p.cfg.DueFor(entity.RoleSupervisor, now)
	supStep.Status = entity.StepPending
	supStep.DueAt = &due
	supStep.AddComment(payload.Comments)

	if err := p.fire(ctx, machine, report, workflow.TriggerRequestRevisionToSupervisor); err != nil {
		return err
	}

	// Re-resolve the supervisor from the directory; the step binding is the
	// fallback when the employee's supervisor changed or vanished.
	approverID, approverName := supStep.ApproverID, supStep.ApproverName
	if emp, err := p.directory.GetByID(ctx, report.EmployeeID); err != nil {
		return err
	} else if emp != nil && emp.HasSupervisor() {
		if sup, err := p.directory.GetByID(ctx, emp.SupervisorID); err != nil {
			return err
		} else if sup != nil {
			approverID, approverName = sup.ID, sup.DisplayName()
			supStep.ApproverID = sup.ID
			supStep.ApproverName = sup.DisplayName()
		}
	}

	report.CurrentApprovalStep = supIdx
	report.CurrentApprovalStage = entity.StageSupervisor
	report.CurrentApproverID = approverID
	report.CurrentApproverName = approverName
	report.EscalationDueAt = &due

	outcome.Notifications = append(outcome.Notifications, Notification{
		Event:       EventRevisionRequested,
		ReportID:    report.ID,
		EmployeeID:  report.EmployeeID,
		ActorID:     actor.ID,
		ActorName:   actor.Name,
		RecipientID: approverID,
	})
	return nil
}

func (p *Processor) requestRevisionToEmployee(ctx context.Context, machine *workflow.Machine, report *entity.Report, actor Actor, payload Payload, outcome *Outcome) error {
	idx, step, err := p.currentStep(report)
	if err != nil {
		return err
	}
	if step.Role != entity.RoleSupervisor {
		return newValidationError("action", "request_revision_to_employee is only valid on the supervisor step")
	}
	if _, err := p.authorize(ctx, step, actor); err != nil {
		return err
	}

	now := p.now()
	step.Status = entity.StepRevisionRequested
	step.ActedAt = &now
	step.AddComment(payload.Comments)

	if err := p.fire(ctx, machine, report, workflow.TriggerRequestRevisionToEmployee); err != nil {
		return err
	}

	emp, err := p.directory.GetByID(ctx, report.EmployeeID)
	if err != nil {
		return err
	}
	if emp == nil {
		return &NotFoundError{Resource: "employee", ID: report.EmployeeID}
	}

	report.CurrentApprovalStep = idx
	report.CurrentApprovalStage = entity.StageNeedsRevision
	report.CurrentApproverID = emp.ID
	report.CurrentApproverName = emp.DisplayName()
	report.EscalationDueAt = nil

	outcome.RevisionNotes = p.buildRevisionNotes(report, actor, payload)
	if payload.SelectedItems != nil {
		report.ReportData.TagReceiptsNeedingRevision(payload.SelectedItems.Receipts)
	}

	outcome.Notifications = append(outcome.Notifications, Notification{
		Event:       EventRevisionRequested,
		ReportID:    report.ID,
		EmployeeID:  report.EmployeeID,
		ActorID:     actor.ID,
		ActorName:   actor.Name,
		RecipientID: emp.ID,
	})
	return nil
}

func (p *Processor) buildRevisionNotes(report *entity.Report, actor Actor, payload Payload) []*entity.RevisionNote {
	if payload.SelectedItems.Empty() {
		return nil
	}
	sel := payload.SelectedItems
	var notes []*entity.RevisionNote
	add := func(category entity.RevisionCategory, itemType string, ids []string) {
		for _, itemID := range ids {
			notes = append(notes, &entity.RevisionNote{
				ReportID:        report.ID,
				EmployeeID:      report.EmployeeID,
				RequestedBy:     actor.ID,
				RequestedByName: actor.Name,
				RequestedByRole: entity.RoleSupervisor.String(),
				TargetRole:      "employee",
				Category:        category,
				ItemID:          itemID,
				ItemType:        itemType,
				Notes:           payload.Comments,
				CreatedAt:       p.now(),
			})
		}
	}
	add(entity.RevisionMileage, "mileage_day", sel.Mileage)
	add(entity.RevisionReceipt, "receipt", sel.Receipts)
	add(entity.RevisionTime, "time_entry", sel.TimeTracking)
	return notes
}

func (p *Processor) resubmitToFinance(ctx context.Context, machine *workflow.Machine, report *entity.Report, actor Actor, payload Payload, outcome *Outcome) error {
	_, supStep := stepIndexByRole(report, entity.RoleSupervisor)
	if supStep == nil {
		return fmt.Errorf("%w: report has no supervisor step", ErrNoActiveStep)
	}
	finIdx, finStep := stepIndexByRole(report, entity.RoleFinance)
	if finStep == nil {
		return fmt.Errorf("%w: report has no finance step", ErrNoActiveStep)
	}
	if !supStep.IsAssignedTo(actor.ID) {
		return &AuthorizationError{ActorID: actor.ID}
	}

	now := p.now()
	supStep.Status = entity.StepApproved
	supStep.ActedAt = &now
	supStep.AddComment(payload.Comments)

	due := p.cfg.DueFor(entity.RoleFinance, now)
	finStep.Status = entity.StepPending
	finStep.DueAt = &due

	if err := p.fire(ctx, machine, report, workflow.TriggerResubmitToFinance); err != nil {
		return err
	}

	approverName := finStep.ApproverName
	if approverName == "" {
		approverName = FinanceTeamName
	}
	report.CurrentApprovalStep = finIdx
	report.CurrentApprovalStage = entity.StageFinance
	report.CurrentApproverID = finStep.ApproverID
	report.CurrentApproverName = approverName
	report.EscalationDueAt = &due

	outcome.Notifications = append(outcome.Notifications, Notification{
		Event:       EventFinanceApprovalNeeded,
		ReportID:    report.ID,
		EmployeeID:  report.EmployeeID,
		ActorID:     actor.ID,
		ActorName:   actor.Name,
		RecipientID: finStep.ApproverID,
	})
	return nil
}

func stepIndexByRole(report *entity.Report, role entity.StepRole) (int, *entity.Step) {
	for i, s := range report.ApprovalWorkflow {
		if s.Role == role {
			return i, s
		}
	}
	return 0, nil
}
