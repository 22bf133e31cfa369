package service

import (
	"context"
	"time"

	"github.com/expensetrack/approval-engine/internal/application/port"
	"github.com/expensetrack/approval-engine/internal/approval"
	"github.com/expensetrack/approval-engine/internal/domain/entity"
	"github.com/expensetrack/approval-engine/internal/domain/workflow"
)

// notifyTimeout bounds each fire-and-forget notification attempt
const notifyTimeout = 10 * time.Second

// SystemActor is used by the escalation scanner when it fires reminders
var SystemActor = approval.Actor{ID: "system", Name: "System"}

// HeadState is the resolved head of the approval pipeline returned to the
// surrounding CRUD layer
type HeadState struct {
	ReportID     string              `json:"report_id"`
	Status       entity.ReportStatus `json:"status"`
	Stage        entity.Stage        `json:"stage"`
	ApproverID   string              `json:"approver_id,omitempty"`
	ApproverName string              `json:"approver_name,omitempty"`
	DueAt        *time.Time          `json:"due_at,omitempty"`
	Workflow     []*entity.Step      `json:"workflow,omitempty"`
}

// ApprovalService is the engine's public contract
type ApprovalService interface {
	Submit(ctx context.Context, reportID string) (*HeadState, error)
	Act(ctx context.Context, reportID, action string, actor approval.Actor, payload approval.Payload) (*HeadState, error)
	GetApprovalState(ctx context.Context, reportID string) (*HeadState, error)
	GetAuditLog(ctx context.Context, reportID string) ([]*entity.ApprovalLogEntry, error)
	AddRevisionNote(ctx context.Context, reportID string, note *entity.RevisionNote) (string, error)
	ListRevisionNotes(ctx context.Context, reportID string, unresolvedOnly bool) ([]*entity.RevisionNote, error)
	ResolveRevisionNote(ctx context.Context, reportID, noteID, resolvedBy string) error
	RemindOverdue(ctx context.Context, limit int) (int, error)
}

type approvalServiceImpl struct {
	reports     port.ReportRepository
	auditLog    port.AuditLogRepository
	notes       port.RevisionNoteRepository
	employees   port.EmployeeRepository
	txManager   port.TransactionManager
	notifier    port.Notifier
	initializer *approval.Initializer
	processor   *approval.Processor
	cfg         approval.Config
	locks       *reportLocker
	logger      Logger
	now         func() time.Time
}

// ServiceOption configures the approval service
type ServiceOption func(*approvalServiceImpl)

// WithServiceClock overrides the time source, for tests
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *approvalServiceImpl) {
		s.now = now
	}
}

// NewApprovalService wires the approval engine behind its public contract
func NewApprovalService(
	reports port.ReportRepository,
	auditLog port.AuditLogRepository,
	notes port.RevisionNoteRepository,
	employees port.EmployeeRepository,
	txManager port.TransactionManager,
	notifier port.Notifier,
	initializer *approval.Initializer,
	processor *approval.Processor,
	cfg approval.Config,
	logger Logger,
	opts ...ServiceOption,
) ApprovalService {
	s := &approvalServiceImpl{
		reports:     reports,
		auditLog:    auditLog,
		notes:       notes,
		employees:   employees,
		txManager:   txManager,
		notifier:    notifier,
		initializer: initializer,
		processor:   processor,
		cfg:         cfg,
		locks:       newReportLocker(),
		logger:      logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit runs the workflow initializer, or the executive bypass, and returns
// the resulting head state. Submitting again before any action re-runs the
// initializer against current directory data. A terminally decided report
// cannot be resubmitted.
func (s *approvalServiceImpl) Submit(ctx context.Context, reportID string) (*HeadState, error) {
	unlock := s.locks.Lock(reportID)
	defer unlock()

	report, err := s.loadReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report.Status.IsTerminal() {
		return nil, &approval.ValidationError{Field: "status",
			Reason: "report is already " + string(report.Status) + " and cannot be resubmitted"}
	}
	emp, err := s.employees.GetByID(ctx, report.EmployeeID)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, &approval.NotFoundError{Resource: "employee", ID: report.EmployeeID}
	}

	now := s.now()
	report.SubmittedAt = &now

	if s.cfg.IsExecutive(emp) {
		return s.submitExecutive(ctx, report, emp, now)
	}

	if err := s.initializer.Initialize(ctx, report); err != nil {
		return nil, err
	}

	entry := &entity.ApprovalLogEntry{
		ReportID:   report.ID,
		EmployeeID: report.EmployeeID,
		ActorID:    emp.ID,
		ActorName:  emp.DisplayName(),
		Action:     entity.LogActionSubmitted,
		Timestamp:  now,
	}
	if err := s.persist(ctx, report, entry, nil); err != nil {
		return nil, err
	}

	s.dispatch(approval.Notification{
		Event:       approval.EventReportSubmitted,
		ReportID:    report.ID,
		EmployeeID:  report.EmployeeID,
		ActorID:     emp.ID,
		ActorName:   emp.DisplayName(),
		RecipientID: report.CurrentApproverID,
	})
	return headState(report), nil
}

// submitExecutive bypasses the workflow entirely for executive submitters
func (s *approvalServiceImpl) submitExecutive(ctx context.Context, report *entity.Report, emp *entity.Employee, now time.Time) (*HeadState, error) {
	report.Status = entity.StatusApproved
	report.ApprovedAt = &now
	report.ApprovedBy = emp.ID
	report.CurrentApprovalStage = entity.StageCompleted
	report.CurrentApprovalStep = 0
	report.CurrentApproverID = ""
	report.CurrentApproverName = ""
	report.EscalationDueAt = nil
	report.ApprovalWorkflow = nil

	entry := &entity.ApprovalLogEntry{
		ReportID:   report.ID,
		EmployeeID: report.EmployeeID,
		ActorID:    emp.ID,
		ActorName:  emp.DisplayName(),
		Action:     entity.LogActionAutoApprove,
		Comments:   "auto-approved: executive position " + emp.Position,
		Timestamp:  now,
	}
	if err := s.persist(ctx, report, entry, nil); err != nil {
		return nil, err
	}

	s.logger.Info("Executive submission auto-approved",
		"report_id", report.ID,
		"employee_id", emp.ID,
		"position", emp.Position)

	cadence := approval.CadenceMonthly
	if report.ReportData.WeeklyCheckIn() {
		cadence = approval.CadenceWeekly
	}
	s.dispatch(approval.Notification{
		Event:       approval.EventReportApproved,
		ReportID:    report.ID,
		EmployeeID:  report.EmployeeID,
		ActorID:     emp.ID,
		ActorName:   emp.DisplayName(),
		RecipientID: report.EmployeeID,
		Cadence:     cadence,
	})
	return headState(report), nil
}

// Act resolves the workflow (regenerating a missing or malformed one first),
// applies the action, persists report, audit entry and revision notes
// atomically, and dispatches notifications fire-and-forget.
func (s *approvalServiceImpl) Act(ctx context.Context, reportID, action string, actor approval.Actor, payload approval.Payload) (*HeadState, error) {
	trigger, err := approval.ParseAction(action)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(reportID)
	defer unlock()

	report, err := s.loadReport(ctx, reportID)
	if err != nil {
		return nil, err
	}

	regenerated, err := s.initializer.Resolve(ctx, report)
	if err != nil {
		return nil, err
	}
	if regenerated {
		// Persist the healed workflow (with its own audit entry) before the
		// action so a failure below still leaves a processable report behind.
		entry := &entity.ApprovalLogEntry{
			ReportID:   report.ID,
			EmployeeID: report.EmployeeID,
			ActorID:    SystemActor.ID,
			ActorName:  SystemActor.Name,
			Action:     entity.LogActionSelfHeal,
			Comments:   "stored workflow was missing or malformed",
			Timestamp:  s.now(),
		}
		if err := s.persist(ctx, report, entry, nil); err != nil {
			return nil, err
		}
		s.logger.Info("Regenerated approval workflow before action",
			"report_id", report.ID,
			"action", action)
	}

	outcome, err := s.processor.Process(ctx, report, trigger, actor, payload)
	if err != nil {
		return nil, err
	}

	if err := s.persist(ctx, report, outcome.LogEntry, outcome.RevisionNotes); err != nil {
		return nil, err
	}
	for _, n := range outcome.Notifications {
		s.dispatch(n)
	}
	return headState(report), nil
}

// GetApprovalState returns the current head state including the workflow
func (s *approvalServiceImpl) GetApprovalState(ctx context.Context, reportID string) (*HeadState, error) {
	report, err := s.loadReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	return headState(report), nil
}

// GetAuditLog returns the report's approval audit trail
func (s *approvalServiceImpl) GetAuditLog(ctx context.Context, reportID string) ([]*entity.ApprovalLogEntry, error) {
	if _, err := s.loadReport(ctx, reportID); err != nil {
		return nil, err
	}
	return s.auditLog.ListByReportID(ctx, reportID)
}

// AddRevisionNote records an item-level revision request independent of any
// step transition
func (s *approvalServiceImpl) AddRevisionNote(ctx context.Context, reportID string, note *entity.RevisionNote) (string, error) {
	report, err := s.loadReport(ctx, reportID)
	if err != nil {
		return "", err
	}
	if !note.Category.IsValid() {
		return "", &approval.ValidationError{Field: "category", Reason: "must be mileage, receipt or time"}
	}
	note.ReportID = report.ID
	note.EmployeeID = report.EmployeeID
	note.CreatedAt = s.now()
	if err := s.notes.Create(ctx, note); err != nil {
		return "", &approval.PersistenceError{Op: "create revision note", Err: err}
	}
	return note.ID, nil
}

// ListRevisionNotes lists a report's revision notes
func (s *approvalServiceImpl) ListRevisionNotes(ctx context.Context, reportID string, unresolvedOnly bool) ([]*entity.RevisionNote, error) {
	if _, err := s.loadReport(ctx, reportID); err != nil {
		return nil, err
	}
	return s.notes.ListByReportID(ctx, reportID, unresolvedOnly)
}

// ResolveRevisionNote marks a note resolved on behalf of the employee
func (s *approvalServiceImpl) ResolveRevisionNote(ctx context.Context, reportID, noteID, resolvedBy string) error {
	if resolvedBy == "" {
		return &approval.ValidationError{Field: "resolved_by", Reason: "resolver id is required"}
	}
	note, err := s.notes.GetByID(ctx, noteID)
	if err != nil {
		return err
	}
	if note == nil || note.ReportID != reportID {
		return &approval.NotFoundError{Resource: "revision note", ID: noteID}
	}
	if err := s.notes.MarkResolved(ctx, noteID, resolvedBy, s.now()); err != nil {
		return &approval.PersistenceError{Op: "resolve revision note", Err: err}
	}
	return nil
}

// RemindOverdue fires a system reminder for every report whose escalation
// deadline has passed. Failures on individual reports are logged and the
// scan continues.
func (s *approvalServiceImpl) RemindOverdue(ctx context.Context, limit int) (int, error) {
	overdue, err := s.reports.ListEscalated(ctx, s.now(), limit)
	if err != nil {
		return 0, err
	}
	reminded := 0
	for _, report := range overdue {
		if _, err := s.Act(ctx, report.ID, workflow.TriggerRemind.String(), SystemActor, approval.Payload{}); err != nil {
			s.logger.Error("Escalation reminder failed",
				"report_id", report.ID,
				"error", err)
			continue
		}
		reminded++
	}
	return reminded, nil
}

func (s *approvalServiceImpl) loadReport(ctx context.Context, reportID string) (*entity.Report, error) {
	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, &approval.NotFoundError{Resource: "report", ID: reportID}
	}
	return report, nil
}

// persist writes the report row, the audit entry and any revision notes in
// one transaction. On failure nothing is committed and the caller discards
// the in-memory mutation.
func (s *approvalServiceImpl) persist(ctx context.Context, report *entity.Report, entry *entity.ApprovalLogEntry, notes []*entity.RevisionNote) error {
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.reports.Save(txCtx, report); err != nil {
			return err
		}
		if entry != nil {
			if err := s.auditLog.Append(txCtx, entry); err != nil {
				return err
			}
		}
		for _, note := range notes {
			if err := s.notes.Create(txCtx, note); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return &approval.PersistenceError{Op: "persist approval decision", Err: err}
	}
	return nil
}

// dispatch fires a notification without blocking or failing the approval
// transaction
func (s *approvalServiceImpl) dispatch(n approval.Notification) {
	if s.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.notifier.Notify(ctx, n); err != nil {
			s.logger.Warn("Notification dispatch failed",
				"event", string(n.Event),
				"report_id", n.ReportID,
				"error", err)
		}
	}()
}

func headState(report *entity.Report) *HeadState {
	return &HeadState{
		ReportID:     report.ID,
		Status:       report.Status,
		Stage:        report.CurrentApprovalStage,
		ApproverID:   report.CurrentApproverID,
		ApproverName: report.CurrentApproverName,
		DueAt:        report.EscalationDueAt,
		Workflow:     report.ApprovalWorkflow,
	}
}
