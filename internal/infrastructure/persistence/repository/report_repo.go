package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/expensetrack/approval-engine/internal/application/port"
	"github.com/expensetrack/approval-engine/internal/domain/entity"
	"github.com/expensetrack/approval-engine/internal/infrastructure/persistence/sqlite"
)

// ReportRepository implements port.ReportRepository on sqlite. The approval
// workflow and the opaque report payload are stored as JSON document columns
// and always written back whole.
type ReportRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *sql.DB, logger *zap.Logger) port.ReportRepository {
	return &ReportRepository{
		db:     db,
		logger: logger,
	}
}

const reportColumns = `
	id, employee_id, month, year, status,
	submitted_at, approved_at, approved_by,
	current_approval_stage, current_approval_step,
	current_approver_id, current_approver_name,
	escalation_due_at, approval_workflow, report_data,
	created_at, updated_at
`

// Create inserts a new report row
func (r *ReportRepository) Create(ctx context.Context, report *entity.Report) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	workflowJSON, dataJSON, err := marshalReportDocs(report)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO reports (
			id, employee_id, month, year, status,
			submitted_at, approved_at, approved_by,
			current_approval_stage, current_approval_step,
			current_approver_id, current_approver_name,
			escalation_due_at, approval_workflow, report_data
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		report.ID,
		report.EmployeeID,
		report.Month,
		report.Year,
		report.Status.String(),
		nullableTime(report.SubmittedAt),
		nullableTime(report.ApprovedAt),
		report.ApprovedBy,
		report.CurrentApprovalStage.String(),
		report.CurrentApprovalStep,
		report.CurrentApproverID,
		report.CurrentApproverName,
		nullableTime(report.EscalationDueAt),
		workflowJSON,
		dataJSON,
	)
	if err != nil {
		r.logger.Error("Failed to create report", zap.String("id", report.ID), zap.Error(err))
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}

// GetByID retrieves a report by id, (nil, nil) when absent
func (r *ReportRepository) GetByID(ctx context.Context, id string) (*entity.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = ?`
	report, err := scanReport(sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get report", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return report, nil
}

// Save writes the full report row back, workflow array included
func (r *ReportRepository) Save(ctx context.Context, report *entity.Report) error {
	workflowJSON, dataJSON, err := marshalReportDocs(report)
	if err != nil {
		return err
	}

	query := `
		UPDATE reports SET
			status = ?,
			submitted_at = ?,
			approved_at = ?,
			approved_by = ?,
			current_approval_stage = ?,
			current_approval_step = ?,
			current_approver_id = ?,
			current_approver_name = ?,
			escalation_due_at = ?,
			approval_workflow = ?,
			report_data = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		report.Status.String(),
		nullableTime(report.SubmittedAt),
		nullableTime(report.ApprovedAt),
		report.ApprovedBy,
		report.CurrentApprovalStage.String(),
		report.CurrentApprovalStep,
		report.CurrentApproverID,
		report.CurrentApproverName,
		nullableTime(report.EscalationDueAt),
		workflowJSON,
		dataJSON,
		report.ID,
	)
	if err != nil {
		r.logger.Error("Failed to save report", zap.String("id", report.ID), zap.Error(err))
		return fmt.Errorf("failed to save report: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("report %s does not exist", report.ID)
	}
	return nil
}

// ListEscalated returns reports in an active approval stage whose escalation
// deadline has passed, oldest deadline first
func (r *ReportRepository) ListEscalated(ctx context.Context, now time.Time, limit int) ([]*entity.Report, error) {
	query := `SELECT ` + reportColumns + `
		FROM reports
		WHERE escalation_due_at IS NOT NULL
		  AND escalation_due_at <= ?
		  AND status IN (?, ?)
		ORDER BY escalation_due_at ASC
		LIMIT ?
	`
	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query,
		now,
		entity.StatusPendingSupervisor.String(),
		entity.StatusPendingFinance.String(),
		limit,
	)
	if err != nil {
		r.logger.Error("Failed to list escalated reports", zap.Error(err))
		return nil, fmt.Errorf("failed to list escalated reports: %w", err)
	}
	defer rows.Close()

	var reports []*entity.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(row rowScanner) (*entity.Report, error) {
	var (
		report          entity.Report
		status          string
		stage           string
		submittedAt     sql.NullTime
		approvedAt      sql.NullTime
		escalationDueAt sql.NullTime
		workflowJSON    string
		dataJSON        string
	)
	err := row.Scan(
		&report.ID,
		&report.EmployeeID,
		&report.Month,
		&report.Year,
		&status,
		&submittedAt,
		&approvedAt,
		&report.ApprovedBy,
		&stage,
		&report.CurrentApprovalStep,
		&report.CurrentApproverID,
		&report.CurrentApproverName,
		&escalationDueAt,
		&workflowJSON,
		&dataJSON,
		&report.CreatedAt,
		&report.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	report.Status = entity.ReportStatus(status)
	report.CurrentApprovalStage = entity.Stage(stage)
	if submittedAt.Valid {
		report.SubmittedAt = &submittedAt.Time
	}
	if approvedAt.Valid {
		report.ApprovedAt = &approvedAt.Time
	}
	if escalationDueAt.Valid {
		report.EscalationDueAt = &escalationDueAt.Time
	}
	if workflowJSON != "" {
		if err := json.Unmarshal([]byte(workflowJSON), &report.ApprovalWorkflow); err != nil {
			// A corrupt workflow document is self-healed by the engine, not
			// a read failure.
			report.ApprovalWorkflow = nil
		}
	}
	if dataJSON != "" {
		if err := json.Unmarshal([]byte(dataJSON), &report.ReportData); err != nil {
			report.ReportData = nil
		}
	}
	return &report, nil
}

func marshalReportDocs(report *entity.Report) (workflowJSON, dataJSON string, err error) {
	wf, err := json.Marshal(report.ApprovalWorkflow)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal workflow: %w", err)
	}
	data, err := json.Marshal(report.ReportData)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal report data: %w", err)
	}
	return string(wf), string(data), nil
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
