package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/expensetrack/approval-engine/internal/application/port"
	"github.com/expensetrack/approval-engine/internal/domain/entity"
	"github.com/expensetrack/approval-engine/internal/infrastructure/persistence/sqlite"
)

// AuditLogRepository implements the append-only approval audit trail on
// sqlite. Entries are only ever inserted and read back in order.
type AuditLogRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAuditLogRepository creates a new audit log repository
func NewAuditLogRepository(db *sql.DB, logger *zap.Logger) port.AuditLogRepository {
	return &AuditLogRepository{
		db:     db,
		logger: logger,
	}
}

// Append inserts one audit record
func (r *AuditLogRepository) Append(ctx context.Context, entry *entity.ApprovalLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	query := `
		INSERT INTO approval_log (
			id, report_id, employee_id, actor_id, actor_name,
			action, comments, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		entry.ID,
		entry.ReportID,
		entry.EmployeeID,
		entry.ActorID,
		entry.ActorName,
		entry.Action,
		entry.Comments,
		entry.Timestamp,
	)
	if err != nil {
		r.logger.Error("Failed to append audit log entry",
			zap.String("report_id", entry.ReportID),
			zap.String("action", entry.Action),
			zap.Error(err))
		return fmt.Errorf("failed to append audit log entry: %w", err)
	}
	return nil
}

// ListByReportID returns a report's audit trail, oldest first
func (r *AuditLogRepository) ListByReportID(ctx context.Context, reportID string) ([]*entity.ApprovalLogEntry, error) {
	query := `
		SELECT id, report_id, employee_id, actor_id, actor_name,
			action, comments, timestamp
		FROM approval_log
		WHERE report_id = ?
		ORDER BY timestamp ASC, id ASC
	`
	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, reportID)
	if err != nil {
		r.logger.Error("Failed to list audit log", zap.String("report_id", reportID), zap.Error(err))
		return nil, fmt.Errorf("failed to list audit log: %w", err)
	}
	defer rows.Close()

	var entries []*entity.ApprovalLogEntry
	for rows.Next() {
		var entry entity.ApprovalLogEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.ReportID,
			&entry.EmployeeID,
			&entry.ActorID,
			&entry.ActorName,
			&entry.Action,
			&entry.Comments,
			&entry.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit log entry: %w", err)
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}
