package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/expensetrack/approval-engine/internal/application/port"
	"github.com/expensetrack/approval-engine/internal/domain/entity"
	"github.com/expensetrack/approval-engine/internal/infrastructure/persistence/sqlite"
)

// RevisionNoteRepository implements port.RevisionNoteRepository on sqlite
type RevisionNoteRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRevisionNoteRepository creates a new revision note repository
func NewRevisionNoteRepository(db *sql.DB, logger *zap.Logger) port.RevisionNoteRepository {
	return &RevisionNoteRepository{
		db:     db,
		logger: logger,
	}
}

const revisionNoteColumns = `
	id, report_id, employee_id, requested_by, requested_by_name,
	requested_by_role, target_role, category, item_id, item_type,
	notes, resolved, resolved_by, resolved_at, created_at
`

// Create inserts a new revision note
func (r *RevisionNoteRepository) Create(ctx context.Context, note *entity.RevisionNote) error {
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	query := `
		INSERT INTO revision_notes (
			id, report_id, employee_id, requested_by, requested_by_name,
			requested_by_role, target_role, category, item_id, item_type,
			notes, resolved, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		note.ID,
		note.ReportID,
		note.EmployeeID,
		note.RequestedBy,
		note.RequestedByName,
		note.RequestedByRole,
		note.TargetRole,
		string(note.Category),
		note.ItemID,
		note.ItemType,
		note.Notes,
		note.Resolved,
		note.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create revision note",
			zap.String("report_id", note.ReportID),
			zap.Error(err))
		return fmt.Errorf("failed to create revision note: %w", err)
	}
	return nil
}

// GetByID retrieves a revision note by id, (nil, nil) when absent
func (r *RevisionNoteRepository) GetByID(ctx context.Context, id string) (*entity.RevisionNote, error) {
	query := `SELECT ` + revisionNoteColumns + ` FROM revision_notes WHERE id = ?`
	note, err := scanRevisionNote(sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get revision note", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get revision note: %w", err)
	}
	return note, nil
}

// ListByReportID returns a report's revision notes, newest first
func (r *RevisionNoteRepository) ListByReportID(ctx context.Context, reportID string, unresolvedOnly bool) ([]*entity.RevisionNote, error) {
	query := `SELECT ` + revisionNoteColumns + ` FROM revision_notes WHERE report_id = ?`
	if unresolvedOnly {
		query += ` AND resolved = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, reportID)
	if err != nil {
		r.logger.Error("Failed to list revision notes", zap.String("report_id", reportID), zap.Error(err))
		return nil, fmt.Errorf("failed to list revision notes: %w", err)
	}
	defer rows.Close()

	var notes []*entity.RevisionNote
	for rows.Next() {
		note, err := scanRevisionNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan revision note: %w", err)
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

// MarkResolved flags a note resolved with the resolver and timestamp
func (r *RevisionNoteRepository) MarkResolved(ctx context.Context, id, resolvedBy string, at time.Time) error {
	query := `
		UPDATE revision_notes
		SET resolved = 1, resolved_by = ?, resolved_at = ?
		WHERE id = ?
	`
	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query, resolvedBy, at, id)
	if err != nil {
		r.logger.Error("Failed to resolve revision note", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to resolve revision note: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("revision note %s does not exist", id)
	}
	return nil
}

func scanRevisionNote(row rowScanner) (*entity.RevisionNote, error) {
	var (
		note       entity.RevisionNote
		category   string
		resolvedAt sql.NullTime
		resolvedBy sql.NullString
	)
	err := row.Scan(
		&note.ID,
		&note.ReportID,
		&note.EmployeeID,
		&note.RequestedBy,
		&note.RequestedByName,
		&note.RequestedByRole,
		&note.TargetRole,
		&category,
		&note.ItemID,
		&note.ItemType,
		&note.Notes,
		&note.Resolved,
		&resolvedBy,
		&resolvedAt,
		&note.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	note.Category = entity.RevisionCategory(category)
	if resolvedBy.Valid {
		note.ResolvedBy = resolvedBy.String
	}
	if resolvedAt.Valid {
		note.ResolvedAt = &resolvedAt.Time
	}
	return &note, nil
}
