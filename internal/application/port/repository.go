package port

import (
	"context"
	"time"

	"github.com/expensetrack/approval-engine/internal/domain/entity"
)

// ReportRepository defines persistence operations for Report. The workflow
// array is part of the report row and is always written back whole; the
// engine treats it as a single versioned document, never a diff.
type ReportRepository interface {
	Create(ctx context.Context, report *entity.Report) error
	GetByID(ctx context.Context, id string) (*entity.Report, error)
	Save(ctx context.Context, report *entity.Report) error
	ListEscalated(ctx context.Context, now time.Time, limit int) ([]*entity.Report, error)
}

// AuditLogRepository defines the append-only approval audit trail
type AuditLogRepository interface {
	Append(ctx context.Context, entry *entity.ApprovalLogEntry) error
	ListByReportID(ctx context.Context, reportID string) ([]*entity.ApprovalLogEntry, error)
}

// RevisionNoteRepository defines persistence operations for RevisionNote
type RevisionNoteRepository interface {
	Create(ctx context.Context, note *entity.RevisionNote) error
	GetByID(ctx context.Context, id string) (*entity.RevisionNote, error)
	ListByReportID(ctx context.Context, reportID string, unresolvedOnly bool) ([]*entity.RevisionNote, error)
	MarkResolved(ctx context.Context, id, resolvedBy string, at time.Time) error
}

// EmployeeRepository maintains the employee directory records. Reads satisfy
// approval.Directory; writes exist for the thin directory upsert route.
type EmployeeRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Employee, error)
	GetFinanceApprovers(ctx context.Context) ([]*entity.Employee, error)
	Upsert(ctx context.Context, emp *entity.Employee) error
}

// TransactionManager executes a function within a storage transaction
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
