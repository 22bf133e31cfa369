package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/expensetrack/approval-engine/internal/application/port"
	"github.com/expensetrack/approval-engine/internal/domain/entity"
	"github.com/expensetrack/approval-engine/internal/infrastructure/persistence/sqlite"
)

// EmployeeRepository implements port.EmployeeRepository on sqlite. Finance
// capability is matched against the configured position keywords, the same
// set the engine uses for its authorization fallback.
type EmployeeRepository struct {
	db               *sql.DB
	financePositions []string
	logger           *zap.Logger
}

// NewEmployeeRepository creates a new employee repository
func NewEmployeeRepository(db *sql.DB, financePositions []string, logger *zap.Logger) port.EmployeeRepository {
	return &EmployeeRepository{
		db:               db,
		financePositions: financePositions,
		logger:           logger,
	}
}

const employeeColumns = `id, name, preferred_name, supervisor_id, position, role, email`

// GetByID retrieves an employee by id, (nil, nil) when absent
func (r *EmployeeRepository) GetByID(ctx context.Context, id string) (*entity.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = ?`

	var emp entity.Employee
	err := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&emp.ID,
		&emp.Name,
		&emp.PreferredName,
		&emp.SupervisorID,
		&emp.Position,
		&emp.Role,
		&emp.Email,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get employee", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	return &emp, nil
}

// GetFinanceApprovers returns every employee holding finance approval
// capability, by role or by position keyword
func (r *EmployeeRepository) GetFinanceApprovers(ctx context.Context) ([]*entity.Employee, error) {
	var (
		clauses = []string{"lower(role) = ?"}
		args    = []interface{}{string(entity.RoleFinance)}
	)
	for _, kw := range r.financePositions {
		clauses = append(clauses, "instr(lower(position), ?) > 0")
		args = append(args, strings.ToLower(kw))
	}

	query := `SELECT ` + employeeColumns + ` FROM employees WHERE ` +
		strings.Join(clauses, " OR ") + ` ORDER BY id`

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list finance approvers", zap.Error(err))
		return nil, fmt.Errorf("failed to list finance approvers: %w", err)
	}
	defer rows.Close()

	var approvers []*entity.Employee
	for rows.Next() {
		var emp entity.Employee
		if err := rows.Scan(
			&emp.ID,
			&emp.Name,
			&emp.PreferredName,
			&emp.SupervisorID,
			&emp.Position,
			&emp.Role,
			&emp.Email,
		); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		approvers = append(approvers, &emp)
	}
	return approvers, rows.Err()
}

// Upsert inserts or replaces a directory record
func (r *EmployeeRepository) Upsert(ctx context.Context, emp *entity.Employee) error {
	query := `
		INSERT INTO employees (id, name, preferred_name, supervisor_id, position, role, email)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			preferred_name = excluded.preferred_name,
			supervisor_id = excluded.supervisor_id,
			position = excluded.position,
			role = excluded.role,
			email = excluded.email
	`
	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		emp.ID,
		emp.Name,
		emp.PreferredName,
		emp.SupervisorID,
		emp.Position,
		emp.Role,
		emp.Email,
	)
	if err != nil {
		r.logger.Error("Failed to upsert employee", zap.String("id", emp.ID), zap.Error(err))
		return fmt.Errorf("failed to upsert employee: %w", err)
	}
	return nil
}
