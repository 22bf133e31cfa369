package approval

import (
	"context"

	"github.com/expensetrack/approval-engine/internal/domain/entity"
)

// Directory provides read-only employee lookups. Lookups return (nil, nil)
// for an unknown id. Directory data changes rarely, so implementations may
// cache with a short TTL.
type Directory interface {
	GetByID(ctx context.Context, id string) (*entity.Employee, error)
	GetFinanceApprovers(ctx context.Context) ([]*entity.Employee, error)
}
