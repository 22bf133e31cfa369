package port

import (
	"context"

	"github.com/expensetrack/approval-engine/internal/approval"
)

// Notifier delivers notification requests emitted by the engine. Delivery is
// fire-and-forget: the approval decision is the source of truth, a failed
// notification is logged and dropped.
type Notifier interface {
	Notify(ctx context.Context, n approval.Notification) error
}
