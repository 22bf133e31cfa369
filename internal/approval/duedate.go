package approval

import (
	"time"

	"github.com/expensetrack/approval-engine/internal/domain/entity"
)

// DueAt computes an escalation deadline from a base time and an SLA in
// hours. The deadline is advisory metadata; a periodic scanner acts on it,
// the engine only computes and refreshes it.
func DueAt(base time.Time, slaHours int) time.Time {
	return base.Add(time.Duration(slaHours) * time.Hour)
}

// DueFor computes the deadline for a step of the given role
func (c Config) DueFor(role entity.StepRole, base time.Time) time.Time {
	return DueAt(base, c.SLAHoursFor(role))
}
