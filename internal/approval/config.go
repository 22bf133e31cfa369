package approval

import (
	"strings"

	"github.com/expensetrack/approval-engine/internal/domain/entity"
)

// FinanceTeamName is the display name bound to a finance step when more than
// one finance approver exists and no single person can be named up front.
const FinanceTeamName = "Finance Team"

// Config carries the engine's tunables. The surrounding system injects it
// explicitly; there is no process-wide settings state.
type Config struct {
	SupervisorEscalationHours int
	FinanceEscalationHours    int
	ExecutivePositions        []string
	FinancePositions          []string
}

// DefaultConfig returns the engine defaults used when configuration leaves a
// field unset
func DefaultConfig() Config {
	return Config{
		SupervisorEscalationHours: 48,
		FinanceEscalationHours:    72,
		ExecutivePositions: []string{
			"executive", "director", "regional manager",
			"ceo", "cfo", "coo", "cto", "president",
		},
		FinancePositions: []string{"finance", "controller", "accountant"},
	}
}

// SLAHoursFor returns the escalation SLA for steps of the given role
func (c Config) SLAHoursFor(role entity.StepRole) int {
	if role == entity.RoleFinance {
		return c.FinanceEscalationHours
	}
	return c.SupervisorEscalationHours
}

// IsExecutive reports whether the employee's position qualifies for
// auto-approval at submission
func (c Config) IsExecutive(emp *entity.Employee) bool {
	return matchesAny(emp.Position, c.ExecutivePositions)
}

// IsFinanceCapable reports whether the employee may act on a finance step
// even when not bound to it
func (c Config) IsFinanceCapable(emp *entity.Employee) bool {
	if strings.EqualFold(emp.Role, string(entity.RoleFinance)) {
		return true
	}
	return matchesAny(emp.Position, c.FinancePositions) || matchesAny(emp.Role, c.FinancePositions)
}

func matchesAny(value string, keywords []string) bool {
	if value == "" {
		return false
	}
	lowered := strings.ToLower(value)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lowered, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
