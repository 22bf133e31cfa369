package workflow

import "github.com/expensetrack/approval-engine/internal/domain/entity"

// State aliases the report status for use in transition tables. The approval
// engine drives one report-level machine per report; step-level state lives
// on entity.Step.
type State = entity.ReportStatus
