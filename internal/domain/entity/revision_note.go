package entity

import "time"

// RevisionCategory classifies what kind of report item a revision note
// points at
type RevisionCategory string

const (
	RevisionMileage RevisionCategory = "mileage"
	RevisionReceipt RevisionCategory = "receipt"
	RevisionTime    RevisionCategory = "time"
)

var validRevisionCategories = map[RevisionCategory]bool{
	RevisionMileage: true,
	RevisionReceipt: true,
	RevisionTime:    true,
}

// IsValid returns true if the category is known
func (c RevisionCategory) IsValid() bool {
	return validRevisionCategories[c]
}

// RevisionNote is an item-level revision request tied to a report. Notes are
// created by the approval engine or directly over the API and resolved
// independently of step transitions.
type RevisionNote struct {
	ID              string           `json:"id"`
	ReportID        string           `json:"report_id"`
	EmployeeID      string           `json:"employee_id"`
	RequestedBy     string           `json:"requested_by"`
	RequestedByName string           `json:"requested_by_name,omitempty"`
	RequestedByRole string           `json:"requested_by_role,omitempty"`
	TargetRole      string           `json:"target_role,omitempty"`
	Category        RevisionCategory `json:"category"`
	ItemID          string           `json:"item_id,omitempty"`
	ItemType        string           `json:"item_type,omitempty"`
	Notes           string           `json:"notes,omitempty"`
	Resolved        bool             `json:"resolved"`
	ResolvedBy      string           `json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time       `json:"resolved_at,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}
