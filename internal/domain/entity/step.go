package entity

import (
	"strings"
	"time"
)

// StepRole identifies which approval role a workflow step belongs to
type StepRole string

const (
	RoleSupervisor StepRole = "supervisor"
	RoleFinance    StepRole = "finance"
)

var validRoles = map[StepRole]bool{
	RoleSupervisor: true,
	RoleFinance:    true,
}

// IsValid returns true if the role is a known approval role
func (r StepRole) IsValid() bool {
	return validRoles[r]
}

// String returns the string representation of the role
func (r StepRole) String() string {
	return string(r)
}

// StepStatus represents the lifecycle state of a single workflow step
type StepStatus string

const (
	StepWaiting           StepStatus = "waiting"
	StepPending           StepStatus = "pending"
	StepApproved          StepStatus = "approved"
	StepRejected          StepStatus = "rejected"
	StepRevisionRequested StepStatus = "revision_requested"
)

var validStepStatuses = map[StepStatus]bool{
	StepWaiting:           true,
	StepPending:           true,
	StepApproved:          true,
	StepRejected:          true,
	StepRevisionRequested: true,
}

// IsValid returns true if the status is a known step status
func (s StepStatus) IsValid() bool {
	return validStepStatuses[s]
}

// String returns the string representation of the status
func (s StepStatus) String() string {
	return string(s)
}

// Reminder records a single reminder sent for a pending step
type Reminder struct {
	SentAt time.Time `json:"sent_at"`
	SentBy string    `json:"sent_by"`
}

// Step is one element of a report's approval workflow. Steps are created once
// at initialization and mutated in place; they are never reordered or removed.
//
// ApproverID records who is currently bound to the step. For an unbound
// finance step any finance-capable employee may act, and the binding is
// backfilled from the actual actor, so ApproverID reflects who acted rather
// than who was originally expected to.
type Step struct {
	Step            int        `json:"step"`
	Role            StepRole   `json:"role"`
	ApproverID      string     `json:"approver_id,omitempty"`
	ApproverName    string     `json:"approver_name,omitempty"`
	Status          StepStatus `json:"status"`
	DelegatedToID   string     `json:"delegated_to_id,omitempty"`
	DelegatedToName string     `json:"delegated_to_name,omitempty"`
	DueAt           *time.Time `json:"due_at,omitempty"`
	ActedAt         *time.Time `json:"acted_at,omitempty"`
	Comments        string     `json:"comments,omitempty"`
	CommentHistory  []string   `json:"comment_history,omitempty"`
	Reminders       []Reminder `json:"reminders,omitempty"`
}

// AddComment appends to the step's comment history and rebuilds the joined
// comments string
func (s *Step) AddComment(text string) {
	if text == "" {
		return
	}
	s.CommentHistory = append(s.CommentHistory, text)
	s.Comments = strings.Join(s.CommentHistory, "\n")
}

// AddReminder records a reminder sent for this step
func (s *Step) AddReminder(sentAt time.Time, sentBy string) {
	s.Reminders = append(s.Reminders, Reminder{SentAt: sentAt, SentBy: sentBy})
}

// IsAssignedTo reports whether the actor is the bound approver or the current
// delegate of this step
func (s *Step) IsAssignedTo(actorID string) bool {
	if actorID == "" {
		return false
	}
	return s.ApproverID == actorID || s.DelegatedToID == actorID
}
