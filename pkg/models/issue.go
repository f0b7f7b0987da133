package models

import "time"

type IssueSeverity string

const (
	LowIssueSeverity      IssueSeverity = "low"
	MediumIssueSeverity   IssueSeverity = "medium"
	HighIssueSeverity     IssueSeverity = "high"
	CriticalIssueSeverity IssueSeverity = "critical"
)

// Valid reports whether the severity is one of the known severities.
func (s IssueSeverity) Valid() bool {
	switch s {
	case LowIssueSeverity, MediumIssueSeverity, HighIssueSeverity, CriticalIssueSeverity:
		return true
	}
	return false
}

type IssueStatus string

const (
	OpenIssueStatus       IssueStatus = "open"
	InProgressIssueStatus IssueStatus = "in_progress"
	ResolvedIssueStatus   IssueStatus = "resolved"
	ClosedIssueStatus     IssueStatus = "closed"
)

// Valid reports whether the status is one of the known issue statuses.
func (s IssueStatus) Valid() bool {
	switch s {
	case OpenIssueStatus, InProgressIssueStatus, ResolvedIssueStatus, ClosedIssueStatus:
		return true
	}
	return false
}

// Issue is an ad-hoc problem report attached to a workflow.
// A critical issue does not pause its workflow; holding is the caller's call.
type Issue struct {
	ID          string        `json:"id" db:"id"` // UUID
	WorkflowID  int64         `json:"workflow_id" db:"workflow_id"`
	Category    string        `json:"category" db:"category"` // e.g. "material", "weld_defect", "drawing"
	Severity    IssueSeverity `json:"severity" db:"severity"`
	Description string        `json:"description" db:"description"`
	ImpactHours float64       `json:"impact_hours" db:"impact_hours"` // Estimated schedule impact
	Reporter    string        `json:"reporter" db:"reporter"`
	Assignee    string        `json:"assignee,omitempty" db:"assignee"`
	Status      IssueStatus   `json:"status" db:"status"`
	Resolution  string        `json:"resolution,omitempty" db:"resolution"`
	ResolvedAt  *time.Time    `json:"resolved_at,omitempty" db:"resolved_at"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
}
