package models

import "time"

type TaskStatus string

const (
	PendingTaskStatus    TaskStatus = "pending"
	InProgressTaskStatus TaskStatus = "in_progress"
	CompletedTaskStatus  TaskStatus = "completed"
	SkippedTaskStatus    TaskStatus = "skipped"
	FailedTaskStatus     TaskStatus = "failed"
)

// Valid reports whether the status is one of the known task statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case PendingTaskStatus, InProgressTaskStatus, CompletedTaskStatus,
		SkippedTaskStatus, FailedTaskStatus:
		return true
	}
	return false
}

// Task is a single checklist item belonging to one (workflow, stage) pair.
// Tasks are seeded in bulk from the stage templates when a workflow is
// created and progress independently of the workflow's stage afterwards.
type Task struct {
	ID             string     `json:"id" db:"id"` // UUID
	WorkflowID     int64      `json:"workflow_id" db:"workflow_id"`
	StageID        int64      `json:"stage_id" db:"stage_id"`
	Name           string     `json:"name" db:"name"`         // Descriptive name (e.g. "Perform welds")
	Category       string     `json:"category" db:"category"` // Grouping label (e.g. "welding", "inspection")
	Status         TaskStatus `json:"status" db:"status"`
	Assignee       string     `json:"assignee,omitempty" db:"assignee"`
	EstimatedHours float64    `json:"estimated_hours" db:"estimated_hours"` // From the stage template
	ActualHours    float64    `json:"actual_hours" db:"actual_hours"`       // Reported on completion
	Notes          string     `json:"notes,omitempty" db:"notes"`
	StartedAt      *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}
