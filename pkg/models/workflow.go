package models

import "time"

type WorkflowStatus string

const (
	NotStartedWorkflowStatus WorkflowStatus = "not_started"
	InProgressWorkflowStatus WorkflowStatus = "in_progress"
	OnHoldWorkflowStatus     WorkflowStatus = "on_hold"
	CompletedWorkflowStatus  WorkflowStatus = "completed"
	CancelledWorkflowStatus  WorkflowStatus = "cancelled"
)

// Terminal reports whether the status accepts no further mutations.
func (s WorkflowStatus) Terminal() bool {
	return s == CompletedWorkflowStatus || s == CancelledWorkflowStatus
}

// Valid reports whether the status is one of the known workflow statuses.
func (s WorkflowStatus) Valid() bool {
	switch s {
	case NotStartedWorkflowStatus, InProgressWorkflowStatus, OnHoldWorkflowStatus,
		CompletedWorkflowStatus, CancelledWorkflowStatus:
		return true
	}
	return false
}

type Priority string

const (
	LowPriority    Priority = "low"
	NormalPriority Priority = "normal"
	HighPriority   Priority = "high"
	UrgentPriority Priority = "urgent"
)

// Valid reports whether the priority is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case LowPriority, NormalPriority, HighPriority, UrgentPriority:
		return true
	}
	return false
}

// Workflow tracks one piece mark's journey through the stage catalog.
// Progress is derived from the current stage's catalog position and is only
// written through the engine; Version backs the optimistic lock on updates.
type Workflow struct {
	ID             int64          `json:"id" db:"id"`                             // Unique identifier (PostgreSQL auto-increment)
	PieceMark      string         `json:"piece_mark" db:"piece_mark"`             // Tracked unit reference (e.g. "B-1021")
	CurrentStageID *int64         `json:"current_stage_id" db:"current_stage_id"` // Nullable until the first transition
	Status         WorkflowStatus `json:"status" db:"status"`
	Priority       Priority       `json:"priority" db:"priority"`
	Progress       int            `json:"progress" db:"progress"` // 0-100, derived from stage position
	Assignee       string         `json:"assignee,omitempty" db:"assignee"`
	ScheduledStart *time.Time     `json:"scheduled_start,omitempty" db:"scheduled_start"`
	ScheduledEnd   *time.Time     `json:"scheduled_end,omitempty" db:"scheduled_end"`
	ActualStart    *time.Time     `json:"actual_start,omitempty" db:"actual_start"` // Stamped when leaving not_started
	ActualEnd      *time.Time     `json:"actual_end,omitempty" db:"actual_end"`     // Stamped on completed/cancelled
	Version        int64          `json:"version" db:"version"`                     // Incremented on every update, checked on write
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
}
