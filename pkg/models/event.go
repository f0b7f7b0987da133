package models

import "time"

type EventKind string

const (
	WorkflowCreatedEvent   EventKind = "workflow_created"
	StageTransitionedEvent EventKind = "stage_transitioned"
	StatusChangedEvent     EventKind = "status_changed"
)

// Event is the tagged union published by the engine after a successful
// commit. Exactly one of the payload pointers is set, matching Kind.
type Event struct {
	Kind              EventKind          `json:"kind"`
	WorkflowCreated   *WorkflowCreated   `json:"workflow_created,omitempty"`
	StageTransitioned *StageTransitioned `json:"stage_transitioned,omitempty"`
	StatusChanged     *StatusChanged     `json:"status_changed,omitempty"`
}

// WorkflowCreated is emitted once per workflow, after task seeding.
type WorkflowCreated struct {
	WorkflowID int64     `json:"workflow_id"`
	PieceMark  string    `json:"piece_mark"`
	Priority   Priority  `json:"priority"`
	CreatedAt  time.Time `json:"created_at"`
}

// StageTransitioned is emitted after every committed stage transition.
type StageTransitioned struct {
	WorkflowID  int64     `json:"workflow_id"`
	FromStageID *int64    `json:"from_stage_id"`
	ToStageID   int64     `json:"to_stage_id"`
	Actor       string    `json:"actor"`
	Timestamp   time.Time `json:"timestamp"`
}

// StatusChanged is emitted when a workflow's status changes, including the
// implicit not_started to in_progress flip on the first transition.
type StatusChanged struct {
	WorkflowID int64          `json:"workflow_id"`
	FromStatus WorkflowStatus `json:"from_status"`
	ToStatus   WorkflowStatus `json:"to_status"`
	Actor      string         `json:"actor"`
	Timestamp  time.Time      `json:"timestamp"`
}
