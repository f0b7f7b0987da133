package models

import "time"

// Transition is one immutable entry in a workflow's stage history.
// Rows are append-only: the engine never updates or deletes them.
// DurationSeconds is computed at write time as the gap since the previous
// transition, or since workflow creation for the first one.
type Transition struct {
	ID              int64     `json:"id" db:"id"`                   // Auto-incremented log ID
	WorkflowID      int64     `json:"workflow_id" db:"workflow_id"` // Parent workflow
	FromStageID     *int64    `json:"from_stage_id" db:"from_stage_id"` // Nullable for the first transition
	ToStageID       int64     `json:"to_stage_id" db:"to_stage_id"`
	Actor           string    `json:"actor" db:"actor"` // Authenticated actor id, trusted verbatim
	Note            string    `json:"note,omitempty" db:"note"`
	DurationSeconds int64     `json:"duration_seconds" db:"duration_seconds"` // Time spent in the previous stage
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}
