package models

// Stage is one entry in the ordered production stage catalog.
// Stages are reference data: created at setup time, never mutated by the engine.
type Stage struct {
	ID                int64   `json:"id" db:"id"`                                 // Unique identifier (PostgreSQL auto-increment)
	Name              string  `json:"name" db:"name"`                             // Descriptive name (e.g. "Welding")
	Position          int     `json:"position" db:"position"`                     // 1-based ordinal within the catalog
	Department        string  `json:"department" db:"department"`                 // Owning department (e.g. "fabrication")
	ApprovalsRequired int     `json:"approvals_required" db:"approvals_required"` // Sign-offs needed to leave the stage
	EstimatedHours    float64 `json:"estimated_hours" db:"estimated_hours"`       // Planning estimate for the stage
}
