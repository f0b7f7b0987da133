package models

import "time"

// ProductionStats is a point-in-time rollup over a set of workflows.
// Derived on read from the underlying records; nothing is persisted.
type ProductionStats struct {
	Total          int                    `json:"total"`
	ByStatus       map[WorkflowStatus]int `json:"by_status"`
	CompletionRate float64                `json:"completion_rate"` // completed / total, 0 when total is 0
	AvgCycleTime   time.Duration          `json:"avg_cycle_time"`  // mean(actual_end - actual_start) over completed
	OpenIssues     int                    `json:"open_issues"`
}

// DailyStats is the per-day production rollup used by dashboards.
type DailyStats struct {
	Day             time.Time `json:"day"`
	PiecesCompleted int       `json:"pieces_completed"` // Workflows with actual_end on the day
	ManHours        float64   `json:"man_hours"`        // Sum of actual hours on tasks completed that day
	Efficiency      float64   `json:"efficiency"`       // estimated / actual hours for those tasks, 0 when none reported
}
