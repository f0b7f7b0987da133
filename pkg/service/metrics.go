package service

import (
	"math"
	"time"

	"github.com/Steel-tech/fabtrack/pkg/models"
	"github.com/Steel-tech/fabtrack/pkg/storage"
)

// ProgressPercentage computes a workflow's progress from its current
// stage's 1-based position, clamped to [0, 100].
func ProgressPercentage(position, totalStages int) int {
	if totalStages <= 0 {
		return 0
	}
	pct := int(math.Round(100 * float64(position) / float64(totalStages)))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// MetricsService derives dashboard rollups from the underlying records on
// every read. Nothing is persisted, so results are always consistent with
// the workflows and issues at the cost of recomputation per query.
type MetricsService struct {
	store storage.Store
}

func NewMetricsService(store storage.Store) *MetricsService {
	return &MetricsService{store: store}
}

// ProductionStats rolls up the whole workflow set: counts by status,
// completion rate, average cycle time over completed workflows, and the
// open issue count.
func (ms *MetricsService) ProductionStats() (models.ProductionStats, error) {
	workflows, err := ms.store.ListWorkflows()
	if err != nil {
		return models.ProductionStats{}, err
	}
	openIssues, err := ms.store.CountOpenIssues()
	if err != nil {
		return models.ProductionStats{}, err
	}

	stats := models.ProductionStats{
		Total:      len(workflows),
		ByStatus:   make(map[models.WorkflowStatus]int),
		OpenIssues: openIssues,
	}
	completed := 0
	var cycleTotal time.Duration
	cycleCount := 0
	for _, wf := range workflows {
		stats.ByStatus[wf.Status]++
		if wf.Status != models.CompletedWorkflowStatus {
			continue
		}
		completed++
		if wf.ActualStart != nil && wf.ActualEnd != nil {
			cycleTotal += wf.ActualEnd.Sub(*wf.ActualStart)
			cycleCount++
		}
	}
	if stats.Total > 0 {
		stats.CompletionRate = float64(completed) / float64(stats.Total)
	}
	if cycleCount > 0 {
		stats.AvgCycleTime = cycleTotal / time.Duration(cycleCount)
	}
	return stats, nil
}

// DailyStats rolls up one calendar day (in day's location): pieces whose
// workflow completed that day, man-hours reported on tasks completed that
// day, and efficiency as estimated over actual hours for those tasks.
func (ms *MetricsService) DailyStats(day time.Time) (models.DailyStats, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.Add(24 * time.Hour)
	sameDay := func(t *time.Time) bool {
		return t != nil && !t.Before(dayStart) && t.Before(dayEnd)
	}

	workflows, err := ms.store.ListWorkflows()
	if err != nil {
		return models.DailyStats{}, err
	}

	stats := models.DailyStats{Day: dayStart}
	var estimated, actual float64
	for _, wf := range workflows {
		if wf.Status == models.CompletedWorkflowStatus && sameDay(wf.ActualEnd) {
			stats.PiecesCompleted++
		}
		tasks, err := ms.store.ListTasks(wf.ID)
		if err != nil {
			return models.DailyStats{}, err
		}
		for _, task := range tasks {
			if task.Status != models.CompletedTaskStatus || !sameDay(task.CompletedAt) {
				continue
			}
			stats.ManHours += task.ActualHours
			estimated += task.EstimatedHours
			actual += task.ActualHours
		}
	}
	if actual > 0 {
		stats.Efficiency = estimated / actual
	}
	return stats, nil
}
