package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Steel-tech/fabtrack/pkg/models"
	"github.com/Steel-tech/fabtrack/pkg/storage"
)

// taskStatusMoves is the per-task state machine. completed, skipped and
// failed are terminal.
var taskStatusMoves = map[models.TaskStatus][]models.TaskStatus{
	models.PendingTaskStatus:    {models.InProgressTaskStatus, models.SkippedTaskStatus},
	models.InProgressTaskStatus: {models.CompletedTaskStatus, models.FailedTaskStatus},
}

func taskMoveAllowed(from, to models.TaskStatus) bool {
	for _, s := range taskStatusMoves[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TaskService seeds and progresses the per-stage task checklists.
type TaskService struct {
	store     storage.Store
	catalog   *Catalog
	templates map[string][]TaskTemplate
	logger    Logger
}

// NewTaskService creates a TaskService. templates may be nil to use the
// defaults.
func NewTaskService(store storage.Store, catalog *Catalog, templates map[string][]TaskTemplate, logger Logger) *TaskService {
	if templates == nil {
		templates = DefaultTaskTemplates()
	}
	return &TaskService{
		store:     store,
		catalog:   catalog,
		templates: templates,
		logger:    logger,
	}
}

// SeedTasks creates the checklist tasks for a workflow. Seeding is
// idempotent per (workflow, stage): stages that already have tasks are
// skipped, so a second call leaves counts unchanged.
func (ts *TaskService) SeedTasks(workflowID int64) (seeded int, err error) {
	txStore, err := ts.store.Begin()
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rollbackErr := txStore.Rollback(); rollbackErr != nil {
				ts.logger.Errorf("Failed to rollback after error: %v (original error: %v)", rollbackErr, err)
			}
			return
		}
		if commitErr := txStore.Commit(); commitErr != nil {
			ts.logger.Errorf("Failed to commit: %v", commitErr)
			err = commitErr
		}
	}()

	return ts.seedInto(txStore, workflowID)
}

// seedInto does the seeding work inside the caller's transaction.
func (ts *TaskService) seedInto(txStore storage.Store, workflowID int64) (int, error) {
	now := time.Now()
	var tasks []models.Task
	for _, stage := range ts.catalog.Stages() {
		tmpls, ok := ts.templates[stage.Name]
		if !ok {
			continue
		}
		existing, err := txStore.CountTasksForStage(workflowID, stage.ID)
		if err != nil {
			return 0, errors.Wrapf(err, "count tasks for workflow %d stage %d", workflowID, stage.ID)
		}
		if existing > 0 {
			continue
		}
		for _, tmpl := range tmpls {
			tasks = append(tasks, models.Task{
				ID:             uuid.New().String(),
				WorkflowID:     workflowID,
				StageID:        stage.ID,
				Name:           tmpl.Name,
				Category:       tmpl.Category,
				Status:         models.PendingTaskStatus,
				EstimatedHours: tmpl.EstimatedHours,
				CreatedAt:      now,
				UpdatedAt:      now,
			})
		}
	}
	if len(tasks) == 0 {
		return 0, nil
	}
	if err := txStore.SaveTasks(tasks); err != nil {
		return 0, errors.Wrapf(err, "save seeded tasks for workflow %d", workflowID)
	}
	return len(tasks), nil
}

// ListTasks returns all tasks for a workflow.
func (ts *TaskService) ListTasks(workflowID int64) ([]models.Task, error) {
	return ts.store.ListTasks(workflowID)
}

// AssignTask sets the assignee on a non-terminal task.
func (ts *TaskService) AssignTask(taskID, assignee string) (models.Task, error) {
	if assignee == "" {
		return models.Task{}, validationErrorf("assignee is required")
	}
	task, err := ts.store.GetTask(taskID)
	if errors.Is(err, storage.ErrNotFound) {
		return models.Task{}, &NotFoundError{Kind: "task", ID: taskID}
	}
	if err != nil {
		return models.Task{}, err
	}
	if task.Status != models.PendingTaskStatus && task.Status != models.InProgressTaskStatus {
		return models.Task{}, validationErrorf("task %s is %s and cannot be reassigned", taskID, task.Status)
	}
	task.Assignee = assignee
	if err := ts.store.UpdateTask(task); err != nil {
		return models.Task{}, err
	}
	ts.logger.Infof("Task %s assigned to %s", taskID, assignee)
	return task, nil
}

// UpdateTaskStatus moves a task through its state machine. actualHours is
// recorded when the task finishes (completed or failed); notes are appended
// verbatim.
func (ts *TaskService) UpdateTaskStatus(taskID string, status models.TaskStatus, actualHours float64, notes string) (models.Task, error) {
	if !status.Valid() {
		return models.Task{}, validationErrorf("invalid task status '%s'", status)
	}
	if actualHours < 0 {
		return models.Task{}, validationErrorf("actual hours cannot be negative")
	}
	task, err := ts.store.GetTask(taskID)
	if errors.Is(err, storage.ErrNotFound) {
		return models.Task{}, &NotFoundError{Kind: "task", ID: taskID}
	}
	if err != nil {
		return models.Task{}, err
	}
	if !taskMoveAllowed(task.Status, status) {
		return models.Task{}, &InvalidTransitionError{From: string(task.Status), To: string(status)}
	}

	now := time.Now()
	task.Status = status
	if notes != "" {
		task.Notes = notes
	}
	switch status {
	case models.InProgressTaskStatus:
		if task.StartedAt == nil {
			task.StartedAt = &now
		}
	case models.CompletedTaskStatus, models.FailedTaskStatus:
		task.CompletedAt = &now
		if actualHours > 0 {
			task.ActualHours = actualHours
		}
	}
	if err := ts.store.UpdateTask(task); err != nil {
		return models.Task{}, err
	}
	ts.logger.Infof("Task %s moved to %s", taskID, status)
	return task, nil
}
