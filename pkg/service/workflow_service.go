package service

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/Steel-tech/fabtrack/pkg/models"
	"github.com/Steel-tech/fabtrack/pkg/notify"
	"github.com/Steel-tech/fabtrack/pkg/storage"
)

// Logger defines the logging interface for the services.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// allowedStatusMoves is the workflow status state machine. Terminal statuses
// have no entry: nothing moves out of completed or cancelled.
var allowedStatusMoves = map[models.WorkflowStatus][]models.WorkflowStatus{
	models.NotStartedWorkflowStatus: {models.InProgressWorkflowStatus, models.CancelledWorkflowStatus},
	models.InProgressWorkflowStatus: {models.OnHoldWorkflowStatus, models.CompletedWorkflowStatus, models.CancelledWorkflowStatus},
	models.OnHoldWorkflowStatus:     {models.InProgressWorkflowStatus, models.CompletedWorkflowStatus, models.CancelledWorkflowStatus},
}

func statusMoveAllowed(from, to models.WorkflowStatus) bool {
	for _, s := range allowedStatusMoves[from] {
		if s == to {
			return true
		}
	}
	return false
}

// WorkflowService is the only mutating entry point for piece-mark
// workflows. Every operation runs in a single storage transaction: the
// transition append and the workflow update commit together or not at all.
// Concurrent writers on one workflow are serialized by the version check.
type WorkflowService struct {
	store     storage.Store
	catalog   *Catalog
	tasks     *TaskService
	publisher notify.Publisher
	logger    Logger
}

// NewWorkflowService wires the engine. publisher may be nil to disable
// event publication.
func NewWorkflowService(store storage.Store, catalog *Catalog, tasks *TaskService, publisher notify.Publisher, logger Logger) *WorkflowService {
	return &WorkflowService{
		store:     store,
		catalog:   catalog,
		tasks:     tasks,
		publisher: publisher,
		logger:    logger,
	}
}

// Catalog exposes the stage catalog the engine validates against.
func (s *WorkflowService) Catalog() *Catalog {
	return s.catalog
}

// CreateWorkflow creates a workflow for a piece mark and seeds its task
// checklist from the stage templates. A piece mark can only have one active
// (non-terminal) workflow at a time.
func (s *WorkflowService) CreateWorkflow(pieceMark string, priority models.Priority, scheduledStart, scheduledEnd *time.Time) (wf models.Workflow, err error) {
	if pieceMark == "" {
		return models.Workflow{}, validationErrorf("piece mark cannot be empty")
	}
	if len(pieceMark) > 100 {
		return models.Workflow{}, validationErrorf("piece mark too long (max 100 characters)")
	}
	if priority == "" {
		priority = models.NormalPriority
	}
	if !priority.Valid() {
		return models.Workflow{}, validationErrorf("invalid priority '%s'", priority)
	}

	txStore, err := s.store.Begin()
	if err != nil {
		return models.Workflow{}, err
	}
	// Events are held back until the transaction commits: subscribers must
	// never see a workflow that was rolled back.
	var pending []models.Event
	defer func() {
		if err != nil {
			if rollbackErr := txStore.Rollback(); rollbackErr != nil {
				s.logger.Errorf("Failed to rollback after error: %v (original error: %v)", rollbackErr, err)
			}
			return
		}
		if commitErr := txStore.Commit(); commitErr != nil {
			s.logger.Errorf("Failed to commit: %v", commitErr)
			err = commitErr
			return
		}
		for _, event := range pending {
			s.publish(event)
		}
	}()

	_, err = txStore.FindActiveWorkflow(pieceMark)
	if err == nil {
		err = validationErrorf("piece mark '%s' already has an active workflow", pieceMark)
		return models.Workflow{}, err
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return models.Workflow{}, err
	}
	err = nil

	now := time.Now()
	wf = models.Workflow{
		PieceMark:      pieceMark,
		Status:         models.NotStartedWorkflowStatus,
		Priority:       priority,
		Progress:       0,
		ScheduledStart: scheduledStart,
		ScheduledEnd:   scheduledEnd,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	wf.ID, err = txStore.SaveWorkflow(wf)
	if errors.Is(err, storage.ErrDuplicate) {
		// A concurrent create for the same piece mark slipped past the
		// pre-check and won the unique index.
		err = validationErrorf("piece mark '%s' already has an active workflow", pieceMark)
		return models.Workflow{}, err
	}
	if err != nil {
		return models.Workflow{}, err
	}

	seeded, err := s.tasks.seedInto(txStore, wf.ID)
	if err != nil {
		return models.Workflow{}, errors.Wrapf(err, "seed tasks for workflow %d", wf.ID)
	}

	s.logger.Infof("Created workflow %d for piece mark '%s' with %d seeded tasks", wf.ID, pieceMark, seeded)
	pending = append(pending, models.Event{
		Kind: models.WorkflowCreatedEvent,
		WorkflowCreated: &models.WorkflowCreated{
			WorkflowID: wf.ID,
			PieceMark:  pieceMark,
			Priority:   priority,
			CreatedAt:  now,
		},
	})
	return wf, nil
}

// TransitionStage moves a workflow into toStageID, appending the transition
// to the log and recomputing progress from the stage's catalog position.
// The first transition flips the workflow from not_started to in_progress.
func (s *WorkflowService) TransitionStage(workflowID, toStageID int64, actor, note string) (wf models.Workflow, err error) {
	if actor == "" {
		return models.Workflow{}, validationErrorf("actor is required")
	}
	stage, err := s.catalog.StageByID(toStageID)
	if err != nil {
		return models.Workflow{}, validationErrorf("unknown stage id %d", toStageID)
	}

	txStore, err := s.store.Begin()
	if err != nil {
		return models.Workflow{}, err
	}
	var pending []models.Event
	defer func() {
		if err != nil {
			if rollbackErr := txStore.Rollback(); rollbackErr != nil {
				s.logger.Errorf("Failed to rollback after error: %v (original error: %v)", rollbackErr, err)
			}
			return
		}
		if commitErr := txStore.Commit(); commitErr != nil {
			s.logger.Errorf("Failed to commit: %v", commitErr)
			err = commitErr
			return
		}
		for _, event := range pending {
			s.publish(event)
		}
	}()

	wf, err = txStore.GetWorkflow(workflowID)
	if errors.Is(err, storage.ErrNotFound) {
		return models.Workflow{}, &NotFoundError{Kind: "workflow", ID: strconv.FormatInt(workflowID, 10)}
	}
	if err != nil {
		return models.Workflow{}, err
	}

	if wf.Status.Terminal() {
		return models.Workflow{}, &InvalidTransitionError{
			From: string(wf.Status),
			Msg:  fmt.Sprintf("workflow %d is %s; no further transitions accepted", wf.ID, wf.Status),
		}
	}
	if wf.CurrentStageID != nil && *wf.CurrentStageID == toStageID {
		return models.Workflow{}, validationErrorf("workflow %d is already in stage '%s'", wf.ID, stage.Name)
	}

	// Duration in the previous stage: since the last transition, or since
	// creation when this is the first move.
	now := time.Now()
	since := wf.CreatedAt
	if prev, prevErr := txStore.LatestTransition(wf.ID); prevErr == nil {
		since = prev.CreatedAt
	} else if !errors.Is(prevErr, storage.ErrNotFound) {
		err = prevErr
		return models.Workflow{}, err
	}

	transition := models.Transition{
		WorkflowID:      wf.ID,
		FromStageID:     wf.CurrentStageID,
		ToStageID:       toStageID,
		Actor:           actor,
		Note:            note,
		DurationSeconds: int64(now.Sub(since).Seconds()),
		CreatedAt:       now,
	}
	if _, err = txStore.SaveTransition(transition); err != nil {
		return models.Workflow{}, errors.Wrapf(err, "append transition for workflow %d", wf.ID)
	}

	expectedVersion := wf.Version
	fromStatus := wf.Status
	wf.CurrentStageID = &toStageID
	wf.Progress = ProgressPercentage(stage.Position, s.catalog.Len())
	wf.UpdatedAt = now
	if wf.Status == models.NotStartedWorkflowStatus {
		wf.Status = models.InProgressWorkflowStatus
		if wf.ActualStart == nil {
			wf.ActualStart = &now
		}
	}

	if err = txStore.UpdateWorkflow(wf, expectedVersion); err != nil {
		if errors.Is(err, storage.ErrVersionConflict) {
			err = &ConcurrencyConflictError{WorkflowID: wf.ID}
		}
		return models.Workflow{}, err
	}
	wf.Version = expectedVersion + 1

	s.logger.Infof("Workflow %d transitioned to stage '%s' by %s (progress %d%%)", wf.ID, stage.Name, actor, wf.Progress)
	pending = append(pending, models.Event{
		Kind: models.StageTransitionedEvent,
		StageTransitioned: &models.StageTransitioned{
			WorkflowID:  wf.ID,
			FromStageID: transition.FromStageID,
			ToStageID:   toStageID,
			Actor:       actor,
			Timestamp:   now,
		},
	})
	if fromStatus != wf.Status {
		pending = append(pending, models.Event{
			Kind: models.StatusChangedEvent,
			StatusChanged: &models.StatusChanged{
				WorkflowID: wf.ID,
				FromStatus: fromStatus,
				ToStatus:   wf.Status,
				Actor:      actor,
				Timestamp:  now,
			},
		})
	}
	return wf, nil
}

// UpdateStatus moves a workflow through the status state machine.
// completed forces progress to 100 and stamps the actual end; cancelled
// stamps the actual end without touching progress.
func (s *WorkflowService) UpdateStatus(workflowID int64, status models.WorkflowStatus, actor string) (wf models.Workflow, err error) {
	if !status.Valid() {
		return models.Workflow{}, validationErrorf("invalid status '%s'", status)
	}
	if actor == "" {
		return models.Workflow{}, validationErrorf("actor is required")
	}

	txStore, err := s.store.Begin()
	if err != nil {
		return models.Workflow{}, err
	}
	var pending []models.Event
	defer func() {
		if err != nil {
			if rollbackErr := txStore.Rollback(); rollbackErr != nil {
				s.logger.Errorf("Failed to rollback after error: %v (original error: %v)", rollbackErr, err)
			}
			return
		}
		if commitErr := txStore.Commit(); commitErr != nil {
			s.logger.Errorf("Failed to commit: %v", commitErr)
			err = commitErr
			return
		}
		for _, event := range pending {
			s.publish(event)
		}
	}()

	wf, err = txStore.GetWorkflow(workflowID)
	if errors.Is(err, storage.ErrNotFound) {
		return models.Workflow{}, &NotFoundError{Kind: "workflow", ID: strconv.FormatInt(workflowID, 10)}
	}
	if err != nil {
		return models.Workflow{}, err
	}

	if wf.Status.Terminal() {
		return models.Workflow{}, &InvalidTransitionError{
			From: string(wf.Status),
			To:   string(status),
			Msg:  fmt.Sprintf("workflow %d is %s; status is final", wf.ID, wf.Status),
		}
	}
	if !statusMoveAllowed(wf.Status, status) {
		return models.Workflow{}, &InvalidTransitionError{From: string(wf.Status), To: string(status)}
	}

	now := time.Now()
	expectedVersion := wf.Version
	fromStatus := wf.Status
	wf.Status = status
	wf.UpdatedAt = now
	switch status {
	case models.InProgressWorkflowStatus:
		if wf.ActualStart == nil {
			wf.ActualStart = &now
		}
	case models.CompletedWorkflowStatus:
		wf.Progress = 100
		wf.ActualEnd = &now
	case models.CancelledWorkflowStatus:
		wf.ActualEnd = &now
	}

	if err = txStore.UpdateWorkflow(wf, expectedVersion); err != nil {
		if errors.Is(err, storage.ErrVersionConflict) {
			err = &ConcurrencyConflictError{WorkflowID: wf.ID}
		}
		return models.Workflow{}, err
	}
	wf.Version = expectedVersion + 1

	s.logger.Infof("Workflow %d status %s -> %s by %s", wf.ID, fromStatus, status, actor)
	pending = append(pending, models.Event{
		Kind: models.StatusChangedEvent,
		StatusChanged: &models.StatusChanged{
			WorkflowID: wf.ID,
			FromStatus: fromStatus,
			ToStatus:   status,
			Actor:      actor,
			Timestamp:  now,
		},
	})
	return wf, nil
}

// GetWorkflow fetches a workflow by id.
func (s *WorkflowService) GetWorkflow(workflowID int64) (models.Workflow, error) {
	wf, err := s.store.GetWorkflow(workflowID)
	if errors.Is(err, storage.ErrNotFound) {
		return models.Workflow{}, &NotFoundError{Kind: "workflow", ID: strconv.FormatInt(workflowID, 10)}
	}
	return wf, err
}

// ListWorkflows returns all workflows, newest first.
func (s *WorkflowService) ListWorkflows() ([]models.Workflow, error) {
	return s.store.ListWorkflows()
}

// GetHistory returns a workflow's transition log in order.
func (s *WorkflowService) GetHistory(workflowID int64) ([]models.Transition, error) {
	if _, err := s.GetWorkflow(workflowID); err != nil {
		return nil, err
	}
	return s.store.ListTransitions(workflowID)
}

func (s *WorkflowService) publish(event models.Event) {
	if s.publisher != nil {
		s.publisher.Publish(event)
	}
}
