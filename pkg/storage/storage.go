package storage

import (
	"github.com/pkg/errors"

	"github.com/Steel-tech/fabtrack/pkg/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrVersionConflict is returned when a workflow update lost the optimistic
// version check, i.e. another writer committed first.
var ErrVersionConflict = errors.New("version conflict")

// ErrDuplicate is returned when an insert collides with a uniqueness
// constraint, e.g. a second active workflow for one piece mark.
var ErrDuplicate = errors.New("duplicate record")

// Store defines the storage operations for FabTrack.
// Begin returns a transactional Store; every engine operation runs inside
// one so that a transition append and its workflow update commit together.
type Store interface {
	Begin() (Store, error)
	Commit() error
	Rollback() error
	Close() error

	// Stage catalog (read-only reference data)
	ListStages() ([]models.Stage, error)
	GetStage(id int64) (models.Stage, error)
	GetStageByName(name string) (models.Stage, error)

	// Workflow operations
	SaveWorkflow(w models.Workflow) (int64, error)
	GetWorkflow(id int64) (models.Workflow, error)
	ListWorkflows() ([]models.Workflow, error)
	// FindActiveWorkflow returns the non-terminal workflow for a piece mark,
	// or ErrNotFound when there is none.
	FindActiveWorkflow(pieceMark string) (models.Workflow, error)
	// UpdateWorkflow writes w only if the stored row still carries
	// expectedVersion, bumping the version; ErrVersionConflict otherwise.
	UpdateWorkflow(w models.Workflow, expectedVersion int64) error

	// Transition log (append-only)
	SaveTransition(t models.Transition) (int64, error)
	ListTransitions(workflowID int64) ([]models.Transition, error)
	// LatestTransition returns the most recent transition for a workflow,
	// or ErrNotFound when the workflow has never transitioned.
	LatestTransition(workflowID int64) (models.Transition, error)

	// Task operations
	SaveTasks(tasks []models.Task) error
	GetTask(id string) (models.Task, error)
	ListTasks(workflowID int64) ([]models.Task, error)
	CountTasksForStage(workflowID, stageID int64) (int, error)
	UpdateTask(t models.Task) error

	// Issue operations
	SaveIssue(i models.Issue) error
	GetIssue(id string) (models.Issue, error)
	UpdateIssue(i models.Issue) error
	ListIssues(workflowID int64) ([]models.Issue, error)
	CountOpenIssues() (int, error)
}
