package service_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Steel-tech/fabtrack/pkg/models"
	"github.com/Steel-tech/fabtrack/pkg/notify"
	"github.com/Steel-tech/fabtrack/pkg/service"
	"github.com/Steel-tech/fabtrack/pkg/storage"
)

type logger struct{}

func (l logger) Infof(format string, args ...interface{}) {
	// no-op
}

func (l logger) Errorf(format string, args ...interface{}) {
	// no-op
}

// fabStages returns the full production stage catalog used by the tests,
// positions 1..12.
func fabStages() []models.Stage {
	names := []string{
		"Material Prep", "Cutting", "Drilling", "Fit-Up", "Welding",
		"Weld Inspection", "Blasting", "Painting", "Final Inspection",
		"Shipping Prep", "Shipped", "Installed",
	}
	stages := make([]models.Stage, len(names))
	for i, name := range names {
		stages[i] = models.Stage{ID: int64(i + 1), Name: name, Position: i + 1}
	}
	return stages
}

type engine struct {
	store     storage.Store
	workflows *service.WorkflowService
	tasks     *service.TaskService
}

func newEngine(store storage.Store) engine {
	return newEngineWithPublisher(store, nil)
}

func newEngineWithPublisher(store storage.Store, publisher notify.Publisher) engine {
	catalog := service.NewCatalog(fabStages())
	tasks := service.NewTaskService(store, catalog, nil, logger{})
	return engine{
		store:     store,
		workflows: service.NewWorkflowService(store, catalog, tasks, publisher, logger{}),
		tasks:     tasks,
	}
}

// blindCreateStore hides existing workflows from the duplicate pre-check,
// the way a concurrent create that has not committed yet would.
type blindCreateStore struct {
	storage.Store
}

func (s *blindCreateStore) Begin() (storage.Store, error) {
	tx, err := s.Store.Begin()
	if err != nil {
		return nil, err
	}
	return &blindCreateTx{Store: tx}, nil
}

type blindCreateTx struct {
	storage.Store
}

func (t *blindCreateTx) FindActiveWorkflow(pieceMark string) (models.Workflow, error) {
	return models.Workflow{}, storage.ErrNotFound
}

func TestCreateWorkflow(t *testing.T) {
	t.Run("CreatesWithSeededTasks", func(t *testing.T) {
		eng := newEngine(storage.NewMockStoreWithStages(fabStages()))

		wf, err := eng.workflows.CreateWorkflow("B-101", models.HighPriority, nil, nil)
		assert.NoError(t, err)
		assert.Equal(t, "B-101", wf.PieceMark)
		assert.Equal(t, models.NotStartedWorkflowStatus, wf.Status)
		assert.Equal(t, models.HighPriority, wf.Priority)
		assert.Equal(t, 0, wf.Progress)
		assert.Equal(t, int64(1), wf.Version)
		assert.Nil(t, wf.CurrentStageID)

		tasks, err := eng.tasks.ListTasks(wf.ID)
		assert.NoError(t, err)
		assert.Len(t, tasks, 26)
		for _, task := range tasks {
			assert.Equal(t, models.PendingTaskStatus, task.Status)
			assert.NotEmpty(t, task.ID)
		}
	})

	t.Run("DefaultsToNormalPriority", func(t *testing.T) {
		eng := newEngine(storage.NewMockStoreWithStages(fabStages()))

		wf, err := eng.workflows.CreateWorkflow("C-7", "", nil, nil)
		assert.NoError(t, err)
		assert.Equal(t, models.NormalPriority, wf.Priority)
	})

	t.Run("EmptyPieceMark", func(t *testing.T) {
		eng := newEngine(storage.NewMockStoreWithStages(fabStages()))

		_, err := eng.workflows.CreateWorkflow("", models.NormalPriority, nil, nil)
		var vErr *service.ValidationError
		assert.ErrorAs(t, err, &vErr)
	})

	t.Run("InvalidPriority", func(t *testing.T) {
		eng := newEngine(storage.NewMockStoreWithStages(fabStages()))

		_, err := eng.workflows.CreateWorkflow("B-101", "asap", nil, nil)
		var vErr *service.ValidationError
		assert.ErrorAs(t, err, &vErr)
	})

	t.Run("DuplicateActivePieceMark", func(t *testing.T) {
		eng := newEngine(storage.NewMockStoreWithStages(fabStages()))

		_, err := eng.workflows.CreateWorkflow("B-101", models.NormalPriority, nil, nil)
		assert.NoError(t, err)

		_, err = eng.workflows.CreateWorkflow("B-101", models.NormalPriority, nil, nil)
		var vErr *service.ValidationError
		assert.ErrorAs(t, err, &vErr)
		assert.Contains(t, err.Error(), "already has an active workflow")
	})

	t.Run("ConcurrentCreateLosesToIndex", func(t *testing.T) {
		base := storage.NewMockStoreWithStages(fabStages())
		eng := newEngine(base)
		_, err := eng.workflows.CreateWorkflow("B-101", models.NormalPriority, nil, nil)
		assert.NoError(t, err)

		// The pre-check misses the winner, so the insert itself collides
		// with the active piece-mark index. The caller still gets a
		// validation error, not a raw storage error.
		racy := newEngine(&blindCreateStore{Store: base})
		_, err = racy.workflows.CreateWorkflow("B-101", models.NormalPriority, nil, nil)
		var vErr *service.ValidationError
		assert.ErrorAs(t, err, &vErr)
		assert.Contains(t, err.Error(), "already has an active workflow")
	})

	t.Run("SamePieceMarkAfterCancellation", func(t *testing.T) {
		eng := newEngine(storage.NewMockStoreWithStages(fabStages()))

		wf, err := eng.workflows.CreateWorkflow("B-101", models.NormalPriority, nil, nil)
		assert.NoError(t, err)
		_, err = eng.workflows.UpdateStatus(wf.ID, models.CancelledWorkflowStatus, "foreman")
		assert.NoError(t, err)

		_, err = eng.workflows.CreateWorkflow("B-101", models.NormalPriority, nil, nil)
		assert.NoError(t, err)
	})
}

func TestTransitionStage(t *testing.T) {
	t.Run("FirstTransitionStartsWorkflow", func(t *testing.T) {
		eng := newEngine(storage.NewMockStoreWithStages(fabStages()))
		wf, err := eng.workflows.CreateWorkflow("B-101", models.NormalPriority, nil, nil)
		assert.NoError(t, err)

		wf, err = eng.workflows.TransitionStage(wf.ID, 1, "foreman", "kicked off")
		assert.NoError(t, err)
		assert.Equal(t, models.InProgressWorkflowStatus, wf.Status)
		assert.NotNil(t, wf.ActualStart)
		assert.Equal(t, int64(1), *wf.CurrentStageID)
		assert.Equal(t, 8, wf.Progress) // round(100 * 1/12)
		assert.Equal(t, int64(2), wf.Version)
	})

	t.Run("ProgressTracksStagePosition", func(t *testing.T) {
		eng := newEngine(storage.NewMockStoreWithStages(fabStages()))
		wf, err := eng.workflows.CreateWorkflow("B-101", models.NormalPriority, nil, nil)
		assert.NoError(t, err)

		wf, err = eng.workflows.TransitionStage(wf.ID, 6, "foreman", "")
		assert.NoError(t, err)
		assert.Equal(t, 50, wf.Progress)

		wf, err = eng.workflows.TransitionStage(wf.ID, 9, "foreman", "")
		assert.NoError(t, err)
		assert.Equal(t, 75, wf.Progress)
	})

	t.Run("LastStageIsNotCompletion", func(t *testing.T) {
		eng := newEngine(storage.NewMockStoreWithStages(fabStages()))
		wf, err := eng.workflows.CreateWorkflow("B-101", models.NormalPriority, nil, nil)
		assert.NoError(t, err)

		wf, err = eng.workflows.TransitionStage(wf.ID, 12, "foreman", "")
		assert.NoError(t, err)
		assert.Equal(t, 100, wf.Progress)
		assert.Equal(t, models.InProgressWorkflowStatus, wf.Status)
		assert.Nil(t, wf.ActualEnd)
	})

	t.Run("UnknownStage", func(t *testing.T) {
		eng := newEngine(storage.NewMockStoreWithStages(fabStages()))
		wf, err := eng.workflows.CreateWorkflow("B-101", models.NormalPriority, nil, nil)
		assert.NoError(t, err)

		_, err = eng.workflows.TransitionStage(wf.ID, 99, "foreman", "")
		var vErr *service.ValidationError
		assert.ErrorAs(t, err, &vErr)
		assert.Contains(t, err.Error(), "unknown stage id 99")
	})

	t.Run("SameStageRejected", func(t *testing.T) {
		eng := newEngine(storage.NewMockStoreWithStages(fabStages()))
		wf, err := eng.workflows.CreateWorkflow("B-101", models.NormalPriority, nil, nil)
		assert.NoError(t, err)
		_, err = eng.workflows.TransitionStage(wf.ID, 5, "foreman", "")
		assert.NoError(t, err)

		_, err = eng.workflows.TransitionStage(wf.ID, 5, "foreman", "")
		var vErr *service.ValidationError
		assert.ErrorAs(t, err, &vErr)
		assert.Contains(t, err.Error(), "already in stage")
	})

	t.Run("BackwardTransitionAllowed", func(t *testing.T) {
		eng := newEngine(storage.NewMockStoreWithStages(fabStages()))
		wf, err := eng.workflows.CreateWorkflow("B-101", models.NormalPriority, nil, nil)
		assert.NoError(t, err)
		_, err = eng.workflows.TransitionStage(wf.ID, 6, "foreman", "")
		assert.NoError(t, err)

		// Rework: back to welding after a failed inspection.
		wf, err = eng.workflows.TransitionStage(wf.ID, 5, "inspector", "UT reject, rework welds")
		assert.NoError(t, err)
		assert.Equal(t, int64(5), *wf.CurrentStageID)
		assert.Equal(t, 42, wf.Progress) // round(100 * 5/12)
	})

	t.Run("TerminalWorkflowRejected", func(t *testing.T) {
		eng := newEngine(storage.NewMockStoreWithStages(fabStages()))
		wf, err := eng.workflows.CreateWorkflow("B-101", models.NormalPriority, nil, nil)
		assert.NoError(t, err)
		_, err = eng.workflows.UpdateStatus(wf.ID, models.CancelledWorkflowStatus, "foreman")
		assert.NoError(t, err)

		_, err = eng.workflows.TransitionStage(wf.ID, 1, "foreman", "")
		var itErr *service.InvalidTransitionError
		assert.ErrorAs(t, err, &itErr)
	})

	t.Run("MissingActor", func(t *testing.T) {
		eng := newEngine(storage.NewMockStoreWithStages(fabStages()))
		wf, err := eng.workflows.CreateWorkflow("B-101", models.NormalPriority, nil, nil)
		assert.NoError(t, err)

		_, err = eng.workflows.TransitionStage(wf.ID, 1, "", "")
		var vErr *service.ValidationError
		assert.ErrorAs(t, err, &vErr)
	})

	t.Run("WorkflowNotFound", func(t *testing.T) {
		eng := newEngine(storage.NewMockStoreWithStages(fabStages()))

		_, err := eng.workflows.TransitionStage(42, 1, "foreman", "")
		var nfErr *service.NotFoundError
		assert.ErrorAs(t, err, &nfErr)
	})

	t.Run("HistoryIsAppendOnly", func(t *testing.T) {
		eng := newEngine(storage.NewMockStoreWithStages(fabStages()))
		wf, err := eng.workflows.CreateWorkflow("B-101", models.NormalPriority, nil, nil)
		assert.NoError(t, err)

		for _, stageID := range []int64{1, 2, 3} {
			_, err = eng.workflows.TransitionStage(wf.ID, stageID, "foreman", "")
			assert.NoError(t, err)
		}

		history, err := eng.workflows.GetHistory(wf.ID)
		assert.NoError(t, err)
		assert.Len(t, history, 3)
		assert.Nil(t, history[0].FromStageID)
		assert.Equal(t, int64(1), history[0].ToStageID)
		assert.Equal(t, int64(1), *history[1].FromStageID)
		assert.Equal(t, int64(2), history[1].ToStageID)
		assert.Equal(t, int64(2), *history[2].FromStageID)
		assert.Equal(t, int64(3), history[2].ToStageID)
		for _, tr := range history {
			assert.Equal(t, "foreman", tr.Actor)
			assert.GreaterOrEqual(t, tr.DurationSeconds, int64(0))
		}
	})
}

func TestUpdateStatus(t *testing.T) {
	newStarted := func(t *testing.T) (engine, models.Workflow) {
		eng := newEngine(storage.NewMockStoreWithStages(fabStages()))
		wf, err := eng.workflows.CreateWorkflow("B-101", models.NormalPriority, nil, nil)
		assert.NoError(t, err)
		wf, err = eng.workflows.TransitionStage(wf.ID, 3, "foreman", "")
		assert.NoError(t, err)
		return eng, wf
	}

	t.Run("HoldAndResume", func(t *testing.T) {
		eng, wf := newStarted(t)

		wf, err := eng.workflows.UpdateStatus(wf.ID, models.OnHoldWorkflowStatus, "foreman")
		assert.NoError(t, err)
		assert.Equal(t, models.OnHoldWorkflowStatus, wf.Status)

		wf, err = eng.workflows.UpdateStatus(wf.ID, models.InProgressWorkflowStatus, "foreman")
		assert.NoError(t, err)
		assert.Equal(t, models.InProgressWorkflowStatus, wf.Status)
	})

	t.Run("CompletedForcesProgress", func(t *testing.T) {
		eng, wf := newStarted(t)
		assert.Equal(t, 25, wf.Progress)

		wf, err := eng.workflows.UpdateStatus(wf.ID, models.CompletedWorkflowStatus, "foreman")
		assert.NoError(t, err)
		assert.Equal(t, models.CompletedWorkflowStatus, wf.Status)
		assert.Equal(t, 100, wf.Progress)
		assert.NotNil(t, wf.ActualEnd)
	})

	t.Run("CancelledKeepsProgress", func(t *testing.T) {
		eng, wf := newStarted(t)

		wf, err := eng.workflows.UpdateStatus(wf.ID, models.CancelledWorkflowStatus, "foreman")
		assert.NoError(t, err)
		assert.Equal(t, 25, wf.Progress)
		assert.NotNil(t, wf.ActualEnd)
	})

	t.Run("CompletedIsFinal", func(t *testing.T) {
		eng, wf := newStarted(t)
		_, err := eng.workflows.UpdateStatus(wf.ID, models.CompletedWorkflowStatus, "foreman")
		assert.NoError(t, err)

		_, err = eng.workflows.UpdateStatus(wf.ID, models.InProgressWorkflowStatus, "foreman")
		var itErr *service.InvalidTransitionError
		assert.ErrorAs(t, err, &itErr)
	})

	t.Run("NotStartedCannotHold", func(t *testing.T) {
		eng := newEngine(storage.NewMockStoreWithStages(fabStages()))
		wf, err := eng.workflows.CreateWorkflow("B-101", models.NormalPriority, nil, nil)
		assert.NoError(t, err)

		_, err = eng.workflows.UpdateStatus(wf.ID, models.OnHoldWorkflowStatus, "foreman")
		var itErr *service.InvalidTransitionError
		assert.ErrorAs(t, err, &itErr)
	})

	t.Run("InvalidStatus", func(t *testing.T) {
		eng, wf := newStarted(t)

		_, err := eng.workflows.UpdateStatus(wf.ID, "paused", "foreman")
		var vErr *service.ValidationError
		assert.ErrorAs(t, err, &vErr)
	})
}

// staleReadStore hands the first workflow read inside a transaction to a
// racing writer before returning, so the transaction's version check is
// guaranteed to lose.
type staleReadStore struct {
	storage.Store
	raced bool
}

func (s *staleReadStore) Begin() (storage.Store, error) {
	tx, err := s.Store.Begin()
	if err != nil {
		return nil, err
	}
	return &staleReadTx{Store: tx, parent: s}, nil
}

type staleReadTx struct {
	storage.Store
	parent *staleReadStore
}

func (t *staleReadTx) GetWorkflow(id int64) (models.Workflow, error) {
	wf, err := t.Store.GetWorkflow(id)
	if err != nil || t.parent.raced {
		return wf, err
	}
	t.parent.raced = true
	if err := t.parent.Store.UpdateWorkflow(wf, wf.Version); err != nil {
		return models.Workflow{}, err
	}
	return wf, nil // stale copy
}

func TestConcurrentTransitions(t *testing.T) {
	t.Run("LostUpdateIsRejected", func(t *testing.T) {
		base := storage.NewMockStoreWithStages(fabStages())
		eng := newEngine(base)
		wf, err := eng.workflows.CreateWorkflow("B-101", models.NormalPriority, nil, nil)
		assert.NoError(t, err)

		racy := newEngine(&staleReadStore{Store: base})
		_, err = racy.workflows.TransitionStage(wf.ID, 1, "foreman", "")
		var ccErr *service.ConcurrencyConflictError
		assert.ErrorAs(t, err, &ccErr)
		assert.Equal(t, wf.ID, ccErr.WorkflowID)

		// The loser's transition rolled back with it: only the racing
		// writer's version bump is visible.
		history, err := eng.workflows.GetHistory(wf.ID)
		assert.NoError(t, err)
		assert.Empty(t, history)
		final, err := eng.workflows.GetWorkflow(wf.ID)
		assert.NoError(t, err)
		assert.Equal(t, int64(2), final.Version)
	})

	t.Run("ParallelWritersStayConsistent", func(t *testing.T) {
		eng := newEngine(storage.NewMockStoreWithStages(fabStages()))
		wf, err := eng.workflows.CreateWorkflow("B-101", models.NormalPriority, nil, nil)
		assert.NoError(t, err)

		const writers = 4
		errs := make([]error, writers)
		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = eng.workflows.TransitionStage(wf.ID, int64(i+1), "foreman", "")
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			// A loser either hit the version check or re-read the
			// winner's stage and got the same-stage rejection.
			var ccErr *service.ConcurrencyConflictError
			var vErr *service.ValidationError
			assert.True(t, errors.As(err, &ccErr) || errors.As(err, &vErr), "unexpected error: %v", err)
		}
		assert.GreaterOrEqual(t, succeeded, 1)

		final, err := eng.workflows.GetWorkflow(wf.ID)
		assert.NoError(t, err)
		assert.Equal(t, int64(1+succeeded), final.Version)

		// Exactly one committed transition per successful writer; losers
		// left nothing in the log.
		history, err := eng.workflows.GetHistory(wf.ID)
		assert.NoError(t, err)
		assert.Len(t, history, succeeded)
	})
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.Event
}

func (p *recordingPublisher) Publish(e models.Event) {
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
}

func (p *recordingPublisher) recorded() []models.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.Event(nil), p.events...)
}

// failingCommitStore wires every transaction to fail at commit time.
type failingCommitStore struct {
	storage.Store
}

func (s *failingCommitStore) Begin() (storage.Store, error) {
	tx, err := s.Store.Begin()
	if err != nil {
		return nil, err
	}
	return &failingCommitTx{Store: tx}, nil
}

type failingCommitTx struct {
	storage.Store
}

func (t *failingCommitTx) Commit() error {
	// Nothing reaches the shared data, as with a real failed commit.
	if err := t.Store.Rollback(); err != nil {
		return err
	}
	return errors.New("commit failed")
}

func TestEventPublication(t *testing.T) {
	t.Run("LifecycleEventSequence", func(t *testing.T) {
		pub := &recordingPublisher{}
		eng := newEngineWithPublisher(storage.NewMockStoreWithStages(fabStages()), pub)

		wf, err := eng.workflows.CreateWorkflow("B-101", models.HighPriority, nil, nil)
		assert.NoError(t, err)
		_, err = eng.workflows.TransitionStage(wf.ID, 5, "foreman", "")
		assert.NoError(t, err)
		_, err = eng.workflows.UpdateStatus(wf.ID, models.CompletedWorkflowStatus, "foreman")
		assert.NoError(t, err)

		events := pub.recorded()
		if !assert.Len(t, events, 4) {
			return
		}

		assert.Equal(t, models.WorkflowCreatedEvent, events[0].Kind)
		created := events[0].WorkflowCreated
		if assert.NotNil(t, created) {
			assert.Equal(t, wf.ID, created.WorkflowID)
			assert.Equal(t, "B-101", created.PieceMark)
			assert.Equal(t, models.HighPriority, created.Priority)
			assert.False(t, created.CreatedAt.IsZero())
		}

		assert.Equal(t, models.StageTransitionedEvent, events[1].Kind)
		moved := events[1].StageTransitioned
		if assert.NotNil(t, moved) {
			assert.Equal(t, wf.ID, moved.WorkflowID)
			assert.Nil(t, moved.FromStageID)
			assert.Equal(t, int64(5), moved.ToStageID)
			assert.Equal(t, "foreman", moved.Actor)
		}

		// The first transition flips the workflow to in_progress, which
		// publishes its own status change right after the stage event.
		assert.Equal(t, models.StatusChangedEvent, events[2].Kind)
		started := events[2].StatusChanged
		if assert.NotNil(t, started) {
			assert.Equal(t, wf.ID, started.WorkflowID)
			assert.Equal(t, models.NotStartedWorkflowStatus, started.FromStatus)
			assert.Equal(t, models.InProgressWorkflowStatus, started.ToStatus)
		}

		assert.Equal(t, models.StatusChangedEvent, events[3].Kind)
		completed := events[3].StatusChanged
		if assert.NotNil(t, completed) {
			assert.Equal(t, models.InProgressWorkflowStatus, completed.FromStatus)
			assert.Equal(t, models.CompletedWorkflowStatus, completed.ToStatus)
			assert.Equal(t, "foreman", completed.Actor)
		}
	})

	t.Run("LaterTransitionSkipsStatusEvent", func(t *testing.T) {
		pub := &recordingPublisher{}
		eng := newEngineWithPublisher(storage.NewMockStoreWithStages(fabStages()), pub)

		wf, err := eng.workflows.CreateWorkflow("B-101", models.NormalPriority, nil, nil)
		assert.NoError(t, err)
		_, err = eng.workflows.TransitionStage(wf.ID, 1, "foreman", "")
		assert.NoError(t, err)
		_, err = eng.workflows.TransitionStage(wf.ID, 2, "foreman", "")
		assert.NoError(t, err)

		events := pub.recorded()
		if !assert.Len(t, events, 4) {
			return
		}
		// Only the first transition changes the status.
		assert.Equal(t, models.StageTransitionedEvent, events[3].Kind)
		assert.Equal(t, int64(2), events[3].StageTransitioned.ToStageID)
	})

	t.Run("CreateCommitFailurePublishesNothing", func(t *testing.T) {
		base := storage.NewMockStoreWithStages(fabStages())
		pub := &recordingPublisher{}
		eng := newEngineWithPublisher(&failingCommitStore{Store: base}, pub)

		_, err := eng.workflows.CreateWorkflow("B-101", models.NormalPriority, nil, nil)
		assert.Error(t, err)
		assert.Empty(t, pub.recorded())

		workflows, err := base.ListWorkflows()
		assert.NoError(t, err)
		assert.Empty(t, workflows)
	})

	t.Run("TransitionCommitFailurePublishesNothing", func(t *testing.T) {
		base := storage.NewMockStoreWithStages(fabStages())
		pub := &recordingPublisher{}
		eng := newEngineWithPublisher(base, pub)
		wf, err := eng.workflows.CreateWorkflow("B-101", models.NormalPriority, nil, nil)
		assert.NoError(t, err)
		assert.Len(t, pub.recorded(), 1)

		flaky := newEngineWithPublisher(&failingCommitStore{Store: base}, pub)
		_, err = flaky.workflows.TransitionStage(wf.ID, 1, "foreman", "")
		assert.Error(t, err)

		// Still only the create event; the rolled-back transition left
		// neither events nor log entries behind.
		assert.Len(t, pub.recorded(), 1)
		history, err := eng.workflows.GetHistory(wf.ID)
		assert.NoError(t, err)
		assert.Empty(t, history)
	})
}

func TestDurationTracking(t *testing.T) {
	eng := newEngine(storage.NewMockStoreWithStages(fabStages()))
	wf, err := eng.workflows.CreateWorkflow("B-101", models.NormalPriority, nil, nil)
	assert.NoError(t, err)

	_, err = eng.workflows.TransitionStage(wf.ID, 1, "foreman", "")
	assert.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	_, err = eng.workflows.TransitionStage(wf.ID, 2, "foreman", "")
	assert.NoError(t, err)

	history, err := eng.workflows.GetHistory(wf.ID)
	assert.NoError(t, err)
	assert.Len(t, history, 2)
	// Durations are whole seconds measured from the previous log entry.
	assert.GreaterOrEqual(t, history[1].DurationSeconds, int64(0))
	assert.Less(t, history[1].DurationSeconds, int64(5))
}
