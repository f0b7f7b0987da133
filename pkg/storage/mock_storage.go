package storage

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Steel-tech/fabtrack/pkg/models"
)

// mockData is the committed in-memory state shared by a mock store and
// every transaction derived from it. txMu serializes transactions so a
// transaction's version check stays atomic against other transactions,
// the way row locks do in Postgres; direct (non-transactional) writes
// only take the data mutex and can interleave with an open transaction.
type mockData struct {
	mu          sync.Mutex
	txMu        sync.Mutex
	stages      []models.Stage
	workflows   []models.Workflow
	transitions []models.Transition
	tasks       []models.Task
	issues      []models.Issue
	nextWfID    int64
	nextTrID    int64
}

// mockStore implements Store with in-memory storage for unit tests.
// Writes made through a transaction are buffered and reach the shared
// data only on Commit; Rollback discards them. Reads see committed data.
type mockStore struct {
	data   *mockData
	tx     bool
	staged []func(d *mockData)
	done   bool
}

// NewMockStore returns an empty in-memory Store.
func NewMockStore() Store {
	return &mockStore{data: &mockData{}}
}

// NewMockStoreWithStages returns an in-memory Store pre-loaded with a catalog.
func NewMockStoreWithStages(stages []models.Stage) Store {
	data := &mockData{}
	data.stages = append(data.stages, stages...)
	return &mockStore{data: data}
}

func (m *mockStore) Begin() (Store, error) {
	if m.tx {
		return m, nil
	}
	m.data.txMu.Lock()
	return &mockStore{data: m.data, tx: true}, nil
}

func (m *mockStore) Commit() error {
	if !m.tx || m.done {
		return nil
	}
	m.data.mu.Lock()
	for _, apply := range m.staged {
		apply(m.data)
	}
	m.data.mu.Unlock()
	m.staged = nil
	m.done = true
	m.data.txMu.Unlock()
	return nil
}

func (m *mockStore) Rollback() error {
	if !m.tx || m.done {
		return nil
	}
	m.staged = nil
	m.done = true
	m.data.txMu.Unlock()
	return nil
}

func (m *mockStore) Close() error { return nil }

// write buffers the mutation in a transaction or applies it directly.
func (m *mockStore) write(apply func(d *mockData)) {
	if m.tx {
		m.staged = append(m.staged, apply)
		return
	}
	m.data.mu.Lock()
	apply(m.data)
	m.data.mu.Unlock()
}

func (m *mockStore) ListStages() ([]models.Stage, error) {
	m.data.mu.Lock()
	defer m.data.mu.Unlock()
	stages := append([]models.Stage(nil), m.data.stages...)
	sort.Slice(stages, func(i, j int) bool { return stages[i].Position < stages[j].Position })
	return stages, nil
}

func (m *mockStore) GetStage(id int64) (models.Stage, error) {
	m.data.mu.Lock()
	defer m.data.mu.Unlock()
	for _, st := range m.data.stages {
		if st.ID == id {
			return st, nil
		}
	}
	return models.Stage{}, ErrNotFound
}

func (m *mockStore) GetStageByName(name string) (models.Stage, error) {
	m.data.mu.Lock()
	defer m.data.mu.Unlock()
	for _, st := range m.data.stages {
		if strings.EqualFold(st.Name, name) {
			return st, nil
		}
	}
	return models.Stage{}, ErrNotFound
}

// SaveWorkflow mirrors the partial unique index: at most one non-terminal
// workflow per piece mark.
func (m *mockStore) SaveWorkflow(w models.Workflow) (int64, error) {
	m.data.mu.Lock()
	if !w.Status.Terminal() {
		for _, existing := range m.data.workflows {
			if existing.PieceMark == w.PieceMark && !existing.Status.Terminal() {
				m.data.mu.Unlock()
				return 0, ErrDuplicate
			}
		}
	}
	m.data.nextWfID++
	w.ID = m.data.nextWfID
	m.data.mu.Unlock()
	m.write(func(d *mockData) { d.workflows = append(d.workflows, w) })
	return w.ID, nil
}

func (m *mockStore) GetWorkflow(id int64) (models.Workflow, error) {
	m.data.mu.Lock()
	defer m.data.mu.Unlock()
	for _, w := range m.data.workflows {
		if w.ID == id {
			return w, nil
		}
	}
	return models.Workflow{}, ErrNotFound
}

func (m *mockStore) ListWorkflows() ([]models.Workflow, error) {
	m.data.mu.Lock()
	defer m.data.mu.Unlock()
	return append([]models.Workflow(nil), m.data.workflows...), nil
}

func (m *mockStore) FindActiveWorkflow(pieceMark string) (models.Workflow, error) {
	m.data.mu.Lock()
	defer m.data.mu.Unlock()
	for _, w := range m.data.workflows {
		if w.PieceMark == pieceMark && !w.Status.Terminal() {
			return w, nil
		}
	}
	return models.Workflow{}, ErrNotFound
}

func (m *mockStore) UpdateWorkflow(w models.Workflow, expectedVersion int64) error {
	m.data.mu.Lock()
	found := false
	for _, existing := range m.data.workflows {
		if existing.ID == w.ID {
			if existing.Version != expectedVersion {
				m.data.mu.Unlock()
				return ErrVersionConflict
			}
			found = true
			break
		}
	}
	m.data.mu.Unlock()
	if !found {
		return ErrNotFound
	}
	w.Version = expectedVersion + 1
	w.UpdatedAt = time.Now()
	m.write(func(d *mockData) {
		for i, existing := range d.workflows {
			if existing.ID == w.ID {
				d.workflows[i] = w
				return
			}
		}
	})
	return nil
}

func (m *mockStore) SaveTransition(t models.Transition) (int64, error) {
	m.data.mu.Lock()
	m.data.nextTrID++
	t.ID = m.data.nextTrID
	m.data.mu.Unlock()
	m.write(func(d *mockData) { d.transitions = append(d.transitions, t) })
	return t.ID, nil
}

func (m *mockStore) ListTransitions(workflowID int64) ([]models.Transition, error) {
	m.data.mu.Lock()
	defer m.data.mu.Unlock()
	var out []models.Transition
	for _, t := range m.data.transitions {
		if t.WorkflowID == workflowID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockStore) LatestTransition(workflowID int64) (models.Transition, error) {
	m.data.mu.Lock()
	defer m.data.mu.Unlock()
	var latest models.Transition
	found := false
	for _, t := range m.data.transitions {
		if t.WorkflowID == workflowID && (!found || t.ID > latest.ID) {
			latest = t
			found = true
		}
	}
	if !found {
		return models.Transition{}, ErrNotFound
	}
	return latest, nil
}

func (m *mockStore) SaveTasks(tasks []models.Task) error {
	tasks = append([]models.Task(nil), tasks...)
	m.write(func(d *mockData) { d.tasks = append(d.tasks, tasks...) })
	return nil
}

func (m *mockStore) GetTask(id string) (models.Task, error) {
	m.data.mu.Lock()
	defer m.data.mu.Unlock()
	for _, t := range m.data.tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return models.Task{}, ErrNotFound
}

func (m *mockStore) ListTasks(workflowID int64) ([]models.Task, error) {
	m.data.mu.Lock()
	defer m.data.mu.Unlock()
	var out []models.Task
	for _, t := range m.data.tasks {
		if t.WorkflowID == workflowID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockStore) CountTasksForStage(workflowID, stageID int64) (int, error) {
	m.data.mu.Lock()
	defer m.data.mu.Unlock()
	count := 0
	for _, t := range m.data.tasks {
		if t.WorkflowID == workflowID && t.StageID == stageID {
			count++
		}
	}
	return count, nil
}

func (m *mockStore) UpdateTask(t models.Task) error {
	m.data.mu.Lock()
	found := false
	for _, existing := range m.data.tasks {
		if existing.ID == t.ID {
			found = true
			break
		}
	}
	m.data.mu.Unlock()
	if !found {
		return ErrNotFound
	}
	t.UpdatedAt = time.Now()
	m.write(func(d *mockData) {
		for i, existing := range d.tasks {
			if existing.ID == t.ID {
				d.tasks[i] = t
				return
			}
		}
	})
	return nil
}

func (m *mockStore) SaveIssue(i models.Issue) error {
	m.write(func(d *mockData) { d.issues = append(d.issues, i) })
	return nil
}

func (m *mockStore) GetIssue(id string) (models.Issue, error) {
	m.data.mu.Lock()
	defer m.data.mu.Unlock()
	for _, iss := range m.data.issues {
		if iss.ID == id {
			return iss, nil
		}
	}
	return models.Issue{}, ErrNotFound
}

func (m *mockStore) UpdateIssue(i models.Issue) error {
	m.data.mu.Lock()
	found := false
	for _, existing := range m.data.issues {
		if existing.ID == i.ID {
			found = true
			break
		}
	}
	m.data.mu.Unlock()
	if !found {
		return ErrNotFound
	}
	m.write(func(d *mockData) {
		for idx, existing := range d.issues {
			if existing.ID == i.ID {
				d.issues[idx] = i
				return
			}
		}
	})
	return nil
}

func (m *mockStore) ListIssues(workflowID int64) ([]models.Issue, error) {
	m.data.mu.Lock()
	defer m.data.mu.Unlock()
	var out []models.Issue
	for _, iss := range m.data.issues {
		if iss.WorkflowID == workflowID {
			out = append(out, iss)
		}
	}
	return out, nil
}

func (m *mockStore) CountOpenIssues() (int, error) {
	m.data.mu.Lock()
	defer m.data.mu.Unlock()
	count := 0
	for _, iss := range m.data.issues {
		if iss.Status == models.OpenIssueStatus || iss.Status == models.InProgressIssueStatus {
			count++
		}
	}
	return count, nil
}
