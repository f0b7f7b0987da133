package storage

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Steel-tech/fabtrack/pkg/models"
	"github.com/Steel-tech/fabtrack/pkg/storage"
)

type DBInterface interface {
	Get(dest interface{}, query string, args ...interface{}) error
	Select(dest interface{}, query string, args ...interface{}) error
	QueryRowx(query string, args ...interface{}) *sqlx.Row
	Exec(query string, args ...interface{}) (sql.Result, error)
}

type PostgresStore struct {
	db DBInterface
}

func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sqlx.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Begin() (storage.Store, error) {
	if db, ok := s.db.(*sqlx.DB); ok {
		tx, err := db.Beginx()
		if err != nil {
			return nil, err
		}
		return &PostgresStore{db: tx}, nil
	}
	return nil, fmt.Errorf("cannot begin transaction on unknown type")
}

func (s *PostgresStore) Commit() error {
	if tx, ok := s.db.(*sqlx.Tx); ok {
		return tx.Commit()
	}
	return fmt.Errorf("cannot commit: not a transaction")
}

func (s *PostgresStore) Rollback() error {
	if tx, ok := s.db.(*sqlx.Tx); ok {
		return tx.Rollback()
	}
	return fmt.Errorf("cannot rollback: not a transaction")
}

func (s *PostgresStore) Close() error {
	if db, ok := s.db.(*sqlx.DB); ok {
		return db.Close()
	}
	return nil // No-op for *sqlx.Tx
}

// ListStages returns the stage catalog in position order.
func (s *PostgresStore) ListStages() ([]models.Stage, error) {
	stages := []models.Stage{}
	err := s.db.Select(&stages, "SELECT * FROM stages ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	return stages, nil
}

func (s *PostgresStore) GetStage(id int64) (models.Stage, error) {
	var stage models.Stage
	err := s.db.Get(&stage, "SELECT * FROM stages WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return models.Stage{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Stage{}, err
	}
	return stage, nil
}

func (s *PostgresStore) GetStageByName(name string) (models.Stage, error) {
	var stage models.Stage
	err := s.db.Get(&stage, "SELECT * FROM stages WHERE LOWER(name) = LOWER($1)", name)
	if err == sql.ErrNoRows {
		return models.Stage{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Stage{}, err
	}
	return stage, nil
}

// SaveWorkflow creates a new workflow and returns its ID.
func (s *PostgresStore) SaveWorkflow(w models.Workflow) (int64, error) {
	var wfID int64
	err := s.db.QueryRowx(`
		INSERT INTO workflows (piece_mark, current_stage_id, status, priority, progress, assignee,
			scheduled_start, scheduled_end, actual_start, actual_end, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) RETURNING id`,
		w.PieceMark, w.CurrentStageID, w.Status, w.Priority, w.Progress, w.Assignee,
		w.ScheduledStart, w.ScheduledEnd, w.ActualStart, w.ActualEnd, w.Version, w.CreatedAt, w.UpdatedAt).Scan(&wfID)
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		// Unique violation on the active piece-mark index.
		return 0, storage.ErrDuplicate
	}
	if err != nil {
		return 0, fmt.Errorf("save workflow: %w", err)
	}
	return wfID, nil
}

func (s *PostgresStore) GetWorkflow(id int64) (models.Workflow, error) {
	var wf models.Workflow
	err := s.db.Get(&wf, "SELECT * FROM workflows WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return models.Workflow{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Workflow{}, err
	}
	return wf, nil
}

func (s *PostgresStore) ListWorkflows() ([]models.Workflow, error) {
	workflows := []models.Workflow{}
	err := s.db.Select(&workflows, "SELECT * FROM workflows ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	return workflows, nil
}

// FindActiveWorkflow returns the non-terminal workflow for a piece mark.
func (s *PostgresStore) FindActiveWorkflow(pieceMark string) (models.Workflow, error) {
	var wf models.Workflow
	err := s.db.Get(&wf,
		"SELECT * FROM workflows WHERE piece_mark = $1 AND status NOT IN ('completed', 'cancelled') LIMIT 1",
		pieceMark)
	if err == sql.ErrNoRows {
		return models.Workflow{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Workflow{}, err
	}
	return wf, nil
}

// UpdateWorkflow writes the workflow only if the stored row still carries
// expectedVersion. Under read committed a concurrent writer that commits
// first makes the WHERE clause miss, which surfaces as ErrVersionConflict.
func (s *PostgresStore) UpdateWorkflow(w models.Workflow, expectedVersion int64) error {
	res, err := s.db.Exec(`
		UPDATE workflows
		SET current_stage_id = $1, status = $2, priority = $3, progress = $4, assignee = $5,
			scheduled_start = $6, scheduled_end = $7, actual_start = $8, actual_end = $9,
			version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $10 AND version = $11`,
		w.CurrentStageID, w.Status, w.Priority, w.Progress, w.Assignee,
		w.ScheduledStart, w.ScheduledEnd, w.ActualStart, w.ActualEnd,
		w.ID, expectedVersion)
	if err != nil {
		return fmt.Errorf("update workflow %d: %w", w.ID, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		var one int
		if err := s.db.Get(&one, "SELECT 1 FROM workflows WHERE id = $1", w.ID); err == sql.ErrNoRows {
			return storage.ErrNotFound
		}
		return storage.ErrVersionConflict
	}
	return nil
}

// SaveTransition appends a transition to the log and returns its ID.
// There is deliberately no update or delete counterpart.
func (s *PostgresStore) SaveTransition(t models.Transition) (int64, error) {
	var trID int64
	err := s.db.QueryRowx(`
		INSERT INTO transitions (workflow_id, from_stage_id, to_stage_id, actor, note, duration_seconds, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		t.WorkflowID, t.FromStageID, t.ToStageID, t.Actor, t.Note, t.DurationSeconds, t.CreatedAt).Scan(&trID)
	if err != nil {
		return 0, fmt.Errorf("save transition: %w", err)
	}
	return trID, nil
}

func (s *PostgresStore) ListTransitions(workflowID int64) ([]models.Transition, error) {
	transitions := []models.Transition{}
	err := s.db.Select(&transitions,
		"SELECT * FROM transitions WHERE workflow_id = $1 ORDER BY id", workflowID)
	if err != nil {
		return nil, err
	}
	return transitions, nil
}

func (s *PostgresStore) LatestTransition(workflowID int64) (models.Transition, error) {
	var t models.Transition
	err := s.db.Get(&t,
		"SELECT * FROM transitions WHERE workflow_id = $1 ORDER BY id DESC LIMIT 1", workflowID)
	if err == sql.ErrNoRows {
		return models.Transition{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Transition{}, err
	}
	return t, nil
}

// SaveTasks bulk-inserts seeded tasks.
func (s *PostgresStore) SaveTasks(tasks []models.Task) error {
	for _, t := range tasks {
		_, err := s.db.Exec(`
			INSERT INTO tasks (id, workflow_id, stage_id, name, category, status, assignee,
				estimated_hours, actual_hours, notes, started_at, completed_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			t.ID, t.WorkflowID, t.StageID, t.Name, t.Category, t.Status, t.Assignee,
			t.EstimatedHours, t.ActualHours, t.Notes, t.StartedAt, t.CompletedAt, t.CreatedAt, t.UpdatedAt)
		if err != nil {
			return fmt.Errorf("save task %s: %w", t.ID, err)
		}
	}
	return nil
}

func (s *PostgresStore) GetTask(id string) (models.Task, error) {
	var task models.Task
	err := s.db.Get(&task, "SELECT * FROM tasks WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return models.Task{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Task{}, err
	}
	return task, nil
}

func (s *PostgresStore) ListTasks(workflowID int64) ([]models.Task, error) {
	tasks := []models.Task{}
	err := s.db.Select(&tasks,
		"SELECT * FROM tasks WHERE workflow_id = $1 ORDER BY stage_id, created_at, id", workflowID)
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *PostgresStore) CountTasksForStage(workflowID, stageID int64) (int, error) {
	var count int
	err := s.db.Get(&count,
		"SELECT COUNT(*) FROM tasks WHERE workflow_id = $1 AND stage_id = $2", workflowID, stageID)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *PostgresStore) UpdateTask(t models.Task) error {
	res, err := s.db.Exec(`
		UPDATE tasks
		SET status = $1, assignee = $2, actual_hours = $3, notes = $4,
			started_at = $5, completed_at = $6, updated_at = CURRENT_TIMESTAMP
		WHERE id = $7`,
		t.Status, t.Assignee, t.ActualHours, t.Notes, t.StartedAt, t.CompletedAt, t.ID)
	if err != nil {
		return fmt.Errorf("update task %s: %w", t.ID, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SaveIssue(i models.Issue) error {
	_, err := s.db.Exec(`
		INSERT INTO issues (id, workflow_id, category, severity, description, impact_hours,
			reporter, assignee, status, resolution, resolved_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		i.ID, i.WorkflowID, i.Category, i.Severity, i.Description, i.ImpactHours,
		i.Reporter, i.Assignee, i.Status, i.Resolution, i.ResolvedAt, i.CreatedAt)
	if err != nil {
		return fmt.Errorf("save issue %s: %w", i.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetIssue(id string) (models.Issue, error) {
	var issue models.Issue
	err := s.db.Get(&issue, "SELECT * FROM issues WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return models.Issue{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Issue{}, err
	}
	return issue, nil
}

func (s *PostgresStore) UpdateIssue(i models.Issue) error {
	res, err := s.db.Exec(`
		UPDATE issues
		SET assignee = $1, status = $2, resolution = $3, resolved_at = $4
		WHERE id = $5`,
		i.Assignee, i.Status, i.Resolution, i.ResolvedAt, i.ID)
	if err != nil {
		return fmt.Errorf("update issue %s: %w", i.ID, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListIssues(workflowID int64) ([]models.Issue, error) {
	issues := []models.Issue{}
	err := s.db.Select(&issues,
		"SELECT * FROM issues WHERE workflow_id = $1 ORDER BY created_at", workflowID)
	if err != nil {
		return nil, err
	}
	return issues, nil
}

func (s *PostgresStore) CountOpenIssues() (int, error) {
	var count int
	err := s.db.Get(&count,
		"SELECT COUNT(*) FROM issues WHERE status IN ('open', 'in_progress')")
	if err != nil {
		return 0, err
	}
	return count, nil
}
