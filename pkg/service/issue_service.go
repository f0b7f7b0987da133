package service

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Steel-tech/fabtrack/pkg/models"
	"github.com/Steel-tech/fabtrack/pkg/storage"
)

// IssueService tracks ad-hoc problem reports against workflows. Issues
// never change workflow status automatically; pausing a workflow over a
// critical issue is an explicit caller decision.
type IssueService struct {
	store  storage.Store
	logger Logger
}

func NewIssueService(store storage.Store, logger Logger) *IssueService {
	return &IssueService{store: store, logger: logger}
}

// ReportIssue opens a new issue against a workflow.
func (is *IssueService) ReportIssue(workflowID int64, category string, severity models.IssueSeverity, description, reporter string, impactHours float64) (models.Issue, error) {
	if !severity.Valid() {
		return models.Issue{}, validationErrorf("invalid severity '%s'", severity)
	}
	if description == "" {
		return models.Issue{}, validationErrorf("description is required")
	}
	if reporter == "" {
		return models.Issue{}, validationErrorf("reporter is required")
	}
	if _, err := is.store.GetWorkflow(workflowID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Issue{}, &NotFoundError{Kind: "workflow", ID: strconv.FormatInt(workflowID, 10)}
		}
		return models.Issue{}, err
	}

	issue := models.Issue{
		ID:          uuid.New().String(),
		WorkflowID:  workflowID,
		Category:    category,
		Severity:    severity,
		Description: description,
		ImpactHours: impactHours,
		Reporter:    reporter,
		Status:      models.OpenIssueStatus,
		CreatedAt:   time.Now(),
	}
	if err := is.store.SaveIssue(issue); err != nil {
		return models.Issue{}, errors.Wrapf(err, "save issue for workflow %d", workflowID)
	}
	is.logger.Infof("Issue %s (%s) reported on workflow %d by %s", issue.ID, severity, workflowID, reporter)
	return issue, nil
}

// AssignIssue sets the assignee and moves an open issue to in_progress.
func (is *IssueService) AssignIssue(issueID, assignee string) (models.Issue, error) {
	if assignee == "" {
		return models.Issue{}, validationErrorf("assignee is required")
	}
	issue, err := is.store.GetIssue(issueID)
	if errors.Is(err, storage.ErrNotFound) {
		return models.Issue{}, &NotFoundError{Kind: "issue", ID: issueID}
	}
	if err != nil {
		return models.Issue{}, err
	}
	if issue.Status == models.ResolvedIssueStatus || issue.Status == models.ClosedIssueStatus {
		return models.Issue{}, &InvalidTransitionError{
			From: string(issue.Status),
			Msg:  "issue " + issueID + " is already resolved",
		}
	}
	issue.Assignee = assignee
	if issue.Status == models.OpenIssueStatus {
		issue.Status = models.InProgressIssueStatus
	}
	if err := is.store.UpdateIssue(issue); err != nil {
		return models.Issue{}, err
	}
	is.logger.Infof("Issue %s assigned to %s", issueID, assignee)
	return issue, nil
}

// ResolveIssue resolves or closes an issue with a resolution note and
// stamps the resolution time.
func (is *IssueService) ResolveIssue(issueID string, status models.IssueStatus, resolution string) (models.Issue, error) {
	if status != models.ResolvedIssueStatus && status != models.ClosedIssueStatus {
		return models.Issue{}, validationErrorf("resolution status must be 'resolved' or 'closed', got '%s'", status)
	}
	if resolution == "" {
		return models.Issue{}, validationErrorf("resolution text is required")
	}
	issue, err := is.store.GetIssue(issueID)
	if errors.Is(err, storage.ErrNotFound) {
		return models.Issue{}, &NotFoundError{Kind: "issue", ID: issueID}
	}
	if err != nil {
		return models.Issue{}, err
	}
	if issue.Status == models.ResolvedIssueStatus || issue.Status == models.ClosedIssueStatus {
		return models.Issue{}, &InvalidTransitionError{
			From: string(issue.Status),
			To:   string(status),
			Msg:  "issue " + issueID + " is already resolved",
		}
	}

	now := time.Now()
	issue.Status = status
	issue.Resolution = resolution
	issue.ResolvedAt = &now
	if err := is.store.UpdateIssue(issue); err != nil {
		return models.Issue{}, err
	}
	is.logger.Infof("Issue %s %s", issueID, status)
	return issue, nil
}

// ListIssues returns all issues for a workflow.
func (is *IssueService) ListIssues(workflowID int64) ([]models.Issue, error) {
	return is.store.ListIssues(workflowID)
}
