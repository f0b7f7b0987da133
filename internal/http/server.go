package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/Steel-tech/fabtrack/internal/log"
	"github.com/Steel-tech/fabtrack/pkg/models"
	"github.com/Steel-tech/fabtrack/pkg/service"
)

// Services bundles what the HTTP frontend serves.
type Services struct {
	Workflows *service.WorkflowService
	Tasks     *service.TaskService
	Issues    *service.IssueService
	Metrics   *service.MetricsService
}

// StartServer serves the engine on the given port until the listener fails.
func StartServer(port string, svcs Services) error {
	log.GetLogger().Infof("Starting FabTrack server on :%s", port)
	return http.ListenAndServe(":"+port, NewMux(svcs))
}

// NewMux builds the route table; split out so tests can serve it with httptest.
func NewMux(svcs Services) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", HealthHandler)
	mux.HandleFunc("/stages", StagesHandler(svcs.Workflows))
	mux.HandleFunc("/workflows", WorkflowsHandler(svcs.Workflows))
	mux.HandleFunc("/workflows/", WorkflowByIDHandler(svcs))
	mux.HandleFunc("/tasks/", TaskByIDHandler(svcs.Tasks))
	mux.HandleFunc("/issues/", IssueByIDHandler(svcs.Issues))
	mux.HandleFunc("/stats", StatsHandler(svcs.Metrics))
	return mux
}

func HealthHandler(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "FabTrack server is running")
}

// StagesHandler lists the stage catalog.
func StagesHandler(svc *service.WorkflowService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, svc.Catalog().Stages())
	}
}

// WorkflowsHandler serves GET /workflows (list) and POST /workflows (create).
func WorkflowsHandler(svc *service.WorkflowService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			workflows, err := svc.ListWorkflows()
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, workflows)
		case http.MethodPost:
			pieceMark := r.FormValue("piece_mark")
			priority := models.Priority(r.FormValue("priority"))
			schedStart, err := parseTimeParam(r.FormValue("scheduled_start"))
			if err != nil {
				http.Error(w, fmt.Sprintf("Invalid 'scheduled_start': %v", err), http.StatusBadRequest)
				return
			}
			schedEnd, err := parseTimeParam(r.FormValue("scheduled_end"))
			if err != nil {
				http.Error(w, fmt.Sprintf("Invalid 'scheduled_end': %v", err), http.StatusBadRequest)
				return
			}
			wf, err := svc.CreateWorkflow(pieceMark, priority, schedStart, schedEnd)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, wf)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// WorkflowByIDHandler serves /workflows/{id} and its subresources:
// GET  /workflows/{id}
// GET  /workflows/{id}/history | /tasks | /issues
// POST /workflows/{id}/transition | /status | /issues
func WorkflowByIDHandler(svcs Services) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/workflows/")
		parts := strings.SplitN(rest, "/", 2)
		id, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			http.Error(w, "Invalid workflow id", http.StatusBadRequest)
			return
		}
		sub := ""
		if len(parts) == 2 {
			sub = parts[1]
		}

		switch {
		case sub == "" && r.Method == http.MethodGet:
			wf, err := svcs.Workflows.GetWorkflow(id)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, wf)
		case sub == "history" && r.Method == http.MethodGet:
			history, err := svcs.Workflows.GetHistory(id)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, history)
		case sub == "tasks" && r.Method == http.MethodGet:
			tasks, err := svcs.Tasks.ListTasks(id)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, tasks)
		case sub == "issues" && r.Method == http.MethodGet:
			issues, err := svcs.Issues.ListIssues(id)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, issues)
		case sub == "transition" && r.Method == http.MethodPost:
			toStageID, err := strconv.ParseInt(r.FormValue("to_stage_id"), 10, 64)
			if err != nil {
				http.Error(w, "Invalid 'to_stage_id' parameter", http.StatusBadRequest)
				return
			}
			wf, err := svcs.Workflows.TransitionStage(id, toStageID, r.FormValue("actor"), r.FormValue("note"))
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, wf)
		case sub == "status" && r.Method == http.MethodPost:
			wf, err := svcs.Workflows.UpdateStatus(id, models.WorkflowStatus(r.FormValue("status")), r.FormValue("actor"))
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, wf)
		case sub == "issues" && r.Method == http.MethodPost:
			impactHours := 0.0
			if v := r.FormValue("impact_hours"); v != "" {
				impactHours, err = strconv.ParseFloat(v, 64)
				if err != nil {
					http.Error(w, "Invalid 'impact_hours' parameter", http.StatusBadRequest)
					return
				}
			}
			issue, err := svcs.Issues.ReportIssue(id, r.FormValue("category"),
				models.IssueSeverity(r.FormValue("severity")), r.FormValue("description"),
				r.FormValue("reporter"), impactHours)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, issue)
		default:
			http.Error(w, "Not found", http.StatusNotFound)
		}
	}
}

// TaskByIDHandler serves POST /tasks/{id}/status and POST /tasks/{id}/assign.
func TaskByIDHandler(svc *service.TaskService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		rest := strings.TrimPrefix(r.URL.Path, "/tasks/")
		parts := strings.SplitN(rest, "/", 2)
		if len(parts) != 2 {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		taskID, sub := parts[0], parts[1]

		switch sub {
		case "status":
			actualHours := 0.0
			if v := r.FormValue("actual_hours"); v != "" {
				var err error
				actualHours, err = strconv.ParseFloat(v, 64)
				if err != nil {
					http.Error(w, "Invalid 'actual_hours' parameter", http.StatusBadRequest)
					return
				}
			}
			task, err := svc.UpdateTaskStatus(taskID, models.TaskStatus(r.FormValue("status")), actualHours, r.FormValue("notes"))
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, task)
		case "assign":
			task, err := svc.AssignTask(taskID, r.FormValue("assignee"))
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, task)
		default:
			http.Error(w, "Not found", http.StatusNotFound)
		}
	}
}

// IssueByIDHandler serves POST /issues/{id}/resolve and POST /issues/{id}/assign.
func IssueByIDHandler(svc *service.IssueService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		rest := strings.TrimPrefix(r.URL.Path, "/issues/")
		parts := strings.SplitN(rest, "/", 2)
		if len(parts) != 2 {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		issueID, sub := parts[0], parts[1]

		switch sub {
		case "resolve":
			status := models.IssueStatus(r.FormValue("status"))
			if status == "" {
				status = models.ResolvedIssueStatus
			}
			issue, err := svc.ResolveIssue(issueID, status, r.FormValue("resolution"))
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, issue)
		case "assign":
			issue, err := svc.AssignIssue(issueID, r.FormValue("assignee"))
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, issue)
		default:
			http.Error(w, "Not found", http.StatusNotFound)
		}
	}
}

// StatsHandler serves GET /stats and GET /stats?day=2006-01-02.
func StatsHandler(svc *service.MetricsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if day := r.URL.Query().Get("day"); day != "" {
			parsed, err := time.Parse("2006-01-02", day)
			if err != nil {
				http.Error(w, "Invalid 'day' parameter, expected YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			stats, err := svc.DailyStats(parsed)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, stats)
			return
		}
		stats, err := svc.ProductionStats()
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.GetLogger().Errorf("Failed to encode response: %v", err)
	}
}

// writeServiceError maps the engine's typed errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var (
		validationErr  *service.ValidationError
		notFoundErr    *service.NotFoundError
		transitionErr  *service.InvalidTransitionError
		concurrencyErr *service.ConcurrencyConflictError
	)
	switch {
	case errors.As(err, &validationErr):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &notFoundErr):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &transitionErr):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.As(err, &concurrencyErr):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		log.GetLogger().Errorf("Internal error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func parseTimeParam(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
