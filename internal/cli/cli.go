package cli

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Steel-tech/fabtrack/internal/log"
	internal_storage "github.com/Steel-tech/fabtrack/internal/storage"
	"github.com/Steel-tech/fabtrack/pkg/models"
	"github.com/Steel-tech/fabtrack/pkg/service"
)

// SetupCLI registers the workflow commands on the root command. Every
// command opens its own store against the --db connection string.
func SetupCLI(rootCmd *cobra.Command) {
	createCmd := &cobra.Command{
		Use:   "create [piece-mark]",
		Short: "Create a workflow for a piece mark",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			priority, _ := cmd.Flags().GetString("priority")
			store, svcs := initServices(cmd)
			defer store.Close()
			wf, err := svcs.workflows.CreateWorkflow(args[0], models.Priority(priority), nil, nil)
			if err != nil {
				fail("create workflow", err)
			}
			fmt.Fprintf(os.Stdout, "Created workflow %d for piece mark '%s'\n", wf.ID, wf.PieceMark)
		},
	}
	createCmd.Flags().String("priority", "normal", "Workflow priority (low|normal|high|urgent)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all workflows",
		Run: func(cmd *cobra.Command, args []string) {
			store, svcs := initServices(cmd)
			defer store.Close()
			workflows, err := svcs.workflows.ListWorkflows()
			if err != nil {
				fail("list workflows", err)
			}
			if len(workflows) == 0 {
				fmt.Fprintf(os.Stdout, "No workflows found.\n")
				return
			}
			for _, wf := range workflows {
				fmt.Fprintf(os.Stdout, "- ID: %d, PieceMark: %s, Status: %s, Progress: %d%%, Created: %s\n",
					wf.ID, wf.PieceMark, wf.Status, wf.Progress, wf.CreatedAt.Format(time.RFC3339))
			}
		},
	}

	showCmd := &cobra.Command{
		Use:   "show [workflow-id]",
		Short: "Show a workflow and its transition history",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			id := parseID(args[0])
			store, svcs := initServices(cmd)
			defer store.Close()
			wf, err := svcs.workflows.GetWorkflow(id)
			if err != nil {
				fail("show workflow", err)
			}
			fmt.Fprintf(os.Stdout, "Workflow %d: piece mark %s, status %s, progress %d%%\n",
				wf.ID, wf.PieceMark, wf.Status, wf.Progress)
			history, err := svcs.workflows.GetHistory(id)
			if err != nil {
				fail("load history", err)
			}
			for _, tr := range history {
				from := "-"
				if tr.FromStageID != nil {
					from = strconv.FormatInt(*tr.FromStageID, 10)
				}
				fmt.Fprintf(os.Stdout, "  %s stage %s -> %d by %s (%ds in previous stage)\n",
					tr.CreatedAt.Format(time.RFC3339), from, tr.ToStageID, tr.Actor, tr.DurationSeconds)
			}
		},
	}

	transitionCmd := &cobra.Command{
		Use:   "transition [workflow-id] [stage-name]",
		Short: "Move a workflow into a production stage",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			id := parseID(args[0])
			actor, _ := cmd.Flags().GetString("actor")
			note, _ := cmd.Flags().GetString("note")
			store, svcs := initServices(cmd)
			defer store.Close()
			stage, err := svcs.workflows.Catalog().StageByName(args[1])
			if err != nil {
				fail("resolve stage", err)
			}
			wf, err := svcs.workflows.TransitionStage(id, stage.ID, actor, note)
			if err != nil {
				fail("transition workflow", err)
			}
			fmt.Fprintf(os.Stdout, "Workflow %d moved to '%s' (progress %d%%)\n", wf.ID, stage.Name, wf.Progress)
		},
	}
	transitionCmd.Flags().String("actor", "", "Actor id performing the transition")
	transitionCmd.Flags().String("note", "", "Optional transition note")

	statusCmd := &cobra.Command{
		Use:   "status [workflow-id] [status]",
		Short: "Update a workflow's status",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			id := parseID(args[0])
			actor, _ := cmd.Flags().GetString("actor")
			store, svcs := initServices(cmd)
			defer store.Close()
			wf, err := svcs.workflows.UpdateStatus(id, models.WorkflowStatus(args[1]), actor)
			if err != nil {
				fail("update status", err)
			}
			fmt.Fprintf(os.Stdout, "Workflow %d is now %s\n", wf.ID, wf.Status)
		},
	}
	statusCmd.Flags().String("actor", "", "Actor id performing the change")

	tasksCmd := &cobra.Command{
		Use:   "tasks [workflow-id]",
		Short: "List a workflow's checklist tasks",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			id := parseID(args[0])
			store, svcs := initServices(cmd)
			defer store.Close()
			tasks, err := svcs.tasks.ListTasks(id)
			if err != nil {
				fail("list tasks", err)
			}
			for _, task := range tasks {
				fmt.Fprintf(os.Stdout, "- [%s] %s (%s, stage %d, est %.1fh)\n",
					task.Status, task.Name, task.Category, task.StageID, task.EstimatedHours)
			}
		},
	}

	reportIssueCmd := &cobra.Command{
		Use:   "report-issue [workflow-id] [description]",
		Short: "Report an issue on a workflow",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			id := parseID(args[0])
			severity, _ := cmd.Flags().GetString("severity")
			category, _ := cmd.Flags().GetString("category")
			reporter, _ := cmd.Flags().GetString("reporter")
			store, svcs := initServices(cmd)
			defer store.Close()
			issue, err := svcs.issues.ReportIssue(id, category, models.IssueSeverity(severity), args[1], reporter, 0)
			if err != nil {
				fail("report issue", err)
			}
			fmt.Fprintf(os.Stdout, "Issue %s opened on workflow %d\n", issue.ID, id)
		},
	}
	reportIssueCmd.Flags().String("severity", "medium", "Issue severity (low|medium|high|critical)")
	reportIssueCmd.Flags().String("category", "", "Issue category")
	reportIssueCmd.Flags().String("reporter", "", "Reporter id")

	resolveIssueCmd := &cobra.Command{
		Use:   "resolve-issue [issue-id] [resolution]",
		Short: "Resolve an open issue",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			store, svcs := initServices(cmd)
			defer store.Close()
			issue, err := svcs.issues.ResolveIssue(args[0], models.ResolvedIssueStatus, args[1])
			if err != nil {
				fail("resolve issue", err)
			}
			fmt.Fprintf(os.Stdout, "Issue %s resolved\n", issue.ID)
		},
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show production stats",
		Run: func(cmd *cobra.Command, args []string) {
			store, svcs := initServices(cmd)
			defer store.Close()
			stats, err := svcs.metrics.ProductionStats()
			if err != nil {
				fail("load stats", err)
			}
			fmt.Fprintf(os.Stdout, "Workflows: %d total, completion rate %.0f%%, open issues: %d\n",
				stats.Total, stats.CompletionRate*100, stats.OpenIssues)
			for status, count := range stats.ByStatus {
				fmt.Fprintf(os.Stdout, "  %s: %d\n", status, count)
			}
			if stats.AvgCycleTime > 0 {
				fmt.Fprintf(os.Stdout, "  avg cycle time: %s\n", stats.AvgCycleTime)
			}
		},
	}

	rootCmd.AddCommand(createCmd, listCmd, showCmd, transitionCmd, statusCmd,
		tasksCmd, reportIssueCmd, resolveIssueCmd, statsCmd)
}

type services struct {
	workflows *service.WorkflowService
	tasks     *service.TaskService
	issues    *service.IssueService
	metrics   *service.MetricsService
}

func initServices(cmd *cobra.Command) (*internal_storage.PostgresStore, services) {
	dbConnStr, err := cmd.Flags().GetString("db")
	if err != nil {
		log.GetLogger().Errorf("Error retrieving db flag: %v", err)
		os.Exit(1)
	}
	store, err := internal_storage.InitStore(dbConnStr)
	if err != nil {
		log.GetLogger().Errorf("Failed to initialize store: %v", err)
		os.Exit(1)
	}
	catalog, err := service.LoadCatalog(store)
	if err != nil {
		log.GetLogger().Errorf("Failed to load stage catalog: %v", err)
		os.Exit(1)
	}
	logger := log.GetLogger()
	taskSvc := service.NewTaskService(store, catalog, nil, logger)
	return store, services{
		workflows: service.NewWorkflowService(store, catalog, taskSvc, nil, logger),
		tasks:     taskSvc,
		issues:    service.NewIssueService(store, logger),
		metrics:   service.NewMetricsService(store),
	}
}

func parseID(arg string) int64 {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid workflow id '%s'\n", arg)
		os.Exit(1)
	}
	return id
}

func fail(action string, err error) {
	log.GetLogger().Errorf("Failed to %s: %v", action, err)
	fmt.Fprintf(os.Stderr, "Error: failed to %s: %v\n", action, err)
	os.Exit(1)
}
