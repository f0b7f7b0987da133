package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Steel-tech/fabtrack/internal/cli"
	"github.com/Steel-tech/fabtrack/internal/config"
	internal_http "github.com/Steel-tech/fabtrack/internal/http"
	"github.com/Steel-tech/fabtrack/internal/log"
	"github.com/Steel-tech/fabtrack/internal/notify"
	internal_storage "github.com/Steel-tech/fabtrack/internal/storage"
	pkg_notify "github.com/Steel-tech/fabtrack/pkg/notify"
	"github.com/Steel-tech/fabtrack/pkg/service"
)

var rootCmd = &cobra.Command{Use: "fabtrack"}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the fabrication tracking HTTP server",
	Run: func(cmd *cobra.Command, args []string) {
		logger := log.GetLogger()

		cfg, err := config.Load()
		if err != nil {
			logger.Errorf("Failed to load configuration: %v", err)
			os.Exit(1)
		}
		if dbFlag, _ := cmd.Flags().GetString("db"); dbFlag != "" {
			cfg.DatabaseURL = dbFlag
		}
		if portFlag, _ := cmd.Flags().GetString("port"); portFlag != "" {
			cfg.HTTPPort = portFlag
		}

		store, err := internal_storage.InitStore(cfg.DatabaseURL)
		if err != nil {
			logger.Errorf("Failed to initialize store: %v", err)
			os.Exit(1)
		}
		defer store.Close()

		catalog, err := service.LoadCatalog(store)
		if err != nil {
			logger.Errorf("Failed to load stage catalog: %v", err)
			os.Exit(1)
		}

		var publisher pkg_notify.Publisher
		if cfg.RedisAddr != "" {
			redisPub, err := notify.NewRedisPublisher(cfg.RedisAddr, cfg.RedisChannel, logger)
			if err != nil {
				logger.Errorf("Failed to connect to Redis at %s: %v", cfg.RedisAddr, err)
				os.Exit(1)
			}
			defer redisPub.Close()
			publisher = redisPub
		}

		taskSvc := service.NewTaskService(store, catalog, nil, logger)
		svcs := internal_http.Services{
			Workflows: service.NewWorkflowService(store, catalog, taskSvc, publisher, logger),
			Tasks:     taskSvc,
			Issues:    service.NewIssueService(store, logger),
			Metrics:   service.NewMetricsService(store),
		}

		logger.Infof("Starting fabtrack server on port %s", cfg.HTTPPort)
		if err := internal_http.StartServer(cfg.HTTPPort, svcs); err != nil {
			logger.Errorf("Server exited: %v", err)
			os.Exit(1)
		}
	},
}

func main() {
	rootCmd.PersistentFlags().String("db", "", "Database connection string (overrides configuration)")
	serveCmd.Flags().String("port", "", "HTTP port to listen on (overrides configuration)")
	rootCmd.AddCommand(serveCmd)
	cli.SetupCLI(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
