package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/chatmate/internal/notifier"
	"github.com/frahmantamala/chatmate/pkg/logger"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start worker pools that run outside the HTTP server.`,
}

var notificationWorkerCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Deliver events from redis to webhooks",
	Long:  `Subscribe to the redis event channel and deliver every event to the configured webhook endpoints`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startNotificationWorker()
	},
}

var (
	maxWorkers     int
	jobQueueSize   int
	workerPoolSize int
)

func startNotificationWorker() error {
	config, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !config.Notifications.Redis.Enabled {
		return fmt.Errorf("notifications.redis.enabled must be true to run the notification worker")
	}

	lg := logger.LoggerWrapper()

	// Use command line flags if provided, otherwise use config values
	webhooks := config.Notifications.Webhooks
	webhooks.MaxWorkers = getIntFlag(maxWorkers, webhooks.MaxWorkers)
	webhooks.JobQueueSize = getIntFlag(jobQueueSize, webhooks.JobQueueSize)
	webhooks.WorkerPoolSize = getIntFlag(workerPoolSize, webhooks.WorkerPoolSize)

	lg.Info("starting notification worker",
		"max_workers", webhooks.MaxWorkers,
		"job_queue_size", webhooks.JobQueueSize,
		"worker_pool_size", webhooks.WorkerPoolSize,
		"endpoints", len(webhooks.URLs),
		"channel", config.Notifications.Redis.Channel)

	dispatcher := newDispatcher(webhooks, nil, lg)
	client := newRedisClient(config.Notifications.Redis)
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lg.Info("notification worker is running. Press Ctrl+C to stop.")
	subErr := notifier.Subscribe(ctx, client, config.Notifications.Redis.Channel, dispatcher.HandlePayload, lg)
	lg.Info("shutting down notification worker")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	shutdownDone := make(chan struct{})
	go func() {
		dispatcher.Shutdown()
		close(shutdownDone)
	}()

	select {
	case <-shutdownDone:
		lg.Info("notification worker pool shutdown complete")
	case <-shutdownCtx.Done():
		lg.Warn("shutdown timeout reached, forcing exit")
		os.Exit(1)
	}
	return subErr
}

func getIntFlag(flagValue, configValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}

func init() {
	notificationWorkerCmd.Flags().IntVar(&maxWorkers, "max-workers", 0, "Maximum number of workers (overrides config)")
	notificationWorkerCmd.Flags().IntVar(&jobQueueSize, "job-queue-size", 0, "Job queue buffer size (overrides config)")
	notificationWorkerCmd.Flags().IntVar(&workerPoolSize, "worker-pool-size", 0, "Worker pool channel size (overrides config)")

	workerCmd.AddCommand(notificationWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}
