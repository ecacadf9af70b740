package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/lunalism/techisy/internal/config"
	"github.com/lunalism/techisy/internal/feed"
	"github.com/lunalism/techisy/internal/ingest"
	"github.com/lunalism/techisy/internal/models"
	"github.com/lunalism/techisy/internal/scraper"
	"github.com/lunalism/techisy/internal/server"
	"github.com/lunalism/techisy/internal/storage/sqlite"
	"github.com/lunalism/techisy/pkg/logger"
	"github.com/lunalism/techisy/pkg/ratelimit"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *logger.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "techisy-server",
		Short: "Techisy feed aggregation server",
		Long: `Serves the article API and runs scheduled feed ingestion and
retention cleanup in the background.`,
		RunE: runServer,
	}

	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file path")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	var err error

	// Load config
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	log = logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	log.Info().Msg("Starting Techisy server")

	repo, err := sqlite.New(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer repo.Close()

	if err := repo.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Build the ingestion pipeline
	limiter := ratelimit.NewDefaultLimiter()
	reader := feed.NewReader(cfg.Fetch.FeedTimeout, log)

	var imageScraper scraper.ImageScraper
	if cfg.Fetch.ScrapeImages {
		imageScraper = scraper.New(cfg.Fetch.ScrapeTimeout, log)
	}

	orchestrator := ingest.NewOrchestrator(repo, reader, imageScraper, limiter, cfg.Fetch.GroupSize, log)
	locker := ingest.NewLocker(repo, cfg.Lock.TTL, log)
	sweeper := ingest.NewSweeper(
		repo,
		time.Duration(cfg.Retention.Days)*24*time.Hour,
		int64(cfg.Retention.ArticleFloor),
		log,
	)
	driver := ingest.NewDriver(locker, orchestrator, log)

	// Schedule background jobs
	var c *cron.Cron
	if cfg.Scheduler.Enabled {
		c = cron.New(cron.WithLogger(cronLogger{log}))

		_, err = c.AddFunc(cfg.Scheduler.FetchCron, func() {
			ctx := context.Background()
			log.Info().Msg("Running scheduled fetch")

			report, err := driver.Run(ctx, models.HolderCron)
			if err != nil {
				if conflict, ok := err.(*ingest.ConflictError); ok {
					log.Info().
						Str("locked_by", string(conflict.Status.LockedBy)).
						Msg("Scheduled fetch skipped, another run in progress")
					return
				}
				log.Error().Err(err).Msg("Scheduled fetch failed")
				return
			}

			log.Info().
				Int("added", report.Summary.ArticlesAdded).
				Int("images_updated", report.Summary.ImagesUpdated).
				Int("errors", report.Summary.Errors).
				Msg("Scheduled fetch completed")
		})
		if err != nil {
			return fmt.Errorf("failed to schedule fetch job: %w", err)
		}
		log.Info().Str("cron", cfg.Scheduler.FetchCron).Msg("Fetch job scheduled")

		_, err = c.AddFunc(cfg.Scheduler.CleanupCron, func() {
			ctx := context.Background()
			log.Info().Msg("Running scheduled cleanup")

			report, err := sweeper.Run(ctx)
			if err != nil {
				log.Error().Err(err).Msg("Scheduled cleanup failed")
				return
			}

			log.Info().
				Int64("deleted", report.Deleted).
				Bool("skipped", report.Skipped).
				Msg("Scheduled cleanup completed")
		})
		if err != nil {
			return fmt.Errorf("failed to schedule cleanup job: %w", err)
		}
		log.Info().Str("cron", cfg.Scheduler.CleanupCron).Msg("Cleanup job scheduled")

		c.Start()
		log.Info().Msg("Scheduler started")
	}

	// Start the HTTP server
	srv := server.New(repo, orchestrator, locker, sweeper, log)
	httpServer := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: srv.Router(cfg.Server.AllowedOrigins),
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("HTTP server starting")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("Shutting down")
	if c != nil {
		c.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP shutdown failed")
	}

	return nil
}

// cronLogger adapts our logger for cron
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Info().Msgf(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Msgf(msg, keysAndValues...)
}
