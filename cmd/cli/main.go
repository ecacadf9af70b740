package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lunalism/techisy/internal/config"
	"github.com/lunalism/techisy/internal/feed"
	"github.com/lunalism/techisy/internal/ingest"
	"github.com/lunalism/techisy/internal/models"
	"github.com/lunalism/techisy/internal/scraper"
	"github.com/lunalism/techisy/internal/storage"
	"github.com/lunalism/techisy/internal/storage/sqlite"
	"github.com/lunalism/techisy/pkg/logger"
	"github.com/lunalism/techisy/pkg/ratelimit"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *logger.Logger
	repo    storage.Repository
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "techisy",
		Short: "Techisy feed aggregation CLI",
		Long: `Operator tooling for the Techisy backend: drive feed ingestion,
manage sources and inspect the fetch lock.`,
		PersistentPreRunE: initializeApp,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/config.yaml)")

	rootCmd.AddCommand(fetchCmd())
	rootCmd.AddCommand(cleanupCmd())
	rootCmd.AddCommand(sourcesCmd())
	rootCmd.AddCommand(lockCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initializeApp(cmd *cobra.Command, args []string) error {
	var err error

	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log = logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	repo, err = sqlite.New(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := repo.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func buildOrchestrator() *ingest.Orchestrator {
	limiter := ratelimit.NewDefaultLimiter()
	reader := feed.NewReader(cfg.Fetch.FeedTimeout, log)

	var imageScraper scraper.ImageScraper
	if cfg.Fetch.ScrapeImages {
		imageScraper = scraper.New(cfg.Fetch.ScrapeTimeout, log)
	}

	return ingest.NewOrchestrator(repo, reader, imageScraper, limiter, cfg.Fetch.GroupSize, log)
}

func fetchCmd() *cobra.Command {
	var group int
	var all bool

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch feeds from active sources",
		Long: `Runs a full ingestion cycle under the fetch lock, group by group.
Use --group to run a single group without locking, or --all to process
every source in one unlocked pass.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer repo.Close()
			ctx := context.Background()
			orchestrator := buildOrchestrator()

			if group > 0 {
				summary, err := orchestrator.RunGroup(ctx, group)
				if err != nil {
					return err
				}
				printSummary(summary)
				return nil
			}

			if all {
				summary, err := orchestrator.RunAll(ctx)
				if err != nil {
					return err
				}
				printSummary(summary)
				return nil
			}

			locker := ingest.NewLocker(repo, cfg.Lock.TTL, log)
			driver := ingest.NewDriver(locker, orchestrator, log)

			report, err := driver.Run(ctx, models.HolderAdmin)
			if err != nil {
				if conflict, ok := err.(*ingest.ConflictError); ok {
					fmt.Printf("Already running: locked by %s", conflict.Status.LockedBy)
					if conflict.Status.ExpiresAt != nil {
						fmt.Printf(", expires %s", conflict.Status.ExpiresAt.Format(time.RFC3339))
					}
					fmt.Println()
					return nil
				}
				return err
			}

			fmt.Printf("Groups run: %d\n", report.Groups.TotalGroups)
			printSummary(&report.Summary)
			for _, groupErr := range report.GroupErrors {
				fmt.Printf("  error: %s\n", groupErr)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&group, "group", 0, "run a single group (1-based)")
	cmd.Flags().BoolVar(&all, "all", false, "process all sources in one pass")

	return cmd
}

func printSummary(summary *models.FetchSummary) {
	fmt.Printf("Sources processed: %d\n", summary.SourcesProcessed)
	fmt.Printf("Articles added:    %d\n", summary.ArticlesAdded)
	fmt.Printf("Images updated:    %d\n", summary.ImagesUpdated)
	fmt.Printf("Errors:            %d\n", summary.Errors)
	for _, detail := range summary.Details {
		fmt.Printf("  %s: +%d ~%d filtered %d", detail.Source, detail.Added, detail.Updated, detail.Filtered)
		if len(detail.Errors) > 0 {
			fmt.Printf(" errors %d", len(detail.Errors))
		}
		fmt.Println()
	}
}

func cleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete articles past the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer repo.Close()

			sweeper := ingest.NewSweeper(
				repo,
				time.Duration(cfg.Retention.Days)*24*time.Hour,
				int64(cfg.Retention.ArticleFloor),
				log,
			)

			report, err := sweeper.Run(context.Background())
			if err != nil {
				return err
			}

			if report.Skipped {
				fmt.Printf("Skipped: deleting %d old articles would drop the corpus below the floor (total %d)\n",
					report.OldArticles, report.TotalBefore)
				return nil
			}
			fmt.Printf("Deleted %d articles older than %s\n", report.Deleted, report.Cutoff.Format(time.RFC3339))
			return nil
		},
	}
}

func sourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage RSS sources",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer repo.Close()

			sources, err := repo.ListSources(context.Background())
			if err != nil {
				return err
			}

			for _, src := range sources {
				status := "active"
				if !src.Active {
					status = "inactive"
				}
				fmt.Printf("%3d  [%s] %-10s %-24s %s\n", src.ID, src.Country, status, src.Name, src.RSSURL)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "seed",
		Short: "Load the default source set",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer repo.Close()
			ctx := context.Background()

			for i := range models.SeedSources {
				src := models.SeedSources[i]
				if err := repo.UpsertSourceByURL(ctx, &src); err != nil {
					return fmt.Errorf("failed to seed %s: %w", src.Name, err)
				}
				fmt.Printf("  + %s (%s)\n", src.Name, src.Country)
			}
			return nil
		},
	})

	var setActive bool
	activateCmd := &cobra.Command{
		Use:   "activate [id]",
		Short: "Activate or deactivate a source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer repo.Close()
			ctx := context.Background()

			var id uint
			if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
				return fmt.Errorf("invalid source id: %s", args[0])
			}

			src, err := repo.GetSourceByID(ctx, id)
			if err != nil {
				return err
			}
			src.Active = setActive
			if err := repo.UpdateSource(ctx, src); err != nil {
				return err
			}

			fmt.Printf("%s active=%v\n", src.Name, src.Active)
			return nil
		},
	}
	activateCmd.Flags().BoolVar(&setActive, "active", true, "desired active state")
	cmd.AddCommand(activateCmd)

	return cmd
}

func lockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lock",
		Short: "Inspect the fetch lock",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show current lock state",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer repo.Close()

			locker := ingest.NewLocker(repo, cfg.Lock.TTL, log)
			status := locker.Status(context.Background())
			if !status.IsLocked {
				fmt.Println("unlocked")
				return nil
			}
			fmt.Printf("locked by %s, expires %s\n", status.LockedBy, status.ExpiresAt.Format(time.RFC3339))
			return nil
		},
	})

	var holder string
	releaseCmd := &cobra.Command{
		Use:   "release",
		Short: "Release the lock held by the given holder",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer repo.Close()

			h := models.LockHolder(holder)
			if h != models.HolderAdmin && h != models.HolderCron {
				return fmt.Errorf("invalid holder: %s", holder)
			}

			locker := ingest.NewLocker(repo, cfg.Lock.TTL, log)
			released := locker.Release(context.Background(), h)
			fmt.Printf("released: %v\n", released)
			return nil
		},
	}
	releaseCmd.Flags().StringVar(&holder, "holder", string(models.HolderAdmin), "lock holder (admin or cron)")
	cmd.AddCommand(releaseCmd)

	return cmd
}
