package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lunalism/techisy/internal/classifier"
	"github.com/lunalism/techisy/internal/feed"
	"github.com/lunalism/techisy/internal/models"
	"github.com/lunalism/techisy/internal/scraper"
	"github.com/lunalism/techisy/internal/storage"
	"github.com/lunalism/techisy/pkg/logger"
	"github.com/lunalism/techisy/pkg/ratelimit"
)

// DefaultGroupSize is how many sources one RunGroup call processes.
const DefaultGroupSize = 3

// ErrInvalidGroup is returned for group numbers below 1. Overshooting
// the last group is not an error; it yields an empty summary.
var ErrInvalidGroup = errors.New("invalid group number")

// Orchestrator runs the per-source ingestion pipeline (feed reader →
// classifier → article upsert) over slices of the active source set.
// Each call is independent and idempotent with respect to articles that
// are already ingested.
type Orchestrator struct {
	repo      storage.Repository
	reader    *feed.Reader
	scraper   scraper.ImageScraper
	limiter   *ratelimit.MultiLimiter
	groupSize int
	log       *logger.Logger
}

// NewOrchestrator creates an Orchestrator. A groupSize below 1 falls
// back to DefaultGroupSize.
func NewOrchestrator(
	repo storage.Repository,
	reader *feed.Reader,
	imageScraper scraper.ImageScraper,
	limiter *ratelimit.MultiLimiter,
	groupSize int,
	log *logger.Logger,
) *Orchestrator {
	if groupSize < 1 {
		groupSize = DefaultGroupSize
	}
	return &Orchestrator{
		repo:      repo,
		reader:    reader,
		scraper:   imageScraper,
		limiter:   limiter,
		groupSize: groupSize,
		log:       log.WithComponent("orchestrator"),
	}
}

// GroupInfo reports how the current active source set partitions into
// fixed-size groups.
func (o *Orchestrator) GroupInfo(ctx context.Context) (models.GroupInfo, error) {
	count, err := o.repo.CountActiveSources(ctx)
	if err != nil {
		return models.GroupInfo{}, fmt.Errorf("failed to count active sources: %w", err)
	}
	total := int(count)
	return models.GroupInfo{
		TotalSources:    total,
		TotalGroups:     (total + o.groupSize - 1) / o.groupSize,
		SourcesPerGroup: o.groupSize,
	}, nil
}

// RunAll processes every active source in one call. Used by small
// deployments and the background cron job.
func (o *Orchestrator) RunAll(ctx context.Context) (*models.FetchSummary, error) {
	sources, err := o.repo.ListActiveSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sources: %w", err)
	}
	return o.processSources(ctx, sources), nil
}

// RunGroup processes the group-th fixed-size slice of the active source
// ordering (1-based). Group numbers past the last group succeed with an
// all-zero summary so callers can overshoot without special-casing.
func (o *Orchestrator) RunGroup(ctx context.Context, group int) (*models.FetchSummary, error) {
	if group < 1 {
		return nil, ErrInvalidGroup
	}

	sources, err := o.repo.ListActiveSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sources: %w", err)
	}

	start := (group - 1) * o.groupSize
	if start >= len(sources) {
		return emptySummary(), nil
	}
	end := start + o.groupSize
	if end > len(sources) {
		end = len(sources)
	}

	return o.processSources(ctx, sources[start:end]), nil
}

func emptySummary() *models.FetchSummary {
	return &models.FetchSummary{Details: []models.FetchResult{}}
}

// processSources runs the pipeline source by source. Sources are handled
// sequentially to bound load on upstream feed servers; one source's
// failure never stops the rest.
func (o *Orchestrator) processSources(ctx context.Context, sources []*models.Source) *models.FetchSummary {
	summary := emptySummary()
	start := time.Now()

	for _, src := range sources {
		summary.Merge(o.processSource(ctx, src))
	}

	o.log.Info().
		Int("sources", summary.SourcesProcessed).
		Int("added", summary.ArticlesAdded).
		Int("images_updated", summary.ImagesUpdated).
		Int("errors", summary.Errors).
		Dur("duration", time.Since(start)).
		Msg("Fetch pass completed")

	return summary
}

func (o *Orchestrator) processSource(ctx context.Context, src *models.Source) models.FetchResult {
	result := models.FetchResult{Source: src.Name, Errors: []string{}}
	log := o.log.WithSource(src.Name)

	if err := o.limiter.Wait(ctx, ratelimit.LimiterRSS); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Rate limit wait aborted: %v", err))
		return result
	}

	items, err := o.reader.Fetch(ctx, src.RSSURL)
	if err != nil {
		log.Warn().Err(err).Msg("Feed fetch failed")
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to fetch feed: %v", err))
		return result
	}

	for _, item := range items {
		if !classifier.ShouldInclude(item.Title) {
			result.Filtered++
			continue
		}
		o.upsertArticle(ctx, src, item, &result)
	}

	log.Info().
		Int("added", result.Added).
		Int("updated", result.Updated).
		Int("filtered", result.Filtered).
		Int("errors", len(result.Errors)).
		Msg("Source processed")

	return result
}

// upsertArticle persists one accepted item. The URL is the sole dedup
// key: a uniqueness violation on insert means another writer already has
// the row and is treated as a successful no-op. Existing rows are only
// touched to backfill a missing image.
func (o *Orchestrator) upsertArticle(ctx context.Context, src *models.Source, item feed.Item, result *models.FetchResult) {
	existing, err := o.repo.GetArticleByURL(ctx, item.Link)
	switch {
	case err == nil:
		if existing.ImageURL != "" {
			return
		}
		imageURL := o.scrapeImage(ctx, item.Link)
		if imageURL == "" {
			return
		}
		if err := o.repo.UpdateArticleImage(ctx, existing.ID, imageURL); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Failed to update image: %s", item.Title))
			return
		}
		result.Updated++

	case errors.Is(err, storage.ErrNotFound):
		publishedAt := item.PublishedAt
		article := &models.Article{
			Title:       item.Title,
			URL:         item.Link,
			Source:      src.Name,
			SourceURL:   src.RSSURL,
			ImageURL:    o.scrapeImage(ctx, item.Link),
			PublishedAt: &publishedAt,
		}
		if err := o.repo.CreateArticle(ctx, article); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				// Concurrent writer won the insert race.
				return
			}
			result.Errors = append(result.Errors, fmt.Sprintf("Failed to save: %s", item.Title))
			return
		}
		result.Added++

	default:
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to look up: %s", item.Title))
	}
}

// scrapeImage is best-effort: failures degrade to "no thumbnail".
func (o *Orchestrator) scrapeImage(ctx context.Context, pageURL string) string {
	if o.scraper == nil {
		return ""
	}
	if err := o.limiter.Wait(ctx, ratelimit.LimiterScrape); err != nil {
		return ""
	}
	return o.scraper.ScrapeImage(ctx, pageURL)
}
