package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/lunalism/techisy/internal/storage"
	"github.com/lunalism/techisy/pkg/logger"
)

// Retention defaults. Old articles are swept daily, but the corpus is
// never trimmed below the floor.
const (
	DefaultRetentionDays = 7
	DefaultArticleFloor  = 100
)

// Sweeper deletes articles older than the retention window. The policy
// is all-or-nothing per run: when deleting every qualifying article
// would drop the corpus below the floor, the whole sweep is skipped and
// reported with the would-be counts, rather than partially trimmed.
type Sweeper struct {
	repo      storage.Repository
	retention time.Duration
	floor     int64
	log       *logger.Logger
	now       func() time.Time
}

// NewSweeper creates a Sweeper. Non-positive retention or floor values
// fall back to the defaults.
func NewSweeper(repo storage.Repository, retention time.Duration, floor int64, log *logger.Logger) *Sweeper {
	if retention <= 0 {
		retention = DefaultRetentionDays * 24 * time.Hour
	}
	if floor <= 0 {
		floor = DefaultArticleFloor
	}
	return &Sweeper{
		repo:      repo,
		retention: retention,
		floor:     floor,
		log:       log.WithComponent("sweeper"),
		now:       time.Now,
	}
}

// SweepReport describes one sweep run.
type SweepReport struct {
	Skipped     bool      `json:"skipped"`
	TotalBefore int64     `json:"totalBefore"`
	OldArticles int64     `json:"oldArticles"`
	Deleted     int64     `json:"deleted"`
	Cutoff      time.Time `json:"cutoff"`
}

// Run executes one retention sweep.
func (s *Sweeper) Run(ctx context.Context) (*SweepReport, error) {
	cutoff := s.now().Add(-s.retention)

	total, err := s.repo.CountArticles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count articles: %w", err)
	}

	old, err := s.repo.CountArticlesOlderThan(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to count old articles: %w", err)
	}

	report := &SweepReport{TotalBefore: total, OldArticles: old, Cutoff: cutoff}

	remaining := total - old
	if remaining < s.floor && total >= s.floor {
		report.Skipped = true
		s.log.Info().
			Int64("total", total).
			Int64("old", old).
			Int64("floor", s.floor).
			Msg("Sweep skipped to maintain article floor")
		return report, nil
	}

	deleted, err := s.repo.DeleteArticlesOlderThan(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to delete old articles: %w", err)
	}
	report.Deleted = deleted

	s.log.Info().
		Int64("deleted", deleted).
		Time("cutoff", cutoff).
		Msg("Sweep completed")

	return report, nil
}
