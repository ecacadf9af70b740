package ingest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunalism/techisy/internal/models"
	"github.com/lunalism/techisy/internal/storage"
	"github.com/lunalism/techisy/pkg/logger"
)

func seedArticles(t *testing.T, repo storage.Repository, fresh, old int) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()
	for i := 0; i < fresh; i++ {
		require.NoError(t, repo.CreateArticle(ctx, &models.Article{
			Title:     "fresh",
			URL:       fmt.Sprintf("https://example.com/fresh/%d", i),
			Source:    "Feed",
			CreatedAt: now.Add(-time.Hour),
		}))
	}
	for i := 0; i < old; i++ {
		require.NoError(t, repo.CreateArticle(ctx, &models.Article{
			Title:     "old",
			URL:       fmt.Sprintf("https://example.com/old/%d", i),
			Source:    "Feed",
			CreatedAt: now.Add(-14 * 24 * time.Hour),
		}))
	}
}

func TestSweep_DeletesOldArticles(t *testing.T) {
	repo := newIngestRepo(t)
	seedArticles(t, repo, 12, 3) // 15 total, deleting 3 keeps 12 >= floor 10

	sweeper := NewSweeper(repo, 7*24*time.Hour, 10, logger.Discard())
	report, err := sweeper.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, report.Skipped)
	assert.EqualValues(t, 15, report.TotalBefore)
	assert.EqualValues(t, 3, report.OldArticles)
	assert.EqualValues(t, 3, report.Deleted)

	count, err := repo.CountArticles(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 12, count)
}

func TestSweep_SkippedEntirelyWhenFloorWouldBreak(t *testing.T) {
	repo := newIngestRepo(t)
	seedArticles(t, repo, 9, 3) // 12 total, deleting 3 would leave 9 < floor 10

	sweeper := NewSweeper(repo, 7*24*time.Hour, 10, logger.Discard())
	report, err := sweeper.Run(context.Background())
	require.NoError(t, err)

	// All-or-nothing: the sweep does not trim down to exactly the floor.
	assert.True(t, report.Skipped)
	assert.EqualValues(t, 12, report.TotalBefore)
	assert.EqualValues(t, 3, report.OldArticles)
	assert.EqualValues(t, 0, report.Deleted)

	count, err := repo.CountArticles(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 12, count)
}

func TestSweep_RunsWhenCorpusAlreadyBelowFloor(t *testing.T) {
	repo := newIngestRepo(t)
	seedArticles(t, repo, 2, 3) // 5 total, already below floor 10

	sweeper := NewSweeper(repo, 7*24*time.Hour, 10, logger.Discard())
	report, err := sweeper.Run(context.Background())
	require.NoError(t, err)

	// The floor only protects a corpus that currently satisfies it.
	assert.False(t, report.Skipped)
	assert.EqualValues(t, 3, report.Deleted)
}

func TestSweep_NothingOld(t *testing.T) {
	repo := newIngestRepo(t)
	seedArticles(t, repo, 12, 0)

	sweeper := NewSweeper(repo, 7*24*time.Hour, 10, logger.Discard())
	report, err := sweeper.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, report.Skipped)
	assert.EqualValues(t, 0, report.Deleted)
}
