package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunalism/techisy/internal/models"
	"github.com/lunalism/techisy/internal/storage"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(":memory:")
	require.NoError(t, err)
	require.NoError(t, repo.Migrate())
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestCreateArticle_URLIsSoleDedupKey(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first := &models.Article{Title: "One", URL: "https://example.com/a", Source: "Feed"}
	require.NoError(t, repo.CreateArticle(ctx, first))

	// Same link, different title: must not produce a second row.
	dup := &models.Article{Title: "One (updated)", URL: "https://example.com/a", Source: "Feed"}
	err := repo.CreateArticle(ctx, dup)
	assert.ErrorIs(t, err, storage.ErrDuplicate)

	count, err := repo.CountArticles(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestGetArticleByURL_NotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetArticleByURL(context.Background(), "https://example.com/missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpdateArticleImage(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	article := &models.Article{Title: "One", URL: "https://example.com/a", Source: "Feed"}
	require.NoError(t, repo.CreateArticle(ctx, article))
	require.NoError(t, repo.UpdateArticleImage(ctx, article.ID, "https://cdn.example.com/a.jpg"))

	got, err := repo.GetArticleByURL(ctx, article.URL)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/a.jpg", got.ImageURL)
}

func TestListActiveSources_CreationOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, name := range []string{"zeta", "alpha", "mid"} {
		src := &models.Source{
			Name:      name,
			RSSURL:    "https://example.com/" + name,
			Country:   models.CountryUS,
			Active:    true,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.CreateSource(ctx, src))
	}
	inactive := &models.Source{Name: "off", RSSURL: "https://example.com/off", Country: models.CountryKR, Active: false}
	require.NoError(t, repo.CreateSource(ctx, inactive))

	sources, err := repo.ListActiveSources(ctx)
	require.NoError(t, err)
	require.Len(t, sources, 3)

	// Creation order, not name order: group N must mean the same slice
	// on every call.
	assert.Equal(t, "zeta", sources[0].Name)
	assert.Equal(t, "alpha", sources[1].Name)
	assert.Equal(t, "mid", sources[2].Name)
}

func TestUpsertSourceByURL(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	src := &models.Source{Name: "Old Name", RSSURL: "https://example.com/feed", Country: models.CountryUS, Active: true}
	require.NoError(t, repo.UpsertSourceByURL(ctx, src))

	renamed := &models.Source{Name: "New Name", RSSURL: "https://example.com/feed", Country: models.CountryKR}
	require.NoError(t, repo.UpsertSourceByURL(ctx, renamed))

	sources, err := repo.ListSources(ctx)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "New Name", sources[0].Name)
	assert.Equal(t, models.CountryKR, sources[0].Country)
	// Active flag is admin-managed and untouched by seeding.
	assert.True(t, sources[0].Active)
}

func TestDeleteArticlesOlderThan(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	now := time.Now()
	old := &models.Article{Title: "Old", URL: "https://example.com/old", Source: "Feed", CreatedAt: now.Add(-48 * time.Hour)}
	fresh := &models.Article{Title: "Fresh", URL: "https://example.com/fresh", Source: "Feed", CreatedAt: now}
	require.NoError(t, repo.CreateArticle(ctx, old))
	require.NoError(t, repo.CreateArticle(ctx, fresh))

	cutoff := now.Add(-24 * time.Hour)

	count, err := repo.CountArticlesOlderThan(ctx, cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	deleted, err := repo.DeleteArticlesOlderThan(ctx, cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	remaining, err := repo.CountArticles(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, remaining)
}

func TestCountArticlesBySource(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i, source := range []string{"A", "A", "B"} {
		article := &models.Article{
			Title:  "t",
			URL:    "https://example.com/" + string(rune('a'+i)),
			Source: source,
		}
		require.NoError(t, repo.CreateArticle(ctx, article))
	}

	counts, err := repo.CountArticlesBySource(ctx)
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, "A", counts[0].Source)
	assert.EqualValues(t, 2, counts[0].Count)
}

func TestLockRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.GetLock(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	lock := &models.FetchLock{
		ID:        models.FetchLockID,
		LockedAt:  time.Now(),
		LockedBy:  models.HolderAdmin,
		ExpiresAt: time.Now().Add(5 * time.Minute),
	}
	require.NoError(t, repo.CreateLock(ctx, lock))

	// Second create hits the primary key.
	err = repo.CreateLock(ctx, &models.FetchLock{
		ID:        models.FetchLockID,
		LockedAt:  time.Now(),
		LockedBy:  models.HolderCron,
		ExpiresAt: time.Now().Add(5 * time.Minute),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicate)

	got, err := repo.GetLock(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.HolderAdmin, got.LockedBy)

	require.NoError(t, repo.DeleteLock(ctx))
	_, err = repo.GetLock(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListArticles_CursorPagination(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	published := time.Now()
	for i := 0; i < 5; i++ {
		ts := published.Add(-time.Duration(i) * time.Hour)
		article := &models.Article{
			Title:       "t",
			URL:         "https://example.com/p" + string(rune('0'+i)),
			Source:      "Feed",
			PublishedAt: &ts,
		}
		require.NoError(t, repo.CreateArticle(ctx, article))
	}

	page, err := repo.ListArticles(ctx, storage.ArticleFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)

	next, err := repo.ListArticles(ctx, storage.ArticleFilter{Cursor: page[1].ID, Limit: 10})
	require.NoError(t, err)
	for _, article := range next {
		assert.Less(t, article.ID, page[1].ID)
	}
}
