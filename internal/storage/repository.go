package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lunalism/techisy/internal/models"
)

// Sentinel errors returned by repository implementations.
var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates a uniqueness violation on insert. The
	// ingestion pipeline treats it as "another writer got there first".
	ErrDuplicate = errors.New("duplicate key")
)

// Repository defines the interface for data persistence
type Repository interface {
	// Source operations
	CreateSource(ctx context.Context, source *models.Source) error
	GetSourceByID(ctx context.Context, id uint) (*models.Source, error)
	ListSources(ctx context.Context) ([]*models.Source, error)
	ListActiveSources(ctx context.Context) ([]*models.Source, error)
	CountActiveSources(ctx context.Context) (int64, error)
	UpdateSource(ctx context.Context, source *models.Source) error
	DeleteSource(ctx context.Context, id uint) error
	UpsertSourceByURL(ctx context.Context, source *models.Source) error

	// Article operations
	CreateArticle(ctx context.Context, article *models.Article) error
	GetArticleByURL(ctx context.Context, url string) (*models.Article, error)
	UpdateArticleImage(ctx context.Context, id uint, imageURL string) error
	ListArticles(ctx context.Context, filter ArticleFilter) ([]*models.Article, error)
	SearchArticles(ctx context.Context, query string, limit int) ([]*models.Article, error)
	ListArticleTitles(ctx context.Context) ([]*models.Article, error)
	RecentArticles(ctx context.Context, limit int) ([]*models.Article, error)
	CountArticles(ctx context.Context) (int64, error)
	CountArticlesSince(ctx context.Context, since time.Time) (int64, error)
	CountArticlesOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	CountArticlesBySource(ctx context.Context) ([]SourceCount, error)
	DeleteArticlesOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteArticlesBySource(ctx context.Context, sourceName string) (int64, error)
	DeleteArticlesByID(ctx context.Context, ids []uint) (int64, error)
	DeleteAllArticles(ctx context.Context) (int64, error)

	// Fetch-lock operations (singleton row keyed by models.FetchLockID)
	GetLock(ctx context.Context) (*models.FetchLock, error)
	CreateLock(ctx context.Context, lock *models.FetchLock) error
	UpdateLock(ctx context.Context, lock *models.FetchLock) error
	DeleteLock(ctx context.Context) error

	// Maintenance
	Close() error
	Migrate() error
}

// ArticleFilter defines filtering options for article listing
type ArticleFilter struct {
	Sources []string // restrict to these source names; empty means all
	Cursor  uint     // return articles with id < cursor; 0 means from the top
	Limit   int
}

// SourceCount is one row of the per-source article histogram
type SourceCount struct {
	Source string
	Count  int64
}

// IsSchemaMissing reports whether err looks like the backing table has
// not been provisioned yet. The lock service uses this to fail open
// during infra gaps instead of wedging all ingestion.
func IsSchemaMissing(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "no such table") ||
		strings.Contains(msg, "does not exist")
}
