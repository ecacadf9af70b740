package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lunalism/techisy/internal/models"
	"github.com/lunalism/techisy/internal/storage"
)

// Repository implements storage.Repository using SQLite
type Repository struct {
	db *gorm.DB
}

// New creates a new SQLite repository
func New(dsn string) (*Repository, error) {
	// Ensure directory exists
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" && !strings.HasPrefix(dsn, ":memory:") {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Repository{db: db}, nil
}

// Migrate runs database migrations
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(
		&models.Source{},
		&models.Article{},
		&models.FetchLock{},
	)
}

// Close closes the database connection
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// translate maps gorm errors onto the storage sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return storage.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey),
		strings.Contains(err.Error(), "UNIQUE constraint failed"):
		return storage.ErrDuplicate
	default:
		return err
	}
}

// Source operations

func (r *Repository) CreateSource(ctx context.Context, source *models.Source) error {
	return translate(r.db.WithContext(ctx).Create(source).Error)
}

func (r *Repository) GetSourceByID(ctx context.Context, id uint) (*models.Source, error) {
	var source models.Source
	if err := r.db.WithContext(ctx).First(&source, id).Error; err != nil {
		return nil, translate(err)
	}
	return &source, nil
}

func (r *Repository) ListSources(ctx context.Context) ([]*models.Source, error) {
	var sources []*models.Source
	err := r.db.WithContext(ctx).
		Order("country ASC, name ASC").
		Find(&sources).Error
	if err != nil {
		return nil, err
	}
	return sources, nil
}

// ListActiveSources returns active sources in creation order. The fetch
// orchestrator relies on this ordering being stable across calls so that
// group N always means the same slice within one ingestion cycle.
func (r *Repository) ListActiveSources(ctx context.Context) ([]*models.Source, error) {
	var sources []*models.Source
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("created_at ASC, id ASC").
		Find(&sources).Error
	if err != nil {
		return nil, err
	}
	return sources, nil
}

func (r *Repository) CountActiveSources(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Source{}).
		Where("active = ?", true).
		Count(&count).Error
	return count, err
}

func (r *Repository) UpdateSource(ctx context.Context, source *models.Source) error {
	return translate(r.db.WithContext(ctx).Save(source).Error)
}

func (r *Repository) DeleteSource(ctx context.Context, id uint) error {
	return translate(r.db.WithContext(ctx).Delete(&models.Source{}, id).Error)
}

// UpsertSourceByURL creates the source or refreshes name/country on the
// existing row with the same feed URL. Used by seeding.
func (r *Repository) UpsertSourceByURL(ctx context.Context, source *models.Source) error {
	var existing models.Source
	err := r.db.WithContext(ctx).Where("rss_url = ?", source.RSSURL).First(&existing).Error
	if err == nil {
		existing.Name = source.Name
		existing.Country = source.Country
		return r.db.WithContext(ctx).Save(&existing).Error
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return translate(r.db.WithContext(ctx).Create(source).Error)
	}
	return err
}

// Article operations

func (r *Repository) CreateArticle(ctx context.Context, article *models.Article) error {
	return translate(r.db.WithContext(ctx).Create(article).Error)
}

func (r *Repository) GetArticleByURL(ctx context.Context, url string) (*models.Article, error) {
	var article models.Article
	if err := r.db.WithContext(ctx).Where("url = ?", url).First(&article).Error; err != nil {
		return nil, translate(err)
	}
	return &article, nil
}

func (r *Repository) UpdateArticleImage(ctx context.Context, id uint, imageURL string) error {
	return r.db.WithContext(ctx).
		Model(&models.Article{}).
		Where("id = ?", id).
		Update("image_url", imageURL).Error
}

func (r *Repository) ListArticles(ctx context.Context, filter storage.ArticleFilter) ([]*models.Article, error) {
	var articles []*models.Article
	query := r.db.WithContext(ctx).Model(&models.Article{})

	if len(filter.Sources) > 0 {
		query = query.Where("source IN ?", filter.Sources)
	}
	if filter.Cursor > 0 {
		query = query.Where("id < ?", filter.Cursor)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	err := query.Order("published_at DESC, created_at DESC").Find(&articles).Error
	if err != nil {
		return nil, err
	}
	return articles, nil
}

func (r *Repository) SearchArticles(ctx context.Context, query string, limit int) ([]*models.Article, error) {
	var articles []*models.Article
	err := r.db.WithContext(ctx).
		Where("title LIKE ?", "%"+query+"%").
		Order("published_at DESC, created_at DESC").
		Limit(limit).
		Find(&articles).Error
	if err != nil {
		return nil, err
	}
	return articles, nil
}

// ListArticleTitles returns id and title only, for the non-tech cleanup
// pass that re-runs the classifier over the stored corpus.
func (r *Repository) ListArticleTitles(ctx context.Context) ([]*models.Article, error) {
	var articles []*models.Article
	err := r.db.WithContext(ctx).
		Select("id", "title").
		Find(&articles).Error
	if err != nil {
		return nil, err
	}
	return articles, nil
}

func (r *Repository) RecentArticles(ctx context.Context, limit int) ([]*models.Article, error) {
	var articles []*models.Article
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&articles).Error
	if err != nil {
		return nil, err
	}
	return articles, nil
}

func (r *Repository) CountArticles(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Article{}).Count(&count).Error
	return count, err
}

func (r *Repository) CountArticlesSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Article{}).
		Where("created_at >= ?", since).
		Count(&count).Error
	return count, err
}

func (r *Repository) CountArticlesOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Article{}).
		Where("created_at < ?", cutoff).
		Count(&count).Error
	return count, err
}

func (r *Repository) CountArticlesBySource(ctx context.Context) ([]storage.SourceCount, error) {
	var counts []storage.SourceCount
	err := r.db.WithContext(ctx).
		Model(&models.Article{}).
		Select("source AS source, COUNT(*) AS count").
		Group("source").
		Order("count DESC").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *Repository) DeleteArticlesOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.Article{})
	return result.RowsAffected, result.Error
}

func (r *Repository) DeleteArticlesBySource(ctx context.Context, sourceName string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("source = ?", sourceName).
		Delete(&models.Article{})
	return result.RowsAffected, result.Error
}

func (r *Repository) DeleteArticlesByID(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&models.Article{})
	return result.RowsAffected, result.Error
}

func (r *Repository) DeleteAllArticles(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("1 = 1").
		Delete(&models.Article{})
	return result.RowsAffected, result.Error
}

// Fetch-lock operations

func (r *Repository) GetLock(ctx context.Context) (*models.FetchLock, error) {
	var lock models.FetchLock
	err := r.db.WithContext(ctx).
		Where("id = ?", models.FetchLockID).
		First(&lock).Error
	if err != nil {
		return nil, translate(err)
	}
	return &lock, nil
}

func (r *Repository) CreateLock(ctx context.Context, lock *models.FetchLock) error {
	return translate(r.db.WithContext(ctx).Create(lock).Error)
}

func (r *Repository) UpdateLock(ctx context.Context, lock *models.FetchLock) error {
	return translate(r.db.WithContext(ctx).Save(lock).Error)
}

func (r *Repository) DeleteLock(ctx context.Context) error {
	return translate(r.db.WithContext(ctx).
		Where("id = ?", models.FetchLockID).
		Delete(&models.FetchLock{}).Error)
}

// Ensure Repository implements storage.Repository
var _ storage.Repository = (*Repository)(nil)
