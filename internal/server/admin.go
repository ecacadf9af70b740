package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lunalism/techisy/internal/classifier"
	"github.com/lunalism/techisy/internal/models"
)

const recentArticleCount = 5

// GetStats serves the admin dashboard: totals, today's intake, and
// per-source / per-country breakdowns.
func (s *Server) GetStats(c *gin.Context) {
	ctx := c.Request.Context()

	total, err := s.repo.CountArticles(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Stats query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	today, err := s.repo.CountArticlesSince(ctx, midnight)
	if err != nil {
		s.log.Error().Err(err).Msg("Stats query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	sources, err := s.repo.ListSources(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Stats query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	activeSources, err := s.repo.CountActiveSources(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Stats query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	bySource, err := s.repo.CountArticlesBySource(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Stats query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	recent, err := s.repo.RecentArticles(ctx, recentArticleCount)
	if err != nil {
		s.log.Error().Err(err).Msg("Stats query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	colorMap := sourceColorMap(sources)
	countryMap := make(map[string]string, len(sources))
	for _, src := range sources {
		countryMap[src.Name] = src.Country
	}

	res := statsResponse{
		TotalArticles:    total,
		TodayArticles:    today,
		TotalSources:     int64(len(sources)),
		ActiveSources:    activeSources,
		ArticlesBySource: make([]sourceStat, 0, len(bySource)),
		RecentArticles:   decorateArticles(recent, colorMap),
	}

	for _, row := range bySource {
		color, ok := colorMap[row.Source]
		if !ok || color == "" {
			color = models.DefaultSourceColor
		}
		res.ArticlesBySource = append(res.ArticlesBySource, sourceStat{
			Name:  row.Source,
			Count: row.Count,
			Color: color,
		})
		switch countryMap[row.Source] {
		case models.CountryKR:
			res.ArticlesByKR += row.Count
		case models.CountryUS:
			res.ArticlesByUS += row.Count
		}
	}

	c.JSON(http.StatusOK, res)
}

// CleanupArticles performs an admin bulk cleanup. With deleteAll=true it
// wipes the article table; otherwise it re-runs the classifier over the
// stored titles and deletes everything that no longer passes.
func (s *Server) CleanupArticles(c *gin.Context) {
	ctx := c.Request.Context()

	if c.Query("deleteAll") == "true" {
		deleted, err := s.repo.DeleteAllArticles(ctx)
		if err != nil {
			s.log.Error().Err(err).Msg("Cleanup failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cleanup articles"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"deleted":   deleted,
			"remaining": 0,
			"mode":      "deleteAll",
		})
		return
	}

	articles, err := s.repo.ListArticleTitles(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Cleanup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cleanup articles"})
		return
	}

	var ids []uint
	var titles []string
	for _, article := range articles {
		if !classifier.ShouldInclude(article.Title) {
			ids = append(ids, article.ID)
			titles = append(titles, article.Title)
		}
	}

	deleted, err := s.repo.DeleteArticlesByID(ctx, ids)
	if err != nil {
		s.log.Error().Err(err).Msg("Cleanup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cleanup articles"})
		return
	}

	if len(titles) > 20 {
		titles = titles[:20]
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"deleted":       deleted,
		"remaining":     int64(len(articles)) - deleted,
		"mode":          "nonTech",
		"deletedTitles": titles,
	})
}

// RunRetentionSweep runs the retention sweeper once.
func (s *Server) RunRetentionSweep(c *gin.Context) {
	report, err := s.sweeper.Run(c.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("Retention sweep failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cleanup old articles"})
		return
	}

	message := fmt.Sprintf("Deleted %d old articles", report.Deleted)
	if report.Skipped {
		message = "Skipped cleanup to maintain minimum article count"
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
		"stats":   report,
	})
}
