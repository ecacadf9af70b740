package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lunalism/techisy/internal/models"
	"github.com/lunalism/techisy/internal/storage"
)

const (
	defaultFeedLimit = 50
	maxFeedLimit     = 100
	searchTake       = 20
)

// GetArticles serves the cursor-paginated article feed. The tab filter
// partitions by the source's country: all, global (US) or korea (KR).
func (s *Server) GetArticles(c *gin.Context) {
	tab := c.DefaultQuery("tab", "all")
	if tab != "all" && tab != "global" && tab != "korea" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid parameters"})
		return
	}

	limit := defaultFeedLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxFeedLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid parameters"})
			return
		}
		limit = parsed
	}

	var cursor uint
	if raw := c.Query("cursor"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid parameters"})
			return
		}
		cursor = uint(parsed)
	}

	sources, err := s.repo.ListActiveSources(c.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list sources")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	colorMap := sourceColorMap(sources)

	filter := storage.ArticleFilter{Cursor: cursor, Limit: limit + 1}
	switch tab {
	case "global":
		filter.Sources = sourceNamesByCountry(sources, models.CountryUS)
	case "korea":
		filter.Sources = sourceNamesByCountry(sources, models.CountryKR)
	}
	if tab != "all" && len(filter.Sources) == 0 {
		// No active sources for this tab; an unfiltered query would
		// return everything.
		c.JSON(http.StatusOK, articleListResponse{Articles: []articleResponse{}})
		return
	}

	articles, err := s.repo.ListArticles(c.Request.Context(), filter)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list articles")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	hasMore := len(articles) > limit
	if hasMore {
		articles = articles[:limit]
	}

	res := articleListResponse{
		Articles: decorateArticles(articles, colorMap),
		HasMore:  hasMore,
	}
	if hasMore && len(articles) > 0 {
		res.NextCursor = articles[len(articles)-1].ID
	}

	c.JSON(http.StatusOK, res)
}

// SearchArticles searches article titles. Queries under two characters
// return an empty result with a hint instead of an error.
func (s *Server) SearchArticles(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if len([]rune(query)) < 2 {
		c.JSON(http.StatusOK, searchResponse{
			Articles: []articleResponse{},
			Message:  "검색어를 2자 이상 입력해주세요",
		})
		return
	}

	sources, err := s.repo.ListSources(c.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list sources")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	articles, err := s.repo.SearchArticles(c.Request.Context(), query, searchTake)
	if err != nil {
		s.log.Error().Err(err).Msg("Search failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	decorated := decorateArticles(articles, sourceColorMap(sources))
	c.JSON(http.StatusOK, searchResponse{
		Articles: decorated,
		Count:    len(decorated),
		Query:    query,
	})
}

// DeleteArticlesBySource bulk-deletes every article of one source.
func (s *Server) DeleteArticlesBySource(c *gin.Context) {
	sourceName := c.Query("source")
	if sourceName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Source name is required"})
		return
	}

	deleted, err := s.repo.DeleteArticlesBySource(c.Request.Context(), sourceName)
	if err != nil {
		s.log.Error().Err(err).Str("source", sourceName).Msg("Failed to delete articles")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "deleted": deleted})
}

func sourceColorMap(sources []*models.Source) map[string]string {
	m := make(map[string]string, len(sources))
	for _, src := range sources {
		m[src.Name] = src.Color
	}
	return m
}

func sourceNamesByCountry(sources []*models.Source, country string) []string {
	names := make([]string, 0, len(sources))
	for _, src := range sources {
		if src.Country == country {
			names = append(names, src.Name)
		}
	}
	return names
}

func decorateArticles(articles []*models.Article, colors map[string]string) []articleResponse {
	decorated := make([]articleResponse, 0, len(articles))
	for _, article := range articles {
		color, ok := colors[article.Source]
		if !ok || color == "" {
			color = models.DefaultSourceColor
		}
		decorated = append(decorated, articleResponse{Article: *article, SourceColor: color})
	}
	return decorated
}
