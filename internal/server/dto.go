package server

import (
	"regexp"

	"github.com/lunalism/techisy/internal/models"
)

var hexColorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// createSourceRequest is the payload for POST /api/sources.
type createSourceRequest struct {
	Name    string `json:"name" binding:"required"`
	RSSURL  string `json:"rssUrl" binding:"required,url"`
	Country string `json:"country" binding:"required,oneof=US KR"`
	Active  *bool  `json:"active"`
	Color   string `json:"color"`
}

// updateSourceRequest is the payload for PATCH /api/sources/:id.
// All fields are optional; only provided fields are applied.
type updateSourceRequest struct {
	Name    *string `json:"name"`
	RSSURL  *string `json:"rssUrl"`
	Country *string `json:"country"`
	Active  *bool   `json:"active"`
	Color   *string `json:"color"`
}

// articleResponse decorates an article with its source's display color.
type articleResponse struct {
	models.Article
	SourceColor string `json:"sourceColor"`
}

// articleListResponse is the cursor-paginated article feed.
type articleListResponse struct {
	Articles   []articleResponse `json:"articles"`
	NextCursor uint              `json:"nextCursor,omitempty"`
	HasMore    bool              `json:"hasMore"`
}

// searchResponse is the title-search result set.
type searchResponse struct {
	Articles []articleResponse `json:"articles"`
	Count    int               `json:"count"`
	Query    string            `json:"query"`
	Message  string            `json:"message,omitempty"`
}

// fetchResponse wraps one orchestrator invocation.
type fetchResponse struct {
	Success bool                `json:"success"`
	Group   interface{}         `json:"group"` // group number, or "all"
	Summary models.FetchSummary `json:"summary"`
	Meta    models.GroupInfo    `json:"meta"`
}

// sourceStat is one bar of the per-source article histogram.
type sourceStat struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
	Color string `json:"color"`
}

// statsResponse is the admin dashboard payload.
type statsResponse struct {
	TotalArticles    int64             `json:"totalArticles"`
	TodayArticles    int64             `json:"todayArticles"`
	TotalSources     int64             `json:"totalSources"`
	ActiveSources    int64             `json:"activeSources"`
	ArticlesBySource []sourceStat      `json:"articlesBySource"`
	ArticlesByKR     int64             `json:"articlesByKR"`
	ArticlesByUS     int64             `json:"articlesByUS"`
	RecentArticles   []articleResponse `json:"recentArticles"`
}
