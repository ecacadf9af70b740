package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lunalism/techisy/internal/models"
	"github.com/lunalism/techisy/internal/storage"
)

// GetSources lists all sources, active or not, ordered by country then name.
func (s *Server) GetSources(c *gin.Context) {
	sources, err := s.repo.ListSources(c.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list sources")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	c.JSON(http.StatusOK, sources)
}

// CreateSource registers a new RSS source.
func (s *Server) CreateSource(c *gin.Context) {
	var req createSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid data", "details": err.Error()})
		return
	}
	if req.Color != "" && !hexColorPattern.MatchString(req.Color) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid data", "details": "color must be a hex string"})
		return
	}

	source := &models.Source{
		Name:    req.Name,
		RSSURL:  req.RSSURL,
		Country: req.Country,
		Active:  true,
		Color:   req.Color,
	}
	if req.Active != nil {
		source.Active = *req.Active
	}
	if source.Color == "" {
		source.Color = models.DefaultSourceColor
	}

	if err := s.repo.CreateSource(c.Request.Context(), source); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "A source with this RSS URL already exists"})
			return
		}
		s.log.Error().Err(err).Msg("Failed to create source")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusCreated, source)
}

// UpdateSource applies a partial edit to a source. Sources are never
// deleted by ingestion; deactivation is the normal retirement path.
func (s *Server) UpdateSource(c *gin.Context) {
	id, ok := parseSourceID(c)
	if !ok {
		return
	}

	var req updateSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid data", "details": err.Error()})
		return
	}
	if req.Country != nil && *req.Country != models.CountryUS && *req.Country != models.CountryKR {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid data", "details": "country must be US or KR"})
		return
	}
	if req.Color != nil && !hexColorPattern.MatchString(*req.Color) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid data", "details": "color must be a hex string"})
		return
	}

	source, err := s.repo.GetSourceByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Source not found"})
			return
		}
		s.log.Error().Err(err).Msg("Failed to load source")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if req.Name != nil {
		source.Name = *req.Name
	}
	if req.RSSURL != nil {
		source.RSSURL = *req.RSSURL
	}
	if req.Country != nil {
		source.Country = *req.Country
	}
	if req.Active != nil {
		source.Active = *req.Active
	}
	if req.Color != nil {
		source.Color = *req.Color
	}

	if err := s.repo.UpdateSource(c.Request.Context(), source); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "A source with this RSS URL already exists"})
			return
		}
		s.log.Error().Err(err).Msg("Failed to update source")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, source)
}

// DeleteSource removes a source row. Its articles keep referencing the
// source by name and are unaffected.
func (s *Server) DeleteSource(c *gin.Context) {
	id, ok := parseSourceID(c)
	if !ok {
		return
	}

	if err := s.repo.DeleteSource(c.Request.Context(), id); err != nil {
		s.log.Error().Err(err).Msg("Failed to delete source")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func parseSourceID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid source id"})
		return 0, false
	}
	return uint(id), true
}
