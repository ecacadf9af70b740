package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lunalism/techisy/internal/ingest"
	"github.com/lunalism/techisy/internal/models"
)

// RunFetch invokes the orchestrator. Without a group parameter it
// processes every active source; with one it processes only that slice,
// letting a client drive ingestion incrementally without timing out.
func (s *Server) RunFetch(c *gin.Context) {
	info, err := s.orch.GroupInfo(c.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to resolve fetch groups")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch feeds"})
		return
	}

	raw := c.Query("group")
	if raw == "" {
		summary, err := s.orch.RunAll(c.Request.Context())
		if err != nil {
			s.log.Error().Err(err).Msg("Fetch run failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch feeds"})
			return
		}
		c.JSON(http.StatusOK, fetchResponse{Success: true, Group: "all", Summary: *summary, Meta: info})
		return
	}

	group, err := strconv.Atoi(raw)
	if err != nil || group < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group parameter"})
		return
	}

	summary, err := s.orch.RunGroup(c.Request.Context(), group)
	if err != nil {
		if errors.Is(err, ingest.ErrInvalidGroup) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group parameter"})
			return
		}
		s.log.Error().Err(err).Int("group", group).Msg("Fetch run failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch feeds"})
		return
	}

	c.JSON(http.StatusOK, fetchResponse{Success: true, Group: group, Summary: *summary, Meta: info})
}

// GetFetchGroups reports the current group partition, the discovery step
// of the client fetch protocol.
func (s *Server) GetFetchGroups(c *gin.Context) {
	info, err := s.orch.GroupInfo(c.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to resolve fetch groups")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch groups"})
		return
	}
	c.JSON(http.StatusOK, info)
}

// lockHolder resolves the holder identity for lock endpoints. Identity
// is taken at face value; authorization happens upstream.
func lockHolder(c *gin.Context) (models.LockHolder, bool) {
	raw := c.DefaultQuery("holder", string(models.HolderAdmin))
	holder := models.LockHolder(raw)
	if holder != models.HolderAdmin && holder != models.HolderCron {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid holder"})
		return "", false
	}
	return holder, true
}

// AcquireLock takes the ingestion lock, or answers 409 with the current
// holder and expiry so the client can show "already running".
func (s *Server) AcquireLock(c *gin.Context) {
	holder, ok := lockHolder(c)
	if !ok {
		return
	}

	result := s.locker.Acquire(c.Request.Context(), holder)
	if !result.Acquired {
		c.JSON(http.StatusConflict, gin.H{
			"error":     "Already fetching",
			"message":   "이미 수집 중입니다. 잠시 후 다시 시도해주세요.",
			"lockedBy":  result.Status.LockedBy,
			"expiresAt": result.Status.ExpiresAt,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Lock acquired",
		"expiresAt": result.Status.ExpiresAt,
	})
}

// ReleaseLock releases the lock if the caller still owns it.
func (s *Server) ReleaseLock(c *gin.Context) {
	holder, ok := lockHolder(c)
	if !ok {
		return
	}

	released := s.locker.Release(c.Request.Context(), holder)
	c.JSON(http.StatusOK, gin.H{"success": true, "released": released})
}

// GetLockStatus reports the current lock state.
func (s *Server) GetLockStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.locker.Status(c.Request.Context()))
}
