// Package server exposes the ingestion pipeline and article store over
// HTTP. Authorization is an external concern: the lock and fetch
// endpoints trust the holder identity they are given.
package server

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/lunalism/techisy/internal/ingest"
	"github.com/lunalism/techisy/internal/storage"
	"github.com/lunalism/techisy/pkg/logger"
)

// Server wires repositories and ingestion services into gin handlers.
type Server struct {
	repo    storage.Repository
	orch    *ingest.Orchestrator
	locker  *ingest.Locker
	sweeper *ingest.Sweeper
	log     *logger.Logger
}

// New creates a Server.
func New(
	repo storage.Repository,
	orch *ingest.Orchestrator,
	locker *ingest.Locker,
	sweeper *ingest.Sweeper,
	log *logger.Logger,
) *Server {
	return &Server{
		repo:    repo,
		orch:    orch,
		locker:  locker,
		sweeper: sweeper,
		log:     log.WithComponent("server"),
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router(allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	if len(allowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: allowedOrigins,
			AllowMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type"},
		}))
	}

	r.GET("/health", s.GetHealth)

	api := r.Group("/api")
	{
		api.GET("/articles", s.GetArticles)
		api.DELETE("/articles/by-source", s.DeleteArticlesBySource)
		api.GET("/search", s.SearchArticles)

		api.GET("/sources", s.GetSources)
		api.POST("/sources", s.CreateSource)
		api.PATCH("/sources/:id", s.UpdateSource)
		api.DELETE("/sources/:id", s.DeleteSource)

		api.POST("/fetch", s.RunFetch)
		api.GET("/fetch/groups", s.GetFetchGroups)
		api.POST("/fetch/lock", s.AcquireLock)
		api.DELETE("/fetch/lock", s.ReleaseLock)
		api.GET("/fetch/lock", s.GetLockStatus)

		api.GET("/admin/stats", s.GetStats)
		api.POST("/admin/cleanup", s.CleanupArticles)
		api.POST("/cron/cleanup", s.RunRetentionSweep)
	}

	return r
}

// GetHealth reports liveness.
func (s *Server) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
