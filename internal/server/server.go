package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hummingbird/internal/app"
)

// Server exposes the monitor over HTTP.
type Server struct {
	router *gin.Engine
	app    *app.App
}

// New creates a new server instance
func New(a *app.App) *Server {
	s := &Server{
		app:    a,
		router: gin.Default(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleHealthCheck())
	s.router.GET("/v1/status", s.handleStatus())

	s.router.POST("/v1/identify", s.handleIdentify())

	s.router.POST("/v1/birds", s.handleRegisterBird())
	s.router.GET("/v1/birds", s.handleListBirds())
	s.router.GET("/v1/birds/:id", s.handleGetBird())
	s.router.PUT("/v1/birds/:id", s.handleRenameBird())
	s.router.DELETE("/v1/birds/:id", s.handleDeleteBird())
	s.router.PUT("/v1/birds/:id/embedding", s.handleUpdateEmbedding())
	s.router.GET("/v1/birds/:id/embedding", s.handleGetEmbedding())
	s.router.GET("/v1/birds/:id/visits", s.handleBirdVisits())

	s.router.POST("/v1/index/search", s.handleSearchIndex())
	s.router.GET("/v1/index/stats", s.handleIndexStats())
	s.router.POST("/v1/index/rebuild", s.handleRebuildIndex())

	s.router.GET("/v1/visits", s.handleRecentVisits())
	s.router.GET("/v1/visits/daily", s.handleDailyVisits())

	s.router.GET("/v1/alerts", s.handleActiveAlerts())
	s.router.POST("/v1/alerts/:id/acknowledge", s.handleAcknowledgeAlert())
	s.router.GET("/v1/feeders/:id/status", s.handleFeederStatus())

	s.router.POST("/v1/summaries/generate", s.handleGenerateSummary())
	s.router.GET("/v1/summaries", s.handleListSummaries())
}

// Handler returns the HTTP handler for serving.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run starts the server on addr.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}
