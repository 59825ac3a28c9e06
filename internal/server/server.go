package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Kirtibisht11/crisisnet-sub000/internal/engine"
	"github.com/Kirtibisht11/crisisnet-sub000/internal/handler"
)

// Server hosts the trust engine HTTP API.
type Server struct {
	router *gin.Engine
	logger *zap.Logger
}

// NewServer wires routes for the given engine.
func NewServer(eng *engine.Engine, registry *prometheus.Registry, logger *zap.Logger) *Server {
	router := gin.Default()

	s := &Server{
		router: router,
		logger: logger,
	}
	s.setupRoutes(eng, registry)
	return s
}

func (s *Server) setupRoutes(eng *engine.Engine, registry *prometheus.Registry) {
	alertHandler := handler.NewAlertHandler(eng, s.logger)

	// Ping route for health check
	s.router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	if registry != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	api := s.router.Group("/api")
	{
		api.POST("/alerts", alertHandler.SubmitAlert)
		api.POST("/feedback", alertHandler.Feedback)
		api.GET("/decisions/:alert_id", alertHandler.GetDecision)
	}
}

// Run starts the HTTP server and blocks.
func (s *Server) Run(addr string) {
	s.logger.Info("Server starting", zap.String("addr", addr))
	if err := s.router.Run(addr); err != nil {
		s.logger.Fatal("Server failed to start", zap.Error(err))
	}
}
