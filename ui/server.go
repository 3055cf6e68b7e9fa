// Package ui serves the HTTP API.
package ui

import (
	"context"
	"log"
	"net/http"
	"time"

	"vizora/app"
	"vizora/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
)

// Server is the HTTP front end of the analysis pipeline.
type Server struct {
	router   *gin.Engine
	handler  http.Handler
	analysis *app.AnalysisService
	cfg      config.ServerConfig
	http     *http.Server
}

// NewServer builds the router. Requests pass through CORS before gin.
func NewServer(analysis *app.AnalysisService, cfg config.ServerConfig) *Server {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	s := &Server{
		router:   gin.New(),
		analysis: analysis,
		cfg:      cfg,
	}
	s.setupMiddleware()
	s.setupRoutes()

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.handler = cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	})(s.router)
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Logger(), gin.Recovery())
	if limit := s.cfg.MaxUploadBytes; limit > 0 {
		s.router.MaxMultipartMemory = limit
		s.router.Use(func(c *gin.Context) {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
			c.Next()
		})
	}
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	api.POST("/analyze", s.handleAnalyze)
	api.POST("/query", s.handleQuery)
	api.POST("/summarize", s.handleSummarize)
	api.POST("/personas", s.handlePersonas)
	api.POST("/goals", s.handleGoals)
	api.POST("/chart-spec", s.handleChartSpec)
	api.POST("/extract-columns", s.handleExtractColumns)
	api.GET("/files", s.handleFiles)
	api.POST("/export", s.handleExport)
	api.POST("/report", s.handleReport)
}

// Handler returns the CORS-wrapped router.
func (s *Server) Handler() http.Handler { return s.handler }

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("[Server] Listening on %s", addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
