// Package httpapi exposes the document library and ask endpoints over
// HTTP. Handlers are thin glue over the driving ports; all behaviour
// lives in the core services.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/notelm/notelm/internal/core/ports/driving"
	"github.com/notelm/notelm/internal/logger"
)

// Server hosts the HTTP API.
type Server struct {
	ingest    driving.IngestService
	library   driving.LibraryService
	chat      driving.ChatService
	retrieval driving.RetrievalService

	stagingDir  string
	maxUploadMB int64
	httpServer  *http.Server
}

// Option configures the server.
type Option func(*Server)

// WithMaxUploadMB caps accepted upload sizes.
func WithMaxUploadMB(mb int64) Option {
	return func(s *Server) {
		if mb > 0 {
			s.maxUploadMB = mb
		}
	}
}

// NewServer creates the API server. stagingDir receives uploaded files
// before the pipeline picks them up.
func NewServer(
	ingest driving.IngestService,
	library driving.LibraryService,
	chat driving.ChatService,
	retrieval driving.RetrievalService,
	stagingDir string,
	opts ...Option,
) *Server {
	s := &Server{
		ingest:      ingest,
		library:     library,
		chat:        chat,
		retrieval:   retrieval,
		stagingDir:  stagingDir,
		maxUploadMB: 50,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		MaxAge:           12 * time.Hour,
		AllowCredentials: false,
	}))
	router.MaxMultipartMemory = s.maxUploadMB << 20

	api := router.Group("/api")
	{
		api.POST("/upload", s.handleUpload)
		api.POST("/upload/batch", s.handleUploadBatch)
		api.GET("/files", s.handleListFiles)
		api.GET("/files/:id", s.handleGetFile)
		api.DELETE("/files/:id", s.handleDeleteFile)
		api.POST("/ask", s.handleAsk)
		api.POST("/search", s.handleSearch)
		api.GET("/health", s.handleHealth)
	}
	return router
}

// Start serves until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()
	logger.Info("http api listening on %s", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

// requestLogger logs completed requests through the app logger.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path,
			c.Writer.Status(), time.Since(start).Round(time.Millisecond))
	}
}
