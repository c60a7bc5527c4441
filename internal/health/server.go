package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DeliveryCounter reports how many chats have a scheduled delivery
type DeliveryCounter interface {
	ActiveCount() int
}

// Server exposes the liveness endpoint
type Server struct {
	router  *gin.Engine
	server  *http.Server
	counter DeliveryCounter
	logger  *zap.Logger
}

// NewServer creates a health server listening on addr
func NewServer(addr string, counter DeliveryCounter, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		router:  router,
		counter: counter,
		logger:  logger,
	}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
}

func (s *Server) handleHealth(c *gin.Context) {
	active := 0
	if s.counter != nil {
		active = s.counter.ActiveCount()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":            "ok",
		"active_deliveries": active,
	})
}

// Handler returns the router for use in tests or other servers
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Stop is called
func (s *Server) Start() error {
	s.logger.Info("health server starting", zap.String("address", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("health server failed: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("health server stopping")
	return s.server.Shutdown(ctx)
}
