package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/meetwatch/meetwatch-agent/config"
	"github.com/meetwatch/meetwatch-agent/internal/logging"
	"github.com/meetwatch/meetwatch-agent/internal/monitor"
)

// Server represents the HTTP server
type Server struct {
	cfg           *config.Config
	log           *logging.Logger
	router        *gin.Engine
	handlers      *Handlers
	setupHandlers *SetupHandlers
	auth          *AuthService
	limiter       *RateLimiter
	registry      *prometheus.Registry
	httpServer    *http.Server
}

// New creates a new server instance
func New(cfg *config.Config, mon *monitor.Monitor, registry *prometheus.Registry, log *logging.Logger) *Server {
	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	auth := NewAuthService(cfg.APIKey, cfg.JWTSecret)

	s := &Server{
		cfg:           cfg,
		log:           log,
		router:        router,
		handlers:      NewHandlers(cfg, mon, auth, log),
		setupHandlers: NewSetupHandlers(cfg),
		auth:          auth,
		limiter:       NewRateLimiter(cfg.RateLimitRPS),
		registry:      registry,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(RecoveryMiddleware(s.log))
	s.router.Use(LoggerMiddleware(s.log))
	s.router.Use(CORSMiddleware(s.cfg.AllowedOrigins))
	s.router.Use(RateLimitMiddleware(s.limiter))
}

func (s *Server) setupRoutes() {
	// Health check and metrics (no auth)
	s.router.GET("/health", s.handlers.HealthCheck)
	s.router.GET("/metrics", gin.WrapH(
		promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	// Setup routes (no auth required in setup mode)
	if s.cfg.SetupMode {
		setup := s.router.Group("/setup")
		{
			setup.GET("", s.setupHandlers.SetupPage)
			setup.POST("/generate", s.setupHandlers.GenerateKey)
			setup.POST("/save", s.setupHandlers.SaveKey)
		}
	}

	// API routes (require auth)
	api := s.router.Group("/api")
	api.Use(AuthMiddleware(s.auth))
	{
		// Agent info
		api.GET("/info", s.handlers.GetInfo)

		// Auth
		api.POST("/auth/token", s.handlers.IssueToken)

		// Meetings
		api.GET("/meetings", s.handlers.ListMeetings)
		api.GET("/meetings/:id", s.handlers.GetMeeting)

		// Monitoring lifecycle
		api.GET("/monitor", s.handlers.MonitorStatus)
		api.POST("/monitor/start", s.handlers.StartMonitoring)
		api.POST("/monitor/stop", s.handlers.StopMonitoring)
		api.POST("/monitor/scan", s.handlers.TriggerScan)

		// Meeting event streams
		api.GET("/events", s.handlers.StreamEvents)
		api.GET("/events/ws", s.handlers.StreamEventsWS)
	}
}

// Run starts the HTTP server and blocks until shutdown
func (s *Server) Run() error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		s.log.Info("shutting down server")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.log.Error("server forced to shutdown", zap.Error(err))
		}
	}()

	s.log.Info("starting meetwatch agent", zap.String("addr", s.cfg.Addr()))

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	s.log.Info("server stopped")
	return nil
}

// Router returns the Gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}
