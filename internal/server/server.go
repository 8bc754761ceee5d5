package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/JustJay7/highcourt-fetcher/internal/api"
	"github.com/JustJay7/highcourt-fetcher/internal/browser"
	"github.com/JustJay7/highcourt-fetcher/internal/cache"
	"github.com/JustJay7/highcourt-fetcher/internal/config"
	"github.com/JustJay7/highcourt-fetcher/internal/metrics"
	"github.com/JustJay7/highcourt-fetcher/internal/scraper"
	"github.com/JustJay7/highcourt-fetcher/pkg/logger"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Server struct {
	cfg      *config.Config
	db       *gorm.DB
	cache    cache.Cache
	logger   *logger.Logger
	router   *gin.Engine
	launcher *browser.Launcher
	sessions *scraper.Manager
}

func New(cfg *config.Config, db *gorm.DB, cache cache.Cache, logger *logger.Logger) (*Server, error) {
	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	launcher, err := browser.Launch(browser.LaunchOptions{
		Headless:    cfg.HeadlessMode,
		UserAgent:   cfg.UserAgent,
		BrowserPath: cfg.BrowserPath,
	}, logger)
	if err != nil {
		return nil, err
	}

	sessions, err := newSessionManager(cfg, launcher, logger)
	if err != nil {
		launcher.Close()
		return nil, err
	}

	s := &Server{
		cfg:      cfg,
		db:       db,
		cache:    cache,
		logger:   logger,
		router:   newRouter(logger),
		launcher: launcher,
		sessions: sessions,
	}

	s.router.GET("/metrics", gin.WrapH(metrics.Handler()))
	api.SetupRoutes(s.router, db, cache, sessions, logger, cfg)

	return s, nil
}

func newRouter(logger *logger.Logger) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(logger))
	router.Use(metricsMiddleware())
	router.Use(corsMiddleware())

	return router
}

// newSessionManager wires the browser, extraction and download layers into
// the session manager and starts its idle reaper
func newSessionManager(cfg *config.Config, launcher *browser.Launcher, logger *logger.Logger) (*scraper.Manager, error) {
	base, err := url.Parse(cfg.PortalBaseURL())
	if err != nil {
		return nil, fmt.Errorf("invalid portal URL: %w", err)
	}

	downloader := scraper.NewPDFDownloader(scraper.DownloaderOptions{
		Root:         cfg.ArtifactDir,
		StaticPrefix: cfg.StaticURLPrefix,
		UserAgent:    cfg.UserAgent,
		Timeout:      cfg.DownloadTimeout,
		RateLimit:    cfg.DownloadRateLimit,
	}, logger.With("component", "downloader"))

	parser := scraper.NewParser(logger.With("component", "parser"), base, downloader)

	manager, err := scraper.NewManager(launcher.NewSession, parser, scraper.ManagerOptions{
		MaxSessions:  cfg.MaxConcurrentScrapes,
		IdleTimeout:  cfg.SessionIdleTimeout,
		ReapInterval: cfg.SessionReapInterval,
		Workflow: scraper.WorkflowOptions{
			PortalURL:        cfg.PortalURL,
			StepTimeout:      cfg.StepTimeout,
			ProbeTimeout:     cfg.ProbeTimeout,
			RowRetryAttempts: cfg.RowRetryAttempts,
			RowRetryDelay:    cfg.RowRetryDelay,
		},
	}, logger.With("component", "sessions"))
	if err != nil {
		return nil, err
	}

	if err := manager.Start(); err != nil {
		manager.Shutdown()
		return nil, err
	}
	return manager, nil
}

func (s *Server) Run() error {
	srv := &http.Server{
		Addr:        fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port),
		Handler:     s.router,
		ReadTimeout: 10 * time.Second,
		// a full case fetch walks several bounded steps and downloads orders
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal("Failed to start server", "error", err)
		}
	}()

	s.logger.Info("Server started", "address", srv.Addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	s.logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	shutdownErr := srv.Shutdown(ctx)
	if shutdownErr != nil {
		s.logger.Error("Server forced to shutdown", "error", shutdownErr)
	}

	if err := s.sessions.Shutdown(); err != nil {
		s.logger.Error("Failed to stop session manager", "error", err)
	}
	if err := s.launcher.Close(); err != nil {
		s.logger.Error("Failed to close browser", "error", err)
	}

	if shutdownErr != nil {
		return shutdownErr
	}
	s.logger.Info("Server exited gracefully")
	return nil
}

func loggingMiddleware(logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		clientIP := c.ClientIP()
		method := c.Request.Method
		statusCode := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		logger.Info("HTTP Request",
			"client_ip", clientIP,
			"method", method,
			"path", path,
			"status", statusCode,
			"latency", latency.String(),
			"user_agent", c.Request.UserAgent(),
		)
	}
}

// metricsMiddleware records request counts and latency by route template
func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start).Seconds())
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if origin := c.Request.Header.Get("Origin"); origin != "" {
			// credentialed requests need the exact origin echoed back
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Vary", "Origin")
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
