package server

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/quic-go/quic-go/http3"
	"github.com/sirupsen/logrus"

	"github.com/zsiec/bwrle/internal/catalog"
	"github.com/zsiec/bwrle/internal/config"
	"github.com/zsiec/bwrle/internal/errors"
	"github.com/zsiec/bwrle/internal/health"
	"github.com/zsiec/bwrle/internal/logger"
)

const healthCheckInterval = 30 * time.Second

// Server exposes stream analysis and the report catalog over HTTP, and
// over HTTP/3 when TLS is configured.
type Server struct {
	config        *config.Config
	router        *mux.Router
	httpServer    *http.Server
	http3Server   *http3.Server
	metricsServer *http.Server
	logger        *logrus.Logger
	catalog       catalog.Catalog
	healthMgr     *health.Manager
	errorHandler  *errors.ErrorHandler
	limiter       *clientLimiter
}

// New creates a server with its routes and health checkers registered.
func New(cfg *config.Config, log *logrus.Logger, cat catalog.Catalog) *Server {
	s := &Server{
		config:       cfg,
		router:       mux.NewRouter(),
		logger:       log,
		catalog:      cat,
		healthMgr:    health.NewManager(log),
		errorHandler: errors.NewErrorHandler(log),
	}
	if cfg.Server.RateLimit > 0 {
		s.limiter = newClientLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst)
	}

	s.registerHealthCheckers()
	s.setupRoutes()

	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled or a listener fails, then shuts down.
func (s *Server) Start(ctx context.Context) error {
	go s.healthMgr.StartPeriodicChecks(ctx, healthCheckInterval)

	errCh := make(chan error, 3)
	serve := func(name string, fn func() error) {
		go func() {
			if err := fn(); err != nil && err != http.ErrServerClosed {
				errCh <- fmt.Errorf("%s server: %w", name, err)
			}
		}()
	}

	cfg := s.config.Server
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	tlsEnabled := cfg.TLSCertFile != "" && cfg.TLSKeyFile != ""
	s.logger.WithFields(logrus.Fields{
		"port": cfg.HTTPPort,
		"tls":  tlsEnabled,
	}).Info("Starting HTTP server")
	serve("http", func() error {
		if tlsEnabled {
			return s.httpServer.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
		}
		return s.httpServer.ListenAndServe()
	})

	if cfg.HTTP3Port > 0 {
		tlsConfig, err := s.loadTLSConfig()
		if err != nil {
			return err
		}
		s.http3Server = &http3.Server{
			Addr:      fmt.Sprintf(":%d", cfg.HTTP3Port),
			Handler:   s.router,
			TLSConfig: tlsConfig,
		}
		s.logger.WithField("port", cfg.HTTP3Port).Info("Starting HTTP/3 server")
		serve("http3", s.http3Server.ListenAndServe)
	}

	if s.config.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(s.config.Metrics.Path, promhttp.Handler())
		s.metricsServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", s.config.Metrics.Port),
			Handler: metricsMux,
		}
		s.logger.WithFields(logrus.Fields{
			"port": s.config.Metrics.Port,
			"path": s.config.Metrics.Path,
		}).Info("Starting metrics server")
		serve("metrics", s.metricsServer.ListenAndServe)
	}

	select {
	case err := <-errCh:
		_ = s.Shutdown()
		return err
	case <-ctx.Done():
		return s.Shutdown()
	}
}

func (s *Server) loadTLSConfig() (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(s.config.Server.TLSCertFile, s.config.Server.TLSKeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS certificates: %w", err)
	}
	return &tls.Config{
		MinVersion:   tls.VersionTLS13,
		NextProtos:   []string{"h3"},
		Certificates: []tls.Certificate{cert},
	}, nil
}

// Shutdown stops all listeners, waiting up to the configured shutdown
// timeout for in-flight requests.
func (s *Server) Shutdown() error {
	s.logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if s.httpServer != nil {
		keep(s.httpServer.Shutdown(ctx))
	}
	// http3.Server.Close does not drain in-flight requests.
	if s.http3Server != nil {
		keep(s.http3Server.Close())
	}
	if s.metricsServer != nil {
		keep(s.metricsServer.Shutdown(ctx))
	}

	if firstErr != nil {
		return fmt.Errorf("failed to shutdown server: %w", firstErr)
	}
	s.logger.Info("Server shutdown complete")
	return nil
}

func (s *Server) setupRoutes() {
	s.router.Use(logger.RequestLoggerMiddleware(s.logger))
	s.router.Use(s.errorHandler.Middleware)
	s.router.Use(s.metricsMiddleware)
	s.router.Use(s.corsMiddleware)
	s.router.Use(s.rateLimitMiddleware)

	healthHandler := health.NewHandler(s.healthMgr)
	s.router.HandleFunc("/health", healthHandler.HandleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/ready", healthHandler.HandleReady).Methods(http.MethodGet)
	s.router.HandleFunc("/live", healthHandler.HandleLive).Methods(http.MethodGet)
	s.router.HandleFunc("/version", s.handleVersion).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/analyze", s.handleAnalyze).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/frames/{index:[0-9]+}", s.handleFrame).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/streams", s.handleCreateStream).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/streams", s.handleListStreams).Methods(http.MethodGet)
	api.HandleFunc("/streams/{id}", s.handleGetStream).Methods(http.MethodGet)
	api.HandleFunc("/streams/{id}", s.handleDeleteStream).Methods(http.MethodDelete, http.MethodOptions)

	if s.config.Server.DebugEndpoints {
		s.setupDebugEndpoints()
	}

	s.router.NotFoundHandler = http.HandlerFunc(s.errorHandler.HandleNotFound)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(s.errorHandler.HandleMethodNotAllowed)
}

func (s *Server) registerHealthCheckers() {
	if rc, ok := s.catalog.(*catalog.RedisCatalog); ok {
		s.healthMgr.Register(health.NewRedisChecker(rc.Client()))
	}

	// Only the CLI decode path needs ffmpeg; the API works without it.
	ff := s.config.FFmpeg
	s.healthMgr.RegisterOptional(health.NewFFmpegChecker(ff.BinaryPath, ff.ProbePath, ff.VideoCodec))
}

func (s *Server) setupDebugEndpoints() {
	s.logger.Info("Enabling debug endpoints")

	debug := s.router.PathPrefix("/debug").Subrouter()
	debug.HandleFunc("/pprof/cmdline", pprof.Cmdline)
	debug.HandleFunc("/pprof/profile", pprof.Profile)
	debug.HandleFunc("/pprof/symbol", pprof.Symbol)
	debug.HandleFunc("/pprof/trace", pprof.Trace)
	debug.PathPrefix("/pprof/").HandlerFunc(pprof.Index)

	debug.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		info := map[string]interface{}{
			"ports": map[string]int{
				"http":  s.config.Server.HTTPPort,
				"http3": s.config.Server.HTTP3Port,
			},
			"catalog": fmt.Sprintf("%T", s.catalog),
			"codec":   s.config.Codec,
			"limits": map[string]interface{}{
				"max_upload_size": s.config.Server.MaxUploadSize,
				"rate_limit":      s.config.Server.RateLimit,
				"rate_burst":      s.config.Server.RateBurst,
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(info)
	}).Methods(http.MethodGet)
}
