package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/extractor"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/logging"
	"github.com/kozaktomas/face-attendance/internal/metrics"
	"github.com/kozaktomas/face-attendance/internal/web/handlers"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

// Backends are the optional collaborators of the server. Nil database
// writers disable gallery push and attendance history.
type Backends struct {
	Extractor  extractor.Extractor
	Gallery    database.GalleryWriter
	Attendance database.AttendanceWriter
}

// Server represents the web server
type Server struct {
	config     *config.Config
	router     *chi.Mux
	httpServer *http.Server
	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	store      *gallery.FileStore
	galleries  *handlers.GalleryCache
	train      *handlers.TrainHandler
	backends   Backends
	errorLog   *io.PipeWriter
}

// NewServer creates a new web server
func NewServer(cfg *config.Config, port int, host string, backends Backends) (*Server, error) {
	if backends.Extractor == nil {
		return nil, errors.New("web server needs a face extractor")
	}

	registry := prometheus.NewRegistry()
	m, err := metrics.NewMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	r := chi.NewRouter()
	store := gallery.NewFileStore(cfg.Paths.GalleryPath)
	s := &Server{
		config:    cfg,
		router:    r,
		registry:  registry,
		metrics:   m,
		store:     store,
		galleries: handlers.NewGalleryCache(store, m),
		backends:  backends,
	}

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger())
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(constants.ServerRequestTimeout))
	r.Use(middleware.CORS(cfg.Web.AllowedOrigins))
	r.Use(middleware.SecurityHeaders())

	s.setupRoutes()

	s.errorLog = logging.Logger().WriterLevel(logrus.ErrorLevel)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: constants.ServerRequestTimeout, // long enough for SSE and uploads
		IdleTimeout:  60 * time.Second,
		ErrorLog:     log.New(s.errorLog, "", 0),
	}

	return s, nil
}

// Start starts the HTTP server
func (s *Server) Start() error {
	logging.Info(logging.Fields{"addr": s.httpServer.Addr}, "starting web server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server and waits for running training jobs
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info(nil, "shutting down web server")

	err := s.httpServer.Shutdown(ctx)
	_ = s.errorLog.Close()
	if err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	done := make(chan struct{})
	go func() {
		s.train.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for training jobs: %w", ctx.Err())
	}
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
