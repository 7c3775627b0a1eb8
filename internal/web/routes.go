package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kozaktomas/face-attendance/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	attendanceHandler := handlers.NewAttendanceHandler(s.config, s.galleries, s.backends.Extractor, s.backends.Attendance, s.metrics)
	s.train = handlers.NewTrainHandler(s.config, s.galleries, s.store, s.backends.Extractor, s.backends.Gallery, s.metrics)
	rosterHandler := handlers.NewRosterHandler(s.config, s.galleries)
	facesHandler := handlers.NewFacesHandler(s.galleries, s.backends.Extractor)

	s.router.Get("/api/v1/health", handlers.HealthCheck)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	}))

	s.router.Route("/api/v1", func(r chi.Router) {
		// Attendance
		r.Post("/attendance", attendanceHandler.Mark)
		r.Get("/attendance", attendanceHandler.List)
		r.Get("/attendance/{runId}", attendanceHandler.Get)
		r.Get("/attendance/{runId}/csv", attendanceHandler.CSV)

		// Training (long-running)
		r.Post("/train", s.train.Start)
		r.Get("/train", s.train.List)
		r.Get("/train/{jobId}", s.train.Status)
		r.Get("/train/{jobId}/events", s.train.Events)
		r.Delete("/train/{jobId}", s.train.Cancel)

		// Roster
		r.Get("/cohorts", rosterHandler.Cohorts)
		r.Get("/students", rosterHandler.Students)

		// Diagnostics
		r.Post("/faces/nearest", facesHandler.Nearest)
	})
}
