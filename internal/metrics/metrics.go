// Package metrics provides Prometheus metrics for training and attendance runs.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all Prometheus metrics of the attendance service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	AttendanceRuns     *prometheus.CounterVec
	AttendanceDuration prometheus.Histogram
	FacesDetected      prometheus.Counter
	FacesUnrecognized  prometheus.Counter
	StudentsMarked     *prometheus.CounterVec
	ExtractorErrors    prometheus.Counter
	TrainingRuns       *prometheus.CounterVec
	TrainingDuration   prometheus.Histogram
	GalleryStudents    prometheus.Gauge
	GalleryDescriptors prometheus.Gauge
	registry           *prometheus.Registry
}

// NewMetrics creates the metrics and registers them with registry.
func NewMetrics(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register attendance metrics: %w", err)
	}
	return m, nil
}

// initMetrics initializes all metrics.
func (m *Metrics) initMetrics() {
	m.AttendanceRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_runs_total",
		Help: "Total number of attendance runs by outcome.",
	}, []string{"outcome"})

	m.AttendanceDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "attendance_run_duration_seconds",
		Help:    "Duration of attendance runs including face extraction.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	m.FacesDetected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attendance_faces_detected_total",
		Help: "Total number of faces detected in group photos.",
	})

	m.FacesUnrecognized = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attendance_faces_unrecognized_total",
		Help: "Total number of group photo faces that matched no student.",
	})

	m.StudentsMarked = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_students_marked_total",
		Help: "Total number of attendance rows by status.",
	}, []string{"status"})

	m.ExtractorErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attendance_extractor_errors_total",
		Help: "Total number of failed face extraction calls on group photos.",
	})

	m.TrainingRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gallery_training_runs_total",
		Help: "Total number of gallery training runs by status.",
	}, []string{"status"})

	m.TrainingDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "gallery_training_duration_seconds",
		Help:    "Duration of gallery training runs.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	m.GalleryStudents = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gallery_students",
		Help: "Number of students in the loaded gallery.",
	})

	m.GalleryDescriptors = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gallery_descriptors",
		Help: "Number of reference descriptors in the loaded gallery.",
	})
}

// ObserveAttendanceRun records one completed attendance run.
func (m *Metrics) ObserveAttendanceRun(noEligible bool, present, absent, faces, unrecognized int, seconds float64) {
	if m == nil {
		return
	}
	outcome := "marked"
	if noEligible {
		outcome = "no_eligible_students"
	}
	m.AttendanceRuns.WithLabelValues(outcome).Inc()
	m.AttendanceDuration.Observe(seconds)
	m.FacesDetected.Add(float64(faces))
	m.FacesUnrecognized.Add(float64(unrecognized))
	m.StudentsMarked.WithLabelValues("present").Add(float64(present))
	m.StudentsMarked.WithLabelValues("absent").Add(float64(absent))
}

// IncrementAttendanceFailures records an attendance run aborted before matching.
func (m *Metrics) IncrementAttendanceFailures() {
	if m == nil {
		return
	}
	m.AttendanceRuns.WithLabelValues("failed").Inc()
	m.ExtractorErrors.Inc()
}

// ObserveTraining records a finished training run.
func (m *Metrics) ObserveTraining(status string, seconds float64) {
	if m == nil {
		return
	}
	m.TrainingRuns.WithLabelValues(status).Inc()
	m.TrainingDuration.Observe(seconds)
}

// SetGallerySize updates the gallery gauges.
func (m *Metrics) SetGallerySize(students, descriptors int) {
	if m == nil {
		return
	}
	m.GalleryStudents.Set(float64(students))
	m.GalleryDescriptors.Set(float64(descriptors))
}

// Collect implements the prometheus.Collector interface.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.AttendanceRuns.Collect(ch)
	ch <- m.AttendanceDuration
	ch <- m.FacesDetected
	ch <- m.FacesUnrecognized
	m.StudentsMarked.Collect(ch)
	ch <- m.ExtractorErrors
	m.TrainingRuns.Collect(ch)
	ch <- m.TrainingDuration
	ch <- m.GalleryStudents
	ch <- m.GalleryDescriptors
}

// Describe implements the prometheus.Collector interface.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.AttendanceRuns.Describe(ch)
	ch <- m.AttendanceDuration.Desc()
	ch <- m.FacesDetected.Desc()
	ch <- m.FacesUnrecognized.Desc()
	m.StudentsMarked.Describe(ch)
	ch <- m.ExtractorErrors.Desc()
	m.TrainingRuns.Describe(ch)
	ch <- m.TrainingDuration.Desc()
	ch <- m.GalleryStudents.Desc()
	ch <- m.GalleryDescriptors.Desc()
}
