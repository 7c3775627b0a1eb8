package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/extractor"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/logging"
	"github.com/kozaktomas/face-attendance/internal/metrics"
)

// TrainHandler runs gallery training jobs in the background.
type TrainHandler struct {
	config    *config.Config
	galleries *GalleryCache
	store     *gallery.FileStore
	extractor extractor.Extractor
	mirror    database.GalleryWriter // nil when no database is configured
	jobs      *JobManager
	metrics   *metrics.Metrics
	wg        sync.WaitGroup
}

// NewTrainHandler creates a new train handler. mirror may be nil.
func NewTrainHandler(cfg *config.Config, galleries *GalleryCache, store *gallery.FileStore, ext extractor.Extractor, mirror database.GalleryWriter, m *metrics.Metrics) *TrainHandler {
	return &TrainHandler{
		config:    cfg,
		galleries: galleries,
		store:     store,
		extractor: ext,
		mirror:    mirror,
		jobs:      NewJobManager(),
		metrics:   m,
	}
}

// TrainRequest represents the optional body of a train request.
type TrainRequest struct {
	Push bool `json:"push"`
}

// Start handles POST /train.
func (h *TrainHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req TrainRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			respondError(w, http.StatusBadRequest, errInvalidRequestBody)
			return
		}
	}
	if req.Push && h.mirror == nil {
		respondError(w, http.StatusBadRequest, "push requires DATABASE_URL")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	job := h.jobs.CreateJob(uuid.New().String(), req.Push, cancel)
	if job == nil {
		cancel()
		respondError(w, http.StatusConflict, "a training job is already running")
		return
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer cancel()
		h.run(ctx, job)
	}()

	respondJSON(w, http.StatusAccepted, job.Snapshot())
}

func (h *TrainHandler) run(ctx context.Context, job *TrainJob) {
	start := time.Now()
	job.mu.Lock()
	if job.Status == JobStatusPending {
		job.Status = JobStatusRunning
	}
	job.mu.Unlock()
	job.SendEvent(JobEvent{Type: "started", Message: "Training started"})

	b := &gallery.Builder{
		Extractor:   h.extractor,
		Concurrency: h.config.Matching.TrainConcurrency,
		Progress: func(done, total int) {
			job.setProgress(done, total)
			job.SendEvent(JobEvent{Type: "progress", Data: map[string]int{"processed": done, "total": total}})
		},
	}

	g, stats, err := gallery.Train(ctx, h.config.Paths.FacesDir, b, h.store)
	if err != nil {
		h.metrics.ObserveTraining("failed", time.Since(start).Seconds())
		logging.Error(logging.Fields{"error": err, "job": job.ID}, "training job failed")
		job.finish(JobStatusFailed, nil, err.Error())
		job.SendEvent(JobEvent{Type: "job_failed", Message: err.Error()})
		return
	}
	h.galleries.Set(g)

	result := &TrainJobResult{
		Students:        g.Len(),
		Descriptors:     g.DescriptorCount(),
		Samples:         stats.Samples,
		Encoded:         stats.Encoded,
		NoFace:          stats.NoFace,
		MultiFace:       stats.MultiFace,
		Unreadable:      stats.Unreadable,
		Failed:          stats.Failed,
		Unusable:        stats.Unusable,
		DuplicateRegNos: stats.DuplicateRegNos,
	}

	if job.Push {
		if err := h.mirror.SaveGallery(ctx, g); err != nil {
			h.metrics.ObserveTraining("failed", time.Since(start).Seconds())
			logging.Error(logging.Fields{"error": err, "job": job.ID}, "failed to push gallery to database")
			job.finish(JobStatusFailed, result, "gallery saved locally but push failed: "+err.Error())
			job.SendEvent(JobEvent{Type: "job_failed", Message: err.Error()})
			return
		}
		result.Pushed = true
	}

	h.metrics.ObserveTraining("completed", time.Since(start).Seconds())
	job.finish(JobStatusCompleted, result, "")
	job.SendEvent(JobEvent{Type: "completed", Data: result})
}

// Status handles GET /train/{jobId}.
func (h *TrainHandler) Status(w http.ResponseWriter, r *http.Request) {
	job := h.jobs.GetJob(chi.URLParam(r, "jobId"))
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}
	respondJSON(w, http.StatusOK, job.Snapshot())
}

// Events handles GET /train/{jobId}/events as a server-sent event stream.
func (h *TrainHandler) Events(w http.ResponseWriter, r *http.Request) {
	job := h.jobs.GetJob(chi.URLParam(r, "jobId"))
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}
	streamJobEvents(w, r, job)
}

// List handles GET /train, newest job first.
func (h *TrainHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs := h.jobs.ListJobs()
	out := make([]*TrainJobInfo, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, job.Snapshot())
	}
	respondJSON(w, http.StatusOK, out)
}

// Cancel handles DELETE /train/{jobId}.
func (h *TrainHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	job := h.jobs.GetJob(chi.URLParam(r, "jobId"))
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}
	if isJobTerminal(job.GetStatus()) {
		respondError(w, http.StatusConflict, "job already finished")
		return
	}
	job.Cancel()
	respondJSON(w, http.StatusOK, job.Snapshot())
}

// Wait blocks until every running training job has finished.
func (h *TrainHandler) Wait() {
	h.wg.Wait()
}
