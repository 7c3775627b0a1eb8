package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/extractor"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/logging"
	"github.com/kozaktomas/face-attendance/internal/metrics"
)

// AttendanceHandler marks attendance from uploaded group photos.
type AttendanceHandler struct {
	config    *config.Config
	galleries *GalleryCache
	extractor extractor.Extractor
	history   database.AttendanceWriter // nil when no database is configured
	metrics   *metrics.Metrics
	runs      *cache.Cache
	now       func() time.Time
}

// NewAttendanceHandler creates a new attendance handler. history may be nil.
func NewAttendanceHandler(cfg *config.Config, galleries *GalleryCache, ext extractor.Extractor, history database.AttendanceWriter, m *metrics.Metrics) *AttendanceHandler {
	return &AttendanceHandler{
		config:    cfg,
		galleries: galleries,
		extractor: ext,
		history:   history,
		metrics:   m,
		runs:      cache.New(constants.RunCacheTTL, constants.RunCacheCleanup),
		now:       time.Now,
	}
}

// AttendanceRunResponse is returned for a marked or retrieved run.
type AttendanceRunResponse struct {
	ID        string             `json:"id"`
	PhotoPath string             `json:"photo_path,omitempty"`
	CSVPath   string             `json:"csv_path,omitempty"`
	Present   int                `json:"present"`
	Absent    int                `json:"absent"`
	Report    *attendance.Report `json:"report"`
}

func newRunResponse(id, photoPath, csvPath string, r *attendance.Report) *AttendanceRunResponse {
	present := r.PresentCount()
	return &AttendanceRunResponse{
		ID:        id,
		PhotoPath: photoPath,
		CSVPath:   csvPath,
		Present:   present,
		Absent:    len(r.Rows) - present,
		Report:    r,
	}
}

// Mark handles POST /attendance with a multipart group photo.
func (h *AttendanceHandler) Mark(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	data, filename, err := readUploadedPhoto(r, "photo")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	cohort, err := cohortFromValues(h.config, r.FormValue("branch"), r.FormValue("session"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	tolerance, err := parseTolerance(r.FormValue("tolerance"), h.config.Matching.Tolerance)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	g, _, err := h.galleries.Get()
	if err != nil {
		if errors.Is(err, gallery.ErrGalleryNotFound) || errors.Is(err, gallery.ErrGalleryCorrupt) {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		logging.Error(logging.Fields{"error": err}, "failed to load gallery")
		respondError(w, http.StatusInternalServerError, "failed to load gallery")
		return
	}

	id := uuid.New().String()
	photoPath, err := h.saveGroupPhoto(id, filename, data)
	if err != nil {
		logging.Error(logging.Fields{"error": err}, "failed to store group photo")
		respondError(w, http.StatusInternalServerError, "failed to store group photo")
		return
	}

	matcher := attendance.NewMatcher(tolerance)
	matcher.Now = h.now
	report, err := attendance.Run(r.Context(), h.extractor, g, matcher, cohort, data)
	if err != nil {
		h.metrics.IncrementAttendanceFailures()
		logging.Warn(logging.Fields{"error": err, "file": sanitizeForLog(filename)}, "attendance run failed")
		if errors.Is(err, extractor.ErrUnreadableImage) {
			respondError(w, http.StatusBadRequest, "photo is not a readable image")
			return
		}
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	present := report.PresentCount()
	h.metrics.ObserveAttendanceRun(report.NoEligibleStudents, present, len(report.Rows)-present,
		report.FacesDetected, report.UnrecognizedFaces, time.Since(start).Seconds())

	var csvPath string
	if !report.NoEligibleStudents {
		csvPath, err = report.Export(h.config.Paths.OutputDir)
		if err != nil {
			logging.Error(logging.Fields{"error": err}, "failed to export attendance")
			respondError(w, http.StatusInternalServerError, "failed to export attendance")
			return
		}
	}

	resp := newRunResponse(id, photoPath, csvPath, report)
	h.runs.SetDefault(id, resp)

	if h.history != nil {
		if err := h.history.SaveRun(r.Context(), database.NewAttendanceRun(id, photoPath, report)); err != nil {
			logging.Warn(logging.Fields{"error": err, "run": id}, "failed to store attendance history")
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

// saveGroupPhoto stores the uploaded photo under GROUP_PHOTOS_DIR.
func (h *AttendanceHandler) saveGroupPhoto(id, filename string, data []byte) (string, error) {
	dir := h.config.Paths.GroupPhotosDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if !extractor.IsImageFile("x" + ext) {
		ext = ".jpg"
	}
	path := filepath.Join(dir, h.now().Format("20060102_150405")+"_"+id[:8]+ext)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

// lookupRun finds a run in the cache, falling back to stored history.
func (h *AttendanceHandler) lookupRun(r *http.Request, id string) (*AttendanceRunResponse, error) {
	if v, ok := h.runs.Get(id); ok {
		return v.(*AttendanceRunResponse), nil
	}
	if h.history == nil {
		return nil, nil
	}
	run, err := h.history.GetRun(r.Context(), id)
	if err != nil || run == nil {
		return nil, err
	}
	return newRunResponse(run.ID, run.PhotoPath, "", run.Report()), nil
}

// Get handles GET /attendance/{runId}.
func (h *AttendanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "runId")
	run, err := h.lookupRun(r, id)
	if err != nil {
		logging.Error(logging.Fields{"error": err, "run": sanitizeForLog(id)}, "failed to load attendance run")
		respondError(w, http.StatusInternalServerError, "failed to load attendance run")
		return
	}
	if run == nil {
		respondError(w, http.StatusNotFound, "attendance run not found")
		return
	}
	respondJSON(w, http.StatusOK, run)
}

// CSV handles GET /attendance/{runId}/csv.
func (h *AttendanceHandler) CSV(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "runId")
	run, err := h.lookupRun(r, id)
	if err != nil {
		logging.Error(logging.Fields{"error": err, "run": sanitizeForLog(id)}, "failed to load attendance run")
		respondError(w, http.StatusInternalServerError, "failed to load attendance run")
		return
	}
	if run == nil {
		respondError(w, http.StatusNotFound, "attendance run not found")
		return
	}

	var buf bytes.Buffer
	if err := run.Report.WriteCSV(&buf); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to render CSV")
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+run.Report.FileName()+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// AttendanceRunSummary is one entry of the run history.
type AttendanceRunSummary struct {
	ID                string    `json:"id"`
	Branch            string    `json:"branch"`
	Session           string    `json:"session"`
	TakenAt           time.Time `json:"taken_at"`
	FacesDetected     int       `json:"faces_detected"`
	FacesMatched      int       `json:"faces_matched"`
	UnrecognizedFaces int       `json:"unrecognized_faces"`
}

// List handles GET /attendance, listing stored runs newest first.
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondError(w, http.StatusServiceUnavailable, "attendance history requires DATABASE_URL")
		return
	}

	q := r.URL.Query()
	cohort, err := cohortFromValues(h.config, q.Get("branch"), q.Get("session"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	runs, err := h.history.ListRuns(r.Context(), cohort, parseLimit(q.Get("limit"), constants.DefaultHandlerPageSize))
	if err != nil {
		logging.Error(logging.Fields{"error": err}, "failed to list attendance runs")
		respondError(w, http.StatusInternalServerError, "failed to list attendance runs")
		return
	}

	out := make([]AttendanceRunSummary, len(runs))
	for i, run := range runs {
		out[i] = AttendanceRunSummary{
			ID:                run.ID,
			Branch:            run.Cohort.Branch,
			Session:           run.Cohort.Session,
			TakenAt:           run.TakenAt,
			FacesDetected:     run.FacesDetected,
			FacesMatched:      run.FacesMatched,
			UnrecognizedFaces: run.UnrecognizedFaces,
		}
	}
	respondJSON(w, http.StatusOK, out)
}
