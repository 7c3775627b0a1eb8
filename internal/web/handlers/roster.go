package handlers

import (
	"errors"
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/logging"
	"github.com/kozaktomas/face-attendance/internal/roster"
)

// RosterHandler serves cohort options and enrolled students.
type RosterHandler struct {
	config    *config.Config
	galleries *GalleryCache
}

// NewRosterHandler creates a new roster handler.
func NewRosterHandler(cfg *config.Config, galleries *GalleryCache) *RosterHandler {
	return &RosterHandler{config: cfg, galleries: galleries}
}

// CohortsResponse lists selectable branches and sessions and the cohorts
// that have trained students.
type CohortsResponse struct {
	Branches []string        `json:"branches"`
	Sessions []string        `json:"sessions"`
	Trained  []roster.Cohort `json:"trained"`
}

// Cohorts handles GET /cohorts.
func (h *RosterHandler) Cohorts(w http.ResponseWriter, r *http.Request) {
	resp := CohortsResponse{
		Branches: h.config.Cohorts.Branches,
		Sessions: h.config.Cohorts.Sessions,
		Trained:  []roster.Cohort{},
	}

	g, _, err := h.galleries.Get()
	switch {
	case err == nil:
		if c := g.Cohorts(); c != nil {
			resp.Trained = c
		}
	case errors.Is(err, gallery.ErrGalleryNotFound):
	default:
		logging.Warn(logging.Fields{"error": err}, "failed to load gallery for cohorts")
	}

	respondJSON(w, http.StatusOK, resp)
}

// StudentResponse is one trained student.
type StudentResponse struct {
	roster.Identity
	Descriptors int `json:"descriptors"`
}

// Students handles GET /students, filtered by optional branch, session and
// a diacritic-insensitive name or reg_no query.
func (h *RosterHandler) Students(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cohort, err := cohortFromValues(h.config, q.Get("branch"), q.Get("session"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	g, _, err := h.galleries.Get()
	if err != nil {
		if errors.Is(err, gallery.ErrGalleryNotFound) {
			respondJSON(w, http.StatusOK, []StudentResponse{})
			return
		}
		logging.Error(logging.Fields{"error": err}, "failed to load gallery")
		respondError(w, http.StatusInternalServerError, "failed to load gallery")
		return
	}

	filter := cohort.Filter()
	query := q.Get("q")
	out := []StudentResponse{}
	for _, e := range g.Select(filter) {
		if query != "" && !e.Identity.MatchesQuery(query) {
			continue
		}
		out = append(out, StudentResponse{Identity: e.Identity, Descriptors: len(e.Descriptors)})
	}
	respondJSON(w, http.StatusOK, out)
}
