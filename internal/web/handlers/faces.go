package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/extractor"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/index"
	"github.com/kozaktomas/face-attendance/internal/logging"
)

// FacesHandler answers "who does this face look like" diagnostics.
type FacesHandler struct {
	galleries *GalleryCache
	extractor extractor.Extractor
}

// NewFacesHandler creates a new faces handler.
func NewFacesHandler(galleries *GalleryCache, ext extractor.Extractor) *FacesHandler {
	return &FacesHandler{galleries: galleries, extractor: ext}
}

// NearestFace lists the closest students for one detected face.
type NearestFace struct {
	Face       int              `json:"face"`
	BBox       []float64        `json:"bbox,omitempty"`
	Candidates []index.Neighbor `json:"candidates"`
}

// Nearest handles POST /faces/nearest with a multipart photo and optional k.
func (h *FacesHandler) Nearest(w http.ResponseWriter, r *http.Request) {
	data, _, err := readUploadedPhoto(r, "photo")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	k := constants.DefaultNearestLimit
	if s := r.FormValue("k"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "k must be a positive integer")
			return
		}
		k = n
	}

	_, idx, err := h.galleries.Get()
	if err != nil {
		if errors.Is(err, gallery.ErrGalleryNotFound) || errors.Is(err, gallery.ErrGalleryCorrupt) {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load gallery")
		return
	}

	faces, err := attendance.DetectFaces(r.Context(), h.extractor, data)
	if err != nil {
		logging.Warn(logging.Fields{"error": err}, "nearest lookup failed")
		if errors.Is(err, extractor.ErrUnreadableImage) {
			respondError(w, http.StatusBadRequest, "photo is not a readable image")
			return
		}
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	out := make([]NearestFace, 0, len(faces))
	for i, f := range faces {
		neighbors, err := idx.Nearest(f.Descriptor, k)
		if err != nil && !errors.Is(err, index.ErrEmptyIndex) {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if neighbors == nil {
			neighbors = []index.Neighbor{}
		}
		out = append(out, NearestFace{Face: i, BBox: f.BBox, Candidates: neighbors})
	}
	respondJSON(w, http.StatusOK, out)
}
