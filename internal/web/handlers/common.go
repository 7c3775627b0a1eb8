package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/roster"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// cohortFromValues reads branch and session from query or form values and
// checks them against the configured options. Both empty selects everyone.
func cohortFromValues(cfg *config.Config, branch, session string) (roster.Cohort, error) {
	c := roster.Cohort{Branch: strings.TrimSpace(branch), Session: strings.TrimSpace(session)}
	if c.IsZero() {
		return c, nil
	}
	if c.Branch == "" || c.Session == "" {
		return c, errors.New("branch and session must be given together")
	}
	if err := cfg.Cohorts.Validate(c.Branch, c.Session); err != nil {
		return c, err
	}
	return c, nil
}

// parseTolerance parses an optional tolerance form value.
func parseTolerance(s string, defaultVal float64) (float64, error) {
	if s == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("invalid tolerance %q", s)
	}
	return f, nil
}

// parseLimit parses an optional positive limit query value.
func parseLimit(s string, defaultVal int) int {
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// readUploadedPhoto parses a multipart form and returns the named file.
func readUploadedPhoto(r *http.Request, field string) ([]byte, string, error) {
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		return nil, "", errors.New("failed to parse multipart form")
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", fmt.Errorf("%s file is required", field)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, constants.MaxUploadSize))
	if err != nil {
		return nil, "", errors.New("failed to read uploaded file")
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%s file is empty", field)
	}
	return data, header.Filename, nil
}
