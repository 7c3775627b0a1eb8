// Package attendance derives per-cohort attendance from the faces found in a
// group photo.
package attendance

import (
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/roster"
)

// Status is the attendance outcome for one identity.
type Status int

const (
	Absent Status = iota
	Present
)

func (s Status) String() string {
	if s == Present {
		return "Present"
	}
	return "Absent"
}

// MarshalText renders the status as "Present" or "Absent".
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses "Present" or "Absent".
func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Present":
		*s = Present
	case "Absent":
		*s = Absent
	default:
		return fmt.Errorf("unknown attendance status %q", text)
	}
	return nil
}

// QueryFace is one face detected in the group photo.
type QueryFace struct {
	Descriptor facematch.Descriptor
	BBox       []float64 // passed through from the extractor, unused by matching
}

// Row is the attendance of one cohort identity.
type Row struct {
	roster.Identity
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// EventKind classifies what happened to a query face.
type EventKind string

const (
	EventMatched        EventKind = "matched"
	EventAlreadyPresent EventKind = "already_present"
	EventUnrecognized   EventKind = "unrecognized"
)

// Event records the outcome for one query face.
type Event struct {
	Kind     EventKind `json:"kind"`
	Face     int       `json:"face"`
	BBox     []float64 `json:"bbox,omitempty"`
	RegNo    string    `json:"reg_no,omitempty"`
	Distance float64   `json:"distance,omitempty"`
}

// Report is the result of one matching run. Rows cover every cohort identity
// exactly once, sorted by registration number then name, and share Timestamp.
type Report struct {
	Cohort             roster.Cohort `json:"cohort"`
	Rows               []Row         `json:"rows"`
	Timestamp          time.Time     `json:"timestamp"`
	Tolerance          float64       `json:"tolerance"`
	NoEligibleStudents bool          `json:"no_eligible_students"`
	FacesDetected      int           `json:"faces_detected"`
	FacesMatched       int           `json:"faces_matched"`
	UnrecognizedFaces  int           `json:"unrecognized_faces"`
	Events             []Event       `json:"events"`
}

// PresentCount returns the number of Present rows.
func (r *Report) PresentCount() int {
	n := 0
	for _, row := range r.Rows {
		if row.Status == Present {
			n++
		}
	}
	return n
}

// Status returns the status recorded for the registration number.
func (r *Report) Status(regNo string) (Status, bool) {
	for _, row := range r.Rows {
		if row.RegNo == regNo {
			return row.Status, true
		}
	}
	return Absent, false
}
