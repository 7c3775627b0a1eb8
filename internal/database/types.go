package database

import (
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/roster"
)

// NearestStudent is a student close to a query descriptor
type NearestStudent struct {
	Identity roster.Identity `json:"identity"`
	Distance float64         `json:"distance"`
}

// AttendanceRecord is one stored attendance row
type AttendanceRecord struct {
	Identity roster.Identity
	Status   attendance.Status
}

// AttendanceRun is a stored attendance run
type AttendanceRun struct {
	ID                 string
	Cohort             roster.Cohort
	Tolerance          float64
	TakenAt            time.Time
	PhotoPath          string
	FacesDetected      int
	FacesMatched       int
	UnrecognizedFaces  int
	NoEligibleStudents bool
	Records            []AttendanceRecord
	CreatedAt          time.Time
}

// NewAttendanceRun captures a report for storage.
func NewAttendanceRun(id, photoPath string, r *attendance.Report) *AttendanceRun {
	run := &AttendanceRun{
		ID:                 id,
		Cohort:             r.Cohort,
		Tolerance:          r.Tolerance,
		TakenAt:            r.Timestamp,
		PhotoPath:          photoPath,
		FacesDetected:      r.FacesDetected,
		FacesMatched:       r.FacesMatched,
		UnrecognizedFaces:  r.UnrecognizedFaces,
		NoEligibleStudents: r.NoEligibleStudents,
		Records:            make([]AttendanceRecord, len(r.Rows)),
	}
	for i, row := range r.Rows {
		run.Records[i] = AttendanceRecord{Identity: row.Identity, Status: row.Status}
	}
	return run
}

// Report rebuilds the attendance report. Per-face events are not stored.
func (r *AttendanceRun) Report() *attendance.Report {
	rep := &attendance.Report{
		Cohort:             r.Cohort,
		Timestamp:          r.TakenAt,
		Tolerance:          r.Tolerance,
		NoEligibleStudents: r.NoEligibleStudents,
		FacesDetected:      r.FacesDetected,
		FacesMatched:       r.FacesMatched,
		UnrecognizedFaces:  r.UnrecognizedFaces,
		Rows:               make([]attendance.Row, len(r.Records)),
		Events:             []attendance.Event{},
	}
	for i, rec := range r.Records {
		rep.Rows[i] = attendance.Row{Identity: rec.Identity, Status: rec.Status, Timestamp: r.TakenAt}
	}
	return rep
}
