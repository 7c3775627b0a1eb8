package attendance

import (
	"slices"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/logging"
	"github.com/kozaktomas/face-attendance/internal/roster"
)

// Matcher marks cohort identities Present or Absent from query faces.
// A Matcher is stateless between runs and safe for concurrent use.
type Matcher struct {
	// Tolerance is the maximum distance for two descriptors to be the same face.
	Tolerance float64
	Now       func() time.Time
}

// NewMatcher returns a matcher with the given tolerance, or the default when
// tolerance is not positive.
func NewMatcher(tolerance float64) *Matcher {
	if tolerance <= 0 {
		tolerance = constants.DefaultTolerance
	}
	return &Matcher{Tolerance: tolerance}
}

// runState is the per-run bookkeeping. remaining only ever shrinks.
type runState struct {
	cohort    []gallery.Entry
	status    []Status
	remaining []int // cohort positions not yet Present, in cohort order
	report    *Report
}

// Match runs the matcher over the identities accepted by filter.
func (m *Matcher) Match(g *gallery.Gallery, filter roster.Filter, faces []QueryFace) *Report {
	return m.run(g, roster.Cohort{}, filter, faces)
}

// MatchCohort runs the matcher for one branch/session cohort.
func (m *Matcher) MatchCohort(g *gallery.Gallery, cohort roster.Cohort, faces []QueryFace) *Report {
	return m.run(g, cohort, cohort.Filter(), faces)
}

func (m *Matcher) run(g *gallery.Gallery, cohort roster.Cohort, filter roster.Filter, faces []QueryFace) *Report {
	if filter == nil {
		filter = roster.All
	}
	st := &runState{report: &Report{
		Cohort:        cohort,
		Tolerance:     m.Tolerance,
		FacesDetected: len(faces),
		Rows:          []Row{},
		Events:        []Event{},
	}}

	m.filter(st, g, filter)
	if len(st.cohort) == 0 {
		st.report.NoEligibleStudents = true
		st.report.Timestamp = m.now()
		logging.Warn(logging.Fields{"cohort": cohort.String()}, "no eligible students for attendance")
		return st.report
	}

	for i, face := range faces {
		m.matchFace(st, i, face)
	}
	m.finalize(st)
	return st.report
}

// filter restricts the gallery to the cohort, ordered by (RegNo, Name) so that
// exact distance ties resolve to the first identity in that order.
func (m *Matcher) filter(st *runState, g *gallery.Gallery, filter roster.Filter) {
	if g != nil {
		st.cohort = g.Select(filter)
	}
	slices.SortStableFunc(st.cohort, func(a, b gallery.Entry) int {
		return roster.Compare(a.Identity, b.Identity)
	})
	st.status = make([]Status, len(st.cohort))
	st.remaining = make([]int, 0, len(st.cohort))
	for i, e := range st.cohort {
		if len(e.Descriptors) == 0 {
			logging.Warn(logging.Fields{"student": e.Identity.Key()}, "student has no reference descriptors, reporting absent")
			continue
		}
		st.remaining = append(st.remaining, i)
	}
}

func (m *Matcher) matchFace(st *runState, faceIndex int, face QueryFace) {
	r := st.report

	if match := facematch.BestMatch(face.Descriptor, st.candidates(st.remaining), m.Tolerance); match.Found() {
		st.status[match.Index] = Present
		st.remaining = slices.DeleteFunc(st.remaining, func(i int) bool { return i == match.Index })
		r.FacesMatched++
		r.Events = append(r.Events, Event{
			Kind:     EventMatched,
			Face:     faceIndex,
			BBox:     face.BBox,
			RegNo:    st.cohort[match.Index].Identity.RegNo,
			Distance: match.Distance,
		})
		return
	}

	if match := facematch.BestMatch(face.Descriptor, st.candidates(st.presentIndexes()), m.Tolerance); match.Found() {
		r.FacesMatched++
		r.Events = append(r.Events, Event{
			Kind:     EventAlreadyPresent,
			Face:     faceIndex,
			BBox:     face.BBox,
			RegNo:    st.cohort[match.Index].Identity.RegNo,
			Distance: match.Distance,
		})
		return
	}

	r.UnrecognizedFaces++
	r.Events = append(r.Events, Event{Kind: EventUnrecognized, Face: faceIndex, BBox: face.BBox})
	logging.Info(logging.Fields{"face": faceIndex, "bbox": face.BBox}, "unrecognized face")
}

// finalize marks everyone left Absent and stamps every row with one timestamp.
func (m *Matcher) finalize(st *runState) {
	ts := m.now()
	st.report.Timestamp = ts
	st.report.Rows = make([]Row, len(st.cohort))
	for i, e := range st.cohort {
		st.report.Rows[i] = Row{Identity: e.Identity, Status: st.status[i], Timestamp: ts}
	}
}

func (m *Matcher) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (st *runState) candidates(indexes []int) []facematch.Candidate {
	out := make([]facematch.Candidate, len(indexes))
	for i, idx := range indexes {
		out[i] = facematch.Candidate{Index: idx, Descriptors: st.cohort[idx].Descriptors}
	}
	return out
}

func (st *runState) presentIndexes() []int {
	var out []int
	for i, s := range st.status {
		if s == Present {
			out = append(out, i)
		}
	}
	return out
}
