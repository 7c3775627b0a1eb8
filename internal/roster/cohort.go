package roster

import (
	"strings"

	"github.com/kozaktomas/face-attendance/internal/constants"
)

// Filter selects the identities taking part in one attendance run.
type Filter func(Identity) bool

// All accepts every identity.
func All(Identity) bool { return true }

// Cohort is a branch+session grouping.
type Cohort struct {
	Branch  string `json:"branch"`
	Session string `json:"session"`
}

// Filter returns a predicate accepting identities of this cohort. A zero
// Cohort accepts everyone.
func (c Cohort) Filter() Filter {
	if c.IsZero() {
		return All
	}
	return func(id Identity) bool {
		return id.Branch == c.Branch && id.Session == c.Session
	}
}

// IsZero reports whether no grouping was selected.
func (c Cohort) IsZero() bool {
	return c.Branch == "" && c.Session == ""
}

// Grouped reports whether the cohort names a real branch/session pair.
func (c Cohort) Grouped() bool {
	return !c.IsZero() && (c.Branch != constants.UnknownGroup || c.Session != constants.UnknownGroup)
}

// FileName returns the attendance export name for this cohort.
func (c Cohort) FileName() string {
	if !c.Grouped() {
		return "attendance.csv"
	}
	return "attendance_" + safeSegment(c.Branch) + "_" + safeSegment(c.Session) + ".csv"
}

func (c Cohort) String() string {
	if c.IsZero() {
		return "all students"
	}
	return c.Branch + " " + c.Session
}

// safeSegment makes a branch or session usable in a file name.
func safeSegment(s string) string {
	s = RemoveDiacritics(s)
	return strings.NewReplacer("/", "-", "\\", "-", " ", "").Replace(s)
}
