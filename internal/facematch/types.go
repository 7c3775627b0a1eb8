// Package facematch provides descriptor distance utilities shared by the
// gallery builder, the attendance matcher and the diagnostics index.
package facematch

// Descriptor is a fixed-length face embedding produced by the extractor.
type Descriptor []float64

// Candidate is one identity's reference descriptors, addressed by its
// position in the caller's identity list.
type Candidate struct {
	Index       int
	Descriptors []Descriptor
}

// Match is the outcome of comparing a query descriptor against candidates.
type Match struct {
	Index    int     // candidate index, -1 when nothing is within tolerance
	Distance float64 // distance to the closest descriptor of the matched candidate
}

// Found reports whether a candidate was within tolerance.
func (m Match) Found() bool {
	return m.Index >= 0
}

// NoMatch is returned when no candidate is within tolerance.
var NoMatch = Match{Index: -1}
