// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Face matching constants
const (
	// DefaultTolerance is the default maximum Euclidean distance between two
	// face descriptors for them to be considered the same person.
	// Lower values = stricter matching
	DefaultTolerance = 0.5

	// DefaultNearestLimit is the default number of identities returned by
	// nearest-identity diagnostics
	DefaultNearestLimit = 5
)

// Processing constants
const (
	// DefaultTrainConcurrency is the default number of parallel extractor calls during training
	DefaultTrainConcurrency = 4

	// MaxImageSize is the maximum dimension (width or height) sent to the extractor
	MaxImageSize = 1920

	// DefaultPhotosPerStudent is how many reference photos a registration is expected to have
	DefaultPhotosPerStudent = 5
)

// Roster constants
const (
	// UnknownGroup is the branch/session value used when a folder key carries no grouping
	UnknownGroup = "Unknown"

	// TimestampLayout is the layout of the Timestamp column in attendance reports
	TimestampLayout = "2006-01-02 15:04:05"
)
