// Package gallery builds and persists the per-identity reference descriptors
// used by the attendance matcher.
package gallery

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/roster"
)

// ErrDimensionMismatch is returned when a descriptor length differs from the
// gallery dimension.
var ErrDimensionMismatch = errors.New("descriptor dimension mismatch")

// Entry holds the reference descriptors of one identity in extraction order.
type Entry struct {
	Identity    roster.Identity
	Descriptors []facematch.Descriptor
}

// Gallery maps identities to their reference descriptors. Entries keep the
// order in which identities were first added. A gallery is not modified once
// handed to the matcher.
type Gallery struct {
	Entries []Entry
	Model   string
	Dim     int
	BuiltAt time.Time

	index map[string]int // identity key -> position in Entries
}

// New returns an empty gallery.
func New() *Gallery {
	return &Gallery{}
}

// Add appends a descriptor to the identity's sequence, creating the entry on
// first use. The first descriptor fixes the gallery dimension.
func (g *Gallery) Add(id roster.Identity, d facematch.Descriptor) error {
	if len(d) == 0 {
		return fmt.Errorf("%w: empty descriptor for %s", ErrDimensionMismatch, id)
	}
	if g.Dim == 0 {
		g.Dim = len(d)
	} else if len(d) != g.Dim {
		return fmt.Errorf("%w: %s has %d values, gallery uses %d", ErrDimensionMismatch, id, len(d), g.Dim)
	}

	if i, ok := g.lookup(id); ok {
		g.Entries[i].Descriptors = append(g.Entries[i].Descriptors, d.Clone())
		return nil
	}
	g.Entries = append(g.Entries, Entry{Identity: id, Descriptors: []facematch.Descriptor{d.Clone()}})
	g.index[id.Key()] = len(g.Entries) - 1
	return nil
}

func (g *Gallery) lookup(id roster.Identity) (int, bool) {
	if g.index == nil || len(g.index) != len(g.Entries) {
		g.index = make(map[string]int, len(g.Entries))
		for i, e := range g.Entries {
			g.index[e.Identity.Key()] = i
		}
	}
	i, ok := g.index[id.Key()]
	return i, ok
}

// Len returns the number of identities.
func (g *Gallery) Len() int {
	return len(g.Entries)
}

// DescriptorCount returns the total number of reference descriptors.
func (g *Gallery) DescriptorCount() int {
	n := 0
	for _, e := range g.Entries {
		n += len(e.Descriptors)
	}
	return n
}

// Identities returns the identities in gallery order.
func (g *Gallery) Identities() []roster.Identity {
	ids := make([]roster.Identity, len(g.Entries))
	for i, e := range g.Entries {
		ids[i] = e.Identity
	}
	return ids
}

// Cohorts returns the distinct cohorts present in the gallery, sorted.
func (g *Gallery) Cohorts() []roster.Cohort {
	seen := make(map[roster.Cohort]bool)
	var cohorts []roster.Cohort
	for _, e := range g.Entries {
		c := e.Identity.Cohort()
		if !seen[c] {
			seen[c] = true
			cohorts = append(cohorts, c)
		}
	}
	slices.SortFunc(cohorts, func(a, b roster.Cohort) int {
		return cmp.Or(cmp.Compare(a.Branch, b.Branch), cmp.Compare(a.Session, b.Session))
	})
	return cohorts
}

// Select returns the entries whose identity satisfies filter, in gallery order.
func (g *Gallery) Select(filter roster.Filter) []Entry {
	var out []Entry
	for _, e := range g.Entries {
		if filter(e.Identity) {
			out = append(out, e)
		}
	}
	return out
}

// Validate checks that every descriptor has the gallery dimension.
func (g *Gallery) Validate() error {
	for _, e := range g.Entries {
		for _, d := range e.Descriptors {
			if len(d) != g.Dim {
				return fmt.Errorf("%w: %s has %d values, gallery uses %d", ErrDimensionMismatch, e.Identity, len(d), g.Dim)
			}
		}
	}
	return nil
}
