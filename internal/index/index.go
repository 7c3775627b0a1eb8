// Package index provides approximate nearest-identity lookup over a gallery.
// It backs diagnostics such as "who does this face look like"; attendance
// decisions always use the exact matcher.
package index

import (
	"cmp"
	"errors"
	"slices"
	"sync"

	"github.com/coder/hnsw"

	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/roster"
)

// HNSW graph parameters.
const (
	// MaxNeighbors (M) is the maximum number of neighbors per node.
	MaxNeighbors = 16

	// EfSearch is the search candidate pool size.
	EfSearch = 64

	// SearchMultiplier widens the graph search so that enough distinct
	// identities remain after collapsing several descriptors per identity.
	SearchMultiplier = 4
)

// ErrEmptyIndex is returned when searching an index built from an empty gallery.
var ErrEmptyIndex = errors.New("index is empty")

// Neighbor is one identity close to the query.
type Neighbor struct {
	Identity roster.Identity `json:"identity"`
	Distance float64         `json:"distance"`
}

// Index wraps an HNSW graph over every gallery descriptor.
type Index struct {
	graph       *hnsw.Graph[int]
	owner       []int // node key -> gallery entry
	descriptors []facematch.Descriptor
	identities  []roster.Identity
	mu          sync.RWMutex
}

// Build indexes every descriptor of the gallery.
func Build(g *gallery.Gallery) *Index {
	idx := &Index{}
	idx.Rebuild(g)
	return idx
}

// Rebuild replaces the indexed contents with g.
func (idx *Index) Rebuild(g *gallery.Gallery) {
	graph := hnsw.NewGraph[int]()
	graph.M = MaxNeighbors
	graph.Ml = 1.0 / float64(MaxNeighbors)
	graph.EfSearch = EfSearch
	graph.Distance = hnsw.EuclideanDistance

	var owner []int
	var descriptors []facematch.Descriptor
	identities := g.Identities()
	for i, e := range g.Entries {
		for _, d := range e.Descriptors {
			key := len(owner)
			owner = append(owner, i)
			descriptors = append(descriptors, d)
			graph.Add(hnsw.MakeNode(key, d.Float32()))
		}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.graph = graph
	idx.owner = owner
	idx.descriptors = descriptors
	idx.identities = identities
}

// Len returns the number of indexed descriptors.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.owner)
}

// Nearest returns up to k distinct identities closest to query, nearest first.
// Distances are exact Euclidean distances to each identity's closest
// descriptor among the graph candidates.
func (idx *Index) Nearest(query facematch.Descriptor, k int) ([]Neighbor, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.owner) == 0 {
		return nil, ErrEmptyIndex
	}
	if k <= 0 {
		return nil, nil
	}

	nodes := idx.graph.Search(query.Float32(), min(k*SearchMultiplier, len(idx.owner)))

	best := make(map[int]float64)
	for _, n := range nodes {
		entry := idx.owner[n.Key]
		d := facematch.Distance(query, idx.descriptors[n.Key])
		if cur, ok := best[entry]; !ok || d < cur {
			best[entry] = d
		}
	}

	out := make([]Neighbor, 0, len(best))
	for entry, d := range best {
		out = append(out, Neighbor{Identity: idx.identities[entry], Distance: d})
	}
	slices.SortFunc(out, func(a, b Neighbor) int {
		return cmp.Or(cmp.Compare(a.Distance, b.Distance), roster.Compare(a.Identity, b.Identity))
	})
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}
