package facematch

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Distance computes the Euclidean distance between two descriptors.
// Lower distance means more similar faces. Descriptors of different length
// (or empty ones) are infinitely far apart.
func Distance(a, b Descriptor) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}
	return floats.Distance(a, b, 2)
}

// MinDistance returns the distance from query to the closest reference
// descriptor, or +Inf when refs is empty.
func MinDistance(query Descriptor, refs []Descriptor) float64 {
	best := math.Inf(1)
	for _, ref := range refs {
		if d := Distance(query, ref); d < best {
			best = d
		}
	}
	return best
}

// BestMatch returns the candidate whose closest reference descriptor is
// nearest to query, considering only distances <= tolerance. A candidate
// matches if any one of its descriptors is within tolerance. Exact ties keep
// the candidate that appears first in candidates.
func BestMatch(query Descriptor, candidates []Candidate, tolerance float64) Match {
	best := NoMatch
	for _, c := range candidates {
		d := MinDistance(query, c.Descriptors)
		if d > tolerance {
			continue
		}
		if !best.Found() || d < best.Distance {
			best = Match{Index: c.Index, Distance: d}
		}
	}
	return best
}

// Float32 converts a descriptor for float32-based vector stores.
func (d Descriptor) Float32() []float32 {
	out := make([]float32, len(d))
	for i, v := range d {
		out[i] = float32(v)
	}
	return out
}

// FromFloat32 converts a float32 vector into a descriptor.
func FromFloat32(v []float32) Descriptor {
	out := make(Descriptor, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}

// Clone returns a copy that does not share storage with d.
func (d Descriptor) Clone() Descriptor {
	if d == nil {
		return nil
	}
	out := make(Descriptor, len(d))
	copy(out, d)
	return out
}
