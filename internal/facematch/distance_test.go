package facematch

import (
	"math"
	"testing"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name     string
		a        Descriptor
		b        Descriptor
		expected float64
	}{
		{
			name:     "identical",
			a:        Descriptor{0.1, 0.2, 0.3},
			b:        Descriptor{0.1, 0.2, 0.3},
			expected: 0,
		},
		{
			name:     "3-4-5 triangle",
			a:        Descriptor{0, 0},
			b:        Descriptor{3, 4},
			expected: 5,
		},
		{
			name:     "one axis",
			a:        Descriptor{1, 0, 0, 0},
			b:        Descriptor{0.5, 0, 0, 0},
			expected: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Distance(tt.a, tt.b)
			if math.Abs(result-tt.expected) > 0.0001 {
				t.Errorf("Distance(%v, %v) = %v, want %v", tt.a, tt.b, result, tt.expected)
			}
		})
	}
}

func TestDistance_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		a    Descriptor
		b    Descriptor
	}{
		{"length mismatch", Descriptor{1, 2}, Descriptor{1, 2, 3}},
		{"empty", Descriptor{}, Descriptor{}},
		{"nil", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if d := Distance(tt.a, tt.b); !math.IsInf(d, 1) {
				t.Errorf("Distance(%v, %v) = %v, want +Inf", tt.a, tt.b, d)
			}
		})
	}
}

func TestMinDistance(t *testing.T) {
	refs := []Descriptor{{1, 0}, {0.2, 0}, {0, 3}}

	if d := MinDistance(Descriptor{0, 0}, refs); math.Abs(d-0.2) > 0.0001 {
		t.Errorf("MinDistance = %v, want 0.2", d)
	}
	if d := MinDistance(Descriptor{0, 0}, nil); !math.IsInf(d, 1) {
		t.Errorf("MinDistance with no refs = %v, want +Inf", d)
	}
}

func TestBestMatch(t *testing.T) {
	candidates := []Candidate{
		{Index: 0, Descriptors: []Descriptor{{0.9, 0}}},
		{Index: 1, Descriptors: []Descriptor{{5, 5}, {0.25, 0}}},
		{Index: 2, Descriptors: []Descriptor{{0, 0.4}}},
	}

	tests := []struct {
		name      string
		query     Descriptor
		tolerance float64
		wantIndex int
	}{
		{"nearest over union of descriptors", Descriptor{0, 0}, 0.5, 1},
		{"nothing within tolerance", Descriptor{0, 0}, 0.1, -1},
		{"single candidate within tolerance", Descriptor{0, 0.45}, 0.1, 2},
		{"tolerance boundary is inclusive", Descriptor{0, 0}, 0.25, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := BestMatch(tt.query, candidates, tt.tolerance)
			if m.Index != tt.wantIndex {
				t.Errorf("BestMatch() index = %d (distance %v), want %d", m.Index, m.Distance, tt.wantIndex)
			}
			if m.Found() != (tt.wantIndex >= 0) {
				t.Errorf("Found() = %v, want %v", m.Found(), tt.wantIndex >= 0)
			}
		})
	}
}

func TestBestMatch_ExactTieKeepsFirstCandidate(t *testing.T) {
	candidates := []Candidate{
		{Index: 7, Descriptors: []Descriptor{{0.2, 0}}},
		{Index: 3, Descriptors: []Descriptor{{-0.2, 0}}},
	}

	m := BestMatch(Descriptor{0, 0}, candidates, 0.5)
	if m.Index != 7 {
		t.Errorf("BestMatch() index = %d, want 7 (first candidate)", m.Index)
	}
}

func TestFloat32Conversion(t *testing.T) {
	d := Descriptor{0.25, -1.5, 3}
	back := FromFloat32(d.Float32())
	if Distance(d, back) > 1e-6 {
		t.Errorf("float32 round trip = %v, want %v", back, d)
	}
}

func TestClone(t *testing.T) {
	d := Descriptor{1, 2}
	c := d.Clone()
	c[0] = 9
	if d[0] != 1 {
		t.Error("Clone shares storage with the original")
	}
	if Descriptor(nil).Clone() != nil {
		t.Error("Clone of nil should be nil")
	}
}
