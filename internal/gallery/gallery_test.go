package gallery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/roster"
)

var (
	alice = roster.Identity{RegNo: "101", Name: "Alice", Branch: "ECE", Session: "2023-2027"}
	bob   = roster.Identity{RegNo: "102", Name: "Bob", Branch: "ECE", Session: "2023-2027"}
	carol = roster.Identity{RegNo: "201", Name: "Carol", Branch: "EEE", Session: "2022-2026"}
)

func TestGallery_AddGroupsByIdentity(t *testing.T) {
	g := New()
	require.NoError(t, g.Add(alice, facematch.Descriptor{0, 0}))
	require.NoError(t, g.Add(bob, facematch.Descriptor{1, 1}))
	require.NoError(t, g.Add(alice, facematch.Descriptor{0.1, 0}))

	assert.Equal(t, 2, g.Len())
	assert.Equal(t, 3, g.DescriptorCount())
	assert.Equal(t, 2, g.Dim)
	assert.Equal(t, []roster.Identity{alice, bob}, g.Identities())
	assert.Equal(t, []facematch.Descriptor{{0, 0}, {0.1, 0}}, g.Entries[0].Descriptors)
}

func TestGallery_AddCopiesDescriptor(t *testing.T) {
	g := New()
	d := facematch.Descriptor{1, 2}
	require.NoError(t, g.Add(alice, d))

	d[0] = 99
	assert.Equal(t, 1.0, g.Entries[0].Descriptors[0][0])
}

func TestGallery_AddRejectsDimensionMismatch(t *testing.T) {
	g := New()
	require.NoError(t, g.Add(alice, facematch.Descriptor{0, 0, 0}))

	assert.ErrorIs(t, g.Add(bob, facematch.Descriptor{0, 0}), ErrDimensionMismatch)
	assert.ErrorIs(t, g.Add(bob, nil), ErrDimensionMismatch)
	assert.Equal(t, 1, g.Len())
}

func TestGallery_Cohorts(t *testing.T) {
	g := New()
	require.NoError(t, g.Add(carol, facematch.Descriptor{1}))
	require.NoError(t, g.Add(alice, facematch.Descriptor{1}))
	require.NoError(t, g.Add(bob, facematch.Descriptor{1}))

	assert.Equal(t, []roster.Cohort{
		{Branch: "ECE", Session: "2023-2027"},
		{Branch: "EEE", Session: "2022-2026"},
	}, g.Cohorts())
}

func TestGallery_Select(t *testing.T) {
	g := New()
	require.NoError(t, g.Add(alice, facematch.Descriptor{1}))
	require.NoError(t, g.Add(carol, facematch.Descriptor{2}))
	require.NoError(t, g.Add(bob, facematch.Descriptor{3}))

	selected := g.Select(roster.Cohort{Branch: "ECE", Session: "2023-2027"}.Filter())
	require.Len(t, selected, 2)
	assert.Equal(t, alice, selected[0].Identity)
	assert.Equal(t, bob, selected[1].Identity)

	assert.Len(t, g.Select(roster.All), 3)
}

func TestGallery_LookupAfterDecode(t *testing.T) {
	// Entries populated directly, as after loading from disk.
	g := &Gallery{Dim: 1, Entries: []Entry{{Identity: alice, Descriptors: []facematch.Descriptor{{1}}}}}

	require.NoError(t, g.Add(alice, facematch.Descriptor{2}))
	assert.Equal(t, 1, g.Len())
	assert.Len(t, g.Entries[0].Descriptors, 2)
}

func TestGallery_AddKeepsLongUngroupedNameApart(t *testing.T) {
	grouped := roster.Identity{RegNo: "101", Name: "Ramesh", Branch: "Kumar", Session: "Singh"}
	ungrouped := roster.Identity{RegNo: "101", Name: "Ramesh Kumar Singh", Branch: "Unknown", Session: "Unknown"}

	g := New()
	require.NoError(t, g.Add(grouped, facematch.Descriptor{0, 0}))
	require.NoError(t, g.Add(ungrouped, facematch.Descriptor{1, 1}))

	assert.Equal(t, 2, g.Len())
	assert.Equal(t, []roster.Identity{grouped, ungrouped}, g.Identities())
}
