package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupe_GreedyWholeClusters(t *testing.T) {
	candidates := []Cluster{
		{Centroid: 0, Members: []int{0, 1, 2, 3}},
		{Centroid: 5, Members: []int{5, 6, 7}},
		// Mostly free, but 3 is taken: dropped entirely.
		{Centroid: 8, Members: []int{8, 9, 3}},
		{Centroid: 10, Members: []int{10, 11}},
	}

	got := Dedupe(candidates)
	assert.Equal(t, Partition{candidates[0], candidates[1], candidates[3]}, got)
}

func TestDedupe_Empty(t *testing.T) {
	assert.Empty(t, Dedupe(nil))
}

func TestSortClusters_SizeThenCentroid(t *testing.T) {
	cs := []Cluster{
		{Centroid: 9, Members: []int{9, 1}},
		{Centroid: 4, Members: []int{4, 2, 3}},
		{Centroid: 2, Members: []int{2, 7}},
		{Centroid: 7, Members: []int{7, 8, 6}},
	}
	SortClusters(cs)

	var got []int
	for _, c := range cs {
		got = append(got, c.Centroid)
	}
	assert.Equal(t, []int{4, 7, 2, 9}, got)
}

func TestDedupe_TieBreakLowestCentroidWins(t *testing.T) {
	cs := []Cluster{
		{Centroid: 6, Members: []int{6, 3, 1}},
		{Centroid: 3, Members: []int{3, 6, 1}},
	}
	SortClusters(cs)
	got := Dedupe(cs)
	assert.Len(t, got, 1)
	assert.Equal(t, 3, got[0].Centroid)
}

func TestPartition_Helpers(t *testing.T) {
	p := Partition{
		{Centroid: 0, Members: []int{0, 1}},
		{Centroid: 4, Members: []int{4, 5, 6}},
	}

	assert.Equal(t, 5, p.Documents())
	assert.Equal(t, []int{0, 4}, p.Centroids())
	assert.Len(t, p.Claimed(), 5)

	shifted := p.Offset(10)
	assert.Equal(t, Partition{
		{Centroid: 10, Members: []int{10, 11}},
		{Centroid: 14, Members: []int{14, 15, 16}},
	}, shifted)
	assert.Equal(t, 0, p[0].Centroid, "offset must not modify the receiver")

	clone := p.Clone()
	clone[0].Members[0] = 99
	assert.Equal(t, 0, p[0].Members[0], "clone must not share members")
}
