package dedup

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck_ValidPartition(t *testing.T) {
	e := newTestEngine(t)
	space := prepare(t, e, twoGroups())

	p := Partition{
		{Centroid: 0, Members: Span(0, 6)},
		{Centroid: 6, Members: Span(6, 12)},
	}
	assert.NoError(t, e.Check(space, p))
	assert.NoError(t, e.Check(space, nil))
}

func TestCheck_SharedDocument(t *testing.T) {
	e := newTestEngine(t)
	space := prepare(t, e, twoGroups())

	p := Partition{
		{Centroid: 0, Members: Span(0, 6)},
		{Centroid: 6, Members: []int{6, 7, 8, 3}},
	}
	err := e.Check(space, p)
	require.ErrorIs(t, err, ErrInvariantViolation)

	var ie *InvariantError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, 3, ie.Document)
	assert.Equal(t, 0, ie.First)
	assert.Equal(t, 1, ie.Second)
	assert.Contains(t, err.Error(), "share document 3")
}

func TestCheck_CentroidsTooSimilar(t *testing.T) {
	e := newTestEngine(t, WithChunkSize(1))
	space := prepare(t, e, tightGroup(0, 2, 12))

	p := Partition{
		{Centroid: 0, Members: Span(0, 6)},
		{Centroid: 6, Members: Span(6, 12)},
	}
	err := e.Check(space, p)
	require.ErrorIs(t, err, ErrInvariantViolation)

	var ie *InvariantError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, -1, ie.Document)
	assert.Equal(t, 0, ie.FirstCentroid)
	assert.Equal(t, 6, ie.SecondCentroid)
	assert.Greater(t, ie.Similarity, 0.99)
}
