package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindow_MatchesPairwiseDot(t *testing.T) {
	space, err := NewSpace(plantedCorpus(3, 2, 4, 5, 12))
	require.NoError(t, err)
	space.Normalize()

	rowsA := []int{4, 0, 7}
	rowsB := Span(2, 9)
	w := space.Window(rowsA, rowsB)

	r, c := w.Dims()
	require.Equal(t, len(rowsA), r)
	require.Equal(t, len(rowsB), c)
	for i, a := range rowsA {
		for j, b := range rowsB {
			assert.InDelta(t, space.Similarity(a, b), w.At(i, j), 1e-9)
		}
	}
}

func TestWindow_SameResultAtAnyGranularity(t *testing.T) {
	space, err := NewSpace(plantedCorpus(11, 3, 5, 5, 16))
	require.NoError(t, err)
	space.Normalize()

	all := Span(0, space.Len())
	full := space.Window(all, all)
	for i := range all {
		row := space.Window([]int{i}, all)
		for j := range all {
			assert.InDelta(t, full.At(i, j), row.At(0, j), 1e-9)
		}
	}
}

func TestWindow_EmptySide(t *testing.T) {
	space, err := NewSpace([][]float32{{1, 0}})
	require.NoError(t, err)

	w := space.Window(nil, []int{0})
	assert.True(t, w.IsEmpty())
}

func TestSpan(t *testing.T) {
	assert.Equal(t, []int{3, 4, 5}, Span(3, 6))
	assert.Nil(t, Span(4, 4))
	assert.Nil(t, Span(5, 2))
}

func TestChunks(t *testing.T) {
	assert.Equal(t, []Chunk{{0, 4}, {4, 8}, {8, 10}}, Chunks(10, 4))
	assert.Equal(t, []Chunk{{0, 3}}, Chunks(3, 1000))
	assert.Len(t, Chunks(5, 1), 5)
	assert.Nil(t, Chunks(0, 10))
}
