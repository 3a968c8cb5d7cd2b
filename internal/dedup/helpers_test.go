package dedup

import (
	"context"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

const testDim = 16

// tightGroup returns size vectors around the basis vector base. Each vector
// is nudged along its own axis starting at spread, so every pair in the
// group has similarity above 0.99 and no two vectors are identical.
func tightGroup(base, spread, size int) [][]float32 {
	out := make([][]float32, size)
	for i := range out {
		v := make([]float32, testDim)
		v[base] = 1
		v[spread+i] = 0.05
		out[i] = v
	}
	return out
}

// twoGroups returns 12 vectors: documents 0-5 around axis 0 and 6-11 around
// axis 1, with near-zero similarity across the groups.
func twoGroups() [][]float32 {
	return append(tightGroup(0, 2, 6), tightGroup(1, 8, 6)...)
}

// plantedCorpus returns a seeded corpus of k planted groups of size members
// each, followed by noise unrelated vectors, all in dim dimensions.
func plantedCorpus(seed uint64, k, size, noise, dim int) [][]float32 {
	r := rand.New(rand.NewPCG(seed, seed+1))
	randVec := func() []float32 {
		v := make([]float32, dim)
		for i := range v {
			v[i] = float32(r.NormFloat64())
		}
		return v
	}

	var out [][]float32
	for g := 0; g < k; g++ {
		center := randVec()
		normalizeL2(center)
		for m := 0; m < size; m++ {
			v := make([]float32, dim)
			for i := range v {
				v[i] = center[i] + float32(r.NormFloat64()*0.04)
			}
			out = append(out, v)
		}
	}
	for i := 0; i < noise; i++ {
		out = append(out, randVec())
	}

	r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// normalizeL2 scales v to unit length in place; zero vectors are left alone.
func normalizeL2(v []float32) {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return
	}
	magnitude := math.Sqrt(sumSquares)
	for i := range v {
		v[i] = float32(float64(v[i]) / magnitude)
	}
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithWorkers(4),
	}
	e, err := NewEngine(append(base, opts...)...)
	require.NoError(t, err)
	return e
}

func prepare(t *testing.T, e *Engine, embeddings [][]float32) *Space {
	t.Helper()
	space, err := e.Prepare(embeddings)
	require.NoError(t, err)
	return space
}

func run(t *testing.T, e *Engine, space *Space, s Strategy) Partition {
	t.Helper()
	p, err := e.Cluster(context.Background(), space, s)
	require.NoError(t, err)
	return p
}

// memberSets returns every cluster's members sorted, with the clusters
// themselves sorted, so partitions can be compared regardless of order.
func memberSets(p Partition) [][]int {
	out := make([][]int, len(p))
	for i, c := range p {
		m := append([]int(nil), c.Members...)
		sort.Ints(m)
		out[i] = m
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i][0] < out[j][0]
	})
	return out
}

// requireSound checks disjointness, minimum size and threshold soundness.
func requireSound(t *testing.T, e *Engine, space *Space, p Partition) {
	t.Helper()
	seen := map[int]bool{}
	for _, c := range p {
		require.Greater(t, c.Len(), e.MinClusterSize(), "cluster %d too small", c.Centroid)
		require.Contains(t, c.Members, c.Centroid)
		for _, m := range c.Members {
			require.False(t, seen[m], "document %d in two clusters", m)
			seen[m] = true
			require.Greater(t, space.Similarity(c.Centroid, m), e.MinSimilarity(),
				"document %d not similar enough to centroid %d", m, c.Centroid)
		}
	}
}
