package dedup

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// ExtractCommunity turns one similarity row for pivot into a candidate
// cluster. scores[j] is the similarity of pivot to document cols[j]; a nil
// cols means column j is document j. A document is a member when its score
// is strictly above minSimilarity, and the cluster is only returned when it
// has strictly more than minClusterSize members.
//
// Members are ordered pivot first, then by descending score, then by
// ascending index.
func ExtractCommunity(pivot int, scores []float64, cols []int, minSimilarity float64, minClusterSize int) (Cluster, bool) {
	type hit struct {
		doc   int
		score float64
	}

	var hits []hit
	for j, s := range scores {
		if s > minSimilarity {
			doc := j
			if cols != nil {
				doc = cols[j]
			}
			hits = append(hits, hit{doc: doc, score: s})
		}
	}
	if len(hits) <= minClusterSize {
		return Cluster{}, false
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].doc == pivot || hits[j].doc == pivot {
			return hits[i].doc == pivot
		}
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].doc < hits[j].doc
	})

	members := make([]int, len(hits))
	for i, h := range hits {
		members[i] = h.doc
	}
	return Cluster{Centroid: pivot, Members: members}, true
}

// extract runs ExtractCommunity over every row of w in parallel. Row r of w
// belongs to document pivots[r]. Candidates come back in pivot order.
func (e *Engine) extract(ctx context.Context, w *mat.Dense, pivots []int, cols []int) ([]Cluster, error) {
	slots := make([]Cluster, len(pivots))
	found := make([]bool, len(pivots))

	err := e.parallel(ctx, len(pivots), func(ctx context.Context, lo, hi int) error {
		for r := lo; r < hi; r++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			slots[r], found[r] = ExtractCommunity(pivots[r], w.RawRowView(r), cols, e.minSimilarity, e.minClusterSize)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var out []Cluster
	for r, ok := range found {
		if ok {
			out = append(out, slots[r])
		}
	}
	return out, nil
}

// parallel splits [0, n) into at most e.workers contiguous spans and runs fn
// on each concurrently. Each span writes only to its own output slots. The
// first error cancels the remaining spans and is returned.
func (e *Engine) parallel(ctx context.Context, n int, fn func(ctx context.Context, lo, hi int) error) error {
	if n == 0 {
		return nil
	}
	size := (n + e.workers - 1) / e.workers

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, span := range Chunks(n, size) {
		g.Go(func() error {
			return fn(ctx, span.Lo, span.Hi)
		})
	}
	return g.Wait()
}
