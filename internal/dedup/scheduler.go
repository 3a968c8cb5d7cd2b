package dedup

import (
	"context"

	"github.com/dustin/go-humanize"
)

// Chunk is the half-open range [Lo, Hi) of document indices.
type Chunk struct {
	Lo, Hi int
}

// Len returns the number of documents in the chunk.
func (c Chunk) Len() int { return c.Hi - c.Lo }

// Chunks splits [0, n) into consecutive chunks of at most size documents.
func Chunks(n, size int) []Chunk {
	if n <= 0 {
		return nil
	}
	if size < 1 {
		size = 1
	}
	out := make([]Chunk, 0, (n+size-1)/size)
	for lo := 0; lo < n; lo += size {
		out = append(out, Chunk{Lo: lo, Hi: min(lo+size, n)})
	}
	return out
}

// ClusterWhole computes the full N×N similarity matrix at once. Peak memory
// is O(N²).
func (e *Engine) ClusterWhole(ctx context.Context, space *Space) (Partition, error) {
	e.logger.Debug("computing whole window", "size", humanize.IBytes(windowBytes(space.Len(), space.Len())))
	p, err := e.cluster(ctx, space)
	if err != nil {
		return nil, err
	}
	e.report(1, 1)
	return p, nil
}

// ClusterStreaming computes each document's 1×N row independently and in
// parallel, then sorts and dedupes all candidates together. Peak memory is
// O(N) per worker.
func (e *Engine) ClusterStreaming(ctx context.Context, space *Space) (Partition, error) {
	n := space.Len()
	slots := make([]Cluster, n)
	found := make([]bool, n)

	err := e.parallel(ctx, n, func(ctx context.Context, lo, hi int) error {
		for i := lo; i < hi; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			row := Cross(space.Subset([]int{i}), space)
			slots[i], found[i] = ExtractCommunity(i, row.RawRowView(0), nil, e.minSimilarity, e.minClusterSize)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var candidates []Cluster
	for i, ok := range found {
		if ok {
			candidates = append(candidates, slots[i])
		}
	}
	e.report(n, n)

	SortClusters(candidates)
	return Dedupe(candidates), nil
}

// ClusterBatched computes a B×N block per chunk and collects every chunk's
// candidates before a single sort and dedupe. Peak memory is O(B·N).
func (e *Engine) ClusterBatched(ctx context.Context, space *Space) (Partition, error) {
	var candidates []Cluster
	err := e.eachChunk(ctx, space, func(found []Cluster) {
		candidates = append(candidates, found...)
	})
	if err != nil {
		return nil, err
	}

	SortClusters(candidates)
	return Dedupe(candidates), nil
}

// ClusterIncremental dedupes after every chunk, so a disjoint partition of
// everything seen so far exists as soon as each chunk finishes. Candidates
// that lose to a kept cluster are held back rather than discarded: a larger
// candidate from a later chunk can evict that cluster and let them in again.
// The final partition is therefore the one ClusterBatched returns, and peak
// memory is the same.
func (e *Engine) ClusterIncremental(ctx context.Context, space *Space) (Partition, error) {
	var (
		kept Partition
		held []Cluster
	)
	err := e.eachChunk(ctx, space, func(found []Cluster) {
		pool := make([]Cluster, 0, len(kept)+len(held)+len(found))
		pool = append(pool, kept...)
		pool = append(pool, held...)
		pool = append(pool, found...)
		SortClusters(pool)
		kept, held = dedupe(pool)
		e.logger.Debug("running partition", "clusters", len(kept), "held", len(held))
	})
	if err != nil {
		return nil, err
	}
	return kept, nil
}

// eachChunk computes the chunk-against-corpus window for every chunk and
// hands that chunk's candidates to fn, in chunk order.
func (e *Engine) eachChunk(ctx context.Context, space *Space, fn func([]Cluster)) error {
	chunks := Chunks(space.Len(), e.chunkSize)
	e.logger.Debug("chunked window",
		"chunks", len(chunks),
		"peak", humanize.IBytes(windowBytes(min(e.chunkSize, space.Len()), space.Len())),
	)

	for i, c := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		pivots := Span(c.Lo, c.Hi)
		w := space.Window(pivots, Span(0, space.Len()))
		found, err := e.extract(ctx, w, pivots, nil)
		if err != nil {
			return err
		}
		fn(found)

		e.logger.Debug("chunk processed", "chunk", i, "lo", c.Lo, "hi", c.Hi, "candidates", len(found))
		e.report(i+1, len(chunks))
	}
	return nil
}
