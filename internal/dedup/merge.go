package dedup

import (
	"context"
	"fmt"
)

// ClusterHierarchical clusters each B×B chunk on its own and folds every
// chunk's partition into a running global partition with Merge. No window
// larger than B×B, or k×k over cluster centroids, is ever built. Documents
// left over after the last merge go through AssignStragglers.
func (e *Engine) ClusterHierarchical(ctx context.Context, space *Space) (Partition, error) {
	chunks := Chunks(space.Len(), e.chunkSize)

	var global Partition
	for i, c := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		local, err := e.cluster(ctx, space.Subset(Span(c.Lo, c.Hi)))
		if err != nil {
			return nil, fmt.Errorf("clustering chunk %d: %w", i, err)
		}
		local = local.Offset(c.Lo)

		global, err = e.Merge(ctx, space, global, local)
		if err != nil {
			return nil, fmt.Errorf("merging chunk %d: %w", i, err)
		}

		e.logger.Debug("chunk merged", "chunk", i, "local", len(local), "global", len(global))
		e.report(i+1, len(chunks))
	}

	before := global.Documents()
	global = e.AssignStragglers(space, global)
	e.logger.Debug("stragglers assigned", "count", global.Documents()-before)
	return global, nil
}

// Merge folds local into global. Every pair of clusters whose centroids are
// more similar than the threshold is re-clustered from the union of their
// members, replacing the global cluster. The updated global clusters and all
// local clusters are then filtered by size, sorted and deduped again, which
// resolves any document claimed twice.
func (e *Engine) Merge(ctx context.Context, space *Space, global, local Partition) (Partition, error) {
	if len(global) == 0 {
		return local, nil
	}
	if len(local) == 0 {
		return global, nil
	}

	localCentroids := space.Subset(local.Centroids())
	globalCentroids := global.Centroids()
	updated := global.Clone()

	merged := 0
	for _, blk := range Chunks(len(global), e.chunkSize) {
		w := Cross(space.Subset(globalCentroids[blk.Lo:blk.Hi]), localCentroids)
		for r := 0; r < blk.Len(); r++ {
			gi := blk.Lo + r
			for li, score := range w.RawRowView(r) {
				if score <= e.minSimilarity {
					continue
				}
				c, ok, err := e.mergeCommunity(ctx, space, updated[gi], local[li])
				if err != nil {
					return nil, err
				}
				if ok {
					updated[gi] = c
					merged++
				}
			}
		}
	}

	all := make([]Cluster, 0, len(updated)+len(local))
	for _, c := range updated {
		if c.Len() > e.minClusterSize {
			all = append(all, c)
		}
	}
	for _, c := range local {
		if c.Len() > e.minClusterSize {
			all = append(all, c.clone())
		}
	}
	SortClusters(all)
	out := Dedupe(all)

	if merged > 0 {
		e.logger.Debug("merged overlapping clusters", "pairs", merged, "before", len(all), "after", len(out))
	}
	return out, nil
}

// mergeCommunity re-clusters the union of a and b and returns its largest
// community mapped back to document indices. It reports false when the
// union no longer forms any community.
func (e *Engine) mergeCommunity(ctx context.Context, space *Space, a, b Cluster) (Cluster, bool, error) {
	ids := unionMembers(a.Members, b.Members)
	p, err := e.cluster(ctx, space.Subset(ids))
	if err != nil {
		return Cluster{}, false, err
	}
	if len(p) == 0 {
		return Cluster{}, false, nil
	}

	top := p[0]
	members := make([]int, len(top.Members))
	for i, m := range top.Members {
		members[i] = ids[m]
	}
	return Cluster{Centroid: ids[top.Centroid], Members: members}, true, nil
}

// unionMembers returns the members of a followed by those of b not in a.
func unionMembers(a, b []int) []int {
	seen := make(map[int]struct{}, len(a)+len(b))
	out := make([]int, 0, len(a)+len(b))
	for _, list := range [][]int{a, b} {
		for _, m := range list {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}
