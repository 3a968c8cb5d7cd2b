package dedup

// AssignStragglers attaches every document not held by any cluster to its
// most similar centroid, when that similarity exceeds the threshold. The
// centroid set is fixed for the whole pass, so earlier assignments never
// affect later ones. Ties go to the earlier cluster. p is not modified.
func (e *Engine) AssignStragglers(space *Space, p Partition) Partition {
	out := p.Clone()
	if len(p) == 0 {
		return out
	}

	claimed := p.Claimed()
	var stragglers []int
	for doc := 0; doc < space.Len(); doc++ {
		if _, ok := claimed[doc]; !ok {
			stragglers = append(stragglers, doc)
		}
	}

	centroids := space.Subset(p.Centroids())
	for _, blk := range Chunks(len(stragglers), e.chunkSize) {
		docs := stragglers[blk.Lo:blk.Hi]
		w := Cross(space.Subset(docs), centroids)
		for r, doc := range docs {
			scores := w.RawRowView(r)
			best := 0
			for k := 1; k < len(scores); k++ {
				if scores[k] > scores[best] {
					best = k
				}
			}
			if scores[best] > e.minSimilarity {
				out[best].Members = append(out[best].Members, doc)
			}
		}
	}
	return out
}
