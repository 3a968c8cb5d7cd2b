package dedup

// Check validates a final partition: no document belongs to two clusters,
// and no two centroids are more similar than the threshold. A failure is an
// *InvariantError and means the partition must not be used.
func (e *Engine) Check(space *Space, p Partition) error {
	owner := make(map[int]int, p.Documents())
	for i, c := range p {
		for _, m := range c.Members {
			if j, ok := owner[m]; ok && j != i {
				return &InvariantError{
					First: j, Second: i,
					FirstCentroid: p[j].Centroid, SecondCentroid: c.Centroid,
					Document: m,
				}
			}
			owner[m] = i
		}
	}

	centroids := p.Centroids()
	all := space.Subset(centroids)
	for _, blk := range Chunks(len(p), e.chunkSize) {
		w := Cross(space.Subset(centroids[blk.Lo:blk.Hi]), all)
		for r := 0; r < blk.Len(); r++ {
			i := blk.Lo + r
			scores := w.RawRowView(r)
			for j := i + 1; j < len(p); j++ {
				if scores[j] > e.minSimilarity {
					return &InvariantError{
						First: i, Second: j,
						FirstCentroid: p[i].Centroid, SecondCentroid: p[j].Centroid,
						Similarity: scores[j],
						Document:   -1,
					}
				}
			}
		}
	}
	return nil
}
