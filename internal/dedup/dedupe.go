package dedup

// Dedupe reduces an ordered list of candidate clusters to a disjoint
// partition. Candidates are taken in the given order: a candidate is kept
// unchanged when none of its members has been claimed yet, otherwise it is
// dropped entirely. Callers sort with SortClusters first.
func Dedupe(candidates []Cluster) Partition {
	found, _ := dedupe(candidates)
	return found
}

// dedupe is Dedupe that also returns the candidates it dropped, in order.
func dedupe(candidates []Cluster) (Partition, []Cluster) {
	found := make(Partition, 0, len(candidates))
	var dropped []Cluster
	seen := make(map[int]struct{})

	for _, c := range candidates {
		if anyClaimed(seen, c.Members) {
			dropped = append(dropped, c)
			continue
		}
		for _, m := range c.Members {
			seen[m] = struct{}{}
		}
		found = append(found, c)
	}
	return found, dropped
}

func anyClaimed(seen map[int]struct{}, members []int) bool {
	for _, m := range members {
		if _, ok := seen[m]; ok {
			return true
		}
	}
	return false
}
