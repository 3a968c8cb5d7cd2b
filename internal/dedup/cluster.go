package dedup

import "sort"

// Cluster is a group of near-duplicate documents anchored on a centroid
// document. The centroid is always one of the members.
type Cluster struct {
	Centroid int   `json:"centroid"`
	Members  []int `json:"members"`
}

// Len returns the number of members.
func (c Cluster) Len() int { return len(c.Members) }

func (c Cluster) clone() Cluster {
	return Cluster{Centroid: c.Centroid, Members: append([]int(nil), c.Members...)}
}

// Partition is an ordered list of clusters. Once deduplicated, no document
// appears in more than one cluster.
type Partition []Cluster

// Documents returns the total number of members across all clusters.
func (p Partition) Documents() int {
	total := 0
	for _, c := range p {
		total += len(c.Members)
	}
	return total
}

// Centroids returns the centroid of every cluster, in partition order.
func (p Partition) Centroids() []int {
	out := make([]int, len(p))
	for i, c := range p {
		out[i] = c.Centroid
	}
	return out
}

// Claimed returns the set of documents held by any cluster.
func (p Partition) Claimed() map[int]struct{} {
	seen := make(map[int]struct{}, p.Documents())
	for _, c := range p {
		for _, m := range c.Members {
			seen[m] = struct{}{}
		}
	}
	return seen
}

// Clone returns a deep copy of p.
func (p Partition) Clone() Partition {
	out := make(Partition, len(p))
	for i, c := range p {
		out[i] = c.clone()
	}
	return out
}

// Offset returns a copy of p with delta added to every document index.
func (p Partition) Offset(delta int) Partition {
	out := make(Partition, len(p))
	for i, c := range p {
		members := make([]int, len(c.Members))
		for j, m := range c.Members {
			members[j] = m + delta
		}
		out[i] = Cluster{Centroid: c.Centroid + delta, Members: members}
	}
	return out
}

// SortClusters orders clusters by descending member count. Equal sizes are
// ordered by ascending centroid index, so larger clusters, and then lower
// centroids, claim documents first during deduplication.
func SortClusters(cs []Cluster) {
	sort.SliceStable(cs, func(i, j int) bool {
		if len(cs[i].Members) != len(cs[j].Members) {
			return len(cs[i].Members) > len(cs[j].Members)
		}
		return cs[i].Centroid < cs[j].Centroid
	})
}
