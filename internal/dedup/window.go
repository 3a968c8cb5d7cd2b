package dedup

import "gonum.org/v1/gonum/mat"

// Window returns the |rowsA|×|rowsB| matrix of similarities between the
// given rows of s. Its memory cost is what every strategy budgets against.
func (s *Space) Window(rowsA, rowsB []int) *mat.Dense {
	return Cross(s.Subset(rowsA), s.Subset(rowsB))
}

// Cross returns a·bᵀ, the similarity of every row of a against every row
// of b. An empty side yields an empty matrix.
func Cross(a, b *Space) *mat.Dense {
	if a.n == 0 || b.n == 0 {
		return &mat.Dense{}
	}
	var out mat.Dense
	out.Mul(a.data, b.data.T())
	return &out
}

// Span returns the indices lo, lo+1, ..., hi-1.
func Span(lo, hi int) []int {
	if hi <= lo {
		return nil
	}
	idx := make([]int, hi-lo)
	for i := range idx {
		idx[i] = lo + i
	}
	return idx
}

// windowBytes estimates the memory held by a rows×cols window.
func windowBytes(rows, cols int) uint64 {
	return uint64(rows) * uint64(cols) * 8
}
