package dedup

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Space owns a dense N×D matrix of embeddings. Rows are addressed by their
// position in the original input. Downstream code only ever sees read-only
// views of the matrix.
type Space struct {
	data *mat.Dense
	n    int
	dim  int
}

// NewSpace copies embeddings into a dense matrix. Every embedding must have
// the same non-zero length and contain only finite values.
func NewSpace(embeddings [][]float32) (*Space, error) {
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("%w: no embeddings", ErrInputShape)
	}
	dim := len(embeddings[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: embedding 0 is empty", ErrInputShape)
	}

	raw := make([]float64, len(embeddings)*dim)
	for i, e := range embeddings {
		if len(e) != dim {
			return nil, fmt.Errorf("%w: embedding %d has dimension %d, expected %d", ErrInputShape, i, len(e), dim)
		}
		row := raw[i*dim : (i+1)*dim]
		for j, v := range e {
			f := float64(v)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return nil, fmt.Errorf("%w: embedding %d has non-finite component at %d", ErrInputShape, i, j)
			}
			row[j] = f
		}
	}

	return &Space{
		data: mat.NewDense(len(embeddings), dim, raw),
		n:    len(embeddings),
		dim:  dim,
	}, nil
}

// Len returns the number of rows.
func (s *Space) Len() int { return s.n }

// Dim returns the embedding dimension.
func (s *Space) Dim() int { return s.dim }

// Row returns a read-only view of row i.
func (s *Space) Row(i int) mat.Vector {
	return s.data.RowView(i)
}

// Similarity returns the inner product of rows i and j, which is their
// cosine similarity once the space is normalized.
func (s *Space) Similarity(i, j int) float64 {
	return floats.Dot(s.data.RawRowView(i), s.data.RawRowView(j))
}

// Normalize scales every row to unit L2 norm in place. Rows with zero norm
// are left as they are and their indices are returned. Calling Normalize on
// an already normalized space changes nothing beyond rounding.
func (s *Space) Normalize() []int {
	var zero []int
	for i := 0; i < s.n; i++ {
		row := s.data.RawRowView(i)
		norm := floats.Norm(row, 2)
		if norm == 0 {
			zero = append(zero, i)
			continue
		}
		floats.Scale(1/norm, row)
	}
	return zero
}

// Subset returns a space holding the given rows, in the given order.
// Position k of the result corresponds to rows[k] of s. A contiguous
// ascending run shares storage with s; anything else is copied.
func (s *Space) Subset(rows []int) *Space {
	if len(rows) == 0 {
		return &Space{data: &mat.Dense{}, dim: s.dim}
	}
	if contiguous(rows) {
		lo := rows[0]
		return &Space{
			data: s.data.Slice(lo, lo+len(rows), 0, s.dim).(*mat.Dense),
			n:    len(rows),
			dim:  s.dim,
		}
	}

	raw := make([]float64, len(rows)*s.dim)
	for k, r := range rows {
		copy(raw[k*s.dim:(k+1)*s.dim], s.data.RawRowView(r))
	}
	return &Space{
		data: mat.NewDense(len(rows), s.dim, raw),
		n:    len(rows),
		dim:  s.dim,
	}
}

func contiguous(rows []int) bool {
	for k := 1; k < len(rows); k++ {
		if rows[k] != rows[0]+k {
			return false
		}
	}
	return true
}
