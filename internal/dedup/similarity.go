package dedup

import (
	"fmt"
	"math"
)

// CosineSimilarity computes the cosine similarity between two raw float32
// vectors. Returns 0 for zero vectors, and an error if dimensions don't match.
// Uses a single-pass computation in float64.
func CosineSimilarity(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: dimension mismatch: %d vs %d", ErrInputShape, len(a), len(b))
	}

	if len(a) == 0 {
		return 0, nil
	}

	var dot, normA, normB float64

	for i := range a {
		ai := float64(a[i])
		bi := float64(b[i])
		dot += ai * bi
		normA += ai * ai
		normB += bi * bi
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return float32(dot / math.Sqrt(normA*normB)), nil
}

// MemberScores returns the cosine similarity of each member of c to its
// centroid, in member order. embeddings is indexed by document.
func MemberScores(embeddings [][]float32, c Cluster) ([]float32, error) {
	if c.Centroid < 0 || c.Centroid >= len(embeddings) {
		return nil, fmt.Errorf("%w: centroid %d out of range", ErrInputShape, c.Centroid)
	}
	centroid := embeddings[c.Centroid]

	scores := make([]float32, len(c.Members))
	for i, m := range c.Members {
		if m < 0 || m >= len(embeddings) {
			return nil, fmt.Errorf("%w: member %d out of range", ErrInputShape, m)
		}
		s, err := CosineSimilarity(centroid, embeddings[m])
		if err != nil {
			return nil, fmt.Errorf("scoring member %d: %w", m, err)
		}
		scores[i] = s
	}
	return scores, nil
}
