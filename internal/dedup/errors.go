package dedup

import (
	"errors"
	"fmt"
)

// Sentinel errors for clustering operations.
var (
	ErrInputShape         = errors.New("invalid input shape")
	ErrConfiguration      = errors.New("invalid configuration")
	ErrInvariantViolation = errors.New("partition invariant violated")
)

// InvariantError describes the pair of clusters that broke the partition
// invariant. Document is the shared member for an overlap, or -1 when the
// centroids are simply too similar.
type InvariantError struct {
	First, Second                 int
	FirstCentroid, SecondCentroid int
	Similarity                    float64
	Document                      int
}

func (e *InvariantError) Error() string {
	if e.Document >= 0 {
		return fmt.Sprintf("%s: clusters %d (centroid %d) and %d (centroid %d) share document %d",
			ErrInvariantViolation, e.First, e.FirstCentroid, e.Second, e.SecondCentroid, e.Document)
	}
	return fmt.Sprintf("%s: clusters %d (centroid %d) and %d (centroid %d) have centroid similarity %.4f",
		ErrInvariantViolation, e.First, e.FirstCentroid, e.Second, e.SecondCentroid, e.Similarity)
}

func (e *InvariantError) Unwrap() error {
	return ErrInvariantViolation
}
