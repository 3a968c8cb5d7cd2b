package dedup

import (
	"fmt"
	"strings"
)

// Strategy selects how the similarity matrix is computed and bounded.
type Strategy string

const (
	// StrategyWhole computes the full N×N matrix at once.
	StrategyWhole Strategy = "whole"
	// StrategyStreaming computes one 1×N row per document.
	StrategyStreaming Strategy = "streaming"
	// StrategyBatched computes a B×N block per chunk and dedupes once.
	StrategyBatched Strategy = "batched"
	// StrategyIncremental is StrategyBatched with a dedupe after every chunk.
	StrategyIncremental Strategy = "incremental"
	// StrategyHierarchical clusters B×B chunks and merges them.
	StrategyHierarchical Strategy = "hierarchical"
)

// Strategies lists every supported strategy.
var Strategies = []Strategy{
	StrategyWhole,
	StrategyStreaming,
	StrategyBatched,
	StrategyIncremental,
	StrategyHierarchical,
}

// ParseStrategy resolves a strategy name, case-insensitively.
func ParseStrategy(name string) (Strategy, error) {
	s := Strategy(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Strategies {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: unknown strategy %q", ErrConfiguration, name)
}
