package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"
)

const (
	defaultMinSimilarity  = 0.70
	defaultMinClusterSize = 5
	defaultChunkSize      = 1000
)

// Engine clusters a Space into near-duplicate groups.
type Engine struct {
	minSimilarity  float64
	minClusterSize int
	chunkSize      int
	workers        int
	logger         *slog.Logger
	progress       func(done, total int)
}

// Option configures an Engine.
type Option func(*Engine)

// WithMinSimilarity sets the similarity a document must strictly exceed to
// join a centroid's cluster.
func WithMinSimilarity(s float64) Option {
	return func(e *Engine) { e.minSimilarity = s }
}

// WithMinClusterSize sets the member count a cluster must strictly exceed
// to be kept.
func WithMinClusterSize(n int) Option {
	return func(e *Engine) { e.minClusterSize = n }
}

// WithChunkSize sets the number of rows processed per block.
func WithChunkSize(n int) Option {
	return func(e *Engine) { e.chunkSize = n }
}

// WithWorkers sets how many goroutines extract communities concurrently.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// WithLogger sets the logger used for progress and warnings.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithProgress registers a callback invoked after each processed block.
func WithProgress(fn func(done, total int)) Option {
	return func(e *Engine) { e.progress = fn }
}

// NewEngine creates an Engine. It returns ErrConfiguration when a parameter
// is outside its valid range.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		minSimilarity:  defaultMinSimilarity,
		minClusterSize: defaultMinClusterSize,
		chunkSize:      defaultChunkSize,
		workers:        runtime.GOMAXPROCS(0),
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.minSimilarity <= 0 || e.minSimilarity >= 1 {
		return nil, fmt.Errorf("%w: min similarity must be in (0, 1), got %g", ErrConfiguration, e.minSimilarity)
	}
	if e.minClusterSize < 1 {
		return nil, fmt.Errorf("%w: min cluster size must be at least 1, got %d", ErrConfiguration, e.minClusterSize)
	}
	if e.chunkSize < 1 {
		return nil, fmt.Errorf("%w: chunk size must be at least 1, got %d", ErrConfiguration, e.chunkSize)
	}
	if e.workers < 1 {
		return nil, fmt.Errorf("%w: workers must be at least 1, got %d", ErrConfiguration, e.workers)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e, nil
}

// MinSimilarity returns the configured similarity threshold.
func (e *Engine) MinSimilarity() float64 { return e.minSimilarity }

// MinClusterSize returns the configured minimum cluster size.
func (e *Engine) MinClusterSize() int { return e.minClusterSize }

// ChunkSize returns the configured block size.
func (e *Engine) ChunkSize() int { return e.chunkSize }

// Prepare builds a normalized Space from raw embeddings. Zero vectors are
// kept as zero and reported as a warning; they never exceed a positive
// threshold so they always end up unclustered.
func (e *Engine) Prepare(embeddings [][]float32) (*Space, error) {
	space, err := NewSpace(embeddings)
	if err != nil {
		return nil, err
	}
	if zero := space.Normalize(); len(zero) > 0 {
		e.logger.Warn("zero-norm embeddings left unnormalized", "count", len(zero), "first", zero[0])
	}
	return space, nil
}

// Cluster runs the given strategy over space and validates the result.
func (e *Engine) Cluster(ctx context.Context, space *Space, strategy Strategy) (Partition, error) {
	start := time.Now()
	logger := e.logger.With("strategy", string(strategy), "documents", space.Len())
	logger.Info("clustering started", "chunk_size", e.chunkSize, "min_similarity", e.minSimilarity)

	var (
		p   Partition
		err error
	)
	switch strategy {
	case StrategyWhole:
		p, err = e.ClusterWhole(ctx, space)
	case StrategyStreaming:
		p, err = e.ClusterStreaming(ctx, space)
	case StrategyBatched:
		p, err = e.ClusterBatched(ctx, space)
	case StrategyIncremental:
		p, err = e.ClusterIncremental(ctx, space)
	case StrategyHierarchical:
		p, err = e.ClusterHierarchical(ctx, space)
	default:
		return nil, fmt.Errorf("%w: unknown strategy %q", ErrConfiguration, strategy)
	}
	if err != nil {
		return nil, err
	}

	if err := e.Check(space, p); err != nil {
		logger.Error("partition failed validation", "error", err)
		return nil, err
	}

	logger.Info("clustering finished",
		"clusters", len(p),
		"clustered", p.Documents(),
		"duration", time.Since(start),
	)
	return p, nil
}

// cluster is the single clustering function every strategy reduces to on
// a small enough space: full window, extract, sort, dedupe.
func (e *Engine) cluster(ctx context.Context, space *Space) (Partition, error) {
	if space.Len() == 0 {
		return nil, nil
	}
	w := Cross(space, space)
	candidates, err := e.extract(ctx, w, Span(0, space.Len()), nil)
	if err != nil {
		return nil, err
	}
	SortClusters(candidates)
	return Dedupe(candidates), nil
}

func (e *Engine) report(done, total int) {
	if e.progress != nil {
		e.progress(done, total)
	}
}
