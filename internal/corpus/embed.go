// Package corpus turns raw documents into embeddings and moves corpora and
// clustering results in and out of JSON files.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/jacklau/neardup/internal/provider"
	"github.com/jacklau/neardup/internal/retry"
)

const (
	DefaultBatchSize = 1000
	DefaultMaxChars  = 8000
)

// ErrDimensionMismatch is returned when a provider answers with embeddings
// of different lengths within one corpus.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Options controls how a corpus is embedded.
type Options struct {
	// BatchSize is the number of texts sent per provider request.
	BatchSize int
	// MaxChars truncates each text to this many characters before embedding.
	MaxChars int
	// MaxAttempts bounds the calls per batch on rate limits and timeouts.
	MaxAttempts int
	// RetryDelay is the wait after the first failed attempt.
	RetryDelay time.Duration
	// Workers is the number of batches in flight at once.
	Workers int
	// Timeout bounds each provider request. Zero means no per-request limit.
	Timeout  time.Duration
	Logger   *slog.Logger
	Progress func(done, total int)
}

func (o *Options) applyDefaults() {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.MaxChars <= 0 {
		o.MaxChars = DefaultMaxChars
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = retry.DefaultMaxAttempts
	}
	if o.Workers <= 0 {
		o.Workers = min(4, runtime.GOMAXPROCS(0))
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Embed embeds texts in batches and returns one vector per text, in input
// order. Batches run concurrently; the first failing batch cancels the
// rest. All vectors must share one dimension.
func Embed(ctx context.Context, embedder provider.Embedder, texts []string, opts Options) ([][]float32, error) {
	opts.applyDefaults()
	if len(texts) == 0 {
		return nil, nil
	}

	batcher := provider.AsBatch(embedder)
	out := make([][]float32, len(texts))
	total := (len(texts) + opts.BatchSize - 1) / opts.BatchSize

	policy := retry.Policy{
		MaxAttempts: opts.MaxAttempts,
		BaseDelay:   opts.RetryDelay,
		Retryable:   provider.Retryable,
	}

	var (
		mu   sync.Mutex
		done int
	)
	report := func() {
		mu.Lock()
		defer mu.Unlock()
		done++
		if opts.Progress != nil {
			opts.Progress(done, total)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for b := 0; b < total; b++ {
		lo := b * opts.BatchSize
		hi := min(lo+opts.BatchSize, len(texts))

		g.Go(func() error {
			batch := make([]string, hi-lo)
			for i, text := range texts[lo:hi] {
				batch[i] = Truncate(text, opts.MaxChars)
			}

			logger := opts.Logger.With("batch", b, "lo", lo, "hi", hi)
			p := policy
			p.OnRetry = func(attempt int, err error) {
				logger.Warn("embedding batch failed, retrying", "attempt", attempt, "error", err)
			}

			var vecs [][]float32
			err := p.Do(gctx, func() error {
				reqCtx, cancel := requestContext(gctx, opts.Timeout)
				defer cancel()
				var err error
				vecs, err = batcher.EmbedBatch(reqCtx, batch)
				return err
			})
			if err != nil {
				return fmt.Errorf("embedding batch %d (documents %d-%d): %w", b, lo, hi-1, err)
			}
			if len(vecs) != len(batch) {
				return fmt.Errorf("%w: batch %d returned %d embeddings for %d texts", provider.ErrInvalidResponse, b, len(vecs), len(batch))
			}

			copy(out[lo:hi], vecs)
			logger.Debug("batch embedded")
			report()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	dim := len(out[0])
	for i, v := range out {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: document %d has %d dimensions, expected %d", ErrDimensionMismatch, i, len(v), dim)
		}
	}
	return out, nil
}

func requestContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// Truncate shortens text to at most maxChars characters without splitting
// a multi-byte rune.
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	n := 0
	for i := range text {
		if n == maxChars {
			return text[:i]
		}
		n++
	}
	return text
}
