package provider

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for provider operations.
var (
	ErrRateLimit       = errors.New("rate limit exceeded")
	ErrTimeout         = errors.New("request timed out")
	ErrInvalidResponse = errors.New("invalid response from provider")
	ErrEmptyText       = errors.New("cannot embed empty text")
)

// Retryable reports whether err is worth another attempt. Rate limits and
// timeouts are; malformed responses and empty input are not.
func Retryable(err error) bool {
	return errors.Is(err, ErrRateLimit) || errors.Is(err, ErrTimeout)
}

// Embedder generates vector embeddings from text.
type Embedder interface {
	// Embed returns a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// BatchEmbedder extends Embedder with batch embedding support. Both OpenAI
// and Ollama accept many inputs per request; EmbedBatchSequential adapts any
// other Embedder.
type BatchEmbedder interface {
	Embedder
	// EmbedBatch returns vector embeddings for multiple texts in a single call.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedBatchSequential implements batch embedding by calling Embed sequentially.
// Use this as a fallback for providers that don't support native batch embedding.
func EmbedBatchSequential(ctx context.Context, embedder Embedder, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	for i, text := range texts {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		emb, err := embedder.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		results[i] = emb
	}
	return results, nil
}

// Completer generates text completions from a prompt.
type Completer interface {
	// Complete returns a text completion for the given prompt.
	Complete(ctx context.Context, prompt string) (string, error)
}

// AsBatch returns e as a BatchEmbedder, wrapping it with
// EmbedBatchSequential when it has no native batch support.
func AsBatch(e Embedder) BatchEmbedder {
	if b, ok := e.(BatchEmbedder); ok {
		return b
	}
	return sequential{e}
}

type sequential struct{ Embedder }

func (s sequential) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return EmbedBatchSequential(ctx, s.Embedder, texts)
}

// DefaultMaxTokens bounds a completion. A cluster label reply is one short
// JSON object.
const DefaultMaxTokens = 100

// CompleterOption configures a completer.
type CompleterOption func(*completerSettings)

type completerSettings struct {
	maxTokens int
}

// WithMaxTokens caps the length of each completion. Values below one keep
// DefaultMaxTokens.
func WithMaxTokens(n int) CompleterOption {
	return func(s *completerSettings) {
		if n > 0 {
			s.maxTokens = n
		}
	}
}

func applyCompleterOptions(opts []CompleterOption) completerSettings {
	s := completerSettings{maxTokens: DefaultMaxTokens}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
