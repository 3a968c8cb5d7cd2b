// Package phatic detects small-talk documents such as greetings and thanks
// so they can be kept out of a corpus before clustering.
package phatic

import (
	"context"
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/jacklau/neardup/internal/provider"
)

// DefaultThreshold is the example similarity above which a text is phatic.
const DefaultThreshold = 0.5

const (
	// Texts with at most this many words are always phatic.
	maxPhaticWords = 3
	// Texts with at least this many words are never phatic.
	minContentWords = 15
)

//go:embed examples.txt
var defaultExamples string

// DefaultExamples returns the built-in example phrases.
func DefaultExamples() []string {
	var out []string
	for _, line := range strings.Split(defaultExamples, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// Detector classifies texts as phatic by word count and, for mid-length
// texts, by similarity to a set of example phrases.
type Detector struct {
	embedder  provider.Embedder
	examples  *mat.Dense
	threshold float64
	sanitizer *sanitizer
}

// NewDetector embeds examples once and returns a Detector. Empty examples
// select DefaultExamples.
func NewDetector(ctx context.Context, embedder provider.Embedder, examples []string, threshold float64) (*Detector, error) {
	if len(examples) == 0 {
		examples = DefaultExamples()
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("phatic threshold must be between 0 and 1, got %f", threshold)
	}

	vecs, err := provider.AsBatch(embedder).EmbedBatch(ctx, examples)
	if err != nil {
		return nil, fmt.Errorf("embedding phatic examples: %w", err)
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return nil, fmt.Errorf("%w: no example embeddings", provider.ErrInvalidResponse)
	}

	dim := len(vecs[0])
	m := mat.NewDense(len(vecs), dim, nil)
	for i, v := range vecs {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: example %d has dimension %d, want %d", provider.ErrInvalidResponse, i, len(v), dim)
		}
		m.SetRow(i, normalized(v))
	}

	return &Detector{
		embedder:  embedder,
		examples:  m,
		threshold: threshold,
		sanitizer: newSanitizer(),
	}, nil
}

// IsPhatic reports whether text is small talk. embedding may be nil, in
// which case it is computed when needed.
func (d *Detector) IsPhatic(ctx context.Context, text string, embedding []float32) (bool, error) {
	switch words := len(strings.Fields(d.Sanitize(text))); {
	case words <= maxPhaticWords:
		return true, nil
	case words >= minContentWords:
		return false, nil
	}

	if embedding == nil {
		vec, err := d.embedder.Embed(ctx, text)
		if err != nil {
			return false, fmt.Errorf("embedding text: %w", err)
		}
		embedding = vec
	}

	_, dim := d.examples.Dims()
	if len(embedding) != dim {
		return false, fmt.Errorf("embedding dimension %d does not match examples (%d)", len(embedding), dim)
	}

	var scores mat.VecDense
	scores.MulVec(d.examples, mat.NewVecDense(dim, normalized(embedding)))
	return floats.Max(scores.RawVector().Data) > d.threshold, nil
}

// normalized returns v scaled to unit length in float64. A zero vector
// stays zero.
func normalized(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	if n := floats.Norm(out, 2); n > 0 {
		floats.Scale(1/n, out)
	}
	return out
}

// Sanitize strips user mentions and emoticons and squeezes runs of spaces.
func (d *Detector) Sanitize(text string) string {
	return d.sanitizer.clean(text)
}

type sanitizer struct {
	mention  *regexp.Regexp
	emoticon *regexp.Regexp
	spaces   *regexp.Regexp
}

func newSanitizer() *sanitizer {
	return &sanitizer{
		mention:  regexp.MustCompile(`@[A-Za-z0-9]+`),
		emoticon: regexp.MustCompile(`(:\w+:|<[/\\]?3|[\(\)\\\D|\*\$][\-\^]?[:;=]|[:;=B8][\-\^]?[3DOPp@\$\*\\\)\(/|])(\s|[!\.\?]|$)`),
		spaces:   regexp.MustCompile(` +`),
	}
}

// clean removes mentions a second time because dropping an emoticon can
// join an @ to the word after it.
func (s *sanitizer) clean(text string) string {
	text = s.squeeze(s.mention.ReplaceAllString(text, ""))
	text = s.squeeze(s.emoticon.ReplaceAllString(text, ""))
	return s.squeeze(s.mention.ReplaceAllString(text, ""))
}

func (s *sanitizer) squeeze(text string) string {
	return strings.TrimSpace(s.spaces.ReplaceAllString(text, " "))
}
