package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/markdave123-py/bostadsdata/internal/core"
)

// Generator enforces the embedding contract on top of any provider: one
// vector per text, in order, each of exactly Dim floats. It never retries.
type Generator struct {
	provider core.EmbeddingProvider
	dim      int
	timeout  time.Duration
}

// QueryProvider is implemented by providers that embed search queries
// differently from stored documents.
type QueryProvider interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

func NewGenerator(provider core.EmbeddingProvider, dim int, timeout time.Duration) *Generator {
	return &Generator{provider: provider, dim: dim, timeout: timeout}
}

func (g *Generator) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	vecs, err := g.provider.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embed size mismatch: got %d want %d", len(vecs), len(texts))
	}
	for i, v := range vecs {
		if len(v) != g.dim {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, want %d", core.ErrDimensionMismatch, i, len(v), g.dim)
		}
	}
	return vecs, nil
}

// EmbedOne embeds a search query. Providers implementing QueryProvider get
// their query embedding path.
func (g *Generator) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	qp, ok := g.provider.(QueryProvider)
	if !ok {
		vecs, err := g.Embed(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		return vecs[0], nil
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	v, err := qp.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(v) != g.dim {
		return nil, fmt.Errorf("%w: query vector has %d dimensions, want %d", core.ErrDimensionMismatch, len(v), g.dim)
	}
	return v, nil
}
