package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/markdave123-py/bostadsdata/internal/core"
)

const (
	DefaultSearchLimit = 10
	MaxSearchLimit     = 100
)

// QueryEmbedder embeds a single query text.
type QueryEmbedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// SearchService is the read path over stored embeddings.
type SearchService struct {
	store    core.Store
	embedder QueryEmbedder
}

func NewSearchService(store core.Store, embedder QueryEmbedder) *SearchService {
	return &SearchService{store: store, embedder: embedder}
}

// SearchRequest is validated by Normalize before any I/O.
type SearchRequest struct {
	Dataset   string
	Query     string
	Limit     int
	Threshold float64
}

// Normalize applies defaults and rejects unusable requests.
func (r SearchRequest) Normalize() (SearchRequest, *core.Table, error) {
	r.Query = strings.TrimSpace(r.Query)
	if r.Query == "" {
		return r, nil, &core.ValidationError{Param: "query", Msg: "must not be empty"}
	}
	table, ok := TableFor(r.Dataset)
	if !ok {
		return r, nil, &core.ValidationError{Param: "dataset", Msg: fmt.Sprintf("unknown dataset %q (one of: %s)", r.Dataset, strings.Join(Datasets, ", "))}
	}
	switch {
	case r.Limit == 0:
		r.Limit = DefaultSearchLimit
	case r.Limit < 0 || r.Limit > MaxSearchLimit:
		return r, nil, &core.ValidationError{Param: "limit", Msg: fmt.Sprintf("must be between 1 and %d", MaxSearchLimit)}
	}
	if r.Threshold < -1 || r.Threshold > 1 {
		return r, nil, &core.ValidationError{Param: "threshold", Msg: "must be between -1 and 1"}
	}
	return r, table, nil
}

// Search embeds the query with the ingestion embedder and ranks stored rows
// by cosine similarity.
func (s *SearchService) Search(ctx context.Context, req SearchRequest) ([]core.SearchHit, error) {
	req, table, err := req.Normalize()
	if err != nil {
		return nil, err
	}
	vec, err := s.embedder.EmbedOne(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := s.store.Search(ctx, table, vec, req.Limit, req.Threshold)
	if err != nil {
		return nil, err
	}
	if hits == nil {
		hits = []core.SearchHit{}
	}
	return hits, nil
}
