package search

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/listing-pipeline/internal/model"
	"github.com/sells-group/listing-pipeline/pkg/searchapi"
)

// APISearcher runs queries through the paid structured-search API.
type APISearcher struct {
	client searchapi.Client
}

// NewAPISearcher creates an API-backed searcher.
func NewAPISearcher(client searchapi.Client) *APISearcher {
	return &APISearcher{client: client}
}

func (s *APISearcher) Name() string { return "api" }

func (s *APISearcher) Search(ctx context.Context, query string, opts Opts) (*model.QueryResult, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}

	resp, err := s.client.Search(ctx, searchapi.SearchRequest{
		Query:             query,
		MaxResults:        maxResults,
		IncludeAnswer:     true,
		IncludeRawContent: opts.FetchContent,
	})
	if err != nil {
		return nil, eris.Wrap(err, "search: api query")
	}

	out := &model.QueryResult{
		Query:   query,
		Answer:  resp.Answer,
		Results: make([]model.SearchResult, 0, len(resp.Results)),
	}
	for _, r := range resp.Results {
		out.Results = append(out.Results, model.SearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Content: r.Content,
			Score:   r.Score,
		})
	}
	return out, nil
}
