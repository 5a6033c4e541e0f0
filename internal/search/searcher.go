// Package search provides the web-search backends behind research: a free
// HTML-scrape backend, preferred by default, and a paid structured API.
package search

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/listing-pipeline/internal/config"
	"github.com/sells-group/listing-pipeline/internal/model"
	"github.com/sells-group/listing-pipeline/pkg/searchapi"
)

// Opts tunes a single search call.
type Opts struct {
	MaxResults   int
	FetchContent bool // deep-fetch top result pages for fuller content
}

// Searcher is the single contract both backends implement.
type Searcher interface {
	Search(ctx context.Context, query string, opts Opts) (*model.QueryResult, error)
	Name() string
}

// New selects and constructs a backend once, from explicit config. The free
// scrape backend is preferred; the paid API is used when selected and keyed.
func New(cfg config.SearchConfig) Searcher {
	switch cfg.Backend {
	case "mock":
		return NewNoop()
	case "api":
		if cfg.APIKey != "" {
			return NewAPISearcher(searchapi.NewClient(cfg.APIKey, searchapi.WithBaseURL(cfg.APIBaseURL)))
		}
		zap.L().Warn("search: api backend selected but no key set, using scrape")
	}
	return NewScrapeSearcher(cfg)
}

// Noop returns empty results for any query.
type Noop struct{}

// NewNoop creates a no-op searcher.
func NewNoop() *Noop { return &Noop{} }

func (n *Noop) Name() string { return "noop" }

func (n *Noop) Search(_ context.Context, query string, _ Opts) (*model.QueryResult, error) {
	return &model.QueryResult{Query: query}, nil
}
