package research

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/listing-pipeline/internal/config"
	"github.com/sells-group/listing-pipeline/internal/model"
	"github.com/sells-group/listing-pipeline/internal/search"
	"github.com/sells-group/listing-pipeline/internal/store"
)

// SearchCoordinator gathers web-search research for one business.
type SearchCoordinator struct {
	store    store.Store
	searcher search.Searcher
	cfg      config.SearchConfig
}

func NewSearchCoordinator(s store.Store, searcher search.Searcher, cfg config.SearchConfig) *SearchCoordinator {
	return &SearchCoordinator{store: s, searcher: searcher, cfg: cfg}
}

// BuildQueries produces disambiguating queries for a business: plain
// identity, category-topical, and reputation-focused variants.
func BuildQueries(b *model.Business) []string {
	queries := []string{
		fmt.Sprintf("%q %s", b.Name, b.City),
	}
	if b.Category != "" {
		queries = append(queries, fmt.Sprintf("%s %s %s", b.Name, b.City, b.Category))
	}
	queries = append(queries, fmt.Sprintf("%s %s reviews", b.Name, b.City))
	return queries
}

// Research runs the query set and persists one bundle. Per-query failures are
// isolated: whatever succeeded is persisted, and even a fully failed run
// persists an empty bundle so enrichment proceeds degraded.
func (c *SearchCoordinator) Research(ctx context.Context, b *model.Business) error {
	queries := BuildQueries(b)

	opts := search.Opts{
		MaxResults:   c.cfg.MaxResults,
		FetchContent: c.cfg.FetchContent,
	}
	stagger := time.Duration(c.cfg.StaggerMillis) * time.Millisecond

	multi := search.Multiple(ctx, c.searcher, queries, opts, stagger)

	bundle := &model.SearchBundle{Queries: multi.Results}
	if bundle.Queries == nil {
		bundle.Queries = []model.QueryResult{}
	}

	if err := c.store.UpsertSearchBundle(ctx, b.ID, bundle); err != nil {
		return err
	}
	zap.L().Info("search research persisted",
		zap.String("business_id", b.ID),
		zap.String("backend", c.searcher.Name()),
		zap.Int("successful", multi.Successful),
		zap.Int("failed", multi.Failed))
	return nil
}
