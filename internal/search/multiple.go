package search

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/listing-pipeline/internal/model"
)

// MultiResult aggregates the outcome of a multi-query search. Per-query
// failures are isolated: one failed query never discards its siblings.
type MultiResult struct {
	Total      int
	Successful int
	Failed     int
	Results    []model.QueryResult
}

// Multiple executes queries concurrently against the backend with a small
// launch stagger between them, so a burst of research jobs does not hammer
// the engine all at once.
func Multiple(ctx context.Context, s Searcher, queries []string, opts Opts, stagger time.Duration) *MultiResult {
	out := &MultiResult{Total: len(queries)}
	if len(queries) == 0 {
		return out
	}

	var mu sync.Mutex
	results := make([]*model.QueryResult, len(queries))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(3)

	for i, q := range queries {
		delay := time.Duration(i) * stagger
		g.Go(func() error {
			if delay > 0 {
				select {
				case <-gCtx.Done():
					return nil
				case <-time.After(delay):
				}
			}

			r, err := s.Search(gCtx, q, opts)
			if err != nil {
				zap.L().Warn("search: query failed",
					zap.String("backend", s.Name()),
					zap.String("query", q),
					zap.Error(err),
				)
				mu.Lock()
				out.Failed++
				mu.Unlock()
				return nil
			}
			mu.Lock()
			results[i] = r
			out.Successful++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if r != nil {
			out.Results = append(out.Results, *r)
		}
	}
	return out
}
