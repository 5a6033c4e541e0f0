package main

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sells-group/listing-pipeline/internal/ai"
	"github.com/sells-group/listing-pipeline/internal/enrich"
	"github.com/sells-group/listing-pipeline/internal/importer"
	"github.com/sells-group/listing-pipeline/internal/jobs"
	"github.com/sells-group/listing-pipeline/internal/research"
	"github.com/sells-group/listing-pipeline/internal/search"
	"github.com/sells-group/listing-pipeline/internal/store"
	"github.com/sells-group/listing-pipeline/internal/translate"
	"github.com/sells-group/listing-pipeline/pkg/overpass"
)

// env bundles the shared runtime pieces a command needs: one pgx pool backing
// both the store and the job queue, plus the domain collaborators.
type env struct {
	Pool     *pgxpool.Pool
	Store    store.Store
	Queue    *jobs.Client
	Importer *importer.Importer
}

func (e *env) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
}

// initEnv wires the store, domain services, and queue client from config.
func initEnv(ctx context.Context) (*env, error) {
	pool, err := store.NewPool(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	st := store.NewPostgresWithPool(pool)

	catalog := overpass.NewClient(
		overpass.WithBaseURL(cfg.Overpass.BaseURL),
		overpass.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Overpass.TimeoutSecs) * time.Second,
		}),
	)
	imp := importer.New(st, catalog)

	completer := ai.New(cfg.AI)
	deps := jobs.Deps{
		Store:      st,
		Website:    research.NewWebsiteCoordinator(st, cfg.Crawl),
		Search:     research.NewSearchCoordinator(st, search.New(cfg.Search), cfg.Search),
		Engine:     enrich.NewEngine(st, completer, cfg.AI, cfg.Enrich),
		Translator: translate.New(cfg.Translate, completer),
		Importer:   imp,
		SourceLang: cfg.Translate.SourceLang,
	}

	queue, err := jobs.NewClient(pool, deps, *cfg)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &env{Pool: pool, Store: st, Queue: queue, Importer: imp}, nil
}

// shutdownTimeout bounds graceful drains on SIGTERM.
const shutdownTimeout = 30 * time.Second
