package jobs

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivertype"
	"github.com/rotisserie/eris"

	"github.com/sells-group/listing-pipeline/internal/config"
	"github.com/sells-group/listing-pipeline/internal/enrich"
	"github.com/sells-group/listing-pipeline/internal/importer"
	"github.com/sells-group/listing-pipeline/internal/research"
	"github.com/sells-group/listing-pipeline/internal/store"
	"github.com/sells-group/listing-pipeline/internal/translate"
)

// Deps carries the collaborators the workers need.
type Deps struct {
	Store      store.Store
	Website    *research.WebsiteCoordinator
	Search     *research.SearchCoordinator
	Engine     *enrich.Engine
	Translator translate.Translator
	Importer   *importer.Importer
	SourceLang string
}

// clientHandle defers Inserter resolution until after the river client is
// built, breaking the workers-need-client / client-needs-workers cycle.
type clientHandle struct {
	client *river.Client[pgx.Tx]
}

func (h *clientHandle) Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error) {
	if h.client == nil {
		return nil, eris.New("jobs: queue client not started")
	}
	return h.client.Insert(ctx, args, opts)
}

// Client wraps the queue substrate for the rest of the pipeline: workers run
// inside it, and callers insert jobs through it.
type Client struct {
	river  *river.Client[pgx.Tx]
	handle *clientHandle
}

func queueCount(n, fallback int) int {
	if n <= 0 {
		return fallback
	}
	return n
}

// aiWorkerCap clamps the AI queue to one worker. Both completion backends
// share one external rate limit, so extra workers only trade retries for
// 429s.
func aiWorkerCap(n int) int {
	if n > 1 {
		return 1
	}
	return queueCount(n, 1)
}

// NewClient builds the worker set, queue layout, and periodic region scan.
// The AI queue runs a single worker: the completion backends share one
// external rate limit.
func NewClient(pool *pgxpool.Pool, deps Deps, cfg config.Config) (*Client, error) {
	handle := &clientHandle{}
	workers := river.NewWorkers()

	river.AddWorker(workers, &ResearchWorker{
		Store:    deps.Store,
		Website:  deps.Website,
		Inserter: handle,
	})
	river.AddWorker(workers, &SearchWorker{
		Store:    deps.Store,
		Search:   deps.Search,
		Inserter: handle,
	})
	river.AddWorker(workers, &EnrichWorker{
		Store:    deps.Store,
		Engine:   deps.Engine,
		Inserter: handle,
		Fanout: &TranslationFanout{
			Store:     deps.Store,
			Inserter:  handle,
			UniqueFor: time.Duration(cfg.Scheduler.TranslateUniqueHr) * time.Hour,
		},
	})
	river.AddWorker(workers, &TranslateWorker{
		Store:      deps.Store,
		Translator: deps.Translator,
		SourceLang: deps.SourceLang,
	})
	river.AddWorker(workers, &BatchWorker{
		Store:    deps.Store,
		Inserter: handle,
		Cfg:      cfg.Batch,
	})
	river.AddWorker(workers, &DiscoverWorker{
		Store:    deps.Store,
		Importer: deps.Importer,
	})
	river.AddWorker(workers, &RegionScanWorker{
		Store:    deps.Store,
		Inserter: handle,
		Cfg:      cfg.Scheduler,
	})

	interval := time.Duration(queueCount(cfg.Scheduler.IntervalHours, 24)) * time.Hour
	periodic := []*river.PeriodicJob{
		river.NewPeriodicJob(
			river.PeriodicInterval(interval),
			func() (river.JobArgs, *river.InsertOpts) {
				return RegionScanArgs{}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: cfg.Scheduler.RunOnStart},
		),
	}

	rc, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			QueueAI:        {MaxWorkers: aiWorkerCap(cfg.Queue.AIWorkers)},
			QueueCrawl:     {MaxWorkers: queueCount(cfg.Queue.CrawlWorkers, 3)},
			QueueSearch:    {MaxWorkers: queueCount(cfg.Queue.SearchWorkers, 3)},
			QueueDiscovery: {MaxWorkers: queueCount(cfg.Queue.DiscoveryWorkers, 2)},
			QueueTranslate: {MaxWorkers: queueCount(cfg.Queue.TranslateWorkers, 2)},
			QueueControl:   {MaxWorkers: queueCount(cfg.Queue.ControlWorkers, 2)},
		},
		Workers:      workers,
		PeriodicJobs: periodic,
	})
	if err != nil {
		return nil, eris.Wrap(err, "jobs: create queue client")
	}
	handle.client = rc

	return &Client{river: rc, handle: handle}, nil
}

// Start begins consuming jobs. It returns once the client is running.
func (c *Client) Start(ctx context.Context) error {
	if err := c.river.Start(ctx); err != nil {
		return eris.Wrap(err, "jobs: start queue client")
	}
	return nil
}

// Stop drains running jobs and shuts the client down.
func (c *Client) Stop(ctx context.Context) error {
	if err := c.river.Stop(ctx); err != nil {
		return eris.Wrap(err, "jobs: stop queue client")
	}
	return nil
}

// Insert enqueues a job.
func (c *Client) Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error) {
	return c.handle.Insert(ctx, args, opts)
}
