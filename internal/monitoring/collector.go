package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/listing-pipeline/internal/jobs"
	"github.com/sells-group/listing-pipeline/internal/model"
	"github.com/sells-group/listing-pipeline/internal/store"
)

// RegionSnapshot holds the funnel and coverage view for one region.
type RegionSnapshot struct {
	Slug string `json:"slug"`
	Name string `json:"name"`

	// Funnel counts keyed by status, every status present.
	Funnel map[model.Status]int `json:"funnel"`

	// Throughput.
	Enriched24h int `json:"enriched_24h"`
	Enriched7d  int `json:"enriched_7d"`

	// Per-locale translation coverage over enriched and verified
	// businesses, 0..1.
	TranslationCoverage map[string]float64 `json:"translation_coverage"`

	Research *store.ResearchCounters `json:"research"`
}

// Snapshot is a point-in-time view of pipeline health across regions.
type Snapshot struct {
	Regions []RegionSnapshot `json:"regions"`

	// Queue depths keyed by queue then job state.
	Queues map[string]map[string]int `json:"queues"`

	// BatchActive reports whether a batch controller chain is live on the
	// control queue.
	BatchActive bool `json:"batch_active"`

	// Discarded is the total count of permanently failed jobs.
	Discarded int `json:"discarded"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector gathers pipeline metrics from the store.
type Collector struct {
	store store.Store
}

// NewCollector creates a metrics collector.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// Collect builds a snapshot covering every active region plus queue state.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*Snapshot, error) {
	if lookbackHours <= 0 {
		lookbackHours = 24
	}
	now := time.Now().UTC()
	snap := &Snapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}

	regions, err := c.store.ListActiveRegions(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list regions")
	}

	for _, r := range regions {
		rs, err := c.collectRegion(ctx, r, now)
		if err != nil {
			return nil, err
		}
		snap.Regions = append(snap.Regions, rs)
	}

	snap.Queues, err = c.store.QueueStateCounts(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: queue state counts")
	}
	snap.BatchActive = batchActive(snap.Queues)
	for _, states := range snap.Queues {
		snap.Discarded += states["discarded"]
	}

	return snap, nil
}

func (c *Collector) collectRegion(ctx context.Context, r model.Region, now time.Time) (RegionSnapshot, error) {
	rs := RegionSnapshot{Slug: r.Slug, Name: r.Name}

	counts, err := c.store.CountByStatus(ctx, r.Slug)
	if err != nil {
		return rs, eris.Wrapf(err, "monitoring: funnel counts for %s", r.Slug)
	}
	rs.Funnel = make(map[model.Status]int, len(model.AllStatuses))
	for _, s := range model.AllStatuses {
		rs.Funnel[s] = counts[s]
	}

	rs.Enriched24h, err = c.store.CountEnrichedSince(ctx, r.Slug, now.Add(-24*time.Hour))
	if err != nil {
		return rs, eris.Wrapf(err, "monitoring: 24h throughput for %s", r.Slug)
	}
	rs.Enriched7d, err = c.store.CountEnrichedSince(ctx, r.Slug, now.Add(-7*24*time.Hour))
	if err != nil {
		return rs, eris.Wrapf(err, "monitoring: 7d throughput for %s", r.Slug)
	}

	rs.TranslationCoverage, err = c.store.TranslationCoverage(ctx, r.Slug)
	if err != nil {
		return rs, eris.Wrapf(err, "monitoring: translation coverage for %s", r.Slug)
	}

	rs.Research, err = c.store.ResearchCounters(ctx, r.Slug, time.Hour)
	if err != nil {
		return rs, eris.Wrapf(err, "monitoring: research counters for %s", r.Slug)
	}

	return rs, nil
}

// batchActive reports whether the control queue still holds live work, which
// means a self-chaining batch is in flight.
func batchActive(queues map[string]map[string]int) bool {
	states := queues[jobs.QueueControl]
	return states["available"]+states["running"]+states["scheduled"]+states["retryable"] > 0
}
