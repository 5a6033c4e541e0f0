package jobs

import (
	"context"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"github.com/sells-group/listing-pipeline/internal/config"
	"github.com/sells-group/listing-pipeline/internal/importer"
	"github.com/sells-group/listing-pipeline/internal/store"
)

// DiscoverWorker imports one city/category pair from the geo-catalog.
type DiscoverWorker struct {
	river.WorkerDefaults[DiscoverArgs]

	Store    store.Store
	Importer *importer.Importer
}

func (w *DiscoverWorker) Work(ctx context.Context, job *river.Job[DiscoverArgs]) error {
	region, err := w.Store.GetRegion(ctx, job.Args.RegionSlug)
	if err != nil {
		return classify(err)
	}

	city, err := w.Store.GetCity(ctx, region.Slug, job.Args.CitySlug)
	if err != nil {
		return classify(err)
	}

	counts, err := w.Importer.ImportCity(ctx, *city, job.Args.Category)
	if err != nil {
		return classify(err)
	}
	zap.L().Info("discovery import done",
		zap.String("region", job.Args.RegionSlug),
		zap.String("city", job.Args.CitySlug),
		zap.String("category", job.Args.Category),
		zap.Int("created", counts.Created))
	return nil
}

// RegionScanWorker is the daily control loop: it finds under-populated
// cities and enqueues discovery for them, and kicks the batch controller for
// every region with research-eligible pending businesses.
type RegionScanWorker struct {
	river.WorkerDefaults[RegionScanArgs]

	Store    store.Store
	Inserter Inserter
	Cfg      config.SchedulerConfig
}

func (w *RegionScanWorker) Work(ctx context.Context, job *river.Job[RegionScanArgs]) error {
	regions, err := w.Store.ListActiveRegions(ctx)
	if err != nil {
		return err
	}

	threshold := w.Cfg.CityThreshold
	if threshold <= 0 {
		threshold = 5
	}

	for _, region := range regions {
		cities, err := w.Store.ListUnderPopulatedCities(ctx, region.Slug, threshold)
		if err != nil {
			zap.L().Error("city scan failed", zap.String("region", region.Slug), zap.Error(err))
			continue
		}
		for _, city := range cities {
			for _, category := range importer.Categories() {
				_, err := w.Inserter.Insert(ctx, DiscoverArgs{
					RegionSlug: region.Slug,
					CitySlug:   city.Slug,
					Category:   category,
				}, &river.InsertOpts{
					UniqueOpts: river.UniqueOpts{ByArgs: true, ByPeriod: 24 * time.Hour},
				})
				if err != nil {
					return err
				}
			}
		}

		pending, err := w.Store.CountPendingWithWebsite(ctx, region.Slug)
		if err != nil {
			zap.L().Error("pending count failed", zap.String("region", region.Slug), zap.Error(err))
			continue
		}
		if pending > 0 {
			_, err := w.Inserter.Insert(ctx, BatchArgs{RegionSlug: region.Slug, Offset: 0}, &river.InsertOpts{
				UniqueOpts: river.UniqueOpts{ByArgs: true, ByPeriod: time.Hour},
			})
			if err != nil {
				return err
			}
		}

		zap.L().Info("region scanned",
			zap.String("region", region.Slug),
			zap.Int("under_populated_cities", len(cities)),
			zap.Int("pending_with_website", pending))
	}
	return nil
}
