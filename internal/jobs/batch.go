package jobs

import (
	"context"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"github.com/sells-group/listing-pipeline/internal/config"
	"github.com/sells-group/listing-pipeline/internal/model"
	"github.com/sells-group/listing-pipeline/internal/pacing"
	"github.com/sells-group/listing-pipeline/internal/store"
)

// BatchWorker pages through eligible pending businesses, staggers one
// research job per record, and chains itself to the next page. Correctness
// rests on re-deriving "eligible at offset N" deterministically plus the
// queue's uniqueness constraints absorbing duplicate invocations.
type BatchWorker struct {
	river.WorkerDefaults[BatchArgs]

	Store    store.Store
	Inserter Inserter
	Cfg      config.BatchConfig
}

func (w *BatchWorker) Work(ctx context.Context, job *river.Job[BatchArgs]) error {
	batchSize := w.Cfg.Size
	if batchSize <= 0 {
		batchSize = 100
	}
	stagger := time.Duration(w.Cfg.StaggerSecs) * time.Second

	page, err := w.Store.ListBusinesses(ctx, store.BusinessFilter{
		RegionSlug: job.Args.RegionSlug,
		Status:     model.StatusPending,
		HasWebsite: true,
		Limit:      batchSize,
		Offset:     job.Args.Offset,
	})
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	for i, b := range page {
		_, err := w.Inserter.Insert(ctx, ResearchArgs{BusinessID: b.ID}, &river.InsertOpts{
			ScheduledAt: now.Add(pacing.JobDelay(i, stagger)),
			UniqueOpts:  river.UniqueOpts{ByArgs: true},
		})
		if err != nil {
			return err
		}
	}

	nextOffset, delay, ok := pacing.Next(len(page), batchSize, job.Args.Offset, stagger)
	if ok {
		_, err := w.Inserter.Insert(ctx, BatchArgs{RegionSlug: job.Args.RegionSlug, Offset: nextOffset}, &river.InsertOpts{
			ScheduledAt: now.Add(delay),
			UniqueOpts:  river.UniqueOpts{ByArgs: true, ByPeriod: w.uniqueWindow()},
		})
		if err != nil {
			return err
		}
	}

	zap.L().Info("batch page processed",
		zap.String("region", job.Args.RegionSlug),
		zap.Int("offset", job.Args.Offset),
		zap.Int("page_len", len(page)),
		zap.Bool("chained", ok))
	return nil
}

func (w *BatchWorker) uniqueWindow() time.Duration {
	if w.Cfg.UniqueMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(w.Cfg.UniqueMinutes) * time.Minute
}
