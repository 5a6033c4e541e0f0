package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"github.com/sells-group/listing-pipeline/internal/model"
	"github.com/sells-group/listing-pipeline/internal/store"
)

// TranslationFanout enqueues one translation job per missing locale after a
// business is enriched.
type TranslationFanout struct {
	Store     store.Store
	Inserter  Inserter
	UniqueFor time.Duration
}

// FanOut computes target locales (region's supported minus the default) and
// subtracts locales already holding a translation row. Each missing locale
// gets one job, deduplicated by (kind, business, locale) within the
// uniqueness window.
func (f *TranslationFanout) FanOut(ctx context.Context, businessID string) error {
	b, err := f.Store.GetBusiness(ctx, businessID)
	if err != nil {
		return err
	}

	region, err := f.Store.GetRegion(ctx, b.RegionSlug)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			zap.L().Warn("no region record, skipping translation fan-out",
				zap.String("business_id", businessID),
				zap.String("region", b.RegionSlug))
			return nil
		}
		return err
	}

	existing, err := f.Store.ListTranslationLocales(ctx, businessID)
	if err != nil {
		return err
	}

	missing := region.MissingLocales(existing)
	for _, locale := range missing {
		_, err := f.Inserter.Insert(ctx, TranslateArgs{BusinessID: businessID, Locale: locale}, &river.InsertOpts{
			UniqueOpts: river.UniqueOpts{ByArgs: true, ByPeriod: f.UniqueFor},
		})
		if err != nil {
			return err
		}
	}

	if len(missing) > 0 {
		zap.L().Info("translation jobs fanned out",
			zap.String("business_id", businessID),
			zap.Strings("locales", missing))
	}
	return nil
}
