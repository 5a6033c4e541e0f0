package jobs

import (
	"context"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/listing-pipeline/internal/enrich"
	"github.com/sells-group/listing-pipeline/internal/model"
	"github.com/sells-group/listing-pipeline/internal/research"
	"github.com/sells-group/listing-pipeline/internal/store"
	"github.com/sells-group/listing-pipeline/internal/translate"
)

// Inserter is the slice of the queue client workers use to enqueue follow-up
// jobs. Tests substitute a recorder.
type Inserter interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

// ResearchWorker runs the website crawl for one business, then hands it to
// the search queue.
type ResearchWorker struct {
	river.WorkerDefaults[ResearchArgs]

	Store    store.Store
	Website  *research.WebsiteCoordinator
	Inserter Inserter
}

func (w *ResearchWorker) Work(ctx context.Context, job *river.Job[ResearchArgs]) error {
	b, err := w.Store.GetBusiness(ctx, job.Args.BusinessID)
	if err != nil {
		return classify(err)
	}
	if b.Status.Terminal() {
		return nil
	}

	// Advisory in-flight marker; a failed advance is not an error.
	if _, err := w.Store.AdvanceStatus(ctx, b.ID, model.StatusResearching); err != nil {
		return err
	}

	if err := w.Website.Research(ctx, b); err != nil {
		return classify(err)
	}

	_, err = w.Inserter.Insert(ctx, SearchArgs{BusinessID: b.ID}, &river.InsertOpts{
		UniqueOpts: river.UniqueOpts{ByArgs: true},
	})
	return err
}

// SearchWorker runs the web-search coordinator for one business, marks the
// research phase done, and hands the business to the enrichment queue.
type SearchWorker struct {
	river.WorkerDefaults[SearchArgs]

	Store    store.Store
	Search   *research.SearchCoordinator
	Inserter Inserter
}

func (w *SearchWorker) Work(ctx context.Context, job *river.Job[SearchArgs]) error {
	b, err := w.Store.GetBusiness(ctx, job.Args.BusinessID)
	if err != nil {
		return classify(err)
	}
	if b.Status.Terminal() {
		return nil
	}

	if err := w.Search.Research(ctx, b); err != nil {
		return classify(err)
	}

	if _, err := w.Store.AdvanceStatus(ctx, b.ID, model.StatusResearched); err != nil {
		return err
	}

	_, err = w.Inserter.Insert(ctx, EnrichArgs{BusinessID: b.ID}, &river.InsertOpts{
		UniqueOpts: river.UniqueOpts{ByArgs: true},
	})
	return err
}

// EnrichWorker runs the enrichment engine and, when attributes were actually
// written, fans out translation jobs for the missing locales.
type EnrichWorker struct {
	river.WorkerDefaults[EnrichArgs]

	Store    store.Store
	Engine   *enrich.Engine
	Inserter Inserter
	Fanout   *TranslationFanout
}

func (w *EnrichWorker) Work(ctx context.Context, job *river.Job[EnrichArgs]) error {
	applied, err := w.Engine.Enrich(ctx, job.Args.BusinessID)
	if err != nil {
		return classify(err)
	}
	if !applied {
		return nil
	}
	return w.Fanout.FanOut(ctx, job.Args.BusinessID)
}

// TranslateWorker translates one business's enrichment into one locale.
type TranslateWorker struct {
	river.WorkerDefaults[TranslateArgs]

	Store      store.Store
	Translator translate.Translator
	SourceLang string
}

func (w *TranslateWorker) Work(ctx context.Context, job *river.Job[TranslateArgs]) error {
	b, err := w.Store.GetBusiness(ctx, job.Args.BusinessID)
	if err != nil {
		return classify(err)
	}
	if b.Enrichment == nil {
		zap.L().Warn("translate job for unenriched business, discarding",
			zap.String("business_id", b.ID), zap.String("locale", job.Args.Locale))
		return river.JobCancel(eris.Errorf("business %s not enriched", b.ID))
	}

	fields := translate.CollectFields(b.Enrichment)
	if len(fields) == 0 {
		return nil
	}

	opts := translate.Opts{SourceLang: w.SourceLang}
	translated, err := translate.TranslateFields(ctx, w.Translator, fields, job.Args.Locale, opts)
	if err != nil {
		return classify(err)
	}

	tr := translate.BuildTranslation(b.ID, job.Args.Locale, translated)
	if err := w.Store.UpsertTranslation(ctx, tr); err != nil {
		return err
	}

	zap.L().Info("translation upserted",
		zap.String("business_id", b.ID),
		zap.String("locale", job.Args.Locale),
		zap.String("backend", w.Translator.Name()))
	return nil
}
