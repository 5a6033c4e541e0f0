package jobs

import (
	"context"
	"testing"

	"github.com/riverqueue/river"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/listing-pipeline/internal/ai"
	"github.com/sells-group/listing-pipeline/internal/config"
	"github.com/sells-group/listing-pipeline/internal/enrich"
	"github.com/sells-group/listing-pipeline/internal/model"
	"github.com/sells-group/listing-pipeline/internal/research"
	"github.com/sells-group/listing-pipeline/internal/search"
	"github.com/sells-group/listing-pipeline/internal/store"
	"github.com/sells-group/listing-pipeline/internal/translate"
)

// workerStore backs the research/translate worker tests.
type workerStore struct {
	store.Store

	business    *model.Business
	region      *model.Region
	advances    []model.Status
	website     *model.WebsiteBundle
	search      *model.SearchBundle
	translation *model.Translation
	applied     *model.Attributes
}

func (s *workerStore) GetBusiness(ctx context.Context, id string) (*model.Business, error) {
	if s.business == nil {
		return nil, model.ErrNotFound
	}
	return s.business, nil
}

func (s *workerStore) GetRegion(ctx context.Context, slug string) (*model.Region, error) {
	if s.region == nil {
		return nil, model.ErrNotFound
	}
	return s.region, nil
}

func (s *workerStore) GetResearch(ctx context.Context, id string) (*model.CombinedBundle, error) {
	return &model.CombinedBundle{}, nil
}

func (s *workerStore) ListTranslationLocales(ctx context.Context, id string) ([]string, error) {
	return nil, nil
}

func (s *workerStore) ApplyEnrichment(ctx context.Context, id string, attrs *model.Attributes) error {
	s.applied = attrs
	return nil
}

func (s *workerStore) AdvanceStatus(ctx context.Context, id string, to model.Status) (bool, error) {
	s.advances = append(s.advances, to)
	return true, nil
}

func (s *workerStore) UpsertWebsiteBundle(ctx context.Context, id string, b *model.WebsiteBundle) error {
	s.website = b
	return nil
}

func (s *workerStore) UpsertSearchBundle(ctx context.Context, id string, b *model.SearchBundle) error {
	s.search = b
	return nil
}

func (s *workerStore) UpsertTranslation(ctx context.Context, tr *model.Translation) error {
	s.translation = tr
	return nil
}

func newResearchWorker(s store.Store, rec *insertRecorder) *ResearchWorker {
	return &ResearchWorker{
		Store:    s,
		Website:  research.NewWebsiteCoordinator(s, config.CrawlConfig{}),
		Inserter: rec,
	}
}

func newSearchWorker(s store.Store, rec *insertRecorder) *SearchWorker {
	return &SearchWorker{
		Store:    s,
		Search:   research.NewSearchCoordinator(s, search.NewNoop(), config.SearchConfig{}),
		Inserter: rec,
	}
}

func TestResearchWorker_CrawlsAndHandsToSearchQueue(t *testing.T) {
	ws := &workerStore{business: &model.Business{ID: "biz-1", Status: model.StatusPending}}
	rec := &insertRecorder{}
	w := newResearchWorker(ws, rec)

	err := w.Work(context.Background(), &river.Job[ResearchArgs]{Args: ResearchArgs{BusinessID: "biz-1"}})
	require.NoError(t, err)

	assert.Equal(t, []model.Status{model.StatusResearching}, ws.advances)
	assert.NotNil(t, ws.website)
	assert.Nil(t, ws.search)

	searches := rec.byKind(KindSearch)
	require.Len(t, searches, 1)
	assert.Equal(t, SearchArgs{BusinessID: "biz-1"}, searches[0].args)
	assert.True(t, searches[0].opts.UniqueOpts.ByArgs)
	assert.Empty(t, rec.byKind(KindEnrich))
}

func TestSearchWorker_SearchesAndHandsToEnrichQueue(t *testing.T) {
	ws := &workerStore{business: &model.Business{ID: "biz-1", Status: model.StatusResearching}}
	rec := &insertRecorder{}
	w := newSearchWorker(ws, rec)

	err := w.Work(context.Background(), &river.Job[SearchArgs]{Args: SearchArgs{BusinessID: "biz-1"}})
	require.NoError(t, err)

	assert.Equal(t, []model.Status{model.StatusResearched}, ws.advances)
	assert.NotNil(t, ws.search)

	enriches := rec.byKind(KindEnrich)
	require.Len(t, enriches, 1)
	assert.Equal(t, EnrichArgs{BusinessID: "biz-1"}, enriches[0].args)
	assert.True(t, enriches[0].opts.UniqueOpts.ByArgs)
}

func TestSearchWorker_TerminalBusinessIsSkipped(t *testing.T) {
	ws := &workerStore{business: &model.Business{ID: "biz-1", Status: model.StatusRejected}}
	rec := &insertRecorder{}
	w := newSearchWorker(ws, rec)

	err := w.Work(context.Background(), &river.Job[SearchArgs]{Args: SearchArgs{BusinessID: "biz-1"}})
	require.NoError(t, err)
	assert.Empty(t, ws.advances)
	assert.Empty(t, rec.inserts)
}

func TestResearchWorker_TerminalBusinessIsSkipped(t *testing.T) {
	ws := &workerStore{business: &model.Business{ID: "biz-1", Status: model.StatusRejected}}
	rec := &insertRecorder{}
	w := newResearchWorker(ws, rec)

	err := w.Work(context.Background(), &river.Job[ResearchArgs]{Args: ResearchArgs{BusinessID: "biz-1"}})
	require.NoError(t, err)
	assert.Empty(t, ws.advances)
	assert.Empty(t, rec.inserts)
}

func TestResearchWorker_MissingBusinessIsCancelled(t *testing.T) {
	ws := &workerStore{}
	w := newResearchWorker(ws, &insertRecorder{})

	err := w.Work(context.Background(), &river.Job[ResearchArgs]{Args: ResearchArgs{BusinessID: "gone"}})
	require.Error(t, err)
}

func enrichedBusiness() *model.Business {
	score := 0.9
	return &model.Business{
		ID:         "biz-1",
		RegionSlug: "oaxaca",
		Status:     model.StatusEnriched,
		Enrichment: &model.Attributes{
			Description:  "A small family-run mezcal distillery.",
			Summary:      "Mezcal distillery with tastings.",
			QualityScore: &score,
			Tips:         []string{"Book ahead", "Bring cash"},
			Specialties:  []string{"Tobalá"},
		},
	}
}

func TestTranslateWorker_IdentityBackendRoundTrips(t *testing.T) {
	ws := &workerStore{business: enrichedBusiness()}
	w := &TranslateWorker{Store: ws, Translator: translate.NewNoop(), SourceLang: "en"}

	err := w.Work(context.Background(), &river.Job[TranslateArgs]{
		Args: TranslateArgs{BusinessID: "biz-1", Locale: "es"},
	})
	require.NoError(t, err)

	require.NotNil(t, ws.translation)
	assert.Equal(t, "es", ws.translation.Locale)
	assert.Equal(t, "A small family-run mezcal distillery.", ws.translation.Description)
	assert.Equal(t, []string{"Book ahead", "Bring cash"}, ws.translation.Tips)
	assert.Equal(t, []string{"Tobalá"}, ws.translation.Specialties)
}

func TestArgs_QueueRouting(t *testing.T) {
	assert.Equal(t, QueueCrawl, ResearchArgs{}.InsertOpts().Queue)
	assert.Equal(t, QueueSearch, SearchArgs{}.InsertOpts().Queue)
	assert.Equal(t, QueueAI, EnrichArgs{}.InsertOpts().Queue)
	assert.Equal(t, QueueTranslate, TranslateArgs{}.InsertOpts().Queue)
	assert.Equal(t, QueueDiscovery, DiscoverArgs{}.InsertOpts().Queue)
	assert.Equal(t, QueueControl, BatchArgs{}.InsertOpts().Queue)
	assert.Equal(t, QueueControl, RegionScanArgs{}.InsertOpts().Queue)
}

type cannedCompleter struct{ reply string }

func (c *cannedCompleter) Name() string { return "canned" }

func (c *cannedCompleter) Complete(context.Context, string, ai.CompleteOpts) (string, error) {
	return c.reply, nil
}

func newEnrichWorker(ws *workerStore, rec *insertRecorder, reply string) *EnrichWorker {
	return &EnrichWorker{
		Store:    ws,
		Engine:   enrich.NewEngine(ws, &cannedCompleter{reply: reply}, config.AIConfig{}, config.EnrichConfig{}),
		Inserter: rec,
		Fanout:   &TranslationFanout{Store: newFanoutStore(nil), Inserter: rec},
	}
}

func TestEnrichWorker_AppliedEnrichmentFansOut(t *testing.T) {
	ws := &workerStore{business: &model.Business{ID: "biz-1", RegionSlug: "nl-west", Status: model.StatusResearched}}
	rec := &insertRecorder{}
	w := newEnrichWorker(ws, rec, `{"summary": "A canal-side cafe."}`)

	err := w.Work(context.Background(), &river.Job[EnrichArgs]{Args: EnrichArgs{BusinessID: "biz-1"}})
	require.NoError(t, err)

	require.NotNil(t, ws.applied)
	assert.Len(t, rec.byKind(KindTranslate), 2) // es and nl
}

func TestEnrichWorker_TerminalNoOpSkipsFanout(t *testing.T) {
	ws := &workerStore{business: &model.Business{ID: "biz-1", RegionSlug: "nl-west", Status: model.StatusVerified}}
	rec := &insertRecorder{}
	w := newEnrichWorker(ws, rec, `{"summary": "never used"}`)

	err := w.Work(context.Background(), &river.Job[EnrichArgs]{Args: EnrichArgs{BusinessID: "biz-1"}})
	require.NoError(t, err)

	// The engine never touched the business, so no translation jobs follow.
	assert.Nil(t, ws.applied)
	assert.Empty(t, rec.inserts)
}

func TestTranslateWorker_UnenrichedBusinessIsCancelled(t *testing.T) {
	ws := &workerStore{business: &model.Business{ID: "biz-1", Status: model.StatusPending}}
	w := &TranslateWorker{Store: ws, Translator: translate.NewNoop()}

	err := w.Work(context.Background(), &river.Job[TranslateArgs]{
		Args: TranslateArgs{BusinessID: "biz-1", Locale: "es"},
	})
	require.Error(t, err)
	assert.Nil(t, ws.translation)
}
