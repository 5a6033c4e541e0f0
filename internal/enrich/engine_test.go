package enrich

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/listing-pipeline/internal/ai"
	"github.com/sells-group/listing-pipeline/internal/config"
	"github.com/sells-group/listing-pipeline/internal/model"
	"github.com/sells-group/listing-pipeline/internal/store"
)

// fakeEngineStore implements the slice of the store the engine touches.
type fakeEngineStore struct {
	store.Store

	business *model.Business
	region   *model.Region
	research *model.CombinedBundle

	applied *model.Attributes
}

func (f *fakeEngineStore) GetBusiness(ctx context.Context, id string) (*model.Business, error) {
	if f.business == nil {
		return nil, model.ErrNotFound
	}
	return f.business, nil
}

func (f *fakeEngineStore) GetRegion(ctx context.Context, slug string) (*model.Region, error) {
	if f.region == nil {
		return nil, model.ErrNotFound
	}
	return f.region, nil
}

func (f *fakeEngineStore) GetResearch(ctx context.Context, id string) (*model.CombinedBundle, error) {
	if f.research == nil {
		return &model.CombinedBundle{}, nil
	}
	return f.research, nil
}

func (f *fakeEngineStore) ApplyEnrichment(ctx context.Context, id string, attrs *model.Attributes) error {
	f.applied = attrs
	return nil
}

type fakeCompleter struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string, opts ai.CompleteOpts) (string, error) {
	f.prompt = prompt
	return f.reply, f.err
}

func (f *fakeCompleter) Name() string { return "fake" }

func newTestEngine(s store.Store, c ai.Completer) *Engine {
	return NewEngine(s, c, config.AIConfig{Model: "test-model", MaxTokens: 1024}, config.EnrichConfig{
		MaxReviews:           5,
		MaxWebsiteChars:      4000,
		TopSnippetsPerQuery:  3,
		CategoryFitThreshold: 0.5,
	})
}

func TestEngine_Enrich_AppliesParsedAttributes(t *testing.T) {
	fs := &fakeEngineStore{business: testBusiness()}
	fc := &fakeCompleter{reply: sampleReply}

	applied, err := newTestEngine(fs, fc).Enrich(context.Background(), "biz-1")
	require.NoError(t, err)
	assert.True(t, applied)

	require.NotNil(t, fs.applied)
	assert.Equal(t, "Family mezcal distillery with tastings by appointment.", fs.applied.Summary)
	require.NotNil(t, fs.applied.AuthenticityScore)
	assert.Equal(t, 0.95, *fs.applied.AuthenticityScore)
}

func TestEngine_Enrich_DegradedWithoutResearch(t *testing.T) {
	// No research bundles at all: the prompt is thin but enrichment runs.
	fs := &fakeEngineStore{business: testBusiness()}
	fc := &fakeCompleter{reply: sampleReply}

	applied, err := newTestEngine(fs, fc).Enrich(context.Background(), "biz-1")
	require.NoError(t, err)
	assert.True(t, applied)
	assert.NotContains(t, fc.prompt, "--- Website Research ---")
	assert.NotNil(t, fs.applied)
}

func TestEngine_Enrich_ParseFailureLeavesBusinessUntouched(t *testing.T) {
	fs := &fakeEngineStore{business: testBusiness()}
	fc := &fakeCompleter{reply: "Sorry, I can't help with that."}

	_, err := newTestEngine(fs, fc).Enrich(context.Background(), "biz-1")
	require.Error(t, err)
	assert.True(t, model.IsParseError(err))
	assert.Nil(t, fs.applied)
}

func TestEngine_Enrich_SkipsTerminalBusiness(t *testing.T) {
	b := testBusiness()
	b.Status = model.StatusVerified
	fs := &fakeEngineStore{business: b}
	fc := &fakeCompleter{reply: sampleReply}

	applied, err := newTestEngine(fs, fc).Enrich(context.Background(), "biz-1")
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Empty(t, fc.prompt)
	assert.Nil(t, fs.applied)
}

func TestEngine_Enrich_RegionContextReachesPrompt(t *testing.T) {
	fs := &fakeEngineStore{
		business: testBusiness(),
		region: &model.Region{
			Slug:     "oaxaca",
			Language: "Spanish",
		},
	}
	fc := &fakeCompleter{reply: sampleReply}

	_, err := newTestEngine(fs, fc).Enrich(context.Background(), "biz-1")
	require.NoError(t, err)
	assert.Contains(t, fc.prompt, "Primary local language is Spanish.")
}
