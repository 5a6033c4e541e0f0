package enrich

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/listing-pipeline/internal/ai"
	"github.com/sells-group/listing-pipeline/internal/config"
	"github.com/sells-group/listing-pipeline/internal/model"
	"github.com/sells-group/listing-pipeline/internal/store"
)

// Engine produces enrichment attributes for one business at a time.
type Engine struct {
	store     store.Store
	completer ai.Completer
	aiCfg     config.AIConfig
	cfg       config.EnrichConfig
}

func NewEngine(s store.Store, completer ai.Completer, aiCfg config.AIConfig, cfg config.EnrichConfig) *Engine {
	return &Engine{store: s, completer: completer, aiCfg: aiCfg, cfg: cfg}
}

// Enrich loads the business and its research, runs one completion, parses
// the reply, and applies the result. Missing research degrades the prompt;
// only a completion or parse failure leaves the business untouched. The
// returned bool reports whether attributes were actually written, so callers
// can tell a terminal-status no-op from a real enrichment.
func (e *Engine) Enrich(ctx context.Context, businessID string) (bool, error) {
	b, err := e.store.GetBusiness(ctx, businessID)
	if err != nil {
		return false, err
	}
	if b.Status.Terminal() {
		zap.L().Info("skipping terminal business", zap.String("id", businessID), zap.String("status", string(b.Status)))
		return false, nil
	}

	region, err := e.store.GetRegion(ctx, b.RegionSlug)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			return false, err
		}
		region = nil
	}

	bundle, err := e.store.GetResearch(ctx, businessID)
	if err != nil {
		zap.L().Warn("research unavailable, enriching degraded",
			zap.String("id", businessID), zap.Error(err))
		bundle = &model.CombinedBundle{}
	}

	prompt := BuildPrompt(PromptInput{
		Business:             b,
		Region:               region,
		Research:             bundle,
		Reviews:              reviewsFromPayload(b),
		MaxReviews:           e.cfg.MaxReviews,
		MaxWebsiteChars:      e.cfg.MaxWebsiteChars,
		TopSnippetsPerQuery:  e.cfg.TopSnippetsPerQuery,
		CategoryFitThreshold: e.cfg.CategoryFitThreshold,
	})

	timeout := time.Duration(e.aiCfg.CLITimeoutSecs) * time.Second
	text, err := e.completer.Complete(ctx, prompt, ai.CompleteOpts{
		Model:     e.aiCfg.Model,
		MaxTokens: e.aiCfg.MaxTokens,
		Timeout:   timeout,
	})
	if err != nil {
		return false, eris.Wrapf(err, "enrich: complete for %s", businessID)
	}

	attrs, err := Parse(text)
	if err != nil {
		return false, eris.Wrapf(err, "enrich: parse reply for %s", businessID)
	}

	if attrs.CategoryFit != nil && *attrs.CategoryFit < e.cfg.CategoryFitThreshold && attrs.SuggestedCategory == "" {
		zap.L().Warn("low category fit without a suggested category",
			zap.String("id", businessID),
			zap.Float64("category_fit", *attrs.CategoryFit))
	}

	if err := e.store.ApplyEnrichment(ctx, businessID, attrs); err != nil {
		return false, err
	}

	zap.L().Info("business enriched",
		zap.String("id", businessID),
		zap.String("name", b.Name),
		zap.String("backend", e.completer.Name()))
	return true, nil
}

// reviewsFromPayload pulls reviews out of the raw source payload when the
// catalog carried any. Entries missing text are dropped.
func reviewsFromPayload(b *model.Business) []model.Review {
	if b.RawPayload == nil {
		return nil
	}
	raw, ok := b.RawPayload["reviews"].([]any)
	if !ok {
		return nil
	}
	var out []model.Review
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		text, _ := m["text"].(string)
		if text == "" {
			continue
		}
		rating, _ := m["rating"].(float64)
		out = append(out, model.Review{Rating: rating, Text: text})
	}
	return out
}
