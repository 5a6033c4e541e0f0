// Package translate produces per-locale variants of enrichment fields, via a
// dedicated translation API or the AI completer prompted to translate JSON
// verbatim.
package translate

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/listing-pipeline/internal/ai"
	"github.com/sells-group/listing-pipeline/internal/config"
	"github.com/sells-group/listing-pipeline/pkg/lingua"
)

// Opts tunes a translation call.
type Opts struct {
	SourceLang string
}

// Translator is the single contract both backends implement. TranslateBatch
// preserves order: the Nth output corresponds to the Nth input.
type Translator interface {
	Translate(ctx context.Context, text, locale string, opts Opts) (string, error)
	TranslateBatch(ctx context.Context, texts []string, locale string, opts Opts) ([]string, error)
	Name() string
}

// New selects and constructs a backend once, from explicit config. The
// structured API is the default; the AI completer serves as the alternate
// backend when no API key is set.
func New(cfg config.TranslateConfig, completer ai.Completer) Translator {
	switch cfg.Backend {
	case "mock":
		return NewNoop()
	case "ai":
		return NewAITranslator(completer)
	}
	if cfg.APIKey != "" {
		return NewAPITranslator(lingua.NewClient(cfg.APIKey, lingua.WithBaseURL(cfg.APIBaseURL)))
	}
	if completer != nil {
		zap.L().Info("translate: no api key set, using ai backend")
		return NewAITranslator(completer)
	}
	zap.L().Warn("translate: no backend configured, using noop")
	return NewNoop()
}

// Noop returns inputs unchanged. Used in non-production contexts.
type Noop struct{}

// NewNoop creates an identity translator.
func NewNoop() *Noop { return &Noop{} }

func (n *Noop) Name() string { return "noop" }

func (n *Noop) Translate(_ context.Context, text, _ string, _ Opts) (string, error) {
	return text, nil
}

func (n *Noop) TranslateBatch(_ context.Context, texts []string, _ string, _ Opts) ([]string, error) {
	out := make([]string, len(texts))
	copy(out, texts)
	return out, nil
}
