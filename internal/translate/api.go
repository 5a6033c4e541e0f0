package translate

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/listing-pipeline/pkg/lingua"
)

// APITranslator runs translations through the structured translation API.
type APITranslator struct {
	client lingua.Client
}

// NewAPITranslator creates an API-backed translator.
func NewAPITranslator(client lingua.Client) *APITranslator {
	return &APITranslator{client: client}
}

func (t *APITranslator) Name() string { return "api" }

func (t *APITranslator) Translate(ctx context.Context, text, locale string, opts Opts) (string, error) {
	out, err := t.TranslateBatch(ctx, []string{text}, locale, opts)
	if err != nil {
		return "", err
	}
	return out[0], nil
}

func (t *APITranslator) TranslateBatch(ctx context.Context, texts []string, locale string, opts Opts) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := t.client.Translate(ctx, lingua.TranslateRequest{
		Texts:      texts,
		TargetLang: locale,
		SourceLang: opts.SourceLang,
	})
	if err != nil {
		return nil, eris.Wrap(err, "translate: api batch")
	}

	out := make([]string, len(resp.Translations))
	for i, tr := range resp.Translations {
		out[i] = tr.Text
	}
	return out, nil
}
