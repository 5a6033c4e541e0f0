package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/listing-pipeline/internal/ai"
	"github.com/sells-group/listing-pipeline/internal/jsonextract"
)

// AITranslator prompts the completion backend to translate a JSON object
// verbatim, values only, and parses the reply with the shared ordered
// JSON-extraction fallback.
type AITranslator struct {
	completer ai.Completer
}

// NewAITranslator creates an AI-backed translator.
func NewAITranslator(completer ai.Completer) *AITranslator {
	return &AITranslator{completer: completer}
}

func (t *AITranslator) Name() string { return "ai" }

func (t *AITranslator) Translate(ctx context.Context, text, locale string, opts Opts) (string, error) {
	out, err := t.TranslateBatch(ctx, []string{text}, locale, opts)
	if err != nil {
		return "", err
	}
	return out[0], nil
}

// TranslateBatch keys each text by its index so order survives the round
// trip through the model regardless of how the reply object is emitted.
func (t *AITranslator) TranslateBatch(ctx context.Context, texts []string, locale string, opts Opts) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	payload := make(map[string]string, len(texts))
	for i, text := range texts {
		payload[strconv.Itoa(i)] = text
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "translate: marshal batch")
	}

	prompt := buildPrompt(string(encoded), locale, opts.SourceLang)

	reply, err := t.completer.Complete(ctx, prompt, ai.CompleteOpts{})
	if err != nil {
		return nil, eris.Wrap(err, "translate: ai complete")
	}

	var translated map[string]string
	if err := jsonextract.Object(reply, &translated); err != nil {
		return nil, eris.Wrap(err, "translate: parse ai reply")
	}

	out := make([]string, len(texts))
	for i := range texts {
		v, ok := translated[strconv.Itoa(i)]
		if !ok {
			return nil, eris.Errorf("translate: ai reply missing key %d", i)
		}
		out[i] = v
	}
	return out, nil
}

func buildPrompt(encoded, locale, sourceLang string) string {
	src := "the source language"
	if sourceLang != "" {
		src = sourceLang
	}
	return fmt.Sprintf(`Translate the string values in the following JSON object from %s to %s.

Rules:
- Return ONLY a JSON object with exactly the same keys.
- Translate values only. Never translate, add, remove, or reorder keys.
- Keep formatting, numbers, and proper names intact.
- Do not add commentary.

%s`, src, locale, encoded)
}
