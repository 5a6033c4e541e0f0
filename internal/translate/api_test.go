package translate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/listing-pipeline/internal/config"
	"github.com/sells-group/listing-pipeline/pkg/lingua"
)

type fakeLingua struct {
	req lingua.TranslateRequest
}

func (f *fakeLingua) Translate(_ context.Context, req lingua.TranslateRequest) (*lingua.TranslateResponse, error) {
	f.req = req
	resp := &lingua.TranslateResponse{}
	for _, text := range req.Texts {
		resp.Translations = append(resp.Translations, lingua.Translation{
			DetectedSourceLanguage: "EN",
			Text:                   "[" + req.TargetLang + "] " + text,
		})
	}
	return resp, nil
}

func TestAPITranslator_Batch(t *testing.T) {
	client := &fakeLingua{}
	tr := NewAPITranslator(client)

	out, err := tr.TranslateBatch(context.Background(), []string{"one", "two"}, "nl", Opts{SourceLang: "en"})
	require.NoError(t, err)

	assert.Equal(t, []string{"[nl] one", "[nl] two"}, out)
	assert.Equal(t, "nl", client.req.TargetLang)
	assert.Equal(t, "en", client.req.SourceLang)
}

func TestAPITranslator_SingleDelegatesToBatch(t *testing.T) {
	tr := NewAPITranslator(&fakeLingua{})

	out, err := tr.Translate(context.Background(), "hello", "es", Opts{})
	require.NoError(t, err)
	assert.Equal(t, "[es] hello", out)
}

func TestNew_BackendSelection(t *testing.T) {
	assert.Equal(t, "noop", New(config.TranslateConfig{Backend: "mock"}, nil).Name())
	assert.Equal(t, "api", New(config.TranslateConfig{Backend: "api", APIKey: "k"}, nil).Name())
	assert.Equal(t, "ai", New(config.TranslateConfig{Backend: "ai"}, nil).Name())
}
