package lingua

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/listing-pipeline/internal/resilience"
)

func newTranslateServer(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-key", WithBaseURL(srv.URL))
}

func TestTranslate_PreservesBatchOrder(t *testing.T) {
	var gotAuth string
	var gotTexts []string
	client := newTranslateServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, r.ParseForm())
		gotTexts = r.PostForm["text"]
		assert.Equal(t, "NL", r.PostForm.Get("target_lang"))
		assert.Equal(t, "EN", r.PostForm.Get("source_lang"))

		_, _ = w.Write([]byte(`{"translations": [
			{"detected_source_language": "EN", "text": "eerste"},
			{"detected_source_language": "EN", "text": "tweede"}
		]}`))
	})

	resp, err := client.Translate(context.Background(), TranslateRequest{
		Texts:      []string{"first", "second"},
		TargetLang: "nl",
		SourceLang: "en",
	})
	require.NoError(t, err)

	assert.Equal(t, "DeepL-Auth-Key test-key", gotAuth)
	assert.Equal(t, []string{"first", "second"}, gotTexts)
	require.Len(t, resp.Translations, 2)
	assert.Equal(t, "eerste", resp.Translations[0].Text)
	assert.Equal(t, "tweede", resp.Translations[1].Text)
}

func TestTranslate_EmptyBatchSkipsRequest(t *testing.T) {
	client := newTranslateServer(t, func(http.ResponseWriter, *http.Request) {
		t.Fatal("no request expected for an empty batch")
	})

	resp, err := client.Translate(context.Background(), TranslateRequest{TargetLang: "nl"})
	require.NoError(t, err)
	assert.Empty(t, resp.Translations)
}

func TestTranslate_MissingTargetLang(t *testing.T) {
	client := NewClient("k")
	_, err := client.Translate(context.Background(), TranslateRequest{Texts: []string{"x"}})
	require.Error(t, err)
}

func TestTranslate_CountMismatchRejected(t *testing.T) {
	client := newTranslateServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"translations": [{"text": "solo"}]}`))
	})

	_, err := client.Translate(context.Background(), TranslateRequest{
		Texts:      []string{"one", "two"},
		TargetLang: "es",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 translations for 2 texts")
}

func TestTranslate_StatusClassification(t *testing.T) {
	status := http.StatusTooManyRequests
	client := newTranslateServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	})

	_, err := client.Translate(context.Background(), TranslateRequest{Texts: []string{"x"}, TargetLang: "es"})
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))

	status = http.StatusForbidden
	_, err = client.Translate(context.Background(), TranslateRequest{Texts: []string{"x"}, TargetLang: "es"})
	require.Error(t, err)
	assert.True(t, resilience.IsPermanent(err))
}
