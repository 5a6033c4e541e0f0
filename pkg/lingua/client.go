// Package lingua provides a client for a batch text-translation API.
package lingua

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/listing-pipeline/internal/resilience"
)

const defaultBaseURL = "https://api-free.deepl.com/v2"

// Client performs text translation. Batch order is preserved: the Nth
// translation corresponds to the Nth input text.
type Client interface {
	Translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error)
}

// TranslateRequest is the request for POST /translate.
type TranslateRequest struct {
	Texts      []string
	TargetLang string
	SourceLang string // optional; auto-detected when empty
}

// TranslateResponse holds per-text translations in request order.
type TranslateResponse struct {
	Translations []Translation `json:"translations"`
}

// Translation is one translated text.
type Translation struct {
	DetectedSourceLanguage string `json:"detected_source_language"`
	Text                   string `json:"text"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a translation API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 45 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error) {
	if len(req.Texts) == 0 {
		return &TranslateResponse{}, nil
	}
	if req.TargetLang == "" {
		return nil, eris.New("lingua: target language is required")
	}

	form := url.Values{}
	for _, t := range req.Texts {
		form.Add("text", t)
	}
	form.Set("target_lang", strings.ToUpper(req.TargetLang))
	if req.SourceLang != "" {
		form.Set("source_lang", strings.ToUpper(req.SourceLang))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/translate", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, eris.Wrap(err, "lingua: create request")
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Authorization", "DeepL-Auth-Key "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "lingua: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "lingua: read response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("lingua: unexpected status %d: %s", resp.StatusCode, string(body))
		return nil, resilience.ClassifyHTTPStatus(err, resp.StatusCode)
	}

	var result TranslateResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "lingua: unmarshal response")
	}

	if len(result.Translations) != len(req.Texts) {
		return nil, eris.Errorf("lingua: got %d translations for %d texts", len(result.Translations), len(req.Texts))
	}

	return &result, nil
}
