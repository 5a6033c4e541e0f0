package search

import (
	"context"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/listing-pipeline/internal/config"
	"github.com/sells-group/listing-pipeline/internal/model"
)

const scrapeEndpoint = "https://html.duckduckgo.com/html/"

// ScrapeSearcher parses a search engine's HTML results page. Free, no API
// key. Result links arrive wrapped in a redirect URL and are unwrapped before
// use. A shared limiter keeps the backend polite under concurrent workers.
type ScrapeSearcher struct {
	client   *http.Client
	endpoint string
	limiter  *rate.Limiter
}

// NewScrapeSearcher creates a scrape-backed searcher.
func NewScrapeSearcher(cfg config.SearchConfig) *ScrapeSearcher {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &ScrapeSearcher{
		client: &http.Client{
			Timeout: timeout,
		},
		endpoint: scrapeEndpoint,
		limiter:  rate.NewLimiter(rate.Limit(1), 2),
	}
}

// WithEndpoint overrides the results-page endpoint (for testing).
func (s *ScrapeSearcher) WithEndpoint(endpoint string) *ScrapeSearcher {
	s.endpoint = endpoint
	return s
}

func (s *ScrapeSearcher) Name() string { return "scrape" }

func (s *ScrapeSearcher) Search(ctx context.Context, query string, opts Opts) (*model.QueryResult, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "search: scrape rate wait")
	}

	form := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, eris.Wrap(err, "search: scrape create request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; ListingBot/1.0)")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "search: scrape fetch")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, eris.Wrap(err, "search: scrape read body")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("search: scrape status %d", resp.StatusCode)
	}

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}
	results := parseResultsPage(string(body), maxResults)

	if opts.FetchContent {
		s.fetchTopContent(ctx, results)
	}

	return &model.QueryResult{Query: query, Results: results}, nil
}

var (
	resultLinkRe    = regexp.MustCompile(`(?is)<a[^>]+class="result__a"[^>]+href="([^"]+)"[^>]*>(.*?)</a>`)
	resultSnippetRe = regexp.MustCompile(`(?is)<a[^>]+class="result__snippet"[^>]*>(.*?)</a>`)
	tagRe           = regexp.MustCompile(`<[^>]+>`)
)

// parseResultsPage extracts up to max results from the HTML results page.
// Snippets are matched positionally against links; a page with fewer snippet
// blocks than links still yields results with empty content.
func parseResultsPage(page string, max int) []model.SearchResult {
	links := resultLinkRe.FindAllStringSubmatch(page, -1)
	snippets := resultSnippetRe.FindAllStringSubmatch(page, -1)

	var results []model.SearchResult
	for i, m := range links {
		if len(results) >= max {
			break
		}
		target := unwrapRedirect(html.UnescapeString(m[1]))
		if target == "" {
			continue
		}
		r := model.SearchResult{
			URL:   target,
			Title: cleanFragment(m[2]),
		}
		if i < len(snippets) {
			r.Content = cleanFragment(snippets[i][1])
		}
		results = append(results, r)
	}
	return results
}

// unwrapRedirect resolves the engine's redirect-wrapped result links
// (…/l/?uddg=<encoded target>) to the target URL. Already-direct links pass
// through unchanged.
func unwrapRedirect(raw string) string {
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		if decoded, err := url.QueryUnescape(target); err == nil {
			return decoded
		}
		return target
	}
	if u.Scheme == "" {
		return ""
	}
	return raw
}

func cleanFragment(s string) string {
	s = tagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

// fetchTopContent deep-fetches result pages and replaces the snippet with a
// denoised excerpt. Failures leave the snippet in place.
func (s *ScrapeSearcher) fetchTopContent(ctx context.Context, results []model.SearchResult) {
	for i := range results {
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}
		text, err := s.fetchText(ctx, results[i].URL)
		if err != nil {
			zap.L().Debug("search: deep fetch failed",
				zap.String("url", results[i].URL),
				zap.Error(err),
			)
			continue
		}
		if text != "" {
			results[i].Content = text
		}
	}
}

func (s *ScrapeSearcher) fetchText(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", eris.Wrap(err, "search: create fetch request")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; ListingBot/1.0)")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "search: fetch result page")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", eris.Errorf("search: fetch status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 256*1024))
	if err != nil {
		return "", eris.Wrap(err, "search: read result page")
	}

	text := cleanFragment(string(body))
	if len(text) > 2000 {
		text = text[:2000]
	}
	return text, nil
}
