package research

import (
	"context"
	"encoding/json"
	"io"
	"net"
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
	"github.com/sells-group/listing-pipeline/internal/store"
)

const crawlUserAgent = "Mozilla/5.0 (compatible; ListingBot/1.0)"

// WebsiteCoordinator crawls a business's website into a research bundle.
type WebsiteCoordinator struct {
	store   store.Store
	client  *http.Client
	cfg     config.CrawlConfig
	limiter *rate.Limiter
}

func NewWebsiteCoordinator(s store.Store, cfg config.CrawlConfig) *WebsiteCoordinator {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 8
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 2
	}
	if cfg.TimeoutSecs <= 0 {
		cfg.TimeoutSecs = 15
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 2
	}
	return &WebsiteCoordinator{
		store: s,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSecs) * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Research crawls the business website and persists the bundle. Fetch and
// parse failures are soft: whatever was gathered is persisted, and a business
// with no usable website gets an empty bundle rather than an error.
func (w *WebsiteCoordinator) Research(ctx context.Context, b *model.Business) error {
	bundle := &model.WebsiteBundle{Pages: []model.CrawledPage{}, Headings: []string{}}

	if b.Website != "" {
		crawled, err := w.crawl(ctx, b.Website)
		if err != nil {
			zap.L().Warn("website crawl failed, persisting partial bundle",
				zap.String("business_id", b.ID),
				zap.String("website", b.Website),
				zap.Error(err))
		}
		if crawled != nil {
			bundle = crawled
		}
	}

	if err := w.store.UpsertWebsiteBundle(ctx, b.ID, bundle); err != nil {
		return err
	}
	zap.L().Info("website research persisted",
		zap.String("business_id", b.ID),
		zap.Int("pages", len(bundle.Pages)),
		zap.Bool("english", bundle.EnglishAvailable))
	return nil
}

type crawlItem struct {
	url   string
	depth int
}

// crawl walks same-host pages breadth-first up to the configured page and
// depth bounds. Per-page failures are logged and skipped.
func (w *WebsiteCoordinator) crawl(ctx context.Context, rawURL string) (*model.WebsiteBundle, error) {
	start, err := normalizeURL(rawURL)
	if err != nil {
		return nil, eris.Wrap(err, "research: parse website url")
	}
	base, err := url.Parse(start)
	if err != nil {
		return nil, eris.Wrap(err, "research: parse base url")
	}

	bundle := &model.WebsiteBundle{Pages: []model.CrawledPage{}, Headings: []string{}}
	seen := map[string]bool{start: true}
	queue := []crawlItem{{url: start, depth: 0}}

	for len(queue) > 0 && len(bundle.Pages) < w.cfg.MaxPages {
		item := queue[0]
		queue = queue[1:]

		if err := w.limiter.Wait(ctx); err != nil {
			return bundle, eris.Wrap(err, "research: rate limiter")
		}

		body, status, err := w.fetch(ctx, item.url)
		if err != nil {
			zap.L().Debug("page fetch failed", zap.String("url", item.url), zap.Error(err))
			continue
		}
		html := string(body)

		page := model.CrawledPage{
			URL:        item.url,
			Title:      extractTitle(body),
			Text:       stripHTML(html),
			StatusCode: status,
		}
		bundle.Pages = append(bundle.Pages, page)
		bundle.Headings = append(bundle.Headings, extractHeadings(html)...)
		bundle.Metadata = append(bundle.Metadata, extractStructuredMeta(html)...)
		bundle.SocialProof = append(bundle.SocialProof, extractSocialProof(page.Text)...)
		if !bundle.EnglishAvailable {
			bundle.EnglishAvailable = detectEnglishVariant(html)
		}

		if item.depth >= w.cfg.MaxDepth {
			continue
		}
		for _, link := range parseLinks(html, base) {
			if seen[link] || len(seen) >= w.cfg.MaxPages*3 {
				continue
			}
			if w.isExcluded(link) {
				continue
			}
			seen[link] = true
			queue = append(queue, crawlItem{url: link, depth: item.depth + 1})
		}
	}

	if len(bundle.SocialProof) > 5 {
		bundle.SocialProof = bundle.SocialProof[:5]
	}
	return bundle, nil
}

func (w *WebsiteCoordinator) fetch(ctx context.Context, pageURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, 0, eris.Wrap(err, "research: create request")
	}
	req.Header.Set("User-Agent", crawlUserAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, 0, eris.Wrap(err, "research: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return nil, resp.StatusCode, eris.Errorf("research: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return nil, resp.StatusCode, eris.Wrap(err, "research: read body")
	}
	return body, resp.StatusCode, nil
}

func (w *WebsiteCoordinator) isExcluded(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return true
	}
	path := strings.ToLower(u.Path)
	for _, p := range w.cfg.ExcludePaths {
		if p != "" && strings.HasPrefix(path, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

var titleRe = regexp.MustCompile(`(?i)<title[^>]*>(.*?)</title>`)

func extractTitle(body []byte) string {
	m := titleRe.FindSubmatch(body)
	if len(m) > 1 {
		return strings.TrimSpace(string(m[1]))
	}
	return ""
}

var (
	headingRe = regexp.MustCompile(`(?is)<h[1-3][^>]*>(.*?)</h[1-3]>`)
	tagRe     = regexp.MustCompile(`<[^>]+>`)
)

// extractHeadings pulls h1-h3 text, tags stripped.
func extractHeadings(html string) []string {
	var out []string
	for _, m := range headingRe.FindAllStringSubmatch(html, -1) {
		h := strings.TrimSpace(tagRe.ReplaceAllString(m[1], " "))
		h = strings.Join(strings.Fields(h), " ")
		if h != "" {
			out = append(out, h)
		}
	}
	return out
}

var jsonLDRe = regexp.MustCompile(`(?is)<script[^>]*application/ld\+json[^>]*>(.*?)</script>`)

// extractStructuredMeta lifts JSON-LD blocks. Invalid blocks are skipped.
func extractStructuredMeta(html string) []model.StructuredMeta {
	var out []model.StructuredMeta
	for _, m := range jsonLDRe.FindAllStringSubmatch(html, -1) {
		var data map[string]any
		if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), &data); err != nil {
			continue
		}
		metaType, _ := data["@type"].(string)
		out = append(out, model.StructuredMeta{Type: metaType, Data: data})
	}
	return out
}

var socialProofRe = regexp.MustCompile(`(?i)[^.!?\n]*\b(review|rating|stars?|award|michelin|tripadvisor|recommended)\b[^.!?\n]*[.!?]?`)

// extractSocialProof collects short text fragments that read like
// reputation signals.
func extractSocialProof(text string) []string {
	var out []string
	for _, m := range socialProofRe.FindAllString(text, 3) {
		m = strings.TrimSpace(m)
		if len(m) > 20 && len(m) < 240 {
			out = append(out, m)
		}
	}
	return out
}

var englishVariantRe = regexp.MustCompile(`(?i)(hreflang="en[-"]|href="[^"]*/en/|lang="en[-"])`)

func detectEnglishVariant(html string) bool {
	return englishVariantRe.MatchString(html)
}

// parseLinks extracts same-host href targets from HTML, fragments stripped.
func parseLinks(html string, base *url.URL) []string {
	var links []string
	seen := make(map[string]bool)

	idx := 0
	for {
		pos := strings.Index(html[idx:], `href="`)
		if pos == -1 {
			break
		}
		idx += pos + 6

		end := strings.Index(html[idx:], `"`)
		if end == -1 {
			break
		}
		href := html[idx : idx+end]
		idx += end + 1

		if strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") {
			continue
		}

		resolved, err := url.Parse(href)
		if err != nil {
			continue
		}
		absolute := base.ResolveReference(resolved)
		if absolute.Host != base.Host {
			continue
		}

		absolute.Fragment = ""
		normalized := absolute.String()
		if !seen[normalized] {
			seen[normalized] = true
			links = append(links, normalized)
		}
	}
	return links
}

// stripHTML removes scripts/styles/nav/footer, strips tags, decodes entities,
// and collapses whitespace into denoised visible text.
func stripHTML(html string) string {
	for _, tag := range []string{"script", "style", "nav", "footer", "noscript"} {
		re := regexp.MustCompile(`(?is)<` + tag + `[^>]*>.*?</` + tag + `>`)
		html = re.ReplaceAllString(html, "")
	}

	html = tagRe.ReplaceAllString(html, " ")

	r := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	)
	html = r.Replace(html)

	spaceRe := regexp.MustCompile(`[ \t]+`)
	html = spaceRe.ReplaceAllString(html, " ")

	nlRe := regexp.MustCompile(`\n{3,}`)
	html = nlRe.ReplaceAllString(html, "\n\n")

	return strings.TrimSpace(html)
}

func normalizeURL(raw string) (string, error) {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), nil
}
