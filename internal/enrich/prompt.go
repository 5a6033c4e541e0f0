package enrich

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/sells-group/listing-pipeline/internal/model"
)

// systemInstructions is the shared instruction block for every enrichment
// prompt. The reply contract mirrors what Parse expects.
const systemInstructions = `You are a local-business researcher writing listing content for a curated city guide. You are given everything known about one business: its catalog record, crawled website content, and web search results.

Rules:
- Write ONLY from the provided material; never invent amenities, history, or reviews
- Return ONE valid JSON object and nothing else
- Scores are numbers between 0.0 and 1.0
- Use empty arrays, not null, for list fields with nothing to say
- Write in a warm, concrete, guide-editorial voice; no marketing fluff

Reply with this JSON shape:
{
  "description": "<2-3 paragraph visitor-facing description>",
  "summary": "<one-sentence summary>",
  "authenticity_score": <0.0-1.0, how local/independent vs generic/chain>,
  "accessibility_score": <0.0-1.0, how approachable for a foreign visitor>,
  "quality_score": <0.0-1.0, overall editorial quality of the source material>,
  "category_fit": <0.0-1.0, how well the business matches its assigned category>,
  "suggested_category": "<required slug when category_fit is below %.2f, else omit>",
  "language_support": <true/false, does staff plausibly support English>,
  "language_support_confidence": <0.0-1.0>,
  "spoken_languages": ["<ISO 639-1 codes>"],
  "tips": ["<practical visitor tips>"],
  "notes": ["<editorial notes>"],
  "specialties": ["<signature offerings>"],
  "highlights": ["<standout qualities>"],
  "warnings": ["<caveats a visitor should know>"],
  "review_insights": {"sentiment": "<positive|mixed|negative>", "common_praise": [], "common_complaints": [], "sample_size": <n>} or null
}`

// fallbackRegionContext supplies linguistic/cultural prompt context for
// regions with no configured record. Keyed by the source payload's country
// hint; the empty key is the generic fallback.
var fallbackRegionContext = map[string]string{
	"":   "Assume an international audience; flag the local language explicitly when the website is not in English.",
	"mx": "Primary local language is Spanish. Family-run businesses are common; note cash-only payment when the material suggests it.",
	"nl": "Primary local language is Dutch; English support is widespread. Note bike access and reservation culture where relevant.",
	"jp": "Primary local language is Japanese; English menus are worth calling out. Note cash-only and queueing norms where relevant.",
}

// categoryHints steers what the model should dig for per assigned category.
var categoryHints = map[string]string{
	"food":     "Focus on signature dishes, price range, and whether reservations matter.",
	"crafts":   "Focus on the craft tradition, whether visitors can watch or participate, and what is made on site.",
	"culture":  "Focus on what a first-time visitor actually sees, typical visit length, and ticketing.",
	"lodging":  "Focus on the character of the stay and the neighborhood, not amenities lists.",
	"shopping": "Focus on what is distinctive to buy here versus anywhere else.",
}

// localeHints refines categoryHints per region default locale. When a locale
// defines a hint for the business's category it wins over the generic one.
var localeHints = map[string]map[string]string{
	"es": {
		"food":   "Focus on signature dishes and comida corrida or menu del dia offerings; note cash-only and typical meal hours.",
		"crafts": "Focus on the family workshop tradition and whether pieces are made on site; note market days.",
	},
	"ja": {
		"food":    "Focus on the specialty the shop is known for; note ticket machines, counter seating, and queueing expectations.",
		"lodging": "Focus on ryokan-style elements when present and how bookings are handled.",
	},
	"nl": {
		"food": "Focus on terrace and borrel culture; note whether reservations are expected for dinner.",
	},
}

// categoryHint resolves the hint for a category with locale-specific hints
// taking precedence over the generic category table.
func categoryHint(category, locale string) string {
	if m, ok := localeHints[locale]; ok {
		if h, ok := m[category]; ok {
			return h
		}
	}
	return categoryHints[category]
}

// PromptInput carries everything the builder combines into one prompt.
type PromptInput struct {
	Business *model.Business
	Region   *model.Region // nil falls back to the static table
	Research *model.CombinedBundle
	Reviews  []model.Review

	MaxReviews           int
	MaxWebsiteChars      int
	TopSnippetsPerQuery  int
	CategoryFitThreshold float64
}

// BuildPrompt assembles the region-aware enrichment prompt. Missing research
// degrades the prompt rather than failing: a pending business with no bundles
// still produces a usable, if thin, prompt.
func BuildPrompt(in PromptInput) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, systemInstructions, in.CategoryFitThreshold)
	sb.WriteString("\n\n--- Region Context ---\n")
	sb.WriteString(regionContext(in.Business, in.Region))

	sb.WriteString("\n\n--- Business Record ---\n")
	writeBusinessRecord(&sb, in.Business)

	locale := ""
	if in.Region != nil {
		locale = in.Region.DefaultLocale
	}
	if hint := categoryHint(in.Business.Category, locale); hint != "" {
		sb.WriteString("\nCategory guidance: ")
		sb.WriteString(hint)
		sb.WriteString("\n")
	}

	if hints := payloadHints(in.Business); len(hints) > 0 {
		sb.WriteString("\nCatalog tags: ")
		sb.WriteString(strings.Join(hints, ", "))
		sb.WriteString("\n")
	}

	writeReviewDigest(&sb, in.Reviews, in.MaxReviews)

	if in.Research != nil && in.Research.Website != nil {
		writeWebsiteSection(&sb, in.Research.Website, in.MaxWebsiteChars)
	}
	if in.Research != nil && in.Research.Search != nil {
		writeSearchSection(&sb, in.Research.Search, in.TopSnippetsPerQuery)
	}

	sb.WriteString("\nRespond with the JSON object now.")
	return sb.String()
}

// regionContext prefers configured region data; the language hint from the
// region always wins over anything implied by the business category.
func regionContext(b *model.Business, r *model.Region) string {
	if r != nil && (r.Language != "" || len(r.CulturalTips) > 0) {
		var sb strings.Builder
		if r.Language != "" {
			fmt.Fprintf(&sb, "Primary local language is %s.", r.Language)
		}
		for _, tip := range r.CulturalTips {
			sb.WriteString(" ")
			sb.WriteString(tip)
		}
		return sb.String()
	}

	country := ""
	if b.RawPayload != nil {
		if c, ok := b.RawPayload["country"].(string); ok {
			country = strings.ToLower(c)
		}
	}
	if ctx, ok := fallbackRegionContext[country]; ok {
		return ctx
	}
	return fallbackRegionContext[""]
}

func writeBusinessRecord(sb *strings.Builder, b *model.Business) {
	fmt.Fprintf(sb, "Name: %s\n", b.Name)
	if b.Category != "" {
		fmt.Fprintf(sb, "Assigned category: %s\n", b.Category)
	}
	loc := b.City
	if b.Street != "" {
		loc = b.Street + ", " + loc
	}
	fmt.Fprintf(sb, "Location: %s (%s)\n", loc, b.RegionSlug)
	if b.Website != "" {
		fmt.Fprintf(sb, "Website: %s\n", b.Website)
	}
	if b.Phone != "" {
		fmt.Fprintf(sb, "Phone: %s\n", b.Phone)
	}
}

// writeReviewDigest emits up to max reviews. When there are none, the prompt
// says so explicitly so the model never fabricates review content.
func writeReviewDigest(sb *strings.Builder, reviews []model.Review, max int) {
	sb.WriteString("\n--- Reviews ---\n")
	if len(reviews) == 0 {
		sb.WriteString("No reviews are available. Set review_insights to null and never mention reviews in any text field.\n")
		return
	}
	if max > 0 && len(reviews) > max {
		reviews = reviews[:max]
	}
	for _, r := range reviews {
		fmt.Fprintf(sb, "[%.1f/5] %s\n", r.Rating, strings.TrimSpace(r.Text))
	}
}

func writeWebsiteSection(sb *strings.Builder, wb *model.WebsiteBundle, maxChars int) {
	sb.WriteString("\n--- Website Research ---\n")
	if wb.EnglishAvailable {
		sb.WriteString("An English-language variant of the site exists.\n")
	}

	if headings := dedupeHeadings(wb.Headings); len(headings) > 0 {
		sb.WriteString("Headings: ")
		sb.WriteString(strings.Join(headings, " | "))
		sb.WriteString("\n")
	}

	for _, meta := range wb.Metadata {
		if len(meta.Data) > 0 {
			raw, err := json.Marshal(meta.Data)
			if err != nil {
				continue
			}
			fmt.Fprintf(sb, "Structured metadata (%s): %s\n", meta.Type, raw)
		}
	}
	for _, proof := range wb.SocialProof {
		fmt.Fprintf(sb, "Social proof: %s\n", proof)
	}

	var text strings.Builder
	for _, page := range wb.Pages {
		if page.Text == "" {
			continue
		}
		fmt.Fprintf(&text, "[%s]\n%s\n", page.URL, page.Text)
	}
	content := text.String()
	if maxChars > 0 && len(content) > maxChars {
		content = content[:maxChars] + "\n[truncated]"
	}
	if content != "" {
		sb.WriteString("Page content:\n")
		sb.WriteString(content)
	}
}

func writeSearchSection(sb *strings.Builder, bundle *model.SearchBundle, topK int) {
	sb.WriteString("\n--- Web Search ---\n")
	for _, qr := range bundle.Queries {
		fmt.Fprintf(sb, "Query: %s\n", qr.Query)
		if qr.Answer != "" {
			fmt.Fprintf(sb, "Answer: %s\n", qr.Answer)
		}
		results := qr.Results
		if topK > 0 && len(results) > topK {
			results = results[:topK]
		}
		for _, r := range results {
			fmt.Fprintf(sb, "- %s: %s\n", r.Title, r.Content)
		}
	}
}

// dedupeHeadings collapses case-insensitive duplicates while keeping the
// first occurrence's casing and order.
func dedupeHeadings(headings []string) []string {
	seen := make(map[string]bool, len(headings))
	var out []string
	for _, h := range headings {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		key := strings.ToLower(h)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, h)
	}
	return out
}

// payloadHints mines free-form hints from the source payload's tag
// vocabulary, sorted for deterministic prompts.
func payloadHints(b *model.Business) []string {
	if b.RawPayload == nil {
		return nil
	}
	tags, ok := b.RawPayload["tags"].(map[string]any)
	if !ok {
		return nil
	}
	var hints []string
	for k, v := range tags {
		s, ok := v.(string)
		if !ok || s == "" {
			continue
		}
		switch k {
		case "name", "phone", "website", "addr:street", "addr:city":
			continue
		}
		hints = append(hints, k+"="+s)
	}
	sort.Strings(hints)
	return hints
}
