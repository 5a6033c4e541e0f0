package model

import "time"

// BundleKind discriminates the two research artifacts kept per business.
type BundleKind string

const (
	BundleWebsite BundleKind = "website"
	BundleSearch  BundleKind = "search"
)

// ResearchBundle is a normalized research artifact for one business.
// Exactly one row exists per (business, kind); re-runs overwrite it.
type ResearchBundle struct {
	BusinessID string         `json:"business_id"`
	Kind       BundleKind     `json:"kind"`
	Website    *WebsiteBundle `json:"website,omitempty"`
	Search     *SearchBundle  `json:"search,omitempty"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// WebsiteBundle holds crawled website content for one business.
type WebsiteBundle struct {
	Pages            []CrawledPage    `json:"pages"`
	Headings         []string         `json:"headings"`
	EnglishAvailable bool             `json:"english_available"`
	Metadata         []StructuredMeta `json:"metadata,omitempty"`
	SocialProof      []string         `json:"social_proof,omitempty"`
}

// CrawledPage is one fetched page, reduced to denoised visible text.
type CrawledPage struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	Text       string `json:"text"`
	StatusCode int    `json:"status_code,omitempty"`
}

// StructuredMeta is a structured metadata block (JSON-LD and similar)
// lifted from a crawled page.
type StructuredMeta struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// SearchBundle holds web-search research: one tuple per executed query.
type SearchBundle struct {
	Queries []QueryResult `json:"queries"`
}

// QueryResult pairs a query with the results it produced.
type QueryResult struct {
	Query   string         `json:"query"`
	Answer  string         `json:"answer,omitempty"`
	Results []SearchResult `json:"results"`
}

// SearchResult is a single web-search hit.
type SearchResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score,omitempty"`
}

// CombinedBundle is the read-only view the enrichment engine consumes.
// Either half may be nil; enrichment proceeds degraded.
type CombinedBundle struct {
	Website *WebsiteBundle
	Search  *SearchBundle
}
