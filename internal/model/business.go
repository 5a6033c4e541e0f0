package model

import (
	"time"
)

// Business represents a candidate directory listing under pipeline management.
type Business struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Street     string  `json:"street,omitempty"`
	City       string  `json:"city"`
	RegionSlug string  `json:"region_slug"`
	Latitude   float64 `json:"latitude,omitempty"`
	Longitude  float64 `json:"longitude,omitempty"`
	Phone      string  `json:"phone,omitempty"`
	Website    string  `json:"website,omitempty"`
	Category   string  `json:"category,omitempty"`

	// Source provenance. SourceID is the external catalog's identifier and,
	// together with Source, uniquely identifies an imported record.
	Source   string `json:"source"`
	SourceID string `json:"source_id"`

	Status     Status         `json:"status"`
	RawPayload map[string]any `json:"raw_payload,omitempty"`

	Enrichment *Attributes `json:"enrichment,omitempty"`
	EnrichedAt *time.Time  `json:"enriched_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Attributes holds LLM-generated enrichment output for a business.
// Pointer fields distinguish "absent from the model reply" from zero values:
// absent fields are left untouched on the business record.
type Attributes struct {
	Description string `json:"description,omitempty"`
	Summary     string `json:"summary,omitempty"`

	// Bounded [0,1] scores.
	AuthenticityScore  *float64 `json:"authenticity_score,omitempty"`
	AccessibilityScore *float64 `json:"accessibility_score,omitempty"`
	QualityScore       *float64 `json:"quality_score,omitempty"`
	CategoryFit        *float64 `json:"category_fit,omitempty"`

	// SuggestedCategory is mandatory whenever CategoryFit falls below the
	// configured threshold.
	SuggestedCategory string `json:"suggested_category,omitempty"`

	LanguageSupport           *bool    `json:"language_support,omitempty"`
	LanguageSupportConfidence *float64 `json:"language_support_confidence,omitempty"`
	SpokenLanguages           []string `json:"spoken_languages"`

	Tips        []string `json:"tips"`
	Notes       []string `json:"notes"`
	Specialties []string `json:"specialties"`
	Highlights  []string `json:"highlights"`
	Warnings    []string `json:"warnings"`

	ReviewInsights *ReviewInsights `json:"review_insights,omitempty"`
}

// ReviewInsights summarizes social-proof signals mined from reviews.
type ReviewInsights struct {
	Sentiment        string   `json:"sentiment,omitempty"`
	CommonPraise     []string `json:"common_praise"`
	CommonComplaints []string `json:"common_complaints"`
	SampleSize       int      `json:"sample_size,omitempty"`
}

// Review is a single source-payload review fed into the prompt digest.
type Review struct {
	Rating float64 `json:"rating"`
	Text   string  `json:"text"`
}

// City is a populated place inside a region, used by discovery.
type City struct {
	Slug          string  `json:"slug"`
	Name          string  `json:"name"`
	RegionSlug    string  `json:"region_slug"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	RadiusKM      float64 `json:"radius_km"`
	BusinessCount int     `json:"business_count"`
}
