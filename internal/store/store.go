package store

import (
	"context"
	"time"

	"github.com/sells-group/listing-pipeline/internal/model"
)

// BusinessFilter specifies criteria for listing businesses.
type BusinessFilter struct {
	RegionSlug string
	Status     model.Status
	HasWebsite bool
	Limit      int
	Offset     int
}

// ImportCounts tallies the outcome of a discovery import batch.
type ImportCounts struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// ResearchCounters summarizes research progress for a region.
type ResearchCounters struct {
	Eligible      int `json:"eligible"`
	Researching   int `json:"researching"`
	Researched    int `json:"researched"`
	Enriched      int `json:"enriched"`
	RecentWebsite int `json:"recent_website_bundles"`
	RecentSearch  int `json:"recent_search_bundles"`
}

// Store defines the persistence interface for the listing pipeline.
type Store interface {
	// Businesses
	CreateBusiness(ctx context.Context, b *model.Business) (created bool, err error)
	GetBusiness(ctx context.Context, id string) (*model.Business, error)
	ListBusinesses(ctx context.Context, filter BusinessFilter) ([]model.Business, error)
	// AdvanceStatus moves a business forward along the status graph. It
	// returns false without error when the current status does not permit
	// the transition, so concurrent advances stay idempotent.
	AdvanceStatus(ctx context.Context, id string, to model.Status) (bool, error)
	// ApplyEnrichment force-writes the attribute fields present in attrs,
	// leaves absent fields untouched, and stamps status/enriched_at.
	ApplyEnrichment(ctx context.Context, id string, attrs *model.Attributes) error

	// Research bundles (idempotent overwrite per (business, kind))
	UpsertWebsiteBundle(ctx context.Context, businessID string, bundle *model.WebsiteBundle) error
	UpsertSearchBundle(ctx context.Context, businessID string, bundle *model.SearchBundle) error
	GetResearch(ctx context.Context, businessID string) (*model.CombinedBundle, error)

	// Translations (atomic upsert per (business, locale))
	UpsertTranslation(ctx context.Context, tr *model.Translation) error
	ListTranslationLocales(ctx context.Context, businessID string) ([]string, error)

	// Regions and cities
	GetRegion(ctx context.Context, slug string) (*model.Region, error)
	ListActiveRegions(ctx context.Context) ([]model.Region, error)
	UpsertRegion(ctx context.Context, r *model.Region) error
	UpsertCity(ctx context.Context, c *model.City) error
	GetCity(ctx context.Context, regionSlug, citySlug string) (*model.City, error)
	// ListUnderPopulatedCities returns cities whose business count is below
	// the threshold, with counts populated.
	ListUnderPopulatedCities(ctx context.Context, regionSlug string, threshold int) ([]model.City, error)
	CountPendingWithWebsite(ctx context.Context, regionSlug string) (int, error)

	// Observability
	CountByStatus(ctx context.Context, regionSlug string) (map[model.Status]int, error)
	CountEnrichedSince(ctx context.Context, regionSlug string, since time.Time) (int, error)
	TranslationCoverage(ctx context.Context, regionSlug string) (map[string]float64, error)
	ResearchCounters(ctx context.Context, regionSlug string, recentWindow time.Duration) (*ResearchCounters, error)
	QueueStateCounts(ctx context.Context) (map[string]map[string]int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
