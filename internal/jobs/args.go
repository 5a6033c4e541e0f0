package jobs

import "github.com/riverqueue/river"

// Job kinds.
const (
	KindResearch   = "business_research"
	KindSearch     = "business_search"
	KindEnrich     = "business_enrich"
	KindTranslate  = "business_translate"
	KindBatch      = "batch_queue"
	KindDiscover   = "city_discover"
	KindRegionScan = "region_scan"
)

// Queue names. Worker counts per queue come from config.
const (
	QueueAI        = "ai"
	QueueCrawl     = "crawl"
	QueueSearch    = "search"
	QueueDiscovery = "discovery"
	QueueTranslate = "translate"
	QueueControl   = "control"
)

// ResearchArgs starts the research phase for one business with the website
// crawl; the search job follows on its own queue.
type ResearchArgs struct {
	BusinessID string `json:"business_id"`
}

func (ResearchArgs) Kind() string { return KindResearch }

func (ResearchArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{Queue: QueueCrawl, MaxAttempts: 4}
}

// SearchArgs runs the web-search coordinator for one business after the
// website crawl completes.
type SearchArgs struct {
	BusinessID string `json:"business_id"`
}

func (SearchArgs) Kind() string { return KindSearch }

func (SearchArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{Queue: QueueSearch, MaxAttempts: 4}
}

// EnrichArgs runs the enrichment engine for one business.
type EnrichArgs struct {
	BusinessID string `json:"business_id"`
}

func (EnrichArgs) Kind() string { return KindEnrich }

func (EnrichArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{Queue: QueueAI, MaxAttempts: 3}
}

// TranslateArgs translates one business's enrichment into one locale.
type TranslateArgs struct {
	BusinessID string `json:"business_id"`
	Locale     string `json:"locale"`
}

func (TranslateArgs) Kind() string { return KindTranslate }

func (TranslateArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{Queue: QueueTranslate, MaxAttempts: 4}
}

// BatchArgs pages through eligible pending businesses for a region.
type BatchArgs struct {
	RegionSlug string `json:"region_slug"`
	Offset     int    `json:"offset"`
}

func (BatchArgs) Kind() string { return KindBatch }

func (BatchArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{Queue: QueueControl, MaxAttempts: 3}
}

// DiscoverArgs imports one city/category pair from the geo-catalog.
type DiscoverArgs struct {
	RegionSlug string `json:"region_slug"`
	CitySlug   string `json:"city_slug"`
	Category   string `json:"category"`
}

func (DiscoverArgs) Kind() string { return KindDiscover }

func (DiscoverArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{Queue: QueueDiscovery, MaxAttempts: 4}
}

// RegionScanArgs is the periodic control-loop trigger. It carries no
// payload; the scan always covers every active region.
type RegionScanArgs struct{}

func (RegionScanArgs) Kind() string { return KindRegionScan }

func (RegionScanArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{Queue: QueueControl, MaxAttempts: 2}
}
