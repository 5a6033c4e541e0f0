package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/listing-pipeline/internal/config"
	"github.com/sells-group/listing-pipeline/internal/db"
	"github.com/sells-group/listing-pipeline/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"get_business": `SELECT id, name, street, city, region_slug, latitude, longitude, phone, website, category,
		source, source_id, status, raw_payload, enrichment, enriched_at, created_at, updated_at
		FROM businesses WHERE id = $1`,
	"advance_status":     `UPDATE businesses SET status = $2, updated_at = now() WHERE id = $1 AND status = ANY($3)`,
	"upsert_bundle":      `INSERT INTO research_bundles (business_id, kind, payload, updated_at) VALUES ($1, $2, $3, now()) ON CONFLICT (business_id, kind) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`,
	"get_bundles":        `SELECT kind, payload FROM research_bundles WHERE business_id = $1`,
	"translation_locales": `SELECT locale FROM translations WHERE business_id = $1 ORDER BY locale`,
}

// NewPool builds the shared pgx connection pool. The store and the job queue
// client both run on it.
func NewPool(ctx context.Context, cfg config.StoreConfig) (*pgxpool.Pool, error) {
	pgxCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if cfg.MaxConns > 0 {
		maxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		minConns = cfg.MinConns
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return pool, nil
}

// NewPostgres creates a PostgresStore with its own connection pool.
func NewPostgres(ctx context.Context, cfg config.StoreConfig) (*PostgresStore, error) {
	pool, err := NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool; used by tests and by callers
// sharing a pool with the job queue.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool for subsystems that need direct
// query access (the job queue client shares it).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS regions (
	slug              TEXT PRIMARY KEY,
	name              TEXT NOT NULL,
	active            BOOLEAN NOT NULL DEFAULT true,
	default_locale    TEXT NOT NULL DEFAULT 'en',
	supported_locales TEXT[] NOT NULL DEFAULT '{en}',
	language          TEXT NOT NULL DEFAULT '',
	cultural_tips     TEXT[] NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS cities (
	slug           TEXT NOT NULL,
	region_slug    TEXT NOT NULL REFERENCES regions(slug),
	name           TEXT NOT NULL,
	latitude       DOUBLE PRECISION NOT NULL,
	longitude      DOUBLE PRECISION NOT NULL,
	radius_km      DOUBLE PRECISION NOT NULL DEFAULT 10,
	PRIMARY KEY (region_slug, slug)
);

CREATE TABLE IF NOT EXISTS businesses (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	street      TEXT NOT NULL DEFAULT '',
	city        TEXT NOT NULL,
	region_slug TEXT NOT NULL REFERENCES regions(slug),
	latitude    DOUBLE PRECISION,
	longitude   DOUBLE PRECISION,
	phone       TEXT NOT NULL DEFAULT '',
	website     TEXT NOT NULL DEFAULT '',
	category    TEXT NOT NULL DEFAULT '',
	source      TEXT NOT NULL,
	source_id   TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'pending',
	raw_payload JSONB,
	enrichment  JSONB,
	enriched_at TIMESTAMPTZ,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (source, source_id)
);

CREATE INDEX IF NOT EXISTS idx_businesses_region_status ON businesses(region_slug, status);
CREATE INDEX IF NOT EXISTS idx_businesses_status ON businesses(status);
CREATE INDEX IF NOT EXISTS idx_businesses_city ON businesses(region_slug, city);
CREATE INDEX IF NOT EXISTS idx_businesses_enriched_at ON businesses(enriched_at);

CREATE TABLE IF NOT EXISTS research_bundles (
	business_id TEXT NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
	kind        TEXT NOT NULL,
	payload     JSONB NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (business_id, kind)
);

CREATE INDEX IF NOT EXISTS idx_research_bundles_updated_at ON research_bundles(updated_at);

CREATE TABLE IF NOT EXISTS translations (
	business_id TEXT NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
	locale      TEXT NOT NULL,
	payload     JSONB NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (business_id, locale)
);
`

// Migrate applies the embedded schema. Statements are idempotent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// --- Businesses ---

// CreateBusiness inserts a business at pending. A duplicate (source,
// source_id) is skipped, not overwritten; created reports whether a row was
// actually inserted.
func (s *PostgresStore) CreateBusiness(ctx context.Context, b *model.Business) (bool, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Status == "" {
		b.Status = model.StatusPending
	}

	payload, err := json.Marshal(b.RawPayload)
	if err != nil {
		return false, eris.Wrap(err, "postgres: marshal raw payload")
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO businesses (id, name, street, city, region_slug, latitude, longitude,
			phone, website, category, source, source_id, status, raw_payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (source, source_id) DO NOTHING`,
		b.ID, b.Name, b.Street, b.City, b.RegionSlug, b.Latitude, b.Longitude,
		b.Phone, b.Website, b.Category, b.Source, b.SourceID, string(b.Status), payload,
	)
	if err != nil {
		return false, eris.Wrap(err, "postgres: insert business")
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) GetBusiness(ctx context.Context, id string) (*model.Business, error) {
	row := s.pool.QueryRow(ctx, preparedStatements["get_business"], id)
	b, err := scanBusiness(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(model.ErrNotFound, "postgres: business %s", id)
		}
		return nil, eris.Wrap(err, "postgres: get business")
	}
	return b, nil
}

func (s *PostgresStore) ListBusinesses(ctx context.Context, filter BusinessFilter) ([]model.Business, error) {
	query := `SELECT id, name, street, city, region_slug, latitude, longitude, phone, website, category,
		source, source_id, status, raw_payload, enrichment, enriched_at, created_at, updated_at
		FROM businesses WHERE 1=1`
	args := []any{}
	n := 1

	if filter.RegionSlug != "" {
		query += ` AND region_slug = $` + itoa(n)
		args = append(args, filter.RegionSlug)
		n++
	}
	if filter.Status != "" {
		query += ` AND status = $` + itoa(n)
		args = append(args, string(filter.Status))
		n++
	}
	if filter.HasWebsite {
		query += ` AND website <> ''`
	}

	// Deterministic order is what makes offset-based paging re-derivable.
	query += ` ORDER BY created_at, id`

	if filter.Limit > 0 {
		query += ` LIMIT $` + itoa(n)
		args = append(args, filter.Limit)
		n++
	}
	if filter.Offset > 0 {
		query += ` OFFSET $` + itoa(n)
		args = append(args, filter.Offset)
		n++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list businesses")
	}
	defer rows.Close()

	var out []model.Business
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan business")
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate businesses")
	}
	return out, nil
}

// AdvanceStatus guards the forward-only graph in SQL: the UPDATE only fires
// when the current status is a valid predecessor, so a concurrent or replayed
// advance is a silent no-op.
func (s *PostgresStore) AdvanceStatus(ctx context.Context, id string, to model.Status) (bool, error) {
	if !to.Valid() {
		return false, eris.Errorf("postgres: invalid status %q", to)
	}
	preds := model.Predecessors(to)
	if len(preds) == 0 {
		return false, nil
	}
	from := make([]string, len(preds))
	for i, p := range preds {
		from[i] = string(p)
	}

	tag, err := s.pool.Exec(ctx, preparedStatements["advance_status"], id, string(to), from)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: advance status to %s", to)
	}
	return tag.RowsAffected() > 0, nil
}

// ApplyEnrichment merges the attribute fields present in attrs into the
// enrichment document (absent fields stay untouched, present fields are
// force-written) and stamps status/enriched_at in the same statement.
func (s *PostgresStore) ApplyEnrichment(ctx context.Context, id string, attrs *model.Attributes) error {
	doc, err := attributesDoc(attrs)
	if err != nil {
		return err
	}

	preds := append(stringStatuses(model.Predecessors(model.StatusEnriched)), string(model.StatusEnriched))
	tag, err := s.pool.Exec(ctx, `
		UPDATE businesses
		SET enrichment = COALESCE(enrichment, '{}'::jsonb) || $2::jsonb,
			status = $3,
			enriched_at = now(),
			updated_at = now()
		WHERE id = $1 AND status = ANY($4)`,
		id, doc, string(model.StatusEnriched), preds,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: apply enrichment")
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(model.ErrNotFound, "postgres: business %s not enrichable", id)
	}
	return nil
}

// attributesDoc marshals attrs and drops null values so a nil pointer field
// never overwrites previously-written data.
func attributesDoc(attrs *model.Attributes) ([]byte, error) {
	raw, err := json.Marshal(attrs)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal attributes")
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, eris.Wrap(err, "postgres: reshape attributes")
	}
	for k, v := range m {
		if v == nil {
			delete(m, k)
		}
	}
	doc, err := json.Marshal(m)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal attributes doc")
	}
	return doc, nil
}

func stringStatuses(in []model.Status) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}

// --- Research bundles ---

func (s *PostgresStore) UpsertWebsiteBundle(ctx context.Context, businessID string, bundle *model.WebsiteBundle) error {
	return s.upsertBundle(ctx, businessID, model.BundleWebsite, bundle)
}

func (s *PostgresStore) UpsertSearchBundle(ctx context.Context, businessID string, bundle *model.SearchBundle) error {
	return s.upsertBundle(ctx, businessID, model.BundleSearch, bundle)
}

func (s *PostgresStore) upsertBundle(ctx context.Context, businessID string, kind model.BundleKind, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrapf(err, "postgres: marshal %s bundle", kind)
	}
	if _, err := s.pool.Exec(ctx, preparedStatements["upsert_bundle"], businessID, string(kind), raw); err != nil {
		return eris.Wrapf(err, "postgres: upsert %s bundle", kind)
	}
	return nil
}

func (s *PostgresStore) GetResearch(ctx context.Context, businessID string) (*model.CombinedBundle, error) {
	rows, err := s.pool.Query(ctx, preparedStatements["get_bundles"], businessID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get research")
	}
	defer rows.Close()

	combined := &model.CombinedBundle{}
	for rows.Next() {
		var kind string
		var payload []byte
		if err := rows.Scan(&kind, &payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan bundle")
		}
		switch model.BundleKind(kind) {
		case model.BundleWebsite:
			var wb model.WebsiteBundle
			if err := json.Unmarshal(payload, &wb); err != nil {
				return nil, eris.Wrap(err, "postgres: decode website bundle")
			}
			combined.Website = &wb
		case model.BundleSearch:
			var sb model.SearchBundle
			if err := json.Unmarshal(payload, &sb); err != nil {
				return nil, eris.Wrap(err, "postgres: decode search bundle")
			}
			combined.Search = &sb
		}
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate bundles")
	}
	return combined, nil
}

// --- Translations ---

// UpsertTranslation atomically writes the (business, locale) row; the primary
// key guarantees at most one row per pair.
func (s *PostgresStore) UpsertTranslation(ctx context.Context, tr *model.Translation) error {
	raw, err := json.Marshal(tr)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal translation")
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO translations (business_id, locale, payload, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (business_id, locale) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`,
		tr.BusinessID, tr.Locale, raw,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: upsert translation %s", tr.Locale)
	}
	return nil
}

func (s *PostgresStore) ListTranslationLocales(ctx context.Context, businessID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, preparedStatements["translation_locales"], businessID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list translation locales")
	}
	defer rows.Close()

	var locales []string
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, eris.Wrap(err, "postgres: scan locale")
		}
		locales = append(locales, l)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate locales")
	}
	return locales, nil
}

// --- Regions and cities ---

func (s *PostgresStore) GetRegion(ctx context.Context, slug string) (*model.Region, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT slug, name, active, default_locale, supported_locales, language, cultural_tips
		FROM regions WHERE slug = $1`, slug)

	var r model.Region
	if err := row.Scan(&r.Slug, &r.Name, &r.Active, &r.DefaultLocale, &r.SupportedLocales, &r.Language, &r.CulturalTips); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(model.ErrNotFound, "postgres: region %s", slug)
		}
		return nil, eris.Wrap(err, "postgres: get region")
	}
	return &r, nil
}

func (s *PostgresStore) ListActiveRegions(ctx context.Context) ([]model.Region, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT slug, name, active, default_locale, supported_locales, language, cultural_tips
		FROM regions WHERE active ORDER BY slug`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list regions")
	}
	defer rows.Close()

	var out []model.Region
	for rows.Next() {
		var r model.Region
		if err := rows.Scan(&r.Slug, &r.Name, &r.Active, &r.DefaultLocale, &r.SupportedLocales, &r.Language, &r.CulturalTips); err != nil {
			return nil, eris.Wrap(err, "postgres: scan region")
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate regions")
	}
	return out, nil
}

func (s *PostgresStore) UpsertRegion(ctx context.Context, r *model.Region) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO regions (slug, name, active, default_locale, supported_locales, language, cultural_tips)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (slug) DO UPDATE SET
			name = EXCLUDED.name,
			active = EXCLUDED.active,
			default_locale = EXCLUDED.default_locale,
			supported_locales = EXCLUDED.supported_locales,
			language = EXCLUDED.language,
			cultural_tips = EXCLUDED.cultural_tips`,
		r.Slug, r.Name, r.Active, r.DefaultLocale, r.SupportedLocales, r.Language, r.CulturalTips,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: upsert region %s", r.Slug)
	}
	return nil
}

func (s *PostgresStore) UpsertCity(ctx context.Context, c *model.City) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO cities (slug, region_slug, name, latitude, longitude, radius_km)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (region_slug, slug) DO UPDATE SET
			name = EXCLUDED.name,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			radius_km = EXCLUDED.radius_km`,
		c.Slug, c.RegionSlug, c.Name, c.Latitude, c.Longitude, c.RadiusKM,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: upsert city %s", c.Slug)
	}
	return nil
}

func (s *PostgresStore) GetCity(ctx context.Context, regionSlug, citySlug string) (*model.City, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT slug, region_slug, name, latitude, longitude, radius_km
		FROM cities WHERE region_slug = $1 AND slug = $2`, regionSlug, citySlug)

	var c model.City
	if err := row.Scan(&c.Slug, &c.RegionSlug, &c.Name, &c.Latitude, &c.Longitude, &c.RadiusKM); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(model.ErrNotFound, "postgres: city %s/%s", regionSlug, citySlug)
		}
		return nil, eris.Wrap(err, "postgres: get city")
	}
	return &c, nil
}

func (s *PostgresStore) ListUnderPopulatedCities(ctx context.Context, regionSlug string, threshold int) ([]model.City, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.slug, c.region_slug, c.name, c.latitude, c.longitude, c.radius_km,
			(SELECT count(*) FROM businesses b WHERE b.region_slug = c.region_slug AND b.city = c.name) AS business_count
		FROM cities c
		WHERE c.region_slug = $1
		AND (SELECT count(*) FROM businesses b WHERE b.region_slug = c.region_slug AND b.city = c.name) < $2
		ORDER BY c.slug`,
		regionSlug, threshold,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list under-populated cities")
	}
	defer rows.Close()

	var out []model.City
	for rows.Next() {
		var c model.City
		if err := rows.Scan(&c.Slug, &c.RegionSlug, &c.Name, &c.Latitude, &c.Longitude, &c.RadiusKM, &c.BusinessCount); err != nil {
			return nil, eris.Wrap(err, "postgres: scan city")
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate cities")
	}
	return out, nil
}

func (s *PostgresStore) CountPendingWithWebsite(ctx context.Context, regionSlug string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM businesses
		WHERE region_slug = $1 AND status = $2 AND website <> ''`,
		regionSlug, string(model.StatusPending),
	).Scan(&count)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: count pending with website")
	}
	return count, nil
}

// --- Observability ---

func (s *PostgresStore) CountByStatus(ctx context.Context, regionSlug string) (map[model.Status]int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT status, count(*) FROM businesses WHERE region_slug = $1 GROUP BY status`,
		regionSlug,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: count by status")
	}
	defer rows.Close()

	counts := make(map[model.Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, eris.Wrap(err, "postgres: scan status count")
		}
		counts[model.Status(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate status counts")
	}
	return counts, nil
}

func (s *PostgresStore) CountEnrichedSince(ctx context.Context, regionSlug string, since time.Time) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM businesses
		WHERE region_slug = $1 AND enriched_at >= $2`,
		regionSlug, since,
	).Scan(&count)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: count enriched since")
	}
	return count, nil
}

// TranslationCoverage returns, per supported locale, the share of enriched
// businesses in the region that already have a translation row.
func (s *PostgresStore) TranslationCoverage(ctx context.Context, regionSlug string) (map[string]float64, error) {
	var enriched int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM businesses WHERE region_slug = $1 AND status IN ($2, $3)`,
		regionSlug, string(model.StatusEnriched), string(model.StatusVerified),
	).Scan(&enriched)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: count enriched")
	}

	rows, err := s.pool.Query(ctx, `
		SELECT t.locale, count(*)
		FROM translations t
		JOIN businesses b ON b.id = t.business_id
		WHERE b.region_slug = $1
		GROUP BY t.locale`,
		regionSlug,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: translation coverage")
	}
	defer rows.Close()

	coverage := make(map[string]float64)
	for rows.Next() {
		var locale string
		var count int
		if err := rows.Scan(&locale, &count); err != nil {
			return nil, eris.Wrap(err, "postgres: scan coverage")
		}
		if enriched > 0 {
			coverage[locale] = float64(count) / float64(enriched)
		} else {
			coverage[locale] = 0
		}
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate coverage")
	}
	return coverage, nil
}

func (s *PostgresStore) ResearchCounters(ctx context.Context, regionSlug string, recentWindow time.Duration) (*ResearchCounters, error) {
	counters := &ResearchCounters{}

	statuses, err := s.CountByStatus(ctx, regionSlug)
	if err != nil {
		return nil, err
	}
	counters.Researching = statuses[model.StatusResearching]
	counters.Researched = statuses[model.StatusResearched]
	counters.Enriched = statuses[model.StatusEnriched]

	counters.Eligible, err = s.CountPendingWithWebsite(ctx, regionSlug)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().UTC().Add(-recentWindow)
	rows, err := s.pool.Query(ctx, `
		SELECT rb.kind, count(*)
		FROM research_bundles rb
		JOIN businesses b ON b.id = rb.business_id
		WHERE b.region_slug = $1 AND rb.updated_at >= $2
		GROUP BY rb.kind`,
		regionSlug, cutoff,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: recent research counts")
	}
	defer rows.Close()

	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, eris.Wrap(err, "postgres: scan research count")
		}
		switch model.BundleKind(kind) {
		case model.BundleWebsite:
			counters.RecentWebsite = count
		case model.BundleSearch:
			counters.RecentSearch = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate research counts")
	}
	return counters, nil
}

// QueueStateCounts reads aggregate job-state counts from the queue
// substrate's own table. The pipeline never mutates it.
func (s *PostgresStore) QueueStateCounts(ctx context.Context) (map[string]map[string]int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT queue, state, count(*) FROM river_job GROUP BY queue, state`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: queue state counts")
	}
	defer rows.Close()

	counts := make(map[string]map[string]int)
	for rows.Next() {
		var queue, state string
		var count int
		if err := rows.Scan(&queue, &state, &count); err != nil {
			return nil, eris.Wrap(err, "postgres: scan queue count")
		}
		if counts[queue] == nil {
			counts[queue] = make(map[string]int)
		}
		counts[queue][state] = count
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate queue counts")
	}
	return counts, nil
}

// --- scan helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBusiness(row rowScanner) (*model.Business, error) {
	var (
		b          model.Business
		lat, lon   *float64
		rawPayload []byte
		enrichment []byte
		status     string
	)
	err := row.Scan(&b.ID, &b.Name, &b.Street, &b.City, &b.RegionSlug, &lat, &lon,
		&b.Phone, &b.Website, &b.Category, &b.Source, &b.SourceID, &status,
		&rawPayload, &enrichment, &b.EnrichedAt, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.Status = model.Status(status)
	if lat != nil {
		b.Latitude = *lat
	}
	if lon != nil {
		b.Longitude = *lon
	}
	if len(rawPayload) > 0 {
		if err := json.Unmarshal(rawPayload, &b.RawPayload); err != nil {
			return nil, eris.Wrap(err, "decode raw payload")
		}
	}
	if len(enrichment) > 0 {
		var attrs model.Attributes
		if err := json.Unmarshal(enrichment, &attrs); err != nil {
			return nil, eris.Wrap(err, "decode enrichment")
		}
		b.Enrichment = &attrs
	}
	return &b, nil
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
