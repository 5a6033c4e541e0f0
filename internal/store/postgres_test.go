package store

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/listing-pipeline/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_CreateBusiness_Inserted(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO businesses`).
		WithArgs(pgxmock.AnyArg(), "Taller Luna", "Calle 5 #12", "Oaxaca", "oaxaca",
			17.06, -96.72, "", "https://tallerluna.mx", "crafts", "geo-catalog", "node/123",
			"pending", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	created, err := s.CreateBusiness(context.Background(), &model.Business{
		Name:       "Taller Luna",
		Street:     "Calle 5 #12",
		City:       "Oaxaca",
		RegionSlug: "oaxaca",
		Latitude:   17.06,
		Longitude:  -96.72,
		Website:    "https://tallerluna.mx",
		Category:   "crafts",
		Source:     "geo-catalog",
		SourceID:   "node/123",
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateBusiness_DuplicateSkipped(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	// ON CONFLICT DO NOTHING reports zero rows; the caller counts a skip.
	mock.ExpectExec(`INSERT INTO businesses`).
		WithArgs(pgxmock.AnyArg(), "Taller Luna", "", "Oaxaca", "oaxaca",
			0.0, 0.0, "", "", "", "geo-catalog", "node/123", "pending", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	created, err := s.CreateBusiness(context.Background(), &model.Business{
		Name:       "Taller Luna",
		City:       "Oaxaca",
		RegionSlug: "oaxaca",
		Source:     "geo-catalog",
		SourceID:   "node/123",
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetBusiness_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, name, street, city, region_slug`).
		WithArgs("missing-id").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetBusiness(context.Background(), "missing-id")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AdvanceStatus_Allowed(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE businesses SET status`).
		WithArgs("biz-1", "researching", []string{"pending"}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	advanced, err := s.AdvanceStatus(context.Background(), "biz-1", model.StatusResearching)
	require.NoError(t, err)
	assert.True(t, advanced)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AdvanceStatus_DisallowedIsSilent(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	// A verified row never matches the predecessor guard: no rows, no error.
	mock.ExpectExec(`UPDATE businesses SET status`).
		WithArgs("biz-1", "researching", []string{"pending"}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	advanced, err := s.AdvanceStatus(context.Background(), "biz-1", model.StatusResearching)
	require.NoError(t, err)
	assert.False(t, advanced)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AdvanceStatus_InvalidStatus(t *testing.T) {
	s, _ := newMockPostgresStore(t)

	_, err := s.AdvanceStatus(context.Background(), "biz-1", model.Status("bogus"))
	require.Error(t, err)
}

func TestPostgresStore_ApplyEnrichment_MergesAndStamps(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE businesses\s+SET enrichment = COALESCE`).
		WithArgs("biz-1", pgxmock.AnyArg(), "enriched", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	score := 0.85
	err := s.ApplyEnrichment(context.Background(), "biz-1", &model.Attributes{
		Description:       "Family-run mezcal distillery.",
		AuthenticityScore: &score,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ApplyEnrichment_NotEnrichable(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE businesses\s+SET enrichment = COALESCE`).
		WithArgs("biz-1", pgxmock.AnyArg(), "enriched", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.ApplyEnrichment(context.Background(), "biz-1", &model.Attributes{Description: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttributesDoc_DropsNullFields(t *testing.T) {
	score := 0.5
	doc, err := attributesDoc(&model.Attributes{
		Description:  "Cozy cafe",
		QualityScore: &score,
	})
	require.NoError(t, err)

	// Nil pointer scores must not appear as JSON nulls, or the JSONB merge
	// would clobber previously-written values.
	assert.NotContains(t, string(doc), "null")
	assert.Contains(t, string(doc), `"description":"Cozy cafe"`)
	assert.Contains(t, string(doc), `"quality_score":0.5`)
}

func TestPostgresStore_UpsertTranslation(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO translations`).
		WithArgs("biz-1", "es", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.UpsertTranslation(context.Background(), &model.Translation{
		BusinessID:  "biz-1",
		Locale:      "es",
		Description: "Destilería familiar de mezcal.",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListTranslationLocales(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT locale FROM translations`).
		WithArgs("biz-1").
		WillReturnRows(pgxmock.NewRows([]string{"locale"}).AddRow("en").AddRow("es"))

	locales, err := s.ListTranslationLocales(context.Background(), "biz-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"en", "es"}, locales)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CountByStatus(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT status, count\(\*\) FROM businesses`).
		WithArgs("oaxaca").
		WillReturnRows(pgxmock.NewRows([]string{"status", "count"}).
			AddRow("pending", 40).
			AddRow("enriched", 12))

	counts, err := s.CountByStatus(context.Background(), "oaxaca")
	require.NoError(t, err)
	assert.Equal(t, 40, counts[model.StatusPending])
	assert.Equal(t, 12, counts[model.StatusEnriched])
	assert.Zero(t, counts[model.StatusVerified])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_QueueStateCounts(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT queue, state, count\(\*\) FROM river_job`).
		WillReturnRows(pgxmock.NewRows([]string{"queue", "state", "count"}).
			AddRow("ai", "available", 3).
			AddRow("ai", "running", 1).
			AddRow("crawl", "scheduled", 7))

	counts, err := s.QueueStateCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, counts["ai"]["available"])
	assert.Equal(t, 1, counts["ai"]["running"])
	assert.Equal(t, 7, counts["crawl"]["scheduled"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_TranslationCoverage(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM businesses WHERE region_slug`).
		WithArgs("oaxaca", "enriched", "verified").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(10))
	mock.ExpectQuery(`SELECT t\.locale, count\(\*\)`).
		WithArgs("oaxaca").
		WillReturnRows(pgxmock.NewRows([]string{"locale", "count"}).
			AddRow("en", 10).
			AddRow("es", 4))

	coverage, err := s.TranslationCoverage(context.Background(), "oaxaca")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, coverage["en"], 1e-9)
	assert.InDelta(t, 0.4, coverage["es"], 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}
