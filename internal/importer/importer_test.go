package importer

import (
	"context"
	"math"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/listing-pipeline/internal/model"
	"github.com/sells-group/listing-pipeline/internal/store"
	"github.com/sells-group/listing-pipeline/pkg/overpass"
)

func TestBoundingBox_Offsets(t *testing.T) {
	// 10km around Utrecht (52.09N): the latitude offset is radius/111 and
	// the longitude offset widens by 1/cos(lat).
	box := BoundingBox(52.09, 5.12, 10)

	latOffset := 10.0 / 111.0
	lonOffset := 10.0 / (111.0 * math.Cos(52.09*math.Pi/180))

	assert.InDelta(t, 52.09-latOffset, box.South, 1e-9)
	assert.InDelta(t, 52.09+latOffset, box.North, 1e-9)
	assert.InDelta(t, 5.12-lonOffset, box.West, 1e-9)
	assert.InDelta(t, 5.12+lonOffset, box.East, 1e-9)
	assert.Greater(t, lonOffset, latOffset)
}

func TestBoundingBox_EquatorIsSquare(t *testing.T) {
	box := BoundingBox(0, 0, 111)
	assert.InDelta(t, box.North-box.South, box.East-box.West, 1e-9)
}

// fakeCatalog serves a fixed element set.
type fakeCatalog struct {
	elements []overpass.Element
	err      error
	lastBox  overpass.BoundingBox
}

func (f *fakeCatalog) QueryPOIs(ctx context.Context, box overpass.BoundingBox, filters []overpass.TagFilter) ([]overpass.Element, error) {
	f.lastBox = box
	return f.elements, f.err
}

// createRecorder tracks business creation keyed by (source, source_id).
type createRecorder struct {
	store.Store

	created   map[string]bool
	failNames map[string]bool
}

func newCreateRecorder() *createRecorder {
	return &createRecorder{created: make(map[string]bool), failNames: make(map[string]bool)}
}

func (r *createRecorder) CreateBusiness(ctx context.Context, b *model.Business) (bool, error) {
	if r.failNames[b.Name] {
		return false, eris.New("constraint violation")
	}
	key := b.Source + ":" + b.SourceID
	if r.created[key] {
		return false, nil
	}
	r.created[key] = true
	return true, nil
}

func testCity() model.City {
	return model.City{
		Slug:       "utrecht",
		Name:       "Utrecht",
		RegionSlug: "nl-west",
		Latitude:   52.09,
		Longitude:  5.12,
		RadiusKM:   10,
	}
}

func catalogElements() []overpass.Element {
	return []overpass.Element{
		{Type: "node", ID: 1, Lat: 52.1, Lon: 5.1, Tags: map[string]string{
			"name": "Bakkerij De Molen", "amenity": "cafe", "website": "https://demolen.nl",
			"addr:street": "Oudegracht", "addr:housenumber": "12",
		}},
		{Type: "way", ID: 2, Center: &overpass.LatLon{Lat: 52.11, Lon: 5.13}, Tags: map[string]string{
			"name": "Museum Catharijne", "tourism": "museum",
		}},
		{Type: "node", ID: 3, Lat: 52.12, Lon: 5.14, Tags: map[string]string{
			"amenity": "restaurant", // no name
		}},
	}
}

func TestImportCity_CountsAndProvenance(t *testing.T) {
	rec := newCreateRecorder()
	cat := &fakeCatalog{elements: catalogElements()}
	imp := New(rec, cat)

	counts, err := imp.ImportCity(context.Background(), testCity(), "food")
	require.NoError(t, err)

	assert.Equal(t, 2, counts.Created)
	assert.Equal(t, 0, counts.Skipped)
	assert.Equal(t, 1, counts.Failed) // nameless element
	assert.True(t, rec.created["geo-catalog:node/1"])
	assert.True(t, rec.created["geo-catalog:way/2"])
}

func TestImportCity_SecondRunCreatesNothing(t *testing.T) {
	rec := newCreateRecorder()
	cat := &fakeCatalog{elements: catalogElements()}
	imp := New(rec, cat)

	_, err := imp.ImportCity(context.Background(), testCity(), "food")
	require.NoError(t, err)

	counts, err := imp.ImportCity(context.Background(), testCity(), "food")
	require.NoError(t, err)
	assert.Equal(t, 0, counts.Created)
	assert.Equal(t, 2, counts.Skipped)
}

func TestImportCity_PerRecordErrorsDoNotAbort(t *testing.T) {
	rec := newCreateRecorder()
	rec.failNames["Bakkerij De Molen"] = true
	cat := &fakeCatalog{elements: catalogElements()}
	imp := New(rec, cat)

	counts, err := imp.ImportCity(context.Background(), testCity(), "food")
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Created)
	assert.Equal(t, 2, counts.Failed)
}

func TestImportCity_OutOfBoundsCenterSkipped(t *testing.T) {
	// A large way can match the query while its center lands outside the
	// requested box; the importer drops it rather than mislocating it.
	elements := append(catalogElements(), overpass.Element{
		Type: "way", ID: 9, Center: &overpass.LatLon{Lat: 52.9, Lon: 5.12},
		Tags: map[string]string{"name": "Polder Pannenkoeken", "amenity": "restaurant"},
	})
	rec := newCreateRecorder()
	imp := New(rec, &fakeCatalog{elements: elements})

	counts, err := imp.ImportCity(context.Background(), testCity(), "food")
	require.NoError(t, err)
	assert.Equal(t, 2, counts.Created)
	assert.Equal(t, 1, counts.Skipped)
	assert.False(t, rec.created["geo-catalog:way/9"])
}

func TestInBounds(t *testing.T) {
	bounds := CityBounds(52.09, 5.12, 10)
	assert.True(t, inBounds(bounds, 52.09, 5.12))
	assert.True(t, inBounds(bounds, 52.1, 5.2))
	assert.False(t, inBounds(bounds, 52.9, 5.12))
	assert.False(t, inBounds(bounds, 52.09, 6.0))
}

func TestImportCity_UnknownCategory(t *testing.T) {
	imp := New(newCreateRecorder(), &fakeCatalog{})
	_, err := imp.ImportCity(context.Background(), testCity(), "submarines")
	require.Error(t, err)
}

func TestImportCity_CatalogErrorPropagates(t *testing.T) {
	imp := New(newCreateRecorder(), &fakeCatalog{err: eris.New("rate limited")})
	_, err := imp.ImportCity(context.Background(), testCity(), "food")
	require.Error(t, err)
}

func TestMapElement_Fields(t *testing.T) {
	el := catalogElements()[0]
	b, err := mapElement(el, testCity(), "food")
	require.NoError(t, err)

	assert.Equal(t, "Bakkerij De Molen", b.Name)
	assert.Equal(t, "Oudegracht 12", b.Street)
	assert.Equal(t, "Utrecht", b.City)
	assert.Equal(t, model.StatusPending, b.Status)
	assert.Equal(t, "node/1", b.SourceID)
	assert.Equal(t, 52.1, b.Latitude)

	tags, ok := b.RawPayload["tags"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "cafe", tags["amenity"])
}

func TestMapElement_WayUsesCenter(t *testing.T) {
	b, err := mapElement(catalogElements()[1], testCity(), "culture")
	require.NoError(t, err)
	assert.Equal(t, 52.11, b.Latitude)
	assert.Equal(t, 5.13, b.Longitude)
}
