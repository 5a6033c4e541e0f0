package importer

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/listing-pipeline/internal/model"
	"github.com/sells-group/listing-pipeline/internal/store"
	"github.com/sells-group/listing-pipeline/pkg/overpass"
)

// sourceName tags every imported business with its catalog provenance.
const sourceName = "geo-catalog"

// categoryTags maps a listing category onto the catalog's tag vocabulary.
var categoryTags = map[string][]overpass.TagFilter{
	"food": {
		{Key: "amenity", Values: []string{"restaurant", "cafe", "bar", "fast_food"}},
	},
	"crafts": {
		{Key: "craft"},
		{Key: "shop", Values: []string{"craft", "art", "pottery"}},
	},
	"culture": {
		{Key: "tourism", Values: []string{"museum", "gallery", "attraction"}},
		{Key: "amenity", Values: []string{"theatre", "arts_centre"}},
	},
	"lodging": {
		{Key: "tourism", Values: []string{"hotel", "guest_house", "hostel"}},
	},
	"shopping": {
		{Key: "shop"},
	},
}

// Categories lists the importable category slugs.
func Categories() []string {
	out := make([]string, 0, len(categoryTags))
	for k := range categoryTags {
		out = append(out, k)
	}
	return out
}

// Importer pulls candidate businesses from the geo-catalog into the pipeline.
type Importer struct {
	store   store.Store
	catalog overpass.Client
}

func New(s store.Store, catalog overpass.Client) *Importer {
	return &Importer{store: s, catalog: catalog}
}

// ImportCity queries the catalog for one city/category pair and creates
// pending businesses. Duplicates by external source id are skipped, and
// per-record failures are counted without aborting the batch. No jobs are
// enqueued here; the scheduler decides when to pursue research.
func (imp *Importer) ImportCity(ctx context.Context, city model.City, category string) (store.ImportCounts, error) {
	var counts store.ImportCounts

	filters, ok := categoryTags[category]
	if !ok {
		return counts, eris.Errorf("importer: unknown category %q", category)
	}

	radius := city.RadiusKM
	if radius <= 0 {
		radius = 10
	}
	bounds := CityBounds(city.Latitude, city.Longitude, radius)

	elements, err := imp.catalog.QueryPOIs(ctx, queryBox(bounds), filters)
	if err != nil {
		return counts, eris.Wrapf(err, "importer: query %s/%s", city.RegionSlug, city.Slug)
	}

	for _, el := range elements {
		b, err := mapElement(el, city, category)
		if err != nil {
			counts.Failed++
			zap.L().Debug("importer: skipping element",
				zap.String("element", elementRef(el)), zap.Error(err))
			continue
		}
		if !inBounds(bounds, b.Latitude, b.Longitude) {
			counts.Skipped++
			zap.L().Debug("importer: element outside city bounds",
				zap.String("element", elementRef(el)))
			continue
		}
		created, err := imp.store.CreateBusiness(ctx, b)
		if err != nil {
			counts.Failed++
			zap.L().Warn("importer: create failed",
				zap.String("element", elementRef(el)), zap.Error(err))
			continue
		}
		if created {
			counts.Created++
		} else {
			counts.Skipped++
		}
	}

	zap.L().Info("city import finished",
		zap.String("region", city.RegionSlug),
		zap.String("city", city.Slug),
		zap.String("category", category),
		zap.Int("created", counts.Created),
		zap.Int("skipped", counts.Skipped),
		zap.Int("failed", counts.Failed))
	return counts, nil
}

// mapElement converts one catalog element to a pending business. Elements
// without a name are unusable as listings.
func mapElement(el overpass.Element, city model.City, category string) (*model.Business, error) {
	name := el.Tags["name"]
	if name == "" {
		return nil, eris.New("element has no name tag")
	}
	lat, lon := el.Coordinates()

	payload := map[string]any{
		"tags": toAnyMap(el.Tags),
	}

	return &model.Business{
		Name:       name,
		Street:     streetAddress(el.Tags),
		City:       city.Name,
		RegionSlug: city.RegionSlug,
		Latitude:   lat,
		Longitude:  lon,
		Phone:      el.Tags["phone"],
		Website:    el.Tags["website"],
		Category:   category,
		Source:     sourceName,
		SourceID:   elementRef(el),
		Status:     model.StatusPending,
		RawPayload: payload,
	}, nil
}

func elementRef(el overpass.Element) string {
	return el.Type + "/" + strconv.FormatInt(el.ID, 10)
}

func streetAddress(tags map[string]string) string {
	street := tags["addr:street"]
	if street == "" {
		return ""
	}
	if num := tags["addr:housenumber"]; num != "" {
		return fmt.Sprintf("%s %s", street, num)
	}
	return street
}

func toAnyMap(in map[string]string) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
