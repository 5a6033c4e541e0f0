package main

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/listing-pipeline/internal/model"
	"github.com/sells-group/listing-pipeline/internal/store"
)

var (
	importRegion   string
	importCity     string
	importCategory string
	importSeedPath string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import businesses for a city, or seed regions from YAML",
	Long: `With --region/--city/--category, runs a one-shot catalog import for a
single city. With --seed, loads regions and cities from a YAML file first.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		seedPath := importSeedPath
		if seedPath == "" {
			seedPath = cfg.Scheduler.RegionSeedPath
		}
		if seedPath != "" {
			if err := seedRegions(ctx, env.Store, seedPath); err != nil {
				return err
			}
		}

		if importRegion == "" || importCity == "" {
			if seedPath == "" {
				return eris.New("import: --region and --city are required without --seed")
			}
			return nil
		}

		city, err := env.Store.GetCity(ctx, importRegion, importCity)
		if err != nil {
			return eris.Wrapf(err, "import: city %s/%s", importRegion, importCity)
		}

		counts, err := env.Importer.ImportCity(ctx, *city, importCategory)
		if err != nil {
			return err
		}

		zap.L().Info("import complete",
			zap.String("region", importRegion),
			zap.String("city", importCity),
			zap.String("category", importCategory),
			zap.Int("created", counts.Created),
			zap.Int("skipped", counts.Skipped),
			zap.Int("failed", counts.Failed),
		)
		return nil
	},
}

// seedCity mirrors model.City for YAML seed files.
type seedCity struct {
	Slug      string  `yaml:"slug"`
	Name      string  `yaml:"name"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	RadiusKM  float64 `yaml:"radius_km"`
}

type seedRegion struct {
	model.Region `yaml:",inline"`
	Cities       []seedCity `yaml:"cities"`
}

type seedFile struct {
	Regions []seedRegion `yaml:"regions"`
}

func seedRegions(ctx context.Context, st store.Store, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "import: read seed file %s", path)
	}

	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return eris.Wrapf(err, "import: parse seed file %s", path)
	}

	for _, r := range seed.Regions {
		region := r.Region
		if err := st.UpsertRegion(ctx, &region); err != nil {
			return eris.Wrapf(err, "import: seed region %s", region.Slug)
		}
		for _, c := range r.Cities {
			city := model.City{
				Slug:       c.Slug,
				Name:       c.Name,
				RegionSlug: region.Slug,
				Latitude:   c.Latitude,
				Longitude:  c.Longitude,
				RadiusKM:   c.RadiusKM,
			}
			if err := st.UpsertCity(ctx, &city); err != nil {
				return eris.Wrapf(err, "import: seed city %s/%s", region.Slug, city.Slug)
			}
		}
		zap.L().Info("region seeded",
			zap.String("region", region.Slug),
			zap.Int("cities", len(r.Cities)),
		)
	}
	return nil
}

func init() {
	f := importCmd.Flags()
	f.StringVar(&importRegion, "region", "", "region slug")
	f.StringVar(&importCity, "city", "", "city slug")
	f.StringVar(&importCategory, "category", "food", "import category")
	f.StringVar(&importSeedPath, "seed", "", "YAML file of regions and cities to seed")
	rootCmd.AddCommand(importCmd)
}
