package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/listing-pipeline/internal/model"
	"github.com/sells-group/listing-pipeline/internal/store"
)

var funnelRegion string

var funnelCmd = &cobra.Command{
	Use:   "funnel",
	Short: "Print the status funnel per region",
	Long: `Reports how many businesses sit at each pipeline stage, per region:

  pending -> researching -> researched -> enriched -> verified

plus the rejected escape. A healthy region drains left to right; a bulge at
researching or researched usually means workers are down or the AI queue is
backed up.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		pool, err := store.NewPool(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer pool.Close()
		st := store.NewPostgresWithPool(pool)

		var regions []model.Region
		if funnelRegion != "" {
			r, err := st.GetRegion(ctx, funnelRegion)
			if err != nil {
				return eris.Wrapf(err, "funnel: region %s", funnelRegion)
			}
			regions = []model.Region{*r}
		} else {
			regions, err = st.ListActiveRegions(ctx)
			if err != nil {
				return eris.Wrap(err, "funnel: list regions")
			}
		}

		if len(regions) == 0 {
			fmt.Println("No active regions. Seed one with: import --seed regions.yaml")
			return nil
		}

		for _, region := range regions {
			counts, err := st.CountByStatus(ctx, region.Slug)
			if err != nil {
				return eris.Wrapf(err, "funnel: counts for %s", region.Slug)
			}

			total := 0
			for _, s := range model.AllStatuses {
				total += counts[s]
			}

			fmt.Printf("\n%s (%s): %d businesses\n", region.Name, region.Slug, total)
			for _, s := range model.AllStatuses {
				fmt.Printf("  %-12s %6d%s\n", s, counts[s], funnelBar(counts[s], total))
			}
		}

		return nil
	},
}

func funnelBar(n, total int) string {
	if total == 0 || n == 0 {
		return ""
	}
	width := n * 40 / total
	if width == 0 {
		width = 1
	}
	bar := make([]byte, width)
	for i := range bar {
		bar[i] = '#'
	}
	return "  " + string(bar)
}

func init() {
	funnelCmd.Flags().StringVar(&funnelRegion, "region", "", "limit to one region slug")
	rootCmd.AddCommand(funnelCmd)
}
