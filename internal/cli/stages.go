package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"catalog/crawler/internal/container"
	"catalog/crawler/internal/service"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newSeedCmd(opts *options) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Builds the month list from a saved root index page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file == "" {
				file = opts.cfg.Catalog.SeedHTML
			}

			return opts.withContainer(cmd.Context(), container.Needs{}, func(ctx context.Context, app *container.Container) error {
				document, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("failed to read root index: %w", err)
				}

				_, err = app.Service.Seed(ctx, string(document))
				return err
			})
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "saved root index HTML (default catalog.seed_html)")
	return cmd
}

func newFillCmd(opts *options) *cobra.Command {
	return newStageCmd(opts, &cobra.Command{
		Use:   "fill",
		Short: "Discovers new days of every month and checkpoints the catalog",
	}, service.CrawlOptions{Discover: true, Collect: service.NoDays})
}

func newDailyCmd(opts *options) *cobra.Command {
	return newStageCmd(opts, &cobra.Command{
		Use:   "daily",
		Short: "Collects the products of every known day",
	}, service.CrawlOptions{Collect: service.AllDays})
}

func newCrawlCmd(opts *options) *cobra.Command {
	return newStageCmd(opts, &cobra.Command{
		Use:   "crawl",
		Short: "Discovers new days and collects their products",
	}, service.CrawlOptions{Discover: true, Collect: service.NewDays})
}

func newStageCmd(opts *options, cmd *cobra.Command, crawl service.CrawlOptions) *cobra.Command {
	cmd.Args = cobra.NoArgs
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		crawl.Years = opts.cfg.Crawl.Years
		needs := container.Needs{Source: true, Store: crawl.Collect != service.NoDays}

		return opts.withContainer(cmd.Context(), needs, func(ctx context.Context, app *container.Container) error {
			stats, err := app.Service.Crawl(ctx, crawl)
			logStats(cmd.Name(), stats)
			return err
		})
	}
	return cmd
}

func newLoadCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Bulk-inserts every month of the catalog into the stores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withContainer(cmd.Context(), container.Needs{Store: true}, func(ctx context.Context, app *container.Container) error {
				_, err := app.Service.LoadCatalog(ctx)
				return err
			})
		},
	}
}

func logStats(stage string, stats *service.CrawlStats) {
	if stats == nil {
		return
	}
	log.WithFields(log.Fields{
		"stage":       stage,
		"months":      stats.Months,
		"days_added":  stats.DaysAdded,
		"checkpoints": stats.Checkpoints,
		"products":    stats.Products,
	}).Infof("🏁 %d pages fetched, %d days stored in %s",
		stats.Requests, stats.DaysEmitted, stats.Elapsed.Round(time.Millisecond))
}
