// Package cli defines the crawler's commands, one per pipeline stage.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"catalog/crawler/internal/config"
	"catalog/crawler/internal/container"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// options carries persistent flag values and the loaded config to subcommands.
type options struct {
	configPath string
	years      []int
	logLevel   string

	cfg *config.Config
}

func newRootCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawler",
		Short: "Crawls a date-indexed product catalog",
		Long: `crawler maintains a tree of months and days discovered on a catalog site
and collects the product listings of every day into the configured stores.

Stages are run separately: seed builds the month list from a saved root
index page, fill discovers new days, daily and crawl collect products, load
bulk-inserts the month tree.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			if cmd.Flags().Changed("year") {
				cfg.Crawl.Years = opts.years
			}
			if opts.logLevel != "" {
				cfg.Log.Level = opts.logLevel
			}
			if err := setupLogging(cfg.Log); err != nil {
				return err
			}

			opts.cfg = cfg
			log.Debug("Configuration loaded successfully")
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default is ./config.yaml)")
	flags.IntSliceVar(&opts.years, "year", nil, "only visit months of these years (repeatable)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (overrides log.level)")

	cmd.AddCommand(
		newSeedCmd(opts),
		newFillCmd(opts),
		newDailyCmd(opts),
		newCrawlCmd(opts),
		newLoadCmd(opts),
	)

	return cmd
}

// Execute runs the command line until completion or SIGINT/SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return newRootCmd(&options{}).ExecuteContext(ctx)
}

// withContainer wires the dependencies a stage needs, runs fn and tears them down.
func (o *options) withContainer(ctx context.Context, needs container.Needs, fn func(context.Context, *container.Container) error) error {
	app, err := container.New(ctx, o.cfg, needs)
	if err != nil {
		return fmt.Errorf("failed to initialize container: %w", err)
	}
	defer app.Close(context.WithoutCancel(ctx))

	return fn(ctx, app)
}

func setupLogging(cfg config.LogConfig) error {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	log.SetLevel(level)

	switch cfg.Format {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format %q", cfg.Format)
	}

	return nil
}
