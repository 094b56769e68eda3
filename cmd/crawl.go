package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alwayscodedfresh/lead-cli/internal/config"
	"github.com/alwayscodedfresh/lead-cli/internal/crawl"
	"github.com/alwayscodedfresh/lead-cli/internal/ingest"
	"github.com/alwayscodedfresh/lead-cli/internal/resilience"
)

var (
	crawlMaxHoursOld float64
	crawlMaxPages    int
	crawlHeadless    bool
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Log in, page through search results and upsert recent listings",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(config.ModeCrawl); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		ctrl, err := newCrawlController(cfg.Crawl, crawlHeadless || cfg.Crawl.Headless, ingest.New(st))
		if err != nil {
			return err
		}

		maxHours := cfg.Crawl.MaxHoursOld
		if cmd.Flags().Changed("max-hours-old") {
			maxHours = crawlMaxHoursOld
		}
		maxPages := cfg.Crawl.MaxPages
		if cmd.Flags().Changed("max-pages") {
			maxPages = crawlMaxPages
		}

		res, err := ctrl.Crawl(ctx, maxHours, maxPages)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

// newCrawlController builds a Playwright-backed controller from cc.
func newCrawlController(cc config.CrawlConfig, headless bool, sink crawl.ListingSink) (*crawl.Controller, error) {
	profile := crawl.DefaultSiteProfile()
	if cc.SiteProfile != "" {
		p, err := crawl.LoadSiteProfile(cc.SiteProfile)
		if err != nil {
			return nil, err
		}
		profile = p
	}

	launcher := crawl.NewPlaywrightLauncher(crawl.PlaywrightOptions{
		ProfileDir: cc.ProfileDir,
		Headless:   headless,
		NavTimeout: time.Duration(cc.NavTimeoutSecs) * time.Second,
	})

	zap.L().Info("crawl configured",
		zap.String("site", profile.Name),
		zap.String("profile_dir", cc.ProfileDir),
		zap.Bool("headless", headless),
	)
	return crawl.NewController(launcher, sink, profile, crawlOptions(cc)), nil
}

func crawlOptions(cc config.CrawlConfig) crawl.Options {
	return crawl.Options{
		LoginTimeout: time.Duration(cc.LoginTimeoutSecs) * time.Second,
		PageDelay:    time.Duration(cc.PageDelayMs) * time.Millisecond,
		Retry:        resilience.FromConfig(cc.RetryAttempts, cc.RetryBackoffMs, 0),
	}
}

func init() {
	crawlCmd.Flags().Float64Var(&crawlMaxHoursOld, "max-hours-old", 24, "skip listings at least this many hours old")
	crawlCmd.Flags().IntVar(&crawlMaxPages, "max-pages", 3, "maximum search result pages to visit")
	crawlCmd.Flags().BoolVar(&crawlHeadless, "headless", false, "run the browser without a window")
	rootCmd.AddCommand(crawlCmd)
}
