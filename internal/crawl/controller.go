package crawl

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/alwayscodedfresh/lead-cli/internal/ingest"
	"github.com/alwayscodedfresh/lead-cli/internal/metrics"
	"github.com/alwayscodedfresh/lead-cli/internal/model"
	"github.com/alwayscodedfresh/lead-cli/internal/resilience"
)

// StaleLimit is the number of consecutive too-old tiles that ends pagination.
// Search results are assumed to be sorted newest first.
const StaleLimit = 5

const (
	DefaultMaxHoursOld  = 24
	DefaultMaxPages     = 3
	DefaultLoginTimeout = 5 * time.Minute
	DefaultPageDelay    = 2 * time.Second
)

// Listing is a search-result tile: the detail URL and its raw date label.
type Listing struct {
	URL      string `json:"url"`
	PostDate string `json:"post_date"`
}

// RunResult summarises a crawl.
type RunResult struct {
	Listings     []Listing `json:"listings"`
	Upserted     int       `json:"upserted"`
	Failed       int       `json:"failed"`
	StoppedStale bool      `json:"stopped_stale"`
}

// ListingSink persists scraped listings.
type ListingSink interface {
	Ingest(ctx context.Context, raw model.RawListing) (ingest.Result, error)
}

// Options tune a Controller.
type Options struct {
	LoginTimeout time.Duration
	// PageDelay is waited after every navigation. Zero disables it.
	PageDelay time.Duration
	Retry     resilience.Policy
}

// Controller runs crawls against one site profile.
type Controller struct {
	sessions SessionRunner
	sink     ListingSink
	profile  SiteProfile
	opts     Options
}

// cursor is the per-run pagination state.
type cursor struct {
	page           int
	maxPages       int
	maxHoursOld    float64
	consecutiveOld int
	stoppedStale   bool
	results        []Listing
}

func NewController(sessions SessionRunner, sink ListingSink, profile SiteProfile, opts Options) *Controller {
	if opts.LoginTimeout <= 0 {
		opts.LoginTimeout = DefaultLoginTimeout
	}
	return &Controller{sessions: sessions, sink: sink, profile: profile, opts: opts}
}

// Run crawls and upserts recent listings, returning the listings found.
func (c *Controller) Run(ctx context.Context, maxHoursOld float64, maxPages int) ([]Listing, error) {
	res, err := c.Crawl(ctx, maxHoursOld, maxPages)
	return res.Listings, err
}

// Crawl waits for a manual login, collects listings younger than
// maxHoursOld from up to maxPages search pages, then scrapes and upserts
// each one. Per-listing failures are counted and skipped; browser-level
// failures abort the run.
func (c *Controller) Crawl(ctx context.Context, maxHoursOld float64, maxPages int) (RunResult, error) {
	if maxHoursOld <= 0 {
		maxHoursOld = DefaultMaxHoursOld
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	log := zap.L().With(zap.String("site", c.profile.Name))

	var res RunResult
	err := c.sessions.Session(ctx, func(b Browser) error {
		if err := c.login(ctx, b); err != nil {
			return err
		}

		cur := &cursor{page: 1, maxPages: maxPages, maxHoursOld: maxHoursOld}
		if err := c.paginate(ctx, b, cur); err != nil {
			return err
		}
		res.Listings = cur.results
		res.StoppedStale = cur.stoppedStale
		log.Info("crawl: listings collected",
			zap.Int("listings", len(cur.results)),
			zap.Int("pages", cur.page),
			zap.Bool("stopped_stale", cur.stoppedStale),
		)

		for _, l := range cur.results {
			if err := ctx.Err(); err != nil {
				return err
			}
			raw, err := c.scrapeDetail(ctx, b, l)
			if err == nil {
				_, err = c.sink.Ingest(ctx, raw)
			}
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if resilience.IsBrowserGone(err) {
					return &model.CrawlSessionError{Op: "scrape", Err: err}
				}
				res.Failed++
				metrics.CrawlListings.WithLabelValues(metrics.OutcomeFailed).Inc()
				log.Warn("crawl: listing failed", zap.String("url", l.URL), zap.Error(err))
				continue
			}
			res.Upserted++
			metrics.CrawlListings.WithLabelValues(metrics.OutcomeUpserted).Inc()
		}
		return nil
	})
	if res.Listings == nil {
		res.Listings = []Listing{}
	}
	if err != nil {
		return res, err
	}

	log.Info("crawl: complete",
		zap.Int("upserted", res.Upserted),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

func (c *Controller) login(ctx context.Context, b Browser) error {
	if err := c.navigate(ctx, b, c.profile.LoginURL); err != nil {
		return err
	}
	zap.L().Info("crawl: waiting for manual login",
		zap.String("url", c.profile.LoginURL),
		zap.Duration("timeout", c.opts.LoginTimeout),
	)

	err := b.WaitUntil(ctx, func() bool {
		current := b.CurrentURL()
		for _, p := range c.profile.LoggedInPatterns {
			if strings.Contains(current, p) {
				return true
			}
		}
		return false
	}, c.opts.LoginTimeout)
	if errors.Is(err, ErrWaitTimeout) {
		return &model.LoginTimeoutError{Timeout: c.opts.LoginTimeout}
	}
	return err
}

func (c *Controller) paginate(ctx context.Context, b Browser, cur *cursor) error {
	for ; cur.page <= cur.maxPages; cur.page++ {
		pageURL := fmt.Sprintf(c.profile.SearchURLTemplate, cur.page)
		if err := c.navigate(ctx, b, pageURL); err != nil {
			return err
		}

		links, err := b.FindElements(c.profile.TileLinkSelector)
		if err != nil {
			return &model.CrawlSessionError{Op: "find tiles", Err: err}
		}
		dates, err := b.FindElements(c.profile.TileDateSelector)
		if err != nil {
			return &model.CrawlSessionError{Op: "find tile dates", Err: err}
		}
		if len(links) == 0 || len(dates) == 0 {
			zap.L().Debug("crawl: no tiles, stopping", zap.Int("page", cur.page))
			return nil
		}

		for i := 0; i < len(links) && i < len(dates); i++ {
			label := strings.TrimSpace(dates[i].Text())
			if AgeHours(label) >= cur.maxHoursOld {
				cur.consecutiveOld++
				metrics.CrawlListings.WithLabelValues(metrics.OutcomeStale).Inc()
				if cur.consecutiveOld >= StaleLimit {
					cur.stoppedStale = true
					zap.L().Warn("crawl: stale listing limit reached",
						zap.Int("page", cur.page),
						zap.Int("consecutive_old", cur.consecutiveOld),
					)
					return nil
				}
				continue
			}
			cur.consecutiveOld = 0

			href := resolveURL(pageURL, links[i].Attribute("href"))
			if href == "" {
				continue
			}
			cur.results = append(cur.results, Listing{URL: href, PostDate: label})
		}
	}
	return nil
}

func (c *Controller) scrapeDetail(ctx context.Context, b Browser, l Listing) (model.RawListing, error) {
	if err := c.navigate(ctx, b, l.URL); err != nil {
		return model.RawListing{}, err
	}

	d := c.profile.Detail
	fresh := false
	raw := model.RawListing{
		URL:         l.URL,
		Title:       textOf(b, d.Title),
		Description: textOf(b, d.Description),
		Location:    textOf(b, d.Location),
		PostedTime:  textOf(b, d.PostedTime),
		JobLink:     c.outboundLink(b, l.URL),
		PostDate:    strPtr(l.PostDate),
		Source:      strPtr(c.profile.Source),
		ListingType: strPtr(c.profile.ListingType),
		Fresh:       &fresh,
	}
	return raw, nil
}

// outboundLink returns the first link in the description. The live DOM is
// asked first, then the serialized page is searched with goquery.
func (c *Controller) outboundLink(b Browser, pageURL string) *string {
	d := c.profile.Detail
	if d.OutboundLink != "" {
		if el, ok := b.FindElement(d.OutboundLink); ok {
			if href := resolveURL(pageURL, el.Attribute("href")); href != "" {
				return &href
			}
		}
	}
	if d.Description == "" {
		return nil
	}

	html, err := b.HTML()
	if err != nil || html == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	var found string
	doc.Find(d.Description).Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
			return true
		}
		found = resolveURL(pageURL, href)
		return found == ""
	})
	if found == "" {
		return nil
	}
	return &found
}

func (c *Controller) navigate(ctx context.Context, b Browser, target string) error {
	p := c.opts.Retry
	p.OnRetry = resilience.RetryLogger("navigate", target)
	err := resilience.Do(ctx, p, func(ctx context.Context) error {
		return b.Navigate(ctx, target)
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &model.CrawlSessionError{Op: "navigate " + target, Err: err}
	}
	return sleepCtx(ctx, c.opts.PageDelay)
}

func textOf(b Browser, selector string) *string {
	if selector == "" {
		return nil
	}
	el, ok := b.FindElement(selector)
	if !ok {
		return nil
	}
	t := strings.TrimSpace(el.Text())
	return &t
}

func resolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref.String()
	}
	return b.ResolveReference(ref).String()
}

func strPtr(s string) *string { return &s }

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
