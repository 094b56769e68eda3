package crawl

import (
	"context"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/rotisserie/eris"
)

// PlaywrightOptions configure the Chromium session.
type PlaywrightOptions struct {
	ProfileDir string
	Headless   bool
	// NavTimeout bounds a single page load.
	NavTimeout time.Duration
}

// NewPlaywrightLauncher returns a Launcher that opens a persistent Chromium
// context in opts.ProfileDir, so a manual login survives between runs.
func NewPlaywrightLauncher(opts PlaywrightOptions) *Launcher {
	if opts.NavTimeout <= 0 {
		opts.NavTimeout = 30 * time.Second
	}
	return NewLauncher(opts.ProfileDir, func(_ context.Context) (Browser, error) {
		b, err := launchPlaywright(opts)
		if err != nil {
			return nil, err
		}
		return b, nil
	})
}

type playwrightBrowser struct {
	pw         *playwright.Playwright
	bc         playwright.BrowserContext
	page       playwright.Page
	navTimeout time.Duration
}

func launchPlaywright(opts PlaywrightOptions) (*playwrightBrowser, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, eris.Wrap(err, "crawl: start playwright")
	}

	bc, err := pw.Chromium.LaunchPersistentContext(opts.ProfileDir, playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(opts.Headless),
		Viewport: &playwright.Size{Width: 1280, Height: 900},
		Args:     []string{"--disable-gpu"},
	})
	if err != nil {
		_ = pw.Stop()
		return nil, eris.Wrap(err, "crawl: launch chromium")
	}

	var page playwright.Page
	if pages := bc.Pages(); len(pages) > 0 {
		page = pages[0]
	} else if page, err = bc.NewPage(); err != nil {
		_ = bc.Close()
		_ = pw.Stop()
		return nil, eris.Wrap(err, "crawl: open page")
	}

	return &playwrightBrowser{pw: pw, bc: bc, page: page, navTimeout: opts.NavTimeout}, nil
}

func (p *playwrightBrowser) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(p.navTimeout.Milliseconds())),
	})
	if err != nil {
		return eris.Wrapf(err, "crawl: goto %s", url)
	}
	return nil
}

func (p *playwrightBrowser) CurrentURL() string { return p.page.URL() }

func (p *playwrightBrowser) FindElements(selector string) ([]Element, error) {
	handles, err := p.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, eris.Wrapf(err, "crawl: query %s", selector)
	}
	out := make([]Element, 0, len(handles))
	for _, h := range handles {
		out = append(out, playwrightElement{h: h})
	}
	return out, nil
}

func (p *playwrightBrowser) FindElement(selector string) (Element, bool) {
	h, err := p.page.QuerySelector(selector)
	if err != nil || h == nil {
		return nil, false
	}
	return playwrightElement{h: h}, true
}

func (p *playwrightBrowser) WaitUntil(ctx context.Context, pred func() bool, timeout time.Duration) error {
	return PollUntil(ctx, pred, timeout, time.Second)
}

func (p *playwrightBrowser) HTML() (string, error) {
	html, err := p.page.Content()
	if err != nil {
		return "", eris.Wrap(err, "crawl: page content")
	}
	return html, nil
}

func (p *playwrightBrowser) Close() error {
	var errs []error
	if err := p.bc.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := p.pw.Stop(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return eris.Wrapf(errs[0], "crawl: close browser (%d errors)", len(errs))
	}
	return nil
}

type playwrightElement struct {
	h playwright.ElementHandle
}

func (e playwrightElement) Text() string {
	t, err := e.h.InnerText()
	if err != nil {
		return ""
	}
	return t
}

func (e playwrightElement) Attribute(name string) string {
	v, err := e.h.GetAttribute(name)
	if err != nil {
		return ""
	}
	return v
}
