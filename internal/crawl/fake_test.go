package crawl

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/alwayscodedfresh/lead-cli/internal/ingest"
	"github.com/alwayscodedfresh/lead-cli/internal/model"
)

type fakeElement struct {
	text  string
	attrs map[string]string
}

func (e fakeElement) Text() string                 { return e.text }
func (e fakeElement) Attribute(name string) string { return e.attrs[name] }

type fakePage struct {
	elements map[string][]Element
	html     string
}

// fakeBrowser serves canned pages keyed by URL.
type fakeBrowser struct {
	pages       map[string]fakePage
	navErrs     map[string]error
	redirects   map[string]string
	current     string
	visited     []string
	closed      bool
	findErr     error
	waitTimeout time.Duration
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{
		pages:     map[string]fakePage{},
		navErrs:   map[string]error{},
		redirects: map[string]string{},
	}
}

func (b *fakeBrowser) Navigate(_ context.Context, url string) error {
	b.visited = append(b.visited, url)
	if err := b.navErrs[url]; err != nil {
		return err
	}
	b.current = url
	if to, ok := b.redirects[url]; ok {
		b.current = to
	}
	return nil
}

func (b *fakeBrowser) CurrentURL() string { return b.current }

func (b *fakeBrowser) FindElements(selector string) ([]Element, error) {
	if b.findErr != nil {
		return nil, b.findErr
	}
	return b.pages[b.current].elements[selector], nil
}

func (b *fakeBrowser) FindElement(selector string) (Element, bool) {
	els := b.pages[b.current].elements[selector]
	if len(els) == 0 {
		return nil, false
	}
	return els[0], true
}

func (b *fakeBrowser) WaitUntil(ctx context.Context, pred func() bool, timeout time.Duration) error {
	b.waitTimeout = timeout
	return PollUntil(ctx, pred, time.Millisecond, time.Millisecond)
}

func (b *fakeBrowser) HTML() (string, error) { return b.pages[b.current].html, nil }

func (b *fakeBrowser) Close() error {
	b.closed = true
	return nil
}

func (b *fakeBrowser) visitedURL(url string) bool {
	for _, v := range b.visited {
		if v == url {
			return true
		}
	}
	return false
}

// fakeSessions hands out one browser and marks it closed afterwards.
type fakeSessions struct {
	browser *fakeBrowser
}

func (s *fakeSessions) Session(_ context.Context, fn func(Browser) error) error {
	defer s.browser.Close() //nolint:errcheck
	return fn(s.browser)
}

type recordingSink struct {
	mu   sync.Mutex
	raws []model.RawListing
	errs map[string]error
}

func (s *recordingSink) Ingest(_ context.Context, raw model.RawListing) (ingest.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs[raw.URL]; err != nil {
		return ingest.Result{}, err
	}
	s.raws = append(s.raws, raw)
	return ingest.Result{Lead: model.NewLead(raw.URL), Created: true}, nil
}

func tiles(items ...[2]string) map[string][]Element {
	p := DefaultSiteProfile()
	var links, dates []Element
	for _, it := range items {
		links = append(links, fakeElement{attrs: map[string]string{"href": it[0]}})
		dates = append(dates, fakeElement{text: it[1]})
	}
	return map[string][]Element{
		p.TileLinkSelector: links,
		p.TileDateSelector: dates,
	}
}

var errBoom = errors.New("boom")
