// Package crawl drives an interactive browser session over a job search
// site: wait for a manual login, page through recent listings until they go
// stale, scrape each listing and upsert it as a lead.
package crawl

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

// ErrWaitTimeout is returned by Browser.WaitUntil when the predicate never held.
var ErrWaitTimeout = eris.New("crawl: wait timed out")

// Browser is the page automation surface the controller needs.
type Browser interface {
	Navigate(ctx context.Context, url string) error
	CurrentURL() string
	FindElements(selector string) ([]Element, error)
	// FindElement returns the first match, or false when nothing matches.
	FindElement(selector string) (Element, bool)
	WaitUntil(ctx context.Context, pred func() bool, timeout time.Duration) error
	// HTML returns the serialized DOM of the current page.
	HTML() (string, error)
	Close() error
}

// Element is a located DOM node. Missing text or attributes read as "".
type Element interface {
	Text() string
	Attribute(name string) string
}

// PollUntil evaluates pred every interval until it returns true, timeout
// elapses (ErrWaitTimeout) or ctx ends.
func PollUntil(ctx context.Context, pred func() bool, timeout, interval time.Duration) error {
	if pred() {
		return nil
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return ErrWaitTimeout
		case <-tick.C:
			if pred() {
				return nil
			}
		}
	}
}
