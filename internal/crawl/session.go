package crawl

import (
	"context"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/alwayscodedfresh/lead-cli/internal/model"
)

const lockFile = ".lead-cli.lock"

// ErrProfileLocked means another process holds the browser profile.
var ErrProfileLocked = eris.New("crawl: browser profile is in use")

// OpenFunc launches a browser.
type OpenFunc func(ctx context.Context) (Browser, error)

// SessionRunner hands a live browser to fn and releases it afterwards.
type SessionRunner interface {
	Session(ctx context.Context, fn func(Browser) error) error
}

// Launcher scopes a browser to one call of Session, guarded by a file lock
// on the profile directory.
type Launcher struct {
	profileDir string
	open       OpenFunc
}

func NewLauncher(profileDir string, open OpenFunc) *Launcher {
	return &Launcher{profileDir: profileDir, open: open}
}

// Session locks the profile, launches the browser and runs fn. The browser
// is closed and the lock released however fn returns, including by panic.
func (l *Launcher) Session(ctx context.Context, fn func(Browser) error) error {
	if err := os.MkdirAll(l.profileDir, 0o755); err != nil {
		return &model.CrawlSessionError{Op: "profile dir", Err: err}
	}

	lock := flock.New(filepath.Join(l.profileDir, lockFile))
	locked, err := lock.TryLock()
	if err != nil {
		return &model.CrawlSessionError{Op: "lock", Err: err}
	}
	if !locked {
		return &model.CrawlSessionError{Op: "lock", Err: ErrProfileLocked}
	}
	defer func() {
		if uerr := lock.Unlock(); uerr != nil {
			zap.L().Warn("crawl: release profile lock", zap.Error(uerr))
		}
	}()

	b, err := l.open(ctx)
	if err != nil {
		return &model.CrawlSessionError{Op: "launch", Err: err}
	}
	defer func() {
		if cerr := b.Close(); cerr != nil {
			zap.L().Warn("crawl: close browser", zap.Error(cerr))
		}
	}()

	return fn(b)
}
