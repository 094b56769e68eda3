package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// TransientError marks an error as safe to retry.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// Browser and network failures that usually clear on a second attempt.
var transientPatterns = []string{
	"connection reset by peer",
	"broken pipe",
	"i/o timeout",
	"tls handshake timeout",
	"temporary failure in name resolution",
	"net::err_connection_reset",
	"net::err_connection_closed",
	"net::err_connection_timed_out",
	"net::err_network_changed",
	"net::err_internet_disconnected",
	"net::err_timed_out",
	"net::err_http2_protocol_error",
	"navigation timeout",
	"ms exceeded",
}

// Failures that mean the browser itself is gone.
var fatalPatterns = []string{
	"target closed",
	"target page, context or browser has been closed",
	"browser has been closed",
	"browser has disconnected",
}

// IsTransient reports whether err is worth retrying: an explicit
// TransientError, a network timeout, a reset or refused connection, or a
// known transient browser navigation message.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	if IsBrowserGone(err) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	return containsAny(err, transientPatterns)
}

// IsBrowserGone reports whether err means the browser, context or page was
// closed underneath the caller.
func IsBrowserGone(err error) bool {
	if err == nil {
		return false
	}
	return containsAny(err, fatalPatterns)
}

func containsAny(err error, patterns []string) bool {
	msg := strings.ToLower(err.Error())
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
