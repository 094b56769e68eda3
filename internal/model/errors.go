package model

import (
	"fmt"
	"time"
)

// ValidationError reports a lead that cannot be written, e.g. a missing or
// duplicate URL.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s %s", e.Field, e.Reason)
}

// ClassificationParseError means the AI response held no usable JSON object.
type ClassificationParseError struct {
	Raw string
	Err error
}

func (e *ClassificationParseError) Error() string {
	if e.Err == nil {
		return "classification: JSON parsing error"
	}
	return fmt.Sprintf("classification: JSON parsing error: %v", e.Err)
}

func (e *ClassificationParseError) Unwrap() error { return e.Err }

// ClassificationServiceError covers network, timeout and remote failures of
// the AI boundary.
type ClassificationServiceError struct {
	Err error
}

func (e *ClassificationServiceError) Error() string {
	return fmt.Sprintf("classification: service: %v", e.Err)
}

func (e *ClassificationServiceError) Unwrap() error { return e.Err }

// CrawlSessionError is a browser-level failure that aborts a crawl run.
type CrawlSessionError struct {
	Op  string
	Err error
}

func (e *CrawlSessionError) Error() string {
	return fmt.Sprintf("crawl session: %s: %v", e.Op, e.Err)
}

func (e *CrawlSessionError) Unwrap() error { return e.Err }

// LoginTimeoutError means the interactive login was not completed in time.
type LoginTimeoutError struct {
	Timeout time.Duration
}

func (e *LoginTimeoutError) Error() string {
	return fmt.Sprintf("crawl session: login not completed within %s", e.Timeout)
}
