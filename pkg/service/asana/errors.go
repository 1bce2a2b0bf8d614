package asana

import (
	"errors"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Error tags attached to API errors for classification
var (
	TagRateLimit = goerr.NewTag("rate_limit")
	TagNotFound  = goerr.NewTag("not_found")
)

// IsRateLimit reports whether the error is a rate-limit response. The tag is
// authoritative; the textual markers cover errors from call sites where the
// status code is no longer available.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	if goerr.HasTag(err, TagRateLimit) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(strings.ToLower(msg), "rate limit")
}

// IsNotFound reports whether the error is a not-found response
func IsNotFound(err error) bool {
	return goerr.HasTag(err, TagNotFound)
}

// CursorExpiredError signals that a supplied event cursor has expired.
// It is a control signal, not a failure: the server supplies a fresh cursor
// for the next attempt and the current attempt must fall back to full sync.
type CursorExpiredError struct {
	FreshCursor string
}

// Error implements the error interface
func (e *CursorExpiredError) Error() string {
	return fmt.Sprintf("event cursor expired (fresh cursor issued, len=%d)", len(e.FreshCursor))
}

// AsCursorExpired extracts a CursorExpiredError from the error chain
func AsCursorExpired(err error) (*CursorExpiredError, bool) {
	var ce *CursorExpiredError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
