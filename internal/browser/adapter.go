package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Adapter is the set of browser operations the wizard needs. Every call
// blocks until its condition holds or the timeout elapses, in which case a
// *TimeoutError is returned.
//
// Selectors starting with "/", "./" or "(" are XPath, everything else is CSS.
type Adapter interface {
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	// WaitVisibleAny returns the index of the first selector that becomes visible
	WaitVisibleAny(ctx context.Context, timeout time.Duration, selectors ...string) (int, error)
	// Click tries a real pointer click and falls back to a programmatic one
	Click(ctx context.Context, selector string, timeout time.Duration) error
	// ForceClick goes straight to the programmatic click
	ForceClick(ctx context.Context, selector string, timeout time.Duration) error
	// Type clears an input and types text into it
	Type(ctx context.Context, selector, text string, timeout time.Duration) error
	// SetValue assigns the value property directly and fires a change event
	SetValue(ctx context.Context, selector, value string, timeout time.Duration) error
	// SelectValue picks the <option> with the given value and fires change
	SelectValue(ctx context.Context, selector, value string, timeout time.Duration) error
	ReadOptions(ctx context.Context, selector string, timeout time.Duration) ([]Option, error)
	Text(ctx context.Context, selector string, timeout time.Duration) (string, error)
	InnerHTML(ctx context.Context, selector string, timeout time.Duration) (string, error)
	ScreenshotElement(ctx context.Context, selector string, timeout time.Duration) ([]byte, error)
	Cookies(ctx context.Context) ([]*http.Cookie, error)
	Close() error
}

// Option is one entry of a <select>
type Option struct {
	Value string `json:"id"`
	Label string `json:"name"`
}

// TimeoutError reports that an element never reached the awaited condition
type TimeoutError struct {
	Op       string
	Selector string
	Wait     time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout after %s waiting to %s %q", e.Wait, e.Op, e.Selector)
}

// IsTimeout reports whether err is, or wraps, a *TimeoutError
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsXPath reports whether the selector should be evaluated as XPath
func IsXPath(selector string) bool {
	return strings.HasPrefix(selector, "/") ||
		strings.HasPrefix(selector, "./") ||
		strings.HasPrefix(selector, "(")
}

// XPathLiteral quotes s for use inside an XPath expression
func XPathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}

	parts := strings.Split(s, "'")
	quoted := make([]string, 0, len(parts)*2)
	for i, part := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		if part != "" {
			quoted = append(quoted, "'"+part+"'")
		}
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}

// DefaultPollInterval is how often Poll re-evaluates its condition
const DefaultPollInterval = 100 * time.Millisecond

// ErrPollTimeout is returned by Poll when the condition never held
var ErrPollTimeout = errors.New("condition not met before timeout")

// Poll evaluates cond until it reports true, returns an error, the timeout
// elapses (ErrPollTimeout) or ctx is cancelled (ctx.Err()).
func Poll(ctx context.Context, timeout, interval time.Duration, cond func(ctx context.Context) (bool, error)) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		done, err := cond(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return ErrPollTimeout
		case <-ticker.C:
		}
	}
}
