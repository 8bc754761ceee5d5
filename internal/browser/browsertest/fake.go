// Package browsertest provides an in-memory browser.Adapter for tests.
package browsertest

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/JustJay7/highcourt-fetcher/internal/browser"
)

// Fake is a scriptable browser.Adapter. A selector "exists" when it appears
// in Visible, Options, Texts or HTML; anything else times out immediately.
type Fake struct {
	mu sync.Mutex

	Visible    map[string]bool
	Options    map[string][]browser.Option
	Texts      map[string]string
	HTML       map[string]string
	Values     map[string]string
	Screenshot []byte
	CookieJar  []*http.Cookie

	// OnClick runs after a successful click on the selector
	OnClick map[string]func(f *Fake)
	// OnSelect runs after a successful SelectValue on the selector
	OnSelect map[string]func(f *Fake, value string)
	// FailClicks makes the first n clicks on a selector time out
	FailClicks map[string]int

	Calls  []string
	Closed bool
}

// New returns an empty Fake
func New() *Fake {
	return &Fake{
		Visible:    map[string]bool{},
		Options:    map[string][]browser.Option{},
		Texts:      map[string]string{},
		HTML:       map[string]string{},
		Values:     map[string]string{},
		OnClick:    map[string]func(f *Fake){},
		OnSelect:   map[string]func(f *Fake, value string){},
		FailClicks: map[string]int{},
	}
}

// Show marks selectors as present and visible
func (f *Fake) Show(selectors ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range selectors {
		f.Visible[s] = true
	}
}

// Hide removes selectors
func (f *Fake) Hide(selectors ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range selectors {
		delete(f.Visible, s)
	}
}

// SetOptions replaces a select's entries. Safe to call from hooks that
// repopulate the page in the background.
func (f *Fake) SetOptions(selector string, opts []browser.Option) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Options[selector] = opts
}

// CallLog returns a copy of the recorded calls
func (f *Fake) CallLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Calls...)
}

// Count returns how many recorded calls equal call
func (f *Fake) Count(call string) int {
	n := 0
	for _, c := range f.CallLog() {
		if c == call {
			n++
		}
	}
	return n
}

func (f *Fake) record(format string, args ...interface{}) {
	f.Calls = append(f.Calls, fmt.Sprintf(format, args...))
}

func (f *Fake) exists(selector string) bool {
	if f.Visible[selector] {
		return true
	}
	if _, ok := f.Options[selector]; ok {
		return true
	}
	if _, ok := f.Texts[selector]; ok {
		return true
	}
	_, ok := f.HTML[selector]
	return ok
}

func (f *Fake) require(op, selector string, timeout time.Duration) error {
	if !f.exists(selector) {
		return &browser.TimeoutError{Op: op, Selector: selector, Wait: timeout}
	}
	return nil
}

func (f *Fake) Navigate(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("navigate %s", url)
	return ctx.Err()
}

func (f *Fake) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("wait %s", selector)
	return f.require("see", selector, timeout)
}

func (f *Fake) WaitVisibleAny(ctx context.Context, timeout time.Duration, selectors ...string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("wait-any %v", selectors)
	for i, s := range selectors {
		if f.exists(s) {
			return i, nil
		}
	}
	return -1, &browser.TimeoutError{Op: "see any of", Selector: fmt.Sprint(selectors), Wait: timeout}
}

func (f *Fake) click(kind, selector string, timeout time.Duration) error {
	f.mu.Lock()
	f.record("%s %s", kind, selector)
	if n := f.FailClicks[selector]; n > 0 {
		f.FailClicks[selector] = n - 1
		f.mu.Unlock()
		return &browser.TimeoutError{Op: "click", Selector: selector, Wait: timeout}
	}
	if err := f.require("click", selector, timeout); err != nil {
		f.mu.Unlock()
		return err
	}
	hook := f.OnClick[selector]
	f.mu.Unlock()

	if hook != nil {
		hook(f)
	}
	return nil
}

func (f *Fake) Click(ctx context.Context, selector string, timeout time.Duration) error {
	return f.click("click", selector, timeout)
}

func (f *Fake) ForceClick(ctx context.Context, selector string, timeout time.Duration) error {
	return f.click("force-click", selector, timeout)
}

func (f *Fake) Type(ctx context.Context, selector, text string, timeout time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("type %s %s", selector, text)
	if err := f.require("type into", selector, timeout); err != nil {
		return err
	}
	f.Values[selector] = text
	return nil
}

func (f *Fake) SetValue(ctx context.Context, selector, value string, timeout time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("set %s %s", selector, value)
	if err := f.require("set value of", selector, timeout); err != nil {
		return err
	}
	f.Values[selector] = value
	return nil
}

func (f *Fake) SelectValue(ctx context.Context, selector, value string, timeout time.Duration) error {
	f.mu.Lock()
	f.record("select %s %s", selector, value)
	if err := f.require("select", selector, timeout); err != nil {
		f.mu.Unlock()
		return err
	}
	f.Values[selector] = value
	hook := f.OnSelect[selector]
	f.mu.Unlock()

	if hook != nil {
		hook(f, value)
	}
	return nil
}

func (f *Fake) ReadOptions(ctx context.Context, selector string, timeout time.Duration) ([]browser.Option, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("options %s", selector)
	opts, ok := f.Options[selector]
	if !ok {
		return nil, &browser.TimeoutError{Op: "read options of", Selector: selector, Wait: timeout}
	}
	return append([]browser.Option(nil), opts...), nil
}

func (f *Fake) Text(ctx context.Context, selector string, timeout time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("text %s", selector)
	if err := f.require("read text of", selector, timeout); err != nil {
		return "", err
	}
	return f.Texts[selector], nil
}

func (f *Fake) InnerHTML(ctx context.Context, selector string, timeout time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("html %s", selector)
	if err := f.require("read html of", selector, timeout); err != nil {
		return "", err
	}
	return f.HTML[selector], nil
}

func (f *Fake) ScreenshotElement(ctx context.Context, selector string, timeout time.Duration) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("screenshot %s", selector)
	if err := f.require("screenshot", selector, timeout); err != nil {
		return nil, err
	}
	return append([]byte(nil), f.Screenshot...), nil
}

func (f *Fake) Cookies(ctx context.Context) ([]*http.Cookie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.CookieJar, nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// IsClosed reports whether Close was called
func (f *Fake) IsClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Closed
}
