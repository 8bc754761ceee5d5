package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/JustJay7/highcourt-fetcher/pkg/logger"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// LaunchOptions configures the shared browser process
type LaunchOptions struct {
	Headless    bool
	UserAgent   string
	BrowserPath string
	Devtools    bool
}

// Launcher owns one browser process; every session gets its own incognito
// context inside it so cookies and portal state never leak between callers.
type Launcher struct {
	mu      sync.Mutex
	browser *rod.Browser
	logger  *logger.Logger
	opts    LaunchOptions
}

// Launch starts (or downloads and starts) the browser
func Launch(opts LaunchOptions, log *logger.Logger) (*Launcher, error) {
	l := launcher.New().
		Headless(opts.Headless).
		Set("user-agent", opts.UserAgent).
		Set("disable-blink-features", "AutomationControlled").
		Delete("enable-automation")

	if opts.BrowserPath != "" {
		l = l.Bin(opts.BrowserPath)
	}

	if opts.Devtools {
		l = l.Devtools(true)
	}

	browserURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(browserURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	return &Launcher{
		browser: browser,
		logger:  log,
		opts:    opts,
	}, nil
}

// NewSession opens an isolated browser context with a single page
func (l *Launcher) NewSession(ctx context.Context) (Adapter, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	incognito, err := l.browser.Incognito()
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	page, err := incognito.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = incognito.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	// the page must outlive the request that created it
	page = page.Context(context.Background())

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             1920,
		Height:            1080,
		DeviceScaleFactor: 1,
	}); err != nil {
		l.logger.Warn("Failed to set viewport", "error", err)
	}

	if _, err := page.SetExtraHeaders([]string{"Accept-Language", "en-US,en;q=0.9"}); err != nil {
		l.logger.Warn("Failed to set extra headers", "error", err)
	}

	return &rodSession{
		context: incognito,
		page:    page,
		logger:  l.logger,
	}, nil
}

// Close shuts the browser process down
func (l *Launcher) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.browser.Close()
}

type rodSession struct {
	context *rod.Browser
	page    *rod.Page
	logger  *logger.Logger
}

// find locates selector within timeout. The returned element is bound to a
// context that is cancelled by the returned func.
func (s *rodSession) find(ctx context.Context, op, selector string, timeout time.Duration) (*rod.Element, context.CancelFunc, error) {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	page := s.page.Context(tctx)

	var (
		el  *rod.Element
		err error
	)
	if IsXPath(selector) {
		el, err = page.ElementX(selector)
	} else {
		el, err = page.Element(selector)
	}
	if err != nil {
		cancel()
		return nil, nil, s.wrap(ctx, err, op, selector, timeout)
	}
	return el, cancel, nil
}

// wrap turns a deadline hit into a *TimeoutError unless the caller itself
// gave up.
func (s *rodSession) wrap(ctx context.Context, err error, op, selector string, timeout time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Op: op, Selector: selector, Wait: timeout}
	}
	return fmt.Errorf("%s %q: %w", op, selector, err)
}

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	page := s.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		s.logger.Warn("Page load did not complete", "url", url, "error", err)
	}
	return nil
}

func (s *rodSession) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	el, cancel, err := s.find(ctx, "see", selector, timeout)
	if err != nil {
		return err
	}
	defer cancel()

	if err := el.WaitVisible(); err != nil {
		return s.wrap(ctx, err, "see", selector, timeout)
	}
	return nil
}

func (s *rodSession) WaitVisibleAny(ctx context.Context, timeout time.Duration, selectors ...string) (int, error) {
	found := -1
	err := Poll(ctx, timeout, DefaultPollInterval, func(ctx context.Context) (bool, error) {
		page := s.page.Context(ctx)
		for i, selector := range selectors {
			var (
				has bool
				el  *rod.Element
				err error
			)
			if IsXPath(selector) {
				has, el, err = page.HasX(selector)
			} else {
				has, el, err = page.Has(selector)
			}
			if err != nil || !has {
				continue
			}
			if visible, err := el.Visible(); err == nil && visible {
				found = i
				return true, nil
			}
		}
		return false, nil
	})
	if errors.Is(err, ErrPollTimeout) {
		return -1, &TimeoutError{Op: "see any of", Selector: fmt.Sprint(selectors), Wait: timeout}
	}
	if err != nil {
		return -1, err
	}
	return found, nil
}

func (s *rodSession) Click(ctx context.Context, selector string, timeout time.Duration) error {
	el, cancel, err := s.find(ctx, "click", selector, timeout)
	if err != nil {
		return err
	}
	defer cancel()

	if err := el.WaitVisible(); err != nil {
		return s.wrap(ctx, err, "click", selector, timeout)
	}
	if err := el.WaitEnabled(); err != nil {
		return s.wrap(ctx, err, "click", selector, timeout)
	}

	return clickWithFallback(ctx, timeout,
		func(c context.Context) error {
			return el.Context(c).Click(proto.InputMouseButtonLeft, 1)
		},
		func(c context.Context) error {
			return s.jsClick(c, el, selector, timeout)
		},
		func(err error) {
			s.logger.Debug("Pointer click failed, using programmatic click", "selector", selector, "error", err)
		},
	)
}

func (s *rodSession) ForceClick(ctx context.Context, selector string, timeout time.Duration) error {
	el, cancel, err := s.find(ctx, "click", selector, timeout)
	if err != nil {
		return err
	}
	defer cancel()

	return s.jsClick(ctx, el, selector, timeout)
}

// jsClick runs the element's click handler under its own deadline, so it
// does not inherit whatever is left of the lookup's
func (s *rodSession) jsClick(ctx context.Context, el *rod.Element, selector string, timeout time.Duration) error {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := el.Context(cctx).Eval(`() => this.click()`); err != nil {
		return s.wrap(ctx, err, "click", selector, timeout)
	}
	return nil
}

// maxPointerClick caps how long a pointer click may wait for its target to
// become interactable before the programmatic click takes over
const maxPointerClick = 2 * time.Second

func pointerClickBudget(timeout time.Duration) time.Duration {
	budget := timeout / 2
	if budget > maxPointerClick {
		budget = maxPointerClick
	}
	return budget
}

// clickWithFallback tries pointer within a share of timeout and falls back
// to script with the caller's ctx when it fails. A covered target makes the
// pointer click wait for the whole of its context.
func clickWithFallback(ctx context.Context, timeout time.Duration, pointer, script func(context.Context) error, onFallback func(error)) error {
	pctx, cancel := context.WithTimeout(ctx, pointerClickBudget(timeout))
	err := pointer(pctx)
	cancel()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if onFallback != nil {
		onFallback(err)
	}
	return script(ctx)
}

func (s *rodSession) Type(ctx context.Context, selector, text string, timeout time.Duration) error {
	el, cancel, err := s.find(ctx, "type into", selector, timeout)
	if err != nil {
		return err
	}
	defer cancel()

	if err := el.WaitVisible(); err != nil {
		return s.wrap(ctx, err, "type into", selector, timeout)
	}
	if err := el.SelectAllText(); err != nil {
		return s.wrap(ctx, err, "type into", selector, timeout)
	}
	if err := el.Input(text); err != nil {
		return s.wrap(ctx, err, "type into", selector, timeout)
	}
	return nil
}

func (s *rodSession) SetValue(ctx context.Context, selector, value string, timeout time.Duration) error {
	el, cancel, err := s.find(ctx, "set value of", selector, timeout)
	if err != nil {
		return err
	}
	defer cancel()

	_, err = el.Eval(`(v) => {
		this.value = v;
		this.dispatchEvent(new Event('input', { bubbles: true }));
		this.dispatchEvent(new Event('change', { bubbles: true }));
	}`, value)
	if err != nil {
		return s.wrap(ctx, err, "set value of", selector, timeout)
	}
	return nil
}

func (s *rodSession) SelectValue(ctx context.Context, selector, value string, timeout time.Duration) error {
	el, cancel, err := s.find(ctx, "select", selector, timeout)
	if err != nil {
		return err
	}
	defer cancel()

	res, err := el.Eval(`(v) => {
		const found = Array.from(this.options).some(o => o.value === v);
		if (!found) return false;
		this.value = v;
		this.dispatchEvent(new Event('change', { bubbles: true }));
		return true;
	}`, value)
	if err != nil {
		return s.wrap(ctx, err, "select", selector, timeout)
	}
	if !res.Value.Bool() {
		return fmt.Errorf("select %q: no option with value %q", selector, value)
	}
	return nil
}

func (s *rodSession) ReadOptions(ctx context.Context, selector string, timeout time.Duration) ([]Option, error) {
	el, cancel, err := s.find(ctx, "read options of", selector, timeout)
	if err != nil {
		return nil, err
	}
	defer cancel()

	items, err := el.Elements("option")
	if err != nil {
		return nil, s.wrap(ctx, err, "read options of", selector, timeout)
	}

	options := make([]Option, 0, len(items))
	for _, item := range items {
		value, err := item.Attribute("value")
		if err != nil {
			return nil, s.wrap(ctx, err, "read options of", selector, timeout)
		}
		label, err := item.Text()
		if err != nil {
			return nil, s.wrap(ctx, err, "read options of", selector, timeout)
		}

		opt := Option{Label: label}
		if value != nil {
			opt.Value = *value
		}
		options = append(options, opt)
	}
	return options, nil
}

func (s *rodSession) Text(ctx context.Context, selector string, timeout time.Duration) (string, error) {
	el, cancel, err := s.find(ctx, "read text of", selector, timeout)
	if err != nil {
		return "", err
	}
	defer cancel()

	text, err := el.Text()
	if err != nil {
		return "", s.wrap(ctx, err, "read text of", selector, timeout)
	}
	return text, nil
}

func (s *rodSession) InnerHTML(ctx context.Context, selector string, timeout time.Duration) (string, error) {
	el, cancel, err := s.find(ctx, "read html of", selector, timeout)
	if err != nil {
		return "", err
	}
	defer cancel()

	res, err := el.Eval(`() => this.innerHTML`)
	if err != nil {
		return "", s.wrap(ctx, err, "read html of", selector, timeout)
	}
	return res.Value.Str(), nil
}

func (s *rodSession) ScreenshotElement(ctx context.Context, selector string, timeout time.Duration) ([]byte, error) {
	el, cancel, err := s.find(ctx, "screenshot", selector, timeout)
	if err != nil {
		return nil, err
	}
	defer cancel()

	if err := el.WaitVisible(); err != nil {
		return nil, s.wrap(ctx, err, "screenshot", selector, timeout)
	}
	if err := el.WaitLoad(); err != nil {
		return nil, s.wrap(ctx, err, "screenshot", selector, timeout)
	}

	png, err := el.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
	if err != nil {
		return nil, s.wrap(ctx, err, "screenshot", selector, timeout)
	}
	return png, nil
}

func (s *rodSession) Cookies(ctx context.Context) ([]*http.Cookie, error) {
	cookies, err := s.page.Context(ctx).Cookies(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies: %w", err)
	}

	out := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, &http.Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   c.Path,
		})
	}
	return out, nil
}

// Close releases the page and its incognito context
func (s *rodSession) Close() error {
	if err := s.page.Close(); err != nil {
		s.logger.Warn("Failed to close page", "error", err)
	}
	return s.context.Close()
}
