package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JustJay7/highcourt-fetcher/internal/browser"
	"github.com/JustJay7/highcourt-fetcher/internal/metrics"
	"github.com/JustJay7/highcourt-fetcher/pkg/logger"
)

// State is how far a session has advanced through the portal wizard
type State int

const (
	StateStart State = iota
	StateCourtListLoaded
	StateBenchListLoaded
	StateBenchSelected
	StateCaptchaReady
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateCourtListLoaded:
		return "court list loaded"
	case StateBenchListLoaded:
		return "bench list loaded"
	case StateBenchSelected:
		return "bench selected"
	case StateCaptchaReady:
		return "captcha ready"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrStepOutOfOrder is returned when a wizard step is called before the
	// step it depends on
	ErrStepOutOfOrder = errors.New("wizard step out of order")
	// ErrRowNotFound is returned when the submitted case never shows up in
	// the result table
	ErrRowNotFound = errors.New("case row not found in results")
)

// Portal selectors shared by both workflows
const (
	menuOKSelector      = "//button[text()='OK']"
	courtSelector       = "#sess_state_code"
	benchSelector       = "#court_complex_code"
	resetButtonSelector = "//div[@id='backTopDiv']//input[@id='bckbtn']"
	noSelectionValue    = "0"
)

// WorkflowOptions carries the portal address and wizard timing
type WorkflowOptions struct {
	PortalURL string
	// StepTimeout bounds every wait the wizard depends on
	StepTimeout time.Duration
	// ProbeTimeout bounds optional probes such as the reset control
	ProbeTimeout     time.Duration
	RowRetryAttempts uint
	RowRetryDelay    time.Duration
}

// wizard holds the state and helpers common to both workflows. Callers
// serialise access through the session manager.
type wizard struct {
	kind     Kind
	adapter  browser.Adapter
	captcha  *CaptchaProvider
	logger   *logger.Logger
	opts     WorkflowOptions
	state    State
	// selected remembers the value last picked in each select since the
	// menu was opened
	selected map[string]string
}

func newWizard(kind Kind, adapter browser.Adapter, opts WorkflowOptions, logger *logger.Logger) wizard {
	log := logger.With("workflow", string(kind))
	return wizard{
		kind:     kind,
		adapter:  adapter,
		captcha:  NewCaptchaProvider(adapter, log, opts.StepTimeout),
		logger:   log,
		opts:     opts,
		selected: map[string]string{},
	}
}

// State reports the current wizard state
func (w *wizard) State() State {
	return w.state
}

func (w *wizard) require(need State, step string) error {
	if w.state < need {
		return fmt.Errorf("%w: %s needs %q, session is at %q", ErrStepOutOfOrder, step, need, w.state)
	}
	return nil
}

func (w *wizard) timed(step string) func() {
	start := time.Now()
	return func() {
		metrics.RecordStep(string(w.kind), step, time.Since(start).Seconds())
	}
}

// openMenu loads the portal, opens a left-pane menu entry and dismisses the
// notice modal.
func (w *wizard) openMenu(ctx context.Context, menuSelector string) error {
	w.selected = map[string]string{}
	if err := w.adapter.Navigate(ctx, w.opts.PortalURL); err != nil {
		return fmt.Errorf("failed to open portal: %w", err)
	}
	if err := w.adapter.WaitVisible(ctx, menuSelector, w.opts.StepTimeout); err != nil {
		return err
	}
	if err := w.adapter.ForceClick(ctx, menuSelector, w.opts.StepTimeout); err != nil {
		return err
	}
	if err := w.adapter.WaitVisible(ctx, menuOKSelector, w.opts.StepTimeout); err != nil {
		return err
	}
	return w.adapter.Click(ctx, menuOKSelector, w.opts.StepTimeout)
}

// resetToMenu clicks the portal's back control when it is showing. A
// missing control means the page is already at the menu.
func (w *wizard) resetToMenu(ctx context.Context) error {
	err := w.adapter.Click(ctx, resetButtonSelector, w.opts.ProbeTimeout)
	if browser.IsTimeout(err) {
		w.logger.Debug("Reset control absent, already at menu")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to reset to menu: %w", err)
	}
	w.logger.Debug("Reset to menu")
	return nil
}

// options reads a select's entries, dropping the "select one" placeholder
func (w *wizard) options(ctx context.Context, selector string, timeout time.Duration) ([]browser.Option, error) {
	opts, err := w.adapter.ReadOptions(ctx, selector, timeout)
	if err != nil {
		return nil, err
	}
	out := make([]browser.Option, 0, len(opts))
	for _, o := range opts {
		if o.Value != noSelectionValue {
			out = append(out, o)
		}
	}
	return out, nil
}

// selectAndAwait picks value in one select and waits for the dependent
// select to be repopulated. The list read before the change is only
// accepted again when value was already selected or when the dependent
// select was seen empty after the change.
func (w *wizard) selectAndAwait(ctx context.Context, selector, value, dependent string) ([]browser.Option, error) {
	before, _ := w.options(ctx, dependent, w.opts.ProbeTimeout)
	reselect := w.selected[selector] == value

	if err := w.adapter.SelectValue(ctx, selector, value, w.opts.StepTimeout); err != nil {
		return nil, err
	}
	delete(w.selected, selector)

	cleared := false
	var current []browser.Option
	err := browser.Poll(ctx, w.opts.StepTimeout, browser.DefaultPollInterval, func(ctx context.Context) (bool, error) {
		opts, err := w.options(ctx, dependent, w.opts.ProbeTimeout)
		if browser.IsTimeout(err) {
			cleared = true
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if len(opts) == 0 {
			cleared = true
			return false, nil
		}
		current = opts
		return reselect || cleared || !sameOptions(opts, before), nil
	})
	if errors.Is(err, browser.ErrPollTimeout) {
		return nil, &browser.TimeoutError{Op: "populate", Selector: dependent, Wait: w.opts.StepTimeout}
	}
	if err != nil {
		return nil, err
	}
	w.selected[selector] = value
	return current, nil
}

// awaitOptions waits for a select to hold at least one real entry
func (w *wizard) awaitOptions(ctx context.Context, selector string) ([]browser.Option, error) {
	var current []browser.Option
	err := browser.Poll(ctx, w.opts.StepTimeout, browser.DefaultPollInterval, func(ctx context.Context) (bool, error) {
		opts, err := w.options(ctx, selector, w.opts.ProbeTimeout)
		if browser.IsTimeout(err) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		current = opts
		return len(opts) > 0, nil
	})
	if errors.Is(err, browser.ErrPollTimeout) {
		return nil, &browser.TimeoutError{Op: "populate", Selector: selector, Wait: w.opts.StepTimeout}
	}
	if err != nil {
		return nil, err
	}
	return current, nil
}

func sameOptions(a, b []browser.Option) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// issueCaptcha captures a fresh challenge and arms submission
func (w *wizard) issueCaptcha(ctx context.Context) ([]byte, error) {
	png, err := w.captcha.Challenge(ctx)
	if err != nil {
		return nil, err
	}
	w.state = StateCaptchaReady
	return png, nil
}

// consumeCaptcha drops back from CaptchaReady; every submission needs a new
// challenge whatever its outcome
func (w *wizard) consumeCaptcha() {
	if w.state == StateCaptchaReady {
		w.state = StateBenchSelected
	}
}

func (w *wizard) recordOutcome(outcome Outcome) {
	metrics.RecordQuery(string(w.kind), outcome.String())
	w.logger.Info("Submission classified", "outcome", outcome.String())
}
