package scraper

import (
	"context"
	"fmt"

	"github.com/JustJay7/highcourt-fetcher/internal/browser"
	"github.com/JustJay7/highcourt-fetcher/internal/database"
	"github.com/JustJay7/highcourt-fetcher/pkg/logger"
	"github.com/avast/retry-go/v4"
)

const (
	caseMenuSelector       = "#leftPaneMenuCS"
	caseNumberTabSelector  = "#CScaseNumber"
	caseTypeSelector       = "#case_type"
	caseNumberSelector     = "#search_case_no"
	caseYearSelector       = "#rgyear"
	caseGoSelector         = "//input[@value='Go' and @class='Gobtn']"
	caseErrorSelector      = "//div[@id='errSpan']/p"
	caseResultSelector     = "//div[@align='center'][.//div[@id='caseBusinessDiv4']]"
	caseRowSelectorPattern = "//td[contains(text(), %s)]"
)

// CaseQuery is one case-status submission
type CaseQuery struct {
	CaseTypeID string
	// CaseTypeText is the case type label, e.g. "Writ Petition(C)"
	CaseTypeText string
	CaseNumber   string
	Year         string
	Captcha      string
}

// CaseResult is a classified case-status submission. Record is set only
// for OutcomeSuccess.
type CaseResult struct {
	Outcome        Outcome
	FullCaseNumber string
	Record         *database.CaseRecord
}

// CaseStatusWorkflow drives the portal's case-status wizard:
// courts, benches, case types, captcha, then the case itself.
type CaseStatusWorkflow struct {
	wizard
	parser *Parser
}

// NewCaseStatusWorkflow creates a case-status workflow over adapter
func NewCaseStatusWorkflow(adapter browser.Adapter, parser *Parser, opts WorkflowOptions, logger *logger.Logger) *CaseStatusWorkflow {
	return &CaseStatusWorkflow{
		wizard: newWizard(KindCase, adapter, opts, logger),
		parser: parser,
	}
}

// Courts opens the case-status menu and lists the high courts
func (w *CaseStatusWorkflow) Courts(ctx context.Context) ([]browser.Option, error) {
	defer w.timed("courts")()
	w.state = StateStart

	if err := w.openMenu(ctx, caseMenuSelector); err != nil {
		return nil, fmt.Errorf("failed to open case status: %w", err)
	}
	courts, err := w.awaitOptions(ctx, courtSelector)
	if err != nil {
		return nil, fmt.Errorf("failed to list courts: %w", err)
	}

	w.state = StateCourtListLoaded
	w.logger.Debug("Listed courts", "count", len(courts))
	return courts, nil
}

// Benches selects a court and lists its benches
func (w *CaseStatusWorkflow) Benches(ctx context.Context, courtID string) ([]browser.Option, error) {
	defer w.timed("benches")()
	if err := w.require(StateCourtListLoaded, "benches"); err != nil {
		return nil, err
	}
	w.state = StateCourtListLoaded

	if err := w.resetToMenu(ctx); err != nil {
		return nil, err
	}
	benches, err := w.selectAndAwait(ctx, courtSelector, courtID, benchSelector)
	if err != nil {
		return nil, fmt.Errorf("failed to list benches of court %s: %w", courtID, err)
	}

	w.state = StateBenchListLoaded
	w.logger.Debug("Listed benches", "court", courtID, "count", len(benches))
	return benches, nil
}

// CaseTypes selects a bench, opens the case-number search and lists the
// case types
func (w *CaseStatusWorkflow) CaseTypes(ctx context.Context, benchID string) ([]browser.Option, error) {
	defer w.timed("case_types")()
	if err := w.require(StateBenchListLoaded, "case types"); err != nil {
		return nil, err
	}
	w.state = StateBenchListLoaded

	if err := w.resetToMenu(ctx); err != nil {
		return nil, err
	}
	if err := w.adapter.SelectValue(ctx, benchSelector, benchID, w.opts.StepTimeout); err != nil {
		return nil, fmt.Errorf("failed to select bench %s: %w", benchID, err)
	}
	if err := w.adapter.Click(ctx, caseNumberTabSelector, w.opts.StepTimeout); err != nil {
		return nil, fmt.Errorf("failed to open case number search: %w", err)
	}
	types, err := w.awaitOptions(ctx, caseTypeSelector)
	if err != nil {
		return nil, fmt.Errorf("failed to list case types of bench %s: %w", benchID, err)
	}

	w.state = StateBenchSelected
	w.logger.Debug("Listed case types", "bench", benchID, "count", len(types))
	return types, nil
}

// Captcha returns a freshly refreshed CAPTCHA image
func (w *CaseStatusWorkflow) Captcha(ctx context.Context) ([]byte, error) {
	defer w.timed("captcha")()
	if err := w.require(StateBenchSelected, "captcha"); err != nil {
		return nil, err
	}

	if err := w.resetToMenu(ctx); err != nil {
		return nil, err
	}
	return w.issueCaptcha(ctx)
}

// FetchCase submits q with its CAPTCHA solution. Known portal failures come
// back as a non-success Outcome; anything else is parsed into a record.
func (w *CaseStatusWorkflow) FetchCase(ctx context.Context, q CaseQuery) (*CaseResult, error) {
	defer w.timed("fetch_case")()
	if err := w.require(StateCaptchaReady, "fetch case"); err != nil {
		return nil, err
	}
	w.consumeCaptcha()

	full := FullCaseNumber(q.CaseTypeText, q.CaseNumber, q.Year)
	log := w.logger.With("case", full)

	if err := w.submitCase(ctx, q); err != nil {
		return nil, err
	}

	rowSelector := fmt.Sprintf(caseRowSelectorPattern, browser.XPathLiteral(full))
	idx, err := w.adapter.WaitVisibleAny(ctx, w.opts.StepTimeout, caseErrorSelector, rowSelector)
	if err != nil {
		return nil, fmt.Errorf("no response to case submission: %w", err)
	}

	if idx == 0 {
		text, err := w.adapter.Text(ctx, caseErrorSelector, w.opts.StepTimeout)
		if err != nil {
			return nil, fmt.Errorf("failed to read error banner: %w", err)
		}
		if outcome := ClassifyCaseStatus(text); outcome != OutcomeSuccess {
			w.recordOutcome(outcome)
			return &CaseResult{Outcome: outcome, FullCaseNumber: full}, nil
		}
		log.Warn("Unrecognised error banner, looking for the case row", "text", text)
	}

	if err := w.openCaseRow(ctx, rowSelector, log); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRowNotFound, full, err)
	}

	markup, err := w.adapter.InnerHTML(ctx, caseResultSelector, w.opts.StepTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to read case details: %w", err)
	}
	cookies, err := w.adapter.Cookies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read session cookies: %w", err)
	}

	rec, err := w.parser.ParseCase(ctx, markup, full, cookies)
	if err != nil {
		return nil, err
	}

	w.recordOutcome(OutcomeSuccess)
	return &CaseResult{Outcome: OutcomeSuccess, FullCaseNumber: full, Record: rec}, nil
}

func (w *CaseStatusWorkflow) submitCase(ctx context.Context, q CaseQuery) error {
	if err := w.resetToMenu(ctx); err != nil {
		return err
	}
	if err := w.adapter.SelectValue(ctx, caseTypeSelector, q.CaseTypeID, w.opts.StepTimeout); err != nil {
		return fmt.Errorf("failed to select case type %s: %w", q.CaseTypeID, err)
	}
	if err := w.adapter.Type(ctx, caseNumberSelector, q.CaseNumber, w.opts.StepTimeout); err != nil {
		return fmt.Errorf("failed to enter case number: %w", err)
	}
	if err := w.adapter.Type(ctx, caseYearSelector, q.Year, w.opts.StepTimeout); err != nil {
		return fmt.Errorf("failed to enter year: %w", err)
	}
	if err := w.adapter.Type(ctx, captchaInputSelector, q.Captcha, w.opts.StepTimeout); err != nil {
		return fmt.Errorf("failed to enter captcha: %w", err)
	}
	if err := w.adapter.Click(ctx, caseGoSelector, w.opts.StepTimeout); err != nil {
		return fmt.Errorf("failed to submit case search: %w", err)
	}
	return nil
}

// openCaseRow clicks the row's View link, retrying while the result table
// renders
func (w *CaseStatusWorkflow) openCaseRow(ctx context.Context, rowSelector string, log *logger.Logger) error {
	attempts := w.opts.RowRetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	viewSelector := rowSelector + "/..//a[text()='View']"

	return retry.Do(
		func() error {
			return w.adapter.Click(ctx, viewSelector, w.opts.StepTimeout)
		},
		retry.Attempts(attempts),
		retry.Delay(w.opts.RowRetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Debug("Case row not ready", "attempt", n+1, "error", err)
		}),
	)
}
