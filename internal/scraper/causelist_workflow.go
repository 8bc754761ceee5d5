package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JustJay7/highcourt-fetcher/internal/browser"
	"github.com/JustJay7/highcourt-fetcher/internal/database"
	"github.com/JustJay7/highcourt-fetcher/pkg/logger"
)

const (
	causeMenuSelector   = "#leftPaneMenuCL"
	causeDateSelector   = "#causelist_date"
	causeGoSelector     = "#butCivil"
	causeResultSelector = "#div_Causelist"
	causeDateLayout     = "02-01-2006"
)

// CauseListQuery is one cause-list submission
type CauseListQuery struct {
	CourtID string
	BenchID string
	Date    time.Time
	Captcha string
}

// CauseListResult is a classified cause-list submission. List is set only
// for OutcomeSuccess.
type CauseListResult struct {
	Outcome Outcome
	List    *database.CauseList
}

// CauseListWorkflow drives the portal's cause-list wizard:
// courts, benches, bench selection, captcha, then the list for a date.
type CauseListWorkflow struct {
	wizard
	parser *Parser
	court  string
	bench  string
}

// NewCauseListWorkflow creates a cause-list workflow over adapter
func NewCauseListWorkflow(adapter browser.Adapter, parser *Parser, opts WorkflowOptions, logger *logger.Logger) *CauseListWorkflow {
	return &CauseListWorkflow{
		wizard: newWizard(KindCauseList, adapter, opts, logger),
		parser: parser,
	}
}

// Courts opens the cause-list menu and lists the high courts
func (w *CauseListWorkflow) Courts(ctx context.Context) ([]browser.Option, error) {
	defer w.timed("courts")()
	w.state = StateStart
	w.court, w.bench = "", ""

	if err := w.openMenu(ctx, causeMenuSelector); err != nil {
		return nil, fmt.Errorf("failed to open cause list: %w", err)
	}
	courts, err := w.awaitOptions(ctx, courtSelector)
	if err != nil {
		return nil, fmt.Errorf("failed to list courts: %w", err)
	}

	w.state = StateCourtListLoaded
	return courts, nil
}

// Benches selects a court and lists its benches
func (w *CauseListWorkflow) Benches(ctx context.Context, courtID string) ([]browser.Option, error) {
	defer w.timed("benches")()
	if err := w.require(StateCourtListLoaded, "benches"); err != nil {
		return nil, err
	}
	w.state = StateCourtListLoaded
	w.bench = ""

	benches, err := w.selectAndAwait(ctx, courtSelector, courtID, benchSelector)
	if err != nil {
		return nil, fmt.Errorf("failed to list benches of court %s: %w", courtID, err)
	}

	w.court = courtID
	w.state = StateBenchListLoaded
	return benches, nil
}

// SelectBench picks the bench whose cause lists will be fetched
func (w *CauseListWorkflow) SelectBench(ctx context.Context, benchID string) error {
	defer w.timed("select_bench")()
	if err := w.require(StateBenchListLoaded, "select bench"); err != nil {
		return err
	}
	w.state = StateBenchListLoaded

	if err := w.adapter.SelectValue(ctx, benchSelector, benchID, w.opts.StepTimeout); err != nil {
		return fmt.Errorf("failed to select bench %s: %w", benchID, err)
	}

	w.bench = benchID
	w.state = StateBenchSelected
	return nil
}

// Captcha returns a freshly refreshed CAPTCHA image
func (w *CauseListWorkflow) Captcha(ctx context.Context) ([]byte, error) {
	defer w.timed("captcha")()
	if err := w.require(StateBenchSelected, "captcha"); err != nil {
		return nil, err
	}
	return w.issueCaptcha(ctx)
}

// FetchCauseList submits the date with its CAPTCHA solution and waits for
// the result container to change.
func (w *CauseListWorkflow) FetchCauseList(ctx context.Context, q CauseListQuery) (*CauseListResult, error) {
	defer w.timed("fetch_cause_list")()
	if err := w.require(StateCaptchaReady, "fetch cause list"); err != nil {
		return nil, err
	}
	w.consumeCaptcha()

	if q.BenchID != "" && q.BenchID != w.bench {
		if err := w.adapter.SelectValue(ctx, benchSelector, q.BenchID, w.opts.StepTimeout); err != nil {
			return nil, fmt.Errorf("failed to select bench %s: %w", q.BenchID, err)
		}
		w.bench = q.BenchID
	}

	before, err := w.submitDate(ctx, q)
	if err != nil {
		return nil, err
	}

	markup, err := w.awaitResult(ctx, before)
	if err != nil {
		return nil, err
	}

	outcome := ClassifyCauseList(markup)
	if outcome != OutcomeSuccess {
		w.recordOutcome(outcome)
		return &CauseListResult{Outcome: outcome}, nil
	}

	cookies, err := w.adapter.Cookies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read session cookies: %w", err)
	}
	headers, rows, err := w.parser.ParseCauseList(ctx, markup, q.Date, cookies)
	if err != nil {
		return nil, err
	}

	court := q.CourtID
	if court == "" {
		court = w.court
	}

	w.recordOutcome(OutcomeSuccess)
	w.logger.Debug("Parsed cause list", "date", q.Date.Format(causeDateLayout), "rows", len(rows))
	return &CauseListResult{
		Outcome: OutcomeSuccess,
		List: &database.CauseList{
			CourtID: court,
			BenchID: w.bench,
			Date:    q.Date,
			Headers: headers,
			Rows:    rows,
		},
	}, nil
}

// submitDate fills the form and submits it, returning the result container
// content from before the submission
func (w *CauseListWorkflow) submitDate(ctx context.Context, q CauseListQuery) (string, error) {
	if err := w.adapter.WaitVisible(ctx, causeDateSelector, w.opts.StepTimeout); err != nil {
		return "", err
	}
	if err := w.adapter.SetValue(ctx, causeDateSelector, q.Date.Format(causeDateLayout), w.opts.StepTimeout); err != nil {
		return "", fmt.Errorf("failed to enter date: %w", err)
	}
	if err := w.adapter.Type(ctx, captchaInputSelector, q.Captcha, w.opts.StepTimeout); err != nil {
		return "", fmt.Errorf("failed to enter captcha: %w", err)
	}

	before, err := w.adapter.InnerHTML(ctx, causeResultSelector, w.opts.ProbeTimeout)
	if err != nil && !browser.IsTimeout(err) {
		return "", err
	}

	if err := w.adapter.Click(ctx, causeGoSelector, w.opts.StepTimeout); err != nil {
		return "", fmt.Errorf("failed to submit cause list search: %w", err)
	}
	return before, nil
}

// awaitResult polls the result container until its content differs from
// before. When it never changes the current content is classified as is.
func (w *CauseListWorkflow) awaitResult(ctx context.Context, before string) (string, error) {
	var current string
	var seen bool
	err := browser.Poll(ctx, w.opts.StepTimeout, browser.DefaultPollInterval, func(ctx context.Context) (bool, error) {
		markup, err := w.adapter.InnerHTML(ctx, causeResultSelector, w.opts.ProbeTimeout)
		if browser.IsTimeout(err) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		current, seen = markup, true
		return markup != "" && markup != before, nil
	})
	switch {
	case err == nil:
		return current, nil
	case errors.Is(err, browser.ErrPollTimeout) && seen:
		w.logger.Debug("Cause list container unchanged after submit")
		return current, nil
	case errors.Is(err, browser.ErrPollTimeout):
		return "", &browser.TimeoutError{Op: "see", Selector: causeResultSelector, Wait: w.opts.StepTimeout}
	default:
		return "", err
	}
}
