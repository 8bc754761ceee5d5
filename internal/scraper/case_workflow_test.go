package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/JustJay7/highcourt-fetcher/internal/browser"
	"github.com/JustJay7/highcourt-fetcher/internal/browser/browsertest"
	"github.com/JustJay7/highcourt-fetcher/internal/database"
	"github.com/JustJay7/highcourt-fetcher/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFullCase = "Writ Petition/1234/2024"

var (
	testRowSelector  = fmt.Sprintf(caseRowSelectorPattern, browser.XPathLiteral(testFullCase))
	testViewSelector = testRowSelector + "/..//a[text()='View']"
)

var testQuery = CaseQuery{
	CaseTypeID:   "134",
	CaseTypeText: "Writ Petition(C)",
	CaseNumber:   "1234",
	Year:         "2024",
	Captcha:      "x7k2p",
}

// newCasePortal scripts a fake portal that walks the case-status wizard up
// to the Go button. The submit hook decides what the portal answers.
func newCasePortal(onSubmit func(f *browsertest.Fake)) *browsertest.Fake {
	f := browsertest.New()
	f.Show(caseMenuSelector, menuOKSelector, caseNumberTabSelector,
		captchaRefreshSelector, captchaImageSelector, captchaInputSelector,
		caseNumberSelector, caseYearSelector, caseGoSelector)
	f.Screenshot = []byte("png-bytes")
	f.CookieJar = []*http.Cookie{{Name: "HCSERVICES_SESSID", Value: "abc"}}
	f.Options[courtSelector] = []browser.Option{
		{Value: "0", Label: "Select High Court"},
		{Value: "26", Label: "High Court of Delhi"},
		{Value: "1", Label: "Bombay High Court"},
	}
	f.OnSelect[courtSelector] = func(f *browsertest.Fake, value string) {
		f.Options[benchSelector] = []browser.Option{
			{Value: "0", Label: "Select Bench"},
			{Value: "1", Label: "Principal Bench " + value},
		}
	}
	f.OnClick[caseNumberTabSelector] = func(f *browsertest.Fake) {
		f.Options[caseTypeSelector] = []browser.Option{
			{Value: "0", Label: "Select Case Type"},
			{Value: "134", Label: "Writ Petition(C)"},
		}
	}
	f.OnClick[caseGoSelector] = onSubmit
	return f
}

// answerWithCase makes the portal list the submitted case and show its
// details once View is clicked
func answerWithCase(f *browsertest.Fake) {
	f.Visible[testRowSelector] = true
	f.Visible[testViewSelector] = true
	f.HTML[caseResultSelector] = caseResultHTML
}

func answerWithBanner(text string) func(f *browsertest.Fake) {
	return func(f *browsertest.Fake) {
		f.Texts[caseErrorSelector] = text
	}
}

func newTestCaseWorkflow(t *testing.T, f *browsertest.Fake, fetcher *stubFetcher) *CaseStatusWorkflow {
	t.Helper()
	return NewCaseStatusWorkflow(f, newTestParser(t, fetcher), testWorkflowOptions(), logger.NewNop())
}

// walkToCaptcha runs every step before FetchCase
func walkToCaptcha(t *testing.T, w *CaseStatusWorkflow) {
	t.Helper()
	ctx := context.Background()

	courts, err := w.Courts(ctx)
	require.NoError(t, err)
	require.Len(t, courts, 2)
	assert.Equal(t, browser.Option{Value: "26", Label: "High Court of Delhi"}, courts[0])

	benches, err := w.Benches(ctx, "26")
	require.NoError(t, err)
	require.Equal(t, []browser.Option{{Value: "1", Label: "Principal Bench 26"}}, benches)

	types, err := w.CaseTypes(ctx, "1")
	require.NoError(t, err)
	require.Equal(t, []browser.Option{{Value: "134", Label: "Writ Petition(C)"}}, types)

	png, err := w.Captcha(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), png)
	assert.Equal(t, StateCaptchaReady, w.State())
}

func TestCaseWorkflowFetchCase(t *testing.T) {
	f := newCasePortal(answerWithCase)
	fetcher := &stubFetcher{}
	w := newTestCaseWorkflow(t, f, fetcher)
	walkToCaptcha(t, w)

	res, err := w.FetchCase(context.Background(), testQuery)
	require.NoError(t, err)

	assert.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, testFullCase, res.FullCaseNumber)
	require.NotNil(t, res.Record)
	assert.Equal(t, "DLHC010012342024", res.Record.CNR())
	assert.Equal(t, StateBenchSelected, w.State())

	assert.Equal(t, 1, f.Count("select "+caseTypeSelector+" 134"))
	assert.Equal(t, 1, f.Count("type "+caseNumberSelector+" 1234"))
	assert.Equal(t, 1, f.Count("type "+captchaInputSelector+" x7k2p"))
	assert.Equal(t, 1, f.Count("click "+testViewSelector))

	calls := fetcher.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, f.CookieJar, calls[0].Cookies)

	// the record reconciles into storage under its CNR
	db, err := database.Initialize(filepath.Join(t.TempDir(), "wf.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	stored, err := database.NewReconciler(db).ReconcileCase(context.Background(), res.Record)
	require.NoError(t, err)
	assert.Equal(t, "DLHC010012342024", stored.CNRNumber)
}

func TestCaseWorkflowBannerOutcomes(t *testing.T) {
	tests := []struct {
		banner string
		want   Outcome
	}{
		{"Invalid Captcha", OutcomeInvalidCaptcha},
		{"Record Not Found", OutcomeRecordNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.banner, func(t *testing.T) {
			f := newCasePortal(answerWithBanner(tt.banner))
			w := newTestCaseWorkflow(t, f, &stubFetcher{})
			walkToCaptcha(t, w)

			res, err := w.FetchCase(context.Background(), testQuery)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Outcome)
			assert.Nil(t, res.Record)

			// the challenge is spent whatever the outcome
			_, err = w.FetchCase(context.Background(), testQuery)
			assert.True(t, errors.Is(err, ErrStepOutOfOrder))

			_, err = w.Captcha(context.Background())
			require.NoError(t, err)
		})
	}
}

func TestCaseWorkflowUnknownBannerFallsThrough(t *testing.T) {
	f := newCasePortal(func(f *browsertest.Fake) {
		answerWithCase(f)
		f.Texts[caseErrorSelector] = "Oops"
	})
	w := newTestCaseWorkflow(t, f, &stubFetcher{})
	walkToCaptcha(t, w)

	res, err := w.FetchCase(context.Background(), testQuery)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, res.Outcome)
}

func TestCaseWorkflowRowRetries(t *testing.T) {
	f := newCasePortal(answerWithCase)
	f.FailClicks[testViewSelector] = 2
	w := newTestCaseWorkflow(t, f, &stubFetcher{})
	walkToCaptcha(t, w)

	res, err := w.FetchCase(context.Background(), testQuery)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, 3, f.Count("click "+testViewSelector))
}

func TestCaseWorkflowRowNotFound(t *testing.T) {
	f := newCasePortal(func(f *browsertest.Fake) {
		f.Visible[testRowSelector] = true
	})
	w := newTestCaseWorkflow(t, f, &stubFetcher{})
	walkToCaptcha(t, w)

	_, err := w.FetchCase(context.Background(), testQuery)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRowNotFound))
	assert.Equal(t, 3, f.Count("click "+testViewSelector))
}

func TestCaseWorkflowNoResponse(t *testing.T) {
	f := newCasePortal(func(*browsertest.Fake) {})
	w := newTestCaseWorkflow(t, f, &stubFetcher{})
	walkToCaptcha(t, w)

	_, err := w.FetchCase(context.Background(), testQuery)
	require.Error(t, err)
	assert.True(t, browser.IsTimeout(err))
}

func TestCaseWorkflowStepOrder(t *testing.T) {
	f := newCasePortal(answerWithCase)
	w := newTestCaseWorkflow(t, f, &stubFetcher{})
	ctx := context.Background()

	_, err := w.Benches(ctx, "26")
	assert.True(t, errors.Is(err, ErrStepOutOfOrder))

	_, err = w.Captcha(ctx)
	assert.True(t, errors.Is(err, ErrStepOutOfOrder))

	_, err = w.FetchCase(ctx, testQuery)
	assert.True(t, errors.Is(err, ErrStepOutOfOrder))

	_, err = w.Courts(ctx)
	require.NoError(t, err)
	_, err = w.CaseTypes(ctx, "1")
	assert.True(t, errors.Is(err, ErrStepOutOfOrder))
	assert.Equal(t, StateCourtListLoaded, w.State())
}

func TestCaseWorkflowResetsToMenu(t *testing.T) {
	f := newCasePortal(answerWithCase)
	w := newTestCaseWorkflow(t, f, &stubFetcher{})

	// an absent reset control is probed and skipped by every later step
	walkToCaptcha(t, w)
	assert.Equal(t, 3, f.Count("click "+resetButtonSelector))

	f.Show(resetButtonSelector)
	_, err := w.FetchCase(context.Background(), testQuery)
	require.NoError(t, err)
	assert.Equal(t, 4, f.Count("click "+resetButtonSelector))
}

func TestCaseWorkflowBenchesWaitForRepopulation(t *testing.T) {
	delhi := []browser.Option{{Value: "0", Label: "Select Bench"}, {Value: "10", Label: "Delhi Principal Bench"}}
	bombay := []browser.Option{{Value: "0", Label: "Select Bench"}, {Value: "20", Label: "Bombay Principal Bench"}}

	f := newCasePortal(answerWithCase)
	f.Options[benchSelector] = delhi
	repopulated := make(chan struct{})
	f.OnSelect[courtSelector] = func(f *browsertest.Fake, value string) {
		go func() {
			time.Sleep(150 * time.Millisecond)
			f.SetOptions(benchSelector, bombay)
			close(repopulated)
		}()
	}

	opts := testWorkflowOptions()
	opts.StepTimeout = time.Second
	w := NewCaseStatusWorkflow(f, newTestParser(t, &stubFetcher{}), opts, logger.NewNop())
	ctx := context.Background()

	_, err := w.Courts(ctx)
	require.NoError(t, err)

	// the stale list outlives the short read timeout but is not taken as the answer
	benches, err := w.Benches(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, bombay[1:], benches)
	<-repopulated

	// re-selecting the same court keeps its unchanged list
	f.OnSelect[courtSelector] = nil
	benches, err = w.Benches(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, bombay[1:], benches)

	// a different court whose list never changes times out
	_, err = w.Benches(ctx, "26")
	require.Error(t, err)
	assert.True(t, browser.IsTimeout(err))
}

func TestCaseWorkflowBenchesAcceptClearedList(t *testing.T) {
	same := []browser.Option{{Value: "0", Label: "Select Bench"}, {Value: "1", Label: "Principal Bench"}}

	f := newCasePortal(answerWithCase)
	f.Options[benchSelector] = same
	f.OnSelect[courtSelector] = func(f *browsertest.Fake, value string) {
		f.SetOptions(benchSelector, same[:1])
		go func() {
			time.Sleep(150 * time.Millisecond)
			f.SetOptions(benchSelector, same)
		}()
	}

	opts := testWorkflowOptions()
	opts.StepTimeout = time.Second
	w := NewCaseStatusWorkflow(f, newTestParser(t, &stubFetcher{}), opts, logger.NewNop())
	ctx := context.Background()

	_, err := w.Courts(ctx)
	require.NoError(t, err)

	benches, err := w.Benches(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, same[1:], benches)
}
