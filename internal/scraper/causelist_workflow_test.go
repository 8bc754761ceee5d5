package scraper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JustJay7/highcourt-fetcher/internal/browser"
	"github.com/JustJay7/highcourt-fetcher/internal/browser/browsertest"
	"github.com/JustJay7/highcourt-fetcher/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCauseDate = time.Date(2025, time.October, 2, 0, 0, 0, 0, time.UTC)

// newCauseListPortal scripts a fake portal for the cause-list wizard. The
// result container holds initial until the search is submitted, then answer.
func newCauseListPortal(initial, answer string) *browsertest.Fake {
	f := browsertest.New()
	f.Show(causeMenuSelector, menuOKSelector, captchaRefreshSelector,
		captchaImageSelector, captchaInputSelector, causeDateSelector, causeGoSelector)
	f.Screenshot = []byte("png-bytes")
	f.HTML[causeResultSelector] = initial
	f.Options[courtSelector] = []browser.Option{
		{Value: "0", Label: "Select High Court"},
		{Value: "26", Label: "High Court of Delhi"},
	}
	f.OnSelect[courtSelector] = func(f *browsertest.Fake, value string) {
		f.Options[benchSelector] = []browser.Option{
			{Value: "1", Label: "Principal Bench"},
			{Value: "2", Label: "Vacation Bench"},
		}
	}
	f.OnClick[causeGoSelector] = func(f *browsertest.Fake) {
		f.HTML[causeResultSelector] = answer
	}
	return f
}

func walkCauseListToCaptcha(t *testing.T, w *CauseListWorkflow) {
	t.Helper()
	ctx := context.Background()

	courts, err := w.Courts(ctx)
	require.NoError(t, err)
	require.Len(t, courts, 1)

	benches, err := w.Benches(ctx, "26")
	require.NoError(t, err)
	require.Len(t, benches, 2)

	require.NoError(t, w.SelectBench(ctx, "1"))

	_, err = w.Captcha(ctx)
	require.NoError(t, err)
}

func newTestCauseListWorkflow(t *testing.T, f *browsertest.Fake, fetcher *stubFetcher) *CauseListWorkflow {
	t.Helper()
	return NewCauseListWorkflow(f, newTestParser(t, fetcher), testWorkflowOptions(), logger.NewNop())
}

func TestCauseListWorkflowFetch(t *testing.T) {
	f := newCauseListPortal("", causeListHTML)
	fetcher := &stubFetcher{}
	w := newTestCauseListWorkflow(t, f, fetcher)
	walkCauseListToCaptcha(t, w)

	res, err := w.FetchCauseList(context.Background(), CauseListQuery{Date: testCauseDate, Captcha: "abcd"})
	require.NoError(t, err)

	assert.Equal(t, OutcomeSuccess, res.Outcome)
	require.NotNil(t, res.List)
	assert.Equal(t, "26", res.List.CourtID)
	assert.Equal(t, "1", res.List.BenchID)
	assert.Equal(t, testCauseDate, res.List.Date)
	assert.Len(t, res.List.Headers, 4)
	assert.Len(t, res.List.Rows, 2)
	assert.Len(t, fetcher.Calls(), 2)

	assert.Equal(t, 1, f.Count("set "+causeDateSelector+" 02-10-2025"))
	assert.Equal(t, 1, f.Count("type "+captchaInputSelector+" abcd"))
	assert.Zero(t, f.Count("click "+resetButtonSelector))
	assert.Equal(t, StateBenchSelected, w.State())
}

func TestCauseListWorkflowOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		initial string
		answer  string
		want    Outcome
	}{
		{"invalid captcha", "", "Invalid Captcha", OutcomeInvalidCaptcha},
		{"invalid data", "", `{"Error":"ERROR_VAL"}`, OutcomeInvalidData},
		{"no list", "", "<p>No cause List Available for this date...!!</p>", OutcomeNoListAvailable},
		{"container never filled", "", "", OutcomeInvalidCaptcha},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCauseListPortal(tt.initial, tt.answer)
			w := newTestCauseListWorkflow(t, f, &stubFetcher{})
			walkCauseListToCaptcha(t, w)

			res, err := w.FetchCauseList(context.Background(), CauseListQuery{Date: testCauseDate, Captcha: "abcd"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Outcome)
			assert.Nil(t, res.List)
		})
	}
}

func TestCauseListWorkflowSwitchesBench(t *testing.T) {
	f := newCauseListPortal("", causeListHTML)
	w := newTestCauseListWorkflow(t, f, &stubFetcher{})
	walkCauseListToCaptcha(t, w)

	res, err := w.FetchCauseList(context.Background(), CauseListQuery{
		CourtID: "26",
		BenchID: "2",
		Date:    testCauseDate,
		Captcha: "abcd",
	})
	require.NoError(t, err)
	assert.Equal(t, "2", res.List.BenchID)
	assert.Equal(t, 1, f.Count("select "+benchSelector+" 2"))
}

func TestCauseListWorkflowMissingContainer(t *testing.T) {
	f := newCauseListPortal("", "")
	delete(f.HTML, causeResultSelector)
	f.OnClick[causeGoSelector] = nil
	w := newTestCauseListWorkflow(t, f, &stubFetcher{})
	walkCauseListToCaptcha(t, w)

	_, err := w.FetchCauseList(context.Background(), CauseListQuery{Date: testCauseDate, Captcha: "abcd"})
	require.Error(t, err)
	assert.True(t, browser.IsTimeout(err))
}

func TestCauseListWorkflowStepOrder(t *testing.T) {
	f := newCauseListPortal("", causeListHTML)
	w := newTestCauseListWorkflow(t, f, &stubFetcher{})
	ctx := context.Background()

	err := w.SelectBench(ctx, "1")
	assert.True(t, errors.Is(err, ErrStepOutOfOrder))

	_, err = w.FetchCauseList(ctx, CauseListQuery{Date: testCauseDate})
	assert.True(t, errors.Is(err, ErrStepOutOfOrder))

	_, err = w.Courts(ctx)
	require.NoError(t, err)
	_, err = w.Captcha(ctx)
	assert.True(t, errors.Is(err, ErrStepOutOfOrder))
}
