package scraper

import (
	"context"
	"net/http"
	"net/url"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/JustJay7/highcourt-fetcher/pkg/logger"
	"github.com/stretchr/testify/require"
)

const portalBase = "https://hcservices.ecourts.gov.in/hcservices/"

const caseResultHTML = `
<div id="caseBusinessDiv4"></div>
<table class="case_details_table">
  <tr><td>Filing Number</td><td>WP/500/2024</td><td>Filing Date</td><td>10-01-2024</td></tr>
  <tr><td>Registration Number</td><td>WP/1234/2024</td><td>Registration Date</td><td>15-01-2024</td></tr>
  <tr><td>CNR Number</td><td> DLHC010012342024 </td></tr>
</table>
<table class="table_r">
  <tr><td>First Hearing Date</td><td>20th January 2024</td></tr>
  <tr><td>Next Hearing Date</td><td>15-07-2024</td></tr>
  <tr><td>Stage of Case</td><td>ADMISSION</td></tr>
</table>
<span class="Petitioner_Advocate_table">1) ACME LTD<br>Advocate - X</span>
<span class="Respondent_Advocate_table">1) UNION OF INDIA</span>
<table id="subject_table">
  <tr><td>Category</td><td>SERVICE</td></tr>
  <tr><td>Sub Category</td><td>PENSION</td></tr>
</table>
<table class="IAheading">
  <tr><th>IA Number</th><th>Party</th><th>Date of Filing</th><th>Next Date</th><th>IA Status</th></tr>
  <tr><td>IA/1/2024</td><td>ACME</td><td>12-01-2024</td><td>--</td><td>Pending</td></tr>
</table>
<table class="history_table">
  <tr><th>Cause List Type</th><th>Judge</th><th>Business On Date</th><th>Hearing Date</th><th>Purpose of hearing</th></tr>
  <tr><td>Daily</td><td>J1</td><td>20-01-2024</td><td>20-01-2024</td><td>Admission</td></tr>
  <tr><td>Daily</td><td>J1</td><td>01-02-2024</td><td>01-02-2024</td><td>Arguments</td></tr>
</table>
<table class="order_table">
  <tr><th>Order Number</th><th>Order on</th><th>Judge</th><th>Order Date</th><th>Order Details</th></tr>
  <tr><td>1</td><td>Judgement</td><td>J1</td><td>20-01-2024</td><td><a href="cases/display_pdf.php?filename=abc">View</a></td></tr>
  <tr><td>2</td><td>Order</td><td>J1</td><td>01-02-2024</td><td>Not uploaded</td></tr>
</table>`

const causeListHTML = `
<table class="causelistTbl">
  <thead><tr><th>Sr No</th><th>Bench</th><th>Cause List Type</th><th>View Causelist</th></tr></thead>
  <tbody>
    <tr><td>1</td><td>DB-I</td><td>Daily</td><td><a href="cases/causelist.php?id=1">View</a></td></tr>
    <tr><td>2</td><td>SB-II</td><td>Supplementary</td><td><a href="cases/causelist.php?id=2">View</a></td></tr>
  </tbody>
</table>`

type fetchCall struct {
	URL     string
	RelPath string
	Cookies []*http.Cookie
}

// stubFetcher records fetches and pretends every document is stored
type stubFetcher struct {
	mu    sync.Mutex
	calls []fetchCall
	err   error
}

func (s *stubFetcher) Fetch(_ context.Context, rawURL string, cookies []*http.Cookie, relPath string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, fetchCall{URL: rawURL, RelPath: relPath, Cookies: cookies})
	if s.err != nil {
		return "", s.err
	}
	return path.Join("/static/highcourt", relPath), nil
}

func (s *stubFetcher) Calls() []fetchCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]fetchCall(nil), s.calls...)
}

func newTestParser(t *testing.T, fetcher ArtifactFetcher) *Parser {
	t.Helper()
	base, err := url.Parse(portalBase)
	require.NoError(t, err)
	return NewParser(logger.NewNop(), base, fetcher)
}

func testWorkflowOptions() WorkflowOptions {
	return WorkflowOptions{
		PortalURL:        portalBase + "main.php",
		StepTimeout:      200 * time.Millisecond,
		ProbeTimeout:     20 * time.Millisecond,
		RowRetryAttempts: 3,
		RowRetryDelay:    time.Millisecond,
	}
}
