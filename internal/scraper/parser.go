package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/JustJay7/highcourt-fetcher/internal/database"
	"github.com/JustJay7/highcourt-fetcher/pkg/logger"
	"github.com/PuerkitoBio/goquery"
)

// ArtifactFetcher stores a linked document and returns its static path
type ArtifactFetcher interface {
	Fetch(ctx context.Context, rawURL string, cookies []*http.Cookie, relPath string) (string, error)
}

// Parser turns portal result markup into canonical records
type Parser struct {
	logger  *logger.Logger
	base    *url.URL
	fetcher ArtifactFetcher
}

// NewParser creates a parser resolving links against base
func NewParser(logger *logger.Logger, base *url.URL, fetcher ArtifactFetcher) *Parser {
	return &Parser{logger: logger, base: base, fetcher: fetcher}
}

// FullCaseNumber builds the identifier the result table shows for a case:
// the case type label up to its first "(", then number and year.
func FullCaseNumber(caseTypeText, number, year string) string {
	abbrev := caseTypeText
	if i := strings.Index(abbrev, "("); i >= 0 {
		abbrev = abbrev[:i]
	}
	return abbrev + "/" + number + "/" + year
}

// OrderFilename derives the stored name of an order document
func OrderFilename(fullCaseNumber, orderDate string) string {
	return sanitizeName(fullCaseNumber) + "_" + digitsOnly(orderDate) + ".pdf"
}

// ParseCase extracts a case record from the case result container. The
// case details table and its CNR are required; every other section may be
// absent and then comes back empty.
func (p *Parser) ParseCase(ctx context.Context, markup, fullCaseNumber string, cookies []*http.Cookie) (*database.CaseRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse case markup: %w", err)
	}

	rec := &database.CaseRecord{
		IADetails:   []database.IARow{},
		CaseHistory: []database.HistoryRow{},
		Orders:      []database.OrderRow{},
	}

	var found bool
	if rec.CaseDetails, found, err = caseDetailsTable.extract(doc); err != nil {
		return nil, err
	}
	if !found {
		return nil, &ExtractionError{Section: caseDetailsTable.section, Reason: caseDetailsTable.selector + " not found"}
	}
	if strings.TrimSpace(rec.CNR()) == "" {
		return nil, &ExtractionError{Section: caseDetailsTable.section, Reason: "no " + database.CNRKey}
	}

	if rec.CaseStatus, _, err = caseStatusTable.extract(doc); err != nil {
		return nil, err
	}
	if rec.CategoryDetails, _, err = categoryTable.extract(doc); err != nil {
		return nil, err
	}

	rec.Petitioner = cellText(doc.Find("span.Petitioner_Advocate_table").First())
	rec.Respondent = cellText(doc.Find("span.Respondent_Advocate_table").First())

	rows, err := iaTable.rows(doc)
	if err != nil {
		return nil, err
	}
	for _, cells := range rows {
		v := iaTable.named(cells)
		rec.IADetails = append(rec.IADetails, database.IARow{
			IANumber:     v["IA Number"],
			Party:        v["Party"],
			DateOfFiling: v["Date of Filing"],
			NextDate:     v["Next Date"],
			Status:       v["IA Status"],
		})
	}

	if rows, err = historyTable.rows(doc); err != nil {
		return nil, err
	}
	for _, cells := range rows {
		v := historyTable.named(cells)
		rec.CaseHistory = append(rec.CaseHistory, database.HistoryRow{
			CauseListType:    v["Cause List Type"],
			Judge:            v["Judge"],
			BusinessOnDate:   v["Business On Date"],
			HearingDate:      v["Hearing Date"],
			PurposeOfHearing: v["Purpose of hearing"],
		})
	}

	if rows, err = orderTable.rows(doc); err != nil {
		return nil, err
	}
	for _, cells := range rows {
		v := orderTable.named(cells)
		order := database.OrderRow{
			OrderNumber:  v["Order Number"],
			OrderOn:      v["Order on"],
			Judge:        v["Judge"],
			OrderDate:    v["Order Date"],
			OrderDetails: v["Order Details"],
		}
		if href, ok := orderTable.cell(cells, "Order Details").Find("a").First().Attr("href"); ok {
			rel := path.Join("orders", OrderFilename(fullCaseNumber, order.OrderDate))
			order.PDFURL = p.fetchLinked(ctx, href, cookies, rel)
		}
		rec.Orders = append(rec.Orders, order)
	}

	return rec, nil
}

// ParseCauseList extracts the cause-list table. Column names come from the
// table head; linked cells are fetched and replaced by their stored copy.
func (p *Parser) ParseCauseList(ctx context.Context, markup string, date time.Time, cookies []*http.Cookie) ([]string, []database.CauseListRow, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse cause list markup: %w", err)
	}

	table := doc.Find("table.causelistTbl").First()
	if table.Length() == 0 {
		return nil, nil, &ExtractionError{Section: "cause_list", Reason: "table.causelistTbl not found"}
	}

	var headers []string
	table.Find("thead th").Each(func(_ int, th *goquery.Selection) {
		headers = append(headers, cellText(th))
	})
	if len(headers) == 0 {
		return nil, nil, &ExtractionError{Section: "cause_list", Reason: "no column headers"}
	}

	stamp := date.Format("02012006")
	rows := []database.CauseListRow{}
	table.Find("tbody tr").EachWithBreak(func(i int, tr *goquery.Selection) bool {
		cells := tr.ChildrenFiltered("td")
		if cells.Length() > len(headers) {
			err = &ExtractionError{
				Section: "cause_list",
				Reason:  fmt.Sprintf("row %d has %d cells, want at most %d", i+1, cells.Length(), len(headers)),
			}
			return false
		}

		row := database.CauseListRow{}
		cells.Each(func(j int, td *goquery.Selection) {
			a := td.Find("a").First()
			if a.Length() == 0 {
				row[headers[j]] = database.CauseListCell{Text: cellText(td)}
				return
			}
			href, _ := a.Attr("href")
			rel := path.Join("causelists", stamp, fmt.Sprintf("%s_%d.pdf", stamp, i+1))
			row[headers[j]] = database.CauseListCell{
				Text: cellText(a),
				Href: p.fetchLinked(ctx, href, cookies, rel),
				Link: true,
			}
		})
		rows = append(rows, row)
		return true
	})
	if err != nil {
		return nil, nil, err
	}
	return headers, rows, nil
}

// fetchLinked downloads a linked document. Failures are logged and leave the
// link empty.
func (p *Parser) fetchLinked(ctx context.Context, href string, cookies []*http.Cookie, relPath string) string {
	abs, err := p.resolve(href)
	if err != nil {
		p.logger.Warn("Skipping unparseable document link", "href", href, "error", err)
		return ""
	}

	stored, err := p.fetcher.Fetch(ctx, abs, cookies, relPath)
	if err != nil {
		p.logger.Warn("Failed to fetch document", "url", abs, "path", relPath, "error", err)
		return ""
	}
	return stored
}

func (p *Parser) resolve(href string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", err
	}
	return p.base.ResolveReference(ref).String(), nil
}
