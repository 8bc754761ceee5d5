package scraper

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"
)

// ExtractionError reports markup that does not match what a section expects
type ExtractionError struct {
	Section string
	Reason  string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract %s: %s", e.Section, e.Reason)
}

// keyValueTable is a table of alternating label and value cells
type keyValueTable struct {
	section  string
	selector string
}

var (
	caseDetailsTable = keyValueTable{section: "case_details", selector: "table.case_details_table"}
	caseStatusTable  = keyValueTable{section: "case_status", selector: "table.table_r"}
	categoryTable    = keyValueTable{section: "category_details", selector: "table#subject_table"}
)

// extract returns the label/value pairs and whether the table was present
func (t keyValueTable) extract(doc *goquery.Document) (map[string]string, bool, error) {
	table := doc.Find(t.selector).First()
	if table.Length() == 0 {
		return map[string]string{}, false, nil
	}

	values := map[string]string{}
	var err error
	table.Find("tr").EachWithBreak(func(i int, row *goquery.Selection) bool {
		cells := row.ChildrenFiltered("td")
		if cells.Length()%2 != 0 {
			err = &ExtractionError{
				Section: t.section,
				Reason:  fmt.Sprintf("row %d has %d cells, want label/value pairs", i, cells.Length()),
			}
			return false
		}
		for j := 0; j+1 < cells.Length(); j += 2 {
			values[cellText(cells.Eq(j))] = cellText(cells.Eq(j + 1))
		}
		return true
	})
	if err != nil {
		return nil, true, err
	}
	return values, true, nil
}

// rowTable is a repeating-row table with a header row and fixed columns
type rowTable struct {
	section  string
	selector string
	columns  []string
}

var (
	iaTable = rowTable{
		section:  "ia_details",
		selector: "table.IAheading",
		columns:  []string{"IA Number", "Party", "Date of Filing", "Next Date", "IA Status"},
	}
	historyTable = rowTable{
		section:  "case_history",
		selector: "table.history_table",
		columns:  []string{"Cause List Type", "Judge", "Business On Date", "Hearing Date", "Purpose of hearing"},
	}
	orderTable = rowTable{
		section:  "orders",
		selector: "table.order_table",
		columns:  []string{"Order Number", "Order on", "Judge", "Order Date", "Order Details"},
	}
)

// named maps the schema's column names to the text of cells
func (t rowTable) named(cells *goquery.Selection) map[string]string {
	values := make(map[string]string, len(t.columns))
	for i, c := range t.columns {
		values[c] = cellText(cells.Eq(i))
	}
	return values
}

// cell returns the cell under a named column, or an empty selection
func (t rowTable) cell(cells *goquery.Selection, name string) *goquery.Selection {
	for i, c := range t.columns {
		if c == name {
			return cells.Eq(i)
		}
	}
	return cells.Slice(0, 0)
}

// rows returns the cells of every data row. A missing table yields no rows;
// a row whose width differs from the schema is an ExtractionError.
func (t rowTable) rows(doc *goquery.Document) ([]*goquery.Selection, error) {
	trs := doc.Find(t.selector).First().Find("tr")
	if trs.Length() < 2 {
		return nil, nil
	}

	var (
		out []*goquery.Selection
		err error
	)
	trs.Slice(1, goquery.ToEnd).EachWithBreak(func(i int, row *goquery.Selection) bool {
		cells := row.ChildrenFiltered("td")
		switch {
		case cells.Length() == 0:
			return true
		case cells.Length() != len(t.columns):
			err = &ExtractionError{
				Section: t.section,
				Reason:  fmt.Sprintf("row %d has %d cells, want %d", i+1, cells.Length(), len(t.columns)),
			}
			return false
		}
		out = append(out, cells)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
