package database

import (
	"encoding/json"
	"errors"
	"time"
)

// CNRKey is the case_details label holding the case registration number
const CNRKey = "CNR Number"

// ErrMissingCNR is returned when a case record carries no CNR
var ErrMissingCNR = errors.New("case record has no CNR Number")

// CaseRecord is the extraction output for one case, independent of markup.
// JSON keys follow the portal's own labels.
type CaseRecord struct {
	CaseDetails     map[string]string `json:"case_details"`
	CaseStatus      map[string]string `json:"case_status"`
	Petitioner      string            `json:"petitioner"`
	Respondent      string            `json:"respondent"`
	CategoryDetails map[string]string `json:"category_details"`
	IADetails       []IARow           `json:"ia_details"`
	CaseHistory     []HistoryRow      `json:"case_history"`
	Orders          []OrderRow        `json:"orders"`
}

// CNR returns the case registration number, or "" when absent
func (r *CaseRecord) CNR() string {
	if r == nil {
		return ""
	}
	return r.CaseDetails[CNRKey]
}

type IARow struct {
	IANumber     string `json:"IA Number"`
	Party        string `json:"Party"`
	DateOfFiling string `json:"Date of Filing"`
	NextDate     string `json:"Next Date"`
	Status       string `json:"IA Status"`
}

type HistoryRow struct {
	CauseListType    string `json:"Cause List Type"`
	Judge            string `json:"Judge"`
	BusinessOnDate   string `json:"Business On Date"`
	HearingDate      string `json:"Hearing Date"`
	PurposeOfHearing string `json:"Purpose of hearing"`
}

type OrderRow struct {
	OrderNumber  string `json:"Order Number"`
	OrderOn      string `json:"Order on"`
	Judge        string `json:"Judge"`
	OrderDate    string `json:"Order Date"`
	OrderDetails string `json:"Order Details"`
	// PDFURL is the static path of the downloaded order, empty without a link
	PDFURL string `json:"PDF URL"`
}

// CauseListCell is a cause-list cell: plain text, or a link whose document
// was fetched and whose Href points at the stored copy.
type CauseListCell struct {
	Text string
	Href string
	Link bool
}

func (c CauseListCell) MarshalJSON() ([]byte, error) {
	if !c.Link {
		return json.Marshal(c.Text)
	}
	return json.Marshal(struct {
		Text string `json:"text"`
		Href string `json:"href"`
	}{c.Text, c.Href})
}

func (c *CauseListCell) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*c = CauseListCell{Text: text}
		return nil
	}

	var link struct {
		Text string `json:"text"`
		Href string `json:"href"`
	}
	if err := json.Unmarshal(data, &link); err != nil {
		return err
	}
	*c = CauseListCell{Text: link.Text, Href: link.Href, Link: true}
	return nil
}

// CauseListRow maps a column header to its cell
type CauseListRow map[string]CauseListCell

// CauseList is the extraction output of one cause-list query
type CauseList struct {
	CourtID string
	BenchID string
	Date    time.Time
	// Headers keeps the column order as published
	Headers []string
	Rows    []CauseListRow
}
