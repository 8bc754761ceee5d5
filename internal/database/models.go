package database

import (
	"time"

	"gorm.io/gorm"
)

// QueryLog is the append-only audit trail of portal queries
type QueryLog struct {
	gorm.Model
	QueryType    string    `json:"query_type" gorm:"index"`
	CourtID      string    `json:"court_id"`
	BenchID      string    `json:"bench_id"`
	CaseType     string    `json:"case_type"`
	CaseNumber   string    `json:"case_number"`
	FilingYear   string    `json:"filing_year"`
	CauseDate    string    `json:"cause_date"`
	Outcome      string    `json:"outcome"`
	Success      bool      `json:"success"`
	RawResponse  string    `json:"raw_response" gorm:"type:text"`
	ErrorMessage string    `json:"error_message"`
	QueryTime    time.Time `json:"query_time"`
	IPAddress    string    `json:"ip_address"`
}

// Case is keyed by its CNR and owns every other case table
type Case struct {
	ID         uint      `json:"id" gorm:"primarykey"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	CNRNumber  string    `json:"cnr_number" gorm:"uniqueIndex;not null"`
	Petitioner string    `json:"petitioner" gorm:"type:text"`
	Respondent string    `json:"respondent" gorm:"type:text"`

	Details         *CaseDetails     `json:"details,omitempty" gorm:"constraint:OnDelete:CASCADE"`
	Status          *CaseStatus      `json:"status,omitempty" gorm:"constraint:OnDelete:CASCADE"`
	CategoryDetails *CategoryDetails `json:"category_details,omitempty" gorm:"constraint:OnDelete:CASCADE"`
	History         []CaseHistory    `json:"history" gorm:"constraint:OnDelete:CASCADE"`
	Orders          []Order          `json:"orders" gorm:"constraint:OnDelete:CASCADE"`
	IADetails       []IADetail       `json:"ia_details" gorm:"constraint:OnDelete:CASCADE"`
}

type CaseDetails struct {
	ID                 uint       `json:"-" gorm:"primarykey"`
	CaseID             uint       `json:"-" gorm:"uniqueIndex"`
	FilingNumber       string     `json:"filing_number"`
	FilingDate         *time.Time `json:"filing_date"`
	RegistrationNumber string     `json:"registration_number"`
	RegistrationDate   *time.Time `json:"registration_date"`
}

type CaseStatus struct {
	ID                  uint       `json:"-" gorm:"primarykey"`
	CaseID              uint       `json:"-" gorm:"uniqueIndex"`
	FirstHearingDate    *time.Time `json:"first_hearing_date"`
	NextHearingDate     *time.Time `json:"next_hearing_date"`
	StageOfCase         string     `json:"stage_of_case"`
	CourtNumberAndJudge string     `json:"court_number_and_judge"`
	BenchType           string     `json:"bench_type"`
	JudicialBranch      string     `json:"judicial_branch"`
	State               string     `json:"state"`
	District            string     `json:"district"`
	NotBeforeMe         string     `json:"not_before_me"`
}

type CategoryDetails struct {
	ID          uint   `json:"-" gorm:"primarykey"`
	CaseID      uint   `json:"-" gorm:"uniqueIndex"`
	Category    string `json:"category"`
	SubCategory string `json:"sub_category"`
}

type CaseHistory struct {
	ID               uint       `json:"-" gorm:"primarykey"`
	CaseID           uint       `json:"-" gorm:"index"`
	CauseListType    string     `json:"cause_list_type"`
	Judge            string     `json:"judge"`
	BusinessOnDate   *time.Time `json:"business_on_date"`
	HearingDate      *time.Time `json:"hearing_date"`
	PurposeOfHearing string     `json:"purpose_of_hearing" gorm:"type:text"`
}

type Order struct {
	ID          uint       `json:"-" gorm:"primarykey"`
	CaseID      uint       `json:"-" gorm:"index"`
	OrderNumber string     `json:"order_number"`
	OrderOn     string     `json:"order_on"`
	Judge       string     `json:"judge"`
	OrderDate   *time.Time `json:"order_date"`
	// PDFPath is empty when the source row had no document link
	PDFPath string `json:"pdf_path"`
}

type IADetail struct {
	ID           uint   `json:"-" gorm:"primarykey"`
	CaseID       uint   `json:"-" gorm:"index"`
	IANumber     string `json:"ia_number"`
	Party        string `json:"party"`
	DateOfFiling string `json:"date_of_filing"`
	NextDate     string `json:"next_date"`
	IAStatus     string `json:"ia_status"`
}

// CauseListEntry is one published cause-list row, keyed by list date and
// serial number
type CauseListEntry struct {
	ID           uint                     `json:"-" gorm:"primarykey"`
	ListDate     time.Time                `json:"list_date" gorm:"uniqueIndex:idx_cause_list_date_serial;not null"`
	SerialNumber string                   `json:"serial_number" gorm:"uniqueIndex:idx_cause_list_date_serial;not null"`
	CourtID      string                   `json:"court_id"`
	BenchID      string                   `json:"bench_id"`
	Columns      map[string]CauseListCell `json:"columns" gorm:"serializer:json;type:text"`
	CreatedAt    time.Time                `json:"created_at"`
	UpdatedAt    time.Time                `json:"updated_at"`
}

func (QueryLog) TableName() string {
	return "query_logs"
}

func (Case) TableName() string {
	return "cases"
}

func (CaseDetails) TableName() string {
	return "case_details"
}

func (CaseStatus) TableName() string {
	return "case_statuses"
}

func (CategoryDetails) TableName() string {
	return "category_details"
}

func (CaseHistory) TableName() string {
	return "case_histories"
}

func (Order) TableName() string {
	return "orders"
}

func (IADetail) TableName() string {
	return "ia_details"
}

func (CauseListEntry) TableName() string {
	return "cause_list_entries"
}
