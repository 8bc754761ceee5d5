package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrCaseNotFound is returned when no stored case has the requested CNR
var ErrCaseNotFound = errors.New("case not found")

// NormalizeCNR is the stored form of a case registration number
func NormalizeCNR(cnr string) string {
	return strings.ToUpper(strings.TrimSpace(cnr))
}

// Reconciler writes extraction output into the database. Case records are
// upserted by CNR; their child tables are replaced wholesale so they always
// mirror the latest extraction.
type Reconciler struct {
	db *gorm.DB
}

// NewReconciler creates a reconciler over db
func NewReconciler(db *gorm.DB) *Reconciler {
	return &Reconciler{db: db}
}

// ReconcileCase upserts rec atomically and returns the stored case with its
// children loaded.
func (r *Reconciler) ReconcileCase(ctx context.Context, rec *CaseRecord) (*Case, error) {
	cnr := NormalizeCNR(rec.CNR())
	if cnr == "" {
		return nil, ErrMissingCNR
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c Case
		err := tx.Where(Case{CNRNumber: cnr}).
			Assign(map[string]interface{}{
				"petitioner": rec.Petitioner,
				"respondent": rec.Respondent,
			}).
			FirstOrCreate(&c).Error
		if err != nil {
			return fmt.Errorf("failed to upsert case %s: %w", cnr, err)
		}

		children := []interface{}{
			&CaseDetails{}, &CaseStatus{}, &CategoryDetails{},
			&CaseHistory{}, &Order{}, &IADetail{},
		}
		for _, model := range children {
			if err := tx.Where("case_id = ?", c.ID).Delete(model).Error; err != nil {
				return fmt.Errorf("failed to clear %T for case %s: %w", model, cnr, err)
			}
		}

		for _, row := range buildChildren(c.ID, rec) {
			if err := tx.Create(row).Error; err != nil {
				return fmt.Errorf("failed to store %T for case %s: %w", row, cnr, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.LoadCase(ctx, cnr)
}

// buildChildren maps the label-keyed record onto the child models. Empty
// collections are skipped since gorm rejects empty batch inserts.
func buildChildren(caseID uint, rec *CaseRecord) []interface{} {
	cd := rec.CaseDetails
	cs := rec.CaseStatus
	cat := rec.CategoryDetails

	rows := []interface{}{
		&CaseDetails{
			CaseID:             caseID,
			FilingNumber:       cd["Filing Number"],
			FilingDate:         ParseDate(cd["Filing Date"]),
			RegistrationNumber: cd["Registration Number"],
			RegistrationDate:   ParseDate(cd["Registration Date"]),
		},
		&CaseStatus{
			CaseID:              caseID,
			FirstHearingDate:    ParseDate(cs["First Hearing Date"]),
			NextHearingDate:     ParseDate(cs["Next Hearing Date"]),
			StageOfCase:         cs["Stage of Case"],
			CourtNumberAndJudge: cs["Court Number and Judge"],
			BenchType:           cs["Bench Type"],
			JudicialBranch:      cs["Judicial Branch"],
			State:               cs["State"],
			District:            cs["District"],
			NotBeforeMe:         cs["Not Before Me"],
		},
		&CategoryDetails{
			CaseID:      caseID,
			Category:    cat["Category"],
			SubCategory: cat["Sub Category"],
		},
	}

	if len(rec.CaseHistory) > 0 {
		history := make([]CaseHistory, 0, len(rec.CaseHistory))
		for _, h := range rec.CaseHistory {
			history = append(history, CaseHistory{
				CaseID:           caseID,
				CauseListType:    h.CauseListType,
				Judge:            h.Judge,
				BusinessOnDate:   ParseDate(h.BusinessOnDate),
				HearingDate:      ParseDate(h.HearingDate),
				PurposeOfHearing: h.PurposeOfHearing,
			})
		}
		rows = append(rows, &history)
	}

	if len(rec.Orders) > 0 {
		orders := make([]Order, 0, len(rec.Orders))
		for _, o := range rec.Orders {
			orders = append(orders, Order{
				CaseID:      caseID,
				OrderNumber: o.OrderNumber,
				OrderOn:     o.OrderOn,
				Judge:       o.Judge,
				OrderDate:   ParseDate(o.OrderDate),
				PDFPath:     o.PDFURL,
			})
		}
		rows = append(rows, &orders)
	}

	if len(rec.IADetails) > 0 {
		ias := make([]IADetail, 0, len(rec.IADetails))
		for _, ia := range rec.IADetails {
			ias = append(ias, IADetail{
				CaseID:       caseID,
				IANumber:     ia.IANumber,
				Party:        ia.Party,
				DateOfFiling: ia.DateOfFiling,
				NextDate:     ia.NextDate,
				IAStatus:     ia.Status,
			})
		}
		rows = append(rows, &ias)
	}

	return rows
}

func (r *Reconciler) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Details").
		Preload("Status").
		Preload("CategoryDetails").
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Orders", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("IADetails", func(db *gorm.DB) *gorm.DB { return db.Order("id") })
}

// LoadCase returns the stored case for cnr with every child loaded
func (r *Reconciler) LoadCase(ctx context.Context, cnr string) (*Case, error) {
	cnr = NormalizeCNR(cnr)
	var c Case
	err := r.preloaded(ctx).Where("cnr_number = ?", cnr).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCaseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load case %s: %w", cnr, err)
	}
	return &c, nil
}

// ListCases returns one page of stored cases, newest first, and the total
func (r *Reconciler) ListCases(ctx context.Context, page, limit int) ([]Case, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&Case{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count cases: %w", err)
	}

	var cases []Case
	err := r.preloaded(ctx).
		Offset((page - 1) * limit).
		Limit(limit).
		Order("updated_at DESC").
		Find(&cases).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list cases: %w", err)
	}
	return cases, total, nil
}

// DeleteCase removes a case and everything it owns
func (r *Reconciler) DeleteCase(ctx context.Context, cnr string) error {
	cnr = NormalizeCNR(cnr)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c Case
		err := tx.Where("cnr_number = ?", cnr).First(&c).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCaseNotFound
		}
		if err != nil {
			return err
		}
		return tx.Select(clause.Associations).Delete(&c).Error
	})
}

var serialHeader = regexp.MustCompile(`(?i)^(s|sr|sl|serial)\.?\s*(no|number)\.?$`)

// SerialColumn returns the header holding row serial numbers, or ""
func SerialColumn(headers []string) string {
	for _, h := range headers {
		if serialHeader.MatchString(strings.TrimSpace(h)) {
			return h
		}
	}
	return ""
}

// UpsertCauseList stores every row of list keyed by (list date, serial
// number). Rows without a serial column are numbered by position.
func (r *Reconciler) UpsertCauseList(ctx context.Context, list *CauseList) (int, error) {
	if len(list.Rows) == 0 {
		return 0, nil
	}

	listDate := time.Date(list.Date.Year(), list.Date.Month(), list.Date.Day(), 0, 0, 0, 0, time.UTC)
	serialCol := SerialColumn(list.Headers)

	// the same serial twice in one batch would hit the conflict clause twice
	bySerial := make(map[string]int)
	entries := make([]CauseListEntry, 0, len(list.Rows))
	for i, row := range list.Rows {
		serial := strings.TrimSpace(row[serialCol].Text)
		if serialCol == "" || serial == "" {
			serial = strconv.Itoa(i + 1)
		}

		entry := CauseListEntry{
			ListDate:     listDate,
			SerialNumber: serial,
			CourtID:      list.CourtID,
			BenchID:      list.BenchID,
			Columns:      map[string]CauseListCell(row),
		}
		if idx, ok := bySerial[serial]; ok {
			entries[idx] = entry
			continue
		}
		bySerial[serial] = len(entries)
		entries = append(entries, entry)
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "list_date"}, {Name: "serial_number"}},
		DoUpdates: clause.AssignmentColumns([]string{"court_id", "bench_id", "columns", "updated_at"}),
	}).Create(&entries).Error
	if err != nil {
		return 0, fmt.Errorf("failed to upsert cause list for %s: %w", listDate.Format("2006-01-02"), err)
	}
	return len(entries), nil
}

// CauseListFor returns the stored entries for a list date
func (r *Reconciler) CauseListFor(ctx context.Context, date time.Time) ([]CauseListEntry, error) {
	listDate := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	var entries []CauseListEntry
	err := r.db.WithContext(ctx).
		Where("list_date = ?", listDate).
		Order("id").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load cause list: %w", err)
	}
	return entries, nil
}
