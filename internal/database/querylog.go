package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Query types recorded in the audit log
const (
	QueryTypeCaseStatus = "case_status"
	QueryTypeCauseList  = "cause_list"
)

// QueryRecorder appends audit entries
type QueryRecorder interface {
	Record(ctx context.Context, entry *QueryLog) error
}

// QueryStats summarises the audit log
type QueryStats struct {
	TotalQueries      int64 `json:"total_queries"`
	SuccessfulQueries int64 `json:"successful_queries"`
	CasesFound        int64 `json:"cases_found"`
	CauseListEntries  int64 `json:"cause_list_entries"`
}

// QueryLogStore is the gorm-backed audit log. Entries are only ever inserted.
type QueryLogStore struct {
	db *gorm.DB
}

func NewQueryLogStore(db *gorm.DB) *QueryLogStore {
	return &QueryLogStore{db: db}
}

// Record appends entry, stamping QueryTime when unset
func (s *QueryLogStore) Record(ctx context.Context, entry *QueryLog) error {
	if entry.QueryTime.IsZero() {
		entry.QueryTime = time.Now()
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to record query log: %w", err)
	}
	return nil
}

// Recent returns the latest n entries, newest first
func (s *QueryLogStore) Recent(ctx context.Context, n int) ([]QueryLog, error) {
	var logs []QueryLog
	err := s.db.WithContext(ctx).
		Order("query_time DESC").
		Order("id DESC").
		Limit(n).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load query logs: %w", err)
	}
	return logs, nil
}

// Stats counts queries and stored records
func (s *QueryLogStore) Stats(ctx context.Context) (QueryStats, error) {
	var stats QueryStats
	db := s.db.WithContext(ctx)

	if err := db.Model(&QueryLog{}).Count(&stats.TotalQueries).Error; err != nil {
		return stats, err
	}
	if err := db.Model(&QueryLog{}).Where("success = ?", true).Count(&stats.SuccessfulQueries).Error; err != nil {
		return stats, err
	}
	if err := db.Model(&Case{}).Count(&stats.CasesFound).Error; err != nil {
		return stats, err
	}
	if err := db.Model(&CauseListEntry{}).Count(&stats.CauseListEntries).Error; err != nil {
		return stats, err
	}
	return stats, nil
}
