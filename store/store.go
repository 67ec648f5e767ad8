// Package store keeps a small sqlite ledger of processed papers so a daily
// batch can skip papers already handled on a previous run and keep an audit
// trail of produced artifacts.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Record is one processed (or failed) paper.
type Record struct {
	// PaperID is the arXiv identifier.
	PaperID string `gorm:"primaryKey;column:paper_id"`

	// Title at the time of processing, for log and report context.
	Title string

	// Processed is when the pipeline finished this paper.
	Processed time.Time `gorm:"index"`

	// Paths of the produced artifacts (empty when the stage didn't run).
	WechatPath      string `gorm:"column:wechat_path"`
	XiaohongshuPath string `gorm:"column:xiaohongshu_path"`
	PDFPath         string `gorm:"column:pdf_path"`

	// LastError is non-empty when the most recent attempt failed.
	LastError string `gorm:"column:last_error"`
}

func (Record) TableName() string {
	return "processed_papers"
}

// Store wraps the sqlite database.
type Store struct {
	db *gorm.DB
}

// Open opens or creates the ledger database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := path + "?_pragma=foreign_keys(1)"
	db, err := gorm.Open(sqlite.Dialector{
		DriverName: "sqlite3",
		DSN:        dsn,
	}, &gorm.Config{Logger: logger.Discard})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// IsProcessed reports whether the paper was already successfully processed.
// Papers whose last attempt failed are not considered processed, so a later
// batch retries them.
func (s *Store) IsProcessed(ctx context.Context, paperID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&Record{}).
		Where("paper_id = ? AND last_error = ?", paperID, "").
		Count(&count).Error
	return count > 0, err
}

// MarkProcessed upserts a successful record for the paper.
func (s *Store) MarkProcessed(ctx context.Context, rec Record) error {
	if rec.Processed.IsZero() {
		rec.Processed = time.Now()
	}
	rec.LastError = ""
	return s.db.WithContext(ctx).Save(&rec).Error
}

// MarkFailed upserts a failure record for the paper.
func (s *Store) MarkFailed(ctx context.Context, paperID, title string, cause error) error {
	rec := Record{
		PaperID:   paperID,
		Title:     title,
		Processed: time.Now(),
		LastError: cause.Error(),
	}
	return s.db.WithContext(ctx).Save(&rec).Error
}

// Recent returns the most recently processed records.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	var recs []Record
	err := s.db.WithContext(ctx).
		Order("processed DESC").
		Limit(limit).
		Find(&recs).Error
	return recs, err
}

// Stats summarizes the ledger.
type Stats struct {
	Total  int64
	Failed int64
}

// Stats returns ledger counts.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	if err := s.db.WithContext(ctx).Model(&Record{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&Record{}).
		Where("last_error != ?", "").Count(&stats.Failed).Error; err != nil {
		return nil, err
	}
	return stats, nil
}
